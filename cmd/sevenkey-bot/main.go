package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stake-plus/sevenkey-bot/src/actions"
	shareddata "github.com/stake-plus/sevenkey-bot/src/data"
)

func main() {
	// Use a single DB connection for all modules
	dsn, err := shareddata.GetDSN()
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	db, err := shareddata.ConnectDB(dsn)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := shareddata.Migrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager, err := actions.StartAll(ctx, db)
	if err != nil {
		log.Fatalf("actions start: %v", err)
	}

	log.Printf("sevenkey-bot: running")
	manager.Run(ctx, 10*time.Second)
	log.Printf("sevenkey-bot: stopped")
}
