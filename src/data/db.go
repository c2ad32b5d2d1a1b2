package data

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite:"

// GetDSN returns the database DSN configured via environment. A value starting
// with "sqlite:" selects a SQLite file, anything else is a MySQL DSN.
func GetDSN() (string, error) {
	dsn := os.Getenv("DATABASE_DSN")
	if strings.TrimSpace(dsn) == "" {
		dsn = os.Getenv("MYSQL_DSN")
	}
	if strings.TrimSpace(dsn) == "" {
		return "", fmt.Errorf("DATABASE_DSN is not set")
	}
	return dsn, nil
}

// ConnectDB opens a gorm DB with sane defaults.
func ConnectDB(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: newLogger(logger.Warn)}

	if path, ok := strings.CutPrefix(dsn, sqlitePrefix); ok {
		if path == "" {
			path = "users.db"
		}
		return gorm.Open(sqlite.Open(path), cfg)
	}

	dsn = ensureParam(dsn, "parseTime", "true")
	if !strings.Contains(dsn, "charset=") {
		dsn = ensureParam(dsn, "charset", "utf8mb4")
		dsn = ensureParam(dsn, "collation", "utf8mb4_unicode_ci")
	}
	return gorm.Open(mysql.Open(dsn), cfg)
}

func newLogger(level logger.LogLevel) logger.Interface {
	return logger.New(
		log.New(log.Writer(), "\r\n", log.LstdFlags),
		logger.Config{SlowThreshold: time.Second, LogLevel: level, IgnoreRecordNotFoundError: true, Colorful: false},
	)
}

func ensureParam(dsn, key, val string) string {
	if strings.Contains(dsn, key+"=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + key + "=" + val
}
