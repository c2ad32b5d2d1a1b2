package actions

import (
	"context"
	"fmt"
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	verifymodule "github.com/stake-plus/sevenkey-bot/src/actions/verify"
	"github.com/stake-plus/sevenkey-bot/src/actions/core"
	sharedconfig "github.com/stake-plus/sevenkey-bot/src/config"
	shareddata "github.com/stake-plus/sevenkey-bot/src/data"
	"github.com/stake-plus/sevenkey-bot/src/game"
	"github.com/stake-plus/sevenkey-bot/src/metrics"
	"github.com/stake-plus/sevenkey-bot/src/profiles"
	"github.com/stake-plus/sevenkey-bot/src/status"
	"github.com/stake-plus/sevenkey-bot/src/verification"
	"github.com/stake-plus/sevenkey-bot/src/webclient"
)

// StartAll wires up the verification and status modules and starts the manager.
// Without a Redis URL events are only counted, not streamed.
func StartAll(ctx context.Context, db *gorm.DB) (*Manager, error) {
	cfg := sharedconfig.LoadBotConfig(db)
	if cfg.Base.Token == "" {
		return nil, fmt.Errorf("actions: discord token is not configured")
	}

	var rdb *redis.Client
	if cfg.Base.RedisURL != "" {
		rdb = shareddata.MustRedis(cfg.Base.RedisURL)
	}

	verifyCfg, err := sharedconfig.NewVerification(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("actions: load verification config: %w", err)
	}

	users := shareddata.NewUserStore(db)
	resolver := buildResolver(cfg.Profiles)
	log.Printf("actions: profile lookups enabled for %v", resolver.Games())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var modRef *verifymodule.Module
	m := metrics.New(reg, func() int {
		if modRef == nil {
			return 0
		}
		return modRef.Registry().Len()
	})

	sinks := verification.Sinks{m}
	if rdb != nil {
		sinks = append(sinks, shareddata.NewRedisEvents(rdb))
	}

	mod, err := verifymodule.NewModule(&cfg, verifymodule.Dependencies{
		Users:    users,
		Accounts: users,
		Settings: verifyCfg,
		Resolver: resolver,
		Events:   sinks,
	})
	if err != nil {
		return nil, fmt.Errorf("actions: init verify module: %w", err)
	}
	modRef = mod

	mgr := core.NewManager(mod)

	if cfg.Status.Enabled {
		checks := []status.Check{{Name: "database", Probe: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}}}
		if rdb != nil {
			checks = append(checks, status.Check{Name: "redis", Probe: func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			}})
		}
		if err := mgr.Add(status.NewModule(status.Options{
			Addr:        cfg.Status.Addr,
			CORSOrigins: cfg.Status.CORSOrigins,
			Pending:     mod.Registry(),
			Users:       users,
			Gatherer:    reg,
			Checks:      checks,
		})); err != nil {
			return nil, fmt.Errorf("actions: add status module: %w", err)
		}
	} else {
		log.Printf("actions: status module disabled via configuration")
	}

	if err := mgr.Start(ctx); err != nil {
		return nil, err
	}

	return mgr, nil
}

func buildResolver(cfg sharedconfig.ProfilesConfig) *profiles.Resolver {
	hc := webclient.NewDefault(cfg.HTTPTimeout)
	j := webclient.NewJSON(hc)

	fetchers := map[game.Game]profiles.Fetcher{
		game.Quaver: profiles.NewQuaver(cfg.QuaverAPI, j),
		game.BMS:    profiles.NewTachi(cfg.TachiAPI, j),
		game.DMJam:  profiles.NewDMJam(cfg.DMJamAPI, j),
	}
	if cfg.OsuEnabled() {
		fetchers[game.Osu] = profiles.NewOsu(profiles.OsuConfig{
			ClientID:     cfg.OsuClientID,
			ClientSecret: cfg.OsuClientSecret,
			BaseURL:      cfg.OsuAPI,
			TokenURL:     cfg.OsuTokenURL,
		}, hc)
	} else {
		log.Printf("actions: osu! client credentials missing, osu! lookups disabled")
	}
	return profiles.NewResolver(fetchers)
}
