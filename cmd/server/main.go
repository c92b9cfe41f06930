package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matthewbaird/addrcascade/internal/anncsu"
	"github.com/matthewbaird/addrcascade/internal/lookup"
	"github.com/matthewbaird/addrcascade/internal/platform/config"
	"github.com/matthewbaird/addrcascade/internal/platform/logger"
	"github.com/matthewbaird/addrcascade/internal/server"
	"github.com/matthewbaird/addrcascade/internal/session"
)

const janitorInterval = time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.New("").Error("loading configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env)

	var mirror *lookup.Store
	if cfg.IsMirrorEnabled() {
		mirror, err = openMirror(ctx, cfg, log)
		if err != nil {
			log.Error("opening lookup mirror", "error", err)
			os.Exit(1)
		}
		defer mirror.Close()
	}

	client := anncsu.New(cfg.BaseURL, log,
		anncsu.WithTimeout(cfg.Timeout),
		anncsu.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
	)
	sessions := session.NewManager(cfg.SessionMaxAge, cfg.SessionIdleTimeout, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, server.Config{
			Addr:     cfg.Addr(),
			Sessions: sessions,
			Client:   client,
			Mirror:   mirror,
			Log:      log,
		})
	})
	g.Go(func() error {
		return sessions.Run(gctx, janitorInterval)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func openMirror(ctx context.Context, cfg *config.Config, log *logger.Logger) (*lookup.Store, error) {
	db, err := lookup.OpenDB(ctx, cfg.LookupDatabaseURL)
	if err != nil {
		return nil, err
	}
	store := lookup.NewStore(db, log)
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	log.Info("lookup mirror migrated")
	if cfg.LookupSeed {
		if err := store.Seed(ctx); err != nil {
			store.Close()
			return nil, err
		}
	}
	return store, nil
}
