package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/app"
	"storefront/internal/config"
	"storefront/internal/logging"
	"storefront/internal/server"
)

const sessionPurgeInterval = time.Hour

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "storefront:", err)
		os.Exit(1)
	}
}

// deferを全部走らせてからmainで終了コードを返す
func run() error {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logging.New(os.Stdout, cfg.LogLevel, cfg.IsDev())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("build app (store=%s): %w", cfg.Store, err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error().Err(err).Msg("close app")
		}
	}()

	// 期限切れセッションの掃除
	a.PurgeSessions(ctx, log)
	go func() {
		t := time.NewTicker(sessionPurgeInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				a.PurgeSessions(ctx, log)
			}
		}
	}()

	log.Info().
		Str("store", cfg.Store).
		Bool("strict_stock", cfg.CheckoutStrictStock).
		Bool("s3", cfg.UseS3()).
		Bool("redis", cfg.RedisAddr != "").
		Msg("starting storefront")

	return server.Run(ctx, a.Echo, cfg.Addr(), log)
}
