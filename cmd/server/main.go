// Command server runs the storefront cart and wishlist service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/app"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/config"
	handler "github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/handler/http"
	pkgconfig "github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/config"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("storefront service exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	if err := pkgconfig.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(handler.ServiceName, cfg.LogLevel)
	slog.SetDefault(log)
	log.Info("starting",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
		slog.String("cart_store", cfg.CartStoreURL),
		slog.String("wishlist_store", cfg.WishlistStoreURL),
	)

	application, err := app.NewApp(cfg, log)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := application.Run(ctx); err != nil {
		return err
	}
	log.Info("stopped")
	return nil
}
