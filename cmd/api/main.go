package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/angelmondragon/quotecart/api/routes"
	"github.com/angelmondragon/quotecart/internal/catalog"
	"github.com/angelmondragon/quotecart/internal/savedcart"
	"github.com/angelmondragon/quotecart/pkg/config"
	"github.com/angelmondragon/quotecart/pkg/db"
	"github.com/angelmondragon/quotecart/pkg/logger"
	"github.com/angelmondragon/quotecart/pkg/migrate"
	"github.com/angelmondragon/quotecart/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("run dev migrations: %w", err)
	}

	gst, err := gstDefaults(cfg.Cart)
	if err != nil {
		return err
	}
	opts := []savedcart.Option{
		savedcart.WithLogger(logg),
		savedcart.WithGSTDefaults(gst),
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return fmt.Errorf("bootstrap redis: %w", err)
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
		opts = append(opts, savedcart.WithCache(redisClient, cfg.Cart.CacheTTL))
	} else {
		logg.Warn(ctx, "redis not configured, cart cache and idempotency disabled")
	}

	cartService, err := savedcart.NewService(savedcart.NewRepository(dbClient.DB()), dbClient, opts...)
	if err != nil {
		return fmt.Errorf("create cart service: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, cartService, catalog.NewFileSource(cfg.Cart.CatalogDir), registry),
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.App.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func gstDefaults(cfg config.CartConfig) (savedcart.GSTDefaults, error) {
	blanket, err := decimal.NewFromString(cfg.BlanketGSTPercent)
	if err != nil {
		return savedcart.GSTDefaults{}, fmt.Errorf("parse blanket gst percent: %w", err)
	}
	mpack, err := decimal.NewFromString(cfg.MPackGSTPercent)
	if err != nil {
		return savedcart.GSTDefaults{}, fmt.Errorf("parse mpack gst percent: %w", err)
	}
	return savedcart.GSTDefaults{Blanket: blanket, MPack: mpack}, nil
}
