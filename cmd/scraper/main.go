package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maltedev/creative-center-scraper/internal/api"
	"github.com/maltedev/creative-center-scraper/internal/browser"
	"github.com/maltedev/creative-center-scraper/internal/config"
	"github.com/maltedev/creative-center-scraper/internal/creativecenter"
	"github.com/maltedev/creative-center-scraper/internal/delivery"
	"github.com/maltedev/creative-center-scraper/internal/server"
	"github.com/maltedev/creative-center-scraper/internal/table"
)

// Uploaded snapshots never change, so the row wait only needs one look.
const staticRowWait = 100 * time.Millisecond

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logging.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := browser.New(browser.OptionsFromConfig(cfg.Browser), logger)
	if err != nil {
		logger.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	var publisher delivery.Publisher = delivery.Discard{}
	if cfg.Redis.Enabled() {
		redisClient := delivery.NewRedisClient(delivery.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}

		publisher = delivery.NewStreamPublisher(redisClient, cfg.Redis.Stream, logger)
		logger.Info("publishing scrape results", "stream", cfg.Redis.Stream)
	}
	defer publisher.Close()

	service := creativecenter.NewService(cfg.Scraper, b, publisher, logger)

	staticExtractor := table.NewExtractor(&table.Options{
		RowWaitTimeout:   staticRowWait,
		MinProductLength: cfg.Scraper.MinProductLength,
	}, logger)

	handlers := api.NewHandlers(service, staticExtractor, logger)
	router := api.NewRouter(handlers, api.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.WriteTimeout,
	})

	err = server.Run(ctx, server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, router, logger)
	if err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
