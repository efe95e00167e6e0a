package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/i474232898/sunny-weather/internal/api/http"
	"github.com/i474232898/sunny-weather/internal/config"
	"github.com/i474232898/sunny-weather/internal/live"
	"github.com/i474232898/sunny-weather/internal/observability"
	"github.com/i474232898/sunny-weather/internal/scheduler"
	"github.com/i474232898/sunny-weather/internal/store"
	"github.com/i474232898/sunny-weather/internal/weather"
	"github.com/i474232898/sunny-weather/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)
	metrics := observability.NewMetrics()

	if cfg.CaiyunToken == "" {
		log.Warn("CAIYUN_TOKEN is not set; remote requests will fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Selection store backend.
	kv, err := store.Open(ctx, store.Options{
		Backend:  cfg.StoreBackend,
		Path:     cfg.StorePath,
		RedisURL: cfg.RedisURL,
	})
	if err != nil {
		log.Error("failed to open store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer kv.Close()

	// Shared HTTP client for outbound calls. A zero timeout means none.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Caiyun client with resilience (backoff + circuit breaker).
	caiyun := providers.NewCaiyunProvider(
		providers.CaiyunConfig{
			Token:   cfg.CaiyunToken,
			BaseURL: cfg.CaiyunBaseURL,
			Lang:    cfg.CaiyunLang,
		},
		providers.HTTPClientConfig{
			Client: httpClient,
			Backoff: providers.BackoffConfig{
				MaxRetries:      cfg.RetryMax,
				InitialInterval: cfg.RetryInitialInterval,
				MaxInterval:     cfg.RetryMaxInterval,
			},
			Breaker: providers.BreakerConfig{
				MaxRequests: uint32(cfg.BreakerMaxRequests),
				Interval:    cfg.BreakerInterval,
				Timeout:     cfg.BreakerTimeout,
			},
		},
		log,
		metrics,
	)
	log.Info("remote provider configured", "provider", caiyun.Name(), "base_url", cfg.CaiyunBaseURL)

	service := weather.NewService(caiyun, store.NewSelection(kv), log)
	tracker := weather.NewTracker(service, log, live.WithObserver(metrics))
	defer tracker.Close()

	// Resume tracking the place saved by a previous run.
	if _, err := tracker.Restore(ctx); err != nil {
		log.Warn("failed to restore saved place", "error", err)
	}

	search := weather.NewPlaceSearch(service, log, live.WithObserver(metrics))
	defer search.Close()

	// Scheduler that periodically refreshes the selected place.
	sched := scheduler.New(tracker, cfg.RefreshInterval, log, metrics)
	if err := sched.Start(); err != nil {
		log.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "sunny-weather",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "sunny-weather",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpapi.RegisterRoutes(app, service, tracker, search)

	go func() {
		log.Info("http server listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
}
