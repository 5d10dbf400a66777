package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/youth-scoreboard/internal/access"
	"github.com/youth-scoreboard/internal/fairness"
	"github.com/youth-scoreboard/internal/handler"
	"github.com/youth-scoreboard/internal/kafka"
	"github.com/youth-scoreboard/internal/redis"
	"github.com/youth-scoreboard/internal/roster"
	"github.com/youth-scoreboard/internal/service"
	"github.com/youth-scoreboard/internal/websocket"
	"github.com/youth-scoreboard/internal/worker"
)

func serve(c *cli.Context) error {
	cfg, logger := setup(c)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()
	logger.Info("store ready", "driver", cfg.Store.Driver)

	// Initialize services
	gate := access.NewGate(cfg.Access.AdminPIN)
	engine := fairness.NewEngine(cfg.Match.FairnessToleranceMinutes, cfg.Match.SuggestionLimit)
	views := service.NewViewService(st, gate, engine, cfg.Match.CoachMatchesLimit, logger)
	matches := service.NewMatchService(st, gate, views, &cfg.Match, logger)

	// Public view cache
	var cache *redis.ViewCache
	if cfg.Redis.Enabled {
		logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
		cache, err = redis.NewViewCache(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("failed to connect to Redis, continuing without view cache", "error", err)
			cache = nil
		} else {
			defer cache.Close()
			views.SetCache(cache)
		}
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()
	views.SetHub(wsHub)

	// Kafka event fan-out and command ingestion
	var consumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka",
			"brokers", cfg.Kafka.Brokers,
			"events_topic", cfg.Kafka.EventsTopic,
			"commands_topic", cfg.Kafka.CommandsTopic,
		)
		publisher, err := kafka.NewPublisher(&cfg.Kafka, logger)
		if err != nil {
			logger.Warn("failed to create Kafka publisher, continuing without event fan-out", "error", err)
		} else {
			defer publisher.Close()
			matches.SetPublisher(publisher)
		}

		consumer, err = kafka.NewConsumer(&cfg.Kafka, matches, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without command ingestion", "error", err)
			consumer = nil
		} else if err := consumer.Start(); err != nil {
			logger.Warn("failed to start Kafka consumer, continuing without command ingestion", "error", err)
			consumer = nil
		}
	}

	// Live view refresher
	liveWorker := worker.NewLiveWorker(views, &cfg.Live, logger)
	refreshed, failed := liveWorker.RunOnce(ctx)
	logger.Info("warmed public views", "refreshed", refreshed, "errors", failed)
	if cfg.Live.Enabled {
		if err := liveWorker.Start(ctx); err != nil {
			return fmt.Errorf("starting live worker: %w", err)
		}
	}

	httpHandler := handler.NewHandler(matches, views, wsHub, logger)
	httpHandler.SetReadinessCheck(func(ctx context.Context) error {
		if err := st.ping(ctx); err != nil {
			return fmt.Errorf("store: %w", err)
		}
		if cache != nil {
			if err := cache.Ping(ctx); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		logger.Error("HTTP server error", "error", err)
	}

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	if consumer != nil {
		if err := consumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}
	if err := liveWorker.Stop(); err != nil {
		logger.Error("failed to stop live worker", "error", err)
	}
	wsHub.Stop()

	logger.Info("server stopped")
	return nil
}

func migrate(c *cli.Context) error {
	cfg, logger := setup(c)
	st, err := openStore(c.Context, cfg, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()
	logger.Info("schema up to date", "driver", cfg.Store.Driver)
	return nil
}

func seed(c *cli.Context) error {
	cfg, logger := setup(c)
	file, err := roster.Load(c.String("file"))
	if err != nil {
		return err
	}

	st, err := openStore(c.Context, cfg, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	res, err := roster.Apply(c.Context, st, file)
	if err != nil {
		return fmt.Errorf("applying roster: %w", err)
	}
	logger.Info("roster applied",
		"teams", res.Teams,
		"players", res.Players,
		"coaches", res.Coaches,
		"referees", res.Referees,
		"skipped", res.Skipped,
	)
	return nil
}
