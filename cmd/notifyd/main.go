// notifyd keeps a push connection open, turns server events into user
// notifications and optionally records them in Postgres.
// Usage: go run ./cmd/notifyd --config configs/notifyd.example.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/livenotify/internal/auth"
	"github.com/rickgao/livenotify/internal/config"
	"github.com/rickgao/livenotify/internal/connection"
	"github.com/rickgao/livenotify/internal/database"
	"github.com/rickgao/livenotify/internal/metrics"
	"github.com/rickgao/livenotify/internal/realtime"
	"github.com/rickgao/livenotify/internal/sink"
	"github.com/rickgao/livenotify/internal/version"
	"github.com/rickgao/livenotify/internal/writer"
)

func main() {
	configPath := flag.String("config", "configs/notifyd.local.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting notifyd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"instance_id", cfg.Instance.ID,
		"ws_url", cfg.Server.WSURL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("notifyd failed", "error", err)
		os.Exit(1)
	}
	logger.Info("notifyd stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	shutdownMetrics, err := metrics.InitProvider(ctx, cfg.Metrics, cfg.Instance.ID)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown failed", "error", err)
		}
	}()

	m, err := metrics.NewMetrics()
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: int64(cfg.History.BufferSize),
	}, watermill.NewSlogLogger(logger.With("component", "pubsub")))
	defer pubsub.Close()

	system := sink.NewSystem(cfg.Notifications, pubsub, logger.With("component", "sink"))
	dialer := connection.NewWebSocketDialer(realtime.TransportConfig(cfg), logger,
		connection.WithTokenSource(auth.FromConfig(cfg.Server.Token, cfg.Server.TokenFile)),
	)
	client := realtime.New(realtime.FromConfig(cfg), dialer, system, logger, realtime.WithMetrics(m))
	defer client.Close()

	client.OnStateChange(func(ev connection.StateEvent) {
		if ev.GaveUp {
			logger.Error("giving up on push connection", "attempts", ev.Attempts, "error", ev.Err)
		}
	})

	var pool pinger
	var history historyStats
	if cfg.History.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)
		db, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()
		if err := database.EnsureSchema(ctx, db); err != nil {
			return err
		}
		pool = db

		w := writer.NewNotificationWriter(writer.Config{
			Topic:         cfg.Notifications.InAppTopic,
			InstanceID:    cfg.Instance.ID,
			BatchSize:     cfg.History.BatchSize,
			FlushInterval: cfg.History.FlushInterval,
			QueueSize:     cfg.History.BufferSize,
		}, pubsub, db, logger, writer.WithMetrics(m))
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("start history writer: %w", err)
		}
		history = w
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := w.Stop(stopCtx); err != nil {
				logger.Warn("history writer stop failed", "error", err)
			}
		}()
	}

	feed, err := pubsub.Subscribe(ctx, cfg.Notifications.InAppTopic)
	if err != nil {
		return fmt.Errorf("subscribe in-app feed: %w", err)
	}

	healthServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Health.Port),
		Handler:           newHealthHandler(client, pool, history),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return client.Run(gctx)
	})

	g.Go(func() error {
		// The manager keeps retrying after gctx ends the wait; only a give-up
		// is fatal.
		err := client.Connect(gctx)
		switch {
		case err == nil:
			logger.Info("push connection established")
		case errors.Is(err, connection.ErrGaveUp):
			return err
		}
		return nil
	})

	g.Go(func() error {
		logFeed(gctx, feed, logger.With("component", "feed"))
		return nil
	})

	g.Go(func() error {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")
		client.Disconnect()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return healthServer.Shutdown(shutdownCtx)
	})

	logger.Info("notifyd running",
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Health.Port),
		"history", cfg.History.Enabled,
	)

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// logFeed stands in for a UI: it prints every in-app notification.
func logFeed(ctx context.Context, msgs <-chan *message.Message, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			n, err := sink.DecodeNotification(msg)
			msg.Ack()
			if err != nil {
				logger.Warn("undecodable notification", "error", err)
				continue
			}
			logger.Info(n.Title,
				"body", n.Body,
				"topic", n.Topic,
				"severity", n.Severity,
				"id", n.ID,
			)
		}
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
