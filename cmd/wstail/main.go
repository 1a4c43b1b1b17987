// wstail connects to the push channel and prints every envelope it receives.
// Usage: go run ./cmd/wstail --config configs/notifyd.example.yaml --topics alert_update,system_event
//
// Notifications are not produced; use notifyd for that.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rickgao/livenotify/internal/auth"
	"github.com/rickgao/livenotify/internal/config"
	"github.com/rickgao/livenotify/internal/connection"
	"github.com/rickgao/livenotify/internal/model"
	"github.com/rickgao/livenotify/internal/realtime"
)

func main() {
	configPath := flag.String("config", "configs/notifyd.example.yaml", "path to config file")
	topics := flag.String("topics", strings.Join(model.KnownTopics, ","), "comma-separated topics to print")
	verbose := flag.Bool("verbose", false, "print full message JSON")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rtCfg := realtime.FromConfig(cfg)
	rtCfg.DisableNotifier = true

	dialer := connection.NewWebSocketDialer(realtime.TransportConfig(cfg), logger,
		connection.WithTokenSource(auth.FromConfig(cfg.Server.Token, cfg.Server.TokenFile)),
	)
	client := realtime.New(rtCfg, dialer, nil, logger)
	defer client.Close()

	for _, topic := range splitTopics(*topics) {
		client.Subscribe(topic, printer(topic, *verbose))
	}

	client.OnStateChange(func(ev connection.StateEvent) {
		logger.Info("state", "state", ev.State, "attempts", ev.Attempts, "error", ev.Err)
	})

	go func() {
		if err := client.Connect(ctx); err != nil {
			logger.Error("connect failed", "error", err)
			stop()
		}
	}()

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := client.Stats()
				logger.Info("stats",
					"state", client.State(),
					"received", stats.MessagesReceived,
					"dispatched", stats.MessagesDispatched,
					"malformed", stats.MalformedMessages,
					"unrouted", stats.UnroutedMessages,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")
	client.Run(ctx)
	logger.Info("shutdown complete")
}

func splitTopics(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func printer(topic string, verbose bool) func(model.Envelope) {
	label := strings.ToUpper(topic)
	return func(env model.Envelope) {
		if verbose {
			data, _ := json.MarshalIndent(env, "", "  ")
			fmt.Printf("[%s] %s\n", label, data)
			return
		}
		fmt.Printf("[%s] ts=%s data=%s\n", label, env.Timestamp, env.Data)
	}
}
