// pushmock is a local push server for exercising notifyd and wstail. It sends
// a scripted stream of envelopes to every connection, including replays and
// out-of-order timestamps.
// Usage: go run ./cmd/pushmock --addr :9090 --interval 2s
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/livenotify/internal/model"
)

type server struct {
	logger     *slog.Logger
	token      string
	interval   time.Duration
	dupEvery   int
	staleEvery int
	upgrader   websocket.Upgrader
}

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	interval := flag.Duration("interval", 2*time.Second, "delay between envelopes")
	token := flag.String("token", "", "required bearer token (empty = no auth)")
	dupEvery := flag.Int("dup-every", 4, "replay the previous envelope every N sends (0 = never)")
	staleEvery := flag.Int("stale-every", 7, "send an out-of-order timestamp every N sends (0 = never)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	s := &server{
		logger:     logger,
		token:      *token,
		interval:   *interval,
		dupEvery:   *dupEvery,
		staleEvery: *staleEvery,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           s.handler(ctx),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("push mock listening", "addr", *addr, "ws_url", "ws://localhost"+*addr+"/ws")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func (s *server) handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Warn("upgrade failed", "error", err)
			return
		}
		s.serve(ctx, conn)
	})
	return mux
}

func (s *server) serve(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()
	logger := s.logger.With("remote", conn.RemoteAddr().String())
	logger.Info("client connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if env, err := model.DecodeEnvelope(data); err == nil {
				logger.Info("received", "type", env.Type, "data", string(env.Data))
			} else {
				logger.Info("received", "raw", strings.TrimSpace(string(data)))
			}
		}
	}()

	sc := newScript(time.Now, s.dupEvery, s.staleEvery)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"),
				time.Now().Add(time.Second))
			return
		case <-done:
			logger.Info("client disconnected")
			return
		case <-ticker.C:
			env, kind, err := sc.next()
			if err != nil {
				logger.Error("build envelope", "error", err)
				continue
			}
			data, err := model.EncodeEnvelope(env)
			if err != nil {
				logger.Error("encode envelope", "error", err)
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Warn("write failed", "error", err)
				return
			}
			logger.Debug("sent", "type", env.Type, "timestamp", env.Timestamp, "kind", kind)
		}
	}
}
