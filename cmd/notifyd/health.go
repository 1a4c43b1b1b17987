package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rickgao/livenotify/internal/connection"
	"github.com/rickgao/livenotify/internal/router"
	"github.com/rickgao/livenotify/internal/version"
	"github.com/rickgao/livenotify/internal/writer"
)

type clientStatus interface {
	State() connection.State
	ReconnectState() connection.ReconnectState
	Stats() router.Stats
}

type pinger interface {
	Ping(ctx context.Context) error
}

type historyStats interface {
	Stats() writer.Stats
}

type healthResponse struct {
	Status     string         `json:"status"`
	Version    version.Info   `json:"version"`
	Components map[string]any `json:"components"`
}

// newHealthHandler reports connection, registry and history health. db and
// history may be nil when history is disabled.
func newHealthHandler(client clientStatus, db pinger, history historyStats) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := healthResponse{
			Status:     "healthy",
			Version:    version.Get(),
			Components: make(map[string]any),
		}

		state := client.State()
		rs := client.ReconnectState()
		health.Components["connection"] = map[string]any{
			"state":      state.String(),
			"attempts":   rs.Attempts,
			"next_delay": rs.NextDelay.String(),
		}
		if state != connection.StateConnected {
			health.Status = "degraded"
		}

		stats := client.Stats()
		health.Components["registry"] = map[string]any{
			"subscriptions": stats.Subscriptions,
			"received":      stats.MessagesReceived,
			"dispatched":    stats.MessagesDispatched,
			"malformed":     stats.MalformedMessages,
			"unrouted":      stats.UnroutedMessages,
			"panics":        stats.HandlerPanics,
			"stale":         stats.StaleFrames,
			"topics":        stats.Topics,
		}

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["database"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["database"] = "connected"
			}
		}

		if history != nil {
			hs := history.Stats()
			health.Components["history"] = map[string]any{
				"inserts": hs.Inserts,
				"errors":  hs.Errors,
				"queued":  hs.Queue.Len,
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
