package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/livenotify/internal/config"
	"github.com/rickgao/livenotify/internal/connection"
	"github.com/rickgao/livenotify/internal/router"
	"github.com/rickgao/livenotify/internal/writer"
)

type fakeClient struct {
	state connection.State
	rs    connection.ReconnectState
	stats router.Stats
}

func (f fakeClient) State() connection.State                   { return f.state }
func (f fakeClient) ReconnectState() connection.ReconnectState { return f.rs }
func (f fakeClient) Stats() router.Stats                       { return f.stats }

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeHistory struct{ stats writer.Stats }

func (f fakeHistory) Stats() writer.Stats { return f.stats }

func getHealth(t *testing.T, h http.Handler) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealth_Connected(t *testing.T) {
	h := newHealthHandler(fakeClient{
		state: connection.StateConnected,
		stats: router.Stats{Subscriptions: 5, MessagesReceived: 3, Topics: map[string]int{"alert_update": 2}},
	}, nil, nil)

	code, body := getHealth(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])

	components := body["components"].(map[string]any)
	conn := components["connection"].(map[string]any)
	assert.Equal(t, "connected", conn["state"])
	registry := components["registry"].(map[string]any)
	assert.EqualValues(t, 5, registry["subscriptions"])
	assert.EqualValues(t, 2, registry["topics"].(map[string]any)["alert_update"])
	assert.NotContains(t, components, "database")
	assert.NotContains(t, components, "history")
	assert.Contains(t, body, "version")
}

func TestHealth_Reconnecting(t *testing.T) {
	h := newHealthHandler(fakeClient{
		state: connection.StateConnecting,
		rs:    connection.ReconnectState{Attempts: 3, NextDelay: 8 * time.Second},
	}, nil, nil)

	code, body := getHealth(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", body["status"])

	conn := body["components"].(map[string]any)["connection"].(map[string]any)
	assert.EqualValues(t, 3, conn["attempts"])
	assert.Equal(t, "8s", conn["next_delay"])
}

func TestHealth_DatabaseDown(t *testing.T) {
	h := newHealthHandler(
		fakeClient{state: connection.StateConnected},
		fakePinger{err: errors.New("connection refused")},
		fakeHistory{stats: writer.Stats{Inserts: 7}},
	)

	code, body := getHealth(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body["status"])

	components := body["components"].(map[string]any)
	db := components["database"].(map[string]any)
	assert.Equal(t, "connection refused", db["error"])
	history := components["history"].(map[string]any)
	assert.EqualValues(t, 7, history["inserts"])
}

func TestNewLogger(t *testing.T) {
	logger := newLogger(config.LoggingConfig{Level: "warn", Format: "json"})
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))

	logger = newLogger(config.LoggingConfig{Level: "bogus", Format: "text"})
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
}
