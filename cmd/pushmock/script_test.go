package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/livenotify/internal/dedup"
	"github.com/rickgao/livenotify/internal/model"
)

func steppingClock() func() time.Time {
	t := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestScript_DuplicatesAndStale(t *testing.T) {
	sc := newScript(steppingClock(), 4, 7)
	tracker := dedup.NewTracker()

	var fresh, dup, stale int
	for i := 0; i < 56; i++ {
		env, kind, err := sc.next()
		require.NoError(t, err)

		ts, err := dedup.ParseMillis(env.Timestamp)
		require.NoError(t, err)
		accepted := tracker.Accept(env.Type, ts)

		switch kind {
		case "fresh":
			fresh++
			assert.True(t, accepted, "fresh envelope %d rejected", i)
		case "duplicate":
			dup++
			assert.False(t, accepted, "duplicate envelope %d accepted", i)
		case "stale":
			stale++
			assert.False(t, accepted, "stale envelope %d accepted", i)
		}
	}

	assert.Equal(t, 14, dup)
	assert.Positive(t, stale)
	assert.Positive(t, fresh)
}

func TestScript_NoReplays(t *testing.T) {
	sc := newScript(steppingClock(), 0, 0)
	for i := 0; i < 20; i++ {
		_, kind, err := sc.next()
		require.NoError(t, err)
		assert.Equal(t, "fresh", kind)
	}
}

func newTestServer(t *testing.T, token string) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	s := &server{
		logger:   slog.New(slog.DiscardHandler),
		token:    token,
		interval: 10 * time.Millisecond,
	}
	ts := httptest.NewServer(s.handler(ctx))
	t.Cleanup(func() {
		cancel()
		ts.Close()
	})
	return ts
}

func TestServer_Streams(t *testing.T) {
	ts := newTestServer(t, "")
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for i := 0; i < 3; i++ {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		env, err := model.DecodeEnvelope(data)
		require.NoError(t, err)
		assert.Contains(t, model.KnownTopics, env.Type)
	}
}

func TestServer_RequiresToken(t *testing.T) {
	ts := newTestServer(t, "secret")
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	header := http.Header{"Authorization": []string{"Bearer secret"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}
