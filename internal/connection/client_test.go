package connection

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/livenotify/internal/auth"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testClientConfig(url string) ClientConfig {
	return ClientConfig{
		URL:          url,
		PingTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   100,
	}
}

func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestClient_Connect(t *testing.T) {
	server := mockWSServer(t, drain)
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)

	require.NoError(t, client.Connect(context.Background()))
	assert.True(t, client.IsConnected())

	require.NoError(t, client.Close())
	assert.False(t, client.IsConnected())
}

func TestClient_BearerToken(t *testing.T) {
	gotAuth := make(chan string, 1)
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth <- r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		drain(conn)
	}))
	defer server.Close()

	cfg := testClientConfig(wsURL(server))
	cfg.Token = "secret"
	client := NewClient(cfg, nil)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	select {
	case auth := <-gotAuth:
		assert.Equal(t, "Bearer secret", auth)
	case <-time.After(time.Second):
		t.Fatal("server never saw the handshake")
	}
}

func TestClient_Send(t *testing.T) {
	var received []byte
	var mu sync.Mutex

	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			mu.Lock()
			received = msg
			mu.Unlock()
		}
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	testMsg := []byte(`{"type":"ping","data":{},"timestamp":"2024-01-01T00:00:00Z"}`)
	require.NoError(t, client.Send(testMsg))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return string(received) == string(testMsg)
	}, time.Second, 10*time.Millisecond)
}

func TestClient_Messages(t *testing.T) {
	testMessages := []string{
		`{"type":"client_update","data":{"action":"created"},"timestamp":"2024-01-01T00:00:01Z"}`,
		`{"type":"client_update","data":{"action":"updated"},"timestamp":"2024-01-01T00:00:02Z"}`,
		`{"type":"client_update","data":{"action":"deleted"},"timestamp":"2024-01-01T00:00:03Z"}`,
	}

	server := mockWSServer(t, func(conn *websocket.Conn) {
		for _, msg := range testMessages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		// Keep connection open
		time.Sleep(time.Second)
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	var received []string
	timeout := time.After(time.Second)

	for range testMessages {
		select {
		case msg := <-client.Messages():
			received = append(received, string(msg.Data))
			assert.False(t, msg.ReceivedAt.IsZero(), "ReceivedAt should not be zero")
		case <-timeout:
			t.Fatalf("timeout waiting for messages, received %d of %d", len(received), len(testMessages))
		}
	}

	assert.Equal(t, testMessages, received)
}

func TestClient_ServerCloseReportsError(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"))
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	select {
	case err := <-client.Errors():
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("expected transport error after server close")
	}
	assert.False(t, client.IsConnected())
}

func TestClient_SendNotConnected(t *testing.T) {
	client := NewClient(testClientConfig("ws://localhost:12345"), nil)

	assert.ErrorIs(t, client.Send([]byte("test")), ErrNotConnected)
}

func TestClient_DoubleClose(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		time.Sleep(time.Second)
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	require.NoError(t, client.Connect(context.Background()))

	assert.NoError(t, client.Close())
	assert.NoError(t, client.Close(), "second Close should be a no-op")
}

func TestClient_ConnectAfterClose(t *testing.T) {
	client := NewClient(testClientConfig("ws://localhost:12345"), nil)
	require.NoError(t, client.Close())

	assert.ErrorIs(t, client.Connect(context.Background()), ErrAlreadyClosed)
}

func TestClient_PingHandler(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		if err := conn.WriteControl(websocket.PingMessage, []byte("heartbeat"), time.Now().Add(time.Second)); err != nil {
			t.Logf("ping error: %v", err)
			return
		}
		time.Sleep(500 * time.Millisecond)
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	time.Sleep(200 * time.Millisecond)
	assert.True(t, client.IsConnected(), "connection should survive a server ping")
}

func TestClient_StaleConnection(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		// Never reads, so client pings are never answered with pongs
		time.Sleep(time.Second)
	})
	defer server.Close()

	cfg := testClientConfig(wsURL(server))
	cfg.PingInterval = 20 * time.Millisecond
	cfg.PingTimeout = 50 * time.Millisecond
	client := NewClient(cfg, nil)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	select {
	case err := <-client.Errors():
		assert.ErrorIs(t, err, ErrStaleConnection)
	case <-time.After(time.Second):
		t.Fatal("expected stale connection error")
	}
}

func TestWebSocketDialer(t *testing.T) {
	server := mockWSServer(t, drain)
	defer server.Close()

	d := NewWebSocketDialer(testClientConfig(wsURL(server)), nil)
	tr, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer tr.Close()

	assert.NoError(t, tr.Send([]byte("hello")))

	_, err = NewWebSocketDialer(testClientConfig("ws://127.0.0.1:1"), nil).Dial(context.Background())
	assert.Error(t, err)
}

func TestWebSocketDialer_TokenSource(t *testing.T) {
	gotAuth := make(chan string, 1)
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth <- r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		drain(conn)
	}))
	defer server.Close()

	cfg := testClientConfig(wsURL(server))
	cfg.Token = "ignored"
	d := NewWebSocketDialer(cfg, nil, WithTokenSource(auth.Static("rotated")))
	tr, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer tr.Close()

	assert.Equal(t, "Bearer rotated", <-gotAuth)
}

func TestWebSocketDialer_TokenError(t *testing.T) {
	d := NewWebSocketDialer(testClientConfig("ws://127.0.0.1:1"), nil,
		WithTokenSource(auth.NewFileSource("/nonexistent/token")))

	_, err := d.Dial(context.Background())
	assert.ErrorContains(t, err, "resolve token")
}

func TestDefaultConfigs(t *testing.T) {
	cc := DefaultClientConfig()
	assert.Equal(t, 60*time.Second, cc.PingTimeout)
	assert.Equal(t, 1000, cc.BufferSize)

	mc := DefaultManagerConfig()
	assert.Equal(t, time.Second, mc.ReconnectBaseWait)
	assert.Equal(t, 30*time.Second, mc.ReconnectMaxWait)
	assert.Zero(t, mc.MaxReconnectAttempts)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "unknown", State(42).String())
}
