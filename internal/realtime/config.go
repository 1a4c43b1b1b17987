package realtime

import (
	"github.com/rickgao/livenotify/internal/config"
	"github.com/rickgao/livenotify/internal/connection"
	"github.com/rickgao/livenotify/internal/notify"
)

// Config holds the settings of one Client.
type Config struct {
	Manager connection.ManagerConfig
	Notify  notify.Options

	// DisableNotifier leaves the Registry without the built-in notification
	// subscriptions.
	DisableNotifier bool
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Manager: connection.DefaultManagerConfig(),
		Notify:  notify.DefaultOptions(),
	}
}

// FromConfig maps the application config onto a Client config.
func FromConfig(cfg *config.Config) Config {
	return Config{
		Manager: connection.ManagerConfig{
			ReconnectBaseWait:    cfg.Reconnect.BaseDelay,
			ReconnectMaxWait:     cfg.Reconnect.MaxDelay,
			MaxReconnectAttempts: cfg.Reconnect.MaxAttempts,
			MessageBufferSize:    cfg.Server.BufferSize,
		},
		Notify: notify.Options{
			EnableNotifications:        cfg.Notifications.InApp(),
			EnableSound:                cfg.Notifications.Sound(),
			EnableDesktopNotifications: cfg.Notifications.Desktop(),
			SideEffectTimeout:          cfg.Notifications.SideEffectTimeout,
		},
	}
}

// TransportConfig maps the application config onto the WebSocket client config.
func TransportConfig(cfg *config.Config) connection.ClientConfig {
	tc := connection.DefaultClientConfig()
	tc.URL = cfg.Server.WSURL
	tc.Token = cfg.Server.Token
	tc.PingTimeout = cfg.Server.PingTimeout
	tc.PingInterval = cfg.Server.PingInterval
	tc.WriteTimeout = cfg.Server.WriteTimeout
	tc.HandshakeTimeout = cfg.Server.HandshakeTimeout
	tc.BufferSize = cfg.Server.BufferSize
	return tc
}
