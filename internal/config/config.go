package config

import "time"

// Config is the root configuration for a notification client instance.
type Config struct {
	Instance      InstanceConfig      `yaml:"instance"`
	Server        ServerConfig        `yaml:"server"`
	Reconnect     ReconnectConfig     `yaml:"reconnect"`
	Notifications NotificationsConfig `yaml:"notifications"`
	History       HistoryConfig       `yaml:"history"`
	Database      DBConfig            `yaml:"database"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Health        HealthConfig        `yaml:"health"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// InstanceConfig identifies this client.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ServerConfig holds push channel settings.
type ServerConfig struct {
	WSURL            string        `yaml:"ws_url"`
	Token            string        `yaml:"token"`      // Sent as "Authorization: Bearer <token>"
	TokenFile        string        `yaml:"token_file"` // Re-read on every dial; overrides token
	PingTimeout      time.Duration `yaml:"ping_timeout"`
	PingInterval     time.Duration `yaml:"ping_interval"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	BufferSize       int           `yaml:"buffer_size"`
}

// ReconnectConfig holds the backoff policy.
type ReconnectConfig struct {
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	MaxAttempts int           `yaml:"max_attempts"` // 0 = retry forever
}

// NotificationsConfig gates the user-facing side effects.
type NotificationsConfig struct {
	EnableNotifications        *bool         `yaml:"enable_notifications"`
	EnableSound                *bool         `yaml:"enable_sound"`
	EnableDesktopNotifications *bool         `yaml:"enable_desktop_notifications"`
	SideEffectTimeout          time.Duration `yaml:"side_effect_timeout"`
	SoundCommand               []string      `yaml:"sound_command"`
	SoundMinInterval           time.Duration `yaml:"sound_min_interval"`
	DesktopCommand             string        `yaml:"desktop_command"`
	InAppTopic                 string        `yaml:"inapp_topic"`
}

// InApp reports whether in-app notifications are enabled.
func (n NotificationsConfig) InApp() bool { return boolOr(n.EnableNotifications, true) }

// Sound reports whether notification sounds are enabled.
func (n NotificationsConfig) Sound() bool { return boolOr(n.EnableSound, true) }

// Desktop reports whether desktop notifications are enabled.
func (n NotificationsConfig) Desktop() bool { return boolOr(n.EnableDesktopNotifications, true) }

// HistoryConfig holds notification history writer settings.
type HistoryConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// MetricsConfig holds OpenTelemetry export settings.
type MetricsConfig struct {
	Enabled      bool          `yaml:"enabled"`
	OTLPEndpoint string        `yaml:"otlp_endpoint"`
	Insecure     bool          `yaml:"insecure"`
	ServiceName  string        `yaml:"service_name"`
	Interval     time.Duration `yaml:"interval"`
}

// HealthConfig holds the health endpoint settings.
type HealthConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
