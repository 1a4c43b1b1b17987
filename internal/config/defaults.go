package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultPingTimeout       = 60 * time.Second
	DefaultPingInterval      = 30 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultBufferSize        = 1000
	DefaultReconnectBase     = 1 * time.Second
	DefaultReconnectMax      = 30 * time.Second
	DefaultSideEffectTimeout = 2 * time.Second
	DefaultSoundMinInterval  = 500 * time.Millisecond
	DefaultInAppTopic        = "notifications.inapp"
	DefaultHistoryBatchSize  = 100
	DefaultHistoryFlush      = 2 * time.Second
	DefaultHistoryBuffer     = 1000
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 4
	DefaultMinConns          = 1
	DefaultServiceName       = "livenotify"
	DefaultMetricsInterval   = 10 * time.Second
	DefaultHealthPort        = 8080
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

// ApplyDefaults fills zero-valued optional fields.
func (c *Config) ApplyDefaults() {
	// Server defaults
	if c.Server.PingTimeout == 0 {
		c.Server.PingTimeout = DefaultPingTimeout
	}
	if c.Server.PingInterval == 0 {
		c.Server.PingInterval = DefaultPingInterval
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Server.HandshakeTimeout == 0 {
		c.Server.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Server.BufferSize == 0 {
		c.Server.BufferSize = DefaultBufferSize
	}

	// Reconnect defaults
	if c.Reconnect.BaseDelay == 0 {
		c.Reconnect.BaseDelay = DefaultReconnectBase
	}
	if c.Reconnect.MaxDelay == 0 {
		c.Reconnect.MaxDelay = DefaultReconnectMax
	}

	// Notification defaults
	if c.Notifications.SideEffectTimeout == 0 {
		c.Notifications.SideEffectTimeout = DefaultSideEffectTimeout
	}
	if c.Notifications.SoundMinInterval == 0 {
		c.Notifications.SoundMinInterval = DefaultSoundMinInterval
	}
	if c.Notifications.InAppTopic == "" {
		c.Notifications.InAppTopic = DefaultInAppTopic
	}

	// History defaults
	if c.History.BatchSize == 0 {
		c.History.BatchSize = DefaultHistoryBatchSize
	}
	if c.History.FlushInterval == 0 {
		c.History.FlushInterval = DefaultHistoryFlush
	}
	if c.History.BufferSize == 0 {
		c.History.BufferSize = DefaultHistoryBuffer
	}
	applyDBDefaults(&c.Database)

	// Metrics defaults
	if c.Metrics.ServiceName == "" {
		c.Metrics.ServiceName = DefaultServiceName
	}
	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = DefaultMetricsInterval
	}

	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}

	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
