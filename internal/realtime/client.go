package realtime

import (
	"context"
	"log/slog"

	"github.com/rickgao/livenotify/internal/connection"
	"github.com/rickgao/livenotify/internal/metrics"
	"github.com/rickgao/livenotify/internal/model"
	"github.com/rickgao/livenotify/internal/notify"
	"github.com/rickgao/livenotify/internal/router"
	"github.com/rickgao/livenotify/internal/sink"
)

// Option configures a Client.
type Option func(*options)

type options struct {
	metrics *metrics.Metrics
}

// WithMetrics records metrics in every component.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// Client wires one Connection Manager, Subscription Registry and Notifier.
type Client struct {
	logger   *slog.Logger
	manager  *connection.Manager
	registry *router.Registry
	notifier *notify.Notifier
	detach   func()
}

// New creates a Client. A nil sink discards side effects.
func New(cfg Config, dialer connection.Dialer, s notify.Sink, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if s == nil {
		s = sink.Nop{}
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	manager := connection.NewManager(cfg.Manager, dialer,
		logger.With("component", "connection"),
		connection.WithMetrics(o.metrics),
	)
	c := &Client{
		logger:  logger,
		manager: manager,
		registry: router.NewRegistry(
			logger.With("component", "registry"),
			router.WithMetrics(o.metrics),
			router.WithSessionCheck(manager.Current),
		),
		notifier: notify.New(cfg.Notify, s,
			logger.With("component", "notifier"),
			notify.WithMetrics(o.metrics),
		),
		detach: func() {},
	}
	if !cfg.DisableNotifier {
		c.detach = c.notifier.Attach(c.registry)
	}
	return c
}

// Run dispatches inbound messages until ctx is done. Frames still buffered
// from a connection that was closed with Disconnect are dropped.
func (c *Client) Run(ctx context.Context) error {
	return c.registry.Run(ctx, c.manager.Messages())
}

// Connect connects and waits until connected. See connection.Manager.Connect.
func (c *Client) Connect(ctx context.Context) error {
	return c.manager.Connect(ctx)
}

// Disconnect closes the connection and stops reconnecting.
func (c *Client) Disconnect() {
	c.manager.Disconnect()
}

// Close detaches the notifier and disconnects.
func (c *Client) Close() {
	c.detach()
	c.manager.Disconnect()
}

// Send encodes env and transmits it if connected. Returns false if the
// message was dropped.
func (c *Client) Send(env model.Envelope) bool {
	data, err := model.EncodeEnvelope(env)
	if err != nil {
		c.logger.Warn("dropping unencodable message", "type", env.Type, "error", err)
		return false
	}
	return c.manager.Send(data)
}

// Subscribe registers h for topic. See router.Registry.Subscribe.
func (c *Client) Subscribe(topic string, h router.Handler) (unsubscribe func()) {
	return c.registry.Subscribe(topic, h)
}

// OnConnectionChange registers a connectivity listener.
func (c *Client) OnConnectionChange(fn func(connected bool)) (unsubscribe func()) {
	return c.manager.OnConnectionChange(fn)
}

// OnStateChange registers a state transition listener.
func (c *Client) OnStateChange(fn func(connection.StateEvent)) (unsubscribe func()) {
	return c.manager.OnStateChange(fn)
}

// State returns the connection state.
func (c *Client) State() connection.State {
	return c.manager.State()
}

// ReconnectAttempts returns consecutive failed attempts since the last success.
func (c *Client) ReconnectAttempts() int {
	return c.manager.ReconnectAttempts()
}

// ReconnectState returns the attempt counter and next delay.
func (c *Client) ReconnectState() connection.ReconnectState {
	return c.manager.ReconnectState()
}

// Stats returns Registry statistics.
func (c *Client) Stats() router.Stats {
	return c.registry.Stats()
}

// SubscribeClientUpdates subscribes h to client_update.
func (c *Client) SubscribeClientUpdates(h router.Handler) func() {
	return c.registry.SubscribeClientUpdates(h)
}

// SubscribeTransactionUpdates subscribes h to transaction_update.
func (c *Client) SubscribeTransactionUpdates(h router.Handler) func() {
	return c.registry.SubscribeTransactionUpdates(h)
}

// SubscribeAlertUpdates subscribes h to alert_update.
func (c *Client) SubscribeAlertUpdates(h router.Handler) func() {
	return c.registry.SubscribeAlertUpdates(h)
}

// SubscribeReportUpdates subscribes h to report_update.
func (c *Client) SubscribeReportUpdates(h router.Handler) func() {
	return c.registry.SubscribeReportUpdates(h)
}

// SubscribeSystemEvents subscribes h to system_event.
func (c *Client) SubscribeSystemEvents(h router.Handler) func() {
	return c.registry.SubscribeSystemEvents(h)
}
