package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/livenotify/internal/dedup"
	"github.com/rickgao/livenotify/internal/metrics"
	"github.com/rickgao/livenotify/internal/model"
	"github.com/rickgao/livenotify/internal/router"
)

// Subscriber registers topic handlers. *router.Registry satisfies it.
type Subscriber interface {
	Subscribe(topic string, h router.Handler) (unsubscribe func())
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithMetrics records dedup and notification metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(n *Notifier) {
		n.metrics = m
	}
}

// WithTracker uses an existing dedup tracker.
func WithTracker(t *dedup.Tracker) Option {
	return func(n *Notifier) {
		n.tracker = t
	}
}

// WithClock overrides the clock used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) {
		n.now = now
	}
}

// Notifier deduplicates updates on the well-known topics and raises
// notifications for the accepted ones.
type Notifier struct {
	opts    Options
	sink    Sink
	tracker *dedup.Tracker
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	permMu        sync.Mutex
	permRequested bool
}

// New creates a Notifier that delivers side effects to sink.
func New(opts Options, sink Sink, logger *slog.Logger, options ...Option) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SideEffectTimeout <= 0 {
		opts.SideEffectTimeout = DefaultOptions().SideEffectTimeout
	}

	n := &Notifier{
		opts:    opts,
		sink:    sink,
		tracker: dedup.NewTracker(),
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range options {
		opt(n)
	}
	return n
}

// Attach subscribes the Notifier to every well-known topic. The returned
// function removes all of those subscriptions.
func (n *Notifier) Attach(s Subscriber) (detach func()) {
	unsubs := make([]func(), 0, len(model.KnownTopics))
	for _, topic := range model.KnownTopics {
		unsubs = append(unsubs, s.Subscribe(topic, func(env model.Envelope) {
			n.Handle(env)
		}))
	}

	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Handle runs one envelope through dedup, mapping and side effects. It
// returns the notification and true if the envelope was accepted.
func (n *Notifier) Handle(env model.Envelope) (model.Notification, bool) {
	topic := env.Topic()

	ts, err := dedup.ParseTimestamp(env.Timestamp)
	if err != nil {
		n.logger.Warn("dropping update with invalid timestamp", "topic", topic, "error", err)
		return model.Notification{}, false
	}

	accepted := n.tracker.Accept(topic, ts.UnixMilli())
	n.metrics.DedupResult(topic, accepted)
	if !accepted {
		last, _ := n.tracker.LastSeen(topic)
		n.logger.Debug("suppressed stale or duplicate update",
			"topic", topic,
			"timestamp", env.Timestamp,
			"last_seen", time.UnixMilli(last).UTC(),
		)
		return model.Notification{}, false
	}

	note := Map(env)
	note.ID = uuid.New()
	note.Timestamp = ts.UTC()
	note.CreatedAt = n.now().UTC()

	n.metrics.Notification(topic, string(note.Severity))
	n.logger.Debug("notification",
		"topic", topic,
		"action", note.Action,
		"severity", note.Severity,
		"title", note.Title,
	)

	n.dispatch(note)
	return note, true
}

// dispatch runs each enabled side effect independently.
func (n *Notifier) dispatch(note model.Notification) {
	if n.opts.EnableNotifications {
		n.run("inapp", func(ctx context.Context) error {
			return n.sink.Enqueue(ctx, note)
		})
	}
	if n.opts.EnableSound {
		n.run("sound", func(ctx context.Context) error {
			return n.sink.PlaySound(ctx)
		})
	}
	if n.opts.EnableDesktopNotifications {
		n.run("desktop", func(ctx context.Context) error {
			return n.showDesktop(ctx, note)
		})
	}
}

// showDesktop asks for permission once while it is still undecided and skips
// silently unless it is granted.
func (n *Notifier) showDesktop(ctx context.Context, note model.Notification) error {
	perm := n.sink.DesktopPermission()
	if perm == PermissionDefault && n.claimPermissionRequest() {
		var err error
		perm, err = n.sink.RequestDesktopPermission(ctx)
		if err != nil {
			return fmt.Errorf("request desktop permission: %w", err)
		}
		n.logger.Info("desktop notification permission", "permission", perm.String())
	}
	if perm != PermissionGranted {
		return nil
	}
	return n.sink.ShowDesktop(ctx, note)
}

func (n *Notifier) claimPermissionRequest() bool {
	n.permMu.Lock()
	defer n.permMu.Unlock()
	if n.permRequested {
		return false
	}
	n.permRequested = true
	return true
}

// run executes one side effect with its own timeout. Errors and panics are
// logged and swallowed.
func (n *Notifier) run(effect string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), n.opts.SideEffectTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			n.metrics.SideEffectFailed(effect)
			n.logger.Error("side effect panicked", "effect", effect, "panic", fmt.Sprint(r))
		}
	}()

	if err := fn(ctx); err != nil {
		n.metrics.SideEffectFailed(effect)
		n.logger.Warn("side effect failed", "effect", effect, "error", err)
	}
}
