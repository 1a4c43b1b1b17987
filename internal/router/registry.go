package router

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/livenotify/internal/connection"
	"github.com/rickgao/livenotify/internal/metrics"
	"github.com/rickgao/livenotify/internal/model"
)

// subscription is one handler registered under a topic.
type subscription struct {
	id      uuid.UUID
	topic   string
	handler Handler
	active  atomic.Bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithSessionCheck makes Run drop frames whose session is no longer live,
// for example frames still buffered when the connection was closed.
func WithSessionCheck(live func(session uint64) bool) Option {
	return func(r *Registry) {
		r.live = live
	}
}

// WithMetrics records dispatch metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// Registry routes decoded envelopes to the handlers subscribed to their topic.
type Registry struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	live    func(session uint64) bool

	mu       sync.RWMutex
	handlers map[string][]*subscription

	received   atomic.Int64
	dispatched atomic.Int64
	malformed  atomic.Int64
	unrouted   atomic.Int64
	panics     atomic.Int64
	stale      atomic.Int64
}

// NewRegistry creates an empty Subscription Registry.
func NewRegistry(logger *slog.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		logger:   logger,
		handlers: make(map[string][]*subscription),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe registers h under topic and returns a function that removes it.
// Handlers on the same topic run in registration order. The returned function
// is safe to call more than once; once it returns, h is not invoked for any
// later dispatch.
func (r *Registry) Subscribe(topic string, h Handler) (unsubscribe func()) {
	if h == nil {
		panic("router: nil handler")
	}

	sub := &subscription{
		id:      uuid.New(),
		topic:   topic,
		handler: h,
	}
	sub.active.Store(true)

	r.mu.Lock()
	r.handlers[topic] = append(r.handlers[topic], sub)
	r.mu.Unlock()

	r.metrics.SubscriptionAdded(topic)
	r.logger.Debug("handler subscribed", "topic", topic, "handler_id", sub.id)

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(sub) })
	}
}

func (r *Registry) remove(sub *subscription) {
	sub.active.Store(false)

	r.mu.Lock()
	subs := r.handlers[sub.topic]
	for i, s := range subs {
		if s == sub {
			subs = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(r.handlers, sub.topic)
	} else {
		r.handlers[sub.topic] = subs
	}
	r.mu.Unlock()

	r.metrics.SubscriptionRemoved(sub.topic)
	r.logger.Debug("handler unsubscribed", "topic", sub.topic, "handler_id", sub.id)
}

// Run dispatches frames from input until ctx is done or input is closed.
// It is the only goroutine that invokes handlers.
func (r *Registry) Run(ctx context.Context, input <-chan connection.RawMessage) error {
	r.logger.Info("subscription registry started")
	defer r.logger.Info("subscription registry stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-input:
			if !ok {
				r.logger.Info("input channel closed")
				return nil
			}
			if r.live != nil && !r.live(raw.Session) {
				r.stale.Add(1)
				r.logger.Debug("dropping frame from closed session",
					"session", raw.Session,
					"age", time.Since(raw.ReceivedAt),
				)
				continue
			}
			r.HandleRaw(raw.Data)
		}
	}
}

// HandleRaw decodes a frame and dispatches it. Malformed frames are logged
// and dropped.
func (r *Registry) HandleRaw(data []byte) {
	r.received.Add(1)

	env, err := model.DecodeEnvelope(data)
	if err != nil {
		r.malformed.Add(1)
		r.metrics.MessageMalformed()
		r.logger.Warn("dropping malformed message", "error", err, "bytes", len(data))
		return
	}

	r.metrics.MessageReceived(env.Topic())
	r.Dispatch(env)
}

// Dispatch invokes every active handler for the envelope's topic. A handler
// that panics is logged and does not stop the remaining handlers.
func (r *Registry) Dispatch(env model.Envelope) {
	topic := env.Topic()

	r.mu.RLock()
	subs := append([]*subscription(nil), r.handlers[topic]...)
	r.mu.RUnlock()

	if len(subs) == 0 {
		r.unrouted.Add(1)
		r.metrics.MessageUnrouted(topic)
		r.logger.Debug("no handlers for topic", "topic", topic)
		return
	}

	for _, sub := range subs {
		if !sub.active.Load() {
			continue
		}
		r.invoke(sub, env)
	}
	r.dispatched.Add(1)
}

func (r *Registry) invoke(sub *subscription, env model.Envelope) {
	defer func() {
		if rec := recover(); rec != nil {
			r.panics.Add(1)
			r.metrics.HandlerPanic(sub.topic)
			r.logger.Error("handler panicked",
				"topic", sub.topic,
				"handler_id", sub.id,
				"panic", fmt.Sprint(rec),
			)
		}
	}()
	sub.handler(env)
}

// Stats returns current statistics.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	n := 0
	topics := make(map[string]int, len(r.handlers))
	for topic, subs := range r.handlers {
		n += len(subs)
		topics[topic] = len(subs)
	}
	r.mu.RUnlock()

	return Stats{
		MessagesReceived:   r.received.Load(),
		MessagesDispatched: r.dispatched.Load(),
		MalformedMessages:  r.malformed.Load(),
		UnroutedMessages:   r.unrouted.Load(),
		HandlerPanics:      r.panics.Load(),
		StaleFrames:        r.stale.Load(),
		Subscriptions:      n,
		Topics:             topics,
	}
}
