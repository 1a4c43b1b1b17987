package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds OpenTelemetry instruments for the notification client.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	meter metric.Meter

	// Connection
	stateTransitions metric.Int64Counter
	dialAttempts     metric.Int64Counter
	giveUps          metric.Int64Counter

	// Registry
	messagesReceived  metric.Int64Counter
	messagesMalformed metric.Int64Counter
	messagesUnrouted  metric.Int64Counter
	handlerPanics     metric.Int64Counter
	subscriptions     metric.Int64UpDownCounter

	// Dedup / notifications
	dedupResults       metric.Int64Counter
	notifications      metric.Int64Counter
	sideEffectFailures metric.Int64Counter

	// History
	historyRows   metric.Int64Counter
	historyErrors metric.Int64Counter
}

// NewMetrics creates a Metrics instance using the global meter provider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsWithMeter(otel.Meter("livenotify"))
}

// NewMetricsWithMeter creates a Metrics instance bound to the given meter.
func NewMetricsWithMeter(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{meter: meter}

	var err error
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.stateTransitions, "livenotify.connection.transitions.total", "Connection state transitions"},
		{&m.dialAttempts, "livenotify.connection.dials.total", "Transport open attempts"},
		{&m.giveUps, "livenotify.connection.giveups.total", "Reconnect attempt ceilings reached"},
		{&m.messagesReceived, "livenotify.messages.received.total", "Inbound messages decoded"},
		{&m.messagesMalformed, "livenotify.messages.malformed.total", "Inbound frames dropped as malformed"},
		{&m.messagesUnrouted, "livenotify.messages.unrouted.total", "Inbound messages with no subscriber"},
		{&m.handlerPanics, "livenotify.handlers.panics.total", "Subscriber handlers that panicked"},
		{&m.dedupResults, "livenotify.dedup.results.total", "Deduplication decisions"},
		{&m.notifications, "livenotify.notifications.total", "Notifications produced from accepted messages"},
		{&m.sideEffectFailures, "livenotify.side_effects.failures.total", "Side effects that failed"},
		{&m.historyRows, "livenotify.history.rows.total", "Notification rows written to history"},
		{&m.historyErrors, "livenotify.history.errors.total", "Notification history flush failures"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("create %s counter: %w", c.name, err)
		}
	}

	m.subscriptions, err = meter.Int64UpDownCounter(
		"livenotify.subscriptions.active",
		metric.WithDescription("Active topic subscriptions"),
	)
	if err != nil {
		return nil, fmt.Errorf("create subscriptions gauge: %w", err)
	}

	return m, nil
}

// StateTransition records a connection state change.
func (m *Metrics) StateTransition(state string) {
	if m == nil {
		return
	}
	m.stateTransitions.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("state", state)))
}

// DialAttempt records one transport open attempt and its outcome.
func (m *Metrics) DialAttempt(ok bool) {
	if m == nil {
		return
	}
	m.dialAttempts.Add(context.Background(), 1,
		metric.WithAttributes(attribute.Bool("success", ok)))
}

// GaveUp records the manager settling into disconnected after the attempt ceiling.
func (m *Metrics) GaveUp() {
	if m == nil {
		return
	}
	m.giveUps.Add(context.Background(), 1)
}

// MessageReceived records a decoded inbound message.
func (m *Metrics) MessageReceived(topic string) {
	if m == nil {
		return
	}
	m.messagesReceived.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("topic", topic)))
}

// MessageMalformed records a dropped, undecodable frame.
func (m *Metrics) MessageMalformed() {
	if m == nil {
		return
	}
	m.messagesMalformed.Add(context.Background(), 1)
}

// MessageUnrouted records a message for a topic with no handlers.
func (m *Metrics) MessageUnrouted(topic string) {
	if m == nil {
		return
	}
	m.messagesUnrouted.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("topic", topic)))
}

// HandlerPanic records a recovered handler panic.
func (m *Metrics) HandlerPanic(topic string) {
	if m == nil {
		return
	}
	m.handlerPanics.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("topic", topic)))
}

// SubscriptionAdded increments the active subscription gauge.
func (m *Metrics) SubscriptionAdded(topic string) {
	if m == nil {
		return
	}
	m.subscriptions.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("topic", topic)))
}

// SubscriptionRemoved decrements the active subscription gauge.
func (m *Metrics) SubscriptionRemoved(topic string) {
	if m == nil {
		return
	}
	m.subscriptions.Add(context.Background(), -1,
		metric.WithAttributes(attribute.String("topic", topic)))
}

// DedupResult records whether a message was accepted by the dedup layer.
func (m *Metrics) DedupResult(topic string, accepted bool) {
	if m == nil {
		return
	}
	m.dedupResults.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("topic", topic),
			attribute.Bool("accepted", accepted),
		))
}

// Notification records a produced notification.
func (m *Metrics) Notification(topic, severity string) {
	if m == nil {
		return
	}
	m.notifications.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("topic", topic),
			attribute.String("severity", severity),
		))
}

// SideEffectFailed records a failed in-app, sound or desktop side effect.
func (m *Metrics) SideEffectFailed(effect string) {
	if m == nil {
		return
	}
	m.sideEffectFailures.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("effect", effect)))
}

// HistoryFlushed records rows written by the history writer.
func (m *Metrics) HistoryFlushed(rows int) {
	if m == nil {
		return
	}
	m.historyRows.Add(context.Background(), int64(rows))
}

// HistoryError records a failed history flush.
func (m *Metrics) HistoryError() {
	if m == nil {
		return
	}
	m.historyErrors.Add(context.Background(), 1)
}
