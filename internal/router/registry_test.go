package router

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/livenotify/internal/connection"
	"github.com/rickgao/livenotify/internal/model"
)

func frame(topic, ts string) []byte {
	return []byte(`{"type":"` + topic + `","data":{"action":"created"},"timestamp":"` + ts + `"}`)
}

func TestRegistry_HandlersRunInRegistrationOrder(t *testing.T) {
	r := NewRegistry(nil)

	var order []string
	r.Subscribe("alert_update", func(model.Envelope) { order = append(order, "a") })
	r.Subscribe("alert_update", func(model.Envelope) { order = append(order, "b") })
	r.Subscribe("alert_update", func(model.Envelope) { order = append(order, "c") })
	r.Subscribe("client_update", func(model.Envelope) { order = append(order, "other") })

	r.HandleRaw(frame("alert_update", "2024-01-01T00:00:00Z"))

	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestRegistry_UnsubscribeIsFinal(t *testing.T) {
	r := NewRegistry(nil)

	var hCalls, otherCalls int
	unsubscribe := r.Subscribe("alert_update", func(model.Envelope) { hCalls++ })
	r.Subscribe("alert_update", func(model.Envelope) { otherCalls++ })

	r.HandleRaw(frame("alert_update", "2024-01-01T00:00:00Z"))
	unsubscribe()
	unsubscribe()
	r.HandleRaw(frame("alert_update", "2024-01-01T00:00:01Z"))

	assert.Equal(t, 1, hCalls)
	assert.Equal(t, 2, otherCalls)
	assert.Equal(t, 1, r.Stats().Topics["alert_update"])
}

func TestRegistry_UnsubscribeDuringDispatch(t *testing.T) {
	r := NewRegistry(nil)

	var second int
	var unsubscribeSecond func()
	r.Subscribe("report_update", func(model.Envelope) { unsubscribeSecond() })
	unsubscribeSecond = r.Subscribe("report_update", func(model.Envelope) { second++ })

	r.HandleRaw(frame("report_update", "2024-01-01T00:00:00Z"))

	assert.Zero(t, second, "handler removed earlier in the same dispatch must not run")
	assert.Equal(t, 1, r.Stats().Topics["report_update"])
}

func TestRegistry_HandlerPanicIsolated(t *testing.T) {
	r := NewRegistry(nil)

	var got []string
	r.Subscribe("transaction_update", func(model.Envelope) { panic("handler A failed") })
	r.Subscribe("transaction_update", func(env model.Envelope) { got = append(got, env.Timestamp) })

	r.HandleRaw(frame("transaction_update", "2024-01-01T00:00:00Z"))
	r.HandleRaw(frame("transaction_update", "2024-01-01T00:00:01Z"))

	assert.Equal(t, []string{"2024-01-01T00:00:00Z", "2024-01-01T00:00:01Z"}, got)
	assert.Equal(t, int64(2), r.Stats().HandlerPanics)
}

func TestRegistry_MalformedAndUnrouted(t *testing.T) {
	r := NewRegistry(nil)

	var calls int
	r.Subscribe("client_update", func(model.Envelope) { calls++ })

	r.HandleRaw([]byte(`not json`))
	r.HandleRaw([]byte(`{"data":{},"timestamp":"2024-01-01T00:00:00Z"}`))
	r.HandleRaw([]byte(`{"type":"client_update","data":{}}`))
	r.HandleRaw(frame("nobody_listens", "2024-01-01T00:00:00Z"))
	r.HandleRaw(frame("client_update", "2024-01-01T00:00:00Z"))

	stats := r.Stats()
	assert.Equal(t, int64(5), stats.MessagesReceived)
	assert.Equal(t, int64(3), stats.MalformedMessages)
	assert.Equal(t, int64(1), stats.UnroutedMessages)
	assert.Equal(t, int64(1), stats.MessagesDispatched)
	assert.Equal(t, 1, stats.Subscriptions)
	assert.Equal(t, 1, calls)
}

func TestRegistry_DomainWrappers(t *testing.T) {
	r := NewRegistry(nil)

	seen := map[string]int{}
	record := func(env model.Envelope) { seen[env.Topic()]++ }

	unsubs := []func(){
		r.SubscribeClientUpdates(record),
		r.SubscribeTransactionUpdates(record),
		r.SubscribeAlertUpdates(record),
		r.SubscribeReportUpdates(record),
		r.SubscribeSystemEvents(record),
	}

	for _, topic := range model.KnownTopics {
		r.HandleRaw(frame(topic, "2024-01-01T00:00:00Z"))
	}
	for _, topic := range model.KnownTopics {
		assert.Equal(t, 1, seen[topic], topic)
	}

	for _, u := range unsubs {
		u()
	}
	assert.Zero(t, r.Stats().Subscriptions)
}

func TestRegistry_NilHandlerPanics(t *testing.T) {
	r := NewRegistry(nil)
	assert.Panics(t, func() { r.Subscribe("alert_update", nil) })
}

func TestRegistry_Run(t *testing.T) {
	r := NewRegistry(nil)

	got := make(chan model.Envelope, 2)
	r.Subscribe("system_event", func(env model.Envelope) { got <- env })

	input := make(chan connection.RawMessage, 2)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, input) }()

	input <- connection.RawMessage{Data: frame("system_event", "2024-01-01T00:00:00Z"), ReceivedAt: time.Now()}

	select {
	case env := <-got:
		assert.Equal(t, "system_event", env.Type)
		assert.JSONEq(t, `{"action":"created"}`, string(env.Data))
	case <-time.After(time.Second):
		t.Fatal("envelope not dispatched")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestRegistry_RunStopsWhenInputClosed(t *testing.T) {
	r := NewRegistry(nil)
	input := make(chan connection.RawMessage)
	close(input)

	require.NoError(t, r.Run(context.Background(), input))
}

func TestRegistry_RunDropsFramesFromEndedSession(t *testing.T) {
	live := map[uint64]bool{2: true}
	r := NewRegistry(nil, WithSessionCheck(func(session uint64) bool { return live[session] }))

	got := make(chan model.Envelope, 4)
	r.Subscribe("alert_update", func(env model.Envelope) { got <- env })

	input := make(chan connection.RawMessage, 4)
	input <- connection.RawMessage{Data: frame("alert_update", "2024-01-01T00:00:00Z"), Session: 1, ReceivedAt: time.Now()}
	input <- connection.RawMessage{Data: frame("alert_update", "2024-01-01T00:00:01Z"), Session: 2, ReceivedAt: time.Now()}
	close(input)

	require.NoError(t, r.Run(context.Background(), input))

	require.Len(t, got, 1)
	env := <-got
	assert.Equal(t, "2024-01-01T00:00:01Z", env.Timestamp)

	stats := r.Stats()
	assert.EqualValues(t, 1, stats.StaleFrames)
	assert.EqualValues(t, 1, stats.MessagesReceived)
	assert.EqualValues(t, 1, stats.MessagesDispatched)
}
