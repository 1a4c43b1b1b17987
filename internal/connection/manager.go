package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/livenotify/internal/metrics"
)

var errTransportClosed = errors.New("transport closed")

// Manager owns one physical connection, exposes its lifecycle as a state
// machine, and recovers from transport failures with exponential backoff.
type Manager struct {
	cfg     ManagerConfig
	backoff Backoff
	dialer  Dialer
	logger  *slog.Logger
	metrics *metrics.Metrics

	// Output to Subscription Registry
	out chan RawMessage

	mu        sync.Mutex
	state     State
	session   uint64 // Bumped on every start and stop; stale goroutines compare against it
	cancel    context.CancelFunc
	transport Transport
	reconnect ReconnectState
	waiters   map[chan error]struct{}
	listeners []*listener
	pending   []StateEvent

	// Serializes listener delivery
	emitMu sync.Mutex
}

type listener struct {
	fn      func(StateEvent)
	removed atomic.Bool
}

// ManagerOption configures optional Manager dependencies.
type ManagerOption func(*Manager)

// WithMetrics records connection metrics.
func WithMetrics(m *metrics.Metrics) ManagerOption {
	return func(mgr *Manager) {
		mgr.metrics = m
	}
}

// NewManager creates a new Connection Manager in the disconnected state.
func NewManager(cfg ManagerConfig, dialer Dialer, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultManagerConfig()
	if cfg.ReconnectBaseWait <= 0 {
		cfg.ReconnectBaseWait = defaults.ReconnectBaseWait
	}
	if cfg.ReconnectMaxWait < cfg.ReconnectBaseWait {
		cfg.ReconnectMaxWait = cfg.ReconnectBaseWait
	}
	if cfg.MessageBufferSize < 1 {
		cfg.MessageBufferSize = defaults.MessageBufferSize
	}

	m := &Manager{
		cfg:     cfg,
		backoff: Backoff{Base: cfg.ReconnectBaseWait, Max: cfg.ReconnectMaxWait},
		dialer:  dialer,
		logger:  logger,
		out:     make(chan RawMessage, cfg.MessageBufferSize),
		state:   StateDisconnected,
		waiters: make(map[chan error]struct{}),
	}
	m.reconnect.NextDelay = m.backoff.Base

	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect starts the connection if it is disconnected and waits until it is
// connected. Calling it while connecting or connected does not open another
// transport. ctx bounds only the wait; the connection keeps running after
// ctx is done. Returns ErrGaveUp if the attempt ceiling is reached and
// ErrDisconnected if Disconnect is called first.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateConnected {
		m.mu.Unlock()
		return nil
	}
	if m.state == StateDisconnected {
		m.startLocked()
	}
	wait := make(chan error, 1)
	m.waiters[wait] = struct{}{}
	m.mu.Unlock()

	m.emit()

	select {
	case err := <-wait:
		return err
	case <-ctx.Done():
		m.mu.Lock()
		delete(m.waiters, wait)
		m.mu.Unlock()
		return ctx.Err()
	}
}

// Disconnect closes the connection, cancels any pending retry and suppresses
// reconnection until Connect is called again. No-op when already disconnected.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.state == StateDisconnected {
		m.mu.Unlock()
		return
	}
	m.stopLocked()
	t := m.transport
	m.transport = nil
	m.setStateLocked(StateDisconnected, StateEvent{})
	m.resolveWaitersLocked(ErrDisconnected)
	m.mu.Unlock()

	if t != nil {
		t.Close()
	}
	m.logger.Info("disconnected")
	m.emit()
}

// Send transmits data if connected. Messages are never queued: when not
// connected, or when the write fails, the data is dropped and false is returned.
func (m *Manager) Send(data []byte) bool {
	m.mu.Lock()
	t := m.transport
	connected := m.state == StateConnected
	m.mu.Unlock()

	if !connected || t == nil {
		m.logger.Debug("send dropped, not connected", "bytes", len(data))
		return false
	}
	if err := t.Send(data); err != nil {
		m.logger.Debug("send failed", "error", err)
		return false
	}
	return true
}

// OnStateChange registers a listener invoked on every state transition, in
// transition order. A panicking listener does not affect the others.
func (m *Manager) OnStateChange(fn func(StateEvent)) (unsubscribe func()) {
	l := &listener{fn: fn}

	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.removed.Store(true)
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, x := range m.listeners {
				if x == l {
					m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
					break
				}
			}
		})
	}
}

// OnConnectionChange registers a listener receiving the connectivity flag on
// every state transition.
func (m *Manager) OnConnectionChange(fn func(connected bool)) (unsubscribe func()) {
	return m.OnStateChange(func(ev StateEvent) {
		fn(ev.Connected)
	})
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ReconnectAttempts returns consecutive failed attempts since the last success.
func (m *Manager) ReconnectAttempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnect.Attempts
}

// ReconnectState returns the attempt counter and the delay before the next attempt.
func (m *Manager) ReconnectState() ReconnectState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnect
}

// Messages returns the channel of frames received while connected. Frames
// stay buffered after Disconnect; consumers drop those whose session is no
// longer Current.
func (m *Manager) Messages() <-chan RawMessage {
	return m.out
}

// Current reports whether frames from session may still be delivered: the
// session has not been ended by Disconnect or a give-up. A transport drop
// within the session does not end it.
func (m *Manager) Current(session uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session == session && m.state != StateDisconnected
}

// startLocked moves disconnected -> connecting and launches the run loop.
func (m *Manager) startLocked() {
	m.session++
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.reconnect = ReconnectState{NextDelay: m.backoff.Base}
	m.setStateLocked(StateConnecting, StateEvent{})
	go m.run(ctx, m.session)
}

// stopLocked invalidates the current session and cancels its run loop.
func (m *Manager) stopLocked() {
	m.session++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *Manager) setStateLocked(s State, ev StateEvent) {
	m.state = s
	ev.State = s
	ev.Connected = s == StateConnected
	ev.Attempts = m.reconnect.Attempts
	m.pending = append(m.pending, ev)
	m.metrics.StateTransition(s.String())
}

func (m *Manager) resolveWaitersLocked(err error) {
	for w := range m.waiters {
		w <- err
		delete(m.waiters, w)
	}
}

// run dials, pumps frames while connected, and retries until the session ends.
func (m *Manager) run(ctx context.Context, session uint64) {
	var wait time.Duration

	for {
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}

		t, err := m.dialer.Dial(ctx)
		m.metrics.DialAttempt(err == nil)
		if err != nil {
			next, retry := m.dialFailed(session, err)
			if !retry {
				return
			}
			wait = next
			continue
		}

		if !m.opened(session, t) {
			t.Close()
			return
		}

		err = m.pump(ctx, session, t)
		if !m.dropped(session, t, err) {
			return
		}
		wait = m.backoff.Base
	}
}

// dialFailed records a failed attempt. Returns the delay before the next
// attempt, or false if the session ended or the attempt ceiling was reached.
func (m *Manager) dialFailed(session uint64, err error) (time.Duration, bool) {
	m.mu.Lock()
	if m.session != session {
		m.mu.Unlock()
		return 0, false
	}

	m.reconnect.Attempts++
	attempts := m.reconnect.Attempts

	if m.cfg.MaxReconnectAttempts > 0 && attempts >= m.cfg.MaxReconnectAttempts {
		m.stopLocked()
		m.setStateLocked(StateDisconnected, StateEvent{GaveUp: true, Err: err})
		m.resolveWaitersLocked(fmt.Errorf("%w after %d attempts: %v", ErrGaveUp, attempts, err))
		m.mu.Unlock()

		m.metrics.GaveUp()
		m.logger.Error("giving up reconnecting",
			"attempts", attempts,
			"error", err,
		)
		m.emit()
		return 0, false
	}

	delay := m.backoff.Delay(attempts)
	m.reconnect.NextDelay = delay
	m.mu.Unlock()

	m.logger.Warn("connection attempt failed",
		"attempt", attempts,
		"retry_in", delay,
		"error", err,
	)
	return delay, true
}

// opened moves connecting -> connected and resets the backoff.
func (m *Manager) opened(session uint64, t Transport) bool {
	m.mu.Lock()
	if m.session != session {
		m.mu.Unlock()
		return false
	}
	m.transport = t
	m.reconnect = ReconnectState{NextDelay: m.backoff.Base}
	m.setStateLocked(StateConnected, StateEvent{})
	m.resolveWaitersLocked(nil)
	m.mu.Unlock()

	m.logger.Info("connected", "session", session)
	m.emit()
	return true
}

// dropped moves connected -> connecting after a transport failure.
func (m *Manager) dropped(session uint64, t Transport, err error) bool {
	t.Close()

	m.mu.Lock()
	if m.session != session {
		m.mu.Unlock()
		return false
	}
	m.transport = nil
	m.reconnect.NextDelay = m.backoff.Base
	m.setStateLocked(StateConnecting, StateEvent{Err: err})
	m.mu.Unlock()

	m.logger.Warn("connection lost, reconnecting",
		"error", err,
		"retry_in", m.backoff.Base,
	)
	m.emit()
	return true
}

// pump forwards frames until the transport fails or the session ends.
func (m *Manager) pump(ctx context.Context, session uint64, t Transport) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err, ok := <-t.Errors():
			if !ok || err == nil {
				return errTransportClosed
			}
			return err

		case msg, ok := <-t.Messages():
			if !ok {
				return errTransportClosed
			}
			if !m.isCurrent(session, t) {
				continue
			}

			raw := RawMessage{
				Data:       msg.Data,
				Session:    session,
				ReceivedAt: msg.ReceivedAt,
			}
			select {
			case m.out <- raw:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (m *Manager) isCurrent(session uint64, t Transport) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session == session && m.state == StateConnected && m.transport == t
}

// emit delivers queued state events in order. Only one goroutine drains at a
// time; events queued by a listener are picked up by the running drainer.
func (m *Manager) emit() {
	for {
		if !m.emitMu.TryLock() {
			return
		}

		m.mu.Lock()
		events := m.pending
		m.pending = nil
		listeners := append([]*listener(nil), m.listeners...)
		m.mu.Unlock()

		for _, ev := range events {
			for _, l := range listeners {
				m.notify(l, ev)
			}
		}
		m.emitMu.Unlock()

		m.mu.Lock()
		more := len(m.pending) > 0
		m.mu.Unlock()
		if !more {
			return
		}
	}
}

func (m *Manager) notify(l *listener, ev StateEvent) {
	if l.removed.Load() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("connection listener panicked",
				"state", ev.State.String(),
				"panic", r,
			)
		}
	}()
	l.fn(ev)
}
