package writer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jackc/pgx/v5"

	"github.com/rickgao/livenotify/internal/metrics"
	"github.com/rickgao/livenotify/internal/model"
)

const insertNotification = `
	INSERT INTO notification_history (id, topic, action, severity, title, body, server_ts, created_at, instance_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO NOTHING
`

// Config holds configuration for the history writer.
type Config struct {
	Topic         string        // In-app notification topic to consume
	InstanceID    string        // Stored with every row
	BatchSize     int           // Rows per INSERT batch
	FlushInterval time.Duration // Max time a row waits before being flushed
	QueueSize     int           // Initial queue capacity
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Topic:         "notifications.inapp",
		BatchSize:     100,
		FlushInterval: 2 * time.Second,
		QueueSize:     1000,
	}
}

// Stats contains runtime statistics.
type Stats struct {
	Received     int64
	Inserts      int64
	Conflicts    int64
	DecodeErrors int64
	Errors       int64
	Flushes      int64
	Queue        QueueStats
}

// BatchSender sends a pgx batch. *pgxpool.Pool satisfies it.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Option configures a NotificationWriter.
type Option func(*NotificationWriter)

// WithMetrics records flush metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *NotificationWriter) {
		w.metrics = m
	}
}

// NotificationWriter consumes in-app notifications and writes them to notification_history.
type NotificationWriter struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	// Input from the in-app sink
	sub message.Subscriber

	// Database
	db BatchSender

	pending *queue[model.Notification]

	// Serializes flushes
	flushMu sync.Mutex

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	statsMu sync.Mutex
	stats   Stats
}

// NewNotificationWriter creates a new NotificationWriter.
func NewNotificationWriter(cfg Config, sub message.Subscriber, db BatchSender, logger *slog.Logger, opts ...Option) *NotificationWriter {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.Topic == "" {
		cfg.Topic = defaults.Topic
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaults.FlushInterval
	}

	w := &NotificationWriter{
		cfg:     cfg,
		logger:  logger,
		sub:     sub,
		db:      db,
		pending: newQueue[model.Notification](cfg.QueueSize),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start subscribes to the notification topic and begins flushing.
func (w *NotificationWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	msgs, err := w.sub.Subscribe(w.ctx, w.cfg.Topic)
	if err != nil {
		w.cancel()
		return fmt.Errorf("subscribe %s: %w", w.cfg.Topic, err)
	}

	w.wg.Add(2)
	go w.consumeLoop(msgs)
	go w.flushLoop()

	w.logger.Info("history writer started",
		"topic", w.cfg.Topic,
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop stops consuming and flushes whatever is pending.
func (w *NotificationWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping history writer")

	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("history writer stop timed out")
	}

	w.pending.close()
	w.flush(ctx)

	w.logger.Info("history writer stopped")
	return nil
}

// Stats returns current statistics.
func (w *NotificationWriter) Stats() Stats {
	w.statsMu.Lock()
	s := w.stats
	w.statsMu.Unlock()
	s.Queue = w.pending.stats()
	return s
}

func (w *NotificationWriter) consumeLoop(msgs <-chan *message.Message) {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			w.handleMessage(msg)
		}
	}
}

func (w *NotificationWriter) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.flush(w.ctx)
		}
	}
}

// handleMessage decodes one notification and queues it. Messages are acked
// once queued; undecodable payloads are acked and counted.
func (w *NotificationWriter) handleMessage(msg *message.Message) {
	defer msg.Ack()

	var n model.Notification
	if err := json.Unmarshal(msg.Payload, &n); err != nil {
		w.logger.Warn("dropping undecodable notification", "uuid", msg.UUID, "error", err)
		w.statsMu.Lock()
		w.stats.DecodeErrors++
		w.statsMu.Unlock()
		return
	}

	pending, ok := w.pending.push(n)
	if !ok {
		return
	}

	w.statsMu.Lock()
	w.stats.Received++
	w.statsMu.Unlock()

	if pending >= w.cfg.BatchSize {
		w.flush(w.ctx)
	}
}

// flush writes pending rows in batches of BatchSize.
func (w *NotificationWriter) flush(ctx context.Context) {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	for {
		rows := w.pending.drain(w.cfg.BatchSize)
		if len(rows) == 0 {
			return
		}

		start := time.Now()
		conflicts, err := w.batchInsert(ctx, rows)
		if err != nil {
			w.logger.Error("batch insert failed", "error", err, "count", len(rows))
			w.metrics.HistoryError()
			w.statsMu.Lock()
			w.stats.Errors++
			w.statsMu.Unlock()
			return
		}

		w.metrics.HistoryFlushed(len(rows) - conflicts)
		w.statsMu.Lock()
		w.stats.Inserts += int64(len(rows) - conflicts)
		w.stats.Conflicts += int64(conflicts)
		w.stats.Flushes++
		w.statsMu.Unlock()

		w.logger.Debug("flushed notifications",
			"count", len(rows),
			"conflicts", conflicts,
			"duration", time.Since(start),
		)
	}
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *NotificationWriter) batchInsert(ctx context.Context, rows []model.Notification) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, n := range rows {
		var serverTs *time.Time
		if !n.Timestamp.IsZero() {
			ts := n.Timestamp
			serverTs = &ts
		}
		batch.Queue(insertNotification,
			n.ID, n.Topic, n.Action, string(n.Severity), n.Title, n.Body,
			serverTs, n.CreatedAt, w.cfg.InstanceID,
		)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
