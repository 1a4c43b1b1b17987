// Package writer persists in-app notifications to notification_history.
//
// NotificationWriter subscribes to the in-app notification topic, queues each
// decoded notification and flushes the queue to PostgreSQL in batches, either
// when BatchSize rows are pending or every FlushInterval. Inserts use
// ON CONFLICT (id) DO NOTHING so a redelivered notification is stored once.
package writer
