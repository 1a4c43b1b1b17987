// Package metrics provides OpenTelemetry metrics for monitoring.
//
// Key metrics:
//   - Connection state transitions, dial attempts and give-ups
//   - Inbound message rates, malformed frames and unrouted topics
//   - Deduplication accepts and rejects per topic
//   - Notifications emitted and side-effect failures
//   - Notification history flushes
package metrics
