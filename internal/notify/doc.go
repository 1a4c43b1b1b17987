// Package notify turns accepted real-time updates into user-facing
// notifications.
//
// A Notifier subscribes to the well-known topics on a Registry. For each
// message it:
//
//  1. parses the server timestamp (unparseable timestamps are dropped)
//  2. asks the dedup Tracker whether the timestamp advances the topic
//  3. maps the envelope to severity, title and body (Map never fails)
//  4. runs the enabled side effects on a Sink: in-app, sound, desktop
//
// Side effects are independent and best-effort. Each runs with its own
// timeout and panic recovery, so one failing never blocks the others.
package notify
