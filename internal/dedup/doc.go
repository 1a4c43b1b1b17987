// Package dedup suppresses stale and duplicate updates.
//
// A Tracker remembers, per topic, the server timestamp of the most recently
// accepted message. A message is accepted only if its timestamp is strictly
// later than that value, so redeliveries after a reconnect and out-of-order
// arrivals never notify twice. Timestamps are compared at millisecond
// precision.
package dedup
