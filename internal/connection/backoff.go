package connection

import (
	"math"
	"time"
)

// Backoff computes exponential reconnect delays.
type Backoff struct {
	Base time.Duration
	Max  time.Duration // 0 = uncapped
}

// Delay returns the wait before the next attempt after the given number of
// consecutive failures: Base doubled (attempt-1) times, capped at Max.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := b.Base
	for i := 1; i < attempt; i++ {
		if b.Max > 0 && d >= b.Max/2 {
			return b.Max
		}
		if d > math.MaxInt64/2 {
			return d
		}
		d *= 2
	}

	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}
