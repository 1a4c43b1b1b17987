package dedup

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_Accept(t *testing.T) {
	const t1, t2 = int64(1_700_000_000_000), int64(1_700_000_000_001)

	tests := []struct {
		name     string
		sequence []int64
		want     []bool
	}{
		{"in order", []int64{t1, t2}, []bool{true, true}},
		{"reversed", []int64{t2, t1}, []bool{true, false}},
		{"duplicate", []int64{t1, t1}, []bool{true, false}},
		{"regression then advance", []int64{t2, t1, t2 + 1}, []bool{true, false, true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker()
			var got []bool
			for _, ts := range tt.sequence {
				got = append(got, tr.Accept("alert_update", ts))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTracker_TopicsAreIndependent(t *testing.T) {
	tr := NewTracker()

	assert.True(t, tr.Accept("client_update", 100))
	assert.True(t, tr.Accept("alert_update", 50))
	assert.False(t, tr.Accept("client_update", 50))

	last, ok := tr.LastSeen("client_update")
	assert.True(t, ok)
	assert.Equal(t, int64(100), last)

	_, ok = tr.LastSeen("report_update")
	assert.False(t, ok)
}

func TestTracker_AcceptsZeroAndNegativeFirst(t *testing.T) {
	tr := NewTracker()
	assert.True(t, tr.Accept("system_event", -5), "absent topic behaves as minus infinity")
	assert.True(t, tr.Accept("system_event", 0))
}

func TestTracker_ConcurrentSameTimestamp(t *testing.T) {
	tr := NewTracker()

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tr.Accept("transaction_update", 42) {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
}
