package writer

import "sync"

// QueueStats contains queue statistics.
type QueueStats struct {
	Len     int
	Cap     int
	Pushed  int64
	Drained int64
	Grows   int
}

// queue is a FIFO ring buffer that doubles its capacity once it is 70% full,
// so pushes never block or drop.
type queue[T any] struct {
	mu     sync.Mutex
	items  []T
	head   int
	count  int
	closed bool

	pushed  int64
	drained int64
	grows   int
}

func newQueue[T any](capacity int) *queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &queue[T]{items: make([]T, capacity)}
}

// push appends item and returns the pending count. Returns false once closed.
func (q *queue[T]) push(item T) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return q.count, false
	}

	threshold := max(len(q.items)*70/100, 1)
	if q.count+1 >= threshold {
		q.grow()
	}

	q.items[(q.head+q.count)%len(q.items)] = item
	q.count++
	q.pushed++
	return q.count, true
}

// drain removes up to limit items in FIFO order. limit <= 0 drains everything.
func (q *queue[T]) drain(limit int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.count
	if n == 0 {
		return nil
	}
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]T, n)
	var zero T
	for i := range out {
		out[i] = q.items[q.head]
		q.items[q.head] = zero
		q.head = (q.head + 1) % len(q.items)
	}
	q.count -= n
	q.drained += int64(n)
	return out
}

func (q *queue[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// close rejects further pushes; pending items can still be drained.
func (q *queue[T]) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

func (q *queue[T]) stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Len:     q.count,
		Cap:     len(q.items),
		Pushed:  q.pushed,
		Drained: q.drained,
		Grows:   q.grows,
	}
}

// grow doubles capacity and unwraps the ring. Must be called with lock held.
func (q *queue[T]) grow() {
	next := make([]T, len(q.items)*2)
	n := copy(next, q.items[q.head:])
	if n < q.count {
		copy(next[n:], q.items[:q.count-n])
	}
	q.items = next
	q.head = 0
	q.grows++
}
