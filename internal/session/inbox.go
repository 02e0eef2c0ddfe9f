package session

import "sync"

// inbox is the unbounded, serialized message queue of the event loop.
// Posting never blocks, so observers running on the loop can post safely.
type inbox struct {
	mu     sync.Mutex
	queue  []message
	closed bool
	ready  chan struct{}
}

func newInbox() *inbox {
	return &inbox{ready: make(chan struct{}, 1)}
}

// post appends a message. It returns false once the inbox is closed.
func (q *inbox) post(m message) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.queue = append(q.queue, m)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return true
}

// drain removes and returns every queued message in arrival order.
func (q *inbox) drain() []message {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.queue
	q.queue = nil
	return out
}

func (q *inbox) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.queue = nil
}

func (q *inbox) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
