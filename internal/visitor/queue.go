package visitor

import "sync"

// Queue is a Dispatcher that runs handlers in order on whichever goroutine
// calls Run, so a presenter can own its own state without locking.
type Queue struct {
	ch        chan func()
	closeOnce sync.Once
}

// NewQueue returns a Queue buffering up to size pending callbacks. Invoke
// blocks while the buffer is full.
func NewQueue(size int) *Queue {
	return &Queue{ch: make(chan func(), size)}
}

// Invoke implements Dispatcher. It must not be called after Close.
func (q *Queue) Invoke(fn func()) { q.ch <- fn }

// Close stops accepting callbacks; Run drains what is queued and returns.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.ch) })
}

// Run executes queued callbacks until Close has been called and the queue
// is drained. It keeps draining after the walk is cancelled so Invoke never
// blocks forever.
func (q *Queue) Run() error {
	for fn := range q.ch {
		fn()
	}
	return nil
}
