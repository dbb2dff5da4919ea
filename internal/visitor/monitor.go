package visitor

import (
	"context"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bamsammich/ferry/internal/event"
	"github.com/bamsammich/ferry/internal/fileservice"
)

// Handler receives monitor events.
type Handler func(event.Event)

// Dispatcher decides where handlers run. The default invokes them
// synchronously on the walking goroutine.
type Dispatcher interface {
	Invoke(fn func())
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(fn func())

func (f DispatcherFunc) Invoke(fn func()) { f(fn) }

type direct struct{}

func (direct) Invoke(fn func()) { fn() }

// Monitor turns visitor callbacks into events, offers a completion wait and
// carries the cancellation flag. Visitors embed it; the zero value is ready
// to use.
//
// One Monitor tracks at most one in-flight item: visitors never open a
// second file before closing the first.
type Monitor struct {
	mu         sync.Mutex
	handlers   []Handler
	dispatcher Dispatcher
	done       chan struct{}
	doneClosed bool
	closed     bool

	// in-flight item
	source       fileservice.Descriptor
	destination  string
	relativeName string
	operation    event.Operation
	lastProgress int // -1 when idle
	itemActive   bool
	itemFailed   bool

	cancelled atomic.Bool
	failures  atomic.Int64
}

// Subscribe registers h for all future events.
func (m *Monitor) Subscribe(h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, h)
}

// SetDispatcher routes handler invocation through d. nil restores direct
// invocation.
func (m *Monitor) SetDispatcher(d Dispatcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatcher = d
}

// Cancel asks the walk to stop at its next checkpoint. Safe from any
// goroutine. The flag is sticky across Reset.
func (m *Monitor) Cancel() { m.cancelled.Store(true) }

// IsCancelled implements Visitor.
func (m *Monitor) IsCancelled() bool { return m.cancelled.Load() }

// Failures reports how many Failed events fired since the last Reset.
func (m *Monitor) Failures() int64 { return m.failures.Load() }

// Failure implements Visitor by firing a Failed event.
func (m *Monitor) Failure(d fileservice.Descriptor, err error, message string) {
	m.NotifyFailed(d, err, message)
}

// Reset starts a new cycle: progress state is cleared, the wait primitive
// is re-armed if the previous cycle completed, and Started fires.
func (m *Monitor) Reset(root fileservice.Descriptor) {
	m.mu.Lock()
	m.clearItem()
	if m.done == nil || m.doneClosed {
		m.done = make(chan struct{})
		m.doneClosed = false
	}
	m.mu.Unlock()
	m.failures.Store(0)

	m.emit(event.Event{Type: event.Started, Source: root})
}

// NotifyProgressNew begins tracking an item at 0%.
func (m *Monitor) NotifyProgressNew(
	source fileservice.Descriptor, destination, relativeName string, op event.Operation,
) {
	m.mu.Lock()
	m.source = source
	m.destination = destination
	m.relativeName = relativeName
	m.operation = op
	m.lastProgress = 0
	m.itemActive = true
	m.itemFailed = false
	e := m.progressEvent(0, 0)
	m.mu.Unlock()

	m.emit(e)
}

// NotifyProgressChanged fires ProgressChanged when the whole-number
// percentage moved since the last report.
func (m *Monitor) NotifyProgressChanged(source fileservice.Descriptor, transferred uint64) {
	m.mu.Lock()
	if !m.itemActive || source.Path != m.source.Path {
		m.mu.Unlock()
		return
	}
	pct := Percent(transferred, m.source.Size)
	if pct <= m.lastProgress {
		m.mu.Unlock()
		return
	}
	m.lastProgress = pct
	e := m.progressEvent(transferred, pct)
	m.mu.Unlock()

	m.emit(e)
}

// NotifyProgressDone forces a final 100% report unless one was already
// sent, then clears the item. A failed item still gets it; its Failed event
// marks it.
func (m *Monitor) NotifyProgressDone(source fileservice.Descriptor, transferred uint64) {
	m.mu.Lock()
	if !m.itemActive || source.Path != m.source.Path {
		m.mu.Unlock()
		return
	}
	var (
		e    event.Event
		send bool
	)
	if m.lastProgress != 100 {
		e = m.progressEvent(transferred, 100)
		send = true
	}
	m.clearItem()
	m.mu.Unlock()

	if send {
		m.emit(e)
	}
}

// ItemFailed reports whether a failure was recorded for the in-flight item.
func (m *Monitor) ItemFailed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.itemActive && m.itemFailed
}

// NotifyFailed fires a Failed event. The monitor keeps running.
func (m *Monitor) NotifyFailed(d fileservice.Descriptor, err error, message string) {
	m.failures.Add(1)
	m.mu.Lock()
	op := event.Unknown
	if m.itemActive && d.Path == m.source.Path {
		m.itemFailed = true
		op = m.operation
	}
	m.mu.Unlock()

	m.emit(event.Event{Type: event.Failed, Source: d, Error: err, Message: message, Operation: op})
}

// NotifyCompleted fires Completed and releases Wait for this cycle.
func (m *Monitor) NotifyCompleted() {
	m.emit(event.Event{Type: event.Completed})

	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearItem()
	m.closeDone()
}

// Wait blocks until the current cycle completes. Calling it before the walk
// starts or after it finished is safe.
func (m *Monitor) Wait() {
	<-m.doneChan()
}

// WaitContext is Wait bounded by ctx.
func (m *Monitor) WaitContext(ctx context.Context) error {
	select {
	case <-m.doneChan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases waiters and drops all handlers. Later events are discarded.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.handlers = nil
	if m.done == nil {
		m.done = make(chan struct{})
	}
	m.closeDone()
}

func (m *Monitor) doneChan() chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done == nil {
		m.done = make(chan struct{})
	}
	return m.done
}

// closeDone must be called with mu held.
func (m *Monitor) closeDone() {
	if m.done != nil && !m.doneClosed {
		close(m.done)
		m.doneClosed = true
	}
}

// clearItem must be called with mu held.
func (m *Monitor) clearItem() {
	m.source = fileservice.Descriptor{}
	m.destination = ""
	m.relativeName = ""
	m.operation = event.Unknown
	m.lastProgress = -1
	m.itemActive = false
	m.itemFailed = false
}

// progressEvent must be called with mu held.
func (m *Monitor) progressEvent(transferred uint64, pct int) event.Event {
	return event.Event{
		Type:         event.ProgressChanged,
		Source:       m.source,
		Destination:  m.destination,
		RelativeName: m.relativeName,
		Transferred:  transferred,
		Percent:      pct,
		Operation:    m.operation,
	}
}

func (m *Monitor) emit(e event.Event) {
	m.mu.Lock()
	if m.closed || len(m.handlers) == 0 {
		m.mu.Unlock()
		return
	}
	handlers := slices.Clone(m.handlers)
	var d Dispatcher = direct{}
	if m.dispatcher != nil {
		d = m.dispatcher
	}
	m.mu.Unlock()

	e.Timestamp = time.Now()
	d.Invoke(func() {
		for _, h := range handlers {
			h(e)
		}
	})
}

// Percent returns floor(transferred*100/size), or 100 once transferred
// reaches size.
func Percent(transferred, size uint64) int {
	if transferred >= size {
		return 100
	}
	if size > math.MaxUint64/100 {
		return int(transferred / (size / 100))
	}
	return int(transferred * 100 / size)
}
