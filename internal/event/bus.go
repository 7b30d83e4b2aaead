// Package event carries in-process notifications between the scan
// session, the index coordinator, and the filesystem watcher.
package event

import (
	"log/slog"
	"sync"
	"time"
)

// Type identifies a category of event.
type Type string

// Known event types.
const (
	ScanStarted     Type = "scan.started"
	ScanCompleted   Type = "scan.completed"
	ScanCancelled   Type = "scan.cancelled"
	ScanFailed      Type = "scan.failed"
	RescanSuggested Type = "rescan.suggested"
	IndexSubmitted  Type = "index.submitted"
	IndexCompleted  Type = "index.completed"
	CacheRefreshed  Type = "cache.refreshed"
)

// Event represents something that happened in the system.
type Event struct {
	Type      Type           `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Handler is a function that processes an event.
type Handler func(Event)

// Bus is an in-process publish/subscribe bus. Publishing never blocks
// the caller; a single dispatch goroutine (Start) delivers events to
// handlers in publish order.
type Bus struct {
	queue    chan Event
	mu       sync.RWMutex
	handlers map[Type][]Handler
	logger   *slog.Logger
	quit     chan struct{}
	quitOnce sync.Once
}

// NewBus creates a bus whose queue holds up to bufSize pending events.
func NewBus(logger *slog.Logger, bufSize int) *Bus {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &Bus{
		queue:    make(chan Event, bufSize),
		handlers: make(map[Type][]Handler),
		logger:   logger,
		quit:     make(chan struct{}),
	}
}

// Subscribe registers a handler for the given event type. Handlers run
// on the dispatch goroutine and should return quickly.
func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	b.handlers[t] = append(b.handlers[t], h)
	b.mu.Unlock()
}

// Publish enqueues an event without blocking. When the queue is full
// the event is dropped and logged.
func (b *Bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	select {
	case b.queue <- e:
	default:
		b.logger.Warn("event bus full, dropping event", "type", string(e.Type))
	}
}

// Start runs the dispatch loop. It blocks until Stop is called, so
// callers run it in its own goroutine.
func (b *Bus) Start() {
	for {
		select {
		case e := <-b.queue:
			b.dispatch(e)
		case <-b.quit:
			b.drain()
			return
		}
	}
}

// Stop shuts the bus down. Events already queued are still delivered.
func (b *Bus) Stop() {
	b.quitOnce.Do(func() { close(b.quit) })
}

func (b *Bus) drain() {
	for {
		select {
		case e := <-b.queue:
			b.dispatch(e)
		default:
			return
		}
	}
}

func (b *Bus) dispatch(e Event) {
	b.mu.RLock()
	hs := b.handlers[e.Type]
	b.mu.RUnlock()

	for _, h := range hs {
		b.deliver(e, h)
	}
}

// deliver isolates handler panics so one bad subscriber cannot take
// down the dispatch loop.
func (b *Bus) deliver(e Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "type", string(e.Type), "panic", r)
		}
	}()
	h(e)
}
