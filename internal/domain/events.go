package domain

import (
	"sync"
	"time"
)

// EventKind classifies event-log entries.
type EventKind string

const (
	EventInfo   EventKind = "info"
	EventSignal EventKind = "signal"
	EventBuy    EventKind = "buy"
	EventSell   EventKind = "sell"
	EventWarn   EventKind = "warn"
	EventError  EventKind = "error"
)

// Event is one entry in the bounded in-memory log.
type Event struct {
	At      time.Time `json:"at"`
	Kind    EventKind `json:"kind"`
	Message string    `json:"message"`
}

// eventLogCap bounds the ring; the oldest entry is evicted beyond it.
const eventLogCap = 500

// EventLog is a fixed-capacity ring buffer of events. Single writer, any
// number of snapshot readers.
type EventLog struct {
	mu    sync.RWMutex
	buf   []Event
	start int
	size  int

	onAppend func()
}

// NewEventLog returns an empty log with the standard capacity.
func NewEventLog() *EventLog {
	return &EventLog{buf: make([]Event, eventLogCap)}
}

// Append records an event, evicting the oldest entry when full.
func (l *EventLog) Append(kind EventKind, msg string) {
	l.AppendAt(time.Now(), kind, msg)
}

// AppendAt is Append with an explicit timestamp.
func (l *EventLog) AppendAt(at time.Time, kind EventKind, msg string) {
	l.mu.Lock()
	idx := (l.start + l.size) % len(l.buf)
	l.buf[idx] = Event{At: at, Kind: kind, Message: msg}
	if l.size < len(l.buf) {
		l.size++
	} else {
		l.start = (l.start + 1) % len(l.buf)
	}
	fn := l.onAppend
	l.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// OnAppend registers fn to run after every append. Every state mutation of
// interest is also logged, so this is the publisher's mutation hook. Must be
// set before the log is shared across goroutines; fn must not block.
func (l *EventLog) OnAppend(fn func()) {
	l.onAppend = fn
}

// Len returns the number of retained events.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

// Snapshot returns the retained events oldest-first.
func (l *EventLog) Snapshot() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Event, l.size)
	for i := 0; i < l.size; i++ {
		out[i] = l.buf[(l.start+i)%len(l.buf)]
	}
	return out
}
