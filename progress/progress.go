// Package progress defines the single observable progress channel
// consumed by every other component. Reporters are non-blocking: a slow
// subscriber may miss intermediate updates but never the terminal Done
// event.
package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Event is one progress update. Completed/Total are monotonic within a
// single job's lifetime.
type Event struct {
	Job       string
	Status    string
	Completed int
	Total     int
	Done      bool
}

// String renders a human-readable progress line, e.g. "Resources: 128/512
// (downloading)". Intended for CLI/log consumers of Reporter.
func (e Event) String() string {
	if e.Total == 0 {
		return fmt.Sprintf("%s: %s", e.Job, e.Status)
	}
	return fmt.Sprintf("%s: %s/%s (%s)", e.Job, humanize.Comma(int64(e.Completed)), humanize.Comma(int64(e.Total)), e.Status)
}

// Reporter receives progress events. Implementations must not block the
// caller; Report is expected to return quickly (e.g. buffered channel send
// with a default case, or a non-blocking broadcast).
type Reporter interface {
	Report(Event)
}

// Nop is a Reporter that discards every event.
type Nop struct{}

// Report implements Reporter.
func (Nop) Report(Event) {}

// Debouncer wraps a Reporter and drops intermediate events faster than
// the configured rate, while always letting the terminal Done event
// through. It is safe for concurrent use by multiple download workers.
type Debouncer struct {
	mu       sync.Mutex
	next     Reporter
	interval time.Duration
	last     time.Time
}

// NewDebouncer wraps next, emitting at most one event per interval (plus
// every Done event) to it.
func NewDebouncer(next Reporter, interval time.Duration) *Debouncer {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Debouncer{next: next, interval: interval}
}

// Report implements Reporter.
func (d *Debouncer) Report(e Event) {
	if d.next == nil {
		return
	}

	d.mu.Lock()
	now := time.Now()
	emit := e.Done || now.Sub(d.last) >= d.interval
	if emit {
		d.last = now
	}
	d.mu.Unlock()

	if emit {
		d.next.Report(e)
	}
}
