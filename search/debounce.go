package search

import (
	"sync"
	"time"

	"github.com/itsneelabh/storesync/core"
	"github.com/itsneelabh/storesync/telemetry"
)

// DefaultWindow is the quiet period before a query runs.
const DefaultWindow = 300 * time.Millisecond

// Result is a delivered search answer.
type Result[T Searchable] struct {
	Seq   uint64
	Query string
	Items []T
}

type pending[T Searchable] struct {
	seq   uint64
	items []T
	query string
}

// Debouncer runs Filter after the query has been stable for the window and
// delivers only the newest answer. A result whose query was replaced while
// it was being computed is discarded.
type Debouncer[T Searchable] struct {
	mu      sync.Mutex
	window  time.Duration
	deliver func(Result[T])
	logger  core.Logger

	seq     uint64
	next    *pending[T]
	timer   *time.Timer
	stopped bool
}

// NewDebouncer creates a debouncer that calls deliver with each surviving
// result. deliver runs on a timer goroutine.
func NewDebouncer[T Searchable](window time.Duration, deliver func(Result[T])) *Debouncer[T] {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer[T]{
		window:  window,
		deliver: deliver,
		logger:  &core.NoOpLogger{},
	}
}

// SetLogger configures the logger
func (d *Debouncer[T]) SetLogger(logger core.Logger) {
	if logger != nil {
		d.logger = core.WithComponent(logger, "search")
	}
}

// Submit schedules query against items and returns its sequence number.
// Any earlier query still waiting is replaced.
func (d *Debouncer[T]) Submit(items []T, query string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	if d.stopped {
		return d.seq
	}
	seq := d.seq
	d.next = &pending[T]{seq: seq, items: items, query: query}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, func() { d.fire(seq) })
	return seq
}

// Flush runs the waiting query now, if any.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if d.next == nil || d.stopped {
		d.mu.Unlock()
		return
	}
	seq := d.next.seq
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
	d.fire(seq)
}

// Stop cancels the waiting query. Later submissions are ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.next = nil
	if d.timer != nil {
		d.timer.Stop()
	}
}

// Latest returns the newest sequence number handed out.
func (d *Debouncer[T]) Latest() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seq
}

func (d *Debouncer[T]) fire(seq uint64) {
	d.mu.Lock()
	p := d.next
	if p == nil || p.seq != seq || d.stopped {
		d.mu.Unlock()
		return
	}
	d.next = nil
	d.mu.Unlock()

	start := time.Now()
	items := Filter(p.items, p.query)
	telemetry.Counter(telemetry.MetricSearchRuns)

	d.mu.Lock()
	stale := d.seq != seq || d.stopped
	d.mu.Unlock()
	if stale {
		telemetry.Counter(telemetry.MetricSearchDiscarded)
		d.logger.Debug("Discarding stale search result", map[string]interface{}{
			"operation": "search_discard",
			"seq":       seq,
			"query":     p.query,
		})
		return
	}

	d.logger.Debug("Search completed", map[string]interface{}{
		"operation":   "search_run",
		"seq":         seq,
		"query":       p.query,
		"matches":     len(items),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if d.deliver != nil {
		d.deliver(Result[T]{Seq: seq, Query: p.query, Items: items})
	}
}
