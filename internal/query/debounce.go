package query

import (
	"sync"
	"time"

	"github.com/standardbeagle/treeq/internal/clock"
	"github.com/standardbeagle/treeq/internal/debug"
	"github.com/standardbeagle/treeq/internal/types"
)

// Debouncer rate-shapes query input. A non-empty value is committed once
// input has been quiet for the debounce interval, or at the latest when the
// throttle interval has passed since the first uncommitted value. An empty
// value cancels anything pending and commits immediately.
type Debouncer struct {
	mu       sync.Mutex
	clock    clock.Clock
	debounce time.Duration
	throttle time.Duration
	dispatch func(func())
	commit   func(string)

	pending    string
	hasPending bool
	// seq invalidates timers that fire after being superseded
	seq           uint64
	debounceTimer clock.Timer
	throttleTimer clock.Timer
	closed        bool
}

// DebounceOptions configures a Debouncer. Zero fields take defaults.
type DebounceOptions struct {
	Clock    clock.Clock
	Debounce time.Duration
	Throttle time.Duration
	// Dispatch runs timer-driven commits, e.g. on the owning event loop.
	// Nil runs them on the timer goroutine.
	Dispatch func(func())
}

// NewDebouncer creates a debouncer delivering values to commit
func NewDebouncer(commit func(string), opts DebounceOptions) *Debouncer {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = types.DefaultSearchDebounceMs * time.Millisecond
	}
	if opts.Throttle <= 0 {
		opts.Throttle = types.DefaultSearchThrottleMs * time.Millisecond
	}
	if opts.Dispatch == nil {
		opts.Dispatch = func(fn func()) { fn() }
	}
	return &Debouncer{
		clock:    opts.Clock,
		debounce: opts.Debounce,
		throttle: opts.Throttle,
		dispatch: opts.Dispatch,
		commit:   commit,
	}
}

// Push offers a new value
func (d *Debouncer) Push(q string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}

	if q == "" {
		d.cancelLocked()
		d.mu.Unlock()
		debug.LogPipeline("query cleared, committing immediately\n")
		d.commit("")
		return
	}

	d.pending = q
	d.hasPending = true
	seq := d.seq

	if d.debounceTimer != nil {
		d.debounceTimer.Stop()
	}
	d.debounceTimer = d.clock.AfterFunc(d.debounce, func() { d.flush(seq) })
	if d.throttleTimer == nil {
		d.throttleTimer = d.clock.AfterFunc(d.throttle, func() { d.flush(seq) })
	}
	d.mu.Unlock()
}

func (d *Debouncer) flush(seq uint64) {
	d.mu.Lock()
	if d.closed || !d.hasPending || seq != d.seq {
		d.mu.Unlock()
		return
	}
	q := d.pending
	d.cancelLocked()
	d.mu.Unlock()

	debug.LogPipeline("committing query %q\n", q)
	d.dispatch(func() { d.commit(q) })
}

// Flush commits the pending value now, on the caller's goroutine
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.closed || !d.hasPending {
		d.mu.Unlock()
		return
	}
	q := d.pending
	d.cancelLocked()
	d.mu.Unlock()

	debug.LogPipeline("flushing query %q\n", q)
	d.commit(q)
}

// cancelLocked drops the pending value and both timers
func (d *Debouncer) cancelLocked() {
	d.seq++
	d.pending = ""
	d.hasPending = false
	if d.debounceTimer != nil {
		d.debounceTimer.Stop()
		d.debounceTimer = nil
	}
	if d.throttleTimer != nil {
		d.throttleTimer.Stop()
		d.throttleTimer = nil
	}
}

// Pending reports whether a value is waiting to be committed
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hasPending
}

// Close cancels pending timers; later pushes are ignored
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.closed = true
}
