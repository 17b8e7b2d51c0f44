// Package cell is the minimal reactivity substrate the query pipelines run on:
// a value holder that notifies synchronously on write, and memoized derived
// values that recompute lazily after an upstream write.
//
// Hosts that already own a reactive runtime can implement Cell themselves;
// the pipelines only rely on "Get returns the current value" and "Watch
// callbacks run synchronously, before Set returns".
package cell

import "sync"

// Observable notifies watchers when its value may have changed
type Observable interface {
	Watch(fn func()) (cancel func())
}

// Readable is an observable value
type Readable[T any] interface {
	Observable
	Get() T
}

// Cell is a writable observable value
type Cell[T any] interface {
	Readable[T]
	Set(v T)
}

// watchers is a small registry of callbacks. Notification iterates over a
// snapshot so callbacks may add or cancel watches while being notified.
type watchers struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]func()
	order  []int
}

func (w *watchers) add(fn func()) func() {
	w.mu.Lock()
	if w.fns == nil {
		w.fns = make(map[int]func())
	}
	id := w.nextID
	w.nextID++
	w.fns[id] = fn
	w.order = append(w.order, id)
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			delete(w.fns, id)
			for i, o := range w.order {
				if o == id {
					w.order = append(w.order[:i], w.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (w *watchers) notify() {
	w.mu.Lock()
	snapshot := make([]func(), 0, len(w.order))
	for _, id := range w.order {
		snapshot = append(snapshot, w.fns[id])
	}
	w.mu.Unlock()

	for _, fn := range snapshot {
		fn()
	}
}

func (w *watchers) len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.order)
}

// Value is the default Cell implementation
type Value[T any] struct {
	mu       sync.RWMutex
	v        T
	version  uint64
	equal    func(a, b T) bool
	watchers watchers
}

// ValueOption configures a Value
type ValueOption[T any] func(*Value[T])

// WithEqual suppresses notifications for writes equal to the current value
func WithEqual[T any](eq func(a, b T) bool) ValueOption[T] {
	return func(v *Value[T]) {
		v.equal = eq
	}
}

// NewValue creates a cell holding initial
func NewValue[T any](initial T, opts ...ValueOption[T]) *Value[T] {
	v := &Value[T]{v: initial}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Get returns the current value
func (c *Value[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v
}

// Set stores v and synchronously notifies every watcher
func (c *Value[T]) Set(v T) {
	c.mu.Lock()
	if c.equal != nil && c.equal(c.v, v) {
		c.mu.Unlock()
		return
	}
	c.v = v
	c.version++
	c.mu.Unlock()

	c.watchers.notify()
}

// Update applies fn to the current value and stores the result
func (c *Value[T]) Update(fn func(T) T) {
	c.Set(fn(c.Get()))
}

// Version increases on every accepted write
func (c *Value[T]) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Watch registers fn to run after every accepted write
func (c *Value[T]) Watch(fn func()) func() {
	return c.watchers.add(fn)
}

// Const is a Readable that never changes
type Const[T any] struct {
	V T
}

// Get returns the constant
func (c Const[T]) Get() T { return c.V }

// Watch never fires
func (c Const[T]) Watch(func()) func() { return func() {} }

// Effect runs fn synchronously every time one of deps notifies. The returned
// function stops it.
func Effect(fn func(), deps ...Observable) (stop func()) {
	cancels := make([]func(), 0, len(deps))
	for _, d := range deps {
		cancels = append(cancels, d.Watch(fn))
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}
}
