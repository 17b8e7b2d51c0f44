// Package source adapts asynchronous record suppliers (one-shot loaders,
// streams, watched files) to pipeline input cells.
//
// Suppliers fail soft: an error is logged and replaced by an empty
// collection, never propagated to the pipeline.
package source

import (
	"context"
	"errors"
	"sync"

	"github.com/standardbeagle/treeq/internal/cell"
	"github.com/standardbeagle/treeq/internal/debug"
	treeqerrors "github.com/standardbeagle/treeq/internal/errors"
)

// Emit receives each snapshot a source produces
type Emit[T any] func(records []T, err error)

// Source produces snapshots until it is exhausted or ctx is cancelled
type Source[T any] interface {
	Name() string
	Run(ctx context.Context, emit Emit[T]) error
}

type funcSource[T any] struct {
	name string
	load func(ctx context.Context) ([]T, error)
}

// FromFunc wraps a one-shot loader
func FromFunc[T any](name string, load func(ctx context.Context) ([]T, error)) Source[T] {
	return &funcSource[T]{name: name, load: load}
}

func (s *funcSource[T]) Name() string { return s.name }

func (s *funcSource[T]) Run(ctx context.Context, emit Emit[T]) error {
	records, err := s.load(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	emit(records, err)
	return nil
}

// Snapshot is one stream element
type Snapshot[T any] struct {
	Records []T
	Err     error
}

type channelSource[T any] struct {
	name string
	ch   <-chan Snapshot[T]
}

// FromChannel wraps a stream of snapshots. The source ends when ch closes.
func FromChannel[T any](name string, ch <-chan Snapshot[T]) Source[T] {
	return &channelSource[T]{name: name, ch: ch}
}

func (s *channelSource[T]) Name() string { return s.name }

func (s *channelSource[T]) Run(ctx context.Context, emit Emit[T]) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-s.ch:
			if !ok {
				return nil
			}
			emit(snap.Records, snap.Err)
		}
	}
}

// Binding is a running subscription created by Bind
type Binding struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Stop cancels the source and waits for it to return
func (b *Binding) Stop() {
	b.once.Do(func() {
		b.cancel()
		<-b.done
	})
}

// Done is closed once the source has returned
func (b *Binding) Done() <-chan struct{} { return b.done }

// Bind subscribes once to src and writes every snapshot into target through
// dispatch (nil writes from the source goroutine). Errors are logged and
// written as an empty collection.
func Bind[T any](ctx context.Context, src Source[T], target cell.Cell[[]T], dispatch func(func())) *Binding {
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}
	ctx, cancel := context.WithCancel(ctx)
	b := &Binding{cancel: cancel, done: make(chan struct{})}

	write := func(records []T) {
		dispatch(func() { target.Set(records) })
	}

	go func() {
		defer close(b.done)
		err := src.Run(ctx, func(records []T, err error) {
			if err != nil {
				debug.Warn("%v\n", treeqerrors.NewSourceError(src.Name(), err))
				write([]T{})
				return
			}
			debug.LogSource("%s emitted %d records\n", src.Name(), len(records))
			write(records)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			debug.Warn("%v\n", treeqerrors.NewSourceError(src.Name(), err))
			write([]T{})
		}
	}()
	return b
}
