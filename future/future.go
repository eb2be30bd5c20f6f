// Package future provides a started-once asynchronous result.
//
// A Future is created already running: Go launches the operation on its own
// goroutine and every caller that asks for the result observes the same value
// and error. Waiting with Get honours the caller's context, but the operation
// itself runs detached from cancellation so that a fetch, once started, runs
// to completion or failure.
package future

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Waiter is anything that can be waited on without caring about its value.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Future is the eventual result of an asynchronous operation.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Go starts fn on a new goroutine and returns its future.
// The context passed to fn keeps the values of ctx but is never cancelled.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	detached := context.WithoutCancel(ctx)

	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				var zero T
				f.value = zero
				f.err = fmt.Errorf("future: operation panicked: %v", r)
			}
		}()
		f.value, f.err = fn(detached)
	}()

	return f
}

// Resolved returns a future that is already complete.
func Resolved[T any](value T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), value: value, err: err}
	close(f.done)
	return f
}

// Failed returns a completed future holding err.
func Failed[T any](err error) *Future[T] {
	var zero T
	return Resolved(zero, err)
}

// Then chains fn after f. fn only runs when f succeeds.
func Then[T, U any](ctx context.Context, f *Future[T], fn func(ctx context.Context, value T) (U, error)) *Future[U] {
	return Go(ctx, func(ctx context.Context) (U, error) {
		value, err := f.Result()
		if err != nil {
			var zero U
			return zero, err
		}
		return fn(ctx, value)
	})
}

// Done is closed once the operation has finished.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Ready reports whether the operation has finished.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result blocks until the operation finishes.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.value, f.err
}

// Get blocks until the operation finishes or ctx is done. Giving up on ctx
// does not stop the operation.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Wait implements Waiter.
func (f *Future[T]) Wait(ctx context.Context) error {
	_, err := f.Get(ctx)
	return err
}

// WaitAll waits for every waiter and returns the first error seen.
func WaitAll(ctx context.Context, waiters ...Waiter) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range waiters {
		w := w
		if w == nil {
			continue
		}
		g.Go(func() error {
			return w.Wait(gctx)
		})
	}
	return g.Wait()
}
