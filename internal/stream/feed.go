// Package stream provides small latest-value channels used to build live queries.
package stream

import (
	"context"
	"sync"
)

// Feed holds a current value and fans it out to subscribers. Slow subscribers
// only ever see the latest value; intermediate values are dropped.
type Feed[T any] struct {
	mu    sync.Mutex
	value T
	subs  map[chan T]struct{}
}

// NewFeed creates a feed holding initial.
func NewFeed[T any](initial T) *Feed[T] {
	return &Feed[T]{value: initial, subs: make(map[chan T]struct{})}
}

// Value returns the current value.
func (f *Feed[T]) Value() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// Publish replaces the current value and notifies subscribers.
func (f *Feed[T]) Publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = v
	f.broadcast()
}

// Update applies fn to the current value atomically and publishes the result.
func (f *Feed[T]) Update(fn func(T) T) T {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = fn(f.value)
	f.broadcast()
	return f.value
}

func (f *Feed[T]) broadcast() {
	for ch := range f.subs {
		select {
		case <-ch:
		default:
		}
		ch <- f.value
	}
}

// Subscribe delivers the current value immediately, then every later value
// until ctx is done, at which point the channel is closed.
func (f *Feed[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	f.mu.Lock()
	ch <- f.value
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, ch)
		close(ch)
		f.mu.Unlock()
	}()
	return ch
}

// Map transforms each value from in. The output closes when in closes or ctx ends.
func Map[T, U any](ctx context.Context, in <-chan T, fn func(T) U) <-chan U {
	out := make(chan U)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- fn(v):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Distinct drops values equal to the previously forwarded one.
func Distinct[T comparable](ctx context.Context, in <-chan T) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		var (
			last T
			seen bool
		)
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-in:
				if !ok {
					return
				}
				if seen && v == last {
					continue
				}
				last, seen = v, true
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
