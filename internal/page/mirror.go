package page

import (
	"context"
	"sync"

	"github.com/charlesng35/dgnotes/internal/cache"
)

// Source pushes snapshots of live data until the returned function is called.
type Source[T any] interface {
	Subscribe(ctx context.Context, fn func(T)) (func(), error)
}

// Mirror shadows live subscriptions into the persistent cache so the next
// session can paint before the first snapshot arrives.
type Mirror struct {
	persistent *cache.Persistent
}

// NewMirror builds a mirror over the persistent cache.
func NewMirror(persistent *cache.Persistent) *Mirror {
	return &Mirror{persistent: persistent}
}

// Watch paints the cached value under key, if any, then forwards every
// snapshot from source to onData and writes it through to the cache.
func Watch[T any](ctx context.Context, m *Mirror, key string, source Source[T], onData func(T)) (func(), error) {
	var cached T
	if m.persistent.Get(ctx, key, &cached) {
		onData(cached)
	}

	return source.Subscribe(ctx, func(snapshot T) {
		onData(snapshot)
		m.persistent.Set(ctx, key, snapshot)
	})
}

// Feed is an in-process Source that fans published values out to subscribers.
type Feed[T any] struct {
	mu     sync.Mutex
	subs   map[int]func(T)
	nextID int
}

// NewFeed creates an empty feed.
func NewFeed[T any]() *Feed[T] {
	return &Feed[T]{subs: make(map[int]func(T))}
}

func (f *Feed[T]) Subscribe(_ context.Context, fn func(T)) (func(), error) {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = fn
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}, nil
}

// Publish delivers value to every subscriber in turn.
func (f *Feed[T]) Publish(value T) {
	f.mu.Lock()
	subs := make([]func(T), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()

	for _, fn := range subs {
		fn(value)
	}
}
