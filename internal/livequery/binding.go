package livequery

import (
	"context"
	"sync"

	"github.com/inkwell/tagstore/internal/store"
)

// Binding is a live query whose parameters can change. Calling Set swaps the
// underlying subscription; snapshots computed for a previous key are never
// delivered once Set has returned.
type Binding[K comparable, T any] struct {
	hub    *Hub
	tables []store.Table
	build  func(K) Query[T]

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	gen     uint64
	key     K
	hasKey  bool
	sub     *Subscription[T]
	current Snapshot[T]

	updates chan Snapshot[T]
	wg      sync.WaitGroup
	closed  bool
}

// Bind creates a binding with no key. Nothing runs until the first Set.
func Bind[K comparable, T any](ctx context.Context, hub *Hub, tables []store.Table, build func(K) Query[T]) *Binding[K, T] {
	ctx, cancel := context.WithCancel(ctx)
	return &Binding[K, T]{
		hub:     hub,
		tables:  tables,
		build:   build,
		ctx:     ctx,
		cancel:  cancel,
		updates: make(chan Snapshot[T], 1),
	}
}

// Set switches the binding to key. Setting the current key again is a no-op.
// The snapshot resets to Loading until the new query completes.
func (b *Binding[K, T]) Set(key K) {
	b.mu.Lock()
	if b.closed || (b.hasKey && b.key == key) {
		b.mu.Unlock()
		return
	}
	old := b.sub
	b.gen++
	gen := b.gen
	b.key = key
	b.hasKey = true
	b.current = Snapshot[T]{}
	select {
	case <-b.updates:
	default:
	}
	sub := Watch(b.ctx, b.hub, b.tables, b.build(key))
	b.sub = sub
	b.wg.Add(1)
	b.mu.Unlock()

	if old != nil {
		old.Close()
	}
	go b.forward(gen, sub)
}

func (b *Binding[K, T]) forward(gen uint64, sub *Subscription[T]) {
	defer b.wg.Done()
	for snap := range sub.Updates() {
		// deliver never blocks, so it runs under mu to keep the generation
		// check and the send atomic with respect to Set.
		b.mu.Lock()
		if gen == b.gen {
			b.current = snap
			b.deliver(snap)
		}
		b.mu.Unlock()
	}
}

func (b *Binding[K, T]) deliver(snap Snapshot[T]) {
	select {
	case b.updates <- snap:
		return
	default:
	}
	select {
	case <-b.updates:
	default:
	}
	select {
	case b.updates <- snap:
	default:
	}
}

// Key returns the current key and whether one has been set.
func (b *Binding[K, T]) Key() (K, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.key, b.hasKey
}

// Current returns the latest snapshot for the current key.
func (b *Binding[K, T]) Current() Snapshot[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Updates delivers snapshots for whichever key is current. It is closed by Close.
func (b *Binding[K, T]) Updates() <-chan Snapshot[T] {
	return b.updates
}

// Close stops the current subscription and closes Updates.
func (b *Binding[K, T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.gen++
	sub := b.sub
	b.mu.Unlock()

	b.cancel()
	if sub != nil {
		sub.Close()
	}
	b.wg.Wait()
	close(b.updates)
}
