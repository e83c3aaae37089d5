// Package livequery re-runs queries whenever the tables they read from change.
//
// A Hub receives store.ChangeEvents (it implements store.EventEmitter) and
// wakes every subscription whose table set the event touches. Each
// subscription owns one goroutine that runs its query serially, so results
// are delivered in the order they were computed.
package livequery

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/inkwell/tagstore/internal/store"
)

type subscriber struct {
	tables []store.Table
	wake   func()
	cancel context.CancelFunc
}

// Hub fans change events out to live query subscriptions.
type Hub struct {
	logger *slog.Logger

	mu     sync.RWMutex
	subs   map[uint64]*subscriber
	nextID uint64

	// Shutdown state - protected by mu
	shutdown bool

	// Per-subscription re-run limit; zero means unlimited.
	refreshRate  rate.Limit
	refreshBurst int
}

var _ store.EventEmitter = (*Hub)(nil)

// Option configures a Hub.
type Option func(*Hub)

// WithRefreshLimit caps how often any single subscription may re-run.
// perSecond <= 0 disables the limit.
func WithRefreshLimit(perSecond float64, burst int) Option {
	return func(h *Hub) {
		if perSecond <= 0 {
			h.refreshRate = 0
			return
		}
		h.refreshRate = rate.Limit(perSecond)
		h.refreshBurst = max(burst, 1)
	}
}

// NewHub creates a hub. A nil logger discards output.
func NewHub(logger *slog.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &Hub{
		logger: logger,
		subs:   make(map[uint64]*subscriber),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Emit implements store.EventEmitter. Events other than store.ChangeEvent are ignored.
func (h *Hub) Emit(event any) {
	switch e := event.(type) {
	case store.ChangeEvent:
		h.Publish(e)
	case *store.ChangeEvent:
		if e != nil {
			h.Publish(*e)
		}
	}
}

// Publish wakes every subscription reading from a table the event touches.
// It never blocks: a subscription that is already due to re-run absorbs the wake-up.
func (h *Hub) Publish(event store.ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.shutdown {
		return
	}

	woken := 0
	for _, sub := range h.subs {
		if event.Touches(sub.tables) {
			sub.wake()
			woken++
		}
	}
	h.logger.Debug("change published",
		slog.Any("tables", event.Tables),
		slog.String("op", string(event.Op)),
		slog.Int("woken", woken))
}

// register adds a subscriber and returns its unregister func. It reports
// false if the hub has shut down.
func (h *Hub) register(sub *subscriber) (func(), bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.shutdown {
		return func() {}, false
	}

	h.nextID++
	id := h.nextID
	h.subs[id] = sub

	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}, true
}

func (h *Hub) newLimiter() *rate.Limiter {
	if h.refreshRate == 0 {
		return nil
	}
	return rate.NewLimiter(h.refreshRate, h.refreshBurst)
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Shutdown stops every subscription and rejects new ones.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	h.shutdown = true
	subs := h.subs
	h.subs = make(map[uint64]*subscriber)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
	}
	h.logger.Info("live query hub shut down", slog.Int("subscriptions", len(subs)))
	return nil
}
