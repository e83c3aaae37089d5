package livequery

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/inkwell/tagstore/internal/store"
)

// State is the lifecycle position of a snapshot.
type State int

// Snapshot states.
const (
	// Loading means the query has not completed yet.
	Loading State = iota
	// Ready means Value holds the latest successful result.
	Ready
	// Failed means the latest run returned Err. Value keeps the last good result, if any.
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is one observed result of a live query.
type Snapshot[T any] struct {
	State State `json:"state"`
	Value T     `json:"value"`
	Err   error `json:"-"`
	// Seq counts completed runs, starting at 1.
	Seq uint64 `json:"seq"`
}

// Query computes a live value. It should honour ctx cancellation.
type Query[T any] func(ctx context.Context) (T, error)

// Subscription re-runs a query whenever one of its tables changes.
type Subscription[T any] struct {
	query   Query[T]
	logger  *slog.Logger
	limiter *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc

	wake    chan struct{}
	updates chan Snapshot[T]
	done    chan struct{}

	mu      sync.RWMutex
	current Snapshot[T]

	closeOnce sync.Once
}

// Watch starts a live query. The query runs at once and again after every
// change to one of tables. Wake-ups that arrive while a run is in flight
// collapse into a single re-run.
//
// The subscription ends when ctx is cancelled, Close is called, or the hub shuts down.
func Watch[T any](ctx context.Context, hub *Hub, tables []store.Table, query Query[T]) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription[T]{
		query:   query,
		logger:  hub.logger,
		limiter: hub.newLimiter(),
		ctx:     ctx,
		cancel:  cancel,
		wake:    make(chan struct{}, 1),
		updates: make(chan Snapshot[T], 1),
		done:    make(chan struct{}),
	}

	// Register before the first run so a write racing with it still triggers a re-run.
	unregister, ok := hub.register(&subscriber{
		tables: tables,
		wake:   s.signal,
		cancel: cancel,
	})
	if !ok {
		cancel()
	}

	go s.run(unregister)
	return s
}

func (s *Subscription[T]) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription[T]) run(unregister func()) {
	defer close(s.done)
	defer close(s.updates)
	defer unregister()

	for {
		if s.ctx.Err() != nil {
			return
		}
		s.execute()

		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
		}

		if s.limiter != nil {
			if err := s.limiter.Wait(s.ctx); err != nil {
				return
			}
		}
	}
}

func (s *Subscription[T]) execute() {
	value, err := s.query(s.ctx)
	if s.ctx.Err() != nil {
		// Torn down mid-run; the result has no audience.
		return
	}

	s.mu.Lock()
	next := s.current
	next.Seq++
	if err != nil {
		next.State = Failed
		next.Err = err
	} else {
		next.State = Ready
		next.Value = value
		next.Err = nil
	}
	s.current = next
	s.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("live query failed", slog.Uint64("seq", next.Seq), slog.String("error", err.Error()))
	}
	s.deliver(next)
}

// deliver publishes with latest-wins semantics: a reader that falls behind
// sees only the newest snapshot.
func (s *Subscription[T]) deliver(snap Snapshot[T]) {
	select {
	case s.updates <- snap:
		return
	default:
	}
	select {
	case <-s.updates:
		s.logger.Debug("live query update superseded", slog.Uint64("seq", snap.Seq))
	default:
	}
	select {
	case s.updates <- snap:
	default:
	}
}

// Current returns the latest snapshot without blocking.
func (s *Subscription[T]) Current() Snapshot[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Updates delivers snapshots as they are computed. The channel is closed
// when the subscription ends.
func (s *Subscription[T]) Updates() <-chan Snapshot[T] {
	return s.updates
}

// Done is closed once the subscription's goroutine has exited.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Refresh schedules a re-run as if a watched table had changed.
func (s *Subscription[T]) Refresh() {
	s.signal()
}

// Close stops re-runs and unregisters from the hub. An in-flight query sees
// its context cancelled; Close waits for it to return.
func (s *Subscription[T]) Close() {
	s.closeOnce.Do(s.cancel)
	<-s.done
}

// Next waits for the next snapshot that is not Loading. It returns ctx's
// error, or ErrClosed if the subscription ends first.
func (s *Subscription[T]) Next(ctx context.Context) (Snapshot[T], error) {
	select {
	case snap, ok := <-s.updates:
		if !ok {
			return s.Current(), ErrClosed
		}
		return snap, nil
	case <-ctx.Done():
		return s.Current(), ctx.Err()
	}
}

// ErrClosed is returned by Next once a subscription has ended.
var ErrClosed = errors.New("livequery: subscription closed")
