// Package live re-runs a fetch whenever its input key changes and publishes
// only the newest key's result.
//
// Every Push bumps a generation counter. A fetch may only publish if its
// generation is still current when it completes, so a slow response for an
// old key can never overwrite the result of a newer one. Cancelling the old
// fetch's context is best effort; the generation check is what guarantees it.
package live

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/atomic"

	"github.com/i474232898/sunny-weather/internal/async"
)

// ErrClosed is returned by Next once the channel has been closed.
var ErrClosed = errors.New("live: channel closed")

// State is the lifecycle position of a Channel.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateDelivered
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateDelivered:
		return "delivered"
	default:
		return "idle"
	}
}

// FetchFunc produces the outcome for one key. It should honour ctx but is not required to.
type FetchFunc[K comparable, T any] func(ctx context.Context, key K) async.Outcome[T]

// Delivery is one published result.
type Delivery[K comparable, T any] struct {
	Generation uint64
	Key        K
	Outcome    async.Outcome[T]
	At         time.Time
}

// Observer receives optional diagnostics. Implementations must not block.
type Observer interface {
	FetchStarted(pipeline string, generation uint64)
	FetchDelivered(pipeline string, generation uint64, ok bool)
	FetchDropped(pipeline string, generation uint64)
}

type nopObserver struct{}

func (nopObserver) FetchStarted(string, uint64)         {}
func (nopObserver) FetchDelivered(string, uint64, bool) {}
func (nopObserver) FetchDropped(string, uint64)         {}

// Option configures a Channel.
type Option func(*options)

type options struct {
	clock    clockwork.Clock
	observer Observer
}

// WithClock sets the clock used to stamp deliveries.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithObserver sets the diagnostics observer.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// Channel is a key-driven pipeline with a single conflated subscriber slot.
type Channel[K comparable, T any] struct {
	name     string
	fetch    FetchFunc[K, T]
	clock    clockwork.Clock
	observer Observer

	// generation is written only by Push, while mu is held.
	generation *atomic.Uint64

	mu      sync.Mutex
	state   State
	key     K
	cancel  context.CancelFunc
	latest  *Delivery[K, T]
	slot    chan Delivery[K, T]
	closed  bool
	baseCtx context.Context
	stop    context.CancelFunc
}

// New creates an idle Channel. name labels diagnostics.
func New[K comparable, T any](name string, fetch FetchFunc[K, T], opts ...Option) *Channel[K, T] {
	o := options{
		clock:    clockwork.NewRealClock(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, stop := context.WithCancel(context.Background())
	return &Channel[K, T]{
		name:       name,
		fetch:      fetch,
		clock:      o.clock,
		observer:   o.observer,
		generation: atomic.NewUint64(0),
		slot:       make(chan Delivery[K, T], 1),
		baseCtx:    ctx,
		stop:       stop,
	}
}

// Name returns the label given to New.
func (c *Channel[K, T]) Name() string {
	return c.name
}

// Push starts a fresh fetch for key, superseding any fetch in flight, and
// returns its generation. Pushing the same key again still fetches again.
// After Close, Push does nothing and returns 0.
func (c *Channel[K, T]) Push(key K) uint64 {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0
	}
	if c.cancel != nil {
		c.cancel()
	}
	gen := c.generation.Inc()
	ctx, cancel := context.WithCancel(c.baseCtx)
	c.cancel = cancel
	c.state = StateFetching
	c.key = key
	c.mu.Unlock()

	c.observer.FetchStarted(c.name, gen)
	go c.run(ctx, cancel, gen, key)
	return gen
}

func (c *Channel[K, T]) run(ctx context.Context, cancel context.CancelFunc, gen uint64, key K) {
	defer cancel()
	c.complete(gen, key, c.safeFetch(ctx, key))
}

func (c *Channel[K, T]) safeFetch(ctx context.Context, key K) (o async.Outcome[T]) {
	defer func() {
		if r := recover(); r != nil {
			o = async.Failed[T](async.Recovered(r))
		}
	}()
	return c.fetch(ctx, key)
}

// complete publishes out if gen is still current, and reports whether it did.
func (c *Channel[K, T]) complete(gen uint64, key K, out async.Outcome[T]) bool {
	c.mu.Lock()
	if c.closed || gen != c.generation.Load() {
		c.mu.Unlock()
		c.observer.FetchDropped(c.name, gen)
		return false
	}

	d := Delivery[K, T]{
		Generation: gen,
		Key:        key,
		Outcome:    out,
		At:         c.clock.Now(),
	}
	c.state = StateDelivered
	c.latest = &d

	// Conflate: a value the subscriber has not read yet is older, replace it.
	select {
	case <-c.slot:
	default:
	}
	c.slot <- d
	c.mu.Unlock()

	c.observer.FetchDelivered(c.name, gen, out.OK())
	return true
}

// State reports the current state with its generation and key.
func (c *Channel[K, T]) State() (State, uint64, K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.generation.Load(), c.key
}

// Latest returns the most recent delivery, if any.
func (c *Channel[K, T]) Latest() (Delivery[K, T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest == nil {
		return Delivery[K, T]{}, false
	}
	return *c.latest, true
}

// Updates returns the subscriber slot. It holds at most one unread delivery
// and is closed by Close.
func (c *Channel[K, T]) Updates() <-chan Delivery[K, T] {
	return c.slot
}

// Next waits for the next unread delivery.
func (c *Channel[K, T]) Next(ctx context.Context) (Delivery[K, T], error) {
	select {
	case d, ok := <-c.slot:
		if !ok {
			return Delivery[K, T]{}, ErrClosed
		}
		return d, nil
	case <-ctx.Done():
		return Delivery[K, T]{}, ctx.Err()
	}
}

// Observe calls fn for every delivery until ctx is done or the channel is closed.
func (c *Channel[K, T]) Observe(ctx context.Context, fn func(Delivery[K, T])) {
	for {
		d, err := c.Next(ctx)
		if err != nil {
			return
		}
		fn(d)
	}
}

// Close cancels the fetch in flight and closes the subscriber slot.
func (c *Channel[K, T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.stop()
	close(c.slot)
}
