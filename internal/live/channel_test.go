package live_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/sunny-weather/internal/async"
	"github.com/i474232898/sunny-weather/internal/live"
)

const waitFor = 2 * time.Second

// gatedFetch blocks each fetch until its generation's gate is released.
// It ignores ctx so the generation check alone must reject stale results.
type gatedFetch struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	calls   map[string]int
	started chan string
}

func newGatedFetch() *gatedFetch {
	return &gatedFetch{
		gates:   make(map[string]chan struct{}),
		calls:   make(map[string]int),
		started: make(chan string, 16),
	}
}

func (g *gatedFetch) gate(key string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[key]
	if !ok {
		ch = make(chan struct{})
		g.gates[key] = ch
	}
	return ch
}

func (g *gatedFetch) release(key string) {
	close(g.gate(key))
}

func (g *gatedFetch) fetch(_ context.Context, key string) async.Outcome[string] {
	g.mu.Lock()
	g.calls[key]++
	g.mu.Unlock()
	g.started <- key
	<-g.gate(key)
	return async.Success("result for " + key)
}

func (g *gatedFetch) callCount(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[key]
}

// recordingObserver exposes drops on a channel so tests can wait for them.
type recordingObserver struct {
	dropped   chan uint64
	delivered chan uint64
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{
		dropped:   make(chan uint64, 16),
		delivered: make(chan uint64, 16),
	}
}

func (r *recordingObserver) FetchStarted(string, uint64) {}
func (r *recordingObserver) FetchDelivered(_ string, gen uint64, _ bool) {
	r.delivered <- gen
}
func (r *recordingObserver) FetchDropped(_ string, gen uint64) {
	r.dropped <- gen
}

func next[K comparable, T any](t *testing.T, c *live.Channel[K, T]) live.Delivery[K, T] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	d, err := c.Next(ctx)
	require.NoError(t, err)
	return d
}

func assertNoDelivery[K comparable, T any](t *testing.T, c *live.Channel[K, T]) {
	t.Helper()
	select {
	case d := <-c.Updates():
		t.Fatalf("unexpected delivery for generation %d", d.Generation)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestChannel_IdleBeforeFirstPush(t *testing.T) {
	c := live.New("places", newGatedFetch().fetch)
	defer c.Close()

	state, gen, key := c.State()
	assert.Equal(t, live.StateIdle, state)
	assert.Zero(t, gen)
	assert.Empty(t, key)

	_, ok := c.Latest()
	assert.False(t, ok)
}

func TestChannel_ExactlyOnceDelivery(t *testing.T) {
	g := newGatedFetch()
	obs := newRecordingObserver()
	c := live.New("places", g.fetch, live.WithObserver(obs))
	defer c.Close()

	gen := c.Push("Beijing")
	assert.Equal(t, uint64(1), gen)
	<-g.started

	state, _, key := c.State()
	assert.Equal(t, live.StateFetching, state)
	assert.Equal(t, "Beijing", key)

	g.release("Beijing")
	d := next(t, c)
	assert.Equal(t, gen, d.Generation)
	assert.Equal(t, "Beijing", d.Key)
	require.True(t, d.Outcome.OK())
	assert.Equal(t, "result for Beijing", d.Outcome.Value())

	assertNoDelivery(t, c)
	assert.Len(t, obs.delivered, 1)

	state, _, _ = c.State()
	assert.Equal(t, live.StateDelivered, state)
}

func TestChannel_StaleResultIsDropped(t *testing.T) {
	g := newGatedFetch()
	obs := newRecordingObserver()
	c := live.New("places", g.fetch, live.WithObserver(obs))
	defer c.Close()

	first := c.Push("Shanghai")
	<-g.started
	second := c.Push("Beijing")
	<-g.started

	// The newer key completes first.
	g.release("Beijing")
	d := next(t, c)
	assert.Equal(t, second, d.Generation)
	assert.Equal(t, "Beijing", d.Key)

	// The older key completes late and must never surface.
	g.release("Shanghai")
	select {
	case gen := <-obs.dropped:
		assert.Equal(t, first, gen)
	case <-time.After(waitFor):
		t.Fatal("stale completion was not dropped")
	}
	assertNoDelivery(t, c)

	latest, ok := c.Latest()
	require.True(t, ok)
	assert.Equal(t, "Beijing", latest.Key)
}

func TestChannel_StaleResultDroppedWhenOlderFinishesFirst(t *testing.T) {
	g := newGatedFetch()
	obs := newRecordingObserver()
	c := live.New("places", g.fetch, live.WithObserver(obs))
	defer c.Close()

	c.Push("Shanghai")
	<-g.started
	second := c.Push("Beijing")
	<-g.started

	g.release("Shanghai")
	<-obs.dropped
	assertNoDelivery(t, c)

	g.release("Beijing")
	d := next(t, c)
	assert.Equal(t, second, d.Generation)
	assert.Equal(t, "result for Beijing", d.Outcome.Value())
}

func TestChannel_SameKeyFetchesAgain(t *testing.T) {
	g := newGatedFetch()
	c := live.New("places", g.fetch)
	defer c.Close()

	g.release("Beijing")

	first := c.Push("Beijing")
	d := next(t, c)
	assert.Equal(t, first, d.Generation)

	second := c.Push("Beijing")
	d = next(t, c)
	assert.Equal(t, second, d.Generation)
	assert.Greater(t, second, first)
	assert.Equal(t, 2, g.callCount("Beijing"))
}

func TestChannel_PushCancelsPreviousContext(t *testing.T) {
	cancelled := make(chan struct{})
	fetch := func(ctx context.Context, key string) async.Outcome[string] {
		if key == "slow" {
			<-ctx.Done()
			close(cancelled)
			return async.Fail[string](async.KindTransport, ctx.Err().Error())
		}
		return async.Success(key)
	}
	c := live.New("places", fetch)
	defer c.Close()

	c.Push("slow")
	c.Push("fast")

	select {
	case <-cancelled:
	case <-time.After(waitFor):
		t.Fatal("previous fetch context was not cancelled")
	}

	d := next(t, c)
	assert.Equal(t, "fast", d.Key)
	assertNoDelivery(t, c)
}

func TestChannel_MonotonicUnderConcurrentPushes(t *testing.T) {
	fetch := func(_ context.Context, key int) async.Outcome[int] {
		// Later keys finish sooner to invert completion order.
		time.Sleep(time.Duration(50-key) * time.Millisecond)
		return async.Success(key)
	}
	c := live.New("numbers", fetch)
	defer c.Close()

	var last uint64
	for i := 1; i <= 20; i++ {
		last = c.Push(i)
	}

	d := next(t, c)
	assert.Equal(t, last, d.Generation)
	assert.Equal(t, 20, d.Outcome.Value())
	assertNoDelivery(t, c)
}

func TestChannel_PanicBecomesFailure(t *testing.T) {
	c := live.New("places", func(context.Context, string) async.Outcome[string] {
		panic(errors.New("decoder blew up"))
	})
	defer c.Close()

	c.Push("Beijing")
	d := next(t, c)
	require.False(t, d.Outcome.OK())
	assert.Equal(t, async.KindUnexpected, d.Outcome.Failure().Kind)
}

func TestChannel_DeliveryUsesClock(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := live.New("places", func(_ context.Context, k string) async.Outcome[string] {
		return async.Success(k)
	}, live.WithClock(clockwork.NewFakeClockAt(at)))
	defer c.Close()

	c.Push("Beijing")
	d := next(t, c)
	assert.Equal(t, at, d.At)
}

func TestChannel_Close(t *testing.T) {
	g := newGatedFetch()
	obs := newRecordingObserver()
	c := live.New("places", g.fetch, live.WithObserver(obs))

	c.Push("Beijing")
	<-g.started
	c.Close()
	c.Close()

	g.release("Beijing")
	<-obs.dropped

	assert.Zero(t, c.Push("Shanghai"))
	_, err := c.Next(context.Background())
	assert.ErrorIs(t, err, live.ErrClosed)
}

func TestChannel_Observe(t *testing.T) {
	c := live.New("places", func(_ context.Context, k string) async.Outcome[string] {
		return async.Success(k)
	})

	got := make(chan string, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Observe(context.Background(), func(d live.Delivery[string, string]) {
			got <- d.Key
		})
	}()

	c.Push("Beijing")
	select {
	case key := <-got:
		assert.Equal(t, "Beijing", key)
	case <-time.After(waitFor):
		t.Fatal("observer was not notified")
	}

	c.Close()
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("Observe did not return after Close")
	}
}
