package weather

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/i474232898/sunny-weather/internal/live"
)

// View is what the tracker currently knows about the selected place.
type View struct {
	Place      *Place
	State      live.State
	Generation uint64
	Latest     *live.Delivery[Location, Weather]
}

// Tracker keeps the weather of the selected place fresh. Selecting a new
// place while a refresh is in flight supersedes it; the older result is
// never reported.
type Tracker struct {
	service   *Service
	refreshes *live.Channel[Location, Weather]
	logger    *slog.Logger

	// selectMu orders save+push pairs so the stored and tracked places agree.
	selectMu sync.Mutex

	mu    sync.RWMutex
	place *Place

	done chan struct{}
}

// NewTracker creates a Tracker and starts observing its refresh pipeline.
// Call Close to stop it.
func NewTracker(service *Service, logger *slog.Logger, opts ...live.Option) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tracker{
		service:   service,
		refreshes: service.WeatherRefreshes(opts...),
		logger:    logger,
		done:      make(chan struct{}),
	}
	go func() {
		defer close(t.done)
		t.refreshes.Observe(context.Background(), t.logDelivery)
	}()
	return t
}

// Select saves place as the selection and starts refreshing its weather.
// It returns the generation of the refresh.
func (t *Tracker) Select(ctx context.Context, place Place) (uint64, error) {
	t.selectMu.Lock()
	defer t.selectMu.Unlock()

	if err := t.service.SavePlace(ctx, place); err != nil {
		return 0, fmt.Errorf("save place: %w", err)
	}
	return t.push(place), nil
}

// Refresh re-reads the selected place and refreshes its weather. It fails
// with an async.KindNotFound failure when nothing has been selected.
func (t *Tracker) Refresh(ctx context.Context) (uint64, error) {
	t.selectMu.Lock()
	defer t.selectMu.Unlock()

	place, err := t.service.SavedPlace(ctx)
	if err != nil {
		return 0, err
	}
	return t.push(place), nil
}

// Restore resumes tracking a place saved by an earlier run. It reports
// whether one was found.
func (t *Tracker) Restore(ctx context.Context) (bool, error) {
	saved, err := t.service.IsPlaceSaved(ctx)
	if err != nil || !saved {
		return false, err
	}
	gen, err := t.Refresh(ctx)
	if err != nil {
		return false, err
	}
	t.logger.Info("restored saved place", "generation", gen)
	return true, nil
}

func (t *Tracker) push(place Place) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.place = &place
	gen := t.refreshes.Push(place.Location)
	t.logger.Debug("weather refresh started", "place", place.Name, "location", place.Location.Key(), "generation", gen)
	return gen
}

// Current returns the tracker's view of the selected place.
func (t *Tracker) Current() View {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state, gen, _ := t.refreshes.State()
	v := View{State: state, Generation: gen}
	if t.place != nil {
		p := *t.place
		v.Place = &p
	}
	if d, ok := t.refreshes.Latest(); ok {
		v.Latest = &d
	}
	return v
}

// Close stops the refresh pipeline and waits for the observer to exit.
func (t *Tracker) Close() {
	t.refreshes.Close()
	<-t.done
}

func (t *Tracker) logDelivery(d live.Delivery[Location, Weather]) {
	if f := d.Outcome.Failure(); f != nil {
		t.logger.Warn("weather refresh failed",
			"pipeline", t.refreshes.Name(),
			"location", d.Key.Key(),
			"generation", d.Generation,
			"kind", f.Kind.String(),
			"error", f.Message,
		)
		return
	}
	t.logger.Info("weather refreshed",
		"pipeline", t.refreshes.Name(),
		"location", d.Key.Key(),
		"generation", d.Generation,
		"temperature", d.Outcome.Value().Current.Temperature,
	)
}
