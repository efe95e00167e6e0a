package weather

import (
	"context"
	"log/slog"

	"github.com/i474232898/sunny-weather/internal/live"
)

// SearchView is the state of a PlaceSearch.
type SearchView struct {
	State      live.State
	Generation uint64
	Query      string
	Latest     *live.Delivery[string, []Place]
}

// PlaceSearch is a search box: every query replaces the previous one and
// only the newest query's places are ever reported.
type PlaceSearch struct {
	searches *live.Channel[string, []Place]
	logger   *slog.Logger
	done     chan struct{}
}

// NewPlaceSearch creates a PlaceSearch. Call Close to stop it.
func NewPlaceSearch(service *Service, logger *slog.Logger, opts ...live.Option) *PlaceSearch {
	if logger == nil {
		logger = slog.Default()
	}
	s := &PlaceSearch{
		searches: service.PlaceSearches(opts...),
		logger:   logger,
		done:     make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		s.searches.Observe(context.Background(), s.logDelivery)
	}()
	return s
}

// Search starts a search for query and returns its generation.
func (s *PlaceSearch) Search(query string) uint64 {
	return s.searches.Push(query)
}

// Current returns the latest query and its newest published result.
func (s *PlaceSearch) Current() SearchView {
	state, gen, query := s.searches.State()
	v := SearchView{State: state, Generation: gen, Query: query}
	if d, ok := s.searches.Latest(); ok {
		v.Latest = &d
	}
	return v
}

func (s *PlaceSearch) Close() {
	s.searches.Close()
	<-s.done
}

func (s *PlaceSearch) logDelivery(d live.Delivery[string, []Place]) {
	if f := d.Outcome.Failure(); f != nil {
		s.logger.Debug("place search failed",
			"pipeline", s.searches.Name(),
			"query", d.Key,
			"generation", d.Generation,
			"error", f.Message,
		)
		return
	}
	s.logger.Debug("place search finished",
		"pipeline", s.searches.Name(),
		"query", d.Key,
		"generation", d.Generation,
		"places", len(d.Outcome.Value()),
	)
}
