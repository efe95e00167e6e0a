package weather

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/i474232898/sunny-weather/internal/async"
	"github.com/i474232898/sunny-weather/internal/live"
)

// Pipeline names used by the channels built from a Service.
const (
	PipelinePlaces  = "places"
	PipelineWeather = "weather"
)

// Service is the repository in front of the remote service and the selection store.
// Remote operations never return Go errors; their failures are carried in the Outcome.
type Service struct {
	network   Network
	selection SelectionStore
	logger    *slog.Logger
}

// NewService creates a new Service.
func NewService(network Network, selection SelectionStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		network:   network,
		selection: selection,
		logger:    logger,
	}
}

// SearchPlaces looks up places matching query.
func (s *Service) SearchPlaces(ctx context.Context, query string) async.Outcome[[]Place] {
	return fire(s.logger, "search places", func() async.Outcome[[]Place] {
		resp, err := async.Await(ctx, s.network.SearchPlaces(query)).Get()
		if err != nil {
			return async.Failed[[]Place](asFailure(err))
		}
		if resp.Status != async.StatusOK {
			return async.Fail[[]Place](async.KindSemanticStatus, fmt.Sprintf("response status is %s", resp.Status))
		}
		return async.Success(resp.Places)
	})
}

// RefreshWeather fetches realtime and daily data for loc concurrently and
// combines them. Either leg failing fails the whole refresh.
func (s *Service) RefreshWeather(ctx context.Context, loc Location) async.Outcome[Weather] {
	return fire(s.logger, "refresh weather", func() async.Outcome[Weather] {
		return async.Join(ctx,
			async.Leg[RealtimeResponse]{Name: "realtime", Call: s.network.GetRealtime(loc)},
			async.Leg[DailyResponse]{Name: "daily", Call: s.network.GetDaily(loc)},
			func(r RealtimeResponse, d DailyResponse) Weather {
				return BuildWeather(r.Result.Realtime, d.Result.Daily)
			},
		)
	})
}

// PlaceSearches returns a pipeline that searches for every pushed query.
func (s *Service) PlaceSearches(opts ...live.Option) *live.Channel[string, []Place] {
	return live.New[string, []Place](PipelinePlaces, s.SearchPlaces, opts...)
}

// WeatherRefreshes returns a pipeline that refreshes weather for every pushed location.
func (s *Service) WeatherRefreshes(opts ...live.Option) *live.Channel[Location, Weather] {
	return live.New[Location, Weather](PipelineWeather, s.RefreshWeather, opts...)
}

// SavePlace overwrites the selected place.
func (s *Service) SavePlace(ctx context.Context, place Place) error {
	return s.selection.Save(ctx, place)
}

// SavedPlace returns the selected place. Check IsPlaceSaved first; an empty
// store yields an async.KindNotFound failure.
func (s *Service) SavedPlace(ctx context.Context) (Place, error) {
	return s.selection.Load(ctx)
}

// IsPlaceSaved reports whether a place has been selected.
func (s *Service) IsPlaceSaved(ctx context.Context) (bool, error) {
	return s.selection.Exists(ctx)
}

// fire runs block and converts a panic into an Unexpected outcome.
func fire[T any](logger *slog.Logger, op string, block func() async.Outcome[T]) (out async.Outcome[T]) {
	defer func() {
		if r := recover(); r != nil {
			out = async.Failed[T](async.Recovered(r))
		}
		if f := out.Failure(); f != nil {
			logger.Debug(op+" failed", "kind", f.Kind.String(), "error", f.Message)
		}
	}()
	return block()
}

func asFailure(err error) *async.Failure {
	if f, ok := err.(*async.Failure); ok {
		return f
	}
	return async.WrapFailure(async.KindUnexpected, err.Error(), err)
}
