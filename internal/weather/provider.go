package weather

import (
	"context"

	"github.com/i474232898/sunny-weather/internal/async"
)

// Network abstracts the remote place/weather service. Each method returns a
// call that has not been started yet; nothing is sent until it is enqueued.
type Network interface {
	SearchPlaces(query string) async.Call[PlaceResponse]
	GetRealtime(loc Location) async.Call[RealtimeResponse]
	GetDaily(loc Location) async.Call[DailyResponse]
}

// SelectionStore is the contract for the single persisted "selected place".
// Load on an empty store fails with an async.KindNotFound failure.
type SelectionStore interface {
	Save(ctx context.Context, place Place) error
	Load(ctx context.Context) (Place, error)
	Exists(ctx context.Context) (bool, error)
}
