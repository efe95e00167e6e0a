package weather_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/sunny-weather/internal/async"
	"github.com/i474232898/sunny-weather/internal/weather"
)

const (
	realtimeOK = `{
		"status": "ok",
		"result": {"realtime": {
			"temperature": 21.5,
			"skycon": "CLEAR_DAY",
			"air_quality": {"aqi": {"chn": 42}}
		}}
	}`
	dailyOK = `{
		"status": "ok",
		"result": {"daily": {
			"temperature": [{"max": 25, "min": 14}, {"max": 23, "min": 12}],
			"skycon": [
				{"value": "PARTLY_CLOUDY_DAY", "date": "2026-10-17T00:00+08:00"},
				{"value": "LIGHT_RAIN", "date": "2026-10-18T00:00+08:00"}
			],
			"life_index": {
				"coldRisk": [{"desc": "Low"}, {"desc": "Medium"}],
				"carWashing": [{"desc": "Suitable"}],
				"ultraviolet": [{"desc": "Strong"}],
				"dressing": [{"desc": "Warm"}]
			}
		}}
	}`
	dailyError = `{"status": "error"}`
)

var beijing = weather.Place{
	Name:     "Beijing",
	Location: weather.Location{Lng: "116.4073963", Lat: "39.9041999"},
	Address:  "Beijing, China",
}

func decode[T any](t *testing.T, raw string) *T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return &v
}

// respond resolves a call from a fresh goroutine, like a real transport.
func respond[T any](fn func() (*T, error)) async.Call[T] {
	return async.CallFunc[T](func(_ context.Context, cb async.Callback[T]) {
		go func() {
			v, err := fn()
			if err != nil {
				cb.OnFailure(err)
				return
			}
			cb.OnSuccess(v)
		}()
	})
}

type fakeNetwork struct {
	places   func(query string) (*weather.PlaceResponse, error)
	realtime func(loc weather.Location) (*weather.RealtimeResponse, error)
	daily    func(loc weather.Location) (*weather.DailyResponse, error)
}

func (n *fakeNetwork) SearchPlaces(query string) async.Call[weather.PlaceResponse] {
	return respond(func() (*weather.PlaceResponse, error) { return n.places(query) })
}

func (n *fakeNetwork) GetRealtime(loc weather.Location) async.Call[weather.RealtimeResponse] {
	return respond(func() (*weather.RealtimeResponse, error) { return n.realtime(loc) })
}

func (n *fakeNetwork) GetDaily(loc weather.Location) async.Call[weather.DailyResponse] {
	return respond(func() (*weather.DailyResponse, error) { return n.daily(loc) })
}

// okNetwork answers every weather request with the OK fixtures.
func okNetwork(t *testing.T) *fakeNetwork {
	return &fakeNetwork{
		places: func(string) (*weather.PlaceResponse, error) {
			return &weather.PlaceResponse{Status: "ok", Places: []weather.Place{beijing}}, nil
		},
		realtime: func(weather.Location) (*weather.RealtimeResponse, error) {
			return decode[weather.RealtimeResponse](t, realtimeOK), nil
		},
		daily: func(weather.Location) (*weather.DailyResponse, error) {
			return decode[weather.DailyResponse](t, dailyOK), nil
		},
	}
}

type memorySelection struct {
	mu    sync.Mutex
	place *weather.Place
	saves int
}

func (m *memorySelection) Save(_ context.Context, place weather.Place) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.place = &place
	m.saves++
	return nil
}

func (m *memorySelection) Load(context.Context) (weather.Place, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.place == nil {
		return weather.Place{}, async.NewFailure(async.KindNotFound, "no place saved")
	}
	return *m.place, nil
}

func (m *memorySelection) Exists(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.place != nil, nil
}
