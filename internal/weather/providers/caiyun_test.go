package providers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/i474232898/sunny-weather/internal/async"
	"github.com/i474232898/sunny-weather/internal/weather"
	"github.com/i474232898/sunny-weather/internal/weather/providers"
)

var beijing = weather.Location{Lng: "116.4073963", Lat: "39.9041999"}

type recordingObserver struct {
	mu      sync.Mutex
	results []string
}

func (o *recordingObserver) RequestCompleted(endpoint, result string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, endpoint+":"+result)
}

func (o *recordingObserver) all() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.results...)
}

func newProvider(t *testing.T, handler http.HandlerFunc, backoff providers.BackoffConfig) (*providers.CaiyunProvider, *recordingObserver) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	obs := &recordingObserver{}
	p := providers.NewCaiyunProvider(
		providers.CaiyunConfig{Token: "tok", BaseURL: srv.URL + "/"},
		providers.HTTPClientConfig{Client: srv.Client(), Backoff: backoff},
		nil,
		obs,
	)
	return p, obs
}

func TestSearchPlaces_BuildsRequestAndDecodes(t *testing.T) {
	p, obs := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/place", r.URL.Path)
		assert.Equal(t, "Beijing", r.URL.Query().Get("query"))
		assert.Equal(t, "tok", r.URL.Query().Get("token"))
		assert.Equal(t, "zh_CN", r.URL.Query().Get("lang"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","places":[{"name":"Beijing","location":{"lng":"116.4073963","lat":"39.9041999"},"formatted_address":"Beijing, China"}]}`))
	}, providers.BackoffConfig{})

	resp, err := async.Await(context.Background(), p.SearchPlaces("Beijing")).Get()
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Places, 1)
	assert.Equal(t, "Beijing", resp.Places[0].Name)
	assert.Equal(t, beijing, resp.Places[0].Location)
	assert.Equal(t, "Beijing, China", resp.Places[0].Address)
	assert.Equal(t, []string{"place:ok"}, obs.all())
}

func TestGetRealtime_Path(t *testing.T) {
	p, _ := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2.5/tok/116.4073963,39.9041999/realtime.json", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"ok","result":{"realtime":{"temperature":3.5,"skycon":"CLOUDY","air_quality":{"aqi":{"chn":80}}}}}`))
	}, providers.BackoffConfig{})

	resp, err := async.Await(context.Background(), p.GetRealtime(beijing)).Get()
	require.NoError(t, err)
	assert.Equal(t, 3.5, resp.Result.Realtime.Temperature)
	assert.Equal(t, "CLOUDY", resp.Result.Realtime.Skycon)
	assert.Equal(t, 80.0, resp.Result.Realtime.AirQuality.AQI.CHN)
}

func TestGetDaily_Path(t *testing.T) {
	p, _ := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2.5/tok/116.4073963,39.9041999/daily.json", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"ok","result":{"daily":{
			"temperature":[{"max":10,"min":1}],
			"skycon":[{"value":"CLEAR_DAY","date":"2026-10-17T00:00+08:00"}],
			"life_index":{"coldRisk":[{"desc":"Low"}]}
		}}}`))
	}, providers.BackoffConfig{})

	resp, err := async.Await(context.Background(), p.GetDaily(beijing)).Get()
	require.NoError(t, err)
	require.Len(t, resp.Result.Daily.Skycon, 1)
	assert.Equal(t, "CLEAR_DAY", resp.Result.Daily.Skycon[0].Value)
	assert.Equal(t, "Low", resp.Result.Daily.LifeIndex.ColdRisk[0].Desc)
}

func TestSemanticStatusIsPassedThrough(t *testing.T) {
	p, _ := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"failed"}`))
	}, providers.BackoffConfig{})

	resp, err := async.Await(context.Background(), p.SearchPlaces("x")).Get()
	require.NoError(t, err)
	assert.Equal(t, "failed", resp.Status)
}

func TestEmptyBodies(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"client error": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":"failed","error":"token is invalid"}`))
		},
		"null": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(" null\n"))
		},
		"no content": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			p, obs := newProvider(t, handler, providers.BackoffConfig{})

			out := async.Await(context.Background(), p.GetRealtime(beijing))
			require.False(t, out.OK())
			assert.Equal(t, async.KindEmptyBody, out.Failure().Kind)
			assert.Equal(t, []string{"realtime:empty"}, obs.all())
		})
	}
}

func TestServerErrorIsTransportFailure(t *testing.T) {
	p, obs := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, providers.BackoffConfig{})

	out := async.Await(context.Background(), p.GetDaily(beijing))
	require.False(t, out.OK())
	assert.Equal(t, async.KindTransport, out.Failure().Kind)
	assert.Contains(t, out.Failure().Message, "server error")
	assert.Equal(t, []string{"daily:error"}, obs.all())
}

func TestRetriesWithBackoff(t *testing.T) {
	hits := atomic.NewInt32(0)
	p, _ := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		if hits.Inc() < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok","places":[]}`))
	}, providers.BackoffConfig{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond})

	resp, err := async.Await(context.Background(), p.SearchPlaces("x")).Get()
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, int32(3), hits.Load())
}

func TestNoRetryByDefault(t *testing.T) {
	hits := atomic.NewInt32(0)
	p, _ := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Inc()
		w.WriteHeader(http.StatusInternalServerError)
	}, providers.BackoffConfig{})

	out := async.Await(context.Background(), p.SearchPlaces("x"))
	require.False(t, out.OK())
	assert.Equal(t, int32(1), hits.Load())
}

func TestMalformedJSONIsTransportFailure(t *testing.T) {
	p, _ := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":`))
	}, providers.BackoffConfig{})

	out := async.Await(context.Background(), p.SearchPlaces("x"))
	require.False(t, out.OK())
	assert.Equal(t, async.KindTransport, out.Failure().Kind)
	assert.Contains(t, out.Failure().Message, "decode place response")
}

func TestMissingToken(t *testing.T) {
	hits := atomic.NewInt32(0)
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hits.Inc() }))
	defer srv.Close()

	p := providers.NewCaiyunProvider(
		providers.CaiyunConfig{BaseURL: srv.URL},
		providers.HTTPClientConfig{Client: srv.Client()},
		nil, nil,
	)

	out := async.Await(context.Background(), p.SearchPlaces("x"))
	require.False(t, out.OK())
	assert.Equal(t, async.KindTransport, out.Failure().Kind)
	assert.Equal(t, "caiyun token is not configured", out.Failure().Message)
	assert.Zero(t, hits.Load())
}

func TestCancelledContext(t *testing.T) {
	release := make(chan struct{})
	p, _ := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, providers.BackoffConfig{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	out := async.Await(ctx, p.SearchPlaces("x"))
	require.False(t, out.OK())
	assert.Equal(t, async.KindTransport, out.Failure().Kind)
}
