package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/sunny-weather/internal/async"
	"github.com/i474232898/sunny-weather/internal/weather"
)

// Endpoint labels reported to a RequestObserver.
const (
	EndpointPlace    = "place"
	EndpointRealtime = "realtime"
	EndpointDaily    = "daily"
)

// Request results reported to a RequestObserver.
const (
	ResultOK    = "ok"
	ResultEmpty = "empty"
	ResultError = "error"
)

var errNoToken = errors.New("caiyun token is not configured")

// RequestObserver receives one report per finished request.
type RequestObserver interface {
	RequestCompleted(endpoint, result string, elapsed time.Duration)
}

// CaiyunConfig holds the remote service settings.
type CaiyunConfig struct {
	Token   string
	BaseURL string
	Lang    string
}

// CaiyunProvider implements weather.Network against the Caiyun API.
type CaiyunProvider struct {
	name     string
	cfg      CaiyunConfig
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
	logger   *slog.Logger
	observer RequestObserver
}

var _ weather.Network = (*CaiyunProvider)(nil)

// NewCaiyunProvider creates a provider. observer may be nil.
func NewCaiyunProvider(cfg CaiyunConfig, httpCfg HTTPClientConfig, logger *slog.Logger, observer RequestObserver) *CaiyunProvider {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.caiyunapp.com"
	}
	if cfg.Lang == "" {
		cfg.Lang = "zh_CN"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &CaiyunProvider{
		name:     "caiyun",
		cfg:      cfg,
		httpCfg:  httpCfg,
		circuit:  newCircuitBreaker("caiyun", httpCfg.Breaker),
		logger:   logger,
		observer: observer,
	}
}

func (p *CaiyunProvider) Name() string {
	return p.name
}

// SearchPlaces returns a call for GET /v2/place.
func (p *CaiyunProvider) SearchPlaces(query string) async.Call[weather.PlaceResponse] {
	return httpCall[weather.PlaceResponse]{p: p, endpoint: EndpointPlace, url: func() string {
		values := url.Values{}
		values.Set("query", query)
		values.Set("token", p.cfg.Token)
		values.Set("lang", p.cfg.Lang)
		return fmt.Sprintf("%s/v2/place?%s", p.cfg.BaseURL, values.Encode())
	}}
}

// GetRealtime returns a call for GET /v2.5/{token}/{lng},{lat}/realtime.json.
func (p *CaiyunProvider) GetRealtime(loc weather.Location) async.Call[weather.RealtimeResponse] {
	return httpCall[weather.RealtimeResponse]{p: p, endpoint: EndpointRealtime, url: func() string {
		return p.coordinateURL(loc, "realtime.json")
	}}
}

// GetDaily returns a call for GET /v2.5/{token}/{lng},{lat}/daily.json.
func (p *CaiyunProvider) GetDaily(loc weather.Location) async.Call[weather.DailyResponse] {
	return httpCall[weather.DailyResponse]{p: p, endpoint: EndpointDaily, url: func() string {
		return p.coordinateURL(loc, "daily.json")
	}}
}

func (p *CaiyunProvider) coordinateURL(loc weather.Location, file string) string {
	return fmt.Sprintf("%s/v2.5/%s/%s,%s/%s",
		p.cfg.BaseURL,
		url.PathEscape(p.cfg.Token),
		url.PathEscape(loc.Lng),
		url.PathEscape(loc.Lat),
		file,
	)
}

// httpCall is one not-yet-sent request. Enqueue sends it on its own goroutine
// and resolves the callback exactly once.
type httpCall[T any] struct {
	p        *CaiyunProvider
	endpoint string
	url      func() string
}

func (c httpCall[T]) Enqueue(ctx context.Context, cb async.Callback[T]) {
	go func() {
		start := time.Now()
		body, result, err := fetch[T](ctx, c.p, c.endpoint, c.url)
		c.p.report(c.endpoint, result, time.Since(start))
		if err != nil {
			cb.OnFailure(err)
			return
		}
		cb.OnSuccess(body)
	}()
}

// fetch returns a nil body for non-2xx responses and for empty or null payloads.
func fetch[T any](ctx context.Context, p *CaiyunProvider, endpoint string, target func() string) (*T, string, error) {
	if p.cfg.Token == "" {
		return nil, ResultError, errNoToken
	}

	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, target(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		p.logger.Debug("caiyun request failed", "endpoint", endpoint, "error", err)
		return nil, ResultError, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Debug("caiyun returned non-success status", "endpoint", endpoint, "status", resp.StatusCode)
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, ResultEmpty, nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ResultError, fmt.Errorf("read %s response: %w", endpoint, err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, ResultEmpty, nil
	}

	var payload T
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, ResultError, fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return &payload, ResultOK, nil
}

func (p *CaiyunProvider) report(endpoint, result string, elapsed time.Duration) {
	if p.observer != nil {
		p.observer.RequestCompleted(endpoint, result, elapsed)
	}
}
