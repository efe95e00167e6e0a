package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	// Caiyun API access.
	CaiyunToken   string
	CaiyunBaseURL string
	CaiyunLang    string

	// HTTPTimeout bounds each remote request. Zero means no timeout.
	HTTPTimeout time.Duration

	// Retry policy for rate limited and 5xx responses. Zero retries by default.
	RetryMax             int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration

	// Circuit breaker settings.
	BreakerMaxRequests int
	BreakerInterval    time.Duration
	BreakerTimeout     time.Duration

	// RefreshInterval controls how often the selected place is refreshed. Zero disables it.
	RefreshInterval time.Duration

	// Selection store.
	StoreBackend string
	StorePath    string
	RedisURL     string

	LogLevel  string
	LogFormat string

	Port            string
	ShutdownTimeout time.Duration
}

var storeBackends = map[string]bool{"file": true, "sqlite": true, "redis": true, "memory": true}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg := &AppConfig{
		CaiyunToken:   os.Getenv("CAIYUN_TOKEN"),
		CaiyunBaseURL: getenvDefault("CAIYUN_BASE_URL", "https://api.caiyunapp.com"),
		CaiyunLang:    getenvDefault("CAIYUN_LANG", "zh_CN"),
		StoreBackend:  getenvDefault("STORE_BACKEND", "file"),
		StorePath:     getenvDefault("STORE_PATH", "sunny_weather.json"),
		RedisURL:      os.Getenv("REDIS_URL"),
		LogLevel:      getenvDefault("LOG_LEVEL", "info"),
		LogFormat:     getenvDefault("LOG_FORMAT", "json"),
		Port:          getenvDefault("PORT", "8080"),
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "0"); err != nil {
		return nil, err
	}
	if cfg.RetryMax, err = getenvInt("RETRY_MAX", 0); err != nil {
		return nil, err
	}
	if cfg.RetryInitialInterval, err = getenvDuration("RETRY_INITIAL_INTERVAL", "500ms"); err != nil {
		return nil, err
	}
	if cfg.RetryMaxInterval, err = getenvDuration("RETRY_MAX_INTERVAL", "5s"); err != nil {
		return nil, err
	}
	if cfg.BreakerMaxRequests, err = getenvInt("BREAKER_MAX_REQUESTS", 5); err != nil {
		return nil, err
	}
	if cfg.BreakerInterval, err = getenvDuration("BREAKER_INTERVAL", "1m"); err != nil {
		return nil, err
	}
	if cfg.BreakerTimeout, err = getenvDuration("BREAKER_TIMEOUT", "2m"); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "30m"); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getenvDuration("SHUTDOWN_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	if c.RetryMax < 0 {
		return errors.New("RETRY_MAX must not be negative")
	}
	if c.RetryMax > 0 && c.RetryInitialInterval <= 0 {
		return errors.New("RETRY_INITIAL_INTERVAL must be positive when RETRY_MAX is set")
	}
	if c.BreakerMaxRequests < 0 {
		return errors.New("BREAKER_MAX_REQUESTS must not be negative")
	}
	if c.HTTPTimeout < 0 || c.RefreshInterval < 0 || c.ShutdownTimeout < 0 {
		return errors.New("durations must not be negative")
	}
	if !storeBackends[c.StoreBackend] {
		return fmt.Errorf("invalid STORE_BACKEND %q", c.StoreBackend)
	}
	if c.StoreBackend == "redis" && c.RedisURL == "" {
		return errors.New("STORE_BACKEND is redis but REDIS_URL is not set")
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
