// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shopscan/shopscan/internal/config"
	"github.com/shopscan/shopscan/internal/extract"
	"github.com/shopscan/shopscan/internal/fetch"
	"github.com/shopscan/shopscan/internal/metrics"
	"github.com/shopscan/shopscan/internal/scraper"
	"github.com/shopscan/shopscan/internal/store"
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once at startup and shared across all CLI commands.
// Use Close() to ensure proper resource cleanup on shutdown.
type Application struct {
	Config  *config.Config
	Logger  *zerolog.Logger
	Metrics *metrics.Metrics

	storeMu sync.Mutex
	store   *store.Store

	startTime time.Time
}

// New creates and initializes a new Application. The product store is not
// opened here; commands that persist products call EnsureStore on demand
// so read-only commands never require a database.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logLevel := zerolog.ErrorLevel
	switch cfg.LogLevel {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "info":
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	var logWriter io.Writer
	if cfg.JSONLog {
		logWriter = os.Stderr
	} else {
		logWriter = zerolog.NewConsoleWriter()
	}
	logger := log.Output(logWriter).With().Timestamp().Logger()
	log.Logger = logger

	logger.Debug().
		Str("level", cfg.LogLevel).
		Bool("json", cfg.JSONLog).
		Msg("logger initialized")

	return &Application{
		Config:    cfg,
		Logger:    &logger,
		Metrics:   metrics.New(),
		startTime: time.Now(),
	}, nil
}

// NewSession builds a crawl session from the loaded configuration. Each
// session carries its own rate limiter and circuit breaker, so commands
// that crawl several independent sites create one session per site.
func (a *Application) NewSession() (*scraper.Session, error) {
	fetchCfg := fetch.Config{
		RequestsPerSecond: a.Config.RequestsPerSecond,
		BurstSize:         a.Config.BurstSize,
		Timeout:           a.Config.HTTPTimeout,
		MaxRetries:        a.Config.MaxRetries,
		BackoffFactor:     a.Config.BackoffFactor,
		FailureThreshold:  a.Config.FailureThreshold,
		RecoveryTimeout:   a.Config.RecoveryTimeout,
		UserAgent:         a.Config.UserAgent,
		Headers:           a.Config.Headers,
		Proxy:             a.Config.Proxy,
		CacheSize:         a.Config.CacheSize,
		CacheTTL:          a.Config.CacheTTL,
	}
	extractCfg := extract.Config{
		DescriptionMaxLength: a.Config.DescriptionMaxLength,
		MaxImages:            a.Config.MaxImagesPerProduct,
	}
	return scraper.New(fetchCfg, extractCfg, a.Config.ProductSelectors, a.Metrics)
}

// EnsureStore lazily opens the product store. Returns an error when no
// database URL is configured.
func (a *Application) EnsureStore(ctx context.Context) (*store.Store, error) {
	a.storeMu.Lock()
	defer a.storeMu.Unlock()

	if a.store != nil {
		return a.store, nil
	}
	if a.Config.DatabaseURL == "" {
		return nil, fmt.Errorf("no database configured: set --database-url or SHOPSCAN_DATABASE_URL")
	}

	st, err := store.New(ctx, a.Config.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.store = st
	a.Logger.Debug().Msg("product store initialized")
	return st, nil
}

// Store returns the store if it has been opened, else nil.
func (a *Application) Store() *store.Store {
	a.storeMu.Lock()
	defer a.storeMu.Unlock()
	return a.store
}

// Uptime reports how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}

// Close gracefully shuts down the application and all its resources.
func (a *Application) Close(ctx context.Context) error {
	a.storeMu.Lock()
	defer a.storeMu.Unlock()
	if a.store != nil {
		a.store.Close()
		a.store = nil
	}
	a.Logger.Debug().Dur("uptime", a.Uptime()).Msg("application closed")
	return nil
}
