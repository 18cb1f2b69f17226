package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	deadletterchain "github.com/bnema/keepster-cli/internal/adapters/deadletter/chain"
	deadletterfile "github.com/bnema/keepster-cli/internal/adapters/deadletter/file"
	deadletterredis "github.com/bnema/keepster-cli/internal/adapters/deadletter/redis"
	"github.com/bnema/keepster-cli/internal/adapters/library/sqlite"
	"github.com/bnema/keepster-cli/internal/adapters/library/throttle"
	"github.com/bnema/keepster-cli/internal/adapters/library/traced"
	prommetrics "github.com/bnema/keepster-cli/internal/adapters/metrics/prometheus"
	"github.com/bnema/keepster-cli/internal/adapters/render/summary"
	tomlrepo "github.com/bnema/keepster-cli/internal/adapters/repo/toml"
	"github.com/bnema/keepster-cli/internal/adapters/telemetry"
	"github.com/bnema/keepster-cli/internal/application"
	"github.com/bnema/keepster-cli/internal/config"
	"github.com/bnema/keepster-cli/internal/domain"
	"github.com/bnema/keepster-cli/internal/logging"
	"github.com/bnema/keepster-cli/internal/ports"
)

// app holds the adapters shared by one CLI invocation.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	catalog     *sqlite.Catalog
	source      ports.PagedSource
	recent      *tomlrepo.RecentCollectionRepository
	deadLetters ports.DeadLetterStore
	metrics     *prommetrics.Metrics
	telemetry   *telemetry.Provider

	summaryRenderer func([]domain.SessionSummary, summary.RenderOptions) (string, error)
	now             func() time.Time

	closers []func(context.Context) error
}

type wireOptions struct {
	LogOutput io.Writer
}

func wireApp(ctx context.Context, loaded *config.Loaded, opts wireOptions) (_ *app, err error) {
	cfg := loaded.Config
	a := &app{
		cfg:             cfg,
		summaryRenderer: summary.Render,
		now:             time.Now,
	}
	defer func() {
		if err != nil {
			_ = a.Close(context.WithoutCancel(ctx))
		}
	}()

	logger, logCloser, err := logging.New(logging.Options{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		Output:   opts.LogOutput,
		FilePath: cfg.Logging.File,
	})
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}
	a.logger = logger
	a.closers = append(a.closers, func(context.Context) error { return logCloser.Close() })

	provider, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Exporter:    cfg.Telemetry.Exporter,
		Endpoint:    cfg.Telemetry.Endpoint,
		Output:      opts.LogOutput,
	})
	if err != nil {
		return nil, fmt.Errorf("wire telemetry: %w", err)
	}
	a.telemetry = provider
	a.closers = append(a.closers, provider.Shutdown)

	catalog, err := sqlite.Open(ctx, sqlite.Options{
		Path:     cfg.Library.CatalogPath,
		TrashDir: cfg.Library.TrashDir,
	})
	if err != nil {
		return nil, fmt.Errorf("wire catalog: %w", err)
	}
	a.catalog = catalog
	a.closers = append(a.closers, func(context.Context) error { return catalog.Close() })

	throttled := throttle.New(catalog, cfg.Library.RequestsPerSecond, cfg.Library.Burst)
	a.source = traced.New(throttled, provider.Tracer())

	recent, err := tomlrepo.NewRecentCollectionRepository(loaded.Viper)
	if err != nil {
		return nil, fmt.Errorf("wire recent collections: %w", err)
	}
	a.recent = recent

	deadLetters, err := wireDeadLetters(ctx, cfg.DeadLetter, logging.Component(logger, "deadletter"))
	if err != nil {
		return nil, fmt.Errorf("wire dead-letter store: %w", err)
	}
	a.deadLetters = deadLetters.store
	if deadLetters.close != nil {
		a.closers = append(a.closers, deadLetters.close)
	}

	a.metrics = prommetrics.New()
	return a, nil
}

type wiredDeadLetters struct {
	store ports.DeadLetterStore
	close func(context.Context) error
}

// wireDeadLetters builds the configured backend. The chain backend degrades
// to files alone when Redis cannot be reached at startup.
func wireDeadLetters(ctx context.Context, cfg config.DeadLetter, logger *slog.Logger) (wiredDeadLetters, error) {
	files := deadletterfile.NewStore(cfg.Dir)
	if cfg.Backend == config.DeadLetterFile {
		return wiredDeadLetters{store: files}, nil
	}

	redisStore, err := deadletterredis.NewStore(ctx, deadletterredis.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   cfg.RedisPrefix,
	})
	if err != nil {
		if cfg.Backend == config.DeadLetterRedis {
			return wiredDeadLetters{}, err
		}
		logger.Warn("redis unavailable, keeping failed batches in files", "addr", cfg.RedisAddr, "error", err)
		return wiredDeadLetters{store: files}, nil
	}
	closeRedis := func(context.Context) error { return redisStore.Close() }

	if cfg.Backend == config.DeadLetterRedis {
		return wiredDeadLetters{store: redisStore, close: closeRedis}, nil
	}
	chained, err := deadletterchain.NewStoreChecked(redisStore, files)
	if err != nil {
		_ = redisStore.Close()
		return wiredDeadLetters{}, err
	}
	return wiredDeadLetters{store: chained, close: closeRedis}, nil
}

type engineOptions struct {
	Logger            *slog.Logger
	DisableAutoRefill bool
}

func (a *app) newEngine(opts engineOptions) *application.SessionEngine {
	logger := opts.Logger
	if logger == nil {
		logger = a.logger
	}
	session := a.cfg.Session
	return application.NewSessionEngine(a.source, application.SessionEngineOptions{
		Grace:              a.cfg.GraceDuration(),
		BatchSize:          session.BatchSize,
		PageSize:           session.PageSize,
		MembershipPageSize: session.MembershipPageSize,
		LowWater:           session.LowWater,
		Buffer:             session.Buffer,
		DisableAutoRefill:  opts.DisableAutoRefill,
		FlushTimeout:       a.cfg.FlushTimeoutDuration(),
		RecentLimit:        a.cfg.Recent.Limit,
		History:            a.catalog,
		Recent:             a.recent,
		DeadLetters:        a.deadLetters,
		Metrics:            a.metrics,
		Logger:             logger,
		NewID:              uuid.NewString,
	})
}

func (a *app) collectionService(membership *application.MembershipIndex) *application.CollectionService {
	return application.NewCollectionService(a.source, a.recent, membership, a.cfg.Recent.Limit, a.logger)
}

func (a *app) deadLetterService() *application.DeadLetterService {
	return application.NewDeadLetterService(a.deadLetters, a.source, a.logger)
}

func (a *app) analysisService(logger *slog.Logger) *application.AnalysisService {
	return application.NewAnalysisService(ports.SystemClock{}, a.cfg.AnalysisIntervalDuration(), logger)
}

// Close releases adapters in reverse wiring order.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
