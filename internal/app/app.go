package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/lingua-backend/internal/cache"
	"github.com/yungbote/lingua-backend/internal/data/aggregates"
	"github.com/yungbote/lingua-backend/internal/data/db"
	domainagg "github.com/yungbote/lingua-backend/internal/domain/aggregates"
	"github.com/yungbote/lingua-backend/internal/domain/learning"
	lhttp "github.com/yungbote/lingua-backend/internal/http"
	"github.com/yungbote/lingua-backend/internal/http/handlers"
	"github.com/yungbote/lingua-backend/internal/jobs/curriculumbuild"
	"github.com/yungbote/lingua-backend/internal/jobs/worker"
	"github.com/yungbote/lingua-backend/internal/modules/learning/generate"
	"github.com/yungbote/lingua-backend/internal/observability"
	"github.com/yungbote/lingua-backend/internal/platform/logger"
	"github.com/yungbote/lingua-backend/internal/platform/openai"
	"github.com/yungbote/lingua-backend/internal/services"
)

// App owns every long-lived component. Nothing here is process-global except the
// OTel tracer provider, which InitOTel installs when tracing is enabled.
type App struct {
	Log     *logger.Logger
	Cfg     Config
	DB      *db.Service
	Redis   goredis.UniversalClient
	Metrics *observability.Metrics

	Cache     *cache.Cache
	Store     domainagg.ContentStoreAggregate
	Generator *generate.Service
	Worker    *worker.Worker
	Curricula services.CurriculumService
	Server    *lhttp.Server

	shutdownOTel func(context.Context) error
	cancel       context.CancelFunc
}

// New builds the application from cfg. On error everything opened so far is closed.
func New(cfg Config) (_ *App, err error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a := &App{Log: log, Cfg: cfg, shutdownOTel: func(context.Context) error { return nil }}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	if cfg.Observability.MetricsEnabled {
		a.Metrics = observability.New()
	}
	a.shutdownOTel = observability.InitOTel(context.Background(), log, observability.OtelConfig{
		Enabled:     cfg.Observability.OTelEnabled,
		ServiceName: cfg.Observability.OTelServiceName,
		Environment: cfg.Observability.Environment,
		Endpoint:    cfg.Observability.OTelEndpoint,
		Headers:     observability.ParseHeaders(cfg.Observability.OTelHeaders),
		Insecure:    cfg.Observability.OTelInsecure,
		SampleRatio: cfg.Observability.OTelSampleRatio,
	})

	log.Info("Connecting database...", "driver", cfg.DB.Driver)
	a.DB, err = db.Open(db.Config{
		Driver:       cfg.DB.Driver,
		DSN:          cfg.DB.DSN,
		MaxOpenConns: cfg.DB.MaxOpenConns,
		MaxIdleConns: cfg.DB.MaxIdleConns,

		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		SlowThreshold:   cfg.DB.SlowThreshold,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := db.Migrate(a.DB.DB()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	store, err := a.wireCacheStore()
	if err != nil {
		return nil, err
	}
	a.Cache = cache.New(cache.Options{Store: store, Log: log, Hooks: metricsHooks(a.Metrics)})

	a.Store = aggregates.NewContentStoreAggregate(aggregates.ContentStoreDeps{
		Base: aggregates.BaseDeps{
			DB:    a.DB.DB(),
			Log:   log,
			Hooks: aggregates.NewObservabilityHooks(a.Metrics),
		},
		SegmentPolicy: segmentPolicy(cfg),
	})
	contract := a.Store.Contract()
	log.Info("Content store ready", "aggregate", contract.Name, "tables", contract.Tables)

	llm, err := wireLLM(log, cfg, a.Metrics)
	if err != nil {
		return nil, err
	}
	a.Generator, err = generate.New(log, a.Cache, generate.LLMGenerator(llm), nil, generate.Config{
		LessonCount:    cfg.Generation.LessonCount,
		FlashcardCount: cfg.Generation.FlashcardCount,
		ExerciseCount:  cfg.Generation.ExerciseCount,
		Segments:       segmentPolicy(cfg),
	})
	if err != nil {
		return nil, err
	}

	a.Worker, err = wireWorker(log, cfg, a.Metrics, a.Store, a.Generator)
	if err != nil {
		return nil, err
	}
	a.Curricula = services.NewCurriculumService(log, a.Store, a.Generator, a.Worker)
	a.Server = lhttp.NewServer(cfg.Addr(), a.routerConfig())
	return a, nil
}

// Start launches the worker pool and background collectors.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.Worker.Start(ctx)
	a.Metrics.StartDBCollector(ctx, a.Log, a.DB.DB(), 0)
	if a.Redis != nil {
		a.Metrics.StartRedisCollector(ctx, a.Log, a.Redis, 0)
	}
}

// Run serves HTTP until the server is shut down.
func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("HTTP server listening", "addr", a.Cfg.Addr())
	return a.Server.Run()
}

// Close stops HTTP, drains the worker pool, flushes tracing and closes redis and the DB.
func (a *App) Close(ctx context.Context) error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if a.Worker != nil {
		if err := a.Worker.Close(a.Cfg.ShutdownTimeout()); err != nil {
			errs = append(errs, err)
		}
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.shutdownOTel != nil {
		if err := a.shutdownOTel(ctx); err != nil {
			errs = append(errs, fmt.Errorf("otel shutdown: %w", err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("db close: %w", err))
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
	return errors.Join(errs...)
}

func (a *App) routerConfig() lhttp.RouterConfig {
	serviceName := ""
	if a.Cfg.Observability.OTelEnabled {
		serviceName = a.Cfg.Observability.OTelServiceName
	}
	return lhttp.RouterConfig{
		Log:               a.Log,
		Metrics:           a.Metrics,
		CORSOrigins:       a.Cfg.HTTP.CORSAllowedOrigins,
		ServiceName:       serviceName,
		CurriculumHandler: handlers.NewCurriculumHandler(a.Curricula),
		HealthHandler:     newHealthHandler(a.DB, a.Redis),
	}
}

func segmentPolicy(cfg Config) learning.SegmentPolicy {
	return learning.SegmentPolicy{Min: cfg.Generation.SimulationMinSegments, Max: cfg.Generation.SimulationMaxSegments}
}

// metricsHooks keeps a nil registry from becoming a non-nil interface.
func metricsHooks(m *observability.Metrics) cache.Hooks {
	if m == nil {
		return nil
	}
	return m
}

func (a *App) wireCacheStore() (cache.Store, error) {
	switch a.Cfg.Cache.Backend {
	case CacheBackendMemory:
		return cache.NewMemoryStore(a.Cfg.Cache.Capacity), nil
	case CacheBackendRedis:
		a.Redis = goredis.NewClient(&goredis.Options{
			Addr:     a.Cfg.Cache.RedisAddr,
			Password: a.Cfg.Cache.RedisPassword,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		a.Log.Info("Content cache backed by redis", "addr", a.Cfg.Cache.RedisAddr)
		return cache.NewRedisStore(a.Redis, a.Cfg.Cache.RedisPrefix), nil
	default:
		return cache.NewDBStore(a.DB.DB(), a.Log), nil
	}
}

func wireLLM(log *logger.Logger, cfg Config, metrics *observability.Metrics) (openai.Client, error) {
	client, err := openai.NewClient(log, openai.Config{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.Model,
		Temperature: cfg.OpenAI.Temperature,
		Timeout:     time.Duration(cfg.OpenAI.TimeoutSeconds) * time.Second,
		MaxRetries:  cfg.OpenAI.MaxRetries,
	}, metrics)
	if err != nil {
		return nil, fmt.Errorf("init openai client: %w", err)
	}
	return client, nil
}

func wireWorker(log *logger.Logger, cfg Config, metrics *observability.Metrics, store domainagg.ContentStoreAggregate, gen *generate.Service) (*worker.Worker, error) {
	registry := worker.NewRegistry()
	if err := registry.Register(curriculumbuild.New(log, store, gen, cfg.Worker.ArtifactConcurrency)); err != nil {
		return nil, fmt.Errorf("register curriculum build: %w", err)
	}
	w, err := worker.New(log, registry, worker.Config{
		Concurrency: cfg.Worker.Concurrency,
		QueueSize:   cfg.Worker.QueueSize,
	}, metrics)
	if err != nil {
		return nil, fmt.Errorf("init worker: %w", err)
	}
	return w, nil
}

func newHealthHandler(dbs *db.Service, rdb goredis.UniversalClient) *handlers.HealthHandler {
	checks := map[string]handlers.HealthCheckFunc{
		"db": func(ctx context.Context) error {
			sqlDB, err := dbs.DB().DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return handlers.NewHealthHandler(checks)
}
