package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	config "github.com/avatarctic/volunteer-hub/configs"
	"github.com/avatarctic/volunteer-hub/internal/application/services"
	"github.com/avatarctic/volunteer-hub/internal/core/domain/navigation"
	"github.com/avatarctic/volunteer-hub/internal/core/ports"
	"github.com/avatarctic/volunteer-hub/internal/infrastructure/cache"
	"github.com/avatarctic/volunteer-hub/internal/infrastructure/db"
	"github.com/avatarctic/volunteer-hub/internal/infrastructure/health"
	"github.com/avatarctic/volunteer-hub/internal/infrastructure/metrics"
	"github.com/avatarctic/volunteer-hub/internal/infrastructure/policywatch"
	"github.com/avatarctic/volunteer-hub/internal/infrastructure/redis"
	"github.com/avatarctic/volunteer-hub/internal/infrastructure/repositories"
)

// app holds everything serve and warm share. Close releases it in reverse
// order of construction.
type app struct {
	cfg    *config.Config
	logger *logrus.Logger

	registry *prometheus.Registry
	metrics  *metrics.Prometheus

	dataSource ports.DataSource
	store      ports.Cache
	sweeper    *cache.MemoryStore
	cache      *services.DomainCache
	policy     services.PolicyProvider
	limiter    ports.RateLimiter
	checkers   []ports.HealthChecker

	closers []func()
}

func newApp(cfg *config.Config, logger *logrus.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.NewPrometheus(a.registry)

	if err := a.initDataSource(); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initStore(); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initPolicy(); err != nil {
		a.Close()
		return nil, err
	}

	a.cache = services.NewDomainCache(a.store, services.DefaultDomainCacheTTLs(), logger, a.metrics)
	return a, nil
}

func (a *app) initDataSource() error {
	var (
		inner  ports.DataSource
		pinger health.Pinger
	)
	switch a.cfg.DataSource.Kind {
	case config.DataSourcePostgres:
		database, err := db.Open(&a.cfg.Database)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = database.Close() })
		a.checkers = append(a.checkers, health.NewDBHealthChecker(database))
		inner = repositories.NewPostgresDataSource(database, a.logger)
		a.logger.Info("Connected to database successfully")
	default:
		sb, err := repositories.NewSupabaseDataSource(a.cfg.Supabase.URL, a.cfg.Supabase.ServiceRoleKey, a.logger)
		if err != nil {
			return err
		}
		inner, pinger = sb, sb
	}

	breaker := repositories.NewBreakerDataSource(inner, repositories.BreakerSettings{
		Name:             a.cfg.DataSource.Kind,
		MaxRequests:      a.cfg.Breaker.MaxRequests,
		Interval:         a.cfg.Breaker.Interval,
		Timeout:          a.cfg.Breaker.Timeout,
		FailureThreshold: a.cfg.Breaker.FailureThreshold,
	}, a.logger)
	a.dataSource = breaker
	a.checkers = append(a.checkers, health.NewDataSourceHealthChecker(breaker, pinger))
	return nil
}

func (a *app) initStore() error {
	if !a.cfg.Redis.Enabled {
		a.sweeper = cache.NewMemoryStore(a.cfg.Cache.DefaultTTL, cache.WithMetrics(a.metrics))
		a.store = a.sweeper
		return nil
	}

	client, err := redis.NewRedisClient(&a.cfg.Redis)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	a.checkers = append(a.checkers, health.NewRedisHealthChecker(client))
	a.store = redis.NewStore(client, a.cfg.Redis.Prefix, a.cfg.Cache.DefaultTTL)
	// Limiter counters live outside the store prefix so Clear leaves them alone.
	a.limiter = services.NewRateLimiterService(repositories.NewRateLimitRedisRepository(client), &services.RateLimiterConfig{
		RequestsPerWindow: a.cfg.RateLimit.RequestsPerWindow,
		BurstMultiplier:   a.cfg.RateLimit.BurstMultiplier,
		Window:            a.cfg.RateLimit.Window,
		KeyPrefix:         a.cfg.RateLimit.KeyPrefix + ":" + a.cfg.Redis.Prefix,
	}, a.logger)
	a.logger.Info("Connected to Redis successfully")
	return nil
}

func (a *app) initPolicy() error {
	path := a.cfg.Navigation.PolicyFile
	if path == "" {
		a.policy = services.StaticPolicy{Policy: navigation.Default()}
		return nil
	}

	w, err := policywatch.New(path, a.logger)
	if err != nil {
		return fmt.Errorf("failed to load navigation policy: %w", err)
	}
	if a.cfg.Navigation.WatchPolicy {
		if err := w.Start(); err != nil {
			return err
		}
		a.closers = append(a.closers, w.Stop)
	}
	a.policy = w
	return nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := newLogger(cfg.Log)
	return newApp(cfg, logger)
}
