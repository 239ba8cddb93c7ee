package health

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sony/gobreaker"

	"github.com/avatarctic/volunteer-hub/internal/core/ports"
	infraDB "github.com/avatarctic/volunteer-hub/internal/infrastructure/db"
)

// ErrCircuitOpen is reported while the data source breaker rejects calls.
var ErrCircuitOpen = errors.New("data source circuit breaker is open")

// dbHealthChecker wraps the database for health checks.
type dbHealthChecker struct{ db *infraDB.Database }

func (d *dbHealthChecker) Name() string                    { return "database" }
func (d *dbHealthChecker) Check(ctx context.Context) error { return d.db.Ping(ctx) }

// redisHealthChecker wraps the redis client for health checks.
type redisHealthChecker struct{ client redis.Cmdable }

func (r *redisHealthChecker) Name() string                    { return "redis" }
func (r *redisHealthChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// BreakerState is implemented by the circuit-breaking data source wrapper.
type BreakerState interface {
	State() gobreaker.State
}

// Pinger is implemented by data sources that can probe their backend cheaply.
type Pinger interface {
	Ping(ctx context.Context) error
}

// dataSourceHealthChecker fails while the breaker is open, then pings the
// backend when a pinger is available.
type dataSourceHealthChecker struct {
	breaker BreakerState
	pinger  Pinger
}

func (d *dataSourceHealthChecker) Name() string { return "datasource" }

func (d *dataSourceHealthChecker) Check(ctx context.Context) error {
	if d.breaker != nil && d.breaker.State() == gobreaker.StateOpen {
		return ErrCircuitOpen
	}
	if d.pinger == nil {
		return nil
	}
	if err := d.pinger.Ping(ctx); err != nil {
		return fmt.Errorf("data source ping failed: %w", err)
	}
	return nil
}

// NewDBHealthChecker creates a health checker for the database.
func NewDBHealthChecker(db *infraDB.Database) ports.HealthChecker { return &dbHealthChecker{db: db} }

// NewRedisHealthChecker creates a health checker for Redis.
func NewRedisHealthChecker(client redis.Cmdable) ports.HealthChecker {
	return &redisHealthChecker{client: client}
}

// NewDataSourceHealthChecker creates a health checker for the event data source.
// Either argument may be nil.
func NewDataSourceHealthChecker(breaker BreakerState, pinger Pinger) ports.HealthChecker {
	return &dataSourceHealthChecker{breaker: breaker, pinger: pinger}
}
