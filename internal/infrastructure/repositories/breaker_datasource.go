package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/avatarctic/volunteer-hub/internal/core/domain/volunteer"
	"github.com/avatarctic/volunteer-hub/internal/core/ports"
)

// ErrDataSourceUnavailable is returned while the breaker is open.
var ErrDataSourceUnavailable = errors.New("data source temporarily unavailable")

type BreakerSettings struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// BreakerDataSource decorates a DataSource with a circuit breaker so a failing
// backend stops preload jobs quickly instead of letting each one wait out the
// network.
type BreakerDataSource struct {
	inner  ports.DataSource
	cb     *gobreaker.CircuitBreaker
	logger *logrus.Logger
}

func NewBreakerDataSource(inner ports.DataSource, cfg BreakerSettings, logger *logrus.Logger) *BreakerDataSource {
	if cfg.Name == "" {
		cfg.Name = "datasource"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	b := &BreakerDataSource{inner: inner, logger: logger}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger != nil {
				logger.WithFields(logrus.Fields{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("Data source circuit breaker state changed")
			}
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ports.ErrNotFound) ||
				errors.Is(err, ports.ErrAlreadyRegistered) ||
				errors.Is(err, context.Canceled)
		},
	})
	return b
}

// State reports the breaker state; the health check fails while it is open.
func (b *BreakerDataSource) State() gobreaker.State {
	return b.cb.State()
}

func execute[T any](b *BreakerDataSource, fn func() (T, error)) (T, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, ErrDataSourceUnavailable
		}
		return zero, err
	}
	v, _ := res.(T)
	return v, nil
}

func (b *BreakerDataSource) GetCurrentUser(ctx context.Context) (*volunteer.User, error) {
	return execute(b, func() (*volunteer.User, error) { return b.inner.GetCurrentUser(ctx) })
}

func (b *BreakerDataSource) GetAllEvents(ctx context.Context) ([]*volunteer.Event, error) {
	return execute(b, func() ([]*volunteer.Event, error) { return b.inner.GetAllEvents(ctx) })
}

func (b *BreakerDataSource) GetEventsByAdmin(ctx context.Context, adminID string) ([]*volunteer.Event, error) {
	return execute(b, func() ([]*volunteer.Event, error) { return b.inner.GetEventsByAdmin(ctx, adminID) })
}

func (b *BreakerDataSource) GetAllRegistrations(ctx context.Context) ([]*volunteer.Registration, error) {
	return execute(b, func() ([]*volunteer.Registration, error) { return b.inner.GetAllRegistrations(ctx) })
}

func (b *BreakerDataSource) GetUserRegistrations(ctx context.Context, userID string) ([]*volunteer.Registration, error) {
	return execute(b, func() ([]*volunteer.Registration, error) { return b.inner.GetUserRegistrations(ctx, userID) })
}

func (b *BreakerDataSource) GetEventRegistrations(ctx context.Context, eventID string) ([]*volunteer.Registration, error) {
	return execute(b, func() ([]*volunteer.Registration, error) { return b.inner.GetEventRegistrations(ctx, eventID) })
}

func (b *BreakerDataSource) RegisterForEvent(ctx context.Context, eventID, userID string) (*volunteer.Registration, error) {
	return execute(b, func() (*volunteer.Registration, error) { return b.inner.RegisterForEvent(ctx, eventID, userID) })
}

func (b *BreakerDataSource) CancelRegistration(ctx context.Context, eventID, userID string) error {
	_, err := execute(b, func() (struct{}, error) { return struct{}{}, b.inner.CancelRegistration(ctx, eventID, userID) })
	return err
}

func (b *BreakerDataSource) CreateEvent(ctx context.Context, createdBy string, req *volunteer.CreateEventRequest) (*volunteer.Event, error) {
	return execute(b, func() (*volunteer.Event, error) { return b.inner.CreateEvent(ctx, createdBy, req) })
}

func (b *BreakerDataSource) DeleteEvent(ctx context.Context, eventID string) error {
	_, err := execute(b, func() (struct{}, error) { return struct{}{}, b.inner.DeleteEvent(ctx, eventID) })
	return err
}
