package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/volunteer-hub/internal/core/domain/auth"
	"github.com/avatarctic/volunteer-hub/internal/core/domain/volunteer"
	"github.com/avatarctic/volunteer-hub/internal/core/ports"
	"github.com/avatarctic/volunteer-hub/internal/infrastructure/db"
)

const (
	profileColumns      = `id, email, full_name, is_admin, coins, level, avatar_url, created_at`
	eventColumns        = `id, title, description, location, starts_at, ends_at, capacity, coin_reward, created_by, created_at`
	registrationColumns = `id, event_id, user_id, status, created_at`

	uniqueViolation = "23505"
)

// PostgresDataSource reads the app schema directly. The acting user comes from
// the identity in the context; the token was already verified at the edge.
type PostgresDataSource struct {
	db     *db.Database
	logger *logrus.Logger
	now    func() time.Time
}

func NewPostgresDataSource(database *db.Database, logger *logrus.Logger) *PostgresDataSource {
	return &PostgresDataSource{db: database, logger: logger, now: time.Now}
}

func (r *PostgresDataSource) GetCurrentUser(ctx context.Context) (*volunteer.User, error) {
	id, ok := auth.IdentityFrom(ctx)
	if !ok || id.UserID == "" {
		return nil, nil
	}
	var u volunteer.User
	err := r.db.DB.GetContext(ctx, &u, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		if r.logger != nil {
			r.logger.WithField("user_id", id.UserID).Warn("Authenticated user has no profile row")
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return &u, nil
}

func (r *PostgresDataSource) GetAllEvents(ctx context.Context) ([]*volunteer.Event, error) {
	events := []*volunteer.Event{}
	if err := r.db.DB.SelectContext(ctx, &events, `SELECT `+eventColumns+` FROM events ORDER BY starts_at`); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (r *PostgresDataSource) GetEventsByAdmin(ctx context.Context, adminID string) ([]*volunteer.Event, error) {
	events := []*volunteer.Event{}
	query := `SELECT ` + eventColumns + ` FROM events WHERE created_by = $1 ORDER BY starts_at`
	if err := r.db.DB.SelectContext(ctx, &events, query, adminID); err != nil {
		return nil, fmt.Errorf("failed to list events for admin: %w", err)
	}
	return events, nil
}

func (r *PostgresDataSource) GetAllRegistrations(ctx context.Context) ([]*volunteer.Registration, error) {
	regs := []*volunteer.Registration{}
	query := `SELECT ` + registrationColumns + ` FROM event_registrations ORDER BY created_at`
	if err := r.db.DB.SelectContext(ctx, &regs, query); err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return regs, nil
}

func (r *PostgresDataSource) GetUserRegistrations(ctx context.Context, userID string) ([]*volunteer.Registration, error) {
	regs := []*volunteer.Registration{}
	query := `SELECT ` + registrationColumns + ` FROM event_registrations WHERE user_id = $1 ORDER BY created_at`
	if err := r.db.DB.SelectContext(ctx, &regs, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list user registrations: %w", err)
	}
	return regs, nil
}

func (r *PostgresDataSource) GetEventRegistrations(ctx context.Context, eventID string) ([]*volunteer.Registration, error) {
	regs := []*volunteer.Registration{}
	query := `SELECT ` + registrationColumns + ` FROM event_registrations WHERE event_id = $1 ORDER BY created_at`
	if err := r.db.DB.SelectContext(ctx, &regs, query, eventID); err != nil {
		return nil, fmt.Errorf("failed to list event registrations: %w", err)
	}
	return regs, nil
}

func (r *PostgresDataSource) RegisterForEvent(ctx context.Context, eventID, userID string) (*volunteer.Registration, error) {
	reg := &volunteer.Registration{
		ID:        uuid.NewString(),
		EventID:   eventID,
		UserID:    userID,
		Status:    volunteer.RegistrationStatusRegistered,
		CreatedAt: r.now().UTC(),
	}
	_, err := r.db.DB.NamedExecContext(ctx, `
		INSERT INTO event_registrations (id, event_id, user_id, status, created_at)
		VALUES (:id, :event_id, :user_id, :status, :created_at)`, reg)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ports.ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("failed to register for event: %w", err)
	}
	return reg, nil
}

func (r *PostgresDataSource) CancelRegistration(ctx context.Context, eventID, userID string) error {
	res, err := r.db.DB.ExecContext(ctx,
		`DELETE FROM event_registrations WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return fmt.Errorf("failed to cancel registration: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *PostgresDataSource) CreateEvent(ctx context.Context, createdBy string, req *volunteer.CreateEventRequest) (*volunteer.Event, error) {
	ev := &volunteer.Event{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Capacity:    req.Capacity,
		CoinReward:  req.CoinReward,
		CreatedBy:   createdBy,
		CreatedAt:   r.now().UTC(),
	}
	_, err := r.db.DB.NamedExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES (:id, :title, :description, :location, :starts_at, :ends_at, :capacity, :coin_reward, :created_by, :created_at)`, ev)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return ev, nil
}

func (r *PostgresDataSource) DeleteEvent(ctx context.Context, eventID string) error {
	res, err := r.db.DB.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ports.ErrNotFound
	}
	return nil
}
