package ports

import (
	"context"
	"errors"

	"github.com/avatarctic/volunteer-hub/internal/core/domain/volunteer"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyRegistered = errors.New("already registered for event")
)

// DataSource is the authoritative remote store of profiles, events and
// registrations. The acting user is read from the context (see auth.WithIdentity).
// Payloads pass through the cache unmodified.
type DataSource interface {
	// GetCurrentUser returns nil, nil when the context carries no signed-in user.
	GetCurrentUser(ctx context.Context) (*volunteer.User, error)
	GetAllEvents(ctx context.Context) ([]*volunteer.Event, error)
	GetEventsByAdmin(ctx context.Context, adminID string) ([]*volunteer.Event, error)
	GetAllRegistrations(ctx context.Context) ([]*volunteer.Registration, error)
	GetUserRegistrations(ctx context.Context, userID string) ([]*volunteer.Registration, error)
	GetEventRegistrations(ctx context.Context, eventID string) ([]*volunteer.Registration, error)
	RegisterForEvent(ctx context.Context, eventID, userID string) (*volunteer.Registration, error)
	CancelRegistration(ctx context.Context, eventID, userID string) error
	CreateEvent(ctx context.Context, createdBy string, req *volunteer.CreateEventRequest) (*volunteer.Event, error)
	DeleteEvent(ctx context.Context, eventID string) error
}
