package repositories

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/supabase-community/supabase-go"

	"github.com/avatarctic/volunteer-hub/internal/core/domain/auth"
	"github.com/avatarctic/volunteer-hub/internal/core/domain/volunteer"
	"github.com/avatarctic/volunteer-hub/internal/core/ports"
)

const (
	tableProfiles      = "profiles"
	tableEvents        = "events"
	tableRegistrations = "event_registrations"
)

// SupabaseDataSource talks to the hosted backend through PostgREST, with the
// service role key. Access tokens are resolved to users through GoTrue.
// The SDK takes no context, so cancellation is only checked before each call.
type SupabaseDataSource struct {
	client *supabase.Client
	logger *logrus.Logger
	now    func() time.Time
}

func NewSupabaseDataSource(url, serviceRoleKey string, logger *logrus.Logger) (*SupabaseDataSource, error) {
	client, err := supabase.NewClient(url, serviceRoleKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return &SupabaseDataSource{client: client, logger: logger, now: time.Now}, nil
}

func (s *SupabaseDataSource) GetCurrentUser(ctx context.Context) (*volunteer.User, error) {
	id, ok := auth.IdentityFrom(ctx)
	if !ok {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	userID := id.UserID
	if id.AccessToken != "" {
		u, err := s.client.Auth.WithToken(id.AccessToken).GetUser()
		if err != nil {
			if s.logger != nil {
				s.logger.WithError(err).Debug("Access token rejected by auth backend")
			}
			return nil, nil
		}
		userID = u.ID.String()
	}
	if userID == "" {
		return nil, nil
	}

	var rows []*volunteer.User
	if _, err := s.client.From(tableProfiles).Select("*", "", false).Eq("id", userID).ExecuteTo(&rows); err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	if len(rows) == 0 {
		if s.logger != nil {
			s.logger.WithField("user_id", userID).Warn("Authenticated user has no profile row")
		}
		return nil, nil
	}
	return rows[0], nil
}

func (s *SupabaseDataSource) GetAllEvents(ctx context.Context) ([]*volunteer.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	events := []*volunteer.Event{}
	if _, err := s.client.From(tableEvents).Select("*", "", false).ExecuteTo(&events); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	sortEvents(events)
	return events, nil
}

func (s *SupabaseDataSource) GetEventsByAdmin(ctx context.Context, adminID string) ([]*volunteer.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	events := []*volunteer.Event{}
	if _, err := s.client.From(tableEvents).Select("*", "", false).Eq("created_by", adminID).ExecuteTo(&events); err != nil {
		return nil, fmt.Errorf("failed to list events for admin: %w", err)
	}
	sortEvents(events)
	return events, nil
}

func (s *SupabaseDataSource) GetAllRegistrations(ctx context.Context) ([]*volunteer.Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	regs := []*volunteer.Registration{}
	if _, err := s.client.From(tableRegistrations).Select("*", "", false).ExecuteTo(&regs); err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return regs, nil
}

func (s *SupabaseDataSource) GetUserRegistrations(ctx context.Context, userID string) ([]*volunteer.Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	regs := []*volunteer.Registration{}
	if _, err := s.client.From(tableRegistrations).Select("*", "", false).Eq("user_id", userID).ExecuteTo(&regs); err != nil {
		return nil, fmt.Errorf("failed to list user registrations: %w", err)
	}
	return regs, nil
}

func (s *SupabaseDataSource) GetEventRegistrations(ctx context.Context, eventID string) ([]*volunteer.Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	regs := []*volunteer.Registration{}
	if _, err := s.client.From(tableRegistrations).Select("*", "", false).Eq("event_id", eventID).ExecuteTo(&regs); err != nil {
		return nil, fmt.Errorf("failed to list event registrations: %w", err)
	}
	return regs, nil
}

func (s *SupabaseDataSource) RegisterForEvent(ctx context.Context, eventID, userID string) (*volunteer.Registration, error) {
	existing, err := s.GetUserRegistrations(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, r := range existing {
		if r.EventID == eventID {
			return nil, ports.ErrAlreadyRegistered
		}
	}

	reg := &volunteer.Registration{
		ID:        uuid.NewString(),
		EventID:   eventID,
		UserID:    userID,
		Status:    volunteer.RegistrationStatusRegistered,
		CreatedAt: s.now().UTC(),
	}
	if _, _, err := s.client.From(tableRegistrations).Insert(reg, false, "", "", "").Execute(); err != nil {
		return nil, fmt.Errorf("failed to register for event: %w", err)
	}
	return reg, nil
}

func (s *SupabaseDataSource) CancelRegistration(ctx context.Context, eventID, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := s.client.From(tableRegistrations).Delete("", "").Eq("event_id", eventID).Eq("user_id", userID).Execute()
	if err != nil {
		return fmt.Errorf("failed to cancel registration: %w", err)
	}
	return nil
}

func (s *SupabaseDataSource) CreateEvent(ctx context.Context, createdBy string, req *volunteer.CreateEventRequest) (*volunteer.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
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
		CreatedAt:   s.now().UTC(),
	}
	if _, _, err := s.client.From(tableEvents).Insert(ev, false, "", "", "").Execute(); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return ev, nil
}

func (s *SupabaseDataSource) DeleteEvent(ctx context.Context, eventID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, err := s.client.From(tableEvents).Delete("", "").Eq("id", eventID).Execute(); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// Ping issues a cheap query; it backs the data source health check.
func (s *SupabaseDataSource) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var rows []map[string]any
	_, err := s.client.From(tableEvents).Select("id", "", false).Limit(1, "").ExecuteTo(&rows)
	return err
}

func sortEvents(events []*volunteer.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartsAt.Before(events[j].StartsAt)
	})
}
