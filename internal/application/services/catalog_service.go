package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/avatarctic/volunteer-hub/internal/core/domain/cachekey"
	"github.com/avatarctic/volunteer-hub/internal/core/domain/volunteer"
	"github.com/avatarctic/volunteer-hub/internal/core/ports"
)

// CatalogService serves reads from the domain cache, falling back to the data
// source on a miss, and invalidates affected entries after every mutation.
// Concurrent misses for one key each hit the data source unless coalescing is
// enabled.
type CatalogService struct {
	ds       ports.DataSource
	cache    *DomainCache
	coalesce bool
	sf       singleflight.Group
	logger   *logrus.Logger
}

func NewCatalogService(ds ports.DataSource, cache *DomainCache, coalesceMisses bool, logger *logrus.Logger) *CatalogService {
	return &CatalogService{ds: ds, cache: cache, coalesce: coalesceMisses, logger: logger}
}

func readThrough[T any](s *CatalogService, key string, get func() (T, bool), load func() (T, error), set func(T)) (T, error) {
	if v, ok := get(); ok {
		return v, nil
	}
	fetch := func() (T, error) {
		v, err := load()
		if err != nil {
			return v, err
		}
		set(v)
		return v, nil
	}
	if !s.coalesce {
		return fetch()
	}
	res, err, shared := s.sf.Do(key, func() (any, error) {
		if v, ok := get(); ok {
			return v, nil
		}
		return fetch()
	})
	if shared && s.logger != nil {
		s.logger.WithField("key", key).Debug("Coalesced concurrent cache miss")
	}
	if err != nil {
		var zero T
		return zero, err
	}
	v, ok := res.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("unexpected type from singleflight result for %s", key)
	}
	return v, nil
}

// CurrentUser returns the signed-in user's profile.
func (s *CatalogService) CurrentUser(ctx context.Context, userID string) (*volunteer.User, error) {
	u, err := readThrough(s, cachekey.UserData(userID),
		func() (*volunteer.User, bool) { return s.cache.GetUserData(ctx, userID) },
		func() (*volunteer.User, error) {
			u, err := s.ds.GetCurrentUser(ctx)
			if err != nil {
				return nil, err
			}
			if u == nil {
				return nil, ErrNotAuthenticated
			}
			return u, nil
		},
		func(u *volunteer.User) { s.cache.SetUserData(ctx, u) },
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load current user: %w", err)
	}
	return u, nil
}

// Events returns the generic event catalog.
func (s *CatalogService) Events(ctx context.Context) ([]*volunteer.Event, error) {
	return readThrough(s, cachekey.AllEvents,
		func() ([]*volunteer.Event, bool) { return s.cache.GetEvents(ctx) },
		func() ([]*volunteer.Event, error) { return s.ds.GetAllEvents(ctx) },
		func(v []*volunteer.Event) { s.cache.SetEvents(ctx, v) },
	)
}

func (s *CatalogService) VolunteerEvents(ctx context.Context) ([]*volunteer.Event, error) {
	return readThrough(s, cachekey.VolunteerEvents,
		func() ([]*volunteer.Event, bool) { return s.cache.GetVolunteerEvents(ctx) },
		func() ([]*volunteer.Event, error) { return s.ds.GetAllEvents(ctx) },
		func(v []*volunteer.Event) { s.cache.SetVolunteerEvents(ctx, v) },
	)
}

func (s *CatalogService) VolunteerRegistrations(ctx context.Context, userID string) ([]*volunteer.Registration, error) {
	return readThrough(s, cachekey.VolunteerRegistrations(userID),
		func() ([]*volunteer.Registration, bool) { return s.cache.GetVolunteerRegistrations(ctx, userID) },
		func() ([]*volunteer.Registration, error) { return s.ds.GetUserRegistrations(ctx, userID) },
		func(v []*volunteer.Registration) { s.cache.SetVolunteerRegistrations(ctx, userID, v) },
	)
}

func (s *CatalogService) AdminEvents(ctx context.Context, adminID string) ([]*volunteer.Event, error) {
	return readThrough(s, cachekey.AdminEvents(adminID),
		func() ([]*volunteer.Event, bool) { return s.cache.GetAdminEvents(ctx, adminID) },
		func() ([]*volunteer.Event, error) { return s.ds.GetEventsByAdmin(ctx, adminID) },
		func(v []*volunteer.Event) { s.cache.SetAdminEvents(ctx, adminID, v) },
	)
}

// AdminRegistrations returns registrations for the admin's own events.
func (s *CatalogService) AdminRegistrations(ctx context.Context, adminID string) ([]*volunteer.Registration, error) {
	return readThrough(s, cachekey.AdminRegistrations(adminID),
		func() ([]*volunteer.Registration, bool) { return s.cache.GetAdminRegistrations(ctx, adminID) },
		func() ([]*volunteer.Registration, error) {
			events, err := s.AdminEvents(ctx, adminID)
			if err != nil {
				return nil, err
			}
			regs, err := s.ds.GetAllRegistrations(ctx)
			if err != nil {
				return nil, err
			}
			return volunteer.FilterRegistrationsForEvents(regs, events), nil
		},
		func(v []*volunteer.Registration) { s.cache.SetAdminRegistrations(ctx, adminID, v) },
	)
}

func (s *CatalogService) EventRegistrations(ctx context.Context, eventID string) ([]*volunteer.Registration, error) {
	return readThrough(s, cachekey.EventRegistrations(eventID),
		func() ([]*volunteer.Registration, bool) { return s.cache.GetEventRegistrations(ctx, eventID) },
		func() ([]*volunteer.Registration, error) { return s.ds.GetEventRegistrations(ctx, eventID) },
		func(v []*volunteer.Registration) { s.cache.SetEventRegistrations(ctx, eventID, v) },
	)
}

// RegisterForEvent signs userID up and evicts the listings that changed. The
// event's owner is not known here, so every admin aggregate is dropped.
func (s *CatalogService) RegisterForEvent(ctx context.Context, eventID, userID string) (*volunteer.Registration, error) {
	reg, err := s.ds.RegisterForEvent(ctx, eventID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to register for event: %w", err)
	}
	s.invalidateRegistration(ctx, eventID, userID)
	return reg, nil
}

func (s *CatalogService) CancelRegistration(ctx context.Context, eventID, userID string) error {
	if err := s.ds.CancelRegistration(ctx, eventID, userID); err != nil {
		return fmt.Errorf("failed to cancel registration: %w", err)
	}
	s.invalidateRegistration(ctx, eventID, userID)
	return nil
}

func (s *CatalogService) invalidateRegistration(ctx context.Context, eventID, userID string) {
	s.cache.InvalidateUserData(ctx, userID)
	s.cache.InvalidateFacets(ctx, userID, cachekey.FacetVolunteerRegistrations)
	s.cache.InvalidateEventRegistrations(ctx, eventID)
	s.cache.InvalidateAdminData(ctx, "")
}

func (s *CatalogService) CreateEvent(ctx context.Context, adminID string, req *volunteer.CreateEventRequest) (*volunteer.Event, error) {
	ev, err := s.ds.CreateEvent(ctx, adminID, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	s.cache.InvalidateAdminData(ctx, adminID)
	s.cache.InvalidateCatalog(ctx)
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"event_id": ev.ID, "admin_id": adminID}).Info("Event created")
	}
	return ev, nil
}

// DeleteEvent removes one of adminID's events and everything cached about it,
// including every volunteer's registrations. Events owned by other admins are
// reported as not found.
func (s *CatalogService) DeleteEvent(ctx context.Context, adminID, eventID string) error {
	owned, err := s.ds.GetEventsByAdmin(ctx, adminID)
	if err != nil {
		return fmt.Errorf("failed to load admin events: %w", err)
	}
	if !containsEvent(owned, eventID) {
		return fmt.Errorf("event %s: %w", eventID, ports.ErrNotFound)
	}
	if err := s.ds.DeleteEvent(ctx, eventID); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	s.cache.InvalidateAdminData(ctx, adminID)
	s.cache.InvalidateCatalog(ctx)
	s.cache.InvalidateEventRegistrations(ctx, eventID)
	s.cache.InvalidateVolunteerData(ctx)
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"event_id": eventID, "admin_id": adminID}).Info("Event deleted")
	}
	return nil
}

func containsEvent(events []*volunteer.Event, id string) bool {
	for _, e := range events {
		if e != nil && e.ID == id {
			return true
		}
	}
	return false
}
