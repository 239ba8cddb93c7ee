package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/avatarctic/volunteer-hub/internal/core/domain/cachekey"
	"github.com/avatarctic/volunteer-hub/internal/core/domain/volunteer"
	"github.com/avatarctic/volunteer-hub/internal/core/ports"
)

var (
	ErrNotAuthenticated   = errors.New("no authenticated user")
	ErrUnknownRefreshKind = errors.New("unknown refresh kind")
)

// WarmResult describes one warm pass. A pass that found no user, or one that
// was skipped because another pass was running, has no facets.
type WarmResult struct {
	Skipped  bool                     `json:"skipped"`
	UserID   string                   `json:"user_id,omitempty"`
	Role     volunteer.Role           `json:"role,omitempty"`
	Warmed   []cachekey.Facet         `json:"warmed"`
	Failed   map[cachekey.Facet]error `json:"-"`
	Duration time.Duration            `json:"duration_ns"`
}

// FailedFacets lists the facets that stayed cold, for logs and responses.
func (r *WarmResult) FailedFacets() []cachekey.Facet {
	out := make([]cachekey.Facet, 0, len(r.Failed))
	for f := range r.Failed {
		out = append(out, f)
	}
	return out
}

func (r *WarmResult) fail(f cachekey.Facet, err error) {
	if r.Failed == nil {
		r.Failed = make(map[cachekey.Facet]error)
	}
	r.Failed[f] = err
}

// CacheWarmer fills the domain cache for the signed-in user. At most one pass
// runs at a time; overlapping calls return a skipped result. Fetch failures
// are logged and leave that facet cold.
type CacheWarmer struct {
	ds      ports.DataSource
	cache   *DomainCache
	logger  *logrus.Logger
	metrics ports.Metrics

	mu      sync.Mutex
	warming bool
}

func NewCacheWarmer(ds ports.DataSource, cache *DomainCache, logger *logrus.Logger, metrics ports.Metrics) *CacheWarmer {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &CacheWarmer{ds: ds, cache: cache, logger: logger, metrics: metrics}
}

func (w *CacheWarmer) begin() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.warming {
		return false
	}
	w.warming = true
	return true
}

func (w *CacheWarmer) end() {
	w.mu.Lock()
	w.warming = false
	w.mu.Unlock()
}

// IsWarming reports whether a pass is in flight.
func (w *CacheWarmer) IsWarming() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.warming
}

// WarmCache populates the user's profile and the role's listings.
func (w *CacheWarmer) WarmCache(ctx context.Context) *WarmResult {
	if !w.begin() {
		if w.logger != nil {
			w.logger.Debug("Cache warm already in progress, skipping")
		}
		return &WarmResult{Skipped: true}
	}
	defer w.end()

	user, res := w.currentUser(ctx)
	if user == nil {
		return res
	}
	return w.warmFor(ctx, user, time.Now())
}

// RewarmCache drops everything the signed-in user could have warmed, then
// warms again.
func (w *CacheWarmer) RewarmCache(ctx context.Context) *WarmResult {
	if !w.begin() {
		return &WarmResult{Skipped: true}
	}
	defer w.end()

	user, res := w.currentUser(ctx)
	if user == nil {
		return res
	}
	w.cache.InvalidateFacets(ctx, user.ID, facetsForRole(user.Role())...)
	w.cache.InvalidateFacets(ctx, user.ID, cachekey.FacetEvents)
	return w.warmFor(ctx, user, time.Now())
}

func (w *CacheWarmer) currentUser(ctx context.Context) (*volunteer.User, *WarmResult) {
	start := time.Now()
	user, err := w.ds.GetCurrentUser(ctx)
	if err != nil {
		if w.logger != nil {
			w.logger.WithError(err).Warn("Cache warm could not load current user")
		}
		res := &WarmResult{Duration: time.Since(start)}
		res.fail(cachekey.FacetUser, err)
		w.metrics.WarmPass("unknown", "failed")
		return nil, res
	}
	if user == nil {
		if w.logger != nil {
			w.logger.Debug("No authenticated user, skipping cache warm")
		}
		w.metrics.WarmPass("unknown", "no_user")
		return nil, &WarmResult{Duration: time.Since(start)}
	}
	return user, nil
}

func (w *CacheWarmer) warmFor(ctx context.Context, user *volunteer.User, start time.Time) *WarmResult {
	res := &WarmResult{UserID: user.ID, Role: user.Role()}
	w.cache.SetUserData(ctx, user)
	res.Warmed = append(res.Warmed, cachekey.FacetUser)

	if user.IsAdmin {
		w.warmAdmin(ctx, user.ID, res)
	} else {
		w.warmVolunteer(ctx, user.ID, res)
	}
	res.Duration = time.Since(start)

	outcome := "complete"
	if len(res.Failed) > 0 {
		outcome = "partial"
	}
	w.metrics.WarmPass(res.Role.String(), outcome)
	if w.logger != nil {
		w.logger.WithFields(logrus.Fields{
			"user_id":  user.ID,
			"role":     res.Role,
			"warmed":   res.Warmed,
			"failed":   res.FailedFacets(),
			"duration": res.Duration,
		}).Info("Cache warmed")
	}
	return res
}

func (w *CacheWarmer) warmAdmin(ctx context.Context, adminID string, res *WarmResult) {
	var (
		g         errgroup.Group
		events    []*volunteer.Event
		regs      []*volunteer.Registration
		eventsErr error
		regsErr   error
	)
	g.Go(func() error {
		events, eventsErr = w.ds.GetEventsByAdmin(ctx, adminID)
		return eventsErr
	})
	g.Go(func() error {
		regs, regsErr = w.ds.GetAllRegistrations(ctx)
		return regsErr
	})
	_ = g.Wait()

	if eventsErr != nil {
		w.logFetchFailure(cachekey.FacetAdminEvents, adminID, eventsErr)
		res.fail(cachekey.FacetAdminEvents, eventsErr)
	} else {
		w.cache.SetAdminEvents(ctx, adminID, events)
		res.Warmed = append(res.Warmed, cachekey.FacetAdminEvents)
	}

	switch {
	case regsErr != nil:
		w.logFetchFailure(cachekey.FacetAdminRegistrations, adminID, regsErr)
		res.fail(cachekey.FacetAdminRegistrations, regsErr)
	case eventsErr != nil:
		// Without the admin's events the registrations cannot be filtered.
		res.fail(cachekey.FacetAdminRegistrations, fmt.Errorf("admin events unavailable: %w", eventsErr))
	default:
		w.cache.SetAdminRegistrations(ctx, adminID, volunteer.FilterRegistrationsForEvents(regs, events))
		res.Warmed = append(res.Warmed, cachekey.FacetAdminRegistrations)
	}
}

func (w *CacheWarmer) warmVolunteer(ctx context.Context, userID string, res *WarmResult) {
	var (
		g         errgroup.Group
		events    []*volunteer.Event
		regs      []*volunteer.Registration
		eventsErr error
		regsErr   error
	)
	g.Go(func() error {
		events, eventsErr = w.ds.GetAllEvents(ctx)
		return eventsErr
	})
	g.Go(func() error {
		regs, regsErr = w.ds.GetUserRegistrations(ctx, userID)
		return regsErr
	})
	_ = g.Wait()

	if eventsErr != nil {
		w.logFetchFailure(cachekey.FacetVolunteerEvents, userID, eventsErr)
		res.fail(cachekey.FacetVolunteerEvents, eventsErr)
	} else {
		w.cache.SetVolunteerEvents(ctx, events)
		res.Warmed = append(res.Warmed, cachekey.FacetVolunteerEvents)
	}
	if regsErr != nil {
		w.logFetchFailure(cachekey.FacetVolunteerRegistrations, userID, regsErr)
		res.fail(cachekey.FacetVolunteerRegistrations, regsErr)
	} else {
		w.cache.SetVolunteerRegistrations(ctx, userID, regs)
		res.Warmed = append(res.Warmed, cachekey.FacetVolunteerRegistrations)
	}
}

func (w *CacheWarmer) logFetchFailure(f cachekey.Facet, userID string, err error) {
	if w.logger != nil {
		w.logger.WithFields(logrus.Fields{"facet": f, "user_id": userID}).WithError(err).Warn("Cache warm fetch failed")
	}
}

// RefreshCache re-fetches a single facet. userID selects whose facet; empty
// means the signed-in user.
func (w *CacheWarmer) RefreshCache(ctx context.Context, kind cachekey.Facet, userID string) error {
	if !kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownRefreshKind, kind)
	}
	if userID == "" && perUser(kind) {
		user, err := w.ds.GetCurrentUser(ctx)
		if err != nil {
			return fmt.Errorf("failed to resolve current user: %w", err)
		}
		if user == nil {
			return ErrNotAuthenticated
		}
		userID = user.ID
	}

	switch kind {
	case cachekey.FacetUser:
		user, err := w.ds.GetCurrentUser(ctx)
		if err != nil {
			return fmt.Errorf("failed to refresh user: %w", err)
		}
		if user == nil {
			return ErrNotAuthenticated
		}
		w.cache.SetUserData(ctx, user)
	case cachekey.FacetAdminEvents:
		events, err := w.ds.GetEventsByAdmin(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to refresh admin events: %w", err)
		}
		w.cache.SetAdminEvents(ctx, userID, events)
	case cachekey.FacetAdminRegistrations:
		events, ok := w.cache.GetAdminEvents(ctx, userID)
		if !ok {
			var err error
			if events, err = w.ds.GetEventsByAdmin(ctx, userID); err != nil {
				return fmt.Errorf("failed to refresh admin events: %w", err)
			}
			w.cache.SetAdminEvents(ctx, userID, events)
		}
		regs, err := w.ds.GetAllRegistrations(ctx)
		if err != nil {
			return fmt.Errorf("failed to refresh admin registrations: %w", err)
		}
		w.cache.SetAdminRegistrations(ctx, userID, volunteer.FilterRegistrationsForEvents(regs, events))
	case cachekey.FacetVolunteerEvents:
		events, err := w.ds.GetAllEvents(ctx)
		if err != nil {
			return fmt.Errorf("failed to refresh volunteer events: %w", err)
		}
		w.cache.SetVolunteerEvents(ctx, events)
	case cachekey.FacetVolunteerRegistrations:
		regs, err := w.ds.GetUserRegistrations(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to refresh volunteer registrations: %w", err)
		}
		w.cache.SetVolunteerRegistrations(ctx, userID, regs)
	case cachekey.FacetEvents:
		events, err := w.ds.GetAllEvents(ctx)
		if err != nil {
			return fmt.Errorf("failed to refresh events: %w", err)
		}
		w.cache.SetEvents(ctx, events)
	}
	if w.logger != nil {
		w.logger.WithFields(logrus.Fields{"facet": kind, "user_id": userID}).Debug("Cache facet refreshed")
	}
	return nil
}

// perUser reports whether the facet's key depends on a user id. The profile
// facet is excluded because it always refreshes the signed-in user.
func perUser(f cachekey.Facet) bool {
	switch f {
	case cachekey.FacetAdminEvents, cachekey.FacetAdminRegistrations, cachekey.FacetVolunteerRegistrations:
		return true
	}
	return false
}

// RefreshableBy reports whether a session with role may refresh kind. The
// catalog is shared by both roles.
func RefreshableBy(role volunteer.Role, kind cachekey.Facet) bool {
	if kind == cachekey.FacetEvents {
		return true
	}
	for _, f := range facetsForRole(role) {
		if f == kind {
			return true
		}
	}
	return false
}

func facetsForRole(role volunteer.Role) []cachekey.Facet {
	if role == volunteer.RoleAdmin {
		return []cachekey.Facet{cachekey.FacetUser, cachekey.FacetAdminEvents, cachekey.FacetAdminRegistrations}
	}
	return []cachekey.Facet{cachekey.FacetUser, cachekey.FacetVolunteerEvents, cachekey.FacetVolunteerRegistrations}
}
