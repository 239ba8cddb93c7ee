package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/volunteer-hub/internal/core/domain/cachekey"
	"github.com/avatarctic/volunteer-hub/internal/core/domain/volunteer"
	"github.com/avatarctic/volunteer-hub/internal/core/ports"
)

// Metric families for cache hit/miss accounting.
const (
	familyUser               = "user"
	familyAdmin              = "admin"
	familyVolunteer          = "volunteer"
	familyEventRegistrations = "event_registrations"
	familyCatalog            = "catalog"
)

// DomainCacheTTLs pairs each entity family with its lifetime. Data the viewing
// user mutates often lives shorter than catalog data shared by everyone.
type DomainCacheTTLs struct {
	User      time.Duration
	Admin     time.Duration
	Volunteer time.Duration
	Catalog   time.Duration
}

func DefaultDomainCacheTTLs() DomainCacheTTLs {
	return DomainCacheTTLs{
		User:      15 * time.Second,
		Admin:     20 * time.Second,
		Volunteer: 15 * time.Second,
		Catalog:   30 * time.Second,
	}
}

// DomainCache is the typed facade over the TTL store. Values are stored as JSON
// so the memory and Redis stores are interchangeable.
type DomainCache struct {
	store   ports.Cache
	ttl     DomainCacheTTLs
	logger  *logrus.Logger
	metrics ports.Metrics
}

func NewDomainCache(store ports.Cache, ttl DomainCacheTTLs, logger *logrus.Logger, metrics ports.Metrics) *DomainCache {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &DomainCache{store: store, ttl: ttl, logger: logger, metrics: metrics}
}

func (c *DomainCache) TTLs() DomainCacheTTLs {
	return c.ttl
}

// setJSON never fails the caller; a store error only costs a future miss.
func (c *DomainCache) setJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		if c.logger != nil {
			c.logger.WithError(err).WithField("key", key).Error("Failed to encode cache value")
		}
		return
	}
	if err := c.store.Set(ctx, key, b, ttl); err != nil && c.logger != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Failed to write cache entry")
	}
}

func cacheGet[T any](ctx context.Context, c *DomainCache, family, key string) (T, bool) {
	var v T
	b, ok, err := c.store.Get(ctx, key)
	if err != nil {
		if c.logger != nil {
			c.logger.WithError(err).WithField("key", key).Warn("Cache read failed, treating as miss")
		}
		c.metrics.CacheMiss(family)
		return v, false
	}
	if !ok {
		c.metrics.CacheMiss(family)
		return v, false
	}
	if err := json.Unmarshal(b, &v); err != nil {
		if c.logger != nil {
			c.logger.WithError(err).WithField("key", key).Warn("Dropping undecodable cache entry")
		}
		_ = c.store.Delete(ctx, key)
		c.metrics.CacheMiss(family)
		return v, false
	}
	c.metrics.CacheHit(family)
	return v, true
}

// Has reports whether key holds an unexpired entry.
func (c *DomainCache) Has(ctx context.Context, key string) bool {
	_, ok, err := c.store.Get(ctx, key)
	return err == nil && ok
}

func (c *DomainCache) SetUserData(ctx context.Context, user *volunteer.User) {
	c.setJSON(ctx, cachekey.UserData(user.ID), user, c.ttl.User)
}

func (c *DomainCache) GetUserData(ctx context.Context, userID string) (*volunteer.User, bool) {
	return cacheGet[*volunteer.User](ctx, c, familyUser, cachekey.UserData(userID))
}

func (c *DomainCache) SetAdminEvents(ctx context.Context, adminID string, events []*volunteer.Event) {
	c.setJSON(ctx, cachekey.AdminEvents(adminID), events, c.ttl.Admin)
}

func (c *DomainCache) GetAdminEvents(ctx context.Context, adminID string) ([]*volunteer.Event, bool) {
	return cacheGet[[]*volunteer.Event](ctx, c, familyAdmin, cachekey.AdminEvents(adminID))
}

func (c *DomainCache) SetAdminRegistrations(ctx context.Context, adminID string, regs []*volunteer.Registration) {
	c.setJSON(ctx, cachekey.AdminRegistrations(adminID), regs, c.ttl.Admin)
}

func (c *DomainCache) GetAdminRegistrations(ctx context.Context, adminID string) ([]*volunteer.Registration, bool) {
	return cacheGet[[]*volunteer.Registration](ctx, c, familyAdmin, cachekey.AdminRegistrations(adminID))
}

func (c *DomainCache) SetVolunteerEvents(ctx context.Context, events []*volunteer.Event) {
	c.setJSON(ctx, cachekey.VolunteerEvents, events, c.ttl.Volunteer)
}

func (c *DomainCache) GetVolunteerEvents(ctx context.Context) ([]*volunteer.Event, bool) {
	return cacheGet[[]*volunteer.Event](ctx, c, familyVolunteer, cachekey.VolunteerEvents)
}

func (c *DomainCache) SetVolunteerRegistrations(ctx context.Context, userID string, regs []*volunteer.Registration) {
	c.setJSON(ctx, cachekey.VolunteerRegistrations(userID), regs, c.ttl.Volunteer)
}

func (c *DomainCache) GetVolunteerRegistrations(ctx context.Context, userID string) ([]*volunteer.Registration, bool) {
	return cacheGet[[]*volunteer.Registration](ctx, c, familyVolunteer, cachekey.VolunteerRegistrations(userID))
}

func (c *DomainCache) SetEventRegistrations(ctx context.Context, eventID string, regs []*volunteer.Registration) {
	c.setJSON(ctx, cachekey.EventRegistrations(eventID), regs, c.ttl.Volunteer)
}

func (c *DomainCache) GetEventRegistrations(ctx context.Context, eventID string) ([]*volunteer.Registration, bool) {
	return cacheGet[[]*volunteer.Registration](ctx, c, familyEventRegistrations, cachekey.EventRegistrations(eventID))
}

// SetEvents stores the generic event catalog.
func (c *DomainCache) SetEvents(ctx context.Context, events []*volunteer.Event) {
	c.setJSON(ctx, cachekey.AllEvents, events, c.ttl.Catalog)
}

func (c *DomainCache) GetEvents(ctx context.Context) ([]*volunteer.Event, bool) {
	return cacheGet[[]*volunteer.Event](ctx, c, familyCatalog, cachekey.AllEvents)
}

func (c *DomainCache) delete(ctx context.Context, keys ...string) {
	for _, k := range keys {
		if err := c.store.Delete(ctx, k); err != nil && c.logger != nil {
			c.logger.WithError(err).WithField("key", k).Warn("Failed to invalidate cache entry")
		}
	}
	c.metrics.CacheInvalidated(len(keys))
}

func (c *DomainCache) deletePattern(ctx context.Context, substr string) {
	n, err := c.store.DeletePattern(ctx, substr)
	if err != nil && c.logger != nil {
		c.logger.WithError(err).WithField("pattern", substr).Warn("Failed to invalidate cache pattern")
	}
	c.metrics.CacheInvalidated(n)
}

func (c *DomainCache) InvalidateUserData(ctx context.Context, userID string) {
	c.delete(ctx, cachekey.UserData(userID))
}

// InvalidateVolunteerData drops every volunteer listing, for all users.
func (c *DomainCache) InvalidateVolunteerData(ctx context.Context) {
	c.deletePattern(ctx, cachekey.VolunteerPattern)
}

// InvalidateAdminData drops one admin's aggregates, or every admin's when
// adminID is empty.
func (c *DomainCache) InvalidateAdminData(ctx context.Context, adminID string) {
	if adminID == "" {
		c.deletePattern(ctx, cachekey.AdminPattern)
		return
	}
	c.delete(ctx, cachekey.AdminEvents(adminID), cachekey.AdminRegistrations(adminID))
}

func (c *DomainCache) InvalidateEventRegistrations(ctx context.Context, eventID string) {
	c.delete(ctx, cachekey.EventRegistrations(eventID))
}

// InvalidateCatalog drops both event listings.
func (c *DomainCache) InvalidateCatalog(ctx context.Context) {
	c.delete(ctx, cachekey.AllEvents, cachekey.VolunteerEvents)
}

// InvalidateFacets drops the given facets of userID.
func (c *DomainCache) InvalidateFacets(ctx context.Context, userID string, facets ...cachekey.Facet) {
	keys := make([]string, 0, len(facets))
	for _, f := range facets {
		if k, ok := cachekey.ForFacet(f, userID); ok {
			keys = append(keys, k)
		}
	}
	c.delete(ctx, keys...)
}

// ClearAll drops every cache entry. On Redis that is every key under the
// store prefix; other namespaces are untouched.
func (c *DomainCache) ClearAll(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil && c.logger != nil {
		c.logger.WithError(err).Warn("Failed to clear cache")
	}
}
