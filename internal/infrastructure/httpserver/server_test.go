package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/volunteer-hub/internal/application/services"
	"github.com/avatarctic/volunteer-hub/internal/core/domain/auth"
	"github.com/avatarctic/volunteer-hub/internal/core/domain/navigation"
	"github.com/avatarctic/volunteer-hub/internal/core/domain/volunteer"
	"github.com/avatarctic/volunteer-hub/internal/core/ports"
	"github.com/avatarctic/volunteer-hub/internal/infrastructure/cache"
	saas_http "github.com/avatarctic/volunteer-hub/internal/infrastructure/httpserver"
	"github.com/avatarctic/volunteer-hub/internal/infrastructure/metrics"
	"github.com/avatarctic/volunteer-hub/test/mocks"
)

const (
	testSecret = "test-secret"
	eventID    = "6f1c2a8e-4b7d-4c11-9a55-0d3e6f7a8b90"
)

var users = map[string]*volunteer.User{
	"u1": {ID: "u1", Email: "vol@example.com"},
	"a1": {ID: "a1", Email: "adm@example.com", IsAdmin: true},
}

func signToken(t *testing.T, sub string, exp time.Time, secret string) string {
	t.Helper()
	claims := auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(exp),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

type fixture struct {
	t        *testing.T
	srv      *saas_http.Server
	ds       *mocks.DataSourceMock
	store    *cache.MemoryStore
	sessions *services.SessionManager
}

type checkerStub struct{ err error }

func (c checkerStub) Name() string                { return "stub" }
func (c checkerStub) Check(context.Context) error { return c.err }

func newFixture(t *testing.T, checkers ...ports.HealthChecker) *fixture {
	ds := &mocks.DataSourceMock{
		GetCurrentUserFn: func(ctx context.Context) (*volunteer.User, error) {
			id, ok := auth.IdentityFrom(ctx)
			if !ok {
				return nil, nil
			}
			return users[id.UserID], nil
		},
		GetAllEventsFn: func(ctx context.Context) ([]*volunteer.Event, error) {
			return []*volunteer.Event{{ID: eventID, Title: "Beach cleanup"}}, nil
		},
	}
	store := cache.NewMemoryStore(time.Minute)
	dc := services.NewDomainCache(store, services.DefaultDomainCacheTTLs(), nil, nil)
	sessions := services.NewSessionManager(ds, dc, services.StaticPolicy{Policy: navigation.Default()}, services.SessionSettings{}, nil, nil)
	t.Cleanup(sessions.Close)

	reg := prometheus.NewRegistry()
	srv := saas_http.NewServer(
		&saas_http.ServerConfig{AllowedOrigins: []string{"*"}, JWTSecret: testSecret},
		nil,
		saas_http.ServerDeps{
			Sessions:       sessions,
			Catalog:        services.NewCatalogService(ds, dc, false, nil),
			Metrics:        metrics.NewPrometheus(reg),
			Gatherer:       reg,
			HealthCheckers: checkers,
		},
	)
	return &fixture{t: t, srv: srv, ds: ds, store: store, sessions: sessions}
}

func (f *fixture) do(method, path, body, user string) *httptest.ResponseRecorder {
	f.t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+signToken(f.t, user, time.Now().Add(time.Hour), testSecret))
	}
	rec := httptest.NewRecorder()
	f.srv.Echo().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	f := newFixture(t, checkerStub{})
	rec := f.do(http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])

	f = newFixture(t, checkerStub{err: errors.New("down")})
	rec = f.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuth_RejectsMissingAndBadTokens(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/events", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	for _, tok := range []string{
		signToken(t, "u1", time.Now().Add(time.Hour), "wrong-secret"),
		signToken(t, "u1", time.Now().Add(-time.Minute), testSecret),
		signToken(t, "", time.Now().Add(time.Hour), testSecret),
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		f.srv.Echo().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	assert.Equal(t, 0, f.sessions.Count())
}

func TestAuth_UnknownProfileIsUnauthorized(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/v1/events", "", "ghost")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/session", "", "u1")
	require.Equal(t, http.StatusCreated, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "u1", body["user_id"])
	assert.Equal(t, "volunteer", body["role"])
	assert.Equal(t, 1, f.sessions.Count())

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/api/v1/session", "", "u1").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/api/v1/session", "", "u1").Code)
}

func TestVolunteerEvents_ReadThroughCache(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 2; i++ {
		rec := f.do(http.MethodGet, "/api/v1/volunteer/events", "", "u1")
		require.Equal(t, http.StatusOK, rec.Code)
		var events []volunteer.Event
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
		require.Len(t, events, 1)
	}
	assert.Equal(t, 1, f.ds.Calls("GetAllEvents"))
}

func TestRefreshCache_RejectsOtherRoleFacets(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/v1/cache/refresh/admin_events", "", "u1").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/v1/cache/refresh/admin_registrations", "", "u1").Code)
	assert.Equal(t, 0, f.ds.Calls("GetEventsByAdmin"))
	_, ok, _ := f.store.Get(context.Background(), "admin_events_u1")
	assert.False(t, ok)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/v1/cache/refresh/volunteer_registrations", "", "a1").Code)
	assert.Equal(t, 0, f.ds.Calls("GetUserRegistrations"))

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodPost, "/api/v1/cache/refresh/admin_events", "", "a1").Code)
	assert.Equal(t, 1, f.ds.Calls("GetEventsByAdmin"))
	assert.Equal(t, http.StatusNoContent, f.do(http.MethodPost, "/api/v1/cache/refresh/events", "", "u1").Code)
}

func TestAdminRoutes_RequireAdmin(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/v1/admin/events", "", "u1").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/admin/events", "", "a1").Code)
}

func TestCreateEvent_Validation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/admin/events", `{"location":"Pier 4"}`, "a1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/admin/events",
		`{"title":"Beach cleanup","location":"Pier 4","starts_at":"2025-06-01T09:00:00Z","ends_at":"2025-06-01T08:00:00Z"}`, "a1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/admin/events",
		`{"title":"Beach cleanup","location":"Pier 4","starts_at":"2025-06-01T09:00:00Z"}`, "a1")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, f.ds.Calls("CreateEvent"))
}

func TestRegisterForEvent(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/v1/events/not-a-uuid/registrations", "", "u1").Code)
	assert.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/v1/events/"+eventID+"/registrations", "", "u1").Code)

	f.ds.RegisterForEventFn = func(ctx context.Context, eventID, userID string) (*volunteer.Registration, error) {
		return nil, ports.ErrAlreadyRegistered
	}
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/v1/events/"+eventID+"/registrations", "", "u1").Code)

	f.ds.CancelRegistrationFn = func(ctx context.Context, eventID, userID string) error {
		return errors.New("upstream exploded")
	}
	assert.Equal(t, http.StatusBadGateway, f.do(http.MethodDelete, "/api/v1/events/"+eventID+"/registrations", "", "u1").Code)
}

func TestOptimizeNavigation_LoadsScreenData(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/navigation/readiness/Home", "", "u1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"screen":"Home","ready":false}`, rec.Body.String())

	rec = f.do(http.MethodPost, "/api/v1/navigation/optimize", `{"screen":"Home"}`, "u1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"screen":"Home","ready":true}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/v1/navigation/optimize", `{"params":{}}`, "u1").Code)
}

func TestTrackNavigation_RecordsAnalytics(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodPost, "/api/v1/navigation/suspend", "", "u1").Code)
	assert.Equal(t, http.StatusAccepted, f.do(http.MethodPost, "/api/v1/navigation/track", `{"screen":"Home"}`, "u1").Code)
	assert.Equal(t, http.StatusAccepted, f.do(http.MethodPost, "/api/v1/navigation/track", `{"screen":"Volunteer","params":{"tab":"open"}}`, "u1").Code)

	rec := f.do(http.MethodGet, "/api/v1/navigation/analytics", "", "u1")
	require.Equal(t, http.StatusOK, rec.Code)
	var a navigation.Analytics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, 2, a.TotalNavigations)
	assert.Equal(t, "Volunteer", a.CurrentScreen)

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodPost, "/api/v1/navigation/resume", "", "u1").Code)
}

func TestRefreshCache(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/v1/cache/refresh/coupons", "", "u1").Code)
	assert.Equal(t, http.StatusNoContent, f.do(http.MethodPost, "/api/v1/cache/refresh/volunteer_events", "", "u1").Code)
	assert.Equal(t, 1, f.ds.Calls("GetAllEvents"))
}

func TestRewarmCache(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/v1/cache/rewarm", "", "u1")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "u1", body["user_id"])
	assert.Empty(t, body["failed"])
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodGet, "/health", "", "")

	rec := f.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
