package repositories_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/volunteer-hub/internal/core/domain/auth"
	"github.com/avatarctic/volunteer-hub/internal/infrastructure/repositories"
)

func newPostgrestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *repositories.SupabaseDataSource {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)

	ds, err := repositories.NewSupabaseDataSource(srv.URL, "service-key", nil)
	require.NoError(t, err)
	return ds
}

func TestSupabaseDataSource_GetEventsByAdmin(t *testing.T) {
	ds := newPostgrestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/events", r.URL.Path)
		assert.Equal(t, "eq.admin-1", r.URL.Query().Get("created_by"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"e2","title":"Later","starts_at":"2024-05-02T10:00:00Z","created_by":"admin-1"},
			{"id":"e1","title":"Sooner","starts_at":"2024-05-01T10:00:00Z","created_by":"admin-1"}
		]`))
	})

	events, err := ds.GetEventsByAdmin(context.Background(), "admin-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "e1", events[0].ID)
	assert.Equal(t, "e2", events[1].ID)
}

func TestSupabaseDataSource_GetCurrentUserByID(t *testing.T) {
	ds := newPostgrestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/profiles", r.URL.Path)
		assert.Equal(t, "eq.u1", r.URL.Query().Get("id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"u1","email":"a@b.c","is_admin":true}]`))
	})

	ctx := auth.WithIdentity(context.Background(), auth.Identity{UserID: "u1"})
	u, err := ds.GetCurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.True(t, u.IsAdmin)
}

func TestSupabaseDataSource_NoIdentityMeansNoUser(t *testing.T) {
	ds := newPostgrestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	})

	u, err := ds.GetCurrentUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, u)
}
