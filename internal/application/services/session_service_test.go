package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	impl "github.com/avatarctic/volunteer-hub/internal/application/services"
	"github.com/avatarctic/volunteer-hub/internal/core/domain/auth"
	"github.com/avatarctic/volunteer-hub/internal/core/domain/navigation"
	"github.com/avatarctic/volunteer-hub/internal/core/domain/volunteer"
	"github.com/avatarctic/volunteer-hub/test/mocks"
)

func newSessions(ds *mocks.DataSourceMock, warm bool) (*impl.SessionManager, *impl.DomainCache) {
	dc := newDomainCache(newStore(nil))
	m := impl.NewSessionManager(ds, dc, impl.StaticPolicy{Policy: navigation.Default()},
		impl.SessionSettings{WarmOnStart: warm}, nil, nil)
	return m, dc
}

func TestSessionManager_StartReusesSession(t *testing.T) {
	m, _ := newSessions(volunteerSource(), false)
	defer m.Close()

	s1, err := m.Start(context.Background(), auth.Identity{UserID: "u1"})
	require.NoError(t, err)
	s2, err := m.Start(context.Background(), auth.Identity{UserID: "u1"})
	require.NoError(t, err)

	assert.Same(t, s1, s2)
	assert.Equal(t, 1, m.Count())
	assert.Equal(t, volunteer.RoleVolunteer, s1.Role())

	id, ok := auth.IdentityFrom(s1.Context())
	require.True(t, ok)
	assert.Equal(t, "u1", id.UserID)
}

func TestSessionManager_StartWithoutUser(t *testing.T) {
	m, _ := newSessions(&mocks.DataSourceMock{}, false)

	_, err := m.Start(context.Background(), auth.Identity{AccessToken: "expired"})
	assert.ErrorIs(t, err, impl.ErrNotAuthenticated)
	assert.Equal(t, 0, m.Count())
}

func TestSessionManager_StartWarmsInBackground(t *testing.T) {
	m, dc := newSessions(volunteerSource(), true)
	defer m.Close()

	_, err := m.Start(context.Background(), auth.Identity{UserID: "u1"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, ok := dc.GetVolunteerRegistrations(context.Background(), "u1")
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSessionManager_EndCancelsSession(t *testing.T) {
	m, _ := newSessions(volunteerSource(), false)

	s, err := m.Start(context.Background(), auth.Identity{UserID: "u1"})
	require.NoError(t, err)
	s.Optimizer.TrackNavigation("Home", nil)

	assert.True(t, m.End("u1"))
	assert.False(t, m.End("u1"))
	assert.Error(t, s.Context().Err())
	assert.Equal(t, 0, s.Optimizer.GetNavigationAnalytics().TotalNavigations)
	_, ok := m.Get("u1")
	assert.False(t, ok)
}

func TestSessionManager_EvictIdle(t *testing.T) {
	clk := newTestClock()
	ds := volunteerSource()
	m, _ := newSessions(ds, false)
	m.SetClock(clk.Now)

	_, err := m.Start(context.Background(), auth.Identity{UserID: "u1"})
	require.NoError(t, err)
	ds.GetCurrentUserFn = func(ctx context.Context) (*volunteer.User, error) { return adminUser, nil }
	_, err = m.Start(context.Background(), auth.Identity{UserID: "a1"})
	require.NoError(t, err)

	clk.Advance(20 * time.Minute)
	_, ok := m.Get("a1")
	require.True(t, ok)
	clk.Advance(15 * time.Minute)

	assert.Equal(t, 1, m.EvictIdle(30*time.Minute))
	_, ok = m.Get("u1")
	assert.False(t, ok)
	_, ok = m.Get("a1")
	assert.True(t, ok)
}
