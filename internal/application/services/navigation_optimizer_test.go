package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	impl "github.com/avatarctic/volunteer-hub/internal/application/services"
	"github.com/avatarctic/volunteer-hub/internal/core/domain/cachekey"
	"github.com/avatarctic/volunteer-hub/internal/core/domain/navigation"
	"github.com/avatarctic/volunteer-hub/internal/core/domain/volunteer"
	"github.com/avatarctic/volunteer-hub/test/mocks"
)

type optimizerFixture struct {
	ds        *mocks.DataSourceMock
	dc        *impl.DomainCache
	queue     *impl.PreloadQueue
	optimizer *impl.NavigationOptimizer
}

func newOptimizer(t *testing.T, ds *mocks.DataSourceMock, policy *navigation.Policy) *optimizerFixture {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	dc := newDomainCache(newStore(nil))
	q := impl.NewPreloadQueue(ctx, 0, nil, nil)
	w := impl.NewCacheWarmer(ds, dc, nil, nil)
	o := impl.NewNavigationOptimizer(q, w, dc, impl.StaticPolicy{Policy: policy}, nil, nil)
	return &optimizerFixture{ds: ds, dc: dc, queue: q, optimizer: o}
}

func TestTrackNavigation_WithoutUserContextOnlyRecords(t *testing.T) {
	f := newOptimizer(t, volunteerSource(), navigation.Default())
	f.queue.Suspend()

	f.optimizer.TrackNavigation("Home", nil)

	assert.Empty(t, f.queue.Pending())
	assert.True(t, f.queue.IsPreloaded("Home"))
	assert.Equal(t, "Home", f.optimizer.CurrentScreen())
	assert.Equal(t, 1, f.optimizer.GetNavigationAnalytics().TotalNavigations)
}

func TestTrackNavigation_QueuesPolicyCandidates(t *testing.T) {
	f := newOptimizer(t, volunteerSource(), navigation.Default())
	f.optimizer.SetUserContext("u1", false)
	f.queue.Suspend()

	f.optimizer.TrackNavigation("Home", map[string]any{"from": "login"})

	assert.Equal(t, []string{"Volunteer", "Trophy", "Gift"}, f.queue.Pending())
}

func TestTrackNavigation_AdminGetsAdminCandidates(t *testing.T) {
	f := newOptimizer(t, adminSource(), navigation.Default())
	f.optimizer.SetUserContext("a1", true)
	f.queue.Suspend()

	f.optimizer.TrackNavigation("Home", nil)

	assert.Equal(t, []string{"AdminEvents", "EventRegistrations", "Profile"}, f.queue.Pending())
}

func TestTrackNavigation_PredictsFrequentScreens(t *testing.T) {
	policy, err := navigation.Parse([]byte(`
screens:
  A: { volunteer: { requires: [] } }
  B: { volunteer: { requires: [] } }
  C: { volunteer: { requires: [] } }
  D: { volunteer: { requires: [] } }
`))
	require.NoError(t, err)
	f := newOptimizer(t, volunteerSource(), policy)
	f.optimizer.SetUserContext("u1", false)
	f.queue.Suspend()

	for _, s := range []string{"A", "B", "A", "C"} {
		f.optimizer.TrackNavigation(s, nil)
	}
	f.queue.ClearPreloadState()
	f.optimizer.TrackNavigation("D", nil)

	assert.Equal(t, []string{"A", "B", "C"}, f.queue.Pending())
}

func TestTrackNavigation_PreloadFillsMissingFacets(t *testing.T) {
	ds := volunteerSource()
	f := newOptimizer(t, ds, navigation.Default())
	f.optimizer.SetUserContext("u1", false)

	f.optimizer.TrackNavigation("Home", nil)

	assert.Eventually(t, func() bool {
		return f.queue.IsPreloaded("Volunteer") && f.queue.IsPreloaded("Trophy") && f.queue.IsPreloaded("Gift")
	}, 2*time.Second, 10*time.Millisecond)
	_, ok := f.dc.GetVolunteerEvents(context.Background())
	assert.True(t, ok)
	_, ok = f.dc.GetVolunteerRegistrations(context.Background(), "u1")
	assert.True(t, ok)
	_, ok = f.dc.GetUserData(context.Background(), "u1")
	assert.True(t, ok)
	assert.Equal(t, 1, ds.Calls("GetAllEvents"))
}

func TestOptimizeNavigation_ReadyScreenNeedsNoJob(t *testing.T) {
	ctx := context.Background()
	ds := volunteerSource()
	f := newOptimizer(t, ds, navigation.Default())
	f.optimizer.SetUserContext("u1", false)
	f.dc.SetUserData(ctx, volunteerUser)
	f.dc.SetVolunteerEvents(ctx, []*volunteer.Event{})
	f.queue.Suspend()

	ok, err := f.optimizer.OptimizeNavigation(ctx, "Home", nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, f.queue.Pending())
	assert.Equal(t, 0, ds.Calls("GetAllEvents"))
}

func TestOptimizeNavigation_LoadsMissingDataUrgently(t *testing.T) {
	ctx := context.Background()
	ds := volunteerSource()
	f := newOptimizer(t, ds, navigation.Default())
	f.optimizer.SetUserContext("u1", false)

	require.False(t, f.optimizer.CheckScreenDataReadiness(ctx, "MyEvents"))
	ok, err := f.optimizer.OptimizeNavigation(ctx, "MyEvents", nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, f.optimizer.CheckScreenDataReadiness(ctx, "MyEvents"))
}

func TestOptimizeNavigation_ReloadsExpiredScreen(t *testing.T) {
	ctx := context.Background()
	ds := volunteerSource()
	f := newOptimizer(t, ds, navigation.Default())
	f.optimizer.SetUserContext("u1", false)

	ok, err := f.optimizer.OptimizeNavigation(ctx, "MyEvents", nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, f.queue.IsPreloaded("MyEvents"))
	fetches := ds.Calls("GetUserRegistrations")

	f.dc.InvalidateFacets(ctx, "u1", cachekey.FacetVolunteerRegistrations)
	require.False(t, f.optimizer.CheckScreenDataReadiness(ctx, "MyEvents"))

	ok, err = f.optimizer.OptimizeNavigation(ctx, "MyEvents", nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Greater(t, ds.Calls("GetUserRegistrations"), fetches)
	assert.True(t, f.optimizer.CheckScreenDataReadiness(ctx, "MyEvents"))
}

func TestOptimizeNavigation_JumpsTheQueue(t *testing.T) {
	ctx := context.Background()
	f := newOptimizer(t, volunteerSource(), navigation.Default())
	f.optimizer.SetUserContext("u1", false)
	f.queue.Suspend()
	f.optimizer.TrackNavigation("Home", nil)

	result := make(chan bool, 1)
	go func() {
		ok, _ := f.optimizer.OptimizeNavigation(ctx, "Profile", nil)
		result <- ok
	}()
	assert.Eventually(t, func() bool {
		p := f.queue.Pending()
		return len(p) == 4 && p[0] == "Profile"
	}, 2*time.Second, 5*time.Millisecond)

	f.queue.Resume()
	select {
	case ok := <-result:
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("optimize did not finish")
	}
}

func TestOptimizeNavigation_HonorsContextCancellation(t *testing.T) {
	f := newOptimizer(t, volunteerSource(), navigation.Default())
	f.optimizer.SetUserContext("u1", false)
	f.queue.Suspend()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	ok, err := f.optimizer.OptimizeNavigation(ctx, "Home", nil)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOptimizeNavigation_WithoutUserContext(t *testing.T) {
	f := newOptimizer(t, volunteerSource(), navigation.Default())

	ok, err := f.optimizer.OptimizeNavigation(context.Background(), "Home", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckScreenDataReadiness(t *testing.T) {
	ctx := context.Background()
	f := newOptimizer(t, adminSource(), navigation.Default())
	f.optimizer.SetUserContext("a1", true)

	assert.True(t, f.optimizer.CheckScreenDataReadiness(ctx, "Settings"), "unknown screens need nothing")
	assert.False(t, f.optimizer.CheckScreenDataReadiness(ctx, "AdminEvents"))

	f.dc.SetAdminEvents(ctx, "a1", []*volunteer.Event{})
	assert.False(t, f.optimizer.CheckScreenDataReadiness(ctx, "AdminEvents"))
	f.dc.SetAdminRegistrations(ctx, "a1", []*volunteer.Registration{})
	assert.True(t, f.optimizer.CheckScreenDataReadiness(ctx, "AdminEvents"))

	f.dc.InvalidateFacets(ctx, "a1", cachekey.FacetAdminEvents)
	assert.False(t, f.optimizer.CheckScreenDataReadiness(ctx, "AdminEvents"))
}

func TestNavigationAnalyticsAndReset(t *testing.T) {
	f := newOptimizer(t, volunteerSource(), navigation.Default())
	f.optimizer.SetUserContext("u1", false)
	f.queue.Suspend()

	for _, s := range []string{"Home", "Volunteer", "Home"} {
		f.optimizer.TrackNavigation(s, nil)
	}
	a := f.optimizer.GetNavigationAnalytics()
	assert.Equal(t, 3, a.TotalNavigations)
	assert.Equal(t, 2, a.UniqueScreens)
	assert.Equal(t, "Home", a.MostVisitedScreen)

	f.optimizer.Reset()
	assert.Equal(t, 0, f.optimizer.GetNavigationAnalytics().TotalNavigations)
	assert.Empty(t, f.queue.Pending())
	assert.False(t, f.queue.IsPreloaded("Home"))
	assert.Equal(t, "", f.optimizer.CurrentScreen())

	ok, err := f.optimizer.OptimizeNavigation(context.Background(), "Home", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}
