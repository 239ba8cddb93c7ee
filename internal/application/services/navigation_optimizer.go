package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/volunteer-hub/internal/core/domain/cachekey"
	"github.com/avatarctic/volunteer-hub/internal/core/domain/navigation"
	"github.com/avatarctic/volunteer-hub/internal/core/domain/volunteer"
	"github.com/avatarctic/volunteer-hub/internal/core/ports"
)

const (
	UrgentPriority    = 15
	historyLimit      = 10
	predictionWindow  = 5
	predictionResults = 3
	// Predicted screens get priorities counting down from here.
	predictionTopPriority = 5
)

// PolicyProvider returns the navigation policy in force. It may change between
// calls when the policy file is reloaded.
type PolicyProvider interface {
	Current() *navigation.Policy
}

type StaticPolicy struct {
	Policy *navigation.Policy
}

func (p StaticPolicy) Current() *navigation.Policy {
	return p.Policy
}

// NavigationOptimizer watches screen transitions for one session and asks the
// preload queue to warm likely destinations. Nothing is preloaded until
// SetUserContext is called.
type NavigationOptimizer struct {
	queue   *PreloadQueue
	warmer  *CacheWarmer
	cache   *DomainCache
	policy  PolicyProvider
	logger  *logrus.Logger
	metrics ports.Metrics
	now     func() time.Time

	mu            sync.Mutex
	userID        string
	isAdmin       bool
	hasContext    bool
	currentScreen string
	history       *navigation.History
}

func NewNavigationOptimizer(queue *PreloadQueue, warmer *CacheWarmer, cache *DomainCache, policy PolicyProvider, logger *logrus.Logger, metrics ports.Metrics) *NavigationOptimizer {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &NavigationOptimizer{
		queue:   queue,
		warmer:  warmer,
		cache:   cache,
		policy:  policy,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
		history: navigation.NewHistory(historyLimit),
	}
}

func (o *NavigationOptimizer) SetUserContext(userID string, isAdmin bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.userID = userID
	o.isAdmin = isAdmin
	o.hasContext = userID != ""
}

type userContext struct {
	userID string
	role   volunteer.Role
}

func (o *NavigationOptimizer) userContext() (userContext, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return userContext{userID: o.userID, role: volunteer.RoleOf(o.isAdmin)}, o.hasContext
}

// CurrentScreen returns the last tracked screen.
func (o *NavigationOptimizer) CurrentScreen() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.currentScreen
}

// TrackNavigation records a transition to screen and schedules preloads for
// the policy's successors and for frequently visited screens.
func (o *NavigationOptimizer) TrackNavigation(screen string, params map[string]any) {
	o.mu.Lock()
	o.history.Append(navigation.Intent{ScreenName: screen, Timestamp: o.now(), Params: params})
	o.currentScreen = screen
	recent := o.history.Last(predictionWindow)
	uc := userContext{userID: o.userID, role: volunteer.RoleOf(o.isAdmin)}
	hasContext := o.hasContext
	o.mu.Unlock()

	o.metrics.Navigation(screen)
	o.queue.MarkScreenVisited(screen)
	if !hasContext {
		return
	}

	policy := o.policy.Current()
	for _, c := range policy.Candidates(screen, uc.role) {
		o.queue.QueuePreload(c.Screen, c.Priority, o.loaderFor(c.Screen, uc))
	}

	for i, s := range navigation.Predict(recent, screen, predictionResults) {
		o.queue.QueuePreload(s, predictionTopPriority-i, o.loaderFor(s, uc))
	}

	if o.logger != nil {
		o.logger.WithFields(logrus.Fields{
			"user_id": uc.userID,
			"screen":  screen,
			"queued":  o.queue.Pending(),
		}).Debug("Navigation tracked")
	}
}

// OptimizeNavigation reports whether target's data is ready, loading it with
// urgent priority first when it is not, even if the screen was loaded before
// and its entries have since expired. It blocks until that load finishes or
// ctx is done. Without a user context it returns false.
func (o *NavigationOptimizer) OptimizeNavigation(ctx context.Context, target string, params map[string]any) (bool, error) {
	uc, ok := o.userContext()
	if !ok {
		return false, nil
	}
	if o.CheckScreenDataReadiness(ctx, target) {
		return true, nil
	}

	done := o.queue.QueueUrgent(target, UrgentPriority, o.loaderFor(target, uc))
	select {
	case <-done:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	return o.CheckScreenDataReadiness(ctx, target), nil
}

// CheckScreenDataReadiness reports whether every facet target needs is cached
// and fresh. Screens the policy does not know need nothing.
func (o *NavigationOptimizer) CheckScreenDataReadiness(ctx context.Context, target string) bool {
	uc, ok := o.userContext()
	if !ok {
		return false
	}
	for _, f := range o.policy.Current().Requires(target, uc.role) {
		key, ok := cachekey.ForFacet(f, uc.userID)
		if !ok || !o.cache.Has(ctx, key) {
			return false
		}
	}
	return true
}

// loaderFor refreshes whichever of screen's facets are missing. The policy is
// read when the job runs, so a reload applies to jobs already queued.
func (o *NavigationOptimizer) loaderFor(screen string, uc userContext) PreloadLoader {
	return func(ctx context.Context) error {
		var errs []error
		for _, f := range o.policy.Current().Requires(screen, uc.role) {
			key, ok := cachekey.ForFacet(f, uc.userID)
			if !ok || o.cache.Has(ctx, key) {
				continue
			}
			if err := o.warmer.RefreshCache(ctx, f, uc.userID); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", f, err))
			}
		}
		return errors.Join(errs...)
	}
}

func (o *NavigationOptimizer) GetNavigationAnalytics() navigation.Analytics {
	o.mu.Lock()
	defer o.mu.Unlock()
	return navigation.Summarize(o.history.Last(0))
}

// Reset clears history and user context and forgets preload state.
func (o *NavigationOptimizer) Reset() {
	o.mu.Lock()
	o.history.Reset()
	o.userID = ""
	o.isAdmin = false
	o.hasContext = false
	o.currentScreen = ""
	o.mu.Unlock()

	o.queue.ClearPreloadState()
}
