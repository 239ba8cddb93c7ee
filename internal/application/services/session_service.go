package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/volunteer-hub/internal/core/domain/auth"
	"github.com/avatarctic/volunteer-hub/internal/core/domain/volunteer"
	"github.com/avatarctic/volunteer-hub/internal/core/ports"
)

// Session bundles the per-user preload machinery over the shared cache.
type Session struct {
	UserID    string
	IsAdmin   bool
	StartedAt time.Time

	Warmer    *CacheWarmer
	Queue     *PreloadQueue
	Optimizer *NavigationOptimizer

	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	lastSeen time.Time
}

// Context is the session's lifetime. It carries the user's identity, so
// background loads act as that user.
func (s *Session) Context() context.Context {
	return s.ctx
}

func (s *Session) Role() volunteer.Role {
	return volunteer.RoleOf(s.IsAdmin)
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

type SessionSettings struct {
	PreloadDelay time.Duration
	WarmOnStart  bool
}

// SessionManager owns one Session per signed-in user.
type SessionManager struct {
	ds       ports.DataSource
	cache    *DomainCache
	policy   PolicyProvider
	settings SessionSettings
	logger   *logrus.Logger
	metrics  ports.Metrics
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionManager(ds ports.DataSource, cache *DomainCache, policy PolicyProvider, settings SessionSettings, logger *logrus.Logger, metrics ports.Metrics) *SessionManager {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &SessionManager{
		ds:       ds,
		cache:    cache,
		policy:   policy,
		settings: settings,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Start resolves the user behind id and returns their session, creating it if
// needed. A new session sets the optimizer context and, when configured,
// warms the cache in the background.
func (m *SessionManager) Start(ctx context.Context, id auth.Identity) (*Session, error) {
	user, err := m.ds.GetCurrentUser(auth.WithIdentity(ctx, id))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	if user == nil {
		return nil, ErrNotAuthenticated
	}
	m.cache.SetUserData(ctx, user)

	m.mu.Lock()
	if s, ok := m.sessions[user.ID]; ok {
		m.mu.Unlock()
		s.touch(m.now())
		return s, nil
	}
	s := m.newSession(user)
	m.sessions[user.ID] = s
	n := len(m.sessions)
	m.mu.Unlock()

	m.metrics.ActiveSessions(n)
	if m.logger != nil {
		m.logger.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role()}).Info("Session started")
	}
	if m.settings.WarmOnStart {
		go s.Warmer.WarmCache(s.ctx)
	}
	return s, nil
}

func (m *SessionManager) newSession(user *volunteer.User) *Session {
	// Background work outlives the request that started the session.
	ctx, cancel := context.WithCancel(auth.WithIdentity(context.Background(), auth.Identity{UserID: user.ID}))
	warmer := NewCacheWarmer(m.ds, m.cache, m.logger, m.metrics)
	queue := NewPreloadQueue(ctx, m.settings.PreloadDelay, m.logger, m.metrics)
	optimizer := NewNavigationOptimizer(queue, warmer, m.cache, m.policy, m.logger, m.metrics)
	optimizer.SetUserContext(user.ID, user.IsAdmin)

	now := m.now()
	return &Session{
		UserID:    user.ID,
		IsAdmin:   user.IsAdmin,
		StartedAt: now,
		Warmer:    warmer,
		Queue:     queue,
		Optimizer: optimizer,
		ctx:       ctx,
		cancel:    cancel,
		lastSeen:  now,
	}
}

// Get returns the live session for userID and marks it active.
func (m *SessionManager) Get(userID string) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	m.mu.Unlock()
	if ok {
		s.touch(m.now())
	}
	return s, ok
}

// End tears down userID's session. It reports whether one existed.
func (m *SessionManager) End(userID string) bool {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if ok {
		delete(m.sessions, userID)
	}
	n := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return false
	}
	m.teardown(s)
	m.metrics.ActiveSessions(n)
	if m.logger != nil {
		m.logger.WithField("user_id", userID).Info("Session ended")
	}
	return true
}

func (m *SessionManager) teardown(s *Session) {
	s.cancel()
	s.Optimizer.Reset()
}

// EvictIdle ends sessions not seen for maxIdle and returns how many went.
func (m *SessionManager) EvictIdle(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)

	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	for _, s := range idle {
		m.teardown(s)
	}
	if len(idle) > 0 {
		m.metrics.ActiveSessions(n)
		if m.logger != nil {
			m.logger.WithField("evicted", len(idle)).Info("Evicted idle sessions")
		}
	}
	return len(idle)
}

func (m *SessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close ends every session.
func (m *SessionManager) Close() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		m.teardown(s)
	}
	m.metrics.ActiveSessions(0)
}
