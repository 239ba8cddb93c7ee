// Package scheduler runs periodic cache maintenance.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const jobTimeout = 30 * time.Second

// Sweeper drops expired cache entries in bulk.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// IdleEvicter ends sessions that have not been used for maxIdle.
type IdleEvicter interface {
	EvictIdle(maxIdle time.Duration) int
}

type Config struct {
	SweepSpec   string
	EvictSpec   string
	IdleTimeout time.Duration
}

// Scheduler owns the cron entries for the store sweep and session eviction.
// Either job is skipped when its target or spec is empty.
type Scheduler struct {
	cron     *cron.Cron
	sweeper  Sweeper
	sessions IdleEvicter
	cfg      Config
	logger   *logrus.Logger
	entries  map[string]cron.EntryID
	mu       sync.Mutex
}

func New(cfg Config, sweeper Sweeper, sessions IdleEvicter, logger *logrus.Logger) (*Scheduler, error) {
	cronLog := logger
	if cronLog == nil {
		cronLog = logrus.New()
		cronLog.SetOutput(io.Discard)
	}
	printf := cron.PrintfLogger(cronLog)

	s := &Scheduler{
		cron: cron.New(
			cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
			cron.WithChain(cron.Recover(printf), cron.SkipIfStillRunning(printf)),
		),
		sweeper:  sweeper,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
		entries:  make(map[string]cron.EntryID),
	}

	if sweeper != nil && cfg.SweepSpec != "" {
		if err := s.add("sweep", cfg.SweepSpec, func() { s.RunSweep() }); err != nil {
			return nil, err
		}
	}
	if sessions != nil && cfg.EvictSpec != "" && cfg.IdleTimeout > 0 {
		if err := s.add("evict", cfg.EvictSpec, func() { s.RunEviction() }); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scheduler) add(name, spec string, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(spec, fn)
	if err != nil {
		return fmt.Errorf("invalid %s schedule %q: %w", name, spec, err)
	}
	s.entries[name] = id
	return nil
}

// Jobs returns the names of the registered entries.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.entries))
	for _, name := range []string{"sweep", "evict"} {
		if _, ok := s.entries[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

func (s *Scheduler) Start() {
	s.cron.Start()
	if s.logger != nil {
		s.logger.WithField("jobs", s.Jobs()).Info("Scheduler started")
	}
}

// Stop halts the cron loop and waits for running jobs or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// RunSweep removes expired store entries once.
func (s *Scheduler) RunSweep() int {
	if s.sweeper == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.sweeper.Sweep(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Error("Cache sweep failed")
		}
		return n
	}
	if s.logger != nil && n > 0 {
		s.logger.WithField("removed", n).Debug("Cache sweep finished")
	}
	return n
}

// RunEviction ends idle sessions once.
func (s *Scheduler) RunEviction() int {
	if s.sessions == nil || s.cfg.IdleTimeout <= 0 {
		return 0
	}
	n := s.sessions.EvictIdle(s.cfg.IdleTimeout)
	if s.logger != nil && n > 0 {
		s.logger.WithFields(logrus.Fields{
			"evicted":      n,
			"idle_timeout": s.cfg.IdleTimeout.String(),
		}).Info("Evicted idle sessions")
	}
	return n
}
