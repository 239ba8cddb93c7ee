package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/volunteer-hub/internal/core/ports"
)

// PreloadLoader fills the cache for one screen.
type PreloadLoader func(ctx context.Context) error

type preloadJob struct {
	screen   string
	priority int
	loader   PreloadLoader
	done     chan struct{}
}

// PreloadQueue runs screen loaders one at a time, highest priority first.
// A screen whose loader succeeded is not loaded again until
// ClearPreloadState or QueueUrgent. A running job is never preempted.
type PreloadQueue struct {
	// ctx bounds every loader; it is the owning session's lifetime.
	ctx     context.Context
	delay   time.Duration
	logger  *logrus.Logger
	metrics ports.Metrics

	mu         sync.Mutex
	queue      []*preloadJob
	running    *preloadJob
	preloaded  map[string]struct{}
	draining   bool
	suspended  bool
	generation uint64
}

func NewPreloadQueue(ctx context.Context, delay time.Duration, logger *logrus.Logger, metrics ports.Metrics) *PreloadQueue {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &PreloadQueue{
		ctx:       ctx,
		delay:     delay,
		logger:    logger,
		metrics:   metrics,
		preloaded: make(map[string]struct{}),
	}
}

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// QueuePreload schedules loader for screen and returns a channel closed once
// that screen's job has finished. A screen already done returns a closed
// channel. A screen already running is not queued again; the caller waits on
// the running job. A queued job for the same screen is replaced.
func (q *PreloadQueue) QueuePreload(screen string, priority int, loader PreloadLoader) <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.preloaded[screen]; ok {
		return closedChan
	}
	return q.enqueueLocked(screen, priority, loader)
}

// QueueUrgent is QueuePreload for a screen whose cached data is known to be
// missing. It forgets the screen's done marker first, so a screen loaded
// earlier in the session is loaded again once its entries have expired.
func (q *PreloadQueue) QueueUrgent(screen string, priority int, loader PreloadLoader) <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.preloaded, screen)
	return q.enqueueLocked(screen, priority, loader)
}

func (q *PreloadQueue) enqueueLocked(screen string, priority int, loader PreloadLoader) <-chan struct{} {
	if q.running != nil && q.running.screen == screen {
		return q.running.done
	}

	job := &preloadJob{screen: screen, priority: priority, loader: loader}
	if i := q.indexOf(screen); i >= 0 {
		job.done = q.queue[i].done
		q.queue = append(q.queue[:i], q.queue[i+1:]...)
	} else {
		job.done = make(chan struct{})
		q.metrics.PreloadQueueDepth(1)
	}
	q.queue = append(q.queue, job)
	sort.SliceStable(q.queue, func(i, j int) bool {
		return q.queue[i].priority > q.queue[j].priority
	})

	q.startLocked()
	return job.done
}

func (q *PreloadQueue) indexOf(screen string) int {
	for i, j := range q.queue {
		if j.screen == screen {
			return i
		}
	}
	return -1
}

func (q *PreloadQueue) startLocked() {
	if q.draining || q.suspended || len(q.queue) == 0 {
		return
	}
	q.draining = true
	go q.drain()
}

func (q *PreloadQueue) drain() {
	for {
		q.mu.Lock()
		if q.suspended || len(q.queue) == 0 || q.ctx.Err() != nil {
			q.draining = false
			q.mu.Unlock()
			return
		}
		job := q.queue[0]
		q.queue = q.queue[1:]
		q.running = job
		gen := q.generation
		q.mu.Unlock()
		q.metrics.PreloadQueueDepth(-1)

		start := time.Now()
		err := q.run(job)
		elapsed := time.Since(start)

		q.mu.Lock()
		q.running = nil
		if err == nil && gen == q.generation {
			q.preloaded[job.screen] = struct{}{}
		}
		close(job.done)
		q.mu.Unlock()

		if err != nil {
			q.metrics.PreloadJob("failed", elapsed)
			if q.logger != nil {
				q.logger.WithFields(logrus.Fields{
					"screen":   job.screen,
					"priority": job.priority,
				}).WithError(err).Warn("Preload failed")
			}
		} else {
			q.metrics.PreloadJob("succeeded", elapsed)
			if q.logger != nil {
				q.logger.WithFields(logrus.Fields{
					"screen":   job.screen,
					"priority": job.priority,
					"duration": elapsed,
				}).Debug("Preload completed")
			}
		}

		if q.delay > 0 {
			t := time.NewTimer(q.delay)
			select {
			case <-t.C:
			case <-q.ctx.Done():
				t.Stop()
			}
		}
	}
}

func (q *PreloadQueue) run(job *preloadJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &loaderPanic{screen: job.screen, value: r}
		}
	}()
	return job.loader(q.ctx)
}

// MarkScreenVisited marks screen done without loading it and drops any
// queued job for it.
func (q *PreloadQueue) MarkScreenVisited(screen string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.preloaded[screen] = struct{}{}
	if i := q.indexOf(screen); i >= 0 {
		close(q.queue[i].done)
		q.queue = append(q.queue[:i], q.queue[i+1:]...)
		q.metrics.PreloadQueueDepth(-1)
	}
}

// ClearPreloadState forgets every done screen and drops queued jobs. A running
// job finishes, but its result no longer marks the screen done.
func (q *PreloadQueue) ClearPreloadState() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.preloaded = make(map[string]struct{})
	for _, j := range q.queue {
		close(j.done)
	}
	if n := len(q.queue); n > 0 {
		q.metrics.PreloadQueueDepth(-n)
	}
	q.queue = nil
	q.generation++
}

func (q *PreloadQueue) IsPreloaded(screen string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.preloaded[screen]
	return ok
}

// Pending returns the queued screens in run order.
func (q *PreloadQueue) Pending() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.queue))
	for i, j := range q.queue {
		out[i] = j.screen
	}
	return out
}

// Running returns the screen being loaded, if any.
func (q *PreloadQueue) Running() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running == nil {
		return "", false
	}
	return q.running.screen, true
}

// Suspend holds the drain loop after the current job.
func (q *PreloadQueue) Suspend() {
	q.mu.Lock()
	q.suspended = true
	q.mu.Unlock()
}

func (q *PreloadQueue) Resume() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.suspended = false
	q.startLocked()
}

type loaderPanic struct {
	screen string
	value  any
}

func (p *loaderPanic) Error() string {
	return fmt.Sprintf("preload loader for %s panicked: %v", p.screen, p.value)
}
