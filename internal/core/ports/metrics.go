package ports

import "time"

// Metrics receives counters from the cache core. NoopMetrics is used when no
// registry is wired.
type Metrics interface {
	CacheHit(family string)
	CacheMiss(family string)
	CacheExpired()
	CacheInvalidated(n int)
	PreloadJob(outcome string, d time.Duration)
	PreloadQueueDepth(delta int)
	WarmPass(role, outcome string)
	Navigation(screen string)
	ActiveSessions(n int)
}

type NoopMetrics struct{}

func (NoopMetrics) CacheHit(string) {}
func (NoopMetrics) CacheMiss(string) {}
func (NoopMetrics) CacheExpired() {}
func (NoopMetrics) CacheInvalidated(int) {}
func (NoopMetrics) PreloadJob(string, time.Duration) {}
func (NoopMetrics) PreloadQueueDepth(int) {}
func (NoopMetrics) WarmPass(string, string) {}
func (NoopMetrics) Navigation(string) {}
func (NoopMetrics) ActiveSessions(int) {}
