package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/volunteer-hub/internal/application/services"
	"github.com/avatarctic/volunteer-hub/internal/core/ports"
)

// MiddlewareCollection holds all middleware instances
type MiddlewareCollection struct {
	JWT       *JWTMiddleware
	Session   *SessionMiddleware
	Role      *RoleMiddleware
	Logging   *LoggingMiddleware
	RateLimit *RateLimitMiddleware
	Metrics   *MetricsMiddleware
}

// NewMiddlewareCollection creates a new collection of all middleware
func NewMiddlewareCollection(
	sessions *services.SessionManager,
	rateLimiter ports.RateLimiter,
	logger *logrus.Logger,
	jwtSecret string,
	jwtAudience string,
	requestsTotal *prometheus.CounterVec,
	requestDuration *prometheus.HistogramVec,
) *MiddlewareCollection {
	return &MiddlewareCollection{
		JWT:       NewJWTMiddleware(jwtSecret, jwtAudience, logger),
		Session:   NewSessionMiddleware(sessions, logger),
		Role:      NewRoleMiddleware(),
		Logging:   NewLoggingMiddleware(logger),
		RateLimit: NewRateLimitMiddleware(rateLimiter, logger),
		Metrics:   NewMetricsMiddleware(requestsTotal, requestDuration),
	}
}
