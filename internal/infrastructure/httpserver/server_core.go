package httpserver

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/volunteer-hub/internal/application/services"
	"github.com/avatarctic/volunteer-hub/internal/core/ports"
	customMiddleware "github.com/avatarctic/volunteer-hub/internal/infrastructure/httpserver/middleware"
	"github.com/avatarctic/volunteer-hub/internal/infrastructure/metrics"
)

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
	JWTSecret      string
	JWTAudience    string
}

type ServerDeps struct {
	Sessions       *services.SessionManager
	Catalog        *services.CatalogService
	RateLimiter    ports.RateLimiter
	Metrics        *metrics.Prometheus
	Gatherer       prometheus.Gatherer
	HealthCheckers []ports.HealthChecker
}

type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	sessions       *services.SessionManager
	catalog        *services.CatalogService
	gatherer       prometheus.Gatherer
	middleware     *customMiddleware.MiddlewareCollection
	healthCheckers []ports.HealthChecker
}

// requestValidator adapts validator/v10 to echo.Validator.
type requestValidator struct {
	v *validator.Validate
}

func (r *requestValidator) Validate(i interface{}) error {
	return r.v.Struct(i)
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{v: validator.New()}

	var (
		requestsTotal   *prometheus.CounterVec
		requestDuration *prometheus.HistogramVec
	)
	if deps.Metrics != nil {
		requestsTotal = deps.Metrics.RequestsTotal
		requestDuration = deps.Metrics.RequestDuration
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		sessions:       deps.Sessions,
		catalog:        deps.Catalog,
		gatherer:       gatherer,
		healthCheckers: deps.HealthCheckers,
		middleware: customMiddleware.NewMiddlewareCollection(
			deps.Sessions,
			deps.RateLimiter,
			logger,
			serverConfig.JWTSecret,
			serverConfig.JWTAudience,
			requestsTotal,
			requestDuration,
		),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
