package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/volunteer-hub/internal/application/services"
	"github.com/avatarctic/volunteer-hub/internal/core/ports"
	"github.com/avatarctic/volunteer-hub/internal/infrastructure/repositories"
)

// httpError maps service and data source errors onto HTTP statuses. msg is
// returned for failures the caller cannot act on.
func (s *Server) httpError(c echo.Context, err error, msg string) error {
	var code int
	switch {
	case errors.Is(err, services.ErrNotAuthenticated):
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, services.ErrUnknownRefreshKind):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ports.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, ports.ErrAlreadyRegistered):
		return echo.NewHTTPError(http.StatusConflict, "already registered for this event")
	case errors.Is(err, repositories.ErrDataSourceUnavailable):
		code = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		code = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the status.
		code = http.StatusRequestTimeout
	default:
		code = http.StatusBadGateway
	}
	if s.logger != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"path":   c.Path(),
			"status": code,
		}).Error(msg)
	}
	return echo.NewHTTPError(code, msg)
}
