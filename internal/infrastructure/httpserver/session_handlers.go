package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/volunteer-hub/internal/application/services"
	"github.com/avatarctic/volunteer-hub/internal/core/domain/volunteer"
	"github.com/avatarctic/volunteer-hub/internal/infrastructure/httpserver/helpers"
)

type sessionResponse struct {
	UserID    string         `json:"user_id"`
	Role      volunteer.Role `json:"role"`
	StartedAt time.Time      `json:"started_at"`
	Warming   bool           `json:"warming"`
}

func newSessionResponse(s *services.Session) sessionResponse {
	return sessionResponse{
		UserID:    s.UserID,
		Role:      s.Role(),
		StartedAt: s.StartedAt,
		Warming:   s.Warmer.IsWarming(),
	}
}

// startSession is idempotent: an existing session is returned as is.
func (s *Server) startSession(c echo.Context) error {
	id, err := helpers.GetIdentityFromContext(c)
	if err != nil {
		return err
	}
	sess, err := s.sessions.Start(c.Request().Context(), id)
	if err != nil {
		return s.httpError(c, err, "failed to start session")
	}
	return c.JSON(http.StatusCreated, newSessionResponse(sess))
}

func (s *Server) endSession(c echo.Context) error {
	id, err := helpers.GetIdentityFromContext(c)
	if err != nil {
		return err
	}
	if !s.sessions.End(id.UserID) {
		return echo.NewHTTPError(http.StatusNotFound, "no active session")
	}
	return c.NoContent(http.StatusNoContent)
}
