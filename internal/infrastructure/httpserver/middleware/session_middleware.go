package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/volunteer-hub/internal/application/services"
	"github.com/avatarctic/volunteer-hub/internal/infrastructure/httpserver/helpers"
)

// SessionMiddleware attaches the caller's session, starting one on first use.
type SessionMiddleware struct {
	sessions *services.SessionManager
	logger   *logrus.Logger
}

func NewSessionMiddleware(sessions *services.SessionManager, logger *logrus.Logger) *SessionMiddleware {
	return &SessionMiddleware{sessions: sessions, logger: logger}
}

// ResolveSession must run after RequireJWT.
func (m *SessionMiddleware) ResolveSession() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := helpers.GetIdentityFromContext(c)
			if err != nil {
				return err
			}

			s, ok := m.sessions.Get(id.UserID)
			if !ok {
				s, err = m.sessions.Start(c.Request().Context(), id)
				if err != nil {
					if errors.Is(err, services.ErrNotAuthenticated) {
						return echo.NewHTTPError(http.StatusUnauthorized, "user profile not found")
					}
					if m.logger != nil {
						m.logger.WithError(err).WithField("user_id", id.UserID).Error("failed to start session")
					}
					return echo.NewHTTPError(http.StatusBadGateway, "failed to start session")
				}
			}
			helpers.SetSession(c, s)
			return next(c)
		}
	}
}
