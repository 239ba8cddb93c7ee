package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/volunteer-hub/internal/infrastructure/httpserver/helpers"
)

// RoleMiddleware gates routes on the session role.
type RoleMiddleware struct{}

func NewRoleMiddleware() *RoleMiddleware {
	return &RoleMiddleware{}
}

// RequireAdmin must run after ResolveSession.
func (m *RoleMiddleware) RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s, err := helpers.GetSessionFromContext(c)
			if err != nil {
				return err
			}
			if !s.IsAdmin {
				return echo.NewHTTPError(http.StatusForbidden, "admin role required")
			}
			return next(c)
		}
	}
}
