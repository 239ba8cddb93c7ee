package helpers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/volunteer-hub/internal/application/services"
	"github.com/avatarctic/volunteer-hub/internal/core/domain/auth"
)

func GetIdentityFromContext(c echo.Context) (auth.Identity, error) {
	id, ok := GetIdentityRaw(c)
	if !ok || id.UserID == "" {
		return auth.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid user context")
	}
	return id, nil
}

// GetSessionFromContext returns the session attached by the session middleware.
func GetSessionFromContext(c echo.Context) (*services.Session, error) {
	s, ok := GetSessionRaw(c)
	if !ok || s == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "no active session")
	}
	return s, nil
}

func GetJWTTokenFromContext(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header format")
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "empty token")
	}
	return token, nil
}
