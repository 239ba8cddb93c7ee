package middleware

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/volunteer-hub/internal/core/domain/auth"
	"github.com/avatarctic/volunteer-hub/internal/infrastructure/httpserver/helpers"
)

// JWTMiddleware verifies HS256 access tokens issued by the auth backend.
type JWTMiddleware struct {
	secret   []byte
	audience string
	logger   *logrus.Logger
}

func NewJWTMiddleware(secret, audience string, logger *logrus.Logger) *JWTMiddleware {
	return &JWTMiddleware{secret: []byte(secret), audience: audience, logger: logger}
}

// ParseToken validates tokenString and returns its claims.
func (m *JWTMiddleware) ParseToken(tokenString string) (*auth.Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}
	claims := &auth.Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidSubject
	}
	return claims, nil
}

// RequireJWT creates middleware that validates JWT tokens and sets the identity
// on both the echo context and the request context.
func (m *JWTMiddleware) RequireJWT() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := helpers.GetJWTTokenFromContext(c)
			if err != nil {
				return err
			}

			claims, err := m.ParseToken(tokenString)
			if err != nil {
				if m.logger != nil {
					m.logger.WithFields(logrus.Fields{"ip": c.RealIP(), "path": c.Request().URL.Path, "error": err.Error()}).Warn("JWT validation failed")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			id := auth.Identity{UserID: claims.Subject, AccessToken: tokenString}
			helpers.SetIdentity(c, id)
			helpers.SetClaims(c, claims)
			c.SetRequest(c.Request().WithContext(auth.WithIdentity(c.Request().Context(), id)))

			if m.logger != nil {
				m.logger.WithFields(logrus.Fields{"user_id": claims.Subject, "role": claims.Role}).Debug("jwt validated and user context set")
			}
			return next(c)
		}
	}
}
