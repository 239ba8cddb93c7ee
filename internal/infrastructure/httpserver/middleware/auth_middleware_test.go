package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/volunteer-hub/internal/core/domain/auth"
	"github.com/avatarctic/volunteer-hub/internal/infrastructure/httpserver/helpers"
	"github.com/avatarctic/volunteer-hub/internal/infrastructure/httpserver/middleware"
)

func sign(t *testing.T, method jwt.SigningMethod, claims auth.Claims, key any) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return tok
}

func validClaims(aud ...string) auth.Claims {
	return auth.Claims{
		Role: "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			Audience:  aud,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestJWTMiddleware_MissingTokenReturns401(t *testing.T) {
	e := echo.New()
	m := middleware.NewJWTMiddleware("s", "", nil)
	handler := m.RequireJWT()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := handler(c)
	require.Error(t, err)
	htErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, htErr.Code)
}

func TestJWTMiddleware_SetsIdentity(t *testing.T) {
	e := echo.New()
	m := middleware.NewJWTMiddleware("s", "", nil)
	tok := sign(t, jwt.SigningMethodHS256, validClaims(), []byte("s"))

	var fromEcho, fromRequest auth.Identity
	handler := m.RequireJWT()(func(c echo.Context) error {
		fromEcho, _ = helpers.GetIdentityRaw(c)
		fromRequest, _ = auth.IdentityFrom(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))

	assert.Equal(t, auth.Identity{UserID: "u1", AccessToken: tok}, fromEcho)
	assert.Equal(t, fromEcho, fromRequest)
}

func TestJWTMiddleware_ParseToken(t *testing.T) {
	m := middleware.NewJWTMiddleware("s", "authenticated", nil)

	claims, err := m.ParseToken(sign(t, jwt.SigningMethodHS256, validClaims("authenticated"), []byte("s")))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "authenticated", claims.Role)

	_, err = m.ParseToken(sign(t, jwt.SigningMethodHS256, validClaims("other"), []byte("s")))
	assert.Error(t, err)

	_, err = m.ParseToken(sign(t, jwt.SigningMethodHS512, validClaims("authenticated"), []byte("s")))
	assert.Error(t, err)

	noExp := validClaims("authenticated")
	noExp.ExpiresAt = nil
	_, err = m.ParseToken(sign(t, jwt.SigningMethodHS256, noExp, []byte("s")))
	assert.Error(t, err)
}

func TestRoleMiddleware_RequiresSession(t *testing.T) {
	e := echo.New()
	h := middleware.NewRoleMiddleware().RequireAdmin()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	err := h(e.NewContext(req, httptest.NewRecorder()))
	require.Error(t, err)
	htErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, htErr.Code)
}
