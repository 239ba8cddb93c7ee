package helpers

import (
	"github.com/labstack/echo/v4"

	"github.com/avatarctic/volunteer-hub/internal/application/services"
	"github.com/avatarctic/volunteer-hub/internal/core/domain/auth"
)

type ctxKey string

const (
	keyIdentity ctxKey = "identity"
	keyClaims   ctxKey = "claims"
	keySession  ctxKey = "session"
)

func SetIdentity(c echo.Context, id auth.Identity) { c.Set(string(keyIdentity), id) }
func GetIdentityRaw(c echo.Context) (auth.Identity, bool) {
	v := c.Get(string(keyIdentity))
	id, ok := v.(auth.Identity)
	return id, ok
}

func SetClaims(c echo.Context, claims *auth.Claims) { c.Set(string(keyClaims), claims) }
func GetClaimsRaw(c echo.Context) (*auth.Claims, bool) {
	v := c.Get(string(keyClaims))
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

func SetSession(c echo.Context, s *services.Session) { c.Set(string(keySession), s) }
func GetSessionRaw(c echo.Context) (*services.Session, bool) {
	v := c.Get(string(keySession))
	s, ok := v.(*services.Session)
	return s, ok
}
