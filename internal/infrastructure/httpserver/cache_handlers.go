package httpserver

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/volunteer-hub/internal/application/services"
	"github.com/avatarctic/volunteer-hub/internal/core/domain/cachekey"
	"github.com/avatarctic/volunteer-hub/internal/core/domain/volunteer"
	"github.com/avatarctic/volunteer-hub/internal/infrastructure/httpserver/helpers"
)

type warmResponse struct {
	Skipped    bool             `json:"skipped"`
	UserID     string           `json:"user_id,omitempty"`
	Role       volunteer.Role   `json:"role,omitempty"`
	Warmed     []cachekey.Facet `json:"warmed"`
	Failed     []cachekey.Facet `json:"failed"`
	DurationMS int64            `json:"duration_ms"`
}

func newWarmResponse(r *services.WarmResult) warmResponse {
	failed := r.FailedFacets()
	sort.Slice(failed, func(i, j int) bool { return failed[i] < failed[j] })
	warmed := r.Warmed
	if warmed == nil {
		warmed = []cachekey.Facet{}
	}
	return warmResponse{
		Skipped:    r.Skipped,
		UserID:     r.UserID,
		Role:       r.Role,
		Warmed:     warmed,
		Failed:     failed,
		DurationMS: r.Duration.Milliseconds(),
	}
}

// rewarmCache drops the caller's cached facets and warms them again.
func (s *Server) rewarmCache(c echo.Context) error {
	sess, err := helpers.GetSessionFromContext(c)
	if err != nil {
		return err
	}
	res := sess.Warmer.RewarmCache(c.Request().Context())
	if res.Skipped {
		return c.JSON(http.StatusConflict, newWarmResponse(res))
	}
	return c.JSON(http.StatusOK, newWarmResponse(res))
}

func (s *Server) refreshCache(c echo.Context) error {
	sess, err := helpers.GetSessionFromContext(c)
	if err != nil {
		return err
	}
	kind := cachekey.Facet(c.Param("kind"))
	if !services.RefreshableBy(sess.Role(), kind) {
		return s.httpError(c, fmt.Errorf("%w: %q for role %s", services.ErrUnknownRefreshKind, kind, sess.Role()), "failed to refresh cache")
	}
	if err := sess.Warmer.RefreshCache(c.Request().Context(), kind, sess.UserID); err != nil {
		return s.httpError(c, err, "failed to refresh cache")
	}
	return c.NoContent(http.StatusNoContent)
}
