package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/volunteer-hub/internal/infrastructure/httpserver/helpers"
)

// optimizeTimeout caps how long a client waits for a screen's data.
const optimizeTimeout = 10 * time.Second

type navigationRequest struct {
	Screen string         `json:"screen" validate:"required,max=64,excludesall=/"`
	Params map[string]any `json:"params"`
}

type readinessResponse struct {
	Screen string `json:"screen"`
	Ready  bool   `json:"ready"`
}

func bindNavigation(c echo.Context) (*navigationRequest, error) {
	var req navigationRequest
	if err := c.Bind(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return &req, nil
}

func (s *Server) trackNavigation(c echo.Context) error {
	sess, err := helpers.GetSessionFromContext(c)
	if err != nil {
		return err
	}
	req, err := bindNavigation(c)
	if err != nil {
		return err
	}
	sess.Optimizer.TrackNavigation(req.Screen, req.Params)
	return c.NoContent(http.StatusAccepted)
}

// optimizeNavigation blocks until the target screen's data is preloaded or
// the request deadline passes.
func (s *Server) optimizeNavigation(c echo.Context) error {
	sess, err := helpers.GetSessionFromContext(c)
	if err != nil {
		return err
	}
	req, err := bindNavigation(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), optimizeTimeout)
	defer cancel()
	ready, err := sess.Optimizer.OptimizeNavigation(ctx, req.Screen, req.Params)
	if err != nil {
		return s.httpError(c, err, "failed to prepare screen")
	}
	return c.JSON(http.StatusOK, readinessResponse{Screen: req.Screen, Ready: ready})
}

func (s *Server) screenReadiness(c echo.Context) error {
	sess, err := helpers.GetSessionFromContext(c)
	if err != nil {
		return err
	}
	screen := c.Param("screen")
	ready := sess.Optimizer.CheckScreenDataReadiness(c.Request().Context(), screen)
	return c.JSON(http.StatusOK, readinessResponse{Screen: screen, Ready: ready})
}

func (s *Server) navigationAnalytics(c echo.Context) error {
	sess, err := helpers.GetSessionFromContext(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess.Optimizer.GetNavigationAnalytics())
}

func (s *Server) suspendPreloads(c echo.Context) error {
	sess, err := helpers.GetSessionFromContext(c)
	if err != nil {
		return err
	}
	sess.Queue.Suspend()
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) resumePreloads(c echo.Context) error {
	sess, err := helpers.GetSessionFromContext(c)
	if err != nil {
		return err
	}
	sess.Queue.Resume()
	return c.NoContent(http.StatusNoContent)
}
