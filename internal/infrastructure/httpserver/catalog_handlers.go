package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/volunteer-hub/internal/core/domain/volunteer"
	"github.com/avatarctic/volunteer-hub/internal/infrastructure/httpserver/helpers"
)

func (s *Server) getMe(c echo.Context) error {
	sess, err := helpers.GetSessionFromContext(c)
	if err != nil {
		return err
	}
	user, err := s.catalog.CurrentUser(c.Request().Context(), sess.UserID)
	if err != nil {
		return s.httpError(c, err, "failed to load profile")
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) listEvents(c echo.Context) error {
	events, err := s.catalog.Events(c.Request().Context())
	if err != nil {
		return s.httpError(c, err, "failed to load events")
	}
	return c.JSON(http.StatusOK, events)
}

func (s *Server) listVolunteerEvents(c echo.Context) error {
	events, err := s.catalog.VolunteerEvents(c.Request().Context())
	if err != nil {
		return s.httpError(c, err, "failed to load events")
	}
	return c.JSON(http.StatusOK, events)
}

func (s *Server) listVolunteerRegistrations(c echo.Context) error {
	sess, err := helpers.GetSessionFromContext(c)
	if err != nil {
		return err
	}
	regs, err := s.catalog.VolunteerRegistrations(c.Request().Context(), sess.UserID)
	if err != nil {
		return s.httpError(c, err, "failed to load registrations")
	}
	return c.JSON(http.StatusOK, regs)
}

func (s *Server) listAdminEvents(c echo.Context) error {
	sess, err := helpers.GetSessionFromContext(c)
	if err != nil {
		return err
	}
	events, err := s.catalog.AdminEvents(c.Request().Context(), sess.UserID)
	if err != nil {
		return s.httpError(c, err, "failed to load events")
	}
	return c.JSON(http.StatusOK, events)
}

func (s *Server) listAdminRegistrations(c echo.Context) error {
	sess, err := helpers.GetSessionFromContext(c)
	if err != nil {
		return err
	}
	regs, err := s.catalog.AdminRegistrations(c.Request().Context(), sess.UserID)
	if err != nil {
		return s.httpError(c, err, "failed to load registrations")
	}
	return c.JSON(http.StatusOK, regs)
}

func (s *Server) listEventRegistrations(c echo.Context) error {
	eventID, err := helpers.GetUUIDParam(c, "id")
	if err != nil {
		return err
	}
	regs, err := s.catalog.EventRegistrations(c.Request().Context(), eventID)
	if err != nil {
		return s.httpError(c, err, "failed to load registrations")
	}
	return c.JSON(http.StatusOK, regs)
}

func (s *Server) registerForEvent(c echo.Context) error {
	sess, err := helpers.GetSessionFromContext(c)
	if err != nil {
		return err
	}
	eventID, err := helpers.GetUUIDParam(c, "id")
	if err != nil {
		return err
	}
	reg, err := s.catalog.RegisterForEvent(c.Request().Context(), eventID, sess.UserID)
	if err != nil {
		return s.httpError(c, err, "failed to register for event")
	}
	return c.JSON(http.StatusCreated, reg)
}

func (s *Server) cancelRegistration(c echo.Context) error {
	sess, err := helpers.GetSessionFromContext(c)
	if err != nil {
		return err
	}
	eventID, err := helpers.GetUUIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := s.catalog.CancelRegistration(c.Request().Context(), eventID, sess.UserID); err != nil {
		return s.httpError(c, err, "failed to cancel registration")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) createEvent(c echo.Context) error {
	sess, err := helpers.GetSessionFromContext(c)
	if err != nil {
		return err
	}

	var req volunteer.CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.EndsAt != nil && req.EndsAt.Before(req.StartsAt) {
		return echo.NewHTTPError(http.StatusBadRequest, "ends_at must not be before starts_at")
	}

	event, err := s.catalog.CreateEvent(c.Request().Context(), sess.UserID, &req)
	if err != nil {
		return s.httpError(c, err, "failed to create event")
	}
	return c.JSON(http.StatusCreated, event)
}

func (s *Server) deleteEvent(c echo.Context) error {
	sess, err := helpers.GetSessionFromContext(c)
	if err != nil {
		return err
	}
	eventID, err := helpers.GetUUIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := s.catalog.DeleteEvent(c.Request().Context(), sess.UserID, eventID); err != nil {
		return s.httpError(c, err, "failed to delete event")
	}
	return c.NoContent(http.StatusNoContent)
}
