package mocks

import (
	"context"
	"sync"

	"github.com/avatarctic/volunteer-hub/internal/core/domain/volunteer"
)

// DataSourceMock is a lightweight mock for ports.DataSource. Unset functions
// return empty results. Every call is counted by method name.
type DataSourceMock struct {
	GetCurrentUserFn        func(ctx context.Context) (*volunteer.User, error)
	GetAllEventsFn          func(ctx context.Context) ([]*volunteer.Event, error)
	GetEventsByAdminFn      func(ctx context.Context, adminID string) ([]*volunteer.Event, error)
	GetAllRegistrationsFn   func(ctx context.Context) ([]*volunteer.Registration, error)
	GetUserRegistrationsFn  func(ctx context.Context, userID string) ([]*volunteer.Registration, error)
	GetEventRegistrationsFn func(ctx context.Context, eventID string) ([]*volunteer.Registration, error)
	RegisterForEventFn      func(ctx context.Context, eventID, userID string) (*volunteer.Registration, error)
	CancelRegistrationFn    func(ctx context.Context, eventID, userID string) error
	CreateEventFn           func(ctx context.Context, createdBy string, req *volunteer.CreateEventRequest) (*volunteer.Event, error)
	DeleteEventFn           func(ctx context.Context, eventID string) error

	mu    sync.Mutex
	calls map[string]int
}

func (m *DataSourceMock) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[name]++
}

// Calls returns how many times method name was invoked.
func (m *DataSourceMock) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *DataSourceMock) GetCurrentUser(ctx context.Context) (*volunteer.User, error) {
	m.record("GetCurrentUser")
	if m.GetCurrentUserFn != nil {
		return m.GetCurrentUserFn(ctx)
	}
	return nil, nil
}

func (m *DataSourceMock) GetAllEvents(ctx context.Context) ([]*volunteer.Event, error) {
	m.record("GetAllEvents")
	if m.GetAllEventsFn != nil {
		return m.GetAllEventsFn(ctx)
	}
	return []*volunteer.Event{}, nil
}

func (m *DataSourceMock) GetEventsByAdmin(ctx context.Context, adminID string) ([]*volunteer.Event, error) {
	m.record("GetEventsByAdmin")
	if m.GetEventsByAdminFn != nil {
		return m.GetEventsByAdminFn(ctx, adminID)
	}
	return []*volunteer.Event{}, nil
}

func (m *DataSourceMock) GetAllRegistrations(ctx context.Context) ([]*volunteer.Registration, error) {
	m.record("GetAllRegistrations")
	if m.GetAllRegistrationsFn != nil {
		return m.GetAllRegistrationsFn(ctx)
	}
	return []*volunteer.Registration{}, nil
}

func (m *DataSourceMock) GetUserRegistrations(ctx context.Context, userID string) ([]*volunteer.Registration, error) {
	m.record("GetUserRegistrations")
	if m.GetUserRegistrationsFn != nil {
		return m.GetUserRegistrationsFn(ctx, userID)
	}
	return []*volunteer.Registration{}, nil
}

func (m *DataSourceMock) GetEventRegistrations(ctx context.Context, eventID string) ([]*volunteer.Registration, error) {
	m.record("GetEventRegistrations")
	if m.GetEventRegistrationsFn != nil {
		return m.GetEventRegistrationsFn(ctx, eventID)
	}
	return []*volunteer.Registration{}, nil
}

func (m *DataSourceMock) RegisterForEvent(ctx context.Context, eventID, userID string) (*volunteer.Registration, error) {
	m.record("RegisterForEvent")
	if m.RegisterForEventFn != nil {
		return m.RegisterForEventFn(ctx, eventID, userID)
	}
	return &volunteer.Registration{ID: "reg-" + eventID + "-" + userID, EventID: eventID, UserID: userID, Status: volunteer.RegistrationStatusRegistered}, nil
}

func (m *DataSourceMock) CancelRegistration(ctx context.Context, eventID, userID string) error {
	m.record("CancelRegistration")
	if m.CancelRegistrationFn != nil {
		return m.CancelRegistrationFn(ctx, eventID, userID)
	}
	return nil
}

func (m *DataSourceMock) CreateEvent(ctx context.Context, createdBy string, req *volunteer.CreateEventRequest) (*volunteer.Event, error) {
	m.record("CreateEvent")
	if m.CreateEventFn != nil {
		return m.CreateEventFn(ctx, createdBy, req)
	}
	return &volunteer.Event{ID: "new-event", Title: req.Title, CreatedBy: createdBy}, nil
}

func (m *DataSourceMock) DeleteEvent(ctx context.Context, eventID string) error {
	m.record("DeleteEvent")
	if m.DeleteEventFn != nil {
		return m.DeleteEventFn(ctx, eventID)
	}
	return nil
}
