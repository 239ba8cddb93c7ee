package volunteer

import (
	"time"
)

// User is the profile row of an authenticated app user.
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	FullName  string    `json:"full_name" db:"full_name"`
	IsAdmin   bool      `json:"is_admin" db:"is_admin"`
	Coins     int       `json:"coins" db:"coins"`
	Level     int       `json:"level" db:"level"`
	AvatarURL *string   `json:"avatar_url,omitempty" db:"avatar_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Role returns the role label used for metrics and policy lookups.
func (u *User) Role() Role {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleVolunteer
}

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleVolunteer Role = "volunteer"
)

func (r Role) String() string {
	return string(r)
}

func RoleOf(isAdmin bool) Role {
	if isAdmin {
		return RoleAdmin
	}
	return RoleVolunteer
}

type Event struct {
	ID          string     `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Location    string     `json:"location" db:"location"`
	StartsAt    time.Time  `json:"starts_at" db:"starts_at"`
	EndsAt      *time.Time `json:"ends_at,omitempty" db:"ends_at"`
	Capacity    int        `json:"capacity" db:"capacity"`
	CoinReward  int        `json:"coin_reward" db:"coin_reward"`
	CreatedBy   string     `json:"created_by" db:"created_by"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

type RegistrationStatus string

const (
	RegistrationStatusRegistered RegistrationStatus = "registered"
	RegistrationStatusAttended   RegistrationStatus = "attended"
	RegistrationStatusCancelled  RegistrationStatus = "cancelled"
)

type Registration struct {
	ID        string             `json:"id" db:"id"`
	EventID   string             `json:"event_id" db:"event_id"`
	UserID    string             `json:"user_id" db:"user_id"`
	Status    RegistrationStatus `json:"status" db:"status"`
	CreatedAt time.Time          `json:"created_at" db:"created_at"`
}

// CreateEventRequest is the admin payload for a new event.
type CreateEventRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=5000"`
	Location    string     `json:"location" validate:"required"`
	StartsAt    time.Time  `json:"starts_at" validate:"required"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	Capacity    int        `json:"capacity" validate:"min=0"`
	CoinReward  int        `json:"coin_reward" validate:"min=0"`
}

// FilterRegistrationsForEvents keeps only registrations whose event is in events.
// The remote source has no filtered query for "registrations of my events", so the
// join happens client-side.
func FilterRegistrationsForEvents(regs []*Registration, events []*Event) []*Registration {
	ids := make(map[string]struct{}, len(events))
	for _, e := range events {
		if e == nil {
			continue
		}
		ids[e.ID] = struct{}{}
	}
	out := make([]*Registration, 0, len(regs))
	for _, r := range regs {
		if r == nil {
			continue
		}
		if _, ok := ids[r.EventID]; ok {
			out = append(out, r)
		}
	}
	return out
}
