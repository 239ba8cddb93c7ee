// Package cachekey is the single registry of cache key names. Independent call
// sites must agree on identity, and keys are the only identity the cache has,
// so every key is built here.
package cachekey

const (
	VolunteerEvents = "volunteer_events"
	AllEvents       = "all_events"

	userDataPrefix               = "user_data_"
	adminEventsPrefix            = "admin_events_"
	adminRegistrationsPrefix     = "admin_registrations_"
	volunteerRegistrationsPrefix = "volunteer_registrations_"
	eventRegistrationsPrefix     = "event_registrations_"
)

// Substrings accepted by pattern invalidation.
const (
	AdminPattern     = "admin"
	VolunteerPattern = "volunteer"
)

// UserData is the profile of a single user. It is parameterized because one
// process serves many sessions.
func UserData(userID string) string {
	return userDataPrefix + userID
}

func AdminEvents(adminID string) string {
	return adminEventsPrefix + adminID
}

func AdminRegistrations(adminID string) string {
	return adminRegistrationsPrefix + adminID
}

func VolunteerRegistrations(userID string) string {
	return volunteerRegistrationsPrefix + userID
}

func EventRegistrations(eventID string) string {
	return eventRegistrationsPrefix + eventID
}

// Facet names one cached dataset family. Facets are the unit of single-facet
// refreshes and of per-screen readiness rules.
type Facet string

const (
	FacetUser                   Facet = "user"
	FacetVolunteerEvents        Facet = "volunteer_events"
	FacetVolunteerRegistrations Facet = "volunteer_registrations"
	FacetAdminEvents            Facet = "admin_events"
	FacetAdminRegistrations     Facet = "admin_registrations"
	FacetEvents                 Facet = "events"
)

func (f Facet) String() string {
	return string(f)
}

func (f Facet) IsValid() bool {
	switch f {
	case FacetUser, FacetVolunteerEvents, FacetVolunteerRegistrations,
		FacetAdminEvents, FacetAdminRegistrations, FacetEvents:
		return true
	default:
		return false
	}
}

// ForFacet returns the key holding facet f for userID. Facets that are shared
// across users ignore userID.
func ForFacet(f Facet, userID string) (string, bool) {
	switch f {
	case FacetUser:
		return UserData(userID), true
	case FacetVolunteerEvents:
		return VolunteerEvents, true
	case FacetVolunteerRegistrations:
		return VolunteerRegistrations(userID), true
	case FacetAdminEvents:
		return AdminEvents(userID), true
	case FacetAdminRegistrations:
		return AdminRegistrations(userID), true
	case FacetEvents:
		return AllEvents, true
	default:
		return "", false
	}
}
