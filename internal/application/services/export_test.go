package services

import "time"

func (m *SessionManager) SetClock(now func() time.Time) {
	m.now = now
}
