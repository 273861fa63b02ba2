package entity

import "time"

// Session binds a normalized phone number to its currently active code,
// expiry, and attempt count. At most one live session exists per phone key.
type Session struct {
	PhoneKey  string
	Code      string
	Attempts  int
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session's validity window has passed.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Remaining returns the time left until expiry, never negative.
func (s Session) Remaining(now time.Time) time.Duration {
	if s.Expired(now) {
		return 0
	}
	return s.ExpiresAt.Sub(now)
}
