package model

import "time"

type Session struct {
	UserID    string
	Email     string
	Name      string
	Provider  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Valid reports whether the session identifies a user and has not expired.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.UserID != "" && now.Before(s.ExpiresAt)
}
