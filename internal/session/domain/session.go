package domain

import "time"

// Session is one login on one device. RefreshToken holds the currently valid
// refresh token for the session; empty between Open and the first bind.
type Session struct {
	ID           string
	UserID       string
	UserAgent    string
	RefreshToken string
	IsActive     bool
	CreatedAt    time.Time
}
