package domain

import (
	"errors"
	"time"
)

// User is the core account entity. PasswordHash is a bcrypt hash; the
// plaintext never leaves the service boundary.
type User struct {
	ID           string
	Login        string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	IsActive     bool
	CreatedAt    time.Time
}

// Validate validates the user for persistence. Returns an error describing the
// first validation failure.
func (u *User) Validate() error {
	if u.Login == "" {
		return errors.New("login is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	return nil
}
