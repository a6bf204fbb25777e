package domain

import "time"

// AuditLog represents an audit event. UserID may be empty for events with no
// resolved subject, e.g. a failed login for an unknown account.
type AuditLog struct {
	ID        string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
