package domain

// Role is a named grant attached to users. Tokens carry role IDs; nothing in
// this service interprets them.
type Role struct {
	ID   string
	Name string
}
