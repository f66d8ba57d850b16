package domain

// Role enumerates the roles carried by an authenticated actor.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID   string
	Role Role
}

// IsAdmin reports whether the actor may perform review operations.
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}
