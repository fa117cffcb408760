package auth

// Package auth contains domain-level types for the portal session.
// It is pure and free of framework/adapter concerns.

import "strings"

// Role represents the access tier of the current session.
// Keep string form for easy persistence.
type Role string

const (
	RoleGuest Role = "guest"
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

// ParseRole returns the Role for s and whether s names a known role.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleGuest, RoleUser, RoleAgent, RoleAdmin:
		return r, true
	default:
		return RoleGuest, false
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleGuest, RoleUser, RoleAgent, RoleAdmin:
		return true
	default:
		return false
	}
}

// User is the profile snapshot attached to a session.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Profile is what the identity verifier returns for a valid token.
// Role is empty when the backend does not report one.
type Profile struct {
	User User
	Role Role
}

// Session is the single source of truth for who is using the portal.
// Token is empty iff Role is guest. User may be nil while a token is
// still waiting to be hydrated.
type Session struct {
	Role  Role
	Token string
	User  *User
}

// Guest returns the anonymous session.
func Guest() Session { return Session{Role: RoleGuest} }

// IsGuest returns true if the session role is guest.
func (s Session) IsGuest() bool { return s.Role == RoleGuest }

// Authenticated reports whether the session carries a credential.
func (s Session) Authenticated() bool { return !s.IsGuest() }

// NeedsHydration reports whether a token is held without a profile.
func (s Session) NeedsHydration() bool { return s.Token != "" && s.User == nil }

// Consistent reports whether s satisfies the role/token coupling.
func (s Session) Consistent() bool {
	if !s.Role.Valid() {
		return false
	}
	return (s.Role == RoleGuest) == (s.Token == "")
}

// Normalize returns s when it is consistent and Guest otherwise.
// The returned session never shares its User pointer with s.
func (s Session) Normalize() Session {
	if !s.Consistent() || s.IsGuest() {
		return Guest()
	}
	return s.Clone()
}

// Clone returns a deep copy of s.
func (s Session) Clone() Session {
	out := s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	return out
}

// Equal reports whether two sessions hold the same role, token, and profile.
func (s Session) Equal(o Session) bool {
	if s.Role != o.Role || s.Token != o.Token {
		return false
	}
	if s.User == nil || o.User == nil {
		return s.User == nil && o.User == nil
	}
	return *s.User == *o.User
}
