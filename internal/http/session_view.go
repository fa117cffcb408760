package httpx

import (
	domainauth "github.com/jobmatcher/jm-portal/internal/domain/auth"
)

// UserView is the public part of a session's user.
type UserView struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SessionView is the read model of a session served to browsers. It never
// carries the token.
type SessionView struct {
	Role          domainauth.Role `json:"role"`
	User          *UserView       `json:"user"`
	Authenticated bool            `json:"authenticated"`
	Hydrated      bool            `json:"hydrated"`
}

// NewSessionView builds the read model for s.
func NewSessionView(s domainauth.Session) SessionView {
	v := SessionView{
		Role:          s.Role,
		Authenticated: s.Authenticated(),
		Hydrated:      s.User != nil,
	}
	if s.User != nil {
		v.User = &UserView{ID: s.User.ID, Name: s.User.Name, Email: s.User.Email}
	}
	return v
}
