package httpx

import (
	"context"

	domainauth "github.com/jobmatcher/jm-portal/internal/domain/auth"
)

// sessionKey is an unexported context key type to avoid collisions across packages.
type sessionKey struct{}

// SetSessionInContext returns a child context that carries a snapshot of the session.
func SetSessionInContext(ctx context.Context, session domainauth.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session.Clone())
}

// GetSessionFromContext returns the session snapshot placed by the gate and whether one was set.
func GetSessionFromContext(ctx context.Context) (domainauth.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(domainauth.Session)
	return s, ok
}

// IsGuestUser reports whether the request context carries no session or a guest session.
func IsGuestUser(ctx context.Context) bool {
	s, ok := GetSessionFromContext(ctx)
	return !ok || s.IsGuest()
}
