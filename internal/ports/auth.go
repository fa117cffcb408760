package ports

// Package ports defines interfaces (hexagonal ports) for session-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"

	domainauth "github.com/jobmatcher/jm-portal/internal/domain/auth"
)

// ErrSlotNotFound is returned by SlotStore implementations when the key has never been written.
var ErrSlotNotFound = errors.New("slot not found")

// SlotStore is a durable key/value slot used to persist the serialized session.
type SlotStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// IdentityVerifier validates a bearer token against the identity backend ("who am I").
// Any error means the token must be treated as invalid, unless the caller
// cancelled ctx before an answer arrived.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (domainauth.Profile, error)
}

// LoginInput carries credentials for a password login.
// Role selects the login surface (user, agent, admin).
type LoginInput struct {
	Email    string
	Password string
	Role     domainauth.Role
}

// RegisterInput carries the fields of the registration form.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginResult is what a successful login or registration yields.
// User is nil when the backend returns only a token.
type LoginResult struct {
	Token string
	User  *domainauth.User
	Role  domainauth.Role
}

// Authenticator performs password logins and registrations against the auth backend.
type Authenticator interface {
	Login(ctx context.Context, in LoginInput) (LoginResult, error)
	Register(ctx context.Context, in RegisterInput) (LoginResult, error)
}

// BeginInput carries inputs for initiating a redirect-based auth flow.
type BeginInput struct {
	RedirectURL string
}

// ExchangeInput groups parameters for the code/token exchange.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// AuthProvider initiates and completes a redirect-based login against an IdP.
type AuthProvider interface {
	// Begin starts the login flow and returns the provider auth URL, an opaque state, and a nonce.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)

	// Exchange completes the login flow, verifying state and nonce, and returns the issued credential.
	Exchange(ctx context.Context, in ExchangeInput) (LoginResult, error)
}

// RoleMapper maps backend role or group names to a session role.
type RoleMapper interface {
	Map(names []string) domainauth.Role
}

// BackendPinger probes a backend service's liveness endpoint.
// It returns the response body on a 2xx response.
type BackendPinger interface {
	Ping(ctx context.Context, baseURL, service string) (string, error)
}
