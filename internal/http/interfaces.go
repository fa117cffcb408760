package httpx

import (
	"context"

	domainauth "github.com/jobmatcher/jm-portal/internal/domain/auth"
	"github.com/jobmatcher/jm-portal/internal/ports"
	"github.com/jobmatcher/jm-portal/internal/service"
)

// SessionReader exposes the current session snapshot.
type SessionReader interface {
	Current() domainauth.Session
}

// SessionController is the subset of service.SessionService the handlers use.
type SessionController interface {
	SessionReader
	Subscribe(fn func(domainauth.Session)) (unsubscribe func())
	Refresh(ctx context.Context) service.RefreshResult
}

// AuthServiceInterface defines the interface for auth service operations.
type AuthServiceInterface interface {
	Login(ctx context.Context, in ports.LoginInput) (domainauth.Session, error)
	Register(ctx context.Context, in ports.RegisterInput) (domainauth.Session, error)
	Logout(ctx context.Context)
	BeginLogin(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	CompleteLogin(ctx context.Context, in service.CompleteLoginInput) (domainauth.Session, error)
}

// BackendStatusService reports backend health.
type BackendStatusService interface {
	Status(ctx context.Context) []service.BackendStatus
}

var (
	_ SessionController    = (*service.SessionService)(nil)
	_ AuthServiceInterface = (*service.AuthService)(nil)
	_ BackendStatusService = (*service.HealthService)(nil)
)
