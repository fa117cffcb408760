package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	domainauth "github.com/jobmatcher/jm-portal/internal/domain/auth"
	apperrors "github.com/jobmatcher/jm-portal/internal/errors"
	"github.com/jobmatcher/jm-portal/internal/ports"
)

const (
	minPasswordLen = 6
	minNameLen     = 2
)

// ErrProviderNotConfigured is returned by the redirect login flow when no
// identity provider is wired.
var ErrProviderNotConfigured = errors.New("auth provider not configured")

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Authenticator ports.Authenticator // Required
	Sessions      *SessionService     // Required
	Provider      ports.AuthProvider  // Optional; enables BeginLogin/CompleteLogin
}

// AuthService runs the login, registration and redirect login flows and
// hands successful credentials to the session container.
// A failed flow never modifies the current session.
type AuthService struct {
	authn    ports.Authenticator
	sessions *SessionService
	provider ports.AuthProvider
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	if opts.Authenticator == nil {
		panic("AuthService requires an Authenticator")
	}
	if opts.Sessions == nil {
		panic("AuthService requires a SessionService")
	}
	return &AuthService{
		authn:    opts.Authenticator,
		sessions: opts.Sessions,
		provider: opts.Provider,
	}
}

// Login validates credentials, authenticates against the login surface for
// in.Role (user when empty), and installs the resulting session.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (domainauth.Session, error) {
	in.Email = strings.TrimSpace(in.Email)
	if in.Role == "" {
		in.Role = domainauth.RoleUser
	}
	if err := validateLogin(in); err != nil {
		return domainauth.Session{}, err
	}

	res, err := s.authn.Login(ctx, in)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("login: %w", err)
	}
	if res.Role == "" {
		res.Role = in.Role
	}
	return s.install(ctx, res)
}

// Register validates the registration form, creates the account, and logs
// the new user in.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (domainauth.Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateRegister(in); err != nil {
		return domainauth.Session{}, err
	}

	res, err := s.authn.Register(ctx, in)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("register: %w", err)
	}
	if res.Role == "" {
		res.Role = domainauth.RoleUser
	}
	return s.install(ctx, res)
}

// Logout clears the session.
func (s *AuthService) Logout(ctx context.Context) {
	s.sessions.Logout(ctx)
}

// BeginLoginResult contains the result of beginning a redirect login flow.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginLogin initiates a redirect login flow and returns the provider auth URL with state and nonce.
func (s *AuthService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if s.provider == nil {
		return nil, ErrProviderNotConfigured
	}
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	authURL, state, nonce, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}
	return &BeginLoginResult{AuthURL: authURL, State: state, Nonce: nonce}, nil
}

// CompleteLoginInput groups parameters for completing a redirect login flow.
type CompleteLoginInput struct {
	Code  string
	State string
	Nonce string
}

// CompleteLogin exchanges the authorization code and installs the issued credential.
func (s *AuthService) CompleteLogin(ctx context.Context, in CompleteLoginInput) (domainauth.Session, error) {
	if s.provider == nil {
		return domainauth.Session{}, ErrProviderNotConfigured
	}
	if in.Code == "" {
		return domainauth.Session{}, errors.New("authorization code is required")
	}
	if in.State == "" {
		return domainauth.Session{}, errors.New("state parameter is required")
	}
	if in.Nonce == "" {
		return domainauth.Session{}, errors.New("nonce parameter is required")
	}

	res, err := s.provider.Exchange(ctx, ports.ExchangeInput(in))
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("exchange authorization code: %w", err)
	}
	if res.Role == "" {
		res.Role = domainauth.RoleUser
	}
	return s.install(ctx, res)
}

// install hands a credential to the session container. A token without a
// profile is hydrated right away.
func (s *AuthService) install(ctx context.Context, res ports.LoginResult) (domainauth.Session, error) {
	if err := s.sessions.Login(ctx, res.Token, res.User, res.Role); err != nil {
		return domainauth.Session{}, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "backend returned an unusable credential")
	}
	if res.User == nil {
		r := s.sessions.Refresh(ctx)
		if r.Outcome == RefreshCollapsed {
			return domainauth.Session{}, apperrors.Wrap(r.Err, apperrors.ErrCodeUnauthorized, "credential rejected")
		}
	}
	return s.sessions.Current(), nil
}

func validateLogin(in ports.LoginInput) error {
	switch in.Role {
	case domainauth.RoleUser, domainauth.RoleAgent, domainauth.RoleAdmin:
	default:
		return apperrors.ValidationField("role", "unknown login surface")
	}
	if err := validateEmail(in.Email); err != nil {
		return err
	}
	return validatePassword(in.Password)
}

func validateRegister(in ports.RegisterInput) error {
	if utf8.RuneCountInString(in.Name) < minNameLen {
		return apperrors.ValidationField("name", fmt.Sprintf("name must be at least %d characters", minNameLen))
	}
	if err := validateEmail(in.Email); err != nil {
		return err
	}
	return validatePassword(in.Password)
}

func validateEmail(email string) error {
	if email == "" {
		return apperrors.ValidationField("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperrors.ValidationField("email", "email is not a valid address")
	}
	return nil
}

func validatePassword(pw string) error {
	if utf8.RuneCountInString(pw) < minPasswordLen {
		return apperrors.ValidationField("password", fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	return nil
}
