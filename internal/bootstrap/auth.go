package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jobmatcher/jm-portal/config"
	"github.com/jobmatcher/jm-portal/internal/adapters/authapi"
	"github.com/jobmatcher/jm-portal/internal/adapters/authroles"
	"github.com/jobmatcher/jm-portal/internal/adapters/devauth"
	"github.com/jobmatcher/jm-portal/internal/adapters/oidc"
	domainauth "github.com/jobmatcher/jm-portal/internal/domain/auth"
	apperrors "github.com/jobmatcher/jm-portal/internal/errors"
	"github.com/jobmatcher/jm-portal/internal/ports"
)

// AuthConfig contains configuration for the auth adapters.
type AuthConfig struct {
	Auth     config.AuthConfig
	Backends config.BackendsConfig
	Logger   *slog.Logger
}

// AuthAdapters are the ports the session and auth services are built from.
type AuthAdapters struct {
	Authenticator ports.Authenticator
	Verifier      ports.IdentityVerifier
	Provider      ports.AuthProvider // nil unless the mode supports redirect login
}

// BuildAuthAdapters creates the auth adapters for the configured auth mode.
//
// api talks to the platform auth service for login and verification. dev
// issues and verifies local tokens. oidc keeps password login on the auth
// service and adds redirect login; session tokens are checked as ID tokens
// first and fall back to the auth service.
func BuildAuthAdapters(cfg AuthConfig) (AuthAdapters, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Role mapper is shared
	roleMapper := authroles.StaticRoleMapper{
		AdminGroup: cfg.Auth.AdminGroup,
		AgentGroup: cfg.Auth.AgentGroup,
		UserGroup:  cfg.Auth.UserGroup,
	}

	switch cfg.Auth.Mode {
	case config.AuthModeDev:
		return buildDevAuth(cfg, logger)
	case config.AuthModeOIDC:
		return buildOIDCAuth(cfg, roleMapper, logger)
	case config.AuthModeAPI, "":
		client, err := buildAPIClient(cfg, roleMapper, logger)
		if err != nil {
			return AuthAdapters{}, err
		}
		return AuthAdapters{Authenticator: client, Verifier: client}, nil
	default:
		return AuthAdapters{}, fmt.Errorf("unsupported auth mode %q", cfg.Auth.Mode)
	}
}

func buildAPIClient(cfg AuthConfig, roles ports.RoleMapper, logger *slog.Logger) (*authapi.Client, error) {
	client, err := authapi.New(authapi.Config{
		BaseURL:     cfg.Backends.AuthURL,
		Timeout:     cfg.Auth.HTTPTimeout,
		ProfilePath: cfg.Auth.ProfilePath,
		RolePath:    cfg.Auth.RolePath,
		Roles:       roles,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("auth service client: %w", err)
	}
	return client, nil
}

func buildDevAuth(cfg AuthConfig, logger *slog.Logger) (AuthAdapters, error) {
	prov, err := devauth.NewProvider(devauth.Config{
		Secret:     cfg.Auth.Dev.Secret,
		TokenTTL:   cfg.Auth.Dev.TTL,
		OAuthEmail: cfg.Auth.Dev.OAuthEmail,
		OAuthName:  cfg.Auth.Dev.OAuthName,
	})
	if err != nil {
		return AuthAdapters{}, fmt.Errorf("dev auth provider: %w", err)
	}
	logger.Warn("dev auth enabled; tokens are issued locally and passwords are not checked")
	return AuthAdapters{Authenticator: prov, Verifier: prov, Provider: prov}, nil
}

func buildOIDCAuth(cfg AuthConfig, roles ports.RoleMapper, logger *slog.Logger) (AuthAdapters, error) {
	oauth := cfg.Auth.OIDC
	prov, err := oidc.NewProvider(oidc.ProviderConfig{
		ClientID:     oauth.ClientID,
		ClientSecret: oauth.ClientSecret,
		RedirectURL:  oauth.RedirectURL,
		Scope:        oauth.Scope,
		DiscoveryURL: oauth.DiscoveryURL,
		Roles:        roles,
	})
	if err != nil {
		return AuthAdapters{}, fmt.Errorf("oidc provider: %w", err)
	}
	client, err := buildAPIClient(cfg, roles, logger)
	if err != nil {
		return AuthAdapters{}, err
	}
	return AuthAdapters{
		Authenticator: client,
		Verifier:      verifierChain{prov.Verifier(), client},
		Provider:      prov,
	}, nil
}

// verifierChain tries each verifier in order. A token the first one rejects
// as unauthorized is offered to the next; any other failure stops the chain.
type verifierChain []ports.IdentityVerifier

func (c verifierChain) Verify(ctx context.Context, token string) (domainauth.Profile, error) {
	err := errors.New("no identity verifier configured")
	for _, v := range c {
		var profile domainauth.Profile
		profile, err = v.Verify(ctx, token)
		if err == nil {
			return profile, nil
		}
		if !apperrors.IsUnauthorized(err) {
			return domainauth.Profile{}, err
		}
	}
	return domainauth.Profile{}, err
}
