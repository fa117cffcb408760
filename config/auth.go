package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeAPI logs in against the platform auth service.
	AuthModeAPI AuthMode = "api"
	// AuthModeDev issues local signed tokens (for development only).
	AuthModeDev AuthMode = "dev"
	// AuthModeOIDC logs in through an OpenID Connect provider.
	AuthModeOIDC AuthMode = "oidc"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "api", "dev", "oidc":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: api, dev, oidc)", v)
	}
}

const defaultRefreshTimeout = 10 * time.Second

// OIDCConfig contains OAuth/OIDC configuration.
type OIDCConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/oauth/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email groups"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
}

// DevAuthConfig controls locally issued tokens.
// Used when AUTH_MODE=dev for development and testing.
type DevAuthConfig struct {
	Secret     string        `env:"SECRET"`
	TTL        time.Duration `env:"TTL"         envDefault:"8h"`
	OAuthEmail string        `env:"OAUTH_EMAIL" envDefault:"dev@example.com"`
	OAuthName  string        `env:"OAUTH_NAME"  envDefault:"Dev User"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which authentication backend to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"api"`

	// RefreshTimeout bounds a single identity verification.
	RefreshTimeout time.Duration `env:"AUTH_REFRESH_TIMEOUT" envDefault:"10s"`

	// HTTPTimeout bounds requests to the auth service.
	HTTPTimeout time.Duration `env:"AUTH_HTTP_TIMEOUT" envDefault:"30s"`

	// ProfilePath and RolePath are JMESPath expressions applied to the /me response.
	ProfilePath string `env:"AUTH_ME_PROFILE_PATH" envDefault:"user || @"`
	RolePath    string `env:"AUTH_ME_ROLE_PATH"    envDefault:"role || user.role"`

	// Group names mapped to session roles, matched case-insensitively.
	AdminGroup string `env:"AUTH_ADMIN_GROUP" envDefault:"admin"`
	AgentGroup string `env:"AUTH_AGENT_GROUP" envDefault:"agent"`
	UserGroup  string `env:"AUTH_USER_GROUP"  envDefault:"user"`

	// OIDC configuration (used when Mode=oidc).
	OIDC OIDCConfig `envPrefix:"AUTH_OIDC_"`

	// Dev configuration (used when Mode=dev).
	Dev DevAuthConfig `envPrefix:"AUTH_DEV_"`
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize() {
	if a.Mode == "" {
		a.Mode = AuthModeAPI
	}
	if a.RefreshTimeout <= 0 {
		a.RefreshTimeout = defaultRefreshTimeout
	}
	if a.HTTPTimeout <= 0 {
		a.HTTPTimeout = 30 * time.Second
	}
	a.ProfilePath = strings.TrimSpace(a.ProfilePath)
	a.RolePath = strings.TrimSpace(a.RolePath)
}

// Validate reports settings the selected mode cannot run without.
func (a *AuthConfig) Validate() error {
	switch a.Mode {
	case AuthModeOIDC:
		if a.OIDC.ClientID == "" || a.OIDC.ClientSecret == "" || a.OIDC.DiscoveryURL == "" {
			return fmt.Errorf("auth mode %s requires AUTH_OIDC_CLIENT_ID, AUTH_OIDC_CLIENT_SECRET and AUTH_OIDC_DISCOVERY_URL", a.Mode)
		}
	case AuthModeDev:
		if len(a.Dev.Secret) < 16 {
			return fmt.Errorf("auth mode %s requires AUTH_DEV_SECRET of at least 16 bytes", a.Mode)
		}
	}
	return nil
}
