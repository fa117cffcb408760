// Package devauth is a self-contained auth backend for local development.
// It issues HS256 JWTs for any well-formed credentials, verifies them for
// session hydration, and short-circuits the OAuth redirect flow.
package devauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	domainauth "github.com/jobmatcher/jm-portal/internal/domain/auth"
	apperrors "github.com/jobmatcher/jm-portal/internal/errors"
	"github.com/jobmatcher/jm-portal/internal/ports"
)

const issuer = "jm-portal-dev"

// Config controls the dev auth provider behavior.
type Config struct {
	Secret   string        // Required; HMAC signing key
	TokenTTL time.Duration // default 8h when zero
	// OAuthEmail and OAuthName identify the account returned by the OAuth flow.
	OAuthEmail string
	OAuthName  string
	Now        func() time.Time
}

// Claims is the token payload.
type Claims struct {
	UserID int64  `json:"uid"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Provider implements ports.Authenticator, ports.IdentityVerifier and
// ports.AuthProvider. Accounts live in memory; user IDs are assigned by
// email on first use and stay stable for the process lifetime.
type Provider struct {
	secret     []byte
	ttl        time.Duration
	oauthEmail string
	oauthName  string
	now        func() time.Time

	mu       sync.Mutex
	accounts map[string]domainauth.User
	nextID   int64
}

var (
	_ ports.Authenticator    = (*Provider)(nil)
	_ ports.IdentityVerifier = (*Provider)(nil)
	_ ports.AuthProvider     = (*Provider)(nil)
)

// NewProvider constructs a dev auth provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if len(cfg.Secret) < 16 {
		return nil, errors.New("dev auth: Secret must be at least 16 bytes")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	email := cfg.OAuthEmail
	if email == "" {
		email = "dev@example.com"
	}
	name := cfg.OAuthName
	if name == "" {
		name = "Dev User"
	}
	return &Provider{
		secret:     []byte(cfg.Secret),
		ttl:        ttl,
		oauthEmail: email,
		oauthName:  name,
		now:        now,
		accounts:   make(map[string]domainauth.User),
	}, nil
}

// Login accepts any password and issues a token for the requested role.
func (p *Provider) Login(_ context.Context, in ports.LoginInput) (ports.LoginResult, error) {
	role := in.Role
	if role == "" {
		role = domainauth.RoleUser
	}
	if role == domainauth.RoleGuest || !role.Valid() {
		return ports.LoginResult{}, apperrors.ValidationField("role", fmt.Sprintf("no login surface for role %q", role))
	}
	user := p.account(in.Email, "")
	return p.issue(user, role)
}

// Register creates the account (or renames an existing one) and logs it in as a user.
func (p *Provider) Register(_ context.Context, in ports.RegisterInput) (ports.LoginResult, error) {
	return p.issue(p.account(in.Email, in.Name), domainauth.RoleUser)
}

// Verify checks signature, issuer and expiry, and returns the embedded profile.
func (p *Provider) Verify(_ context.Context, token string) (domainauth.Profile, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return p.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return domainauth.Profile{}, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "invalid dev token")
	}
	role, _ := domainauth.ParseRole(claims.Role)
	return domainauth.Profile{
		User: domainauth.User{ID: claims.UserID, Name: claims.Name, Email: claims.Email},
		Role: role,
	}, nil
}

// Begin returns a local callback URL and cryptographically secure state and nonce.
func (p *Provider) Begin(_ context.Context, _ ports.BeginInput) (string, string, string, error) {
	state, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}
	return "/auth/oauth/callback?code=dev&state=" + state, state, nonce, nil
}

// Exchange ignores the code (state is checked by the handler) and logs in the OAuth account.
func (p *Provider) Exchange(_ context.Context, _ ports.ExchangeInput) (ports.LoginResult, error) {
	return p.issue(p.account(p.oauthEmail, p.oauthName), domainauth.RoleUser)
}

func (p *Provider) account(email, name string) domainauth.User {
	key := strings.ToLower(strings.TrimSpace(email))
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.accounts[key]
	if !ok {
		p.nextID++
		u = domainauth.User{ID: p.nextID, Email: strings.TrimSpace(email), Name: displayName(email)}
	}
	if n := strings.TrimSpace(name); n != "" {
		u.Name = n
	}
	p.accounts[key] = u
	return u
}

func (p *Provider) issue(user domainauth.User, role domainauth.Role) (ports.LoginResult, error) {
	now := p.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	})
	signed, err := tok.SignedString(p.secret)
	if err != nil {
		return ports.LoginResult{}, fmt.Errorf("sign dev token: %w", err)
	}
	u := user
	return ports.LoginResult{Token: signed, User: &u, Role: role}, nil
}

// displayName derives a name from the local part of an email address.
func displayName(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	if local == "" {
		return "user"
	}
	return local
}

func randomString(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	b := make([]byte, (n*3+3)/4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	for len(s) < n {
		extra := make([]byte, 3)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:n], nil
}
