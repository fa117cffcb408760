// Package oidc provides social/enterprise login through an OpenID Connect IdP.
// The issued ID token becomes the session credential, and Verifier re-checks
// it during session hydration.
package oidc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/jobmatcher/jm-portal/internal/domain/auth"
	"github.com/jobmatcher/jm-portal/internal/ports"
)

// Provider implements ports.AuthProvider using OIDC/OAuth2.
type Provider struct {
	config     *oauth2.Config
	httpClient *http.Client

	oidcProvider *gooidc.Provider
	verifier     *Verifier
}

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	DiscoveryURL string
	Roles        ports.RoleMapper // Optional; maps the groups claim
	HTTPClient   *http.Client     // Optional, defaults to a 30s timeout client
}

// DiscoveryDocument represents the OIDC discovery document.
type DiscoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JwksURI               string `json:"jwks_uri"`
}

// NewProvider runs discovery against cfg.DiscoveryURL and builds the provider.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if cfg.RedirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}
	if cfg.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	ctx := gooidc.ClientContext(context.Background(), httpClient)
	issuer := strings.TrimSuffix(cfg.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	scopes := strings.Fields(cfg.Scope)
	if !slices.Contains(scopes, gooidc.ScopeOpenID) {
		scopes = append([]string{gooidc.ScopeOpenID}, scopes...)
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     op.Endpoint(),
		},
		httpClient:   httpClient,
		oidcProvider: op,
		verifier: &Verifier{
			idTokens:   op.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
			roles:      cfg.Roles,
			httpClient: httpClient,
		},
	}, nil
}

// Verifier returns the ID token verifier bound to this provider's issuer and client.
func (p *Provider) Verifier() *Verifier { return p.verifier }

func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (string, string, string, error) {
	if in.RedirectURL == "" {
		return "", "", "", errors.New("redirect URL is required")
	}

	state, err := generateRandomString(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := generateRandomString(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}

	// redirect_uri stays the configured RedirectURL so it matches the IdP registration.
	authURL := p.config.AuthCodeURL(state,
		gooidc.Nonce(nonce),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
	return authURL, state, nonce, nil
}

// Exchange redeems the code, verifies the ID token and nonce, and returns the
// raw ID token as the session credential. Missing profile fields are filled
// from the UserInfo endpoint.
func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (ports.LoginResult, error) {
	if in.Code == "" {
		return ports.LoginResult{}, errors.New("authorization code is required")
	}
	if in.State == "" {
		return ports.LoginResult{}, errors.New("state is required")
	}
	if in.Nonce == "" {
		return ports.LoginResult{}, errors.New("nonce is required")
	}

	ctx = gooidc.ClientContext(ctx, p.httpClient)
	token, err := p.config.Exchange(ctx, in.Code)
	if err != nil {
		return ports.LoginResult{}, fmt.Errorf("exchange code for token: %w", err)
	}
	rawID, err := getIDTokenFromToken(token)
	if err != nil {
		return ports.LoginResult{}, err
	}

	claims, err := p.verifier.verifyClaims(ctx, rawID)
	if err != nil {
		return ports.LoginResult{}, fmt.Errorf("verify id_token: %w", err)
	}
	if claims.Nonce != in.Nonce {
		return ports.LoginResult{}, errors.New("invalid nonce")
	}

	if claims.email() == "" || claims.name() == "" {
		if ui, uiErr := p.getUserInfo(ctx, token.AccessToken); uiErr == nil {
			claims.fillFrom(ui)
		}
	}

	profile := p.verifier.profile(claims)
	user := profile.User
	return ports.LoginResult{Token: rawID, User: &user, Role: profile.Role}, nil
}

func (p *Provider) getUserInfo(ctx context.Context, accessToken string) (idClaims, error) {
	ui, err := p.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	if err != nil {
		return idClaims{}, fmt.Errorf("fetch user info: %w", err)
	}
	var c idClaims
	if err := ui.Claims(&c); err != nil {
		return idClaims{}, fmt.Errorf("decode user info: %w", err)
	}
	return c, nil
}

// generateRandomString generates a cryptographically secure URL-safe random string of exact length.
func generateRandomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	b := make([]byte, (length*3+3)/4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	for len(s) < length {
		extra := make([]byte, 3)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:length], nil
}

// getIDTokenFromToken extracts the id_token from oauth2.Token.
func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	s, ok := tok.Extra("id_token").(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}

// userRole is the session role for a verified identity: the mapped groups,
// or user when nothing maps.
func userRole(roles ports.RoleMapper, groups []string) domainauth.Role {
	if roles == nil {
		return domainauth.RoleUser
	}
	if r := roles.Map(groups); r != domainauth.RoleGuest {
		return r
	}
	return domainauth.RoleUser
}
