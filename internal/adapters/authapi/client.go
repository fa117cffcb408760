// Package authapi is the HTTP client for the job-matching auth service.
// It implements password login and registration (ports.Authenticator) and
// the "who am I" token check (ports.IdentityVerifier).
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/oauth2"

	domainauth "github.com/jobmatcher/jm-portal/internal/domain/auth"
	apperrors "github.com/jobmatcher/jm-portal/internal/errors"
	"github.com/jobmatcher/jm-portal/internal/ports"
)

// Auth service endpoints.
const (
	PathLogin      = "/api/v1/auth/login"
	PathAgentLogin = "/api/v1/auth/agent/login"
	PathAdminLogin = "/api/v1/auth/admin/login"
	PathRegister   = "/api/v1/auth/register"
	PathMe         = "/api/v1/auth/me"
)

// Default JMESPath expressions applied to the /me response body.
const (
	DefaultProfilePath = "user || @"
	DefaultRolePath    = "role || user.role"
)

const maxBodyBytes = 1 << 20

// Config holds configuration for the auth service client.
type Config struct {
	BaseURL     string
	HTTPClient  *http.Client     // Optional; a client with a cookie jar and Timeout is built otherwise
	Timeout     time.Duration    // defaults to 30s; ignored when HTTPClient is set
	ProfilePath string           // JMESPath selecting {id,name,email} from /me
	RolePath    string           // JMESPath selecting the role name (string or list) from /me
	Roles       ports.RoleMapper // Optional; defaults to exact role names
	Logger      *slog.Logger
}

// Client talks to the auth service.
type Client struct {
	baseURL string
	http    *http.Client
	profile *compiledPath
	role    *compiledPath
	roles   ports.RoleMapper
	logger  *slog.Logger
}

var (
	_ ports.Authenticator    = (*Client)(nil)
	_ ports.IdentityVerifier = (*Client)(nil)
)

// New validates cfg and builds a Client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("auth service base URL is required")
	}

	profilePath := firstNonEmpty(cfg.ProfilePath, DefaultProfilePath)
	profile, err := compilePath(profilePath)
	if err != nil {
		return nil, fmt.Errorf("profile path %q: %w", profilePath, err)
	}
	rolePath := firstNonEmpty(cfg.RolePath, DefaultRolePath)
	role, err := compilePath(rolePath)
	if err != nil {
		return nil, fmt.Errorf("role path %q: %w", rolePath, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		jar, jarErr := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if jarErr != nil {
			return nil, fmt.Errorf("cookie jar: %w", jarErr)
		}
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout, Jar: jar}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: base,
		http:    httpClient,
		profile: profile,
		role:    role,
		roles:   cfg.Roles,
		logger:  logger,
	}, nil
}

// LoginPath returns the login endpoint for a login surface.
func LoginPath(role domainauth.Role) (string, error) {
	switch role {
	case "", domainauth.RoleUser:
		return PathLogin, nil
	case domainauth.RoleAgent:
		return PathAgentLogin, nil
	case domainauth.RoleAdmin:
		return PathAdminLogin, nil
	default:
		return "", apperrors.ValidationField("role", fmt.Sprintf("no login surface for role %q", role))
	}
}

type credentialsRequest struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string           `json:"access_token"`
	User        *domainauth.User `json:"user"`
}

// Login posts credentials to the endpoint for in.Role. The issued role is in.Role
// (user when empty), matching the login surface that was used.
func (c *Client) Login(ctx context.Context, in ports.LoginInput) (ports.LoginResult, error) {
	path, err := LoginPath(in.Role)
	if err != nil {
		return ports.LoginResult{}, err
	}
	role := in.Role
	if role == "" {
		role = domainauth.RoleUser
	}
	tok, err := c.postCredentials(ctx, path, credentialsRequest{Email: in.Email, Password: in.Password})
	if err != nil {
		return ports.LoginResult{}, err
	}
	return ports.LoginResult{Token: tok.AccessToken, User: tok.User, Role: role}, nil
}

// Register creates a user account. New accounts always hold the user role.
func (c *Client) Register(ctx context.Context, in ports.RegisterInput) (ports.LoginResult, error) {
	tok, err := c.postCredentials(ctx, PathRegister, credentialsRequest{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
	})
	if err != nil {
		return ports.LoginResult{}, err
	}
	return ports.LoginResult{Token: tok.AccessToken, User: tok.User, Role: domainauth.RoleUser}, nil
}

func (c *Client) postCredentials(ctx context.Context, path string, body credentialsRequest) (tokenResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return tokenResponse{}, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return tokenResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	data, err := c.do(c.http, req)
	if err != nil {
		return tokenResponse{}, err
	}

	var tok tokenResponse
	if err := json.Unmarshal(data, &tok); err != nil {
		return tokenResponse{}, apperrors.Wrapf(err, apperrors.ErrCodeInternal, "decode %s response", path)
	}
	if strings.TrimSpace(tok.AccessToken) == "" {
		return tokenResponse{}, apperrors.Internal(fmt.Sprintf("%s response carried no access_token", path))
	}
	return tok, nil
}

// Verify calls /me with the token as a bearer credential and extracts the profile.
func (c *Client) Verify(ctx context.Context, token string) (domainauth.Profile, error) {
	if token == "" {
		return domainauth.Profile{}, apperrors.Unauthorized("empty token")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+PathMe, nil)
	if err != nil {
		return domainauth.Profile{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	data, err := c.do(c.bearerClient(ctx, token), req)
	if err != nil {
		return domainauth.Profile{}, err
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return domainauth.Profile{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "decode /me response")
	}
	return c.extractProfile(doc)
}

// bearerClient wraps the configured client so requests carry the token via
// an oauth2 transport.
func (c *Client) bearerClient(ctx context.Context, token string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	bc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	bc.Timeout = c.http.Timeout
	bc.Jar = c.http.Jar
	return bc
}

func (c *Client) do(client *http.Client, req *http.Request) ([]byte, error) {
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, transportError(req, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	c.logger.DebugContext(req.Context(), "auth api call",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeUnavailable, "read %s response", req.URL.Path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := newStatusError(req, resp.StatusCode, data)
		return nil, apperrors.Wrap(se, se.Code(), se.Message)
	}
	return data, nil
}

func transportError(req *http.Request, err error) error {
	ctxErr := req.Context().Err()
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctxErr, context.DeadlineExceeded):
		return apperrors.Wrapf(err, apperrors.ErrCodeTimeout, "%s %s timed out", req.Method, req.URL.Path)
	case errors.Is(err, context.Canceled) || errors.Is(ctxErr, context.Canceled):
		return apperrors.Wrapf(err, apperrors.ErrCodeCanceled, "%s %s canceled", req.Method, req.URL.Path)
	default:
		return apperrors.Wrapf(err, apperrors.ErrCodeUnavailable, "%s %s failed", req.Method, req.URL.Path)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
