package authapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobmatcher/jm-portal/internal/adapters/authroles"
	domainauth "github.com/jobmatcher/jm-portal/internal/domain/auth"
	apperrors "github.com/jobmatcher/jm-portal/internal/errors"
	"github.com/jobmatcher/jm-portal/internal/ports"
)

type fakeAuthService struct {
	t       *testing.T
	me      func(w http.ResponseWriter, r *http.Request)
	lastReq map[string]string
	lastURL string
}

func (f *fakeAuthService) handler() http.Handler {
	mux := http.NewServeMux()
	login := func(w http.ResponseWriter, r *http.Request) {
		f.lastURL = r.URL.Path
		f.lastReq = map[string]string{}
		if err := json.NewDecoder(r.Body).Decode(&f.lastReq); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		assert.Equal(f.t, "application/json", r.Header.Get("Content-Type"))
		if f.lastReq["password"] != "secret1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Invalid credentials"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-" + r.URL.Path,
			"user":         map[string]any{"id": 1, "name": "Taro", "email": f.lastReq["email"]},
		})
	}
	mux.HandleFunc("POST "+PathLogin, login)
	mux.HandleFunc("POST "+PathAgentLogin, login)
	mux.HandleFunc("POST "+PathAdminLogin, login)
	mux.HandleFunc("POST "+PathRegister, func(w http.ResponseWriter, r *http.Request) {
		f.lastReq = map[string]string{}
		_ = json.NewDecoder(r.Body).Decode(&f.lastReq)
		if f.lastReq["email"] == "taken@example.com" {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"message":"Email already registered"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "new-tok"})
	})
	mux.HandleFunc("GET "+PathMe, func(w http.ResponseWriter, r *http.Request) {
		if f.me != nil {
			f.me(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":1,"name":"Taro","email":"taro@example.com"}`))
	})
	return mux
}

func newTestClient(t *testing.T, cfg Config) (*Client, *fakeAuthService) {
	t.Helper()
	fake := &fakeAuthService{t: t}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	cfg.BaseURL = srv.URL + "/"
	c, err := New(cfg)
	require.NoError(t, err)
	return c, fake
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "http://x", ProfilePath: "user ||"})
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "http://x", RolePath: "[["})
	assert.Error(t, err)
}

func TestLogin_SelectsEndpointByRole(t *testing.T) {
	c, fake := newTestClient(t, Config{})
	ctx := context.Background()

	tests := []struct {
		role     domainauth.Role
		wantPath string
		wantRole domainauth.Role
	}{
		{"", PathLogin, domainauth.RoleUser},
		{domainauth.RoleUser, PathLogin, domainauth.RoleUser},
		{domainauth.RoleAgent, PathAgentLogin, domainauth.RoleAgent},
		{domainauth.RoleAdmin, PathAdminLogin, domainauth.RoleAdmin},
	}
	for _, tt := range tests {
		res, err := c.Login(ctx, ports.LoginInput{Email: "taro@example.com", Password: "secret1", Role: tt.role})
		require.NoError(t, err)
		assert.Equal(t, tt.wantPath, fake.lastURL)
		assert.Equal(t, "tok-"+tt.wantPath, res.Token)
		assert.Equal(t, tt.wantRole, res.Role)
		require.NotNil(t, res.User)
		assert.Equal(t, "Taro", res.User.Name)
		assert.Equal(t, map[string]string{"email": "taro@example.com", "password": "secret1"}, fake.lastReq)
	}
}

func TestLogin_RejectedCredentials(t *testing.T) {
	c, _ := newTestClient(t, Config{})

	_, err := c.Login(context.Background(), ports.LoginInput{Email: "taro@example.com", Password: "nope"})
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Equal(t, "Invalid credentials", se.Message)
	assert.Equal(t, "status_401", se.Class())
}

func TestLogin_GuestSurfaceInvalid(t *testing.T) {
	c, _ := newTestClient(t, Config{})
	_, err := c.Login(context.Background(), ports.LoginInput{Role: domainauth.RoleGuest})
	assert.True(t, apperrors.IsValidation(err))
}

func TestRegister(t *testing.T) {
	c, fake := newTestClient(t, Config{})
	ctx := context.Background()

	res, err := c.Register(ctx, ports.RegisterInput{Name: "Hanako", Email: "hanako@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "new-tok", res.Token)
	assert.Nil(t, res.User, "token-only response leaves the profile for hydration")
	assert.Equal(t, domainauth.RoleUser, res.Role)
	assert.Equal(t, "Hanako", fake.lastReq["name"])

	_, err = c.Register(ctx, ports.RegisterInput{Name: "X", Email: "taken@example.com", Password: "secret1"})
	assert.True(t, apperrors.IsConflict(err))
}

func TestVerify_BearerAndProfile(t *testing.T) {
	c, _ := newTestClient(t, Config{})
	ctx := context.Background()

	p, err := c.Verify(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, domainauth.User{ID: 1, Name: "Taro", Email: "taro@example.com"}, p.User)
	assert.Equal(t, domainauth.Role(""), p.Role)

	_, err = c.Verify(ctx, "bad")
	assert.True(t, apperrors.IsUnauthorized(err))

	_, err = c.Verify(ctx, "")
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestVerify_ResponseShapes(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		roles    ports.RoleMapper
		wantUser domainauth.User
		wantRole domainauth.Role
		wantErr  bool
	}{
		{
			name:     "wrapped user with top-level role",
			body:     `{"user":{"id":"7","name":"Aki","email":"aki@example.com"},"role":"agent"}`,
			wantUser: domainauth.User{ID: 7, Name: "Aki", Email: "aki@example.com"},
			wantRole: domainauth.RoleAgent,
		},
		{
			name:     "flat with uppercase role",
			body:     `{"id":2,"name":"Ken","email":"ken@example.com","role":"ADMIN"}`,
			wantUser: domainauth.User{ID: 2, Name: "Ken", Email: "ken@example.com"},
			wantRole: domainauth.RoleAdmin,
		},
		{
			name:     "company role through mapper",
			body:     `{"user":{"id":3,"name":"Co","email":"co@example.com","role":"company"}}`,
			roles:    authroles.StaticRoleMapper{},
			wantUser: domainauth.User{ID: 3, Name: "Co", Email: "co@example.com"},
			wantRole: domainauth.RoleAgent,
		},
		{
			name:     "unknown role is dropped",
			body:     `{"id":4,"name":"N","email":"n@example.com","role":"superuser"}`,
			wantUser: domainauth.User{ID: 4, Name: "N", Email: "n@example.com"},
		},
		{name: "missing id", body: `{"name":"Nobody"}`, wantErr: true},
		{name: "fractional id", body: `{"id":1.5}`, wantErr: true},
		{name: "not an object", body: `["x"]`, wantErr: true},
		{name: "not json", body: `<html>`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, fake := newTestClient(t, Config{Roles: tt.roles})
			fake.me = func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(tt.body)) }

			p, err := c.Verify(context.Background(), "good")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUser, p.User)
			assert.Equal(t, tt.wantRole, p.Role)
		})
	}
}

func TestVerify_ServerErrorIsUnavailable(t *testing.T) {
	c, fake := newTestClient(t, Config{})
	fake.me = func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadGateway) }

	_, err := c.Verify(context.Background(), "good")
	assert.True(t, apperrors.IsUnavailable(err))
}

func TestVerify_Timeout(t *testing.T) {
	c, fake := newTestClient(t, Config{})
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	fake.me = func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Verify(ctx, "good")
	require.Error(t, err)
	assert.True(t, apperrors.IsTimeout(err), "got %v", err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestVerify_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url})
	require.NoError(t, err)
	_, err = c.Verify(context.Background(), "good")
	assert.True(t, apperrors.IsUnavailable(err))
}

func TestServerMessage(t *testing.T) {
	assert.Equal(t, "bad email", serverMessage(422, []byte(`{"detail":[{"msg":"bad email"}]}`)))
	assert.Equal(t, "nope", serverMessage(400, []byte(`{"error":"nope"}`)))
	assert.Equal(t, "internal server error", serverMessage(500, []byte(`oops`)))
}

func TestStatusError_Code(t *testing.T) {
	codes := map[int]apperrors.ErrorCode{
		401: apperrors.ErrCodeUnauthorized,
		403: apperrors.ErrCodeUnauthorized,
		404: apperrors.ErrCodeNotFound,
		409: apperrors.ErrCodeConflict,
		422: apperrors.ErrCodeValidation,
		504: apperrors.ErrCodeTimeout,
		503: apperrors.ErrCodeUnavailable,
		418: apperrors.ErrCodeInternal,
	}
	for status, want := range codes {
		assert.Equal(t, want, (&StatusError{StatusCode: status}).Code(), "status %d", status)
	}
}

func TestCompilePath_ReusesParsedQuery(t *testing.T) {
	p, err := compilePath("user.profile")
	require.NoError(t, err)
	require.NotNil(t, p.query)

	first, err := p.search(map[string]any{"user": map[string]any{"profile": "a"}})
	require.NoError(t, err)
	second, err := p.search(map[string]any{"user": map[string]any{"profile": "b"}})
	require.NoError(t, err)
	assert.Equal(t, "a", first)
	assert.Equal(t, "b", second)

	_, err = compilePath("user[")
	assert.Error(t, err)
}
