package auth

// Package auth contains simple hand-written test doubles for session ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"fmt"
	"sync"

	domainauth "github.com/jobmatcher/jm-portal/internal/domain/auth"
	"github.com/jobmatcher/jm-portal/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.SlotStore        = (*MemorySlotStore)(nil)
	_ ports.IdentityVerifier = (*StubVerifier)(nil)
	_ ports.Authenticator    = (*StubAuthenticator)(nil)
	_ ports.AuthProvider     = (*MockAuthProvider)(nil)
	_ ports.RoleMapper       = (*StaticRoleMapper)(nil)
)

// MemorySlotStore is an in-memory slot store for unit tests.
// SetErr and GetErr, when non-nil, are returned instead of touching the map.
type MemorySlotStore struct {
	mu     sync.Mutex
	slots  map[string][]byte
	writes int

	SetErr error
	GetErr error
}

// NewMemorySlotStore creates a new in-memory slot store.
func NewMemorySlotStore() *MemorySlotStore {
	return &MemorySlotStore{slots: make(map[string][]byte)}
}

func (m *MemorySlotStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	v, ok := m.slots[key]
	if !ok {
		return nil, ports.ErrSlotNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemorySlotStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	m.slots[key] = append([]byte(nil), value...)
	m.writes++
	return nil
}

func (m *MemorySlotStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, key)
	return nil
}

// Put seeds a raw value, bypassing SetErr.
func (m *MemorySlotStore) Put(key string, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[key] = []byte(value)
}

// Raw returns the stored value for key and whether it exists.
func (m *MemorySlotStore) Raw(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.slots[key]
	return string(v), ok
}

// Writes returns how many successful Set calls were made.
func (m *MemorySlotStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// ErrUnauthorized is returned by the stub verifier for unknown tokens.
var ErrUnauthorized = errors.New("unauthorized")

// StubVerifier resolves tokens from a fixed table unless VerifyFunc is set.
type StubVerifier struct {
	VerifyFunc func(ctx context.Context, token string) (domainauth.Profile, error)
	Profiles   map[string]domainauth.Profile

	mu    sync.Mutex
	calls []string
}

func (s *StubVerifier) Verify(ctx context.Context, token string) (domainauth.Profile, error) {
	s.mu.Lock()
	s.calls = append(s.calls, token)
	s.mu.Unlock()

	if s.VerifyFunc != nil {
		return s.VerifyFunc(ctx, token)
	}
	p, ok := s.Profiles[token]
	if !ok {
		return domainauth.Profile{}, ErrUnauthorized
	}
	return p, nil
}

// Calls returns the tokens Verify was called with, in order.
func (s *StubVerifier) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// StubAuthenticator issues deterministic tokens for tests.
type StubAuthenticator struct {
	LoginFunc    func(ctx context.Context, in ports.LoginInput) (ports.LoginResult, error)
	RegisterFunc func(ctx context.Context, in ports.RegisterInput) (ports.LoginResult, error)

	callCount int
}

func (s *StubAuthenticator) Login(ctx context.Context, in ports.LoginInput) (ports.LoginResult, error) {
	if s.LoginFunc != nil {
		return s.LoginFunc(ctx, in)
	}
	s.callCount++
	role := in.Role
	if role == "" {
		role = domainauth.RoleUser
	}
	return ports.LoginResult{
		Token: fmt.Sprintf("tok-%d", s.callCount),
		User:  &domainauth.User{ID: int64(s.callCount), Name: "Mock User", Email: in.Email},
		Role:  role,
	}, nil
}

func (s *StubAuthenticator) Register(ctx context.Context, in ports.RegisterInput) (ports.LoginResult, error) {
	if s.RegisterFunc != nil {
		return s.RegisterFunc(ctx, in)
	}
	s.callCount++
	return ports.LoginResult{
		Token: fmt.Sprintf("tok-%d", s.callCount),
		User:  &domainauth.User{ID: int64(s.callCount), Name: in.Name, Email: in.Email},
		Role:  domainauth.RoleUser,
	}, nil
}

// MockAuthProvider simulates an IdP for tests with deterministic state/nonce handling.
type MockAuthProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (authURL, state, nonce string, err error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (ports.LoginResult, error)

	AuthURL string
	Result  ports.LoginResult

	callCount int
}

// NewMockAuthProvider creates a MockAuthProvider with sensible defaults.
func NewMockAuthProvider() *MockAuthProvider {
	return &MockAuthProvider{
		AuthURL: "https://mock-idp/auth",
		Result: ports.LoginResult{
			Token: "id-token-1",
			User:  &domainauth.User{ID: 7, Name: "Mock User", Email: "mock.user@example.com"},
			Role:  domainauth.RoleUser,
		},
	}
}

func (m *MockAuthProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, string, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}
	m.callCount++
	authURL := m.AuthURL
	if authURL == "" {
		authURL = "https://mock-idp/auth"
	}
	return authURL, fmt.Sprintf("state-%d", m.callCount), fmt.Sprintf("nonce-%d", m.callCount), nil
}

func (m *MockAuthProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (ports.LoginResult, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}
	return m.Result, nil
}

// StaticRoleMapper returns Role for any input, or guest when Role is empty.
type StaticRoleMapper struct {
	Role domainauth.Role
}

func (m StaticRoleMapper) Map(_ []string) domainauth.Role {
	if m.Role == "" {
		return domainauth.RoleGuest
	}
	return m.Role
}
