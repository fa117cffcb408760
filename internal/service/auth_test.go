package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/jobmatcher/jm-portal/internal/domain/auth"
	apperrors "github.com/jobmatcher/jm-portal/internal/errors"
	"github.com/jobmatcher/jm-portal/internal/mocks"
	mocksauth "github.com/jobmatcher/jm-portal/internal/mocks/auth"
	"github.com/jobmatcher/jm-portal/internal/ports"
)

type authFixture struct {
	*sessionFixture
	authn    *mocksauth.StubAuthenticator
	provider *mocksauth.MockAuthProvider
	svc      *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	sf := newSessionFixture(t, "")
	authn := &mocksauth.StubAuthenticator{}
	provider := mocksauth.NewMockAuthProvider()
	return &authFixture{
		sessionFixture: sf,
		authn:          authn,
		provider:       provider,
		svc: NewAuthService(AuthServiceOptions{
			Authenticator: authn,
			Sessions:      sf.svc,
			Provider:      provider,
		}),
	}
}

func TestAuthService_Login(t *testing.T) {
	tests := []struct {
		name string
		role domainauth.Role
		want domainauth.Role
	}{
		{"default surface", "", domainauth.RoleUser},
		{"agent surface", domainauth.RoleAgent, domainauth.RoleAgent},
		{"admin surface", domainauth.RoleAdmin, domainauth.RoleAdmin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			var got ports.LoginInput
			f.authn.LoginFunc = func(_ context.Context, in ports.LoginInput) (ports.LoginResult, error) {
				got = in
				return ports.LoginResult{Token: "tok-1", User: &taro}, nil
			}

			sess, err := f.svc.Login(context.Background(), ports.LoginInput{
				Email:    " taro@example.com ",
				Password: "secret1",
				Role:     tt.role,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Role)
			assert.Equal(t, "taro@example.com", got.Email)
			assert.Equal(t, tt.want, sess.Role)
			assert.Equal(t, "tok-1", sess.Token)
			assert.Equal(t, sess, f.svc.sessions.Current())
			assert.Equal(t, sess, f.persisted(t))
		})
	}
}

func TestAuthService_Login_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    ports.LoginInput
		field string
	}{
		{"missing email", ports.LoginInput{Password: "secret1"}, "email"},
		{"malformed email", ports.LoginInput{Email: "not-an-email", Password: "secret1"}, "email"},
		{"display name form", ports.LoginInput{Email: "Taro <taro@example.com>", Password: "secret1"}, "email"},
		{"short password", ports.LoginInput{Email: "taro@example.com", Password: "12345"}, "password"},
		{"guest surface", ports.LoginInput{Email: "taro@example.com", Password: "secret1", Role: domainauth.RoleGuest}, "role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			called := false
			f.authn.LoginFunc = func(context.Context, ports.LoginInput) (ports.LoginResult, error) {
				called = true
				return ports.LoginResult{}, nil
			}

			_, err := f.svc.Login(context.Background(), tt.in)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Equal(t, tt.field, apperrors.GetField(err))
			assert.False(t, called)
			assert.True(t, f.svc.sessions.Current().IsGuest())
		})
	}
}

func TestAuthService_LoginFailureKeepsSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.svc.Login(ctx, ports.LoginInput{Email: "taro@example.com", Password: "secret1"})
	require.NoError(t, err)
	before := f.svc.sessions.Current()
	writes := f.slots.Writes()

	boom := errors.New("invalid credentials")
	f.authn.LoginFunc = func(context.Context, ports.LoginInput) (ports.LoginResult, error) {
		return ports.LoginResult{}, boom
	}
	_, err = f.svc.Login(ctx, ports.LoginInput{Email: "hanako@example.com", Password: "secret2"})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, before, f.svc.sessions.Current())
	assert.Equal(t, writes, f.slots.Writes())
}

func TestAuthService_Login_EmptyTokenRejected(t *testing.T) {
	f := newAuthFixture(t)
	f.authn.LoginFunc = func(context.Context, ports.LoginInput) (ports.LoginResult, error) {
		return ports.LoginResult{User: &taro}, nil
	}

	_, err := f.svc.Login(context.Background(), ports.LoginInput{Email: "taro@example.com", Password: "secret1"})
	require.ErrorIs(t, err, ErrInvalidLogin)
	assert.True(t, apperrors.IsUnauthorized(err))
	assert.True(t, f.svc.sessions.Current().IsGuest())
}

func TestAuthService_Login_TokenOnlyIsHydrated(t *testing.T) {
	f := newAuthFixture(t)
	f.verifier.Profiles["tok-bare"] = domainauth.Profile{User: taro, Role: domainauth.RoleAgent}
	f.authn.LoginFunc = func(context.Context, ports.LoginInput) (ports.LoginResult, error) {
		return ports.LoginResult{Token: "tok-bare"}, nil
	}

	sess, err := f.svc.Login(context.Background(), ports.LoginInput{
		Email: "taro@example.com", Password: "secret1", Role: domainauth.RoleAgent,
	})
	require.NoError(t, err)
	require.NotNil(t, sess.User)
	assert.Equal(t, taro, *sess.User)
	assert.Equal(t, domainauth.RoleAgent, sess.Role)
	assert.Equal(t, []string{"tok-bare"}, f.verifier.Calls())
}

func TestAuthService_Login_TokenOnlyRejected(t *testing.T) {
	f := newAuthFixture(t)
	f.authn.LoginFunc = func(context.Context, ports.LoginInput) (ports.LoginResult, error) {
		return ports.LoginResult{Token: "tok-unknown"}, nil
	}

	_, err := f.svc.Login(context.Background(), ports.LoginInput{Email: "taro@example.com", Password: "secret1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, mocksauth.ErrUnauthorized)
	assert.True(t, f.svc.sessions.Current().IsGuest())
}

func TestAuthService_Register(t *testing.T) {
	f := newAuthFixture(t)

	sess, err := f.svc.Register(context.Background(), ports.RegisterInput{
		Name: "  Hanako ", Email: "hanako@example.com", Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleUser, sess.Role)
	require.NotNil(t, sess.User)
	assert.Equal(t, "Hanako", sess.User.Name)
	assert.Equal(t, "hanako@example.com", sess.User.Email)
	assert.True(t, sess.Authenticated())
}

func TestAuthService_Register_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    ports.RegisterInput
		field string
	}{
		{"short name", ports.RegisterInput{Name: "H", Email: "h@example.com", Password: "secret1"}, "name"},
		{"blank name", ports.RegisterInput{Name: "   ", Email: "h@example.com", Password: "secret1"}, "name"},
		{"bad email", ports.RegisterInput{Name: "Hanako", Email: "hanako", Password: "secret1"}, "email"},
		{"short password", ports.RegisterInput{Name: "Hanako", Email: "h@example.com", Password: "abc"}, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			_, err := f.svc.Register(context.Background(), tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.field, apperrors.GetField(err))
			assert.Equal(t, 0, f.slots.Writes())
		})
	}
}

func TestAuthService_Logout(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.svc.Login(ctx, ports.LoginInput{Email: "taro@example.com", Password: "secret1"})
	require.NoError(t, err)

	f.svc.Logout(ctx)
	assert.Equal(t, domainauth.Guest(), f.svc.sessions.Current())
}

func TestAuthService_RedirectFlow(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	begin, err := f.svc.BeginLogin(ctx, "/mypage")
	require.NoError(t, err)
	assert.Equal(t, "https://mock-idp/auth", begin.AuthURL)
	assert.Equal(t, "state-1", begin.State)
	assert.Equal(t, "nonce-1", begin.Nonce)

	sess, err := f.svc.CompleteLogin(ctx, CompleteLoginInput{Code: "code", State: begin.State, Nonce: begin.Nonce})
	require.NoError(t, err)
	assert.Equal(t, "id-token-1", sess.Token)
	assert.Equal(t, domainauth.RoleUser, sess.Role)
	assert.Equal(t, "Mock User", sess.User.Name)
}

func TestAuthService_RedirectFlowErrors(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.BeginLogin(ctx, "")
	assert.ErrorContains(t, err, "redirect URL is required")

	tests := []struct {
		in  CompleteLoginInput
		msg string
	}{
		{CompleteLoginInput{State: "s", Nonce: "n"}, "authorization code is required"},
		{CompleteLoginInput{Code: "c", Nonce: "n"}, "state parameter is required"},
		{CompleteLoginInput{Code: "c", State: "s"}, "nonce parameter is required"},
	}
	for _, tt := range tests {
		_, err := f.svc.CompleteLogin(ctx, tt.in)
		assert.ErrorContains(t, err, tt.msg)
	}

	boom := errors.New("idp down")
	f.provider.ExchangeFunc = func(context.Context, ports.ExchangeInput) (ports.LoginResult, error) {
		return ports.LoginResult{}, boom
	}
	_, err = f.svc.CompleteLogin(ctx, CompleteLoginInput{Code: "c", State: "s", Nonce: "n"})
	require.ErrorIs(t, err, boom)
	assert.True(t, f.svc.sessions.Current().IsGuest())
}

func TestAuthService_NoProvider(t *testing.T) {
	sf := newSessionFixture(t, "")
	svc := NewAuthService(AuthServiceOptions{Authenticator: &mocksauth.StubAuthenticator{}, Sessions: sf.svc})

	_, err := svc.BeginLogin(context.Background(), "/mypage")
	require.ErrorIs(t, err, ErrProviderNotConfigured)
	_, err = svc.CompleteLogin(context.Background(), CompleteLoginInput{Code: "c", State: "s", Nonce: "n"})
	require.ErrorIs(t, err, ErrProviderNotConfigured)
}

func TestNewAuthService_RequiresDeps(t *testing.T) {
	sf := newSessionFixture(t, "")
	assert.Panics(t, func() { NewAuthService(AuthServiceOptions{Sessions: sf.svc}) })
	assert.Panics(t, func() {
		NewAuthService(AuthServiceOptions{Authenticator: &mocksauth.StubAuthenticator{}})
	})
}

func TestAuthService_LoginWithGeneratedMock(t *testing.T) {
	ctrl := gomock.NewController(t)
	authn := mocks.NewMockAuthenticator(ctrl)
	authn.EXPECT().
		Login(gomock.Any(), ports.LoginInput{Email: "taro@example.com", Password: "secret1", Role: domainauth.RoleAdmin}).
		Return(ports.LoginResult{Token: "tok-a", User: &taro, Role: domainauth.RoleAdmin}, nil).
		Times(1)

	sf := newSessionFixture(t, "")
	svc := NewAuthService(AuthServiceOptions{Authenticator: authn, Sessions: sf.svc})

	sess, err := svc.Login(context.Background(), ports.LoginInput{
		Email:    "  taro@example.com ",
		Password: "secret1",
		Role:     domainauth.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleAdmin, sess.Role)
	assert.Equal(t, "tok-a", sf.persisted(t).Token)
}
