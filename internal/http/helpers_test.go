package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainauth "github.com/jobmatcher/jm-portal/internal/domain/auth"
	mocksauth "github.com/jobmatcher/jm-portal/internal/mocks/auth"
	"github.com/jobmatcher/jm-portal/internal/service"
)

var taro = domainauth.User{ID: 1, Name: "Taro", Email: "taro@example.com"}

type testEnv struct {
	slots    *mocksauth.MemorySlotStore
	verifier *mocksauth.StubVerifier
	authn    *mocksauth.StubAuthenticator
	provider *mocksauth.MockAuthProvider
	sessions *service.SessionService
	auth     *service.AuthService
	router   http.Handler
}

type envOption func(*RouterServices)

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	slots := mocksauth.NewMemorySlotStore()
	verifier := &mocksauth.StubVerifier{Profiles: map[string]domainauth.Profile{}}
	sessions := service.NewSessionService(context.Background(), service.SessionServiceOptions{
		Store:    service.NewSessionStore(service.SessionStoreOptions{Slots: slots}),
		Verifier: verifier,
		Config:   service.SessionServiceConfig{RefreshTimeout: time.Second},
	})
	authn := &mocksauth.StubAuthenticator{}
	provider := mocksauth.NewMockAuthProvider()
	auth := service.NewAuthService(service.AuthServiceOptions{
		Authenticator: authn,
		Sessions:      sessions,
		Provider:      provider,
	})

	rs := RouterServices{Sessions: sessions, Auth: auth, OAuthEnabled: true}
	for _, o := range opts {
		o(&rs)
	}
	return &testEnv{
		slots:    slots,
		verifier: verifier,
		authn:    authn,
		provider: provider,
		sessions: sessions,
		auth:     auth,
		router:   NewRouter(rs),
	}
}

func (e *testEnv) login(t *testing.T, role domainauth.Role) {
	t.Helper()
	u := taro
	require.NoError(t, e.sessions.Login(context.Background(), "tok-1", &u, role))
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

const testCSRFToken = "csrf-test-token"

// withCSRF attaches a matching double-submit cookie and header.
func withCSRF(req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: testCSRFToken})
	req.Header.Set(DefaultCSRFHeaderName, testCSRFToken)
	return req
}

func formRequest(target, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return withCSRF(req)
}

func postRequest(target string) *http.Request {
	return withCSRF(httptest.NewRequest(http.MethodPost, target, nil))
}
