package backendping

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPingURL(t *testing.T) {
	assert.Equal(t, "http://auth:8000/api/v1/auth/ping", PingURL("http://auth:8000/", "auth"))
	assert.Equal(t, "http://x/api/v1/resumes/ping", PingURL("http://x", "/resumes/"))
}

func TestPinger_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/ping":
			_, _ = w.Write([]byte("pong\n"))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	p := New(srv.Client())
	ctx := context.Background()

	got, err := p.Ping(ctx, srv.URL, "auth")
	require.NoError(t, err)
	assert.Equal(t, "pong", got)

	_, err = p.Ping(ctx, srv.URL, "jobs")
	assert.ErrorContains(t, err, "status 503")

	_, err = p.Ping(ctx, "", "jobs")
	assert.ErrorContains(t, err, "not configured")
}
