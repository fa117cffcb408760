package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/jobmatcher/jm-portal/internal/domain/auth"
)

func dialEvents(t *testing.T, env *testEnv) (*websocket.Conn, context.Context) {
	t.Helper()
	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	conn, resp, err := websocket.Dial(ctx, "ws"+srv.URL[len("http"):]+"/api/session/events", &websocket.DialOptions{
		Subprotocols: []string{eventsSubprotocol},
	})
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn, ctx
}

func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn) SessionEvent {
	t.Helper()
	typ, b, err := conn.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, websocket.MessageText, typ)
	var ev SessionEvent
	require.NoError(t, json.Unmarshal(b, &ev))
	return ev
}

func TestSessionEvents_StreamsChanges(t *testing.T) {
	env := newTestEnv(t)
	conn, ctx := dialEvents(t, env)

	first := readEvent(t, ctx, conn)
	assert.Equal(t, sessionEventType, first.Type)
	assert.Equal(t, domainauth.RoleGuest, first.Session.Role)

	env.login(t, domainauth.RoleAgent)
	ev := readEvent(t, ctx, conn)
	assert.Equal(t, domainauth.RoleAgent, ev.Session.Role)
	require.NotNil(t, ev.Session.User)
	assert.Equal(t, "Taro", ev.Session.User.Name)

	env.sessions.Logout(context.Background())
	ev = readEvent(t, ctx, conn)
	assert.False(t, ev.Session.Authenticated)
}

func TestSessionEvents_RejectsCrossOrigin(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/session/events", nil)
	require.NoError(t, err)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	req.Header.Set("Origin", "https://evil.example")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
