package statsd

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix, name, want string
	}{
		{"jm_portal", "session.transition", "jm_portal.session.transition"},
		{"", " auth/verify ", "auth_verify"},
		{"p", "foo..bar", "p.foo.bar"},
		{"p", "", ""},
		{"", "multi  space", "multi__space"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, metricName(tt.prefix, tt.name), "%q + %q", tt.prefix, tt.name)
	}
}

func TestRenderTags(t *testing.T) {
	t.Parallel()

	global := map[string]string{"env": "prod", " service ": " portal "}
	local := map[string]string{"result": " hydrated ", "": "ignored", "env": "stage"}

	assert.Equal(t, "|#env:stage,result:hydrated,service:portal", renderTags(global, local))
	assert.Empty(t, renderTags(nil, nil))
}

func TestDisabledClientDropsMetrics(t *testing.T) {
	t.Parallel()

	c, err := NewClient(Config{Enabled: false, Address: "127.0.0.1:8125", Prefix: "jm"})
	require.NoError(t, err)
	assert.False(t, c.Enabled())

	c.Count("x", 1, nil)
	c.Gauge("x", 1, nil)
	c.Timing("x", time.Second, nil)
	require.NoError(t, c.Close())

	var nilClient *Client
	nilClient.Count("x", 1, nil)
	assert.False(t, nilClient.Enabled())
	assert.NoError(t, nilClient.Close())
}

func TestClientWritesDatagrams(t *testing.T) {
	t.Parallel()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	c, err := NewClient(Config{
		Enabled:    true,
		Address:    pc.LocalAddr().String(),
		Prefix:     ".jm_portal.",
		GlobalTags: map[string]string{"env": "test"},
	})
	require.NoError(t, err)
	defer c.Close()
	require.True(t, c.Enabled())

	c.Count("session.transition", 1, map[string]string{"result": "hydrated"})
	got := readLine(t, pc)
	assert.Equal(t, "jm_portal.session.transition:1|c|#env:test,result:hydrated", got)

	c.Timing("session.refresh", 1500*time.Microsecond, nil)
	assert.Equal(t, "jm_portal.session.refresh:1.5|ms|#env:test", readLine(t, pc))

	c.Gauge("session.subscribers", 2, nil)
	assert.Equal(t, "jm_portal.session.subscribers:2|g|#env:test", readLine(t, pc))
}

func readLine(t *testing.T, pc net.PacketConn) string {
	t.Helper()
	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 512)
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)
	return string(buf[:n])
}
