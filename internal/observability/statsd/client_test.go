package statsd

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	tests := map[string]string{
		"session.login":      "session.login",
		" guard decision ":   "guard_decision",
		"api/errors..total.": "api_errors.total",
		"":                   "",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeName(in), in)
	}
}

func TestEncodeTags(t *testing.T) {
	got := encodeTags(map[string]string{"env": "dev", "svc": "ui"}, map[string]string{"svc": "api", " role ": " admin ", "": "x"})
	assert.Equal(t, "|#env:dev,role:admin,svc:api", got)
	assert.Empty(t, encodeTags(nil, nil))
}

func TestClient_WritesLines(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	c, err := NewClient(Config{Address: pc.LocalAddr().String(), Prefix: ".examportal.", GlobalTags: map[string]string{"env": "test"}})
	require.NoError(t, err)
	defer c.Close()
	require.True(t, c.Enabled())

	c.Count("session.login", 1, map[string]string{"outcome": "success"})

	buf := make([]byte, 512)
	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, "examportal.session.login:1|c|#env:test,outcome:success", string(buf[:n]))

	c.Timing("reaper.duration", 1500*time.Microsecond, nil)
	n, _, err = pc.ReadFrom(buf)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(buf[:n]), "examportal.reaper.duration:1.5|ms"))
}

func TestClient_DisabledWithoutAddress(t *testing.T) {
	c, err := NewClient(Config{})
	require.NoError(t, err)
	assert.False(t, c.Enabled())
	c.Gauge("x", 1, nil)
	require.NoError(t, c.Close())

	var nilClient *Client
	assert.False(t, nilClient.Enabled())
	nilClient.Count("x", 1, nil)
	require.NoError(t, nilClient.Close())
}

func TestClient_CloseStopsWrites(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	c, err := NewClient(Config{Address: pc.LocalAddr().String()})
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.False(t, c.Enabled())
	c.Count("after.close", 1, nil)
}

func TestNewClient_DialError(t *testing.T) {
	_, err := NewClient(Config{Address: "not a host:port:::"})
	require.Error(t, err)
}
