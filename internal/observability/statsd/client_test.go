package statsd

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMetricName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		" gateway/request ": "gateway_request",
		"upstream..error":   "upstream.error",
		".origin.rejected.": "origin.rejected",
		"bad:name|x":        "bad_name_x",
		"   ":               "",
	}
	for input, want := range tests {
		assert.Equal(t, want, normalizeMetricName(input), input)
	}
}

func TestFormatTags(t *testing.T) {
	t.Parallel()

	global := map[string]string{"env": "prod", " service ": " gateway "}
	local := map[string]string{"result": " success ", "": "ignored", "env": "stage"}

	assert.Equal(t, "|#env:stage,result:success,service:gateway", formatTags(global, local))
	assert.Empty(t, formatTags(nil, nil))
}

func TestClientLine(t *testing.T) {
	t.Parallel()

	c, err := NewClient(Config{Prefix: ".storefront_gateway.", GlobalTags: map[string]string{"env": "test"}})
	require.NoError(t, err)
	assert.False(t, c.Enabled())

	assert.Equal(t, "storefront_gateway.request:1|c|#env:test,status:200",
		c.line("request", "1", "c", map[string]string{"status": "200"}))
	assert.Empty(t, c.line("", "1", "c", nil))
}

func TestNilClientIsNoop(t *testing.T) {
	t.Parallel()

	var c *Client
	c.Count("x", 1, nil)
	c.Timing("x", time.Second, nil)
	assert.False(t, c.Enabled())
	assert.NoError(t, c.Close())
}

func TestClientWritesUDP(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	c, err := NewClient(Config{Enabled: true, Address: pc.LocalAddr().String(), Prefix: "gw"})
	require.NoError(t, err)
	defer c.Close()
	require.True(t, c.Enabled())

	c.Timing("upstream.duration", 1500*time.Microsecond, map[string]string{"result": "success"})

	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 512)
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)
	got := string(buf[:n])
	assert.True(t, strings.HasPrefix(got, "gw.upstream.duration:1.5|ms"), got)
	assert.Contains(t, got, "|#result:success")
}
