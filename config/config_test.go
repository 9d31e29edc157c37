package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netfilter-tools/conntrack/flow"
	"github.com/netfilter-tools/conntrack/message"
)

func TestParseFamily(t *testing.T) {
	cases := map[string]flow.Family{
		"ipv4": flow.FamilyIPv4, "inet": flow.FamilyIPv4, "4": flow.FamilyIPv4,
		"ipv6": flow.FamilyIPv6, "INET6": flow.FamilyIPv6, "6": flow.FamilyIPv6,
		"unspec": flow.FamilyUnspec, "any": flow.FamilyUnspec, "": flow.FamilyUnspec,
	}
	for in, want := range cases {
		got, err := ParseFamily(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFamily("bogus")
	assert.Error(t, err)
}

func TestParseTableRejectsExpect(t *testing.T) {
	_, err := ParseTable("expect")
	require.Error(t, err)
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "table", cerr.Kind)
}

func TestParseTable(t *testing.T) {
	got, err := ParseTable("dying")
	require.NoError(t, err)
	assert.Equal(t, message.TableDying, got)

	got, err = ParseTable("unconfirmed")
	require.NoError(t, err)
	assert.Equal(t, message.TableUnconfirmed, got)

	got, err = ParseTable("")
	require.NoError(t, err)
	assert.Equal(t, message.TableConntrack, got)

	_, err = ParseTable("bogus")
	assert.Error(t, err)
}

func TestParseTCPState(t *testing.T) {
	got, err := ParseTCPState("ESTABLISHED")
	require.NoError(t, err)
	assert.Equal(t, flow.TCPStateEstablished, got)

	_, err = ParseTCPState("bogus")
	assert.Error(t, err)
}

func TestParseStatus(t *testing.T) {
	got, err := ParseStatus("assured, seen_reply")
	require.NoError(t, err)
	assert.True(t, got.Has(flow.StatusAssured))
	assert.True(t, got.Has(flow.StatusSeenReply))
	assert.False(t, got.Has(flow.StatusDying))

	_, err = ParseStatus("bogus")
	assert.Error(t, err)
}

func TestParseStatusEmptyIsZero(t *testing.T) {
	got, err := ParseStatus("")
	require.NoError(t, err)
	assert.Equal(t, flow.Status(0), got)
}

func TestParseCIDR(t *testing.T) {
	p, err := ParseCIDR("10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 32, p.Bits())

	p, err = ParseCIDR("10.0.0.0/24")
	require.NoError(t, err)
	assert.Equal(t, 24, p.Bits())

	p, err = ParseCIDR("::1")
	require.NoError(t, err)
	assert.Equal(t, 128, p.Bits())

	_, err = ParseCIDR("not-an-address")
	assert.Error(t, err)
}

func TestParseProtocol(t *testing.T) {
	got, err := ParseProtocol("tcp")
	require.NoError(t, err)
	assert.Equal(t, flow.ProtocolTCP, got)

	got, err = ParseProtocol("udp")
	require.NoError(t, err)
	assert.Equal(t, flow.ProtocolUDP, got)

	got, err = ParseProtocol("47")
	require.NoError(t, err)
	assert.Equal(t, uint8(47), got.Num())

	_, err = ParseProtocol("bogus")
	assert.Error(t, err)
}

func TestParsePort(t *testing.T) {
	got, err := ParsePort("8080")
	require.NoError(t, err)
	assert.Equal(t, uint16(8080), got)

	_, err = ParsePort("not-a-port")
	assert.Error(t, err)

	_, err = ParsePort("70000")
	assert.Error(t, err)
}
