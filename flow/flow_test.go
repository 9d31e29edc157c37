package flow

import (
	"net/netip"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netfilter-tools/conntrack/internal/ctattr"
)

func mustAddr(t *testing.T, s string) netip.Addr {
	t.Helper()
	a, err := netip.ParseAddr(s)
	require.NoError(t, err)
	return a
}

func TestTupleCompleteness(t *testing.T) {
	orig := Tuple{SrcAddr: mustAddr(t, "1.1.1.1"), DstAddr: mustAddr(t, "2.2.2.2"), SrcPort: 1, DstPort: 2}
	reply := Tuple{SrcAddr: mustAddr(t, "2.2.2.2"), DstAddr: mustAddr(t, "1.1.1.1"), SrcPort: 2, DstPort: 1}
	assert.True(t, orig.Complete())
	assert.True(t, reply.Complete())
	assert.Equal(t, orig.Family(), reply.Family())
}

func TestTCPStateInvariant(t *testing.T) {
	orig := Tuple{SrcAddr: mustAddr(t, "1.1.1.1"), DstAddr: mustAddr(t, "2.2.2.2"), SrcPort: 1, DstPort: 2}
	reply := Tuple{SrcAddr: mustAddr(t, "2.2.2.2"), DstAddr: mustAddr(t, "1.1.1.1"), SrcPort: 2, DstPort: 1}

	state := TCPStateEstablished
	f, err := New(orig, reply, ProtocolTCP, &state, 0, 0, 0, 0, EventNew)
	require.NoError(t, err)
	assert.True(t, f.Protocol.IsTCP())
	assert.NotNil(t, f.TCPState)

	_, err = New(orig, reply, ProtocolTCP, nil, 0, 0, 0, 0, EventNew)
	assert.Error(t, err)

	_, err = New(orig, reply, ProtocolUDP, &state, 0, 0, 0, 0, EventNew)
	assert.Error(t, err)

	f2, err := New(orig, reply, ProtocolUDP, nil, 0, 0, 0, 0, EventNew)
	require.NoError(t, err)
	assert.Nil(t, f2.TCPState)
}

func TestStatusRoundTrip(t *testing.T) {
	for v := 0; v < 1<<15; v++ {
		wire := uint16(v)
		s := StatusFromWire(wire)
		if s.Wire() != wire {
			t.Fatalf("status round-trip failed for %#x: got %#x", wire, s.Wire())
		}
	}
}

func TestStatusDropsUnknownBits(t *testing.T) {
	s := StatusFromWire(1 << 15)
	assert.Equal(t, uint16(0), s.Wire())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	orig := Tuple{SrcAddr: mustAddr(t, "10.0.0.1"), DstAddr: mustAddr(t, "10.0.0.2"), SrcPort: 40000, DstPort: 443}
	reply := Tuple{SrcAddr: mustAddr(t, "10.0.0.2"), DstAddr: mustAddr(t, "10.0.0.1"), SrcPort: 443, DstPort: 40000}
	state := TCPStateEstablished
	f, err := New(orig, reply, ProtocolTCP, &state, 7, 3, 120, StatusFromWire(uint16(StatusAssured)), EventNew)
	require.NoError(t, err)

	payload := Encode(f)
	got, err := Decode(payload)
	require.NoError(t, err)

	addrEqual := cmp.Comparer(func(a, b netip.Addr) bool { return a == b })
	if diff := cmp.Diff(f.Orig, got.Orig, addrEqual); diff != "" {
		t.Errorf("orig tuple mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(f.Reply, got.Reply, addrEqual); diff != "" {
		t.Errorf("reply tuple mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, f.Protocol, got.Protocol)
	assert.Equal(t, *f.TCPState, *got.TCPState)
	assert.Equal(t, f.Mark, got.Mark)
	assert.Equal(t, f.Use, got.Use)
	assert.Equal(t, f.Timeout, got.Timeout)
	assert.Equal(t, f.Status, got.Status)
}

func TestDecodeMissingField(t *testing.T) {
	_, err := Decode(nil)
	assert.ErrorIs(t, err, ErrMissingField)
}

// TestDecodeMalformedMarkAttrDoesNotPanic covers a malformed CTA_MARK whose
// declared length is ≥4 but whose actual payload is shorter (e.g. a
// truncated or hand-crafted message): Decode must surface a decode error
// instead of panicking on the binary.BigEndian.Uint32 slice access.
func TestDecodeMalformedMarkAttrDoesNotPanic(t *testing.T) {
	var payload []byte
	payload = ctattr.PutAttr(payload, ctattr.CTAMark, false, []byte{1})

	assert.NotPanics(t, func() {
		_, err := Decode(payload)
		assert.ErrorIs(t, err, ErrMalformedAttr)
	})
}

// TestDecodeMalformedPortAttrDoesNotPanic covers the same guard on the
// source-port attribute inside a tuple's protocol sub-group.
func TestDecodeMalformedPortAttrDoesNotPanic(t *testing.T) {
	var proto []byte
	proto = ctattr.PutAttr(proto, ctattr.CTAProtoSrcPort, false, []byte{1})

	var ip []byte
	var group []byte
	group = ctattr.PutAttr(group, ctattr.CTATupleIP, true, ip)
	group = ctattr.PutAttr(group, ctattr.CTATupleProto, true, proto)

	var payload []byte
	payload = ctattr.PutAttr(payload, ctattr.CTATupleOrig, true, group)

	assert.NotPanics(t, func() {
		_, err := Decode(payload)
		assert.ErrorIs(t, err, ErrMalformedAttr)
	})
}
