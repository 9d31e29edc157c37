package event

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netfilter-tools/conntrack/flow"
	"github.com/netfilter-tools/conntrack/internal/ctattr"
	"github.com/netfilter-tools/conntrack/internal/nlmsg"
)

func testFlow(t *testing.T) flow.Flow {
	t.Helper()
	orig := flow.Tuple{
		SrcAddr: netip.MustParseAddr("10.0.0.1"), DstAddr: netip.MustParseAddr("10.0.0.2"),
		SrcPort: 4000, DstPort: 443,
	}
	reply := flow.Tuple{
		SrcAddr: netip.MustParseAddr("10.0.0.2"), DstAddr: netip.MustParseAddr("10.0.0.1"),
		SrcPort: 443, DstPort: 4000,
	}
	state := flow.TCPStateEstablished
	f, err := flow.New(orig, reply, flow.ProtocolTCP, &state, 0, 0, 120, flow.Status(0), flow.EventNew)
	require.NoError(t, err)
	return f
}

func msgFrame(msgType uint16, flags uint16, payload []byte) nlmsg.Frame {
	return nlmsg.Frame{
		Header:  nlmsg.Header{Type: uint16(ctattr.SubsysCTNetlink)<<8 | msgType, Flags: flags},
		Payload: payload,
	}
}

// TestFromFrameNewWithCreateFlag covers spec.md §8 property 7: a New
// message with the create bit set classifies as EventNew.
func TestFromFrameNewWithCreateFlag(t *testing.T) {
	payload := flow.Encode(testFlow(t))
	e, err := FromFrame(msgFrame(ctattr.MsgNew, nlmsg.FlagCreate, payload))
	require.NoError(t, err)
	assert.Equal(t, KindFlow, e.Kind)
	assert.Equal(t, flow.EventNew, e.Flow.EventKind)
}

// TestFromFrameNewWithoutCreateFlagIsUpdate covers the other half of
// property 7: a New message without the create bit classifies as Update.
func TestFromFrameNewWithoutCreateFlagIsUpdate(t *testing.T) {
	payload := flow.Encode(testFlow(t))
	e, err := FromFrame(msgFrame(ctattr.MsgNew, 0, payload))
	require.NoError(t, err)
	assert.Equal(t, KindFlow, e.Kind)
	assert.Equal(t, flow.EventUpdate, e.Flow.EventKind)
}

// TestFromFrameDeleteIsDestroyRegardlessOfFlags covers the rest of
// property 7: a Delete message is always Destroy.
func TestFromFrameDeleteIsDestroyRegardlessOfFlags(t *testing.T) {
	payload := flow.Encode(testFlow(t))
	e, err := FromFrame(msgFrame(ctattr.MsgDelete, nlmsg.FlagCreate, payload))
	require.NoError(t, err)
	assert.Equal(t, KindFlow, e.Kind)
	assert.Equal(t, flow.EventDestroy, e.Flow.EventKind)
}

func TestFromFrameCounter(t *testing.T) {
	var payload []byte
	payload = ctattr.PutAttr(payload, ctattr.CTAStatsGlobalEntries, false, ctattr.PutBE32(42))

	e, err := FromFrame(msgFrame(ctattr.MsgGetStats, 0, payload))
	require.NoError(t, err)
	assert.Equal(t, KindCounter, e.Kind)
	assert.Equal(t, uint32(42), e.Counter)
}

func TestFromFrameCounterMissingIsError(t *testing.T) {
	_, err := FromFrame(msgFrame(ctattr.MsgGetStats, 0, nil))
	assert.Error(t, err)
}

func TestFromFrameStatistics(t *testing.T) {
	var payload []byte
	payload = ctattr.PutAttr(payload, ctattr.CTAStatsFound, false, ctattr.PutBE32(7))

	f := msgFrame(ctattr.MsgGetStatsCPU, 0, payload)
	f.Nfgen.ResID = 3
	e, err := FromFrame(f)
	require.NoError(t, err)
	assert.Equal(t, KindStatistics, e.Kind)
	assert.Equal(t, uint16(3), e.Statistics.CPU)
	assert.Equal(t, uint32(7), e.Statistics.Found)
}

func TestFromFrameUnknownMessageType(t *testing.T) {
	_, err := FromFrame(msgFrame(0xfe, 0, nil))
	assert.Error(t, err)
}
