package conntrack

import (
	"context"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netfilter-tools/conntrack/filter"
	"github.com/netfilter-tools/conntrack/flow"
	"github.com/netfilter-tools/conntrack/internal/ctattr"
	"github.com/netfilter-tools/conntrack/internal/nlmsg"
	"github.com/netfilter-tools/conntrack/message"
	"github.com/netfilter-tools/conntrack/transport"
)

func tcpFlow(t *testing.T, srcPort uint16, kind flow.EventKind) flow.Flow {
	t.Helper()
	orig := flow.Tuple{
		SrcAddr: netip.MustParseAddr("10.0.0.1"), DstAddr: netip.MustParseAddr("10.0.0.2"),
		SrcPort: srcPort, DstPort: 443,
	}
	reply := flow.Tuple{
		SrcAddr: netip.MustParseAddr("10.0.0.2"), DstAddr: netip.MustParseAddr("10.0.0.1"),
		SrcPort: 443, DstPort: srcPort,
	}
	state := flow.TCPStateEstablished
	f, err := flow.New(orig, reply, flow.ProtocolTCP, &state, 0, 0, 30, flow.Status(0), kind)
	require.NoError(t, err)
	return f
}

func flowDatagram(t *testing.T, msgType uint16, flags uint16, f flow.Flow) []byte {
	t.Helper()
	hdr := nlmsg.Header{Type: uint16(ctattr.SubsysCTNetlink)<<8 | msgType, Flags: flags}
	return nlmsg.BuildFrame(hdr, nlmsg.Nfgenmsg{}, flow.Encode(f))
}

func doneDatagram() []byte {
	buf := make([]byte, nlmsg.HeaderLen)
	nlmsg.Header{Len: uint32(nlmsg.HeaderLen), Type: nlmsg.TypeDone}.Put(buf)
	return buf
}

func TestEventsAppliesFilterToFlowsOnly(t *testing.T) {
	matching := tcpFlow(t, 4000, flow.EventNew)
	nonMatching := tcpFlow(t, 5000, flow.EventNew)

	m := &transport.Mock{Datagrams: [][]byte{
		flowDatagram(t, ctattr.MsgNew, nlmsg.FlagCreate, matching),
		flowDatagram(t, ctattr.MsgNew, nlmsg.FlagCreate, nonMatching),
		doneDatagram(),
	}}

	ct := New(m, nil)
	port := uint16(4000)
	require.NoError(t, ct.Request(Request{
		Op:     message.Operation{Kind: message.OpEvent},
		Filter: &filter.Filter{OrigSrcPort: &port},
	}))

	seq := ct.Events()
	defer seq.Close()

	var kept []flow.Flow
	ctx := context.Background()
	for {
		batch, ok, err := seq.Next(ctx)
		require.NoError(t, err)
		for _, e := range batch {
			kept = append(kept, e.Flow)
		}
		if !ok {
			break
		}
	}

	require.Len(t, kept, 1)
	assert.Equal(t, uint16(4000), kept[0].Orig.SrcPort)
}

func TestEventsDropsNonFlowWhenFilterSet(t *testing.T) {
	var payload []byte
	payload = ctattr.PutAttr(payload, ctattr.CTAStatsGlobalEntries, false, ctattr.PutBE32(3))
	hdr := nlmsg.Header{Type: uint16(ctattr.SubsysCTNetlink)<<8 | ctattr.MsgGetStats}
	counterDatagram := nlmsg.BuildFrame(hdr, nlmsg.Nfgenmsg{}, payload)

	m := &transport.Mock{Datagrams: [][]byte{counterDatagram, doneDatagram()}}
	ct := New(m, nil)
	require.NoError(t, ct.Request(Request{
		Op:     message.Operation{Kind: message.OpEvent},
		Filter: &filter.Filter{},
	}))

	seq := ct.Events()
	defer seq.Close()
	batch, ok, err := seq.Next(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, batch)
}

func TestEventsPassesNonFlowWhenNoFilterSet(t *testing.T) {
	var payload []byte
	payload = ctattr.PutAttr(payload, ctattr.CTAStatsGlobalEntries, false, ctattr.PutBE32(3))
	hdr := nlmsg.Header{Type: uint16(ctattr.SubsysCTNetlink)<<8 | ctattr.MsgGetStats}
	counterDatagram := nlmsg.BuildFrame(hdr, nlmsg.Nfgenmsg{}, payload)

	m := &transport.Mock{Datagrams: [][]byte{counterDatagram, doneDatagram()}}
	ct := New(m, nil)
	require.NoError(t, ct.Request(Request{Op: message.Operation{Kind: message.OpCount}}))

	seq := ct.Events()
	defer seq.Close()
	batch, ok, err := seq.Next(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, batch, 1)
	assert.Equal(t, uint32(3), batch[0].Counter)
}

func TestRequestEventProducesNoOutboundFrame(t *testing.T) {
	m := &transport.Mock{}
	ct := New(m, nil)
	require.NoError(t, ct.Request(Request{Op: message.Operation{Kind: message.OpEvent}}))
	assert.Empty(t, m.Sent)
}

func TestRequestListSendsFrame(t *testing.T) {
	m := &transport.Mock{}
	ct := New(m, nil)
	require.NoError(t, ct.Request(Request{Op: message.Operation{Kind: message.OpList}}))
	assert.Len(t, m.Sent, 1)
}

func TestRecvOnceAppliesNoFiltering(t *testing.T) {
	f := tcpFlow(t, 9999, flow.EventDestroy)
	m := &transport.Mock{Datagrams: [][]byte{
		flowDatagram(t, ctattr.MsgDelete, 0, f),
	}}
	ct := New(m, nil)
	events, err := ct.RecvOnce()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, flow.EventDestroy, events[0].Flow.EventKind)
}

func TestCloseReleasesTransport(t *testing.T) {
	m := &transport.Mock{}
	ct := New(m, nil)
	require.NoError(t, ct.Close())
}

// --- ResolveGetParams (spec.md §7, §8 S4) ---

func tupleAddr(a string) *netip.Addr {
	v := netip.MustParseAddr(a)
	return &v
}

func tuplePort(p uint16) *uint16 { return &p }

func TestResolveGetParamsOriginalPreferredWhenBothComplete(t *testing.T) {
	orig := PartialTuple{SrcAddr: tupleAddr("10.0.0.1"), DstAddr: tupleAddr("10.0.0.2"), SrcPort: tuplePort(1), DstPort: tuplePort(2)}
	reply := PartialTuple{SrcAddr: tupleAddr("10.0.0.2"), DstAddr: tupleAddr("10.0.0.1"), SrcPort: tuplePort(2), DstPort: tuplePort(1)}

	params, err := ResolveGetParams(flow.ProtocolTCP, orig, reply)
	require.NoError(t, err)
	assert.Equal(t, message.DirectionOriginal, params.Direction)
}

func TestResolveGetParamsReplyUsedWhenOnlyReplyComplete(t *testing.T) {
	reply := PartialTuple{SrcAddr: tupleAddr("10.0.0.2"), DstAddr: tupleAddr("10.0.0.1"), SrcPort: tuplePort(2), DstPort: tuplePort(1)}

	params, err := ResolveGetParams(flow.ProtocolTCP, PartialTuple{}, reply)
	require.NoError(t, err)
	assert.Equal(t, message.DirectionReply, params.Direction)
}

func TestResolveGetParamsMissingParameters(t *testing.T) {
	_, err := ResolveGetParams(flow.ProtocolTCP, PartialTuple{}, PartialTuple{})
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "missing parameters")
}

func TestResolveGetParamsIncompleteOriginal(t *testing.T) {
	orig := PartialTuple{SrcAddr: tupleAddr("10.0.0.1")}
	_, err := ResolveGetParams(flow.ProtocolTCP, orig, PartialTuple{})
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "original direction")
}

func TestResolveGetParamsIncompleteReply(t *testing.T) {
	reply := PartialTuple{SrcAddr: tupleAddr("10.0.0.2")}
	_, err := ResolveGetParams(flow.ProtocolTCP, PartialTuple{}, reply)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "reply direction")
}
