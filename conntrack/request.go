package conntrack

import (
	"net/netip"

	"github.com/netfilter-tools/conntrack/flow"
	"github.com/netfilter-tools/conntrack/message"
)

// PartialTuple is the caller-facing form of a Get request's per-direction
// tuple before validation: any subset of the four fields may be set. The
// CLI front end builds one of these per direction from whichever
// --{orig,reply}-{src,dst}-{addr,port} flags were passed.
type PartialTuple struct {
	SrcAddr *netip.Addr
	DstAddr *netip.Addr
	SrcPort *uint16
	DstPort *uint16
}

// anySet reports whether the caller touched any field of this direction.
func (p PartialTuple) anySet() bool {
	return p.SrcAddr != nil || p.DstAddr != nil || p.SrcPort != nil || p.DstPort != nil
}

// complete reports whether every field of this direction was supplied.
func (p PartialTuple) complete() bool {
	return p.SrcAddr != nil && p.DstAddr != nil && p.SrcPort != nil && p.DstPort != nil
}

func (p PartialTuple) tuple() flow.Tuple {
	return flow.Tuple{
		SrcAddr: *p.SrcAddr,
		DstAddr: *p.DstAddr,
		SrcPort: *p.SrcPort,
		DstPort: *p.DstPort,
	}
}

// ResolveGetParams validates and resolves a Get operation's caller-facing
// orig/reply partial tuples into the single (protocol, direction, tuple)
// triple message.Build needs (spec.md §4.4). The original direction is
// preferred when both are fully specified (spec.md §8 scenario S4).
//
// Validation errors (spec.md §7, Get-operation-only):
//   - neither direction has any field set: "missing parameters"
//   - the original direction has some but not all fields set, and the
//     reply direction isn't complete either: "incomplete parameters for
//     original direction"
//   - symmetric case for the reply direction
func ResolveGetParams(proto flow.Protocol, orig, reply PartialTuple) (message.GetParams, error) {
	if orig.complete() {
		return message.GetParams{Protocol: proto, Direction: message.DirectionOriginal, Tuple: orig.tuple()}, nil
	}
	if reply.complete() {
		return message.GetParams{Protocol: proto, Direction: message.DirectionReply, Tuple: reply.tuple()}, nil
	}
	switch {
	case !orig.anySet() && !reply.anySet():
		return message.GetParams{}, &ValidationError{Reason: "missing parameters: neither direction set"}
	case orig.anySet():
		return message.GetParams{}, &ValidationError{Reason: "incomplete parameters for original direction"}
	default:
		return message.GetParams{}, &ValidationError{Reason: "incomplete parameters for reply direction"}
	}
}
