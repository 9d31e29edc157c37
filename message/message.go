// Package message is the request/operation -> outer frame builder spec.md
// §4.4 (C4) describes: it turns a typed Request into a correctly-flagged
// netlink frame, or, for Event subscriptions, produces no frame at all
// (the socket has already joined its multicast groups at construction).
//
// Grounded on eriknordmark/netlink/conntrack_linux.go's
// newConntrackRequest/dumpConntrackTable (Nfgenmsg assembly, NLM_F_DUMP)
// and ConntrackDeleteFilter's raw-attribute-append pattern, generalized
// from "delete" to every operation spec.md §4.4's table names.
package message

import (
	"github.com/netfilter-tools/conntrack/filter"
	"github.com/netfilter-tools/conntrack/flow"
	"github.com/netfilter-tools/conntrack/internal/ctattr"
	"github.com/netfilter-tools/conntrack/internal/nlmsg"
)

// Table is the conntrack table an operation targets (spec.md §6). Expect is
// deliberately unimplemented — see config.ParseTable and DESIGN.md's open
// question.
type Table uint8

const (
	TableConntrack Table = iota
	TableDying
	TableUnconfirmed
)

func (t Table) String() string {
	switch t {
	case TableDying:
		return "dying"
	case TableUnconfirmed:
		return "unconfirmed"
	default:
		return "conntrack"
	}
}

// Direction selects which of a Get request's tuple attributes (original
// or reply direction) the kernel should match against (spec.md §3, §4.4).
type Direction uint8

const (
	DirectionOriginal Direction = iota
	DirectionReply
)

// OpKind tags which operation a Request carries.
type OpKind uint8

const (
	OpList OpKind = iota
	OpGet
	OpEvent
	OpCount
	OpStats
)

// GetParams is the (protocol, direction, tuple) triple a Get operation
// supplies (spec.md §4.4).
type GetParams struct {
	Protocol  flow.Protocol
	Direction Direction
	Tuple     flow.Tuple
}

// Operation is the operation half of a Request: List/Get/Event/Count/Stats
// (spec.md §3). GetParams is only meaningful when Kind is OpGet.
type Operation struct {
	Kind OpKind
	Get  GetParams
}

// Request is the full typed request spec.md §3 describes: a metadata half
// (family, table, response id, zero-on-read) plus an operation half. Filter
// is only meaningful for List and Event; Zero is only meaningful for List
// against TableConntrack (the kernel's "get and zero counters" dump).
type Request struct {
	Family     flow.Family
	Table      Table
	ResponseID uint32
	Zero       bool
	Op         Operation
	Filter     *filter.Filter
}

// Build produces the outer frame for req, per spec.md §4.4's table. ok is
// false for Event operations: no frame is sent, the caller has already
// subscribed at socket construction time (spec.md §4.4, §4.9).
func Build(req Request) (frame []byte, ok bool, err error) {
	var msgType uint16
	flags := nlmsg.FlagRequest

	switch req.Op.Kind {
	case OpEvent:
		return nil, false, nil

	case OpList:
		flags |= nlmsg.FlagDump
		switch {
		case req.Table == TableDying:
			msgType = ctattr.MsgGetDying
		case req.Table == TableUnconfirmed:
			msgType = ctattr.MsgGetUnconfirmed
		case req.Zero:
			// Zero-on-read is scoped to the conntrack table (spec.md §4.4's
			// "List(..., zero=true)" row only names GetWithReset for
			// List(Conntrack); Dying/Unconfirmed have no reset variant).
			msgType = ctattr.MsgGetCtrZero
		default:
			msgType = ctattr.MsgGet
		}

	case OpGet:
		msgType = ctattr.MsgGet

	case OpCount:
		msgType = ctattr.MsgGetStats

	case OpStats:
		msgType = ctattr.MsgGetStatsCPU
		flags |= nlmsg.FlagMatch | nlmsg.FlagRoot

	default:
		return nil, false, nil
	}

	hdr := nlmsg.Header{
		Type:  uint16(ctattr.SubsysCTNetlink)<<8 | msgType,
		Flags: flags,
		Seq:   req.ResponseID,
	}
	nfgen := nlmsg.Nfgenmsg{
		Family:  uint8(req.Family),
		Version: nlmsg.NFNetlinkV0,
	}

	var payload []byte
	if req.Op.Kind == OpGet {
		payload = buildGetTuple(req.Op.Get)
	}

	return nlmsg.BuildFrame(hdr, nfgen, payload), true, nil
}

// buildGetTuple emits the single tuple attribute group a Get request
// carries: the address sub-group first, the protocol sub-group second,
// wrapped in either CTA_TUPLE_ORIG or CTA_TUPLE_REPLY depending on which
// direction the caller asked to match (spec.md §4.4).
func buildGetTuple(p GetParams) []byte {
	var ip []byte
	srcType, dstType := uint16(ctattr.CTAIPv4Src), uint16(ctattr.CTAIPv4Dst)
	if p.Tuple.SrcAddr.Is6() {
		srcType, dstType = ctattr.CTAIPv6Src, ctattr.CTAIPv6Dst
	}
	ip = ctattr.PutAttr(ip, srcType, false, p.Tuple.SrcAddr.AsSlice())
	ip = ctattr.PutAttr(ip, dstType, false, p.Tuple.DstAddr.AsSlice())

	var proto []byte
	proto = ctattr.PutAttr(proto, ctattr.CTAProtoNum, false, []byte{p.Protocol.Num()})
	proto = ctattr.PutAttr(proto, ctattr.CTAProtoSrcPort, false, ctattr.PutBE16(p.Tuple.SrcPort))
	proto = ctattr.PutAttr(proto, ctattr.CTAProtoDstPort, false, ctattr.PutBE16(p.Tuple.DstPort))

	var group []byte
	group = ctattr.PutAttr(group, ctattr.CTATupleIP, true, ip)
	group = ctattr.PutAttr(group, ctattr.CTATupleProto, true, proto)

	tupleType := uint16(ctattr.CTATupleOrig)
	if p.Direction == DirectionReply {
		tupleType = ctattr.CTATupleReply
	}
	var buf []byte
	return ctattr.PutAttr(buf, tupleType, true, group)
}

// GroupMask is the multicast subscription bitfield an Event socket binds
// to (spec.md §6).
type GroupMask uint32

const (
	GroupNew     GroupMask = 1 << 0
	GroupUpdate  GroupMask = 1 << 1
	GroupDestroy GroupMask = 1 << 2
)

// DefaultEventGroups is the default group mask event mode subscribes to
// when the caller doesn't narrow it (spec.md §6).
const DefaultEventGroups = GroupNew
