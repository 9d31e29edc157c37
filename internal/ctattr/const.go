// Package ctattr walks and encodes the nested typed-attribute trees a
// netfilter conntrack netlink message carries, and names their attribute
// ids; packages flow and stats decode them into the flow, statistics and
// counter records the rest of this repository works with.
//
// The attribute IDs below mirror
// include/uapi/linux/netfilter/nfnetlink_conntrack.h; the TLV-walking shape
// (native-endian len/type header, NLA_F_NESTED bit, 4-byte alignment
// padding) is the same one github.com/eriknordmark/netlink's
// conntrack_linux.go hand-rolls for a narrower subset of these attributes.
package ctattr

// Subsystem IDs, combined with a message type to form an nlmsghdr.Type:
// Type = subsys<<8 | msgType.
const (
	SubsysCTNetlink    = 1 // NFNL_SUBSYS_CTNETLINK
	SubsysCTNetlinkExp = 2 // NFNL_SUBSYS_CTNETLINK_EXP (Expect table; unimplemented, see config.ParseTable)
)

// Conntrack message types (IPCTNL_MSG_CT_*).
const (
	MsgNew           = 0
	MsgGet           = 1
	MsgDelete        = 2
	MsgGetCtrZero    = 3 // "get with reset": zero counters while listing
	MsgGetStatsCPU   = 4
	MsgGetStats      = 5
	MsgGetDying      = 6
	MsgGetUnconfirmed = 7
)

// Top-level CTA_* attribute IDs carried by a conntrack message.
const (
	ctaUnspec       = 0
	CTATupleOrig    = 1
	CTATupleReply   = 2
	CTAStatus       = 3
	CTAProtoInfo    = 4
	CTAHelp         = 5
	CTANatSrc       = 6
	CTATimeout      = 7
	CTAMark         = 8
	CTACountersOrig = 9
	CTACountersReply = 10
	CTAUse          = 11
	CTAID           = 12
	CTANatDst       = 13
	CTATupleMaster  = 14
)

// CTA_TUPLE_* — nested within CTATupleOrig/CTATupleReply.
const (
	CTATupleIP    = 1
	CTATupleProto = 2
)

// CTA_IP_* — nested within CTATupleIP.
const (
	CTAIPv4Src = 1
	CTAIPv4Dst = 2
	CTAIPv6Src = 3
	CTAIPv6Dst = 4
)

// CTA_PROTO_* — nested within CTATupleProto.
const (
	CTAProtoNum     = 1
	CTAProtoSrcPort = 2
	CTAProtoDstPort = 3
)

// CTA_PROTOINFO_* — nested within CTAProtoInfo.
const (
	CTAProtoInfoTCP = 1
)

// CTA_PROTOINFO_TCP_* — nested within CTAProtoInfoTCP.
const (
	CTAProtoInfoTCPState = 1
)

// CTA_COUNTERS_* — nested within CTACountersOrig/CTACountersReply. Unused by
// the Flow decoder (spec.md's Flow has no byte/packet counters), which skips
// these groups like any other attribute it does not recognize.
const (
	CTACountersPackets = 1
	CTACountersBytes   = 2
)

// CTA_STATS_* — per-CPU statistics (GetStatsCPU replies).
const (
	CTAStatsSearched     = 1 // deprecated, discarded
	CTAStatsFound        = 2
	CTAStatsNew          = 3 // deprecated, discarded
	CTAStatsInvalid      = 4
	CTAStatsIgnore       = 5 // deprecated, discarded
	CTAStatsDelete       = 6 // deprecated, discarded
	CTAStatsDeleteList   = 7 // deprecated, discarded
	CTAStatsInsert       = 8
	CTAStatsInsertFailed = 9
	CTAStatsDrop         = 10
	CTAStatsEarlyDrop    = 11
	CTAStatsError        = 12
	CTAStatsSearchRestart = 13
	CTAStatsClashResolve  = 14
	CTAStatsChainTooLong  = 15
)

// CTA_STATS_GLOBAL_* — the Count operation's reply (GetStats). The kernel's
// "searched" counter per spec.md's glossary is the single global-entries
// value; see DESIGN.md for why only this one is extracted.
const (
	CTAStatsGlobalEntries = 1
)

// nlattr type bits (NLA_F_*), combined with the attribute id in the low 14
// bits of the attribute header's Type field.
const (
	nlaFNested      = 1 << 15
	nlaFNetByteOrder = 1 << 14
	nlaTypeMask     = nlaFNested | nlaFNetByteOrder
)

// nlaAlign rounds n up to the next multiple of 4, the alignment every
// netlink attribute is padded to.
func nlaAlign(n int) int {
	return (n + 3) &^ 3
}
