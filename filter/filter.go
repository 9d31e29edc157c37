// Package filter implements the structural predicate over flow.Flow that
// spec.md §3/§4.7 describes: an optional field set parallel to Flow, where
// every present field is a conjunctive constraint.
//
// Grounded on eriknordmark/netlink/conntrack_linux.go's ConntrackFilter —
// the same "match = match && ..." conjunction chain over an optional-field
// map, generalized from IP-only matching to every field spec.md names and
// from IP equality to CIDR containment.
package filter

import (
	"net/netip"

	"github.com/netfilter-tools/conntrack/flow"
)

// Filter is an optional field set; a nil pointer/zero-value field means
// "don't constrain on this field". An empty Filter matches every flow
// (spec.md §8 property 4).
type Filter struct {
	Family   flow.Family // FamilyUnspec means "don't constrain"; set Unspec explicitly has no effect either way, matching §4.7 ("Unspec matches both")
	hasFamily bool

	Protocol    *flow.Protocol
	TCPState    *flow.TCPState
	Mark        *uint32
	Use         *uint32
	Status      flow.Status // only constrains when set through SetStatus; an explicit SetStatus(0) rejects every flow, since Intersects with an empty set is always false
	hasStatus   bool

	OrigSrcAddr  *netip.Prefix
	OrigDstAddr  *netip.Prefix
	ReplySrcAddr *netip.Prefix
	ReplyDstAddr *netip.Prefix

	OrigSrcPort  *uint16
	OrigDstPort  *uint16
	ReplySrcPort *uint16
	ReplyDstPort *uint16
}

// SetFamily constrains the filter to a specific address family.
func (f *Filter) SetFamily(fam flow.Family) {
	f.Family = fam
	f.hasFamily = true
}

// SetStatus constrains the filter to flows whose status bitset intersects
// status.
func (f *Filter) SetStatus(status flow.Status) {
	f.Status = status
	f.hasStatus = true
}

// Match evaluates every present field against fl and returns true only if
// all of them pass (spec.md §4.7).
func (f Filter) Match(fl flow.Flow) bool {
	if f.hasFamily && f.Family != flow.FamilyUnspec && fl.Family() != f.Family {
		return false
	}
	if f.Protocol != nil && fl.Protocol != *f.Protocol {
		return false
	}
	if f.TCPState != nil {
		if fl.TCPState == nil || *fl.TCPState != *f.TCPState {
			return false
		}
	}
	if f.Mark != nil && fl.Mark != *f.Mark {
		return false
	}
	if f.Use != nil && fl.Use != *f.Use {
		return false
	}
	if f.hasStatus && !fl.Status.Intersects(f.Status) {
		return false
	}
	if f.OrigSrcAddr != nil && !f.OrigSrcAddr.Contains(fl.Orig.SrcAddr) {
		return false
	}
	if f.OrigDstAddr != nil && !f.OrigDstAddr.Contains(fl.Orig.DstAddr) {
		return false
	}
	if f.ReplySrcAddr != nil && !f.ReplySrcAddr.Contains(fl.Reply.SrcAddr) {
		return false
	}
	if f.ReplyDstAddr != nil && !f.ReplyDstAddr.Contains(fl.Reply.DstAddr) {
		return false
	}
	if f.OrigSrcPort != nil && fl.Orig.SrcPort != *f.OrigSrcPort {
		return false
	}
	if f.OrigDstPort != nil && fl.Orig.DstPort != *f.OrigDstPort {
		return false
	}
	if f.ReplySrcPort != nil && fl.Reply.SrcPort != *f.ReplySrcPort {
		return false
	}
	if f.ReplyDstPort != nil && fl.Reply.DstPort != *f.ReplyDstPort {
		return false
	}
	return true
}

// HostPrefix builds the bare-address CIDR spec.md §4.7 calls for: /32 for
// IPv4, /128 for IPv6.
func HostPrefix(addr netip.Addr) netip.Prefix {
	return netip.PrefixFrom(addr, addr.BitLen())
}
