package flow

import "net/netip"

// Tuple is one direction's identifier: a source/destination address pair
// and a source/destination port pair (spec.md §3's Tuple).
type Tuple struct {
	SrcAddr netip.Addr
	DstAddr netip.Addr
	SrcPort uint16
	DstPort uint16
}

// Complete reports whether both addresses are present and share a family —
// spec.md §8's testable property 1 and §3's tuple invariant.
func (t Tuple) Complete() bool {
	return t.SrcAddr.IsValid() && t.DstAddr.IsValid() && t.SrcAddr.Is4() == t.DstAddr.Is4()
}

// Family returns the address family implied by SrcAddr (Unspec if invalid).
func (t Tuple) Family() Family {
	switch {
	case !t.SrcAddr.IsValid():
		return FamilyUnspec
	case t.SrcAddr.Is4():
		return FamilyIPv4
	default:
		return FamilyIPv6
	}
}

// Family is the L3 address family, mirroring the kernel's AF_INET/AF_INET6.
type Family uint8

const (
	FamilyUnspec Family = 0
	FamilyIPv4   Family = 2  // AF_INET
	FamilyIPv6   Family = 10 // AF_INET6
)

func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	default:
		return "unspec"
	}
}
