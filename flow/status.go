package flow

import "strings"

// StatusFlag names one bit of the 16-bit connection-status bitset. Only 15
// of the 16 bits are defined; unknown bits are dropped on ingest (spec.md
// §3's Flow invariant).
type StatusFlag uint16

const (
	StatusExpected StatusFlag = 1 << iota
	StatusSeenReply
	StatusAssured
	StatusConfirmed
	StatusSourceNAT
	StatusDestinationNAT
	StatusSequenceAdjust
	StatusSourceNATDone
	StatusDestinationNATDone
	StatusDying
	StatusFixedTimeout
	StatusTemplate
	StatusUntracked
	StatusHelper
	StatusOffload
	// bit 15 is undefined and always dropped.
)

// definedStatusMask has every named bit set; anything outside it is
// discarded when a Status is built from a raw wire value.
const definedStatusMask uint16 = uint16(StatusExpected) | uint16(StatusSeenReply) |
	uint16(StatusAssured) | uint16(StatusConfirmed) | uint16(StatusSourceNAT) |
	uint16(StatusDestinationNAT) | uint16(StatusSequenceAdjust) | uint16(StatusSourceNATDone) |
	uint16(StatusDestinationNATDone) | uint16(StatusDying) | uint16(StatusFixedTimeout) |
	uint16(StatusTemplate) | uint16(StatusUntracked) | uint16(StatusHelper) | uint16(StatusOffload)

var statusNames = []struct {
	bit  StatusFlag
	name string
}{
	{StatusExpected, "EXPECTED"},
	{StatusSeenReply, "SEEN_REPLY"},
	{StatusAssured, "ASSURED"},
	{StatusConfirmed, "CONFIRMED"},
	{StatusSourceNAT, "SRC_NAT"},
	{StatusDestinationNAT, "DST_NAT"},
	{StatusSequenceAdjust, "SEQ_ADJUST"},
	{StatusSourceNATDone, "SRC_NAT_DONE"},
	{StatusDestinationNATDone, "DST_NAT_DONE"},
	{StatusDying, "DYING"},
	{StatusFixedTimeout, "FIXED_TIMEOUT"},
	{StatusTemplate, "TEMPLATE"},
	{StatusUntracked, "UNTRACKED"},
	{StatusHelper, "HELPER"},
	{StatusOffload, "OFFLOAD"},
}

// Status is the connection-status bitset. The zero value is the empty set.
type Status uint16

// StatusFromWire builds a Status from a raw 16-bit wire value, dropping any
// bit outside the 15 defined flag positions (spec.md §3).
func StatusFromWire(v uint16) Status {
	return Status(v & definedStatusMask)
}

// Wire returns the raw 16-bit value for this Status. Round-trips with
// StatusFromWire for any value whose set bits lie within the defined flags
// (spec.md §8, testable property 3).
func (s Status) Wire() uint16 {
	return uint16(s)
}

// Has reports whether every bit set in flags is also set in s.
func (s Status) Has(flags StatusFlag) bool {
	return uint16(s)&uint16(flags) == uint16(flags)
}

// Intersects reports whether s and other share at least one set bit — the
// matching rule filter.Filter uses for the Status field (spec.md §4.7).
func (s Status) Intersects(other Status) bool {
	return uint16(s)&uint16(other) != 0
}

// Set returns a Status with flags added.
func (s Status) Set(flags StatusFlag) Status {
	return Status(uint16(s) | uint16(flags))
}

func (s Status) String() string {
	var names []string
	for _, sn := range statusNames {
		if s.Has(sn.bit) {
			names = append(names, sn.name)
		}
	}
	if len(names) == 0 {
		return "NONE"
	}
	return strings.Join(names, "|")
}
