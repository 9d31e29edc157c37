// Package nlmsg is the outer transport-frame codec (spec.md §4.1): parsing
// and serializing the netlink message header, and recognizing the
// end-of-dump and structured-error control payloads that frame a
// conntrack dump or event stream.
//
// Grounded on eriknordmark/netlink/conntrack_linux.go's parseRawData,
// which consumes the same Nfgenmsg header (family/version/res-id) ahead of
// its attribute walk, and on the standard nlmsghdr layout every netlink
// family shares (golang.org/x/sys/unix's NLMSG_* constants).
package nlmsg

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// HeaderLen is the fixed size of an outer nlmsghdr: len, type, flags, seq, pid.
const HeaderLen = 16

// NfgenLen is the fixed size of the inner netfilter generic message header
// that precedes every conntrack family message's attributes: family,
// version, res_id.
const NfgenLen = 4

var nativeEndian = binary.NativeEndian

// Header is one outer netlink message header.
type Header struct {
	Len   uint32
	Type  uint16
	Flags uint16
	Seq   uint32
	Pid   uint32
}

// ParseHeader reads a Header from the first HeaderLen bytes of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, fmt.Errorf("%w: header needs %d bytes, have %d", ErrFraming, HeaderLen, len(b))
	}
	return Header{
		Len:   nativeEndian.Uint32(b[0:4]),
		Type:  nativeEndian.Uint16(b[4:6]),
		Flags: nativeEndian.Uint16(b[6:8]),
		Seq:   nativeEndian.Uint32(b[8:12]),
		Pid:   nativeEndian.Uint32(b[12:16]),
	}, nil
}

// Put serializes h into the first HeaderLen bytes of b (b must be at
// least HeaderLen long).
func (h Header) Put(b []byte) {
	nativeEndian.PutUint32(b[0:4], h.Len)
	nativeEndian.PutUint16(b[4:6], h.Type)
	nativeEndian.PutUint16(b[6:8], h.Flags)
	nativeEndian.PutUint32(b[8:12], h.Seq)
	nativeEndian.PutUint32(b[12:16], h.Pid)
}

// Nfgenmsg is the netfilter generic message header carried by every
// conntrack family message, immediately after the outer Header.
type Nfgenmsg struct {
	Family  uint8
	Version uint8
	ResID   uint16 // network byte order (__be16 res_id)
}

// NFNetlinkV0 is the only netfilter-netlink protocol version in use.
const NFNetlinkV0 = 0

// ParseNfgenmsg reads an Nfgenmsg from the first NfgenLen bytes of b.
func ParseNfgenmsg(b []byte) (Nfgenmsg, error) {
	if len(b) < NfgenLen {
		return Nfgenmsg{}, fmt.Errorf("%w: nfgenmsg needs %d bytes, have %d", ErrFraming, NfgenLen, len(b))
	}
	return Nfgenmsg{
		Family:  b[0],
		Version: b[1],
		ResID:   binary.BigEndian.Uint16(b[2:4]),
	}, nil
}

// Put serializes n into the first NfgenLen bytes of b.
func (n Nfgenmsg) Put(b []byte) {
	b[0] = n.Family
	b[1] = n.Version
	binary.BigEndian.PutUint16(b[2:4], n.ResID)
}

// Control message types that precede or terminate a dump/event stream
// (spec.md §6). Any control type other than Done/Error is silently
// skipped.
const (
	TypeNoop    = unix.NLMSG_NOOP    // 1
	TypeError   = unix.NLMSG_ERROR   // 2
	TypeDone    = unix.NLMSG_DONE    // 3
	TypeOverrun = unix.NLMSG_OVERRUN // 4
	// minControlType: types below this are reserved for transport control;
	// everything at or above it is a family-specific (data) message.
	minControlType = 0x10
)

// Flag bits this system sets or inspects (spec.md §6).
const (
	FlagRequest = unix.NLM_F_REQUEST // 0x001
	FlagDump    = unix.NLM_F_DUMP    // 0x300 (root|match)
	FlagRoot    = unix.NLM_F_ROOT    // 0x100
	FlagMatch   = unix.NLM_F_MATCH   // 0x200
	FlagCreate  = 0x400              // NLM_F_CREATE: distinguishes New from Update events
)

// Align rounds n up to the next multiple of 4 (NLMSG_ALIGNTO), the
// alignment every outer frame is padded to.
func Align(n int) int {
	return (n + 3) &^ 3
}
