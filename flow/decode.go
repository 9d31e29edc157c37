package flow

import (
	"encoding/binary"
	"net/netip"

	"github.com/netfilter-tools/conntrack/internal/ctattr"
)

// Decode walks the top-level attributes of one conntrack family-message
// payload (the bytes following the Nfgenmsg header) into a Flow. It
// recognizes original-tuple, reply-tuple, protocol-info, mark, use,
// timeout, status and id, and ignores everything else (spec.md §4.2). The
// returned Flow's EventKind is always EventNew; callers (package event) set
// the real kind once they know the message type and create-flag.
//
// Field completeness is enforced here exactly as spec.md §4.2 requires: if
// any of {original tuple, reply tuple, protocol, mark, use, timeout,
// status} is absent, decoding fails with MissingField(name).
func Decode(payload []byte) (Flow, error) {
	var (
		haveOrig, haveReply, haveProto bool
		haveMark, haveUse, haveTimeout, haveStatus bool
		orig, reply                   Tuple
		proto                         Protocol
		tcpState                      *TCPState
		mark, use, timeout            uint32
		status                        Status
	)

	err := ctattr.Walk(payload, func(a ctattr.Attr) error {
		switch {
		case a.Nested && a.Type == ctattr.CTATupleOrig:
			t, p, ts, err := decodeTuple(a)
			if err != nil {
				return err
			}
			orig, proto, tcpState = t, p, ts
			haveOrig, haveProto = true, true
			return nil
		case a.Nested && a.Type == ctattr.CTATupleReply:
			t, _, _, err := decodeTuple(a)
			if err != nil {
				return err
			}
			reply = t
			haveReply = true
			return nil
		case a.Nested && a.Type == ctattr.CTAProtoInfo:
			ts, err := decodeProtoInfo(a)
			if err != nil {
				return err
			}
			if ts != nil {
				tcpState = ts
			}
			return nil
		case !a.Nested && a.Type == ctattr.CTAMark:
			if len(a.Value) < 4 {
				return MalformedAttr("mark")
			}
			mark = binary.BigEndian.Uint32(a.Value)
			haveMark = true
			return nil
		case !a.Nested && a.Type == ctattr.CTAUse:
			if len(a.Value) < 4 {
				return MalformedAttr("use")
			}
			use = binary.BigEndian.Uint32(a.Value)
			haveUse = true
			return nil
		case !a.Nested && a.Type == ctattr.CTATimeout:
			if len(a.Value) < 4 {
				return MalformedAttr("timeout")
			}
			timeout = binary.BigEndian.Uint32(a.Value)
			haveTimeout = true
			return nil
		case !a.Nested && a.Type == ctattr.CTAStatus:
			if len(a.Value) < 4 {
				return MalformedAttr("status")
			}
			status = StatusFromWire(uint16(binary.BigEndian.Uint32(a.Value)))
			haveStatus = true
			return nil
		default:
			// CTA_ID and anything unrecognized: parsed (implicitly, by
			// having been walked) and discarded.
			return nil
		}
	})
	if err != nil {
		return Flow{}, err
	}

	switch {
	case !haveOrig:
		return Flow{}, MissingField("original tuple")
	case !haveReply:
		return Flow{}, MissingField("reply tuple")
	case !haveProto:
		return Flow{}, MissingField("protocol")
	case !haveMark:
		return Flow{}, MissingField("mark")
	case !haveUse:
		return Flow{}, MissingField("use")
	case !haveTimeout:
		return Flow{}, MissingField("timeout")
	case !haveStatus:
		return Flow{}, MissingField("status")
	}
	if orig.Family() != reply.Family() {
		return Flow{}, &FlowError{Err: ErrAddressFamily}
	}
	if proto.IsTCP() && tcpState == nil {
		return Flow{}, &FlowError{Err: ErrInvalidTCPState, Field: "tcp state required for tcp flow"}
	}
	if !proto.IsTCP() && tcpState != nil {
		tcpState = nil // protocol-info present but not meaningful for non-TCP; drop per invariant
	}

	return Flow{
		Orig:      orig,
		Reply:     reply,
		Protocol:  proto,
		TCPState:  tcpState,
		Mark:      mark,
		Use:       use,
		Timeout:   timeout,
		Status:    status,
		EventKind: EventNew,
	}, nil
}

// WithEventKind returns a copy of f with EventKind set to k. Used by
// package event once it has determined New/Update/Destroy from the
// enclosing message's type and create flag.
func (f Flow) WithEventKind(k EventKind) Flow {
	f.EventKind = k
	return f
}

// decodeTuple parses a CTA_TUPLE_ORIG/CTA_TUPLE_REPLY group: a nested
// CTA_TUPLE_IP (addresses) followed by a nested CTA_TUPLE_PROTO
// (ports + L4 protocol), per spec.md §4.2.
func decodeTuple(group ctattr.Attr) (Tuple, Protocol, *TCPState, error) {
	var t Tuple
	var proto Protocol
	err := ctattr.WalkNested(group, func(a ctattr.Attr) error {
		switch {
		case a.Nested && a.Type == ctattr.CTATupleIP:
			return ctattr.WalkNested(a, func(ip ctattr.Attr) error {
				switch ip.Type {
				case ctattr.CTAIPv4Src:
					t.SrcAddr = addrFromBytes(ip.Value)
				case ctattr.CTAIPv4Dst:
					t.DstAddr = addrFromBytes(ip.Value)
				case ctattr.CTAIPv6Src:
					t.SrcAddr = addrFromBytes(ip.Value)
				case ctattr.CTAIPv6Dst:
					t.DstAddr = addrFromBytes(ip.Value)
				}
				return nil
			})
		case a.Nested && a.Type == ctattr.CTATupleProto:
			return ctattr.WalkNested(a, func(p ctattr.Attr) error {
				switch p.Type {
				case ctattr.CTAProtoNum:
					if len(p.Value) < 1 {
						return MalformedAttr("protocol")
					}
					proto = ProtocolFromNum(p.Value[0])
				case ctattr.CTAProtoSrcPort:
					if len(p.Value) < 2 {
						return MalformedAttr("source port")
					}
					t.SrcPort = binary.BigEndian.Uint16(p.Value)
				case ctattr.CTAProtoDstPort:
					if len(p.Value) < 2 {
						return MalformedAttr("destination port")
					}
					t.DstPort = binary.BigEndian.Uint16(p.Value)
				}
				return nil
			})
		}
		return nil
	})
	if err != nil {
		return Tuple{}, Protocol{}, nil, err
	}
	var tcpState *TCPState
	return t, proto, tcpState, nil
}

// decodeProtoInfo extracts the TCP state byte from a CTA_PROTOINFO group,
// when present (spec.md §4.2: "Protocol-info, when present, contributes
// the TCP state byte for TCP flows").
func decodeProtoInfo(group ctattr.Attr) (*TCPState, error) {
	var state *TCPState
	err := ctattr.WalkNested(group, func(a ctattr.Attr) error {
		if !a.Nested || a.Type != ctattr.CTAProtoInfoTCP {
			return nil
		}
		return ctattr.WalkNested(a, func(tcp ctattr.Attr) error {
			if tcp.Type != ctattr.CTAProtoInfoTCPState || len(tcp.Value) == 0 {
				return nil
			}
			s, err := ParseTCPState(tcp.Value[0])
			if err != nil {
				return err
			}
			state = &s
			return nil
		})
	})
	return state, err
}

func addrFromBytes(b []byte) netip.Addr {
	switch len(b) {
	case 4:
		return netip.AddrFrom4([4]byte(b))
	case 16:
		return netip.AddrFrom16([16]byte(b))
	default:
		return netip.Addr{}
	}
}
