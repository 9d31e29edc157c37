package flow

import "fmt"

// EventKind is the event classification a Flow carries: it was freshly
// created, updated, or torn down (spec.md §3, §4.8).
type EventKind uint8

const (
	EventNew EventKind = iota
	EventUpdate
	EventDestroy
)

func (k EventKind) String() string {
	switch k {
	case EventNew:
		return "NEW"
	case EventUpdate:
		return "UPDATE"
	case EventDestroy:
		return "DESTROY"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Flow is the canonical record of one tracked connection (spec.md §3).
// Once constructed by the attribute decoder it is immutable; callers that
// need a modified copy build a new Flow by value.
type Flow struct {
	Orig     Tuple
	Reply    Tuple
	Protocol Protocol
	// TCPState is present iff Protocol is TCP (spec.md §8 property 2).
	TCPState   *TCPState
	Mark       uint32
	Use        uint32
	Timeout    uint32
	Status     Status
	EventKind  EventKind
}

// New builds a Flow and enforces its invariants: both tuples complete and
// family-matched, and TCPState present iff Protocol is TCP. The attribute
// decoder (package ctattr-backed flow.Decode) is the only other place a
// Flow is constructed; this constructor is also what flow.Encode's
// round-trip tests and hand-built fixtures go through.
func New(orig, reply Tuple, proto Protocol, tcpState *TCPState, mark, use, timeout uint32, status Status, kind EventKind) (Flow, error) {
	if !orig.Complete() {
		return Flow{}, MissingField("original tuple")
	}
	if !reply.Complete() {
		return Flow{}, MissingField("reply tuple")
	}
	if orig.Family() != reply.Family() {
		return Flow{}, &FlowError{Err: ErrAddressFamily}
	}
	if proto.IsTCP() && tcpState == nil {
		return Flow{}, &FlowError{Err: ErrInvalidTCPState, Field: "tcp state required for tcp flow"}
	}
	if !proto.IsTCP() && tcpState != nil {
		return Flow{}, &FlowError{Err: ErrInvalidTCPState, Field: "tcp state set on non-tcp flow"}
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
		EventKind: kind,
	}, nil
}

// Family returns the address family common to both tuples.
func (f Flow) Family() Family {
	return f.Orig.Family()
}
