package flow

import "fmt"

// TCPState is the ten-valued TCP connection state conntrack tracks,
// numerically encoded 0..9 for wire interchange (CTA_PROTOINFO_TCP_STATE).
type TCPState uint8

const (
	TCPStateNone TCPState = iota
	TCPStateSynSent
	TCPStateSynRecv
	TCPStateEstablished
	TCPStateFinWait
	TCPStateCloseWait
	TCPStateLastAck
	TCPStateTimeWait
	TCPStateClose
	TCPStateListen
)

var tcpStateNames = [...]string{
	TCPStateNone:        "NONE",
	TCPStateSynSent:     "SYN_SENT",
	TCPStateSynRecv:     "SYN_RECV",
	TCPStateEstablished: "ESTABLISHED",
	TCPStateFinWait:     "FIN_WAIT",
	TCPStateCloseWait:   "CLOSE_WAIT",
	TCPStateLastAck:     "LAST_ACK",
	TCPStateTimeWait:    "TIME_WAIT",
	TCPStateClose:       "CLOSE",
	TCPStateListen:      "LISTEN",
}

func (s TCPState) String() string {
	if int(s) < len(tcpStateNames) {
		return tcpStateNames[s]
	}
	return fmt.Sprintf("TCPState(%d)", uint8(s))
}

// ParseTCPState decodes the single wire byte carried by
// CTA_PROTOINFO_TCP_STATE. Values outside 0..9 are rejected.
func ParseTCPState(b uint8) (TCPState, error) {
	if int(b) >= len(tcpStateNames) {
		return 0, fmt.Errorf("%w: tcp state byte %d", ErrInvalidTCPState, b)
	}
	return TCPState(b), nil
}
