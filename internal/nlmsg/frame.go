package nlmsg

import "fmt"

// Frame is one fully parsed outer transport frame: its header, the
// Nfgenmsg that precedes every conntrack payload, and whatever bytes
// follow it (attribute TLVs for a data message, nothing for Done, a
// signed error code for Error).
type Frame struct {
	Header   Header
	Nfgen    Nfgenmsg
	Payload  []byte // bytes after the Nfgenmsg, only meaningful for data messages
	ErrCode  int32  // only meaningful when Header.Type == TypeError
}

// IsControl reports whether t is a transport control type (Done/Error/...)
// rather than a family-specific data message (spec.md §4.1, §6).
func IsControl(t uint16) bool {
	return t < minControlType
}

// IsDone reports whether f is the end-of-dump sentinel.
func (f Frame) IsDone() bool {
	return f.Header.Type == TypeDone
}

// IsError reports whether f carries a structured-error payload.
func (f Frame) IsError() bool {
	return f.Header.Type == TypeError
}

// Error builds the *ProtocolError this frame's error code maps to. Callers
// must check IsError first.
func (f Frame) Error() *ProtocolError {
	return &ProtocolError{Kind: errorKindFor(f.ErrCode), Code: f.ErrCode}
}

// NextFrame reads one frame from the head of b and returns it along with
// its on-wire length (header.Len, aligned). The header length must be at
// least HeaderLen and must not exceed the bytes remaining in b. The frame
// advances by the 4-byte-aligned length; an unaligned length is rejected
// only when its aligned length runs past the end of b, and is accepted when
// the padding fits.
func NextFrame(b []byte) (Frame, int, error) {
	hdr, err := ParseHeader(b)
	if err != nil {
		return Frame{}, 0, err
	}
	if int(hdr.Len) < HeaderLen {
		return Frame{}, 0, fmt.Errorf("%w: length %d shorter than header", ErrFraming, hdr.Len)
	}
	if int(hdr.Len) > len(b) {
		return Frame{}, 0, fmt.Errorf("%w: length %d exceeds %d bytes remaining", ErrFraming, hdr.Len, len(b))
	}
	aligned := Align(int(hdr.Len))
	if aligned != int(hdr.Len) && aligned > len(b) {
		return Frame{}, 0, fmt.Errorf("%w: unaligned length %d", ErrFraming, hdr.Len)
	}

	f := Frame{Header: hdr}
	body := b[HeaderLen:hdr.Len]

	switch {
	case IsControl(hdr.Type) && hdr.Type == TypeDone:
		// end-of-dump: no Nfgenmsg/payload body to speak of.
	case IsControl(hdr.Type) && hdr.Type == TypeError:
		// NLMSG_ERROR payload: a signed int32 error code followed by the
		// offending request header (ignored here, we only need the code).
		if len(body) < 4 {
			return Frame{}, 0, fmt.Errorf("%w: truncated error payload", ErrFraming)
		}
		f.ErrCode = int32(nativeEndian.Uint32(body[0:4]))
	case IsControl(hdr.Type):
		// Noop/Overrun/other control types: silently skipped per spec.md §6.
	default:
		nfgen, err := ParseNfgenmsg(body)
		if err != nil {
			return Frame{}, 0, err
		}
		f.Nfgen = nfgen
		f.Payload = body[NfgenLen:]
	}

	return f, aligned, nil
}

// ParseFrames repeatedly advances a read cursor over b, calling fn with
// each decoded frame until the buffer is exhausted, fn returns an error, or
// fn reports (via its bool return) that f is an end-of-dump frame the
// caller wants to stop at. Any bytes following a Done frame in the same
// buffer are ignored (spec.md §4.1).
func ParseFrames(b []byte, fn func(Frame) (stop bool, err error)) error {
	for len(b) > 0 {
		f, n, err := NextFrame(b)
		if err != nil {
			return err
		}
		stop, err := fn(f)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
		b = b[n:]
	}
	return nil
}

// BuildFrame serializes an outer header plus an Nfgenmsg plus an arbitrary
// attribute payload into one on-wire frame, setting Header.Len to the
// unpadded length and zero-padding the buffer to a 4-byte boundary so
// frames can be concatenated and walked by NextFrame (message.Build is the
// production caller; C1 owns the wire-format knowledge).
func BuildFrame(hdr Header, nfgen Nfgenmsg, payload []byte) []byte {
	hdr.Len = uint32(HeaderLen + NfgenLen + len(payload))
	buf := make([]byte, Align(int(hdr.Len)))
	hdr.Put(buf[0:HeaderLen])
	nfgen.Put(buf[HeaderLen : HeaderLen+NfgenLen])
	copy(buf[HeaderLen+NfgenLen:], payload)
	return buf
}
