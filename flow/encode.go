package flow

import (
	"github.com/netfilter-tools/conntrack/internal/ctattr"
)

// Encode serializes f back into a conntrack family-message payload. It
// exists purely for testing (spec.md §4.6): it is the left-inverse of
// Decode on every field that round-trips (both tuples, protocol, TCP
// state when applicable, mark, use, timeout, status). CTA_ID is re-emitted
// as zero; protocol-info for a non-TCP flow is emitted as an opaque empty
// attribute, since that's not a field Decode ever reconstructs from.
func Encode(f Flow) []byte {
	var buf []byte
	buf = ctattr.PutAttr(buf, ctattr.CTATupleOrig, true, encodeTuple(f.Orig, f.Protocol))
	buf = ctattr.PutAttr(buf, ctattr.CTATupleReply, true, encodeTuple(f.Reply, f.Protocol))
	buf = ctattr.PutAttr(buf, ctattr.CTAProtoInfo, true, encodeProtoInfo(f))
	buf = ctattr.PutAttr(buf, ctattr.CTAMark, false, ctattr.PutBE32(f.Mark))
	buf = ctattr.PutAttr(buf, ctattr.CTAUse, false, ctattr.PutBE32(f.Use))
	buf = ctattr.PutAttr(buf, ctattr.CTATimeout, false, ctattr.PutBE32(f.Timeout))
	buf = ctattr.PutAttr(buf, ctattr.CTAStatus, false, ctattr.PutBE32(uint32(f.Status.Wire())))
	buf = ctattr.PutAttr(buf, ctattr.CTAID, false, ctattr.PutBE32(0))
	return buf
}

func encodeTuple(t Tuple, proto Protocol) []byte {
	var ip []byte
	srcType, dstType := uint16(ctattr.CTAIPv4Src), uint16(ctattr.CTAIPv4Dst)
	if t.SrcAddr.Is6() {
		srcType, dstType = ctattr.CTAIPv6Src, ctattr.CTAIPv6Dst
	}
	ip = ctattr.PutAttr(ip, srcType, false, t.SrcAddr.AsSlice())
	ip = ctattr.PutAttr(ip, dstType, false, t.DstAddr.AsSlice())

	var proto4 []byte
	proto4 = ctattr.PutAttr(proto4, ctattr.CTAProtoNum, false, []byte{proto.Num()})
	proto4 = ctattr.PutAttr(proto4, ctattr.CTAProtoSrcPort, false, ctattr.PutBE16(t.SrcPort))
	proto4 = ctattr.PutAttr(proto4, ctattr.CTAProtoDstPort, false, ctattr.PutBE16(t.DstPort))

	var group []byte
	group = ctattr.PutAttr(group, ctattr.CTATupleIP, true, ip)
	group = ctattr.PutAttr(group, ctattr.CTATupleProto, true, proto4)
	return group
}

func encodeProtoInfo(f Flow) []byte {
	if !f.Protocol.IsTCP() || f.TCPState == nil {
		// Opaque, non-round-tripping for non-TCP flows (spec.md §4.6).
		return nil
	}
	var tcp []byte
	tcp = ctattr.PutAttr(tcp, ctattr.CTAProtoInfoTCPState, false, []byte{uint8(*f.TCPState)})
	var group []byte
	group = ctattr.PutAttr(group, ctattr.CTAProtoInfoTCP, true, tcp)
	return group
}
