package main

import (
	"flag"

	"github.com/netfilter-tools/conntrack/config"
	"github.com/netfilter-tools/conntrack/conntrack"
	"github.com/netfilter-tools/conntrack/flow"
	"github.com/netfilter-tools/conntrack/message"
	"github.com/netfilter-tools/conntrack/transport"
)

func runGet(args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	var out outputFlag
	var pt partialTupleFlags
	var protocol string
	out.register(fs)
	pt.register(fs)
	fs.StringVar(&protocol, "protocol", "tcp", "L4 protocol: tcp, udp, or a protocol number")
	if err := fs.Parse(args); err != nil {
		return err
	}

	proto, err := config.ParseProtocol(protocol)
	if err != nil {
		return err
	}

	origSrc, err := optAddr(pt.origSrcAddr)
	if err != nil {
		return err
	}
	origDst, err := optAddr(pt.origDstAddr)
	if err != nil {
		return err
	}
	replySrc, err := optAddr(pt.replySrcAddr)
	if err != nil {
		return err
	}
	replyDst, err := optAddr(pt.replyDstAddr)
	if err != nil {
		return err
	}

	orig := conntrack.PartialTuple{SrcAddr: origSrc, DstAddr: origDst, SrcPort: optPort(pt.origSrcPort), DstPort: optPort(pt.origDstPort)}
	reply := conntrack.PartialTuple{SrcAddr: replySrc, DstAddr: replyDst, SrcPort: optPort(pt.replySrcPort), DstPort: optPort(pt.replyDstPort)}

	params, err := conntrack.ResolveGetParams(proto, orig, reply)
	if err != nil {
		return err
	}

	sock, err := transport.Open(0, log)
	if err != nil {
		return err
	}
	ct := conntrack.New(sock, log)
	defer ct.Close()

	if err := ct.Request(conntrack.Request{
		Family: flow.FamilyUnspec,
		Table:  message.TableConntrack,
		Op:     message.Operation{Kind: message.OpGet, Get: params},
	}); err != nil {
		return err
	}

	// Get is not a dump: the kernel replies with exactly one message and no
	// end-of-dump frame, so a single RecvOnce is correct here (unlike
	// list/stats, which loop via drainAll until Done).
	events, err := ct.RecvOnce()
	if err != nil {
		return err
	}
	return writeEvents(out.mode, events)
}
