package main

import (
	"flag"

	"github.com/netfilter-tools/conntrack/conntrack"
	"github.com/netfilter-tools/conntrack/flow"
	"github.com/netfilter-tools/conntrack/message"
	"github.com/netfilter-tools/conntrack/transport"
)

// runCount issues the Count operation. Its GetStats reply is a single,
// non-dump message (spec.md §4.4's table sets no dump flag for Count), so
// it is drained with a single RecvOnce rather than looping for an
// end-of-dump frame that will never arrive.
func runCount(args []string) error {
	fs := flag.NewFlagSet("count", flag.ExitOnError)
	var out outputFlag
	out.register(fs)
	if err := fs.Parse(args); err != nil {
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
		Op:     message.Operation{Kind: message.OpCount},
	}); err != nil {
		return err
	}

	events, err := ct.RecvOnce()
	if err != nil {
		return err
	}
	return writeEvents(out.mode, events)
}
