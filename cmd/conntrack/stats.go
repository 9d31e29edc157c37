package main

import (
	"flag"

	"github.com/netfilter-tools/conntrack/conntrack"
	"github.com/netfilter-tools/conntrack/flow"
	"github.com/netfilter-tools/conntrack/message"
	"github.com/netfilter-tools/conntrack/transport"
)

// runStats issues the Stats operation. Its match+root flags are the same
// bits NLM_F_DUMP sets (spec.md §6's flag table), so the kernel replies
// with one GetStatsCPU message per CPU terminated by an end-of-dump frame;
// drainAll loops correctly over that.
func runStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
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
		Op:     message.Operation{Kind: message.OpStats},
	}); err != nil {
		return err
	}

	events, err := drainAll(ct)
	if err != nil {
		return err
	}
	return writeEvents(out.mode, events)
}
