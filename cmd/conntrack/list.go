package main

import (
	"flag"

	"github.com/netfilter-tools/conntrack/config"
	"github.com/netfilter-tools/conntrack/conntrack"
	"github.com/netfilter-tools/conntrack/flow"
	"github.com/netfilter-tools/conntrack/message"
	"github.com/netfilter-tools/conntrack/transport"
)

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	var out outputFlag
	var ff filterFlags
	var table string
	var zero bool
	out.register(fs)
	ff.register(fs)
	fs.StringVar(&table, "table", "conntrack", "table to list: conntrack, dying, or unconfirmed")
	fs.BoolVar(&zero, "zero", false, "zero counters while listing (conntrack table only)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tbl, err := config.ParseTable(table)
	if err != nil {
		return err
	}
	fltr, err := ff.build()
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
		Table:  tbl,
		Zero:   zero,
		Op:     message.Operation{Kind: message.OpList},
		Filter: fltr,
	}); err != nil {
		return err
	}

	events, err := drainAll(ct)
	if err != nil {
		return err
	}
	return writeEvents(out.mode, events)
}
