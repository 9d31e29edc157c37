package main

import (
	"context"
	"flag"
	"os"

	"github.com/netfilter-tools/conntrack/conntrack"
	"github.com/netfilter-tools/conntrack/message"
	"github.com/netfilter-tools/conntrack/render"
	"github.com/netfilter-tools/conntrack/transport"
)

func runEvent(args []string) error {
	fs := flag.NewFlagSet("event", flag.ExitOnError)
	var out outputFlag
	var ff filterFlags
	out.register(fs)
	ff.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	fltr, err := ff.build()
	if err != nil {
		return err
	}

	// Event mode subscribes to the group mask at socket construction; no
	// frame is sent for this operation (spec.md §4.4, §4.9). The CLI's
	// event subcommand has no flag to narrow the subscription, so it
	// subscribes to every group (New|Update|Destroy) rather than just the
	// library default of New alone — a bare `event` invocation showing
	// only creations would otherwise miss updates and teardowns entirely.
	sock, err := transport.Open(message.GroupNew|message.GroupUpdate|message.GroupDestroy, log)
	if err != nil {
		return err
	}
	ct := conntrack.New(sock, log)
	defer ct.Close()

	if err := ct.Request(conntrack.Request{
		Op:     message.Operation{Kind: message.OpEvent},
		Filter: fltr,
	}); err != nil {
		return err
	}

	seq := ct.Events()
	defer seq.Close()

	var tw *render.Table
	var js *render.JSON
	if out.mode == "json" {
		js = render.NewJSON(os.Stdout)
	} else {
		tw = render.NewTable(os.Stdout)
		tw.Header()
	}

	ctx := context.Background()
	for {
		batch, ok, err := seq.Next(ctx)
		if err != nil {
			return err
		}
		for _, e := range batch {
			if js != nil {
				if err := js.WriteEvent(e); err != nil {
					return err
				}
			} else {
				tw.WriteEvent(e)
				tw.Flush()
			}
		}
		if !ok {
			return nil
		}
	}
}
