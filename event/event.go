// Package event converts a decoded inner family message into the tagged
// union spec.md §3/§4.8 calls Event: a Flow, a raw counter, or a per-CPU
// Statistics record.
//
// Grounded on eriknordmark/netlink/conntrack_linux.go's message-type
// dispatch (IPCTNL_MSG_CT_GET/_DELETE/...), generalized to the
// New/Update/Destroy/Counter/Statistics mapping this spec names, and on
// the NLM_F_CREATE convention real ctnetlink event messages use to tell
// New from Update.
package event

import (
	"fmt"

	"github.com/netfilter-tools/conntrack/flow"
	"github.com/netfilter-tools/conntrack/internal/ctattr"
	"github.com/netfilter-tools/conntrack/internal/nlmsg"
	"github.com/netfilter-tools/conntrack/stats"
)

// Kind tags which field of an Event is populated.
type Kind uint8

const (
	KindFlow Kind = iota
	KindCounter
	KindStatistics
)

// Event is the tagged union spec.md §3 describes. Only the field matching
// Kind is meaningful.
type Event struct {
	Kind       Kind
	Flow       flow.Flow
	Counter    uint32
	Statistics stats.Statistics
}

// msgType extracts the conntrack message type (IPCTNL_MSG_CT_*) from the
// outer header's Type field, which packs subsys<<8 | msgType (spec.md §6).
func msgType(headerType uint16) uint16 {
	return headerType & 0xff
}

// FromFrame converts one decoded data frame into an Event (spec.md §4.8).
// f must not be a control frame (Done/Error) — callers handle those before
// reaching here.
func FromFrame(f nlmsg.Frame) (Event, error) {
	switch msgType(f.Header.Type) {
	case ctattr.MsgNew:
		fl, err := flow.Decode(f.Payload)
		if err != nil {
			return Event{}, err
		}
		kind := flow.EventUpdate
		if f.Header.Flags&nlmsg.FlagCreate != 0 {
			kind = flow.EventNew
		}
		return Event{Kind: KindFlow, Flow: fl.WithEventKind(kind)}, nil

	case ctattr.MsgDelete:
		fl, err := flow.Decode(f.Payload)
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: KindFlow, Flow: fl.WithEventKind(flow.EventDestroy)}, nil

	case ctattr.MsgGetStats:
		v, found, err := stats.DecodeCounter(f.Payload)
		if err != nil {
			return Event{}, err
		}
		if !found {
			return Event{}, fmt.Errorf("event: failed to get the counter")
		}
		return Event{Kind: KindCounter, Counter: v}, nil

	case ctattr.MsgGetStatsCPU:
		s, err := stats.Decode(f.Payload, f.Nfgen.ResID)
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: KindStatistics, Statistics: s}, nil

	default:
		return Event{}, fmt.Errorf("event: unknown message type: %d", msgType(f.Header.Type))
	}
}
