package render

import (
	"encoding/json"
	"io"

	"github.com/netfilter-tools/conntrack/event"
	"github.com/netfilter-tools/conntrack/flow"
	"github.com/netfilter-tools/conntrack/stats"
)

// JSON writes one line-delimited JSON object per Event to w, matching
// display/src/json.rs's per-record output and spec.md §1's "line-delimited
// structured records".
type JSON struct {
	enc *json.Encoder
}

// NewJSON wraps w in a streaming encoder; each WriteEvent call emits one
// complete JSON object terminated by a newline.
func NewJSON(w io.Writer) *JSON {
	return &JSON{enc: json.NewEncoder(w)}
}

// flowRecord is the wire shape of a Flow event line.
type flowRecord struct {
	Kind      string      `json:"kind"`
	EventKind string      `json:"event"`
	Protocol  string      `json:"protocol"`
	TCPState  *string     `json:"tcp_state,omitempty"`
	Orig      tupleRecord `json:"orig"`
	Reply     tupleRecord `json:"reply"`
	Status    []string    `json:"status"`
	Mark      uint32      `json:"mark"`
	Use       uint32      `json:"use"`
	Timeout   uint32      `json:"timeout"`
}

type tupleRecord struct {
	SrcAddr string `json:"src_addr"`
	DstAddr string `json:"dst_addr"`
	SrcPort uint16 `json:"src_port"`
	DstPort uint16 `json:"dst_port"`
}

type counterRecord struct {
	Kind  string `json:"kind"`
	Value uint32 `json:"value"`
}

type statsRecord struct {
	Kind string           `json:"kind"`
	Data stats.Statistics `json:"stats"`
}

// WriteEvent encodes one Event as a single JSON line.
func (j *JSON) WriteEvent(e event.Event) error {
	switch e.Kind {
	case event.KindFlow:
		return j.enc.Encode(toFlowRecord(e.Flow))
	case event.KindCounter:
		return j.enc.Encode(counterRecord{Kind: "counter", Value: e.Counter})
	case event.KindStatistics:
		return j.enc.Encode(statsRecord{Kind: "stats", Data: e.Statistics})
	}
	return nil
}

func toFlowRecord(f flow.Flow) flowRecord {
	var tcpState *string
	if f.TCPState != nil {
		s := f.TCPState.String()
		tcpState = &s
	}
	return flowRecord{
		Kind:      "flow",
		EventKind: f.EventKind.String(),
		Protocol:  f.Protocol.String(),
		TCPState:  tcpState,
		Orig:      toTupleRecord(f.Orig),
		Reply:     toTupleRecord(f.Reply),
		Status:    statusNames(f.Status),
		Mark:      f.Mark,
		Use:       f.Use,
		Timeout:   f.Timeout,
	}
}

func toTupleRecord(t flow.Tuple) tupleRecord {
	return tupleRecord{
		SrcAddr: t.SrcAddr.String(),
		DstAddr: t.DstAddr.String(),
		SrcPort: t.SrcPort,
		DstPort: t.DstPort,
	}
}

var allStatusFlags = []struct {
	bit  flow.StatusFlag
	name string
}{
	{flow.StatusExpected, "expected"},
	{flow.StatusSeenReply, "seen_reply"},
	{flow.StatusAssured, "assured"},
	{flow.StatusConfirmed, "confirmed"},
	{flow.StatusSourceNAT, "src_nat"},
	{flow.StatusDestinationNAT, "dst_nat"},
	{flow.StatusSequenceAdjust, "seq_adjust"},
	{flow.StatusSourceNATDone, "src_nat_done"},
	{flow.StatusDestinationNATDone, "dst_nat_done"},
	{flow.StatusDying, "dying"},
	{flow.StatusFixedTimeout, "fixed_timeout"},
	{flow.StatusTemplate, "template"},
	{flow.StatusUntracked, "untracked"},
	{flow.StatusHelper, "helper"},
	{flow.StatusOffload, "offload"},
}

func statusNames(s flow.Status) []string {
	names := make([]string, 0, len(allStatusFlags))
	for _, sf := range allStatusFlags {
		if s.Has(sf.bit) {
			names = append(names, sf.name)
		}
	}
	return names
}
