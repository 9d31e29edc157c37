// Package stats decodes the per-CPU GetStatsCPU conntrack reply into a
// Statistics record (spec.md §3). Deprecated kernel attributes (searched,
// new, ignore, delete, delete-list) are parsed off the wire and discarded;
// unknown attribute ids are skipped for forward compatibility (spec.md
// §4.2).
package stats

import (
	"encoding/binary"

	"github.com/netfilter-tools/conntrack/internal/ctattr"
)

// Statistics is one CPU's conntrack counters.
type Statistics struct {
	CPU            uint16
	Found          uint32
	Invalid        uint32
	Insert         uint32
	InsertFailed   uint32
	Drop           uint32
	EarlyDrop      uint32
	Error          uint32
	SearchRestart  uint32
	ClashResolve   uint32
	ChainTooLong   uint32
}

// Decode parses a GetStatsCPU reply's attribute payload into Statistics.
// cpu is the resource id carried by the enclosing frame's family header
// (spec.md §4.8).
func Decode(payload []byte, cpu uint16) (Statistics, error) {
	s := Statistics{CPU: cpu}
	err := ctattr.Walk(payload, func(a ctattr.Attr) error {
		if len(a.Value) < 4 {
			return nil
		}
		v := binary.BigEndian.Uint32(a.Value)
		switch a.Type {
		case ctattr.CTAStatsFound:
			s.Found = v
		case ctattr.CTAStatsInvalid:
			s.Invalid = v
		case ctattr.CTAStatsInsert:
			s.Insert = v
		case ctattr.CTAStatsInsertFailed:
			s.InsertFailed = v
		case ctattr.CTAStatsDrop:
			s.Drop = v
		case ctattr.CTAStatsEarlyDrop:
			s.EarlyDrop = v
		case ctattr.CTAStatsError:
			s.Error = v
		case ctattr.CTAStatsSearchRestart:
			s.SearchRestart = v
		case ctattr.CTAStatsClashResolve:
			s.ClashResolve = v
		case ctattr.CTAStatsChainTooLong:
			s.ChainTooLong = v
		case ctattr.CTAStatsSearched, ctattr.CTAStatsNew, ctattr.CTAStatsIgnore,
			ctattr.CTAStatsDelete, ctattr.CTAStatsDeleteList:
			// Deprecated; parsed and discarded.
		}
		return nil
	})
	return s, err
}

// DecodeCounter extracts the Searched / global-entries attribute from a
// Count operation's (GetStats) reply, producing the single 32-bit counter
// spec.md §4.8 calls for.
func DecodeCounter(payload []byte) (uint32, bool, error) {
	var v uint32
	var found bool
	err := ctattr.Walk(payload, func(a ctattr.Attr) error {
		if a.Type == ctattr.CTAStatsGlobalEntries && len(a.Value) >= 4 {
			v = binary.BigEndian.Uint32(a.Value)
			found = true
		}
		return nil
	})
	return v, found, err
}
