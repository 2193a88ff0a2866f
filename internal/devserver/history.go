package devserver

import (
	"github.com/roach88/rewind/internal/store"
)

// HistoryEntry is the /history view of one store history entry.
type HistoryEntry struct {
	Seq       int64  `json:"seq"`
	Label     string `json:"label"`
	Timestamp string `json:"timestamp"`
	State     any    `json:"state"`
}

// HistoryOf adapts a store's history for WithHistory.
func HistoryOf[S any](s *store.Store[S]) func() any {
	return func() any {
		entries := s.History()
		out := make([]HistoryEntry, len(entries))
		for i, e := range entries {
			out[i] = HistoryEntry{
				Seq:       e.Seq,
				Label:     e.Label(),
				Timestamp: e.Timestamp(),
				State:     e.State,
			}
		}
		return out
	}
}
