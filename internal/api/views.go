package api

import (
	"time"

	"github.com/persistorai/dashsync/internal/models"
	"github.com/persistorai/dashsync/internal/query"
	"github.com/persistorai/dashsync/internal/syncer"
)

// StateView is the JSON form of a sync state without its records. It is what
// GET /state returns and what WebSocket clients receive on every change.
type StateView struct {
	Phase       syncer.Phase         `json:"phase"`
	Backend     syncer.BackendStatus `json:"backend"`
	Error       string               `json:"error,omitempty"`
	Attempt     int                  `json:"attempt,omitempty"`
	Query       string               `json:"query"`
	Selection   map[string][]string  `json:"selection"`
	Filters     models.FilterOptions `json:"filters"`
	RecordCount int                  `json:"record_count"`
	Seq         uint64               `json:"seq"`
	AppliedSeq  uint64               `json:"applied_seq"`
	LastSynced  *time.Time           `json:"last_synced,omitempty"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// NewStateView summarises s for presentation clients.
func NewStateView(s syncer.State) StateView {
	v := StateView{
		Phase:       s.Phase,
		Backend:     s.Backend,
		Error:       s.Error,
		Attempt:     s.Attempt,
		Query:       query.Encode(s.Selection),
		Selection:   s.Selection.Map(),
		Filters:     s.Filters.Normalize(),
		RecordCount: len(s.Records),
		Seq:         s.Seq,
		AppliedSeq:  s.AppliedSeq,
		UpdatedAt:   s.UpdatedAt,
	}

	if s.HasData() {
		synced := s.LastSynced
		v.LastSynced = &synced
	}

	return v
}
