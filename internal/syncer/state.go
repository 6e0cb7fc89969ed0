package syncer

import (
	"time"

	"github.com/persistorai/dashsync/internal/models"
	"github.com/persistorai/dashsync/internal/query"
)

// Phase is the controller's current position in the sync state machine.
type Phase string

// Sync phases.
const (
	PhaseWarmingUp Phase = "warming_up"
	PhaseIdle      Phase = "idle"
	PhaseFetching  Phase = "fetching"
	PhaseRetrying  Phase = "retrying"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// Phases lists every phase, in state machine order.
func Phases() []Phase {
	return []Phase{PhaseWarmingUp, PhaseIdle, PhaseFetching, PhaseRetrying, PhaseSucceeded, PhaseFailed}
}

// BackendStatus summarises what the controller last learned about the backend.
type BackendStatus string

// Backend statuses.
const (
	BackendUnknown     BackendStatus = "unknown"
	BackendReachable   BackendStatus = "reachable"
	BackendUnreachable BackendStatus = "unreachable"
)

// State is a point-in-time copy of the controller's data and status.
// Records and Filters always come from the same backend response.
type State struct {
	Phase      Phase
	Backend    BackendStatus
	Selection  query.Selection
	Records    []models.Record
	Filters    models.FilterOptions
	Error      string
	Attempt    int
	Seq        uint64
	AppliedSeq uint64
	LastSynced time.Time
	UpdatedAt  time.Time
}

// HasData reports whether a dataset has ever been applied.
func (s State) HasData() bool {
	return !s.LastSynced.IsZero()
}

// copyState clones the filter lists. Record slices are replaced wholesale and
// never written in place, so they are shared.
func copyState(s State) State {
	out := s
	out.Filters = models.FilterOptions{
		EndYears:  cloneStrings(s.Filters.EndYears),
		Topics:    cloneStrings(s.Filters.Topics),
		Sectors:   cloneStrings(s.Filters.Sectors),
		Regions:   cloneStrings(s.Filters.Regions),
		Pestles:   cloneStrings(s.Filters.Pestles),
		Sources:   cloneStrings(s.Filters.Sources),
		Countries: cloneStrings(s.Filters.Countries),
	}

	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}

	out := make([]string, len(in))
	copy(out, in)

	return out
}
