package alert

import (
	"sort"
	"sync"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// Status is the position of a unit in the alert state machine.
type Status string

const (
	StatusUnalerted Status = "unalerted"
	StatusAlerted   Status = "alerted"
)

// State is the alert memory kept for one unit. It lives for the process
// lifetime and is not persisted.
type State struct {
	UnitID         string           `json:"unit_id"`
	Status         Status           `json:"status"`
	LastKnownState domain.RiskState `json:"last_known_state,omitempty"`
	// LastAlertSentAt is set when a dispatch succeeds.
	LastAlertSentAt *time.Time `json:"last_alert_sent_at,omitempty"`
	// LastDispatchError is the cause of the most recent failed dispatch.
	LastDispatchError string `json:"last_dispatch_error,omitempty"`
}

type unitEntry struct {
	mu    sync.Mutex
	state State
}

// stateStore maps unit ids to their entries. The map lock only guards entry
// creation; each entry carries its own mutex.
type stateStore struct {
	mu    sync.Mutex
	units map[string]*unitEntry
}

func newStateStore() *stateStore {
	return &stateStore{units: make(map[string]*unitEntry)}
}

func (s *stateStore) entry(unitID string) *unitEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.units[unitID]
	if !ok {
		e = &unitEntry{state: State{UnitID: unitID, Status: StatusUnalerted}}
		s.units[unitID] = e
	}
	return e
}

func (s *stateStore) snapshot() []State {
	s.mu.Lock()
	entries := make([]*unitEntry, 0, len(s.units))
	for _, e := range s.units {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	out := make([]State, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		st := e.state
		if st.LastAlertSentAt != nil {
			ts := *st.LastAlertSentAt
			st.LastAlertSentAt = &ts
		}
		e.mu.Unlock()
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UnitID < out[j].UnitID })
	return out
}
