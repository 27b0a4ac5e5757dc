package store

import (
	"encoding/json"

	"github.com/argus-sh/argus/internal/engineerr"
	"github.com/argus-sh/argus/internal/storage"
)

// EngineState is the small piece of session state the execution
// engine needs beyond materialized envelopes: the phase-jump
// confirmation protocol's pending intent, and the skip-warning budget
// consumed per optional stage. Both are kept as per-session state,
// since a jump intent is inherently session-scoped and warning counts
// read most naturally as "how many times has this session auto-declined
// this stage so far".
type EngineState struct {
	// LastIntent holds "CONFIRM_JUMP:<targetId>|<input>" while a phase
	// jump awaits its second affirmative, empty otherwise.
	LastIntent string `json:"lastIntent,omitempty"`
	// WarningsUsed counts, per stage id, how many times this session
	// has auto-declined that optional stage under its skip-warning
	// budget.
	WarningsUsed map[string]int `json:"warningsUsed,omitempty"`
}

func engineStatePath(sessionID string) string {
	return join(sessionDir(sessionID), "engine_state.json")
}

// LoadEngineState returns sessionID's engine state, or a zero-value
// state if none has been written yet.
func (st *Store) LoadEngineState(sessionID string) (*EngineState, error) {
	raw, err := st.backend.Read(engineStatePath(sessionID))
	if err != nil {
		if err == storage.ErrNotFound {
			return &EngineState{WarningsUsed: map[string]int{}}, nil
		}
		return nil, engineerr.Storage("read engine state", err)
	}
	var s EngineState
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, engineerr.Storage("decode engine state", err)
	}
	if s.WarningsUsed == nil {
		s.WarningsUsed = map[string]int{}
	}
	return &s, nil
}

// SaveEngineState persists sessionID's engine state.
func (st *Store) SaveEngineState(sessionID string, s *EngineState) error {
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return engineerr.Storage("encode engine state", err)
	}
	if err := st.backend.Write(engineStatePath(sessionID), raw); err != nil {
		return engineerr.Storage("write engine state", err)
	}
	return nil
}
