package dag

import (
	"sort"

	"github.com/argus-sh/argus/internal/fingerprint"
)

// EnvelopeInfo is the minimal view of a materialized stage the graph
// layer needs to compute readiness, completion, and staleness,
// without depending on how or where the envelope is actually stored.
type EnvelopeInfo struct {
	Exists             bool
	Fingerprint        fingerprint.FP
	ParentFingerprints map[string]fingerprint.FP
}

// EnvelopeSource answers "is this stage materialized, and what does
// its envelope say" for a single session. The store package
// implements this against the storage backend; the graph layer stays
// ignorant of how sessions are laid out on disk.
type EnvelopeSource interface {
	Lookup(stageID string) (EnvelopeInfo, error)
}

// Readiness is the per-stage view §4.3 describes.
type Readiness struct {
	ID             string
	Ready          bool
	Complete       bool
	Stale          bool
	PendingParents []string
}

// Progress is the {completed, total, phase} view of a session, counting
// only non-structural stages (stages with at least one declared
// command verb — a structural, zero-command stage is plumbing the
// user never directly invokes, see IsStructural).
type Progress struct {
	Completed int
	Total     int
	Phase     string
}

// Position is the derived "where are we in the workflow" view,
// recomputed fresh on every call, never persisted.
type Position struct {
	CompletedStages    []string
	CurrentStage       string // "" when IsComplete
	NextInstruction    string
	AvailableCommands  []string
	StaleStages        []string
	AllReadiness       map[string]Readiness
	Progress           Progress
	IsComplete         bool
}

// IsStructural reports whether a stage is pure convergence plumbing
// with no user-facing command — the engine auto-advances through
// these once their parents are ready, dispatching the next structural
// stage immediately.
func (s *Stage) IsStructural() bool { return len(s.Commands) == 0 }

// ComputePosition walks def in topological order, asking src whether
// each stage is materialized, and derives readiness, staleness, and
// the current workflow position. It always terminates and returns
// either a well-defined CurrentStage or IsComplete=true.
func ComputePosition(def *Definition, src EnvelopeSource) (*Position, error) {
	order := TopoOrder(def)

	infoCache := make(map[string]EnvelopeInfo, len(order))
	readiness := make(map[string]Readiness, len(order))
	staleSet := make(map[string]bool, len(order))

	for _, s := range order {
		info, err := src.Lookup(s.ID)
		if err != nil {
			return nil, err
		}
		infoCache[s.ID] = info

		var pending []string
		for _, p := range s.Parents {
			if pi, ok := infoCache[p]; !ok || !pi.Exists {
				pending = append(pending, p)
			}
		}
		ready := len(pending) == 0

		stale := false
		if info.Exists {
			for _, p := range s.Parents {
				pi, ok := infoCache[p]
				if !ok || !pi.Exists {
					continue
				}
				if info.ParentFingerprints[p] != pi.Fingerprint {
					stale = true
				}
				if staleSet[p] {
					stale = true
				}
			}
			if stale {
				staleSet[s.ID] = true
			}
		}

		readiness[s.ID] = Readiness{
			ID:             s.ID,
			Ready:          ready,
			Complete:       info.Exists,
			Stale:          stale,
			PendingParents: pending,
		}
	}

	var completed []string
	// A stale stage is materialized but no longer trustworthy: it
	// reopens as the current target for re-execution, so "done, no
	// action needed" means Complete *and* not Stale.
	var current *Stage
	for _, s := range order {
		r := readiness[s.ID]
		if r.Complete {
			completed = append(completed, s.ID)
		}
		if current == nil && r.Ready && (!r.Complete || r.Stale) {
			current = s
		}
	}

	var stale []string
	for _, s := range order {
		if staleSet[s.ID] {
			stale = append(stale, s.ID)
		}
	}
	sort.Strings(stale)

	progress := Progress{}
	for _, s := range order {
		if s.IsStructural() {
			continue
		}
		progress.Total++
		if readiness[s.ID].Complete && !readiness[s.ID].Stale {
			progress.Completed++
		}
	}

	pos := &Position{
		CompletedStages: completed,
		StaleStages:     stale,
		AllReadiness:    readiness,
		Progress:        progress,
		IsComplete:      current == nil,
	}
	if current != nil {
		pos.CurrentStage = current.ID
		pos.NextInstruction = current.Instruction
		pos.AvailableCommands = current.Commands
		pos.Progress.Phase = current.Phase
	} else if len(order) > 0 {
		pos.Progress.Phase = order[len(order)-1].Phase
	}

	return pos, nil
}
