package engine

import (
	"fmt"
	"strings"

	"github.com/argus-sh/argus/internal/dag"
	"github.com/argus-sh/argus/internal/plugin"
	"github.com/argus-sh/argus/internal/store"
)

type gateKind int

const (
	// gateProceed: the gap (if any) was only pending-optional stages,
	// now auto-declined; dispatch target directly, no confirmation.
	gateProceed gateKind = iota
	// gateNeedsConfirm: a genuine phase jump (backward re-execution, or
	// a forward jump not reachable by auto-decline alone); caller must
	// record lastIntent and return response as-is.
	gateNeedsConfirm
	// gateBlocked: target is unreachable regardless of confirmation —
	// a required prerequisite (direct or along the gap) is incomplete.
	gateBlocked
)

type gateResult struct {
	kind     gateKind
	response Response
}

// gateJump implements the transition gate for a global (non-contextual)
// command resolution: determine whether target is reachable by
// silently auto-declining pending optional stages along the way (the
// common case), is unreachable outright, or is a genuine phase jump
// requiring confirmation.
func (e *Engine) gateJump(sessionID string, pos *dag.Position, target *dag.Stage, state *store.EngineState) (gateResult, error) {
	readiness := pos.AllReadiness[target.ID]

	if readiness.Complete {
		// Target already materialized: this is a re-execution request,
		// always a genuine phase jump regardless of gap.
		return gateResult{
			kind:     gateNeedsConfirm,
			response: blocked(plugin.StatusBlocked, fmt.Sprintf("PHASE JUMP DETECTED: re-running %q will invalidate its descendants. Confirm?", target.ID)),
		}, nil
	}

	order := dag.TopoOrder(e.Def)
	currentIdx, targetIdx := -1, -1
	for i, s := range order {
		if pos.CurrentStage != "" && s.ID == pos.CurrentStage {
			currentIdx = i
		}
		if s.ID == target.ID {
			targetIdx = i
		}
	}

	if currentIdx < 0 || targetIdx <= currentIdx {
		// No current stage (fresh/complete session) or target sits at or
		// before the current position in topo order: not a forward
		// "natural next" advance.
		return gateResult{
			kind:     gateNeedsConfirm,
			response: blocked(plugin.StatusBlocked, fmt.Sprintf("PHASE JUMP DETECTED: jumping to %q. Confirm?", target.ID)),
		}, nil
	}

	// Inclusive of currentIdx: the current stage itself may be a direct,
	// optional, still-pending parent of target, so it must be eligible
	// for auto-decline too, not just the stages strictly between
	// current and target.
	gap := order[currentIdx:targetIdx]
	var pendingRequired []string
	var pendingOptional []*dag.Stage
	for _, s := range gap {
		if pos.AllReadiness[s.ID].Complete {
			continue
		}
		if s.Optional {
			pendingOptional = append(pendingOptional, s)
		} else {
			pendingRequired = append(pendingRequired, s.ID)
		}
	}

	if len(pendingRequired) > 0 {
		return gateResult{
			kind:     gateBlocked,
			response: blocked(plugin.StatusBlockedMissing, fmt.Sprintf("stage %q is blocked on pending prerequisites: %s", target.ID, strings.Join(pendingRequired, ", "))),
		}, nil
	}

	var warnings []string
	for _, s := range pendingOptional {
		warning, err := e.autoDecline(sessionID, s, target, state)
		if err != nil {
			return gateResult{}, err
		}
		if warning != "" {
			warnings = append(warnings, warning)
		}
	}

	// Defensive recheck: every direct parent of target should now be
	// complete (already-complete before the gap, or just auto-declined
	// within it). If some parent still isn't, it wasn't reachable from
	// current at all (e.g. a sibling branch never started).
	refreshed, err := dag.ComputePosition(e.Def, e.Store.Source(sessionID))
	if err != nil {
		return gateResult{}, err
	}
	if r := refreshed.AllReadiness[target.ID]; !r.Ready {
		return gateResult{
			kind:     gateBlocked,
			response: blocked(plugin.StatusBlockedMissing, fmt.Sprintf("stage %q is blocked on pending prerequisites: %s", target.ID, strings.Join(r.PendingParents, ", "))),
		}, nil
	}

	msg := fmt.Sprintf("proceeding to %q", target.ID)
	if len(warnings) > 0 {
		msg = strings.Join(warnings, " ") + " " + msg
	}
	return gateResult{kind: gateProceed, response: ok(msg)}, nil
}
