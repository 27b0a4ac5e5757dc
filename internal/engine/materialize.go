package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/argus-sh/argus/internal/dag"
	"github.com/argus-sh/argus/internal/fingerprint"
	"github.com/argus-sh/argus/internal/plugin"
	"github.com/argus-sh/argus/internal/store"
)

// maxParallelParentReads bounds concurrent envelope reads when a join
// stage's parent set is large; join nodes rarely exceed a handful of
// parents, but the bound keeps fan-out from scaling with manifest size.
const maxParallelParentReads = 4

// resolveStagePath derives where stage materializes, following its
// parents' already-recorded paths. Parents must already be complete —
// callers only reach here after the transition gate has confirmed
// that.
func (e *Engine) resolveStagePath(sessionID string, stage *dag.Stage) (store.StagePath, error) {
	if stage.IsRoot() {
		return store.RootStagePath(stage.ID), nil
	}
	if !stage.IsJoin() {
		parentPath, ok, err := e.Store.StagePathOf(sessionID, stage.Parents[0])
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("engine: parent %q not yet materialized", stage.Parents[0])
		}
		return parentPath.Child(stage.ID), nil
	}

	parentPaths := make(map[string]store.StagePath, len(stage.Parents))
	for _, p := range stage.Parents {
		pp, ok, err := e.Store.StagePathOf(sessionID, p)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("engine: parent %q not yet materialized", p)
		}
		parentPaths[p] = pp
	}
	joinPath, err := e.Store.MaterializeJoin(sessionID, stage.Parents, parentPaths)
	if err != nil {
		return nil, err
	}
	return joinPath.Child(stage.ID), nil
}

// parentFingerprints reads each of stage's parents' envelopes to
// capture their fingerprints as observed right now — the moment a
// child envelope is serialized is what staleness comparisons are
// measured against later.
func (e *Engine) parentFingerprints(sessionID string, stage *dag.Stage) (map[string]fingerprint.FP, error) {
	if len(stage.Parents) == 0 {
		return nil, nil
	}

	type read struct {
		id string
		fp fingerprint.FP
	}
	results := make([]read, len(stage.Parents))

	g := new(errgroup.Group)
	g.SetLimit(maxParallelParentReads)
	for i, p := range stage.Parents {
		i, p := i, p
		g.Go(func() error {
			env, ok, err := e.Store.ReadEnvelope(sessionID, p)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("engine: parent %q has no envelope", p)
			}
			results[i] = read{id: p, fp: env.Fingerprint}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]fingerprint.FP, len(results))
	for _, r := range results {
		out[r.id] = r.fp
	}
	return out, nil
}

// autoDecline materializes a skip sentinel for a pending optional
// stage the gate is bypassing on the way to target. It returns the
// warning text to surface to the user, or "" once the stage's
// skip-warning budget is exhausted, after which further skips succeed
// silently.
func (e *Engine) autoDecline(sessionID string, stage, target *dag.Stage, state *store.EngineState) (string, error) {
	path, err := e.resolveStagePath(sessionID, stage)
	if err != nil {
		return "", err
	}
	parentFPs, err := e.parentFingerprints(sessionID, stage)
	if err != nil {
		return "", err
	}

	reason := fmt.Sprintf("Auto-declined: user proceeded to %s", target.ID)
	if _, err := e.Store.WriteEnvelope(sessionID, path, stage.ID, nil, store.SkipContent(reason), parentFPs, nil); err != nil {
		return "", err
	}

	if stage.SkipWarning == nil {
		return "", nil
	}
	used := state.WarningsUsed[stage.ID]
	if used >= stage.SkipWarning.MaxWarnings {
		return "", nil
	}
	state.WarningsUsed[stage.ID] = used + 1
	return fmt.Sprintf("%s: %s", stage.SkipWarning.Short, stage.SkipWarning.Reason), nil
}

// dispatchStage invokes stage's plugin handler and materializes its
// result on success.
func (e *Engine) dispatchStage(ctx context.Context, sessionID string, stage *dag.Stage, verb string, args []string, state *store.EngineState) (Response, error) {
	path, err := e.resolveStagePath(sessionID, stage)
	if err != nil {
		return Response{}, err
	}

	handler, found := e.Registry.Get(stage.Handler)
	if stage.Handler == "" || !found {
		return errored(fmt.Sprintf("stage %q has no registered handler %q", stage.ID, stage.Handler)), nil
	}

	pctx := plugin.Context{
		Context:    ctx,
		Backend:    e.Store.Backend(),
		SessionID:  sessionID,
		StageID:    stage.ID,
		DataDir:    path.DirPath(sessionID),
		Parameters: stage.Parameters,
		Command:    verb,
		Args:       args,
		Telemetry:  e.Telemetry,
		Sleep:      e.Sleep,
	}

	result, err := handler.Handle(pctx)
	if err != nil {
		return errored(err.Error()), nil
	}

	if result.StatusCode != plugin.StatusOK {
		return Response{
			Message:    result.Message,
			Success:    false,
			StatusCode: result.StatusCode,
			UIHints:    result.UIHints,
		}, nil
	}

	parentFPs, err := e.parentFingerprints(sessionID, stage)
	if err != nil {
		return Response{}, err
	}
	if _, err := e.Store.WriteEnvelope(sessionID, path, stage.ID, stage.Parameters, store.RegularContent(result.ArtifactData), parentFPs, result.Materialized); err != nil {
		return Response{}, err
	}

	if err := e.Store.SaveEngineState(sessionID, state); err != nil {
		return Response{}, err
	}

	if err := e.advanceStructuralCascade(sessionID); err != nil {
		return Response{}, err
	}

	return Response{
		Message:    result.Message,
		Success:    true,
		StatusCode: plugin.StatusOK,
		UIHints:    result.UIHints,
	}, nil
}

// advanceStructuralCascade materializes every structural (zero-command,
// pure convergence) stage that becomes current, in turn, until a
// user-facing stage is current or the workflow completes.
func (e *Engine) advanceStructuralCascade(sessionID string) error {
	for {
		pos, err := dag.ComputePosition(e.Def, e.Store.Source(sessionID))
		if err != nil {
			return err
		}
		if pos.IsComplete {
			return nil
		}
		stage := e.Def.ByID[pos.CurrentStage]
		if stage == nil || !stage.IsStructural() {
			return nil
		}
		if !pos.AllReadiness[stage.ID].Ready {
			return nil
		}

		path, err := e.resolveStagePath(sessionID, stage)
		if err != nil {
			return err
		}
		parentFPs, err := e.parentFingerprints(sessionID, stage)
		if err != nil {
			return err
		}
		if _, err := e.Store.WriteEnvelope(sessionID, path, stage.ID, nil, store.RegularContent([]byte("{}")), parentFPs, nil); err != nil {
			return err
		}
	}
}
