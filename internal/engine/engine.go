package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/argus-sh/argus/internal/dag"
	"github.com/argus-sh/argus/internal/plugin"
	"github.com/argus-sh/argus/internal/store"
	"github.com/argus-sh/argus/internal/telemetry"
)

// affirmative is the small vocabulary the phase-jump confirmation
// protocol recognizes.
var affirmative = map[string]bool{
	"yes": true, "y": true, "confirm": true, "ok": true, "affirmative": true,
}

// Engine dispatches commands against a single workflow Definition,
// materializing stage results through a Store and invoking handlers
// from a plugin Registry.
type Engine struct {
	Def       *dag.Definition
	Store     *store.Store
	Registry  *plugin.Registry
	Telemetry telemetry.Sink
	Sleep     func(context.Context, time.Duration) error
}

// New constructs an Engine. telemetrySink may be nil, in which case a
// no-op sink is used. Sleep is set to a context-aware timer wait.
func New(def *dag.Definition, st *store.Store, registry *plugin.Registry, telemetrySink telemetry.Sink) *Engine {
	if telemetrySink == nil {
		telemetrySink = telemetry.Noop{}
	}
	return &Engine{
		Def:       def,
		Store:     st,
		Registry:  registry,
		Telemetry: telemetrySink,
		Sleep: func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-t.C:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
}

// Dispatch routes input against sessionID's current position and
// returns a Response. It never returns an error for reasons the
// engine itself can classify (those come back as a non-OK Response);
// an error return means the store/backend itself failed.
func (e *Engine) Dispatch(ctx context.Context, sessionID, input string) (Response, error) {
	lock, err := e.Store.Lock(sessionID)
	if err != nil {
		if err == store.ErrSessionBusy {
			return blocked(plugin.StatusBlocked, "a command is already in flight for this session"), nil
		}
		return Response{}, err
	}
	defer func() { _ = lock.Unlock() }()

	return e.dispatchLocked(ctx, sessionID, input, false)
}

func (e *Engine) dispatchLocked(ctx context.Context, sessionID, input string, isConfirmed bool) (Response, error) {
	state, err := e.Store.LoadEngineState(sessionID)
	if err != nil {
		return Response{}, err
	}

	verb, args := splitCommand(input)

	// Phase-jump confirmation protocol.
	if state.LastIntent != "" {
		_, originalInput, parsedOK := parseConfirmIntent(state.LastIntent)
		isAffirmative := affirmative[strings.ToLower(strings.TrimSpace(input))]

		// Any non-affirmative intermediate command clears lastIntent and
		// falls through to normal resolution of this new input.
		state.LastIntent = ""
		if err := e.Store.SaveEngineState(sessionID, state); err != nil {
			return Response{}, err
		}
		if parsedOK && isAffirmative {
			return e.dispatchLocked(ctx, sessionID, originalInput, true)
		}
	}

	pos, err := dag.ComputePosition(e.Def, e.Store.Source(sessionID))
	if err != nil {
		return Response{}, err
	}

	target, resolution, ok := e.resolveCommand(pos, verb)
	if !ok {
		return unknown(fmt.Sprintf("no stage declares command %q; falling through", verb)), nil
	}

	var notice string
	if resolution == resolutionGlobal && !isConfirmed {
		gr, err := e.gateJump(sessionID, pos, target, state)
		if err != nil {
			return Response{}, err
		}
		switch gr.kind {
		case gateBlocked:
			return gr.response, nil
		case gateNeedsConfirm:
			state.LastIntent = fmt.Sprintf("CONFIRM_JUMP:%s|%s", target.ID, input)
			if err := e.Store.SaveEngineState(sessionID, state); err != nil {
				return Response{}, err
			}
			return gr.response, nil
		case gateProceed:
			if err := e.Store.SaveEngineState(sessionID, state); err != nil {
				return Response{}, err
			}
			notice = gr.response.Message
		}
	}

	resp, err := e.dispatchStage(ctx, sessionID, target, verb, args, state)
	if err == nil && notice != "" {
		// Surface any skip warnings the gate produced ahead of the
		// dispatched stage's own message.
		resp.Message = notice + "\n" + resp.Message
	}
	return resp, err
}

type resolution int

const (
	resolutionContextual resolution = iota
	resolutionGlobal
)

// resolveCommand resolves a command verb to a target stage: a
// contextual match against the current stage wins outright; otherwise
// the first stage anywhere in the DAG declaring verb is a global
// match (a candidate phase jump).
func (e *Engine) resolveCommand(pos *dag.Position, verb string) (*dag.Stage, resolution, bool) {
	if pos.CurrentStage != "" {
		if cur := e.Def.ByID[pos.CurrentStage]; cur != nil && hasCommand(cur, verb) {
			return cur, resolutionContextual, true
		}
	}
	for _, s := range e.Def.Stages {
		if hasCommand(s, verb) {
			return s, resolutionGlobal, true
		}
	}
	return nil, 0, false
}

func hasCommand(s *dag.Stage, verb string) bool {
	for _, c := range s.Commands {
		if c == verb {
			return true
		}
	}
	return false
}

func splitCommand(input string) (verb string, args []string) {
	fields := strings.Fields(strings.TrimSpace(input))
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}

func parseConfirmIntent(intent string) (targetID, originalInput string, ok bool) {
	const prefix = "CONFIRM_JUMP:"
	if !strings.HasPrefix(intent, prefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(intent, prefix)
	parts := strings.SplitN(rest, "|", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}
