// Package plugin defines the handler contract stage plugins implement
// and the registry the engine dispatches through.
package plugin

import (
	"context"
	"time"

	"github.com/argus-sh/argus/internal/storage"
	"github.com/argus-sh/argus/internal/telemetry"
)

// StatusCode is the closed set of outcomes a Handler may return (spec
// §4.5). Exhaustive switches over these, not free-form strings, is
// the intended usage.
type StatusCode string

const (
	StatusOK             StatusCode = "OK"
	StatusBlocked        StatusCode = "BLOCKED"
	StatusBlockedMissing StatusCode = "BLOCKED_MISSING"
	StatusBlockedStale   StatusCode = "BLOCKED_STALE"
	StatusConversational StatusCode = "CONVERSATIONAL"
	StatusError          StatusCode = "ERROR"
	StatusUnknown        StatusCode = "UNKNOWN"
)

// Context is the standard argument a Handler receives: everything it
// needs and nothing it can use to reach outside its own stage's data
// directory.
type Context struct {
	Context context.Context

	Backend   storage.Backend
	SessionID string
	StageID   string

	// DataDir is the backend path of this stage's own materialized
	// directory (or where it will materialize on OK), scoped so a
	// handler cannot address another stage's tree by construction.
	DataDir string

	Parameters map[string]any
	Command    string
	Args       []string

	Telemetry telemetry.Sink
	Sleep     func(context.Context, time.Duration) error
}

// Result is what a Handler returns to the engine.
type Result struct {
	Message      string
	StatusCode   StatusCode
	ArtifactData []byte
	Materialized []string
	UIHints      map[string]any
}

// Handler is a stage plugin: given a dispatch Context, it runs to
// completion (or suspends at a yield point) and returns a Result.
type Handler interface {
	Handle(ctx Context) (Result, error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx Context) (Result, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx Context) (Result, error) { return f(ctx) }
