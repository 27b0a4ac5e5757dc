package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/argus-sh/argus/internal/dag"
	"github.com/argus-sh/argus/internal/engine"
	"github.com/argus-sh/argus/internal/plugin"
	"github.com/argus-sh/argus/internal/plugin/codeplugin"
	"github.com/argus-sh/argus/internal/storage"
	"github.com/argus-sh/argus/internal/store"
	"github.com/argus-sh/argus/internal/telemetry"
)

const codeHandlerID = "code"

// registeredHandlerIDs is every handler id this build ships a plugin
// for; used to reject manifests referencing handlers no build of
// dagctl can dispatch. Handler references are checked at load time.
var registeredHandlerIDs = dag.RegisteredHandlers{codeHandlerID: true}

// buildEngine loads manifestPath, validates it, and wires a Store and
// plugin Registry rooted at cfg's configured backend and API key. The
// returned cleanup func flushes the telemetry sink (if any) and must
// be deferred by the caller once dispatch is done, not by buildEngine
// itself — flushing here would ship zero events every time.
func buildEngine() (*engine.Engine, func(), error) {
	if manifestPath == "" {
		return nil, func() {}, fmt.Errorf("--manifest is required")
	}
	text, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, func() {}, fmt.Errorf("reading manifest: %w", err)
	}

	def, err := dag.ParseManifest(text, registeredHandlerIDs)
	if err != nil {
		return nil, func() {}, err
	}
	if res := dag.Validate(def); !res.Valid {
		return nil, func() {}, fmt.Errorf("manifest invalid: %v", res.Errors)
	}

	backend, err := buildBackend()
	if err != nil {
		return nil, func() {}, err
	}
	st := store.New(backend)

	registry := plugin.NewRegistry()
	if cfg.AnthropicAPIKey != "" {
		registry.Register(codeHandlerID, codeplugin.NewHandler(codeplugin.HandlerConfig{
			APIKey:        cfg.AnthropicAPIKey,
			Model:         anthropic.ModelClaudeSonnet4_5,
			BudgetUSD:     cfg.BudgetUSD,
			MaxIterations: cfg.MaxIterations,
			SystemPrompt:  "You are operating inside a single workflow stage's own working tree. Make the requested change using the available tools, then stop.",
		}))
	}

	sink, flush := buildTelemetrySink()
	return engine.New(def, st, registry, sink), flush, nil
}

func buildBackend() (storage.Backend, error) {
	switch cfg.BackendKind {
	case "memory":
		return storage.NewMemory(), nil
	case "fs", "":
		root := cfg.SessionsRoot
		if !filepath.IsAbs(root) {
			root = filepath.Join(repoRoot, root)
		}
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("creating sessions root: %w", err)
		}
		return storage.NewFS(root)
	default:
		return nil, fmt.Errorf("unknown backend_kind %q", cfg.BackendKind)
	}
}

// buildTelemetrySink attaches a stderr writer observer by default and
// the optional Sentry observer when SENTRY_DSN is set, initializing
// Sentry only when the DSN is present and no-op otherwise.
func buildTelemetrySink() (telemetry.Sink, func()) {
	stderrSink := telemetry.NewStderrSink(os.Stderr)
	if os.Getenv("SENTRY_DSN") == "" {
		return stderrSink, func() {}
	}
	sentrySink, flush := telemetry.NewSentrySink(Version)
	return telemetry.Multi{stderrSink, sentrySink}, flush
}
