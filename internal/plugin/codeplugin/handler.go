package codeplugin

import (
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/argus-sh/argus/internal/plugin"
	"github.com/argus-sh/argus/internal/plugin/codeplugin/tools"
	"github.com/argus-sh/argus/internal/telemetry"
)

const defaultTimeout = 10 * time.Minute

// HandlerConfig carries the settings a Handler needs that are not
// derived per-dispatch from plugin.Context: the API credential and
// the run-level ceilings resolved from internal/config.
type HandlerConfig struct {
	APIKey        string
	Model         anthropic.Model
	BudgetUSD     float64
	MaxIterations int
	Timeout       time.Duration
	SystemPrompt  string
	Verbose       bool
}

// Handler implements plugin.Handler by driving a fresh Loop, scoped to
// the dispatching stage's own DataDir, for every dispatch.
type Handler struct {
	client anthropic.Client
	config HandlerConfig
}

// NewHandler constructs a code-stage Handler. Registered under a
// handler id such as "code" in the engine's plugin.Registry.
func NewHandler(config HandlerConfig) *Handler {
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	client := anthropic.NewClient(option.WithAPIKey(config.APIKey))
	return &Handler{client: client, config: config}
}

// Handle implements plugin.Handler.
func (h *Handler) Handle(ctx plugin.Context) (plugin.Result, error) {
	toolCtx := &tools.Context{Backend: ctx.Backend, Root: ctx.DataDir}
	registry := tools.NewRegistry(toolCtx)
	registry.Register(tools.NewReadFileTool(toolCtx))
	registry.Register(tools.NewEditFileTool(toolCtx))
	registry.Register(tools.NewGlobTool(toolCtx))
	registry.Register(tools.NewGrepTool(toolCtx))

	var verboseWriter *telemetryWriter
	if h.config.Verbose && ctx.Telemetry != nil {
		verboseWriter = &telemetryWriter{sink: ctx.Telemetry, stageID: ctx.StageID}
	}

	loop := New(h.client, registry, Config{
		Timeout:       h.config.Timeout,
		Model:         h.config.Model,
		BudgetUSD:     h.config.BudgetUSD,
		MaxIterations: h.config.MaxIterations,
		Verbose:       verboseWriter != nil,
	}, verboseWriter)

	userPrompt := formatUserPrompt(ctx)

	result, err := loop.Run(ctx.Context, h.config.SystemPrompt, userPrompt)
	if err != nil {
		return plugin.Result{
			Message:    err.Error(),
			StatusCode: plugin.StatusError,
		}, nil
	}

	if result.BudgetExceeded {
		return plugin.Result{
			Message:    fmt.Sprintf("code run stopped: budget of $%.2f exceeded after %d iteration(s), cost $%.4f", h.config.BudgetUSD, result.Iterations, result.CostUSD),
			StatusCode: plugin.StatusBlocked,
		}, nil
	}

	return plugin.Result{
		Message:      result.FinalMessage,
		StatusCode:   plugin.StatusOK,
		ArtifactData: []byte(fmt.Sprintf(`{"iterations":%d,"tool_calls":%d,"cost_usd":%f}`, result.Iterations, result.ToolCalls, result.CostUSD)),
		UIHints: map[string]any{
			"iterations": result.Iterations,
			"tool_calls": result.ToolCalls,
			"cost_usd":   result.CostUSD,
			"duration_s": result.Duration.Seconds(),
		},
	}, nil
}

func formatUserPrompt(ctx plugin.Context) string {
	prompt := ctx.Command
	if len(ctx.Args) > 0 {
		for _, a := range ctx.Args {
			prompt += " " + a
		}
	}
	return prompt
}

// telemetryWriter adapts an io.Writer call to a telemetry.Sink, so the
// Loop's verbose tool-call logging flows through the same sink the
// rest of a dispatch uses rather than opening a side channel.
type telemetryWriter struct {
	sink    telemetry.Sink
	stageID string
}

func (w *telemetryWriter) Write(p []byte) (int, error) {
	w.sink.Emit(telemetry.Event{
		Type:    telemetry.EventLog,
		StageID: w.stageID,
		Fields:  map[string]any{"detail": string(p)},
	})
	return len(p), nil
}
