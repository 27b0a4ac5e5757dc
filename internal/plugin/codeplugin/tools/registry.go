package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

// Registry holds the tools available to a single code-stage run and
// dispatches the model's tool_use blocks against them.
type Registry struct {
	tools   map[string]Tool
	toolCtx *Context
}

// NewRegistry constructs a Registry scoped to ctx.
func NewRegistry(ctx *Context) *Registry {
	return &Registry{tools: make(map[string]Tool), toolCtx: ctx}
}

// Register adds a tool, keyed by its own Name().
func (r *Registry) Register(t Tool) { r.tools[t.Name()] = t }

// Context returns the registry's tool execution context.
func (r *Registry) Context() *Context { return r.toolCtx }

// Dispatch runs the named tool against input, translating a fatal Go
// error into an error Result rather than propagating it (only context
// cancellation and similar should ever reach here as errors).
func (r *Registry) Dispatch(ctx context.Context, name string, input json.RawMessage) Result {
	t := r.tools[name]
	if t == nil {
		return ErrorResult(fmt.Sprintf("unknown tool: %s", name))
	}
	result, err := t.Execute(ctx, input)
	if err != nil {
		return ErrorResult(fmt.Sprintf("tool execution failed: %v", err))
	}
	return result
}

// ToAnthropicTools converts the registry into the SDK's tool-union
// shape for a Messages.New call.
func (r *Registry) ToAnthropicTools() []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(r.tools))
	for _, t := range r.tools {
		schema := t.InputSchema()

		var required []string
		if req, ok := schema["required"].([]string); ok {
			required = req
		}
		properties := schema["properties"]

		toolParam := anthropic.ToolParam{
			Name:        t.Name(),
			Description: anthropic.String(t.Description()),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: properties,
				Required:   required,
			},
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &toolParam})
	}
	return out
}
