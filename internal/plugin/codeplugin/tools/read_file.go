package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/argus-sh/argus/internal/storage"
)

const (
	defaultReadLimit = 2000
	maxLineLength    = 2000
)

// ReadFileTool reads a file out of a stage's own data directory.
type ReadFileTool struct{ ctx *Context }

// NewReadFileTool constructs a read_file tool.
func NewReadFileTool(ctx *Context) *ReadFileTool { return &ReadFileTool{ctx: ctx} }

// Name implements Tool.
func (t *ReadFileTool) Name() string { return "read_file" }

// Description implements Tool.
func (t *ReadFileTool) Description() string {
	return "Read a file from the stage's working tree. Returns file contents with line numbers. Use offset and limit for large files."
}

// InputSchema implements Tool.
func (t *ReadFileTool) InputSchema() map[string]any {
	return NewSchema().
		AddString("path", "File path relative to the stage directory").
		AddOptionalInteger("offset", "Line number to start reading from (1-indexed, default: 1)", 1).
		AddOptionalInteger("limit", "Maximum number of lines to read", defaultReadLimit).
		Build()
}

type readFileInput struct {
	Path   string `json:"path"`
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
}

// Execute implements Tool.
func (t *ReadFileTool) Execute(_ context.Context, input json.RawMessage) (Result, error) {
	var in readFileInput
	if err := json.Unmarshal(input, &in); err != nil {
		return ErrorResult("invalid input: " + err.Error()), nil
	}
	if in.Path == "" {
		return ErrorResult("path is required"), nil
	}
	if in.Offset <= 0 {
		in.Offset = 1
	}
	if in.Limit <= 0 {
		in.Limit = defaultReadLimit
	}

	resolved, errResult := t.ctx.ValidatePath(in.Path)
	if errResult != nil {
		return *errResult, nil
	}

	data, err := t.ctx.Backend.Read(resolved)
	if err != nil {
		if err == storage.ErrNotFound {
			return ErrorResult("file not found: " + in.Path), nil
		}
		return ErrorResult(err.Error()), nil
	}

	lines := strings.Split(string(data), "\n")
	start := in.Offset - 1
	if start >= len(lines) {
		return SuccessResult(""), nil
	}
	end := start + in.Limit
	if end > len(lines) {
		end = len(lines)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		line := lines[i]
		if len(line) > maxLineLength {
			line = line[:maxLineLength] + "... (truncated)"
		}
		fmt.Fprintf(&b, "%6d\t%s\n", i+1, line)
	}
	return SuccessResult(b.String()), nil
}
