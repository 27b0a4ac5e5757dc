package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/argus-sh/argus/internal/storage"
)

// EditFileTool applies a single targeted string replacement.
type EditFileTool struct{ ctx *Context }

// NewEditFileTool constructs an edit_file tool.
func NewEditFileTool(ctx *Context) *EditFileTool { return &EditFileTool{ctx: ctx} }

// Name implements Tool.
func (t *EditFileTool) Name() string { return "edit_file" }

// Description implements Tool.
func (t *EditFileTool) Description() string {
	return "Replace a string in a file. old_string must match exactly once in the file. Use read_file first to see the exact content."
}

// InputSchema implements Tool.
func (t *EditFileTool) InputSchema() map[string]any {
	return NewSchema().
		AddString("path", "File path relative to the stage directory").
		AddString("old_string", "Exact string to find and replace (must be unique in file)").
		AddString("new_string", "String to replace it with").
		Build()
}

type editFileInput struct {
	Path      string `json:"path"`
	OldString string `json:"old_string"`
	NewString string `json:"new_string"`
}

// Execute implements Tool.
func (t *EditFileTool) Execute(_ context.Context, input json.RawMessage) (Result, error) {
	var in editFileInput
	if err := json.Unmarshal(input, &in); err != nil {
		return ErrorResult("invalid input: " + err.Error()), nil
	}
	if in.Path == "" {
		return ErrorResult("path is required"), nil
	}
	if in.OldString == "" {
		return ErrorResult("old_string is required"), nil
	}
	if in.OldString == in.NewString {
		return ErrorResult("old_string and new_string are identical"), nil
	}

	resolved, errResult := t.ctx.ValidatePath(in.Path)
	if errResult != nil {
		return *errResult, nil
	}

	content, err := t.ctx.Backend.Read(resolved)
	if err != nil {
		if err == storage.ErrNotFound {
			return ErrorResult("file not found: " + in.Path), nil
		}
		return ErrorResult(err.Error()), nil
	}

	contentStr := string(content)
	count := strings.Count(contentStr, in.OldString)
	if count == 0 {
		return ErrorResult("old_string not found in file. Use read_file to see exact content."), nil
	}
	if count > 1 {
		return ErrorResult(fmt.Sprintf("old_string found %d times in file (must be unique). Include more context to make it unique.", count)), nil
	}

	newContent := strings.Replace(contentStr, in.OldString, in.NewString, 1)
	if err := t.ctx.Backend.Write(resolved, []byte(newContent)); err != nil {
		return ErrorResult("failed to write file: " + err.Error()), nil
	}

	oldLines := strings.Count(in.OldString, "\n") + 1
	newLines := strings.Count(in.NewString, "\n") + 1

	var summary string
	switch {
	case oldLines == newLines:
		summary = fmt.Sprintf("replaced %d line(s)", oldLines)
	case newLines > oldLines:
		summary = fmt.Sprintf("replaced %d line(s) with %d line(s) (+%d)", oldLines, newLines, newLines-oldLines)
	default:
		summary = fmt.Sprintf("replaced %d line(s) with %d line(s) (-%d)", oldLines, newLines, oldLines-newLines)
	}

	return SuccessResult(fmt.Sprintf("file updated: %s (%s)", in.Path, summary)), nil
}
