package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const (
	maxGrepOutput  = 50 * 1024
	maxGrepMatches = 100
)

// GrepTool searches file contents for a regular expression. It walks
// storage.Backend directly rather than shelling out to ripgrep: a code
// stage's tree lives in a virtual backend, not a real checkout on disk.
type GrepTool struct{ ctx *Context }

// NewGrepTool constructs a grep tool.
func NewGrepTool(ctx *Context) *GrepTool { return &GrepTool{ctx: ctx} }

// Name implements Tool.
func (t *GrepTool) Name() string { return "grep" }

// Description implements Tool.
func (t *GrepTool) Description() string {
	return "Search file contents for a regular expression. Returns matching lines with file paths and line numbers."
}

// InputSchema implements Tool.
func (t *GrepTool) InputSchema() map[string]any {
	return NewSchema().
		AddString("pattern", "Regular expression pattern to search for").
		AddOptionalString("path", "Directory or file to search in, relative to the stage directory (default: entire tree)").
		Build()
}

type grepInput struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path"`
}

// Execute implements Tool.
func (t *GrepTool) Execute(ctx context.Context, input json.RawMessage) (Result, error) {
	var in grepInput
	if err := json.Unmarshal(input, &in); err != nil {
		return ErrorResult("invalid input: " + err.Error()), nil
	}
	if in.Pattern == "" {
		return ErrorResult("pattern is required"), nil
	}

	re, err := regexp.Compile(in.Pattern)
	if err != nil {
		return ErrorResult("invalid pattern: " + err.Error()), nil
	}

	searchRoot := t.ctx.Root
	if in.Path != "" {
		resolved, errResult := t.ctx.ValidatePath(in.Path)
		if errResult != nil {
			return *errResult, nil
		}
		searchRoot = resolved
	}

	files, err := listFilesRecursive(t.ctx, searchRoot)
	if err != nil {
		return ErrorResult(err.Error()), nil
	}

	var b strings.Builder
	matches := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return ErrorResult("operation cancelled"), nil
		}
		data, readErr := t.ctx.Backend.Read(f)
		if readErr != nil {
			continue
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(f, t.ctx.Root), "/")
		for lineNo, line := range strings.Split(string(data), "\n") {
			if !re.MatchString(line) {
				continue
			}
			fmt.Fprintf(&b, "%s:%d:%s\n", rel, lineNo+1, line)
			matches++
			if matches >= maxGrepMatches {
				break
			}
		}
		if matches >= maxGrepMatches {
			break
		}
	}

	if matches == 0 {
		return SuccessResult("no matches found for pattern: " + in.Pattern), nil
	}

	output := b.String()
	if len(output) > maxGrepOutput {
		output = output[:maxGrepOutput] + "\n... (truncated, refine your pattern for more specific matches)"
	}
	return SuccessResult(output), nil
}
