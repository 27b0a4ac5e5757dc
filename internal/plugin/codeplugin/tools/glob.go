package tools

import (
	"context"
	"encoding/json"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const maxGlobResults = 200

// GlobTool finds files matching a glob pattern under a stage directory.
type GlobTool struct{ ctx *Context }

// NewGlobTool constructs a glob tool.
func NewGlobTool(ctx *Context) *GlobTool { return &GlobTool{ctx: ctx} }

// Name implements Tool.
func (t *GlobTool) Name() string { return "glob" }

// Description implements Tool.
func (t *GlobTool) Description() string {
	return "Find files matching a glob pattern. Supports ** for recursive matching. Returns matching paths, sorted."
}

// InputSchema implements Tool.
func (t *GlobTool) InputSchema() map[string]any {
	return NewSchema().
		AddString("pattern", "Glob pattern to match (e.g. '**/*.go', 'src/**/*.ts')").
		AddOptionalString("path", "Directory to search in, relative to the stage directory (default: root)").
		Build()
}

type globInput struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path"`
}

// Execute implements Tool.
func (t *GlobTool) Execute(ctx context.Context, input json.RawMessage) (Result, error) {
	if err := ctx.Err(); err != nil {
		return ErrorResult("operation cancelled"), nil
	}

	var in globInput
	if err := json.Unmarshal(input, &in); err != nil {
		return ErrorResult("invalid input: " + err.Error()), nil
	}
	if in.Pattern == "" {
		return ErrorResult("pattern is required"), nil
	}

	searchRoot := t.ctx.Root
	displayPrefix := ""
	if in.Path != "" {
		resolved, errResult := t.ctx.ValidatePath(in.Path)
		if errResult != nil {
			return *errResult, nil
		}
		searchRoot = resolved
		displayPrefix = strings.TrimSuffix(in.Path, "/") + "/"
	}

	files, err := listFilesRecursive(t.ctx, searchRoot)
	if err != nil {
		return ErrorResult(err.Error()), nil
	}

	var matches []string
	for _, f := range files {
		rel := strings.TrimPrefix(strings.TrimPrefix(f, searchRoot), "/")
		ok, matchErr := doublestar.Match(in.Pattern, rel)
		if matchErr != nil {
			return ErrorResult("invalid pattern: " + matchErr.Error()), nil
		}
		if ok {
			matches = append(matches, displayPrefix+rel)
		}
	}
	sort.Strings(matches)

	truncated := false
	if len(matches) > maxGlobResults {
		matches = matches[:maxGlobResults]
		truncated = true
	}

	if len(matches) == 0 {
		return SuccessResult("no files matched pattern"), nil
	}
	out := strings.Join(matches, "\n")
	if truncated {
		out += "\n... (truncated, showing first 200 matches)"
	}
	return SuccessResult(out), nil
}

// listFilesRecursive walks the backend tree rooted at dir, returning
// every file's full path. storage.Backend exposes no stat/type probe
// beyond ListChildren/Exists, so a path is treated as a directory
// whenever ListChildren succeeds and a file otherwise.
func listFilesRecursive(c *Context, dir string) ([]string, error) {
	var out []string
	children, err := c.Backend.ListChildren(dir)
	if err != nil {
		// Not a directory: dir itself is the single file being globbed.
		if c.Backend.Exists(dir) {
			return []string{dir}, nil
		}
		return nil, err
	}
	for _, name := range children {
		childPath := path.Join(dir, name)
		sub, err := listFilesRecursive(c, childPath)
		if err != nil {
			out = append(out, childPath)
			continue
		}
		out = append(out, sub...)
	}
	return out, nil
}
