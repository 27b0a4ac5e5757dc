// Package tools implements the small agentic tool set the code stage
// plugin exposes to the model: read_file, edit_file, glob, grep. Every
// tool is scoped to a single stage's data directory inside a
// storage.Backend, never to the host filesystem directly.
package tools

import (
	"context"
	"encoding/json"
	"path"
	"strings"

	"github.com/argus-sh/argus/internal/storage"
)

// Tool is the contract every code-stage tool implements.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]any
	Execute(ctx context.Context, input json.RawMessage) (Result, error)
}

// Result is what a Tool returns to the model.
type Result struct {
	Content string
	IsError bool
}

// ErrorResult builds a Result carrying a tool-level (non-fatal) error.
func ErrorResult(msg string) Result { return Result{Content: msg, IsError: true} }

// SuccessResult builds a successful Result.
func SuccessResult(content string) Result { return Result{Content: content} }

// Context is the execution context every tool receives: a backend
// rooted at a stage's own data directory, so a tool can address
// nothing outside that tree by construction.
type Context struct {
	Backend storage.Backend
	Root    string
}

// ValidatePath resolves relPath against ctx.Root, rejecting absolute
// paths and any traversal outside Root.
func (c *Context) ValidatePath(relPath string) (string, *Result) {
	if path.IsAbs(relPath) {
		r := ErrorResult("absolute paths not allowed: " + relPath)
		return "", &r
	}
	clean := path.Clean(relPath)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		r := ErrorResult("path escapes stage directory: " + relPath)
		return "", &r
	}
	if clean == "." {
		return c.Root, nil
	}
	return path.Join(c.Root, clean), nil
}
