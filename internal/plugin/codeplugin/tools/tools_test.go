package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/argus-sh/argus/internal/storage"
)

func TestContextValidatePath(t *testing.T) {
	tests := []struct {
		name         string
		root         string
		relPath      string
		wantPath     string
		wantError    bool
		errorContain string
	}{
		{"valid simple path", "/stage", "src/main.go", "/stage/src/main.go", false, ""},
		{"valid path with dots", "/stage", "src/../lib/util.go", "/stage/lib/util.go", false, ""},
		{"parent escape blocked", "/stage", "../secret", "", true, "escapes stage directory"},
		{"absolute path blocked", "/stage", "/etc/passwd", "", true, "absolute paths not allowed"},
		{"empty path resolves to root", "/stage", "", "/stage", false, ""},
		{"dot path resolves to root", "/stage", ".", "/stage", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Context{Root: tt.root}
			gotPath, errResult := c.ValidatePath(tt.relPath)

			if tt.wantError {
				if errResult == nil {
					t.Fatalf("ValidatePath(%q) expected error, got path %q", tt.relPath, gotPath)
				}
				if !strings.Contains(errResult.Content, tt.errorContain) {
					t.Errorf("error = %q, want to contain %q", errResult.Content, tt.errorContain)
				}
				return
			}
			if errResult != nil {
				t.Fatalf("ValidatePath(%q) unexpected error: %s", tt.relPath, errResult.Content)
			}
			if gotPath != tt.wantPath {
				t.Errorf("ValidatePath(%q) = %q, want %q", tt.relPath, gotPath, tt.wantPath)
			}
		})
	}
}

func newTestContext(t *testing.T) *Context {
	t.Helper()
	backend := storage.NewMemory()
	if err := backend.MakeDir("/stage"); err != nil {
		t.Fatalf("MakeDir: %v", err)
	}
	return &Context{Backend: backend, Root: "/stage"}
}

func TestReadFileTool(t *testing.T) {
	ctx := newTestContext(t)
	if err := ctx.Backend.Write("/stage/main.go", []byte("line one\nline two\nline three\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	tool := NewReadFileTool(ctx)

	t.Run("reads whole file with line numbers", func(t *testing.T) {
		input, _ := json.Marshal(map[string]any{"path": "main.go"})
		res, err := tool.Execute(context.Background(), input)
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if res.IsError {
			t.Fatalf("unexpected error result: %s", res.Content)
		}
		if !strings.Contains(res.Content, "line one") || !strings.Contains(res.Content, "     3\tline three") {
			t.Errorf("unexpected content: %q", res.Content)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		input, _ := json.Marshal(map[string]any{"path": "missing.go"})
		res, err := tool.Execute(context.Background(), input)
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if !res.IsError {
			t.Fatalf("expected error result for missing file")
		}
	})

	t.Run("path escaping root is rejected", func(t *testing.T) {
		input, _ := json.Marshal(map[string]any{"path": "../outside.go"})
		res, err := tool.Execute(context.Background(), input)
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if !res.IsError {
			t.Fatalf("expected error result for escaping path")
		}
	})
}

func TestEditFileTool(t *testing.T) {
	ctx := newTestContext(t)
	if err := ctx.Backend.Write("/stage/main.go", []byte("func old() {}\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	tool := NewEditFileTool(ctx)

	t.Run("unique replacement succeeds", func(t *testing.T) {
		input, _ := json.Marshal(map[string]any{
			"path":       "main.go",
			"old_string": "func old()",
			"new_string": "func renamed()",
		})
		res, err := tool.Execute(context.Background(), input)
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if res.IsError {
			t.Fatalf("unexpected error result: %s", res.Content)
		}
		got, err := ctx.Backend.Read("/stage/main.go")
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if string(got) != "func renamed() {}\n" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("non-unique match is rejected", func(t *testing.T) {
		if err := ctx.Backend.Write("/stage/dup.go", []byte("aa\naa\n")); err != nil {
			t.Fatalf("Write: %v", err)
		}
		input, _ := json.Marshal(map[string]any{
			"path":       "dup.go",
			"old_string": "aa",
			"new_string": "bb",
		})
		res, err := tool.Execute(context.Background(), input)
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if !res.IsError {
			t.Fatalf("expected error result for non-unique match")
		}
	})

	t.Run("identical old and new is rejected", func(t *testing.T) {
		input, _ := json.Marshal(map[string]any{
			"path":       "main.go",
			"old_string": "same",
			"new_string": "same",
		})
		res, err := tool.Execute(context.Background(), input)
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if !res.IsError {
			t.Fatalf("expected error result for identical strings")
		}
	})
}

func TestGlobTool(t *testing.T) {
	ctx := newTestContext(t)
	files := map[string]string{
		"/stage/main.go":          "package main",
		"/stage/main_test.go":     "package main",
		"/stage/sub/helper.go":    "package sub",
		"/stage/sub/notes.txt":    "notes",
	}
	for p, content := range files {
		if err := ctx.Backend.Write(p, []byte(content)); err != nil {
			t.Fatalf("Write(%q): %v", p, err)
		}
	}
	tool := NewGlobTool(ctx)

	input, _ := json.Marshal(map[string]any{"pattern": "**/*.go"})
	res, err := tool.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", res.Content)
	}
	for _, want := range []string{"main.go", "main_test.go", "sub/helper.go"} {
		if !strings.Contains(res.Content, want) {
			t.Errorf("expected glob result to contain %q, got %q", want, res.Content)
		}
	}
	if strings.Contains(res.Content, "notes.txt") {
		t.Errorf("glob result should not contain non-matching file: %q", res.Content)
	}
}

func TestGrepTool(t *testing.T) {
	ctx := newTestContext(t)
	if err := ctx.Backend.Write("/stage/a.go", []byte("func Foo() {}\nfunc bar() {}\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := ctx.Backend.Write("/stage/b.go", []byte("func Baz() {}\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	tool := NewGrepTool(ctx)

	input, _ := json.Marshal(map[string]any{"pattern": "^func [A-Z]"})
	res, err := tool.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", res.Content)
	}
	if !strings.Contains(res.Content, "a.go:1:") || !strings.Contains(res.Content, "b.go:1:") {
		t.Errorf("expected matches from both files, got %q", res.Content)
	}
	if strings.Contains(res.Content, "bar") {
		t.Errorf("lowercase func should not match, got %q", res.Content)
	}
}
