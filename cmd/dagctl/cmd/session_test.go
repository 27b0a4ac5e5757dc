package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argus-sh/argus/internal/config"
)

const testManifest = `
name: test-pipeline
persona: researcher
version: 1.0.0
stages:
  - id: alpha
    name: Alpha
    previous: null
    produces: [alpha.out]
    commands: [alpha]
`

func withManifest(t *testing.T, text string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))

	prevManifest, prevCfg, prevRoot := manifestPath, cfg, repoRoot
	manifestPath = path
	cfg = &config.Config{BackendKind: "memory"}
	repoRoot = dir
	t.Cleanup(func() { manifestPath, cfg, repoRoot = prevManifest, prevCfg, prevRoot })
}

func TestNewSessionCommandCreatesSession(t *testing.T) {
	withManifest(t, testManifest)

	out := captureStdout(t, func() {
		require.NoError(t, newCmd.RunE(newCmd, nil))
	})

	assert.Contains(t, out, "session created")
}

func TestNewSessionCommandUsesOverridePersona(t *testing.T) {
	withManifest(t, testManifest)
	prevPersona := newSessionPersona
	newSessionPersona = "override-persona"
	t.Cleanup(func() { newSessionPersona = prevPersona })

	out := captureStdout(t, func() {
		require.NoError(t, newCmd.RunE(newCmd, nil))
	})

	assert.Contains(t, out, "session created")
}

func TestSessionsCommandListsNone(t *testing.T) {
	withManifest(t, testManifest)

	out := captureStdout(t, func() {
		require.NoError(t, sessionsCmd.RunE(sessionsCmd, nil))
	})

	assert.Contains(t, out, "no sessions")
}

func TestSessionsCommandListsCreatedSession(t *testing.T) {
	withManifest(t, testManifest)
	// Every buildEngine call gets a fresh memory backend, so the two
	// commands share an fs backend under the temp dir instead.
	cfg = &config.Config{BackendKind: "fs", SessionsRoot: "sessions"}

	require.NoError(t, newCmd.RunE(newCmd, nil))

	out := captureStdout(t, func() {
		require.NoError(t, sessionsCmd.RunE(sessionsCmd, nil))
	})

	assert.Contains(t, out, "researcher")
}

func TestPluginsCommandNoHandlersRegistered(t *testing.T) {
	withManifest(t, testManifest)

	out := captureStdout(t, func() {
		require.NoError(t, pluginsCmd.RunE(pluginsCmd, nil))
	})

	assert.Contains(t, out, "no handlers registered")
}
