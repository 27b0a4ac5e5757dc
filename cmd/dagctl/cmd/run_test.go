package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argus-sh/argus/internal/engine"
)

func TestRenderResponsePrintsIconAndMessage(t *testing.T) {
	out := captureStdout(t, func() {
		renderResponse(engine.Response{Message: "alpha dispatched", Success: true})
	})

	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "alpha dispatched")
}

func TestRenderResponsePrintsFailureIcon(t *testing.T) {
	out := captureStdout(t, func() {
		renderResponse(engine.Response{Message: "alpha rejected", Success: false})
	})

	assert.Contains(t, out, "✗")
	assert.Contains(t, out, "alpha rejected")
}

func TestRenderResponsePrintsUIHints(t *testing.T) {
	out := captureStdout(t, func() {
		renderResponse(engine.Response{
			Message: "alpha dispatched",
			Success: true,
			UIHints: map[string]any{"next": "beta"},
		})
	})

	assert.Contains(t, out, "next: beta")
}

func TestRunCommandRequiresSession(t *testing.T) {
	withManifest(t, testManifest)
	prevSession := sessionID
	sessionID = ""
	t.Cleanup(func() { sessionID = prevSession })

	err := runCmd.RunE(runCmd, []string{"alpha"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--session is required")
}

func TestRunCommandNonInteractiveDispatchesAndPrints(t *testing.T) {
	withManifest(t, testManifest)

	e, cleanup, err := buildEngine()
	require.NoError(t, err)
	defer cleanup()
	sess, err := e.Store.SessionCreate("researcher", "1.0.0")
	require.NoError(t, err)

	prevSession := sessionID
	sessionID = sess.ID
	t.Cleanup(func() { sessionID = prevSession })

	out := captureStdout(t, func() {
		err := runCmd.RunE(runCmd, []string{"alpha"})
		require.NoError(t, err)
	})

	// testManifest's stage names no handler, so the dispatch comes back
	// as an error response and renders with the failure icon.
	assert.Contains(t, out, "✗")
}
