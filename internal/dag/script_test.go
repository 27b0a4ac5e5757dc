package dag

import "testing"

func TestParseScriptOverlay(t *testing.T) {
	manifest := mustParse(t, linearManifest)

	scriptText := `
name: test-run
persona: researcher
manifest: test-pipeline
stages:
  - id: beta
    skip: true
    parameters:
      note: overridden
`
	def, err := ParseScript([]byte(scriptText), manifest)
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}

	beta := def.ByID["beta"]
	if !IsScriptSkipped(beta) {
		t.Fatal("expected beta to be script-skipped")
	}
	if beta.Parameters["note"] != "overridden" {
		t.Fatalf("got parameters %v", beta.Parameters)
	}

	// manifest stages untouched
	if IsScriptSkipped(manifest.ByID["beta"]) {
		t.Fatal("script overlay must not mutate the source manifest")
	}

	alpha := def.ByID["alpha"]
	if IsScriptSkipped(alpha) {
		t.Fatal("alpha was not mentioned in the overlay, must retain manifest default")
	}
}

func TestParseScriptUnknownStageReference(t *testing.T) {
	manifest := mustParse(t, linearManifest)
	scriptText := `
name: test-run
persona: researcher
manifest: test-pipeline
stages:
  - id: nonexistent
    skip: true
`
	if _, err := ParseScript([]byte(scriptText), manifest); err == nil {
		t.Fatal("expected error for script stage reference absent from manifest")
	}
}

func TestParseScriptMissingManifestField(t *testing.T) {
	manifest := mustParse(t, linearManifest)
	scriptText := `
name: test-run
persona: researcher
`
	if _, err := ParseScript([]byte(scriptText), manifest); err == nil {
		t.Fatal("expected error for missing manifest reference")
	}
}
