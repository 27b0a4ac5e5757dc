package dag

import "testing"

const linearManifest = `
name: test-pipeline
persona: researcher
version: 1.0.0
stages:
  - id: alpha
    name: Alpha
    previous: null
    produces: [alpha.out]
    commands: [alpha]
  - id: beta
    name: Beta
    previous: alpha
    produces: [beta.out]
    commands: [beta]
`

func TestParseManifestLinear(t *testing.T) {
	def, err := ParseManifest([]byte(linearManifest), nil)
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if len(def.Stages) != 2 {
		t.Fatalf("got %d stages", len(def.Stages))
	}
	beta := def.ByID["beta"]
	if len(beta.Parents) != 1 || beta.Parents[0] != "alpha" {
		t.Fatalf("beta parents = %v", beta.Parents)
	}
	if len(def.Roots()) != 1 || def.Roots()[0].ID != "alpha" {
		t.Fatalf("roots = %v", def.Roots())
	}
}

func TestParseManifestMissingPersona(t *testing.T) {
	text := `
name: test
version: 1.0.0
stages:
  - id: a
    previous: null
    produces: [x]
`
	if _, err := ParseManifest([]byte(text), nil); err == nil {
		t.Fatal("expected error for missing persona")
	}
}

func TestParseManifestEmptyProduces(t *testing.T) {
	text := `
name: test
persona: p
version: 1.0.0
stages:
  - id: a
    previous: null
    produces: []
`
	if _, err := ParseManifest([]byte(text), nil); err == nil {
		t.Fatal("expected error for empty produces")
	}
}

func TestParseManifestDuplicateID(t *testing.T) {
	text := `
name: test
persona: p
version: 1.0.0
stages:
  - id: a
    previous: null
    produces: [x]
  - id: a
    previous: null
    produces: [y]
`
	if _, err := ParseManifest([]byte(text), nil); err == nil {
		t.Fatal("expected error for duplicate id")
	}
}

func TestParseManifestUnknownHandler(t *testing.T) {
	text := `
name: test
persona: p
version: 1.0.0
stages:
  - id: a
    previous: null
    produces: [x]
    handler: nope
`
	handlers := RegisteredHandlers{"real": true}
	if _, err := ParseManifest([]byte(text), handlers); err == nil {
		t.Fatal("expected error for unknown handler")
	}
}

func TestParseManifestUnsafeHandler(t *testing.T) {
	text := `
name: test
persona: p
version: 1.0.0
stages:
  - id: a
    previous: null
    produces: [x]
    handler: "../etc/passwd"
`
	if _, err := ParseManifest([]byte(text), nil); err == nil {
		t.Fatal("expected error for unsafe handler reference")
	}
}

func TestParseManifestJoinParents(t *testing.T) {
	text := `
name: test
persona: p
version: 1.0.0
stages:
  - id: search
    previous: null
    produces: [x]
  - id: gather
    previous: search
    produces: [x]
  - id: rename
    previous: search
    optional: true
    produces: [x]
  - id: harmonize
    previous: [gather, rename]
    produces: [x]
`
	def, err := ParseManifest([]byte(text), nil)
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	h := def.ByID["harmonize"]
	if len(h.Parents) != 2 {
		t.Fatalf("harmonize parents = %v", h.Parents)
	}
	if !h.IsJoin() {
		t.Fatal("expected harmonize to be a join")
	}
}

func TestHeaderSemVer(t *testing.T) {
	def, err := ParseManifest([]byte(linearManifest), nil)
	if err != nil {
		t.Fatal(err)
	}
	v, err := def.Header.SemVer()
	if err != nil {
		t.Fatalf("SemVer: %v", err)
	}
	if v.String() != "1.0.0" {
		t.Fatalf("got %s", v.String())
	}
}
