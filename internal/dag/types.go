// Package dag implements the graph layer: manifest and script parsing,
// DAG validation, and topological/readiness resolution.
package dag

import "github.com/Masterminds/semver/v3"

// SkipWarning is the record a stage carries describing how the engine
// should word and budget an auto-decline of that optional stage.
type SkipWarning struct {
	Short       string `yaml:"short" json:"short"`
	Reason      string `yaml:"reason" json:"reason"`
	MaxWarnings int    `yaml:"max_warnings" json:"max_warnings"`
}

// Stage is a single DAG node: the unit of work the engine can dispatch
// a command to.
type Stage struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	// Phase is an optional grouping tag reported in Progress.Phase.
	// Phase-jump detection does not consult it: any global match to a
	// non-current stage is gated the same way, phase or no phase.
	Phase string `yaml:"phase,omitempty"`
	// Previous holds the raw previous field as parsed (nil, a single
	// id, or a sequence); Parents is the normalized, ordered form
	// computed from it.
	Previous any      `yaml:"previous"`
	Parents  []string `yaml:"-"`
	Optional bool     `yaml:"optional,omitempty"`
	Produces []string `yaml:"produces"`
	// Parameters is intentionally opaque to the engine; it is handed
	// to the plugin verbatim.
	Parameters  map[string]any `yaml:"parameters,omitempty"`
	Instruction string         `yaml:"instruction,omitempty"`
	Commands    []string       `yaml:"commands,omitempty"`
	Handler     string         `yaml:"handler,omitempty"`
	SkipWarning *SkipWarning   `yaml:"skip_warning,omitempty"`
}

// IsRoot reports whether this stage has no parents.
func (s *Stage) IsRoot() bool { return len(s.Parents) == 0 }

// IsJoin reports whether this stage converges more than one parent.
func (s *Stage) IsJoin() bool { return len(s.Parents) > 1 }

// Header is the manifest/script document header.
type Header struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Category    string `yaml:"category,omitempty"`
	Persona     string `yaml:"persona"`
	Version     string `yaml:"version"`
	Locked      bool   `yaml:"locked,omitempty"`
	Authors     []string `yaml:"authors,omitempty"`
}

// SemVer parses Header.Version as a semantic version on demand.
// Validate does not check the version; an unparseable one surfaces
// only as this method's error.
func (h Header) SemVer() (*semver.Version, error) {
	return semver.NewVersion(h.Version)
}

// Definition is a fully parsed and normalized DAG: a workflow
// manifest, or a manifest with a script overlay applied.
type Definition struct {
	Header Header
	// Stages preserves manifest insertion order.
	Stages []*Stage
	// ByID indexes Stages by id for O(1) lookup.
	ByID map[string]*Stage
}

// Roots returns the stages with no parents, in insertion order.
func (d *Definition) Roots() []*Stage {
	var out []*Stage
	for _, s := range d.Stages {
		if s.IsRoot() {
			out = append(out, s)
		}
	}
	return out
}

// Children returns the stages that list id as a parent, in insertion
// order.
func (d *Definition) Children(id string) []*Stage {
	var out []*Stage
	for _, s := range d.Stages {
		for _, p := range s.Parents {
			if p == id {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// Terminals returns the stages with no children.
func (d *Definition) Terminals() []*Stage {
	var out []*Stage
	for _, s := range d.Stages {
		if len(d.Children(s.ID)) == 0 {
			out = append(out, s)
		}
	}
	return out
}
