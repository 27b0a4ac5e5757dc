package dag

import (
	"github.com/goccy/go-yaml"

	"github.com/argus-sh/argus/internal/engineerr"
)

// skipSentinelKey is the parameter key the engine looks for to decide
// a stage was script-pre-declared skipped.
const skipSentinelKey = "__skip__"

// rawScriptStage is one entry in a script's per-stage override list.
type rawScriptStage struct {
	ID         string         `yaml:"id"`
	Parameters map[string]any `yaml:"parameters,omitempty"`
	Skip       bool           `yaml:"skip,omitempty"`
}

type rawScript struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description,omitempty"`
	Category    string           `yaml:"category,omitempty"`
	Persona     string           `yaml:"persona"`
	Version     string           `yaml:"version"`
	Locked      bool             `yaml:"locked,omitempty"`
	Authors     []string         `yaml:"authors,omitempty"`
	Manifest    string           `yaml:"manifest"`
	Stages      []rawScriptStage `yaml:"stages,omitempty"`
}

// ParseScript parses a script overlay document and applies it to the
// given manifest Definition, producing a new,
// independent Definition: the manifest's nodes are cloned, and each
// referenced stage is merged with its override. Stages not mentioned
// retain manifest defaults. manifest is expected to already have
// passed ParseManifest/Validate.
func ParseScript(text []byte, manifest *Definition) (*Definition, error) {
	var raw rawScript
	if err := yaml.Unmarshal(text, &raw); err != nil {
		return nil, engineerr.Parse("script: invalid YAML: %v", err)
	}
	if raw.Persona == "" {
		return nil, engineerr.Parse("script: missing required field %q", "persona")
	}
	if raw.Manifest == "" {
		return nil, engineerr.Parse("script: missing required field %q", "manifest")
	}

	def := &Definition{
		Header: Header{
			Name:        firstNonEmpty(raw.Name, manifest.Header.Name),
			Description: firstNonEmpty(raw.Description, manifest.Header.Description),
			Category:    firstNonEmpty(raw.Category, manifest.Header.Category),
			Persona:     raw.Persona,
			Version:     firstNonEmpty(raw.Version, manifest.Header.Version),
			Locked:      raw.Locked,
			Authors:     firstNonEmptySlice(raw.Authors, manifest.Header.Authors),
		},
		ByID: make(map[string]*Stage, len(manifest.Stages)),
	}

	overrides := make(map[string]rawScriptStage, len(raw.Stages))
	for _, s := range raw.Stages {
		if s.ID == "" {
			return nil, engineerr.Parse("script: stage override missing required field %q", "id")
		}
		if _, exists := manifest.ByID[s.ID]; !exists {
			return nil, engineerr.Parse("script: references stage %q absent from manifest %q", s.ID, raw.Manifest)
		}
		overrides[s.ID] = s
	}

	for _, src := range manifest.Stages {
		clone := *src
		if ov, ok := overrides[src.ID]; ok {
			if clone.Parameters == nil {
				clone.Parameters = map[string]any{}
			} else {
				clone.Parameters = cloneParams(clone.Parameters)
			}
			for k, v := range ov.Parameters {
				clone.Parameters[k] = v
			}
			if ov.Skip {
				clone.Parameters[skipSentinelKey] = true
			}
		}
		def.Stages = append(def.Stages, &clone)
		def.ByID[clone.ID] = &clone
	}

	return def, nil
}

// IsScriptSkipped reports whether a script overlay pre-declared this
// stage skipped.
func IsScriptSkipped(s *Stage) bool {
	if s.Parameters == nil {
		return false
	}
	v, ok := s.Parameters[skipSentinelKey]
	return ok && v == true
}

func cloneParams(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstNonEmptySlice(a, b []string) []string {
	if len(a) > 0 {
		return a
	}
	return b
}
