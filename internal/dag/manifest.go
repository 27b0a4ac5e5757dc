package dag

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/argus-sh/argus/internal/engineerr"
)

// rawStage mirrors Stage's YAML shape before Previous is normalized.
type rawStage struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Phase       string         `yaml:"phase,omitempty"`
	Previous    any            `yaml:"previous"`
	Optional    bool           `yaml:"optional,omitempty"`
	Produces    []string       `yaml:"produces"`
	Parameters  map[string]any `yaml:"parameters,omitempty"`
	Instruction string         `yaml:"instruction,omitempty"`
	Commands    []string       `yaml:"commands,omitempty"`
	Handler     string         `yaml:"handler,omitempty"`
	SkipWarning *SkipWarning   `yaml:"skip_warning,omitempty"`
}

type rawManifest struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Category    string   `yaml:"category,omitempty"`
	Persona     string   `yaml:"persona"`
	Version     string   `yaml:"version"`
	Locked      bool     `yaml:"locked,omitempty"`
	Authors     []string `yaml:"authors,omitempty"`
	Stages      []rawStage `yaml:"stages"`
}

// RegisteredHandlers is consulted by ParseManifest to reject a
// manifest referencing an unregistered plugin handler id at parse
// time. A nil set skips the check (useful for parsing manifests
// before a plugin registry exists, e.g. static validation tooling).
type RegisteredHandlers map[string]bool

// ParseManifest parses the indentation-based manifest format of spec
// §6 and normalizes it into a Definition. It does not run Validate;
// callers must call Validate separately (parse failures and
// validation failures are deliberately distinct error kinds).
func ParseManifest(text []byte, handlers RegisteredHandlers) (*Definition, error) {
	var raw rawManifest
	if err := yaml.Unmarshal(text, &raw); err != nil {
		return nil, engineerr.Parse("manifest: invalid YAML: %v", err)
	}

	if raw.Persona == "" {
		return nil, engineerr.Parse("manifest: missing required field %q", "persona")
	}
	if raw.Version == "" {
		return nil, engineerr.Parse("manifest: missing required field %q", "version")
	}
	if raw.Name == "" {
		return nil, engineerr.Parse("manifest: missing required field %q", "name")
	}
	if len(raw.Stages) == 0 {
		return nil, engineerr.Parse("manifest: must declare at least one stage")
	}

	def := &Definition{
		Header: Header{
			Name:        raw.Name,
			Description: raw.Description,
			Category:    raw.Category,
			Persona:     raw.Persona,
			Version:     raw.Version,
			Locked:      raw.Locked,
			Authors:     raw.Authors,
		},
		ByID: make(map[string]*Stage, len(raw.Stages)),
	}

	for _, rs := range raw.Stages {
		if rs.ID == "" {
			return nil, engineerr.Parse("manifest: stage missing required field %q", "id")
		}
		if _, dup := def.ByID[rs.ID]; dup {
			return nil, engineerr.Parse("manifest: duplicate stage id %q", rs.ID)
		}
		if len(rs.Produces) == 0 {
			return nil, engineerr.Parse("manifest: stage %q must declare a non-empty produces list", rs.ID)
		}
		if rs.Handler != "" {
			if err := validateHandlerRef(rs.Handler); err != nil {
				return nil, engineerr.Parse("manifest: stage %q: %v", rs.ID, err)
			}
			if handlers != nil && !handlers[rs.Handler] {
				return nil, engineerr.Parse("manifest: stage %q references unknown handler %q", rs.ID, rs.Handler)
			}
		}

		parents, err := normalizePrevious(rs.Previous)
		if err != nil {
			return nil, engineerr.Parse("manifest: stage %q: %v", rs.ID, err)
		}

		stage := &Stage{
			ID:          rs.ID,
			Name:        rs.Name,
			Phase:       rs.Phase,
			Previous:    rs.Previous,
			Parents:     parents,
			Optional:    rs.Optional,
			Produces:    rs.Produces,
			Parameters:  rs.Parameters,
			Instruction: rs.Instruction,
			Commands:    rs.Commands,
			Handler:     rs.Handler,
			SkipWarning: rs.SkipWarning,
		}
		def.Stages = append(def.Stages, stage)
		def.ByID[stage.ID] = stage
	}

	return def, nil
}

// normalizePrevious coerces the YAML previous field — null, a bare
// id, or a sequence of ids — into an ordered parent id list.
func normalizePrevious(previous any) ([]string, error) {
	switch v := previous.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("previous: expected a string id, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	case []string:
		return v, nil
	default:
		return nil, fmt.Errorf("previous: unsupported shape %T", previous)
	}
}

// validateHandlerRef rejects handler ids shaped like a path, closing
// off path-traversal-style handler references before they ever reach
// registry lookup (see SPEC_FULL.md "Supplemented features").
func validateHandlerRef(handler string) error {
	if strings.ContainsAny(handler, "/\\") || strings.Contains(handler, "..") {
		return fmt.Errorf("unsafe handler reference %q", handler)
	}
	return nil
}
