package dag

import (
	"fmt"
	"sort"

	"github.com/argus-sh/argus/internal/engineerr"
)

// ValidationResult is the total report Validate produces: every
// violation found, not just the first.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Validate checks a Definition for cycles, orphan parent references,
// duplicate ids, empty produces, and the existence of at least one
// root, using Kahn's algorithm for cycle detection.
func Validate(def *Definition) ValidationResult {
	var errs []string

	seen := make(map[string]int, len(def.Stages))
	for _, s := range def.Stages {
		seen[s.ID]++
	}
	for id, count := range seen {
		if count > 1 {
			errs = append(errs, fmt.Sprintf("duplicate stage id %q", id))
		}
	}

	for _, s := range def.Stages {
		if len(s.Produces) == 0 {
			errs = append(errs, fmt.Sprintf("stage %q has empty produces", s.ID))
		}
		for _, p := range s.Parents {
			if _, ok := def.ByID[p]; !ok {
				errs = append(errs, fmt.Sprintf("stage %q references unknown parent %q", s.ID, p))
			}
		}
	}

	if len(def.Roots()) == 0 {
		errs = append(errs, "no root stage: every stage declares a previous")
	}

	if cyc := findCycle(def); len(cyc) > 0 {
		errs = append(errs, fmt.Sprintf("cycle detected: %v", cyc))
	}

	sort.Strings(errs)
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// ValidateErr is Validate wrapped into an engineerr.Error for callers
// that want to treat a failed validation as a Go error.
func ValidateErr(def *Definition) error {
	res := Validate(def)
	if res.Valid {
		return nil
	}
	return engineerr.Validation(res.Errors)
}

// findCycle runs Kahn's algorithm and returns the ids that could not
// be topologically ordered (i.e. are part of a cycle, or depend on
// one), or nil if the graph is acyclic.
func findCycle(def *Definition) []string {
	indegree := make(map[string]int, len(def.Stages))
	for _, s := range def.Stages {
		if _, ok := indegree[s.ID]; !ok {
			indegree[s.ID] = 0
		}
		for _, p := range s.Parents {
			if _, ok := def.ByID[p]; ok {
				indegree[s.ID]++
			}
		}
	}

	var queue []string
	for _, s := range def.Stages {
		if indegree[s.ID] == 0 {
			queue = append(queue, s.ID)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, child := range def.Children(id) {
			indegree[child.ID]--
			if indegree[child.ID] == 0 {
				queue = append(queue, child.ID)
			}
		}
	}

	if visited == len(def.Stages) {
		return nil
	}

	var remaining []string
	for _, s := range def.Stages {
		if indegree[s.ID] > 0 {
			remaining = append(remaining, s.ID)
		}
	}
	sort.Strings(remaining)
	return remaining
}

// TopoOrder returns the stages of def in a topological order: every
// edge's source precedes its destination. Ties are broken by manifest
// insertion order: the queue starts with roots in manifest order, and
// newly-ready stages are appended to the queue in the manifest order
// their last pending parent was discovered.
func TopoOrder(def *Definition) []*Stage {
	indegree := make(map[string]int, len(def.Stages))
	for _, s := range def.Stages {
		indegree[s.ID] = len(validParents(def, s))
	}

	var queue []*Stage
	for _, s := range def.Stages {
		if indegree[s.ID] == 0 {
			queue = append(queue, s)
		}
	}

	queued := make(map[string]bool, len(def.Stages))
	for _, s := range queue {
		queued[s.ID] = true
	}

	var order []*Stage
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		order = append(order, s)
		for _, child := range def.Children(s.ID) {
			indegree[child.ID]--
			if indegree[child.ID] == 0 && !queued[child.ID] {
				queued[child.ID] = true
				queue = append(queue, child)
			}
		}
	}

	if len(order) != len(def.Stages) {
		// Residual cycle: append whatever is left in manifest order so
		// callers get a total (if not meaningful) order rather than an
		// incomplete one. Validate should have already rejected this
		// definition.
		for _, s := range def.Stages {
			if !queued[s.ID] {
				order = append(order, s)
			}
		}
	}

	return order
}

func validParents(def *Definition, s *Stage) []string {
	var out []string
	for _, p := range s.Parents {
		if _, ok := def.ByID[p]; ok {
			out = append(out, p)
		}
	}
	return out
}
