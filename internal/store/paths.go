package store

import (
	"sort"
	"strings"
)

// sessionsRootPrefix namespaces every session under a stable backend
// path, independent of whatever root directory the host configured for
// the underlying storage.Backend itself.
const sessionsRootPrefix = "sessions"

func sessionDir(id string) string {
	return join(sessionsRootPrefix, id)
}

func sessionMetaPath(id string) string {
	return join(sessionDir(id), "session.json")
}

func sessionDataRoot(id string) string {
	return join(sessionDir(id), "data")
}

// join concatenates backend path segments with "/", the storage
// package's path separator regardless of host OS (storage.Backend
// paths are virtual, not filesystem paths).
func join(parts ...string) string {
	nonEmpty := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, strings.Trim(p, "/"))
		}
	}
	return strings.Join(nonEmpty, "/")
}

// StagePath is the sequence of nested directory segments a stage
// materializes under, relative to a session's data root. The leaf
// segment of a stage's path is always the stage's own id; a stage
// downstream of a join nests directly under the join directory.
type StagePath []string

// String renders the path for logging/debugging.
func (p StagePath) String() string { return strings.Join(p, "/") }

// Child appends a segment, returning a new path (StagePath is never
// mutated in place; callers hold distinct paths per stage).
func (p StagePath) Child(segment string) StagePath {
	out := make(StagePath, len(p), len(p)+1)
	copy(out, p)
	return append(out, segment)
}

// DirPath resolves a StagePath to a concrete backend directory path
// under the given session's data root. Exported so plugin handlers
// can be scoped to a stage's own directory (see plugin.Context.DataDir).
func (p StagePath) DirPath(sessionID string) string {
	return join(append([]string{sessionDataRoot(sessionID)}, p...)...)
}

// metaPath resolves to the envelope file meta/<stageID>.json under
// p's directory.
func (p StagePath) metaPath(sessionID, stageID string) string {
	return join(p.DirPath(sessionID), "meta", stageID+".json")
}

// RootStagePath is the path of any DAG root: a single element, its own
// id.
func RootStagePath(stageID string) StagePath { return StagePath{stageID} }

// joinDirName builds the deterministic "_join_<p1>_<p2>_…" name,
// parent ids sorted lexicographically so that the name is stable
// regardless of declaration order.
func joinDirName(parents []string) string {
	sorted := append([]string(nil), parents...)
	sort.Strings(sorted)
	return "_join_" + strings.Join(sorted, "_")
}
