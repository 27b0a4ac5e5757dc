package store

import (
	"encoding/json"

	"github.com/argus-sh/argus/internal/engineerr"
)

// JoinContent is the engine-materialized record at a multi-parent
// convergence point.
type JoinContent struct {
	Parents     []string          `json:"parents"`
	ParentPaths map[string]string `json:"parent_paths"`
}

// MaterializeJoin creates the synthetic join directory for a stage
// with more than one parent. parentPaths maps every parent id to its
// already-materialized StagePath. The join nests under the path of
// the last-declared parent, its conventional nesting point.
//
// The join is always materialized, even when one parent is an
// ancestor of another: callers rely on its existence as a stable
// anchor regardless of parent topology.
//
// It returns the StagePath of the join directory itself, so the
// engine can nest the downstream stage under it.
func (st *Store) MaterializeJoin(sessionID string, parents []string, parentPaths map[string]StagePath) (StagePath, error) {
	nestUnder := parentPaths[parents[len(parents)-1]]
	joinPath := nestUnder.Child(joinDirName(parents))

	content := JoinContent{
		Parents:     append([]string(nil), parents...),
		ParentPaths: make(map[string]string, len(parents)),
	}
	for _, p := range parents {
		content.ParentPaths[p] = parentPaths[p].String()
	}

	raw, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return nil, engineerr.Storage("encode join content", err)
	}
	joinMetaPath := join(joinPath.DirPath(sessionID), "meta", "join.json")
	if err := st.backend.Write(joinMetaPath, raw); err != nil {
		return nil, engineerr.Storage("write join content", err)
	}

	for _, p := range parents {
		linkPath := join(joinPath.DirPath(sessionID), p)
		target := parentPaths[p].DirPath(sessionID)
		if err := st.backend.Link(linkPath, target); err != nil {
			return nil, engineerr.Storage("link join parent", err)
		}
	}

	return joinPath, nil
}

// ReadJoin loads the join.json record at joinPath, or nil if the join
// has not been materialized.
func (st *Store) ReadJoin(sessionID string, joinPath StagePath) (*JoinContent, error) {
	p := join(joinPath.DirPath(sessionID), "meta", "join.json")
	if !st.backend.Exists(p) {
		return nil, nil
	}
	raw, err := st.backend.Read(p)
	if err != nil {
		return nil, engineerr.Storage("read join content", err)
	}
	var content JoinContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, engineerr.Storage("decode join content", err)
	}
	return &content, nil
}
