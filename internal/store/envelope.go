package store

import (
	"encoding/json"
	"time"

	"github.com/argus-sh/argus/internal/dag"
	"github.com/argus-sh/argus/internal/engineerr"
	"github.com/argus-sh/argus/internal/fingerprint"
	"github.com/argus-sh/argus/internal/storage"
)

// Content is the tagged-variant payload of an envelope: either regular
// artifact data, or a skip sentinel recording that the stage was
// auto-declined. Exactly one of Data or Reason is meaningful, selected
// by Skipped.
type Content struct {
	Skipped bool            `json:"skipped,omitempty"`
	Reason  string          `json:"reason,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// RegularContent wraps ordinary stage output.
func RegularContent(data []byte) Content { return Content{Data: data} }

// SkipContent builds the sentinel written when a stage is auto-declined
// in favor of a downstream join.
func SkipContent(reason string) Content { return Content{Skipped: true, Reason: reason} }

// IsSkip reports whether this content is a skip sentinel.
func (c Content) IsSkip() bool { return c.Skipped }

// Envelope is the JSON document materialized at a stage's
// meta/<stageId>.json.
type Envelope struct {
	Stage              string                    `json:"stage"`
	Timestamp          time.Time                 `json:"timestamp"`
	ParametersUsed     map[string]any            `json:"parameters_used,omitempty"`
	Content            Content                   `json:"content"`
	Materialized       []string                  `json:"materialized,omitempty"`
	Fingerprint        fingerprint.FP            `json:"_fingerprint"`
	ParentFingerprints map[string]fingerprint.FP `json:"_parent_fingerprints,omitempty"`
}

// WriteEnvelope computes the envelope's fingerprint from content and
// parentFingerprints, serializes it at path's meta/<stageID>.json, and
// records the path so future lookups (including dag.EnvelopeSource)
// can find it without the caller repeating the traversal.
//
// Overwriting an existing envelope is allowed: it represents
// re-execution of a stage.
func (st *Store) WriteEnvelope(sessionID string, path StagePath, stageID string, parametersUsed map[string]any, content Content, parentFingerprints map[string]fingerprint.FP, materialized []string) (*Envelope, error) {
	contentBytes, err := json.Marshal(content)
	if err != nil {
		return nil, engineerr.Storage("encode envelope content", err)
	}

	env := &Envelope{
		Stage:              stageID,
		Timestamp:          nowFunc(),
		ParametersUsed:     parametersUsed,
		Content:            content,
		Materialized:       materialized,
		Fingerprint:        st.hasher.Hash(contentBytes, parentFingerprints),
		ParentFingerprints: parentFingerprints,
	}

	raw, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, engineerr.Storage("encode envelope", err)
	}
	if err := st.backend.Write(path.metaPath(sessionID, stageID), raw); err != nil {
		return nil, engineerr.Storage("write envelope", err)
	}

	if err := st.recordStagePath(sessionID, stageID, path); err != nil {
		return nil, err
	}
	return env, nil
}

// ReadEnvelope returns the envelope materialized for stageID in
// sessionID, or ok=false if the stage has never been materialized.
func (st *Store) ReadEnvelope(sessionID, stageID string) (env *Envelope, ok bool, err error) {
	idx, err := st.loadPathIndex(sessionID)
	if err != nil {
		return nil, false, err
	}
	path, found := idx[stageID]
	if !found {
		return nil, false, nil
	}

	raw, err := st.backend.Read(StagePath(path).metaPath(sessionID, stageID))
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, engineerr.Storage("read envelope", err)
	}
	var e Envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, false, engineerr.Storage("decode envelope", err)
	}
	return &e, true, nil
}

// EnvelopeExists is a fast existence check.
func (st *Store) EnvelopeExists(sessionID, stageID string) (bool, error) {
	_, ok, err := st.ReadEnvelope(sessionID, stageID)
	return ok, err
}

// SessionSource adapts a single session to dag.EnvelopeSource, letting
// dag.ComputePosition read directly from a live session.
type SessionSource struct {
	store     *Store
	sessionID string
}

// Source returns the dag.EnvelopeSource for sessionID.
func (st *Store) Source(sessionID string) dag.EnvelopeSource {
	return &SessionSource{store: st, sessionID: sessionID}
}

// Lookup implements dag.EnvelopeSource.
func (s *SessionSource) Lookup(stageID string) (dag.EnvelopeInfo, error) {
	env, ok, err := s.store.ReadEnvelope(s.sessionID, stageID)
	if err != nil {
		return dag.EnvelopeInfo{}, err
	}
	if !ok {
		return dag.EnvelopeInfo{Exists: false}, nil
	}
	return dag.EnvelopeInfo{
		Exists:             true,
		Fingerprint:        env.Fingerprint,
		ParentFingerprints: env.ParentFingerprints,
	}, nil
}

// --- stage path index ---
//
// A session's stages materialize at positions only known once the
// engine has walked the DAG and inserted any join directories along
// the way. recordStagePath/loadPathIndex persist that mapping so a
// later Lookup (or a second process resuming the session) can find a
// stage's envelope without re-deriving its nesting.

func pathIndexPath(sessionID string) string {
	return join(sessionDir(sessionID), "paths.json")
}

func (st *Store) loadPathIndex(sessionID string) (map[string][]string, error) {
	raw, err := st.backend.Read(pathIndexPath(sessionID))
	if err != nil {
		if err == storage.ErrNotFound {
			return map[string][]string{}, nil
		}
		return nil, engineerr.Storage("read path index", err)
	}
	idx := map[string][]string{}
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil, engineerr.Storage("decode path index", err)
	}
	return idx, nil
}

func (st *Store) recordStagePath(sessionID, stageID string, path StagePath) error {
	idx, err := st.loadPathIndex(sessionID)
	if err != nil {
		return err
	}
	idx[stageID] = []string(path)
	raw, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return engineerr.Storage("encode path index", err)
	}
	if err := st.backend.Write(pathIndexPath(sessionID), raw); err != nil {
		return engineerr.Storage("write path index", err)
	}
	return nil
}

// StagePathOf returns the recorded StagePath for a materialized
// stage, and ok=false if it has never been materialized. The engine
// uses this to resolve where to nest a stage's children.
func (st *Store) StagePathOf(sessionID, stageID string) (StagePath, bool, error) {
	idx, err := st.loadPathIndex(sessionID)
	if err != nil {
		return nil, false, err
	}
	p, ok := idx[stageID]
	return StagePath(p), ok, nil
}
