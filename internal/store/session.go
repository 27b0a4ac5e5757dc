package store

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/argus-sh/argus/internal/engineerr"
	"github.com/argus-sh/argus/internal/storage"
	"github.com/argus-sh/argus/internal/util"
)

// Session is the persisted record of one execution of a workflow,
// rooted at a durable tree.
type Session struct {
	ID              string    `json:"id"`
	Persona         string    `json:"persona"`
	ManifestVersion string    `json:"manifestVersion"`
	Created         time.Time `json:"created"`
	LastActive      time.Time `json:"lastActive"`
	RootPath        string    `json:"rootPath"`
}

// sessionIndex is the side-index Store consults for fast lastActive
// ordering (see index.go's SQLiteIndex). It is advisory: Store always
// treats session.json as the source of truth and repairs the index
// when the two disagree.
type sessionIndex interface {
	Upsert(s Session) error
	List(persona string) ([]Session, error)
	Remove(id string) error
}

// SessionCreate materializes a new session.json under a root named by
// a freshly generated random id and returns the session record.
func (st *Store) SessionCreate(persona, manifestVersion string) (*Session, error) {
	id := util.NewID()
	now := nowFunc()
	sess := &Session{
		ID:              id,
		Persona:         persona,
		ManifestVersion: manifestVersion,
		Created:         now,
		LastActive:      now,
		RootPath:        sessionDataRoot(id),
	}
	if err := st.writeSession(sess); err != nil {
		return nil, err
	}
	if st.index != nil {
		if err := st.index.Upsert(*sess); err != nil {
			return nil, engineerr.Storage("session index upsert", err)
		}
	}
	return sess, nil
}

// SessionResume loads session id, refreshes lastActive, and persists
// the refresh.
func (st *Store) SessionResume(id string) (*Session, error) {
	sess, err := st.readSession(id)
	if err != nil {
		return nil, err
	}
	sess.LastActive = nowFunc()
	if err := st.writeSession(sess); err != nil {
		return nil, err
	}
	if st.index != nil {
		if err := st.index.Upsert(*sess); err != nil {
			return nil, engineerr.Storage("session index upsert", err)
		}
	}
	return sess, nil
}

// SessionsList returns every session for persona ordered by
// lastActive descending. When a side-index is wired it is consulted
// first; any session.json missing from the index, or any indexed
// session whose tree has since vanished, triggers a full rescan
// fallback so the index can never silently diverge from the backend.
func (st *Store) SessionsList(persona string) ([]Session, error) {
	if st.index != nil {
		indexed, err := st.index.List(persona)
		if err == nil {
			if ok, err := st.indexIsConsistent(persona, indexed); err == nil && ok {
				return indexed, nil
			}
		}
	}
	return st.rescanSessions(persona)
}

// indexIsConsistent reports whether indexed matches what a rescan of
// the backend would produce, by comparing ids only — cheap enough to
// run on every list call, and it's the only way to notice an index
// that has drifted from the backend written by another process.
func (st *Store) indexIsConsistent(persona string, indexed []Session) (bool, error) {
	actual, err := st.rescanSessions(persona)
	if err != nil {
		return false, err
	}
	if len(actual) != len(indexed) {
		return false, nil
	}
	seen := make(map[string]bool, len(indexed))
	for _, s := range indexed {
		seen[s.ID] = true
	}
	for _, s := range actual {
		if !seen[s.ID] {
			return false, nil
		}
	}
	return true, nil
}

func (st *Store) rescanSessions(persona string) ([]Session, error) {
	ids, err := st.backend.ListChildren(sessionsRootPrefix)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, nil
		}
		return nil, engineerr.Storage("list sessions", err)
	}

	sessions := make([]Session, 0, len(ids))
	for _, id := range ids {
		sess, err := st.readSession(id)
		if err != nil {
			continue // a partially-written or foreign directory; skip it
		}
		if persona != "" && sess.Persona != persona {
			continue
		}
		sessions = append(sessions, *sess)
		if st.index != nil {
			_ = st.index.Upsert(*sess)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastActive.After(sessions[j].LastActive)
	})
	return sessions, nil
}

func (st *Store) readSession(id string) (*Session, error) {
	raw, err := st.backend.Read(sessionMetaPath(id))
	if err != nil {
		return nil, engineerr.Storage("read session", err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, engineerr.Storage("decode session", err)
	}
	return &sess, nil
}

func (st *Store) writeSession(sess *Session) error {
	raw, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return engineerr.Storage("encode session", err)
	}
	if err := st.backend.Write(sessionMetaPath(sess.ID), raw); err != nil {
		return engineerr.Storage("write session", err)
	}
	return nil
}

// nowFunc is overridden in tests for deterministic lastActive
// comparisons.
var nowFunc = time.Now
