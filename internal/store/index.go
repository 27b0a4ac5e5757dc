package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// SQLiteIndex is a session side-index: a small cache of session
// metadata kept for fast lastActive-ordered listing, never the source
// of truth (session.json under the backend always is).
type SQLiteIndex struct {
	db *sql.DB
}

// NewSQLiteIndex opens (creating if necessary) a SQLite database at
// dbPath and ensures its schema exists.
func NewSQLiteIndex(dbPath string) (*SQLiteIndex, error) {
	dir := filepath.Dir(dbPath)
	// #nosec G301 - session index lives alongside other per-user cache state, not secrets
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open session index: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	idx := &SQLiteIndex{db: db}
	if err := idx.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *SQLiteIndex) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id               TEXT PRIMARY KEY,
	persona          TEXT NOT NULL,
	manifest_version TEXT NOT NULL,
	created          TEXT NOT NULL,
	last_active      TEXT NOT NULL,
	root_path        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_persona_last_active
	ON sessions(persona, last_active DESC);
`
	_, err := idx.db.Exec(schema)
	return err
}

// Upsert implements sessionIndex.
func (idx *SQLiteIndex) Upsert(s Session) error {
	const stmt = `
INSERT INTO sessions (id, persona, manifest_version, created, last_active, root_path)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	persona = excluded.persona,
	manifest_version = excluded.manifest_version,
	last_active = excluded.last_active,
	root_path = excluded.root_path;
`
	_, err := idx.db.Exec(stmt, s.ID, s.Persona, s.ManifestVersion, s.Created, s.LastActive, s.RootPath)
	return err
}

// List implements sessionIndex, returning every session for persona
// (or all sessions if persona is "") ordered by last_active descending.
func (idx *SQLiteIndex) List(persona string) ([]Session, error) {
	var rows *sql.Rows
	var err error
	if persona == "" {
		rows, err = idx.db.Query(`SELECT id, persona, manifest_version, created, last_active, root_path FROM sessions ORDER BY last_active DESC`)
	} else {
		rows, err = idx.db.Query(`SELECT id, persona, manifest_version, created, last_active, root_path FROM sessions WHERE persona = ? ORDER BY last_active DESC`, persona)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.Persona, &s.ManifestVersion, &s.Created, &s.LastActive, &s.RootPath); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Remove implements sessionIndex.
func (idx *SQLiteIndex) Remove(id string) error {
	_, err := idx.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// Close releases the underlying database connection.
func (idx *SQLiteIndex) Close() error { return idx.db.Close() }
