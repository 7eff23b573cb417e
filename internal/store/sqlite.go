package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

var ErrSessionNotFound = errors.New("session not found")

// SQLiteStore persists sessions one row per session id. The full entity,
// turns and provenance included, lives in a JSON document column and is
// overwritten whole on every save; SQLite's statement atomicity makes the
// frequent rewrites safe.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS sessions (
        id TEXT PRIMARY KEY, -- creation-time derived, newest sorts last
        title TEXT NOT NULL,
        created_at DATETIME NOT NULL,
        doc TEXT NOT NULL -- full Session entity as JSON
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// SaveSession upserts the whole serialized session under its id.
func (s *SQLiteStore) SaveSession(session *Session) error {
	doc, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", session.ID, err)
	}

	stmt, err := s.db.Prepare(`
        INSERT INTO sessions (id, title, created_at, doc) VALUES (?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET title = excluded.title, doc = excluded.doc
    `)
	if err != nil {
		return fmt.Errorf("failed to prepare session upsert: %w", err)
	}
	defer stmt.Close()

	if _, err := stmt.Exec(session.ID, session.Title, session.CreatedAt, string(doc)); err != nil {
		return fmt.Errorf("failed to execute session upsert: %w", err)
	}
	return nil
}

// LoadSession deserializes the stored document back into a Session. Fields
// absent from older documents come back as zero values, i.e. zero counters
// and default filters.
func (s *SQLiteStore) LoadSession(id string) (*Session, error) {
	var doc string
	err := s.db.QueryRow("SELECT doc FROM sessions WHERE id = ?", id).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to query session %s: %w", id, err)
	}

	var session Session
	if err := json.Unmarshal([]byte(doc), &session); err != nil {
		return nil, fmt.Errorf("failed to parse stored session %s: %w", id, err)
	}
	return &session, nil
}

// ListSessions returns all sessions newest-first by id. Only the scalar
// columns are read here, so a session whose document has gone bad still
// shows up in the list and fails only when loaded.
func (s *SQLiteStore) ListSessions() ([]SessionSummary, error) {
	rows, err := s.db.Query("SELECT id, title, created_at FROM sessions ORDER BY id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionSummary
	for rows.Next() {
		var summary SessionSummary
		if err := rows.Scan(&summary.ID, &summary.Title, &summary.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, summary)
	}
	return sessions, rows.Err()
}

// DeleteSession removes the durable record unconditionally.
func (s *SQLiteStore) DeleteSession(id string) error {
	res, err := s.db.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}
