// Package sqlite provides a SQLite-backed transcript store. It persists the
// full record stream durably, so a host can replay or render a session after
// the process that ran it is gone.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hupe1980/storymesh/core"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	session_id TEXT    NOT NULL,
	position   INTEGER NOT NULL,
	round      INTEGER NOT NULL,
	actor      TEXT    NOT NULL,
	action     TEXT,
	result     TEXT    NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (session_id, position)
);
CREATE INDEX IF NOT EXISTS idx_records_session ON records (session_id);
`

// Store persists transcripts in SQLite. Append order is preserved per
// session via an explicit position column; the driver serializes writes, so
// Store is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the transcript database at path and applies the
// schema. The DSN enables WAL and a busy timeout so a rendering host can
// read while a session is still being written.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("transcript path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append adds rec to the session's transcript.
func (s *Store) Append(sessionID string, rec core.Record) error {
	var actionJSON sql.NullString
	if rec.Action != nil {
		raw, err := json.Marshal(rec.Action)
		if err != nil {
			return fmt.Errorf("marshal action: %w", err)
		}
		actionJSON = sql.NullString{String: string(raw), Valid: true}
	}
	resultJSON, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO records (session_id, position, round, actor, action, result, created_at)
		SELECT ?, COALESCE(MAX(position), -1) + 1, ?, ?, ?, ?, ?
		FROM records WHERE session_id = ?`,
		sessionID, rec.Round, rec.Actor, actionJSON, string(resultJSON), time.Now().UTC().UnixMilli(), sessionID,
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// List returns the session's records in append order.
func (s *Store) List(sessionID string) ([]core.Record, error) {
	rows, err := s.db.Query(`
		SELECT round, actor, action, result
		FROM records WHERE session_id = ? ORDER BY position`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		var (
			rec        core.Record
			actionJSON sql.NullString
			resultJSON string
		)
		if err := rows.Scan(&rec.Round, &rec.Actor, &actionJSON, &resultJSON); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if actionJSON.Valid {
			var action core.Action
			if err := json.Unmarshal([]byte(actionJSON.String), &action); err != nil {
				return nil, fmt.Errorf("unmarshal action: %w", err)
			}
			rec.Action = &action
		}
		if err := json.Unmarshal([]byte(resultJSON), &rec.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// Sessions returns the known session identifiers, sorted for stable output.
func (s *Store) Sessions() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT session_id FROM records ORDER BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}
