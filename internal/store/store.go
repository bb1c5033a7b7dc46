// Package store persists analysis results so past insights survive the
// request that produced them.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/healthgrid/govai/internal/core/insight"
)

const schema = `
CREATE TABLE IF NOT EXISTS insights (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	created_at TEXT NOT NULL,
	record     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_insights_session ON insights(session_id, created_at);
`

type Store struct {
	db *sql.DB
}

type SavedInsight struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	CreatedAt string         `json:"created_at"`
	Record    insight.Record `json:"record"`
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open insight store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize insight store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Save(ctx context.Context, sessionID string, rec insight.Record) (SavedInsight, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return SavedInsight{}, fmt.Errorf("failed to serialize insight: %w", err)
	}

	saved := SavedInsight{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Record:    rec,
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO insights (id, session_id, created_at, record) VALUES (?, ?, ?, ?)`,
		saved.ID, saved.SessionID, saved.CreatedAt, string(payload))
	if err != nil {
		return SavedInsight{}, fmt.Errorf("failed to save insight: %w", err)
	}
	return saved, nil
}

// List returns a session's insights, newest first.
func (s *Store) List(ctx context.Context, sessionID string, limit int) ([]SavedInsight, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, created_at, record FROM insights
		 WHERE session_id = ? ORDER BY created_at DESC, id LIMIT ?`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list insights: %w", err)
	}
	defer rows.Close()

	out := []SavedInsight{}
	for rows.Next() {
		var si SavedInsight
		var payload string
		if err := rows.Scan(&si.ID, &si.SessionID, &si.CreatedAt, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &si.Record); err != nil {
			return nil, fmt.Errorf("failed to decode stored insight %s: %w", si.ID, err)
		}
		out = append(out, si)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
