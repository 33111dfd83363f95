// Package chatstore persists chat sessions, messages and message
// feedback in SQLite, and aggregates usage metrics over them.
package chatstore

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	title TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	message_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS messages (
	message_id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	user_prompt TEXT NOT NULL DEFAULT '',
	bot_response TEXT,
	sources TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL,
	response_time REAL NOT NULL DEFAULT 0,
	feedback_type TEXT,
	feedback_rank REAL,
	feedback_category TEXT,
	feedback_message TEXT,
	feedback_created_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_sessions_user_created ON sessions(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_messages_session_created ON messages(session_id, created_at);
CREATE INDEX IF NOT EXISTS idx_messages_feedback_created ON messages(feedback_created_at);
`

// Store provides access to chat data stored in SQLite.
type Store struct {
	db *sqlx.DB
}

// New creates a store using an existing database connection and
// initializes the schema.
func New(db *sqlx.DB) (*Store, error) {
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("failed to initialize chat schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// newMessageID builds a sortable message identifier.
func newMessageID() string {
	return fmt.Sprintf("MESSAGE-%d-%s", time.Now().Unix(), uuid.NewString()[:8])
}

// Fixed-width fractional seconds keep lexical order chronological;
// RFC3339Nano trims trailing zeros and would break it.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// nowISO returns the current UTC time as sortable text.
func nowISO() string {
	return time.Now().UTC().Format(timeLayout)
}
