package chatstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
)

// ChatEntry is one prompt/response exchange submitted by a client.
type ChatEntry struct {
	UserPrompt  string   `json:"user_prompt"`
	BotResponse string   `json:"bot_response"`
	Sources     []string `json:"sources"`
}

// Session is a stored chat session.
type Session struct {
	ID           string `db:"session_id" json:"session_id"`
	UserID       string `db:"user_id" json:"user_id"`
	Title        string `db:"title" json:"title"`
	CreatedAt    string `db:"created_at" json:"created_at"`
	UpdatedAt    string `db:"updated_at" json:"updated_at"`
	MessageCount int    `db:"message_count" json:"message_count"`
}

// SessionDetail is a session with its ordered chat history attached.
type SessionDetail struct {
	Session
	ChatHistory []HistoryEntry `json:"chat_history"`
}

// HistoryEntry is one exchange in the shape the frontend renders.
// Metadata carries the message sources as a JSON string.
type HistoryEntry struct {
	User      string `json:"user"`
	Chatbot   string `json:"chatbot"`
	Metadata  string `json:"metadata"`
	MessageID string `json:"messageId"`
}

// SessionSummary is the list-view projection of a session.
type SessionSummary struct {
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
	TimeStamp string `json:"time_stamp"`
}

type messageRow struct {
	MessageID   string         `db:"message_id"`
	SessionID   string         `db:"session_id"`
	UserPrompt  string         `db:"user_prompt"`
	BotResponse sql.NullString `db:"bot_response"`
	Sources     string         `db:"sources"`
	CreatedAt   string         `db:"created_at"`
}

// CreateSession stores a new session together with its first exchange
// and returns the generated message id. The title is stored trimmed.
func (s *Store) CreateSession(ctx context.Context, sessionID, userID, title string, first ChatEntry) (string, error) {
	now := nowISO()
	messageID := newMessageID()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (session_id, user_id, title, created_at, updated_at, message_count)
		 VALUES (?, ?, ?, ?, ?, 1)`,
		sessionID, userID, strings.TrimSpace(title), now, now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create session %s: %w", sessionID, err)
	}

	if err := insertMessage(ctx, tx, messageID, sessionID, first, now); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return messageID, nil
}

// AddMessage appends an exchange to an existing session, bumping its
// message count and updated_at stamp.
func (s *Store) AddMessage(ctx context.Context, sessionID string, entry ChatEntry) (string, error) {
	now := nowISO()
	messageID := newMessageID()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertMessage(ctx, tx, messageID, sessionID, entry, now); err != nil {
		return "", err
	}
	if err := touchSession(ctx, tx, sessionID, now); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return messageID, nil
}

// RecordPrompt stores a prompt-only message with no response yet. The
// response arrives later as feedback-bearing history is assembled by
// the model pipeline, so bot_response stays NULL here.
func (s *Store) RecordPrompt(ctx context.Context, sessionID, prompt string) (string, error) {
	now := nowISO()
	messageID := newMessageID()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (message_id, session_id, user_prompt, bot_response, sources, created_at)
		 VALUES (?, ?, ?, NULL, '[]', ?)`,
		messageID, sessionID, prompt, now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert message %s: %w", messageID, err)
	}
	if err := touchSession(ctx, tx, sessionID, now); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return messageID, nil
}

// GetSession returns the session with its chat history, or nil when no
// such session exists.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*SessionDetail, error) {
	var session Session
	err := s.db.GetContext(ctx, &session,
		`SELECT session_id, user_id, title, created_at, updated_at, message_count
		 FROM sessions WHERE session_id = ?`, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	history, err := s.ChatHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &SessionDetail{Session: session, ChatHistory: history}, nil
}

// ChatHistory returns the session's exchanges in send order.
func (s *Store) ChatHistory(ctx context.Context, sessionID string) ([]HistoryEntry, error) {
	var rows []messageRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT message_id, session_id, user_prompt, bot_response, sources, created_at
		 FROM messages WHERE session_id = ? ORDER BY created_at ASC, message_id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages for session %s: %w", sessionID, err)
	}

	history := make([]HistoryEntry, 0, len(rows))
	for _, row := range rows {
		history = append(history, HistoryEntry{
			User:      row.UserPrompt,
			Chatbot:   row.BotResponse.String,
			Metadata:  row.Sources,
			MessageID: row.MessageID,
		})
	}
	return history, nil
}

// DeleteSession removes a session and all of its messages.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete messages for session %s: %w", sessionID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListSessions returns the user's most recent sessions, newest first.
func (s *Store) ListSessions(ctx context.Context, userID string, limit int) ([]SessionSummary, error) {
	var sessions []Session
	err := s.db.SelectContext(ctx, &sessions,
		`SELECT session_id, user_id, title, created_at, updated_at, message_count
		 FROM sessions WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions for user %s: %w", userID, err)
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		summaries = append(summaries, SessionSummary{
			SessionID: session.ID,
			Title:     strings.TrimSpace(session.Title),
			TimeStamp: session.CreatedAt,
		})
	}
	return summaries, nil
}

func insertMessage(ctx context.Context, tx *sqlx.Tx, messageID, sessionID string, entry ChatEntry, now string) error {
	sources := entry.Sources
	if sources == nil {
		sources = []string{}
	}
	encoded, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("failed to encode sources: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (message_id, session_id, user_prompt, bot_response, sources, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		messageID, sessionID, entry.UserPrompt, entry.BotResponse, string(encoded), now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message %s: %w", messageID, err)
	}
	return nil
}

func touchSession(ctx context.Context, tx *sqlx.Tx, sessionID, now string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ?, message_count = message_count + 1 WHERE session_id = ?`,
		now, sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session %s: %w", sessionID, err)
	}
	return nil
}
