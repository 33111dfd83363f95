package chatstore

import (
	"context"
	"database/sql"
	"fmt"
)

// Feedback topics recognized by ListFeedback. A type topic filters on
// feedback_type, a category topic on feedback_category, anything else
// matches all feedback.
var (
	feedbackTypeTopics = map[string]string{
		"Positive": "positive",
		"Negative": "negative",
	}
	feedbackCategoryTopics = map[string]bool{
		"Error Messages":              true,
		"Not Clear":                   true,
		"Poorly Formatted":            true,
		"Inaccurate":                  true,
		"Not Relevant to My Question": true,
		"Other":                       true,
	}
)

// Feedback is a user's verdict on one bot response.
type Feedback struct {
	Type     string   `json:"feedbackType"`
	Rank     *float64 `json:"feedbackRank"`
	Category string   `json:"feedbackCategory"`
	Message  string   `json:"feedbackMessage"`
}

// FeedbackItem is a message joined with its feedback, as listed to
// admins and exported to CSV.
type FeedbackItem struct {
	FeedbackID      string   `json:"FeedbackID"`
	SessionID       string   `json:"SessionID"`
	UserPrompt      string   `json:"UserPrompt"`
	FeedbackComment string   `json:"FeedbackComments"`
	Category        string   `json:"FeedbackCategory"`
	Rank            *float64 `json:"FeedbackRank"`
	Type            string   `json:"FeedbackType"`
	ChatbotMessage  string   `json:"ChatbotMessage"`
	CreatedAt       string   `json:"CreatedAt"`
}

type feedbackRow struct {
	MessageID   string          `db:"message_id"`
	SessionID   string          `db:"session_id"`
	UserPrompt  string          `db:"user_prompt"`
	BotResponse sql.NullString  `db:"bot_response"`
	Type        sql.NullString  `db:"feedback_type"`
	Rank        sql.NullFloat64 `db:"feedback_rank"`
	Category    sql.NullString  `db:"feedback_category"`
	Message     sql.NullString  `db:"feedback_message"`
	CreatedAt   sql.NullString  `db:"feedback_created_at"`
}

const feedbackColumns = `message_id, session_id, user_prompt, bot_response,
	feedback_type, feedback_rank, feedback_category, feedback_message, feedback_created_at`

// PutFeedback attaches feedback to a message, overwriting any previous
// feedback on it. Empty type and category fall back to their defaults.
// Returns the feedback timestamp.
func (s *Store) PutFeedback(ctx context.Context, sessionID, messageID string, fb Feedback) (string, error) {
	if fb.Type == "" {
		fb.Type = "neutral"
	}
	if fb.Category == "" {
		fb.Category = "general"
	}
	now := nowISO()

	res, err := s.db.ExecContext(ctx,
		`UPDATE messages
		 SET feedback_type = ?, feedback_rank = ?, feedback_category = ?, feedback_message = ?, feedback_created_at = ?
		 WHERE message_id = ? AND session_id = ?`,
		fb.Type, fb.Rank, fb.Category, fb.Message, now, messageID, sessionID,
	)
	if err != nil {
		return "", fmt.Errorf("failed to store feedback for message %s: %w", messageID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", fmt.Errorf("no such message %s in session %s", messageID, sessionID)
	}
	return now, nil
}

// ClearFeedback removes the feedback fields from a message. Clearing a
// message without feedback is a no-op.
func (s *Store) ClearFeedback(ctx context.Context, sessionID, messageID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE messages
		 SET feedback_type = NULL, feedback_rank = NULL, feedback_category = NULL,
		     feedback_message = NULL, feedback_created_at = NULL
		 WHERE message_id = ? AND session_id = ?`,
		messageID, sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear feedback for message %s: %w", messageID, err)
	}
	return nil
}

// ListFeedback returns all feedback left within [start, end], newest
// first, optionally narrowed by topic.
func (s *Store) ListFeedback(ctx context.Context, start, end, topic string) ([]FeedbackItem, error) {
	query := `SELECT ` + feedbackColumns + `
		 FROM messages
		 WHERE feedback_type IS NOT NULL AND feedback_created_at BETWEEN ? AND ?`
	args := []any{start, end}

	if fbType, ok := feedbackTypeTopics[topic]; ok {
		query += ` AND feedback_type = ?`
		args = append(args, fbType)
	} else if feedbackCategoryTopics[topic] {
		query += ` AND feedback_category = ?`
		args = append(args, topic)
	}
	query += ` ORDER BY feedback_created_at DESC`

	var rows []feedbackRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return toFeedbackItems(rows), nil
}

// FeedbackForSession returns a session's feedback-bearing messages sent
// within [start, end], newest first. Used for exports.
func (s *Store) FeedbackForSession(ctx context.Context, sessionID, start, end string) ([]FeedbackItem, error) {
	var rows []feedbackRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+feedbackColumns+`
		 FROM messages
		 WHERE session_id = ? AND feedback_type IS NOT NULL AND created_at BETWEEN ? AND ?
		 ORDER BY created_at DESC`,
		sessionID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback for session %s: %w", sessionID, err)
	}
	return toFeedbackItems(rows), nil
}

// SessionIDsWithFeedback returns the distinct sessions holding feedback
// within [start, end].
func (s *Store) SessionIDsWithFeedback(ctx context.Context, start, end string) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids,
		`SELECT DISTINCT session_id FROM messages
		 WHERE feedback_type IS NOT NULL AND created_at BETWEEN ? AND ?
		 ORDER BY session_id`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions with feedback: %w", err)
	}
	return ids, nil
}

func toFeedbackItems(rows []feedbackRow) []FeedbackItem {
	items := make([]FeedbackItem, 0, len(rows))
	for _, row := range rows {
		item := FeedbackItem{
			FeedbackID:      row.MessageID,
			SessionID:       row.SessionID,
			UserPrompt:      row.UserPrompt,
			FeedbackComment: row.Message.String,
			Category:        row.Category.String,
			Type:            row.Type.String,
			ChatbotMessage:  row.BotResponse.String,
			CreatedAt:       row.CreatedAt.String,
		}
		if row.Rank.Valid {
			rank := row.Rank.Float64
			item.Rank = &rank
		}
		items = append(items, item)
	}
	return items
}
