package chatstore

import (
	"context"
	"fmt"
)

// Interaction is one prompt/response exchange joined with the user who
// sent it, as listed in the admin interaction log.
type Interaction struct {
	Timestamp    string  `db:"created_at" json:"Timestamp"`
	Username     string  `db:"user_id" json:"Username"`
	UserPrompt   string  `db:"user_prompt" json:"UserPrompt"`
	BotMessage   string  `db:"bot_response" json:"BotMessage"`
	ResponseTime float64 `db:"response_time" json:"ResponseTime"`
	MessageID    string  `db:"message_id" json:"MessageId"`
	SessionID    string  `db:"session_id" json:"SessionId"`
}

// LoginStat is the number of distinct active users on one day.
type LoginStat struct {
	Timestamp string `db:"date" json:"Timestamp"`
	Count     int    `db:"count" json:"Count"`
}

// ListInteractions returns every exchange sent within [start, end],
// newest first. Messages whose session is gone carry the username
// "Unknown".
func (s *Store) ListInteractions(ctx context.Context, start, end string) ([]Interaction, error) {
	items := []Interaction{}
	err := s.db.SelectContext(ctx, &items,
		`SELECT m.created_at, COALESCE(s.user_id, 'Unknown') AS user_id, m.user_prompt,
		        COALESCE(m.bot_response, '') AS bot_response, m.response_time,
		        m.message_id, m.session_id
		 FROM messages m
		 LEFT JOIN sessions s ON s.session_id = m.session_id
		 WHERE m.created_at BETWEEN ? AND ?
		 ORDER BY m.created_at DESC, m.message_id DESC`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	return items, nil
}

// DeleteInteraction removes one message. Deleting a message that does
// not exist is a no-op.
func (s *Store) DeleteInteraction(ctx context.Context, sessionID, messageID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM messages WHERE message_id = ? AND session_id = ?`,
		messageID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete message %s: %w", messageID, err)
	}
	return nil
}

// DailyLogins counts distinct users with session activity per day over
// [start, endExclusive), ordered by date.
func (s *Store) DailyLogins(ctx context.Context, start, endExclusive string) ([]LoginStat, error) {
	stats := []LoginStat{}
	err := s.db.SelectContext(ctx, &stats,
		`SELECT substr(created_at, 1, 10) AS date,
		        COUNT(DISTINCT user_id) AS count
		 FROM sessions
		 WHERE created_at >= ? AND created_at < ?
		 GROUP BY substr(created_at, 1, 10)
		 ORDER BY date ASC`,
		start, endExclusive)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily logins: %w", err)
	}
	return stats, nil
}
