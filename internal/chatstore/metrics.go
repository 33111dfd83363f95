package chatstore

import (
	"context"
	"fmt"
)

// DailyStat is one day of traffic.
type DailyStat struct {
	Date        string `db:"date" json:"date"`
	Sessions    int    `db:"sessions" json:"sessions"`
	Messages    int    `db:"messages" json:"messages"`
	UniqueUsers int    `db:"unique_users" json:"unique_users"`
}

// Metrics summarizes chat traffic across all sessions.
type Metrics struct {
	UniqueUsers    int         `json:"unique_users"`
	TotalSessions  int         `json:"total_sessions"`
	TotalMessages  int         `json:"total_messages"`
	DailyBreakdown []DailyStat `json:"daily_breakdown"`
}

// Metrics aggregates unique users, session and message totals, and a
// per-day breakdown ordered by date. Message totals come from the
// sessions' message_count column, not a count over the messages table,
// so they track what each session has actually recorded.
func (s *Store) Metrics(ctx context.Context) (*Metrics, error) {
	var totals struct {
		UniqueUsers   int `db:"unique_users"`
		TotalSessions int `db:"total_sessions"`
		TotalMessages int `db:"total_messages"`
	}
	err := s.db.GetContext(ctx, &totals,
		`SELECT COUNT(DISTINCT user_id) AS unique_users,
		        COUNT(*) AS total_sessions,
		        COALESCE(SUM(message_count), 0) AS total_messages
		 FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate totals: %w", err)
	}

	daily := []DailyStat{}
	err = s.db.SelectContext(ctx, &daily,
		`SELECT substr(created_at, 1, 10) AS date,
		        COUNT(*) AS sessions,
		        COALESCE(SUM(message_count), 0) AS messages,
		        COUNT(DISTINCT user_id) AS unique_users
		 FROM sessions
		 GROUP BY substr(created_at, 1, 10)
		 ORDER BY date ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily breakdown: %w", err)
	}

	return &Metrics{
		UniqueUsers:    totals.UniqueUsers,
		TotalSessions:  totals.TotalSessions,
		TotalMessages:  totals.TotalMessages,
		DailyBreakdown: daily,
	}, nil
}
