package chatstore

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftwise/ragbox/internal/blob"
	"github.com/draftwise/ragbox/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "chat.db")
	database, err := db.NewSqliteDB(db.WithPath(dbPath), db.WithMaxOpenConns(1))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	store, err := New(database)
	require.NoError(t, err)
	return store
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first := ChatEntry{
		UserPrompt:  "what is the leave policy?",
		BotResponse: "see the handbook",
		Sources:     []string{"handbook.pdf"},
	}
	messageID, err := store.CreateSession(ctx, "sess-1", "user-1", "  Leave policy  ", first)
	require.NoError(t, err)
	assert.Regexp(t, `^MESSAGE-\d+-[0-9a-f]{8}$`, messageID)

	detail, err := store.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, "user-1", detail.UserID)
	assert.Equal(t, "Leave policy", detail.Title)
	assert.Equal(t, 1, detail.MessageCount)
	require.Len(t, detail.ChatHistory, 1)
	assert.Equal(t, first.UserPrompt, detail.ChatHistory[0].User)
	assert.Equal(t, first.BotResponse, detail.ChatHistory[0].Chatbot)
	assert.JSONEq(t, `["handbook.pdf"]`, detail.ChatHistory[0].Metadata)
	assert.Equal(t, messageID, detail.ChatHistory[0].MessageID)

	_, err = store.AddMessage(ctx, "sess-1", ChatEntry{UserPrompt: "and sick days?", BotResponse: "ten per year"})
	require.NoError(t, err)

	detail, err = store.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 2, detail.MessageCount)
	require.Len(t, detail.ChatHistory, 2)
	assert.Equal(t, "and sick days?", detail.ChatHistory[1].User)

	require.NoError(t, store.DeleteSession(ctx, "sess-1"))

	detail, err = store.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Nil(t, detail)

	history, err := store.ChatHistory(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestGetSessionMissing(t *testing.T) {
	store := newTestStore(t)

	detail, err := store.GetSession(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, detail)
}

func TestRecordPrompt(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.CreateSession(ctx, "sess-1", "user-1", "t", ChatEntry{UserPrompt: "q", BotResponse: "a"})
	require.NoError(t, err)

	messageID, err := store.RecordPrompt(ctx, "sess-1", "pending question")
	require.NoError(t, err)
	assert.NotEmpty(t, messageID)

	detail, err := store.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 2, detail.MessageCount)
	last := detail.ChatHistory[len(detail.ChatHistory)-1]
	assert.Equal(t, "pending question", last.User)
	assert.Empty(t, last.Chatbot)
}

func TestListSessions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, id := range []string{"s1", "s2", "s3"} {
		_, err := store.CreateSession(ctx, id, "user-1", "title "+id, ChatEntry{UserPrompt: "q"})
		require.NoError(t, err)
	}
	_, err := store.CreateSession(ctx, "other", "user-2", "other", ChatEntry{UserPrompt: "q"})
	require.NoError(t, err)

	sessions, err := store.ListSessions(ctx, "user-1", 15)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	for _, s := range sessions {
		assert.NotEqual(t, "other", s.SessionID)
		assert.NotEmpty(t, s.TimeStamp)
	}

	limited, err := store.ListSessions(ctx, "user-1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := store.ListSessions(ctx, "unknown", 15)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFeedbackRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	messageID, err := store.CreateSession(ctx, "sess-1", "user-1", "t", ChatEntry{
		UserPrompt:  "question",
		BotResponse: "answer",
	})
	require.NoError(t, err)

	rank := 4.0
	createdAt, err := store.PutFeedback(ctx, "sess-1", messageID, Feedback{
		Type:     "negative",
		Rank:     &rank,
		Category: "Inaccurate",
		Message:  "wrong section cited",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, createdAt)

	items, err := store.ListFeedback(ctx, "2000-01-01T00:00:00Z", "2100-01-01T00:00:00Z", "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, messageID, items[0].FeedbackID)
	assert.Equal(t, "sess-1", items[0].SessionID)
	assert.Equal(t, "question", items[0].UserPrompt)
	assert.Equal(t, "answer", items[0].ChatbotMessage)
	assert.Equal(t, "negative", items[0].Type)
	assert.Equal(t, "Inaccurate", items[0].Category)
	require.NotNil(t, items[0].Rank)
	assert.Equal(t, 4.0, *items[0].Rank)

	require.NoError(t, store.ClearFeedback(ctx, "sess-1", messageID))

	items, err = store.ListFeedback(ctx, "2000-01-01T00:00:00Z", "2100-01-01T00:00:00Z", "")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestPutFeedbackDefaultsAndMissingMessage(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	messageID, err := store.CreateSession(ctx, "sess-1", "user-1", "t", ChatEntry{UserPrompt: "q"})
	require.NoError(t, err)

	_, err = store.PutFeedback(ctx, "sess-1", messageID, Feedback{})
	require.NoError(t, err)

	items, err := store.ListFeedback(ctx, "2000-01-01T00:00:00Z", "2100-01-01T00:00:00Z", "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "neutral", items[0].Type)
	assert.Equal(t, "general", items[0].Category)
	assert.Nil(t, items[0].Rank)

	_, err = store.PutFeedback(ctx, "sess-1", "MESSAGE-0-deadbeef", Feedback{})
	assert.Error(t, err)
}

func TestListFeedbackTopicFilters(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	positive, err := store.CreateSession(ctx, "sess-1", "user-1", "t", ChatEntry{UserPrompt: "q1"})
	require.NoError(t, err)
	negative, err := store.AddMessage(ctx, "sess-1", ChatEntry{UserPrompt: "q2"})
	require.NoError(t, err)

	_, err = store.PutFeedback(ctx, "sess-1", positive, Feedback{Type: "positive"})
	require.NoError(t, err)
	_, err = store.PutFeedback(ctx, "sess-1", negative, Feedback{Type: "negative", Category: "Not Clear"})
	require.NoError(t, err)

	start, end := "2000-01-01T00:00:00Z", "2100-01-01T00:00:00Z"

	items, err := store.ListFeedback(ctx, start, end, "Positive")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, positive, items[0].FeedbackID)

	items, err = store.ListFeedback(ctx, start, end, "Not Clear")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, negative, items[0].FeedbackID)

	// unknown topics match all feedback
	items, err = store.ListFeedback(ctx, start, end, "whatever")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	// out-of-range window matches none
	items, err = store.ListFeedback(ctx, "1990-01-01T00:00:00Z", "1991-01-01T00:00:00Z", "")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.CreateSession(ctx, "s1", "user-1", "t", ChatEntry{UserPrompt: "q"})
	require.NoError(t, err)
	_, err = store.AddMessage(ctx, "s1", ChatEntry{UserPrompt: "q2"})
	require.NoError(t, err)
	_, err = store.CreateSession(ctx, "s2", "user-1", "t", ChatEntry{UserPrompt: "q"})
	require.NoError(t, err)
	_, err = store.CreateSession(ctx, "s3", "user-2", "t", ChatEntry{UserPrompt: "q"})
	require.NoError(t, err)

	metrics, err := store.Metrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, metrics.UniqueUsers)
	assert.Equal(t, 3, metrics.TotalSessions)
	assert.Equal(t, 4, metrics.TotalMessages)

	// all sessions were created today, so a single bucket holds everything
	require.Len(t, metrics.DailyBreakdown, 1)
	day := metrics.DailyBreakdown[0]
	assert.Equal(t, 3, day.Sessions)
	assert.Equal(t, 4, day.Messages)
	assert.Equal(t, 2, day.UniqueUsers)
}

func TestMetricsEmpty(t *testing.T) {
	store := newTestStore(t)

	metrics, err := store.Metrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, metrics.UniqueUsers)
	assert.Equal(t, 0, metrics.TotalSessions)
	assert.Equal(t, 0, metrics.TotalMessages)
	assert.Empty(t, metrics.DailyBreakdown)
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	exports := blob.NewMemoryStore()
	exporter := NewExporter(store, exports)

	m1, err := store.CreateSession(ctx, "s1", "user-1", "t", ChatEntry{UserPrompt: "q1", BotResponse: "a1"})
	require.NoError(t, err)
	m2, err := store.CreateSession(ctx, "s2", "user-2", "t", ChatEntry{UserPrompt: "q2", BotResponse: "a2"})
	require.NoError(t, err)

	_, err = store.PutFeedback(ctx, "s1", m1, Feedback{Type: "positive"})
	require.NoError(t, err)
	_, err = store.PutFeedback(ctx, "s2", m2, Feedback{Type: "negative", Message: "too vague"})
	require.NoError(t, err)

	start, end := "2000-01-01T00:00:00Z", "2100-01-01T00:00:00Z"

	// all sessions
	url, err := exporter.Export(ctx, "", start, end)
	require.NoError(t, err)
	key := "feedback-" + start + "-" + end + ".csv"
	assert.Equal(t, "memory://"+key, url)
	require.True(t, exports.Has(key))

	data, err := exports.Get(ctx, key)
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.HasPrefix(content, "FeedbackID,SessionID,UserPrompt,"))
	assert.Contains(t, content, m1)
	assert.Contains(t, content, m2)
	assert.Contains(t, content, "too vague")

	// single session
	_, err = exporter.Export(ctx, "s1", start, end)
	require.NoError(t, err)
	data, err = exports.Get(ctx, key)
	require.NoError(t, err)
	assert.Contains(t, string(data), m1)
	assert.NotContains(t, string(data), m2)
}
