package kpi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	json "github.com/goccy/go-json"

	"github.com/draftwise/ragbox/internal/blob"
	"github.com/draftwise/ragbox/internal/chatstore"
	"github.com/draftwise/ragbox/internal/db"
)

func newTestRouter(t *testing.T) (*gin.Engine, *chatstore.Store, *blob.MemoryStore) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "chat.db")
	database, err := db.NewSqliteDB(db.WithPath(dbPath), db.WithMaxOpenConns(1))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	store, err := chatstore.New(database)
	require.NoError(t, err)
	exports := blob.NewMemoryStore()

	h := New(store, chatstore.NewExporter(store, exports))
	r := gin.New()
	r.GET("/chatbot-use", h.Interactions)
	r.DELETE("/chatbot-use", h.Delete)
	r.POST("/chatbot-use/download", h.Download)
	r.GET("/daily-logins", h.DailyLogins)
	return r, store, exports
}

func do(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

const timeRange = "startTime=2000-01-01T00:00:00Z&endTime=2100-01-01T00:00:00Z"

func TestInteractionsListAndDelete(t *testing.T) {
	r, store, _ := newTestRouter(t)

	messageID, err := store.CreateSession(context.Background(), "sess-1", "user-1", "t", chatstore.ChatEntry{
		UserPrompt:  "question",
		BotResponse: "answer",
	})
	require.NoError(t, err)

	w := do(t, r, http.MethodGet, "/chatbot-use?"+timeRange, "")
	require.Equal(t, http.StatusOK, w.Code)

	var listed struct {
		Items []struct {
			Username   string `json:"Username"`
			UserPrompt string `json:"UserPrompt"`
			BotMessage string `json:"BotMessage"`
			MessageID  string `json:"MessageId"`
			SessionID  string `json:"SessionId"`
		} `json:"Items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed.Items, 1)
	assert.Equal(t, "user-1", listed.Items[0].Username)
	assert.Equal(t, "question", listed.Items[0].UserPrompt)
	assert.Equal(t, "answer", listed.Items[0].BotMessage)
	assert.Equal(t, messageID, listed.Items[0].MessageID)

	w = do(t, r, http.MethodDelete, "/chatbot-use?MessageId="+messageID+"&SessionId=sess-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Interaction item deleted successfully")

	w = do(t, r, http.MethodGet, "/chatbot-use?"+timeRange, "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Empty(t, listed.Items)
}

func TestInteractionsRequireTimeRange(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/chatbot-use", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "E_INVALID_REQUEST")
}

func TestDeleteRequiresIdentifiers(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := do(t, r, http.MethodDelete, "/chatbot-use?MessageId=m-only", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "E_INVALID_REQUEST")
}

func TestDownload(t *testing.T) {
	r, store, exports := newTestRouter(t)

	_, err := store.CreateSession(context.Background(), "sess-1", "user-1", "t", chatstore.ChatEntry{
		UserPrompt:  "question",
		BotResponse: "answer",
	})
	require.NoError(t, err)

	w := do(t, r, http.MethodPost, "/chatbot-use/download", `{
		"startTime": "2000-01-01T00:00:00.000Z",
		"endTime": "2100-01-01T00:00:00.000Z"
	}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		DownloadURL string `json:"download_url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.DownloadURL, "interaction-data-2000-01-01_to_2100-01-01.csv")
	assert.Equal(t, 1, exports.Len())
}

func TestDailyLogins(t *testing.T) {
	r, store, _ := newTestRouter(t)
	ctx := context.Background()

	_, err := store.CreateSession(ctx, "s1", "user-1", "t", chatstore.ChatEntry{UserPrompt: "q"})
	require.NoError(t, err)
	_, err = store.CreateSession(ctx, "s2", "user-2", "t", chatstore.ChatEntry{UserPrompt: "q"})
	require.NoError(t, err)

	w := do(t, r, http.MethodGet, "/daily-logins?startDate=2000-01-01&endDate=2100-01-01", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Logins []struct {
			Timestamp string `json:"Timestamp"`
			Count     int    `json:"Count"`
		} `json:"logins"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Logins, 1)
	assert.Equal(t, 2, resp.Logins[0].Count)
}

func TestDailyLoginsRejectsBadDates(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/daily-logins?startDate=not-a-date&endDate=2100-01-01", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "E_INVALID_REQUEST")
}
