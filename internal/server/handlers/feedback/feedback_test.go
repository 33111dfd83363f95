package feedback

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
	r.POST("/feedback", h.Submit)
	r.GET("/feedback", h.List)
	r.DELETE("/feedback", h.Delete)
	r.POST("/feedback/download", h.Download)
	return r, store, exports
}

func seedMessage(t *testing.T, store *chatstore.Store) string {
	t.Helper()
	messageID, err := store.CreateSession(context.Background(), "sess-1", "user-1", "t", chatstore.ChatEntry{
		UserPrompt:  "question",
		BotResponse: "answer",
	})
	require.NoError(t, err)
	return messageID
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
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

func TestSubmitListDelete(t *testing.T) {
	r, store, _ := newTestRouter(t)
	messageID := seedMessage(t, store)

	w := doJSON(t, r, http.MethodPost, "/feedback", `{
		"feedbackData": {
			"sessionId": "sess-1",
			"messageId": "`+messageID+`",
			"feedbackType": "negative",
			"feedbackRank": 2,
			"feedbackCategory": "Inaccurate",
			"feedbackMessage": "wrong citation"
		}
	}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), messageID)

	w = doJSON(t, r, http.MethodGet, "/feedback?startTime=2000-01-01T00:00:00Z&endTime=2100-01-01T00:00:00Z", "")
	require.Equal(t, http.StatusOK, w.Code)

	var listed struct {
		Items []struct {
			FeedbackID     string `json:"FeedbackID"`
			FeedbackType   string `json:"FeedbackType"`
			ChatbotMessage string `json:"ChatbotMessage"`
		} `json:"Items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed.Items, 1)
	assert.Equal(t, messageID, listed.Items[0].FeedbackID)
	assert.Equal(t, "negative", listed.Items[0].FeedbackType)
	assert.Equal(t, "answer", listed.Items[0].ChatbotMessage)

	// topic filter that matches nothing
	w = doJSON(t, r, http.MethodGet, "/feedback?startTime=2000-01-01T00:00:00Z&endTime=2100-01-01T00:00:00Z&topic=Positive", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Empty(t, listed.Items)

	w = doJSON(t, r, http.MethodDelete, "/feedback", `{"session_id": "sess-1", "message_id": "`+messageID+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Feedback deleted successfully")

	w = doJSON(t, r, http.MethodGet, "/feedback?startTime=2000-01-01T00:00:00Z&endTime=2100-01-01T00:00:00Z", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Empty(t, listed.Items)
}

func TestSubmitValidation(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/feedback", `{"feedbackData": {"sessionId": "s"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "E_INVALID_REQUEST")
}

func TestDownload(t *testing.T) {
	r, store, exports := newTestRouter(t)
	messageID := seedMessage(t, store)

	_, err := store.PutFeedback(context.Background(), "sess-1", messageID, chatstore.Feedback{Type: "positive"})
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, "/feedback/download", `{
		"startTime": "2000-01-01T00:00:00Z",
		"endTime": "2100-01-01T00:00:00Z"
	}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		DownloadURL string `json:"download_url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.DownloadURL)
	assert.Equal(t, 1, exports.Len())
}
