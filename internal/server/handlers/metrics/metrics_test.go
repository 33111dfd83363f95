package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	json "github.com/goccy/go-json"

	"github.com/draftwise/ragbox/internal/chatstore"
	"github.com/draftwise/ragbox/internal/db"
	"github.com/draftwise/ragbox/internal/server/middlewares"
)

const testSecret = "test-secret"

func newTestRouter(t *testing.T) (*gin.Engine, *chatstore.Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "chat.db")
	database, err := db.NewSqliteDB(db.WithPath(dbPath), db.WithMaxOpenConns(1))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	store, err := chatstore.New(database)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/metrics", middlewares.AdminOnly(testSecret), New(store).Get)
	return r, store
}

func signToken(t *testing.T, groups any) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": "admin@example.com",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	if groups != nil {
		claims["cognito:groups"] = groups
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func get(r *gin.Engine, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestMetricsRequiresToken(t *testing.T) {
	r, _ := newTestRouter(t)

	w := get(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMetricsRequiresAdminGroup(t *testing.T) {
	r, _ := newTestRouter(t)

	w := get(r, signToken(t, []string{"Users"}))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = get(r, signToken(t, nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMetricsAsAdmin(t *testing.T) {
	r, store := newTestRouter(t)
	ctx := context.Background()

	_, err := store.CreateSession(ctx, "s1", "user-1", "t", chatstore.ChatEntry{UserPrompt: "q"})
	require.NoError(t, err)
	_, err = store.CreateSession(ctx, "s2", "user-2", "t", chatstore.ChatEntry{UserPrompt: "q"})
	require.NoError(t, err)

	// both list and space-joined string group claims grant access
	for _, groups := range []any{[]string{"AdminUsers"}, "Users Admin"} {
		w := get(r, signToken(t, groups))
		require.Equal(t, http.StatusOK, w.Code)

		var metrics struct {
			UniqueUsers   int `json:"unique_users"`
			TotalSessions int `json:"total_sessions"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &metrics))
		assert.Equal(t, 2, metrics.UniqueUsers)
		assert.Equal(t, 2, metrics.TotalSessions)
	}
}

func TestMetricsGateDisabledWithoutSecret(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "chat.db")
	database, err := db.NewSqliteDB(db.WithPath(dbPath), db.WithMaxOpenConns(1))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	store, err := chatstore.New(database)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/metrics", middlewares.AdminOnly(""), New(store).Get)

	w := get(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
}
