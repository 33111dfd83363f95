// Package session exposes chat session CRUD as a single
// operation-dispatch endpoint, the shape the chat frontend speaks.
package session

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/draftwise/ragbox/internal/chatstore"
	"github.com/draftwise/ragbox/internal/server/handlers/api"
)

const (
	defaultListLimit = 15
	maxListLimit     = 100
)

type Handler struct {
	store *chatstore.Store
}

func New(store *chatstore.Store) *Handler {
	return &Handler{store: store}
}

// request is the dispatch envelope. NewChatEntry stays raw because its
// shape depends on the operation: an exchange object for add operations,
// a bare prompt string for update_session.
type request struct {
	Operation    string          `json:"operation"`
	SessionID    string          `json:"session_id"`
	UserID       string          `json:"user_id"`
	Title        string          `json:"title"`
	NewChatEntry json.RawMessage `json:"new_chat_entry"`
}

func (h *Handler) Dispatch(ctx *gin.Context) {
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, err)
		return
	}

	switch req.Operation {
	case "add_new_session_with_first_message":
		h.createSession(ctx, &req)
	case "add_message_to_existing_session":
		h.addMessage(ctx, &req)
	case "get_session":
		h.getSession(ctx, &req)
	case "update_session":
		h.updateSession(ctx, &req)
	case "delete_session":
		h.deleteSession(ctx, &req)
	case "list_sessions_by_user_id":
		h.listSessions(ctx, &req, defaultListLimit)
	case "list_all_sessions_by_user_id":
		h.listSessions(ctx, &req, maxListLimit)
	case "assemble_chat_history":
		h.assembleHistory(ctx, &req)
	default:
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeSessionInvalidOp,
			fmt.Errorf("invalid operation: %s", req.Operation))
	}
}

func (h *Handler) createSession(ctx *gin.Context, req *request) {
	entry, err := decodeEntry(req.NewChatEntry)
	if err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, err)
		return
	}

	messageID, err := h.store.CreateSession(ctx.Request.Context(), req.SessionID, req.UserID, req.Title, entry)
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeSessionFailed, err)
		return
	}
	ctx.PureJSON(http.StatusOK, gin.H{
		"session_id": req.SessionID,
		"message_id": messageID,
	})
}

func (h *Handler) addMessage(ctx *gin.Context, req *request) {
	entry, err := decodeEntry(req.NewChatEntry)
	if err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, err)
		return
	}

	messageID, err := h.store.AddMessage(ctx.Request.Context(), req.SessionID, entry)
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeSessionFailed, err)
		return
	}
	ctx.PureJSON(http.StatusOK, gin.H{
		"session_id": req.SessionID,
		"message_id": messageID,
	})
}

// getSession returns the session with history, or an empty object when
// the session does not exist. The frontend treats {} as "new session".
func (h *Handler) getSession(ctx *gin.Context, req *request) {
	detail, err := h.store.GetSession(ctx.Request.Context(), req.SessionID)
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeSessionFailed, err)
		return
	}
	if detail == nil {
		ctx.PureJSON(http.StatusOK, gin.H{})
		return
	}
	ctx.PureJSON(http.StatusOK, detail)
}

// updateSession records a prompt whose response has not arrived yet.
func (h *Handler) updateSession(ctx *gin.Context, req *request) {
	var prompt string
	if err := json.Unmarshal(req.NewChatEntry, &prompt); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest,
			fmt.Errorf("new_chat_entry must be a string: %w", err))
		return
	}

	messageID, err := h.store.RecordPrompt(ctx.Request.Context(), req.SessionID, prompt)
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeSessionFailed, err)
		return
	}
	ctx.PureJSON(http.StatusOK, gin.H{"message_id": messageID})
}

func (h *Handler) deleteSession(ctx *gin.Context, req *request) {
	if err := h.store.DeleteSession(ctx.Request.Context(), req.SessionID); err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeSessionFailed, err)
		return
	}
	ctx.PureJSON(http.StatusOK, fmt.Sprintf("Session %s deleted.", req.SessionID))
}

func (h *Handler) listSessions(ctx *gin.Context, req *request, limit int) {
	sessions, err := h.store.ListSessions(ctx.Request.Context(), req.UserID, limit)
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeSessionFailed, err)
		return
	}
	ctx.PureJSON(http.StatusOK, sessions)
}

func (h *Handler) assembleHistory(ctx *gin.Context, req *request) {
	history, err := h.store.ChatHistory(ctx.Request.Context(), req.SessionID)
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeSessionFailed, err)
		return
	}

	// the model pipeline wants prompt/response pairs without message ids
	assembled := make([]gin.H, 0, len(history))
	for _, entry := range history {
		assembled = append(assembled, gin.H{
			"user":     entry.User,
			"chatbot":  entry.Chatbot,
			"metadata": entry.Metadata,
		})
	}
	ctx.PureJSON(http.StatusOK, assembled)
}

func decodeEntry(raw json.RawMessage) (chatstore.ChatEntry, error) {
	var entry chatstore.ChatEntry
	if len(raw) == 0 {
		return entry, fmt.Errorf("new_chat_entry is required")
	}
	if err := json.Unmarshal(raw, &entry); err != nil {
		return entry, fmt.Errorf("invalid new_chat_entry: %w", err)
	}
	return entry, nil
}
