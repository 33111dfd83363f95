// Package feedback manages user feedback on bot responses: submit,
// list, delete, and CSV export to a presigned download link.
package feedback

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/draftwise/ragbox/internal/chatstore"
	"github.com/draftwise/ragbox/internal/server/handlers/api"
)

type Handler struct {
	store    *chatstore.Store
	exporter *chatstore.Exporter
}

func New(store *chatstore.Store, exporter *chatstore.Exporter) *Handler {
	return &Handler{store: store, exporter: exporter}
}

type submitRequest struct {
	FeedbackData struct {
		SessionID string `json:"sessionId" binding:"required"`
		MessageID string `json:"messageId" binding:"required"`
		chatstore.Feedback
	} `json:"feedbackData" binding:"required"`
}

// Submit attaches feedback to a message.
func (h *Handler) Submit(ctx *gin.Context) {
	var req submitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, err)
		return
	}

	createdAt, err := h.store.PutFeedback(ctx.Request.Context(),
		req.FeedbackData.SessionID, req.FeedbackData.MessageID, req.FeedbackData.Feedback)
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeFeedbackFailed, err)
		return
	}

	ctx.PureJSON(http.StatusOK, gin.H{
		"FeedbackID": req.FeedbackData.MessageID,
		"CreatedAt":  createdAt,
	})
}

// List returns feedback within a time range, optionally filtered by a
// type or category topic.
func (h *Handler) List(ctx *gin.Context) {
	start := ctx.Query("startTime")
	end := ctx.Query("endTime")
	topic := ctx.Query("topic")

	items, err := h.store.ListFeedback(ctx.Request.Context(), start, end, topic)
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeFeedbackFailed, err)
		return
	}
	ctx.PureJSON(http.StatusOK, gin.H{"Items": items})
}

type deleteRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	MessageID string `json:"message_id" binding:"required"`
}

// Delete clears the feedback fields from a message.
func (h *Handler) Delete(ctx *gin.Context) {
	var req deleteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, err)
		return
	}

	if err := h.store.ClearFeedback(ctx.Request.Context(), req.SessionID, req.MessageID); err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeFeedbackFailed, err)
		return
	}
	ctx.PureJSON(http.StatusOK, gin.H{"message": "Feedback deleted successfully"})
}

type downloadRequest struct {
	StartTime string `json:"startTime" binding:"required"`
	EndTime   string `json:"endTime" binding:"required"`
	SessionID string `json:"session_id"`
}

// Download exports feedback to CSV and returns a presigned URL for it.
func (h *Handler) Download(ctx *gin.Context) {
	var req downloadRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, err)
		return
	}

	url, err := h.exporter.Export(ctx.Request.Context(), req.SessionID, req.StartTime, req.EndTime)
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeFeedbackExportFailed, err)
		return
	}
	ctx.PureJSON(http.StatusOK, gin.H{"download_url": url})
}
