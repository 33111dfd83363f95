// Package kpi serves the admin interaction log: listing, pruning and
// exporting raw prompt/response exchanges, plus daily login counts.
package kpi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/draftwise/ragbox/internal/chatstore"
	"github.com/draftwise/ragbox/internal/server/handlers/api"
)

const dateLayout = "2006-01-02"

type Handler struct {
	store    *chatstore.Store
	exporter *chatstore.Exporter
}

func New(store *chatstore.Store, exporter *chatstore.Exporter) *Handler {
	return &Handler{store: store, exporter: exporter}
}

// Interactions lists every exchange within a time range, newest first.
func (h *Handler) Interactions(ctx *gin.Context) {
	start := ctx.Query("startTime")
	end := ctx.Query("endTime")
	if start == "" || end == "" {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest,
			errors.New("startTime and endTime are required"))
		return
	}

	items, err := h.store.ListInteractions(ctx.Request.Context(), start, end)
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInteractionFailed, err)
		return
	}
	ctx.PureJSON(http.StatusOK, gin.H{"Items": items})
}

// Delete removes one exchange from the log.
func (h *Handler) Delete(ctx *gin.Context) {
	messageID := ctx.Query("MessageId")
	sessionID := ctx.Query("SessionId")
	if messageID == "" || sessionID == "" {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest,
			errors.New("MessageId and SessionId are required"))
		return
	}

	if err := h.store.DeleteInteraction(ctx.Request.Context(), sessionID, messageID); err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInteractionFailed, err)
		return
	}
	ctx.PureJSON(http.StatusOK, gin.H{"message": "Interaction item deleted successfully"})
}

type downloadRequest struct {
	StartTime string `json:"startTime" binding:"required"`
	EndTime   string `json:"endTime" binding:"required"`
}

// Download exports the interaction log to CSV and returns a presigned
// URL for it.
func (h *Handler) Download(ctx *gin.Context) {
	var req downloadRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, err)
		return
	}

	url, err := h.exporter.ExportInteractions(ctx.Request.Context(), req.StartTime, req.EndTime)
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInteractionExportFailed, err)
		return
	}
	ctx.PureJSON(http.StatusOK, gin.H{"download_url": url})
}

// DailyLogins reports distinct active users per day over an inclusive
// date range.
func (h *Handler) DailyLogins(ctx *gin.Context) {
	start, err := time.Parse(dateLayout, ctx.Query("startDate"))
	if err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, err)
		return
	}
	end, err := time.Parse(dateLayout, ctx.Query("endDate"))
	if err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, err)
		return
	}

	// the end date itself counts, so the bound is the following midnight
	logins, err := h.store.DailyLogins(ctx.Request.Context(),
		start.Format(dateLayout), end.AddDate(0, 0, 1).Format(dateLayout))
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInteractionFailed, err)
		return
	}
	ctx.PureJSON(http.StatusOK, gin.H{"logins": logins})
}
