// Package metrics reports chat usage aggregates to admins.
package metrics

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/draftwise/ragbox/internal/chatstore"
	"github.com/draftwise/ragbox/internal/server/handlers/api"
)

type Handler struct {
	store *chatstore.Store
}

func New(store *chatstore.Store) *Handler {
	return &Handler{store: store}
}

// Get returns unique users, totals and the per-day traffic breakdown.
func (h *Handler) Get(ctx *gin.Context) {
	metrics, err := h.store.Metrics(ctx.Request.Context())
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeMetricsFailed, err)
		return
	}
	ctx.PureJSON(http.StatusOK, metrics)
}
