// Package index drives the search index's data-source sync jobs and
// reports their progress in the plain-string shape the admin UI polls.
package index

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/draftwise/ragbox/internal/server/handlers/api"
)

// Progress strings the admin UI matches on verbatim.
const (
	statusStillSyncing   = "STILL SYNCING"
	statusStartedSyncing = "STARTED SYNCING"
	statusDoneSyncing    = "DONE SYNCING"

	lastSyncLayout = "January 02, 2006, 03:04PM UTC"
)

// Syncer is the slice of the ingestion backend this handler drives.
type Syncer interface {
	StartSync(ctx context.Context) (string, error)
	Running(ctx context.Context) (bool, error)
	LastSync(ctx context.Context) (time.Time, error)
}

type Handler struct {
	syncer Syncer
}

func New(syncer Syncer) *Handler {
	return &Handler{syncer: syncer}
}

// Sync starts an index sync unless one is already in flight.
func (h *Handler) Sync(ctx *gin.Context) {
	if !h.configured(ctx) {
		return
	}

	running, err := h.syncer.Running(ctx.Request.Context())
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeIndexSyncFailed, err)
		return
	}
	if running {
		ctx.PureJSON(http.StatusOK, statusStillSyncing)
		return
	}

	if _, err := h.syncer.StartSync(ctx.Request.Context()); err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeIndexSyncFailed, err)
		return
	}
	ctx.PureJSON(http.StatusOK, statusStartedSyncing)
}

// Status reports whether a sync job is still in flight.
func (h *Handler) Status(ctx *gin.Context) {
	if !h.configured(ctx) {
		return
	}

	running, err := h.syncer.Running(ctx.Request.Context())
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeIndexSyncFailed, err)
		return
	}
	if running {
		ctx.PureJSON(http.StatusOK, statusStillSyncing)
		return
	}
	ctx.PureJSON(http.StatusOK, statusDoneSyncing)
}

// LastSync returns the end time of the most recent succeeded sync.
func (h *Handler) LastSync(ctx *gin.Context) {
	if !h.configured(ctx) {
		return
	}

	last, err := h.syncer.LastSync(ctx.Request.Context())
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeIndexSyncFailed, err)
		return
	}
	ctx.PureJSON(http.StatusOK, last.UTC().Format(lastSyncLayout))
}

func (h *Handler) configured(ctx *gin.Context) bool {
	if h.syncer == nil {
		api.AbortWithError(ctx, http.StatusServiceUnavailable, api.CodeIndexNotConfigured,
			errors.New("no search index configured"))
		return false
	}
	return true
}
