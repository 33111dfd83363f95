// Package sync exposes the document synchronization pipeline over HTTP:
// asynchronous full backfills and synchronous incremental passes.
package sync

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/draftwise/ragbox/internal/jobs"
	"github.com/draftwise/ragbox/internal/server/handlers/api"
	"github.com/draftwise/ragbox/internal/syncer"
)

// Runner is the slice of the sync engine this handler drives.
type Runner interface {
	Backfill(ctx context.Context) (*syncer.Report, error)
	SyncChanges(ctx context.Context) (*syncer.Report, error)
}

type Handler struct {
	runner Runner
	jobs   *jobs.Manager
}

func New(runner Runner, jobs *jobs.Manager) *Handler {
	return &Handler{runner: runner, jobs: jobs}
}

// Backfill queues a full-tree sync and immediately returns the job id.
// A backfill walks the entire folder tree and can run for minutes, far
// past any sane request timeout, hence the job hand-off.
func (h *Handler) Backfill(ctx *gin.Context) {
	job := h.jobs.Enqueue("backfill", jobs.PriorityHigh, func(jobCtx context.Context) (*syncer.Report, error) {
		return h.runner.Backfill(jobCtx)
	})

	ctx.PureJSON(http.StatusAccepted, gin.H{
		"job_id": job.ID,
		"status": job.Status,
	})
}

// JobStatus reports the state of a queued or finished job.
func (h *Handler) JobStatus(ctx *gin.Context) {
	job, ok := h.jobs.Get(ctx.Param("id"))
	if !ok {
		api.AbortWithError(ctx, http.StatusNotFound, api.CodeSyncJobNotFound, errors.New("no such job"))
		return
	}
	ctx.PureJSON(http.StatusOK, job)
}

// Changes runs an incremental pass inline and returns its report.
func (h *Handler) Changes(ctx *gin.Context) {
	report, err := h.runner.SyncChanges(ctx.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, syncer.ErrNoCursor):
			api.AbortWithError(ctx, http.StatusBadRequest, api.CodeSyncNoCursor, err)
		case errors.Is(err, syncer.ErrNoNewCursor):
			api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeSyncCursorLost, err)
		default:
			api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeSyncFailed, err)
		}
		return
	}

	ctx.PureJSON(http.StatusOK, gin.H{
		"success":           true,
		"changes_processed": report.Processed,
		"errors":            report.Errors,
	})
}
