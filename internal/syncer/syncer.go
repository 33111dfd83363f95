// Package syncer implements the Drive-to-object-store synchronization
// engine: a full-tree backfill pass and a change-feed driven incremental
// pass, both resumable through a persisted page-token cursor.
package syncer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/draftwise/ragbox/internal/blob"
	"github.com/draftwise/ragbox/internal/drive"
	"github.com/draftwise/ragbox/internal/ingest"
)

var (
	// ErrNoCursor means incremental sync was requested before any
	// backfill persisted a cursor. The caller must run backfill first.
	ErrNoCursor = errors.New("syncer: no start page token, run backfill first")

	// ErrNoNewCursor means the change feed could not produce a new
	// cursor. The pass fails whole; a cursor is never synthesized.
	ErrNoNewCursor = errors.New("syncer: failed to get new start page token")
)

// DriveService is the slice of the Drive client the syncer consumes.
type DriveService interface {
	StartPageToken(ctx context.Context) (string, error)
	ListAllFiles(ctx context.Context, rootFolderID string) []*drive.File
	Changes(ctx context.Context, startToken string) ([]*drive.Change, string)
	Download(ctx context.Context, fileID, mimeType string) ([]byte, error)
}

// Report summarizes one sync pass. Per-item failures land in Errors and
// never abort the pass.
type Report struct {
	Processed int      `json:"processed"`
	Errors    []string `json:"errors"`
}

// Syncer runs sync passes. Each pass opens its own StateStore over the
// state bucket, so passes never share in-memory state and always see
// the latest persisted documents; concurrent passes against the same
// bucket race last-writer-wins at the blob level.
type Syncer struct {
	drive        DriveService
	docs         blob.Store
	state        blob.Store
	trigger      ingest.Trigger
	rootFolderID string
}

func New(driveSvc DriveService, docs, state blob.Store, trigger ingest.Trigger, rootFolderID string) *Syncer {
	return &Syncer{
		drive:        driveSvc,
		docs:         docs,
		state:        state,
		trigger:      trigger,
		rootFolderID: rootFolderID,
	}
}

// triggerIngestion is best-effort: a missing trigger is a warning and a
// failed call is logged, neither surfaces as a pass failure.
func (s *Syncer) triggerIngestion(ctx context.Context) {
	if s.trigger == nil {
		slog.Warn("ingestion trigger not configured, skipping")
		return
	}
	executionID, err := s.trigger.StartSync(ctx)
	if err != nil {
		slog.Warn("ingestion trigger failed", "error", err)
		return
	}
	slog.Info("ingestion job started", "execution", executionID)
}
