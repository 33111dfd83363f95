package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/draftwise/ragbox/internal/drive"
)

// SyncChanges performs the incremental pass: read the stored cursor,
// apply the change feed's deletes and upserts, persist the new cursor.
//
// Hard preconditions: a stored cursor must exist (ErrNoCursor) and the
// feed must yield a new one (ErrNoNewCursor) — the cursor anchors the
// pipeline's correctness and is never synthesized. Per-change failures
// are isolated into the report.
func (s *Syncer) SyncChanges(ctx context.Context) (*Report, error) {
	state := NewStateStore(s.state)

	startToken, err := state.StartPageToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("load start page token: %w", err)
	}
	if startToken == "" {
		return nil, ErrNoCursor
	}

	changes, newToken := s.drive.Changes(ctx, startToken)
	if newToken == "" {
		// a truncated feed read must not advance the cursor, otherwise
		// the unprocessed tail would be lost
		return nil, ErrNoNewCursor
	}
	slog.Info("change feed read", "changes", len(changes))

	report := &Report{Errors: []string{}}
	for _, change := range changes {
		if err := s.applyChange(ctx, state, change, report); err != nil {
			slog.Warn("change failed", "file", change.FileID, "error", err)
			report.Errors = append(report.Errors, err.Error())
		}
	}

	if err := state.SetStartPageToken(ctx, newToken); err != nil {
		return nil, fmt.Errorf("persist start page token: %w", err)
	}
	slog.Info("incremental sync complete", "processed", report.Processed, "errors", len(report.Errors))

	s.triggerIngestion(ctx)
	return report, nil
}

func (s *Syncer) applyChange(ctx context.Context, state *StateStore, change *drive.Change, report *Report) error {
	if change.Removed {
		return s.applyRemoval(ctx, state, change.FileID, report)
	}

	file := change.File
	if file == nil || !drive.IsSupportedType(file.MimeType) {
		return nil
	}
	if err := s.syncFile(ctx, state, file); err != nil {
		return err
	}
	report.Processed++
	return nil
}

// applyRemoval deletes the stored object and both metadata records. A
// removal for an unmapped file is silently skipped — it was never synced
// or is already gone.
func (s *Syncer) applyRemoval(ctx context.Context, state *StateStore, fileID string, report *Report) error {
	mapping, err := state.FileMapping(ctx, fileID)
	if err != nil {
		return fmt.Errorf("lookup mapping %s: %w", fileID, err)
	}
	if mapping == nil {
		return nil
	}

	if err := s.docs.Delete(ctx, mapping.S3Key); err != nil {
		return fmt.Errorf("delete object %s: %w", mapping.S3Key, err)
	}
	if err := state.RemoveFileMapping(ctx, fileID); err != nil {
		return fmt.Errorf("remove mapping %s: %w", fileID, err)
	}
	if err := state.RemoveFolderEntry(ctx, fileID); err != nil {
		return fmt.Errorf("remove folder entry %s: %w", fileID, err)
	}

	report.Processed++
	return nil
}
