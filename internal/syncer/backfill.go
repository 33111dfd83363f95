package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/draftwise/ragbox/internal/drive"
)

// Backfill performs the full-tree synchronization pass: capture a fresh
// cursor, list everything under the root folder, upload each file under
// its derived key, record mappings, then persist the cursor.
//
// The cursor is captured before listing so a later incremental pass picks
// up anything added mid-crawl; double-processing is harmless because
// upserts are idempotent. The cursor is persisted unconditionally after
// all files were attempted, even when some failed.
func (s *Syncer) Backfill(ctx context.Context) (*Report, error) {
	state := NewStateStore(s.state)

	startToken, err := s.drive.StartPageToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture start page token: %w", err)
	}

	files := s.drive.ListAllFiles(ctx, s.rootFolderID)
	slog.Info("backfill listing complete", "files", len(files))

	report := &Report{Errors: []string{}}
	for i, file := range files {
		slog.Info("backfill file", "n", i+1, "of", len(files), "name", file.Name, "type", file.MimeType)
		if err := s.syncFile(ctx, state, file); err != nil {
			slog.Warn("backfill file failed", "name", file.Name, "error", err)
			report.Errors = append(report.Errors, err.Error())
			continue
		}
		report.Processed++
	}

	if err := state.SetStartPageToken(ctx, startToken); err != nil {
		return nil, fmt.Errorf("persist start page token: %w", err)
	}
	slog.Info("backfill complete", "processed", report.Processed, "errors", len(report.Errors))

	s.triggerIngestion(ctx)
	return report, nil
}

// syncFile is the shared upsert: download, upload under the derived key,
// record the mapping and the folder entry. Errors are per-file.
func (s *Syncer) syncFile(ctx context.Context, state *StateStore, file *drive.File) error {
	data, err := s.drive.Download(ctx, file.ID, file.MimeType)
	if err != nil {
		return fmt.Errorf("download %q: %w", file.Name, err)
	}
	slog.Debug("downloaded", "name", file.Name, "size", humanize.Bytes(uint64(len(data))))

	key := DeriveStorageKey(file.ID, file.Name)
	if err := s.docs.Put(ctx, key, data, drive.MimeTypePDF); err != nil {
		return fmt.Errorf("upload %q: %w", file.Name, err)
	}

	if err := state.SetFileMapping(ctx, file.ID, key, ContentHash(data)); err != nil {
		return fmt.Errorf("record mapping %q: %w", file.Name, err)
	}

	// folder placement is best-effort, first parent only
	if len(file.Parents) > 0 {
		if err := state.SetFolderEntry(ctx, file.ID, file.Parents[0], file.Name); err != nil {
			slog.Warn("record folder entry failed", "name", file.Name, "error", err)
		}
	}

	return nil
}
