package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/draftwise/ragbox/internal/blob"
	"github.com/draftwise/ragbox/internal/chatstore"
	"github.com/draftwise/ragbox/internal/drive"
	"github.com/draftwise/ragbox/internal/ingest"
	"github.com/draftwise/ragbox/internal/jobs"
	"github.com/draftwise/ragbox/internal/syncer"
)

type Services struct {
	Docs     *blob.S3Store
	State    *blob.S3Store
	Exports  *blob.S3Store
	Drive    *drive.Client
	Syncer   *syncer.Syncer
	Chat     *chatstore.Store
	Exporter *chatstore.Exporter
	Index    *ingest.KendraSync
	Jobs     *jobs.Manager
}

func NewServices(ctx context.Context, config *Config, database *sqlx.DB) (*Services, error) {
	s3Client, err := blob.NewS3Client(ctx, &config.S3)
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	docs := blob.NewS3Store(s3Client, config.Buckets.Docs)
	state := blob.NewS3Store(s3Client, config.Buckets.State)
	exports := blob.NewS3Store(s3Client, config.Buckets.Exports)

	credentials, err := driveCredentials(ctx, &config.Drive, config.S3.Region)
	if err != nil {
		return nil, fmt.Errorf("resolve drive credentials: %w", err)
	}
	driveClient, err := drive.NewClient(ctx, &drive.Config{
		CredentialsJSON: credentials,
		ExcludePatterns: config.Drive.ExcludePatterns,
	})
	if err != nil {
		return nil, fmt.Errorf("create drive client: %w", err)
	}

	var index *ingest.KendraSync
	var trigger ingest.Trigger
	if config.Kendra.IsConfigured() {
		index, err = ingest.NewKendraSync(ctx, &config.Kendra)
		if err != nil {
			return nil, fmt.Errorf("create kendra sync: %w", err)
		}
		trigger = index
	} else {
		slog.Warn("no kendra index configured, ingestion trigger disabled")
	}

	syncSvc := syncer.New(driveClient, docs, state, trigger, config.Drive.RootFolderID)

	chatSvc, err := chatstore.New(database)
	if err != nil {
		return nil, fmt.Errorf("create chat store: %w", err)
	}

	return &Services{
		Docs:     docs,
		State:    state,
		Exports:  exports,
		Drive:    driveClient,
		Syncer:   syncSvc,
		Chat:     chatSvc,
		Exporter: chatstore.NewExporter(chatSvc, exports),
		Index:    index,
		Jobs:     jobs.NewManager(),
	}, nil
}

func (s *Services) Shutdown(ctx context.Context) error {
	if err := s.Chat.Close(); err != nil {
		return fmt.Errorf("close chat store: %w", err)
	}
	return nil
}
