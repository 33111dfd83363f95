package drive

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Google Drive MIME types the pipeline cares about.
const (
	MimeTypePDF      = "application/pdf"
	MimeTypeDoc      = "application/vnd.google-apps.document"
	MimeTypeSheet    = "application/vnd.google-apps.spreadsheet"
	MimeTypeSlides   = "application/vnd.google-apps.presentation"
	MimeTypeFolder   = "application/vnd.google-apps.folder"
	MimeTypeShortcut = "application/vnd.google-apps.shortcut"
)

// supportedMimeTypes is the fixed allow-list of syncable types: one raw
// binary type (PDF) and three Workspace types that export to PDF.
var supportedMimeTypes = map[string]struct{}{
	MimeTypePDF:    {},
	MimeTypeDoc:    {},
	MimeTypeSheet:  {},
	MimeTypeSlides: {},
}

// IsSupportedType reports whether a MIME type is in the sync allow-list.
func IsSupportedType(mimeType string) bool {
	_, ok := supportedMimeTypes[mimeType]
	return ok
}

const fileFields = "id, name, mimeType, md5Checksum, modifiedTime, parents, shortcutDetails"

// File is the slice of Drive file metadata the sync pipeline uses. It is
// ephemeral, fetched per listing or change call and never stored as-is.
type File struct {
	ID           string
	Name         string
	MimeType     string
	MD5Checksum  string
	ModifiedTime string
	Parents      []string
}

// Change is a single entry from the Drive changes feed, already filtered
// to removals and supported-type updates.
type Change struct {
	FileID  string
	Removed bool
	File    *File
	Time    string
}

// Config holds Drive client settings.
type Config struct {
	// CredentialsJSON is the service account key. Resolved by the caller,
	// either from disk or from a secrets manager.
	CredentialsJSON []byte

	// ExcludePatterns are doublestar globs matched against file names.
	// Matching files are skipped by the lister.
	ExcludePatterns []string

	// RateLimit overrides the default request rate. Zero means default.
	RateLimit RateLimitConfig
}

// Client wraps the Drive v3 API with rate limiting and the filtering
// rules of the sync pipeline.
type Client struct {
	svc     *gdrive.Service
	limiter *RateLimiter
	exclude []string
}

// NewClient builds a Drive client from service account credentials with
// read-only drive scope.
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	creds, err := google.CredentialsFromJSON(ctx, cfg.CredentialsJSON, gdrive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse drive credentials: %w", err)
	}

	svc, err := gdrive.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	limit := cfg.RateLimit
	if limit.RequestsPerSecond <= 0 {
		limit = DefaultRateLimit
	}

	return &Client{
		svc:     svc,
		limiter: NewRateLimiter(limit),
		exclude: cfg.ExcludePatterns,
	}, nil
}

func toFile(f *gdrive.File) *File {
	return &File{
		ID:           f.Id,
		Name:         f.Name,
		MimeType:     f.MimeType,
		MD5Checksum:  f.Md5Checksum,
		ModifiedTime: f.ModifiedTime,
		Parents:      f.Parents,
	}
}
