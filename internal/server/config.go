package server

import (
	"fmt"

	"github.com/draftwise/ragbox/internal/blob"
	"github.com/draftwise/ragbox/internal/ingest"
)

const (
	DefaultAddr      = "127.0.0.1:8080"
	DefaultRateLimit = "120-M"
)

type Config struct {
	HTTP    HTTPConfig
	S3      blob.S3Config
	Buckets BucketConfig
	Drive   DriveConfig
	Kendra  ingest.KendraConfig
	Auth    AuthConfig

	DBPath string
	LogDir string
}

type HTTPConfig struct {
	Addr      string
	CertFile  string
	KeyFile   string
	RateLimit string
}

// BucketConfig names the three S3 buckets the service touches.
type BucketConfig struct {
	Docs    string // synced PDF documents, the index data source
	State   string // sync state and folder metadata documents
	Exports string // feedback CSV exports
}

type DriveConfig struct {
	// CredentialsFile points at a service account JSON key on disk.
	// CredentialsSecret names a Secrets Manager secret holding the same
	// JSON; it wins when both are set.
	CredentialsFile   string
	CredentialsSecret string

	RootFolderID    string
	ExcludePatterns []string
}

type AuthConfig struct {
	// JWTSecret signs admin tokens. Empty disables the admin gate.
	JWTSecret string
}

func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultAddr
	}
	if c.HTTP.RateLimit == "" {
		c.HTTP.RateLimit = DefaultRateLimit
	}
	if c.Buckets.Docs == "" {
		return fmt.Errorf("docs bucket is required")
	}
	if c.Buckets.State == "" {
		return fmt.Errorf("state bucket is required")
	}
	if c.Buckets.Exports == "" {
		c.Buckets.Exports = c.Buckets.State
	}
	if c.Drive.RootFolderID == "" {
		return fmt.Errorf("drive root folder id is required")
	}
	if c.Drive.CredentialsFile == "" && c.Drive.CredentialsSecret == "" {
		return fmt.Errorf("drive credentials file or secret is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	return nil
}
