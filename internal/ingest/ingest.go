// Package ingest triggers the downstream search-index ingestion job after
// a sync pass lands new documents in the object store.
package ingest

import "context"

// Trigger starts the downstream ingestion job. Implementations must be
// safe to call after every sync pass; failures are the caller's to log,
// never to propagate.
type Trigger interface {
	StartSync(ctx context.Context) (executionID string, err error)
}
