package syncer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftwise/ragbox/internal/blob"
)

func TestStateStoreDefaultShape(t *testing.T) {
	ctx := context.Background()
	store := NewStateStore(blob.NewMemoryStore())

	token, err := store.StartPageToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	mapping, err := store.FileMapping(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, mapping)
}

func TestStateStoreCursorRoundTrip(t *testing.T) {
	ctx := context.Background()
	backing := blob.NewMemoryStore()

	store := NewStateStore(backing)
	require.NoError(t, store.SetStartPageToken(ctx, "token-42"))

	// a fresh store re-reads the persisted document
	fresh := NewStateStore(backing)
	token, err := fresh.StartPageToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-42", token)
}

func TestStateStoreFileMappings(t *testing.T) {
	ctx := context.Background()
	backing := blob.NewMemoryStore()
	store := NewStateStore(backing)

	require.NoError(t, store.SetFileMapping(ctx, "file1", "doc-file1.pdf", "abc123"))

	mapping, err := store.FileMapping(ctx, "file1")
	require.NoError(t, err)
	require.NotNil(t, mapping)
	assert.Equal(t, "doc-file1.pdf", mapping.S3Key)
	assert.Equal(t, "abc123", mapping.MD5Hash)
	assert.NotEmpty(t, mapping.LastModified)

	// every mutation writes the whole document back
	assert.True(t, backing.Has("sync_state.json"))

	require.NoError(t, store.RemoveFileMapping(ctx, "file1"))
	mapping, err = store.FileMapping(ctx, "file1")
	require.NoError(t, err)
	assert.Nil(t, mapping)

	// removing an absent id is a no-op
	require.NoError(t, store.RemoveFileMapping(ctx, "never-existed"))
}

func TestStateStoreFolderEntries(t *testing.T) {
	ctx := context.Background()
	backing := blob.NewMemoryStore()
	store := NewStateStore(backing)

	require.NoError(t, store.SetFolderEntry(ctx, "file1", "parent-id", "Report.docx"))
	assert.True(t, backing.Has("folder_metadata.json"))

	require.NoError(t, store.RemoveFolderEntry(ctx, "file1"))
	require.NoError(t, store.RemoveFolderEntry(ctx, "file1"))
}

func TestStateStoreCorruptDocument(t *testing.T) {
	ctx := context.Background()
	backing := blob.NewMemoryStore()
	require.NoError(t, backing.Put(ctx, "sync_state.json", []byte("{not json"), "application/json"))

	store := NewStateStore(backing)
	_, err := store.StartPageToken(ctx)
	assert.Error(t, err)
}
