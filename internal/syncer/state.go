package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/draftwise/ragbox/internal/blob"
)

// Blob keys of the two state documents.
const (
	syncStateKey  = "sync_state.json"
	folderMetaKey = "folder_metadata.json"
)

// FileMapping links a Drive file to its stored object. The s3Key, once
// assigned, is stable for the file's lifetime (derived from id+name, not
// reassigned on rename).
type FileMapping struct {
	S3Key        string `json:"s3Key"`
	MD5Hash      string `json:"md5Hash"`
	LastModified string `json:"lastModified"`
}

// FolderEntry is best-effort, human-readable placement metadata. A file
// with multiple parents records only the first.
type FolderEntry struct {
	Path         string `json:"path"`
	OriginalName string `json:"originalName"`
}

type syncStateDoc struct {
	StartPageToken string                  `json:"startPageToken"`
	LastSyncTime   string                  `json:"lastSyncTime"`
	FileMap        map[string]*FileMapping `json:"fileMap"`
}

type folderMetaDoc struct {
	FolderMap map[string]*FolderEntry `json:"folderMap"`
}

// StateStore reads and writes the two sync-state documents in the state
// bucket. Both are lazily loaded once and written back whole on every
// mutation, so a StateStore must live no longer than a single sync pass:
// each pass opens a fresh one and sees the latest persisted documents.
// Concurrent passes race last-writer-wins at the blob level (see
// DESIGN.md).
type StateStore struct {
	store   blob.Store
	state   *syncStateDoc
	folders *folderMetaDoc
}

func NewStateStore(store blob.Store) *StateStore {
	return &StateStore{store: store}
}

func (s *StateStore) loadState(ctx context.Context) (*syncStateDoc, error) {
	if s.state != nil {
		return s.state, nil
	}

	doc := &syncStateDoc{FileMap: make(map[string]*FileMapping)}
	data, err := s.store.Get(ctx, syncStateKey)
	switch {
	case errors.Is(err, blob.ErrKeyNotFound):
		// first run, start from the empty shape
	case err != nil:
		return nil, fmt.Errorf("load sync state: %w", err)
	default:
		if err := jsonUnmarshal(data, doc); err != nil {
			return nil, fmt.Errorf("decode sync state: %w", err)
		}
		if doc.FileMap == nil {
			doc.FileMap = make(map[string]*FileMapping)
		}
	}

	s.state = doc
	return doc, nil
}

func (s *StateStore) loadFolders(ctx context.Context) (*folderMetaDoc, error) {
	if s.folders != nil {
		return s.folders, nil
	}

	doc := &folderMetaDoc{FolderMap: make(map[string]*FolderEntry)}
	data, err := s.store.Get(ctx, folderMetaKey)
	switch {
	case errors.Is(err, blob.ErrKeyNotFound):
	case err != nil:
		return nil, fmt.Errorf("load folder metadata: %w", err)
	default:
		if err := jsonUnmarshal(data, doc); err != nil {
			return nil, fmt.Errorf("decode folder metadata: %w", err)
		}
		if doc.FolderMap == nil {
			doc.FolderMap = make(map[string]*FolderEntry)
		}
	}

	s.folders = doc
	return doc, nil
}

func (s *StateStore) saveState(ctx context.Context, doc *syncStateDoc) error {
	data, err := jsonMarshal(doc)
	if err != nil {
		return fmt.Errorf("encode sync state: %w", err)
	}
	if err := s.store.Put(ctx, syncStateKey, data, "application/json"); err != nil {
		return fmt.Errorf("save sync state: %w", err)
	}
	return nil
}

func (s *StateStore) saveFolders(ctx context.Context, doc *folderMetaDoc) error {
	data, err := jsonMarshal(doc)
	if err != nil {
		return fmt.Errorf("encode folder metadata: %w", err)
	}
	if err := s.store.Put(ctx, folderMetaKey, data, "application/json"); err != nil {
		return fmt.Errorf("save folder metadata: %w", err)
	}
	return nil
}

// StartPageToken returns the stored cursor, empty when none was persisted.
func (s *StateStore) StartPageToken(ctx context.Context) (string, error) {
	doc, err := s.loadState(ctx)
	if err != nil {
		return "", err
	}
	return doc.StartPageToken, nil
}

// SetStartPageToken overwrites the cursor and stamps the sync time.
func (s *StateStore) SetStartPageToken(ctx context.Context, token string) error {
	doc, err := s.loadState(ctx)
	if err != nil {
		return err
	}
	doc.StartPageToken = token
	doc.LastSyncTime = time.Now().UTC().Format(time.RFC3339)
	return s.saveState(ctx, doc)
}

// FileMapping returns the mapping for fileID, or nil when none exists.
func (s *StateStore) FileMapping(ctx context.Context, fileID string) (*FileMapping, error) {
	doc, err := s.loadState(ctx)
	if err != nil {
		return nil, err
	}
	return doc.FileMap[fileID], nil
}

// SetFileMapping upserts a mapping and persists the document.
func (s *StateStore) SetFileMapping(ctx context.Context, fileID, s3Key, md5Hash string) error {
	doc, err := s.loadState(ctx)
	if err != nil {
		return err
	}
	doc.FileMap[fileID] = &FileMapping{
		S3Key:        s3Key,
		MD5Hash:      md5Hash,
		LastModified: time.Now().UTC().Format(time.RFC3339),
	}
	return s.saveState(ctx, doc)
}

// RemoveFileMapping deletes a mapping. Removing an absent id is a no-op.
func (s *StateStore) RemoveFileMapping(ctx context.Context, fileID string) error {
	doc, err := s.loadState(ctx)
	if err != nil {
		return err
	}
	if _, ok := doc.FileMap[fileID]; !ok {
		return nil
	}
	delete(doc.FileMap, fileID)
	return s.saveState(ctx, doc)
}

// SetFolderEntry upserts placement metadata for a file.
func (s *StateStore) SetFolderEntry(ctx context.Context, fileID, path, originalName string) error {
	doc, err := s.loadFolders(ctx)
	if err != nil {
		return err
	}
	doc.FolderMap[fileID] = &FolderEntry{Path: path, OriginalName: originalName}
	return s.saveFolders(ctx, doc)
}

// RemoveFolderEntry deletes placement metadata. Absent ids are a no-op.
func (s *StateStore) RemoveFolderEntry(ctx context.Context, fileID string) error {
	doc, err := s.loadFolders(ctx)
	if err != nil {
		return err
	}
	if _, ok := doc.FolderMap[fileID]; !ok {
		return nil
	}
	delete(doc.FolderMap, fileID)
	return s.saveFolders(ctx, doc)
}
