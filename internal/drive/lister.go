package drive

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bmatcuk/doublestar/v4"
	mapset "github.com/deckarep/golang-set/v2"
	gdrive "google.golang.org/api/drive/v3"
)

// ListAllFiles walks the folder tree rooted at rootFolderID breadth-first
// and returns every supported file in the subtree, with shortcuts resolved
// to their targets. Output order is unspecified.
//
// Failure policy: an inaccessible root yields an empty result; a page
// listing error abandons the remaining pages of that folder only.
func (c *Client) ListAllFiles(ctx context.Context, rootFolderID string) []*File {
	var results []*File

	if err := c.limiter.Wait(ctx); err != nil {
		return results
	}
	root, err := c.svc.Files.Get(rootFolderID).
		Fields("id, name, mimeType").
		SupportsAllDrives(true).
		Context(ctx).Do()
	if err != nil {
		slog.Warn("drive root folder inaccessible", "folder", rootFolderID, "error", err)
		return results
	}
	slog.Info("drive scan start", "folder", root.Name, "id", root.Id)

	pending := []string{rootFolderID}
	visited := mapset.NewSet[string]()

	for len(pending) > 0 {
		folderID := pending[0]
		pending = pending[1:]

		// shortcut cycles can re-enqueue a folder
		if !visited.Add(folderID) {
			continue
		}

		files, subfolders := c.listFolder(ctx, folderID)
		results = append(results, files...)
		pending = append(pending, subfolders...)
	}

	slog.Info("drive scan done", "files", len(results), "folders", visited.Cardinality())
	return results
}

// listFolder pages through one folder's children and classifies them.
func (c *Client) listFolder(ctx context.Context, folderID string) (files []*File, subfolders []string) {
	query := fmt.Sprintf("'%s' in parents and trashed=false", folderID)
	pageToken := ""

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return files, subfolders
		}
		page, err := c.svc.Files.List().
			Q(query).
			Spaces("drive").
			Fields("nextPageToken, files(" + fileFields + ")").
			PageToken(pageToken).
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Context(ctx).Do()
		if err != nil {
			// keep what we have, skip the rest of this folder
			slog.Warn("drive folder listing failed", "folder", folderID, "error", err)
			return files, subfolders
		}

		for _, item := range page.Files {
			folder, file := classify(item)
			switch {
			case folder != "":
				subfolders = append(subfolders, folder)
			case file != nil:
				if c.excluded(file.Name) {
					slog.Debug("drive file excluded", "name", file.Name)
					continue
				}
				files = append(files, file)
			}
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			return files, subfolders
		}
	}
}

// classify maps one listed child to either a folder to enqueue or a file
// to keep. Shortcuts carry the shortcut's display name but the target's
// id, type and parents. Everything else is dropped.
func classify(item *gdrive.File) (folderID string, file *File) {
	switch {
	case item.MimeType == MimeTypeFolder:
		return item.Id, nil

	case item.MimeType == MimeTypeShortcut:
		d := item.ShortcutDetails
		if d == nil || d.TargetId == "" || d.TargetMimeType == "" {
			return "", nil
		}
		if d.TargetMimeType == MimeTypeFolder {
			return d.TargetId, nil
		}
		if !IsSupportedType(d.TargetMimeType) {
			return "", nil
		}
		return "", &File{
			ID:       d.TargetId,
			Name:     item.Name,
			MimeType: d.TargetMimeType,
			Parents:  item.Parents,
		}

	case IsSupportedType(item.MimeType):
		return "", toFile(item)

	default:
		return "", nil
	}
}

func (c *Client) excluded(name string) bool {
	for _, pattern := range c.exclude {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
