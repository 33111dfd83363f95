package drive

import (
	"context"
	"fmt"
	"log/slog"
)

const changeFields = "newStartPageToken, nextPageToken, changes(fileId, removed, time, file(" + fileFields + "))"

// StartPageToken fetches a fresh cursor marking "changes from now on".
func (c *Client) StartPageToken(ctx context.Context) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	resp, err := c.svc.Changes.GetStartPageToken().
		SupportsAllDrives(true).
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get start page token: %w", err)
	}
	return resp.StartPageToken, nil
}

// Changes reads the change feed from startToken until the feed reports a
// terminal newStartPageToken. Returned changes are filtered to removals
// and supported-type file updates.
//
// A page fetch error truncates the read: the accumulated changes are
// returned with an empty new token, and the caller must not advance its
// stored cursor.
func (c *Client) Changes(ctx context.Context, startToken string) ([]*Change, string) {
	var changes []*Change
	pageToken := startToken
	newStartToken := ""

	for pageToken != "" {
		if err := c.limiter.Wait(ctx); err != nil {
			slog.Warn("drive changes read aborted", "error", err)
			return changes, ""
		}
		page, err := c.svc.Changes.List(pageToken).
			Spaces("drive").
			Fields(changeFields).
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Context(ctx).Do()
		if err != nil {
			slog.Warn("drive changes page failed", "error", err)
			return changes, ""
		}

		for _, ch := range page.Changes {
			if !ch.Removed && (ch.File == nil || !IsSupportedType(ch.File.MimeType)) {
				continue
			}
			change := &Change{
				FileID:  ch.FileId,
				Removed: ch.Removed,
				Time:    ch.Time,
			}
			if ch.File != nil {
				change.File = toFile(ch.File)
			}
			changes = append(changes, change)
		}

		if page.NewStartPageToken != "" {
			newStartToken = page.NewStartPageToken
			break
		}
		pageToken = page.NextPageToken
	}

	return changes, newStartToken
}
