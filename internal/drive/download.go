package drive

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Download fetches a file's bytes. PDFs are downloaded directly; the
// three Workspace types are exported server-side to PDF. Any transport
// error is returned for the caller to record as a per-file failure.
func (c *Client) Download(ctx context.Context, fileID, mimeType string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var resp *http.Response
	var err error
	if mimeType == MimeTypePDF {
		resp, err = c.svc.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	} else {
		resp, err = c.svc.Files.Export(fileID, MimeTypePDF).Context(ctx).Download()
	}
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fileID, err)
	}
	return data, nil
}
