package chatstore

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/draftwise/ragbox/internal/blob"
)

const (
	exportConcurrency = 4
	exportURLExpiry   = time.Hour
)

var (
	feedbackHeader = []string{
		"FeedbackID", "SessionID", "UserPrompt", "FeedbackComment",
		"Topic", "Rank", "Feedback", "ChatbotMessage", "CreatedAt",
	}
	interactionHeader = []string{
		"Timestamp", "Username", "User Prompt", "Bot Message", "Response Time",
	}
)

// Exporter renders feedback to CSV, uploads it to the exports bucket
// and hands back a presigned download link.
type Exporter struct {
	store   *Store
	exports blob.Store
}

// NewExporter creates an exporter writing to the given bucket.
func NewExporter(store *Store, exports blob.Store) *Exporter {
	return &Exporter{store: store, exports: exports}
}

// Export writes the feedback left within [start, end] to a CSV object
// named after the range and returns a presigned URL for it. With a
// session id only that session is exported, otherwise every session
// holding feedback in the range is, fetched concurrently.
func (e *Exporter) Export(ctx context.Context, sessionID, start, end string) (string, error) {
	sessionIDs := []string{sessionID}
	if sessionID == "" {
		var err error
		sessionIDs, err = e.store.SessionIDsWithFeedback(ctx, start, end)
		if err != nil {
			return "", err
		}
	}

	items, err := e.collect(ctx, sessionIDs, start, end)
	if err != nil {
		return "", err
	}

	records := make([][]string, 0, len(items))
	for _, item := range items {
		rank := ""
		if item.Rank != nil {
			rank = fmt.Sprintf("%g", *item.Rank)
		}
		records = append(records, []string{
			item.FeedbackID, item.SessionID, item.UserPrompt, item.FeedbackComment,
			item.Category, rank, item.Type, item.ChatbotMessage, item.CreatedAt,
		})
	}

	key := fmt.Sprintf("feedback-%s-%s.csv", start, end)
	return e.upload(ctx, key, feedbackHeader, records)
}

// ExportInteractions writes every exchange within [start, end] to a CSV
// object named after the date range and returns a presigned URL for it.
func (e *Exporter) ExportInteractions(ctx context.Context, start, end string) (string, error) {
	items, err := e.store.ListInteractions(ctx, start, end)
	if err != nil {
		return "", err
	}

	records := make([][]string, 0, len(items))
	for _, item := range items {
		records = append(records, []string{
			item.Timestamp, item.Username, item.UserPrompt, item.BotMessage,
			strconv.FormatFloat(item.ResponseTime, 'g', -1, 64),
		})
	}

	key := fmt.Sprintf("interaction-data-%s_to_%s.csv", dateOf(start), dateOf(end))
	return e.upload(ctx, key, interactionHeader, records)
}

func (e *Exporter) upload(ctx context.Context, key string, header []string, records [][]string) (string, error) {
	content, err := renderCSV(header, records)
	if err != nil {
		return "", err
	}

	if err := e.exports.Put(ctx, key, content, "text/csv"); err != nil {
		return "", fmt.Errorf("failed to upload export %s: %w", key, err)
	}

	url, err := e.exports.PresignGet(ctx, key, exportURLExpiry)
	if err != nil {
		return "", fmt.Errorf("failed to presign export %s: %w", key, err)
	}
	return url, nil
}

// dateOf trims a sortable timestamp to its date part.
func dateOf(ts string) string {
	if len(ts) > 10 {
		return ts[:10]
	}
	return ts
}

func (e *Exporter) collect(ctx context.Context, sessionIDs []string, start, end string) ([]FeedbackItem, error) {
	var mu sync.Mutex
	var items []FeedbackItem

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(exportConcurrency)
	for _, id := range sessionIDs {
		g.Go(func() error {
			found, err := e.store.FeedbackForSession(ctx, id, start, end)
			if err != nil {
				return err
			}
			mu.Lock()
			items = append(items, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// concurrent collection scrambles order
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt != items[j].CreatedAt {
			return items[i].CreatedAt > items[j].CreatedAt
		}
		return items[i].FeedbackID < items[j].FeedbackID
	})
	return items, nil
}

func renderCSV(header []string, records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, record := range records {
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write csv record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
