package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftwise/ragbox/internal/syncer"
)

func waitForStatus(t *testing.T, m *Manager, id string, want Status) Job {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("job %s never reached status %s", id, want)
		case <-time.After(10 * time.Millisecond):
		}
		job, ok := m.Get(id)
		require.True(t, ok)
		if job.Status == want {
			return job
		}
	}
}

func TestManagerRunsJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewManager()
	go m.Run(ctx)

	job := m.Enqueue("backfill", PriorityHigh, func(context.Context) (*syncer.Report, error) {
		return &syncer.Report{Processed: 3}, nil
	})
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, StatusPending, job.Status)

	done := waitForStatus(t, m, job.ID, StatusSucceeded)
	require.NotNil(t, done.Report)
	assert.Equal(t, 3, done.Report.Processed)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.FinishedAt)
	assert.Empty(t, done.Error)
}

func TestManagerRecordsFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewManager()
	go m.Run(ctx)

	job := m.Enqueue("backfill", PriorityHigh, func(context.Context) (*syncer.Report, error) {
		return nil, errors.New("drive unreachable")
	})

	failed := waitForStatus(t, m, job.ID, StatusFailed)
	assert.Equal(t, "drive unreachable", failed.Error)
	assert.Nil(t, failed.Report)
}

func TestManagerGetUnknown(t *testing.T) {
	m := NewManager()
	_, ok := m.Get("nope")
	assert.False(t, ok)
}

func TestManagerPriorityOrder(t *testing.T) {
	m := NewManager()

	ran := make(chan string, 2)
	record := func(name string) func(context.Context) (*syncer.Report, error) {
		return func(context.Context) (*syncer.Report, error) {
			ran <- name
			return &syncer.Report{}, nil
		}
	}

	// enqueue before the worker starts so priorities decide the order
	m.Enqueue("low", PriorityNormal, record("low"))
	m.Enqueue("high", PriorityHigh, record("high"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	var order []string
	for range 2 {
		select {
		case name := <-ran:
			order = append(order, name)
		case <-time.After(5 * time.Second):
			t.Fatal("jobs did not finish")
		}
	}

	assert.Equal(t, []string{"high", "low"}, order)
}
