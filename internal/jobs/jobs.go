// Package jobs runs named background tasks off a priority queue and
// keeps their status queryable by id.
package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/draftwise/ragbox/internal/queue"
	"github.com/draftwise/ragbox/internal/syncer"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Priorities, lower runs first.
const (
	PriorityHigh   = 0
	PriorityNormal = 10
)

// Job is one queued unit of work. Run produces a sync report; both the
// report and any error are kept for status queries.
type Job struct {
	ID         string         `json:"job_id"`
	Kind       string         `json:"kind"`
	Status     Status         `json:"status"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Report     *syncer.Report `json:"report,omitempty"`
	Error      string         `json:"error,omitempty"`

	run func(ctx context.Context) (*syncer.Report, error)
}

// Manager owns the queue and a worker draining it one job at a time.
// Long-running jobs like a full backfill must not overlap, so a single
// worker is deliberate.
type Manager struct {
	queue  *queue.PriorityQueue[*Job]
	notify chan struct{}

	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewManager() *Manager {
	return &Manager{
		queue:  queue.NewPriorityQueue[*Job](),
		notify: make(chan struct{}, 1),
		jobs:   make(map[string]*Job),
	}
}

// Enqueue registers a job and queues it for the worker.
func (m *Manager) Enqueue(kind string, priority int, run func(ctx context.Context) (*syncer.Report, error)) *Job {
	job := &Job{
		ID:         uuid.NewString(),
		Kind:       kind,
		Status:     StatusPending,
		EnqueuedAt: time.Now().UTC(),
		run:        run,
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	m.queue.Enqueue(job, priority)
	select {
	case m.notify <- struct{}{}:
	default:
	}

	slog.Info("job enqueued", "id", job.ID, "kind", kind, "priority", priority)
	return job
}

// Get returns a snapshot of the job with the given id.
func (m *Manager) Get(id string) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Run drains the queue until the context is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.notify:
		}

		for {
			job, ok := m.queue.Dequeue()
			if !ok {
				break
			}
			m.execute(ctx, job)
		}
	}
}

func (m *Manager) execute(ctx context.Context, job *Job) {
	now := time.Now().UTC()
	m.setState(job, func(j *Job) {
		j.Status = StatusRunning
		j.StartedAt = &now
	})
	slog.Info("job start", "id", job.ID, "kind", job.Kind)

	report, err := job.run(ctx)

	done := time.Now().UTC()
	m.setState(job, func(j *Job) {
		j.FinishedAt = &done
		j.Report = report
		if err != nil {
			j.Status = StatusFailed
			j.Error = err.Error()
		} else {
			j.Status = StatusSucceeded
		}
	})

	if err != nil {
		slog.Error("job failed", "id", job.ID, "kind", job.Kind, "error", err)
		return
	}
	slog.Info("job done", "id", job.ID, "kind", job.Kind, "duration", done.Sub(now))
}

func (m *Manager) setState(job *Job, mutate func(*Job)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mutate(job)
}
