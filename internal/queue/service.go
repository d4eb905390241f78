// Package queue is the collaborator-facing surface of the job queue. The CLI
// and the HTTP API both drive the store and the worker pool through it.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/queuectl/internal/domain"
	"github.com/cuongbtq/queuectl/internal/lifecycle"
	"github.com/cuongbtq/queuectl/internal/storage"
)

// ErrNoWorkerPool is returned by worker control calls on a service built without a pool
var ErrNoWorkerPool = errors.New("worker pool not available")

// Store is the job store surface the service depends on
type Store interface {
	Create(ctx context.Context, job *domain.Job) error
	Get(ctx context.Context, jobID string) (*domain.Job, error)
	Save(ctx context.Context, job *domain.Job) error
	List(ctx context.Context, filter storage.JobFilter) ([]domain.Job, error)
	ListByState(ctx context.Context, state string) ([]domain.Job, error)
	AggregateCounts(ctx context.Context) (domain.StateCounts, error)
	GetConfig(ctx context.Context) (domain.QueueConfig, error)
	SaveConfig(ctx context.Context, cfg domain.QueueConfig) error
}

// WorkerPool is the worker control surface
type WorkerPool interface {
	Start(ctx context.Context, count int) ([]string, error)
	Stop() int
	ActiveWorkers() []domain.WorkerInfo
	WorkerCount() int
}

// Notifier receives an event after a manual transition is persisted
type Notifier interface {
	Notify(ctx context.Context, event domain.JobEvent) error
}

// Status is the aggregate queue snapshot
type Status struct {
	Counts      domain.StateCounts  `json:"counts"`
	WorkerCount int                 `json:"worker_count"`
	Workers     []domain.WorkerInfo `json:"workers"`
}

// Service implements enqueue, inspection, DLQ, config and worker control
type Service struct {
	store    Store
	pool     WorkerPool
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// Config holds service dependencies; Pool and Notifier are optional
type Config struct {
	Store    Store
	Pool     WorkerPool
	Notifier Notifier
	Logger   *slog.Logger
	Clock    func() time.Time
}

// NewService creates a new Service instance
func NewService(cfg *Config) *Service {
	s := &Service{
		store:    cfg.Store,
		pool:     cfg.Pool,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
		now:      cfg.Clock,
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ParseEnqueueRequest decodes a JSON enqueue payload
func ParseEnqueueRequest(payload []byte) (domain.EnqueueRequest, error) {
	var req domain.EnqueueRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return domain.EnqueueRequest{}, domain.InvalidInputf("malformed job payload: %v", err)
	}
	return req, nil
}

// Enqueue creates a PENDING job. max_retries defaults to the durable config.
func (s *Service) Enqueue(ctx context.Context, req domain.EnqueueRequest) (*domain.Job, error) {
	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return nil, err
	}

	job, err := lifecycle.Enqueue(req, cfg, s.now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("Job enqueued",
		slog.String("job_id", job.ID),
		slog.String("command", job.Command),
		slog.Int("max_retries", job.MaxRetries),
	)
	return job, nil
}

// GetJob returns a job by id
func (s *Service) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	return s.store.Get(ctx, jobID)
}

// List returns jobs newest first, optionally filtered by state
func (s *Service) List(ctx context.Context, state string, limit int) ([]domain.Job, error) {
	if state != "" && !domain.IsValidState(state) {
		return nil, domain.InvalidInputf("unknown state %q", state)
	}
	if limit < 0 {
		return nil, domain.InvalidInputf("limit must not be negative, got %d", limit)
	}
	return s.store.List(ctx, storage.JobFilter{State: state, Limit: limit})
}

// ListDead returns the dead letter queue, oldest first; limit 0 means all
func (s *Service) ListDead(ctx context.Context, limit int) ([]domain.Job, error) {
	jobs, err := s.store.ListByState(ctx, domain.StateDead)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// RetryDead moves a DEAD job back to PENDING with a fresh attempt budget.
// Jobs that are missing or not DEAD are reported as not found.
func (s *Service) RetryDead(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.State != domain.StateDead {
		return nil, fmt.Errorf("%w: %s is not in the dead letter queue (state %s)", domain.ErrJobNotFound, jobID, job.State)
	}

	if err := lifecycle.Requeue(job, s.now().UTC()); err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("Job moved from dead letter queue to pending",
		slog.String("job_id", job.ID),
	)

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, domain.NewJobEvent(job)); err != nil {
			s.logger.Warn("Failed to publish job event",
				slog.String("job_id", job.ID),
				slog.Any("error", err),
			)
		}
	}
	return job, nil
}

// Status returns per-state counts and the worker snapshot
func (s *Service) Status(ctx context.Context) (*Status, error) {
	counts, err := s.store.AggregateCounts(ctx)
	if err != nil {
		return nil, err
	}

	status := &Status{
		Counts:  counts,
		Workers: []domain.WorkerInfo{},
	}
	if s.pool != nil {
		status.Workers = s.pool.ActiveWorkers()
		status.WorkerCount = len(status.Workers)
	}
	return status, nil
}

// StartWorkers adds count workers to the pool
func (s *Service) StartWorkers(ctx context.Context, count int) ([]string, error) {
	if s.pool == nil {
		return nil, ErrNoWorkerPool
	}
	return s.pool.Start(ctx, count)
}

// StopWorkers stops every running worker and returns how many confirmed exit
func (s *Service) StopWorkers() (int, error) {
	if s.pool == nil {
		return 0, ErrNoWorkerPool
	}
	return s.pool.Stop(), nil
}

// Workers returns the running workers
func (s *Service) Workers() []domain.WorkerInfo {
	if s.pool == nil {
		return []domain.WorkerInfo{}
	}
	return s.pool.ActiveWorkers()
}
