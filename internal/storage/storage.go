// Package storage is the durable job store. It is the only shared mutable
// resource between workers; the claim operation is its atomicity primitive.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cuongbtq/queuectl/internal/domain"
	"github.com/cuongbtq/queuectl/shared/database"
	"github.com/jmoiron/sqlx"
)

// configRowID is the primary key of the single queue_config row
const configRowID = 1

// Storage handles all database operations for jobs and queue config
type Storage struct {
	db     *sqlx.DB
	driver string
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Storage.
type Option func(*Storage)

// WithClock overrides the time source used by claims and recovery.
func WithClock(now func() time.Time) Option {
	return func(s *Storage) { s.now = now }
}

// NewStorage creates a new Storage instance over an open database client
func NewStorage(client *database.Client, logger *slog.Logger, opts ...Option) *Storage {
	s := &Storage{
		db:     client.GetDB(),
		driver: client.Driver(),
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Storage) clock() time.Time {
	return s.now().UTC()
}

// Init creates the schema and writes the default queue config if none exists
func (s *Storage) Init(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaFor(s.driver), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return domain.NewStorageError("init schema", err)
		}
	}

	defaults := domain.DefaultQueueConfig()
	query := s.db.Rebind(`
		INSERT INTO queue_config (id, max_retries, backoff_base, worker_poll_interval)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`)
	if _, err := s.db.ExecContext(ctx, query, configRowID, defaults.MaxRetries, defaults.BackoffBase, defaults.WorkerPollInterval); err != nil {
		return domain.NewStorageError("init config", err)
	}

	return nil
}

// Create inserts a new job; it fails with ErrJobAlreadyExists if the id is taken
func (s *Storage) Create(ctx context.Context, job *domain.Job) error {
	query := s.db.Rebind(`
		INSERT INTO jobs (` + jobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`)

	result, err := s.db.ExecContext(ctx, query, jobArgs(job)...)
	if err != nil {
		return domain.NewStorageError("create job", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return domain.NewStorageError("create job", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrJobAlreadyExists, job.ID)
	}

	s.logger.Debug("Job created",
		slog.String("job_id", job.ID),
		slog.String("state", job.State),
	)
	return nil
}

// Save upserts a job by id, overwriting every mutable field
func (s *Storage) Save(ctx context.Context, job *domain.Job) error {
	query := s.db.Rebind(`
		INSERT INTO jobs (` + jobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			state = excluded.state,
			attempts = excluded.attempts,
			max_retries = excluded.max_retries,
			updated_at = excluded.updated_at,
			next_retry_at = excluded.next_retry_at,
			error_message = excluded.error_message,
			output = excluded.output
	`)

	if _, err := s.db.ExecContext(ctx, query, jobArgs(job)...); err != nil {
		return domain.NewStorageError("save job", err)
	}

	s.logger.Debug("Job saved",
		slog.String("job_id", job.ID),
		slog.String("state", job.State),
		slog.Int("attempts", job.Attempts),
	)
	return nil
}

// Get retrieves a job by id
func (s *Storage) Get(ctx context.Context, jobID string) (*domain.Job, error) {
	query := s.db.Rebind(`SELECT ` + jobColumns + ` FROM jobs WHERE id = ?`)

	var job domain.Job
	if err := s.db.GetContext(ctx, &job, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, jobID)
		}
		return nil, domain.NewStorageError("get job", err)
	}
	normalize(&job)
	return &job, nil
}

// ListByState returns every job in state, oldest first
func (s *Storage) ListByState(ctx context.Context, state string) ([]domain.Job, error) {
	query := s.db.Rebind(`
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE state = ?
		ORDER BY created_at ASC, id ASC
	`)

	jobs := []domain.Job{}
	if err := s.db.SelectContext(ctx, &jobs, query, state); err != nil {
		return nil, domain.NewStorageError("list jobs by state", err)
	}
	for i := range jobs {
		normalize(&jobs[i])
	}
	return jobs, nil
}

// JobFilter narrows List results
type JobFilter struct {
	State string
	Limit int
}

// List returns jobs newest first, optionally filtered by state
func (s *Storage) List(ctx context.Context, filter JobFilter) ([]domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	args := []interface{}{}

	if filter.State != "" {
		query += " AND state = ?"
		args = append(args, filter.State)
	}

	query += " ORDER BY created_at DESC, id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	jobs := []domain.Job{}
	if err := s.db.SelectContext(ctx, &jobs, s.db.Rebind(query), args...); err != nil {
		return nil, domain.NewStorageError("list jobs", err)
	}
	for i := range jobs {
		normalize(&jobs[i])
	}
	return jobs, nil
}

// ClaimNextEligible atomically moves the oldest eligible job to PROCESSING and
// returns it. A job is eligible when it is PENDING, or FAILED with
// next_retry_at <= now. Returns (nil, nil) when nothing is claimable.
//
// The claim is a compare-and-set: the UPDATE re-checks the eligibility
// predicate on the selected row, so when two callers pick the same candidate
// only one update matches and the loser selects again. Every lost race means
// another caller claimed a row, so the loop ends once no eligible row is left.
func (s *Storage) ClaimNextEligible(ctx context.Context) (*domain.Job, error) {
	selectQuery := s.db.Rebind(`
		SELECT id FROM jobs
		WHERE state = ? OR (state = ? AND next_retry_at <= ?)
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`)
	claimQuery := s.db.Rebind(`
		UPDATE jobs
		SET state = ?, next_retry_at = NULL, updated_at = ?
		WHERE id = ?
		  AND (state = ? OR (state = ? AND next_retry_at <= ?))
	`)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		now := s.clock()

		var jobID string
		err := s.db.GetContext(ctx, &jobID, selectQuery, domain.StatePending, domain.StateFailed, now)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, domain.NewStorageError("select eligible job", err)
		}

		result, err := s.db.ExecContext(ctx, claimQuery,
			domain.StateProcessing, now,
			jobID,
			domain.StatePending, domain.StateFailed, now,
		)
		if err != nil {
			return nil, domain.NewStorageError("claim job", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return nil, domain.NewStorageError("claim job", err)
		}
		if rowsAffected == 0 {
			s.logger.Debug("Lost claim race, selecting again",
				slog.String("job_id", jobID),
			)
			continue
		}

		// The row is now PROCESSING and owned by this caller, so the read-back is stable
		job, err := s.Get(ctx, jobID)
		if err != nil {
			return nil, err
		}

		s.logger.Debug("Job claimed",
			slog.String("job_id", job.ID),
			slog.Int("attempts", job.Attempts),
		)
		return job, nil
	}
}

// ResetProcessing moves every PROCESSING job back to PENDING and returns how
// many were moved. Only safe when no worker in any process holds a claim.
func (s *Storage) ResetProcessing(ctx context.Context) (int64, error) {
	query := s.db.Rebind(`
		UPDATE jobs
		SET state = ?, updated_at = ?
		WHERE state = ?
	`)

	result, err := s.db.ExecContext(ctx, query, domain.StatePending, s.clock(), domain.StateProcessing)
	if err != nil {
		return 0, domain.NewStorageError("reset processing jobs", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, domain.NewStorageError("reset processing jobs", err)
	}
	return rowsAffected, nil
}

// AggregateCounts returns the number of jobs in each state; every state is present
func (s *Storage) AggregateCounts(ctx context.Context) (domain.StateCounts, error) {
	var rows []struct {
		State string `db:"state"`
		Count int    `db:"count"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT state, COUNT(*) AS count FROM jobs GROUP BY state`); err != nil {
		return nil, domain.NewStorageError("aggregate counts", err)
	}

	counts := make(domain.StateCounts, len(domain.States))
	for _, state := range domain.States {
		counts[state] = 0
	}
	for _, row := range rows {
		counts[row.State] = row.Count
	}
	return counts, nil
}

// GetConfig returns the durable queue config
func (s *Storage) GetConfig(ctx context.Context) (domain.QueueConfig, error) {
	query := s.db.Rebind(`
		SELECT max_retries, backoff_base, worker_poll_interval
		FROM queue_config
		WHERE id = ?
	`)

	var cfg domain.QueueConfig
	if err := s.db.GetContext(ctx, &cfg, query, configRowID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DefaultQueueConfig(), nil
		}
		return domain.QueueConfig{}, domain.NewStorageError("get config", err)
	}
	return cfg, nil
}

// SaveConfig overwrites the durable queue config
func (s *Storage) SaveConfig(ctx context.Context, cfg domain.QueueConfig) error {
	query := s.db.Rebind(`
		INSERT INTO queue_config (id, max_retries, backoff_base, worker_poll_interval)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			max_retries = excluded.max_retries,
			backoff_base = excluded.backoff_base,
			worker_poll_interval = excluded.worker_poll_interval
	`)

	if _, err := s.db.ExecContext(ctx, query, configRowID, cfg.MaxRetries, cfg.BackoffBase, cfg.WorkerPollInterval); err != nil {
		return domain.NewStorageError("save config", err)
	}

	s.logger.Info("Queue config saved",
		slog.Int("max_retries", cfg.MaxRetries),
		slog.Int("backoff_base", cfg.BackoffBase),
		slog.Int("worker_poll_interval", cfg.WorkerPollInterval),
	)
	return nil
}

func jobArgs(job *domain.Job) []interface{} {
	return []interface{}{
		job.ID,
		job.Command,
		job.State,
		job.Attempts,
		job.MaxRetries,
		job.CreatedAt.UTC(),
		job.UpdatedAt.UTC(),
		utcPtr(job.NextRetryAt),
		job.ErrorMessage,
		job.Output,
	}
}

func utcPtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// normalize puts scanned timestamps in UTC regardless of driver session zone
func normalize(job *domain.Job) {
	job.CreatedAt = job.CreatedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
	if job.NextRetryAt != nil {
		t := job.NextRetryAt.UTC()
		job.NextRetryAt = &t
	}
}
