package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/queuectl/internal/domain"
	"github.com/cuongbtq/queuectl/internal/lifecycle"
	"github.com/cuongbtq/queuectl/internal/runner"
)

// processJob claims one eligible job, runs it and persists the outcome.
// It reports whether a job was claimed.
func (p *Pool) processJob(ctx context.Context, w *worker) (bool, error) {
	job, err := p.store.ClaimNextEligible(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to claim job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	w.setCurrentJob(job.ID)
	defer w.setCurrentJob("")

	p.logger.Info("Processing job",
		slog.String("worker_id", w.id),
		slog.String("job_id", job.ID),
		slog.Int("attempts", job.Attempts),
	)

	result := p.executor.Run(ctx, job.Command)

	if err := p.settle(ctx, job, result); err != nil {
		return true, err
	}

	if err := p.store.Save(ctx, job); err != nil {
		// The row stays PROCESSING; recover_on_start returns it to PENDING on the next start.
		return true, fmt.Errorf("failed to save job %s: %w", job.ID, err)
	}

	p.notify(ctx, job)
	return true, nil
}

// settle applies the runner outcome to the job through the lifecycle rules
func (p *Pool) settle(ctx context.Context, job *domain.Job, result runner.Result) error {
	now := p.now().UTC()

	if result.Success {
		if err := lifecycle.Complete(job, result.Output, now); err != nil {
			return err
		}
		p.logger.Info("Job completed successfully",
			slog.String("job_id", job.ID),
			slog.Duration("duration", result.Duration),
		)
		return nil
	}

	if err := lifecycle.Fail(job, result.Reason, result.Output, p.backoffBase(ctx), now); err != nil {
		return err
	}

	if job.State == domain.StateDead {
		p.logger.Warn("Job exceeded max retries, moved to dead letter queue",
			slog.String("job_id", job.ID),
			slog.Int("attempts", job.Attempts),
			slog.String("reason", result.Reason),
		)
		return nil
	}

	p.logger.Info("Job failed, retry scheduled",
		slog.String("job_id", job.ID),
		slog.Int("attempts", job.Attempts),
		slog.Int("max_retries", job.MaxRetries),
		slog.Time("next_retry_at", *job.NextRetryAt),
		slog.String("reason", result.Reason),
	)
	return nil
}

func (p *Pool) backoffBase(ctx context.Context) int {
	cfg, err := p.store.GetConfig(ctx)
	if err != nil {
		p.logger.Warn("Failed to read queue config, using default backoff base",
			slog.Any("error", err),
		)
		return domain.DefaultBackoffBase
	}
	return cfg.BackoffBase
}

func (p *Pool) notify(ctx context.Context, job *domain.Job) {
	if err := p.notifier.Notify(ctx, domain.NewJobEvent(job)); err != nil {
		p.logger.Warn("Failed to publish job event",
			slog.String("job_id", job.ID),
			slog.Any("error", err),
		)
	}
}
