// Package lifecycle holds the job state machine: how a job is created, how it
// moves after an execution outcome, and how it leaves the dead letter queue.
// Every function here is pure; callers persist the result through the store.
package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/cuongbtq/queuectl/internal/domain"
	"github.com/google/uuid"
)

// Enqueue builds a new PENDING job from req, taking max_retries from cfg when
// the request leaves it unset.
func Enqueue(req domain.EnqueueRequest, cfg domain.QueueConfig, now time.Time) (*domain.Job, error) {
	if strings.TrimSpace(req.Command) == "" {
		return nil, domain.InvalidInputf("command is required")
	}

	maxRetries := cfg.MaxRetries
	if req.MaxRetries != nil && *req.MaxRetries != 0 {
		if *req.MaxRetries < 0 {
			return nil, domain.InvalidInputf("max_retries must be greater than 0, got %d", *req.MaxRetries)
		}
		maxRetries = *req.MaxRetries
	}
	if maxRetries <= 0 {
		maxRetries = domain.DefaultMaxRetries
	}

	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}

	return &domain.Job{
		ID:         id,
		Command:    req.Command,
		State:      domain.StatePending,
		Attempts:   0,
		MaxRetries: maxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Claim moves an eligible job to PROCESSING. The store applies the same change
// atomically in ClaimNextEligible; this is the in-memory form of that transition.
func Claim(j *domain.Job, now time.Time) error {
	if !j.IsEligible(now) {
		return transitionError(j, domain.StateProcessing)
	}
	j.State = domain.StateProcessing
	j.NextRetryAt = nil
	j.UpdatedAt = now
	return nil
}

// Complete records a successful execution. COMPLETED is terminal.
func Complete(j *domain.Job, output string, now time.Time) error {
	if j.State != domain.StateProcessing {
		return transitionError(j, domain.StateCompleted)
	}
	j.State = domain.StateCompleted
	j.Output = &output
	j.NextRetryAt = nil
	j.UpdatedAt = now
	return nil
}

// Fail records a failed execution attempt. The attempt counter is incremented
// and the job either escalates to DEAD once attempts reaches max_retries, or is
// scheduled for retry backoffBase^attempts seconds from now.
func Fail(j *domain.Job, reason, output string, backoffBase int, now time.Time) error {
	if j.State != domain.StateProcessing {
		return transitionError(j, domain.StateFailed)
	}

	j.Attempts++
	j.ErrorMessage = &reason
	j.Output = &output
	j.UpdatedAt = now

	if j.Attempts >= j.MaxRetries {
		j.Attempts = j.MaxRetries
		j.State = domain.StateDead
		j.NextRetryAt = nil
		return nil
	}

	next := now.Add(BackoffDelay(backoffBase, j.Attempts))
	j.State = domain.StateFailed
	j.NextRetryAt = &next
	return nil
}

// Requeue moves a DEAD job back to PENDING with a fresh attempt budget.
func Requeue(j *domain.Job, now time.Time) error {
	if j.State != domain.StateDead {
		return transitionError(j, domain.StatePending)
	}
	j.State = domain.StatePending
	j.Attempts = 0
	j.ErrorMessage = nil
	j.NextRetryAt = nil
	j.UpdatedAt = now
	return nil
}

func transitionError(j *domain.Job, to string) error {
	return fmt.Errorf("%w: job %s cannot move from %s to %s", domain.ErrInvalidTransition, j.ID, j.State, to)
}
