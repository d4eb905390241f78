package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/cuongbtq/queuectl/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func processingJob(maxRetries int) *domain.Job {
	now := time.Now().UTC()
	return &domain.Job{
		ID:         "job-1",
		Command:    "exit 1",
		State:      domain.StateProcessing,
		MaxRetries: maxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestEnqueue(t *testing.T) {
	cfg := domain.DefaultQueueConfig()
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name           string
		req            domain.EnqueueRequest
		wantErr        bool
		wantMaxRetries int
	}{
		{
			name:           "defaults from config",
			req:            domain.EnqueueRequest{Command: "echo hi"},
			wantMaxRetries: cfg.MaxRetries,
		},
		{
			name:           "explicit max retries",
			req:            domain.EnqueueRequest{ID: "job-a", Command: "echo hi", MaxRetries: intPtr(5)},
			wantMaxRetries: 5,
		},
		{
			name:           "zero max retries falls back to config",
			req:            domain.EnqueueRequest{Command: "echo hi", MaxRetries: intPtr(0)},
			wantMaxRetries: cfg.MaxRetries,
		},
		{
			name:    "negative max retries",
			req:     domain.EnqueueRequest{Command: "echo hi", MaxRetries: intPtr(-1)},
			wantErr: true,
		},
		{
			name:    "missing command",
			req:     domain.EnqueueRequest{ID: "job-b"},
			wantErr: true,
		},
		{
			name:    "blank command",
			req:     domain.EnqueueRequest{Command: "   "},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := Enqueue(tt.req, cfg, now)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrInvalidInput))
				assert.Nil(t, job)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, domain.StatePending, job.State)
			assert.Equal(t, 0, job.Attempts)
			assert.Equal(t, tt.wantMaxRetries, job.MaxRetries)
			assert.Equal(t, now, job.CreatedAt)
			assert.Equal(t, now, job.UpdatedAt)
			assert.Nil(t, job.NextRetryAt)
			assert.Nil(t, job.ErrorMessage)
			assert.Nil(t, job.Output)

			if tt.req.ID != "" {
				assert.Equal(t, tt.req.ID, job.ID)
			} else {
				_, parseErr := uuid.Parse(job.ID)
				assert.NoError(t, parseErr)
			}
		})
	}
}

func TestClaim(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Second)
	future := now.Add(time.Minute)

	tests := []struct {
		name    string
		job     domain.Job
		wantErr bool
	}{
		{name: "pending", job: domain.Job{State: domain.StatePending}},
		{name: "failed and due", job: domain.Job{State: domain.StateFailed, NextRetryAt: &past}},
		{name: "failed not yet due", job: domain.Job{State: domain.StateFailed, NextRetryAt: &future}, wantErr: true},
		{name: "processing", job: domain.Job{State: domain.StateProcessing}, wantErr: true},
		{name: "completed", job: domain.Job{State: domain.StateCompleted}, wantErr: true},
		{name: "dead", job: domain.Job{State: domain.StateDead}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := tt.job
			err := Claim(&job, now)
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrInvalidTransition)
				assert.Equal(t, tt.job.State, job.State)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.StateProcessing, job.State)
			assert.Nil(t, job.NextRetryAt)
		})
	}
}

func TestComplete(t *testing.T) {
	job := processingJob(3)
	now := time.Now().UTC()

	require.NoError(t, Complete(job, "hello\n", now))
	assert.Equal(t, domain.StateCompleted, job.State)
	assert.Equal(t, 0, job.Attempts)
	require.NotNil(t, job.Output)
	assert.Equal(t, "hello\n", *job.Output)
	assert.Nil(t, job.NextRetryAt)
	assert.Equal(t, now, job.UpdatedAt)

	err := Complete(job, "again", now)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestFail_RetryThenDead(t *testing.T) {
	job := processingJob(2)
	now := time.Now().UTC()

	require.NoError(t, Fail(job, "exit status 1", "", 1, now))
	assert.Equal(t, domain.StateFailed, job.State)
	assert.Equal(t, 1, job.Attempts)
	require.NotNil(t, job.NextRetryAt)
	assert.Equal(t, now.Add(time.Second), *job.NextRetryAt)
	require.NotNil(t, job.ErrorMessage)
	assert.Equal(t, "exit status 1", *job.ErrorMessage)

	require.NoError(t, Claim(job, now.Add(time.Second)))

	later := now.Add(2 * time.Second)
	require.NoError(t, Fail(job, "exit status 1", "", 1, later))
	assert.Equal(t, domain.StateDead, job.State)
	assert.Equal(t, 2, job.Attempts)
	assert.Nil(t, job.NextRetryAt)
	assert.Equal(t, later, job.UpdatedAt)
}

func TestFail_AttemptsNeverExceedMaxRetries(t *testing.T) {
	for maxRetries := 1; maxRetries <= 6; maxRetries++ {
		job := processingJob(maxRetries)
		now := time.Now().UTC()

		for job.State != domain.StateDead {
			require.NoError(t, Fail(job, "boom", "", 2, now))
			assert.LessOrEqual(t, job.Attempts, job.MaxRetries)
			if job.State == domain.StateFailed {
				assert.Less(t, job.Attempts, job.MaxRetries)
				now = *job.NextRetryAt
				require.NoError(t, Claim(job, now))
			}
		}
		assert.Equal(t, maxRetries, job.Attempts)
	}
}

func TestFail_BackoffSchedule(t *testing.T) {
	job := processingJob(10)
	now := time.Now().UTC()

	var previous time.Duration
	for k := 1; k <= 5; k++ {
		require.NoError(t, Fail(job, "boom", "", 2, now))
		require.NotNil(t, job.NextRetryAt)

		delay := job.NextRetryAt.Sub(now)
		assert.Equal(t, BackoffDelay(2, k), delay)
		assert.GreaterOrEqual(t, delay, time.Duration(1<<k)*time.Second)
		assert.Greater(t, delay, previous)
		previous = delay

		now = *job.NextRetryAt
		require.NoError(t, Claim(job, now))
	}
}

func TestFail_LargeBaseIsNotCapped(t *testing.T) {
	job := processingJob(7)
	now := time.Now().UTC()

	want := int64(1)
	for k := 1; k < 7; k++ {
		require.NoError(t, Fail(job, "boom", "", 10, now))
		require.Equal(t, domain.StateFailed, job.State)

		want *= 10
		assert.Equal(t, time.Duration(want)*time.Second, job.NextRetryAt.Sub(now), "retry %d", k)

		now = *job.NextRetryAt
		require.NoError(t, Claim(job, now))
	}
}

func TestFail_RejectsNonProcessing(t *testing.T) {
	job := processingJob(3)
	job.State = domain.StatePending

	err := Fail(job, "boom", "", 2, time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, 0, job.Attempts)
}

func TestRequeue(t *testing.T) {
	now := time.Now().UTC()
	msg := "exit status 1"

	t.Run("dead job returns to pending", func(t *testing.T) {
		job := processingJob(1)
		require.NoError(t, Fail(job, msg, "", 2, now))
		require.Equal(t, domain.StateDead, job.State)

		require.NoError(t, Requeue(job, now))
		assert.Equal(t, domain.StatePending, job.State)
		assert.Equal(t, 0, job.Attempts)
		assert.Nil(t, job.ErrorMessage)
		assert.Nil(t, job.NextRetryAt)
	})

	for _, state := range []string{domain.StatePending, domain.StateProcessing, domain.StateCompleted, domain.StateFailed} {
		t.Run("rejects "+state, func(t *testing.T) {
			job := &domain.Job{ID: "job-x", State: state, Attempts: 1, ErrorMessage: &msg}
			err := Requeue(job, now)
			assert.ErrorIs(t, err, domain.ErrInvalidTransition)
			assert.Equal(t, state, job.State)
			assert.Equal(t, 1, job.Attempts)
		})
	}
}

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		base     int
		attempts int
		want     time.Duration
	}{
		{base: 2, attempts: 0, want: time.Second},
		{base: 2, attempts: 1, want: 2 * time.Second},
		{base: 2, attempts: 3, want: 8 * time.Second},
		{base: 1, attempts: 7, want: time.Second},
		{base: 3, attempts: 2, want: 9 * time.Second},
		{base: 0, attempts: 4, want: time.Second},
		{base: 10, attempts: 5, want: 100000 * time.Second},
		{base: 10, attempts: 6, want: 1000000 * time.Second},
		{base: 10, attempts: 9, want: 1000000000 * time.Second},
		{base: 10, attempts: 10, want: MaxBackoff},
		{base: 1 << 40, attempts: 1, want: MaxBackoff},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, BackoffDelay(tt.base, tt.attempts), "base=%d attempts=%d", tt.base, tt.attempts)
	}
}
