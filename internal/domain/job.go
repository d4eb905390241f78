package domain

import "time"

// Job is a unit of work: a shell command plus its lifecycle bookkeeping
type Job struct {
	ID           string     `db:"id" json:"id"`
	Command      string     `db:"command" json:"command"`
	State        string     `db:"state" json:"state"`
	Attempts     int        `db:"attempts" json:"attempts"`
	MaxRetries   int        `db:"max_retries" json:"max_retries"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	NextRetryAt  *time.Time `db:"next_retry_at" json:"next_retry_at,omitempty"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
	Output       *string    `db:"output" json:"output,omitempty"`
}

// IsTerminal reports whether the job will not run again without manual action
func (j *Job) IsTerminal() bool {
	return j.State == StateCompleted || j.State == StateDead
}

// IsEligible reports whether the job can be claimed at now
func (j *Job) IsEligible(now time.Time) bool {
	switch j.State {
	case StatePending:
		return true
	case StateFailed:
		return j.NextRetryAt != nil && !j.NextRetryAt.After(now)
	default:
		return false
	}
}

// QueueConfig holds the durable, process-wide queue tunables
type QueueConfig struct {
	MaxRetries         int `db:"max_retries" json:"max_retries"`
	BackoffBase        int `db:"backoff_base" json:"backoff_base"`
	WorkerPollInterval int `db:"worker_poll_interval" json:"worker_poll_interval"`
}

// DefaultQueueConfig returns the config written on first store initialization
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		MaxRetries:         DefaultMaxRetries,
		BackoffBase:        DefaultBackoffBase,
		WorkerPollInterval: DefaultWorkerPollInterval,
	}
}

// PollInterval returns the worker idle interval as a duration
func (c QueueConfig) PollInterval() time.Duration {
	return time.Duration(c.WorkerPollInterval) * time.Second
}

// Validate checks the config values are in range
func (c QueueConfig) Validate() error {
	if c.MaxRetries <= 0 {
		return InvalidInputf("max_retries must be greater than 0, got %d", c.MaxRetries)
	}
	if c.BackoffBase < 1 {
		return InvalidInputf("backoff_base must be at least 1, got %d", c.BackoffBase)
	}
	if c.WorkerPollInterval < 0 {
		return InvalidInputf("worker_poll_interval must not be negative, got %d", c.WorkerPollInterval)
	}
	return nil
}

// WorkerInfo is the runtime-only snapshot of one worker loop
type WorkerInfo struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	CurrentJobID string    `json:"current_job_id,omitempty"`
	StartedAt    time.Time `json:"started_at"`
}

// StateCounts maps each job state to the number of jobs in it
type StateCounts map[string]int

// EnqueueRequest is the payload accepted by the enqueue interface
type EnqueueRequest struct {
	ID         string `json:"id,omitempty"`
	Command    string `json:"command"`
	MaxRetries *int   `json:"max_retries,omitempty"`
}
