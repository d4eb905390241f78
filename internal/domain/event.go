package domain

import "time"

// JobEvent is published after a job transition has been persisted
type JobEvent struct {
	JobID        string    `json:"job_id"`
	State        string    `json:"state"`
	Attempts     int       `json:"attempts"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	At           time.Time `json:"at"`
}

// NewJobEvent snapshots a job into an event stamped with its last update time
func NewJobEvent(j *Job) JobEvent {
	return JobEvent{
		JobID:        j.ID,
		State:        j.State,
		Attempts:     j.Attempts,
		ErrorMessage: j.ErrorMessage,
		At:           j.UpdatedAt,
	}
}
