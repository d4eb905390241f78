package dto

import (
	"time"

	"github.com/cuongbtq/queuectl/internal/domain"
)

type CreateJobRequest struct {
	ID         string `json:"id"`
	Command    string `json:"command" binding:"required"`
	MaxRetries *int   `json:"max_retries"`
}

type ListJobsRequest struct {
	State string `form:"state"`
	Limit int    `form:"limit"`
}

type ListJobsResponse struct {
	Jobs  []JobDTO `json:"jobs"`
	Count int      `json:"count"`
}

type JobDTO struct {
	ID           string  `json:"id"`
	Command      string  `json:"command"`
	State        string  `json:"state"`
	Attempts     int     `json:"attempts"`
	MaxRetries   int     `json:"max_retries"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
	NextRetryAt  *string `json:"next_retry_at,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
	Output       *string `json:"output,omitempty"`
}

// NewJobDTO renders a job with RFC3339 timestamps
func NewJobDTO(job *domain.Job) JobDTO {
	d := JobDTO{
		ID:           job.ID,
		Command:      job.Command,
		State:        job.State,
		Attempts:     job.Attempts,
		MaxRetries:   job.MaxRetries,
		CreatedAt:    job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    job.UpdatedAt.Format(time.RFC3339),
		ErrorMessage: job.ErrorMessage,
		Output:       job.Output,
	}
	if job.NextRetryAt != nil {
		next := job.NextRetryAt.Format(time.RFC3339)
		d.NextRetryAt = &next
	}
	return d
}

// NewListJobsResponse renders a job slice
func NewListJobsResponse(jobs []domain.Job) ListJobsResponse {
	resp := ListJobsResponse{Jobs: make([]JobDTO, len(jobs)), Count: len(jobs)}
	for i := range jobs {
		resp.Jobs[i] = NewJobDTO(&jobs[i])
	}
	return resp
}
