package handler

import (
	"log/slog"
	"net/http"

	"github.com/cuongbtq/queuectl/internal/api/dto"
	"github.com/cuongbtq/queuectl/internal/domain"
	"github.com/gin-gonic/gin"
)

// defaultListLimit matches the CLI list default
const defaultListLimit = 10

// CreateJob handles POST /api/v1/jobs
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, "CreateJob", domain.InvalidInputf("invalid request body: %v", err))
		return
	}

	job, err := h.service.Enqueue(c.Request.Context(), domain.EnqueueRequest{
		ID:         req.ID,
		Command:    req.Command,
		MaxRetries: req.MaxRetries,
	})
	if err != nil {
		h.respondError(c, "CreateJob", err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewJobDTO(job))
}

// GetJob handles GET /api/v1/jobs/:job_id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")

	job, err := h.service.GetJob(c.Request.Context(), jobID)
	if err != nil {
		h.respondError(c, "GetJob", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewJobDTO(job))
}

// ListJobs handles GET /api/v1/jobs, newest first
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.respondError(c, "ListJobs", domain.InvalidInputf("invalid query parameters: %v", err))
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultListLimit
	}

	jobs, err := h.service.List(c.Request.Context(), req.State, req.Limit)
	if err != nil {
		h.respondError(c, "ListJobs", err)
		return
	}

	h.logger.Debug("Jobs listed",
		slog.String("state", req.State),
		slog.Int("count", len(jobs)),
	)
	c.JSON(http.StatusOK, dto.NewListJobsResponse(jobs))
}

// ListDead handles GET /api/v1/dlq, oldest first
func (h *JobHandler) ListDead(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.respondError(c, "ListDead", domain.InvalidInputf("invalid query parameters: %v", err))
		return
	}

	jobs, err := h.service.ListDead(c.Request.Context(), req.Limit)
	if err != nil {
		h.respondError(c, "ListDead", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListJobsResponse(jobs))
}

// RetryDead handles POST /api/v1/dlq/:job_id/retry
func (h *JobHandler) RetryDead(c *gin.Context) {
	job, err := h.service.RetryDead(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		h.respondError(c, "RetryDead", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewJobDTO(job))
}
