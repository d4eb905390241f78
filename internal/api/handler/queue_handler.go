package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/queuectl/internal/api/dto"
	"github.com/cuongbtq/queuectl/internal/domain"
	"github.com/cuongbtq/queuectl/internal/queue"
	"github.com/gin-gonic/gin"
)

// Status handles GET /api/v1/status
func (h *JobHandler) Status(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context())
	if err != nil {
		h.respondError(c, "Status", err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// GetConfig handles GET /api/v1/config
func (h *JobHandler) GetConfig(c *gin.Context) {
	cfg, err := h.service.GetConfig(c.Request.Context())
	if err != nil {
		h.respondError(c, "GetConfig", err)
		return
	}

	c.JSON(http.StatusOK, queue.ConfigMap(cfg))
}

// SetConfig handles PUT /api/v1/config/:key
func (h *JobHandler) SetConfig(c *gin.Context) {
	var req dto.SetConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, "SetConfig", domain.InvalidInputf("invalid request body: %v", err))
		return
	}

	cfg, err := h.service.SetConfig(c.Request.Context(), c.Param("key"), *req.Value)
	if err != nil {
		h.respondError(c, "SetConfig", err)
		return
	}

	c.JSON(http.StatusOK, queue.ConfigMap(cfg))
}

// ListWorkers handles GET /api/v1/workers
func (h *JobHandler) ListWorkers(c *gin.Context) {
	workers := h.service.Workers()
	c.JSON(http.StatusOK, dto.WorkersResponse{Workers: workers, Count: len(workers)})
}

// StartWorkers handles POST /api/v1/workers/start
func (h *JobHandler) StartWorkers(c *gin.Context) {
	var req dto.StartWorkersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, "StartWorkers", domain.InvalidInputf("count must be an integer of at least 1: %v", err))
		return
	}

	ids, err := h.service.StartWorkers(c.Request.Context(), req.Count)
	if err != nil {
		h.respondError(c, "StartWorkers", err)
		return
	}

	c.JSON(http.StatusOK, dto.StartWorkersResponse{Started: ids})
}

// StopWorkers handles POST /api/v1/workers/stop
func (h *JobHandler) StopWorkers(c *gin.Context) {
	// Stop can outlast the server's write timeout while workers finish their jobs
	rc := http.NewResponseController(c.Writer)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.Warn("Failed to clear write deadline",
			slog.Any("error", err),
		)
	}

	stopped, err := h.service.StopWorkers()
	if err != nil {
		h.respondError(c, "StopWorkers", err)
		return
	}

	c.JSON(http.StatusOK, dto.StopWorkersResponse{Stopped: stopped})
}
