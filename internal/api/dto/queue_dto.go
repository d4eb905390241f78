package dto

import "github.com/cuongbtq/queuectl/internal/domain"

type SetConfigRequest struct {
	Value *int `json:"value" binding:"required"`
}

type StartWorkersRequest struct {
	Count int `json:"count" binding:"required,min=1"`
}

type StartWorkersResponse struct {
	Started []string `json:"started"`
}

type StopWorkersResponse struct {
	Stopped int `json:"stopped"`
}

type WorkersResponse struct {
	Workers []domain.WorkerInfo `json:"workers"`
	Count   int                 `json:"count"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
