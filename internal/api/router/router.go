package router

import (
	"github.com/cuongbtq/queuectl/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	h := handler.NewJobHandler(deps)

	r.GET("/health", h.Health)

	v1 := r.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			jobs.POST("", h.CreateJob)
			jobs.GET("", h.ListJobs)
			jobs.GET("/:job_id", h.GetJob)
		}

		dlq := v1.Group("/dlq")
		{
			dlq.GET("", h.ListDead)
			dlq.POST("/:job_id/retry", h.RetryDead)
		}

		v1.GET("/status", h.Status)

		cfg := v1.Group("/config")
		{
			cfg.GET("", h.GetConfig)
			cfg.PUT("/:key", h.SetConfig)
		}

		workers := v1.Group("/workers")
		{
			workers.GET("", h.ListWorkers)
			workers.POST("/start", h.StartWorkers)
			workers.POST("/stop", h.StopWorkers)
		}
	}

	return r
}
