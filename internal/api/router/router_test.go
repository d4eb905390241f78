package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/cuongbtq/queuectl/internal/api/dto"
	"github.com/cuongbtq/queuectl/internal/api/handler"
	"github.com/cuongbtq/queuectl/internal/domain"
	"github.com/cuongbtq/queuectl/internal/queue"
	"github.com/cuongbtq/queuectl/internal/runner"
	"github.com/cuongbtq/queuectl/internal/storage"
	"github.com/cuongbtq/queuectl/internal/worker"
	"github.com/cuongbtq/queuectl/shared/database"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	engine *gin.Engine
	store  *storage.Storage
	pool   *worker.Pool
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := database.NewClient(&database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "queue.db"),
	}, logger)
	require.NoError(t, err)

	store := storage.NewStorage(client, logger)
	require.NoError(t, store.Init(context.Background()))

	pool := worker.NewPool(&worker.Config{
		Logger:    logger,
		Store:     store,
		Executor:  runner.New(runner.Config{Timeout: 5 * time.Second}),
		StopGrace: 5 * time.Second,
	})
	t.Cleanup(func() {
		pool.Stop()
		client.Close()
	})

	svc := queue.NewService(&queue.Config{
		Store:  store,
		Pool:   pool,
		Logger: logger,
	})

	return &testServer{
		engine: SetupRouter(&handler.Dependencies{Logger: logger, Service: svc, Health: client}),
		store:  store,
		pool:   pool,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewBuffer(data)
		}
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestCreateAndGetJob(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
	}{
		{name: "valid", body: map[string]interface{}{"id": "job1", "command": "echo hi"}, wantStatus: http.StatusCreated},
		{name: "duplicate id", body: map[string]interface{}{"id": "job1", "command": "echo again"}, wantStatus: http.StatusBadRequest},
		{name: "missing command", body: map[string]interface{}{"id": "job2"}, wantStatus: http.StatusBadRequest},
		{name: "negative max retries", body: map[string]interface{}{"command": "true", "max_retries": -1}, wantStatus: http.StatusBadRequest},
		{name: "malformed json", body: `{"command":`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/v1/jobs", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}

	w := s.do(t, http.MethodGet, "/api/v1/jobs/job1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	job := decode[dto.JobDTO](t, w)
	assert.Equal(t, "job1", job.ID)
	assert.Equal(t, domain.StatePending, job.State)
	assert.Equal(t, domain.DefaultMaxRetries, job.MaxRetries)

	w = s.do(t, http.MethodGet, "/api/v1/jobs/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListJobs(t *testing.T) {
	s := newTestServer(t)

	for _, id := range []string{"a", "b", "c"} {
		w := s.do(t, http.MethodPost, "/api/v1/jobs", map[string]interface{}{"id": id, "command": "true"})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := s.do(t, http.MethodGet, "/api/v1/jobs?state=pending&limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[dto.ListJobsResponse](t, w)
	assert.Equal(t, 2, resp.Count)

	w = s.do(t, http.MethodGet, "/api/v1/jobs?state=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/jobs?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDLQ(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.store.Save(ctx, &domain.Job{
		ID: "dead1", Command: "false", State: domain.StateDead,
		Attempts: 3, MaxRetries: 3, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, s.store.Save(ctx, &domain.Job{
		ID: "done1", Command: "true", State: domain.StateCompleted,
		MaxRetries: 3, CreatedAt: now, UpdatedAt: now,
	}))

	w := s.do(t, http.MethodGet, "/api/v1/dlq", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[dto.ListJobsResponse](t, w).Count)

	w = s.do(t, http.MethodPost, "/api/v1/dlq/done1/retry", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/dlq/missing/retry", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/dlq/dead1/retry", nil)
	require.Equal(t, http.StatusOK, w.Code)
	job := decode[dto.JobDTO](t, w)
	assert.Equal(t, domain.StatePending, job.State)
	assert.Equal(t, 0, job.Attempts)
}

func TestConfigEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/config", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]int{
		"max_retries":          3,
		"backoff_base":         2,
		"worker_poll_interval": 1,
	}, decode[map[string]int](t, w))

	w = s.do(t, http.MethodPut, "/api/v1/config/max-retries", map[string]int{"value": 5})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, decode[map[string]int](t, w)["max_retries"])

	w = s.do(t, http.MethodPut, "/api/v1/config/unknown", map[string]int{"value": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/v1/config/backoff_base", map[string]int{"value": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/v1/config/backoff_base", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWorkerEndpointsAndStatus(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/workers/start", map[string]int{"count": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/workers/start", map[string]int{"count": 3})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"worker-1", "worker-2", "worker-3"}, decode[dto.StartWorkersResponse](t, w).Started)

	w = s.do(t, http.MethodGet, "/api/v1/workers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode[dto.WorkersResponse](t, w).Count)

	w = s.do(t, http.MethodPost, "/api/v1/jobs", map[string]interface{}{"id": "run-me", "command": "echo done"})
	require.Equal(t, http.StatusCreated, w.Code)

	require.Eventually(t, func() bool {
		job, err := s.store.Get(context.Background(), "run-me")
		return err == nil && job.State == domain.StateCompleted
	}, 5*time.Second, 20*time.Millisecond)

	w = s.do(t, http.MethodGet, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[queue.Status](t, w)
	assert.Equal(t, 1, status.Counts[domain.StateCompleted])
	assert.Equal(t, 0, status.Counts[domain.StatePending])
	assert.Equal(t, 3, status.WorkerCount)

	w = s.do(t, http.MethodPost, "/api/v1/workers/stop", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode[dto.StopWorkersResponse](t, w).Stopped)

	w = s.do(t, http.MethodPost, "/api/v1/workers/stop", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[dto.StopWorkersResponse](t, w).Stopped)

	w = s.do(t, http.MethodGet, "/api/v1/workers", nil)
	assert.Equal(t, 0, decode[dto.WorkersResponse](t, w).Count)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodOptions, "/api/v1/jobs", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestStopWorkers_OutlastsWriteTimeout(t *testing.T) {
	s := newTestServer(t)

	srv := httptest.NewUnstartedServer(s.engine)
	srv.Config.WriteTimeout = 300 * time.Millisecond
	srv.Start()
	defer srv.Close()

	w := s.do(t, http.MethodPost, "/api/v1/jobs", map[string]interface{}{"id": "slow", "command": "sleep 1"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/workers/start", map[string]int{"count": 1})
	require.Equal(t, http.StatusOK, w.Code)

	require.Eventually(t, func() bool {
		job, err := s.store.Get(context.Background(), "slow")
		return err == nil && job.State == domain.StateProcessing
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Post(srv.URL+"/api/v1/workers/stop", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out dto.StopWorkersResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 1, out.Stopped)

	job, err := s.store.Get(context.Background(), "slow")
	require.NoError(t, err)
	assert.Equal(t, domain.StateCompleted, job.State)
}
