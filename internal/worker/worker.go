// Package worker runs the pool of worker loops that claim, execute and settle jobs.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/queuectl/internal/domain"
	"github.com/cuongbtq/queuectl/internal/runner"
)

// Default pool timings
const (
	DefaultStopGrace = 30 * time.Second
	DefaultErrorIdle = 500 * time.Millisecond

	// minPollInterval keeps a zero poll interval from spinning the store
	minPollInterval = 100 * time.Millisecond
)

// Store is the subset of the job store the worker loops depend on
type Store interface {
	ClaimNextEligible(ctx context.Context) (*domain.Job, error)
	Save(ctx context.Context, job *domain.Job) error
	GetConfig(ctx context.Context) (domain.QueueConfig, error)
	ResetProcessing(ctx context.Context) (int64, error)
}

// Executor runs a job command and classifies the outcome
type Executor interface {
	Run(ctx context.Context, command string) runner.Result
}

// Config holds worker pool configuration
type Config struct {
	Logger         *slog.Logger
	Store          Store
	Executor       Executor
	Notifier       Notifier
	StopGrace      time.Duration
	ErrorIdle      time.Duration
	RecoverOnStart bool
	Clock          func() time.Time
}

// Pool owns a dynamic set of worker loops sharing one store
type Pool struct {
	logger         *slog.Logger
	store          Store
	executor       Executor
	notifier       Notifier
	stopGrace      time.Duration
	errorIdle      time.Duration
	recoverOnStart bool
	now            func() time.Time

	mu      sync.Mutex
	workers []*worker
	nextID  int
	// live counts loops that have not returned yet, including ones Stop gave up waiting on
	live int
}

// worker is one loop's runtime state
type worker struct {
	id        string
	startedAt time.Time
	stopCh    chan struct{}
	doneCh    chan struct{}
	stopOnce  sync.Once

	mu           sync.Mutex
	currentJobID string
}

// NewPool creates a new worker pool instance
func NewPool(cfg *Config) *Pool {
	p := &Pool{
		logger:         cfg.Logger,
		store:          cfg.Store,
		executor:       cfg.Executor,
		notifier:       cfg.Notifier,
		stopGrace:      cfg.StopGrace,
		errorIdle:      cfg.ErrorIdle,
		recoverOnStart: cfg.RecoverOnStart,
		now:            cfg.Clock,
	}
	if p.notifier == nil {
		p.notifier = NoopNotifier{}
	}
	if p.stopGrace <= 0 {
		p.stopGrace = DefaultStopGrace
	}
	if p.errorIdle <= 0 {
		p.errorIdle = DefaultErrorIdle
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

func (w *worker) setCurrentJob(jobID string) {
	w.mu.Lock()
	w.currentJobID = jobID
	w.mu.Unlock()
}

func (w *worker) info() domain.WorkerInfo {
	w.mu.Lock()
	defer w.mu.Unlock()
	return domain.WorkerInfo{
		ID:           w.id,
		Status:       domain.WorkerStatusRunning,
		CurrentJobID: w.currentJobID,
		StartedAt:    w.startedAt,
	}
}

func (w *worker) signalStop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

// idle waits for d or until the worker is told to stop; it reports false on stop
func (w *worker) idle(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-w.stopCh:
		return false
	case <-timer.C:
		return true
	}
}

func (w *worker) stopping() bool {
	select {
	case <-w.stopCh:
		return true
	default:
		return false
	}
}
