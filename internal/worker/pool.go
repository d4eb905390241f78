package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/queuectl/internal/domain"
)

// Start spawns count new worker loops and returns their identifiers.
// When the pool has no live loops and recovery is enabled, jobs left in
// PROCESSING by a previous process are first moved back to PENDING.
func (p *Pool) Start(ctx context.Context, count int) ([]string, error) {
	if count < 1 {
		return nil, domain.InvalidInputf("worker count must be at least 1, got %d", count)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.recoverOnStart && p.live == 0 {
		recovered, err := p.store.ResetProcessing(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to recover orphaned jobs: %w", err)
		}
		if recovered > 0 {
			p.logger.Warn("Recovered orphaned processing jobs",
				slog.Int64("count", recovered),
			)
		}
	}

	p.logger.Info("Spawning worker pool",
		slog.Int("count", count),
		slog.Int("running", len(p.workers)),
	)

	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		p.nextID++
		w := &worker{
			id:        fmt.Sprintf("worker-%d", p.nextID),
			startedAt: p.now().UTC(),
			stopCh:    make(chan struct{}),
			doneCh:    make(chan struct{}),
		}
		p.workers = append(p.workers, w)
		p.live++
		ids = append(ids, w.id)

		go p.workerLoop(w)
	}

	p.logger.Info("Worker pool spawned successfully",
		slog.Int("worker_count", len(p.workers)),
	)

	return ids, nil
}

// Stop signals every running worker to exit after its current job and waits
// up to one shared grace period for all of them. It returns how many workers
// confirmed exit.
func (p *Pool) Stop() int {
	p.mu.Lock()
	workers := p.workers
	p.workers = nil
	p.mu.Unlock()

	if len(workers) == 0 {
		return 0
	}

	p.logger.Info("Stopping worker pool",
		slog.Int("worker_count", len(workers)),
	)

	for _, w := range workers {
		w.signalStop()
	}

	deadline := time.NewTimer(p.stopGrace)
	defer deadline.Stop()

	stopped := 0
	expired := false
	for _, w := range workers {
		if !expired {
			select {
			case <-w.doneCh:
				stopped++
				continue
			case <-deadline.C:
				expired = true
			}
		}

		// past the deadline only workers that have already exited count
		select {
		case <-w.doneCh:
			stopped++
			continue
		default:
		}

		info := w.info()
		p.logger.Warn("Worker did not stop within grace period",
			slog.String("worker_id", w.id),
			slog.String("job_id", info.CurrentJobID),
			slog.Duration("grace", p.stopGrace),
		)
	}

	p.logger.Info("Worker pool stopped",
		slog.Int("stopped", stopped),
		slog.Int("requested", len(workers)),
	)

	return stopped
}

// ActiveWorkers returns a snapshot of the running workers
func (p *Pool) ActiveWorkers() []domain.WorkerInfo {
	p.mu.Lock()
	defer p.mu.Unlock()

	infos := make([]domain.WorkerInfo, 0, len(p.workers))
	for _, w := range p.workers {
		infos = append(infos, w.info())
	}
	return infos
}

// WorkerCount returns the number of running workers
func (p *Pool) WorkerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// workerLoop is the main processing loop for each worker goroutine
func (p *Pool) workerLoop(w *worker) {
	defer func() {
		p.mu.Lock()
		p.live--
		p.mu.Unlock()
		close(w.doneCh)
	}()

	// Commands run to completion or their own timeout; Stop only prevents new claims.
	ctx := context.Background()

	p.logger.Info("Worker goroutine started",
		slog.String("worker_id", w.id),
	)

	for !w.stopping() {
		claimed, err := p.processJob(ctx, w)
		if err != nil {
			p.logger.Error("Worker iteration failed",
				slog.String("worker_id", w.id),
				slog.Any("error", err),
			)
			if !w.idle(p.errorIdle) {
				break
			}
			continue
		}

		if claimed {
			continue
		}

		if !w.idle(p.pollInterval(ctx)) {
			break
		}
	}

	p.logger.Info("Worker goroutine stopping",
		slog.String("worker_id", w.id),
	)
}

// pollInterval reads the idle interval fresh so config changes apply on the next wait
func (p *Pool) pollInterval(ctx context.Context) time.Duration {
	cfg, err := p.store.GetConfig(ctx)
	if err != nil {
		p.logger.Warn("Failed to read queue config, using default poll interval",
			slog.Any("error", err),
		)
		cfg = domain.DefaultQueueConfig()
	}

	interval := cfg.PollInterval()
	if interval < minPollInterval {
		interval = minPollInterval
	}
	return interval
}
