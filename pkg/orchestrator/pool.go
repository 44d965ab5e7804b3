package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sre-platform/healthreview/ent"
	"github.com/sre-platform/healthreview/ent/servicereview"
	"github.com/sre-platform/healthreview/pkg/config"
)

// PoolHealth mirrors queue.PoolHealth, generalized from sessions to
// reviews. It carries no orphan-scan fields: ServiceReview has no
// last_interaction_at, so there is nothing for an orphan scanner to
// read (see DESIGN.md).
type PoolHealth struct {
	IsHealthy      bool           `json:"is_healthy"`
	DBReachable    bool           `json:"db_reachable"`
	DBError        string         `json:"db_error,omitempty"`
	ActiveWorkers  int            `json:"active_workers"`
	TotalWorkers   int            `json:"total_workers"`
	ActiveReviews  int            `json:"active_reviews"`
	QueueDepth     int            `json:"queue_depth"`
	WorkerStats    []WorkerHealth `json:"worker_stats"`
}

// Pool manages a fixed-size set of review Workers, generalizing
// queue.WorkerPool. It owns no per-review cancel registry: a review's
// lifetime is bounded entirely by ReviewTimeout, which Worker already
// enforces via context.WithTimeout (spec §5 Cancellation).
type Pool struct {
	client   *ent.Client
	cfg      *config.ReviewConfig
	executor ReviewExecutor
	workers  []*Worker
	started  bool
}

// NewPool builds a review worker pool.
func NewPool(client *ent.Client, cfg *config.ReviewConfig, executor ReviewExecutor) *Pool {
	return &Pool{
		client:   client,
		cfg:      cfg,
		executor: executor,
		workers:  make([]*Worker, 0, cfg.WorkerCount),
	}
}

// Start spawns cfg.WorkerCount worker goroutines. Safe to call once;
// subsequent calls are no-ops.
func (p *Pool) Start(ctx context.Context) {
	if p.started {
		slog.Warn("review worker pool already started, ignoring duplicate Start call")
		return
	}
	p.started = true

	slog.Info("starting review worker pool", "worker_count", p.cfg.WorkerCount)
	for i := 0; i < p.cfg.WorkerCount; i++ {
		worker := NewWorker(fmt.Sprintf("review-worker-%d", i), p.client, p.cfg, p.executor)
		p.workers = append(p.workers, worker)
		worker.Start(ctx)
	}
}

// Stop signals every worker to stop and waits for in-flight reviews to
// finish (graceful shutdown).
func (p *Pool) Stop() {
	slog.Info("stopping review worker pool")
	for _, w := range p.workers {
		w.Stop()
	}
	slog.Info("review worker pool stopped")
}

// Health reports the pool's current health.
func (p *Pool) Health() *PoolHealth {
	ctx := context.Background()

	queueDepth, errQ := p.client.ServiceReview.Query().
		Where(servicereview.StatusEQ(servicereview.StatusPending)).
		Count(ctx)
	if errQ != nil {
		slog.Error("failed to query review queue depth", "error", errQ)
	}

	activeReviews, errA := p.client.ServiceReview.Query().
		Where(servicereview.StatusEQ(servicereview.StatusGenerating)).
		Count(ctx)
	if errA != nil {
		slog.Error("failed to query active reviews", "error", errA)
	}

	workerStats := make([]WorkerHealth, len(p.workers))
	activeWorkers := 0
	for i, w := range p.workers {
		stats := w.Health()
		workerStats[i] = stats
		if stats.Status == string(WorkerStatusWorking) {
			activeWorkers++
		}
	}

	dbHealthy := errQ == nil && errA == nil
	isHealthy := len(p.workers) > 0 && dbHealthy

	var dbError string
	if !dbHealthy {
		if errQ != nil {
			dbError = fmt.Sprintf("queue depth query failed: %v", errQ)
		} else if errA != nil {
			dbError = fmt.Sprintf("active reviews query failed: %v", errA)
		}
	}

	return &PoolHealth{
		IsHealthy:     isHealthy,
		DBReachable:   dbHealthy,
		ActiveWorkers: activeWorkers,
		TotalWorkers:  len(p.workers),
		ActiveReviews: activeReviews,
		QueueDepth:    queueDepth,
		WorkerStats:   workerStats,
		DBError:       dbError,
	}
}
