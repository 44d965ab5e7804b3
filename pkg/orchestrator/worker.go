package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"entgo.io/ent/dialect/sql"

	"github.com/sre-platform/healthreview/ent"
	"github.com/sre-platform/healthreview/ent/servicereview"
	"github.com/sre-platform/healthreview/pkg/config"
)

// WorkerStatus mirrors pkg/queue's WorkerStatus, generalized from
// session to review.
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// ErrNoReviewsAvailable indicates no pending ServiceReview rows are
// due, generalizing queue.ErrNoSessionsAvailable.
var ErrNoReviewsAvailable = errors.New("no reviews available")

// WorkerHealth mirrors queue.WorkerHealth.
type WorkerHealth struct {
	ID               string    `json:"id"`
	Status           string    `json:"status"`
	CurrentReviewID  string    `json:"current_review_id,omitempty"`
	ReviewsProcessed int       `json:"reviews_processed"`
	LastActivity     time.Time `json:"last_activity"`
}

// Worker polls for and processes due ServiceReviews, generalizing
// pkg/queue's Worker/claimNextSession pattern (spec §4.8, §5 Scheduling
// model). Unlike queue.Worker it runs no heartbeat: ServiceReview
// carries no last_interaction_at field, so orphan detection is left to
// ReviewTimeout alone (see DESIGN.md).
type Worker struct {
	id       string
	client   *ent.Client
	cfg      *config.ReviewConfig
	executor ReviewExecutor
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu               sync.RWMutex
	status           WorkerStatus
	currentReviewID  string
	reviewsProcessed int
	lastActivity     time.Time
}

// NewWorker builds a review worker.
func NewWorker(id string, client *ent.Client, cfg *config.ReviewConfig, executor ReviewExecutor) *Worker {
	return &Worker{
		id:           id,
		client:       client,
		cfg:          cfg,
		executor:     executor,
		stopCh:       make(chan struct{}),
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the worker's polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for it to finish. Safe to
// call multiple times.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns the current worker health snapshot.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:               w.id,
		Status:           string(w.status),
		CurrentReviewID:  w.currentReviewID,
		ReviewsProcessed: w.reviewsProcessed,
		LastActivity:     w.lastActivity,
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	log := slog.With("worker_id", w.id)
	log.Info("review worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("review worker shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, review worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, ErrNoReviewsAvailable) {
					w.sleep(w.pollInterval())
					continue
				}
				log.Error("error processing review", "error", err)
				w.sleep(time.Second)
			}
		}
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// pollAndProcess claims the next due review and runs it to completion.
// DefaultExecutor.Execute persists the full terminal transition itself
// (spec §4.8 phases 8-9), so unlike queue.Worker this function does no
// post-processing beyond bookkeeping.
func (w *Worker) pollAndProcess(ctx context.Context) error {
	review, err := w.claimNextReview(ctx)
	if err != nil {
		return err
	}

	log := slog.With("review_id", review.ID, "worker_id", w.id)
	log.Info("review claimed")

	w.setStatus(WorkerStatusWorking, review.ID.String())
	defer w.setStatus(WorkerStatusIdle, "")

	reviewCtx, cancel := context.WithTimeout(ctx, w.cfg.ReviewTimeout)
	defer cancel()

	result := w.executor.Execute(reviewCtx, Request{
		ReviewID:    review.ID,
		ServiceID:   review.ServiceID,
		WorkspaceID: review.WorkspaceID,
		WeekStart:   review.WeekStart,
		WeekEnd:     review.WeekEnd,
	})

	w.mu.Lock()
	w.reviewsProcessed++
	w.mu.Unlock()

	log.Info("review processing complete", "status", result.Status)
	return nil
}

// claimNextReview atomically claims the oldest pending review using
// SELECT ... FOR UPDATE SKIP LOCKED, mirroring
// pkg/queue's claimNextSession.
func (w *Worker) claimNextReview(ctx context.Context) (*ent.ServiceReview, error) {
	tx, err := w.client.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	review, err := tx.ServiceReview.Query().
		Where(servicereview.StatusEQ(servicereview.StatusPending)).
		Order(ent.Asc(servicereview.FieldCreatedAt)).
		Limit(1).
		ForUpdate(sql.WithLockAction(sql.SkipLocked)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNoReviewsAvailable
		}
		return nil, fmt.Errorf("failed to query pending review: %w", err)
	}

	review, err = review.Update().
		SetStatus(servicereview.StatusGenerating).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to claim review: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}
	return review, nil
}

// pollInterval returns the poll duration with jitter, mirroring
// queue.Worker.pollInterval.
func (w *Worker) pollInterval() time.Duration {
	base := w.cfg.PollInterval
	jitter := w.cfg.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}

func (w *Worker) setStatus(status WorkerStatus, reviewID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentReviewID = reviewID
	w.lastActivity = time.Now()
}
