package orchestrator

import (
	"testing"
	"time"

	"github.com/sre-platform/healthreview/pkg/config"
	"github.com/stretchr/testify/assert"
)

func testReviewConfig() *config.ReviewConfig {
	cfg := config.DefaultReviewConfig()
	cfg.PollInterval = 1 * time.Second
	cfg.PollIntervalJitter = 500 * time.Millisecond
	return cfg
}

func TestWorkerPollInterval(t *testing.T) {
	w := NewWorker("test-worker", nil, testReviewConfig(), nil)

	for i := 0; i < 100; i++ {
		d := w.pollInterval()
		assert.GreaterOrEqual(t, d, 500*time.Millisecond)
		assert.LessOrEqual(t, d, 1500*time.Millisecond)
	}
}

func TestWorkerPollIntervalNoJitter(t *testing.T) {
	cfg := testReviewConfig()
	cfg.PollIntervalJitter = 0
	w := NewWorker("test-worker", nil, cfg, nil)

	for i := 0; i < 10; i++ {
		assert.Equal(t, 1*time.Second, w.pollInterval())
	}
}

func TestWorkerHealth(t *testing.T) {
	w := NewWorker("worker-1", nil, testReviewConfig(), nil)

	h := w.Health()
	assert.Equal(t, "worker-1", h.ID)
	assert.Equal(t, string(WorkerStatusIdle), h.Status)
	assert.Equal(t, "", h.CurrentReviewID)
	assert.Equal(t, 0, h.ReviewsProcessed)

	w.setStatus(WorkerStatusWorking, "review-abc")
	h = w.Health()
	assert.Equal(t, string(WorkerStatusWorking), h.Status)
	assert.Equal(t, "review-abc", h.CurrentReviewID)

	w.setStatus(WorkerStatusIdle, "")
	h = w.Health()
	assert.Equal(t, string(WorkerStatusIdle), h.Status)
	assert.Equal(t, "", h.CurrentReviewID)
}
