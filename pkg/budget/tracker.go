// Package budget enforces the global per-run iteration and token caps
// that every LLM invocation in a review must respect (spec §4.1).
package budget

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrBudgetExceeded is the sentinel wrapped by Tracker.CheckBeforeCall.
// Callers should treat it as fatal to the enclosing review.
var ErrBudgetExceeded = errors.New("llm budget exhausted")

// Usage is the token accounting reported by a single LLM completion.
// Providers that omit usage entirely leave both fields zero; callers
// should fall back to a best-effort estimate (see pkg/llmprovider) before
// calling RecordCompletion.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Total returns InputTokens + OutputTokens.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Tracker is a single budget instance created at review start with
// (max_iterations, max_tokens). It is not shared across reviews — each
// review owns its own instance (spec §5).
//
// Counters are strictly monotonic and lock-free: they are independent
// scalars with no composite invariant to protect, so atomic.Int64 is
// sufficient and avoids a mutex for the hot path every LLM call takes.
type Tracker struct {
	maxIterations int64
	maxTokens     int64

	iterations atomic.Int64
	tokens     atomic.Int64
}

// NewTracker creates a Tracker with the given caps. A zero or negative
// cap disables that dimension (treated as unbounded), matching the
// Python original's behavior when a limit is not configured.
func NewTracker(maxIterations, maxTokens int) *Tracker {
	return &Tracker{
		maxIterations: int64(maxIterations),
		maxTokens:     int64(maxTokens),
	}
}

// Iterations returns the number of completed LLM calls charged so far.
func (t *Tracker) Iterations() int {
	return int(t.iterations.Load())
}

// Tokens returns the number of tokens charged so far.
func (t *Tracker) Tokens() int {
	return int(t.tokens.Load())
}

// IsExhausted reports whether either cap has already been reached.
func (t *Tracker) IsExhausted() bool {
	if t.maxIterations > 0 && t.iterations.Load() >= t.maxIterations {
		return true
	}
	if t.maxTokens > 0 && t.tokens.Load() >= t.maxTokens {
		return true
	}
	return false
}

// CheckBeforeCall must be invoked before every LLM invocation. A call
// either starts and is fully counted via RecordCompletion, or is
// rejected here before it starts — there is no partial charge.
func (t *Tracker) CheckBeforeCall() error {
	var reasons []string
	if t.maxIterations > 0 && t.iterations.Load() >= t.maxIterations {
		reasons = append(reasons, fmt.Sprintf("iteration limit (%d) reached", t.maxIterations))
	}
	if t.maxTokens > 0 && t.tokens.Load() >= t.maxTokens {
		reasons = append(reasons, fmt.Sprintf("token limit (%d) reached", t.maxTokens))
	}
	if len(reasons) == 0 {
		return nil
	}
	msg := reasons[0]
	for _, r := range reasons[1:] {
		msg += "; " + r
	}
	return fmt.Errorf("%w: %s", ErrBudgetExceeded, msg)
}

// RecordCompletion charges one iteration and the reported usage against
// the budget. It is called unconditionally after every LLM call that
// passed CheckBeforeCall, regardless of whether the call's own output
// parsed successfully — the budget is decremented on completion, not on
// successful interpretation of the result (spec §9, Dynamic LLM output
// parsing).
func (t *Tracker) RecordCompletion(u Usage) {
	t.iterations.Add(1)
	t.tokens.Add(int64(u.Total()))
}

// Snapshot is an immutable view of the counters, useful for embedding in
// a review's error_message when the budget is exhausted.
type Snapshot struct {
	Iterations    int
	MaxIterations int
	Tokens        int
	MaxTokens     int
}

// Snapshot returns the current counter state.
func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{
		Iterations:    t.Iterations(),
		MaxIterations: int(t.maxIterations),
		Tokens:        t.Tokens(),
		MaxTokens:     int(t.maxTokens),
	}
}

func (s Snapshot) String() string {
	return fmt.Sprintf("iterations=%d/%d tokens=%d/%d", s.Iterations, s.MaxIterations, s.Tokens, s.MaxTokens)
}
