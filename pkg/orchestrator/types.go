// Package orchestrator implements the Review Orchestrator (C8, spec
// §4.8): the nine-phase pipeline that turns one due ServiceReview into
// a persisted health report, plus the worker pool that claims and runs
// due reviews. Generalizes pkg/queue's session-queue machinery
// (Worker/SessionExecutor/claimNextSession) from "AlertSession" to
// "ServiceReview".
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Request is C8's entry point argument (spec §4.8: "generate(request)").
type Request struct {
	ReviewID    uuid.UUID
	ServiceID   uuid.UUID
	WorkspaceID uuid.UUID
	WeekStart   time.Time
	WeekEnd     time.Time
}

// Status mirrors the ServiceReview.status enum (spec §4.8 state
// machine: pending -> generating -> completed|failed).
type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ErrNoParsedRepository is returned by phase 1 when the service has no
// ParsedRepository row at all (spec §4.8 phase 1); its message is also
// the persisted error_message verbatim.
var ErrNoParsedRepository = errors.New("no_parsed_repository")

// ErrCancelled marks a review that was cancelled or timed out
// externally (spec §4.8 Cancellation); its message is also the
// persisted error_message verbatim.
var ErrCancelled = errors.New("cancelled")

// ExecutionResult is the lightweight terminal outcome a ReviewExecutor
// returns; all intermediate state (gaps, SLIs, errors) has already been
// written to the database by the time Execute returns, mirroring
// queue.SessionExecutor's contract.
type ExecutionResult struct {
	Status       Status
	ErrorMessage string
}

// ReviewExecutor is the interface pkg/orchestrator's Worker drives;
// DefaultExecutor is the production implementation and wraps the nine
// phases of spec §4.8.
type ReviewExecutor interface {
	Execute(ctx context.Context, req Request) *ExecutionResult
}
