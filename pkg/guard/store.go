package guard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sre-platform/healthreview/ent"
	"github.com/sre-platform/healthreview/ent/securityevent"
)

// Store is the production EventRecorder, persisting one SecurityEvent
// row per call. A write failure is logged, not returned to the
// classifier caller: the fail-closed decision Check already made
// stands regardless of whether the audit row lands (spec §4.9 records
// the event but does not gate the refusal on the write succeeding).
type Store struct {
	db *ent.Client
}

// NewStore builds a Store.
func NewStore(db *ent.Client) *Store {
	return &Store{db: db}
}

// Record persists evt as a SecurityEvent row.
func (s *Store) Record(ctx context.Context, evt SecurityEvent) error {
	_, err := s.db.SecurityEvent.Create().
		SetWorkspaceID(evt.WorkspaceID).
		SetTenantID(evt.TenantID).
		SetSeverity(securityevent.Severity(evt.Severity)).
		SetReason(evt.Reason).
		SetMessagePreview(evt.MessagePreview).
		Save(ctx)
	if err != nil {
		slog.Error("failed to persist security event", "error", err, "reason", evt.Reason, "workspace_id", evt.WorkspaceID)
		return fmt.Errorf("guard: record security event: %w", err)
	}
	return nil
}
