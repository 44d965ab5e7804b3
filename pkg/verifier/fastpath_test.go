package verifier

import (
	"testing"

	"github.com/sre-platform/healthreview/pkg/codectx"
	"github.com/sre-platform/healthreview/pkg/rules"
)

func TestCanUseFastPath(t *testing.T) {
	ctxWithInfra := &codectx.CodebaseContext{InfrastructureFiles: []string{"middleware/metrics.go"}}

	tests := []struct {
		name    string
		current *codectx.CodebaseContext
		changed []string
		want    bool
	}{
		{"no prior context", nil, []string{"handlers/user.go"}, false},
		{"unrelated changed file", ctxWithInfra, []string{"handlers/user.go"}, true},
		{"infra file changed", ctxWithInfra, []string{"middleware/metrics.go"}, false},
		{"no changed files", ctxWithInfra, nil, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanUseFastPath(tc.current, tc.changed); got != tc.want {
				t.Errorf("CanUseFastPath() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFastPathFilter_SuppressesCoveredGaps(t *testing.T) {
	ctx := &codectx.CodebaseContext{
		GlobalHTTPMetrics:       []codectx.GlobalInstrumentation{{Coverage: "all_routes"}},
		GlobalDBInstrumentation: []codectx.GlobalInstrumentation{{Coverage: "specific_paths"}},
	}
	gaps := []rules.DetectedProblem{
		{RuleID: "MET_001", Title: "missing http metrics"},
		{RuleID: "MET_002", Title: "missing db metrics"},
		{RuleID: "MET_004", Title: "missing error handling"},
		{RuleID: "LOG_001", Title: "missing logging"},
	}

	out := FastPathFilter(ctx, gaps)

	var titles []string
	for _, g := range out {
		titles = append(titles, g.Title)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 surviving gaps (MET_004, LOG_001), got %v", titles)
	}
	for _, g := range out {
		if g.RuleID == "MET_001" || g.RuleID == "MET_002" {
			t.Errorf("expected %s to be suppressed", g.RuleID)
		}
	}
}

func TestFastPathFilter_NoSuppressionWithoutCoverage(t *testing.T) {
	ctx := &codectx.CodebaseContext{}
	gaps := []rules.DetectedProblem{{RuleID: "MET_001", Title: "missing http metrics"}}

	out := FastPathFilter(ctx, gaps)

	if len(out) != 1 {
		t.Fatalf("expected gap to survive when no global coverage recorded, got %d", len(out))
	}
}
