package verifier

import (
	"context"
	"testing"

	"github.com/sre-platform/healthreview/pkg/codectx"
	"github.com/sre-platform/healthreview/pkg/llmprovider"
	"github.com/sre-platform/healthreview/pkg/rules"
	"github.com/sre-platform/healthreview/pkg/verifier/codetools"
)

func TestVerify_UsesFastPathWhenEligible(t *testing.T) {
	current := &codectx.CodebaseContext{
		InfrastructureFiles: []string{"main.go"},
		GlobalHTTPMetrics:   []codectx.GlobalInstrumentation{{Coverage: "all_routes"}},
	}
	in := Input{
		CurrentContext: current,
		ChangedFiles:   []string{"handlers/user.go"},
		Gaps: []rules.DetectedProblem{
			{RuleID: "MET_001", Title: "missing http metrics"},
			{RuleID: "LOG_001", Title: "missing logging"},
		},
	}

	result, err := Verify(context.Background(), &fakeProvider{}, nil, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.UsedFastPath {
		t.Fatal("expected fast path to be used")
	}
	if len(result.VerifiedGaps) != 1 || result.VerifiedGaps[0].RuleID != "LOG_001" {
		t.Errorf("expected only LOG_001 to survive, got %+v", result.VerifiedGaps)
	}
	if result.NewContext != nil {
		t.Error("fast path must not produce a new context")
	}
}

func TestUniqueRuleIDs_DedupsAndSorts(t *testing.T) {
	gaps := []rules.DetectedProblem{
		{RuleID: "MET_002"}, {RuleID: "MET_001"}, {RuleID: "MET_002"},
	}
	got := uniqueRuleIDs(gaps)
	if len(got) != 2 || got[0] != "MET_001" || got[1] != "MET_002" {
		t.Errorf("expected sorted unique rule ids, got %v", got)
	}
}

func TestGroupByRuleID(t *testing.T) {
	gaps := []rules.DetectedProblem{
		{RuleID: "MET_001", Title: "a"}, {RuleID: "MET_002", Title: "b"}, {RuleID: "MET_001", Title: "c"},
	}
	got := groupByRuleID(gaps)
	if len(got["MET_001"]) != 2 {
		t.Errorf("expected 2 gaps grouped under MET_001, got %d", len(got["MET_001"]))
	}
	if len(got["MET_002"]) != 1 {
		t.Errorf("expected 1 gap grouped under MET_002, got %d", len(got["MET_002"]))
	}
}

func TestVerify_RunsSlowPathWhenNoCurrentContext(t *testing.T) {
	provider := &fakeProvider{
		responses: []llmprovider.InvokeResponse{
			{Text: `[]`}, // phase A: no candidates
		},
		errOnCall: -1,
	}
	in := Input{
		WorkspaceID:  "ws-1",
		RepoFullName: "acme/service",
		CommitSHA:    "abc123",
		Gaps:         []rules.DetectedProblem{{RuleID: "MET_001", Title: "missing http metrics"}},
		Tree:         nil,
	}

	// No tool calls are ever emitted by the fake provider's responses in
	// this test, so a nil *codetools.Executor (ListTools ignores its
	// receiver) is safe to pass without a real database.
	var tools *codetools.Executor

	result, err := Verify(context.Background(), provider, tools, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.UsedFastPath {
		t.Fatal("expected slow path when there is no current context")
	}
	if result.NewContext == nil {
		t.Error("expected slow path to produce a new context")
	}
}
