package verifier

import (
	"context"
	"testing"

	"github.com/sre-platform/healthreview/pkg/llmprovider"
	"github.com/sre-platform/healthreview/pkg/rules"
	"github.com/sre-platform/healthreview/pkg/verifier/codetools"
)

// fakeTools answers every tool call with a canned result, no actual
// repository lookup.
type fakeTools struct {
	defs []llmprovider.ToolDefinition
}

func (f *fakeTools) ListTools(_ context.Context) ([]llmprovider.ToolDefinition, error) {
	return f.defs, nil
}

func (f *fakeTools) Execute(_ context.Context, call llmprovider.ToolCall) (*codetools.ToolResult, error) {
	return &codetools.ToolResult{CallID: call.ID, Name: call.Name, Content: "prometheus middleware found"}, nil
}

func gapsForRule(ruleID string, n int) []rules.DetectedProblem {
	var out []rules.DetectedProblem
	for i := 0; i < n; i++ {
		out = append(out, rules.DetectedProblem{RuleID: ruleID, Title: "gap", Category: "metrics"})
	}
	return out
}

func TestVerifyGroup_AllPassDowngradesToFalseAlarm(t *testing.T) {
	gaps := gapsForRule("MET_001", 3)
	for i := range gaps {
		gaps[i].Title = gaps[i].Title + string(rune('a'+i))
	}
	verdictsJSON := `[{"gap_title":"gapa","verdict":"pass"},{"gap_title":"gapb","verdict":"pass"},{"gap_title":"gapc","verdict":"pass"}]`
	provider := &fakeProvider{responses: []llmprovider.InvokeResponse{{Text: verdictsJSON}}, errOnCall: -1}

	out, err := VerifyGroup(context.Background(), provider, &fakeTools{}, "MET_001", gaps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, g := range out {
		if g.Verdict != VerdictFalseAlarm {
			t.Errorf("expected false_alarm with pass_ratio 1.0, got %s", g.Verdict)
		}
	}
}

func TestVerifyGroup_BelowThresholdStaysGenuine(t *testing.T) {
	gaps := gapsForRule("MET_002", 2)
	gaps[0].Title, gaps[1].Title = "gapa", "gapb"
	verdictsJSON := `[{"gap_title":"gapa","verdict":"pass"},{"gap_title":"gapb","verdict":"fail"}]`
	provider := &fakeProvider{responses: []llmprovider.InvokeResponse{{Text: verdictsJSON}}, errOnCall: -1}

	out, err := VerifyGroup(context.Background(), provider, &fakeTools{}, "MET_002", gaps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, g := range out {
		if g.Verdict != VerdictGenuine {
			t.Errorf("expected genuine with pass_ratio 0.5 < threshold, got %s", g.Verdict)
		}
	}
}

func TestVerifyGroup_ToolCallLoopThenFinalAnswer(t *testing.T) {
	gaps := gapsForRule("MET_004", 1)
	gaps[0].Title = "gapa"
	provider := &fakeProvider{
		responses: []llmprovider.InvokeResponse{
			{ToolCalls: []llmprovider.ToolCall{{ID: "1", Name: "search_files", Arguments: `{"keyword":"prometheus"}`}}},
			{Text: `[{"gap_title":"gapa","verdict":"pass"}]`},
		},
		errOnCall: -1,
	}

	out, err := VerifyGroup(context.Background(), provider, &fakeTools{}, "MET_004", gaps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Verdict != VerdictFalseAlarm {
		t.Errorf("expected the gap to pass after the tool-call turn, got %+v", out)
	}
	if provider.calls != 2 {
		t.Errorf("expected exactly 2 LLM turns, got %d", provider.calls)
	}
}

func TestVerifyGroup_MalformedJSONDefaultsToGenuine(t *testing.T) {
	gaps := gapsForRule("MET_001", 1)
	provider := &fakeProvider{responses: []llmprovider.InvokeResponse{{Text: "not json"}}, errOnCall: -1}

	out, err := VerifyGroup(context.Background(), provider, &fakeTools{}, "MET_001", gaps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// pass_ratio is 0/1 since no verdicts parsed — stays genuine.
	if out[0].Verdict != VerdictGenuine {
		t.Errorf("expected genuine default on malformed JSON, got %s", out[0].Verdict)
	}
}

func TestVerifyGroup_BudgetExceededIsFatal(t *testing.T) {
	gaps := gapsForRule("MET_001", 1)
	provider := &fakeProvider{errOnCall: 0, err: budgetExceededErr()}

	_, err := VerifyGroup(context.Background(), provider, &fakeTools{}, "MET_001", gaps)
	if err == nil {
		t.Fatal("expected budget exhaustion to propagate")
	}
}

func TestVerifyGroup_EmptyGapsYieldsNothing(t *testing.T) {
	out, err := VerifyGroup(context.Background(), &fakeProvider{}, &fakeTools{}, "MET_001", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != nil {
		t.Errorf("expected no output for an empty gap list, got %v", out)
	}
}
