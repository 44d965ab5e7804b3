package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sre-platform/healthreview/pkg/facts"
)

// TestEvaluate_Scenario1_SilentExceptionFullyGenuine covers spec.md
// scenario 1: one try/except with no logging in range should yield
// exactly one LOG_001, severity HIGH, with the expected fingerprint.
func TestEvaluate_Scenario1_SilentExceptionFullyGenuine(t *testing.T) {
	idx := facts.BuildIndex([]facts.CodeFact{
		{FactType: facts.FactFunction, FilePath: "pay.py", LineStart: 10, LineEnd: 40, Metadata: map[string]interface{}{"name": "handle_payment"}},
		{FactType: facts.FactTryExcept, FilePath: "pay.py", LineStart: 20, LineEnd: 30},
	})

	result := Evaluate(idx)

	require.Len(t, result.LoggingGaps, 1)
	gap := result.LoggingGaps[0]
	assert.Equal(t, "LOG_001", gap.RuleID)
	assert.Equal(t, SeverityHigh, gap.Severity)
	assert.Equal(t, []string{"pay.py"}, gap.AffectedFiles)
	assert.Equal(t, []string{"handle_payment"}, gap.AffectedFunctions)

	fp := Fingerprint("LOG_001", []string{"pay.py"}, []string{"handle_payment"})
	assert.Equal(t, fp, Fingerprint(gap.RuleID, gap.AffectedFiles, gap.AffectedFunctions))
	assert.Len(t, fp, 16)
}

func TestFingerprint_InvariantOverPermutation(t *testing.T) {
	a := Fingerprint("LOG_001", []string{"a.py", "b.py"}, []string{"f1", "f2"})
	b := Fingerprint("LOG_001", []string{"b.py", "a.py"}, []string{"f2", "f1"})
	assert.Equal(t, a, b)
}

func TestEvaluate_EmptyFactSet(t *testing.T) {
	idx := facts.BuildIndex(nil)
	result := Evaluate(idx)
	assert.Empty(t, result.LoggingGaps)
	assert.Empty(t, result.MetricsGaps)
}

func TestEvalMET001_FileWithHandlersNoMetrics(t *testing.T) {
	idx := facts.BuildIndex([]facts.CodeFact{
		{FactType: facts.FactFunction, FilePath: "api.py", LineStart: 1, LineEnd: 20, Metadata: map[string]interface{}{"name": "list_users"}},
		{FactType: facts.FactHTTPHandler, FilePath: "api.py", LineStart: 1, LineEnd: 20},
	})

	result := Evaluate(idx)

	require.Len(t, result.MetricsGaps, 2) // MET_001 (file-level) + MET_003 (repo-level, since no metrics at all)
	ruleIDs := map[string]bool{}
	for _, g := range result.MetricsGaps {
		ruleIDs[g.RuleID] = true
	}
	assert.True(t, ruleIDs["MET_001"])
	assert.True(t, ruleIDs["MET_003"])
}

func TestEvalMET001_SuppressedByMetricsCall(t *testing.T) {
	idx := facts.BuildIndex([]facts.CodeFact{
		{FactType: facts.FactFunction, FilePath: "api.py", LineStart: 1, LineEnd: 20, Metadata: map[string]interface{}{"name": "list_users"}},
		{FactType: facts.FactHTTPHandler, FilePath: "api.py", LineStart: 1, LineEnd: 20},
		{FactType: facts.FactMetricsCall, FilePath: "api.py", LineStart: 5, LineEnd: 5},
	})

	result := Evaluate(idx)

	for _, g := range result.MetricsGaps {
		assert.NotEqual(t, "MET_001", g.RuleID)
	}
}

func TestEvalLOG004_RequiresErrorLevelLogging(t *testing.T) {
	idx := facts.BuildIndex([]facts.CodeFact{
		{FactType: facts.FactFunction, FilePath: "x.py", LineStart: 1, LineEnd: 30, Metadata: map[string]interface{}{"name": "f"}},
		{FactType: facts.FactTryExcept, FilePath: "x.py", LineStart: 5, LineEnd: 20},
		{FactType: facts.FactLoggingCall, FilePath: "x.py", LineStart: 10, LineEnd: 10, Metadata: map[string]interface{}{"log_level": "info"}},
	})

	result := Evaluate(idx)

	require.NotEmpty(t, result.LoggingGaps)
	found := false
	for _, g := range result.LoggingGaps {
		if g.RuleID == "LOG_004" {
			found = true
		}
		assert.NotEqual(t, "LOG_001", g.RuleID, "LOG_001 should not fire: an info-level log is present in range")
	}
	assert.True(t, found)
}

func TestDedup_KeepsFirstOccurrence(t *testing.T) {
	problems := []DetectedProblem{
		{RuleID: "LOG_001", AffectedFiles: []string{"a.py"}, AffectedFunctions: []string{"f"}, Title: "first"},
		{RuleID: "LOG_001", AffectedFiles: []string{"a.py"}, AffectedFunctions: []string{"f"}, Title: "duplicate"},
	}
	out := dedup(problems)
	require.Len(t, out, 1)
	assert.Equal(t, "first", out[0].Title)
}

func TestEvaluateREDReadiness_NoHandlers(t *testing.T) {
	idx := facts.BuildIndex(nil)
	red := EvaluateREDReadiness(idx)
	assert.False(t, red.Ready)
}
