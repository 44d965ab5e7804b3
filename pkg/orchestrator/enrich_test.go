package orchestrator

import (
	"context"
	"testing"

	"github.com/sre-platform/healthreview/pkg/collector"
	"github.com/sre-platform/healthreview/pkg/llmprovider"
	"github.com/sre-platform/healthreview/pkg/rules"
	"github.com/sre-platform/healthreview/pkg/verifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnrichProvider struct {
	text string
	err  error
}

func (p *fakeEnrichProvider) Invoke(_ context.Context, _ llmprovider.InvokeRequest) (llmprovider.InvokeResponse, error) {
	if p.err != nil {
		return llmprovider.InvokeResponse{}, p.err
	}
	return llmprovider.InvokeResponse{Text: p.text}, nil
}

func TestEnrich_EmptyGapsSkipsLLMCall(t *testing.T) {
	e := &DefaultExecutor{}
	summary, recs, gaps, err := e.enrich(context.Background(), &fakeEnrichProvider{}, "svc", &collector.CollectedData{}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, summary)
	assert.Empty(t, recs)
	assert.Empty(t, gaps)
}

func TestEnrich_ParsesPerGapGuidance(t *testing.T) {
	gaps := []verifier.VerifiedGap{
		{DetectedProblem: rules.DetectedProblem{Title: "missing error log", RuleID: "LOG_004"}},
	}
	provider := &fakeEnrichProvider{text: `{
		"summary": "service is mostly healthy",
		"recommendations": "add structured error logging",
		"gaps": [{"title": "missing error log", "suggested_log_statement": "log.Error(...)", "implementation_guide": "wrap the except block", "example_code": "log.Error(\"failed\", err)", "rationale": "errors are silently swallowed"}]
	}`}

	e := &DefaultExecutor{}
	summary, recs, enriched, err := e.enrich(context.Background(), provider, "svc", &collector.CollectedData{}, gaps)

	require.NoError(t, err)
	assert.Equal(t, "service is mostly healthy", summary)
	assert.Equal(t, "add structured error logging", recs)
	require.Len(t, enriched, 1)
	assert.Equal(t, "log.Error(...)", enriched[0].SuggestedLogStatement)
	assert.Equal(t, "wrap the except block", enriched[0].ImplementationGuide)
}

func TestEnrich_TransportErrorIsNonFatal(t *testing.T) {
	gaps := []verifier.VerifiedGap{{DetectedProblem: rules.DetectedProblem{Title: "x"}}}
	e := &DefaultExecutor{}
	summary, recs, enriched, err := e.enrich(context.Background(), &fakeEnrichProvider{err: assertErr{}}, "svc", &collector.CollectedData{}, gaps)

	require.NoError(t, err)
	assert.Empty(t, summary)
	assert.Empty(t, recs)
	require.Len(t, enriched, 1)
	assert.Empty(t, enriched[0].SuggestedLogStatement)
}

type assertErr struct{}

func (assertErr) Error() string { return "transport failure" }
