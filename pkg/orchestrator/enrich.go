package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sre-platform/healthreview/pkg/collector"
	"github.com/sre-platform/healthreview/pkg/llmprovider"
	"github.com/sre-platform/healthreview/pkg/verifier"
)

// enrichedGap is one surviving gap with its phase 6 enrichment fields
// attached (spec §4.8 phase 6).
type enrichedGap struct {
	verifier.VerifiedGap
	SuggestedLogStatement string
	ImplementationGuide   string
	ExampleCode           string
	Rationale             string
}

const enrichmentSystemPrompt = `You are writing remediation guidance for observability gaps found in a service's codebase. For each gap given, produce a suggested fix. Respond with only a JSON object of this shape, no other text:
{
  "summary": "one paragraph describing the service's overall observability posture",
  "recommendations": "one paragraph of prioritized next steps",
  "gaps": [
    {"title": "<gap title, copied verbatim>", "suggested_log_statement": "<only for logging gaps, else empty>", "implementation_guide": "<concrete steps to close this gap>", "example_code": "<a short illustrative snippet>", "rationale": "<why this matters>"}
  ]
}`

type enrichmentGapResponse struct {
	Title                 string `json:"title"`
	SuggestedLogStatement string `json:"suggested_log_statement"`
	ImplementationGuide   string `json:"implementation_guide"`
	ExampleCode           string `json:"example_code"`
	Rationale             string `json:"rationale"`
}

type enrichmentResponse struct {
	Summary         string                  `json:"summary"`
	Recommendations string                  `json:"recommendations"`
	Gaps            []enrichmentGapResponse `json:"gaps"`
}

// enrich runs phase 6: one LLM call over every surviving gap plus the
// collected metrics snapshot, producing a narrative summary and
// per-gap remediation guidance. provider is expected to already be
// budget-wrapped; any failure here (including budget exhaustion) is
// non-fatal — the review proceeds with unenriched gaps and an empty
// summary, since enrichment is prose, not structural data (spec §4.8
// phase 6 is best-effort; only phases 1-5 and 8-9 gate the review).
func (e *DefaultExecutor) enrich(ctx context.Context, provider llmprovider.Provider, serviceName string, data *collector.CollectedData, gaps []verifier.VerifiedGap) (string, string, []enrichedGap, error) {
	if len(gaps) == 0 {
		return "No observability gaps were found.", "", nil, nil
	}

	resp, err := provider.Invoke(ctx, llmprovider.InvokeRequest{
		SystemPrompt: enrichmentSystemPrompt,
		UserPrompt:   buildEnrichmentPrompt(serviceName, data, gaps),
	})
	if err != nil {
		return "", "", passthroughGaps(gaps), nil
	}

	var parsed enrichmentResponse
	if err := json.Unmarshal([]byte(extractJSONObject(resp.Text)), &parsed); err != nil {
		return "", "", passthroughGaps(gaps), nil
	}

	byTitle := make(map[string]enrichmentGapResponse, len(parsed.Gaps))
	for _, g := range parsed.Gaps {
		byTitle[g.Title] = g
	}

	out := make([]enrichedGap, 0, len(gaps))
	for _, g := range gaps {
		eg := enrichedGap{VerifiedGap: g}
		if er, ok := byTitle[g.Title]; ok {
			eg.SuggestedLogStatement = er.SuggestedLogStatement
			eg.ImplementationGuide = er.ImplementationGuide
			eg.ExampleCode = er.ExampleCode
			eg.Rationale = er.Rationale
		}
		out = append(out, eg)
	}
	return parsed.Summary, parsed.Recommendations, out, nil
}

func passthroughGaps(gaps []verifier.VerifiedGap) []enrichedGap {
	out := make([]enrichedGap, 0, len(gaps))
	for _, g := range gaps {
		out = append(out, enrichedGap{VerifiedGap: g})
	}
	return out
}

func buildEnrichmentPrompt(serviceName string, data *collector.CollectedData, gaps []verifier.VerifiedGap) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Service: %s\n", serviceName)
	fmt.Fprintf(&b, "Errors observed: %d, log volume: %d\n\n", len(data.Errors), data.LogCount)
	b.WriteString("Gaps:\n")
	for _, g := range gaps {
		fmt.Fprintf(&b, "- [%s] %s (%s, severity %s): affected files %v\n", g.RuleID, g.Title, g.Category, g.Severity, g.AffectedFiles)
	}
	return b.String()
}

// extractJSONObject trims prose around a brace-delimited JSON object,
// mirroring verifier.extractJSONArray for the array case.
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return text
	}
	return text[start : end+1]
}
