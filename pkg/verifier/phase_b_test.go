package verifier

import (
	"context"
	"strings"
	"testing"

	"github.com/sre-platform/healthreview/pkg/llmprovider"
)

func TestExtractFromFile_ParsesExtractions(t *testing.T) {
	provider := &fakeProvider{
		responses: []llmprovider.InvokeResponse{
			{Text: `[{"type":"http_metrics","function_or_class":"Middleware","coverage":"all_routes","metrics_recorded":["latency_p50"],"registration_file":"main.go","description":"prometheus middleware"}]`},
		},
		errOnCall: -1,
	}

	got, err := ExtractFromFile(context.Background(), provider, CandidateFile{FilePath: "middleware/metrics.go", Content: "package middleware"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 extraction, got %d", len(got))
	}
	if got[0].Type != extractionHTTPMetrics {
		t.Errorf("expected http_metrics, got %s", got[0].Type)
	}
	if got[0].FilePath != "middleware/metrics.go" {
		t.Errorf("expected missing file_path to be filled from the candidate, got %q", got[0].FilePath)
	}
}

func TestExtractFromFile_EmptyArrayYieldsNoExtractions(t *testing.T) {
	provider := &fakeProvider{responses: []llmprovider.InvokeResponse{{Text: "[]"}}, errOnCall: -1}

	got, err := ExtractFromFile(context.Background(), provider, CandidateFile{FilePath: "handlers/user.go"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no extractions, got %v", got)
	}
}

func TestExtractFromFile_BudgetExceededIsFatal(t *testing.T) {
	provider := &fakeProvider{errOnCall: 0, err: budgetExceededErr()}

	_, err := ExtractFromFile(context.Background(), provider, CandidateFile{FilePath: "x.go"})
	if err == nil {
		t.Fatal("expected budget exhaustion to propagate")
	}
}

func TestExtractFromFile_TransportErrorIsNonFatal(t *testing.T) {
	provider := &fakeProvider{errOnCall: 0, err: context.DeadlineExceeded}

	got, err := ExtractFromFile(context.Background(), provider, CandidateFile{FilePath: "x.go"})
	if err != nil {
		t.Fatalf("expected non-budget errors to be swallowed, got %v", err)
	}
	if got != nil {
		t.Errorf("expected no extractions on transport error, got %v", got)
	}
}

func TestTruncateToLines(t *testing.T) {
	content := strings.Repeat("line\n", maxLinesPerFile+50)
	out := truncateToLines(content, maxLinesPerFile)
	if !strings.Contains(out, "truncated") {
		t.Error("expected truncation marker in output")
	}
	if strings.Count(out, "line") > maxLinesPerFile+1 {
		t.Errorf("expected at most %d lines retained", maxLinesPerFile)
	}
}

func TestExtractAll_StopsOnFatalBudgetError(t *testing.T) {
	provider := &fakeProvider{
		responses: []llmprovider.InvokeResponse{
			{Text: "[]"},
		},
		errOnCall: 1,
		err:       budgetExceededErr(),
	}
	files := []CandidateFile{{FilePath: "a.go"}, {FilePath: "b.go"}, {FilePath: "c.go"}}

	_, err := ExtractAll(context.Background(), provider, files)
	if err == nil {
		t.Fatal("expected ExtractAll to stop and return the budget error")
	}
}
