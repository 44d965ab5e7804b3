package verifier

import "testing"

func TestBuildContext_GroupsByType(t *testing.T) {
	extractions := []extraction{
		{Type: extractionHTTPMetrics, FilePath: "middleware/metrics.go", Coverage: "all_routes", RegistrationFile: "main.go"},
		{Type: extractionDBInstrumentation, FilePath: "db/pool.go", Coverage: "all_db_queries"},
		{Type: extractionLogging, FilePath: "logging/setup.go", Description: "structlog"},
	}

	ctx := BuildContext("ws-1", "acme/service", "abc123", extractions)

	if len(ctx.GlobalHTTPMetrics) != 1 {
		t.Errorf("expected 1 http metrics entry, got %d", len(ctx.GlobalHTTPMetrics))
	}
	if len(ctx.GlobalDBInstrumentation) != 1 {
		t.Errorf("expected 1 db instrumentation entry, got %d", len(ctx.GlobalDBInstrumentation))
	}
	if ctx.LoggingFramework != "structlog" {
		t.Errorf("expected logging framework to be set from description, got %q", ctx.LoggingFramework)
	}
	if ctx.WorkspaceID != "ws-1" || ctx.RepoFullName != "acme/service" || ctx.CommitSHA != "abc123" {
		t.Errorf("expected identity fields to be carried through, got %+v", ctx)
	}
}

func TestBuildContext_InfrastructureFilesIsUnion(t *testing.T) {
	extractions := []extraction{
		{Type: extractionHTTPMetrics, FilePath: "middleware/metrics.go", RegistrationFile: "main.go"},
		{Type: extractionTracing, FilePath: "tracing/setup.go", RegistrationFile: "main.go"},
	}

	ctx := BuildContext("ws-1", "acme/service", "abc123", extractions)

	want := map[string]bool{"middleware/metrics.go": true, "tracing/setup.go": true, "main.go": true}
	if len(ctx.InfrastructureFiles) != len(want) {
		t.Fatalf("expected %d unique infrastructure files, got %d: %v", len(want), len(ctx.InfrastructureFiles), ctx.InfrastructureFiles)
	}
	for _, f := range ctx.InfrastructureFiles {
		if !want[f] {
			t.Errorf("unexpected infrastructure file %q", f)
		}
	}
}

func TestBuildContext_NoExtractionsYieldsEmptyContext(t *testing.T) {
	ctx := BuildContext("ws-1", "acme/service", "abc123", nil)
	if len(ctx.InfrastructureFiles) != 0 {
		t.Errorf("expected no infrastructure files, got %v", ctx.InfrastructureFiles)
	}
	if len(ctx.GlobalHTTPMetrics) != 0 {
		t.Errorf("expected no http metrics entries")
	}
}
