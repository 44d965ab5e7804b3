package verifier

import (
	"context"
	"testing"

	"github.com/sre-platform/healthreview/pkg/llmprovider"
)

func TestIdentifyCandidates_DropsUnknownPaths(t *testing.T) {
	provider := &fakeProvider{
		responses: []llmprovider.InvokeResponse{
			{Text: `["handlers/user.go", "does/not/exist.go", "middleware/metrics.go"]`},
		},
		errOnCall: -1,
	}
	tree := []FileTreeEntry{
		{FilePath: "handlers/user.go", Language: "go", LineCount: 40},
		{FilePath: "middleware/metrics.go", Language: "go", LineCount: 80},
	}

	got, err := IdentifyCandidates(context.Background(), provider, tree, []string{"MET_001"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 valid candidates, got %v", got)
	}
	if got[0] != "handlers/user.go" || got[1] != "middleware/metrics.go" {
		t.Errorf("unexpected candidates: %v", got)
	}
}

func TestIdentifyCandidates_CapsAtMaxCandidates(t *testing.T) {
	var paths []string
	var tree []FileTreeEntry
	for i := 0; i < maxCandidateFiles+10; i++ {
		p := "pkg/file.go"
		if i > 0 {
			p = "pkg/file" + string(rune('a'+i%26)) + ".go"
		}
		paths = append(paths, p)
		tree = append(tree, FileTreeEntry{FilePath: p, Language: "go"})
	}
	resp := `["` + joinQuoted(paths) + `"]`
	provider := &fakeProvider{responses: []llmprovider.InvokeResponse{{Text: resp}}, errOnCall: -1}

	got, err := IdentifyCandidates(context.Background(), provider, tree, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != maxCandidateFiles {
		t.Fatalf("expected %d candidates, got %d", maxCandidateFiles, len(got))
	}
}

func joinQuoted(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += `","`
		}
		out += s
	}
	return out
}

func TestIdentifyCandidates_MalformedJSONYieldsNoError(t *testing.T) {
	provider := &fakeProvider{responses: []llmprovider.InvokeResponse{{Text: "not json"}}, errOnCall: -1}

	got, err := IdentifyCandidates(context.Background(), provider, nil, nil)
	if err != nil {
		t.Fatalf("phase A failure must be non-fatal, got error: %v", err)
	}
	if got != nil {
		t.Errorf("expected no candidates, got %v", got)
	}
}

func TestIdentifyCandidates_BudgetExceededIsFatal(t *testing.T) {
	provider := &fakeProvider{errOnCall: 0, err: budgetExceededErr()}

	_, err := IdentifyCandidates(context.Background(), provider, nil, nil)
	if err == nil {
		t.Fatal("expected budget exhaustion to propagate as an error")
	}
}

func TestIdentifyCandidates_CompactsLargeTree(t *testing.T) {
	var tree []FileTreeEntry
	for i := 0; i < compactTreeThreshold+1; i++ {
		tree = append(tree, FileTreeEntry{FilePath: "pkg/sub/file.go", Language: "go"})
	}
	prompt := buildPhaseAPrompt(tree, nil)
	if want := "pkg/sub/ ("; !contains(prompt, want) {
		t.Errorf("expected compacted per-directory summary line containing %q, got:\n%s", want, prompt)
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (func() bool {
		for i := 0; i+len(substr) <= len(s); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	})()
}
