package orchestrator

import (
	"testing"

	"github.com/sre-platform/healthreview/ent"
	"github.com/sre-platform/healthreview/pkg/rules"
	"github.com/sre-platform/healthreview/pkg/verifier"
	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestRepoFullName(t *testing.T) {
	svc := &ent.Service{RepoOwner: strPtr("acme"), RepoName: strPtr("widgets")}
	assert.Equal(t, "acme/widgets", repoFullName(svc))
}

func TestRepoFullName_MissingFields(t *testing.T) {
	svc := &ent.Service{}
	assert.Equal(t, "/", repoFullName(svc))
}

func TestChangedFilePaths(t *testing.T) {
	files := []*ent.ParsedFile{{FilePath: "a.go"}, {FilePath: "b.go"}}
	assert.Equal(t, []string{"a.go", "b.go"}, changedFilePaths(files))
}

func TestFileTree(t *testing.T) {
	lang := "go"
	files := []*ent.ParsedFile{{FilePath: "a.go", Language: &lang, LineCount: 42}}
	tree := fileTree(files)
	assert.Equal(t, []verifier.FileTreeEntry{{FilePath: "a.go", Language: "go", LineCount: 42}}, tree)
}

func TestFileContents_SkipsNilContent(t *testing.T) {
	content := "package main"
	files := []*ent.ParsedFile{
		{FilePath: "a.go", Content: &content},
		{FilePath: "b.go", Content: nil},
	}
	out := fileContents(files)
	assert.Equal(t, map[string]string{"a.go": "package main"}, out)
}

func TestNoVerdict(t *testing.T) {
	problems := []rules.DetectedProblem{{RuleID: "MET_001", Title: "no error rate"}}
	gaps := noVerdict(problems)
	require := assert.New(t)
	require.Len(gaps, 1)
	require.Equal("MET_001", gaps[0].RuleID)
	require.Equal(verifier.Verdict(""), gaps[0].Verdict)
}

func TestSurvivingOnly_DropsFalseAlarmAndCoveredGlobally(t *testing.T) {
	gaps := []verifier.VerifiedGap{
		{DetectedProblem: rules.DetectedProblem{Title: "a"}, Verdict: verifier.VerdictGenuine},
		{DetectedProblem: rules.DetectedProblem{Title: "b"}, Verdict: verifier.VerdictFalseAlarm},
		{DetectedProblem: rules.DetectedProblem{Title: "c"}, Verdict: verifier.VerdictCoveredGlobally},
		{DetectedProblem: rules.DetectedProblem{Title: "d"}},
	}
	out := survivingOnly(gaps)
	assert.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Title)
	assert.Equal(t, "d", out[1].Title)
}

func TestSplitByType(t *testing.T) {
	gaps := []enrichedGap{
		{VerifiedGap: verifier.VerifiedGap{DetectedProblem: rules.DetectedProblem{Title: "log", ProblemType: rules.ProblemLoggingGap}}},
		{VerifiedGap: verifier.VerifiedGap{DetectedProblem: rules.DetectedProblem{Title: "met", ProblemType: rules.ProblemMetricsGap}}},
	}
	logging, metrics := splitByType(gaps)
	assert.Len(t, logging, 1)
	assert.Equal(t, "log", logging[0].Title)
	assert.Len(t, metrics, 1)
	assert.Equal(t, "met", metrics[0].Title)
}
