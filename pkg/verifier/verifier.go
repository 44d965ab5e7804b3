package verifier

import (
	"context"
	"fmt"
	"sort"

	"github.com/sre-platform/healthreview/pkg/codectx"
	"github.com/sre-platform/healthreview/pkg/llmprovider"
	"github.com/sre-platform/healthreview/pkg/rules"
	"github.com/sre-platform/healthreview/pkg/verifier/codetools"
)

// Input is everything Verify needs to resolve one review's gaps (spec
// §4.6).
type Input struct {
	WorkspaceID    string
	RepoFullName   string
	CommitSHA      string
	ChangedFiles   []string
	CurrentContext *codectx.CodebaseContext // most recent stored context, or nil
	Gaps           []rules.DetectedProblem
	Tree           []FileTreeEntry
	FileContents   map[string]string // full (pre-truncation) source, keyed by FilePath
}

// Result is Verify's output: the resolved gaps and, when the slow path
// ran, the freshly derived context to persist.
type Result struct {
	VerifiedGaps []VerifiedGap
	NewContext   *codectx.CodebaseContext // nil when the fast path was used
	UsedFastPath bool
}

// Verify resolves in.Gaps to pass/fail verdicts, choosing the fast path
// (spec §4.6.1) when eligible and otherwise running the full three-phase
// slow path (spec §4.6.2). provider is expected to already be
// budget-wrapped via llmprovider.WithBudget; a budget exhaustion during
// the slow path is fatal and returned as an error (spec §4.6.3).
func Verify(ctx context.Context, provider llmprovider.Provider, tools *codetools.Executor, in Input) (*Result, error) {
	if CanUseFastPath(in.CurrentContext, in.ChangedFiles) {
		return &Result{
			VerifiedGaps: FastPathFilter(in.CurrentContext, in.Gaps),
			UsedFastPath: true,
		}, nil
	}
	return runSlowPath(ctx, provider, tools, in)
}

func runSlowPath(ctx context.Context, provider llmprovider.Provider, tools *codetools.Executor, in Input) (*Result, error) {
	ruleIDs := uniqueRuleIDs(in.Gaps)

	candidates, err := IdentifyCandidates(ctx, provider, in.Tree, ruleIDs)
	if err != nil {
		return nil, fmt.Errorf("verifier: %w", err)
	}

	var files []CandidateFile
	for _, path := range candidates {
		files = append(files, CandidateFile{FilePath: path, Content: in.FileContents[path]})
	}

	extractions, err := ExtractAll(ctx, provider, files)
	if err != nil {
		return nil, fmt.Errorf("verifier: %w", err)
	}

	newContext := BuildContext(in.WorkspaceID, in.RepoFullName, in.CommitSHA, extractions)

	grouped := groupByRuleID(in.Gaps)
	var verified []VerifiedGap
	for _, ruleID := range ruleIDs {
		group, err := VerifyGroup(ctx, provider, tools, ruleID, grouped[ruleID])
		if err != nil {
			return nil, fmt.Errorf("verifier: %w", err)
		}
		verified = append(verified, group...)
	}

	return &Result{
		VerifiedGaps: verified,
		NewContext:   newContext,
	}, nil
}

func uniqueRuleIDs(gaps []rules.DetectedProblem) []string {
	seen := map[string]bool{}
	var out []string
	for _, g := range gaps {
		if seen[g.RuleID] {
			continue
		}
		seen[g.RuleID] = true
		out = append(out, g.RuleID)
	}
	sort.Strings(out)
	return out
}

func groupByRuleID(gaps []rules.DetectedProblem) map[string][]rules.DetectedProblem {
	out := map[string][]rules.DetectedProblem{}
	for _, g := range gaps {
		out[g.RuleID] = append(out[g.RuleID], g)
	}
	return out
}
