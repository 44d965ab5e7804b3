package verifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sre-platform/healthreview/pkg/budget"
	"github.com/sre-platform/healthreview/pkg/llmprovider"
)

// isBudgetExceeded reports whether err wraps budget.ErrBudgetExceeded —
// the one Phase A/B failure mode that is fatal to the whole review
// rather than merely dropping that phase's output (spec §4.6.3).
func isBudgetExceeded(err error) bool {
	return errors.Is(err, budget.ErrBudgetExceeded)
}

// compactTreeThreshold is the file-count above which the tree is
// compacted to one summary line per directory before being sent to the
// LLM (spec §4.6.2 Phase A).
const compactTreeThreshold = 500

// maxCandidateFiles bounds Phase A's output (spec §4.6.2 Phase A: "at
// most 30 paths").
const maxCandidateFiles = 30

const phaseASystemPrompt = `You identify which files in a repository are most likely to contain observability-relevant code: middleware, instrumentation, logging configuration, error handling, or tracing setup. You are given a file tree and a set of gap rule ids describing what kind of instrumentation is missing. Respond with a JSON array of at most 30 file paths, most-likely-relevant first. Respond with only the JSON array, no other text.`

// IdentifyCandidates runs Phase A: one no-tools LLM call that returns
// up to 30 candidate file paths for Phase B to inspect (spec §4.6.2
// Phase A). provider is expected to already be budget-wrapped
// (llmprovider.WithBudget) by the caller, so a budget exhaustion
// surfaces here as an ordinary Invoke error.
func IdentifyCandidates(ctx context.Context, provider llmprovider.Provider, tree []FileTreeEntry, gapRuleIDs []string) ([]string, error) {
	userPrompt := buildPhaseAPrompt(tree, gapRuleIDs)
	resp, err := provider.Invoke(ctx, llmprovider.InvokeRequest{
		SystemPrompt: phaseASystemPrompt,
		UserPrompt:   userPrompt,
	})
	if err != nil {
		// Phase A failure is non-fatal to the review (spec §4.6.3):
		// budget exhaustion is the one exception and must propagate.
		if isBudgetExceeded(err) {
			return nil, fmt.Errorf("verifier: phase A: %w", err)
		}
		return nil, nil
	}

	var candidates []string
	if err := json.Unmarshal([]byte(extractJSONArray(resp.Text)), &candidates); err != nil {
		return nil, nil
	}

	valid := make(map[string]bool, len(tree))
	for _, e := range tree {
		valid[e.FilePath] = true
	}
	out := make([]string, 0, maxCandidateFiles)
	for _, path := range candidates {
		if !valid[path] {
			continue // unknown paths are silently dropped
		}
		out = append(out, path)
		if len(out) >= maxCandidateFiles {
			break
		}
	}
	return out, nil
}

func buildPhaseAPrompt(tree []FileTreeEntry, gapRuleIDs []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Gap rule ids present in this review: %s\n\n", strings.Join(gapRuleIDs, ", "))
	b.WriteString("File tree:\n")

	if len(tree) > compactTreeThreshold {
		perDir := make(map[string]int)
		for _, e := range tree {
			perDir[dirOf(e.FilePath)]++
		}
		dirs := make([]string, 0, len(perDir))
		for d := range perDir {
			dirs = append(dirs, d)
		}
		sort.Strings(dirs)
		for _, d := range dirs {
			fmt.Fprintf(&b, "%s/ (%d files)\n", d, perDir[d])
		}
	} else {
		for _, e := range tree {
			fmt.Fprintf(&b, "%s (%s, %d lines)\n", e.FilePath, e.Language, e.LineCount)
		}
	}
	return b.String()
}

func dirOf(filePath string) string {
	idx := strings.LastIndex(filePath, "/")
	if idx < 0 {
		return "."
	}
	return filePath[:idx]
}

// extractJSONArray trims surrounding prose a model sometimes adds
// around the requested JSON array, returning the bracketed substring.
func extractJSONArray(text string) string {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < 0 || end < start {
		return text
	}
	return text[start : end+1]
}
