package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sre-platform/healthreview/pkg/llmprovider"
	"github.com/sre-platform/healthreview/pkg/rules"
	"github.com/sre-platform/healthreview/pkg/verifier/codetools"
)

// VerificationSampleSize bounds how many gaps in a rule group Phase C
// actually verifies (spec §4.6.2 Phase C: "sample up to 20 per rule
// group").
const VerificationSampleSize = 20

// VerificationConfidenceThreshold is the pass_ratio a group must clear
// for every gap in it to be downgraded to false_alarm (spec §4.6.2
// Phase C).
const VerificationConfidenceThreshold = 0.70

// maxPhaseCSteps bounds the tool-call loop for a single rule group
// (one LLM turn per read_file/search_files/list_files call, plus the
// final answer turn).
const maxPhaseCSteps = 12

const phaseCSystemPrompt = `You verify whether a set of reported observability gaps are genuine or false alarms, by inspecting the actual repository using the read_file, search_files, and list_files tools. For each gap given to you, decide pass (the gap is a false alarm — instrumentation actually exists) or fail (the gap is genuine). When you are done investigating, respond with a JSON array, one object per gap, each with fields: gap_title, verdict ("pass" or "fail"), reason, evidence_file. Respond with only the JSON array as your final answer, no other text.`

// toolExecutor is the subset of *codetools.Executor Phase C needs,
// narrowed to ease substituting a fake in tests.
type toolExecutor interface {
	ListTools(ctx context.Context) ([]llmprovider.ToolDefinition, error)
	Execute(ctx context.Context, call llmprovider.ToolCall) (*codetools.ToolResult, error)
}

// VerifyGroup runs Phase C for one rule_id group: up to
// VerificationSampleSize gaps are sampled, investigated via a bounded
// tool-call loop, and resolved to a pass_ratio against
// VerificationConfidenceThreshold. provider is expected to already be
// budget-wrapped by the caller.
func VerifyGroup(ctx context.Context, provider llmprovider.Provider, tools toolExecutor, ruleID string, gaps []rules.DetectedProblem) ([]VerifiedGap, error) {
	if len(gaps) == 0 {
		return nil, nil
	}

	sample := gaps
	if len(sample) > VerificationSampleSize {
		sample = sample[:VerificationSampleSize]
	}

	toolDefs, err := tools.ListTools(ctx)
	if err != nil {
		return defaultGenuine(gaps, "tool listing failed"), nil
	}

	verdicts, err := runPhaseCLoop(ctx, provider, tools, toolDefs, ruleID, sample)
	if err != nil {
		if isBudgetExceeded(err) {
			return nil, fmt.Errorf("verifier: phase C: rule %s: %w", ruleID, err)
		}
		// Any other per-group failure defaults the whole group to
		// genuine (spec §4.6.3).
		return defaultGenuine(gaps, "verification call failed: "+err.Error()), nil
	}

	byTitle := make(map[string]gapVerdict, len(verdicts))
	for _, v := range verdicts {
		byTitle[v.GapTitle] = v
	}

	// Gaps with no matching verdict (a partial final answer from a
	// step-capped run) inherit the group's eventual pass_ratio decision
	// rather than contributing to it (spec §4.6.3).
	passCount := 0
	for _, g := range sample {
		if v, ok := byTitle[g.Title]; ok && v.Verdict == "pass" {
			passCount++
		}
	}

	passRatio := float64(passCount) / float64(len(sample))
	groupFalseAlarm := passRatio >= VerificationConfidenceThreshold

	out := make([]VerifiedGap, 0, len(gaps))
	for _, g := range gaps {
		if groupFalseAlarm {
			out = append(out, VerifiedGap{DetectedProblem: g, Verdict: VerdictFalseAlarm, Reason: fmt.Sprintf("rule group pass_ratio %.2f >= %.2f", passRatio, VerificationConfidenceThreshold)})
		} else {
			out = append(out, VerifiedGap{DetectedProblem: g, Verdict: VerdictGenuine, Reason: fmt.Sprintf("rule group pass_ratio %.2f < %.2f", passRatio, VerificationConfidenceThreshold)})
		}
	}
	return out, nil
}

func defaultGenuine(gaps []rules.DetectedProblem, reason string) []VerifiedGap {
	out := make([]VerifiedGap, 0, len(gaps))
	for _, g := range gaps {
		out = append(out, VerifiedGap{DetectedProblem: g, Verdict: VerdictGenuine, Reason: reason})
	}
	return out
}

// runPhaseCLoop drives the bounded tool-call conversation for one rule
// group and returns whatever gap verdicts the final answer contained
// (possibly a partial list if the step cap was reached mid-investigation,
// spec §4.6.3).
func runPhaseCLoop(ctx context.Context, provider llmprovider.Provider, tools toolExecutor, toolDefs []llmprovider.ToolDefinition, ruleID string, sample []rules.DetectedProblem) ([]gapVerdict, error) {
	var transcript strings.Builder
	fmt.Fprintf(&transcript, "Rule group: %s\n\nGaps to verify:\n", ruleID)
	for _, g := range sample {
		fmt.Fprintf(&transcript, "- %s (category: %s, files: %s)\n", g.Title, g.Category, strings.Join(g.AffectedFiles, ", "))
	}

	var lastText string
	for step := 0; step < maxPhaseCSteps; step++ {
		resp, err := provider.Invoke(ctx, llmprovider.InvokeRequest{
			SystemPrompt: phaseCSystemPrompt,
			UserPrompt:   transcript.String(),
			Tools:        toolDefs,
		})
		if err != nil {
			return parseGapVerdicts(lastText), err
		}
		lastText = resp.Text

		if len(resp.ToolCalls) == 0 {
			return parseGapVerdicts(resp.Text), nil
		}

		if resp.Text != "" {
			fmt.Fprintf(&transcript, "\nAssistant: %s\n", resp.Text)
		}
		for _, call := range resp.ToolCalls {
			result, err := tools.Execute(ctx, call)
			if err != nil {
				fmt.Fprintf(&transcript, "\nTool %s error: %v\n", call.Name, err)
				continue
			}
			status := "ok"
			if result.IsError {
				status = "error"
			}
			fmt.Fprintf(&transcript, "\nTool %s (%s): %s\n", call.Name, status, result.Content)
		}
	}
	// Step cap exhausted: parse whatever the last turn's text contained.
	return parseGapVerdicts(lastText), nil
}

func parseGapVerdicts(text string) []gapVerdict {
	var verdicts []gapVerdict
	if err := json.Unmarshal([]byte(extractJSONArray(text)), &verdicts); err != nil {
		return nil
	}
	return verdicts
}
