// Package rules implements the deterministic rule engine (spec §4.4):
// a pure function over indexed CodeFacts producing DetectedProblem
// records, with no I/O and no LLM involvement.
package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/sre-platform/healthreview/pkg/facts"
)

// ProblemType distinguishes logging gaps from metrics gaps.
type ProblemType string

const (
	ProblemLoggingGap ProblemType = "logging_gap"
	ProblemMetricsGap ProblemType = "metrics_gap"
)

// Severity is the rule-assigned severity of a DetectedProblem.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// logLevelsRequiringErrorHandling are the log_level values LOG_004
// looks for inside a try/except block.
var logLevelsRequiringErrorHandling = map[string]bool{
	"error":     true,
	"exception": true,
	"critical":  true,
	"fatal":     true,
}

// DetectedProblem is one gap produced by a single rule evaluation,
// before fingerprinting or persistence.
type DetectedProblem struct {
	RuleID                string
	ProblemType           ProblemType
	Severity              Severity
	Title                 string
	Category              string
	AffectedFiles         []string
	AffectedFunctions     []string
	Evidence              []string
	MetricType            string // enrichment-prompting only, never read by scoring (spec §9)
	SuggestedMetricNames  []string
}

// Fingerprint computes the cross-review tracking hash from spec §4.4:
// SHA-256(rule_id || "::" || join("|", sorted affected_files) || "::"
// || join("|", sorted affected_functions))[:16 hex]. It is invariant
// over permutations of affected_files/affected_functions.
func Fingerprint(ruleID string, affectedFiles, affectedFunctions []string) string {
	files := append([]string(nil), affectedFiles...)
	fns := append([]string(nil), affectedFunctions...)
	sort.Strings(files)
	sort.Strings(fns)

	input := ruleID + "::" + strings.Join(files, "|") + "::" + strings.Join(fns, "|")
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:16]
}

// RuleEngineResult is the output of Evaluate: the deduplicated gap sets
// plus the optional RED-readiness supplement.
type RuleEngineResult struct {
	LoggingGaps   []DetectedProblem
	MetricsGaps   []DetectedProblem
	RED           REDDashboardReadiness
	FactsSummary  FactsSummary
}

// FactsSummary carries a few aggregate counts useful for the
// orchestrator's review-level metadata (error_count_analyzed's
// siblings); it has no bearing on scoring.
type FactsSummary struct {
	TotalFunctions int
	TotalFiles     int
	TotalFacts     int
}

// Evaluate runs every rule over the indexed facts and returns the
// deduplicated result. It is a pure function: the same index always
// produces the same DetectedProblem set up to ordering (spec §8).
func Evaluate(idx *facts.Index) RuleEngineResult {
	var problems []DetectedProblem
	problems = append(problems, evalLOG001(idx)...)
	problems = append(problems, evalLOG002(idx)...)
	problems = append(problems, evalLOG003(idx)...)
	problems = append(problems, evalLOG004(idx)...)
	problems = append(problems, evalLOG005(idx)...)
	problems = append(problems, evalMET001(idx)...)
	problems = append(problems, evalMET002(idx)...)
	problems = append(problems, evalMET003(idx)...)
	problems = append(problems, evalMET004(idx)...)

	problems = dedup(problems)

	result := RuleEngineResult{
		RED:          EvaluateREDReadiness(idx),
		FactsSummary: summarize(idx),
	}
	for _, p := range problems {
		switch p.ProblemType {
		case ProblemLoggingGap:
			result.LoggingGaps = append(result.LoggingGaps, p)
		case ProblemMetricsGap:
			result.MetricsGaps = append(result.MetricsGaps, p)
		}
	}
	return result
}

func summarize(idx *facts.Index) FactsSummary {
	files := make(map[string]bool)
	totalFunctions := 0
	for _, f := range idx.All {
		files[f.FilePath] = true
		if f.FactType == facts.FactFunction {
			totalFunctions++
		}
	}
	return FactsSummary{
		TotalFunctions: totalFunctions,
		TotalFiles:     len(files),
		TotalFacts:     len(idx.All),
	}
}

// dedup applies spec §4.4's dedup key: (rule_id, sorted affected_files,
// sorted affected_functions). The first occurrence is kept.
func dedup(problems []DetectedProblem) []DetectedProblem {
	seen := make(map[string]bool, len(problems))
	out := make([]DetectedProblem, 0, len(problems))
	for _, p := range problems {
		key := Fingerprint(p.RuleID, p.AffectedFiles, p.AffectedFunctions)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// --- LOG_* rules ---

// evalLOG001: try/except block contains no logging_call fact in its
// line range. Severity HIGH.
func evalLOG001(idx *facts.Index) []DetectedProblem {
	var out []DetectedProblem
	for _, te := range idx.ByType[facts.FactTryExcept] {
		logs := idx.FactsInRange(te.FilePath, facts.FactLoggingCall, te.LineStart, te.LineEnd)
		if len(logs) > 0 {
			continue
		}
		fn, _ := idx.EnclosingFunction(te)
		out = append(out, DetectedProblem{
			RuleID:            "LOG_001",
			ProblemType:       ProblemLoggingGap,
			Severity:          SeverityHigh,
			Title:             "Exception handler has no logging",
			Category:          "error_handling",
			AffectedFiles:     []string{te.FilePath},
			AffectedFunctions: functionNames(fn),
		})
	}
	return out
}

// evalLOG002: http_handler function contains no logging_call. MEDIUM.
func evalLOG002(idx *facts.Index) []DetectedProblem {
	var out []DetectedProblem
	for _, h := range idx.ByType[facts.FactHTTPHandler] {
		fn, ok := idx.EnclosingFunction(h)
		if !ok {
			fn = h
		}
		logs := idx.FactsInRange(fn.FilePath, facts.FactLoggingCall, fn.LineStart, fn.LineEnd)
		if len(logs) > 0 {
			continue
		}
		out = append(out, DetectedProblem{
			RuleID:            "LOG_002",
			ProblemType:       ProblemLoggingGap,
			Severity:          SeverityMedium,
			Title:             "HTTP handler has no logging",
			Category:          "http",
			AffectedFiles:     []string{fn.FilePath},
			AffectedFunctions: functionNames(fn),
		})
	}
	return out
}

// evalLOG003: function containing an external_io fact has no
// logging_call. MEDIUM.
func evalLOG003(idx *facts.Index) []DetectedProblem {
	var out []DetectedProblem
	for _, io := range idx.ByType[facts.FactExternalIO] {
		fn, ok := idx.EnclosingFunction(io)
		if !ok {
			continue
		}
		logs := idx.FactsInRange(fn.FilePath, facts.FactLoggingCall, fn.LineStart, fn.LineEnd)
		if len(logs) > 0 {
			continue
		}
		out = append(out, DetectedProblem{
			RuleID:            "LOG_003",
			ProblemType:       ProblemLoggingGap,
			Severity:          SeverityMedium,
			Title:             "External I/O call has no logging",
			Category:          "external_io",
			AffectedFiles:     []string{fn.FilePath},
			AffectedFunctions: functionNames(fn),
		})
	}
	return out
}

// evalLOG004: function contains a try/except but no logging_call with
// log_level in {error, exception, critical, fatal}. MEDIUM.
func evalLOG004(idx *facts.Index) []DetectedProblem {
	var out []DetectedProblem
	for _, te := range idx.ByType[facts.FactTryExcept] {
		fn, ok := idx.EnclosingFunction(te)
		if !ok {
			fn = te
		}
		logs := idx.FactsInRange(fn.FilePath, facts.FactLoggingCall, fn.LineStart, fn.LineEnd)
		hasErrLevel := false
		for _, l := range logs {
			if logLevelsRequiringErrorHandling[strings.ToLower(l.LogLevel())] {
				hasErrLevel = true
				break
			}
		}
		if hasErrLevel {
			continue
		}
		out = append(out, DetectedProblem{
			RuleID:            "LOG_004",
			ProblemType:       ProblemLoggingGap,
			Severity:          SeverityMedium,
			Title:             "Exception handler has no error-level logging",
			Category:          "error_handling",
			AffectedFiles:     []string{fn.FilePath},
			AffectedFunctions: functionNames(fn),
		})
	}
	return out
}

// evalLOG005: function >= 50 lines has no logging_call. LOW.
func evalLOG005(idx *facts.Index) []DetectedProblem {
	var out []DetectedProblem
	for _, fn := range idx.ByType[facts.FactFunction] {
		if fn.LineEnd-fn.LineStart < 50 {
			continue
		}
		logs := idx.FactsInRange(fn.FilePath, facts.FactLoggingCall, fn.LineStart, fn.LineEnd)
		if len(logs) > 0 {
			continue
		}
		out = append(out, DetectedProblem{
			RuleID:            "LOG_005",
			ProblemType:       ProblemLoggingGap,
			Severity:          SeverityLow,
			Title:             "Large function has no logging",
			Category:          "general",
			AffectedFiles:     []string{fn.FilePath},
			AffectedFunctions: functionNames(fn),
		})
	}
	return out
}

// --- MET_* rules ---

// evalMET001: file contains http_handler facts but zero metrics_call
// facts. HIGH.
func evalMET001(idx *facts.Index) []DetectedProblem {
	var out []DetectedProblem
	filesWithHandlers := make(map[string][]facts.CodeFact)
	for _, h := range idx.ByType[facts.FactHTTPHandler] {
		filesWithHandlers[h.FilePath] = append(filesWithHandlers[h.FilePath], h)
	}
	for path, handlers := range filesWithHandlers {
		if len(idx.FactsInRange(path, facts.FactMetricsCall, 0, maxLine(idx, path))) > 0 {
			continue
		}
		out = append(out, DetectedProblem{
			RuleID:            "MET_001",
			ProblemType:       ProblemMetricsGap,
			Severity:          SeverityHigh,
			Title:             "HTTP handlers file has no request metrics",
			Category:          "http",
			AffectedFiles:     []string{path},
			AffectedFunctions: functionNamesAll(handlers, idx),
			MetricType:        "counter",
			SuggestedMetricNames: []string{"http_requests_total", "http_request_duration_seconds"},
		})
	}
	return out
}

// evalMET002: function with external_io has no metrics_call. MEDIUM.
func evalMET002(idx *facts.Index) []DetectedProblem {
	var out []DetectedProblem
	for _, io := range idx.ByType[facts.FactExternalIO] {
		fn, ok := idx.EnclosingFunction(io)
		if !ok {
			continue
		}
		metrics := idx.FactsInRange(fn.FilePath, facts.FactMetricsCall, fn.LineStart, fn.LineEnd)
		if len(metrics) > 0 {
			continue
		}
		out = append(out, DetectedProblem{
			RuleID:            "MET_002",
			ProblemType:       ProblemMetricsGap,
			Severity:          SeverityMedium,
			Title:             "External I/O call has no metrics",
			Category:          "external_io",
			AffectedFiles:     []string{fn.FilePath},
			AffectedFunctions: functionNames(fn),
			MetricType:        "histogram",
			SuggestedMetricNames: []string{"external_call_duration_seconds"},
		})
	}
	return out
}

// evalMET003: the repository has >= 1 function and zero metrics_call
// facts overall. HIGH.
func evalMET003(idx *facts.Index) []DetectedProblem {
	functions := idx.ByType[facts.FactFunction]
	if len(functions) == 0 {
		return nil
	}
	if len(idx.ByType[facts.FactMetricsCall]) > 0 {
		return nil
	}
	files := make(map[string]bool)
	var fns []string
	for _, fn := range functions {
		files[fn.FilePath] = true
		if n := fn.FunctionName(); n != "" {
			fns = append(fns, n)
		}
	}
	return []DetectedProblem{{
		RuleID:               "MET_003",
		ProblemType:          ProblemMetricsGap,
		Severity:             SeverityHigh,
		Title:                "Repository has no metrics instrumentation at all",
		Category:             "general",
		AffectedFiles:        sortedKeys(files),
		AffectedFunctions:    fns,
		MetricType:           "counter",
		SuggestedMetricNames: []string{"app_operations_total"},
	}}
}

// evalMET004: function contains a try/except but no metrics_call in
// scope. LOW.
func evalMET004(idx *facts.Index) []DetectedProblem {
	var out []DetectedProblem
	for _, te := range idx.ByType[facts.FactTryExcept] {
		fn, ok := idx.EnclosingFunction(te)
		if !ok {
			fn = te
		}
		metrics := idx.FactsInRange(fn.FilePath, facts.FactMetricsCall, fn.LineStart, fn.LineEnd)
		if len(metrics) > 0 {
			continue
		}
		out = append(out, DetectedProblem{
			RuleID:            "MET_004",
			ProblemType:       ProblemMetricsGap,
			Severity:          SeverityLow,
			Title:             "Exception handler has no error metrics",
			Category:          "error_handling",
			AffectedFiles:     []string{fn.FilePath},
			AffectedFunctions: functionNames(fn),
			MetricType:        "counter",
			SuggestedMetricNames: []string{"errors_total"},
		})
	}
	return out
}

// --- helpers ---

func functionNames(fn facts.CodeFact) []string {
	if n := fn.FunctionName(); n != "" {
		return []string{n}
	}
	return nil
}

func functionNamesAll(fns []facts.CodeFact, idx *facts.Index) []string {
	seen := make(map[string]bool)
	var out []string
	for _, h := range fns {
		fn, ok := idx.EnclosingFunction(h)
		if !ok {
			continue
		}
		n := fn.FunctionName()
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func maxLine(idx *facts.Index, path string) int {
	max := 0
	for _, f := range idx.ByFile[path] {
		if f.LineEnd > max {
			max = f.LineEnd
		}
	}
	return max
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
