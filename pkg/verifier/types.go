// Package verifier implements the verification agent (C6, spec §4.6):
// it decides which rule-engine gaps are genuine, false_alarm, or
// covered_globally, via a fast path (deterministic context reuse) or a
// three-phase slow path (candidate identification, per-file
// extraction, sample-based tool-using verification).
package verifier

import (
	"github.com/sre-platform/healthreview/pkg/codectx"
	"github.com/sre-platform/healthreview/pkg/rules"
)

// Verdict is the outcome of verifying one DetectedProblem.
type Verdict string

const (
	VerdictGenuine         Verdict = "genuine"
	VerdictFalseAlarm      Verdict = "false_alarm"
	VerdictCoveredGlobally Verdict = "covered_globally"
)

// VerifiedGap is a rule-engine DetectedProblem annotated with C6's
// verdict and (for audit) the reason it was assigned.
type VerifiedGap struct {
	rules.DetectedProblem
	Verdict Verdict
	Reason  string
}

// FileTreeEntry is one row of the repository file tree Phase A
// searches over (spec §4.6.2 Phase A Input).
type FileTreeEntry struct {
	FilePath  string
	Language  string
	LineCount int
}

// extractionType enumerates the five CodebaseContext buckets Phase B
// classifies instrumentation into (spec §4.6.2 Phase B).
type extractionType string

const (
	extractionHTTPMetrics       extractionType = "http_metrics"
	extractionDBInstrumentation extractionType = "db_instrumentation"
	extractionTracing           extractionType = "tracing"
	extractionErrorHandling     extractionType = "error_handling"
	extractionLogging           extractionType = "logging"
)

// extraction is one Phase B finding, parsed from the LLM's JSON
// response for a single candidate file.
type extraction struct {
	Type             extractionType `json:"type"`
	FilePath         string         `json:"file_path"`
	FunctionOrClass  string         `json:"function_or_class"`
	Coverage         string         `json:"coverage"`
	MetricsRecorded  []string       `json:"metrics_recorded"`
	RegistrationFile string         `json:"registration_file"`
	Description      string         `json:"description"`
}

func (e extraction) toGlobalInstrumentation() codectx.GlobalInstrumentation {
	return codectx.GlobalInstrumentation{
		FilePath:            e.FilePath,
		InstrumentationType: string(e.Type),
		MetricsRecorded:     e.MetricsRecorded,
		Coverage:            e.Coverage,
		RegistrationFile:    e.RegistrationFile,
		Description:         e.Description,
	}
}

// gapVerdict is one Phase C per-gap result, parsed from the agent's
// final JSON array (spec §4.6.2 Phase C Output).
type gapVerdict struct {
	GapTitle     string `json:"gap_title"`
	Verdict      string `json:"verdict"` // "pass" or "fail"
	Reason       string `json:"reason"`
	EvidenceFile string `json:"evidence_file,omitempty"`
}
