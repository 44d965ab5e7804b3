package rules

import "github.com/sre-platform/healthreview/pkg/facts"

// REDMetricStatus describes how well one of rate/errors/duration is
// instrumented across the repository, for dashboard-readiness
// reporting (original_source's red_rules.py, named in spec's GLOSSARY
// as an "optional extension").
type REDMetricStatus struct {
	Signal      string // "rate" | "errors" | "duration"
	Instrumented bool
	Coverage    float64 // fraction of http_handler functions with the signal's metric, [0,1]
}

// REDDashboardReadiness summarizes whether a RED (rate/errors/duration)
// dashboard could be built from the repository's current
// instrumentation. It is supplemental, non-scoring data wired into
// ReviewSLI alongside the mandatory indicators.
type REDDashboardReadiness struct {
	Rate     REDMetricStatus
	Errors   REDMetricStatus
	Duration REDMetricStatus
	Ready    bool // all three signals instrumented across every handler
}

// EvaluateREDReadiness computes RED-method coverage over the indexed
// facts. It never raises a gap and is excluded from every scoring
// formula in pkg/scorer — strictly supplemental per spec's GLOSSARY.
func EvaluateREDReadiness(idx *facts.Index) REDDashboardReadiness {
	handlers := idx.ByType[facts.FactHTTPHandler]
	if len(handlers) == 0 {
		return REDDashboardReadiness{}
	}

	var withRate, withErrors, withDuration int
	for _, h := range handlers {
		fn, ok := idx.EnclosingFunction(h)
		if !ok {
			fn = h
		}
		metrics := idx.FactsInRange(fn.FilePath, facts.FactMetricsCall, fn.LineStart, fn.LineEnd)
		hasCounter, hasHistogram := false, false
		for _, m := range metrics {
			switch kind, _ := m.Metadata["kind"].(string); kind {
			case "counter":
				hasCounter = true
			case "histogram", "summary":
				hasHistogram = true
			}
		}
		logs := idx.FactsInRange(fn.FilePath, facts.FactLoggingCall, fn.LineStart, fn.LineEnd)
		hasErrorLog := false
		for _, l := range logs {
			if logLevelsRequiringErrorHandling[l.LogLevel()] {
				hasErrorLog = true
				break
			}
		}

		if hasCounter {
			withRate++
		}
		if hasCounter || hasErrorLog {
			withErrors++
		}
		if hasHistogram {
			withDuration++
		}
	}

	total := float64(len(handlers))
	rate := REDMetricStatus{Signal: "rate", Coverage: float64(withRate) / total, Instrumented: withRate == len(handlers)}
	errs := REDMetricStatus{Signal: "errors", Coverage: float64(withErrors) / total, Instrumented: withErrors == len(handlers)}
	dur := REDMetricStatus{Signal: "duration", Coverage: float64(withDuration) / total, Instrumented: withDuration == len(handlers)}

	return REDDashboardReadiness{
		Rate:     rate,
		Errors:   errs,
		Duration: dur,
		Ready:    rate.Instrumented && errs.Instrumented && dur.Instrumented,
	}
}
