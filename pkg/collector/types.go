// Package collector implements the observability data collector (C3,
// spec §4.3): a sequential, priority-ordered fan-out across whichever
// log/metric providers a workspace has configured, producing a single
// CollectedData bundle — logs, golden-signal metrics, and fingerprinted
// errors — for the rule engine (C4) to evaluate.
package collector

import (
	"time"

	"github.com/google/uuid"
)

// maxLogSamples caps both the number of log entries returned and the
// point at which later, lower-priority providers stop being queried
// for logs (spec §4.3 Fan-out).
const maxLogSamples = 1000

// Capability names one (provider, data-kind) pair a workspace has
// configured and healthy, as resolved ahead of collection (spec §4.3
// Input: "a resolved ExecutionContext listing capabilities").
type Capability string

const (
	CapabilityLogs            Capability = "logs"     // Grafana/Loki logs
	CapabilityMetrics         Capability = "metrics"   // Grafana/Prometheus metrics
	CapabilityDatadogLogs     Capability = "datadog_logs"
	CapabilityDatadogMetrics  Capability = "datadog_metrics"
	CapabilityNewRelicLogs    Capability = "newrelic_logs"
	CapabilityNewRelicMetrics Capability = "newrelic_metrics"
	CapabilityAWSLogs         Capability = "aws_logs"
	CapabilityAWSMetrics      Capability = "aws_metrics"
)

// ExecutionContext is the resolved set of capabilities available to a
// single collection run, one per workspace. It is resolved once up
// front (spec §4.3 Input) rather than re-queried per provider.
type ExecutionContext struct {
	WorkspaceID  uuid.UUID
	Capabilities map[Capability]bool
}

// NewExecutionContext builds an ExecutionContext with the given
// capabilities set.
func NewExecutionContext(workspaceID uuid.UUID, caps ...Capability) *ExecutionContext {
	set := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		set[c] = true
	}
	return &ExecutionContext{WorkspaceID: workspaceID, Capabilities: set}
}

// Has reports whether the context carries the given capability.
func (e *ExecutionContext) Has(c Capability) bool {
	return e != nil && e.Capabilities[c]
}

// LogEntry is a single collected log line, normalized across providers.
type LogEntry struct {
	Timestamp  time.Time
	Level      string
	Message    string
	Attributes map[string]string
}

// MetricsData is the fixed golden-signal set the rule engine and health
// scorer consume. Any field may be nil if no configured provider
// returned a value for it.
type MetricsData struct {
	LatencyP50          *float64
	LatencyP90          *float64
	LatencyP99          *float64
	ErrorRate           *float64
	Availability        *float64
	ThroughputPerMinute *float64
}

// ErrorData is one fingerprinted error group aggregated from logs.
type ErrorData struct {
	Fingerprint   string
	ErrorType     string
	MessageSample string
	Count         int
	FirstSeen     time.Time
	LastSeen      time.Time
	Endpoints     []string
	StackTrace    string
}

// CollectedData is C3's output (spec §4.3 Output).
type CollectedData struct {
	Logs        []LogEntry
	LogCount    int
	Metrics     MetricsData
	MetricCount int
	Errors      []ErrorData
}

// countMetrics reports how many of the 5 golden-signal fields are
// non-nil (spec §4.3 / original _count_metrics).
func countMetrics(m MetricsData) int {
	count := 0
	for _, v := range []*float64{m.LatencyP50, m.LatencyP90, m.LatencyP99, m.ErrorRate, m.Availability, m.ThroughputPerMinute} {
		if v != nil {
			count++
		}
	}
	return count
}

func firstNonNil(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func mergeMetrics(dst *MetricsData, src MetricsData) {
	dst.LatencyP50 = firstNonNil(dst.LatencyP50, src.LatencyP50)
	dst.LatencyP90 = firstNonNil(dst.LatencyP90, src.LatencyP90)
	dst.LatencyP99 = firstNonNil(dst.LatencyP99, src.LatencyP99)
	dst.ErrorRate = firstNonNil(dst.ErrorRate, src.ErrorRate)
	dst.Availability = firstNonNil(dst.Availability, src.Availability)
	dst.ThroughputPerMinute = firstNonNil(dst.ThroughputPerMinute, src.ThroughputPerMinute)
}
