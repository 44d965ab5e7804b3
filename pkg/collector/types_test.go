package collector

import (
	"testing"

	"github.com/google/uuid"
)

func TestExecutionContext_Has(t *testing.T) {
	ec := NewExecutionContext(uuid.New(), CapabilityLogs, CapabilityDatadogMetrics)
	if !ec.Has(CapabilityLogs) {
		t.Error("expected CapabilityLogs to be present")
	}
	if ec.Has(CapabilityAWSLogs) {
		t.Error("did not expect CapabilityAWSLogs to be present")
	}
}

func TestExecutionContext_Has_NilSafe(t *testing.T) {
	var ec *ExecutionContext
	if ec.Has(CapabilityLogs) {
		t.Error("nil ExecutionContext must report no capabilities")
	}
}

func ptr(f float64) *float64 { return &f }

func TestMergeMetrics_FirstWins(t *testing.T) {
	dst := MetricsData{LatencyP50: ptr(10)}
	mergeMetrics(&dst, MetricsData{LatencyP50: ptr(99), ErrorRate: ptr(1.5)})

	if *dst.LatencyP50 != 10 {
		t.Errorf("LatencyP50 should keep the first-set value, got %v", *dst.LatencyP50)
	}
	if dst.ErrorRate == nil || *dst.ErrorRate != 1.5 {
		t.Errorf("ErrorRate should be filled from the merged source, got %v", dst.ErrorRate)
	}
}

func TestMergeMetrics_LeavesUnsetFieldsNil(t *testing.T) {
	var dst MetricsData
	mergeMetrics(&dst, MetricsData{})
	if dst.LatencyP99 != nil {
		t.Error("expected LatencyP99 to remain nil when no provider supplies it")
	}
}

func TestCountMetrics(t *testing.T) {
	m := MetricsData{LatencyP50: ptr(1), ErrorRate: ptr(2), Availability: ptr(3)}
	if got := countMetrics(m); got != 3 {
		t.Errorf("countMetrics = %d, want 3", got)
	}
	if got := countMetrics(MetricsData{}); got != 0 {
		t.Errorf("countMetrics(empty) = %d, want 0", got)
	}
}
