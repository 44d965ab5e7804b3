package orchestrator

import (
	"testing"

	"github.com/sre-platform/healthreview/pkg/collector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }

func TestRunMockAnalyzer_FlagsMissingErrorRate(t *testing.T) {
	data := &collector.CollectedData{
		Metrics: collector.MetricsData{
			LatencyP99:   floatPtr(120),
			Availability: floatPtr(99.9),
		},
	}

	result := runMockAnalyzer(data)

	require.Len(t, result.metricsGaps, 1)
	assert.Equal(t, "MET_001", result.metricsGaps[0].RuleID)
	assert.Empty(t, result.loggingGaps)
}

func TestRunMockAnalyzer_FlagsErrorsWithoutStructuredLogs(t *testing.T) {
	data := &collector.CollectedData{
		Metrics: collector.MetricsData{ErrorRate: floatPtr(0.01)},
		Errors:  []collector.ErrorData{{Fingerprint: "abc"}},
	}

	result := runMockAnalyzer(data)

	require.Len(t, result.loggingGaps, 1)
	assert.Equal(t, "LOG_001", result.loggingGaps[0].RuleID)
}

func TestRunMockAnalyzer_NoGapsWhenClean(t *testing.T) {
	data := &collector.CollectedData{
		Metrics: collector.MetricsData{ErrorRate: floatPtr(0.001)},
	}

	result := runMockAnalyzer(data)

	assert.Empty(t, result.loggingGaps)
	assert.Empty(t, result.metricsGaps)
	assert.NotEmpty(t, result.summary)
}
