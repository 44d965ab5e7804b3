// Package scorer implements the deterministic health scorer and SLI
// indicator (spec §4.7). Every formula here is pure and side-effect
// free; MetricsGap.metric_type is never read here (spec §9).
package scorer

import "math"

// MetricsData is the subset of collected golden-signal metrics the
// scorer consumes. Fields are pointers so "null"/NaN inputs (spec's
// "missing") are distinguishable from a real zero.
type MetricsData struct {
	LatencyP50           *float64
	LatencyP99           *float64
	ErrorRate            *float64
	Availability         *float64
	ThroughputPerMinute  *float64
}

// HealthScore is the composite score produced for one review.
type HealthScore struct {
	Reliability  int
	Performance  int
	Observability int
	Overall      int
}

// Score computes the composite health score from collected metrics and
// the count of verified gaps surviving to the final report.
func Score(m MetricsData, gapsCount int) HealthScore {
	reliability := errorScore(m.ErrorRate) + availabilityScore(m.Availability)
	performance := performanceScore(m.LatencyP99)
	observability := observabilityScore(gapsCount)

	overall := int(math.Round(float64(reliability)*0.4 + float64(performance)*0.3 + float64(observability)*0.3))

	return HealthScore{
		Reliability:   reliability,
		Performance:   performance,
		Observability: observability,
		Overall:       overall,
	}
}

// errorScore maps error_rate to a [0,50] subscore.
func errorScore(errorRate *float64) int {
	if errorRate == nil || math.IsNaN(*errorRate) {
		return 25
	}
	r := *errorRate
	switch {
	case r < 0.001:
		return 50
	case r < 0.01:
		return 40
	case r < 0.05:
		return 25
	default:
		return 10
	}
}

// availabilityScore maps availability (percentage) to a [0,50] subscore.
func availabilityScore(availability *float64) int {
	if availability == nil || math.IsNaN(*availability) {
		return 25
	}
	a := *availability
	switch {
	case a >= 99.9:
		return 50
	case a >= 99.5:
		return 45
	case a >= 99.0:
		return 40
	case a >= 95.0:
		return 25
	default:
		return 10
	}
}

// performanceScore maps latency_p99 (ms) to a [0,100] score.
func performanceScore(latencyP99 *float64) int {
	if latencyP99 == nil || math.IsNaN(*latencyP99) {
		return 50
	}
	l := *latencyP99
	switch {
	case l < 100:
		return 100
	case l < 200:
		return 90
	case l < 500:
		return 70
	case l < 1000:
		return 50
	default:
		return 30
	}
}

// observabilityScore maps the verified gap count to a [0,100] score.
func observabilityScore(gapsCount int) int {
	switch {
	case gapsCount == 0:
		return 100
	case gapsCount <= 2:
		return 80
	case gapsCount <= 5:
		return 60
	case gapsCount <= 10:
		return 40
	default:
		return 20
	}
}
