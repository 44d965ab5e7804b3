package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func f64(v float64) *float64 { return &v }

func TestScore_AllMetricsNull(t *testing.T) {
	// Boundary behavior from spec §8: metrics all null →
	// reliability=50, performance=50, observability varies, overall =
	// round(50*0.4 + 50*0.3 + obs*0.3).
	s := Score(MetricsData{}, 0)

	assert.Equal(t, 50, s.Reliability)
	assert.Equal(t, 50, s.Performance)
	assert.Equal(t, 100, s.Observability)
	assert.Equal(t, int(50*0.4+50*0.3+100*0.3), s.Overall)
}

func TestScore_ThresholdBoundaries(t *testing.T) {
	tests := []struct {
		name      string
		errorRate float64
		wantScore int
	}{
		{"below 0.001", 0.0005, 50},
		{"at 0.001", 0.001, 40},
		{"at 0.01", 0.01, 25},
		{"at 0.05", 0.05, 10},
		{"far above", 0.2, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantScore, errorScore(f64(tt.errorRate)))
		})
	}
}

func TestScore_ObservabilityBuckets(t *testing.T) {
	tests := []struct {
		gaps int
		want int
	}{
		{0, 100}, {1, 80}, {2, 80}, {3, 60}, {5, 60}, {6, 40}, {10, 40}, {11, 20},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, observabilityScore(tt.gaps))
	}
}

func TestComputeSLIs_TrendRules(t *testing.T) {
	lookup := func(name string) (int, bool) {
		if name == "availability" {
			return 90, true
		}
		return 0, false
	}

	slis := ComputeSLIs(MetricsData{Availability: f64(99.9)}, lookup)

	var avail *SLI
	for i := range slis {
		if slis[i].Name == "availability" {
			avail = &slis[i]
		}
	}
	if assert.NotNil(t, avail) {
		assert.NotNil(t, avail.PreviousScore)
		assert.Equal(t, 90, *avail.PreviousScore)
		assert.Equal(t, TrendUp, *avail.Trend, "delta of 10 > 5 should be UP")
	}
}

func TestComputeSLIs_NoPreviousValue(t *testing.T) {
	slis := ComputeSLIs(MetricsData{Availability: f64(99.9)}, nil)
	for _, s := range slis {
		assert.Nil(t, s.PreviousScore)
		assert.Nil(t, s.Trend)
	}
}
