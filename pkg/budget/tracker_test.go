package budget

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_CheckBeforeCall(t *testing.T) {
	tests := []struct {
		name          string
		maxIterations int
		maxTokens     int
		iterations    int
		tokens        int
		wantErr       bool
	}{
		{name: "under both caps", maxIterations: 5, maxTokens: 1000, iterations: 2, tokens: 100, wantErr: false},
		{name: "at iteration cap", maxIterations: 5, maxTokens: 1000, iterations: 5, tokens: 100, wantErr: true},
		{name: "at token cap", maxIterations: 5, maxTokens: 1000, iterations: 1, tokens: 1000, wantErr: true},
		{name: "unbounded when zero", maxIterations: 0, maxTokens: 0, iterations: 1000, tokens: 1000000, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(tt.maxIterations, tt.maxTokens)
			for i := 0; i < tt.iterations; i++ {
				tr.RecordCompletion(Usage{})
			}
			tr.tokens.Store(int64(tt.tokens))

			err := tr.CheckBeforeCall()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrBudgetExceeded))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestTracker_RecordCompletion_Monotonic(t *testing.T) {
	tr := NewTracker(10, 10000)

	tr.RecordCompletion(Usage{InputTokens: 100, OutputTokens: 50})
	assert.Equal(t, 1, tr.Iterations())
	assert.Equal(t, 150, tr.Tokens())

	tr.RecordCompletion(Usage{InputTokens: 10, OutputTokens: 10})
	assert.Equal(t, 2, tr.Iterations())
	assert.Equal(t, 170, tr.Tokens())
}

func TestTracker_NoPartialCharge(t *testing.T) {
	tr := NewTracker(1, 10000)
	tr.RecordCompletion(Usage{InputTokens: 1})
	require.Error(t, tr.CheckBeforeCall())
	assert.Equal(t, 1, tr.Iterations(), "a rejected call must not be charged")
}

func TestTracker_Scenario5_BudgetExhaustionMidPhaseB(t *testing.T) {
	tr := NewTracker(5, 100000)

	require.NoError(t, tr.CheckBeforeCall()) // Phase A
	tr.RecordCompletion(Usage{InputTokens: 500, OutputTokens: 100})

	for i := 0; i < 4; i++ {
		require.NoError(t, tr.CheckBeforeCall())
		tr.RecordCompletion(Usage{InputTokens: 500, OutputTokens: 100})
	}

	err := tr.CheckBeforeCall()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBudgetExceeded))
	assert.Equal(t, 5, tr.Iterations())
}
