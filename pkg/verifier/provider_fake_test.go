package verifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/sre-platform/healthreview/pkg/budget"
	"github.com/sre-platform/healthreview/pkg/llmprovider"
)

// fakeProvider returns one canned InvokeResponse per call, in order;
// invoking it more times than there are responses returns the last one.
// If err is set it is returned on the final configured call instead.
type fakeProvider struct {
	responses []llmprovider.InvokeResponse
	errOnCall int // -1 disables
	err       error
	calls     int
	lastReq   llmprovider.InvokeRequest
}

func (f *fakeProvider) Invoke(_ context.Context, req llmprovider.InvokeRequest) (llmprovider.InvokeResponse, error) {
	f.lastReq = req
	idx := f.calls
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	f.calls++
	if f.errOnCall >= 0 && f.calls-1 == f.errOnCall {
		return llmprovider.InvokeResponse{}, f.err
	}
	if idx < 0 {
		return llmprovider.InvokeResponse{}, errors.New("fakeProvider: no responses configured")
	}
	return f.responses[idx], nil
}

func budgetExceededErr() error {
	return fmt.Errorf("budget: %w", budget.ErrBudgetExceeded)
}
