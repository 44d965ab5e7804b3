// Package llmprovider reifies the external LLM provider interface of
// spec §6 as a Go interface, generalizing the teacher's single gRPC
// backend (pkg/agent.LLMClient / pkg/llm.Client) into a provider-agnostic
// contract with concrete Anthropic and LangChain-backed adapters plus an
// internal gRPC transport for a separately-deployed provider process.
package llmprovider

import (
	"context"

	"github.com/sre-platform/healthreview/pkg/budget"
)

// ToolDefinition describes a tool available to the LLM for a
// tool-using call (C6 Phase C). Mirrors agent.ToolDefinition's shape.
type ToolDefinition struct {
	Name             string
	Description      string
	ParametersSchema string // JSON Schema
}

// ToolCall is the LLM's request to invoke a tool during a tool-using
// call.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // JSON
}

// InvokeRequest is one LLM invocation. Tools is nil for Phase A/B
// single-shot calls and non-nil for Phase C's tool-using agent calls.
type InvokeRequest struct {
	SystemPrompt string
	UserPrompt   string
	Tools        []ToolDefinition
	Temperature  float32
	MaxTokens    int
	Timeout      int // seconds; 0 = provider default
}

// InvokeResponse is the provider's reply. ToolCalls is populated only
// when the model chose to call a tool instead of (or in addition to)
// returning text — spec §6's "intermediate reasoning steps" guarantee.
type InvokeResponse struct {
	Text      string
	ToolCalls []ToolCall
	Usage     budget.Usage
}

// Provider is the reified `invoke` contract of spec §6:
//
//	invoke(system_prompt, user_prompt, tools?, callbacks) → string
//
// Go has no ambient callback registry, so the budget check/charge is
// performed by the caller around Invoke (see WithBudget) rather than
// threaded through as a callback argument.
type Provider interface {
	Invoke(ctx context.Context, req InvokeRequest) (InvokeResponse, error)
}

// WithBudget wraps a Provider so every call first consults tr's
// CheckBeforeCall and, on success, unconditionally records the
// completion's usage — the "no partial charge" guarantee of spec §4.1
// enforced at a single call site regardless of which concrete provider
// is configured.
func WithBudget(p Provider, tr *budget.Tracker) Provider {
	return &budgetedProvider{inner: p, tracker: tr}
}

type budgetedProvider struct {
	inner   Provider
	tracker *budget.Tracker
}

func (b *budgetedProvider) Invoke(ctx context.Context, req InvokeRequest) (InvokeResponse, error) {
	if err := b.tracker.CheckBeforeCall(); err != nil {
		return InvokeResponse{}, err
	}
	resp, err := b.inner.Invoke(ctx, req)
	// The budget is decremented regardless of parse success further up
	// the stack (spec §9); a transport error still consumed provider
	// capacity and is charged here using whatever usage was reported.
	b.tracker.RecordCompletion(resp.Usage)
	if err != nil {
		return InvokeResponse{}, err
	}
	return resp, nil
}
