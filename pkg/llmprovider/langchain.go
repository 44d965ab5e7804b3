package llmprovider

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/sre-platform/healthreview/pkg/budget"
)

// Backend selects which langchaingo chat-model implementation
// LangChainProvider wraps.
type Backend string

const (
	BackendOpenAICompatible Backend = "openai_compatible"
	BackendAnthropic        Backend = "anthropic"
)

// LangChainProvider is the alternate Provider adapter built on
// langchaingo's chat-model abstraction (SPEC_FULL.md domain stack) —
// used when an operator wants a provider langchaingo already supports
// without a bespoke adapter, or as the token-estimation fallback path
// when a raw provider's response omits usage.
type LangChainProvider struct {
	model llms.Model
}

// NewLangChainProvider constructs an adapter for the requested backend.
func NewLangChainProvider(ctx context.Context, backend Backend, apiKey, model, baseURL string) (*LangChainProvider, error) {
	var (
		m   llms.Model
		err error
	)
	switch backend {
	case BackendAnthropic:
		m, err = anthropic.New(anthropic.WithToken(apiKey), anthropic.WithModel(model))
	case BackendOpenAICompatible:
		opts := []openai.Option{openai.WithToken(apiKey), openai.WithModel(model)}
		if baseURL != "" {
			opts = append(opts, openai.WithBaseURL(baseURL))
		}
		m, err = openai.New(opts...)
	default:
		return nil, fmt.Errorf("llmprovider: unknown langchain backend %q", backend)
	}
	if err != nil {
		return nil, fmt.Errorf("llmprovider: construct langchain model: %w", err)
	}
	return &LangChainProvider{model: m}, nil
}

// Invoke issues a single-turn chat completion. Tool-using calls are not
// supported through this adapter — langchaingo's function-calling
// surface varies by backend enough that the agent's own tool loop
// (pkg/verifier) only dispatches tool-using requests to AnthropicProvider.
func (p *LangChainProvider) Invoke(ctx context.Context, req InvokeRequest) (InvokeResponse, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, req.UserPrompt),
	}

	var opts []llms.CallOption
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(float64(req.Temperature)))
	}

	resp, err := p.model.GenerateContent(ctx, content, opts...)
	if err != nil {
		return InvokeResponse{}, fmt.Errorf("langchain invoke: %w", err)
	}
	if len(resp.Choices) == 0 {
		return InvokeResponse{}, fmt.Errorf("langchain invoke: no choices returned")
	}

	choice := resp.Choices[0]
	usage := estimateUsage(req.SystemPrompt+req.UserPrompt, choice.Content)
	if choice.GenerationInfo != nil {
		if in, ok := choice.GenerationInfo["InputTokens"].(int); ok {
			usage.InputTokens = in
		}
		if out, ok := choice.GenerationInfo["OutputTokens"].(int); ok {
			usage.OutputTokens = out
		}
	}

	return InvokeResponse{Text: choice.Content, Usage: usage}, nil
}

func estimateUsage(prompt, completion string) budget.Usage {
	return budget.Usage{
		InputTokens:  EstimateTokens(prompt),
		OutputTokens: EstimateTokens(completion),
	}
}
