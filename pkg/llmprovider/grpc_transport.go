package llmprovider

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	pb "github.com/sre-platform/healthreview/pkg/llmprovider/llmproviderpb"

	"github.com/sre-platform/healthreview/pkg/budget"
)

// GRPCProvider wraps a connection to an out-of-process LLM provider
// service, mirroring the teacher's pkg/llm.Client gRPC wrapper
// (proto.LLMServiceClient) but over the provider-agnostic Invoke
// contract instead of a single hardcoded streaming backend. The
// generated llmproviderpb package is produced by
// `protoc --go_out --go-grpc_out` from proto/llmprovider.proto at build
// time and is intentionally not committed, the same convention as
// ent's generated client (see DESIGN.md).
type GRPCProvider struct {
	conn   *grpc.ClientConn
	client pb.LLMProviderServiceClient
}

// NewGRPCProvider dials addr and returns a ready-to-use Provider.
func NewGRPCProvider(addr string) (*GRPCProvider, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("llmprovider: dial %s: %w", addr, err)
	}
	return &GRPCProvider{
		conn:   conn,
		client: pb.NewLLMProviderServiceClient(conn),
	}, nil
}

// Close releases the underlying gRPC connection.
func (g *GRPCProvider) Close() error {
	return g.conn.Close()
}

// Invoke forwards the request over gRPC and translates the response.
func (g *GRPCProvider) Invoke(ctx context.Context, req InvokeRequest) (InvokeResponse, error) {
	pbReq := &pb.InvokeRequest{
		SystemPrompt:   req.SystemPrompt,
		UserPrompt:     req.UserPrompt,
		Temperature:    req.Temperature,
		MaxTokens:      int32(req.MaxTokens),
		TimeoutSeconds: int32(req.Timeout),
	}
	for _, t := range req.Tools {
		pbReq.Tools = append(pbReq.Tools, &pb.ToolDefinition{
			Name:             t.Name,
			Description:      t.Description,
			ParametersSchema: t.ParametersSchema,
		})
	}

	pbResp, err := g.client.Invoke(ctx, pbReq)
	if err != nil {
		return InvokeResponse{}, fmt.Errorf("llmprovider: grpc invoke: %w", err)
	}

	resp := InvokeResponse{
		Text: pbResp.GetText(),
		Usage: budget.Usage{
			InputTokens:  int(pbResp.GetInputTokens()),
			OutputTokens: int(pbResp.GetOutputTokens()),
		},
	}
	for _, tc := range pbResp.GetToolCalls() {
		resp.ToolCalls = append(resp.ToolCalls, ToolCall{
			ID:        tc.GetId(),
			Name:      tc.GetName(),
			Arguments: tc.GetArguments(),
		})
	}
	return resp, nil
}
