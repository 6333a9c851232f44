package app

import (
	"context"

	"deepchat/internal/llm"
)

// systemPrompt is prepended ahead of every caller-supplied turn sequence.
const systemPrompt = "You are a helpful AI assistant. Provide clear, accurate, and helpful responses. Be conversational and engaging."

// CompletionClient is the single upstream capability the gateway needs.
type CompletionClient interface {
	Complete(ctx context.Context, cfg llm.ChatConfig, messages []llm.ChatMessage) (*llm.Completion, error)
}

// GatewayService relays a turn sequence to the chat-completion API with the
// fixed system instruction in front. One round trip, no retries; sampling
// parameters come from server config and are not caller-controlled.
type GatewayService struct {
	client CompletionClient
	cfg    llm.ChatConfig
}

func NewGatewayService(client CompletionClient, cfg llm.ChatConfig) *GatewayService {
	return &GatewayService{client: client, cfg: cfg}
}

// Forward sends the caller's turns in their original order, preceded by
// exactly one system turn. Errors keep their llm types so the transport
// layer can map the failure taxonomy to status codes.
func (s *GatewayService) Forward(ctx context.Context, turns []llm.ChatMessage) (*llm.Completion, error) {
	apiMessages := make([]llm.ChatMessage, 0, len(turns)+1)
	apiMessages = append(apiMessages, llm.ChatMessage{
		Role:    "system",
		Content: systemPrompt,
	})
	apiMessages = append(apiMessages, turns...)

	return s.client.Complete(ctx, s.cfg, apiMessages)
}
