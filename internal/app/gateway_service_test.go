package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deepchat/internal/llm"
)

type fakeCompletionClient struct {
	gotCfg      llm.ChatConfig
	gotMessages []llm.ChatMessage
	completion  *llm.Completion
	err         error
}

func (f *fakeCompletionClient) Complete(_ context.Context, cfg llm.ChatConfig, messages []llm.ChatMessage) (*llm.Completion, error) {
	f.gotCfg = cfg
	f.gotMessages = messages
	if f.err != nil {
		return nil, f.err
	}
	return f.completion, nil
}

func TestForwardPrependsSingleSystemTurn(t *testing.T) {
	client := &fakeCompletionClient{
		completion: &llm.Completion{Content: "Hello!", Usage: llm.Usage{TotalTokens: 5}},
	}
	svc := NewGatewayService(client, llm.ChatConfig{Model: "deepseek-chat", APIKey: "k"})

	turns := []llm.ChatMessage{
		{Role: "user", Content: "Hi"},
		{Role: "assistant", Content: "Hey"},
		{Role: "user", Content: "How are you?"},
	}
	completion, err := svc.Forward(context.Background(), turns)

	require.NoError(t, err)
	assert.Equal(t, "Hello!", completion.Content)

	require.Len(t, client.gotMessages, 4)
	assert.Equal(t, "system", client.gotMessages[0].Role)
	assert.Equal(t, systemPrompt, client.gotMessages[0].Content)
	assert.Equal(t, turns, client.gotMessages[1:])

	systemCount := 0
	for _, m := range client.gotMessages {
		if m.Role == "system" {
			systemCount++
		}
	}
	assert.Equal(t, 1, systemCount)
}

func TestForwardEmptyTurnSequence(t *testing.T) {
	client := &fakeCompletionClient{
		completion: &llm.Completion{Content: "Hi there"},
	}
	svc := NewGatewayService(client, llm.ChatConfig{Model: "deepseek-chat", APIKey: "k"})

	_, err := svc.Forward(context.Background(), nil)

	require.NoError(t, err)
	require.Len(t, client.gotMessages, 1)
	assert.Equal(t, "system", client.gotMessages[0].Role)
}

func TestForwardPropagatesTypedErrors(t *testing.T) {
	client := &fakeCompletionClient{err: llm.ErrMissingAPIKey}
	svc := NewGatewayService(client, llm.ChatConfig{})

	_, err := svc.Forward(context.Background(), []llm.ChatMessage{{Role: "user", Content: "Hi"}})
	assert.ErrorIs(t, err, llm.ErrMissingAPIKey)

	upstream := &llm.UpstreamError{Status: 502, Body: "bad gateway"}
	client.err = upstream
	_, err = svc.Forward(context.Background(), []llm.ChatMessage{{Role: "user", Content: "Hi"}})

	var got *llm.UpstreamError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, 502, got.Status)
}
