package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deepchat/internal/app"
	"deepchat/internal/llm"
)

type stubClient struct {
	gotMessages []llm.ChatMessage
	completion  *llm.Completion
	err         error
}

func (s *stubClient) Complete(_ context.Context, _ llm.ChatConfig, messages []llm.ChatMessage) (*llm.Completion, error) {
	s.gotMessages = messages
	if s.err != nil {
		return nil, s.err
	}
	return s.completion, nil
}

func newChatRouter(client app.CompletionClient) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	gateway := app.NewGatewayService(client, llm.ChatConfig{Model: "deepseek-chat", APIKey: "k"})
	router.POST("/api/chat", NewGatewayHandler(gateway).Chat)
	return router
}

func postChat(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestChatSuccess(t *testing.T) {
	client := &stubClient{
		completion: &llm.Completion{Content: "Hello!", Usage: llm.Usage{TotalTokens: 5}},
	}
	router := newChatRouter(client)

	rec := postChat(router, `{"messages":[{"role":"user","content":"Hi"}]}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Message string    `json:"message"`
		Usage   llm.Usage `json:"usage"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Hello!", resp.Message)
	assert.Equal(t, 5, resp.Usage.TotalTokens)

	// One system turn in front, caller turn unchanged behind it.
	require.Len(t, client.gotMessages, 2)
	assert.Equal(t, "system", client.gotMessages[0].Role)
	assert.Equal(t, llm.ChatMessage{Role: "user", Content: "Hi"}, client.gotMessages[1])
}

func TestChatMissingMessages(t *testing.T) {
	router := newChatRouter(&stubClient{})

	for _, body := range []string{`{}`, `{"messages":null}`, `{"messages":"nope"}`, `not json`} {
		rec := postChat(router, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", body)
		assert.JSONEq(t, `{"error":"Messages array is required"}`, rec.Body.String(), "body: %s", body)
	}
}

func TestChatMissingCredential(t *testing.T) {
	router := newChatRouter(&stubClient{err: llm.ErrMissingAPIKey})

	rec := postChat(router, `{"messages":[{"role":"user","content":"Hi"}]}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"DeepSeek API key is not configured"}`, rec.Body.String())
}

func TestChatUpstreamStatusPassthrough(t *testing.T) {
	router := newChatRouter(&stubClient{
		err: &llm.UpstreamError{Status: http.StatusTooManyRequests, Body: "slow down"},
	})

	rec := postChat(router, `{"messages":[{"role":"user","content":"Hi"}]}`)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to get response from AI service"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "slow down", "upstream detail must not leak")
}

func TestChatEmptyUpstreamResponse(t *testing.T) {
	router := newChatRouter(&stubClient{err: llm.ErrEmptyCompletion})

	rec := postChat(router, `{"messages":[{"role":"user","content":"Hi"}]}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"No response from AI service"}`, rec.Body.String())
}

func TestChatEmptyMessagesArrayIsForwarded(t *testing.T) {
	client := &stubClient{completion: &llm.Completion{Content: "Hi there"}}
	router := newChatRouter(client)

	rec := postChat(router, `{"messages":[]}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, client.gotMessages, 1)
	assert.Equal(t, "system", client.gotMessages[0].Role)
}
