package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"deepchat/internal/app"
	"deepchat/internal/llm"
	"deepchat/internal/transport/http/middleware"
)

// GatewayHandler exposes the stateless forwarding endpoint. Its response
// shapes are part of the public contract and deliberately bypass the
// versioned API envelope.
type GatewayHandler struct {
	gateway *app.GatewayService
}

type chatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func NewGatewayHandler(gateway *app.GatewayService) *GatewayHandler {
	return &GatewayHandler{gateway: gateway}
}

// Chat handles POST /api/chat.
func (h *GatewayHandler) Chat(c *gin.Context) {
	var req struct {
		Messages []chatTurn `json:"messages"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Messages == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Messages array is required"})
		return
	}

	turns := make([]llm.ChatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		turns = append(turns, llm.ChatMessage{Role: m.Role, Content: m.Content})
	}

	completion, err := h.gateway.Forward(c.Request.Context(), turns)
	if err != nil {
		requestID := c.GetString(middleware.ContextRequestIDKey)
		var upstream *llm.UpstreamError
		switch {
		case errors.Is(err, llm.ErrMissingAPIKey):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "DeepSeek API key is not configured"})
		case errors.As(err, &upstream):
			// Upstream detail stays in the server log; the caller only
			// sees the status code and a generic message.
			logrus.Warnf("[%s] upstream chat-completion error %d: %s", requestID, upstream.Status, upstream.Body)
			c.JSON(upstream.Status, gin.H{"error": "Failed to get response from AI service"})
		case errors.Is(err, llm.ErrEmptyCompletion):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "No response from AI service"})
		default:
			logrus.Warnf("[%s] chat request failed: %v", requestID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": completion.Content,
		"usage":   completion.Usage,
	})
}
