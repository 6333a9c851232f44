package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// DiagHandler serves the fixed-shape liveness endpoints under /api/test.
// Not part of the core contract.
type DiagHandler struct {
	env           string
	apiKeyPresent func() bool
}

func NewDiagHandler(env string, apiKeyPresent func() bool) *DiagHandler {
	return &DiagHandler{env: env, apiKeyPresent: apiKeyPresent}
}

func (h *DiagHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":         "API routes are working!",
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"environment":     h.env,
		"api_key_present": h.apiKeyPresent(),
	})
}

func (h *DiagHandler) Post(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "POST endpoint is working!",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
