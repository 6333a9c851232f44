package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewDiagHandler("test", func() bool { return true })
	router.GET("/api/test", h.Get)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/test", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "API routes are working!", resp["message"])
	assert.Equal(t, "test", resp["environment"])
	assert.Equal(t, true, resp["api_key_present"])
	assert.NotEmpty(t, resp["timestamp"])
}

func TestDiagPost(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewDiagHandler("test", func() bool { return false })
	router.POST("/api/test", h.Post)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/test", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "POST endpoint is working!", resp["message"])
	assert.NotEmpty(t, resp["timestamp"])
}
