package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ruanqin/chatcore/internal/ai"
	"github.com/ruanqin/chatcore/internal/community"
	"github.com/stretchr/testify/assert"
)

func TestChatHandler_TestAI(t *testing.T) {
	aiClient := ai.NewMockClient()
	aiClient.GenerateResponse = "你好！有什么可以帮您？"
	h := NewChatHandler(nil, nil, aiClient, nil, "mock", "mock")

	rec := httptest.NewRecorder()
	h.TestAI(rec, httptest.NewRequest(http.MethodGet, "/test-ai", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp connectionTestResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "mock", resp.Provider)
	assert.Equal(t, "你好！有什么可以帮您？", resp.Reply)
	assert.Len(t, aiClient.Calls(), 1)
}

func TestChatHandler_TestAIFailure(t *testing.T) {
	aiClient := ai.NewMockClient()
	aiClient.GenerateError = errors.New("connection refused")
	h := NewChatHandler(nil, nil, aiClient, nil, "qwen", "webhook")

	rec := httptest.NewRecorder()
	h.TestAI(rec, httptest.NewRequest(http.MethodGet, "/test-ai", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestChatHandler_TestAIUnconfigured(t *testing.T) {
	h := NewChatHandler(nil, nil, nil, nil, "qwen", "webhook")

	rec := httptest.NewRecorder()
	h.TestAI(rec, httptest.NewRequest(http.MethodGet, "/test-ai", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestChatHandler_TestCommunity(t *testing.T) {
	communityClient := community.NewMockClient()
	h := NewChatHandler(nil, nil, nil, communityClient, "mock", "mock")

	rec := httptest.NewRecorder()
	h.TestCommunity(rec, httptest.NewRequest(http.MethodGet, "/test-discord", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp connectionTestResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "Mock community answer", resp.Reply)
	assert.Equal(t, []string{"连接测试"}, communityClient.Calls())
}

func TestChatHandler_TestCommunityUnconfigured(t *testing.T) {
	h := NewChatHandler(nil, nil, nil, nil, "qwen", "webhook")

	rec := httptest.NewRecorder()
	h.TestCommunity(rec, httptest.NewRequest(http.MethodGet, "/test-discord", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
