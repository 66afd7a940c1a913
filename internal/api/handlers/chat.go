package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ruanqin/chatcore/internal/domain"
	"github.com/ruanqin/chatcore/internal/service"
)

type ChatHandler struct {
	resolver *service.Resolver
	admin    *service.RuleAdminService

	// capability clients for the connection test endpoints; nil when the
	// stage is unconfigured
	ai        domain.AIClient
	community domain.CommunityClient

	// provider names reported by the status endpoint
	aiProvider        string
	communityProvider string
}

func NewChatHandler(resolver *service.Resolver, admin *service.RuleAdminService,
	ai domain.AIClient, community domain.CommunityClient, aiProvider, communityProvider string) *ChatHandler {
	return &ChatHandler{
		resolver:          resolver,
		admin:             admin,
		ai:                ai,
		community:         community,
		aiProvider:        aiProvider,
		communityProvider: communityProvider,
	}
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply     string    `json:"reply"`
	Source    string    `json:"source"`
	RuleID    string    `json:"rule_id,omitempty"`
	RuleName  string    `json:"rule_name,omitempty"`
	Priority  int       `json:"priority,omitempty"`
	Category  *string   `json:"category,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Resolve answers one chat message through the cascade. Only input errors
// surface as client failures; any internal stage failure still yields an
// answer.
func (h *ChatHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := h.resolver.Resolve(r.Context(), req.Message)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyMessage):
			writeError(w, http.StatusBadRequest, "message is required")
		case errors.Is(err, service.ErrMessageTooLong):
			writeError(w, http.StatusBadRequest, "message exceeds maximum length")
		default:
			writeError(w, http.StatusInternalServerError, "failed to resolve message")
		}
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Reply:     answer.Text,
		Source:    string(answer.Source),
		RuleID:    answer.RuleID,
		RuleName:  answer.RuleName,
		Priority:  answer.Priority,
		Category:  answer.Category,
		Timestamp: time.Now().UTC(),
	})
}

type connectionTestResponse struct {
	Status   string `json:"status"`
	Provider string `json:"provider"`
	Reply    string `json:"reply,omitempty"`
}

// TestAI sends a fixed greeting through the configured AI client and
// reports whether the round trip succeeded.
func (h *ChatHandler) TestAI(w http.ResponseWriter, r *http.Request) {
	if h.ai == nil {
		writeError(w, http.StatusServiceUnavailable, "ai capability not configured")
		return
	}

	reply, err := h.ai.Generate(r.Context(), "你好")
	if err != nil {
		writeError(w, http.StatusBadGateway, "ai connection test failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, connectionTestResponse{
		Status:   "ok",
		Provider: h.aiProvider,
		Reply:    reply,
	})
}

// TestCommunity forwards a fixed question through the configured community
// client and reports whether the round trip succeeded.
func (h *ChatHandler) TestCommunity(w http.ResponseWriter, r *http.Request) {
	if h.community == nil {
		writeError(w, http.StatusServiceUnavailable, "community capability not configured")
		return
	}

	reply, err := h.community.Ask(r.Context(), "连接测试")
	if err != nil {
		writeError(w, http.StatusBadGateway, "community connection test failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, connectionTestResponse{
		Status:   "ok",
		Provider: h.communityProvider,
		Reply:    reply,
	})
}

type statusResponse struct {
	Status    string         `json:"status"`
	Layers    map[string]any `json:"layers"`
	Timestamp time.Time      `json:"timestamp"`
}

// Status reports the configuration and rule statistics of each cascade layer.
func (h *ChatHandler) Status(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context())
	if err != nil {
		// Stats are best-effort: report the layer as degraded rather
		// than failing the whole status call.
		stats = &domain.RuleStats{}
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Status: "running",
		Layers: map[string]any{
			"rule": map[string]any{
				"enabled": true,
				"stats":   stats,
			},
			"ai": map[string]any{
				"provider": h.aiProvider,
			},
			"community": map[string]any{
				"provider": h.communityProvider,
			},
		},
		Timestamp: time.Now().UTC(),
	})
}
