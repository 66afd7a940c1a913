package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ruanqin/chatcore/internal/domain"
	"github.com/ruanqin/chatcore/internal/service"
	"github.com/ruanqin/chatcore/internal/store"
)

type RuleHandler struct {
	admin *service.RuleAdminService
}

func NewRuleHandler(admin *service.RuleAdminService) *RuleHandler {
	return &RuleHandler{admin: admin}
}

type createRuleRequest struct {
	RuleID          string  `json:"rule_id"`
	RuleName        string  `json:"rule_name"`
	TriggerType     string  `json:"trigger_type"`
	TriggerContent  string  `json:"trigger_content"`
	ResponseType    string  `json:"response_type"`
	ResponseContent string  `json:"response_content"`
	Priority        int     `json:"priority"`
	Enabled         *bool   `json:"enabled"`
	Category        *string `json:"category"`
	Tags            *string `json:"tags"`
}

func (req createRuleRequest) toInput() service.RuleInput {
	return service.RuleInput{
		RuleID:          req.RuleID,
		RuleName:        req.RuleName,
		TriggerType:     req.TriggerType,
		TriggerContent:  req.TriggerContent,
		ResponseType:    req.ResponseType,
		ResponseContent: req.ResponseContent,
		Priority:        req.Priority,
		Enabled:         req.Enabled,
		Category:        req.Category,
		Tags:            req.Tags,
	}
}

type rulesResponse struct {
	Rules []domain.Rule `json:"rules"`
	Total int           `json:"total"`
}

func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	rules, err := h.admin.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list rules")
		return
	}
	if rules == nil {
		rules = []domain.Rule{}
	}
	writeJSON(w, http.StatusOK, rulesResponse{Rules: rules, Total: len(rules)})
}

func (h *RuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	stored, err := h.admin.Add(r.Context(), req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRuleNameRequired),
			errors.Is(err, service.ErrTriggerContentRequired),
			errors.Is(err, service.ErrResponseContentRequired),
			errors.Is(err, service.ErrInvalidTriggerType),
			errors.Is(err, service.ErrInvalidResponseType):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to store rule")
		}
		return
	}

	writeJSON(w, http.StatusCreated, stored)
}

func (h *RuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "ruleID")

	var patch domain.RulePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rule, err := h.admin.Update(r.Context(), ruleID, patch)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "rule not found")
		case errors.Is(err, service.ErrInvalidTriggerType),
			errors.Is(err, service.ErrInvalidResponseType):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to update rule")
		}
		return
	}

	if rule == nil {
		// Empty patch: nothing to change.
		writeJSON(w, http.StatusOK, map[string]any{"updated": false})
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (h *RuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "ruleID")

	deleted, err := h.admin.Delete(r.Context(), ruleID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete rule")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "rule not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

type importRequest struct {
	Rules []createRuleRequest `json:"rules"`
}

type importResponse struct {
	Imported int `json:"imported"`
	Failed   int `json:"failed"`
}

// Import bulk-upserts rule rows keyed on rule_id. The operation is
// idempotent: re-importing the same rows updates them in place.
func (h *RuleHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Rules) == 0 {
		writeError(w, http.StatusBadRequest, "at least one rule is required")
		return
	}

	rows := make([]service.RuleInput, 0, len(req.Rules))
	for _, row := range req.Rules {
		rows = append(rows, row.toInput())
	}

	imported, failed := h.admin.Import(r.Context(), rows)
	writeJSON(w, http.StatusOK, importResponse{Imported: imported, Failed: failed})
}
