package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/meeting-coordinator/internal/application"
	"github.com/example/meeting-coordinator/internal/availability"
)

var (
	errInvalidRangeStart = errors.New("the start query parameter must be an RFC 3339 timestamp")
	errInvalidRangeEnd   = errors.New("the end query parameter must be an RFC 3339 timestamp")
)

type availabilityService interface {
	AddRule(ctx context.Context, principal application.Principal, input application.RuleInput) (application.Rule, error)
	ListRules(ctx context.Context, principal application.Principal) ([]application.Rule, error)
	DeleteRule(ctx context.Context, principal application.Principal, ruleID string) error
	DeleteAllRules(ctx context.Context, principal application.Principal) error
	AddBlockedTime(ctx context.Context, principal application.Principal, input application.BlockedTimeInput) (application.BlockedTime, error)
	ListBlockedTimes(ctx context.Context, principal application.Principal) ([]application.BlockedTime, error)
	DeleteBlockedTime(ctx context.Context, principal application.Principal, blockedID string) error
	AvailabilityRange(ctx context.Context, principal application.Principal, start, end time.Time) ([]availability.Interval, error)
	SuggestedTimes(ctx context.Context, principal application.Principal) ([]time.Time, error)
}

type AvailabilityHandler struct {
	service   availabilityService
	responder responder
	logger    *slog.Logger
}

func NewAvailabilityHandler(service availabilityService, logger *slog.Logger) *AvailabilityHandler {
	base := defaultLogger(logger)
	return &AvailabilityHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AvailabilityHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AvailabilityHandler", operation, attrs...)
}

func (h *AvailabilityHandler) CreateRule(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "CreateRule", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode rule request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "CreateRule", "principal_id", principal.UserID)

	rule, err := h.service.AddRule(r.Context(), principal, application.RuleInput{
		DayOfWeek: req.DayOfWeek,
		StartTime: strings.TrimSpace(req.StartTime),
		EndTime:   strings.TrimSpace(req.EndTime),
		Timezone:  strings.TrimSpace(req.Timezone),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "rule creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("rule_id", rule.ID).InfoContext(r.Context(), "rule created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, ruleResponse{Rule: toRuleDTO(rule)})
}

func (h *AvailabilityHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "ListRules", "principal_id", principal.UserID)

	rules, err := h.service.ListRules(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "rule list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRulesResponse{Rules: toRuleDTOs(rules)})
}

func (h *AvailabilityHandler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ruleID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(ruleID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "DeleteRule", "principal_id", principal.UserID, "rule_id", ruleID)

	if err := h.service.DeleteRule(r.Context(), principal, ruleID); err != nil {
		logger.ErrorContext(r.Context(), "rule delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "rule deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *AvailabilityHandler) DeleteAllRules(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "DeleteAllRules", "principal_id", principal.UserID)

	if err := h.service.DeleteAllRules(r.Context(), principal); err != nil {
		logger.ErrorContext(r.Context(), "rule clear failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "rules cleared")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *AvailabilityHandler) CreateBlockedTime(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req blockedTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "CreateBlockedTime", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode blocked time request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "CreateBlockedTime", "principal_id", principal.UserID)

	blocked, err := h.service.AddBlockedTime(r.Context(), principal, application.BlockedTimeInput{
		Start:  req.Start,
		End:    req.End,
		Reason: req.Reason,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "blocked time creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("blocked_id", blocked.ID).InfoContext(r.Context(), "blocked time created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, blockedTimeResponse{BlockedTime: toBlockedTimeDTO(blocked)})
}

func (h *AvailabilityHandler) ListBlockedTimes(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "ListBlockedTimes", "principal_id", principal.UserID)

	blocked, err := h.service.ListBlockedTimes(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "blocked time list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBlockedTimesResponse{BlockedTimes: toBlockedTimeDTOs(blocked)})
}

func (h *AvailabilityHandler) DeleteBlockedTime(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	blockedID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(blockedID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "DeleteBlockedTime", "principal_id", principal.UserID, "blocked_id", blockedID)

	if err := h.service.DeleteBlockedTime(r.Context(), principal, blockedID); err != nil {
		logger.ErrorContext(r.Context(), "blocked time delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "blocked time deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Range returns the caller's busy picture between the start and end query
// parameters.
func (h *AvailabilityHandler) Range(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRangeStart)
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRangeEnd)
		return
	}

	logger := h.log(r.Context(), "Range", "principal_id", principal.UserID)

	intervals, err := h.service.AvailabilityRange(r.Context(), principal, start, end)
	if err != nil {
		logger.ErrorContext(r.Context(), "availability range failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, rangeResponse{Busy: toIntervalDTOs(intervals)})
}

// Suggestions returns proposed open times for the caller.
func (h *AvailabilityHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Suggestions", "principal_id", principal.UserID)

	suggestions, err := h.service.SuggestedTimes(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "suggestion lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]string, 0, len(suggestions))
	for _, at := range suggestions {
		out = append(out, at.UTC().Format(time.RFC3339))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, suggestionsResponse{Suggestions: out})
}

type ruleRequest struct {
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Timezone  string `json:"timezone"`
}

type ruleResponse struct {
	Rule ruleDTO `json:"rule"`
}

type listRulesResponse struct {
	Rules []ruleDTO `json:"rules"`
}

type ruleDTO struct {
	ID        string `json:"id"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Timezone  string `json:"timezone"`
	CreatedAt string `json:"created_at"`
}

func toRuleDTO(rule application.Rule) ruleDTO {
	return ruleDTO{
		ID:        rule.ID,
		DayOfWeek: rule.DayOfWeek,
		StartTime: rule.StartTime,
		EndTime:   rule.EndTime,
		Timezone:  rule.Timezone,
		CreatedAt: rule.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toRuleDTOs(rules []application.Rule) []ruleDTO {
	if len(rules) == 0 {
		return nil
	}
	out := make([]ruleDTO, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toRuleDTO(rule))
	}
	return out
}

type blockedTimeRequest struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Reason string    `json:"reason"`
}

type blockedTimeResponse struct {
	BlockedTime blockedTimeDTO `json:"blocked_time"`
}

type listBlockedTimesResponse struct {
	BlockedTimes []blockedTimeDTO `json:"blocked_times"`
}

type blockedTimeDTO struct {
	ID        string `json:"id"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Reason    string `json:"reason,omitempty"`
	CreatedAt string `json:"created_at"`
}

func toBlockedTimeDTO(blocked application.BlockedTime) blockedTimeDTO {
	return blockedTimeDTO{
		ID:        blocked.ID,
		Start:     blocked.Start.UTC().Format(time.RFC3339Nano),
		End:       blocked.End.UTC().Format(time.RFC3339Nano),
		Reason:    blocked.Reason,
		CreatedAt: blocked.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toBlockedTimeDTOs(blocked []application.BlockedTime) []blockedTimeDTO {
	if len(blocked) == 0 {
		return nil
	}
	out := make([]blockedTimeDTO, 0, len(blocked))
	for _, block := range blocked {
		out = append(out, toBlockedTimeDTO(block))
	}
	return out
}

type rangeResponse struct {
	Busy []intervalDTO `json:"busy"`
}

type suggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

type intervalDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func toIntervalDTOs(intervals []availability.Interval) []intervalDTO {
	if len(intervals) == 0 {
		return nil
	}
	out := make([]intervalDTO, 0, len(intervals))
	for _, interval := range intervals {
		out = append(out, intervalDTO{
			Start: interval.Start.UTC().Format(time.RFC3339Nano),
			End:   interval.End.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}
