package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/meeting-coordinator/internal/application"
)

type permissionService interface {
	GrantToUser(ctx context.Context, principal application.Principal, granteeEmail string) (application.Permission, error)
	GrantToDomain(ctx context.Context, principal application.Principal, domain string) (application.Permission, error)
	Revoke(ctx context.Context, principal application.Principal, permissionID string) error
	ListGrants(ctx context.Context, principal application.Principal) ([]application.Permission, error)
	ListGrantedToMe(ctx context.Context, principal application.Principal) ([]application.Permission, error)
	CreateRequest(ctx context.Context, principal application.Principal, params application.CreateRequestParams) (application.Request, error)
	ApproveRequest(ctx context.Context, principal application.Principal, requestID string) (application.Permission, error)
	DenyRequest(ctx context.Context, principal application.Principal, requestID string) error
	ListPendingRequests(ctx context.Context, principal application.Principal) ([]application.Request, error)
	ListSentRequests(ctx context.Context, principal application.Principal) ([]application.Request, error)
	FrequentContacts(ctx context.Context, principal application.Principal) ([]application.Contact, error)
}

type PermissionHandler struct {
	service   permissionService
	responder responder
	logger    *slog.Logger
}

func NewPermissionHandler(service permissionService, logger *slog.Logger) *PermissionHandler {
	base := defaultLogger(logger)
	return &PermissionHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *PermissionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "PermissionHandler", operation, attrs...)
}

func (h *PermissionHandler) GrantToUser(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req userGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "GrantToUser", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode grant request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "GrantToUser", "principal_id", principal.UserID)

	permission, err := h.service.GrantToUser(r.Context(), principal, req.GranteeEmail)
	if err != nil {
		logger.ErrorContext(r.Context(), "user grant failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("permission_id", permission.ID).InfoContext(r.Context(), "user grant created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, permissionResponse{Permission: toPermissionDTO(permission)})
}

func (h *PermissionHandler) GrantToDomain(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req domainGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "GrantToDomain", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode grant request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "GrantToDomain", "principal_id", principal.UserID)

	permission, err := h.service.GrantToDomain(r.Context(), principal, req.Domain)
	if err != nil {
		logger.ErrorContext(r.Context(), "domain grant failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("permission_id", permission.ID).InfoContext(r.Context(), "domain grant created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, permissionResponse{Permission: toPermissionDTO(permission)})
}

func (h *PermissionHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	permissionID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(permissionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Revoke", "principal_id", principal.UserID, "permission_id", permissionID)

	if err := h.service.Revoke(r.Context(), principal, permissionID); err != nil {
		logger.ErrorContext(r.Context(), "revoke failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "permission revoked")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *PermissionHandler) ListGrants(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "ListGrants", "principal_id", principal.UserID)

	permissions, err := h.service.ListGrants(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "grant list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listPermissionsResponse{Permissions: toPermissionDTOs(permissions)})
}

func (h *PermissionHandler) ListReceived(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "ListReceived", "principal_id", principal.UserID)

	permissions, err := h.service.ListGrantedToMe(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "received grant list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listPermissionsResponse{Permissions: toPermissionDTOs(permissions)})
}

func (h *PermissionHandler) FrequentContacts(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "FrequentContacts", "principal_id", principal.UserID)

	contacts, err := h.service.FrequentContacts(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "contact list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listContactsResponse{Contacts: toContactDTOs(contacts)})
}

func (h *PermissionHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req accessRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "CreateRequest", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode access request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "CreateRequest", "principal_id", principal.UserID)

	request, err := h.service.CreateRequest(r.Context(), principal, application.CreateRequestParams{
		RecipientEmail: req.RecipientEmail,
		MeetingContext: strings.TrimSpace(req.MeetingContext),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "access request failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("request_id", request.ID).InfoContext(r.Context(), "access request created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, requestResponse{Request: toRequestDTO(request)})
}

func (h *PermissionHandler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	requestID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(requestID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "ApproveRequest", "principal_id", principal.UserID, "request_id", requestID)

	permission, err := h.service.ApproveRequest(r.Context(), principal, requestID)
	if err != nil {
		logger.ErrorContext(r.Context(), "approve failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("permission_id", permission.ID).InfoContext(r.Context(), "request approved")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, permissionResponse{Permission: toPermissionDTO(permission)})
}

func (h *PermissionHandler) DenyRequest(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	requestID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(requestID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "DenyRequest", "principal_id", principal.UserID, "request_id", requestID)

	if err := h.service.DenyRequest(r.Context(), principal, requestID); err != nil {
		logger.ErrorContext(r.Context(), "deny failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "request denied")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *PermissionHandler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "ListPendingRequests", "principal_id", principal.UserID)

	requests, err := h.service.ListPendingRequests(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "pending request list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRequestsResponse{Requests: toRequestDTOs(requests)})
}

func (h *PermissionHandler) ListSentRequests(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "ListSentRequests", "principal_id", principal.UserID)

	requests, err := h.service.ListSentRequests(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "sent request list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRequestsResponse{Requests: toRequestDTOs(requests)})
}

type userGrantRequest struct {
	GranteeEmail string `json:"grantee_email"`
}

type domainGrantRequest struct {
	Domain string `json:"domain"`
}

type accessRequestRequest struct {
	RecipientEmail string `json:"recipient_email"`
	MeetingContext string `json:"meeting_context"`
}

type permissionResponse struct {
	Permission permissionDTO `json:"permission"`
}

type listPermissionsResponse struct {
	Permissions []permissionDTO `json:"permissions"`
}

type permissionDTO struct {
	ID            string `json:"id"`
	GrantorID     string `json:"grantor_id"`
	GranteeID     string `json:"grantee_id,omitempty"`
	GranteeDomain string `json:"grantee_domain,omitempty"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	ExpiresAt     string `json:"expires_at,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toPermissionDTO(permission application.Permission) permissionDTO {
	dto := permissionDTO{
		ID:            permission.ID,
		GrantorID:     permission.GrantorID,
		GranteeID:     permission.GranteeID,
		GranteeDomain: permission.GranteeDomain,
		Type:          permission.Type,
		Status:        permission.Status,
		CreatedAt:     permission.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if permission.ExpiresAt != nil {
		dto.ExpiresAt = permission.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}
	return dto
}

func toPermissionDTOs(permissions []application.Permission) []permissionDTO {
	if len(permissions) == 0 {
		return nil
	}
	out := make([]permissionDTO, 0, len(permissions))
	for _, permission := range permissions {
		out = append(out, toPermissionDTO(permission))
	}
	return out
}

type listContactsResponse struct {
	Contacts []contactDTO `json:"contacts"`
}

type contactDTO struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

func toContactDTOs(contacts []application.Contact) []contactDTO {
	if len(contacts) == 0 {
		return nil
	}
	out := make([]contactDTO, 0, len(contacts))
	for _, contact := range contacts {
		out = append(out, contactDTO{Email: contact.Email, DisplayName: contact.DisplayName})
	}
	return out
}

type requestResponse struct {
	Request requestDTO `json:"request"`
}

type listRequestsResponse struct {
	Requests []requestDTO `json:"requests"`
}

type requestDTO struct {
	ID             string `json:"id"`
	RequesterID    string `json:"requester_id"`
	RecipientID    string `json:"recipient_id,omitempty"`
	RecipientEmail string `json:"recipient_email,omitempty"`
	MeetingContext string `json:"meeting_context,omitempty"`
	Status         string `json:"status"`
	ExpiresAt      string `json:"expires_at"`
	CreatedAt      string `json:"created_at"`
}

func toRequestDTO(request application.Request) requestDTO {
	return requestDTO{
		ID:             request.ID,
		RequesterID:    request.RequesterID,
		RecipientID:    request.RecipientID,
		RecipientEmail: request.RecipientEmail,
		MeetingContext: request.MeetingContext,
		Status:         request.Status,
		ExpiresAt:      request.ExpiresAt.UTC().Format(time.RFC3339Nano),
		CreatedAt:      request.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toRequestDTOs(requests []application.Request) []requestDTO {
	if len(requests) == 0 {
		return nil
	}
	out := make([]requestDTO, 0, len(requests))
	for _, request := range requests {
		out = append(out, toRequestDTO(request))
	}
	return out
}
