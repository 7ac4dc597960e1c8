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

type userService interface {
	Register(ctx context.Context, params application.RegisterParams) (application.User, error)
	GetProfile(ctx context.Context, principal application.Principal) (application.User, error)
	UpdateSettings(ctx context.Context, principal application.Principal, input application.SettingsInput) (application.User, error)
}

type UserHandler struct {
	service   userService
	responder responder
	logger    *slog.Logger
}

func NewUserHandler(service userService, logger *slog.Logger) *UserHandler {
	base := defaultLogger(logger)
	return &UserHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *UserHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "UserHandler", operation, attrs...)
}

// Register creates an account. It is the only endpoint that does not require
// an established identity.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Register", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode register request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Register")

	user, err := h.service.Register(r.Context(), application.RegisterParams{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
		Timezone:    req.Timezone,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "registration failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("user_id", user.ID).InfoContext(r.Context(), "user registered")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, userResponse{User: toUserDTO(user)})
}

// Me returns the authenticated user's profile.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Me", "principal_id", principal.UserID)

	user, err := h.service.GetProfile(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "profile lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, userResponse{User: toUserDTO(user)})
}

// UpdateSettings changes the authenticated user's scheduling preferences.
func (h *UserHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "UpdateSettings", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode settings request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "UpdateSettings", "principal_id", principal.UserID)

	user, err := h.service.UpdateSettings(r.Context(), principal, application.SettingsInput{
		Timezone:      strings.TrimSpace(req.Timezone),
		BufferMinutes: req.BufferMinutes,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "settings update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "settings updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, userResponse{User: toUserDTO(user)})
}

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	Timezone    string `json:"timezone"`
}

type settingsRequest struct {
	Timezone      string `json:"timezone"`
	BufferMinutes int    `json:"buffer_minutes"`
}

type userResponse struct {
	User userDTO `json:"user"`
}

type userDTO struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	DisplayName   string `json:"display_name"`
	Timezone      string `json:"timezone"`
	BufferMinutes int    `json:"buffer_minutes"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

func toUserDTO(user application.User) userDTO {
	return userDTO{
		ID:            user.ID,
		Email:         user.Email,
		DisplayName:   user.DisplayName,
		Timezone:      user.Timezone,
		BufferMinutes: user.BufferMinutes,
		CreatedAt:     user.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:     user.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}
