package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/meeting-coordinator/internal/application"
)

type notificationService interface {
	List(ctx context.Context, principal application.Principal, unreadOnly bool) ([]application.Notification, error)
	MarkRead(ctx context.Context, principal application.Principal, notificationID string) error
	MarkAllRead(ctx context.Context, principal application.Principal) error
}

type NotificationHandler struct {
	service   notificationService
	responder responder
	logger    *slog.Logger
}

func NewNotificationHandler(service notificationService, logger *slog.Logger) *NotificationHandler {
	base := defaultLogger(logger)
	return &NotificationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *NotificationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "NotificationHandler", operation, attrs...)
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	unreadOnly := r.URL.Query().Get("unread") == "true"
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)

	notifications, err := h.service.List(r.Context(), principal, unreadOnly)
	if err != nil {
		logger.ErrorContext(r.Context(), "notification list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listNotificationsResponse{Notifications: toNotificationDTOs(notifications)})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	notificationID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(notificationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "MarkRead", "principal_id", principal.UserID, "notification_id", notificationID)

	if err := h.service.MarkRead(r.Context(), principal, notificationID); err != nil {
		logger.ErrorContext(r.Context(), "mark read failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "MarkAllRead", "principal_id", principal.UserID)

	if err := h.service.MarkAllRead(r.Context(), principal); err != nil {
		logger.ErrorContext(r.Context(), "mark all read failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type listNotificationsResponse struct {
	Notifications []notificationDTO `json:"notifications"`
}

type notificationDTO struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Link      string `json:"link,omitempty"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at"`
}

func toNotificationDTOs(notifications []application.Notification) []notificationDTO {
	if len(notifications) == 0 {
		return nil
	}
	out := make([]notificationDTO, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, notificationDTO{
			ID:        n.ID,
			Type:      n.Type,
			Title:     n.Title,
			Message:   n.Message,
			Link:      n.Link,
			Read:      n.Read,
			CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}
