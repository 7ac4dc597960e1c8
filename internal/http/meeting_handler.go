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

type meetingService interface {
	FindMeetingTimes(ctx context.Context, principal application.Principal, params application.FindTimesParams) (application.FindTimesResult, error)
	CreateMeeting(ctx context.Context, principal application.Principal, input application.MeetingInput) (application.Meeting, error)
	ListMeetings(ctx context.Context, principal application.Principal) ([]application.Meeting, error)
}

type MeetingHandler struct {
	service   meetingService
	responder responder
	logger    *slog.Logger
}

func NewMeetingHandler(service meetingService, logger *slog.Logger) *MeetingHandler {
	base := defaultLogger(logger)
	return &MeetingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *MeetingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "MeetingHandler", operation, attrs...)
}

// Search runs the common slot search for the requested participants.
func (h *MeetingHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Search", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode search request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Search", "principal_id", principal.UserID)

	result, err := h.service.FindMeetingTimes(r.Context(), principal, application.FindTimesParams{
		ParticipantEmails: req.ParticipantEmails,
		SearchStart:       req.SearchStart,
		SearchEnd:         req.SearchEnd,
		Duration:          time.Duration(req.DurationMinutes) * time.Minute,
		MeetingContext:    strings.TrimSpace(req.MeetingContext),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "slot search failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("slot_count", len(result.Slots)).InfoContext(r.Context(), "slot search completed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, searchResponse{
		Slots:        toIntervalDTOs(result.Slots),
		Participants: toParticipantDTOs(result.Participants),
	})
}

// Create stores a chosen slot as a meeting.
func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req meetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode meeting request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)

	meeting, err := h.service.CreateMeeting(r.Context(), principal, application.MeetingInput{
		Title:             req.Title,
		Description:       req.Description,
		Start:             req.Start,
		End:               req.End,
		ParticipantEmails: req.ParticipantEmails,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "meeting creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("meeting_id", meeting.ID).InfoContext(r.Context(), "meeting created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, meetingResponse{Meeting: toMeetingDTO(meeting)})
}

// List returns the meetings coordinated by the caller.
func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)

	meetings, err := h.service.ListMeetings(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "meeting list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listMeetingsResponse{Meetings: toMeetingDTOs(meetings)})
}

type searchRequest struct {
	ParticipantEmails []string  `json:"participant_emails"`
	SearchStart       time.Time `json:"search_start"`
	SearchEnd         time.Time `json:"search_end"`
	DurationMinutes   int       `json:"duration_minutes"`
	MeetingContext    string    `json:"meeting_context"`
}

type searchResponse struct {
	Slots        []intervalDTO    `json:"slots"`
	Participants []participantDTO `json:"participants"`
}

type participantDTO struct {
	Email  string `json:"email"`
	UserID string `json:"user_id,omitempty"`
	Status string `json:"status"`
}

func toParticipantDTOs(participants []application.ParticipantStatus) []participantDTO {
	if len(participants) == 0 {
		return nil
	}
	out := make([]participantDTO, 0, len(participants))
	for _, p := range participants {
		out = append(out, participantDTO{Email: p.Email, UserID: p.UserID, Status: p.Status})
	}
	return out
}

type meetingRequest struct {
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Start             time.Time `json:"start"`
	End               time.Time `json:"end"`
	ParticipantEmails []string  `json:"participant_emails"`
}

type meetingResponse struct {
	Meeting meetingDTO `json:"meeting"`
}

type listMeetingsResponse struct {
	Meetings []meetingDTO `json:"meetings"`
}

type meetingDTO struct {
	ID             string   `json:"id"`
	CoordinatorID  string   `json:"coordinator_id"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Start          string   `json:"start"`
	End            string   `json:"end"`
	ParticipantIDs []string `json:"participant_ids"`
	CreatedAt      string   `json:"created_at"`
}

func toMeetingDTO(meeting application.Meeting) meetingDTO {
	return meetingDTO{
		ID:             meeting.ID,
		CoordinatorID:  meeting.CoordinatorID,
		Title:          meeting.Title,
		Description:    meeting.Description,
		Start:          meeting.Start.UTC().Format(time.RFC3339Nano),
		End:            meeting.End.UTC().Format(time.RFC3339Nano),
		ParticipantIDs: meeting.ParticipantIDs,
		CreatedAt:      meeting.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toMeetingDTOs(meetings []application.Meeting) []meetingDTO {
	if len(meetings) == 0 {
		return nil
	}
	out := make([]meetingDTO, 0, len(meetings))
	for _, meeting := range meetings {
		out = append(out, toMeetingDTO(meeting))
	}
	return out
}
