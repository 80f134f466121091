package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/studio-scheduler/internal/application"
	"github.com/example/studio-scheduler/internal/attendance"
	"github.com/example/studio-scheduler/internal/calendar"
)

type sessionService interface {
	CreateSessions(ctx context.Context, draft application.SessionDraft) ([]application.Session, error)
	GetSession(ctx context.Context, id string) (application.Session, error)
	ListSessions(ctx context.Context, filter application.SessionFilter) ([]application.Session, error)
	UpdateSession(ctx context.Context, id string, draft application.SessionDraft) (application.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

type SessionHandler struct {
	service   sessionService
	responder responder
	logger    *slog.Logger
}

func NewSessionHandler(service sessionService, logger *slog.Logger) *SessionHandler {
	base := defaultLogger(logger)
	return &SessionHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *SessionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SessionHandler", operation, attrs...)
}

// Create stores one session, or every occurrence of a recurring draft.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode session request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	sessions, err := h.service.CreateSessions(r.Context(), req.toDraft())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Create", "created_count", len(sessions)).InfoContext(r.Context(), "sessions created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, sessionsResponse{Sessions: toSessionDTOs(sessions)})
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	filter, vErr := buildSessionFilter(r.URL.Query())
	if vErr != nil {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	sessions, err := h.service.ListSessions(r.Context(), filter)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionsResponse{Sessions: toSessionDTOs(sessions)})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	session, err := h.service.GetSession(r.Context(), sessionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "session_id", sessionID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode session request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	session, err := h.service.UpdateSession(r.Context(), sessionID, req.toDraft())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	if err := h.service.DeleteSession(r.Context(), sessionID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type sessionRequest struct {
	Name               string   `json:"name"`
	RoomID             string   `json:"room_id"`
	TrainerID          string   `json:"trainer_id"`
	Type               string   `json:"type"`
	GroupID            string   `json:"group_id"`
	ParticipantIDs     []string `json:"participant_ids"`
	Date               string   `json:"date"`
	StartTime          string   `json:"start_time"`
	EndTime            string   `json:"end_time"`
	RecurrenceWeekdays []string `json:"recurrence_weekdays"`
	HorizonMonths      int      `json:"horizon_months"`
	Conducted          *bool    `json:"conducted"`
}

func (r sessionRequest) toDraft() application.SessionDraft {
	return application.SessionDraft{
		Name:               r.Name,
		RoomID:             r.RoomID,
		TrainerID:          r.TrainerID,
		Type:               r.Type,
		GroupID:            r.GroupID,
		ParticipantIDs:     append([]string(nil), r.ParticipantIDs...),
		Date:               r.Date,
		StartTime:          r.StartTime,
		EndTime:            r.EndTime,
		RecurrenceWeekdays: append([]string(nil), r.RecurrenceWeekdays...),
		HorizonMonths:      r.HorizonMonths,
		Conducted:          r.Conducted,
	}
}

type sessionResponse struct {
	Session sessionDTO `json:"session"`
}

type sessionsResponse struct {
	Sessions []sessionDTO `json:"sessions"`
}

type sessionDTO struct {
	ID                 string                   `json:"id"`
	Name               string                   `json:"name"`
	RoomID             string                   `json:"room_id"`
	TrainerID          string                   `json:"trainer_id"`
	Type               string                   `json:"type"`
	GroupID            string                   `json:"group_id,omitempty"`
	ParticipantIDs     []string                 `json:"participant_ids"`
	Date               string                   `json:"date"`
	StartTime          string                   `json:"start_time"`
	EndTime            string                   `json:"end_time"`
	RecurrenceWeekdays []string                 `json:"recurrence_weekdays"`
	Attendance         map[string]attendanceDTO `json:"attendance"`
	Conducted          bool                     `json:"conducted"`
	CreatedAt          string                   `json:"created_at,omitempty"`
	UpdatedAt          string                   `json:"updated_at,omitempty"`
}

// attendanceDTO exposes a record with the stored label and the stable code.
type attendanceDTO struct {
	Present    bool    `json:"present"`
	Reason     *string `json:"reason"`
	ReasonCode *string `json:"reason_code,omitempty"`
}

func toAttendanceDTO(record attendance.Record) attendanceDTO {
	dto := attendanceDTO{Present: record.Present}
	if !record.Present && record.Reason != nil {
		label := record.Reason.Label()
		code := string(*record.Reason)
		dto.Reason, dto.ReasonCode = &label, &code
	}
	return dto
}

func toSessionDTO(session application.Session) sessionDTO {
	weekdays := make([]string, 0, len(session.RecurrenceWeekdays))
	for _, day := range session.RecurrenceWeekdays {
		weekdays = append(weekdays, string(day))
	}
	records := session.AttendanceRecords()
	attendanceByID := make(map[string]attendanceDTO, len(records))
	for id, record := range records {
		attendanceByID[id] = toAttendanceDTO(record)
	}

	dto := sessionDTO{
		ID:                 session.ID,
		Name:               session.Name,
		RoomID:             session.RoomID,
		TrainerID:          session.TrainerID,
		Type:               string(session.Type),
		GroupID:            session.GroupID,
		ParticipantIDs:     append([]string{}, session.ParticipantIDs...),
		Date:               session.Date.String(),
		StartTime:          session.StartTime.String(),
		EndTime:            session.EndTime.String(),
		RecurrenceWeekdays: weekdays,
		Attendance:         attendanceByID,
		Conducted:          session.Conducted,
	}
	if !session.CreatedAt.IsZero() {
		dto.CreatedAt = session.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !session.UpdatedAt.IsZero() {
		dto.UpdatedAt = session.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toSessionDTOs(sessions []application.Session) []sessionDTO {
	out := make([]sessionDTO, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, toSessionDTO(session))
	}
	return out
}

func buildSessionFilter(values url.Values) (application.SessionFilter, *application.ValidationError) {
	vErr := &application.ValidationError{FieldErrors: map[string]string{}}
	filter := application.SessionFilter{
		GroupID: strings.TrimSpace(values.Get("group")),
		RoomID:  strings.TrimSpace(values.Get("room")),
	}
	filter.From = optionalDateParam(values, "from", vErr)
	filter.To = optionalDateParam(values, "to", vErr)
	if vErr.HasErrors() {
		return application.SessionFilter{}, vErr
	}
	return filter, nil
}

// optionalDateParam parses a YYYY-MM-DD query parameter. A malformed value is
// recorded on vErr under key.
func optionalDateParam(values url.Values, key string, vErr *application.ValidationError) *calendar.Date {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil
	}
	date, err := calendar.ParseDate(raw)
	if err != nil {
		vErr.FieldErrors[key] = "must be a date in YYYY-MM-DD format"
		return nil
	}
	return &date
}
