package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/studio-scheduler/internal/application"
)

type attendanceService interface {
	OpenEditor(ctx context.Context, sessionID string) (application.EditorView, error)
	View(ctx context.Context, editorID, query string) (application.EditorView, error)
	Mark(ctx context.Context, editorID string, input application.MarkInput) (application.EditorView, error)
	Apply(ctx context.Context, editorID string, input application.BatchInput) (application.EditorView, error)
	Undo(ctx context.Context, editorID string) (application.EditorView, bool, error)
	Commit(ctx context.Context, editorID string) (application.EditorView, error)
	Close(ctx context.Context, editorID string) error
}

type AttendanceHandler struct {
	service   attendanceService
	responder responder
	logger    *slog.Logger
}

func NewAttendanceHandler(service attendanceService, logger *slog.Logger) *AttendanceHandler {
	base := defaultLogger(logger)
	return &AttendanceHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AttendanceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AttendanceHandler", operation, attrs...)
}

// Open starts an editor over the session in the request path.
func (h *AttendanceHandler) Open(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	view, err := h.service.OpenEditor(r.Context(), sessionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	w.Header().Set("Location", "/attendance-editors/"+view.EditorID)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toEditorDTO(view))
}

func (h *AttendanceHandler) View(w http.ResponseWriter, r *http.Request) {
	editorID, ok := h.editorID(w, r)
	if !ok {
		return
	}
	view, err := h.service.View(r.Context(), editorID, r.URL.Query().Get("q"))
	h.render(w, r, view, err)
}

func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	editorID, ok := h.editorID(w, r)
	if !ok {
		return
	}

	var req markRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Mark", "editor_id", editorID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode mark request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	view, err := h.service.Mark(r.Context(), editorID, application.MarkInput{
		ParticipantID: strings.TrimSpace(req.ParticipantID),
		Present:       req.Present,
		Reason:        req.Reason,
	})
	h.render(w, r, view, err)
}

func (h *AttendanceHandler) Batch(w http.ResponseWriter, r *http.Request) {
	editorID, ok := h.editorID(w, r)
	if !ok {
		return
	}

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Batch", "editor_id", editorID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode batch request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	view, err := h.service.Apply(r.Context(), editorID, application.BatchInput{Action: req.Action, Reason: req.Reason})
	h.render(w, r, view, err)
}

func (h *AttendanceHandler) Undo(w http.ResponseWriter, r *http.Request) {
	editorID, ok := h.editorID(w, r)
	if !ok {
		return
	}

	view, changed, err := h.service.Undo(r.Context(), editorID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, undoResponse{editorDTO: toEditorDTO(view), Changed: changed})
}

func (h *AttendanceHandler) Commit(w http.ResponseWriter, r *http.Request) {
	editorID, ok := h.editorID(w, r)
	if !ok {
		return
	}

	view, err := h.service.Commit(r.Context(), editorID)
	if err == nil {
		h.log(r.Context(), "Commit", "editor_id", editorID, "session_id", view.SessionID).InfoContext(r.Context(), "attendance committed")
	}
	h.render(w, r, view, err)
}

func (h *AttendanceHandler) Close(w http.ResponseWriter, r *http.Request) {
	editorID, ok := h.editorID(w, r)
	if !ok {
		return
	}

	if err := h.service.Close(r.Context(), editorID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *AttendanceHandler) editorID(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return "", false
	}
	editorID, ok := EditorIDFromContext(r.Context())
	if !ok || strings.TrimSpace(editorID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEditorID)
		return "", false
	}
	return editorID, true
}

func (h *AttendanceHandler) render(w http.ResponseWriter, r *http.Request, view application.EditorView, err error) {
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEditorDTO(view))
}

type markRequest struct {
	ParticipantID string  `json:"participant_id"`
	Present       *bool   `json:"present"`
	Reason        *string `json:"reason"`
}

type batchRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

type editorDTO struct {
	EditorID      string           `json:"editor_id"`
	SessionID     string           `json:"session_id"`
	Query         string           `json:"query"`
	Entries       []editorEntryDTO `json:"entries"`
	SelectableIDs []string         `json:"selectable_ids"`
	DirtyIDs      []string         `json:"dirty_ids"`
}

type editorEntryDTO struct {
	ParticipantID string `json:"participant_id"`
	DisplayName   string `json:"display_name"`
	Ineligible    bool   `json:"ineligible"`
	attendanceDTO
	Dirty bool `json:"dirty"`
}

type undoResponse struct {
	editorDTO
	Changed bool `json:"changed"`
}

func toEditorDTO(view application.EditorView) editorDTO {
	entries := make([]editorEntryDTO, 0, len(view.Entries))
	for _, entry := range view.Entries {
		entries = append(entries, editorEntryDTO{
			ParticipantID: entry.ParticipantID,
			DisplayName:   entry.DisplayName,
			Ineligible:    entry.Ineligible,
			attendanceDTO: toAttendanceDTO(entry.Record),
			Dirty:         entry.Dirty,
		})
	}
	return editorDTO{
		EditorID:      view.EditorID,
		SessionID:     view.SessionID,
		Query:         view.Query,
		Entries:       entries,
		SelectableIDs: append([]string{}, view.Selectable...),
		DirtyIDs:      append([]string{}, view.Dirty...),
	}
}
