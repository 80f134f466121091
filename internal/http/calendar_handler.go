package http

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/studio-scheduler/internal/application"
	"github.com/example/studio-scheduler/internal/calendar"
	"github.com/example/studio-scheduler/internal/ics"
)

// defaultFeedDays is the export window when the feed request gives no end date.
const defaultFeedDays = 30

type calendarService interface {
	DayView(ctx context.Context, date calendar.Date, groupID string) (application.CalendarView, error)
	WeekView(ctx context.Context, date calendar.Date, groupID string) (application.CalendarView, error)
	Agenda(ctx context.Context, from, to calendar.Date, groupID string) ([]application.AgendaItem, error)
}

type CalendarHandler struct {
	service   calendarService
	responder responder
	logger    *slog.Logger
	now       func() time.Time
}

// NewCalendarHandler builds the calendar endpoints. now supplies "today" when
// a request omits its date; nil means time.Now.
func NewCalendarHandler(service calendarService, now func() time.Time, logger *slog.Logger) *CalendarHandler {
	base := defaultLogger(logger)
	if now == nil {
		now = time.Now
	}
	return &CalendarHandler{service: service, responder: newResponder(base), logger: base, now: now}
}

func (h *CalendarHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CalendarHandler", operation, attrs...)
}

func (h *CalendarHandler) Day(w http.ResponseWriter, r *http.Request) {
	h.view(w, r, func(ctx context.Context, date calendar.Date, groupID string) (application.CalendarView, error) {
		return h.service.DayView(ctx, date, groupID)
	})
}

func (h *CalendarHandler) Week(w http.ResponseWriter, r *http.Request) {
	h.view(w, r, func(ctx context.Context, date calendar.Date, groupID string) (application.CalendarView, error) {
		return h.service.WeekView(ctx, date, groupID)
	})
}

func (h *CalendarHandler) view(w http.ResponseWriter, r *http.Request, compose func(context.Context, calendar.Date, string) (application.CalendarView, error)) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	values := r.URL.Query()
	vErr := &application.ValidationError{FieldErrors: map[string]string{}}
	date := h.today()
	if parsed := optionalDateParam(values, "date", vErr); parsed != nil {
		date = *parsed
	}
	if vErr.HasErrors() {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	view, err := compose(r.Context(), date, strings.TrimSpace(values.Get("group")))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toCalendarDTO(view))
}

// Feed exports sessions in [from, to] as text/calendar.
func (h *CalendarHandler) Feed(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	from, to, vErr := h.feedRange(r.URL.Query())
	if vErr != nil {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	items, err := h.service.Agenda(r.Context(), from, to, strings.TrimSpace(r.URL.Query().Get("group")))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	events := make([]ics.Event, 0, len(items))
	for _, item := range items {
		events = append(events, toFeedEvent(item))
	}

	var buf bytes.Buffer
	if err := ics.Write(&buf, events, ics.Options{Stamp: h.now()}); err != nil {
		h.log(r.Context(), "Feed").ErrorContext(r.Context(), "failed to render calendar feed", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="sessions.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.log(r.Context(), "Feed").ErrorContext(r.Context(), "failed to write calendar feed", "error", err)
	}
}

func (h *CalendarHandler) feedRange(values url.Values) (calendar.Date, calendar.Date, *application.ValidationError) {
	vErr := &application.ValidationError{FieldErrors: map[string]string{}}
	from := h.today()
	if parsed := optionalDateParam(values, "from", vErr); parsed != nil {
		from = *parsed
	}
	to := from.AddDays(defaultFeedDays)
	if parsed := optionalDateParam(values, "to", vErr); parsed != nil {
		to = *parsed
	}
	if vErr.HasErrors() {
		return calendar.Date{}, calendar.Date{}, vErr
	}
	return from, to, nil
}

func (h *CalendarHandler) today() calendar.Date {
	return calendar.DateOf(h.now())
}

func toFeedEvent(item application.AgendaItem) ics.Event {
	session := item.Session
	location := item.RoomName
	if location == "" {
		location = session.RoomID
	}
	return ics.Event{
		UID:       session.ID + "@studio-scheduler",
		Summary:   session.Name,
		Location:  location,
		Category:  string(session.Type),
		Date:      session.Date,
		Start:     session.StartTime,
		End:       session.EndTime,
		UpdatedAt: session.UpdatedAt,
	}
}

type calendarDTO struct {
	Kind       string               `json:"kind"`
	Date       string               `json:"date"`
	From       string               `json:"from"`
	To         string               `json:"to"`
	GroupID    string               `json:"group_id,omitempty"`
	Hours      []int                `json:"hours"`
	Columns    []columnDTO          `json:"columns"`
	Placements []placementDTO       `json:"placements"`
	Masked     []maskDTO            `json:"masked"`
	Sessions   []sessionDTO         `json:"sessions"`
	Conflicts  []conflictWarningDTO `json:"conflicts,omitempty"`
}

type columnDTO struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type placementDTO struct {
	SessionID string `json:"session_id"`
	Column    string `json:"column"`
	Hour      int    `json:"hour"`
	RowSpan   int    `json:"row_span"`
}

type maskDTO struct {
	SessionID string `json:"session_id"`
	Column    string `json:"column"`
	Hour      int    `json:"hour"`
	Reason    string `json:"reason"`
	HiddenBy  string `json:"hidden_by,omitempty"`
}

type conflictWarningDTO struct {
	SessionID     string `json:"session_id"`
	WithSessionID string `json:"with_session_id"`
	Type          string `json:"type"`
	RoomID        string `json:"room_id,omitempty"`
	TrainerID     string `json:"trainer_id,omitempty"`
	ParticipantID string `json:"participant_id,omitempty"`
}

func toCalendarDTO(view application.CalendarView) calendarDTO {
	layout := view.Layout
	dto := calendarDTO{
		Kind:       view.Kind,
		Date:       view.Date.String(),
		From:       view.From.String(),
		To:         view.To.String(),
		GroupID:    view.GroupID,
		Hours:      layout.Axis.Hours(),
		Columns:    make([]columnDTO, 0, len(layout.Columns)),
		Placements: make([]placementDTO, 0, len(layout.Placements)),
		Masked:     make([]maskDTO, 0, len(layout.Masked)),
		Sessions:   toSessionDTOs(view.Sessions),
	}
	for _, column := range layout.Columns {
		dto.Columns = append(dto.Columns, columnDTO{Key: column.Key, Label: column.Label})
	}
	for _, p := range layout.Placements {
		dto.Placements = append(dto.Placements, placementDTO{SessionID: p.ItemID, Column: p.Column, Hour: p.Hour, RowSpan: p.RowSpan})
	}
	for _, m := range layout.Masked {
		dto.Masked = append(dto.Masked, maskDTO{SessionID: m.ItemID, Column: m.Column, Hour: m.Hour, Reason: string(m.Reason), HiddenBy: m.HiddenBy})
	}
	for _, c := range view.Conflicts {
		dto.Conflicts = append(dto.Conflicts, conflictWarningDTO{
			SessionID:     c.SessionID,
			WithSessionID: c.WithSessionID,
			Type:          c.Type,
			RoomID:        c.RoomID,
			TrainerID:     c.TrainerID,
			ParticipantID: c.ParticipantID,
		})
	}
	return dto
}
