package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/studio-scheduler/internal/application"
	"github.com/example/studio-scheduler/internal/attendance"
	"github.com/example/studio-scheduler/internal/calendar"
	"github.com/example/studio-scheduler/internal/grid"
)

var testNow = time.Date(2025, 10, 8, 9, 0, 0, 0, time.UTC)

type testServices struct {
	sessions   *fakeSessionService
	attendance *fakeAttendanceService
	calendar   *fakeCalendarService
}

func newTestServices() *testServices {
	session := application.Session{
		ID:             "s-1",
		Name:           "Аква",
		RoomID:         "room-1",
		TrainerID:      "trainer-1",
		Type:           application.SessionTypeGroup,
		ParticipantIDs: []string{"p-1"},
		Date:           calendar.NewDate(2025, 10, 6),
		StartTime:      calendar.NewTimeOfDay(10, 0),
		EndTime:        calendar.NewTimeOfDay(11, 0),
		Attendance:     map[string]json.RawMessage{"p-1": json.RawMessage(`"Отменено"`)},
	}
	return &testServices{
		sessions: &fakeSessionService{
			sessions: map[string]application.Session{"s-1": session},
			createFn: func(ctx context.Context, draft application.SessionDraft) ([]application.Session, error) {
				return []application.Session{session}, nil
			},
		},
		attendance: &fakeAttendanceService{
			view: application.EditorView{
				EditorID:  "e-1",
				SessionID: "s-1",
				Entries: []attendance.Entry{{
					ParticipantID: "p-1",
					DisplayName:   "Андреев Антон",
					Record:        attendance.AbsentRecord(attendance.ReasonExcused.Ptr()),
					Dirty:         true,
				}},
				Selectable: []string{"p-1"},
				Dirty:      []string{"p-1"},
			},
		},
		calendar: &fakeCalendarService{},
	}
}

func (s *testServices) router() http.Handler {
	return NewRouter(RouterConfig{
		Sessions:   NewSessionHandler(s.sessions, nil),
		Attendance: NewAttendanceHandler(s.attendance, nil),
		Calendar:   NewCalendarHandler(s.calendar, func() time.Time { return testNow }, nil),
		Health:     NewHealthHandler(fakePinger{}, nil),
	})
}

func serve(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(recorder.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
	return out
}

func TestSessionHandlers(t *testing.T) {
	t.Parallel()

	t.Run("create maps the request to a draft", func(t *testing.T) {
		t.Parallel()

		services := newTestServices()
		body := `{"name":"Аква","room_id":"room-1","trainer_id":"trainer-1","type":"group","date":"2025-10-06",
			"start_time":"10:00","end_time":"11:00","recurrence_weekdays":["Mon","Wed"],"horizon_months":2}`
		recorder := serve(t, services.router(), http.MethodPost, "/sessions", body)
		if recorder.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
		}

		draft := services.sessions.lastDraft
		if draft.Name != "Аква" || draft.HorizonMonths != 2 || len(draft.RecurrenceWeekdays) != 2 {
			t.Fatalf("unexpected draft %+v", draft)
		}

		resp := decodeBody[sessionsResponse](t, recorder)
		if len(resp.Sessions) != 1 || resp.Sessions[0].Date != "2025-10-06" || resp.Sessions[0].StartTime != "10:00" {
			t.Fatalf("unexpected response %+v", resp)
		}
		record := resp.Sessions[0].Attendance["p-1"]
		if record.Present || record.Reason == nil || *record.Reason != "Отменено" || *record.ReasonCode != "canceled" {
			t.Fatalf("expected migrated legacy record, got %+v", record)
		}
	})

	t.Run("create rejects malformed bodies", func(t *testing.T) {
		t.Parallel()

		recorder := serve(t, newTestServices().router(), http.MethodPost, "/sessions", "{")
		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", recorder.Code)
		}
		if resp := decodeBody[errorResponse](t, recorder); resp.Message != errBadRequestBody.Error() {
			t.Fatalf("unexpected message %q", resp.Message)
		}
	})

	errorCases := []struct {
		name     string
		err      error
		status   int
		code     string
		validate func(t *testing.T, resp errorResponse)
	}{
		{
			name:   "validation errors are localized",
			err:    &application.ValidationError{FieldErrors: map[string]string{"end_time": "end time must be after start time"}},
			status: http.StatusUnprocessableEntity,
			code:   "VALIDATION_FAILED",
			validate: func(t *testing.T, resp errorResponse) {
				if resp.Errors["end_time"] != "Время окончания должно быть позже времени начала." {
					t.Fatalf("unexpected field error %q", resp.Errors["end_time"])
				}
			},
		},
		{
			name: "partial batch lists created ids",
			err: &application.PartialBatchFailure{
				Created:     []application.Session{{ID: "s-1"}, {ID: "s-2"}},
				FailedIndex: 2,
				FailedDate:  calendar.NewDate(2025, 10, 13),
				Total:       10,
				Err:         errors.New("disk full"),
			},
			status: http.StatusBadGateway,
			code:   "PARTIAL_BATCH",
			validate: func(t *testing.T, resp errorResponse) {
				if len(resp.CreatedIDs) != 2 || resp.CreatedIDs[1] != "s-2" {
					t.Fatalf("unexpected created ids %v", resp.CreatedIDs)
				}
				if !strings.Contains(resp.Message, "2025-10-13") {
					t.Fatalf("expected failed date in message, got %q", resp.Message)
				}
			},
		},
		{
			name:   "persistence failures are bad gateway",
			err:    &application.PersistenceError{Op: "create session", Err: errors.New("locked")},
			status: http.StatusBadGateway,
			code:   "PERSISTENCE",
		},
		{
			name:   "missing references are not found",
			err:    errors.Join(application.ErrNotFound, errors.New("room")),
			status: http.StatusNotFound,
			code:   "NOT_FOUND",
		},
		{
			name:   "unexpected errors are internal",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
		},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			services := newTestServices()
			services.sessions.createFn = func(ctx context.Context, draft application.SessionDraft) ([]application.Session, error) {
				return nil, tc.err
			}
			recorder := serve(t, services.router(), http.MethodPost, "/sessions", `{"name":"x"}`)
			if recorder.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, recorder.Code, recorder.Body.String())
			}
			resp := decodeBody[errorResponse](t, recorder)
			if resp.ErrorCode != tc.code {
				t.Fatalf("expected error code %q, got %q", tc.code, resp.ErrorCode)
			}
			if resp.Message == "" {
				t.Fatalf("expected a message")
			}
			if tc.validate != nil {
				tc.validate(t, resp)
			}
		})
	}

	t.Run("list parses query filters", func(t *testing.T) {
		t.Parallel()

		services := newTestServices()
		recorder := serve(t, services.router(), http.MethodGet, "/sessions?from=2025-10-06&to=2025-10-12&group=g-1", "")
		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		filter := services.sessions.lastFilter
		if filter.From == nil || *filter.From != calendar.NewDate(2025, 10, 6) || filter.To == nil || filter.GroupID != "g-1" {
			t.Fatalf("unexpected filter %+v", filter)
		}

		recorder = serve(t, services.router(), http.MethodGet, "/sessions?to=12.10.2025", "")
		if recorder.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422 for malformed date, got %d", recorder.Code)
		}
		if resp := decodeBody[errorResponse](t, recorder); resp.Errors["to"] == "" {
			t.Fatalf("expected a to error, got %+v", resp)
		}
	})

	t.Run("single session routes", func(t *testing.T) {
		t.Parallel()

		services := newTestServices()
		router := services.router()

		if recorder := serve(t, router, http.MethodGet, "/sessions/s-1", ""); recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		if recorder := serve(t, router, http.MethodGet, "/sessions/missing", ""); recorder.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", recorder.Code)
		}

		recorder := serve(t, router, http.MethodPut, "/sessions/s-1", `{"name":"Аква+"}`)
		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		if resp := decodeBody[sessionResponse](t, recorder); resp.Session.Name != "Аква+" {
			t.Fatalf("unexpected update response %+v", resp)
		}

		if recorder := serve(t, router, http.MethodDelete, "/sessions/s-1", ""); recorder.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", recorder.Code)
		}
		if services.sessions.deletedID != "s-1" {
			t.Fatalf("expected s-1 to be deleted")
		}

		recorder = serve(t, router, http.MethodPatch, "/sessions/s-1", "")
		if recorder.Code != http.StatusMethodNotAllowed || recorder.Header().Get("Allow") != "GET, PUT, DELETE" {
			t.Fatalf("expected 405 with Allow header, got %d %q", recorder.Code, recorder.Header().Get("Allow"))
		}
		if recorder := serve(t, router, http.MethodGet, "/sessions/s-1/extra", ""); recorder.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for nested path, got %d", recorder.Code)
		}
	})
}

func TestAttendanceHandlers(t *testing.T) {
	t.Parallel()

	t.Run("open returns the editor location", func(t *testing.T) {
		t.Parallel()

		recorder := serve(t, newTestServices().router(), http.MethodPost, "/sessions/s-9/attendance-editor", "")
		if recorder.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", recorder.Code)
		}
		if got := recorder.Header().Get("Location"); got != "/attendance-editors/e-1" {
			t.Fatalf("unexpected location %q", got)
		}
		resp := decodeBody[editorDTO](t, recorder)
		if resp.SessionID != "s-9" || len(resp.Entries) != 1 {
			t.Fatalf("unexpected editor %+v", resp)
		}
		entry := resp.Entries[0]
		if entry.Present || entry.Reason == nil || *entry.Reason != "Уважительная" || !entry.Dirty {
			t.Fatalf("unexpected entry %+v", entry)
		}
	})

	t.Run("view forwards the query", func(t *testing.T) {
		t.Parallel()

		services := newTestServices()
		recorder := serve(t, services.router(), http.MethodGet, "/attendance-editors/e-1?q=%D0%B0%D0%BD", "")
		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		if services.attendance.lastQuery != "ан" {
			t.Fatalf("expected query to be forwarded, got %q", services.attendance.lastQuery)
		}
	})

	t.Run("mark and batch decode their bodies", func(t *testing.T) {
		t.Parallel()

		services := newTestServices()
		router := services.router()

		recorder := serve(t, router, http.MethodPost, "/attendance-editors/e-1/marks", `{"participant_id":" p-1 ","present":false,"reason":""}`)
		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		mark := services.attendance.lastMark
		if mark.ParticipantID != "p-1" || mark.Present == nil || *mark.Present || mark.Reason == nil || *mark.Reason != "" {
			t.Fatalf("unexpected mark input %+v", mark)
		}

		recorder = serve(t, router, http.MethodPost, "/attendance-editors/e-1/batch", `{"action":"mark_all_absent","reason":"excused"}`)
		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		if services.attendance.lastBatch.Action != "mark_all_absent" || services.attendance.lastBatch.Reason != "excused" {
			t.Fatalf("unexpected batch input %+v", services.attendance.lastBatch)
		}

		if recorder := serve(t, router, http.MethodPost, "/attendance-editors/e-1/marks", "nope"); recorder.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", recorder.Code)
		}
	})

	t.Run("undo reports whether anything changed", func(t *testing.T) {
		t.Parallel()

		services := newTestServices()
		services.attendance.changed = true
		recorder := serve(t, services.router(), http.MethodPost, "/attendance-editors/e-1/undo", "")
		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		if resp := decodeBody[undoResponse](t, recorder); !resp.Changed || resp.EditorID != "e-1" {
			t.Fatalf("unexpected undo response %+v", resp)
		}
	})

	t.Run("commit and close", func(t *testing.T) {
		t.Parallel()

		services := newTestServices()
		router := services.router()
		if recorder := serve(t, router, http.MethodPost, "/attendance-editors/e-1/commit", ""); recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		if recorder := serve(t, router, http.MethodDelete, "/attendance-editors/e-1", ""); recorder.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", recorder.Code)
		}
		if services.attendance.closed != "e-1" {
			t.Fatalf("expected editor to be closed")
		}
	})

	t.Run("unknown editors and actions", func(t *testing.T) {
		t.Parallel()

		router := newTestServices().router()

		recorder := serve(t, router, http.MethodGet, "/attendance-editors/e-404", "")
		if recorder.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", recorder.Code)
		}
		if resp := decodeBody[errorResponse](t, recorder); resp.ErrorCode != "EDITOR_NOT_FOUND" {
			t.Fatalf("unexpected error code %q", resp.ErrorCode)
		}

		if recorder := serve(t, router, http.MethodPost, "/attendance-editors/e-1/redo", ""); recorder.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for unknown action, got %d", recorder.Code)
		}
		if recorder := serve(t, router, http.MethodGet, "/attendance-editors/e-1/commit", ""); recorder.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", recorder.Code)
		}
	})
}

func TestCalendarHandlers(t *testing.T) {
	t.Parallel()

	t.Run("day view defaults to today", func(t *testing.T) {
		t.Parallel()

		services := newTestServices()
		services.calendar.view = application.CalendarView{
			Kind: application.CalendarKindDay,
			Date: calendar.NewDate(2025, 10, 8),
			Layout: grid.Layout{
				Axis:       grid.DefaultAxis,
				Columns:    []grid.Column{{Key: "room-1", Label: "Бассейн"}},
				Placements: []grid.Placement{{ItemID: "s-1", Column: "room-1", Hour: 10, RowSpan: 1}},
				Masked:     []grid.Mask{{ItemID: "s-2", Column: "room-1", Hour: 10, Reason: grid.MaskSlotTaken, HiddenBy: "s-1"}},
			},
		}

		recorder := serve(t, services.router(), http.MethodGet, "/calendar/day?group=g-1", "")
		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		if services.calendar.lastDate != calendar.NewDate(2025, 10, 8) || services.calendar.lastGroup != "g-1" {
			t.Fatalf("unexpected service call date=%s group=%q", services.calendar.lastDate, services.calendar.lastGroup)
		}

		resp := decodeBody[calendarDTO](t, recorder)
		if len(resp.Hours) != 14 || resp.Hours[0] != 8 || resp.Hours[13] != 21 {
			t.Fatalf("expected hours 8..21, got %v", resp.Hours)
		}
		if len(resp.Masked) != 1 || resp.Masked[0].Reason != "slot_taken" || resp.Masked[0].HiddenBy != "s-1" {
			t.Fatalf("unexpected masked cells %+v", resp.Masked)
		}
	})

	t.Run("week view parses the date", func(t *testing.T) {
		t.Parallel()

		services := newTestServices()
		recorder := serve(t, services.router(), http.MethodGet, "/calendar/week?date=2025-10-15", "")
		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		if services.calendar.lastKind != application.CalendarKindWeek || services.calendar.lastDate != calendar.NewDate(2025, 10, 15) {
			t.Fatalf("unexpected service call %s %s", services.calendar.lastKind, services.calendar.lastDate)
		}

		if recorder := serve(t, services.router(), http.MethodGet, "/calendar/week?date=15.10", ""); recorder.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", recorder.Code)
		}
	})

	t.Run("feed renders text/calendar", func(t *testing.T) {
		t.Parallel()

		services := newTestServices()
		services.calendar.items = []application.AgendaItem{{
			Session:  services.sessions.sessions["s-1"],
			RoomName: "Бассейн",
		}}

		recorder := serve(t, services.router(), http.MethodGet, "/calendar.ics?from=2025-10-01", "")
		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
		}
		if ct := recorder.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
			t.Fatalf("unexpected content type %q", ct)
		}
		body := recorder.Body.String()
		for _, want := range []string{"BEGIN:VCALENDAR", "UID:s-1@studio-scheduler", "SUMMARY:Аква", "LOCATION:Бассейн", "DTSTART:20251006T100000"} {
			if !strings.Contains(body, want) {
				t.Fatalf("expected %q in feed:\n%s", want, body)
			}
		}
		if services.calendar.lastFrom != calendar.NewDate(2025, 10, 1) || services.calendar.lastTo != calendar.NewDate(2025, 10, 31) {
			t.Fatalf("unexpected agenda range %s..%s", services.calendar.lastFrom, services.calendar.lastTo)
		}
	})
}

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	router := NewRouter(RouterConfig{Health: NewHealthHandler(fakePinger{}, nil)})
	if recorder := serve(t, router, http.MethodGet, "/healthz", ""); recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	router = NewRouter(RouterConfig{Health: NewHealthHandler(fakePinger{err: errors.New("closed")}, nil)})
	recorder := serve(t, router, http.MethodGet, "/healthz", "")
	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", recorder.Code)
	}
	if resp := decodeBody[healthResponse](t, recorder); resp.Status != "unavailable" {
		t.Fatalf("unexpected status %q", resp.Status)
	}
}
