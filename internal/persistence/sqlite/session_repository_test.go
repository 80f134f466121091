package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/example/studio-scheduler/internal/calendar"
	"github.com/example/studio-scheduler/internal/persistence"
)

func newTestSession() persistence.Session {
	group := "group-1"
	return persistence.Session{
		Name:               "Аква",
		RoomID:             "room-1",
		TrainerID:          "trainer-1",
		Type:               "group",
		GroupID:            &group,
		ParticipantIDs:     []string{"p-1", "p-2", "p-1"},
		Date:               calendar.NewDate(2025, 10, 6),
		StartTime:          calendar.NewTimeOfDay(10, 0),
		EndTime:            calendar.NewTimeOfDay(11, 0),
		RecurrenceWeekdays: []string{"Mon", "Wed"},
		Conducted:          true,
	}
}

func TestSessionRepository_CreateSession(t *testing.T) {
	storage := setupStorageTest(t)
	ctx := context.Background()

	created, err := storage.CreateSession(ctx, newTestSession())
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if created.ID != "session-1" {
		t.Fatalf("expected generated id session-1, got %q", created.ID)
	}
	if !created.Conducted {
		t.Fatalf("expected supplied conducted flag to be kept")
	}
	if !created.CreatedAt.Equal(testNow) {
		t.Fatalf("expected CreatedAt %v, got %v", testNow, created.CreatedAt)
	}

	stored, err := storage.GetSession(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got := stored.ParticipantIDs; len(got) != 2 || got[0] != "p-1" || got[1] != "p-2" {
		t.Fatalf("expected deduplicated participants [p-1 p-2], got %v", got)
	}
	if stored.GroupID == nil || *stored.GroupID != "group-1" {
		t.Fatalf("expected group-1, got %v", stored.GroupID)
	}
	if stored.Date != calendar.NewDate(2025, 10, 6) || stored.StartTime.String() != "10:00" || stored.EndTime.String() != "11:00" {
		t.Fatalf("unexpected schedule: %s %s-%s", stored.Date, stored.StartTime, stored.EndTime)
	}
	if len(stored.RecurrenceWeekdays) != 2 || stored.RecurrenceWeekdays[1] != "Wed" {
		t.Fatalf("unexpected weekdays: %v", stored.RecurrenceWeekdays)
	}
	for _, id := range []string{"p-1", "p-2"} {
		var record struct {
			Present bool    `json:"present"`
			Reason  *string `json:"reason"`
		}
		if err := json.Unmarshal(stored.Attendance[id], &record); err != nil {
			t.Fatalf("attendance for %s is not valid JSON: %v", id, err)
		}
		if !record.Present || record.Reason != nil {
			t.Fatalf("expected %s to start present, got %s", id, stored.Attendance[id])
		}
	}
}

func TestSessionRepository_CreateSessionKeepsProvidedAttendance(t *testing.T) {
	storage := setupStorageTest(t)
	ctx := context.Background()

	session := newTestSession()
	session.Conducted = false
	session.Attendance = map[string]json.RawMessage{"p-2": json.RawMessage(`"Не пришёл"`)}

	created, err := storage.CreateSession(ctx, session)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	stored, err := storage.GetSession(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got := string(stored.Attendance["p-2"]); got != `"Не пришёл"` {
		t.Fatalf("expected legacy value to be stored verbatim, got %s", got)
	}
	if stored.Conducted {
		t.Fatalf("expected conducted to default to false")
	}
}

func TestSessionRepository_CreateSessionRejectsInvalidRows(t *testing.T) {
	storage := setupStorageTest(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*persistence.Session)
	}{
		{"blank name", func(s *persistence.Session) { s.Name = "  " }},
		{"end before start", func(s *persistence.Session) { s.EndTime = calendar.NewTimeOfDay(9, 30) }},
		{"zero date", func(s *persistence.Session) { s.Date = calendar.Date{} }},
		{"unknown type", func(s *persistence.Session) { s.Type = "seminar" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := newTestSession()
			tt.mutate(&session)
			_, err := storage.CreateSession(ctx, session)
			if !errors.Is(err, persistence.ErrConstraintViolation) {
				t.Fatalf("expected ErrConstraintViolation, got %v", err)
			}
		})
	}
}

func TestSessionRepository_CreateSessionDuplicateID(t *testing.T) {
	storage := setupStorageTest(t)
	ctx := context.Background()

	session := newTestSession()
	session.ID = "fixed"
	if _, err := storage.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := storage.CreateSession(ctx, session); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestSessionRepository_UpdateSession(t *testing.T) {
	storage := setupStorageTest(t)
	ctx := context.Background()

	created, err := storage.CreateSession(ctx, newTestSession())
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	created.Name = "Аква плюс"
	created.ParticipantIDs = []string{"p-3", "p-1"}
	created.Attendance = map[string]json.RawMessage{
		"p-1": json.RawMessage(`{"present":false,"reason":"Уважительная"}`),
		"p-3": json.RawMessage(`{"present":true,"reason":null}`),
	}
	created.GroupID = nil
	created.Conducted = true

	updated, err := storage.UpdateSession(ctx, created)
	if err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}
	if updated.Name != "Аква плюс" || !updated.Conducted || updated.GroupID != nil {
		t.Fatalf("unexpected updated session: %+v", updated)
	}
	if got := updated.ParticipantIDs; len(got) != 2 || got[0] != "p-3" || got[1] != "p-1" {
		t.Fatalf("expected participant order [p-3 p-1], got %v", got)
	}
	if _, ok := updated.Attendance["p-2"]; ok {
		t.Fatalf("expected attendance for p-2 to be replaced")
	}

	missing := created
	missing.ID = "missing"
	if _, err := storage.UpdateSession(ctx, missing); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionRepository_UpdateAttendance(t *testing.T) {
	storage := setupStorageTest(t)
	ctx := context.Background()

	created, err := storage.CreateSession(ctx, newTestSession())
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	patch := map[string]json.RawMessage{
		"p-1": json.RawMessage(`{"present":false,"reason":"Отменено"}`),
		"p-2": json.RawMessage(`{"present":true,"reason":null}`),
	}
	updated, err := storage.UpdateAttendance(ctx, created.ID, patch)
	if err != nil {
		t.Fatalf("UpdateAttendance failed: %v", err)
	}
	if got := string(updated.Attendance["p-1"]); got != `{"present":false,"reason":"Отменено"}` {
		t.Fatalf("unexpected attendance for p-1: %s", got)
	}
	if updated.Name != created.Name || len(updated.ParticipantIDs) != 2 {
		t.Fatalf("expected other columns untouched, got %+v", updated)
	}

	if _, err := storage.UpdateAttendance(ctx, "missing", patch); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionRepository_ListSessions(t *testing.T) {
	storage := setupStorageTest(t)
	ctx := context.Background()

	dates := []calendar.Date{
		calendar.NewDate(2025, 10, 8),
		calendar.NewDate(2025, 10, 6),
		calendar.NewDate(2025, 10, 13),
	}
	for i, date := range dates {
		session := newTestSession()
		session.Date = date
		if i == 2 {
			session.GroupID = nil
			session.RoomID = "room-2"
		}
		if _, err := storage.CreateSession(ctx, session); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}

	from := calendar.NewDate(2025, 10, 6)
	to := calendar.NewDate(2025, 10, 12)

	tests := []struct {
		name   string
		filter persistence.SessionFilter
		want   []string
	}{
		{"all", persistence.SessionFilter{}, []string{"2025-10-06", "2025-10-08", "2025-10-13"}},
		{"range", persistence.SessionFilter{From: &from, To: &to}, []string{"2025-10-06", "2025-10-08"}},
		{"group", persistence.SessionFilter{GroupID: "group-1"}, []string{"2025-10-06", "2025-10-08"}},
		{"room", persistence.SessionFilter{RoomID: "room-2"}, []string{"2025-10-13"}},
		{"none", persistence.SessionFilter{GroupID: "other"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions, err := storage.ListSessions(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListSessions failed: %v", err)
			}
			if len(sessions) != len(tt.want) {
				t.Fatalf("expected %d sessions, got %d", len(tt.want), len(sessions))
			}
			for i, session := range sessions {
				if session.Date.String() != tt.want[i] {
					t.Fatalf("expected date %s at %d, got %s", tt.want[i], i, session.Date)
				}
				if len(session.ParticipantIDs) != 2 {
					t.Fatalf("expected participants to be loaded, got %v", session.ParticipantIDs)
				}
			}
		})
	}
}

func TestSessionRepository_DeleteSession(t *testing.T) {
	storage := setupStorageTest(t)
	ctx := context.Background()

	created, err := storage.CreateSession(ctx, newTestSession())
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := storage.DeleteSession(ctx, created.ID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := storage.GetSession(ctx, created.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := storage.DeleteSession(ctx, created.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
