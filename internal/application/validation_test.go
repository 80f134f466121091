package application

import (
	"testing"

	"github.com/example/studio-scheduler/internal/calendar"
)

func TestParseDraftNormalizesInput(t *testing.T) {
	t.Parallel()

	draft := validDraft()
	draft.RoomID = " " + roomAID + " "
	draft.ParticipantIDs = []string{memberBID, " ", " " + memberAID + " ", "", memberBID}
	draft.RecurrenceWeekdays = []string{"sunday", "Ср", "Mon", "wed"}
	draft.HorizonMonths = 3

	parsed, vErr := parseDraft(newDraftValidator(), draft)
	if vErr != nil {
		t.Fatalf("expected draft to parse, got %v", vErr)
	}
	if parsed.name != "Аква" || parsed.roomID != roomAID {
		t.Fatalf("expected trimmed text fields, got %q %q", parsed.name, parsed.roomID)
	}
	if len(parsed.participantIDs) != 2 || parsed.participantIDs[0] != memberBID {
		t.Fatalf("expected deduplicated participants in input order, got %v", parsed.participantIDs)
	}
	want := []calendar.Weekday{calendar.Monday, calendar.Wednesday, calendar.Sunday}
	if len(parsed.weekdays) != len(want) {
		t.Fatalf("expected weekdays %v, got %v", want, parsed.weekdays)
	}
	for i := range want {
		if parsed.weekdays[i] != want[i] {
			t.Fatalf("expected weekdays %v, got %v", want, parsed.weekdays)
		}
	}
	if parsed.start != calendar.NewTimeOfDay(10, 0) || parsed.end != calendar.NewTimeOfDay(11, 0) || parsed.horizonMonths != 3 {
		t.Fatalf("unexpected parsed times or horizon: %+v", parsed)
	}
}

func TestParseDraftRejectsNonPositiveInterval(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		start string
		end   string
	}{
		{"end before start", "10:00", "09:30"},
		{"zero length", "10:00", "10:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			draft := validDraft()
			draft.StartTime, draft.EndTime = tt.start, tt.end
			_, vErr := parseDraft(newDraftValidator(), draft)
			if !vErr.HasErrors() || vErr.FieldErrors["end_time"] != msgEndBeforeStart {
				t.Fatalf("expected end_time error, got %v", vErr)
			}
		})
	}
}

func TestParseDraftCollectsEveryFieldError(t *testing.T) {
	t.Parallel()

	_, vErr := parseDraft(newDraftValidator(), SessionDraft{Type: "group", GroupID: "bad"})
	if vErr == nil {
		t.Fatalf("expected validation errors")
	}
	for _, field := range []string{"name", "room_id", "trainer_id", "group_id", "date", "start_time", "end_time"} {
		if _, ok := vErr.FieldErrors[field]; !ok {
			t.Fatalf("expected %s in %v", field, vErr.Fields())
		}
	}
	if _, ok := vErr.FieldErrors["type"]; ok {
		t.Fatalf("did not expect a type error for a valid type")
	}
}
