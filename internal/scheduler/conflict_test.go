package scheduler

import (
	"testing"
	"time"

	"github.com/example/studio-scheduler/internal/calendar"
)

var day = calendar.NewDate(2025, time.October, 6)

func booking(id, room, trainer string, start, end int, participants ...string) Booking {
	return Booking{
		ID:           id,
		RoomID:       room,
		TrainerID:    trainer,
		Participants: participants,
		Date:         day,
		Start:        calendar.NewTimeOfDay(start, 0),
		End:          calendar.NewTimeOfDay(end, 0),
	}
}

func TestDetectConflicts(t *testing.T) {
	t.Parallel()

	t.Run("participant overlap produces conflict", func(t *testing.T) {
		t.Parallel()

		existing := []Booking{booking("a", "R1", "T1", 9, 10, "p1", "p2")}
		candidate := booking("b", "R2", "T2", 9, 11, "p2", "p3")

		conflicts := DetectConflicts(existing, candidate)
		if len(conflicts) != 1 {
			t.Fatalf("expected 1 conflict, got %+v", conflicts)
		}
		if conflicts[0].Type != ConflictTypeParticipant || conflicts[0].Participant != "p2" || conflicts[0].WithBookingID != "a" {
			t.Fatalf("unexpected conflict %+v", conflicts[0])
		}
	})

	t.Run("room and trainer overlap produce conflicts", func(t *testing.T) {
		t.Parallel()

		existing := []Booking{booking("a", "R1", "T1", 9, 11)}
		candidate := booking("b", "R1", "T1", 10, 12)

		conflicts := DetectConflicts(existing, candidate)
		if len(conflicts) != 2 {
			t.Fatalf("expected 2 conflicts, got %+v", conflicts)
		}
		if conflicts[0].Type != ConflictTypeRoom || conflicts[1].Type != ConflictTypeTrainer {
			t.Fatalf("unexpected conflict types %+v", conflicts)
		}
	})

	t.Run("non-overlapping bookings yield no conflicts", func(t *testing.T) {
		t.Parallel()

		existing := []Booking{
			booking("a", "R1", "T1", 9, 10),
			booking("self", "R1", "T1", 10, 11),
		}
		other := booking("c", "R1", "T1", 10, 11)
		other.Date = day.AddDays(1)
		existing = append(existing, other)

		if conflicts := DetectConflicts(existing, booking("self", "R1", "T1", 10, 11)); len(conflicts) != 0 {
			t.Fatalf("expected no conflicts, got %+v", conflicts)
		}
	})
}

func TestDetectAll(t *testing.T) {
	t.Parallel()

	bookings := []Booking{
		booking("late", "R1", "T2", 12, 13),
		booking("b", "R1", "T3", 9, 10),
		booking("a", "R1", "T1", 9, 11),
		booking("c", "R2", "T1", 10, 11),
	}
	conflicts := DetectAll(bookings)

	if len(conflicts) != 2 {
		t.Fatalf("expected 2 conflicts, got %+v", conflicts)
	}
	if conflicts[0].BookingID != "a" || conflicts[0].WithBookingID != "b" || conflicts[0].Type != ConflictTypeRoom {
		t.Fatalf("unexpected first conflict %+v", conflicts[0])
	}
	if conflicts[1].BookingID != "a" || conflicts[1].WithBookingID != "c" || conflicts[1].Type != ConflictTypeTrainer {
		t.Fatalf("unexpected second conflict %+v", conflicts[1])
	}
}
