// Package scheduler reports double bookings between sessions. It only flags
// overlaps for display; nothing here prevents a booking from being stored.
package scheduler

import (
	"sort"

	"github.com/example/studio-scheduler/internal/calendar"
)

// Booking is the slice of a session relevant to overlap checks.
type Booking struct {
	ID           string
	RoomID       string
	TrainerID    string
	Participants []string
	Date         calendar.Date
	Start        calendar.TimeOfDay
	End          calendar.TimeOfDay
}

// ConflictType describes the type of conflict detected between bookings.
type ConflictType string

const (
	// ConflictTypeRoom indicates a room is double-booked.
	ConflictTypeRoom ConflictType = "room"
	// ConflictTypeTrainer indicates a trainer is double-booked.
	ConflictTypeTrainer ConflictType = "trainer"
	// ConflictTypeParticipant indicates a participant is double-booked.
	ConflictTypeParticipant ConflictType = "participant"
)

// Conflict details an overlapping booking relation that callers can present to users.
type Conflict struct {
	BookingID     string
	WithBookingID string
	Type          ConflictType
	RoomID        string
	TrainerID     string
	Participant   string
}

func overlaps(a, b Booking) bool {
	return a.Date == b.Date && a.Start < b.End && b.Start < a.End
}

// DetectConflicts identifies conflicts for the candidate booking against existing ones.
// A booking never conflicts with itself (same ID).
func DetectConflicts(existing []Booking, candidate Booking) []Conflict {
	conflicts := make([]Conflict, 0)
	for _, other := range existing {
		if other.ID == candidate.ID || !overlaps(candidate, other) {
			continue
		}
		conflicts = append(conflicts, between(candidate, other)...)
	}
	return conflicts
}

// DetectAll returns every conflicting pair within bookings once, ordered by
// date, start time and ids.
func DetectAll(bookings []Booking) []Conflict {
	sorted := append([]Booking(nil), bookings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := sorted[i].Date.Compare(sorted[j].Date); c != 0 {
			return c < 0
		}
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].ID < sorted[j].ID
	})

	conflicts := make([]Conflict, 0)
	for i := range sorted {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j].Date != sorted[i].Date || sorted[j].Start >= sorted[i].End {
				break
			}
			if sorted[i].ID == sorted[j].ID {
				continue
			}
			conflicts = append(conflicts, between(sorted[i], sorted[j])...)
		}
	}
	return conflicts
}

func between(a, b Booking) []Conflict {
	var out []Conflict
	if a.RoomID != "" && a.RoomID == b.RoomID {
		out = append(out, Conflict{BookingID: a.ID, WithBookingID: b.ID, Type: ConflictTypeRoom, RoomID: a.RoomID})
	}
	if a.TrainerID != "" && a.TrainerID == b.TrainerID {
		out = append(out, Conflict{BookingID: a.ID, WithBookingID: b.ID, Type: ConflictTypeTrainer, TrainerID: a.TrainerID})
	}
	if len(a.Participants) > 0 && len(b.Participants) > 0 {
		lookup := make(map[string]struct{}, len(b.Participants))
		for _, p := range b.Participants {
			lookup[p] = struct{}{}
		}
		seen := make(map[string]struct{})
		for _, p := range a.Participants {
			if _, ok := lookup[p]; !ok {
				continue
			}
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, Conflict{BookingID: a.ID, WithBookingID: b.ID, Type: ConflictTypeParticipant, Participant: p})
		}
	}
	return out
}
