package persistence

import (
	"encoding/json"
	"time"

	"github.com/example/studio-scheduler/internal/calendar"
)

// Session is a scheduled occurrence as stored. Attendance keeps the raw JSON
// value per participant so legacy status strings survive until migrated.
type Session struct {
	ID                 string
	Name               string
	RoomID             string
	TrainerID          string
	Type               string
	GroupID            *string
	ParticipantIDs     []string
	Date               calendar.Date
	StartTime          calendar.TimeOfDay
	EndTime            calendar.TimeOfDay
	RecurrenceWeekdays []string
	Attendance         map[string]json.RawMessage
	Conducted          bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Room is a room directory entry.
type Room struct {
	ID          string
	DisplayName string
	UpdatedAt   time.Time
}

// Trainer is an instructor directory entry.
type Trainer struct {
	ID          string
	DisplayName string
	UpdatedAt   time.Time
}

// Participant is a participant directory entry.
type Participant struct {
	ID         string
	NameParts  []string
	Ineligible bool
	UpdatedAt  time.Time
}

// Group is a participant group with ordered membership.
type Group struct {
	ID          string
	DisplayName string
	MemberIDs   []string
	UpdatedAt   time.Time
}
