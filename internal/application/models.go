package application

import (
	"encoding/json"
	"time"

	"github.com/example/studio-scheduler/internal/attendance"
	"github.com/example/studio-scheduler/internal/calendar"
	"github.com/example/studio-scheduler/internal/grid"
)

// SessionType classifies a session.
type SessionType string

const (
	SessionTypeGroup      SessionType = "group"
	SessionTypeIndividual SessionType = "individual"
	SessionTypeSpecial    SessionType = "special"
)

// Valid reports whether t is one of the known session types.
func (t SessionType) Valid() bool {
	switch t {
	case SessionTypeGroup, SessionTypeIndividual, SessionTypeSpecial:
		return true
	}
	return false
}

// Session is one dated occurrence. Attendance holds the stored value per
// participant, which may still be a legacy status string.
type Session struct {
	ID                 string
	Name               string
	RoomID             string
	TrainerID          string
	Type               SessionType
	GroupID            string
	ParticipantIDs     []string
	Date               calendar.Date
	StartTime          calendar.TimeOfDay
	EndTime            calendar.TimeOfDay
	RecurrenceWeekdays []calendar.Weekday
	Attendance         map[string]json.RawMessage
	Conducted          bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AttendanceRecords returns the attendance map in structured form.
func (s Session) AttendanceRecords() map[string]attendance.Record {
	return attendance.Migrate(s.Attendance)
}

// SessionDraft is caller input for creating or editing sessions. Text fields
// are validated and parsed by the service.
type SessionDraft struct {
	Name               string   `field:"name" validate:"required,max=200"`
	RoomID             string   `field:"room_id" validate:"required,refid"`
	TrainerID          string   `field:"trainer_id" validate:"required,refid"`
	Type               string   `field:"type" validate:"required,sessiontype"`
	GroupID            string   `field:"group_id" validate:"omitempty,refid"`
	ParticipantIDs     []string `field:"participant_ids" validate:"dive,refid"`
	Date               string   `field:"date" validate:"required,datetime=2006-01-02"`
	StartTime          string   `field:"start_time" validate:"required,hhmm"`
	EndTime            string   `field:"end_time" validate:"required,hhmm"`
	RecurrenceWeekdays []string `field:"recurrence_weekdays" validate:"dive,weekday"`
	// HorizonMonths bounds recurrence expansion; zero uses the service default.
	HorizonMonths int `field:"horizon_months" validate:"omitempty,min=1,max=24"`
	// Conducted is optional; nil means false on create and unchanged on update.
	Conducted *bool `field:"conducted"`
}

// SessionFilter narrows session listings.
type SessionFilter struct {
	From    *calendar.Date
	To      *calendar.Date
	GroupID string
	RoomID  string
}

// Room is a room directory entry.
type Room struct {
	ID          string
	DisplayName string
}

// Trainer is an instructor directory entry.
type Trainer struct {
	ID          string
	DisplayName string
}

// Group is a participant group directory entry.
type Group struct {
	ID          string
	DisplayName string
	MemberIDs   []string
}

// Participant is a participant directory entry.
type Participant struct {
	ID         string
	NameParts  []string
	Ineligible bool
}

// ConflictWarning flags two overlapping sessions sharing a resource.
type ConflictWarning struct {
	SessionID     string
	WithSessionID string
	Type          string
	RoomID        string
	TrainerID     string
	ParticipantID string
}

// CalendarView is a composed day or week grid.
type CalendarView struct {
	Kind      string
	Date      calendar.Date
	From      calendar.Date
	To        calendar.Date
	GroupID   string
	Layout    grid.Layout
	Sessions  []Session
	Conflicts []ConflictWarning
}

// AgendaItem is a session with its room display name, empty when the room is
// not in the directory.
type AgendaItem struct {
	Session  Session
	RoomName string
}

// EditorView is the visible state of an attendance editor.
type EditorView struct {
	EditorID   string
	SessionID  string
	Query      string
	Entries    []attendance.Entry
	Selectable []string
	Dirty      []string
}

// MarkInput changes one participant. An empty Reason means "absent, reason
// unspecified".
type MarkInput struct {
	ParticipantID string
	Present       *bool
	Reason        *string
}

// BatchInput is a raw batch action request.
type BatchInput struct {
	Action string
	Reason string
}
