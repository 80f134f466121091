package testfixtures

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/studio-scheduler/internal/application"
	"github.com/example/studio-scheduler/internal/calendar"
	"github.com/example/studio-scheduler/internal/persistence"
)

var (
	roomCounter        uint64
	trainerCounter     uint64
	participantCounter uint64
	groupCounter       uint64
	sessionCounter     uint64
)

// referenceTime is a Monday morning.
var referenceTime = time.Date(2025, time.October, 6, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDate returns the calendar date of ReferenceTime.
func ReferenceDate() calendar.Date {
	return calendar.DateOf(referenceTime)
}

// ----------------------------- Directory fixtures -----------------------------

// RoomFixture is a deterministic room directory entry.
type RoomFixture struct {
	ID          string
	DisplayName string
}

// NewRoomFixture returns a room with a stable UUID. An empty name is generated.
func NewRoomFixture(name string) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	if name == "" {
		name = fmt.Sprintf("Зал %d", idx)
	}
	return RoomFixture{ID: StableUUID(fmt.Sprintf("room-%03d", idx)), DisplayName: name}
}

func (f RoomFixture) Application() application.Room {
	return application.Room{ID: f.ID, DisplayName: f.DisplayName}
}

func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{ID: f.ID, DisplayName: f.DisplayName, UpdatedAt: referenceTime}
}

// TrainerFixture is a deterministic instructor directory entry.
type TrainerFixture struct {
	ID          string
	DisplayName string
}

// NewTrainerFixture returns a trainer with a stable UUID.
func NewTrainerFixture(name string) TrainerFixture {
	idx := atomic.AddUint64(&trainerCounter, 1)
	if name == "" {
		name = fmt.Sprintf("Тренер %d", idx)
	}
	return TrainerFixture{ID: StableUUID(fmt.Sprintf("trainer-%03d", idx)), DisplayName: name}
}

func (f TrainerFixture) Application() application.Trainer {
	return application.Trainer{ID: f.ID, DisplayName: f.DisplayName}
}

func (f TrainerFixture) Persistence() persistence.Trainer {
	return persistence.Trainer{ID: f.ID, DisplayName: f.DisplayName, UpdatedAt: referenceTime}
}

// ParticipantFixture is a deterministic participant directory entry.
type ParticipantFixture struct {
	ID         string
	NameParts  []string
	Ineligible bool
}

// NewParticipantFixture returns a participant named by parts, e.g.
// ("Иванова", "Анна").
func NewParticipantFixture(parts ...string) ParticipantFixture {
	idx := atomic.AddUint64(&participantCounter, 1)
	if len(parts) == 0 {
		parts = []string{fmt.Sprintf("Участник %d", idx)}
	}
	return ParticipantFixture{
		ID:        StableUUID(fmt.Sprintf("participant-%03d", idx)),
		NameParts: append([]string(nil), parts...),
	}
}

// AsIneligible marks the participant as not selectable by batch actions.
func (f ParticipantFixture) AsIneligible() ParticipantFixture {
	f.Ineligible = true
	return f
}

func (f ParticipantFixture) Application() application.Participant {
	return application.Participant{ID: f.ID, NameParts: append([]string(nil), f.NameParts...), Ineligible: f.Ineligible}
}

func (f ParticipantFixture) Persistence() persistence.Participant {
	return persistence.Participant{
		ID:         f.ID,
		NameParts:  append([]string(nil), f.NameParts...),
		Ineligible: f.Ineligible,
		UpdatedAt:  referenceTime,
	}
}

// GroupFixture is a deterministic participant group.
type GroupFixture struct {
	ID          string
	DisplayName string
	MemberIDs   []string
}

// NewGroupFixture returns a group whose members are the given participants in order.
func NewGroupFixture(name string, members ...ParticipantFixture) GroupFixture {
	idx := atomic.AddUint64(&groupCounter, 1)
	if name == "" {
		name = fmt.Sprintf("Группа %d", idx)
	}
	ids := make([]string, len(members))
	for i, member := range members {
		ids[i] = member.ID
	}
	return GroupFixture{ID: StableUUID(fmt.Sprintf("group-%03d", idx)), DisplayName: name, MemberIDs: ids}
}

func (f GroupFixture) Application() application.Group {
	return application.Group{ID: f.ID, DisplayName: f.DisplayName, MemberIDs: append([]string(nil), f.MemberIDs...)}
}

func (f GroupFixture) Persistence() persistence.Group {
	return persistence.Group{
		ID:          f.ID,
		DisplayName: f.DisplayName,
		MemberIDs:   append([]string(nil), f.MemberIDs...),
		UpdatedAt:   referenceTime,
	}
}

// ----------------------------- Session fixtures -----------------------------

// SessionFixture is a deterministic session that can be materialised for
// application or persistence tests.
type SessionFixture struct {
	ID                 string
	Name               string
	RoomID             string
	TrainerID          string
	Type               string
	GroupID            string
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

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns an individual one-hour session on ReferenceDate at
// 10:00 with optional overrides.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	fixture := SessionFixture{
		ID:        fmt.Sprintf("session-%03d", idx),
		Name:      fmt.Sprintf("Занятие %d", idx),
		RoomID:    StableUUID("room-default"),
		TrainerID: StableUUID("trainer-default"),
		Type:      string(application.SessionTypeIndividual),
		Date:      ReferenceDate(),
		StartTime: calendar.NewTimeOfDay(10, 0),
		EndTime:   calendar.NewTimeOfDay(11, 0),
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionID overrides the generated session ID.
func WithSessionID(id string) SessionOption {
	return func(f *SessionFixture) {
		f.ID = id
	}
}

// WithSessionName overrides the generated name.
func WithSessionName(name string) SessionOption {
	return func(f *SessionFixture) {
		f.Name = name
	}
}

// WithSessionRoom places the session in room.
func WithSessionRoom(room RoomFixture) SessionOption {
	return func(f *SessionFixture) {
		f.RoomID = room.ID
	}
}

// WithSessionTrainer assigns the trainer.
func WithSessionTrainer(trainer TrainerFixture) SessionOption {
	return func(f *SessionFixture) {
		f.TrainerID = trainer.ID
	}
}

// WithSessionGroup makes the session a group session with the group's members.
func WithSessionGroup(group GroupFixture) SessionOption {
	return func(f *SessionFixture) {
		f.Type = string(application.SessionTypeGroup)
		f.GroupID = group.ID
		f.ParticipantIDs = append([]string(nil), group.MemberIDs...)
	}
}

// WithSessionParticipants replaces the participant list.
func WithSessionParticipants(ids ...string) SessionOption {
	return func(f *SessionFixture) {
		f.ParticipantIDs = append([]string(nil), ids...)
	}
}

// WithSessionDate moves the session to date.
func WithSessionDate(date calendar.Date) SessionOption {
	return func(f *SessionFixture) {
		f.Date = date
	}
}

// WithSessionTimes sets start and end as hour/minute pairs.
func WithSessionTimes(startHour, startMinute, endHour, endMinute int) SessionOption {
	return func(f *SessionFixture) {
		f.StartTime = calendar.NewTimeOfDay(startHour, startMinute)
		f.EndTime = calendar.NewTimeOfDay(endHour, endMinute)
	}
}

// WithSessionWeekdays records recurrence weekday labels such as "Mon".
func WithSessionWeekdays(labels ...string) SessionOption {
	return func(f *SessionFixture) {
		f.RecurrenceWeekdays = append([]string(nil), labels...)
	}
}

// WithSessionAttendance stores raw as the attendance value of participantID.
// raw may be a structured record or a legacy status string in JSON form.
func WithSessionAttendance(participantID, raw string) SessionOption {
	return func(f *SessionFixture) {
		if f.Attendance == nil {
			f.Attendance = map[string]json.RawMessage{}
		}
		f.Attendance[participantID] = json.RawMessage(raw)
	}
}

// Application returns the fixture as an application.Session value.
func (f SessionFixture) Application() application.Session {
	weekdays := make([]calendar.Weekday, len(f.RecurrenceWeekdays))
	for i, label := range f.RecurrenceWeekdays {
		weekdays[i] = calendar.Weekday(label)
	}
	return application.Session{
		ID:                 f.ID,
		Name:               f.Name,
		RoomID:             f.RoomID,
		TrainerID:          f.TrainerID,
		Type:               application.SessionType(f.Type),
		GroupID:            f.GroupID,
		ParticipantIDs:     append([]string(nil), f.ParticipantIDs...),
		Date:               f.Date,
		StartTime:          f.StartTime,
		EndTime:            f.EndTime,
		RecurrenceWeekdays: weekdays,
		Attendance:         cloneAttendance(f.Attendance),
		Conducted:          f.Conducted,
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Session value.
func (f SessionFixture) Persistence() persistence.Session {
	var groupID *string
	if f.GroupID != "" {
		id := f.GroupID
		groupID = &id
	}
	return persistence.Session{
		ID:                 f.ID,
		Name:               f.Name,
		RoomID:             f.RoomID,
		TrainerID:          f.TrainerID,
		Type:               f.Type,
		GroupID:            groupID,
		ParticipantIDs:     append([]string(nil), f.ParticipantIDs...),
		Date:               f.Date,
		StartTime:          f.StartTime,
		EndTime:            f.EndTime,
		RecurrenceWeekdays: append([]string(nil), f.RecurrenceWeekdays...),
		Attendance:         cloneAttendance(f.Attendance),
		Conducted:          f.Conducted,
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
	}
}

// Draft returns the fixture as the caller input that would create it.
func (f SessionFixture) Draft() application.SessionDraft {
	conducted := f.Conducted
	return application.SessionDraft{
		Name:               f.Name,
		RoomID:             f.RoomID,
		TrainerID:          f.TrainerID,
		Type:               f.Type,
		GroupID:            f.GroupID,
		ParticipantIDs:     append([]string(nil), f.ParticipantIDs...),
		Date:               f.Date.String(),
		StartTime:          f.StartTime.String(),
		EndTime:            f.EndTime.String(),
		RecurrenceWeekdays: append([]string(nil), f.RecurrenceWeekdays...),
		Conducted:          &conducted,
	}
}

func cloneAttendance(values map[string]json.RawMessage) map[string]json.RawMessage {
	if values == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(values))
	for id, value := range values {
		out[id] = append(json.RawMessage(nil), value...)
	}
	return out
}
