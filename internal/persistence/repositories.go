package persistence

import (
	"context"
	"encoding/json"

	"github.com/example/studio-scheduler/internal/calendar"
)

// SessionFilter narrows session queries. Zero values mean "no constraint".
type SessionFilter struct {
	From    *calendar.Date
	To      *calendar.Date
	GroupID string
	RoomID  string
}

// SessionRepository stores sessions and their participants.
type SessionRepository interface {
	// CreateSession assigns an id when empty, initializes attendance to present
	// for every listed participant that has no value yet, and returns the stored row.
	CreateSession(ctx context.Context, session Session) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	UpdateAttendance(ctx context.Context, id string, attendance map[string]json.RawMessage) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// RoomRepository exposes the room directory.
type RoomRepository interface {
	UpsertRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
}

// TrainerRepository exposes the instructor directory.
type TrainerRepository interface {
	UpsertTrainer(ctx context.Context, trainer Trainer) error
	GetTrainer(ctx context.Context, id string) (Trainer, error)
	ListTrainers(ctx context.Context) ([]Trainer, error)
}

// ParticipantRepository exposes the participant directory.
type ParticipantRepository interface {
	UpsertParticipant(ctx context.Context, participant Participant) error
	GetParticipants(ctx context.Context, ids []string) ([]Participant, error)
	ListParticipants(ctx context.Context) ([]Participant, error)
}

// GroupRepository exposes participant groups.
type GroupRepository interface {
	UpsertGroup(ctx context.Context, group Group) error
	GetGroup(ctx context.Context, id string) (Group, error)
	ListGroups(ctx context.Context) ([]Group, error)
}
