package application

import (
	"context"
	"encoding/json"
)

// SessionRepository captures the persistence operations needed by the services.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	UpdateAttendance(ctx context.Context, id string, attendance map[string]json.RawMessage) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// RoomDirectory exposes room lookups.
type RoomDirectory interface {
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
}

// TrainerDirectory exposes instructor lookups.
type TrainerDirectory interface {
	GetTrainer(ctx context.Context, id string) (Trainer, error)
}

// GroupDirectory exposes participant group lookups.
type GroupDirectory interface {
	GetGroup(ctx context.Context, id string) (Group, error)
}

// ParticipantDirectory exposes participant lookups. Unknown ids are omitted
// from the result.
type ParticipantDirectory interface {
	GetParticipants(ctx context.Context, ids []string) ([]Participant, error)
}
