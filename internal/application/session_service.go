package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/example/studio-scheduler/internal/calendar"
	"github.com/example/studio-scheduler/internal/recurrence"
)

const (
	defaultHorizonMonths = 1
	defaultMaxDrafts     = 400
)

// presentAttendanceValue is the stored record for a newly added participant.
var presentAttendanceValue = json.RawMessage(`{"present":true,"reason":null}`)

// SessionServiceConfig tunes recurrence expansion.
type SessionServiceConfig struct {
	// DefaultHorizonMonths applies when a draft leaves HorizonMonths at zero.
	DefaultHorizonMonths int
	// MaxDrafts caps the number of sessions one recurring draft may create.
	MaxDrafts int
}

// SessionService builds sessions from drafts and manages stored sessions.
type SessionService struct {
	sessions SessionRepository
	rooms    RoomDirectory
	trainers TrainerDirectory
	groups   GroupDirectory
	validate *validator.Validate
	config   SessionServiceConfig
	logger   *slog.Logger
}

// NewSessionService wires dependencies for session operations.
func NewSessionService(sessions SessionRepository, rooms RoomDirectory, trainers TrainerDirectory, groups GroupDirectory, config SessionServiceConfig) *SessionService {
	return NewSessionServiceWithLogger(sessions, rooms, trainers, groups, config, nil)
}

// NewSessionServiceWithLogger wires dependencies with a specified logger.
func NewSessionServiceWithLogger(sessions SessionRepository, rooms RoomDirectory, trainers TrainerDirectory, groups GroupDirectory, config SessionServiceConfig, logger *slog.Logger) *SessionService {
	if config.DefaultHorizonMonths <= 0 {
		config.DefaultHorizonMonths = defaultHorizonMonths
	}
	if config.MaxDrafts <= 0 {
		config.MaxDrafts = defaultMaxDrafts
	}
	return &SessionService{
		sessions: sessions,
		rooms:    rooms,
		trainers: trainers,
		groups:   groups,
		validate: newDraftValidator(),
		config:   config,
		logger:   defaultLogger(logger),
	}
}

func (s *SessionService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SessionService", operation, attrs...)
}

// CreateSessions validates draft and stores one session, or one per matching
// date when recurrence weekdays are selected.
//
// Occurrences are submitted one at a time in date order. When the first
// submission fails the error is a *PersistenceError; when a later one fails it
// is a *PartialBatchFailure and the sessions already stored stay in place.
func (s *SessionService) CreateSessions(ctx context.Context, draft SessionDraft) (created []Session, err error) {
	if s == nil {
		return nil, fmt.Errorf("SessionService is nil")
	}
	if s.sessions == nil {
		return nil, fmt.Errorf("session repository not configured")
	}

	logger := s.loggerWith(ctx, "CreateSessions",
		"room_id", draft.RoomID,
		"date", draft.Date,
		"weekdays", len(draft.RecurrenceWeekdays),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create sessions",
				"error", err,
				"error_kind", ErrorKind(err),
				"created_count", len(created),
			)
			return
		}
		logger.With("created_count", len(created)).InfoContext(ctx, "sessions created")
	}()

	parsed, vErr := parseDraft(s.validate, draft)
	if vErr != nil {
		return nil, vErr
	}
	if err = s.resolveReferences(ctx, &parsed); err != nil {
		return nil, err
	}

	horizon := parsed.horizonMonths
	if horizon == 0 {
		horizon = s.config.DefaultHorizonMonths
	}
	rule := recurrence.Rule{Weekdays: parsed.weekdays, AnchorDate: parsed.date, HorizonMonths: horizon}

	if rule.IsRecurring() {
		switch count := recurrence.Count(rule); {
		case count == 0:
			return nil, newFieldError("recurrence_weekdays", msgNoOccurrences)
		case count > s.config.MaxDrafts:
			return nil, newFieldError("recurrence_weekdays", msgTooManyDrafts)
		}
	}

	drafts := recurrence.Expand(rule, recurrence.Template{
		Name:           parsed.name,
		RoomID:         parsed.roomID,
		TrainerID:      parsed.trainerID,
		Type:           string(parsed.sessionType),
		GroupID:        parsed.groupID,
		ParticipantIDs: parsed.participantIDs,
		StartTime:      parsed.start,
		EndTime:        parsed.end,
		Conducted:      parsed.conducted != nil && *parsed.conducted,
	})

	// Submissions ignore request cancellation.
	persistCtx := context.WithoutCancel(ctx)
	created = make([]Session, 0, len(drafts))
	for i, d := range drafts {
		session := sessionFromDraft(d, parsed.weekdays)
		stored, createErr := s.sessions.CreateSession(persistCtx, session)
		if createErr != nil {
			if i == 0 {
				return nil, &PersistenceError{Op: "create session", Err: createErr}
			}
			return created, &PartialBatchFailure{
				Created:     created,
				FailedIndex: i,
				FailedDate:  d.Date,
				Total:       len(drafts),
				Err:         createErr,
			}
		}
		created = append(created, stored)
	}
	return created, nil
}

// GetSession returns one stored session.
func (s *SessionService) GetSession(ctx context.Context, id string) (Session, error) {
	if s == nil || s.sessions == nil {
		return Session{}, fmt.Errorf("session repository not configured")
	}
	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return Session{}, mapSessionRepoError("get session", err)
	}
	return session, nil
}

// ListSessions returns sessions matching filter.
func (s *SessionService) ListSessions(ctx context.Context, filter SessionFilter) (sessions []Session, err error) {
	if s == nil || s.sessions == nil {
		return nil, fmt.Errorf("session repository not configured")
	}

	logger := s.loggerWith(ctx, "ListSessions", "group_id", filter.GroupID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list sessions", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(sessions)).DebugContext(ctx, "sessions listed")
	}()

	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, newFieldError("to", msgRangeReversed)
	}

	sessions, err = s.sessions.ListSessions(ctx, filter)
	if err != nil {
		if isNotFoundError(err) {
			return []Session{}, nil
		}
		return nil, mapSessionRepoError("list sessions", err)
	}
	return sessions, nil
}

// UpdateSession edits a single stored session. Recurrence weekdays are kept
// as metadata only; no siblings are created or changed. Attendance for
// removed participants is dropped and added participants start present. An
// omitted conducted flag keeps the stored value.
func (s *SessionService) UpdateSession(ctx context.Context, id string, draft SessionDraft) (session Session, err error) {
	if s == nil || s.sessions == nil {
		return Session{}, fmt.Errorf("session repository not configured")
	}

	logger := s.loggerWith(ctx, "UpdateSession", "session_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session updated")
	}()

	parsed, vErr := parseDraft(s.validate, draft)
	if vErr != nil {
		return Session{}, vErr
	}

	existing, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return Session{}, mapSessionRepoError("get session", err)
	}
	if err = s.resolveReferences(ctx, &parsed); err != nil {
		return Session{}, err
	}

	updated := existing
	updated.Name = parsed.name
	updated.RoomID = parsed.roomID
	updated.TrainerID = parsed.trainerID
	updated.Type = parsed.sessionType
	updated.GroupID = parsed.groupID
	updated.ParticipantIDs = parsed.participantIDs
	updated.Date = parsed.date
	updated.StartTime = parsed.start
	updated.EndTime = parsed.end
	updated.RecurrenceWeekdays = parsed.weekdays
	if parsed.conducted != nil {
		updated.Conducted = *parsed.conducted
	}
	updated.Attendance = reconcileAttendance(existing.Attendance, parsed.participantIDs)

	session, err = s.sessions.UpdateSession(context.WithoutCancel(ctx), updated)
	if err != nil {
		return Session{}, mapSessionRepoError("update session", err)
	}
	return session, nil
}

// DeleteSession removes one stored session.
func (s *SessionService) DeleteSession(ctx context.Context, id string) (err error) {
	if s == nil || s.sessions == nil {
		return fmt.Errorf("session repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteSession", "session_id", id)
	if err = s.sessions.DeleteSession(ctx, id); err != nil {
		err = mapSessionRepoError("delete session", err)
		logger.ErrorContext(ctx, "failed to delete session", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "session deleted")
	return nil
}

// resolveReferences checks the room, trainer and group exist and fills the
// participant list of a group session from its group when none was given.
func (s *SessionService) resolveReferences(ctx context.Context, parsed *parsedDraft) error {
	if s.rooms != nil {
		if _, err := s.rooms.GetRoom(ctx, parsed.roomID); err != nil {
			return mapDirectoryError("room", err)
		}
	}
	if s.trainers != nil {
		if _, err := s.trainers.GetTrainer(ctx, parsed.trainerID); err != nil {
			return mapDirectoryError("trainer", err)
		}
	}
	if parsed.groupID == "" || s.groups == nil {
		return nil
	}
	group, err := s.groups.GetGroup(ctx, parsed.groupID)
	if err != nil {
		return mapDirectoryError("group", err)
	}
	if parsed.sessionType == SessionTypeGroup && len(parsed.participantIDs) == 0 {
		parsed.participantIDs = uniqueStrings(group.MemberIDs)
	}
	return nil
}

func mapDirectoryError(kind string, err error) error {
	if isNotFoundError(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, kind)
	}
	return &PersistenceError{Op: "look up " + kind, Err: err}
}

func sessionFromDraft(d recurrence.Draft, weekdays []calendar.Weekday) Session {
	return Session{
		Name:               d.Name,
		RoomID:             d.RoomID,
		TrainerID:          d.TrainerID,
		Type:               SessionType(d.Type),
		GroupID:            d.GroupID,
		ParticipantIDs:     d.ParticipantIDs,
		Date:               d.Date,
		StartTime:          d.StartTime,
		EndTime:            d.EndTime,
		RecurrenceWeekdays: append([]calendar.Weekday(nil), weekdays...),
		Conducted:          d.Conducted,
	}
}

// reconcileAttendance keeps stored values for remaining participants, drops
// removed ones and adds a present record for newcomers.
func reconcileAttendance(existing map[string]json.RawMessage, participantIDs []string) map[string]json.RawMessage {
	result := make(map[string]json.RawMessage, len(participantIDs))
	for _, id := range participantIDs {
		if value, ok := existing[id]; ok {
			result[id] = append(json.RawMessage(nil), value...)
			continue
		}
		result[id] = append(json.RawMessage(nil), presentAttendanceValue...)
	}
	return result
}
