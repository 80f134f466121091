package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/example/studio-scheduler/internal/calendar"
	"github.com/example/studio-scheduler/internal/grid"
	"github.com/example/studio-scheduler/internal/scheduler"
)

const (
	CalendarKindDay  = "day"
	CalendarKindWeek = "week"
)

// maxAgendaDays bounds the range of an agenda export.
const maxAgendaDays = 366

// CalendarService composes stored sessions into day and week grids.
type CalendarService struct {
	sessions SessionRepository
	rooms    RoomDirectory
	axis     grid.HourAxis
	logger   *slog.Logger
}

// NewCalendarService wires dependencies for calendar views. An invalid axis
// falls back to grid.DefaultAxis.
func NewCalendarService(sessions SessionRepository, rooms RoomDirectory, axis grid.HourAxis) *CalendarService {
	return NewCalendarServiceWithLogger(sessions, rooms, axis, nil)
}

// NewCalendarServiceWithLogger wires dependencies with a specified logger.
func NewCalendarServiceWithLogger(sessions SessionRepository, rooms RoomDirectory, axis grid.HourAxis, logger *slog.Logger) *CalendarService {
	if !axis.Valid() {
		axis = grid.DefaultAxis
	}
	return &CalendarService{sessions: sessions, rooms: rooms, axis: axis, logger: defaultLogger(logger)}
}

func (s *CalendarService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CalendarService", operation, attrs...)
}

// DayView lays out one date with a column per room. Rooms come from the
// directory; rooms referenced only by sessions are appended under their id.
func (s *CalendarService) DayView(ctx context.Context, date calendar.Date, groupID string) (view CalendarView, err error) {
	logger := s.loggerWith(ctx, "DayView", "date", date.String(), "group_id", groupID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to compose day view", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "day view composed",
			"placed", len(view.Layout.Placements),
			"masked", len(view.Layout.Masked),
			"conflicts", len(view.Conflicts),
		)
	}()

	if !date.Valid() {
		return CalendarView{}, newFieldError("date", msgDateFormat)
	}
	sessions, err := s.load(ctx, date, date, groupID)
	if err != nil {
		return CalendarView{}, err
	}

	columns, err := s.roomColumns(ctx, sessions)
	if err != nil {
		return CalendarView{}, err
	}
	items := make([]grid.Item, len(sessions))
	for i, session := range sessions {
		items[i] = grid.Item{ID: session.ID, Column: session.RoomID, Start: session.StartTime, End: session.EndTime}
	}

	return CalendarView{
		Kind:      CalendarKindDay,
		Date:      date,
		From:      date,
		To:        date,
		GroupID:   groupID,
		Layout:    grid.Compose(s.axis, columns, items),
		Sessions:  sessions,
		Conflicts: detectConflicts(sessions),
	}, nil
}

// WeekView lays out the Monday-start week containing date with a column per day.
func (s *CalendarService) WeekView(ctx context.Context, date calendar.Date, groupID string) (view CalendarView, err error) {
	logger := s.loggerWith(ctx, "WeekView", "date", date.String(), "group_id", groupID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to compose week view", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "week view composed",
			"placed", len(view.Layout.Placements),
			"masked", len(view.Layout.Masked),
		)
	}()

	if !date.Valid() {
		return CalendarView{}, newFieldError("date", msgDateFormat)
	}
	from := date.StartOfWeek()
	to := from.AddDays(6)
	sessions, err := s.load(ctx, from, to, groupID)
	if err != nil {
		return CalendarView{}, err
	}

	items := make([]grid.Item, len(sessions))
	for i, session := range sessions {
		items[i] = grid.Item{ID: session.ID, Column: session.Date.String(), Start: session.StartTime, End: session.EndTime}
	}

	return CalendarView{
		Kind:      CalendarKindWeek,
		Date:      date,
		From:      from,
		To:        to,
		GroupID:   groupID,
		Layout:    grid.Compose(s.axis, grid.WeekColumns(date), items),
		Sessions:  sessions,
		Conflicts: detectConflicts(sessions),
	}, nil
}

// Agenda lists sessions in [from, to] with room display names resolved, for
// feed exports.
func (s *CalendarService) Agenda(ctx context.Context, from, to calendar.Date, groupID string) (items []AgendaItem, err error) {
	logger := s.loggerWith(ctx, "Agenda", "from", from.String(), "to", to.String(), "group_id", groupID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build agenda", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "agenda built", "result_count", len(items))
	}()

	vErr := &ValidationError{}
	if !from.Valid() {
		vErr.add("from", msgDateFormat)
	}
	if !to.Valid() {
		vErr.add("to", msgDateFormat)
	}
	if vErr.HasErrors() {
		return nil, vErr
	}
	switch {
	case to.Before(from):
		return nil, newFieldError("to", msgRangeReversed)
	case to.After(from.AddDays(maxAgendaDays)):
		return nil, newFieldError("to", msgOutOfRange)
	}

	sessions, err := s.load(ctx, from, to, groupID)
	if err != nil {
		return nil, err
	}
	labels := map[string]string{}
	if s.rooms != nil && len(sessions) > 0 {
		rooms, err := s.rooms.ListRooms(ctx)
		if err != nil {
			return nil, &PersistenceError{Op: "list rooms", Err: err}
		}
		for _, room := range rooms {
			labels[room.ID] = room.DisplayName
		}
	}

	items = make([]AgendaItem, 0, len(sessions))
	for _, session := range sessions {
		items = append(items, AgendaItem{Session: session, RoomName: labels[session.RoomID]})
	}
	return items, nil
}

// load returns sessions in [from, to] in store order, which is the order the
// compositor uses to pick slot winners.
func (s *CalendarService) load(ctx context.Context, from, to calendar.Date, groupID string) ([]Session, error) {
	if s.sessions == nil {
		return nil, fmt.Errorf("session repository not configured")
	}
	sessions, err := s.sessions.ListSessions(ctx, SessionFilter{From: &from, To: &to, GroupID: groupID})
	if err != nil {
		if isNotFoundError(err) {
			return []Session{}, nil
		}
		return nil, mapSessionRepoError("list sessions", err)
	}
	return sessions, nil
}

func (s *CalendarService) roomColumns(ctx context.Context, sessions []Session) ([]grid.Column, error) {
	var rooms []Room
	if s.rooms != nil {
		var err error
		if rooms, err = s.rooms.ListRooms(ctx); err != nil {
			return nil, &PersistenceError{Op: "list rooms", Err: err}
		}
	}

	labels := make(map[string]string, len(rooms))
	ids := make([]string, 0, len(rooms))
	for _, room := range rooms {
		labels[room.ID] = room.DisplayName
		ids = append(ids, room.ID)
	}

	var extra []string
	for _, session := range sessions {
		if _, ok := labels[session.RoomID]; ok {
			continue
		}
		labels[session.RoomID] = ""
		extra = append(extra, session.RoomID)
	}
	sort.Strings(extra)
	ids = append(ids, extra...)

	return grid.DayColumns(ids, func(id string) string { return labels[id] }), nil
}

func detectConflicts(sessions []Session) []ConflictWarning {
	bookings := make([]scheduler.Booking, len(sessions))
	for i, session := range sessions {
		bookings[i] = scheduler.Booking{
			ID:           session.ID,
			RoomID:       session.RoomID,
			TrainerID:    session.TrainerID,
			Participants: session.ParticipantIDs,
			Date:         session.Date,
			Start:        session.StartTime,
			End:          session.EndTime,
		}
	}

	conflicts := scheduler.DetectAll(bookings)
	if len(conflicts) == 0 {
		return nil
	}
	warnings := make([]ConflictWarning, 0, len(conflicts))
	for _, conflict := range conflicts {
		warnings = append(warnings, ConflictWarning{
			SessionID:     conflict.BookingID,
			WithSessionID: conflict.WithBookingID,
			Type:          string(conflict.Type),
			RoomID:        conflict.RoomID,
			TrainerID:     conflict.TrainerID,
			ParticipantID: conflict.Participant,
		})
	}
	return warnings
}
