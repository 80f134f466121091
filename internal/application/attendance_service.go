package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/example/studio-scheduler/internal/attendance"
)

// AttendanceService opens attendance editors over stored sessions and routes
// editing operations to them.
type AttendanceService struct {
	sessions     SessionRepository
	participants ParticipantDirectory
	registry     *EditorRegistry
	newID        func() string
	logger       *slog.Logger
}

// NewAttendanceService wires dependencies for attendance editing.
func NewAttendanceService(sessions SessionRepository, participants ParticipantDirectory, registry *EditorRegistry, newID func() string) *AttendanceService {
	return NewAttendanceServiceWithLogger(sessions, participants, registry, newID, nil)
}

// NewAttendanceServiceWithLogger wires dependencies with a specified logger.
// A nil newID generates ULIDs; a nil registry uses the registry defaults.
func NewAttendanceServiceWithLogger(sessions SessionRepository, participants ParticipantDirectory, registry *EditorRegistry, newID func() string, logger *slog.Logger) *AttendanceService {
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	if registry == nil {
		registry = NewEditorRegistry(0, 0, nil)
	}
	return &AttendanceService{
		sessions:     sessions,
		participants: participants,
		registry:     registry,
		newID:        newID,
		logger:       defaultLogger(logger),
	}
}

func (s *AttendanceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AttendanceService", operation, attrs...)
}

// OpenEditor loads a session, migrates its stored attendance and registers a
// new editor over it.
func (s *AttendanceService) OpenEditor(ctx context.Context, sessionID string) (view EditorView, err error) {
	if s == nil || s.sessions == nil {
		return EditorView{}, fmt.Errorf("session repository not configured")
	}

	logger := s.loggerWith(ctx, "OpenEditor", "session_id", sessionID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to open attendance editor", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("editor_id", view.EditorID).InfoContext(ctx, "attendance editor opened")
	}()

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return EditorView{}, mapSessionRepoError("get session", err)
	}

	legacy := 0
	for _, value := range session.Attendance {
		if _, structured := attendance.MigrateValue(value); !structured {
			legacy++
		}
	}
	if legacy > 0 {
		logger.InfoContext(ctx, "migrated legacy attendance values", "legacy_count", legacy)
	}
	records := attendance.Migrate(session.Attendance)

	roster, err := s.roster(ctx, session)
	if err != nil {
		return EditorView{}, err
	}

	editor := &attendanceEditor{
		id:        s.newID(),
		sessionID: session.ID,
		ledger:    attendance.NewLedger(records, roster),
	}
	s.registry.store(editor)

	editor.mu.Lock()
	defer editor.mu.Unlock()
	return editorView(editor), nil
}

// View applies query as the editor's filter and returns the visible rows.
func (s *AttendanceService) View(ctx context.Context, editorID, query string) (EditorView, error) {
	return s.withEditor(ctx, "View", editorID, func(editor *attendanceEditor) error {
		editor.ledger.Filter(query)
		return nil
	})
}

// Mark changes one participant. Present=true wins over a reason; otherwise a
// reason marks the participant absent with it, and Present=false alone keeps
// the current reason.
func (s *AttendanceService) Mark(ctx context.Context, editorID string, input MarkInput) (EditorView, error) {
	if input.Present == nil && input.Reason == nil {
		return EditorView{}, newFieldError("present", msgNothingToChange)
	}
	var reason *attendance.Reason
	if input.Reason != nil && strings.TrimSpace(*input.Reason) != "" {
		parsed, err := attendance.ParseReason(*input.Reason)
		if err != nil {
			return EditorView{}, newFieldError("reason", msgUnknownReason)
		}
		reason = &parsed
	}

	return s.withEditor(ctx, "Mark", editorID, func(editor *attendanceEditor) error {
		if _, ok := editor.ledger.Entry(input.ParticipantID); !ok {
			return newFieldError("participant_id", msgNotOnSession)
		}
		var err error
		switch {
		case input.Present != nil && *input.Present:
			err = editor.ledger.SetPresent(input.ParticipantID, true)
		case input.Reason != nil:
			err = editor.ledger.SetReason(input.ParticipantID, reason)
		default:
			err = editor.ledger.SetPresent(input.ParticipantID, false)
		}
		return mapLedgerError(err)
	})
}

// Apply runs a batch action over the visible, eligible participants.
func (s *AttendanceService) Apply(ctx context.Context, editorID string, input BatchInput) (EditorView, error) {
	action := attendance.BatchAction{Kind: attendance.BatchKind(strings.TrimSpace(input.Action))}
	if !action.Valid() {
		return EditorView{}, newFieldError("action", msgUnknownAction)
	}
	if action.Kind == attendance.MarkAllAbsent && strings.TrimSpace(input.Reason) != "" {
		reason, err := attendance.ParseReason(input.Reason)
		if err != nil {
			return EditorView{}, newFieldError("reason", msgUnknownReason)
		}
		action.Reason = &reason
	}

	return s.withEditor(ctx, "Apply", editorID, func(editor *attendanceEditor) error {
		editor.ledger.Apply(action)
		return nil
	})
}

// Undo restores the last committed state. It reports whether anything changed.
func (s *AttendanceService) Undo(ctx context.Context, editorID string) (EditorView, bool, error) {
	var changed bool
	view, err := s.withEditor(ctx, "Undo", editorID, func(editor *attendanceEditor) error {
		changed = editor.ledger.Undo()
		return nil
	})
	return view, changed, err
}

// Commit writes the editor's records to the session store. On failure the
// editor keeps its pending changes.
func (s *AttendanceService) Commit(ctx context.Context, editorID string) (EditorView, error) {
	if s.sessions == nil {
		return EditorView{}, fmt.Errorf("session repository not configured")
	}
	return s.withEditor(ctx, "Commit", editorID, func(editor *attendanceEditor) error {
		committer := attendance.CommitterFunc(func(ctx context.Context, records map[string]attendance.Record) error {
			encoded, err := attendance.EncodeRecords(records)
			if err != nil {
				return err
			}
			if _, err := s.sessions.UpdateAttendance(ctx, editor.sessionID, encoded); err != nil {
				return mapSessionRepoError("commit attendance", err)
			}
			return nil
		})
		return editor.ledger.Commit(context.WithoutCancel(ctx), committer)
	})
}

// Close discards an editor and any uncommitted changes.
func (s *AttendanceService) Close(ctx context.Context, editorID string) error {
	if !s.registry.remove(editorID) {
		return ErrEditorNotFound
	}
	s.loggerWith(ctx, "Close", "editor_id", editorID).InfoContext(ctx, "attendance editor closed")
	return nil
}

// withEditor runs fn under the editor's lock and returns the resulting view.
func (s *AttendanceService) withEditor(ctx context.Context, operation, editorID string, fn func(*attendanceEditor) error) (EditorView, error) {
	editor, ok := s.registry.get(editorID)
	if !ok {
		return EditorView{}, ErrEditorNotFound
	}

	editor.mu.Lock()
	defer editor.mu.Unlock()

	if err := fn(editor); err != nil {
		s.loggerWith(ctx, operation, "editor_id", editorID, "session_id", editor.sessionID).
			ErrorContext(ctx, "attendance editor operation failed", "error", err, "error_kind", ErrorKind(err))
		return EditorView{}, err
	}
	return editorView(editor), nil
}

// roster resolves the session participants. Directory misses fall back to the
// bare id so every participant stays editable.
func (s *AttendanceService) roster(ctx context.Context, session Session) ([]attendance.Participant, error) {
	roster := make([]attendance.Participant, 0, len(session.ParticipantIDs))
	known := map[string]Participant{}
	if s.participants != nil && len(session.ParticipantIDs) > 0 {
		participants, err := s.participants.GetParticipants(ctx, session.ParticipantIDs)
		if err != nil {
			return nil, &PersistenceError{Op: "look up participants", Err: err}
		}
		for _, participant := range participants {
			known[participant.ID] = participant
		}
	}
	for _, id := range session.ParticipantIDs {
		participant, ok := known[id]
		if !ok {
			roster = append(roster, attendance.Participant{ID: id, NameParts: []string{id}})
			continue
		}
		roster = append(roster, attendance.Participant{
			ID:         participant.ID,
			NameParts:  participant.NameParts,
			Ineligible: participant.Ineligible,
		})
	}
	return roster, nil
}

func mapLedgerError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, attendance.ErrUnknownParticipant) {
		return newFieldError("participant_id", msgNotOnSession)
	}
	return err
}

func editorView(editor *attendanceEditor) EditorView {
	return EditorView{
		EditorID:   editor.id,
		SessionID:  editor.sessionID,
		Query:      editor.ledger.Query(),
		Entries:    editor.ledger.Visible(),
		Selectable: editor.ledger.SelectableIDs(),
		Dirty:      editor.ledger.Dirty(),
	}
}
