package http

import (
	"context"

	"github.com/example/studio-scheduler/internal/application"
	"github.com/example/studio-scheduler/internal/calendar"
)

type fakeSessionService struct {
	createFn    func(ctx context.Context, draft application.SessionDraft) ([]application.Session, error)
	sessions    map[string]application.Session
	listErr     error
	lastFilter  application.SessionFilter
	lastDraft   application.SessionDraft
	deletedID   string
	updateError error
}

func (f *fakeSessionService) CreateSessions(ctx context.Context, draft application.SessionDraft) ([]application.Session, error) {
	f.lastDraft = draft
	return f.createFn(ctx, draft)
}

func (f *fakeSessionService) GetSession(ctx context.Context, id string) (application.Session, error) {
	session, ok := f.sessions[id]
	if !ok {
		return application.Session{}, application.ErrNotFound
	}
	return session, nil
}

func (f *fakeSessionService) ListSessions(ctx context.Context, filter application.SessionFilter) ([]application.Session, error) {
	f.lastFilter = filter
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]application.Session, 0, len(f.sessions))
	for _, session := range f.sessions {
		out = append(out, session)
	}
	return out, nil
}

func (f *fakeSessionService) UpdateSession(ctx context.Context, id string, draft application.SessionDraft) (application.Session, error) {
	f.lastDraft = draft
	if f.updateError != nil {
		return application.Session{}, f.updateError
	}
	session, ok := f.sessions[id]
	if !ok {
		return application.Session{}, application.ErrNotFound
	}
	session.Name = draft.Name
	return session, nil
}

func (f *fakeSessionService) DeleteSession(ctx context.Context, id string) error {
	if _, ok := f.sessions[id]; !ok {
		return application.ErrNotFound
	}
	f.deletedID = id
	return nil
}

type fakeAttendanceService struct {
	view      application.EditorView
	err       error
	lastQuery string
	lastMark  application.MarkInput
	lastBatch application.BatchInput
	changed   bool
	closed    string
}

func (f *fakeAttendanceService) OpenEditor(ctx context.Context, sessionID string) (application.EditorView, error) {
	if f.err != nil {
		return application.EditorView{}, f.err
	}
	view := f.view
	view.SessionID = sessionID
	return view, nil
}

func (f *fakeAttendanceService) lookup(editorID string) (application.EditorView, error) {
	if f.err != nil {
		return application.EditorView{}, f.err
	}
	if editorID != f.view.EditorID {
		return application.EditorView{}, application.ErrEditorNotFound
	}
	return f.view, nil
}

func (f *fakeAttendanceService) View(ctx context.Context, editorID, query string) (application.EditorView, error) {
	f.lastQuery = query
	return f.lookup(editorID)
}

func (f *fakeAttendanceService) Mark(ctx context.Context, editorID string, input application.MarkInput) (application.EditorView, error) {
	f.lastMark = input
	return f.lookup(editorID)
}

func (f *fakeAttendanceService) Apply(ctx context.Context, editorID string, input application.BatchInput) (application.EditorView, error) {
	f.lastBatch = input
	return f.lookup(editorID)
}

func (f *fakeAttendanceService) Undo(ctx context.Context, editorID string) (application.EditorView, bool, error) {
	view, err := f.lookup(editorID)
	return view, f.changed, err
}

func (f *fakeAttendanceService) Commit(ctx context.Context, editorID string) (application.EditorView, error) {
	return f.lookup(editorID)
}

func (f *fakeAttendanceService) Close(ctx context.Context, editorID string) error {
	if _, err := f.lookup(editorID); err != nil {
		return err
	}
	f.closed = editorID
	return nil
}

type fakeCalendarService struct {
	view      application.CalendarView
	items     []application.AgendaItem
	err       error
	lastDate  calendar.Date
	lastFrom  calendar.Date
	lastTo    calendar.Date
	lastGroup string
	lastKind  string
}

func (f *fakeCalendarService) DayView(ctx context.Context, date calendar.Date, groupID string) (application.CalendarView, error) {
	f.lastKind, f.lastDate, f.lastGroup = application.CalendarKindDay, date, groupID
	return f.view, f.err
}

func (f *fakeCalendarService) WeekView(ctx context.Context, date calendar.Date, groupID string) (application.CalendarView, error) {
	f.lastKind, f.lastDate, f.lastGroup = application.CalendarKindWeek, date, groupID
	return f.view, f.err
}

func (f *fakeCalendarService) Agenda(ctx context.Context, from, to calendar.Date, groupID string) ([]application.AgendaItem, error) {
	f.lastFrom, f.lastTo, f.lastGroup = from, to, groupID
	return f.items, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }
