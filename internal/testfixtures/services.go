package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/studio-scheduler/internal/application"
	"github.com/example/studio-scheduler/internal/grid"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults. Editor ids are
// "editor-1", "editor-2" and so on.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("editor"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("editor")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// SessionServiceDeps captures dependencies for constructing a session service.
type SessionServiceDeps struct {
	Sessions application.SessionRepository
	Rooms    application.RoomDirectory
	Trainers application.TrainerDirectory
	Groups   application.GroupDirectory
	Config   application.SessionServiceConfig
	Logger   *slog.Logger
}

// NewSessionService builds a session service.
func (f *ServiceFactory) NewSessionService(deps SessionServiceDeps) *application.SessionService {
	return application.NewSessionServiceWithLogger(
		deps.Sessions,
		deps.Rooms,
		deps.Trainers,
		deps.Groups,
		deps.Config,
		deps.Logger,
	)
}

// AttendanceServiceDeps captures dependencies for constructing an attendance service.
type AttendanceServiceDeps struct {
	Sessions     application.SessionRepository
	Participants application.ParticipantDirectory
	// EditorTTL and MaxEditors tune the registry; zero uses its defaults.
	EditorTTL   time.Duration
	MaxEditors  int
	IDGenerator func() string
	Logger      *slog.Logger
}

// NewAttendanceService builds an attendance service whose editor registry
// expires entries against the factory clock.
func (f *ServiceFactory) NewAttendanceService(deps AttendanceServiceDeps) *application.AttendanceService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	registry := application.NewEditorRegistry(deps.EditorTTL, deps.MaxEditors, f.Clock.NowFunc())
	return application.NewAttendanceServiceWithLogger(
		deps.Sessions,
		deps.Participants,
		registry,
		idGen,
		deps.Logger,
	)
}

// CalendarServiceDeps captures dependencies for constructing a calendar service.
type CalendarServiceDeps struct {
	Sessions application.SessionRepository
	Rooms    application.RoomDirectory
	// Axis defaults to grid.DefaultAxis when zero.
	Axis   grid.HourAxis
	Logger *slog.Logger
}

// NewCalendarService builds a calendar service.
func (f *ServiceFactory) NewCalendarService(deps CalendarServiceDeps) *application.CalendarService {
	return application.NewCalendarServiceWithLogger(deps.Sessions, deps.Rooms, deps.Axis, deps.Logger)
}
