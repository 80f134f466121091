package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/studio-scheduler/internal/application"
	"github.com/example/studio-scheduler/internal/calendar"
	"github.com/example/studio-scheduler/internal/config"
	"github.com/example/studio-scheduler/internal/grid"
	httptransport "github.com/example/studio-scheduler/internal/http"
	"github.com/example/studio-scheduler/internal/logging"
	"github.com/example/studio-scheduler/internal/persistence"
	"github.com/example/studio-scheduler/internal/persistence/sqlite"
	"github.com/example/studio-scheduler/internal/persistence/sqlite/migration"
)

func main() {
	bootstrap := logging.New(os.Stdout, slog.LevelInfo)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		bootstrap.Error("failed to parse log level", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, level)

	storage, err := sqlite.Open(migration.DefaultSQLiteConfig(cfg.SQLitePath), sqlite.Options{
		Logger: logger,
		NewID:  uuid.NewString,
		Now:    time.Now,
	})
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(ctx); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           newHandler(storage, cfg, time.Now, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("scheduler API listening",
		"addr", server.Addr,
		"sqlite_path", cfg.SQLitePath,
		"auth_enabled", cfg.APITokenHash != "",
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// newHandler wires services and transport over storage.
func newHandler(storage *sqlite.Storage, cfg config.Config, now func() time.Time, logger *slog.Logger) http.Handler {
	sessions := newSessionRepositoryAdapter(storage)
	rooms := newRoomDirectoryAdapter(storage)

	sessionService := application.NewSessionServiceWithLogger(
		sessions,
		rooms,
		newTrainerDirectoryAdapter(storage),
		newGroupDirectoryAdapter(storage),
		application.SessionServiceConfig{
			DefaultHorizonMonths: cfg.DefaultHorizonMonths,
			MaxDrafts:            cfg.MaxRecurrenceDrafts,
		},
		logger,
	)
	registry := application.NewEditorRegistry(cfg.EditorTTL, cfg.EditorCapacity, now)
	attendanceService := application.NewAttendanceServiceWithLogger(sessions, newParticipantDirectoryAdapter(storage), registry, nil, logger)
	calendarService := application.NewCalendarServiceWithLogger(
		sessions,
		rooms,
		grid.HourAxis{Start: cfg.GridStartHour, End: cfg.GridEndHour},
		logger,
	)

	return httptransport.NewRouter(httptransport.RouterConfig{
		Sessions:   httptransport.NewSessionHandler(sessionService, logger),
		Attendance: httptransport.NewAttendanceHandler(attendanceService, logger),
		Calendar:   httptransport.NewCalendarHandler(calendarService, now, logger),
		Health:     httptransport.NewHealthHandler(storage, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.RequireToken(cfg.APITokenHash, logger),
		},
	})
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) UpdateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.UpdateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) UpdateAttendance(ctx context.Context, id string, attendance map[string]json.RawMessage) (application.Session, error) {
	stored, err := a.repo.UpdateAttendance(ctx, id, attendance)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, id string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) ListSessions(ctx context.Context, filter application.SessionFilter) ([]application.Session, error) {
	models, err := a.repo.ListSessions(ctx, persistence.SessionFilter{
		From:    filter.From,
		To:      filter.To,
		GroupID: filter.GroupID,
		RoomID:  filter.RoomID,
	})
	if err != nil {
		return nil, err
	}
	sessions := make([]application.Session, 0, len(models))
	for _, model := range models {
		sessions = append(sessions, toApplicationSession(model))
	}
	return sessions, nil
}

func (a *sessionRepositoryAdapter) DeleteSession(ctx context.Context, id string) error {
	return a.repo.DeleteSession(ctx, id)
}

type roomDirectoryAdapter struct {
	repo persistence.RoomRepository
}

func newRoomDirectoryAdapter(repo persistence.RoomRepository) *roomDirectoryAdapter {
	return &roomDirectoryAdapter{repo: repo}
}

func (a *roomDirectoryAdapter) GetRoom(ctx context.Context, id string) (application.Room, error) {
	stored, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return application.Room{}, err
	}
	return application.Room{ID: stored.ID, DisplayName: stored.DisplayName}, nil
}

func (a *roomDirectoryAdapter) ListRooms(ctx context.Context) ([]application.Room, error) {
	models, err := a.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	rooms := make([]application.Room, 0, len(models))
	for _, model := range models {
		rooms = append(rooms, application.Room{ID: model.ID, DisplayName: model.DisplayName})
	}
	return rooms, nil
}

type trainerDirectoryAdapter struct {
	repo persistence.TrainerRepository
}

func newTrainerDirectoryAdapter(repo persistence.TrainerRepository) *trainerDirectoryAdapter {
	return &trainerDirectoryAdapter{repo: repo}
}

func (a *trainerDirectoryAdapter) GetTrainer(ctx context.Context, id string) (application.Trainer, error) {
	stored, err := a.repo.GetTrainer(ctx, id)
	if err != nil {
		return application.Trainer{}, err
	}
	return application.Trainer{ID: stored.ID, DisplayName: stored.DisplayName}, nil
}

type groupDirectoryAdapter struct {
	repo persistence.GroupRepository
}

func newGroupDirectoryAdapter(repo persistence.GroupRepository) *groupDirectoryAdapter {
	return &groupDirectoryAdapter{repo: repo}
}

func (a *groupDirectoryAdapter) GetGroup(ctx context.Context, id string) (application.Group, error) {
	stored, err := a.repo.GetGroup(ctx, id)
	if err != nil {
		return application.Group{}, err
	}
	return application.Group{
		ID:          stored.ID,
		DisplayName: stored.DisplayName,
		MemberIDs:   append([]string(nil), stored.MemberIDs...),
	}, nil
}

type participantDirectoryAdapter struct {
	repo persistence.ParticipantRepository
}

func newParticipantDirectoryAdapter(repo persistence.ParticipantRepository) *participantDirectoryAdapter {
	return &participantDirectoryAdapter{repo: repo}
}

func (a *participantDirectoryAdapter) GetParticipants(ctx context.Context, ids []string) ([]application.Participant, error) {
	models, err := a.repo.GetParticipants(ctx, ids)
	if err != nil {
		return nil, err
	}
	participants := make([]application.Participant, 0, len(models))
	for _, model := range models {
		participants = append(participants, application.Participant{
			ID:         model.ID,
			NameParts:  append([]string(nil), model.NameParts...),
			Ineligible: model.Ineligible,
		})
	}
	return participants, nil
}

func toPersistenceSession(session application.Session) persistence.Session {
	var groupID *string
	if session.GroupID != "" {
		id := session.GroupID
		groupID = &id
	}
	weekdays := make([]string, 0, len(session.RecurrenceWeekdays))
	for _, day := range session.RecurrenceWeekdays {
		weekdays = append(weekdays, string(day))
	}
	return persistence.Session{
		ID:                 session.ID,
		Name:               session.Name,
		RoomID:             session.RoomID,
		TrainerID:          session.TrainerID,
		Type:               string(session.Type),
		GroupID:            groupID,
		ParticipantIDs:     append([]string(nil), session.ParticipantIDs...),
		Date:               session.Date,
		StartTime:          session.StartTime,
		EndTime:            session.EndTime,
		RecurrenceWeekdays: weekdays,
		Attendance:         session.Attendance,
		Conducted:          session.Conducted,
		CreatedAt:          session.CreatedAt,
		UpdatedAt:          session.UpdatedAt,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	var groupID string
	if model.GroupID != nil {
		groupID = *model.GroupID
	}
	weekdays := make([]calendar.Weekday, 0, len(model.RecurrenceWeekdays))
	for _, label := range model.RecurrenceWeekdays {
		// Stored labels were validated on the way in; skip anything else.
		if day, err := calendar.ParseWeekday(label); err == nil {
			weekdays = append(weekdays, day)
		}
	}
	return application.Session{
		ID:                 model.ID,
		Name:               model.Name,
		RoomID:             model.RoomID,
		TrainerID:          model.TrainerID,
		Type:               application.SessionType(model.Type),
		GroupID:            groupID,
		ParticipantIDs:     append([]string(nil), model.ParticipantIDs...),
		Date:               model.Date,
		StartTime:          model.StartTime,
		EndTime:            model.EndTime,
		RecurrenceWeekdays: weekdays,
		Attendance:         model.Attendance,
		Conducted:          model.Conducted,
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
	}
}
