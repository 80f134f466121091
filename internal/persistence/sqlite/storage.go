package sqlite

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/example/studio-scheduler/internal/persistence/sqlite/migration"
)

//go:embed schema/*.sql
var schemaFiles embed.FS

// SchemaFS exposes the embedded migration files.
func SchemaFS() fs.FS {
	sub, err := fs.Sub(schemaFiles, "schema")
	if err != nil {
		panic(fmt.Sprintf("embedded schema directory missing: %v", err))
	}
	return sub
}

// Options customizes Storage construction.
type Options struct {
	Logger *slog.Logger
	// NewID assigns ids to sessions created without one.
	NewID func() string
	Now   func() time.Time
}

// Storage bundles every SQLite-backed repository over one connection pool.
type Storage struct {
	*SessionRepository
	*RoomRepository
	*TrainerRepository
	*ParticipantRepository
	*GroupRepository

	pool   *ConnectionPool
	logger *slog.Logger
}

// Open connects to the database described by config. Call Migrate before use.
func Open(config migration.SQLiteConfig, opts Options) (*Storage, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Storage{
		SessionRepository:     NewSessionRepository(pool, opts.NewID, opts.Now),
		RoomRepository:        NewRoomRepository(pool, opts.Now),
		TrainerRepository:     NewTrainerRepository(pool, opts.Now),
		ParticipantRepository: NewParticipantRepository(pool, opts.Now),
		GroupRepository:       NewGroupRepository(pool, opts.Now),
		pool:                  pool,
		logger:                logger,
	}, nil
}

// Migrate applies pending embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	manager := migration.NewManager(
		migration.NewScanner(SchemaFS()),
		migration.NewSQLiteExecutor(s.pool.DB()),
		s.logger,
	)
	applied, err := manager.Run(ctx)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	s.logger.InfoContext(ctx, "database schema ready", slog.Int("applied", applied))
	return nil
}

// Ping reports whether the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}
