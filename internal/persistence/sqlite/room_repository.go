package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/studio-scheduler/internal/persistence"
)

// namedEntry is the shape shared by the room and trainer directories.
type namedEntry struct {
	ID          string
	DisplayName string
	UpdatedAt   time.Time
}

// namedTable reads and writes an (id, display_name, updated_at) table.
type namedTable struct {
	table  string
	helper *QueryHelper
	mapper *ErrorMapper
	now    func() time.Time
}

func (t namedTable) upsert(ctx context.Context, entry namedEntry) error {
	if entry.ID == "" || strings.TrimSpace(entry.DisplayName) == "" {
		return persistence.ErrConstraintViolation
	}
	query := `
		INSERT INTO ` + t.table + ` (id, display_name, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET display_name = excluded.display_name, updated_at = excluded.updated_at
	`
	_, err := t.helper.Exec(ctx, query, entry.ID, entry.DisplayName, t.now().UTC().Format(time.RFC3339))
	return t.mapper.MapError(err)
}

func (t namedTable) get(ctx context.Context, id string) (namedEntry, error) {
	if id == "" {
		return namedEntry{}, persistence.ErrNotFound
	}
	var (
		entry     namedEntry
		updatedAt string
	)
	err := t.helper.QueryRow(ctx,
		`SELECT id, display_name, updated_at FROM `+t.table+` WHERE id = ?`, id,
	).Scan(&entry.ID, &entry.DisplayName, &updatedAt)
	if err != nil {
		return namedEntry{}, t.mapper.MapError(err)
	}
	if entry.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return namedEntry{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return entry, nil
}

func (t namedTable) list(ctx context.Context) ([]namedEntry, error) {
	rows, err := t.helper.Query(ctx, `SELECT id, display_name, updated_at FROM `+t.table+` ORDER BY display_name, id`)
	if err != nil {
		return nil, t.mapper.MapError(err)
	}
	defer rows.Close()

	entries := []namedEntry{}
	for rows.Next() {
		var (
			entry     namedEntry
			updatedAt string
		)
		if err := rows.Scan(&entry.ID, &entry.DisplayName, &updatedAt); err != nil {
			return nil, t.mapper.MapError(err)
		}
		if entry.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, t.mapper.MapError(err)
	}
	return entries, nil
}

// RoomRepository implements persistence.RoomRepository using SQLite
type RoomRepository struct {
	table namedTable
}

// NewRoomRepository creates a new SQLite room repository
func NewRoomRepository(pool *ConnectionPool, now func() time.Time) *RoomRepository {
	return &RoomRepository{table: newNamedTable(pool, "rooms", now)}
}

// UpsertRoom inserts or renames a room.
func (r *RoomRepository) UpsertRoom(ctx context.Context, room persistence.Room) error {
	return r.table.upsert(ctx, namedEntry{ID: room.ID, DisplayName: room.DisplayName})
}

// GetRoom retrieves a room by ID
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	entry, err := r.table.get(ctx, id)
	if err != nil {
		return persistence.Room{}, err
	}
	return persistence.Room(entry), nil
}

// ListRooms returns all rooms ordered by display name.
func (r *RoomRepository) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	entries, err := r.table.list(ctx)
	if err != nil {
		return nil, err
	}
	rooms := make([]persistence.Room, len(entries))
	for i, entry := range entries {
		rooms[i] = persistence.Room(entry)
	}
	return rooms, nil
}

// TrainerRepository implements persistence.TrainerRepository using SQLite
type TrainerRepository struct {
	table namedTable
}

// NewTrainerRepository creates a new SQLite trainer repository
func NewTrainerRepository(pool *ConnectionPool, now func() time.Time) *TrainerRepository {
	return &TrainerRepository{table: newNamedTable(pool, "trainers", now)}
}

// UpsertTrainer inserts or renames a trainer.
func (r *TrainerRepository) UpsertTrainer(ctx context.Context, trainer persistence.Trainer) error {
	return r.table.upsert(ctx, namedEntry{ID: trainer.ID, DisplayName: trainer.DisplayName})
}

// GetTrainer retrieves a trainer by ID
func (r *TrainerRepository) GetTrainer(ctx context.Context, id string) (persistence.Trainer, error) {
	entry, err := r.table.get(ctx, id)
	if err != nil {
		return persistence.Trainer{}, err
	}
	return persistence.Trainer(entry), nil
}

// ListTrainers returns all trainers ordered by display name.
func (r *TrainerRepository) ListTrainers(ctx context.Context) ([]persistence.Trainer, error) {
	entries, err := r.table.list(ctx)
	if err != nil {
		return nil, err
	}
	trainers := make([]persistence.Trainer, len(entries))
	for i, entry := range entries {
		trainers[i] = persistence.Trainer(entry)
	}
	return trainers, nil
}

func newNamedTable(pool *ConnectionPool, table string, now func() time.Time) namedTable {
	if now == nil {
		now = time.Now
	}
	return namedTable{
		table:  table,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		now:    now,
	}
}
