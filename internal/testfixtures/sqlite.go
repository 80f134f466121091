package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/studio-scheduler/internal/persistence/sqlite"
	"github.com/example/studio-scheduler/internal/persistence/sqlite/migration"
)

// SQLiteHarness wraps a migrated Storage on a temporary database file.
type SQLiteHarness struct {
	Storage *sqlite.Storage
	Clock   *Clock
	IDs     *IDGenerator

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens and migrates a storage in tb.TempDir. Session ids come
// from a deterministic UUID generator and timestamps from a fixture clock.
// Close is registered with tb.Cleanup.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "scheduler.db")
	clock := NewClock(ReferenceTime())
	ids := NewIDGenerator("session")

	storage, err := sqlite.Open(migration.TempFileTestSQLiteConfig(path), sqlite.Options{
		NewID: ids.NextUUID,
		Now:   clock.Now,
	})
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage: storage,
		Clock:   clock,
		IDs:     ids,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
