package application

import (
	"sync"
	"time"

	"github.com/example/studio-scheduler/internal/attendance"
)

// attendanceEditor is one open editing context. Its mutex serializes every
// operation on the ledger it owns.
type attendanceEditor struct {
	mu        sync.Mutex
	id        string
	sessionID string
	ledger    *attendance.Ledger
	expiresAt time.Time
}

// EditorRegistry keeps open attendance editors in memory. Entries expire
// after ttl without access; when full, the least recently used one is evicted.
type EditorRegistry struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]*attendanceEditor
}

// NewEditorRegistry creates a registry. Non-positive ttl and maxEntries fall
// back to 30 minutes and 256 editors.
func NewEditorRegistry(ttl time.Duration, maxEntries int, now func() time.Time) *EditorRegistry {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 256
	}
	if now == nil {
		now = time.Now
	}
	return &EditorRegistry{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]*attendanceEditor),
	}
}

// get returns a live editor and extends its lifetime.
func (r *EditorRegistry) get(id string) (*attendanceEditor, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	editor, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	now := r.now()
	if now.After(editor.expiresAt) {
		delete(r.entries, id)
		return nil, false
	}
	editor.expiresAt = now.Add(r.ttl)
	return editor, true
}

func (r *EditorRegistry) store(editor *attendanceEditor) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cleanupLocked()
	if len(r.entries) >= r.maxEntries {
		r.evictOneLocked()
	}
	editor.expiresAt = r.now().Add(r.ttl)
	r.entries[editor.id] = editor
}

func (r *EditorRegistry) remove(id string) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	return true
}

// Len returns the number of editors currently held, expired ones included
// until the next cleanup.
func (r *EditorRegistry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Prune drops expired editors and returns how many were removed.
func (r *EditorRegistry) Prune() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	before := len(r.entries)
	r.cleanupLocked()
	return before - len(r.entries)
}

func (r *EditorRegistry) cleanupLocked() {
	now := r.now()
	for id, editor := range r.entries {
		if now.After(editor.expiresAt) {
			delete(r.entries, id)
		}
	}
}

func (r *EditorRegistry) evictOneLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, editor := range r.entries {
		if oldestID == "" || editor.expiresAt.Before(oldest) {
			oldestID, oldest = id, editor.expiresAt
		}
	}
	if oldestID != "" {
		delete(r.entries, oldestID)
	}
}
