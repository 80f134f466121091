package application

import (
	"testing"
	"time"
)

func TestEditorRegistryStoresAndExpires(t *testing.T) {
	current := time.Date(2025, 10, 6, 9, 0, 0, 0, time.UTC)
	registry := NewEditorRegistry(time.Minute, 4, func() time.Time { return current })

	registry.store(&attendanceEditor{id: "e-1", sessionID: "s-1"})
	editor, ok := registry.get("e-1")
	if !ok || editor.sessionID != "s-1" {
		t.Fatalf("expected registry hit for e-1")
	}

	current = current.Add(50 * time.Second)
	if _, ok := registry.get("e-1"); !ok {
		t.Fatalf("expected access to extend the lifetime")
	}

	current = current.Add(61 * time.Second)
	if _, ok := registry.get("e-1"); ok {
		t.Fatalf("expected editor to expire after ttl without access")
	}
	if registry.Len() != 0 {
		t.Fatalf("expected expired editor to be dropped, got %d", registry.Len())
	}
}

func TestEditorRegistryEvictsLeastRecentlyUsed(t *testing.T) {
	current := time.Date(2025, 10, 6, 9, 0, 0, 0, time.UTC)
	registry := NewEditorRegistry(time.Hour, 2, func() time.Time { return current })

	registry.store(&attendanceEditor{id: "e-1"})
	current = current.Add(time.Second)
	registry.store(&attendanceEditor{id: "e-2"})
	current = current.Add(time.Second)
	registry.get("e-1")
	current = current.Add(time.Second)
	registry.store(&attendanceEditor{id: "e-3"})

	if _, ok := registry.get("e-2"); ok {
		t.Fatalf("expected e-2 to be evicted")
	}
	for _, id := range []string{"e-1", "e-3"} {
		if _, ok := registry.get(id); !ok {
			t.Fatalf("expected %s to remain", id)
		}
	}
}

func TestEditorRegistryRemoveAndPrune(t *testing.T) {
	current := time.Date(2025, 10, 6, 9, 0, 0, 0, time.UTC)
	registry := NewEditorRegistry(time.Minute, 0, func() time.Time { return current })

	registry.store(&attendanceEditor{id: "e-1"})
	registry.store(&attendanceEditor{id: "e-2"})

	if !registry.remove("e-1") {
		t.Fatalf("expected remove to report true for a stored editor")
	}
	if registry.remove("e-1") {
		t.Fatalf("expected second remove to report false")
	}

	current = current.Add(2 * time.Minute)
	if pruned := registry.Prune(); pruned != 1 {
		t.Fatalf("expected one expired editor pruned, got %d", pruned)
	}
}

func TestEditorRegistryNilSafe(t *testing.T) {
	var registry *EditorRegistry
	if _, ok := registry.get("x"); ok {
		t.Fatalf("expected nil registry miss")
	}
	registry.store(&attendanceEditor{id: "x"})
	if registry.Len() != 0 || registry.remove("x") || registry.Prune() != 0 {
		t.Fatalf("expected nil registry to be inert")
	}
}
