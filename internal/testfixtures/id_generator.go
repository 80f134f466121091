package testfixtures

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// fixtureNamespace seeds the name-based UUIDs handed out by fixtures.
var fixtureNamespace = uuid.MustParse("6f1c1d8e-8a4b-4f0e-9c55-0b9a3c2d7e11")

// StableUUID derives a repeatable UUID from name. Directory references must be
// UUIDs, so fixtures use this instead of readable ids.
func StableUUID(name string) string {
	return uuid.NewSHA1(fixtureNamespace, []byte(name)).String()
}

// IDGenerator produces deterministic identifiers for tests.
type IDGenerator struct {
	mu      sync.Mutex
	prefix  string
	counter uint64
}

// NewIDGenerator constructs a generator that yields identifiers with the given
// prefix. When prefix is empty, "id" is used.
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// Next returns the next readable identifier, e.g. "session-3".
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("%s-%d", g.prefix, g.counter)
}

// NextUUID returns StableUUID of the next readable identifier.
func (g *IDGenerator) NextUUID() string {
	return StableUUID(g.Next())
}

// NextFunc exposes Next as a function suitable for dependency injection.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Reset rewinds the sequence to zero.
func (g *IDGenerator) Reset() {
	g.mu.Lock()
	g.counter = 0
	g.mu.Unlock()
}
