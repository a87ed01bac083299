package testutil

import (
	"fmt"
	"sync"
)

// SequentialRunIDGenerator returns run ids "<prefix>-0001", "<prefix>-0002", ...
//
// This makes archived runs byte-identical across test executions.
//
// Thread-safety: SequentialRunIDGenerator is safe for concurrent use via
// internal mutex.
type SequentialRunIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialRunIDGenerator creates a generator. An empty prefix uses "run".
func NewSequentialRunIDGenerator(prefix string) *SequentialRunIDGenerator {
	if prefix == "" {
		prefix = "run"
	}
	return &SequentialRunIDGenerator{prefix: prefix}
}

// Generate returns the next id.
//
// Implements store.RunIDGenerator.
func (g *SequentialRunIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Reset restarts the sequence at 1.
func (g *SequentialRunIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
