package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/tutormesh/tutormesh/core"
)

// StaticAI is a deterministic AI backend for tests, demos and offline runs.
// It echoes a templated answer and can be forced to fail or report unhealthy.
type StaticAI struct {
	mu         sync.Mutex
	fail       error
	unhealthy  bool
	confidence float64
	calls      int
}

// NewStaticAI creates a healthy static backend reporting 0.8 confidence.
func NewStaticAI() *StaticAI {
	return &StaticAI{confidence: 0.8}
}

// Name identifies the backend.
func (s *StaticAI) Name() string { return "static" }

// Query returns a canned explanation derived from the prompt.
func (s *StaticAI) Query(_ context.Context, _ string, prompt string) (QueryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail != nil {
		return QueryResult{}, s.fail
	}
	return QueryResult{
		Response:   fmt.Sprintf("Here is a step-by-step walkthrough: %s", prompt),
		Confidence: s.confidence,
	}, nil
}

// Healthy implements the optional health probe.
func (s *StaticAI) Healthy(context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.unhealthy
}

// SetFailure makes subsequent queries return err; nil restores success.
func (s *StaticAI) SetFailure(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

// SetUnhealthy toggles the health probe result.
func (s *StaticAI) SetUnhealthy(v bool) {
	s.mu.Lock()
	s.unhealthy = v
	s.mu.Unlock()
}

// Calls reports how many queries were issued.
func (s *StaticAI) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// StaticVideos returns a fixed result set per query.
type StaticVideos struct {
	mu   sync.Mutex
	fail error
}

// NewStaticVideos creates the static video searcher.
func NewStaticVideos() *StaticVideos { return &StaticVideos{} }

// Search returns two deterministic hits for any query.
func (s *StaticVideos) Search(_ context.Context, query, subject string) ([]core.VideoResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	return []core.VideoResult{
		{Title: fmt.Sprintf("%s explained", query), URL: "https://videos.example/" + subject + "/1", Source: "example"},
		{Title: fmt.Sprintf("Visualizing %s", query), URL: "https://videos.example/" + subject + "/2", Source: "example"},
	}, nil
}

// SetFailure makes subsequent searches return err; nil restores success.
func (s *StaticVideos) SetFailure(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

// MemoryFiles is a process-local FileStore.
type MemoryFiles struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemoryFiles creates an empty in-memory file store.
func NewMemoryFiles() *MemoryFiles {
	return &MemoryFiles{files: make(map[string][]byte)}
}

// Read returns the stored bytes for path.
func (m *MemoryFiles) Read(_ context.Context, path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	out := make([]byte, len(content))
	copy(out, content)
	return out, nil
}

// Write stores a copy of content under path.
func (m *MemoryFiles) Write(_ context.Context, path string, content []byte) error {
	stored := make([]byte, len(content))
	copy(stored, content)
	m.mu.Lock()
	m.files[path] = stored
	m.mu.Unlock()
	return nil
}

// CountingTracker counts tracked events by name.
type CountingTracker struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewCountingTracker creates an empty tracker.
func NewCountingTracker() *CountingTracker {
	return &CountingTracker{counts: make(map[string]int)}
}

// Track increments the counter for event.
func (c *CountingTracker) Track(_ context.Context, event string, _ map[string]string) {
	c.mu.Lock()
	c.counts[event]++
	c.mu.Unlock()
}

// Count returns how often event was tracked.
func (c *CountingTracker) Count(event string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[event]
}

// Static builds a fully static ServiceLayer suitable for tests and examples.
func Static() *Layer {
	return NewLayer()
}
