package api

import (
	"sync"

	"showplan/internal/model"
)

// ProgressCache stores the latest attempt seen for each in-flight run so
// pollers get an answer without waiting on the stream.
type ProgressCache struct {
	mu sync.Mutex
	// key: runId
	m map[string]model.Attempt
}

// NewProgressCache constructs a ProgressCache.
func NewProgressCache() *ProgressCache { return &ProgressCache{m: map[string]model.Attempt{}} }

// Record stores or updates the latest attempt for a run.
func (c *ProgressCache) Record(runID string, a model.Attempt) {
	if runID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[runID] = a
}

// Latest returns the most recent attempt for a run.
func (c *ProgressCache) Latest(runID string) (model.Attempt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.m[runID]
	return a, ok
}

// Forget drops a finished run from the cache.
func (c *ProgressCache) Forget(runID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, runID)
}
