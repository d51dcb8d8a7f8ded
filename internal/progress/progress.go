package progress

import (
	"context"
	"sync"
	"time"
)

// State is the latest reported progress for one task.
type State struct {
	TaskID    string
	Percent   int
	Message   string
	Current   int
	Total     int
	UpdatedAt time.Time
}

// Tracker is a thread-safe store of per-task progress. It is created once in
// main and injected into everything that reports or reads progress; there is
// deliberately no package-level instance.
type Tracker struct {
	mu    sync.Mutex
	tasks map[string]State
}

func NewTracker() *Tracker {
	return &Tracker{
		tasks: make(map[string]State),
	}
}

// Set records progress for a task, clamping percent to [0,100] and
// overwriting any previous state.
func (t *Tracker) Set(taskID string, percent int, message string, current, total int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.tasks[taskID] = State{
		TaskID:    taskID,
		Percent:   percent,
		Message:   message,
		Current:   current,
		Total:     total,
		UpdatedAt: time.Now(),
	}
}

// Get returns the latest state for a task. The second return value is false
// when the task is unknown (never set, cleared, or swept).
func (t *Tracker) Get(taskID string) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.tasks[taskID]
	return s, ok
}

// Clear removes a task's state.
func (t *Tracker) Clear(taskID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.tasks, taskID)
}

// CleanupOld removes entries that haven't been updated within maxAge and
// returns how many were removed.
func (t *Tracker) CleanupOld(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, s := range t.tasks {
		if s.UpdatedAt.Before(cutoff) {
			delete(t.tasks, id)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps stale entries every interval until ctx is cancelled.
func (t *Tracker) StartJanitor(ctx context.Context, ttl, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.CleanupOld(ttl)
			}
		}
	}()
}
