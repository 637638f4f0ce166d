// Package scheduler provides delayed, cancelable one-shot tasks keyed by an
// owner-chosen identity (typically a Discord message ID). Scheduling a key
// that already has a pending task replaces it, which is how ephemeral panel
// lifetimes get extended on every edit.
package scheduler

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Handle identifies one scheduled task. Canceling a stale handle is a no-op
// even if the same key has since been rescheduled.
type Handle struct {
	key string
	id  uuid.UUID
}

// Key returns the key the task was scheduled under.
func (h Handle) Key() string { return h.key }

type entry struct {
	id    uuid.UUID
	timer *time.Timer
}

// Scheduler runs delayed tasks. The zero value is not usable; call New.
type Scheduler struct {
	mu    sync.Mutex
	tasks map[string]*entry
}

// New creates an empty Scheduler.
func New() *Scheduler {
	return &Scheduler{tasks: make(map[string]*entry)}
}

// Schedule runs fn after delay, replacing any pending task for the same key.
func (s *Scheduler) Schedule(key string, delay time.Duration, fn func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.tasks[key]; ok {
		old.timer.Stop()
	}

	id := uuid.New()
	e := &entry{id: id}
	e.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		cur, ok := s.tasks[key]
		if !ok || cur.id != id {
			// Replaced or canceled between firing and acquiring the lock.
			s.mu.Unlock()
			return
		}
		delete(s.tasks, key)
		s.mu.Unlock()
		fn()
	})
	s.tasks[key] = e

	return Handle{key: key, id: id}
}

// Cancel stops the task for h if it is still the pending one for its key.
// Returns true if a task was canceled.
func (s *Scheduler) Cancel(h Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.tasks[h.key]
	if !ok || cur.id != h.id {
		return false
	}
	cur.timer.Stop()
	delete(s.tasks, h.key)
	return true
}

// CancelKey stops whatever task is pending for key, if any.
func (s *Scheduler) CancelKey(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.tasks[key]
	if !ok {
		return false
	}
	cur.timer.Stop()
	delete(s.tasks, key)
	return true
}

// Stop cancels every pending task.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.tasks {
		e.timer.Stop()
		delete(s.tasks, key)
	}
}
