package session

import (
	"sync"
	"time"

	"wallcraft/internal/workflow"

	"github.com/google/uuid"
)

type WorkflowFactory func(sessionID string) *workflow.Workflow

type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	newWf    WorkflowFactory
}

func NewRegistry(newWf WorkflowFactory) *Registry {
	return &Registry{
		sessions: map[string]*Session{},
		newWf:    newWf,
	}
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// GetOrCreate returns the session for id, or a fresh one under a newly
// generated id when id is unknown. Client-chosen ids are never adopted.
func (r *Registry) GetOrCreate(id string) (*Session, bool) {
	if id != "" {
		if s, ok := r.Get(id); ok {
			return s, false
		}
	}

	newID := uuid.NewString()
	s := New(newID, r.newWf(newID))

	r.mu.Lock()
	r.sessions[newID] = s
	r.mu.Unlock()
	return s, true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep drops sessions untouched for maxIdle. Sessions with a generation in
// flight are kept. It returns the ids removed.
func (r *Registry) Sweep(maxIdle time.Duration, now time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	for id, s := range r.sessions {
		if s.State().IsGenerating {
			continue
		}
		if now.Sub(s.idleSince()) >= maxIdle {
			delete(r.sessions, id)
			removed = append(removed, id)
		}
	}
	return removed
}
