package session

import (
	"context"
	"sync"
	"time"

	"wallcraft/internal/presenter"
	"wallcraft/internal/wallpaper"
	"wallcraft/internal/workflow"
)

// Session is what one browser tab sees: an upload slot, the prompt and ratio
// selection, and the workflow that turns them into a wallpaper.
type Session struct {
	ID string
	wf *workflow.Workflow

	mu        sync.RWMutex
	image     *wallpaper.SourceImage
	selection wallpaper.Selection
	lastSeen  time.Time
}

type Snapshot struct {
	ID        string                    `json:"id"`
	Image     *wallpaper.SourceImage    `json:"image"`
	Selection wallpaper.Selection       `json:"selection"`
	State     wallpaper.GenerationState `json:"state"`
	// Version orders snapshots and pushed events; higher is newer.
	Version     uint64         `json:"version"`
	View        presenter.View `json:"view"`
	CanGenerate bool           `json:"canGenerate"`
}

func New(id string, wf *workflow.Workflow) *Session {
	return &Session{
		ID:        id,
		wf:        wf,
		selection: wallpaper.DefaultSelection(),
		lastSeen:  time.Now(),
	}
}

func (s *Session) SelectImage(img *wallpaper.SourceImage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = img
	s.lastSeen = time.Now()
}

func (s *Session) SetPrompt(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.SetPrompt(prompt)
	s.lastSeen = time.Now()
}

func (s *Session) ApplyPreset(label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
	return s.selection.ApplyPreset(label)
}

func (s *Session) SetAspectRatio(r wallpaper.AspectRatio) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
	return s.selection.SetAspectRatio(r)
}

// Submit starts a generation from the current inputs. The inputs are copied,
// so later edits to the selection do not affect the call in flight. The lock
// is held until the workflow has committed the generating state, so a Reset
// either sees the generation or prevents it.
func (s *Session) Submit(ctx context.Context) (<-chan wallpaper.GenerationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()

	return s.wf.Submit(ctx, s.image, s.selection.Prompt, s.selection.AspectRatio)
}

// Reset drops the upload and returns the workflow to idle.
func (s *Session) Reset() wallpaper.GenerationState {
	s.mu.Lock()
	s.image = nil
	s.lastSeen = time.Now()
	s.mu.Unlock()

	return s.wf.Reset()
}

func (s *Session) State() wallpaper.GenerationState {
	return s.wf.State()
}

// Observe hands fn the current state and version before any later
// transition is delivered to the workflow's observers.
func (s *Session) Observe(fn workflow.Observer) {
	s.wf.Observe(fn)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	img := s.image
	sel := s.selection
	s.mu.RUnlock()

	state, version := s.wf.StateVersion()
	return Snapshot{
		ID:          s.ID,
		Image:       img,
		Selection:   sel,
		State:       state,
		Version:     version,
		View:        presenter.Render(state),
		CanGenerate: presenter.CanGenerate(state, img != nil),
	}
}

func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}
