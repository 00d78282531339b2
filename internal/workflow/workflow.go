package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"wallcraft/internal/wallpaper"

	"github.com/charmbracelet/log"
)

var (
	ErrNoSourceImage      = errors.New("no source image selected")
	ErrGenerationInFlight = errors.New("a generation is already in progress")
	ErrResultPending      = errors.New("a result is already available, reset before generating again")

	errMalformedResponse = errors.New("edit service returned no image")
)

// FallbackErrorMessage is shown when a failure carries no message of its own.
const FallbackErrorMessage = "Something went wrong while generating the image."

// Observer receives every state the workflow commits, in commit order, with
// the commit's version. Observers must not call back into the workflow.
type Observer func(state wallpaper.GenerationState, version uint64)

type Option func(*Workflow)

func WithObserver(o Observer) Option {
	return func(w *Workflow) {
		if o != nil {
			w.observers = append(w.observers, o)
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(w *Workflow) {
		if l != nil {
			w.logger = l
		}
	}
}

// Workflow owns one GenerationState and is the only thing allowed to change
// it. At most one edit call is outstanding at a time.
type Workflow struct {
	editor    wallpaper.Editor
	logger    *log.Logger
	observers []Observer

	mu    sync.Mutex
	state wallpaper.GenerationState
	// gen increments on every submit and reset; a settling call whose gen is
	// stale is dropped.
	gen uint64
	// version increments on every commit; 0 is the initial idle state.
	version uint64

	// notifyMu is taken before mu is released so observers see commits in order.
	notifyMu sync.Mutex
}

func New(editor wallpaper.Editor, opts ...Option) *Workflow {
	w := &Workflow{
		editor: editor,
		logger: log.With("component", "workflow"),
		state:  wallpaper.IdleState(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Workflow) State() wallpaper.GenerationState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// StateVersion returns the current state and the version of the commit that
// produced it.
func (w *Workflow) StateVersion() (wallpaper.GenerationState, uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state, w.version
}

// Observe calls fn once with the current state. Notifications for later
// commits are not delivered until fn returns.
func (w *Workflow) Observe(fn Observer) {
	w.mu.Lock()
	state, version := w.state, w.version
	w.notifyMu.Lock()
	w.mu.Unlock()
	defer w.notifyMu.Unlock()

	fn(state, version)
}

// Submit moves the workflow to generating before returning and runs the edit
// call in the background. The returned channel yields the settled state once.
func (w *Workflow) Submit(ctx context.Context, image *wallpaper.SourceImage, prompt string, ratio wallpaper.AspectRatio) (<-chan wallpaper.GenerationState, error) {
	if image == nil {
		return nil, ErrNoSourceImage
	}

	w.mu.Lock()
	switch w.state.Phase() {
	case wallpaper.PhaseGenerating:
		w.mu.Unlock()
		return nil, ErrGenerationInFlight
	case wallpaper.PhaseSucceeded:
		w.mu.Unlock()
		return nil, ErrResultPending
	}

	w.gen++
	gen := w.gen
	next := w.state
	next.IsGenerating = true
	next.Error = ""
	w.commitLocked(next)

	req := wallpaper.EditRequest{
		EncodedBytes: image.EncodedBytes,
		MediaType:    image.MediaType,
		Prompt:       prompt,
		AspectRatio:  ratio,
	}

	w.logger.Debug("generation submitted", "mediaType", req.MediaType, "aspectRatio", req.AspectRatio, "promptLen", len(prompt))

	done := make(chan wallpaper.GenerationState, 1)
	go func() {
		defer close(done)
		done <- w.run(ctx, gen, req)
	}()
	return done, nil
}

// Generate is Submit followed by waiting for the call to settle. A nil image
// is a no-op that reports ErrNoSourceImage.
func (w *Workflow) Generate(ctx context.Context, image *wallpaper.SourceImage, prompt string, ratio wallpaper.AspectRatio) (wallpaper.GenerationState, error) {
	done, err := w.Submit(ctx, image, prompt, ratio)
	if err != nil {
		return w.State(), err
	}
	return <-done, nil
}

// Reset returns to idle unconditionally. A call still in flight is allowed to
// finish but its outcome is discarded.
func (w *Workflow) Reset() wallpaper.GenerationState {
	w.mu.Lock()
	w.gen++
	idle := wallpaper.IdleState()
	w.commitLocked(idle)
	return idle
}

func (w *Workflow) run(ctx context.Context, gen uint64, req wallpaper.EditRequest) wallpaper.GenerationState {
	start := time.Now()
	res, err := w.call(ctx, req)
	if err == nil && (res == nil || strings.TrimSpace(res.ImageURL) == "") {
		err = errMalformedResponse
	}

	w.mu.Lock()
	if gen != w.gen {
		current := w.state
		w.mu.Unlock()
		w.logger.Debug("dropping stale generation result", "dur", time.Since(start).String(), "err", err)
		return current
	}

	var next wallpaper.GenerationState
	if err != nil {
		w.logger.Error("generation failed", "dur", time.Since(start).String(), "err", err)
		next = w.state
		next.IsGenerating = false
		next.Error = errorMessage(err)
	} else {
		w.logger.Info("generation succeeded", "dur", time.Since(start).String(), "mimeType", res.MimeType)
		next = wallpaper.GenerationState{
			ResultURI:       res.ImageURL,
			ResultMediaType: res.MimeType,
		}
	}
	w.commitLocked(next)
	return next
}

func (w *Workflow) call(ctx context.Context, req wallpaper.EditRequest) (res *wallpaper.EditResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("edit service panicked: %v", r)
		}
	}()
	return w.editor.EditImage(ctx, req)
}

// commitLocked stores next and notifies observers. It must be called with mu
// held and releases it.
func (w *Workflow) commitLocked(next wallpaper.GenerationState) {
	w.state = next
	w.version++
	version := w.version
	w.notifyMu.Lock()
	w.mu.Unlock()
	defer w.notifyMu.Unlock()

	for _, o := range w.observers {
		o(next, version)
	}
}

func errorMessage(err error) string {
	if err == nil {
		return FallbackErrorMessage
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return FallbackErrorMessage
}
