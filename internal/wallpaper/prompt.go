package wallpaper

import (
	"errors"
	"fmt"
)

const DefaultPrompt = `clarify this photo without changing the position of the car in the picture and adjust it to fit the phone screen to make it a "wallpaper"`

var ErrUnknownPreset = errors.New("unknown preset")

type Preset struct {
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
}

var presets = []Preset{
	{Label: "Retro Vibe", Prompt: "Add a warm retro film aesthetic"},
	{Label: "High Contrast", Prompt: "Make it cinematic with high contrast and dark shadows"},
	{Label: "Clear & Sharp", Prompt: "Clarify the image and sharpen all details"},
	{Label: "Neon Glow", Prompt: "Add subtle neon reflections and glow"},
}

func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

func LookupPreset(label string) (Preset, bool) {
	for _, p := range presets {
		if p.Label == label {
			return p, true
		}
	}
	return Preset{}, false
}

// Selection holds the user's prompt and target ratio. It is a plain value;
// callers that share it are responsible for locking.
type Selection struct {
	Prompt      string      `json:"prompt"`
	AspectRatio AspectRatio `json:"aspectRatio"`
}

func DefaultSelection() Selection {
	return Selection{Prompt: DefaultPrompt, AspectRatio: DefaultAspectRatio}
}

func (s *Selection) SetPrompt(prompt string) {
	s.Prompt = prompt
}

// ApplyPreset replaces the prompt with the preset text. It never appends.
func (s *Selection) ApplyPreset(label string) error {
	p, ok := LookupPreset(label)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPreset, label)
	}
	s.Prompt = p.Prompt
	return nil
}

func (s *Selection) SetAspectRatio(r AspectRatio) error {
	if !r.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownAspectRatio, string(r))
	}
	s.AspectRatio = r
	return nil
}
