// Package presenter maps a GenerationState to what the result area shows.
package presenter

import "wallcraft/internal/wallpaper"

// DownloadFilename is used for every saved result, whatever its media type.
const DownloadFilename = "ai-wallpaper.png"

type Kind string

const (
	KindNone     Kind = "none"
	KindInFlight Kind = "inFlight"
	KindResult   Kind = "result"
)

type Action string

const (
	ActionSave  Action = "save"
	ActionReset Action = "reset"
)

type View struct {
	Kind             Kind     `json:"kind"`
	ResultURL        string   `json:"resultUrl,omitempty"`
	ResultMimeType   string   `json:"resultMimeType,omitempty"`
	DownloadFilename string   `json:"downloadFilename,omitempty"`
	Actions          []Action `json:"actions,omitempty"`
	// ShowForm is true when the input panel stays on screen (idle, errored).
	ShowForm bool `json:"showForm"`
}

func Render(s wallpaper.GenerationState) View {
	switch {
	case s.IsGenerating:
		return View{Kind: KindInFlight}
	case s.ResultURI != "":
		return View{
			Kind:             KindResult,
			ResultURL:        s.ResultURI,
			ResultMimeType:   s.ResultMediaType,
			DownloadFilename: DownloadFilename,
			Actions:          []Action{ActionSave, ActionReset},
		}
	default:
		return View{Kind: KindNone, ShowForm: true}
	}
}

// CanGenerate reports whether the generate trigger is enabled.
func CanGenerate(s wallpaper.GenerationState, hasImage bool) bool {
	return hasImage && !s.IsGenerating && s.Phase() != wallpaper.PhaseSucceeded
}
