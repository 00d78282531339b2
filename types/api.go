package types

import "wallcraft/internal/wallpaper"

type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status    int   `json:"status"`
	TimeStamp int64 `json:"timestamp"`
	Sessions  int   `json:"sessions"`
}

type OptionsResponse struct {
	DefaultPrompt      string                        `json:"defaultPrompt"`
	DefaultAspectRatio wallpaper.AspectRatio         `json:"defaultAspectRatio"`
	Presets            []wallpaper.Preset            `json:"presets"`
	AspectRatios       []wallpaper.AspectRatioOption `json:"aspectRatios"`
	// Accept is a file-picker hint only; uploads are not filtered by it.
	Accept           string `json:"accept"`
	DownloadFilename string `json:"downloadFilename"`
}

type PromptRequest struct {
	Prompt string `json:"prompt"`
}

type PresetRequest struct {
	Label string `json:"label"`
}

type AspectRatioRequest struct {
	AspectRatio string `json:"aspectRatio"`
}
