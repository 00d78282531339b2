package wallpaper

import (
	"errors"
	"fmt"
	"strings"
)

type AspectRatio string

const (
	Square    AspectRatio = "1:1"
	Landscape AspectRatio = "16:9"
	Portrait  AspectRatio = "9:16"
	Photo     AspectRatio = "4:3"
	Insta     AspectRatio = "3:4"
)

const DefaultAspectRatio = Portrait

var ErrUnknownAspectRatio = errors.New("unknown aspect ratio")

type AspectRatioOption struct {
	Label string      `json:"label"`
	Value AspectRatio `json:"value"`
}

var aspectRatios = []AspectRatioOption{
	{Label: "SQUARE", Value: Square},
	{Label: "LANDSCAPE", Value: Landscape},
	{Label: "PORTRAIT", Value: Portrait},
	{Label: "PHOTO", Value: Photo},
	{Label: "INSTA", Value: Insta},
}

// AspectRatios returns the five supported ratios in display order.
func AspectRatios() []AspectRatioOption {
	out := make([]AspectRatioOption, len(aspectRatios))
	copy(out, aspectRatios)
	return out
}

func (r AspectRatio) Valid() bool {
	for _, o := range aspectRatios {
		if o.Value == r {
			return true
		}
	}
	return false
}

func (r AspectRatio) String() string { return string(r) }

// ParseAspectRatio accepts either the ratio ("9:16") or its label ("portrait").
func ParseAspectRatio(s string) (AspectRatio, error) {
	s = strings.TrimSpace(s)
	for _, o := range aspectRatios {
		if string(o.Value) == s || strings.EqualFold(o.Label, s) {
			return o.Value, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAspectRatio, s)
}
