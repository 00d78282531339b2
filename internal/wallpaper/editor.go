package wallpaper

import "context"

// EditRequest carries everything the external edit capability needs.
type EditRequest struct {
	EncodedBytes string
	MediaType    string
	Prompt       string
	AspectRatio  AspectRatio
}

type EditResult struct {
	ImageURL string
	MimeType string
}

// Editor is the external image-edit capability. Implementations report
// failures as errors whose message is fit to show to the user.
type Editor interface {
	EditImage(ctx context.Context, req EditRequest) (*EditResult, error)
}

// EditorFunc adapts a plain function to Editor.
type EditorFunc func(ctx context.Context, req EditRequest) (*EditResult, error)

func (f EditorFunc) EditImage(ctx context.Context, req EditRequest) (*EditResult, error) {
	return f(ctx, req)
}
