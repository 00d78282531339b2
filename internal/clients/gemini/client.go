package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"wallcraft/config"
	"wallcraft/internal/encoder"
	"wallcraft/internal/wallpaper"

	"github.com/charmbracelet/log"
	"google.golang.org/genai"
)

var (
	ErrNoImage      = errors.New("the model did not return an image")
	ErrEmptyPayload = errors.New("no image data to send")
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client edits images with a Gemini image model.
type Client struct {
	models contentGenerator
	model  string
	logger *log.Logger
}

func NewClient(ctx context.Context, cfg config.GeminiConfig) (*Client, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.ApiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating gemini client: %w", err)
	}
	return newClient(c.Models, cfg.Model), nil
}

func newClient(models contentGenerator, model string) *Client {
	return &Client{
		models: models,
		model:  model,
		logger: log.With("component", "gemini", "model", model),
	}
}

func (c *Client) EditImage(ctx context.Context, req wallpaper.EditRequest) (*wallpaper.EditResult, error) {
	data, err := base64.StdEncoding.DecodeString(req.EncodedBytes)
	if err != nil {
		return nil, fmt.Errorf("decode source image: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}

	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: req.MediaType, Data: data}},
		genai.NewPartFromText(req.Prompt),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
		ImageConfig:        &genai.ImageConfig{AspectRatio: string(req.AspectRatio)},
	}

	c.logger.Debug("edit request", "mimeType", req.MediaType, "bytes", len(data), "aspectRatio", req.AspectRatio)

	resp, err := c.models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return nil, err
	}
	return parseResponse(resp)
}

// parseResponse takes the first inline image of the first candidate.
func parseResponse(resp *genai.GenerateContentResponse) (*wallpaper.EditResult, error) {
	if resp == nil {
		return nil, ErrNoImage
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		if fb.BlockReasonMessage != "" {
			return nil, fmt.Errorf("request blocked: %s", fb.BlockReasonMessage)
		}
		return nil, fmt.Errorf("request blocked: %s", fb.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return nil, ErrNoImage
	}

	cand := resp.Candidates[0]
	var text strings.Builder
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mimeType := part.InlineData.MIMEType
				if mimeType == "" {
					mimeType = "image/png"
				}
				return &wallpaper.EditResult{
					ImageURL: encoder.DataURI(mimeType, base64.StdEncoding.EncodeToString(part.InlineData.Data)),
					MimeType: mimeType,
				}, nil
			}
			text.WriteString(part.Text)
		}
	}

	if cand.FinishReason != "" && cand.FinishReason != genai.FinishReasonStop {
		return nil, fmt.Errorf("%w (finish reason %s)", ErrNoImage, cand.FinishReason)
	}
	if s := strings.TrimSpace(text.String()); s != "" {
		return nil, fmt.Errorf("%w: %s", ErrNoImage, s)
	}
	return nil, ErrNoImage
}
