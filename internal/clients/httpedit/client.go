package httpedit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"wallcraft/config"
	"wallcraft/internal/clients/transport"
	"wallcraft/internal/wallpaper"
)

var ErrNotConfigured = errors.New("http editor: url is not configured")

// Client calls a JSON image-edit endpoint:
//
//	POST {image, mimeType, prompt, aspectRatio} -> {imageUrl, mimeType} | {error}
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg config.HttpConfig, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 240 * time.Second
	}
	return &Client{
		url:        strings.TrimSpace(cfg.Url),
		apiKey:     strings.TrimSpace(cfg.ApiKey),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// HTTPClient is shared with the download proxy so remote results are fetched
// with the same timeout.
func (c *Client) HTTPClient() *http.Client { return c.httpClient }

func (c *Client) EditImage(ctx context.Context, req wallpaper.EditRequest) (*wallpaper.EditResult, error) {
	if c.url == "" {
		return nil, ErrNotConfigured
	}

	headers := make(map[string]string)
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	body := editRequest{
		Image:       req.EncodedBytes,
		MimeType:    req.MediaType,
		Prompt:      req.Prompt,
		AspectRatio: string(req.AspectRatio),
	}

	resp, err := transport.Post[editRequest, editResponse](c.httpClient, ctx, c.url, body, headers)
	if err != nil {
		var se *transport.StatusError
		if errors.As(err, &se) {
			return nil, statusMessage(se)
		}
		return nil, err
	}

	if msg := firstNonEmpty(resp.Error, resp.Message); msg != "" && resp.ImageUrl == "" {
		return nil, errors.New(msg)
	}
	if strings.TrimSpace(resp.ImageUrl) == "" {
		return nil, errors.New("http editor: response has no imageUrl")
	}

	mimeType := resp.MimeType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return &wallpaper.EditResult{ImageURL: resp.ImageUrl, MimeType: mimeType}, nil
}

// statusMessage prefers the service's own error text over the raw status line.
func statusMessage(se *transport.StatusError) error {
	var body editResponse
	if err := json.Unmarshal(se.Body, &body); err == nil {
		if msg := firstNonEmpty(body.Error, body.Message); msg != "" {
			return errors.New(msg)
		}
	}
	return fmt.Errorf("http editor: %s", se.Status)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
