package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const snippetLimit = 8 << 10

// StatusError is returned for non-2xx responses. Body holds at most 8KiB.
type StatusError struct {
	Url        string
	StatusCode int
	Status     string
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %s: %s: %s", e.Url, e.Status, snippet(e.Body))
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > snippetLimit {
		s = s[:snippetLimit]
	}
	return s
}

func Get[r any](h *http.Client, ctx context.Context, url string, headers map[string]string) (r, error) {

	var response r

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return response, err
	}

	for key, val := range headers {
		req.Header.Add(key, val)
	}

	return do[r](h, req)
}

func Post[b, r any](h *http.Client, ctx context.Context, url string, body b, headers map[string]string) (r, error) {

	var response r

	payload, err := json.Marshal(body)
	if err != nil {
		return response, fmt.Errorf("marshal %s: %w", url, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return response, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, val := range headers {
		req.Header.Add(key, val)
	}

	return do[r](h, req)
}

func do[r any](h *http.Client, req *http.Request) (r, error) {

	var response r
	url := req.URL.String()

	resp, err := h.Do(req)
	if err != nil {
		return response, err
	}
	defer resp.Body.Close()

	responseBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return response, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := responseBytes
		if len(body) > snippetLimit {
			body = body[:snippetLimit]
		}
		return response, &StatusError{Url: url, StatusCode: resp.StatusCode, Status: resp.Status, Body: body}
	}

	if err := json.Unmarshal(responseBytes, &response); err != nil {
		return response, fmt.Errorf("unmarshal %s: %w: %s", url, err, snippet(responseBytes))
	}

	return response, nil
}

// Download returns the open response; the caller closes the body.
func Download(h *http.Client, ctx context.Context, url string, headers map[string]string) (*http.Response, error) {

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	for key, val := range headers {
		req.Header.Add(key, val)
	}

	resp, err := h.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, snippetLimit))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("download failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	return resp, nil
}
