package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"wallcraft/config"
	"wallcraft/internal/presenter"
	"wallcraft/internal/session"
	"wallcraft/internal/wallpaper"
	"wallcraft/internal/workflow"
	"wallcraft/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

type fakeEditor struct {
	mu      sync.Mutex
	reqs    []wallpaper.EditRequest
	result  *wallpaper.EditResult
	err     error
	release chan struct{}
}

func (f *fakeEditor) EditImage(ctx context.Context, req wallpaper.EditRequest) (*wallpaper.EditResult, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}

func (f *fakeEditor) requests() []wallpaper.EditRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]wallpaper.EditRequest(nil), f.reqs...)
}

func newTestApi(t *testing.T, editor wallpaper.Editor) *Api {
	t.Helper()
	hub := NewHub()
	registry := session.NewRegistry(func(id string) *workflow.Workflow {
		return workflow.New(editor, workflow.WithObserver(func(s wallpaper.GenerationState, v uint64) {
			hub.SendState(id, s, v)
		}))
	})
	return NewApi(context.Background(), config.ApiConfig{Port: "0"}, registry, hub, nil)
}

type client struct {
	t         *testing.T
	api       *Api
	sessionID string
}

func (c *client) do(req *http.Request) *http.Response {
	c.t.Helper()
	if c.sessionID != "" {
		req.Header.Set(sessionHeader, c.sessionID)
	}
	resp, err := c.api.server.Test(req, -1)
	require.NoError(c.t, err)
	if id := resp.Header.Get(sessionHeader); id != "" {
		c.sessionID = id
	}
	return resp
}

func (c *client) json(method, path string, body any) (*http.Response, []byte) {
	c.t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp := c.do(req)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, out
}

func (c *client) upload(data []byte) *http.Response {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "car.png")
	require.NoError(c.t, err)
	_, err = fw.Write(data)
	require.NoError(c.t, err)
	require.NoError(c.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/session/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func decodeSnapshot(t *testing.T, b []byte) session.Snapshot {
	t.Helper()
	var s session.Snapshot
	require.NoError(t, json.Unmarshal(b, &s), string(b))
	return s
}

func TestHealthAndOptions(t *testing.T) {
	c := &client{t: t, api: newTestApi(t, &fakeEditor{})}

	t.Run("health", func(t *testing.T) {
		resp, body := c.json(http.MethodGet, "/health", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var h types.HealthResponse
		require.NoError(t, json.Unmarshal(body, &h))
		assert.Equal(t, http.StatusOK, h.Status)
	})

	t.Run("options", func(t *testing.T) {
		resp, body := c.json(http.MethodGet, "/options", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var o types.OptionsResponse
		require.NoError(t, json.Unmarshal(body, &o))
		assert.Len(t, o.Presets, 4)
		assert.Len(t, o.AspectRatios, 5)
		assert.Equal(t, wallpaper.Portrait, o.DefaultAspectRatio)
		assert.Equal(t, wallpaper.DefaultPrompt, o.DefaultPrompt)
		assert.Equal(t, presenter.DownloadFilename, o.DownloadFilename)
	})

	t.Run("index page", func(t *testing.T) {
		resp, body := c.json(http.MethodGet, "/", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
		assert.Contains(t, string(body), "WallCraft")
	})
}

func TestSessionIsCreatedOnceAndReused(t *testing.T) {
	c := &client{t: t, api: newTestApi(t, &fakeEditor{})}

	resp, body := c.json(http.MethodGet, "/session", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decodeSnapshot(t, body)
	require.NotEmpty(t, first.ID)
	assert.Equal(t, first.ID, c.sessionID)
	assert.Contains(t, resp.Header.Get("Set-Cookie"), sessionCookie+"="+first.ID)
	assert.Equal(t, wallpaper.PhaseIdle, first.State.Phase())
	assert.Equal(t, wallpaper.DefaultSelection(), first.Selection)
	assert.False(t, first.CanGenerate)

	_, body = c.json(http.MethodGet, "/session", nil)
	assert.Equal(t, first.ID, decodeSnapshot(t, body).ID)
	assert.Equal(t, 1, c.api.registry.Len())

	t.Run("cookie identifies the session too", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/session", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: first.ID})
		resp, err := c.api.server.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, first.ID, resp.Header.Get(sessionHeader))
	})

	t.Run("unknown id gets a fresh session", func(t *testing.T) {
		other := &client{t: t, api: c.api, sessionID: "not-a-session"}
		_, body := other.json(http.MethodGet, "/session", nil)
		s := decodeSnapshot(t, body)
		assert.NotEqual(t, "not-a-session", s.ID)
		assert.NotEqual(t, first.ID, s.ID)
	})
}

func TestSelectors(t *testing.T) {
	c := &client{t: t, api: newTestApi(t, &fakeEditor{})}

	resp, body := c.json(http.MethodPut, "/session/prompt", types.PromptRequest{Prompt: "a red car at dusk"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "a red car at dusk", decodeSnapshot(t, body).Selection.Prompt)

	preset, _ := wallpaper.LookupPreset("Neon Glow")
	resp, body = c.json(http.MethodPost, "/session/preset", types.PresetRequest{Label: "Neon Glow"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, preset.Prompt, decodeSnapshot(t, body).Selection.Prompt)

	resp, body = c.json(http.MethodPut, "/session/aspectratio", types.AspectRatioRequest{AspectRatio: "16:9"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	s := decodeSnapshot(t, body)
	assert.Equal(t, wallpaper.Landscape, s.Selection.AspectRatio)
	assert.Equal(t, preset.Prompt, s.Selection.Prompt)

	t.Run("unknown preset", func(t *testing.T) {
		resp, _ := c.json(http.MethodPost, "/session/preset", types.PresetRequest{Label: "Sepia"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		_, body := c.json(http.MethodGet, "/session", nil)
		assert.Equal(t, preset.Prompt, decodeSnapshot(t, body).Selection.Prompt)
	})

	t.Run("unknown aspect ratio", func(t *testing.T) {
		resp, _ := c.json(http.MethodPut, "/session/aspectratio", types.AspectRatioRequest{AspectRatio: "21:9"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestUpload(t *testing.T) {
	c := &client{t: t, api: newTestApi(t, &fakeEditor{})}

	t.Run("missing file", func(t *testing.T) {
		resp, _ := c.json(http.MethodPost, "/session/image", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	resp := c.upload(pngBytes)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	s := decodeSnapshot(t, body)

	require.NotNil(t, s.Image)
	assert.Equal(t, "image/png", s.Image.MediaType)
	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(pngBytes), s.Image.PreviewURI)
	assert.Equal(t, "car.png", s.Image.Name)
	assert.True(t, s.CanGenerate)
}

func TestGenerateWithoutImage(t *testing.T) {
	editor := &fakeEditor{}
	c := &client{t: t, api: newTestApi(t, editor)}

	resp, _ := c.json(http.MethodPost, "/session/generate", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, editor.requests())

	_, body := c.json(http.MethodGet, "/session", nil)
	assert.Equal(t, wallpaper.PhaseIdle, decodeSnapshot(t, body).State.Phase())
}

func TestGenerateSaveAndReset(t *testing.T) {
	resultURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("wallpaper-bytes"))
	editor := &fakeEditor{result: &wallpaper.EditResult{ImageURL: resultURI, MimeType: "image/png"}}
	c := &client{t: t, api: newTestApi(t, editor)}

	c.upload(pngBytes).Body.Close()
	c.json(http.MethodPost, "/session/preset", types.PresetRequest{Label: "Retro Vibe"})
	c.json(http.MethodPut, "/session/aspectratio", types.AspectRatioRequest{AspectRatio: "LANDSCAPE"})

	resp, body := c.json(http.MethodPost, "/session/generate?wait=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	s := decodeSnapshot(t, body)
	assert.Equal(t, wallpaper.PhaseSucceeded, s.State.Phase())
	assert.Equal(t, resultURI, s.State.ResultURI)
	assert.Equal(t, presenter.KindResult, s.View.Kind)
	assert.Equal(t, presenter.DownloadFilename, s.View.DownloadFilename)
	assert.False(t, s.CanGenerate)

	reqs := editor.requests()
	require.Len(t, reqs, 1)
	retro, _ := wallpaper.LookupPreset("Retro Vibe")
	assert.Equal(t, retro.Prompt, reqs[0].Prompt)
	assert.Equal(t, wallpaper.Landscape, reqs[0].AspectRatio)
	assert.Equal(t, "image/png", reqs[0].MediaType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pngBytes), reqs[0].EncodedBytes)

	t.Run("second generate needs a reset", func(t *testing.T) {
		resp, _ := c.json(http.MethodPost, "/session/generate", nil)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Len(t, editor.requests(), 1)
	})

	t.Run("download", func(t *testing.T) {
		resp, body := c.json(http.MethodGet, "/session/download", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
		_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition"))
		require.NoError(t, err)
		assert.Equal(t, "ai-wallpaper.png", params["filename"])
		assert.Equal(t, "wallpaper-bytes", string(body))
	})

	t.Run("reset", func(t *testing.T) {
		resp, body := c.json(http.MethodPost, "/session/reset", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		s := decodeSnapshot(t, body)
		assert.Equal(t, wallpaper.IdleState(), s.State)
		assert.Nil(t, s.Image)
		assert.Equal(t, retro.Prompt, s.Selection.Prompt)
		assert.False(t, s.CanGenerate)

		resp, _ = c.json(http.MethodGet, "/session/download", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestGenerateInFlight(t *testing.T) {
	editor := &fakeEditor{
		result:  &wallpaper.EditResult{ImageURL: "data:image/png;base64,eA==", MimeType: "image/png"},
		release: make(chan struct{}),
	}
	c := &client{t: t, api: newTestApi(t, editor)}
	c.upload(pngBytes).Body.Close()

	resp, body := c.json(http.MethodPost, "/session/generate", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	s := decodeSnapshot(t, body)
	assert.True(t, s.State.IsGenerating)
	assert.Equal(t, presenter.KindInFlight, s.View.Kind)
	assert.False(t, s.CanGenerate)

	resp, _ = c.json(http.MethodPost, "/session/generate", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = c.json(http.MethodGet, "/session/download", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	close(editor.release)
	assert.Eventually(t, func() bool {
		_, body := c.json(http.MethodGet, "/session", nil)
		return decodeSnapshot(t, body).State.Phase() == wallpaper.PhaseSucceeded
	}, timeout, tick)
	assert.Len(t, editor.requests(), 1)
}

func TestGenerateFailureKeepsForm(t *testing.T) {
	editor := &fakeEditor{err: errors.New("quota exceeded")}
	c := &client{t: t, api: newTestApi(t, editor)}
	c.upload(pngBytes).Body.Close()

	resp, body := c.json(http.MethodPost, "/session/generate?wait=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	s := decodeSnapshot(t, body)
	assert.Equal(t, wallpaper.PhaseErrored, s.State.Phase())
	assert.Equal(t, "quota exceeded", s.State.Error)
	assert.True(t, s.View.ShowForm)
	assert.True(t, s.CanGenerate)

	// errored allows a retry without reset
	editor.err = nil
	editor.result = &wallpaper.EditResult{ImageURL: "data:image/png;base64,eA==", MimeType: "image/png"}
	resp, body = c.json(http.MethodPost, "/session/generate?wait=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, wallpaper.PhaseSucceeded, decodeSnapshot(t, body).State.Phase())
}

func TestDownloadProxiesRemoteResult(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("remote-jpeg"))
	}))
	defer remote.Close()

	editor := &fakeEditor{result: &wallpaper.EditResult{ImageURL: remote.URL + "/out.jpg", MimeType: "image/jpeg"}}
	c := &client{t: t, api: newTestApi(t, editor)}
	c.upload(pngBytes).Body.Close()
	c.json(http.MethodPost, "/session/generate?wait=true", nil)

	resp, body := c.json(http.MethodGet, "/session/download", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "remote-jpeg", string(body))
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	assert.True(t, strings.Contains(resp.Header.Get("Content-Disposition"), "ai-wallpaper.png"))
}

func TestDownloadErrorsAreNotAttachments(t *testing.T) {
	editor := &fakeEditor{result: &wallpaper.EditResult{ImageURL: "blob:http://localhost/abc", MimeType: "image/png"}}
	c := &client{t: t, api: newTestApi(t, editor)}
	c.upload(pngBytes).Body.Close()
	c.json(http.MethodPost, "/session/generate?wait=true", nil)

	resp, body := c.json(http.MethodGet, "/session/download", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Content-Disposition"))
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	var e types.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	assert.NotEmpty(t, e.Error)
}

func TestSnapshotVersionsIncrease(t *testing.T) {
	editor := &fakeEditor{err: errors.New("quota exceeded")}
	c := &client{t: t, api: newTestApi(t, editor)}
	c.upload(pngBytes).Body.Close()

	_, body := c.json(http.MethodGet, "/session", nil)
	before := decodeSnapshot(t, body).Version

	_, body = c.json(http.MethodPost, "/session/generate?wait=true", nil)
	after := decodeSnapshot(t, body)
	assert.Equal(t, wallpaper.PhaseErrored, after.State.Phase())
	assert.Equal(t, before+2, after.Version)
}
