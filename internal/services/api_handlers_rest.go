package services

import (
	"errors"
	"io"
	"strings"

	"wallcraft/internal/clients/transport"
	"wallcraft/internal/encoder"
	"wallcraft/internal/presenter"
	"wallcraft/internal/wallpaper"
	"wallcraft/internal/workflow"
	"wallcraft/types"
	"wallcraft/utils"

	"github.com/gofiber/fiber/v2"
)

var errNoResult = errors.New("no result to save")

func (a *Api) GetSession() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		return ctx.JSON(currentSession(ctx).Snapshot())
	}
}

func (a *Api) UploadImage() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		sess := currentSession(ctx)

		fh, err := ctx.FormFile("file")
		if err != nil {
			return badRequest(ctx, err, "missing file")
		}

		img, err := encoder.EncodeFileHeader(fh)
		if err != nil {
			HttpLogger("upload", ctx).Warn("could not read upload", "sessionId", sess.ID, "err", err)
			return badRequest(ctx, err, "failed to read image")
		}

		sess.SelectImage(img)
		return ctx.JSON(sess.Snapshot())
	}
}

func (a *Api) SetPrompt() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		sess := currentSession(ctx)

		var requestBody types.PromptRequest
		if err := ctx.BodyParser(&requestBody); err != nil {
			return badRequest(ctx, err, "invalid body")
		}

		sess.SetPrompt(requestBody.Prompt)
		return ctx.JSON(sess.Snapshot())
	}
}

func (a *Api) ApplyPreset() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		sess := currentSession(ctx)

		var requestBody types.PresetRequest
		if err := ctx.BodyParser(&requestBody); err != nil {
			return badRequest(ctx, err, "invalid body")
		}

		if err := sess.ApplyPreset(requestBody.Label); err != nil {
			return badRequest(ctx, err, "unknown preset")
		}
		return ctx.JSON(sess.Snapshot())
	}
}

func (a *Api) SetAspectRatio() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		sess := currentSession(ctx)

		var requestBody types.AspectRatioRequest
		if err := ctx.BodyParser(&requestBody); err != nil {
			return badRequest(ctx, err, "invalid body")
		}

		ratio, err := wallpaper.ParseAspectRatio(requestBody.AspectRatio)
		if err != nil {
			return badRequest(ctx, err, "unknown aspect ratio")
		}
		if err := sess.SetAspectRatio(ratio); err != nil {
			return badRequest(ctx, err, "unknown aspect ratio")
		}
		return ctx.JSON(sess.Snapshot())
	}
}

// Generate starts a generation and answers 202 with the session in the
// generating phase. With ?wait=true it answers once the call has settled.
func (a *Api) Generate() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		sess := currentSession(ctx)

		done, err := sess.Submit(a.ctx)
		switch {
		case errors.Is(err, workflow.ErrNoSourceImage):
			return badRequest(ctx, err, "upload an image first")
		case errors.Is(err, workflow.ErrGenerationInFlight), errors.Is(err, workflow.ErrResultPending):
			return ctx.Status(fiber.StatusConflict).JSON(types.ErrorResponse{
				Error:   err.Error(),
				Message: "generation not accepted",
			})
		case err != nil:
			return ctx.Status(fiber.StatusInternalServerError).JSON(types.ErrorResponse{
				Error:   err.Error(),
				Message: "could not start generation",
			})
		}

		if ctx.QueryBool("wait") {
			select {
			case <-done:
			case <-a.ctx.Done():
				return ctx.Status(fiber.StatusServiceUnavailable).JSON(types.ErrorResponse{
					Error:   a.ctx.Err().Error(),
					Message: "server shutting down",
				})
			}
			return ctx.JSON(sess.Snapshot())
		}

		return ctx.Status(fiber.StatusAccepted).JSON(sess.Snapshot())
	}
}

func (a *Api) Reset() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		sess := currentSession(ctx)
		sess.Reset()
		return ctx.JSON(sess.Snapshot())
	}
}

// Download serves the current result as an attachment. Inline data URIs are
// decoded. Remote results are proxied so the browser gets the attachment
// filename regardless of origin.
func (a *Api) Download() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		sess := currentSession(ctx)
		view := presenter.Render(sess.State())
		if view.Kind != presenter.KindResult {
			return ctx.Status(fiber.StatusNotFound).JSON(types.ErrorResponse{
				Error:   errNoResult.Error(),
				Message: "generate an image first",
			})
		}

		disposition := utils.AttachmentDisposition(view.DownloadFilename)

		uri := view.ResultURL
		switch {
		case strings.HasPrefix(uri, "data:"):
			mediaType, data, err := encoder.DecodeDataURI(uri)
			if err != nil {
				return ctx.Status(fiber.StatusInternalServerError).JSON(types.ErrorResponse{
					Error:   err.Error(),
					Message: "stored result is unreadable",
				})
			}
			ctx.Set(fiber.HeaderContentType, mediaType)
			ctx.Set(fiber.HeaderContentDisposition, disposition)
			return ctx.Send(data)

		case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
			resp, err := transport.Download(a.httpClient, a.ctx, uri, nil)
			if err != nil {
				HttpLogger("download", ctx).Error("result fetch failed", "sessionId", sess.ID, "err", err)
				return ctx.Status(fiber.StatusBadGateway).JSON(types.ErrorResponse{
					Error:   err.Error(),
					Message: "could not fetch result",
				})
			}
			defer resp.Body.Close()

			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return ctx.Status(fiber.StatusBadGateway).JSON(types.ErrorResponse{
					Error:   err.Error(),
					Message: "could not fetch result",
				})
			}

			mediaType := view.ResultMimeType
			if mediaType == "" {
				mediaType = resp.Header.Get(fiber.HeaderContentType)
			}
			ctx.Set(fiber.HeaderContentType, mediaType)
			ctx.Set(fiber.HeaderContentDisposition, disposition)
			return ctx.Send(data)
		}

		return ctx.Status(fiber.StatusUnprocessableEntity).JSON(types.ErrorResponse{
			Error:   "unsupported result url",
			Message: "result cannot be downloaded by the server",
		})
	}
}
