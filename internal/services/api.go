package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"wallcraft/config"
	"wallcraft/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

type Api struct {
	server   *fiber.App
	registry *session.Registry
	hub      *Hub
	// fetches remote results for /session/download
	httpClient *http.Client
	// outlives single requests; generation calls run under it
	ctx            context.Context
	port           string
	allowedOrigins string
}

func NewApi(ctx context.Context, config config.ApiConfig, registry *session.Registry, hub *Hub, httpClient *http.Client) *Api {
	if config.AllowedOrigins == "" {
		config.AllowedOrigins = "*"
	}
	if config.BodyLimitMB <= 0 {
		config.BodyLimitMB = 20
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	a := &Api{
		server: fiber.New(fiber.Config{
			AppName:               "wallcraft",
			BodyLimit:             config.BodyLimitMB << 20,
			DisableStartupMessage: true,
		}),
		registry:       registry,
		hub:            hub,
		httpClient:     httpClient,
		ctx:            ctx,
		port:           config.Port,
		allowedOrigins: config.AllowedOrigins,
	}

	a.setup()
	return a
}

func (a *Api) setup() {
	allowCredentials := a.allowedOrigins != "*"

	a.server.Use(RequestLogger())
	a.server.Use(cors.New(cors.Config{
		AllowOrigins:     a.allowedOrigins,
		AllowCredentials: allowCredentials,
		AllowMethods:     "GET,POST,PUT,OPTIONS",
		AllowHeaders:     "Content-Type,Accept,Origin," + sessionHeader,
		ExposeHeaders:    sessionHeader + ",Content-Disposition",
	}))

	a.addRoutes()
}

func (a *Api) addRoutes() {
	a.server.Get("/", a.Index())
	a.server.Get("/health", a.Health())
	a.server.Get("/options", a.Options())

	s := a.server.Group("/session", a.WithSession())
	s.Get("/", a.GetSession())
	s.Post("/image", a.UploadImage())
	s.Put("/prompt", a.SetPrompt())
	s.Post("/preset", a.ApplyPreset())
	s.Put("/aspectratio", a.SetAspectRatio())
	s.Post("/generate", a.Generate())
	s.Post("/reset", a.Reset())
	s.Get("/download", a.Download())

	// websocket connection
	a.server.Use("/ws", a.WsUpgrade())
	a.server.Get("/ws/:id", a.Notifications())
}

// Start blocks until the listener stops.
func (a *Api) Start() error {
	return a.server.Listen(fmt.Sprint(":", a.port))
}

func (a *Api) Shutdown(timeout time.Duration) error {
	a.hub.Shutdown()
	return a.server.ShutdownWithTimeout(timeout)
}
