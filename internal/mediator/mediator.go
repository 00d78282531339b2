package mediator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"wallcraft/config"
	"wallcraft/internal/clients/gemini"
	"wallcraft/internal/clients/httpedit"
	"wallcraft/internal/dependencies"
	"wallcraft/internal/services"
	"wallcraft/internal/session"
	"wallcraft/internal/wallpaper"
	"wallcraft/internal/workflow"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	api      *services.Api
	hub      *services.Hub
	registry *session.Registry
	rpc      *dependencies.Rpc
	logger   *log.Logger
	// settings
	Config config.Config
}

// NewApp wires the configured edit provider into a session registry and the
// HTTP API. ctx bounds every generation started through the API.
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	editor, rpc, err := newEditor(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating newapp: %w", err)
	}

	hub := services.NewHub()
	registry := session.NewRegistry(func(sessionID string) *workflow.Workflow {
		return workflow.New(editor,
			workflow.WithLogger(log.With("component", "workflow", "sessionId", sessionID)),
			workflow.WithObserver(func(state wallpaper.GenerationState, version uint64) {
				hub.SendState(sessionID, state, version)
			}),
		)
	})

	api := services.NewApi(ctx, cfg.Api, registry, hub, downloadClient(editor))

	return &App{
		api:      api,
		hub:      hub,
		registry: registry,
		rpc:      rpc,
		logger:   log.With("component", "mediator"),
		Config:   cfg,
	}, nil
}

// newEditor returns the provider chosen by editor.provider. The rpc client is
// returned separately so it can be closed on shutdown.
func newEditor(ctx context.Context, cfg config.Config) (wallpaper.Editor, *dependencies.Rpc, error) {
	timeout := cfg.Editor.Timeout()

	switch cfg.Editor.Provider {
	case config.ProviderHttp:
		return httpedit.NewClient(cfg.Http, timeout), nil, nil

	case config.ProviderRpc:
		rpc, err := dependencies.NewRpc(cfg.Rpc.Peer, cfg.Rpc.Port, timeout)
		if err != nil {
			return nil, nil, err
		}
		return rpc, rpc, nil

	case config.ProviderGemini, "":
		client, err := gemini.NewClient(ctx, cfg.Gemini)
		if err != nil {
			return nil, nil, err
		}
		return withTimeout(client, timeout), nil, nil
	}

	return nil, nil, fmt.Errorf("unknown editor provider %q", cfg.Editor.Provider)
}

// downloadClient reuses the http provider's client for proxying remote
// results. Other providers return inline results, so the API default is used.
func downloadClient(editor wallpaper.Editor) *http.Client {
	if c, ok := editor.(*httpedit.Client); ok {
		return c.HTTPClient()
	}
	return nil
}

func withTimeout(next wallpaper.Editor, d time.Duration) wallpaper.Editor {
	if d <= 0 {
		return next
	}
	return wallpaper.EditorFunc(func(ctx context.Context, req wallpaper.EditRequest) (*wallpaper.EditResult, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next.EditImage(ctx, req)
	})
}

// Run serves the API and sweeps idle sessions until ctx is done or the
// listener fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("api listening", "port", a.Config.Api.Port, "provider", a.Config.Editor.Provider)
		if err := a.api.Start(); err != nil {
			return fmt.Errorf("api: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(a.Config.Session.SweepInterval())
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case now := <-ticker.C:
				a.sweep(now)
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")
		return a.api.Shutdown(shutdownTimeout)
	})

	return g.Wait()
}

func (a *App) sweep(now time.Time) []string {
	removed := a.registry.Sweep(a.Config.Session.MaxIdle(), now)
	if len(removed) > 0 {
		a.logger.Debug("idle sessions removed", "count", len(removed), "remaining", a.registry.Len())
	}
	return removed
}

func (a *App) Shutdown() {
	if a.rpc != nil {
		a.rpc.Close()
	}
}
