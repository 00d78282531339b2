package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"wallcraft/config"
	"wallcraft/internal/mediator"

	"github.com/TypeTerrors/gonfig"
	"github.com/charmbracelet/log"
)

func main() {

	cfg, err := gonfig.Load[config.Config](
		gonfig.WithConfigFile("config/config.yaml"),
		gonfig.WithDotenv(".env"), // ignored if missing
		gonfig.WithStrict(),       // fail if ${VAR} has no value/default
	)
	if err != nil {
		log.Fatal("load config", "err", err)
	}
	if err := cfg.Normalize(); err != nil {
		log.Fatal("invalid config", "err", err)
	}

	if level, err := log.ParseLevel(cfg.Log.Level); err == nil {
		log.SetLevel(level)
	} else {
		log.Warn("unknown log level, keeping info", "level", cfg.Log.Level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := mediator.NewApp(ctx, cfg)
	if err != nil {
		log.Fatal("create app", "err", err)
	}
	defer app.Shutdown()

	if err := app.Run(ctx); err != nil {
		log.Error("server stopped", "err", err)
		app.Shutdown()
		os.Exit(1)
	}
}
