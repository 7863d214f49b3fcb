package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/runmateapp/runmate-client/internal/cli"
	"github.com/runmateapp/runmate-client/internal/config"
	"github.com/runmateapp/runmate-client/internal/gateway"
	"github.com/runmateapp/runmate-client/internal/guard"
	"github.com/runmateapp/runmate-client/internal/logging"
	"github.com/runmateapp/runmate-client/internal/services"
	"github.com/runmateapp/runmate-client/internal/session"
	"github.com/runmateapp/runmate-client/internal/storage"
	"github.com/runmateapp/runmate-client/internal/telemetry"
)

// guardWait bounds how long the first navigation may block on session
// bootstrap.
const guardWait = 5 * time.Second

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()
	log := logging.NewTextLogger(os.Stderr, slog.LevelInfo)

	shutdown, enabled, err := telemetry.Init(ctx, "runmate-client")
	if err != nil {
		log.Warn(ctx, "tracing disabled", "error", err)
	}
	if enabled {
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Warn(ctx, "tracing shutdown failed", "error", err)
			}
		}()
	}

	store, err := storage.Open(ctx, cfg.DataFile, log)
	if err != nil {
		log.Error(ctx, "opening local storage failed", "file", cfg.DataFile, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	nav := cli.NewNav()
	api := gateway.New(cfg.APIBase, cfg.RequestTimeout, store, nav, log)

	auth := session.New(api, store, nav, log)
	api.SetSessionInvalidator(auth)
	profile := services.NewProfileService(api, api, auth, log)
	matching := services.NewMatchingService(api, auth, log)
	goals := services.NewGoalsService(api, auth, log)
	chat := services.NewMessagingService(api, auth, log)
	auth.SetProfileBootstrapper(profile)

	// Bootstrap before any guard decision: the first navigation must be
	// judged against loaded credentials, not their absence.
	auth.Init(ctx)

	g := guard.New(auth, guardWait)

	app := cli.NewApp(cfg, nav, auth, g, profile, matching, goals, chat, log)
	app.Run(ctx)
}
