package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/config"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/database"
	httpHandlers "github.com/ANIKETSHETTY47/geotab-fault-sync/internal/http"
	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if err := cfg.RequireGeotab(); err != nil {
		log.Fatal().Err(err).Msg("geotab configuration incomplete")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer db.Close()

	svcs, err := service.New(ctx, cfg, db, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("service setup failed")
	}
	defer svcs.Close()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httpHandlers.Register(app, httpHandlers.Routes{
		Faults: svcs.Faults,
		All:    svcs.Entities,
		Trips:  svcs.Entities,
		Health: svcs.Repos,
	}, log.Logger)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		log.Info().Msg("shutting down")
		_ = app.Shutdown()
	}()

	log.Info().Str("addr", cfg.APIAddr).Msg("api listening")
	if err := app.Listen(cfg.APIAddr); err != nil {
		log.Fatal().Err(err).Msg("server exit")
	}
}
