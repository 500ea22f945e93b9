package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cinequest/cinequest/internal/bot"
	"github.com/cinequest/cinequest/internal/config"
	"github.com/cinequest/cinequest/internal/database"
	"github.com/cinequest/cinequest/internal/history"
	"github.com/cinequest/cinequest/internal/logger"
	"github.com/cinequest/cinequest/internal/overseerr"
	"github.com/cinequest/cinequest/internal/policy"
	"github.com/cinequest/cinequest/internal/request"
	"github.com/cinequest/cinequest/internal/scheduler"
	"github.com/cinequest/cinequest/internal/webhook"
)

func main() {
	// Local development convenience. Missing .env is fine.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Logging)
	defer log.Close()

	log.Info().
		Str("version", config.Version).
		Str("logLevel", cfg.Logging.Level).
		Msg("starting cinequest")

	// Request history is optional. Without a database path every outcome is
	// still logged, just not queryable.
	var recorder request.Recorder
	if cfg.Database.Path != "" {
		db, err := database.New(cfg.Database.Path)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open database")
		}
		defer db.Close()

		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		recorder = history.NewService(db.Conn(), log.Logger)
	} else {
		log.Info().Msg("no database path configured, request history disabled")
	}

	catalog := overseerr.NewClient(cfg.Overseerr, log.Logger)

	// Policy sync is optional. Without a sheet URL every request falls back
	// to the configured default profile.
	var table *policy.Table
	var sched *scheduler.Scheduler
	if cfg.Policy.SheetURL != "" {
		source := policy.NewSheetSource(cfg.Policy.SheetURL, log.Logger)
		table = policy.NewTable(source, log.Logger)

		sched, err = scheduler.New(log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create scheduler")
		}
		err = sched.RegisterTask(scheduler.TaskConfig{
			ID:         "policy-refresh",
			Name:       "Policy Table Refresh",
			Cron:       cfg.Policy.RefreshCron,
			Func:       table.Refresh,
			RunOnStart: true,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to register policy refresh task")
		}
	} else {
		log.Info().Msg("no policy sheet configured, quality matching disabled")
	}

	var pol request.Policy
	if table != nil {
		pol = table
	}

	workflow := request.NewWorkflow(catalog, pol, recorder,
		cfg.Policy.DefaultProfile, cfg.Discord.ManagerUserID, log.Logger)

	discordBot, err := bot.New(cfg.Discord, workflow, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create discord bot")
	}

	server := webhook.NewServer(cfg.Server, catalog, discordBot, log.Logger)

	if sched != nil {
		if err := sched.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start scheduler")
		}
	}

	if err := discordBot.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start discord bot")
	}

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("webhook server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to stop webhook server")
	}
	if err := discordBot.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to stop discord bot")
	}
	if sched != nil {
		if err := sched.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop scheduler")
		}
	}

	log.Info().Msg("shutdown complete")
}
