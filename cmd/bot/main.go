// Package main is the entry point for the werewolf bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"werewolf-bot/internal/bot"
	"werewolf-bot/internal/config"
	"werewolf-bot/internal/game/werewolf"
	"werewolf-bot/internal/lobby"
	"werewolf-bot/internal/pkg/db"
	"werewolf-bot/internal/repository"
	"werewolf-bot/internal/service"
)

// shutdownTimeout bounds how long running games get to cancel cleanly.
const shutdownTimeout = 15 * time.Second

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log.Info().Str("driver", cfg.Database.Driver).Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openResultStore(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open result store")
	}
	defer closeStore()

	engineCfg, err := engineConfig(cfg.Werewolf)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid werewolf configuration")
	}

	teleBot, err := bot.NewTeleBot(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	stats := service.NewStatsService(store)
	lobbies := lobby.NewStore(0)
	transport := bot.NewTransport(teleBot)

	manager, err := werewolf.NewManager(engineCfg, werewolf.Dependencies{
		Roster:   lobbies,
		Notifier: transport,
		Muter:    transport,
		Recorder: stats,
	}, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create game manager")
	}
	transport.SetDirectory(manager)

	telegramBot := bot.New(teleBot, &bot.Dependencies{
		Config:  cfg,
		Manager: manager,
		Lobby:   lobbies,
		Stats:   stats,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go telegramBot.Start()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()

	shutdownCtx, stop := context.WithTimeout(ctx, shutdownTimeout)
	defer stop()
	manager.Shutdown(shutdownCtx)
	log.Info().Msg("Bot stopped gracefully")
}

type migratingStore interface {
	repository.ResultStore
	Migrate(ctx context.Context) error
}

// openResultStore connects the configured database and applies the
// schema migrations.
func openResultStore(ctx context.Context, cfg *config.DatabaseConfig) (repository.ResultStore, func(), error) {
	var (
		store   migratingStore
		closeFn func()
	)
	switch cfg.Driver {
	case config.DriverSQLite:
		conn, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		store = repository.NewSQLiteResultStore(conn)
		closeFn = func() { _ = conn.Close() }
	default:
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		store = repository.NewPostgresResultStore(pool.Pool)
		closeFn = pool.Close
	}

	log.Info().Msg("Running database migrations...")
	if err := store.Migrate(ctx); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return store, closeFn, nil
}

// engineConfig maps the file configuration onto the engine's.
func engineConfig(c config.WerewolfConfig) (werewolf.Config, error) {
	tieBreak, err := werewolf.ParseTieBreak(c.TieBreak)
	if err != nil {
		return werewolf.Config{}, err
	}

	var thresholds werewolf.Thresholds
	if len(c.Thresholds) > 0 {
		thresholds = make(werewolf.Thresholds, len(c.Thresholds))
		for name, at := range c.Thresholds {
			role := werewolf.RoleName(name)
			if _, err := werewolf.Lookup(role); err != nil {
				return werewolf.Config{}, fmt.Errorf("threshold for %q: %w", name, err)
			}
			thresholds[role] = at
		}
	}

	// The loader defaults quorum_ratio, so a zero here was written on
	// purpose.
	quorum := c.QuorumRatio
	if quorum == 0 {
		quorum = werewolf.NoQuorum
	}

	return werewolf.Config{
		TargetPlayers:   c.TargetPlayers,
		MinPlayers:      c.MinPlayers,
		Thresholds:      thresholds,
		NightDuration:   c.NightDuration,
		DiscussDuration: c.DiscussDuration,
		VoteDuration:    c.VoteDuration,
		TriggerWindow:   c.TriggerWindow,
		LobbyDuration:   c.LobbyDuration,
		BotLead:         c.BotLead,
		LockTimeout:     c.LockTimeout,
		TieBreak:        tieBreak,
		QuorumRatio:     quorum,
		Seed:            c.Seed,
	}, nil
}
