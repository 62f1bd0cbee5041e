package main

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/palabra-game/palabra-server/internal/config"
	"github.com/palabra-game/palabra-server/internal/database"
	"github.com/palabra-game/palabra-server/internal/httpserver"
	"github.com/palabra-game/palabra-server/internal/notify"
	"github.com/palabra-game/palabra-server/internal/store"
	"github.com/palabra-game/palabra-server/internal/verify"
	"github.com/palabra-game/palabra-server/internal/words"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	db, err := database.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	messaging := notify.NewMessagingClient(cfg.MessagingBaseURL, cfg.MessagingSID, cfg.MessagingToken, cfg.MessagingFrom)
	webhook := notify.NewWebhookClient(cfg.ChatWebhookURL)
	notifier := notify.New(messaging, webhook)
	notifier.Start(context.Background())

	srv := httpserver.New(
		cfg,
		store.New(db),
		words.NewSource(cfg.WordMinLength, cfg.WordMaxLength, cfg.WordAPIURL),
		notifier,
		verify.NewCodes(cfg.CodeTTL),
	)

	log.Info().Str("port", cfg.Port).Msg("starting palabra-server")
	if err := srv.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
