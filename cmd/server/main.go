package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/airwave/station/config"
	"github.com/airwave/station/internal/station"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	cfg := config.Load()

	st, err := station.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to assemble station")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Int("public_port", cfg.PublicPort).Str("radio", st.State.RadioName()).Msg("station starting")
	if err := st.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("station exited with error")
	}
}
