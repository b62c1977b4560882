package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/ilindan-dev/local-notifier/internal/config"
	"github.com/ilindan-dev/local-notifier/internal/logger"
	"github.com/ilindan-dev/local-notifier/internal/storage/postgres"
)

// main applies the embedded database migrations.
func main() {
	command := flag.String("command", "up", "goose command: up, down, status, version or reset")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := postgres.Migrate(ctx, cfg.Postgres.MasterDSN, *command, log); err != nil {
		log.Error().Err(err).Msg("migration failed")
		stop()
		os.Exit(1)
	}
}
