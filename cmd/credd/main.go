// Command credd serves the goCreds engine over HTTP.
//
// Configuration comes from CREDD_* environment variables; a .env file in the
// working directory is read first when present.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrEthical07/goCreds/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "credd: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg, os.Stdout)
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("credd stopped")
		os.Exit(1)
	}
}
