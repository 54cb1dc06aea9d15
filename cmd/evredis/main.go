// Command evredis runs the key-value server: load configuration, start the
// logger, then run the writer/reader/listener lifecycle until interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rsms/evredis/config"
	"github.com/rsms/evredis/server"
	"github.com/rsms/go-log"
)

const version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "evredis: config: %v\n", err)
		return 1
	}

	logger := cfg.Logging.NewLogger()
	logger.Info("evredis v%s", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg.Server, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Warn("server exited with error: %v", err)
		log.Sync()
		return 1
	}

	logger.Info("shutting down")
	log.Sync()
	return 0
}
