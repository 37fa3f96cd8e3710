package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"caseintake/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, logger, err := bootstrap(ctx, *configPath)
	if err != nil {
		log.Fatalf("caseintaked: %v", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run `caseintake health` to inspect directories and database"),
		)
		d.Close()
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("caseintaked shutting down")
}
