// Package main is the entrypoint of CoomerDL.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/primoscope/CoomerDL-sub000/internal/cfg"
	"github.com/primoscope/CoomerDL-sub000/internal/utils/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "CoomerDL exiting with error: %v\n", err)
		os.Exit(1)
	}
}

// run drives one program invocation end to end.
func run() error {
	startTime := time.Now()

	// create cancellable context for shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)
	defer cancel()

	// ---- INIT COMMANDS ----
	if err := cfg.InitCommands(); err != nil {
		return err
	}
	if err := cfg.Execute(); err != nil {
		return err
	}
	if !cfg.ShouldRun() {
		// Help or completion output, nothing to do.
		return nil
	}

	a, err := initializeApplication(startTime)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logging.E("Failed to close the database: %v", err)
		}
	}()

	// ---- RUN PROGRAM ----
	runErr := a.Run(ctx)

	logging.I("CoomerDL finished in %s", time.Since(startTime).Round(time.Millisecond))
	return runErr
}
