// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

// Package cli implements UNDR's command-line front end (§6.6): a cobra root
// command with shared flags (--configuration, --timeout, --workers,
// --force, --log-file, --log-level) and one subcommand per verb (init,
// install, bibtex, doctor, check-for-upload). Structured the way the
// teacher's internal/cli/root.go lays out its own root command and
// persistent flags.
package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// RootOpts holds the flags shared by every subcommand.
type RootOpts struct {
	Configuration string
	Timeout       float64
	Workers       int
	Force         bool
	LogFile       string
	LogLevel      string

	logger *log.Logger
	closer func() error
}

// Execute runs the CLI with the given version string.
func Execute(version string) error {
	ro := &RootOpts{}
	ctx, cancel := signalContext(context.Background())
	defer cancel()

	root := &cobra.Command{
		Use:           "undr",
		Short:         "Install and process hierarchically indexed event-sensor datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, closer, err := openLogger(ro)
			if err != nil {
				return err
			}
			ro.logger = logger
			ro.closer = closer
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if ro.closer != nil {
				return ro.closer()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&ro.Configuration, "configuration", "c", "undr.toml", "Path to the dataset configuration file")
	root.PersistentFlags().Float64Var(&ro.Timeout, "timeout", 0, "Override every dataset's per-request HTTP timeout, in seconds (0 keeps each dataset's own setting)")
	root.PersistentFlags().IntVar(&ro.Workers, "workers", 4, "Number of worker goroutines in the task pool")
	root.PersistentFlags().BoolVarP(&ro.Force, "force", "f", false, "Ignore local state and re-download/re-index everything")
	root.PersistentFlags().StringVar(&ro.LogFile, "log-file", "", "Write logs to this file instead of stderr")
	root.PersistentFlags().StringVar(&ro.LogLevel, "log-level", "info", "Log level: debug, info, warn, error (accepted, but log output is not filtered by it)")

	root.AddCommand(newInitCmd(ro))
	root.AddCommand(newInstallCmd(ctx, ro))
	root.AddCommand(newBibtexCmd(ctx, ro))
	root.AddCommand(newDoctorCmd(ro))
	root.AddCommand(newCheckForUploadCmd(ro))
	root.SetHelpCommand(&cobra.Command{Use: "help", Hidden: true})

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	return nil
}

// signalContext cancels when the user hits Ctrl-C or the process receives
// SIGTERM, the way task.py's workers watch for a KeyboardInterrupt.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// openLogger builds the shared *log.Logger, writing to --log-file instead of
// stderr when set.
// Mirrors logging.basicConfig(filename=...)'s per-run log file in
// task.py's ProcessManager, rendered as a single logger instead of one file
// per worker process since UNDR's default Manager is in-process.
func openLogger(ro *RootOpts) (*log.Logger, func() error, error) {
	if ro.LogFile == "" {
		return log.New(os.Stderr, "", log.LstdFlags), func() error { return nil }, nil
	}
	f, err := os.OpenFile(ro.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("cli: open log file %s: %w", ro.LogFile, err)
	}
	return log.New(f, "", log.LstdFlags), f.Close, nil
}
