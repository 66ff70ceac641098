package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/olehluchkiv/diverify/internal/config"
	"github.com/olehluchkiv/diverify/internal/logging"
)

// errFindings makes the process exit with status 1 without printing an error:
// the report already explains what is wrong.
var errFindings = errors.New("unresolvable services found")

// app carries state shared by every subcommand once the root pre-run has
// configured it.
type app struct {
	cfg        config.Config
	logger     *slog.Logger
	logCleanup func()

	logFile  string
	logLevel string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	// Setup signal handling with context cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := &app{logCleanup: func() {}}
	defer func() { a.logCleanup() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			if a.logger != nil {
				a.logger.Info("received signal, shutting down", "signal", sig)
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errFindings):
		return 1
	default:
		if a.logger != nil {
			a.logger.Error("command failed", "error", err)
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "diverify",
		Short: "Find DI registrations that can never be resolved",
		Long: `diverify analyzes the registration graph of a dependency-injection container,
described by a YAML/JSON manifest or by //diverify: directives in Go source, and
reports every service that can never be resolved together with why.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	defaults := config.Default()
	root.PersistentFlags().StringVar(&a.logFile, "log-file", defaults.LogFile, "log file path (empty logs to stderr only)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", defaults.LogLevel, "log level (debug, info, warn, error)")

	root.AddCommand(newCheckCmd(a), newDiagramCmd(a), newServeCmd(a))
	return root
}

// setup layers configuration as defaults < .env and environment < flags, then
// configures logging.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("log-file") {
		cfg.LogFile = a.logFile
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	logger, cleanup, err := logging.Setup(cfg.LogFile, level)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	a.logger = logger
	a.logCleanup = cleanup
	return nil
}
