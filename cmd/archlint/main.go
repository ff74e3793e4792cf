// Package main provides the archlint binary entry point.
// Archlint validates source files against a declared architecture registry:
// each file's @arch tag resolves to a flattened rule set, and every rule is
// checked against facts extracted from the file.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/c360studio/archlint/validate"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "archlint"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Architecture constraint validator",
		Long: `Archlint resolves each file's declared architecture through the
registry's inheritance and mixin graph, then validates the file against the
flattened constraint set. Violations can be suppressed with time-boxed
@override annotations.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(validateCmd(&logLevel))
	cmd.AddCommand(resolveCmd(&logLevel))
	cmd.AddCommand(watchCmd(&logLevel))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func newLogger(logLevel string) *slog.Logger {
	level := slog.LevelWarn
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func validateCmd(logLevel *string) *cobra.Command {
	var (
		strict  bool
		asJSON  bool
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "validate [patterns...]",
		Short: "Validate files against their declared architectures",
		Long: `Validate expands each pattern (doublestar globs supported), validates
every matched file carrying an @arch tag, and reports violations with
provenance. Exits non-zero when any file fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(newLogger(*logLevel))
			if err != nil {
				return err
			}

			patterns := args
			if len(patterns) == 0 {
				patterns = []string{"**/*"}
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			batch, err := app.runner.ValidatePaths(ctx, patterns)
			if err != nil {
				return err
			}

			if pub := app.Publisher(); pub != nil {
				pub.PublishBatch(batch)
				pub.Close()
			}

			useStrict := strict || app.cfg.Validation.Strict
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(batch); err != nil {
					return err
				}
			} else {
				printBatch(cmd.OutOrStdout(), batch, useStrict, !noColor)
			}

			if batch.Failed(useStrict) {
				// Exit code carries the verdict; the report already printed.
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on warning-severity violations too")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the batch as JSON")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable ANSI colors")
	return cmd
}

func resolveCmd(logLevel *string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "resolve <architecture-id> [mixin...]",
		Short: "Show the flattened rule set for an architecture",
		Long: `Resolve walks the inheritance chain and mixin applications for the given
architecture id, optionally with inline mixins, and prints every effective
constraint with the node that declared it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(newLogger(*logLevel))
			if err != nil {
				return err
			}

			flat, err := app.runner.Resolver().Resolve(args[0], args[1:])
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(flat)
			}
			printFlattened(cmd.OutOrStdout(), flat)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the flattened architecture as JSON")
	return cmd
}

func watchCmd(logLevel *string) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-validate files as they change",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(*logLevel)
			app, err := NewApp(logger)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			watcher, err := validate.NewWatcher(app.runner, validate.WatcherConfig{
				Root:   app.root,
				Logger: logger,
			})
			if err != nil {
				return err
			}
			defer func() { _ = watcher.Close() }()

			if err := watcher.Start(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "watching %s\n", app.root)

			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(app.promReg, promhttp.HandlerOpts{}))
				go func() {
					if err := http.ListenAndServe(metricsAddr, mux); err != nil {
						logger.Warn("metrics server stopped", slog.String("error", err.Error()))
					}
				}()
			}

			pub := app.Publisher()
			if pub != nil {
				defer pub.Close()
			}

			for event := range watcher.Events() {
				printWatchEvent(cmd.OutOrStdout(), event)
				if pub != nil && event.Result != nil {
					pub.Publish("watch", event.Result)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9108)")
	return cmd
}
