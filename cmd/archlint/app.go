package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360studio/archlint/config"
	"github.com/c360studio/archlint/coverage"
	"github.com/c360studio/archlint/diag"
	"github.com/c360studio/archlint/registry"
	"github.com/c360studio/archlint/validate"
)

// App wires configuration, the registry, and the validation runner.
type App struct {
	cfg     *config.Config
	root    string
	reg     *registry.Registry
	runner  *validate.Runner
	logger  *slog.Logger
	promReg *prometheus.Registry
}

// NewApp loads layered configuration and the registry, then builds the
// runner. The repo root is the directory holding the project config, or the
// working directory when none exists.
func NewApp(logger *slog.Logger) (*App, error) {
	loader := config.NewLoader(logger)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	root, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	if projectConfig := loader.FindProjectConfig(); projectConfig != "" {
		root = filepath.Dir(projectConfig)
	}

	registryPath := cfg.Registry.Path
	if !filepath.IsAbs(registryPath) {
		registryPath = filepath.Join(root, registryPath)
	}
	reg, err := registry.NewLoader(logger).LoadFile(registryPath)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}

	for _, drift := range reg.DriftWarnings() {
		logger.Warn("unknown registry field",
			slog.String("node", drift.Node),
			slog.String("field", drift.Field))
	}

	promReg := prometheus.NewRegistry()
	runner := validate.NewRunner(root, reg, validate.Options{
		Policy:  &cfg.Overrides,
		Workers: cfg.Validation.Workers,
		Coverage: coverage.Options{
			MaxFiles: cfg.Coverage.MaxFiles,
			Workers:  cfg.Coverage.Workers,
			Logger:   logger,
		},
		Metrics: validate.NewMetrics(promReg),
		Logger:  logger,
	})

	return &App{
		cfg:     cfg,
		root:    root,
		reg:     reg,
		runner:  runner,
		logger:  logger,
		promReg: promReg,
	}, nil
}

// Publisher connects the diagnostics publisher when configured. Returns nil
// when diagnostics are disabled or the connection fails; validation never
// depends on it.
func (a *App) Publisher() *diag.Publisher {
	if a.cfg.Diagnostics.NATSURL == "" {
		return nil
	}
	pub, err := diag.Connect(a.cfg.Diagnostics.NATSURL, a.logger)
	if err != nil {
		a.logger.Warn("diagnostics publishing disabled",
			slog.String("url", a.cfg.Diagnostics.NATSURL),
			slog.String("error", err.Error()))
		return nil
	}
	return pub
}
