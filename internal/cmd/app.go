package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/techspeque/specstudio/internal/binpath"
	"github.com/techspeque/specstudio/internal/command"
	"github.com/techspeque/specstudio/internal/config"
	"github.com/techspeque/specstudio/internal/deps"
	"github.com/techspeque/specstudio/internal/event"
	"github.com/techspeque/specstudio/internal/logging"
	"github.com/techspeque/specstudio/internal/process"
)

// shutdownTimeout bounds how long a command waits for runs to finish
// after cancelling them.
const shutdownTimeout = 5 * time.Second

// app holds the components every command shares.
type app struct {
	cfg        *config.Config
	logger     *logging.Logger
	resolver   *binpath.Resolver
	bus        *event.Bus
	supervisor *process.Supervisor
}

// newApp loads configuration and wires the supervisor. adjust lets a command
// adjust spawn options (e.g. the PTY size) before the supervisor is built.
func newApp(adjust func(*process.Options)) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	resolver := binpath.NewDefaultResolver(cfg.Tools.ExtraSearchDirs...)
	bus := event.NewBus(logger)

	opts := process.OptionsFromConfig(cfg)
	if adjust != nil {
		adjust(&opts)
	}

	sup := process.NewSupervisor(
		command.NewBuilder(resolver, cfg.Tools, cfg.Shell),
		process.NewRegistry(logger),
		bus,
		logger,
		opts,
	)

	return &app{cfg: cfg, logger: logger, resolver: resolver, bus: bus, supervisor: sup}, nil
}

func newLogger(cfg config.LoggingConfig) (*logging.Logger, error) {
	if !cfg.Enabled {
		return logging.NopLogger(), nil
	}
	logger, err := logging.NewLoggerWithRotation(cfg.ResolveDir(), cfg.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	return logger, nil
}

func (a *app) checker() *deps.Checker {
	return deps.NewChecker(a.resolver, deps.DefaultTools(a.cfg.Tools))
}

// close cancels any remaining runs, waits for their cleanup and closes the log.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.supervisor.Shutdown(ctx); err != nil {
		a.logger.Warn("shutdown did not complete", "error", err)
	}
	_ = a.logger.Close()
}
