// Package app wires the engine together: template loading, method
// registration, graph construction and dispatch, behind a single Run
// entrypoint driven by the CLI.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/vk/cytograph/internal/ctxlog"
	"github.com/vk/cytograph/internal/registry"
	"github.com/vk/cytograph/internal/template"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	rows     []template.ValidatedRow
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and
// registry. A template that fails to load or validate is a fatal startup
// error and panics; the CLI entrypoint recovers it into a clean exit.
func NewApp(outW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	rows, err := loadTemplate(cfg.TemplatePath)
	if err != nil {
		panic(fmt.Errorf("failed to load template: %w", err))
	}
	validated, err := template.Validate(rows)
	if err != nil {
		panic(fmt.Errorf("failed to validate template: %w", err))
	}
	logger.Debug("Template loaded and validated.", "rows", len(validated))

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All method modules registered.", "count", len(modules))

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		rows:     validated,
	}
}

// loadTemplate picks the loader from the file extension; anything that
// is not .hcl goes through the canonical CSV form.
func loadTemplate(path string) ([]template.Row, error) {
	if strings.EqualFold(filepath.Ext(path), ".hcl") {
		return template.LoadHCLFile(path)
	}
	return template.LoadCSVFile(path)
}

// Context returns a background context carrying the app's logger.
func (a *App) Context() context.Context {
	return ctxlog.WithLogger(context.Background(), a.logger)
}
