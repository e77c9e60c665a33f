package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/vk/bundlego/internal/bundle"
	"github.com/vk/bundlego/internal/config"
	"github.com/vk/bundlego/internal/ctxlog"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	loader  config.Loader
	builder *bundle.Builder
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	builder, err := bundle.NewBuilder(bundle.Options{
		OutputDir: cfg.OutputDir,
		Strict:    cfg.Strict,
	})
	if err != nil {
		return nil, err
	}

	return &App{
		outW:    outW,
		logger:  logger,
		config:  cfg,
		loader:  loader,
		builder: builder,
	}, nil
}

// variables collects the values the descriptor is evaluated with. Process
// environment wins over the dotenv file, matching godotenv.Load.
func (a *App) variables() (config.Variables, error) {
	env := make(map[string]string)
	if a.config.EnvFile != "" {
		fileEnv, err := godotenv.Read(a.config.EnvFile)
		if err != nil {
			return config.Variables{}, fmt.Errorf("reading env file %s: %w", a.config.EnvFile, err)
		}
		for k, v := range fileEnv {
			env[k] = v
		}
		a.logger.Debug("Env file loaded.", "path", a.config.EnvFile, "count", len(fileEnv))
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = v
		}
	}
	return config.Variables{Overrides: a.config.Vars, Env: env}, nil
}

func (a *App) context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}
