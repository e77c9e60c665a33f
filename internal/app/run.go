package app

import (
	"context"
	"fmt"

	"github.com/vk/bundlego/internal/builderr"
	"github.com/vk/bundlego/internal/bundle"
)

// Run loads the descriptor and builds the bundle, or only plans it in
// dry-run mode. Warnings are logged as a complete list once the pipeline
// finishes.
func (a *App) Run(ctx context.Context) (*bundle.Report, error) {
	ctx = a.context(ctx)
	a.logger.Debug("App.Run method started.")

	vars, err := a.variables()
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	model, err := a.loader.Load(ctx, a.config.DescriptorPath, vars)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("failed to load descriptor: %w", err)}
	}
	a.logger.Debug("Descriptor loaded.", "files", model.SourceFiles)

	if a.config.DryRun {
		plan, err := a.builder.Plan(ctx, model)
		if err != nil {
			return nil, err
		}
		a.logWarnings(plan.Warnings)
		if a.config.Strict && len(plan.Warnings) > 0 {
			return nil, &builderr.WarningsAsErrors{Warnings: plan.Warnings}
		}
		for _, f := range plan.Data {
			a.logger.Info("Would copy data file.", "source", f.Source, "target", f.Target)
		}
		for _, m := range plan.Closure.Modules {
			a.logger.Info("Would bundle module.", "module", m.Name, "path", m.Path)
		}
		a.logger.Info("Dry run finished; nothing written.", "output", plan.Output)
		return &bundle.Report{Output: plan.Output, Warnings: plan.Warnings}, nil
	}

	report, err := a.builder.Build(ctx, model)
	if err != nil {
		return nil, err
	}
	a.logWarnings(report.Warnings)
	a.logger.Info("Build finished.", "output", report.Output, "files", len(report.Manifest.Files))

	a.logger.Debug("App.Run method finished.")
	return report, nil
}

func (a *App) logWarnings(warnings []builderr.Warning) {
	if len(warnings) == 0 {
		return
	}
	for _, w := range warnings {
		a.logger.Warn("Build warning.", "warning", w.Error())
	}
	a.logger.Warn("Build produced warnings.", "count", len(warnings))
}

// ConfigError marks a failure caused by the descriptor or the invocation
// rather than by the build itself.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return e.Err.Error() }

func (e *ConfigError) Unwrap() error { return e.Err }
