package bundle

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/vk/bundlego/internal/builderr"
	"github.com/vk/bundlego/internal/config"
	"github.com/vk/bundlego/internal/ctxlog"
	"github.com/vk/bundlego/internal/fsutil"
	"github.com/vk/bundlego/internal/launcher"
	"github.com/vk/bundlego/internal/mapping"
	"github.com/vk/bundlego/internal/output"
	"github.com/vk/bundlego/internal/resolve"
)

// LibraryArchive is the bundle path of the archived import closure.
const LibraryArchive = "_internal/library.zip"

// Plan is everything a build will write, computed without touching the
// output directory.
type Plan struct {
	Model *config.Model
	// EntrySource is the absolute path of the entry script.
	EntrySource string
	// EntryTarget is the slash-separated bundle path of the entry script.
	EntryTarget string
	Mappings    []*mapping.Entry
	Data        []mapping.File
	Closure     *resolve.Closure
	// Output is the absolute bundle directory, <out>/<name>.
	Output   string
	Warnings []builderr.Warning
}

// Library returns the bundle path of the library archive, or "" when the
// closure has no files.
func (p *Plan) Library() string {
	if len(p.Closure.Files) == 0 {
		return ""
	}
	return LibraryArchive
}

// Plan validates the model against the file system and resolves every
// input of the build. Independent fatal checks (entry point, icon, splash)
// are reported together.
func (b *Builder) Plan(ctx context.Context, model *config.Model) (*Plan, error) {
	logger := ctxlog.Stage(ctx, "plan")
	app, exe := model.Application, model.Executable

	outRoot, err := filepath.Abs(b.opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("resolving output directory: %w", err)
	}
	plan := &Plan{
		Model:       model,
		EntrySource: app.Resolve(app.EntryPoint),
		EntryTarget: entryTarget(app),
		Output:      filepath.Join(outRoot, exe.Name),
	}

	var fatal *multierror.Error
	if err := checkEntryPoint(app, plan.EntrySource); err != nil {
		fatal = multierror.Append(fatal, err)
	}
	warnings, errs := launcher.CheckResources(ctx, app, exe)
	fatal = multierror.Append(fatal, errs...)
	plan.Warnings = append(plan.Warnings, warnings...)
	if err := fatal.ErrorOrNil(); err != nil {
		return nil, err
	}
	logger.Debug("Entry point and resources found.", "entry_point", plan.EntryTarget)

	entries, warnings, err := mapping.Canonicalize(model.Data)
	if err != nil {
		return nil, err
	}
	plan.Mappings = entries
	plan.Warnings = append(plan.Warnings, warnings...)

	expanded, err := mapping.Expand(ctx, app.SourceRoot, entries)
	if err != nil {
		return nil, err
	}
	plan.Data = expanded.Files
	plan.Warnings = append(plan.Warnings, expanded.Warnings...)

	closure, err := resolve.Resolve(ctx, app, model.Modules)
	if err != nil {
		return nil, err
	}
	plan.Closure = closure
	plan.Warnings = append(plan.Warnings, closure.Warnings...)

	if err := checkClaims(plan); err != nil {
		return nil, err
	}

	logger.Info("Build planned.",
		"application", app.Name,
		"data_files", len(plan.Data),
		"modules", len(closure.Modules),
		"warnings", len(plan.Warnings),
	)
	return plan, nil
}

func checkEntryPoint(app *config.Application, abs string) error {
	ok, err := fsutil.IsRegularFile(abs)
	if err != nil {
		return &builderr.MissingEntryPointError{Path: app.EntryPoint, Reason: err.Error()}
	}
	if !ok {
		return &builderr.MissingEntryPointError{Path: app.EntryPoint}
	}
	return nil
}

// entryTarget keeps the entry script's path relative to the source root,
// falling back to its base name when it lives outside the root.
func entryTarget(app *config.Application) string {
	rel, err := filepath.Rel(app.SourceRoot, app.Resolve(app.EntryPoint))
	if err == nil && fsutil.WithinRoot(filepath.ToSlash(rel)) {
		return filepath.ToSlash(rel)
	}
	return path.Base(filepath.ToSlash(app.EntryPoint))
}

// checkClaims makes sure data files do not overwrite each other's
// generated neighbours. A data file that is the entry script itself is
// dropped rather than copied twice.
func checkClaims(plan *Plan) error {
	exe := plan.Model.Executable
	claims := map[string]string{
		launcher.ScriptName(exe): "generated launcher script",
		launcher.MetadataFile:    "generated launcher metadata",
		output.ManifestFile:      "generated bundle manifest",
	}
	if plan.Library() != "" {
		claims[LibraryArchive] = "generated library archive"
	}
	claim := func(target, source string) error {
		if prev, ok := claims[target]; ok && prev != source {
			return &builderr.DestinationConflictError{Destination: target, Sources: []string{prev, source}}
		}
		claims[target] = source
		return nil
	}

	if err := claim(plan.EntryTarget, plan.EntrySource); err != nil {
		return err
	}
	for _, r := range launcher.Resources(plan.Model.Application, exe) {
		if err := claim(path.Base(filepath.ToSlash(r.Path)), r.Abs); err != nil {
			return err
		}
	}

	kept := plan.Data[:0]
	for _, f := range plan.Data {
		prev, ok := claims[f.Target]
		switch {
		case !ok:
			kept = append(kept, f)
		case prev == f.Source:
			// Already written under the same path.
		default:
			return &builderr.DestinationConflictError{Destination: f.Target, Sources: []string{prev, f.Source}}
		}
	}
	plan.Data = kept
	return nil
}
