package bundle

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"

	"github.com/vk/bundlego/internal/archive"
	"github.com/vk/bundlego/internal/builderr"
	"github.com/vk/bundlego/internal/config"
	"github.com/vk/bundlego/internal/ctxlog"
	"github.com/vk/bundlego/internal/fsutil"
	"github.com/vk/bundlego/internal/launcher"
	"github.com/vk/bundlego/internal/output"
)

// Options configures a Builder.
type Options struct {
	// OutputDir is the directory bundles are written into.
	OutputDir string
	// Strict turns any warning into a build failure.
	Strict bool
}

// Builder plans and executes builds. A Builder may be reused; it keeps a
// cache of file digests between builds.
type Builder struct {
	opts   Options
	hasher *output.Hasher
}

// Report is the outcome of a successful build.
type Report struct {
	// Output is the bundle directory, or the archive in single-file mode.
	Output   string
	OneFile  bool
	Manifest *output.Manifest
	Warnings []builderr.Warning
}

// NewBuilder creates a Builder.
func NewBuilder(opts Options) (*Builder, error) {
	if opts.OutputDir == "" {
		return nil, errors.New("output directory is required")
	}
	hasher, err := output.NewHasher()
	if err != nil {
		return nil, err
	}
	return &Builder{opts: opts, hasher: hasher}, nil
}

// Build plans the build and writes the bundle. Nothing under the output
// directory changes unless the whole build succeeds.
func (b *Builder) Build(ctx context.Context, model *config.Model) (*Report, error) {
	logger := ctxlog.Stage(ctx, "build")

	plan, err := b.Plan(ctx, model)
	if err != nil {
		return nil, err
	}
	if b.opts.Strict && len(plan.Warnings) > 0 {
		return nil, &builderr.WarningsAsErrors{Warnings: plan.Warnings}
	}

	stage, err := output.Open(ctx, plan.Output)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := stage.Discard(); err != nil {
			logger.Warn("Failed to clean up staging directory.", "path", stage.Dir, "error", err)
		}
	}()

	origins, err := b.populate(ctx, plan, stage.Dir)
	if err != nil {
		return nil, err
	}

	exe := model.Executable
	manifest, err := b.hasher.WriteManifest(stage.Dir, exe.Name, exe.Version, origins)
	if err != nil {
		return nil, err
	}

	report := &Report{OneFile: exe.OneFile, Manifest: manifest, Warnings: plan.Warnings}
	if exe.OneFile {
		report.Output, err = stage.CommitArchive(ctx, exe.Compress)
	} else {
		report.Output, err = stage.Final, stage.Commit(ctx)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Bundle written.", "output", report.Output, "files", len(manifest.Files), "warnings", len(report.Warnings))
	return report, nil
}

// populate writes the entry script, data files, library archive, and
// launcher into dir. It returns the source of every file copied verbatim,
// keyed by bundle path.
func (b *Builder) populate(ctx context.Context, plan *Plan, dir string) (map[string]string, error) {
	logger := ctxlog.Stage(ctx, "collect")
	exe := plan.Model.Executable
	origins := make(map[string]string, len(plan.Data)+3)

	if err := fsutil.CopyFile(plan.EntrySource, filepath.Join(dir, filepath.FromSlash(plan.EntryTarget))); err != nil {
		return nil, fmt.Errorf("copying entry point: %w", err)
	}
	origins[plan.EntryTarget] = plan.EntrySource

	pool := newCopyPool(dir, len(plan.Data))
	if err := pool.run(ctx, plan.Data); err != nil {
		return nil, err
	}
	for _, f := range plan.Data {
		origins[f.Target] = f.Source
	}
	logger.Debug("Data files copied.", "count", len(plan.Data), "workers", pool.workers)

	if lib := plan.Library(); lib != "" {
		entries := make([]archive.Entry, 0, len(plan.Closure.Files))
		for _, f := range plan.Closure.Files {
			entries = append(entries, archive.Entry{Name: f.Name, Source: f.Source})
		}
		if err := archive.WriteFile(ctx, filepath.Join(dir, filepath.FromSlash(lib)), entries, exe.Compress); err != nil {
			return nil, fmt.Errorf("writing library archive: %w", err)
		}
		logger.Debug("Library archive written.", "entries", len(entries), "compressed", exe.Compress)
	}

	if err := launcher.Emit(ctx, launcher.Spec{
		App:        plan.Model.Application,
		Executable: exe,
		EntryPoint: plan.EntryTarget,
		Library:    plan.Library(),
	}, dir); err != nil {
		return nil, err
	}
	for _, r := range launcher.Resources(plan.Model.Application, exe) {
		origins[path.Base(filepath.ToSlash(r.Path))] = r.Abs
	}
	return origins, nil
}
