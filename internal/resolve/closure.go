// Package resolve computes the import closure of an application from its
// explicit module manifest.
//
// The closure is every module reachable from the entry module through
// `requires` edges. Excluded modules are pruned only when they are marked
// optional; excluding a module the closure needs is an error, so an
// exclusion can shrink a bundle but never break it.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/vk/bundlego/internal/builderr"
	"github.com/vk/bundlego/internal/config"
	"github.com/vk/bundlego/internal/ctxlog"
	"github.com/vk/bundlego/internal/dag"
	"github.com/vk/bundlego/internal/fsutil"
)

// File is one file of a resolved module.
type File struct {
	Source string
	// Name is the slash-separated path relative to the module's search root,
	// used as the entry name in the library archive.
	Name   string
	Module string
}

// Module is a resolved manifest entry.
type Module struct {
	Name string
	Root string
	Path string
}

// Closure is the resolved import closure.
type Closure struct {
	// Modules is in dependency order: every module follows its requirements.
	Modules []*Module
	// Files is sorted by Name and free of duplicates.
	Files []File
	// Pruned lists excluded optional modules that the closure would
	// otherwise have contained.
	Pruned   []string
	Warnings []builderr.Warning
}

// Resolve computes the closure of app.EntryModule. An application without
// an entry module has an empty closure.
func Resolve(ctx context.Context, app *config.Application, modules map[string]*config.Module) (*Closure, error) {
	logger := ctxlog.Stage(ctx, "resolve")
	excluded := lo.SliceToMap(app.Exclude, func(name string) (string, bool) { return name, true })

	closure := &Closure{}
	for _, name := range lo.Uniq(app.Exclude) {
		if _, ok := modules[name]; !ok {
			logger.Debug("Exclusion names no declared module.", "module", name)
			closure.Warnings = append(closure.Warnings, &builderr.UnusedExclusionWarning{Module: name})
		}
	}

	if app.EntryModule == "" {
		logger.Debug("No entry module declared; import closure is empty.")
		return closure, nil
	}
	if excluded[app.EntryModule] {
		return nil, &builderr.DependencyResolutionError{
			Module: app.EntryModule,
			Reason: "the entry module cannot be excluded",
		}
	}

	g, err := buildGraph(modules)
	if err != nil {
		return nil, err
	}

	var pruned []string
	reached, err := g.Reachable(app.EntryModule, func(_, dep string) bool {
		if excluded[dep] {
			if m, ok := modules[dep]; ok && m.Optional {
				pruned = append(pruned, dep)
				return false
			}
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	closure.Pruned = lo.Uniq(pruned)
	sort.Strings(closure.Pruned)

	for _, name := range reached {
		if _, ok := modules[name]; !ok {
			return nil, &builderr.DependencyResolutionError{
				Module:     name,
				RequiredBy: firstDependent(g, name, reached),
				Reason:     "not declared in the module manifest",
			}
		}
		if excluded[name] {
			return nil, &builderr.DependencyResolutionError{
				Module:     name,
				RequiredBy: firstDependent(g, name, reached),
				Reason:     "excluded but required; mark it optional or drop it from exclude",
			}
		}
	}

	order, err := g.TopoOrder(reached)
	if err != nil {
		return nil, fmt.Errorf("ordering import closure: %w", err)
	}

	locator, err := NewLocator(app.SourceRoot, app.SearchPaths)
	if err != nil {
		return nil, err
	}

	files := make(map[string]File)
	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mod := modules[name]
		if !fsutil.WithinRoot(mod.Path) {
			return nil, &builderr.DependencyResolutionError{
				Module:     name,
				RequiredBy: firstDependent(g, name, reached),
				Reason:     fmt.Sprintf("path %q leaves its search root", mod.Path),
			}
		}
		loc, ok, err := locator.Locate(mod.Path)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &builderr.DependencyResolutionError{
				Module:     name,
				RequiredBy: firstDependent(g, name, reached),
				Reason:     fmt.Sprintf("path %q not found under %s", mod.Path, strings.Join(locator.Roots(), ", ")),
			}
		}
		closure.Modules = append(closure.Modules, &Module{Name: name, Root: loc.root, Path: loc.abs})

		if err := collectFiles(loc, name, files); err != nil {
			return nil, fmt.Errorf("collecting files of module %q: %w", name, err)
		}
	}

	// Files of pruned modules nested inside a kept package must go too.
	for _, name := range closure.Pruned {
		loc, ok, err := locator.Locate(modules[name].Path)
		if err != nil {
			return nil, err
		}
		if ok {
			dropUnder(files, loc)
		}
	}

	closure.Files = lo.Values(files)
	sort.Slice(closure.Files, func(i, j int) bool { return closure.Files[i].Name < closure.Files[j].Name })

	logger.Info("Import closure resolved.",
		"modules", len(closure.Modules),
		"files", len(closure.Files),
		"pruned", closure.Pruned,
	)
	return closure, nil
}

// buildGraph adds every declared module and every required name, declared
// or not, so undeclared requirements surface when they are reached.
func buildGraph(modules map[string]*config.Module) (*dag.Graph, error) {
	g := dag.New()
	for name, m := range modules {
		g.AddNode(name)
		for _, req := range m.Requires {
			g.AddNode(req)
		}
	}
	for name, m := range modules {
		for _, req := range m.Requires {
			if err := g.AddEdge(req, name); err != nil {
				return nil, &builderr.DependencyResolutionError{Module: name, Reason: err.Error()}
			}
		}
	}
	if err := g.DetectCycles(); err != nil {
		var cycle *dag.CycleError
		if errors.As(err, &cycle) {
			return nil, &builderr.DependencyResolutionError{Module: cycle.Path[0], Reason: err.Error()}
		}
		return nil, err
	}
	return g, nil
}

// firstDependent names a module in the closure that requires name.
func firstDependent(g *dag.Graph, name string, reached []string) string {
	dependents, err := g.Dependents(name)
	if err != nil {
		return ""
	}
	for _, d := range dependents {
		if lo.Contains(reached, d) {
			return d
		}
	}
	return ""
}

func collectFiles(loc location, module string, into map[string]File) error {
	add := func(abs string) error {
		rel, err := filepath.Rel(loc.root, abs)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if !fsutil.WithinRoot(name) {
			return fmt.Errorf("file %s is outside search root %s", abs, loc.root)
		}
		if _, ok := into[name]; !ok {
			into[name] = File{Source: abs, Name: name, Module: module}
		}
		return nil
	}

	if !loc.isDir {
		return add(loc.abs)
	}
	return filepath.WalkDir(loc.abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != loc.abs && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return add(p)
	})
}

func dropUnder(files map[string]File, loc location) {
	prefix := loc.abs + string(filepath.Separator)
	for name, f := range files {
		if f.Source == loc.abs || strings.HasPrefix(f.Source, prefix) {
			delete(files, name)
		}
	}
}
