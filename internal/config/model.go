package config

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/vk/bundlego/internal/fsutil"
)

// Supported target operating systems.
const (
	OSLinux   = "linux"
	OSDarwin  = "darwin"
	OSWindows = "windows"
)

// Optimization levels. Level 2 strips docstrings and assertions.
const (
	OptimizeNone  = 0
	OptimizeStrip = 2
)

// Model is the evaluated, format-agnostic representation of one bundle
// descriptor.
type Model struct {
	Application *Application
	Data        []*DataMapping
	Modules     map[string]*Module
	Executable  *Executable
	// SourceFiles lists the descriptor files the model was loaded from.
	SourceFiles []string
}

// Application holds the build-wide settings.
type Application struct {
	Name string
	// SourceRoot is absolute; every relative path in the model is resolved
	// against it.
	SourceRoot  string
	EntryPoint  string
	EntryModule string
	SearchPaths []string
	Exclude     []string
}

// DataMapping copies files matching Source into Destination inside the bundle.
type DataMapping struct {
	Label       string
	Source      string
	Destination string
}

// Module is one entry of the explicit dependency manifest.
type Module struct {
	Name     string
	Path     string
	Requires []string
	Optional bool
}

// Executable holds the launcher metadata.
type Executable struct {
	Name                string
	Icon                string
	Splash              string
	Version             string
	Windowed            bool
	Optimize            int
	Compress            bool
	OneFile             bool
	TargetOS            string
	Interpreter         string
	WindowedInterpreter string
	OptimizeFlag        string
	// LibraryEnv names the environment variable the launcher prepends the
	// library archive to, such as an interpreter's module search path.
	LibraryEnv string
}

// Validate checks the structural rules a loader cannot express in its
// schema. File existence is not checked here; that is the builder's job.
func (m *Model) Validate() error {
	if m.Application == nil {
		return fmt.Errorf("descriptor must declare exactly one application block")
	}
	if m.Executable == nil {
		return fmt.Errorf("descriptor must declare exactly one executable block")
	}
	app := m.Application
	if app.EntryPoint == "" {
		return fmt.Errorf("application %q: entry_point is required", app.Name)
	}
	if !filepath.IsAbs(app.SourceRoot) {
		return fmt.Errorf("application %q: source root %q must be absolute", app.Name, app.SourceRoot)
	}
	if app.EntryModule != "" {
		if _, ok := m.Modules[app.EntryModule]; !ok {
			return fmt.Errorf("application %q: entry_module %q is not declared", app.Name, app.EntryModule)
		}
	}

	exe := m.Executable
	if exe.Name == "" {
		return fmt.Errorf("executable: name is required")
	}
	if strings.ContainsAny(exe.Name, `/\`) {
		return fmt.Errorf("executable: name %q must not contain path separators", exe.Name)
	}
	if exe.Optimize != OptimizeNone && exe.Optimize != OptimizeStrip {
		return fmt.Errorf("executable: optimize must be %d or %d, got %d", OptimizeNone, OptimizeStrip, exe.Optimize)
	}
	if exe.Version != "" {
		if _, err := semver.NewVersion(exe.Version); err != nil {
			return fmt.Errorf("executable: version %q: %w", exe.Version, err)
		}
	}
	switch exe.TargetOS {
	case OSLinux, OSDarwin, OSWindows:
	default:
		return fmt.Errorf("executable: unsupported target_os %q", exe.TargetOS)
	}

	for name, mod := range m.Modules {
		if mod.Path == "" {
			return fmt.Errorf("module %q: path is required", name)
		}
		if !fsutil.WithinRoot(mod.Path) || path.Clean(mod.Path) == "." {
			return fmt.Errorf("module %q: path %q must be relative and stay inside its search root", name, mod.Path)
		}
		for _, req := range mod.Requires {
			if req == name {
				return fmt.Errorf("module %q requires itself", name)
			}
		}
	}
	return nil
}

// Resolve returns p resolved against the source root.
func (a *Application) Resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(a.SourceRoot, filepath.FromSlash(p))
}
