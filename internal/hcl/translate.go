package hcl

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/vk/bundlego/internal/config"
	"github.com/vk/bundlego/internal/schema"
)

const defaultOptimizeFlag = "-OO"

// translate converts the merged schema into the format-agnostic model.
func translate(root *schema.DescriptorFile, baseDir string) (*config.Model, error) {
	if n := len(root.Applications); n != 1 {
		return nil, fmt.Errorf("descriptor must declare exactly one application block, found %d", n)
	}
	if n := len(root.Executables); n != 1 {
		return nil, fmt.Errorf("descriptor must declare exactly one executable block, found %d", n)
	}

	model := &config.Model{
		Application: translateApplication(root.Applications[0], baseDir),
		Modules:     make(map[string]*config.Module, len(root.Modules)),
		Executable:  translateExecutable(root.Executables[0]),
	}

	for _, d := range root.Data {
		model.Data = append(model.Data, &config.DataMapping{
			Label:       d.Label,
			Source:      d.Source,
			Destination: d.Destination,
		})
	}

	for _, m := range root.Modules {
		if _, dup := model.Modules[m.Name]; dup {
			return nil, fmt.Errorf("module %q is declared more than once", m.Name)
		}
		model.Modules[m.Name] = translateModule(m)
	}

	return model, nil
}

func translateApplication(a *schema.Application, baseDir string) *config.Application {
	root := baseDir
	if a.SourceRoot != "" {
		root = a.SourceRoot
		if !filepath.IsAbs(root) {
			root = filepath.Join(baseDir, filepath.FromSlash(root))
		}
	}
	return &config.Application{
		Name:        a.Name,
		SourceRoot:  filepath.Clean(root),
		EntryPoint:  a.EntryPoint,
		EntryModule: a.EntryModule,
		SearchPaths: a.SearchPaths,
		Exclude:     a.Exclude,
	}
}

// translateModule defaults the module path to its dotted name as a directory.
func translateModule(m *schema.Module) *config.Module {
	path := m.Path
	if path == "" {
		path = strings.ReplaceAll(m.Name, ".", "/")
	}
	return &config.Module{
		Name:     m.Name,
		Path:     path,
		Requires: m.Requires,
		Optional: m.Optional,
	}
}

func translateExecutable(e *schema.Executable) *config.Executable {
	exe := &config.Executable{
		Name:                e.Name,
		Icon:                e.Icon,
		Splash:              e.Splash,
		Version:             e.Version,
		Windowed:            e.Windowed,
		Optimize:            config.OptimizeNone,
		Compress:            true,
		OneFile:             e.OneFile,
		TargetOS:            e.TargetOS,
		Interpreter:         e.Interpreter,
		WindowedInterpreter: e.WindowedInterpreter,
		OptimizeFlag:        e.OptimizeFlag,
		LibraryEnv:          e.LibraryEnv,
	}
	if e.Optimize != nil {
		exe.Optimize = *e.Optimize
	}
	if e.Compress != nil {
		exe.Compress = *e.Compress
	}
	if exe.TargetOS == "" {
		exe.TargetOS = runtime.GOOS
	}
	if exe.OptimizeFlag == "" {
		exe.OptimizeFlag = defaultOptimizeFlag
	}
	return exe
}
