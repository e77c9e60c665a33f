// Package schema holds the gohcl-tagged structs that describe the on-disk
// layout of a bundle descriptor.
package schema

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Variable represents a `variable` block. Variables are decoded in a first
// pass so the rest of the descriptor can reference them as var.<name>.
type Variable struct {
	Name        string     `hcl:"name,label"`
	Description string     `hcl:"description,optional"`
	Default     *cty.Value `hcl:"default,optional"`
}

// VariablesFile is the first-pass view of a descriptor file.
type VariablesFile struct {
	Variables []*Variable `hcl:"variable,block"`
	Remain    hcl.Body    `hcl:",remain"`
}

// Application represents the `application` block.
type Application struct {
	Name        string   `hcl:"name,label"`
	SourceRoot  string   `hcl:"source_root,optional"`
	EntryPoint  string   `hcl:"entry_point"`
	EntryModule string   `hcl:"entry_module,optional"`
	SearchPaths []string `hcl:"search_paths,optional"`
	Exclude     []string `hcl:"exclude,optional"`
}

// Data represents a `data` block: one (source glob, destination) mapping.
type Data struct {
	Label       string `hcl:"label,label"`
	Source      string `hcl:"source"`
	Destination string `hcl:"destination"`
}

// Module represents a `module` block of the dependency manifest.
type Module struct {
	Name     string   `hcl:"name,label"`
	Path     string   `hcl:"path,optional"`
	Requires []string `hcl:"requires,optional"`
	Optional bool     `hcl:"optional,optional"`
}

// Executable represents the `executable` block.
type Executable struct {
	Name                string `hcl:"name"`
	Icon                string `hcl:"icon"`
	Splash              string `hcl:"splash,optional"`
	Version             string `hcl:"version,optional"`
	Windowed            bool   `hcl:"windowed,optional"`
	Optimize            *int   `hcl:"optimize,optional"`
	Compress            *bool  `hcl:"compress,optional"`
	OneFile             bool   `hcl:"onefile,optional"`
	TargetOS            string `hcl:"target_os,optional"`
	Interpreter         string `hcl:"interpreter,optional"`
	WindowedInterpreter string `hcl:"windowed_interpreter,optional"`
	OptimizeFlag        string `hcl:"optimize_flag,optional"`
	LibraryEnv          string `hcl:"library_env,optional"`
}

// DescriptorFile is the second-pass view of a descriptor file, decoded with
// an evaluation context that knows every variable.
type DescriptorFile struct {
	Applications []*Application `hcl:"application,block"`
	Data         []*Data        `hcl:"data,block"`
	Modules      []*Module      `hcl:"module,block"`
	Executables  []*Executable  `hcl:"executable,block"`
}
