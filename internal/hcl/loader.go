package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/bundlego/internal/config"
	"github.com/vk/bundlego/internal/ctxlog"
	"github.com/vk/bundlego/internal/fsutil"
	"github.com/vk/bundlego/internal/schema"
)

// descriptorExt is the extension of descriptor files picked up from a directory.
const descriptorExt = ".hcl"

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL descriptor loader.
func NewLoader() *Loader {
	return &Loader{}
}

// parsedFile pairs a descriptor file with its first-pass decode.
type parsedFile struct {
	path string
	vars schema.VariablesFile
}

// Load parses every descriptor file found at path, evaluates them with a
// shared evaluation context, and merges them into one validated model.
func (l *Loader) Load(ctx context.Context, path string, vars config.Variables) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path", path)

	files, baseDir, err := l.discover(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered descriptor files.", "count", len(files))

	parser := hclparse.NewParser()
	parsed := make([]*parsedFile, 0, len(files))
	var decls []*schema.Variable
	seenVars := make(map[string]string)

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse descriptor %s: %w", file, diags)
		}

		pf := &parsedFile{path: file}
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &pf.vars); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode variables in %s: %w", file, diags)
		}
		for _, v := range pf.vars.Variables {
			if prev, ok := seenVars[v.Name]; ok {
				return nil, fmt.Errorf("variable %q declared in both %s and %s", v.Name, prev, file)
			}
			seenVars[v.Name] = file
			decls = append(decls, v)
		}
		parsed = append(parsed, pf)
	}

	evalCtx, err := buildEvalContext(decls, vars)
	if err != nil {
		return nil, err
	}
	logger.Debug("Evaluation context built.", "variables", len(decls), "env", len(vars.Env))

	var merged schema.DescriptorFile
	for _, pf := range parsed {
		var root schema.DescriptorFile
		if diags := gohcl.DecodeBody(pf.vars.Remain, evalCtx, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode descriptor %s: %w", pf.path, diags)
		}
		merged.Applications = append(merged.Applications, root.Applications...)
		merged.Data = append(merged.Data, root.Data...)
		merged.Modules = append(merged.Modules, root.Modules...)
		merged.Executables = append(merged.Executables, root.Executables...)
	}

	model, err := translate(&merged, baseDir)
	if err != nil {
		return nil, err
	}
	model.SourceFiles = files

	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid descriptor: %w", err)
	}

	logger.Debug("HCL loading complete.",
		"application", model.Application.Name,
		"data", len(model.Data),
		"modules", len(model.Modules),
	)
	return model, nil
}

// discover returns the sorted descriptor files at path and the directory
// relative source roots are resolved against.
func (l *Loader) discover(path string) ([]string, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("resolving descriptor path %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, "", fmt.Errorf("error accessing descriptor path %s: %w", path, err)
	}

	if !info.IsDir() {
		return []string{abs}, filepath.Dir(abs), nil
	}

	files, err := fsutil.FindFilesByExtension(abs, descriptorExt)
	if err != nil {
		return nil, "", fmt.Errorf("scanning descriptor directory %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, "", fmt.Errorf("no %s files found in %s", descriptorExt, path)
	}
	sort.Strings(files)
	return files, abs, nil
}
