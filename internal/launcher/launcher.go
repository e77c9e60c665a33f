// Package launcher emits the executable wrapper of a bundle: a launcher
// script for the target OS, a launcher.json metadata file, and copies of
// the icon and splash resources.
//
// The launcher exports BUNDLE_DIR so the application can locate its data
// files relative to its own install directory.
package launcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/vk/bundlego/internal/config"
	"github.com/vk/bundlego/internal/ctxlog"
	"github.com/vk/bundlego/internal/fsutil"
)

// MetadataFile is the name of the launcher metadata file in the bundle root.
const MetadataFile = "launcher.json"

// Spec is everything the launcher needs to know about the bundle.
type Spec struct {
	App        *config.Application
	Executable *config.Executable
	// EntryPoint is the slash-separated bundle path of the entry script.
	EntryPoint string
	// Library is the slash-separated bundle path of the library archive,
	// empty when the closure is empty.
	Library string
}

// Metadata is the content of launcher.json.
type Metadata struct {
	Name        string   `json:"name"`
	Version     string   `json:"version,omitempty"`
	TargetOS    string   `json:"targetOS"`
	Script      string   `json:"script"`
	EntryPoint  string   `json:"entryPoint"`
	Interpreter string   `json:"interpreter,omitempty"`
	Args        []string `json:"args,omitempty"`
	Windowed    bool     `json:"windowed"`
	Optimize    int      `json:"optimize"`
	Library     string   `json:"library,omitempty"`
	LibraryEnv  string   `json:"libraryEnv,omitempty"`
	Compressed  bool     `json:"compressed"`
	Icon        string   `json:"icon"`
	Splash      string   `json:"splash,omitempty"`
}

// templateData feeds the launcher script templates.
type templateData struct {
	Metadata
	Command string
}

var funcs = sprig.TxtFuncMap()

var posixTemplate = template.Must(template.New("posix").Funcs(funcs).Parse(`#!/bin/sh
# {{ .Name }}{{ with .Version }} {{ . }}{{ end }} launcher, generated by bundlego.
BUNDLE_DIR="$(cd "$(dirname "$0")" && pwd)"
export BUNDLE_DIR
{{- if .Library }}
BUNDLE_LIBRARY="$BUNDLE_DIR/{{ .Library }}"
export BUNDLE_LIBRARY
{{- if .LibraryEnv }}
{{ .LibraryEnv }}="$BUNDLE_LIBRARY${ {{- .LibraryEnv }}:+:${{ .LibraryEnv }}}"
export {{ .LibraryEnv }}
{{- end }}
{{- end }}
{{- if .Splash }}
BUNDLE_SPLASH="$BUNDLE_DIR/{{ .Splash }}"
export BUNDLE_SPLASH
{{- end }}
exec {{ .Command }} "$@"
`))

var windowsTemplate = template.Must(template.New("windows").Funcs(funcs).Parse(`@echo off
rem {{ .Name }}{{ with .Version }} {{ . }}{{ end }} launcher, generated by bundlego.
setlocal
set "BUNDLE_DIR=%~dp0"
if "%BUNDLE_DIR:~-1%"=="\" set "BUNDLE_DIR=%BUNDLE_DIR:~0,-1%"
{{- if .Library }}
set "BUNDLE_LIBRARY=%BUNDLE_DIR%\{{ .Library | replace "/" "\\" }}"
{{- if .LibraryEnv }}
set "{{ .LibraryEnv }}=%BUNDLE_LIBRARY%;%{{ .LibraryEnv }}%"
{{- end }}
{{- end }}
{{- if .Splash }}
set "BUNDLE_SPLASH=%BUNDLE_DIR%\{{ .Splash | replace "/" "\\" }}"
{{- end }}
{{ if .Windowed }}start "" {{ .Command }} %*{{ else }}{{ .Command }} %*{{ end }}
`))

// ScriptName returns the launcher script file name for the target OS.
func ScriptName(exe *config.Executable) string {
	if exe.TargetOS == config.OSWindows {
		return exe.Name + ".cmd"
	}
	return exe.Name
}

// BuildMetadata derives launcher.json from the spec.
func BuildMetadata(spec Spec) Metadata {
	exe := spec.Executable
	interp := exe.Interpreter
	if exe.Windowed && exe.WindowedInterpreter != "" {
		interp = exe.WindowedInterpreter
	}
	var args []string
	if interp != "" && exe.Optimize == config.OptimizeStrip {
		args = append(args, exe.OptimizeFlag)
	}

	md := Metadata{
		Name:        exe.Name,
		Version:     exe.Version,
		TargetOS:    exe.TargetOS,
		Script:      ScriptName(exe),
		EntryPoint:  spec.EntryPoint,
		Interpreter: interp,
		Args:        args,
		Windowed:    exe.Windowed,
		Optimize:    exe.Optimize,
		Library:     spec.Library,
		Compressed:  exe.Compress,
		Icon:        path.Base(filepath.ToSlash(exe.Icon)),
	}
	if spec.Library != "" {
		md.LibraryEnv = exe.LibraryEnv
	}
	if exe.Splash != "" {
		md.Splash = path.Base(filepath.ToSlash(exe.Splash))
	}
	return md
}

// Emit writes the launcher script, launcher.json, and resource copies into
// dir.
func Emit(ctx context.Context, spec Spec, dir string) error {
	logger := ctxlog.Stage(ctx, "launcher")
	md := BuildMetadata(spec)

	script, err := renderScript(md)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, md.Script), script, 0o755); err != nil {
		return fmt.Errorf("writing launcher script: %w", err)
	}

	encoded, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", MetadataFile, err)
	}
	if err := os.WriteFile(filepath.Join(dir, MetadataFile), append(encoded, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", MetadataFile, err)
	}

	for _, r := range Resources(spec.App, spec.Executable) {
		name := path.Base(filepath.ToSlash(r.Path))
		if err := fsutil.CopyFile(r.Abs, filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("copying %s: %w", r.Kind, err)
		}
	}

	logger.Info("Launcher emitted.", "script", md.Script, "interpreter", md.Interpreter, "windowed", md.Windowed, "optimize", md.Optimize)
	return nil
}

func renderScript(md Metadata) ([]byte, error) {
	tmpl := posixTemplate
	if md.TargetOS == config.OSWindows {
		tmpl = windowsTemplate
	}

	data := templateData{Metadata: md, Command: command(md)}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering %s launcher: %w", tmpl.Name(), err)
	}
	return buf.Bytes(), nil
}

// command renders the quoted launch command for the target shell.
func command(md Metadata) string {
	quote := func(s string) string { return `"` + s + `"` }

	var parts []string
	if md.Interpreter != "" {
		parts = append(parts, quote(md.Interpreter))
		for _, a := range md.Args {
			parts = append(parts, quote(a))
		}
	}
	if md.TargetOS == config.OSWindows {
		parts = append(parts, quote(`%BUNDLE_DIR%\`+strings.ReplaceAll(md.EntryPoint, "/", `\`)))
	} else {
		parts = append(parts, quote("$BUNDLE_DIR/"+md.EntryPoint))
	}
	return strings.Join(parts, " ")
}
