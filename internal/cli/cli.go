package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/vk/bundlego/internal/app"
)

// Exit codes.
const (
	ExitBuild = 1
	ExitUsage = 2
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// varFlags collects repeated -var name=value flags.
type varFlags map[string]string

func (v varFlags) String() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k+"="+v[k])
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

func (v varFlags) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return fmt.Errorf("expected name=value, got %q", s)
	}
	v[strings.TrimSpace(name)] = value
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("bundlego", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
bundlego - Assemble an application into a distributable bundle.

Usage:
  bundlego [options] [DESCRIPTOR_PATH]

Arguments:
  DESCRIPTOR_PATH
    Path to a single .hcl descriptor or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	vars := varFlags{}
	descriptorFlag := flagSet.String("descriptor", "", "Path to the descriptor file or directory.")
	dFlag := flagSet.String("d", "", "Path to the descriptor file or directory (shorthand).")
	outFlag := flagSet.String("out", app.DefaultOutputDir, "Directory the bundle is written into.")
	envFileFlag := flagSet.String("env-file", "", "Dotenv file whose values are visible to the descriptor as env.NAME.")
	flagSet.Var(vars, "var", "Set a descriptor variable, as name=value. May be repeated.")
	dryRunFlag := flagSet.Bool("dry-run", false, "Resolve and report the build without writing anything.")
	strictFlag := flagSet.Bool("strict", false, "Fail the build when it produces warnings.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	switch {
	case *descriptorFlag != "":
		path = *descriptorFlag
	case *dFlag != "":
		path = *dFlag
	case flagSet.NArg() > 0:
		path = flagSet.Arg(0)
	}
	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: ExitUsage, Message: fmt.Sprintf("unexpected arguments: %v", flagSet.Args()[1:])}
	}
	slog.Debug("Descriptor path determined.", "path", path)

	if path == "" {
		slog.Debug("No descriptor path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		DescriptorPath: path,
		OutputDir:      *outFlag,
		EnvFile:        *envFileFlag,
		Vars:           vars,
		DryRun:         *dryRunFlag,
		Strict:         *strictFlag,
		LogFormat:      logFormat,
		LogLevel:       logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

// FromRunError converts a failure of app.Run into an ExitError. Descriptor
// and invocation problems exit with ExitUsage; build failures exit with
// ExitBuild.
func FromRunError(err error) *ExitError {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	var cfgErr *app.ConfigError
	if errors.As(err, &cfgErr) {
		return &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	return &ExitError{Code: ExitBuild, Message: err.Error()}
}
