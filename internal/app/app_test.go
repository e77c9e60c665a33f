package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/bundlego/internal/builderr"
	"github.com/vk/bundlego/internal/hcl"
	"github.com/vk/bundlego/internal/testutil"
)

const descriptor = `
variable "version" {
  default = "0.9.0"
}

application "heatcalc" {
  entry_point = "heatcalc.py"
}

data "tables" {
  source      = "tables/*.csv"
  destination = "tables"
}

data "tables_dup" {
  source      = "tables/*.csv"
  destination = "tables"
}

executable {
  name      = "heatcalc"
  icon      = "icon.png"
  version   = var.version
  target_os = lookup(env, "BUNDLE_TARGET_OS", "linux")
}
`

func newProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"bundle.hcl":       descriptor,
		"heatcalc.py":      "print('heat')\n",
		"icon.png":         testutil.PNG,
		"tables/steel.csv": "k\n50\n",
		"build.env":        "BUNDLE_TARGET_OS=darwin\n",
	})
	return root
}

func newTestApp(t *testing.T, cfg Config) (*App, *testutil.SafeBuffer) {
	t.Helper()
	cfg.LogLevel = "debug"
	validated, err := NewConfig(cfg)
	require.NoError(t, err)
	logs := &testutil.SafeBuffer{}
	a, err := NewApp(logs, validated, hcl.NewLoader())
	require.NoError(t, err)
	return a, logs
}

func TestApp_Run(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := newProject(t)
	out := filepath.Join(t.TempDir(), "dist")
	a, logs := newTestApp(t, Config{
		DescriptorPath: filepath.Join(root, "bundle.hcl"),
		OutputDir:      out,
		EnvFile:        filepath.Join(root, "build.env"),
		Vars:           map[string]string{"version": "1.0.0"},
	})

	// --- Act ---
	report, err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "heatcalc"), report.Output)
	assert.Equal(t, "1.0.0", report.Manifest.Version)
	assert.Equal(t, "k\n50\n", testutil.ReadFile(t, report.Output, "tables/steel.csv"))
	assert.Contains(t, testutil.ReadFile(t, report.Output, "launcher.json"), `"targetOS": "darwin"`)

	require.Len(t, report.Warnings, 1)
	var redundant *builderr.RedundantMappingWarning
	assert.True(t, errors.As(report.Warnings[0], &redundant))
	assert.Contains(t, logs.String(), "Build produced warnings.")
	assert.Contains(t, logs.String(), "Build finished.")
}

func TestApp_DryRun(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	out := filepath.Join(t.TempDir(), "dist")
	a, logs := newTestApp(t, Config{DescriptorPath: root, OutputDir: out, DryRun: true})

	report, err := a.Run(context.Background())

	require.NoError(t, err)
	assert.Nil(t, report.Manifest)
	assert.NoDirExists(t, out)
	assert.Contains(t, logs.String(), "Would copy data file.")
	assert.Contains(t, logs.String(), "Dry run finished; nothing written.")
}

func TestApp_DryRunStrict(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// The descriptor declares the tables mapping twice, which warns.
	root := newProject(t)
	out := filepath.Join(t.TempDir(), "dist")
	a, logs := newTestApp(t, Config{DescriptorPath: root, OutputDir: out, DryRun: true, Strict: true})

	// --- Act ---
	_, err := a.Run(context.Background())

	// --- Assert ---
	var strict *builderr.WarningsAsErrors
	require.True(t, errors.As(err, &strict), "expected WarningsAsErrors, got %v", err)
	var redundant *builderr.RedundantMappingWarning
	assert.True(t, errors.As(err, &redundant))
	assert.NoDirExists(t, out)
	assert.NotContains(t, logs.String(), "Dry run finished")
}

func TestApp_RunErrors(t *testing.T) {
	t.Parallel()

	t.Run("descriptor errors are config errors", func(t *testing.T) {
		t.Parallel()

		a, _ := newTestApp(t, Config{DescriptorPath: filepath.Join(t.TempDir(), "missing.hcl"), OutputDir: t.TempDir()})

		_, err := a.Run(context.Background())

		var cfgErr *ConfigError
		require.True(t, errors.As(err, &cfgErr), "expected ConfigError, got %v", err)
		assert.ErrorContains(t, err, "failed to load descriptor")
	})

	t.Run("missing env file is a config error", func(t *testing.T) {
		t.Parallel()

		root := newProject(t)
		a, _ := newTestApp(t, Config{DescriptorPath: root, OutputDir: t.TempDir(), EnvFile: filepath.Join(root, "nope.env")})

		_, err := a.Run(context.Background())

		var cfgErr *ConfigError
		assert.True(t, errors.As(err, &cfgErr), "expected ConfigError, got %v", err)
	})

	t.Run("build errors pass through", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		testutil.WriteFiles(t, root, map[string]string{"bundle.hcl": descriptor, "icon.png": testutil.PNG})
		a, _ := newTestApp(t, Config{DescriptorPath: root, OutputDir: t.TempDir()})

		_, err := a.Run(context.Background())

		var missing *builderr.MissingEntryPointError
		require.True(t, errors.As(err, &missing), "expected MissingEntryPointError, got %v", err)
		var cfgErr *ConfigError
		assert.False(t, errors.As(err, &cfgErr))
	})
}

func TestNewConfig(t *testing.T) {
	t.Parallel()

	_, err := NewConfig(Config{})
	assert.ErrorContains(t, err, "DescriptorPath is a required configuration field")

	cfg, err := NewConfig(Config{DescriptorPath: "bundle.hcl"})
	require.NoError(t, err)
	assert.Equal(t, DefaultOutputDir, cfg.OutputDir)
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	buf := &testutil.SafeBuffer{}
	logger := newLogger("warn", "json", buf)

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"key":"value"`)
}
