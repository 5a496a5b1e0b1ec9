package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "package.json", cfg.Manifest)
	assert.Equal(t, "src/app.module.ts", cfg.ModuleIndex)
	assert.Equal(t, time.Hour, cfg.Jobs.Retention)
	assert.Equal(t, 5*time.Minute, cfg.Jobs.SweepInterval)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.TemplatesDir)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "roost.yaml"), []byte(`
templates_dir: ./pack
server:
  addr: ":9000"
jobs:
  retention: 30m
log:
  level: debug
`), 0o644))
	t.Setenv("ROOST_SERVER_ADDR", ":9100")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "./pack", cfg.TemplatesDir)
	assert.Equal(t, ":9100", cfg.Server.Addr)
	assert.Equal(t, 30*time.Minute, cfg.Jobs.Retention)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	assert.Error(t, err)
}

func TestLoad_InvalidLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roost.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud\n"), 0o644))

	_, err := Load(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")
}

func TestBuilderOptions(t *testing.T) {
	cfg := &Config{Manifest: "package.json", ModuleIndex: "src/main.module.ts"}

	opts := cfg.BuilderOptions()

	assert.Equal(t, "src/main.module.ts", opts.ModuleIndexPath)
}
