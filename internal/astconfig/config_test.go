package astconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ReturnsValidDefaults(t *testing.T) {
	cfg := New()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "cosine", cfg.Store.Space)
	assert.Equal(t, "unix", cfg.Server.Transport)
}

func TestLoad_NoProjectConfigReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, New().Embed.BatchSize, cfg.Embed.BatchSize)
}

func TestLoad_ProjectYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	yamlContent := `
embed:
  model: ollama
  batch_size: 64
server:
  transport: tcp
  address: "127.0.0.1:9090"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".astindex.yaml"), []byte(yamlContent), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.Embed.Model)
	assert.Equal(t, 64, cfg.Embed.BatchSize)
	assert.Equal(t, "tcp", cfg.Server.Transport)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Address)
}

func TestLoad_YMLFallbackUsedWhenYAMLAbsent(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".astindex.yml"), []byte("logging:\n  level: debug\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverridesBeatProjectConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	yamlContent := "embed:\n  model: ollama\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".astindex.yaml"), []byte(yamlContent), 0o644))
	t.Setenv("ASTINDEX_EMBEDDER", "static")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "static", cfg.Embed.Model)
}

func TestLoad_InvalidConfigFailsValidation(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".astindex.yaml"), []byte("store:\n  space: euclidean\n"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
}

func TestFindProjectRoot_StopsAtGitDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := FindProjectRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, root, found)
}

func TestFindProjectRoot_StopsAtConfigFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".astindex.yaml"), []byte("version: 1\n"), 0o644))
	nested := filepath.Join(root, "x")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := FindProjectRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, root, found)
}

func TestFindProjectRoot_FallsBackToStartDirWhenNothingFound(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "isolated")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := FindProjectRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, nested, found)
}

func TestConfig_DurationHelpersFallBackOnUnparsableValues(t *testing.T) {
	cfg := New()
	cfg.Watch.Debounce = "not-a-duration"
	assert.Equal(t, 200*time.Millisecond, cfg.WatchDebounce())
}
