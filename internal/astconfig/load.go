package astconfig

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/weftcode/astindex/internal/asterrors"
)

const (
	projectConfigYAML = ".astindex.yaml"
	projectConfigYML  = ".astindex.yml"
)

// UserConfigDir returns the directory holding the user/global config
// file, following the XDG Base Directory spec.
func UserConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "astindex")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "astindex")
	}
	return filepath.Join(home, ".config", "astindex")
}

// UserConfigPath returns the path to the user/global config file.
func UserConfigPath() string {
	return filepath.Join(UserConfigDir(), "config.yaml")
}

// Load builds a Config for the workspace rooted at dir, applying
// sources in order of increasing precedence:
//  1. Hardcoded defaults (New)
//  2. User/global config (UserConfigPath)
//  3. Project config (<dir>/.astindex.yaml or .yml)
//  4. Environment variable overrides (ASTINDEX_*)
// The result is validated before being returned.
func Load(dir string) (*Config, error) {
	cfg := New()

	if userCfg, err := loadIfExists(UserConfigPath()); err != nil {
		return nil, asterrors.Wrap(asterrors.KindConfiguration, "load user config", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	projectPath := projectConfigPath(dir)
	if projectPath != "" {
		projectCfg, err := loadIfExists(projectPath)
		if err != nil {
			return nil, asterrors.Wrap(asterrors.KindConfiguration, "load project config", err).
				WithDetail("path", projectPath)
		}
		if projectCfg != nil {
			cfg.mergeWith(projectCfg)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, asterrors.Wrap(asterrors.KindConfiguration, "validate config", err)
	}
	return cfg, nil
}

// projectConfigPath resolves which of .astindex.yaml/.yml exists in
// dir, preferring .yaml, or "" if neither does.
func projectConfigPath(dir string) string {
	yamlPath := filepath.Join(dir, projectConfigYAML)
	if fileExists(yamlPath) {
		return yamlPath
	}
	ymlPath := filepath.Join(dir, projectConfigYML)
	if fileExists(ymlPath) {
		return ymlPath
	}
	return ""
}

func loadIfExists(path string) (*Config, error) {
	if !fileExists(path) {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// mergeWith overlays other's non-zero fields onto c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if len(other.Paths.Include) > 0 {
		c.Paths.Include = other.Paths.Include
	}
	if len(other.Paths.Exclude) > 0 {
		c.Paths.Exclude = append(c.Paths.Exclude, other.Paths.Exclude...)
	}

	if other.Parse.MaxConcurrency != 0 {
		c.Parse.MaxConcurrency = other.Parse.MaxConcurrency
	}

	if other.Embed.Model != "" {
		c.Embed.Model = other.Embed.Model
	}
	if other.Embed.OllamaHost != "" {
		c.Embed.OllamaHost = other.Embed.OllamaHost
	}
	if other.Embed.BatchSize != 0 {
		c.Embed.BatchSize = other.Embed.BatchSize
	}
	if other.Embed.CacheSize != 0 {
		c.Embed.CacheSize = other.Embed.CacheSize
	}
	if other.Embed.InterBatchDelay != "" {
		c.Embed.InterBatchDelay = other.Embed.InterBatchDelay
	}
	if other.Embed.TimeoutProgression != 0 {
		c.Embed.TimeoutProgression = other.Embed.TimeoutProgression
	}
	if other.Embed.RetryTimeoutMultiplier != 0 {
		c.Embed.RetryTimeoutMultiplier = other.Embed.RetryTimeoutMultiplier
	}

	if other.Store.MaxElements != 0 {
		c.Store.MaxElements = other.Store.MaxElements
	}
	if other.Store.M != 0 {
		c.Store.M = other.Store.M
	}
	if other.Store.EfConstruction != 0 {
		c.Store.EfConstruction = other.Store.EfConstruction
	}
	if other.Store.Space != "" {
		c.Store.Space = other.Store.Space
	}
	if other.Store.SaveInterval != "" {
		c.Store.SaveInterval = other.Store.SaveInterval
	}

	if other.Watch.Debounce != "" {
		c.Watch.Debounce = other.Watch.Debounce
	}
	if other.Watch.BatchSize != 0 {
		c.Watch.BatchSize = other.Watch.BatchSize
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.Address != "" {
		c.Server.Address = other.Server.Address
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
	if other.Server.MaxConcurrentRequests != 0 {
		c.Server.MaxConcurrentRequests = other.Server.MaxConcurrentRequests
	}
	if other.Server.RequestQueueSize != 0 {
		c.Server.RequestQueueSize = other.Server.RequestQueueSize
	}
	if other.Server.RequestTimeout != "" {
		c.Server.RequestTimeout = other.Server.RequestTimeout
	}
	if other.Server.RateLimitPerSecond != 0 {
		c.Server.RateLimitPerSecond = other.Server.RateLimitPerSecond
	}
	if other.Server.RateLimitBurst != 0 {
		c.Server.RateLimitBurst = other.Server.RateLimitBurst
	}
	if other.Server.AuthToken != "" {
		c.Server.AuthToken = other.Server.AuthToken
	}
	if other.Server.MetricsAddress != "" {
		c.Server.MetricsAddress = other.Server.MetricsAddress
	}

	if other.Snapshot.StoragePath != "" {
		c.Snapshot.StoragePath = other.Snapshot.StoragePath
	}
	if other.Snapshot.CompressionLevel != 0 {
		c.Snapshot.CompressionLevel = other.Snapshot.CompressionLevel
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.Path != "" {
		c.Logging.Path = other.Logging.Path
	}
}

// applyEnvOverrides applies ASTINDEX_* environment variables, the
// highest-precedence configuration source.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ASTINDEX_EMBEDDER"); v != "" {
		c.Embed.Model = v
	}
	if v := os.Getenv("ASTINDEX_OLLAMA_HOST"); v != "" {
		c.Embed.OllamaHost = v
	}
	if v := os.Getenv("ASTINDEX_EMBEDDER_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Embed.CacheSize = n
		}
	}
	if v := os.Getenv("ASTINDEX_SERVER_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("ASTINDEX_SERVER_ADDRESS"); v != "" {
		c.Server.Address = v
	}
	if v := os.Getenv("ASTINDEX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
		c.Server.LogLevel = v
	}
	if v := os.Getenv("ASTINDEX_AUTH_TOKEN"); v != "" {
		c.Server.AuthToken = v
	}
	if v := os.Getenv("ASTINDEX_METRICS_ADDRESS"); v != "" {
		c.Server.MetricsAddress = v
	}
	if v := os.Getenv("ASTINDEX_DATA_DIR"); v != "" {
		c.Snapshot.StoragePath = v
	}
}

// Validate checks that the configuration's values are internally
// consistent, mirroring the teacher's DEBT-018 bounds-checking pass.
func (c *Config) Validate() error {
	if c.Store.M <= 0 || c.Store.M > 100 {
		return asterrors.New(asterrors.KindConfiguration, "store.m must be in [1,100]").
			WithDetail("value", strconv.Itoa(c.Store.M))
	}
	if c.Store.EfConstruction < c.Store.M {
		return asterrors.New(asterrors.KindConfiguration, "store.ef_construction must be >= store.m")
	}
	switch strings.ToLower(c.Store.Space) {
	case "cosine", "l2", "ip":
	default:
		return asterrors.New(asterrors.KindConfiguration,
			"store.space must be 'cosine', 'l2', or 'ip', got "+c.Store.Space)
	}

	switch strings.ToLower(c.Server.Transport) {
	case "unix", "tcp":
	default:
		return asterrors.New(asterrors.KindConfiguration,
			"server.transport must be 'unix' or 'tcp', got "+c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return asterrors.New(asterrors.KindConfiguration,
			"logging.level must be debug, info, warn, or error, got "+c.Logging.Level)
	}

	if c.Embed.BatchSize <= 0 {
		return asterrors.New(asterrors.KindConfiguration, "embed.batch_size must be positive")
	}
	if c.Server.RateLimitPerSecond <= 0 {
		return asterrors.New(asterrors.KindConfiguration, "server.rate_limit_per_second must be positive")
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
