// Package astconfig loads and layers astindex's configuration, mirroring
// the teacher's internal/config shape: a typed Config struct, YAML file
// parsing, environment variable overrides, and a VCS-root-walk project
// root finder.
package astconfig

import "time"

// Config is the complete astindex configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Paths   PathsConfig   `yaml:"paths" json:"paths"`
	Parse   ParseConfig   `yaml:"parse" json:"parse"`
	Embed   EmbedConfig   `yaml:"embed" json:"embed"`
	Store   StoreConfig   `yaml:"store" json:"store"`
	Watch   WatchConfig   `yaml:"watch" json:"watch"`
	Server  ServerConfig  `yaml:"server" json:"server"`
	Snapshot SnapshotConfig `yaml:"snapshot" json:"snapshot"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// PathsConfig configures which paths a scan includes and excludes.
type PathsConfig struct {
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// ParseConfig configures C4's parse stage.
type ParseConfig struct {
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency"`
}

// EmbedConfig configures C6's embedding backend.
type EmbedConfig struct {
	// Model selects a registered vectorize model ID ("static", "ollama",
	// etc), or empty to auto-detect via the ASTINDEX_EMBEDDER env var.
	Model     string `yaml:"model" json:"model"`
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	BatchSize int    `yaml:"batch_size" json:"batch_size"`
	CacheSize int    `yaml:"cache_size" json:"cache_size"`

	InterBatchDelay        string  `yaml:"inter_batch_delay" json:"inter_batch_delay"`
	TimeoutProgression     float64 `yaml:"timeout_progression" json:"timeout_progression"`
	RetryTimeoutMultiplier float64 `yaml:"retry_timeout_multiplier" json:"retry_timeout_multiplier"`
}

// StoreConfig configures C7's HNSW vector store.
type StoreConfig struct {
	MaxElements    int    `yaml:"max_elements" json:"max_elements"`
	M              int    `yaml:"m" json:"m"`
	EfConstruction int    `yaml:"ef_construction" json:"ef_construction"`
	Space          string `yaml:"space" json:"space"`
	AutoSave       bool   `yaml:"auto_save" json:"auto_save"`
	SaveInterval   string `yaml:"save_interval" json:"save_interval"`
}

// WatchConfig configures C8/C11's file watcher.
type WatchConfig struct {
	Debounce  string `yaml:"debounce" json:"debounce"`
	BatchSize int    `yaml:"batch_size" json:"batch_size"`
}

// ServerConfig configures C10's query server.
type ServerConfig struct {
	Transport             string  `yaml:"transport" json:"transport"`
	Address               string  `yaml:"address" json:"address"`
	LogLevel              string  `yaml:"log_level" json:"log_level"`
	MaxConcurrentRequests int     `yaml:"max_concurrent_requests" json:"max_concurrent_requests"`
	RequestQueueSize      int     `yaml:"request_queue_size" json:"request_queue_size"`
	RequestTimeout        string  `yaml:"request_timeout" json:"request_timeout"`
	RateLimitPerSecond    float64 `yaml:"rate_limit_per_second" json:"rate_limit_per_second"`
	RateLimitBurst        int     `yaml:"rate_limit_burst" json:"rate_limit_burst"`
	AuthToken             string  `yaml:"auth_token" json:"auth_token"`
	MetricsAddress        string  `yaml:"metrics_address" json:"metrics_address"`
}

// SnapshotConfig configures C9's snapshot packer.
type SnapshotConfig struct {
	StoragePath      string `yaml:"storage_path" json:"storage_path"`
	CompressionLevel int    `yaml:"compression_level" json:"compression_level"`
}

// LoggingConfig configures internal/astlog.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	Path  string `yaml:"path" json:"path"`
}

// defaultExcludePatterns are always excluded regardless of user config.
var defaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
	"**/.astdb/**",
	"**/*.min.js",
	"**/go.sum",
}

// New returns a Config populated with the reference defaults.
func New() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			Include: []string{},
			Exclude: defaultExcludePatterns,
		},
		Parse: ParseConfig{
			MaxConcurrency: 0, // 0 lets astparse.Orchestrator fall back to runtime.NumCPU
		},
		Embed: EmbedConfig{
			Model:                  "",
			OllamaHost:             "",
			BatchSize:              32,
			CacheSize:              1000,
			InterBatchDelay:        "",
			TimeoutProgression:     1.0,
			RetryTimeoutMultiplier: 1.0,
		},
		Store: StoreConfig{
			MaxElements:    100000,
			M:              16,
			EfConstruction: 200,
			Space:          "cosine",
			AutoSave:       true,
			SaveInterval:   "30s",
		},
		Watch: WatchConfig{
			Debounce:  "200ms",
			BatchSize: 50,
		},
		Server: ServerConfig{
			Transport:             "unix",
			LogLevel:              "info",
			MaxConcurrentRequests: 8,
			RequestQueueSize:      32,
			RequestTimeout:        "30s",
			RateLimitPerSecond:    50,
			RateLimitBurst:        100,
		},
		Snapshot: SnapshotConfig{
			CompressionLevel: 6,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// durationOrDefault parses s as a duration, falling back to def on a
// parse error or an empty string.
func durationOrDefault(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
