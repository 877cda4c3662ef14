package vectorize

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/weftcode/astindex/internal/asterrors"
)

// ProviderType selects which backend Factory builds.
type ProviderType string

const (
	ProviderOllama ProviderType = "ollama"
	ProviderStatic ProviderType = "static"
)

// registeredModels maps a known model ID to the provider and, for
// static models, the dimensionality to build it with. Unknown model
// IDs fail with a KindEmbedding error listing these names.
var registeredModels = map[string]struct {
	provider ProviderType
	dims     int
}{
	"ollama":          {ProviderOllama, 0},
	DefaultOllamaModel: {ProviderOllama, 0},
	"static":          {ProviderStatic, DefaultDimensions},
	"static256":       {ProviderStatic, 256},
	"static768":       {ProviderStatic, DefaultDimensions},
}

// ThermalConfig tunes the progressive-timeout behavior a backend
// applies under sustained load. Zero values fall back to the package
// defaults.
type ThermalConfig struct {
	TimeoutProgression     float64
	RetryTimeoutMultiplier float64
	InterBatchDelay        int // milliseconds
}

var globalThermalConfig ThermalConfig

// SetThermalConfig overrides the process-wide thermal tuning applied
// to newly constructed embedders.
func SetThermalConfig(cfg ThermalConfig) {
	globalThermalConfig = cfg
}

// FactoryOptions configures Factory.NewEmbedder.
type FactoryOptions struct {
	// Model is a registered model ID, or empty to use the
	// ASTINDEX_EMBEDDER env var or "static".
	Model string
	// CacheSize enables an LRU cache in front of the backend when > 0.
	// 0 reads ASTINDEX_EMBEDDER_CACHE_SIZE and disables caching when that
	// is unset or 0; a negative value selects DefaultCacheSize.
	CacheSize int
	Ollama    OllamaConfig
}

const envEmbedderModel = "ASTINDEX_EMBEDDER"
const envEmbedderCacheSize = "ASTINDEX_EMBEDDER_CACHE_SIZE"

// NewEmbedder builds the Embedder named by opts.Model (or the
// ASTINDEX_EMBEDDER env var, or "static" if neither is set). Unknown
// model IDs return a KindEmbedding *asterrors.ASTError suggesting the
// registered names.
func NewEmbedder(ctx context.Context, opts FactoryOptions) (Embedder, error) {
	model := opts.Model
	if model == "" {
		model = os.Getenv(envEmbedderModel)
	}
	if model == "" {
		model = "static"
	}

	entry, ok := registeredModels[model]
	if !ok {
		names := make([]string, 0, len(registeredModels))
		for name := range registeredModels {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, asterrors.New(asterrors.KindEmbedding,
			fmt.Sprintf("unknown embedding model %q", model)).
			WithSuggestion("available models: " + strings.Join(names, ", "))
	}

	var backend Embedder
	switch entry.provider {
	case ProviderStatic:
		backend = NewStaticEmbedder(entry.dims)
	case ProviderOllama:
		cfg := opts.Ollama
		if cfg.Host == "" {
			cfg = DefaultOllamaConfig()
			cfg.Model = opts.Ollama.Model
			if cfg.Model == "" {
				cfg.Model = model
			}
		}
		applyThermalConfig(&cfg)
		ollama, err := NewOllamaEmbedder(ctx, cfg)
		if err != nil {
			return nil, asterrors.Wrap(asterrors.KindEmbedding, "start ollama embedder", err)
		}
		backend = ollama
	default:
		return nil, asterrors.New(asterrors.KindEmbedding, fmt.Sprintf("unhandled provider %q", entry.provider))
	}

	cacheSize := opts.CacheSize
	if cacheSize == 0 {
		if raw := os.Getenv(envEmbedderCacheSize); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil {
				cacheSize = n
			}
		}
	}
	if cacheSize == 0 {
		return backend, nil
	}

	cached, err := NewCachedEmbedder(backend, cacheSize)
	if err != nil {
		return nil, asterrors.Wrap(asterrors.KindEmbedding, "wrap embedder in cache", err)
	}
	return cached, nil
}

func applyThermalConfig(cfg *OllamaConfig) {
	if globalThermalConfig.TimeoutProgression > 0 {
		cfg.TimeoutProgression = globalThermalConfig.TimeoutProgression
	}
	if globalThermalConfig.RetryTimeoutMultiplier > 0 {
		cfg.RetryTimeoutMultiplier = globalThermalConfig.RetryTimeoutMultiplier
	}
	if globalThermalConfig.InterBatchDelay > 0 {
		cfg.InterBatchDelay = time.Duration(globalThermalConfig.InterBatchDelay) * time.Millisecond
	}
}
