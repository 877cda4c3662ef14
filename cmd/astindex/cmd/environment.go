package cmd

import (
	"context"
	"os"

	"github.com/google/uuid"

	"github.com/weftcode/astindex/internal/annotate"
	"github.com/weftcode/astindex/internal/asterrors"
	"github.com/weftcode/astindex/internal/astconfig"
	"github.com/weftcode/astindex/internal/astschema"
	"github.com/weftcode/astindex/internal/indexstore"
	"github.com/weftcode/astindex/internal/pipeline"
	"github.com/weftcode/astindex/internal/vectorize"
	"github.com/weftcode/astindex/internal/vectorstore"
	"github.com/weftcode/astindex/internal/watchstate"
)

// environment bundles every long-lived dependency a subcommand needs,
// grounded on the teacher's per-command "open the stack, defer the
// close" pattern in cmd/amanmcp/cmd/index.go and search.go rather than
// a global singleton.
type environment struct {
	Root   string
	Config *astconfig.Config
	Layout *indexstore.Layout

	Embedder vectorize.Embedder
	Store    vectorstore.Store
	Metrics  *vectorstore.Metrics
	Watch    *watchstate.Manager

	Coordinator *pipeline.Coordinator
}

// openEnvironment resolves the workspace root from workspacePath (or
// the current directory), loads its config, and opens every C3-C8
// dependency the pipeline coordinator needs. Callers must call Close.
func openEnvironment(ctx context.Context, workspacePath string) (*environment, error) {
	root, err := resolveRoot(workspacePath)
	if err != nil {
		return nil, err
	}

	cfg, err := astconfig.Load(root)
	if err != nil {
		return nil, err
	}

	layout := indexstore.DefaultLayout(root)
	if !layout.Exists() {
		return nil, asterrors.New(asterrors.KindConfiguration, "workspace is not indexed").
			WithDetail("root", root).
			WithSuggestion("run 'astindex init' first")
	}

	embedder, err := vectorize.NewEmbedder(ctx, vectorize.FactoryOptions{
		Model:     cfg.Embed.Model,
		CacheSize: cfg.Embed.CacheSize,
		Ollama:    vectorize.OllamaConfig{Host: cfg.Embed.OllamaHost},
	})
	if err != nil {
		return nil, err
	}

	storeCfg := vectorstore.DefaultConfig(embedder.Dimensions(), layout.VectorsDBPath(), layout.HNSWIndexPath())
	storeCfg.M = cfg.Store.M
	storeCfg.EfConstruction = cfg.Store.EfConstruction
	storeCfg.MaxElements = cfg.Store.MaxElements
	storeCfg.Space = vectorstore.Space(cfg.Store.Space)
	storeCfg.AutoSave = cfg.Store.AutoSave
	storeCfg.SaveInterval = cfg.StoreSaveInterval()

	metrics := vectorstore.NewMetrics()
	store, err := vectorstore.Open(storeCfg, metrics)
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}

	watch, err := watchstate.Open(layout.WatchStatePath(), watchstate.WatchConfig{}, uuid.NewString())
	if err != nil {
		_ = store.Shutdown()
		_ = embedder.Close()
		return nil, err
	}

	registry := astschema.NewRegistry()
	classifier := astschema.NewClassifier(registry)

	coordinator := pipeline.NewCoordinator(pipeline.Dependencies{
		Layout:     layout,
		Registry:   registry,
		Classifier: classifier,
		Embedder:   embedder,
		Store:      store,
		Watch:      watch,
	})

	return &environment{
		Root:        root,
		Config:      cfg,
		Layout:      layout,
		Embedder:    embedder,
		Store:       store,
		Metrics:     metrics,
		Watch:       watch,
		Coordinator: coordinator,
	}, nil
}

// Close releases every dependency opened by openEnvironment, best
// effort: it attempts every close and returns the first error.
func (e *environment) Close() error {
	var firstErr error
	if err := e.Watch.Shutdown(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := e.Store.Shutdown(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := e.Embedder.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// resolveRoot returns the absolute workspace root for workspacePath,
// walking up from it (or the cwd) to find a VCS root or existing
// .astindex.yaml per astconfig.FindProjectRoot.
func resolveRoot(workspacePath string) (string, error) {
	start := workspacePath
	if start == "" {
		var err error
		start, err = os.Getwd()
		if err != nil {
			return "", asterrors.Wrap(asterrors.KindPath, "resolve working directory", err)
		}
	}
	return astconfig.FindProjectRoot(start)
}

// buildSelectOptions translates the shared --changed/--staged/--glob
// flag trio into a pipeline.SelectOptions, rejecting the combinations
// spec.md §6 forbids.
func buildSelectOptions(root string, changed, staged bool, glob, base string, configPaths []string) (pipeline.SelectOptions, error) {
	if changed && staged {
		return pipeline.SelectOptions{}, asterrors.New(asterrors.KindValidation, "--changed and --staged are mutually exclusive")
	}

	opts := pipeline.SelectOptions{RootPath: root, BaseRef: base}
	switch {
	case changed:
		opts.Mode = pipeline.SelectChanged
	case staged:
		opts.Mode = pipeline.SelectStaged
	case glob != "":
		opts.Mode = pipeline.SelectGlob
		opts.Glob = glob
	case len(configPaths) > 0:
		opts.Mode = pipeline.SelectConfig
		opts.ConfigPaths = configPaths
	default:
		opts.Mode = pipeline.SelectGlob
		opts.Glob = "**/*"
	}
	return opts, nil
}

func annotateModeName(mode annotate.Mode) string {
	if mode == "" {
		return string(annotate.ModeMissing)
	}
	return string(mode)
}
