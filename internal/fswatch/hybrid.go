package fswatch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/weftcode/astindex/internal/gitignore"
)

// HybridWatcher watches with fsnotify when fsnotify.NewWatcher succeeds
// and falls back to pollingWatcher when it fails, debouncing either
// source through the same coalescing window before emitting batches.
// A failure to add directories to the fsnotify watcher is returned
// from Start; it does not switch to polling.
type HybridWatcher struct {
	fsWatcher   *fsnotify.Watcher
	pollWatcher *pollingWatcher
	useFsnotify bool

	debouncer *debouncer
	gitignore *gitignore.Matcher

	events chan []FileEvent
	errors chan error
	stopCh chan struct{}

	rootPath string
	opts     Options

	mu             sync.RWMutex
	stopped        bool
	droppedBatches atomic.Uint64
}

var _ Watcher = (*HybridWatcher)(nil)

// NewHybridWatcher builds a watcher, preferring fsnotify and falling
// back to polling if the OS refuses to create the fsnotify watcher.
func NewHybridWatcher(opts Options) (*HybridWatcher, error) {
	opts = opts.WithDefaults()

	h := &HybridWatcher{
		debouncer: newDebouncer(opts.DebounceWindow),
		gitignore: gitignore.New(),
		events:    make(chan []FileEvent, opts.EventBufferSize),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
		opts:      opts,
	}

	for _, pattern := range opts.IgnorePatterns {
		h.gitignore.AddPattern(pattern)
	}
	h.gitignore.AddPattern(".astdb/")
	h.gitignore.AddPattern(".astdb/**")

	if fsw, err := fsnotify.NewWatcher(); err == nil {
		h.fsWatcher = fsw
		h.useFsnotify = true
	} else {
		h.useFsnotify = false
		h.pollWatcher = newPollingWatcher(opts.PollInterval)
	}

	return h, nil
}

func (h *HybridWatcher) Start(ctx context.Context, root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	h.rootPath = absRoot

	h.loadGitignore()
	go h.forwardDebounced(ctx)

	if h.useFsnotify {
		return h.startFsnotify(ctx)
	}
	return h.startPolling(ctx)
}

func (h *HybridWatcher) startFsnotify(ctx context.Context) error {
	if err := h.addRecursive(h.rootPath); err != nil {
		return fmt.Errorf("add directories to watcher: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = h.Stop()
			return ctx.Err()
		case <-h.stopCh:
			return nil
		case event, ok := <-h.fsWatcher.Events:
			if !ok {
				return nil
			}
			h.handleFsnotifyEvent(event)
		case err, ok := <-h.fsWatcher.Errors:
			if !ok {
				return nil
			}
			h.emitError(err)
		}
	}
}

func (h *HybridWatcher) startPolling(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.stopCh:
				return
			case event, ok := <-h.pollWatcher.Events():
				if !ok {
					return
				}
				h.handlePollEvent(event)
			case err, ok := <-h.pollWatcher.Errors():
				if !ok {
					return
				}
				h.emitError(err)
			}
		}
	}()

	return h.pollWatcher.Start(ctx, h.rootPath)
}

func (h *HybridWatcher) handlePollEvent(event FileEvent) {
	if h.shouldIgnore(event.Path, event.IsDir) {
		return
	}
	if special := h.specialEvent(event.Path); special != nil {
		h.debouncer.add(*special)
		return
	}
	h.debouncer.add(event)
}

func (h *HybridWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	relPath, err := filepath.Rel(h.rootPath, event.Name)
	if err != nil {
		relPath = event.Name
	}

	isDir := false
	if info, statErr := os.Stat(event.Name); statErr == nil {
		isDir = info.IsDir()
	}

	if h.shouldIgnore(relPath, isDir) {
		return
	}

	if special := h.specialEvent(relPath); special != nil {
		h.debouncer.add(*special)
		return
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
		if isDir {
			_ = h.fsWatcher.Add(event.Name)
		}
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0:
		op = OpDelete
	case event.Op&fsnotify.Rename != 0:
		op = OpRename
	case event.Op&fsnotify.Chmod != 0:
		return
	default:
		return
	}

	h.debouncer.add(FileEvent{Path: relPath, Operation: op, IsDir: isDir, Timestamp: time.Now()})
}

// specialEvent returns a GitignoreChange/ConfigChange event when relPath
// names a file the pipeline must react to specially (reload ignore
// patterns, reload config), refreshing the gitignore matcher as a side
// effect. Returns nil for ordinary file changes.
func (h *HybridWatcher) specialEvent(relPath string) *FileEvent {
	base := filepath.Base(relPath)

	if base == ".gitignore" {
		h.loadGitignore()
		return &FileEvent{Path: relPath, Operation: OpGitignoreChange, Timestamp: time.Now()}
	}
	if base == ".astindex.yaml" || base == ".astindex.yml" {
		return &FileEvent{Path: relPath, Operation: OpConfigChange, Timestamp: time.Now()}
	}
	return nil
}

func (h *HybridWatcher) forwardDebounced(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stopCh:
			return
		case events, ok := <-h.debouncer.Output():
			if !ok {
				return
			}
			if len(events) == 0 {
				continue
			}
			h.emitEvents(events)
		}
	}
}

func (h *HybridWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		relPath, _ := filepath.Rel(h.rootPath, path)
		if relPath == "." {
			return h.fsWatcher.Add(path)
		}
		if h.shouldIgnoreDir(relPath) {
			return filepath.SkipDir
		}
		return h.fsWatcher.Add(path)
	})
}

func (h *HybridWatcher) shouldIgnoreDir(relPath string) bool {
	if strings.HasPrefix(relPath, ".git") || relPath == ".git" {
		return true
	}
	if strings.HasPrefix(relPath, ".astdb") || relPath == ".astdb" {
		return true
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.gitignore.Match(relPath, true)
}

func (h *HybridWatcher) shouldIgnore(relPath string, isDir bool) bool {
	if relPath == "." || relPath == "" {
		return true
	}
	if strings.HasPrefix(relPath, ".git/") || relPath == ".git" {
		return true
	}
	if strings.HasPrefix(relPath, ".astdb/") || relPath == ".astdb" {
		return true
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.gitignore.Match(relPath, isDir)
}

func (h *HybridWatcher) loadGitignore() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.gitignore = gitignore.New()
	for _, pattern := range h.opts.IgnorePatterns {
		h.gitignore.AddPattern(pattern)
	}
	h.gitignore.AddPattern(".astdb/")
	h.gitignore.AddPattern(".astdb/**")

	rootIgnore := filepath.Join(h.rootPath, ".gitignore")
	if err := h.gitignore.AddFromFile(rootIgnore, ""); err != nil && !os.IsNotExist(err) {
		slog.Warn("fswatch_root_gitignore_load_failed", slog.String("path", rootIgnore), slog.String("error", err.Error()))
	}

	_ = filepath.WalkDir(h.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("fswatch_gitignore_scan_skip", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if d.Name() == ".gitignore" && path != rootIgnore {
			base, _ := filepath.Rel(h.rootPath, filepath.Dir(path))
			if err := h.gitignore.AddFromFile(path, base); err != nil {
				slog.Warn("fswatch_nested_gitignore_load_failed", slog.String("path", path), slog.String("error", err.Error()))
			}
		}
		return nil
	})
}

func (h *HybridWatcher) emitEvents(events []FileEvent) {
	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()
	if stopped {
		return
	}

	select {
	case h.events <- events:
	default:
		count := h.droppedBatches.Add(1)
		slog.Warn("fswatch_event_buffer_full", slog.Int("batch_size", len(events)), slog.Uint64("total_dropped", count))
	}
}

func (h *HybridWatcher) emitError(err error) {
	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()
	if stopped {
		return
	}
	select {
	case h.errors <- err:
	default:
	}
}

func (h *HybridWatcher) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return nil
	}
	h.stopped = true
	close(h.stopCh)
	h.debouncer.Stop()

	if h.useFsnotify && h.fsWatcher != nil {
		_ = h.fsWatcher.Close()
	}
	if h.pollWatcher != nil {
		_ = h.pollWatcher.Stop()
	}

	close(h.events)
	close(h.errors)
	return nil
}

func (h *HybridWatcher) Events() <-chan []FileEvent { return h.events }
func (h *HybridWatcher) Errors() <-chan error        { return h.errors }

// WatcherType reports which backend is active, for diagnostics.
func (h *HybridWatcher) WatcherType() string {
	if h.useFsnotify {
		return "fsnotify"
	}
	return "polling"
}

// DroppedBatches reports how many event batches were dropped due to a
// full output buffer.
func (h *HybridWatcher) DroppedBatches() uint64 {
	return h.droppedBatches.Load()
}
