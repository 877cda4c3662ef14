package fswatch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"
)

// pollingWatcher detects changes by periodically re-scanning the
// directory tree. Used as a fallback when fsnotify.NewWatcher fails.
type pollingWatcher struct {
	interval time.Duration
	rootPath string

	mu      sync.Mutex
	state   map[string]fileSnapshot
	events  chan FileEvent
	errors  chan error
	stopCh  chan struct{}
	stopped bool
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
	isDir   bool
}

func newPollingWatcher(interval time.Duration) *pollingWatcher {
	return &pollingWatcher{
		interval: interval,
		state:    make(map[string]fileSnapshot),
		events:   make(chan FileEvent, 100),
		errors:   make(chan error, 10),
		stopCh:   make(chan struct{}),
	}
}

func (p *pollingWatcher) Start(ctx context.Context, root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	p.rootPath = absRoot

	if err := p.scan(); err != nil {
		return fmt.Errorf("initial scan: %w", err)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			if err := p.detectChanges(); err != nil {
				select {
				case p.errors <- err:
				default:
				}
			}
		}
	}
}

func (p *pollingWatcher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}
	p.stopped = true
	close(p.stopCh)
	close(p.events)
	close(p.errors)
	return nil
}

func (p *pollingWatcher) Events() <-chan FileEvent { return p.events }
func (p *pollingWatcher) Errors() <-chan error      { return p.errors }

func (p *pollingWatcher) scan() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return filepath.WalkDir(p.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		relPath, err := filepath.Rel(p.rootPath, path)
		if err != nil || relPath == "." {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		p.state[relPath] = fileSnapshot{modTime: info.ModTime(), size: info.Size(), isDir: d.IsDir()}
		return nil
	})
}

func (p *pollingWatcher) detectChanges() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	current := make(map[string]fileSnapshot)

	err := filepath.WalkDir(p.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		relPath, err := filepath.Rel(p.rootPath, path)
		if err != nil || relPath == "." {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}

		snap := fileSnapshot{modTime: info.ModTime(), size: info.Size(), isDir: d.IsDir()}
		current[relPath] = snap

		if prev, exists := p.state[relPath]; !exists {
			p.emit(FileEvent{Path: relPath, Operation: OpCreate, IsDir: d.IsDir(), Timestamp: time.Now()})
		} else if prev.modTime != snap.modTime || prev.size != snap.size {
			p.emit(FileEvent{Path: relPath, Operation: OpModify, IsDir: d.IsDir(), Timestamp: time.Now()})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk directory for changes: %w", err)
	}

	for path, snap := range p.state {
		if _, exists := current[path]; !exists {
			p.emit(FileEvent{Path: path, Operation: OpDelete, IsDir: snap.isDir, Timestamp: time.Now()})
		}
	}

	p.state = current
	return nil
}

// emit must be called with p.mu held.
func (p *pollingWatcher) emit(event FileEvent) {
	if p.stopped {
		return
	}
	select {
	case p.events <- event:
	default:
		slog.Warn("fswatch_polling_buffer_full", slog.String("path", event.Path), slog.String("op", event.Operation.String()))
	}
}
