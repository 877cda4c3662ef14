package watchstate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/weftcode/astindex/internal/asterrors"
)

const autoSaveInterval = 5 * time.Second

// Manager owns an in-memory State, persisting it to a JSON file on an
// auto-save ticker (grounded on the teacher's background-ticker idiom
// for periodic maintenance) plus a final flush on Shutdown. All public
// methods are safe for concurrent use.
type Manager struct {
	path string

	mu    sync.Mutex
	state State
	dirty bool

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Open loads path if it exists and is valid, otherwise starts a fresh
// session with the given config. A malformed or missing state file is
// never fatal: it is logged as a warning and a default state is used.
func Open(path string, cfg WatchConfig, sessionID string) (*Manager, error) {
	now := time.Now()
	state := defaultState(sessionID, cfg, now)

	if data, err := os.ReadFile(path); err == nil {
		loaded, verr := parseAndValidate(data)
		if verr != nil {
			slog.Warn("watch_state_invalid_using_default",
				slog.String("path", path), slog.String("error", verr.Error()))
		} else {
			loaded.Config = cfg
			loaded.LastRun = now
			state = loaded
		}
	} else if !os.IsNotExist(err) {
		slog.Warn("watch_state_read_failed_using_default",
			slog.String("path", path), slog.String("error", err.Error()))
	}

	m := &Manager{
		path:   path,
		state:  state,
		stopCh: make(chan struct{}),
	}
	return m, nil
}

// parseAndValidate decodes raw JSON and checks the minimal shape spec
// requires before trusting it: lastRun, files, and statistics must be
// present with the right kinds.
func parseAndValidate(data []byte) (State, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return State{}, fmt.Errorf("decode watch state: %w", err)
	}

	if _, ok := raw["lastRun"]; !ok {
		return State{}, fmt.Errorf("missing lastRun field")
	}
	if _, ok := raw["files"]; !ok {
		return State{}, fmt.Errorf("missing files field")
	}
	if _, ok := raw["statistics"]; !ok {
		return State{}, fmt.Errorf("missing statistics field")
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("decode watch state into struct: %w", err)
	}
	if state.Files == nil {
		state.Files = make(map[string]FileState)
	}
	return state, nil
}

// StartAutoSave launches the background ticker that flushes the state
// to disk every autoSaveInterval whenever it is dirty. Stop (via
// Shutdown) cancels the ticker and performs one final save.
func (m *Manager) StartAutoSave(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(autoSaveInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopCh:
				return
			case <-ticker.C:
				if err := m.saveIfDirty(); err != nil {
					slog.Warn("watch_state_autosave_failed", slog.String("error", err.Error()))
				}
			}
		}
	}()
}

// Shutdown stops the auto-save ticker and performs one final save.
func (m *Manager) Shutdown() error {
	var err error
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()
		err = m.Save()
	})
	return err
}

// hasFileChanged reports whether no state exists for path, or its
// stored content hash differs from sha256(content).
func (m *Manager) hasFileChanged(path string, content []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.state.Files[path]
	if !ok {
		return true
	}
	return existing.ContentHash != hashContent(content)
}

// HasFileChanged reads path from disk and reports whether its content
// hash differs from the stored one (or no state exists yet).
func (m *Manager) HasFileChanged(path string) (bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return false, asterrors.Wrap(asterrors.KindFilesystem, "read file for change detection", err).
			WithDetail("path", path)
	}
	return m.hasFileChanged(path, content), nil
}

// GetFilesToProcess classifies paths into changed/unchanged sets,
// incrementing FilesSkipped for each unchanged path.
func (m *Manager) GetFilesToProcess(paths []string) (FileSet, error) {
	var result FileSet

	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return FileSet{}, asterrors.Wrap(asterrors.KindFilesystem, "read file for change detection", err).
				WithDetail("path", path)
		}

		if m.hasFileChanged(path, content) {
			result.Changed = append(result.Changed, path)
			continue
		}

		result.Unchanged = append(result.Unchanged, path)
		m.mu.Lock()
		m.state.Statistics.FilesSkipped++
		m.dirty = true
		m.mu.Unlock()
	}

	return result, nil
}

// RecordSuccess marks path as successfully processed, merging the
// given stage bits into its StagesCompleted and updating the running
// average processing time.
func (m *Manager) RecordSuccess(path string, mask StageMask, dtMs float64) {
	content, err := os.ReadFile(path)
	hash := ""
	modTime := time.Now()
	if err == nil {
		hash = hashContent(content)
	}
	if info, statErr := os.Stat(path); statErr == nil {
		modTime = info.ModTime()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.state.Files[path]
	existing.FilePath = path
	existing.ContentHash = hash
	existing.LastModified = modTime
	existing.LastProcessed = time.Now()
	existing.Status = StatusSuccess
	existing.Error = ""
	if mask.Has(StageParsed) {
		existing.StagesCompleted.Parsed = true
	}
	if mask.Has(StageAnnotated) {
		existing.StagesCompleted.Annotated = true
	}
	if mask.Has(StageEmbedded) {
		existing.StagesCompleted.Embedded = true
	}
	m.state.Files[path] = existing

	m.state.Statistics.TotalChanges++
	m.state.Statistics.FilesProcessed++
	m.state.Statistics.TotalProcessingTime += dtMs
	m.state.Statistics.AvgProcessingTime =
		m.state.Statistics.TotalProcessingTime / float64(m.state.Statistics.FilesProcessed)

	m.dirty = true
}

// RecordError marks path as failed with the given message and
// increments the error counter.
func (m *Manager) RecordError(path string, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.state.Files[path]
	existing.FilePath = path
	existing.Status = StatusError
	existing.Error = message
	existing.LastProcessed = time.Now()
	m.state.Files[path] = existing

	m.state.Statistics.Errors++
	m.dirty = true
}

// Cleanup drops any tracked file not present in activePaths, returning
// the count removed.
func (m *Manager) Cleanup(activePaths []string) int {
	active := make(map[string]struct{}, len(activePaths))
	for _, p := range activePaths {
		active[p] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for path := range m.state.Files {
		if _, ok := active[path]; !ok {
			delete(m.state.Files, path)
			removed++
		}
	}
	if removed > 0 {
		m.dirty = true
	}
	return removed
}

// Save persists the current state unconditionally.
func (m *Manager) Save() error {
	m.mu.Lock()
	m.state.LastRun = time.Now()
	data, err := json.MarshalIndent(m.state, "", "  ")
	m.dirty = false
	m.mu.Unlock()

	if err != nil {
		return asterrors.Wrap(asterrors.KindValidation, "marshal watch state", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return asterrors.Wrap(asterrors.KindFilesystem, "create watch state directory", err)
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return asterrors.Wrap(asterrors.KindFilesystem, "write watch state temp file", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return asterrors.Wrap(asterrors.KindFilesystem, "rename watch state temp file", err)
	}
	return nil
}

func (m *Manager) saveIfDirty() error {
	m.mu.Lock()
	dirty := m.dirty
	m.mu.Unlock()

	if !dirty {
		return nil
	}
	return m.Save()
}

// Statistics returns a copy of the current running statistics.
func (m *Manager) Statistics() Statistics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Statistics
}

// FileCount returns the number of tracked files.
func (m *Manager) FileCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.Files)
}

func hashContent(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
