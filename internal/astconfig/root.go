package astconfig

import (
	"path/filepath"
	"time"

	"github.com/weftcode/astindex/internal/asterrors"
)

// FindProjectRoot walks up from startDir looking for a .git directory
// or a .astindex.yaml/.yml file, returning the first directory that has
// one. If neither is found before reaching the filesystem root, it
// returns the absolute form of startDir unchanged.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", asterrors.Wrap(asterrors.KindPath, "resolve absolute path", err)
	}

	current := absDir
	for {
		if dirExists(filepath.Join(current, ".git")) {
			return current, nil
		}
		if fileExists(filepath.Join(current, projectConfigYAML)) || fileExists(filepath.Join(current, projectConfigYML)) {
			return current, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return absDir, nil
		}
		current = parent
	}
}

// WatchDebounce returns cfg's watch debounce as a time.Duration,
// falling back to 200ms on an unparsable value.
func (c *Config) WatchDebounce() time.Duration {
	return durationOrDefault(c.Watch.Debounce, 200*time.Millisecond)
}

// StoreSaveInterval returns cfg's vector store autosave interval as a
// time.Duration, falling back to 30s on an unparsable value.
func (c *Config) StoreSaveInterval() time.Duration {
	return durationOrDefault(c.Store.SaveInterval, 30*time.Second)
}

// ServerRequestTimeout returns cfg's per-request timeout as a
// time.Duration, falling back to 30s on an unparsable value.
func (c *Config) ServerRequestTimeout() time.Duration {
	return durationOrDefault(c.Server.RequestTimeout, 30*time.Second)
}

// EmbedInterBatchDelay returns cfg's inter-batch embedding delay as a
// time.Duration, defaulting to 0 (disabled) on an empty or unparsable
// value.
func (c *Config) EmbedInterBatchDelay() time.Duration {
	return durationOrDefault(c.Embed.InterBatchDelay, 0)
}
