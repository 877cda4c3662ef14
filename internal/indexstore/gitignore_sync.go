package indexstore

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/weftcode/astindex/internal/gitignore"
)

// EnsureIgnored appends entries to the workspace's .gitignore under a
// single marker comment, unless every entry is already present as its
// own line. Returns true if the file was modified.
func EnsureIgnored(workspaceRoot string, marker string, entries []string) (bool, error) {
	gitignorePath := filepath.Join(workspaceRoot, ".gitignore")

	content, err := os.ReadFile(gitignorePath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("read .gitignore: %w", err)
	}

	if allEntriesPresent(string(content), entries) {
		return false, nil
	}

	lineEnding := "\n"
	if bytes.Contains(content, []byte("\r\n")) {
		lineEnding = "\r\n"
	}

	if len(content) > 0 && !bytes.HasSuffix(content, []byte("\n")) {
		content = append(content, []byte(lineEnding)...)
	}

	var block strings.Builder
	if len(content) > 0 {
		block.WriteString(lineEnding)
	}
	block.WriteString("# " + marker + lineEnding)
	for _, e := range entries {
		block.WriteString(e + lineEnding)
	}

	content = append(content, []byte(block.String())...)

	if err := os.WriteFile(gitignorePath, content, 0o644); err != nil {
		return false, fmt.Errorf("write .gitignore: %w", err)
	}

	return true, nil
}

// allEntriesPresent reports whether every entry already appears as an
// uncommented line in content.
func allEntriesPresent(content string, entries []string) bool {
	present := make(map[string]bool, len(entries))
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		present[line] = true
	}
	for _, e := range entries {
		if !present[e] {
			return false
		}
	}
	return true
}

// LoadIgnoreMatcher builds a gitignore.Matcher from the workspace's
// .gitignore plus any nested .gitignore files under dirs, each scoped
// to its containing directory relative to workspaceRoot.
func LoadIgnoreMatcher(workspaceRoot string, nestedDirs []string) (*gitignore.Matcher, error) {
	m := gitignore.New()

	rootIgnore := filepath.Join(workspaceRoot, ".gitignore")
	if _, err := os.Stat(rootIgnore); err == nil {
		if err := m.AddFromFile(rootIgnore, ""); err != nil {
			return nil, err
		}
	}

	for _, dir := range nestedDirs {
		nested := filepath.Join(workspaceRoot, dir, ".gitignore")
		if _, err := os.Stat(nested); err != nil {
			continue
		}
		if err := m.AddFromFile(nested, dir); err != nil {
			return nil, err
		}
	}

	return m, nil
}
