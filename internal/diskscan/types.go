// Package diskscan discovers indexable files under a workspace root,
// honoring .gitignore and size/exclude rules, and classifies each by
// language and content type for the parser and pipeline stages.
package diskscan

import "time"

// ContentType broadly categorizes a discovered file.
type ContentType string

const (
	ContentTypeCode     ContentType = "code"
	ContentTypeMarkdown ContentType = "markdown"
	ContentTypeText     ContentType = "text"
	ContentTypeConfig   ContentType = "config"
)

// FileInfo describes one discovered file.
type FileInfo struct {
	Path        string // relative to the workspace root
	AbsPath     string
	Size        int64
	ModTime     time.Time
	ContentType ContentType
	Language    string // empty when DetectLanguage has no mapping
}

// DefaultMaxFileSize bounds how large a file may be before the scanner
// skips it to avoid memory exhaustion on accidental binary blobs.
const DefaultMaxFileSize int64 = 100 * 1024 * 1024

// Options configures a Scan.
type Options struct {
	RootDir          string
	ExcludePatterns  []string
	RespectGitignore bool
	Workers          int
	MaxFileSize      int64
	FollowSymlinks   bool
}

// Result is one entry streamed by Scan: either a discovered file or a
// per-path error that should not abort the rest of the walk.
type Result struct {
	File *FileInfo
	Err  error
	Path string
}
