package diskscan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/weftcode/astindex/internal/gitignore"
)

// Scanner walks a workspace directory tree, streaming discovered files
// while applying .gitignore and exclude-pattern filtering.
type Scanner struct{}

// New returns a Scanner.
func New() *Scanner { return &Scanner{} }

// Scan walks opts.RootDir and streams a Result per discovered file.
// The returned channel is closed once the walk (and any remaining
// classification work) completes or ctx is cancelled.
func (s *Scanner) Scan(ctx context.Context, opts Options) (<-chan Result, error) {
	rootDir := opts.RootDir
	if rootDir == "" {
		rootDir = "."
	}

	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve root directory: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path is not a directory: %s", absRoot)
	}

	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var matcher *gitignore.Matcher
	if opts.RespectGitignore {
		matcher = gitignore.New()
		_ = matcher.AddFromFile(filepath.Join(absRoot, ".gitignore"), "")
	}
	for _, p := range opts.ExcludePatterns {
		if matcher == nil {
			matcher = gitignore.New()
		}
		matcher.AddPattern(p)
	}

	paths := make(chan string, workers*4)
	results := make(chan Result, workers*4)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range paths {
				select {
				case <-ctx.Done():
					return
				default:
				}
				results <- s.classify(absRoot, path, maxSize)
			}
		}()
	}

	go func() {
		defer close(paths)
		_ = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				results <- Result{Path: path, Err: err}
				return nil
			}
			if ctx.Err() != nil {
				return fs.SkipAll
			}

			rel, relErr := filepath.Rel(absRoot, path)
			if relErr != nil {
				return nil
			}
			if rel == "." {
				return nil
			}

			isDir := d.IsDir()
			if matcher != nil && matcher.Match(rel, isDir) {
				if isDir {
					return fs.SkipDir
				}
				return nil
			}

			if isDir {
				if rel == ".git" || rel == ".astdb" {
					return fs.SkipDir
				}
				return nil
			}

			if !opts.FollowSymlinks {
				if lst, lerr := os.Lstat(path); lerr == nil && lst.Mode()&os.ModeSymlink != 0 {
					return nil
				}
			}

			paths <- rel
			return nil
		})
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	return results, nil
}

func (s *Scanner) classify(absRoot, rel string, maxSize int64) Result {
	absPath := filepath.Join(absRoot, rel)

	info, err := os.Stat(absPath)
	if err != nil {
		return Result{Path: rel, Err: fmt.Errorf("stat %s: %w", rel, err)}
	}

	if info.Size() > maxSize {
		return Result{Path: rel, Err: fmt.Errorf("file exceeds max size %d: %s", maxSize, rel)}
	}

	language := DetectLanguage(rel)
	contentType := DetectContentType(language, rel)

	return Result{File: &FileInfo{
		Path:        rel,
		AbsPath:     absPath,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		ContentType: contentType,
		Language:    language,
	}}
}
