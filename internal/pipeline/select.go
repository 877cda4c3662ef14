package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/weftcode/astindex/internal/asterrors"
	"github.com/weftcode/astindex/internal/diskscan"
	"github.com/weftcode/astindex/internal/gitignore"
)

// Select resolves opts into the list of workspace-relative file paths a
// batch should operate on, grounded on the teacher's VCS-root-walk idiom
// (internal/config.FindProjectRoot) for detecting a usable git checkout.
func Select(ctx context.Context, opts SelectOptions) ([]string, error) {
	switch opts.Mode {
	case SelectChanged:
		return selectChanged(ctx, opts)
	case SelectStaged:
		return selectStaged(ctx, opts)
	case SelectGlob:
		return selectGlob(ctx, opts)
	case SelectConfig:
		return opts.ConfigPaths, nil
	default:
		return nil, asterrors.New(asterrors.KindValidation,
			fmt.Sprintf("unknown selection mode %q", opts.Mode))
	}
}

// isVCSWorkspace reports whether root is inside a git checkout, the
// precondition spec.md §4.C11 requires for --changed and --staged.
func isVCSWorkspace(root string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = root
	return cmd.Run() == nil
}

func requireVCS(root string) error {
	if !isVCSWorkspace(root) {
		return asterrors.New(asterrors.KindGit, "not a git workspace").
			WithDetail("rootPath", root).
			WithSuggestion("run from inside a git checkout, or use --glob/--config instead")
	}
	return nil
}

// selectChanged returns files that differ from opts.BaseRef (default
// HEAD), both staged and unstaged, via `git diff --name-only`.
func selectChanged(ctx context.Context, opts SelectOptions) ([]string, error) {
	if err := requireVCS(opts.RootPath); err != nil {
		return nil, err
	}
	base := opts.BaseRef
	if base == "" {
		base = "HEAD"
	}
	return runGitNameOnly(ctx, opts.RootPath, "diff", "--name-only", base)
}

// selectStaged returns files staged for commit via `git diff --name-only
// --cached`.
func selectStaged(ctx context.Context, opts SelectOptions) ([]string, error) {
	if err := requireVCS(opts.RootPath); err != nil {
		return nil, err
	}
	return runGitNameOnly(ctx, opts.RootPath, "diff", "--name-only", "--cached")
}

func runGitNameOnly(ctx context.Context, root string, args ...string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = root
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, asterrors.Wrap(asterrors.KindGit, "git "+strings.Join(args, " "), err).
			WithDetail("stderr", stderr.String())
	}

	var paths []string
	for _, line := range strings.Split(out.String(), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

// selectGlob scans the workspace and keeps paths matching opts.Glob,
// reusing the gitignore pattern matcher for glob syntax rather than
// introducing a second pattern-matching library.
func selectGlob(ctx context.Context, opts SelectOptions) ([]string, error) {
	if opts.Glob == "" {
		return nil, asterrors.New(asterrors.KindValidation, "glob selection requires a non-empty pattern")
	}

	matcher := gitignore.New()
	matcher.AddPattern(opts.Glob)

	scanner := diskscan.New()
	results, err := scanner.Scan(ctx, diskscan.Options{RootDir: opts.RootPath, RespectGitignore: true})
	if err != nil {
		return nil, asterrors.Wrap(asterrors.KindFilesystem, "scan for glob selection", err)
	}

	var matched []string
	for res := range results {
		if res.Err != nil || res.File == nil {
			continue
		}
		if matcher.Match(res.File.Path, false) {
			matched = append(matched, res.File.Path)
		}
	}
	return matched, nil
}

// AbsPaths resolves relative workspace paths against root.
func AbsPaths(root string, relPaths []string) []string {
	abs := make([]string, len(relPaths))
	for i, p := range relPaths {
		abs[i] = filepath.Join(root, p)
	}
	return abs
}
