package gitignore

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type matchCase struct {
	desc    string
	pattern string
	path    string
	dir     bool
	ignored bool
}

func runMatchCases(t *testing.T, cases []matchCase) {
	t.Helper()
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			m := New()
			m.AddPattern(c.pattern)
			assert.Equal(t, c.ignored, m.Match(c.path, c.dir))
		})
	}
}

func TestMatch_PlainNames(t *testing.T) {
	runMatchCases(t, []matchCase{
		{desc: "exact name at root", pattern: "config.yaml", path: "config.yaml", ignored: true},
		{desc: "exact name mismatch", pattern: "config.yaml", path: "settings.yaml", ignored: false},
		{desc: "name under one dir", pattern: "config.yaml", path: "app/config.yaml", ignored: true},
		{desc: "name under many dirs", pattern: "config.yaml", path: "a/b/c/d/config.yaml", ignored: true},
	})
}

func TestMatch_Wildcards(t *testing.T) {
	runMatchCases(t, []matchCase{
		{desc: "suffix star on extension", pattern: "*.out", path: "result.out", ignored: true},
		{desc: "suffix star nested", pattern: "*.out", path: "bin/result.out", ignored: true},
		{desc: "suffix star wrong ext", pattern: "*.out", path: "result.bin", ignored: false},
		{desc: "suffix star other ext", pattern: "*.o", path: "main.o", ignored: true},
		{desc: "prefix star hit", pattern: "spec_*", path: "spec_helper.go", ignored: true},
		{desc: "prefix star hit underscore", pattern: "spec_*", path: "spec_runner.go", ignored: true},
		{desc: "prefix star miss", pattern: "spec_*", path: "runner.go", ignored: false},
		{desc: "single char hit digit", pattern: "v?.txt", path: "v1.txt", ignored: true},
		{desc: "single char hit letter", pattern: "v?.txt", path: "vA.txt", ignored: true},
		{desc: "single char miss two digits", pattern: "v?.txt", path: "v12.txt", ignored: false},
	})
}

func TestMatch_DoubleStar(t *testing.T) {
	runMatchCases(t, []matchCase{
		{desc: "leading doublestar dir at root", pattern: "**/vendor", path: "vendor", dir: true, ignored: true},
		{desc: "leading doublestar dir nested", pattern: "**/vendor", path: "libs/pkg/vendor", dir: true, ignored: true},
		{desc: "leading doublestar file at root", pattern: "**/cache", path: "cache", ignored: true},
		{desc: "leading doublestar file nested", pattern: "**/cache", path: "x/y/cache", ignored: true},
		{desc: "trailing doublestar inside", pattern: "tmp/**", path: "tmp/scratch.dat", ignored: true},
		{desc: "trailing doublestar deep inside", pattern: "tmp/**", path: "tmp/2026/q1/scratch.dat", ignored: true},
		{desc: "trailing doublestar outside prefix", pattern: "tmp/**", path: "other/tmp/scratch.dat", ignored: false},
		{desc: "middle doublestar extension at root", pattern: "**/*.out", path: "result.out", ignored: true},
		{desc: "middle doublestar extension nested", pattern: "**/*.out", path: "run/result.out", ignored: true},
		{desc: "middle doublestar extension deep", pattern: "**/*.out", path: "p/q/r/s/result.out", ignored: true},
		{desc: "middle doublestar extension miss", pattern: "**/*.out", path: "result.bin", ignored: false},
		{desc: "sandwiched doublestar zero gap", pattern: "x/**/y", path: "x/y", ignored: true},
		{desc: "sandwiched doublestar one gap", pattern: "x/**/y", path: "x/m/y", ignored: true},
		{desc: "sandwiched doublestar two gaps", pattern: "x/**/y", path: "x/m/n/y", ignored: true},
		{desc: "sandwiched doublestar wrong prefix", pattern: "x/**/y", path: "z/m/y", ignored: false},
	})
}

func TestMatch_Anchored(t *testing.T) {
	runMatchCases(t, []matchCase{
		{desc: "anchored dir at root", pattern: "/out", path: "out", dir: true, ignored: true},
		{desc: "anchored dir not when nested", pattern: "/out", path: "pkg/out", dir: true, ignored: false},
		{desc: "anchored dir slash form at root", pattern: "/scratch/", path: "scratch", dir: true, ignored: true},
		{desc: "anchored dir slash form nested", pattern: "/scratch/", path: "pkg/scratch", dir: true, ignored: false},
		{desc: "anchored file at root", pattern: "/settings.json", path: "settings.json", ignored: true},
		{desc: "anchored file nested", pattern: "/settings.json", path: "pkg/settings.json", ignored: false},
	})
}

func TestMatch_Negation(t *testing.T) {
	cases := []struct {
		desc     string
		patterns []string
		path     string
		dir      bool
		ignored  bool
	}{
		{
			desc:     "single negation rescues one file",
			patterns: []string{"*.out", "!keep.out"},
			path:     "keep.out",
			ignored:  false,
		},
		{
			desc:     "negation leaves siblings ignored",
			patterns: []string{"*.out", "!keep.out"},
			path:     "scratch.out",
			ignored:  true,
		},
		{
			desc:     "stacked negations rescue multiple extensions",
			patterns: []string{"*", "!*.go", "!*.md"},
			path:     "runner.go",
			ignored:  false,
		},
		{
			desc:     "negation applies within ignored directory",
			patterns: []string{"out/", "!out/keep/"},
			path:     "out/keep",
			dir:      true,
			ignored:  false,
		},
		{
			desc:     "a later pattern re-ignores after negation",
			patterns: []string{"*.out", "!keep.out", "keep.out.bak"},
			path:     "keep.out.bak",
			ignored:  true,
		},
	}

	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			m := New()
			for _, p := range c.patterns {
				m.AddPattern(p)
			}
			assert.Equal(t, c.ignored, m.Match(c.path, c.dir))
		})
	}
}

func TestMatch_DirectoryOnly(t *testing.T) {
	runMatchCases(t, []matchCase{
		{desc: "trailing slash matches dir", pattern: "out/", path: "out", dir: true, ignored: true},
		{desc: "trailing slash rejects file", pattern: "out/", path: "out", dir: false, ignored: false},
		{desc: "trailing slash matches nested dir", pattern: "scratch/", path: "pkg/scratch", dir: true, ignored: true},
		{desc: "trailing slash rejects nested file", pattern: "scratch/", path: "pkg/scratch", dir: false, ignored: false},
		{desc: "bare name matches dir form", pattern: "out", path: "out", dir: true, ignored: true},
		{desc: "bare name matches file form too", pattern: "out", path: "out", dir: false, ignored: true},
		{desc: "wildcard dir pattern matches dir", pattern: "stage*/", path: "stage9", dir: true, ignored: true},
		{desc: "wildcard dir pattern rejects file", pattern: "stage*/", path: "stage9", dir: false, ignored: false},
	})
}

func TestMatch_NestedBase(t *testing.T) {
	cases := []struct {
		desc    string
		pattern string
		base    string
		path    string
		ignored bool
	}{
		{desc: "base-less pattern applies everywhere", pattern: "*.cache", base: "", path: "pkg/data.cache", ignored: true},
		{desc: "scoped pattern matches under its base", pattern: "*.gen.go", base: "pkg", path: "pkg/types.gen.go", ignored: true},
		{desc: "scoped pattern does not leak to root", pattern: "*.gen.go", base: "pkg", path: "types.gen.go", ignored: false},
	}

	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			m := New()
			m.AddPatternWithBase(c.pattern, c.base)
			assert.Equal(t, c.ignored, m.Match(c.path, false))
		})
	}

	t.Run("combining root and scoped patterns", func(t *testing.T) {
		m := New()
		m.AddPatternWithBase("*.cache", "")
		m.AddPatternWithBase("build/", "pkg")
		assert.True(t, m.Match("anything.cache", false))
	})
}

func TestParse_EdgeCases(t *testing.T) {
	cases := []struct {
		desc  string
		line  string
		rules int
	}{
		{desc: "blank line contributes nothing", line: "", rules: 0},
		{desc: "whitespace-only line contributes nothing", line: "\t  ", rules: 0},
		{desc: "comment line contributes nothing", line: "# note to self", rules: 0},
		{desc: "ordinary pattern contributes one rule", line: "*.out", rules: 1},
		{desc: "trailing whitespace is trimmed", line: "*.out   ", rules: 1},
		{desc: "leading whitespace is trimmed", line: "   *.out", rules: 1},
	}

	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			m := New()
			m.AddPattern(c.line)
			assert.Equal(t, c.rules, len(m.rules))
		})
	}
}

func TestMatch_EscapedLeadingHash(t *testing.T) {
	m := New()
	m.AddPattern(`\#release`)

	assert.True(t, m.Match("#release", false))
	assert.False(t, m.Match("release", false))
}

func TestMatch_EscapedLeadingBang(t *testing.T) {
	m := New()
	m.AddPattern(`\!release`)

	assert.True(t, m.Match("!release", false))
}

func TestMatch_EscapedTrailingSpace(t *testing.T) {
	m := New()
	m.AddPattern(`artifact\ `)

	assert.True(t, m.Match("artifact ", false))
	assert.False(t, m.Match("artifact", false))
}

func TestMatch_RegressionAnchoredDirWithinPath(t *testing.T) {
	m := New()
	m.AddPattern("pkg/scratch/")
	m.AddPattern("internal/hidden/")

	assert.True(t, m.Match("pkg/scratch/note.go", false))
	assert.True(t, m.Match("pkg/scratch", true))
	assert.True(t, m.Match("internal/hidden/secret.go", false))

	assert.False(t, m.Match("pkg/other.go", false))
	assert.False(t, m.Match("other/scratch/file.go", false))
}

func TestMatch_RegressionRootAnchor(t *testing.T) {
	m := New()
	m.AddPattern("/out/")

	assert.True(t, m.Match("out", true))
	assert.True(t, m.Match("out/artifact.go", false))

	assert.False(t, m.Match("pkg/out", true))
	assert.False(t, m.Match("pkg/out/artifact.go", false))
}

func TestMatch_RegressionDoubleStarFromRoot(t *testing.T) {
	m := New()
	m.AddPattern("**/build/")
	m.AddPattern("**/logs/*.out")

	assert.True(t, m.Match("build", true))
	assert.True(t, m.Match("build/artifact.go", false))
	assert.True(t, m.Match("pkg/build", true))
	assert.True(t, m.Match("pkg/build/artifact.go", false))
	assert.True(t, m.Match("logs/run.out", false))
	assert.True(t, m.Match("pkg/logs/run.out", false))

	assert.False(t, m.Match("logs/run.txt", false))
}

func TestMatcher_AddFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	gitignorePath := filepath.Join(tmpDir, ".gitignore")

	content := `# deps
*.out
!keep.out

# build
build/
/scratch/
`
	require.NoError(t, os.WriteFile(gitignorePath, []byte(content), 0o644))

	m := New()
	require.NoError(t, m.AddFromFile(gitignorePath, ""))

	assert.Equal(t, 4, len(m.rules))

	assert.True(t, m.Match("result.out", false))
	assert.False(t, m.Match("keep.out", false))
	assert.True(t, m.Match("build", true))
	assert.True(t, m.Match("scratch", true))
	assert.False(t, m.Match("pkg/scratch", true))
}

func TestMatcher_AddFromFile_Missing(t *testing.T) {
	m := New()
	assert.Error(t, m.AddFromFile("/does/not/exist/.gitignore", ""))
}

func TestMatcher_AddFromFile_ScopedToBase(t *testing.T) {
	tmpDir := t.TempDir()

	pkgDir := filepath.Join(tmpDir, "pkg")
	require.NoError(t, os.MkdirAll(pkgDir, 0o755))
	gitignorePath := filepath.Join(pkgDir, ".gitignore")

	content := `*.gen.go
scratch/
`
	require.NoError(t, os.WriteFile(gitignorePath, []byte(content), 0o644))

	m := New()
	require.NoError(t, m.AddFromFile(gitignorePath, "pkg"))

	assert.True(t, m.Match("pkg/types.gen.go", false))
	assert.True(t, m.Match("pkg/scratch", true))

	assert.False(t, m.Match("types.gen.go", false))
	assert.False(t, m.Match("scratch", true))
}

func TestMatcher_ConcurrentReadWrite(t *testing.T) {
	m := New()
	m.AddPattern("*.out")
	m.AddPattern("scratch/")

	var wg sync.WaitGroup
	const readers = 12
	const reads = 80

	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < reads; j++ {
				_ = m.Match("result.out", false)
				_ = m.Match("scratch", true)
				_ = m.Match("runner.go", false)
			}
		}()
	}

	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 8; j++ {
				m.AddPattern("*.bak")
			}
		}()
	}

	wg.Wait()
}

func TestMatch_FullProjectIgnoreFile(t *testing.T) {
	m := New()

	for _, p := range []string{
		"# Dependencies",
		"node_modules/",
		"vendor/",
		"",
		"# Build outputs",
		"dist/",
		"out/",
		"*.min.js",
		"*.min.css",
		"",
		"# Logs",
		"*.out",
		"logs/",
		"!keep.out",
		"",
		"# Editor",
		".idea/",
		".vscode/",
		"*.swp",
		"",
		"# OS noise",
		".DS_Store",
		"Thumbs.db",
		"",
		"# Project specific",
		"/local.settings.json",
		"**/scratch/",
		"**/*.gen.go",
	} {
		m.AddPattern(p)
	}

	assert.True(t, m.Match("node_modules", true))
	assert.True(t, m.Match("node_modules/left-pad/index.js", false))
	assert.True(t, m.Match("vendor", true))

	assert.True(t, m.Match("dist", true))
	assert.True(t, m.Match("dist/bundle.js", false))
	assert.True(t, m.Match("app.min.js", false))
	assert.True(t, m.Match("theme.min.css", false))

	assert.True(t, m.Match("run.out", false))
	assert.True(t, m.Match("logs", true))
	assert.False(t, m.Match("keep.out", false))

	assert.True(t, m.Match(".idea", true))
	assert.True(t, m.Match(".vscode", true))
	assert.True(t, m.Match("main.go.swp", false))

	assert.True(t, m.Match(".DS_Store", false))
	assert.True(t, m.Match("Thumbs.db", false))

	assert.True(t, m.Match("local.settings.json", false))
	assert.False(t, m.Match("pkg/local.settings.json", false))
	assert.True(t, m.Match("scratch", true))
	assert.True(t, m.Match("pkg/scratch", true))
	assert.True(t, m.Match("types.gen.go", false))
	assert.True(t, m.Match("internal/models/user.gen.go", false))

	assert.False(t, m.Match("main.go", false))
	assert.False(t, m.Match("pkg/app.ts", false))
	assert.False(t, m.Match("README.md", false))
	assert.False(t, m.Match("go.mod", false))
}

func TestMatch_GitDocExamples(t *testing.T) {
	cases := []struct {
		desc     string
		patterns []string
		path     string
		dir      bool
		ignored  bool
	}{
		{desc: "hello.* matches hello.txt", patterns: []string{"hello.*"}, path: "hello.txt", ignored: true},
		{desc: "foo/ matches foo as a directory", patterns: []string{"foo/"}, path: "foo", dir: true, ignored: true},
		{desc: "foo/ does not match foo as a file", patterns: []string{"foo/"}, path: "foo", dir: false, ignored: false},
		{desc: "doc/frotz/ matches only that exact directory", patterns: []string{"doc/frotz/"}, path: "doc/frotz", dir: true, ignored: true},
		{desc: "doc/frotz/ does not match a deeper doc/frotz", patterns: []string{"doc/frotz/"}, path: "a/doc/frotz", dir: true, ignored: false},
		{desc: "frotz/ matches frotz at any depth", patterns: []string{"frotz/"}, path: "a/b/frotz", dir: true, ignored: true},
	}

	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			m := New()
			for _, p := range c.patterns {
				m.AddPattern(p)
			}
			assert.Equal(t, c.ignored, m.Match(c.path, c.dir), "path=%s dir=%v", c.path, c.dir)
		})
	}
}

func TestParsePatterns(t *testing.T) {
	cases := []struct {
		desc     string
		content  string
		expected []string
	}{
		{desc: "empty input", content: "", expected: nil},
		{desc: "only comments", content: "# a\n# b\n", expected: nil},
		{desc: "only whitespace", content: " \n\t \n ", expected: nil},
		{
			desc:     "comments and blanks interleaved with patterns",
			content:  "# header\n*.out\n\nbuild/\n# note\nscratch/",
			expected: []string{"*.out", "build/", "scratch/"},
		},
		{desc: "escaped hash is kept as a pattern", content: `\#release`, expected: []string{`\#release`}},
		{
			desc:     "patterns are trimmed",
			content:  "  *.out  \n  build/  ",
			expected: []string{"*.out", "build/"},
		},
	}

	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			assert.Equal(t, c.expected, ParsePatterns(c.content))
		})
	}
}

func TestDiffPatterns(t *testing.T) {
	t.Run("only additions", func(t *testing.T) {
		added, removed := DiffPatterns("*.out\nbuild/", "*.out\nbuild/\n*.tmp\nvendor/")
		assert.ElementsMatch(t, []string{"*.tmp", "vendor/"}, added)
		assert.Empty(t, removed)
	})

	t.Run("only removals", func(t *testing.T) {
		added, removed := DiffPatterns("*.out\nbuild/\n*.tmp\nvendor/", "*.out\nbuild/")
		assert.Empty(t, added)
		assert.ElementsMatch(t, []string{"*.tmp", "vendor/"}, removed)
	})

	t.Run("addition and removal together", func(t *testing.T) {
		added, removed := DiffPatterns("*.out\nbuild/\nstale-pattern", "*.out\nbuild/\nfresh-pattern")
		assert.ElementsMatch(t, []string{"fresh-pattern"}, added)
		assert.ElementsMatch(t, []string{"stale-pattern"}, removed)
	})

	t.Run("identical content yields no diff", func(t *testing.T) {
		content := "*.out\nbuild/"
		added, removed := DiffPatterns(content, content)
		assert.Empty(t, added)
		assert.Empty(t, removed)
	})

	t.Run("comment-only edits yield no diff", func(t *testing.T) {
		added, removed := DiffPatterns("# old note\n*.out", "# new note\n# extra note\n*.out")
		assert.Empty(t, added)
		assert.Empty(t, removed)
	})

	t.Run("from empty to populated", func(t *testing.T) {
		added, removed := DiffPatterns("", "*.out\nbuild/")
		assert.ElementsMatch(t, []string{"*.out", "build/"}, added)
		assert.Empty(t, removed)
	})

	t.Run("from populated to empty", func(t *testing.T) {
		added, removed := DiffPatterns("*.out\nbuild/", "")
		assert.Empty(t, added)
		assert.ElementsMatch(t, []string{"*.out", "build/"}, removed)
	})
}

func TestMatchesAnyPattern(t *testing.T) {
	cases := []struct {
		desc     string
		path     string
		patterns []string
		expected bool
	}{
		{desc: "no patterns never matches", path: "any/file.go", patterns: nil, expected: false},
		{desc: "extension pattern matches", path: "logs/run.out", patterns: []string{"*.out"}, expected: true},
		{desc: "no pattern matches", path: "main.go", patterns: []string{"*.out", "*.tmp"}, expected: false},
		{desc: "directory pattern matches file beneath it", path: "build/output.js", patterns: []string{"build/"}, expected: true},
		{desc: "doublestar pattern matches nested dir", path: "src/vendor/lib/file.go", patterns: []string{"**/vendor/"}, expected: true},
		{desc: "a lone negation pattern does not match anything", path: "keep.out", patterns: []string{"!keep.out"}, expected: false},
		{desc: "first of several patterns matches", path: "cache/data.bin", patterns: []string{"cache/", "*.tmp"}, expected: true},
	}

	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			assert.Equal(t, c.expected, MatchesAnyPattern(c.path, c.patterns))
		})
	}
}
