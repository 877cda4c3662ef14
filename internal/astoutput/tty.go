package astoutput

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// IsTTY reports whether w is a terminal file descriptor, grounded on
// the teacher's ui.IsTTY (os.File type assertion + isatty probe, since
// isatty only accepts a raw fd).
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectNoColor reports whether the NO_COLOR convention is active.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// ciEnvVars are environment variables whose presence signals the
// process is running in a CI pipeline rather than an interactive shell.
var ciEnvVars = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}

// DetectCI reports whether any known CI environment variable is set.
func DetectCI() bool {
	for _, v := range ciEnvVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}

// ShouldUsePlain reports whether cfg's output warrants the plain
// renderer rather than an interactive dashboard: output forced plain,
// not a TTY, or running under CI.
func ShouldUsePlain(cfg Config) bool {
	return cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI()
}
