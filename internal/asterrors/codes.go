// Package asterrors provides the structured error taxonomy used across
// astindex: a closed set of error kinds, each carrying context and
// user-directed suggestions, plus retry and circuit-breaker helpers for
// recovering from transient failures.
package asterrors

// Kind is the closed set of error categories surfaced by astindex.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindGit           Kind = "git"
	KindGlob          Kind = "glob"
	KindPath          Kind = "path"
	KindFilesystem    Kind = "filesystem"
	KindValidation    Kind = "validation"
	KindParser        Kind = "parser"
	KindEmbedding     Kind = "embedding"
	KindVectorStore   Kind = "vectorStore"
	KindProtocol      Kind = "protocol"
	KindTimeout       Kind = "timeout"
	KindUnknown       Kind = "unknown"
)

// retryableKinds are kinds that DefaultShouldRetry may treat as retryable.
var retryableKinds = map[Kind]bool{
	KindTimeout:    true,
	KindFilesystem: true,
}

// retryableOSCodes are filesystem error codes considered transient.
var retryableOSCodes = map[string]bool{
	"EAGAIN": true,
	"EBUSY":  true,
	"EMFILE": true,
}

// DefaultShouldRetry reports whether an error should be retried based on
// its kind and, for filesystem errors, its OS code detail.
func DefaultShouldRetry(err error) bool {
	ae, ok := AsASTError(err)
	if !ok {
		return false
	}
	if !retryableKinds[ae.Kind] {
		return false
	}
	if ae.Kind == KindFilesystem {
		code := ae.Details["os_code"]
		if code == "" {
			return false
		}
		return retryableOSCodes[code]
	}
	return true
}
