package asterrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestASTError_ErrorMessage(t *testing.T) {
	err := New(KindValidation, "bad input")
	assert.Equal(t, "[validation] bad input", err.Error())

	cause := errors.New("boom")
	wrapped := Wrap(KindFilesystem, "could not read file", cause)
	assert.Contains(t, wrapped.Error(), "boom")
}

func TestASTError_Is(t *testing.T) {
	err := New(KindTimeout, "took too long")
	assert.True(t, errors.Is(err, &ASTError{Kind: KindTimeout}))
	assert.False(t, errors.Is(err, &ASTError{Kind: KindValidation}))
}

func TestASTError_WithDetailAndSuggestion(t *testing.T) {
	err := New(KindVectorStore, "dimension mismatch").
		WithDetail("expected", "768").
		WithDetail("got", "3").
		WithSuggestion("reindex with --force")

	require.Len(t, err.Suggestions, 1)
	assert.Equal(t, "768", err.Details["expected"])
	assert.Equal(t, "3", err.Details["got"])
}

func TestAsASTError(t *testing.T) {
	wrapped := errors.New("wrapped: " + New(KindGit, "not a repo").Error())
	_, ok := AsASTError(wrapped)
	assert.False(t, ok, "plain errors.New should not unwrap to ASTError")

	ae, ok := AsASTError(New(KindGit, "not a repo"))
	require.True(t, ok)
	assert.Equal(t, KindGit, ae.Kind)
}

func TestDefaultShouldRetry(t *testing.T) {
	assert.True(t, DefaultShouldRetry(New(KindTimeout, "slow")))
	assert.False(t, DefaultShouldRetry(New(KindValidation, "bad")))

	busy := New(KindFilesystem, "file busy").WithDetail("os_code", "EBUSY")
	assert.True(t, DefaultShouldRetry(busy))

	denied := New(KindFilesystem, "permission denied").WithDetail("os_code", "EACCES")
	assert.False(t, DefaultShouldRetry(denied))
}
