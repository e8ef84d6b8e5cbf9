package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "glace.yaml").
			Build()

		assert.Equal(t, CategoryConfig, err.Category())
		assert.Equal(t, SeverityFatal, err.Severity())
		assert.Equal(t, "invalid configuration", err.Message())

		file, ok := err.Context().GetString("file")
		require.True(t, ok)
		assert.Equal(t, "glace.yaml", file)
	})

	t.Run("Error detection through wrapping", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", ConfigError("test error").Build())

		assert.True(t, IsClassified(err))
		assert.True(t, HasCategory(err, CategoryConfig))
		assert.Equal(t, SeverityFatal, GetSeverity(err))
		assert.Equal(t, CategoryInternal, GetCategory(stderrors.New("plain")))
	})
}

func TestErrorBuilder(t *testing.T) {
	cause := stderrors.New("disk full")
	err := WrapError(cause, CategoryFileSystem, "write output").
		Warning().
		Retryable().
		WithContext("path", "/dst/index.html").
		Build()

	assert.Equal(t, SeverityWarning, err.Severity())
	assert.Equal(t, RetryBackoff, err.RetryStrategy())
	assert.True(t, err.CanRetry())
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "[filesystem:warning] write output: disk full")
}

func TestSentinels(t *testing.T) {
	decorated := ErrOutOfBoundReference.WithContext("reference", "../x.js")
	assert.ErrorIs(t, decorated, ErrOutOfBoundReference)
	assert.NotErrorIs(t, decorated, ErrUnsupportedProtocol)

	_, hasRef := ErrOutOfBoundReference.Context().Get("reference")
	assert.False(t, hasRef, "sentinel must not be mutated by WithContext")

	wrapped := fmt.Errorf("build: %w", Wrap(ErrBundleFailed, stderrors.New("syntax error")).Build())
	assert.ErrorIs(t, wrapped, ErrBundleFailed)
	classified, ok := AsClassified(wrapped)
	require.True(t, ok)
	assert.True(t, classified.IsFatal())

	assert.False(t, ErrUnsupportedProtocol.IsFatal())
}
