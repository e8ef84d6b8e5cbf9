package errors

// Build failure kinds. Decorated copies (WithContext, WrapError with the same
// category and message) still match these under errors.Is.
var (
	// ErrNoCommonRoot: paths span incompatible roots (different drives).
	ErrNoCommonRoot = NewError(CategoryPath, "no common root").Fatal().Build()

	// ErrBundleFailed: the bundling engine reported at least one error.
	ErrBundleFailed = NewError(CategoryBundle, "bundle failed").Fatal().Build()

	// ErrOutputNotFound: an output was read before its pass ran, or for an
	// input that was never registered.
	ErrOutputNotFound = NewError(CategorySchedule, "output not found").Fatal().Build()

	// ErrOutOfBoundReference: a reference escapes the source root.
	ErrOutOfBoundReference = NewError(CategoryDocument, "reference outside source root").Fatal().UserAction().Build()

	// ErrUnsupportedProtocol: a reference is not a local file. Callers skip it.
	ErrUnsupportedProtocol = NewError(CategoryDocument, "unsupported protocol").Info().Build()
)

// Wrap re-creates sentinel as a builder wrapping cause, keeping the sentinel's
// category, message, severity and retry strategy.
func Wrap(sentinel *ClassifiedError, cause error) *ErrorBuilder {
	return WrapError(cause, sentinel.category, sentinel.message).
		WithSeverity(sentinel.severity).
		WithRetry(sentinel.retry)
}
