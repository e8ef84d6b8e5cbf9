// Package errors provides the classified error primitives used across glace.
//
// Every failure that crosses a package boundary is a ClassifiedError carrying a
// category, a severity and structured context. The build-level failure kinds
// (no common root, bundler failure, output not found, out-of-bound reference,
// unsupported protocol) are exposed as sentinels and matched with errors.Is,
// which compares category and message.
//
// Example usage:
//
//	err := errors.WrapError(cause, errors.CategoryBundle, "bundling pass failed").
//		Fatal().
//		WithContext("platform", "browser").
//		Build()
package errors
