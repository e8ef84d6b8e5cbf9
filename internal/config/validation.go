package config

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	ferrors "github.com/hazae41/glace/internal/foundation/errors"
)

// Validate checks cross-field constraints after defaults are applied.
func (c *Config) Validate() error {
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryValidation, "invalid mode").Fatal().Build()
	}
	if _, err := ParseTraceExporter(string(c.Tracing.Exporter)); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryValidation, "invalid tracing exporter").Fatal().Build()
	}
	in, err := filepath.Abs(c.Input)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryValidation, "invalid input path").Fatal().Build()
	}
	out, err := filepath.Abs(c.Output)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryValidation, "invalid output path").Fatal().Build()
	}
	if in == out || strings.HasPrefix(out, in+string(filepath.Separator)) || strings.HasPrefix(in, out+string(filepath.Separator)) {
		return ferrors.ValidationError("input and output must not contain each other").
			WithContext("input", in).WithContext("output", out).Build()
	}
	if strings.ContainsAny(c.Directive, " \t\n=\"'<>") {
		return ferrors.ValidationError("invalid directive attribute name").WithContext("directive", c.Directive).Build()
	}
	for _, pattern := range c.Prerender {
		if !doublestar.ValidatePattern(pattern) {
			return ferrors.ValidationError("invalid prerender pattern").WithContext("pattern", pattern).Build()
		}
	}
	seen := map[string]bool{}
	for _, ax := range c.Params {
		if seen[ax.Key] {
			return ferrors.ValidationError("duplicate param key").WithContext("key", ax.Key).Build()
		}
		seen[ax.Key] = true
		if len(ax.Values) == 0 {
			return ferrors.ValidationError("param has no values").WithContext("key", ax.Key).Build()
		}
	}
	return nil
}
