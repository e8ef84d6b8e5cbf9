package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	assert.NotEmpty(t, Version)
	assert.Equal(t, Version, String())

	defer func(v, c, b string) { Version, GitCommit, BuildTime = v, c, b }(Version, GitCommit, BuildTime)
	Version, GitCommit, BuildTime = "v1.4.0", "abc123", "2026-01-02"
	assert.Equal(t, "v1.4.0 (commit abc123, built 2026-01-02)", String())
}
