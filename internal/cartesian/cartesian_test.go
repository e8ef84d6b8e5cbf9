package cartesian

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func collect(template string, t Table) []Assignment {
	return slices.Collect(Expand(template, t))
}

func TestExpandSkipsAbsentKeys(t *testing.T) {
	table := Table{
		{Key: "locale", Values: []string{"en", "fr"}},
		{Key: "theme", Values: []string{"x"}},
	}

	got := collect("[locale]/index.html", table)
	require.Len(t, got, 2)
	assert.Equal(t, Assignment{{"locale", "en"}}, got[0])
	assert.Equal(t, Assignment{{"locale", "fr"}}, got[1])

	none := collect("index.html", table)
	require.Len(t, none, 1)
	assert.Empty(t, none[0])

	assert.Len(t, collect("index.html", nil), 1)
}

func TestExpandCrossProductOrder(t *testing.T) {
	table := Table{
		{Key: "a", Values: []string{"1", "2"}},
		{Key: "b", Values: []string{"x", "y", "z"}},
	}
	got := Paths("[b]/[a]/[a].html", table)
	assert.Equal(t, []string{
		"x/1/1.html", "y/1/1.html", "z/1/1.html",
		"x/2/2.html", "y/2/2.html", "z/2/2.html",
	}, got)
}

func TestExpandIsLazy(t *testing.T) {
	table := Table{{Key: "n", Values: []string{"1", "2", "3"}}}
	seen := 0
	for range Expand("[n]", table) {
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}

func TestResolve(t *testing.T) {
	assert.Equal(t, "fr/index.html", Resolve("[locale]/index.html", Assignment{{"locale", "fr"}}))
	assert.Equal(t, "[theme]/index.html", Resolve("[theme]/index.html", Assignment{{"locale", "fr"}}))
	assert.Equal(t, "locale=fr&theme=dark", Assignment{{"locale", "fr"}, {"theme", "dark"}}.Query())
}

func TestTableYAMLKeepsOrder(t *testing.T) {
	var cfg struct {
		Params Table `yaml:"params"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("params:\n  zeta: [a]\n  alpha: [b, c]\n"), &cfg))
	require.Len(t, cfg.Params, 2)
	assert.Equal(t, "zeta", cfg.Params[0].Key)
	assert.Equal(t, []string{"b", "c"}, cfg.Params[1].Values)
	assert.True(t, cfg.Params.HasPlaceholders("[alpha].html"))

	err := yaml.Unmarshal([]byte("params: [a]\n"), &cfg)
	assert.Error(t, err)
}
