// Package cartesian expands bracketed path templates such as
// "[locale]/index.html" into one concrete path per parameter combination.
package cartesian

import (
	"fmt"
	"iter"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"
)

// Axis is one parameter and the values it may take.
type Axis struct {
	Key    string
	Values []string
}

// Table is an ordered set of axes. Order decides the order of yielded
// combinations, so it is kept as written in the configuration.
type Table []Axis

// Binding assigns one value to one key.
type Binding struct {
	Key   string
	Value string
}

// Assignment is one concrete combination, in table order.
type Assignment []Binding

// Get returns the value bound to key.
func (a Assignment) Get(key string) (string, bool) {
	for _, b := range a {
		if b.Key == key {
			return b.Value, true
		}
	}
	return "", false
}

// Map returns the assignment as a plain map.
func (a Assignment) Map() map[string]string {
	m := make(map[string]string, len(a))
	for _, b := range a {
		m[b.Key] = b.Value
	}
	return m
}

// Query encodes the assignment as a URL query string, keeping table order.
func (a Assignment) Query() string {
	parts := make([]string, 0, len(a))
	for _, b := range a {
		parts = append(parts, url.QueryEscape(b.Key)+"="+url.QueryEscape(b.Value))
	}
	return strings.Join(parts, "&")
}

func (a Assignment) String() string {
	if len(a) == 0 {
		return "{}"
	}
	return "{" + strings.ReplaceAll(a.Query(), "&", ",") + "}"
}

func placeholder(key string) string { return "[" + key + "]" }

// HasPlaceholders reports whether p references any key of t.
func (t Table) HasPlaceholders(p string) bool {
	for _, ax := range t {
		if strings.Contains(p, placeholder(ax.Key)) {
			return true
		}
	}
	return false
}

// Expand yields every assignment that applies to template. Keys whose
// placeholder does not occur in template contribute no branching, so a
// template without placeholders yields exactly one empty assignment.
func Expand(template string, t Table) iter.Seq[Assignment] {
	var axes []Axis
	for _, ax := range t {
		if strings.Contains(template, placeholder(ax.Key)) {
			axes = append(axes, ax)
		}
	}
	return func(yield func(Assignment) bool) {
		expand(axes, nil, yield)
	}
}

func expand(axes []Axis, prefix Assignment, yield func(Assignment) bool) bool {
	if len(axes) == 0 {
		out := make(Assignment, len(prefix))
		copy(out, prefix)
		return yield(out)
	}
	head := axes[0]
	for _, v := range head.Values {
		if !expand(axes[1:], append(prefix, Binding{Key: head.Key, Value: v}), yield) {
			return false
		}
	}
	return true
}

// Resolve replaces every occurrence of each bound placeholder in p.
func Resolve(p string, a Assignment) string {
	for _, b := range a {
		p = strings.ReplaceAll(p, placeholder(b.Key), b.Value)
	}
	return p
}

// Paths returns every resolved variant of template.
func Paths(template string, t Table) []string {
	var out []string
	for a := range Expand(template, t) {
		out = append(out, Resolve(template, a))
	}
	return out
}

// UnmarshalYAML decodes a mapping of key to value list, preserving key order.
func (t *Table) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("params: expected a mapping, got %s", node.Tag)
	}
	out := make(Table, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var ax Axis
		if err := node.Content[i].Decode(&ax.Key); err != nil {
			return err
		}
		if strings.ContainsAny(ax.Key, "[]/\\") || ax.Key == "" {
			return fmt.Errorf("params: invalid key %q", ax.Key)
		}
		if err := node.Content[i+1].Decode(&ax.Values); err != nil {
			return fmt.Errorf("params.%s: %w", ax.Key, err)
		}
		out = append(out, ax)
	}
	*t = out
	return nil
}
