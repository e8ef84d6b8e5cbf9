package document

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	ferrors "github.com/hazae41/glace/internal/foundation/errors"
)

// Kind is the type of a bundle-eligible element.
type Kind int

const (
	KindScript Kind = iota
	KindStyle
	KindStylesheet
)

func (k Kind) String() string {
	switch k {
	case KindScript:
		return "script"
	case KindStyle:
		return "style"
	case KindStylesheet:
		return "stylesheet"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Ext is the source extension used when an inline element is materialized.
func (k Kind) Ext() string {
	if k == KindScript {
		return ".js"
	}
	return ".css"
}

// Targets is the set of passes an element is bundled for.
type Targets uint8

const (
	TargetClient Targets = 1 << iota
	TargetStatic
)

func (t Targets) Has(o Targets) bool { return t&o == o }

func (t Targets) String() string {
	var parts []string
	if t.Has(TargetClient) {
		parts = append(parts, "client")
	}
	if t.Has(TargetStatic) {
		parts = append(parts, "static")
	}
	return strings.Join(parts, ",")
}

// ParseTargets reads a directive value such as "client,static". An empty
// value means client. Unknown tokens are returned so callers can warn.
func ParseTargets(value string) (Targets, []string) {
	var (
		t       Targets
		unknown []string
	)
	for _, tok := range strings.Split(value, ",") {
		switch strings.ToLower(strings.TrimSpace(tok)) {
		case "":
		case "client":
			t |= TargetClient
		case "static":
			t |= TargetStatic
		default:
			unknown = append(unknown, strings.TrimSpace(tok))
		}
	}
	if t == 0 && len(unknown) == 0 {
		t = TargetClient
	}
	return t, unknown
}

// Asset is one element carrying the bundling directive.
type Asset struct {
	Node    *html.Node
	Kind    Kind
	Targets Targets
	// Ref is the src or href value; empty for inline content.
	Ref string
	// Unknown holds directive tokens that were not recognized.
	Unknown []string
}

// Inline reports whether the element's content lives in the document.
func (a Asset) Inline() bool { return a.Kind != KindStylesheet && a.Ref == "" }

// RefAttr is the attribute holding the reference.
func (a Asset) RefAttr() string {
	if a.Kind == KindScript {
		return "src"
	}
	return "href"
}

var preloadSelector = mustGroup("link[rel~=preload][href], link[rel~=modulepreload][href]")

func mustGroup(sel string) cascadia.SelectorGroup {
	g, err := cascadia.ParseGroup(sel)
	if err != nil {
		panic(err)
	}
	return g
}

// Scanner finds bundle-eligible elements by directive attribute.
type Scanner struct {
	directive string
	assets    cascadia.Matcher
	preloads  cascadia.Matcher
}

// NewScanner compiles the selectors for directive (e.g. "data-bundle").
func NewScanner(directive string) (*Scanner, error) {
	sel, err := cascadia.ParseGroup(fmt.Sprintf(
		"script[%[1]s], style[%[1]s], link[rel~=stylesheet][%[1]s]", directive))
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid directive").
			Fatal().WithContext("directive", directive).Build()
	}
	return &Scanner{
		directive: directive,
		assets:    sel,
		preloads:  preloadSelector,
	}, nil
}

// Directive returns the attribute name the scanner looks for.
func (s *Scanner) Directive() string { return s.directive }

// Scan returns every directive-bearing element in document order. The
// directive attribute itself is left in place; callers strip it.
func (s *Scanner) Scan(d *Document) []Asset {
	nodes := d.QueryAll(s.assets)
	out := make([]Asset, 0, len(nodes))
	for _, n := range nodes {
		value, _ := Attr(n, s.directive)
		targets, unknown := ParseTargets(value)
		a := Asset{Node: n, Targets: targets, Unknown: unknown}
		switch n.DataAtom {
		case atom.Script:
			a.Kind = KindScript
			a.Ref, _ = Attr(n, "src")
		case atom.Style:
			a.Kind = KindStyle
		default:
			a.Kind = KindStylesheet
			a.Ref, _ = Attr(n, "href")
		}
		out = append(out, a)
	}
	return out
}

// Preloads returns every <link rel=preload|modulepreload href=...> element.
func (s *Scanner) Preloads(d *Document) []*html.Node {
	return d.QueryAll(s.preloads)
}
