package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const page = `<!doctype html>
<html lang="fr"><head><title>Hi</title>
<link rel="stylesheet" href="main.css" data-bundle>
<link rel="preload" href="font.woff2" as="font">
<link rel="modulepreload" href="./vendor/lib.js">
<style data-bundle="client">body{color:red}</style>
</head><body>
<script data-bundle="client,static" src="a.js"></script>
<script data-bundle="bogus"></script>
<script src="plain.js"></script>
</body></html>`

func parse(t *testing.T, src string) *Document {
	t.Helper()
	d, err := Parse(strings.NewReader(src), "file:///src/index.html")
	require.NoError(t, err)
	return d
}

func TestScan(t *testing.T) {
	d := parse(t, page)
	s, err := NewScanner("data-bundle")
	require.NoError(t, err)

	assets := s.Scan(d)
	require.Len(t, assets, 4)

	assert.Equal(t, KindStylesheet, assets[0].Kind)
	assert.Equal(t, "main.css", assets[0].Ref)
	assert.Equal(t, TargetClient, assets[0].Targets)

	assert.Equal(t, KindStyle, assets[1].Kind)
	assert.True(t, assets[1].Inline())

	assert.Equal(t, KindScript, assets[2].Kind)
	assert.Equal(t, "a.js", assets[2].Ref)
	assert.True(t, assets[2].Targets.Has(TargetClient|TargetStatic))
	assert.Equal(t, "src", assets[2].RefAttr())

	assert.Equal(t, Targets(0), assets[3].Targets)
	assert.Equal(t, []string{"bogus"}, assets[3].Unknown)

	require.Len(t, s.Preloads(d), 2)
	assert.Equal(t, "Hi", d.Title())
	assert.Equal(t, "fr", d.Lang())
}

func TestParseTargets(t *testing.T) {
	tg, unknown := ParseTargets("")
	assert.Equal(t, TargetClient, tg)
	assert.Empty(t, unknown)

	tg, _ = ParseTargets(" static ")
	assert.Equal(t, TargetStatic, tg)
	assert.Equal(t, "client,static", (TargetClient | TargetStatic).String())
}

func TestMutateAndRender(t *testing.T) {
	d := parse(t, `<html><head></head><body><p>old</p><script type="module" src="x.js"></script></body></html>`)

	link := NewElement(atom.Link, "rel", "modulepreload", "href", "./x.js")
	Prepend(d.Head(), link)

	err := ReplaceChildren(d.Body(), "<main>new</main>", func(n *html.Node) bool {
		return n.DataAtom == atom.Script
	})
	require.NoError(t, err)

	out, err := d.Bytes()
	require.NoError(t, err)
	assert.Equal(t,
		Doctype+`<html><head><link rel="modulepreload" href="./x.js"/></head><body><main>new</main><script type="module" src="x.js"></script></body></html>`,
		string(out))
}

func TestReplaceChildrenKeepsNestedNodes(t *testing.T) {
	d := parse(t, `<html><head></head><body><main><p>old</p><script id="a" src="a.js"></script></main><script id="b" src="b.js"></script><p>tail</p></body></html>`)

	err := ReplaceChildren(d.Body(), "<h1>new</h1>", func(n *html.Node) bool {
		return n.DataAtom == atom.Script
	})
	require.NoError(t, err)

	assert.Equal(t, `<h1>new</h1><script id="a" src="a.js"></script><script id="b" src="b.js"></script>`, InnerHTML(d.Body()))
}

func TestQueryAcceptsSelectorLists(t *testing.T) {
	d := parse(t, `<html><body><section id="x"></section><main></main></body></html>`)

	n, err := d.Query("main, #x")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, "section", n.Data)

	_, err = d.Query("main[")
	require.Error(t, err)
}

func TestAttrHelpers(t *testing.T) {
	n := NewElement(atom.Script, "src", "a.js", "data-bundle", "client")
	SetAttr(n, "src", "./b.js")
	SetAttr(n, "integrity", "sha256-x")
	RemoveAttr(n, "data-bundle")

	v, ok := Attr(n, "src")
	assert.True(t, ok)
	assert.Equal(t, "./b.js", v)
	_, ok = Attr(n, "data-bundle")
	assert.False(t, ok)

	SetText(n, "console.log(1)")
	assert.Equal(t, "console.log(1)", TextContent(n))
	assert.Equal(t, "console.log(1)", InnerHTML(n))
}

func TestStateProgression(t *testing.T) {
	s := Discovered
	var seen []string
	for s != Finalized {
		s = s.Next()
		seen = append(seen, s.String())
	}
	assert.Equal(t, []string{"scripts_registered", "client_resolved", "static_resolved", "finalized"}, seen)
	assert.Equal(t, Finalized, Finalized.Next())
}
