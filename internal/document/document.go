// Package document wraps an HTML tree parsed with golang.org/x/net/html and
// locates the elements the build rewrites.
package document

import (
	"bytes"
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	ferrors "github.com/hazae41/glace/internal/foundation/errors"
)

// Doctype is written before every serialized document.
const Doctype = "<!DOCTYPE html>\n"

// Document is a parsed HTML page together with the URL it was loaded from.
type Document struct {
	root *html.Node
	// URL is the synthetic base, "file://<source path>".
	URL string
}

// Parse reads a full HTML document.
func Parse(r io.Reader, url string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryDocument, "failed to parse document").
			Fatal().WithContext("url", url).Build()
	}
	return &Document{root: root, URL: url}, nil
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// Element returns the first element with the given atom, or nil.
func (d *Document) Element(a atom.Atom) *html.Node {
	return find(d.root, func(n *html.Node) bool { return n.Type == html.ElementNode && n.DataAtom == a })
}

func (d *Document) Head() *html.Node { return d.Element(atom.Head) }
func (d *Document) Body() *html.Node { return d.Element(atom.Body) }

// Title returns the text of the first <title>.
func (d *Document) Title() string {
	if t := d.Element(atom.Title); t != nil {
		return TextContent(t)
	}
	return ""
}

// Lang returns the lang attribute of <html>.
func (d *Document) Lang() string {
	if h := d.Element(atom.Html); h != nil {
		v, _ := Attr(h, "lang")
		return v
	}
	return ""
}

// Query returns the first element matching selector, or nil.
func (d *Document) Query(selector string) (*html.Node, error) {
	sel, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryDocument, "invalid selector").
			WithContext("selector", selector).Build()
	}
	return cascadia.Query(d.root, sel), nil
}

// QueryAll returns every element matching sel in document order.
func (d *Document) QueryAll(sel cascadia.Matcher) []*html.Node {
	return cascadia.QueryAll(d.root, sel)
}

// Render writes the doctype followed by the serialized tree. A doctype node
// from the source is dropped so it is never written twice.
func (d *Document) Render(w io.Writer) error {
	if _, err := io.WriteString(w, Doctype); err != nil {
		return err
	}
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.DoctypeNode {
			continue
		}
		if err := html.Render(w, c); err != nil {
			return err
		}
	}
	return nil
}

// Bytes renders the document into memory.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if m := find(c, match); m != nil {
			return m
		}
	}
	return nil
}

// TextContent concatenates all descendant text.
func TextContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// InnerHTML serializes the children of n.
func InnerHTML(n *html.Node) string {
	var buf bytes.Buffer
	raw := n.DataAtom == atom.Script || n.DataAtom == atom.Style
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if raw && c.Type == html.TextNode {
			buf.WriteString(c.Data)
			continue
		}
		_ = html.Render(&buf, c)
	}
	return buf.String()
}
