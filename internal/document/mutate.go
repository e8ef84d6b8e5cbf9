package document

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Attr returns the value of attribute key on n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces attribute key on n.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes attribute key from n.
func RemoveAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

// NewElement creates a detached element. attrs is a flat key, value list.
func NewElement(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

// Prepend inserts child as the first child of parent.
func Prepend(parent, child *html.Node) {
	if parent.FirstChild == nil {
		parent.AppendChild(child)
		return
	}
	parent.InsertBefore(child, parent.FirstChild)
}

// Remove detaches n from its parent.
func Remove(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// SetText replaces the children of n with a single text node.
func SetText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// ReplaceChildren parses markup in the context of target and makes the
// result target's children. Removed nodes for which keep returns true, at
// any depth, are moved after the new markup in document order instead of
// being dropped.
func ReplaceChildren(target *html.Node, markup string, keep func(*html.Node) bool) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), target)
	if err != nil {
		return err
	}
	var kept []*html.Node
	for c := target.FirstChild; c != nil; {
		next := c.NextSibling
		target.RemoveChild(c)
		if keep != nil {
			kept = collect(c, keep, kept)
		}
		c = next
	}
	for _, n := range nodes {
		target.AppendChild(n)
	}
	for _, n := range kept {
		target.AppendChild(n)
	}
	return nil
}

// collect appends n, or the outermost kept nodes below it, detaching them.
func collect(n *html.Node, keep func(*html.Node) bool, out []*html.Node) []*html.Node {
	if keep(n) {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		return append(out, n)
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		out = collect(c, keep, out)
		c = next
	}
	return out
}
