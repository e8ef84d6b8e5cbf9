package render

import (
	"net/url"

	"github.com/dop251/goja"
	"golang.org/x/net/html"

	"github.com/hazae41/glace/internal/document"
)

// newLocation builds a read-only window.location for href.
func newLocation(vm *goja.Runtime, href string) (*goja.Object, error) {
	u, err := url.Parse(href)
	if err != nil {
		return nil, err
	}
	loc := vm.NewObject()
	_ = loc.Set("href", u.String())
	_ = loc.Set("protocol", u.Scheme+":")
	_ = loc.Set("host", u.Host)
	_ = loc.Set("pathname", u.EscapedPath())
	search := ""
	if u.RawQuery != "" {
		search = "?" + u.RawQuery
	}
	_ = loc.Set("search", search)
	hash := ""
	if u.Fragment != "" {
		hash = "#" + u.Fragment
	}
	_ = loc.Set("hash", hash)
	query := u.Query()
	sp := vm.NewObject()
	_ = sp.Set("get", func(name string) goja.Value {
		if !query.Has(name) {
			return goja.Null()
		}
		return vm.ToValue(query.Get(name))
	})
	_ = sp.Set("has", query.Has)
	_ = loc.Set("searchParams", sp)
	_ = loc.Set("toString", func() string { return u.String() })
	return loc, nil
}

// newDocumentFacade exposes a read-only view of d. Modules return markup
// instead of mutating the tree.
func newDocumentFacade(vm *goja.Runtime, d *document.Document, href string) *goja.Object {
	obj := vm.NewObject()
	_ = obj.Set("URL", href)
	_ = obj.Set("title", d.Title())
	root := vm.NewObject()
	_ = root.Set("lang", d.Lang())
	_ = obj.Set("documentElement", root)
	if h := d.Head(); h != nil {
		_ = obj.Set("head", newElementFacade(vm, h))
	}
	if b := d.Body(); b != nil {
		_ = obj.Set("body", newElementFacade(vm, b))
	}
	_ = obj.Set("querySelector", func(selector string) goja.Value {
		n, err := d.Query(selector)
		if err != nil {
			panic(vm.NewGoError(err))
		}
		if n == nil {
			return goja.Null()
		}
		return newElementFacade(vm, n)
	})
	return obj
}

func newElementFacade(vm *goja.Runtime, n *html.Node) *goja.Object {
	el := vm.NewObject()
	_ = el.Set("tagName", n.Data)
	_ = el.Set("textContent", document.TextContent(n))
	_ = el.Set("innerHTML", document.InnerHTML(n))
	id, _ := document.Attr(n, "id")
	_ = el.Set("id", id)
	_ = el.Set("getAttribute", func(name string) goja.Value {
		if v, ok := document.Attr(n, name); ok {
			return vm.ToValue(v)
		}
		return goja.Null()
	})
	return el
}
