// Package dom is a small document object model over golang.org/x/net/html.
//
// It provides the handful of browser behaviours the form engine depends on:
// attribute and class manipulation, document-order queries, deep cloning,
// form control values, event listeners with bubbling, focus and tab order.
package dom

import (
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Matcher selects nodes during a query.
type Matcher func(*html.Node) bool

// Tag matches elements with one of the given tag names.
func Tag(names ...string) Matcher {
	return func(n *html.Node) bool { return IsElement(n, names...) }
}

// WithAttr matches elements carrying every given attribute.
func WithAttr(keys ...string) Matcher {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		for _, k := range keys {
			if !HasAttr(n, k) {
				return false
			}
		}
		return true
	}
}

// WithClass matches elements carrying class.
func WithClass(class string) Matcher {
	return func(n *html.Node) bool { return n.Type == html.ElementNode && HasClass(n, class) }
}

// And combines matchers.
func And(ms ...Matcher) Matcher {
	return func(n *html.Node) bool {
		for _, m := range ms {
			if !m(n) {
				return false
			}
		}
		return true
	}
}

// IsElement reports whether n is an element, optionally one of names.
func IsElement(n *html.Node, names ...string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	return len(names) == 0 || slices.Contains(names, n.Data)
}

// Element creates a detached element. attrs are key, value pairs.
func Element(tag string, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for i := 0; i+1 < len(attrs); i += 2 {
		SetAttr(n, attrs[i], attrs[i+1])
	}
	return n
}

// TextNode creates a detached text node.
func TextNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// LookupAttr returns the value of key and whether it is present.
func LookupAttr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// Attr returns the value of key, or "" when absent.
func Attr(n *html.Node, key string) string {
	v, _ := LookupAttr(n, key)
	return v
}

// HasAttr reports whether key is present.
func HasAttr(n *html.Node, key string) bool {
	_, ok := LookupAttr(n, key)
	return ok
}

// SetAttr sets or replaces key.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes key if present.
func RemoveAttr(n *html.Node, key string) {
	n.Attr = slices.DeleteFunc(n.Attr, func(a html.Attribute) bool {
		return a.Namespace == "" && a.Key == key
	})
}

// Tokens splits a space separated attribute such as class or aria-describedby.
func Tokens(n *html.Node, key string) []string {
	return strings.Fields(Attr(n, key))
}

// AddToken adds token to a space separated attribute. Adding twice is a no-op.
func AddToken(n *html.Node, key, token string) {
	toks := Tokens(n, key)
	if slices.Contains(toks, token) {
		return
	}
	SetAttr(n, key, strings.Join(append(toks, token), " "))
}

// RemoveToken removes token, dropping the attribute when it becomes empty.
func RemoveToken(n *html.Node, key, token string) {
	toks := Tokens(n, key)
	if !slices.Contains(toks, token) {
		return
	}
	toks = slices.DeleteFunc(toks, func(t string) bool { return t == token })
	if len(toks) == 0 {
		RemoveAttr(n, key)
		return
	}
	SetAttr(n, key, strings.Join(toks, " "))
}

func HasClass(n *html.Node, class string) bool {
	return slices.Contains(Tokens(n, "class"), class)
}

func AddClass(n *html.Node, class string) { AddToken(n, "class", class) }

func RemoveClass(n *html.Node, class string) { RemoveToken(n, "class", class) }

// FindAll returns the descendants of root matching m, in document order.
// Contents of <template> elements are not searched.
func FindAll(root *html.Node, m Matcher) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if m(c) {
				out = append(out, c)
			}
			if !IsElement(c, "template") {
				walk(c)
			}
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}

// FindFirst returns the first descendant of root matching m, or nil.
func FindFirst(root *html.Node, m Matcher) *html.Node {
	if root == nil {
		return nil
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if m(c) {
			return c
		}
		if IsElement(c, "template") {
			continue
		}
		if found := FindFirst(c, m); found != nil {
			return found
		}
	}
	return nil
}

// Closest returns n or its nearest ancestor matching m.
func Closest(n *html.Node, m Matcher) *html.Node {
	for ; n != nil; n = n.Parent {
		if m(n) {
			return n
		}
	}
	return nil
}

// Contains reports whether n is root or one of its descendants.
func Contains(root, n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == root {
			return true
		}
	}
	return false
}

// Children returns a snapshot of n's child nodes.
func Children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// Clone deep-copies n. The copy is detached.
func Clone(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      slices.Clone(n.Attr),
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(Clone(child))
	}
	return c
}

// Prepend inserts child as the first child of parent.
func Prepend(parent, child *html.Node) {
	if parent.FirstChild == nil {
		parent.AppendChild(child)
		return
	}
	parent.InsertBefore(child, parent.FirstChild)
}

// Detach removes n from its parent, if any.
func Detach(n *html.Node) {
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// RemoveChildren detaches every child of n.
func RemoveChildren(n *html.Node) {
	for _, c := range Children(n) {
		n.RemoveChild(c)
	}
}

// Text returns the concatenated text content of n.
func Text(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(Text(c))
	}
	return b.String()
}

// SetText replaces n's children with a single text node.
func SetText(n *html.Node, s string) {
	RemoveChildren(n)
	n.AppendChild(TextNode(s))
}

// Hidden reports whether n or an ancestor is hidden by the "hidden" class
// or attribute.
func Hidden(n *html.Node) bool {
	return Closest(n, func(x *html.Node) bool {
		return x.Type == html.ElementNode && (HasClass(x, "hidden") || HasAttr(x, "hidden"))
	}) != nil
}
