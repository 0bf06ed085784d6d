package dom

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Event types dispatched by the simulation helpers.
const (
	EventInput   = "input"
	EventChange  = "change"
	EventBlur    = "blur"
	EventFocus   = "focus"
	EventClick   = "click"
	EventKeyDown = "keydown"
)

// Event is a dispatched DOM event.
type Event struct {
	Type          string
	Target        *html.Node
	CurrentTarget *html.Node
	Key           string
	ShiftKey      bool

	defaultPrevented bool
	stopped          bool
}

// NewEvent returns an event of the given type.
func NewEvent(typ string) *Event { return &Event{Type: typ} }

func (e *Event) PreventDefault()        { e.defaultPrevented = true }
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }
func (e *Event) StopPropagation()       { e.stopped = true }

type listener struct {
	typ     string
	fn      func(*Event)
	removed bool
}

// Document owns a parsed HTML tree plus the listener and focus state a
// browser would keep for it. It is not safe for concurrent use.
type Document struct {
	root      *html.Node
	listeners map[*html.Node][]*listener
	active    *html.Node
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{root: root, listeners: make(map[*html.Node][]*listener)}, nil
}

// ParseString reads an HTML document from s.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// Body returns the <body> element, or the root if there is none.
func (d *Document) Body() *html.Node {
	if b := FindFirst(d.root, Tag("body")); b != nil {
		return b
	}
	return d.root
}

// ByID returns the element with the given id, or nil.
func (d *Document) ByID(id string) *html.Node {
	return FindFirst(d.root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && Attr(n, "id") == id
	})
}

// QueryAll returns matching elements in document order.
func (d *Document) QueryAll(m Matcher) []*html.Node { return FindAll(d.root, m) }

// Query returns the first matching element, or nil.
func (d *Document) Query(m Matcher) *html.Node { return FindFirst(d.root, m) }

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error { return html.Render(w, d.root) }

func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// Listen registers fn for events of typ reaching n. The returned function
// removes the listener.
func (d *Document) Listen(n *html.Node, typ string, fn func(*Event)) func() {
	l := &listener{typ: typ, fn: fn}
	d.listeners[n] = append(d.listeners[n], l)
	return func() {
		l.removed = true
		d.listeners[n] = slices.DeleteFunc(d.listeners[n], func(x *listener) bool { return x == l })
		if len(d.listeners[n]) == 0 {
			delete(d.listeners, n)
		}
	}
}

// Dispatch delivers ev to target and then to its ancestors until
// propagation stops. It reports whether the default action may proceed.
func (d *Document) Dispatch(target *html.Node, ev *Event) bool {
	ev.Target = target
	for n := target; n != nil && !ev.stopped; n = n.Parent {
		ls := slices.Clone(d.listeners[n])
		ev.CurrentTarget = n
		for _, l := range ls {
			if l.removed || l.typ != ev.Type {
				continue
			}
			l.fn(ev)
		}
	}
	return !ev.defaultPrevented
}

// Remove detaches n and forgets listeners registered inside it.
func (d *Document) Remove(n *html.Node) {
	if d.active != nil && Contains(n, d.active) {
		d.active = nil
	}
	for node, ls := range d.listeners {
		if Contains(n, node) {
			for _, l := range ls {
				l.removed = true
			}
			delete(d.listeners, node)
		}
	}
	Detach(n)
}

// ActiveElement returns the focused element, or nil.
func (d *Document) ActiveElement() *html.Node { return d.active }

// Focus moves focus to n, blurring the previously focused element.
func (d *Document) Focus(n *html.Node) {
	if n == d.active {
		return
	}
	d.Blur()
	d.active = n
	d.Dispatch(n, NewEvent(EventFocus))
}

// Blur removes focus from the active element.
func (d *Document) Blur() {
	prev := d.active
	if prev == nil {
		return
	}
	d.active = nil
	d.Dispatch(prev, NewEvent(EventBlur))
}

// Focusable reports whether keyboard navigation can reach n.
func (d *Document) Focusable(n *html.Node) bool {
	if !IsElement(n) || HasAttr(n, "disabled") || Hidden(n) {
		return false
	}
	if ti, ok := LookupAttr(n, "tabindex"); ok {
		i, err := strconv.Atoi(ti)
		return err == nil && i >= 0
	}
	switch n.Data {
	case "input":
		return !strings.EqualFold(Attr(n, "type"), "hidden")
	case "select", "textarea", "button":
		return true
	case "a":
		return HasAttr(n, "href")
	}
	return false
}

// Type simulates typing: the control's value is replaced and an input
// event fires. Nothing is committed until the control loses focus.
func (d *Document) Type(n *html.Node, text string) {
	d.Focus(n)
	SetValue(n, text)
	d.Dispatch(n, NewEvent(EventInput))
}

// Check simulates clicking a radio button or checkbox into the checked
// state. Radios sharing its name are unchecked.
func (d *Document) Check(n *html.Node) {
	d.Focus(n)
	if strings.EqualFold(Attr(n, "type"), "radio") {
		name := Attr(n, "name")
		scope := n.Parent
		if name != "" {
			scope = d.root
		}
		for _, other := range FindAll(scope, Tag("input")) {
			if other != n && strings.EqualFold(Attr(other, "type"), "radio") && Attr(other, "name") == name {
				SetChecked(other, false)
			}
		}
	}
	SetChecked(n, true)
	d.Dispatch(n, NewEvent(EventChange))
}

// Choose simulates picking an option from a select.
func (d *Document) Choose(sel *html.Node, value string) {
	d.Focus(sel)
	SelectOption(sel, value)
	d.Dispatch(sel, NewEvent(EventChange))
}

// Click dispatches a click and reports whether the default action may proceed.
func (d *Document) Click(n *html.Node) bool {
	return d.Dispatch(n, NewEvent(EventClick))
}

// PressTab dispatches a Tab keydown on the active element and, unless a
// listener prevents it, moves focus to the next (or previous, with shift)
// focusable element in document order.
func (d *Document) PressTab(shift bool) {
	from := d.active
	if from != nil {
		ev := NewEvent(EventKeyDown)
		ev.Key = "Tab"
		ev.ShiftKey = shift
		if !d.Dispatch(from, ev) {
			return
		}
	}

	order := FindAll(d.root, d.Focusable)
	if len(order) == 0 {
		d.Blur()
		return
	}
	idx := slices.Index(order, from)
	switch {
	case idx < 0 && shift:
		idx = len(order) - 1
	case idx < 0:
		idx = 0
	case shift:
		idx = (idx - 1 + len(order)) % len(order)
	default:
		idx = (idx + 1) % len(order)
	}
	d.Focus(order[idx])
}
