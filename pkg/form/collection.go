package form

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/dlovans/factform/pkg/dom"
	"github.com/dlovans/factform/pkg/factpath"
)

// Collection owns the items of one fg-collection element.
type Collection struct {
	form   *Form
	el     *html.Node
	path   factpath.Path
	label  string
	add    *html.Node
	items  []*Item
	cancel func()
}

// Item is one instantiated copy of a collection's template.
type Item struct {
	collection *Collection
	id         string
	path       factpath.Path
	wrapper    *html.Node
	legend     *html.Node
	el         *html.Node
	button     *html.Node
	cancels    []func()
	removed    bool
}

// Collection classes.
const (
	ClassCollectionAdd    = "fg-collection__add"
	ClassCollectionItem   = "fg-collection__item"
	ClassCollectionLabel  = "fg-collection__label"
	ClassCollectionRemove = "fg-collection__remove"
)

// linkageAttrs carry element ids that must stay unique per item.
var linkageAttrs = []string{"id", "for", "name", "aria-describedby", "aria-labelledby", "aria-controls", "list"}

func (f *Form) mountCollection(el *html.Node) *Collection {
	raw := dom.Attr(el, "path")
	p, err := factpath.Parse(raw)
	if err != nil {
		f.log.Warn("Collection has an unusable path", zap.String("path", raw), zap.Error(err))
		return nil
	}
	if p.IsAbstract() {
		f.log.Warn("Collection path is abstract outside of an item", zap.String("path", raw))
		return nil
	}

	c := &Collection{form: f, el: el, path: p, label: dom.Attr(el, "itemlabel")}
	if c.label == "" {
		c.label = "Item"
	}

	// The template is captured once per collection path and reused for the
	// life of the form.
	key := p.String()
	children := dom.Children(el)
	for _, child := range children {
		dom.Detach(child)
	}
	if _, ok := f.templates[key]; !ok {
		f.templates[key] = children
	}

	addLabel := dom.Attr(el, "addlabel")
	if addLabel == "" {
		addLabel = "Add " + strings.ToLower(c.label)
	}
	c.add = dom.Element("button", "type", "button", "class", ClassCollectionAdd)
	dom.SetText(c.add, addLabel)
	el.AppendChild(c.add)
	c.cancel = f.doc.Listen(c.add, dom.EventClick, func(ev *dom.Event) {
		ev.PreventDefault()
		if _, err := c.AddItem(); err != nil {
			f.log.Error("Could not add item", zap.String("path", key), zap.Error(err))
		}
	})

	f.components[el] = c
	for _, id := range f.store.CollectionIDs(p) {
		c.instantiate(id)
	}
	c.relabel()
	f.log.Debug("Adding collection", zap.String("path", key), zap.Int("items", len(c.items)))
	return c
}

func (c *Collection) destroy() {
	if c.cancel != nil {
		c.cancel()
	}
	for _, it := range c.items {
		it.destroy()
	}
	c.form.log.Debug("Removing collection", zap.String("path", c.path.String()))
}

// Path returns the collection's concrete path.
func (c *Collection) Path() factpath.Path { return c.path }

// Element returns the fg-collection element.
func (c *Collection) Element() *html.Node { return c.el }

// AddButton returns the add affordance.
func (c *Collection) AddButton() *html.Node { return c.add }

// Items returns the live items in display order.
func (c *Collection) Items() []*Item { return slices.Clone(c.items) }

// IDs returns the ids of the live items in display order.
func (c *Collection) IDs() []string {
	ids := make([]string, len(c.items))
	for i, it := range c.items {
		ids[i] = it.id
	}
	return ids
}

// AddItem registers a fresh id with the store, instantiates the template
// for it and publishes an Update.
func (c *Collection) AddItem() (*Item, error) {
	f := c.form
	id := f.ids()
	if err := f.store.AddToCollection(c.path, id); err != nil {
		return nil, fmt.Errorf("add to %s: %w", c.path, err)
	}
	f.save()
	it := c.instantiate(id)
	c.relabel()
	f.metrics.ItemAdded()
	f.publish(SignalUpdate)
	return it, nil
}

func (c *Collection) instantiate(id string) *Item {
	f := c.form
	it := &Item{collection: c, id: id, path: c.path.Child(factpath.Member(id))}

	it.wrapper = dom.Element("fieldset", "class", ClassCollectionItem)
	it.legend = dom.Element("legend", "class", ClassCollectionLabel)
	it.wrapper.AppendChild(it.legend)
	it.el = dom.Element(TagItem, "path", it.path.String(), "itemid", id)
	for _, t := range f.templates[c.path.String()] {
		clone := dom.Clone(t)
		rewrite(clone, id)
		it.el.AppendChild(clone)
	}
	it.button = dom.Element("button", "type", "button", "class", ClassCollectionRemove)
	dom.SetText(it.button, "Remove")
	it.el.AppendChild(it.button)
	it.wrapper.AppendChild(it.el)
	c.el.InsertBefore(it.wrapper, c.add)

	f.components[it.el] = it
	it.cancels = append(it.cancels,
		f.doc.Listen(it.button, dom.EventClick, func(ev *dom.Event) {
			ev.PreventDefault()
			it.Remove()
		}),
		f.bus.Subscribe(SignalClear, TierFields, it.remove),
	)
	c.items = append(c.items, it)

	// Paths are rewritten above, so descendants bind to concrete paths.
	f.mountChildren(it.el)
	f.log.Debug("Adding item", zap.String("path", it.path.String()))
	return it
}

// rewrite substitutes id for the first wildcard in every path-bearing
// attribute and every linkage id of n's subtree.
func rewrite(n *html.Node, id string) {
	if n.Type == html.ElementNode {
		for _, key := range []string{"path", "condition"} {
			v, ok := dom.LookupAttr(n, key)
			if !ok {
				continue
			}
			if p, err := factpath.Parse(v); err == nil {
				dom.SetAttr(n, key, p.Substitute(id).String())
			}
		}
		for _, key := range linkageAttrs {
			if v, ok := dom.LookupAttr(n, key); ok && strings.Contains(v, "*") {
				dom.SetAttr(n, key, substituteTokens(v, id))
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		rewrite(c, id)
	}
}

// substituteTokens replaces the first wildcard in each space-separated id
// of an attribute such as aria-describedby.
func substituteTokens(v, id string) string {
	tokens := strings.Fields(v)
	for i, t := range tokens {
		tokens[i] = strings.Replace(t, "*", id, 1)
	}
	return strings.Join(tokens, " ")
}

func (c *Collection) relabel() {
	for i, it := range c.items {
		dom.SetText(it.legend, fmt.Sprintf("%s %d", c.label, i+1))
	}
}

// ID returns the item's identifier.
func (it *Item) ID() string { return it.id }

// Path returns the item's member path.
func (it *Item) Path() factpath.Path { return it.path }

// Element returns the fg-collection-item element.
func (it *Item) Element() *html.Node { return it.el }

// Label returns the item's current legend text.
func (it *Item) Label() string { return dom.Text(it.legend) }

// RemoveButton returns the item's remove affordance.
func (it *Item) RemoveButton() *html.Node { return it.button }

// Remove deletes the item and its facts and publishes an Update.
func (it *Item) Remove() {
	if it.removed {
		return
	}
	it.remove()
	it.collection.form.publish(SignalUpdate)
}

// remove tears the item down without publishing.
func (it *Item) remove() {
	if it.removed {
		return
	}
	c := it.collection
	f := c.form

	it.destroy()
	f.Unmount(it.el)
	f.store.Delete(it.path)
	f.save()
	f.doc.Remove(it.wrapper)
	prefix := it.path.String() + "/"
	maps.DeleteFunc(f.templates, func(key string, _ []*html.Node) bool {
		return strings.HasPrefix(key, prefix)
	})

	c.items = slices.DeleteFunc(c.items, func(x *Item) bool { return x == it })
	c.relabel()
	f.metrics.ItemRemoved()
	f.log.Debug("Removing item", zap.String("path", it.path.String()))
}

func (it *Item) destroy() {
	it.removed = true
	for _, cancel := range it.cancels {
		cancel()
	}
	it.cancels = nil
}
