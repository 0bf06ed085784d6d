package form

import (
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/dlovans/factform/pkg/dom"
	"github.com/dlovans/factform/pkg/factpath"
)

// Display markers.
const (
	NoValueText     = "[Fact has no value]"
	PlaceholderText = "[Placeholder value]"
	ValueSeparator  = ", "
)

// Display renders a fact read-only inside an fg-show element. An abstract
// path lists the value of every matching collection item instead.
type Display struct {
	form   *Form
	el     *html.Node
	path   factpath.Path
	pathOK bool
	cancel func()
}

func (f *Form) mountDisplay(el *html.Node) *Display {
	d := &Display{form: f, el: el}
	raw := dom.Attr(el, "path")
	if p, err := factpath.Parse(raw); err != nil {
		f.log.Warn("Display has an unusable path", zap.String("path", raw), zap.Error(err))
	} else {
		d.path, d.pathOK = p, true
	}
	f.components[el] = d
	d.cancel = f.bus.Subscribe(SignalUpdate, TierDisplay, d.Render)
	d.Render()
	return d
}

func (d *Display) destroy() { d.cancel() }

// Element returns the fg-show element.
func (d *Display) Element() *html.Node { return d.el }

// Render rewrites the element's content from the store.
func (d *Display) Render() {
	dom.RemoveChildren(d.el)
	if !d.pathOK {
		d.el.AppendChild(noValue())
		return
	}

	if d.path.IsAbstract() {
		var vals []string
		for _, r := range d.form.store.Values(d.path) {
			if r.HasValue {
				vals = append(vals, r.String())
			}
		}
		if len(vals) == 0 {
			d.el.AppendChild(noValue())
			return
		}
		d.el.AppendChild(dom.TextNode(strings.Join(vals, ValueSeparator)))
		return
	}

	r := d.form.store.Get(d.path)
	if !r.HasValue {
		d.el.AppendChild(noValue())
		return
	}
	d.el.AppendChild(dom.TextNode(r.String()))
	if !r.Complete {
		d.el.AppendChild(dom.TextNode(" "))
		d.el.AppendChild(marker(PlaceholderText))
	}
}

func noValue() *html.Node { return marker(NoValueText) }

func marker(text string) *html.Node {
	span := dom.Element("span", "class", "text-base-light")
	dom.SetText(span, text)
	return span
}
