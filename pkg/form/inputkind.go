package form

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/dlovans/factform/pkg/dom"
	"github.com/dlovans/factform/pkg/factgraph"
)

// InputKind decides how a field turns its controls into raw text and back.
// The set of kinds is closed; markup naming anything else gets Unknown.
type InputKind interface {
	// Name is the inputtype attribute value the kind was parsed from.
	Name() string

	commitOnChange() bool
	commitOnBlur() bool
	// marshal reads the controls. ok is false when no value can be resolved.
	marshal(controls []*html.Node) (value string, ok bool)
	unmarshal(controls []*html.Node, r factgraph.Result)
	clear(controls []*html.Node)
}

// Choice binds radio buttons or checkboxes, for boolean and enum facts.
type Choice struct{ name string }

// Select binds a single select element.
type Select struct{}

// Text binds one free text control, for text, int and dollar facts.
type Text struct{ name string }

// CompositeDate binds three sub-controls marked data-part="year", "month"
// and "day".
type CompositeDate struct{}

// Unknown is any inputtype the engine does not recognise. It never reads
// or writes anything.
type Unknown struct{ name string }

// ParseInputKind maps an inputtype attribute onto its kind.
func ParseInputKind(name string) InputKind {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "boolean", "enum":
		return Choice{name: name}
	case "select":
		return Select{}
	case "text", "int", "dollar", "currency":
		return Text{name: name}
	case "date":
		return CompositeDate{}
	default:
		return Unknown{name: name}
	}
}

func (k Choice) Name() string       { return k.name }
func (Choice) commitOnChange() bool { return true }
func (Choice) commitOnBlur() bool   { return false }

func (Choice) marshal(controls []*html.Node) (string, bool) {
	for _, c := range controls {
		if dom.IsChoice(c) && dom.Checked(c) {
			return dom.Attr(c, "value"), true
		}
	}
	return "", false
}

func (Choice) unmarshal(controls []*html.Node, r factgraph.Result) {
	v := r.String()
	for _, c := range controls {
		if dom.IsChoice(c) {
			dom.SetChecked(c, r.HasValue && dom.Attr(c, "value") == v)
		}
	}
}

func (Choice) clear(controls []*html.Node) {
	for _, c := range controls {
		if dom.IsChoice(c) {
			dom.SetChecked(c, false)
		}
	}
}

func (Select) Name() string         { return "select" }
func (Select) commitOnChange() bool { return true }
func (Select) commitOnBlur() bool   { return false }

func firstSelect(controls []*html.Node) *html.Node {
	for _, c := range controls {
		if dom.IsElement(c, "select") {
			return c
		}
	}
	return nil
}

func (Select) marshal(controls []*html.Node) (string, bool) {
	sel := firstSelect(controls)
	if sel == nil {
		return "", false
	}
	return dom.SelectedValue(sel), true
}

func (Select) unmarshal(controls []*html.Node, r factgraph.Result) {
	if sel := firstSelect(controls); sel != nil {
		dom.SelectOption(sel, r.String())
	}
}

func (Select) clear(controls []*html.Node) {
	if sel := firstSelect(controls); sel != nil {
		dom.SelectOption(sel, "")
	}
}

func (k Text) Name() string       { return k.name }
func (Text) commitOnChange() bool { return false }
func (Text) commitOnBlur() bool   { return true }

func textControl(controls []*html.Node) *html.Node {
	for _, c := range controls {
		if !dom.IsChoice(c) && !dom.IsElement(c, "select") {
			return c
		}
	}
	return nil
}

func (Text) marshal(controls []*html.Node) (string, bool) {
	c := textControl(controls)
	if c == nil {
		return "", false
	}
	return dom.Value(c), true
}

// attrFactPlaceholder marks a placeholder attribute written from the store.
const attrFactPlaceholder = "data-fact-placeholder"

// unmarshal shows an incomplete value as the control's placeholder so that
// leaving the control untouched never commits it.
func (Text) unmarshal(controls []*html.Node, r factgraph.Result) {
	c := textControl(controls)
	if c == nil {
		return
	}
	if r.HasValue && !r.Complete {
		dom.SetValue(c, "")
		dom.SetAttr(c, "placeholder", r.String())
		dom.SetAttr(c, attrFactPlaceholder, "")
		return
	}
	clearFactPlaceholder(c)
	dom.SetValue(c, r.String())
}

func (Text) clear(controls []*html.Node) {
	if c := textControl(controls); c != nil {
		clearFactPlaceholder(c)
		dom.SetValue(c, "")
	}
}

func clearFactPlaceholder(c *html.Node) {
	if dom.HasAttr(c, attrFactPlaceholder) {
		dom.RemoveAttr(c, "placeholder")
		dom.RemoveAttr(c, attrFactPlaceholder)
	}
}

// Date sub-control markers.
const (
	PartYear  = "year"
	PartMonth = "month"
	PartDay   = "day"
)

func (CompositeDate) Name() string         { return "date" }
func (CompositeDate) commitOnChange() bool { return true }
func (CompositeDate) commitOnBlur() bool   { return true }

func datePart(controls []*html.Node, part string) *html.Node {
	for _, c := range controls {
		if dom.Attr(c, "data-part") == part {
			return c
		}
	}
	return nil
}

func (CompositeDate) marshal(controls []*html.Node) (string, bool) {
	year, month, day := datePart(controls, PartYear), datePart(controls, PartMonth), datePart(controls, PartDay)
	if year == nil && month == nil && day == nil {
		return "", false
	}
	var y, m, d string
	if year != nil {
		y = strings.TrimSpace(dom.Value(year))
	}
	if month != nil {
		m = strings.TrimSpace(dom.Value(month))
	}
	if day != nil {
		d = strings.TrimSpace(dom.Value(day))
	}
	if y == "" && m == "" && d == "" {
		return "", true
	}
	if len(d) == 1 {
		d = "0" + d
	}
	return y + "-" + m + "-" + d, true
}

// unmarshal only writes complete dates. A placeholder leaves whatever the
// user has typed in place.
func (CompositeDate) unmarshal(controls []*html.Node, r factgraph.Result) {
	if !r.HasValue || !r.Complete {
		return
	}
	parts := strings.SplitN(r.String(), "-", 3)
	if len(parts) != 3 {
		return
	}
	month := parts[1]
	if n, err := strconv.Atoi(month); err == nil {
		month = strconv.Itoa(n)
	}
	for part, v := range map[string]string{PartYear: parts[0], PartMonth: month, PartDay: parts[2]} {
		if c := datePart(controls, part); c != nil {
			dom.SetValue(c, v)
		}
	}
}

func (CompositeDate) clear(controls []*html.Node) {
	for _, part := range []string{PartYear, PartMonth, PartDay} {
		if c := datePart(controls, part); c != nil {
			dom.SetValue(c, "")
		}
	}
}

func (k Unknown) Name() string                           { return k.name }
func (Unknown) commitOnChange() bool                     { return false }
func (Unknown) commitOnBlur() bool                       { return false }
func (Unknown) marshal([]*html.Node) (string, bool)      { return "", false }
func (Unknown) unmarshal([]*html.Node, factgraph.Result) {}
func (Unknown) clear([]*html.Node)                       {}
