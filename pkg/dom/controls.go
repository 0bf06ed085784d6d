package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// IsControl matches the form controls a field can bind to.
var IsControl Matcher = Tag("input", "select", "textarea")

// IsChoice reports whether n is a radio button or checkbox.
func IsChoice(n *html.Node) bool {
	if !IsElement(n, "input") {
		return false
	}
	t := strings.ToLower(Attr(n, "type"))
	return t == "radio" || t == "checkbox"
}

// Value returns the current value of a control.
func Value(n *html.Node) string {
	switch {
	case IsElement(n, "select"):
		return SelectedValue(n)
	case IsElement(n, "textarea"):
		return Text(n)
	default:
		return Attr(n, "value")
	}
}

// SetValue overwrites a control's value. Choice controls keep their value
// and are unaffected; use SetChecked for them.
func SetValue(n *html.Node, v string) {
	switch {
	case IsElement(n, "select"):
		SelectOption(n, v)
	case IsElement(n, "textarea"):
		SetText(n, v)
	case IsChoice(n):
	default:
		SetAttr(n, "value", v)
	}
}

// Checked reports whether a choice control is checked.
func Checked(n *html.Node) bool { return HasAttr(n, "checked") }

// SetChecked sets or clears the checked state.
func SetChecked(n *html.Node, on bool) {
	if on {
		SetAttr(n, "checked", "")
	} else {
		RemoveAttr(n, "checked")
	}
}

// OptionValue returns an option's value, falling back to its text as
// browsers do.
func OptionValue(opt *html.Node) string {
	if v, ok := LookupAttr(opt, "value"); ok {
		return v
	}
	return strings.TrimSpace(Text(opt))
}

// SelectedValue returns the value of the selected option, or of the first
// option when none is marked selected.
func SelectedValue(sel *html.Node) string {
	opts := FindAll(sel, Tag("option"))
	if len(opts) == 0 {
		return ""
	}
	for _, o := range opts {
		if HasAttr(o, "selected") {
			return OptionValue(o)
		}
	}
	return OptionValue(opts[0])
}

// SelectOption marks the option whose value is v as selected and clears
// the rest. It reports whether a matching option exists.
func SelectOption(sel *html.Node, v string) bool {
	found := false
	for _, o := range FindAll(sel, Tag("option")) {
		if !found && OptionValue(o) == v {
			SetAttr(o, "selected", "")
			found = true
			continue
		}
		RemoveAttr(o, "selected")
	}
	return found
}
