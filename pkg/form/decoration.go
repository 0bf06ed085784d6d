package form

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/dlovans/factform/pkg/dom"
)

// Decoration classes and attributes, following the U.S. Web Design System.
const (
	ClassErrorMessage = "usa-error-message"
	ClassGroupError   = "usa-form-group--error"
	ClassInputError   = "usa-input--error"
)

// errorID is the id of the field's error message element. It only depends
// on the field's own markup, so repeated renders find the same element.
func (fld *Field) errorID() string {
	base := dom.Attr(fld.el, "id")
	if base == "" {
		base = "fg" + strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
				return r
			default:
				return '-'
			}
		}, fld.rawPath)
	}
	return base + "-error"
}

// controlGroup is the element whose aria-describedby points at the error.
func (fld *Field) controlGroup() *html.Node {
	if fs := dom.FindFirst(fld.el, dom.Tag("fieldset")); fs != nil {
		return fs
	}
	if len(fld.controls) > 0 {
		return fld.controls[0]
	}
	return fld.el
}

func (fld *Field) errorElements() []*html.Node {
	id := fld.errorID()
	return dom.FindAll(fld.el, func(n *html.Node) bool {
		return dom.IsElement(n, "span") && dom.Attr(n, "id") == id
	})
}

// SetValidationError decorates the field with msg. Calling it again only
// replaces the message text.
func (fld *Field) SetValidationError(msg string) {
	id := fld.errorID()
	group := fld.controlGroup()

	var span *html.Node
	if existing := fld.errorElements(); len(existing) > 0 {
		span = existing[0]
	} else {
		span = dom.Element("span", "class", ClassErrorMessage, "id", id, "role", "alert")
		switch legend := dom.FindFirst(group, dom.Tag("legend")); {
		case dom.IsElement(group, "fieldset") && legend != nil && legend.Parent == group:
			group.InsertBefore(span, legend.NextSibling)
		case dom.IsElement(group, "fieldset"):
			dom.Prepend(group, span)
		default:
			dom.Prepend(fld.el, span)
		}
	}
	dom.SetText(span, msg)

	dom.AddToken(group, "aria-describedby", id)
	dom.AddClass(fld.el, ClassGroupError)
	for _, c := range fld.controls {
		dom.SetAttr(c, "aria-invalid", "true")
		if !dom.IsChoice(c) {
			dom.AddClass(c, ClassInputError)
		}
	}
}

// ClearValidationError removes every trace SetValidationError leaves.
func (fld *Field) ClearValidationError() {
	for _, span := range fld.errorElements() {
		dom.Detach(span)
	}
	dom.RemoveToken(fld.controlGroup(), "aria-describedby", fld.errorID())
	dom.RemoveClass(fld.el, ClassGroupError)
	for _, c := range fld.controls {
		dom.RemoveAttr(c, "aria-invalid")
		dom.RemoveClass(c, ClassInputError)
	}
}
