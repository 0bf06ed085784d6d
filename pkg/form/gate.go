package form

import (
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/dlovans/factform/pkg/dom"
)

// Alert markers.
const (
	ClassValidateAlert = "validate-alert"
	ClassCompleteAlert = "complete-alert"
	ClassFocus         = "usa-focus"

	// AlertTemplateID names a <template> whose content replaces the built-in
	// summary alert.
	AlertTemplateID = "validate-alert-template"
)

// CanProceed reports whether every visible, non-optional field is complete.
// When one is not, each missing field is decorated, a summary alert replaces
// any earlier one at the top of the content region and focus moves to the
// first missing field.
func (f *Form) CanProceed() bool {
	var missing []*Field
	for _, fld := range f.Fields() {
		if fld.optional || dom.Hidden(fld.el) {
			continue
		}
		if !fld.IsComplete() {
			missing = append(missing, fld)
		}
	}
	f.metrics.GateEvaluated(len(missing) == 0)
	if len(missing) == 0 {
		return true
	}

	for _, fld := range missing {
		fld.missing = true
		fld.SetValidationError(f.messages.Required)
	}
	f.showAlert(ClassValidateAlert, f.summaryAlert(len(missing)))
	f.focusField(missing[0])
	f.log.Debug("Navigation blocked", zap.Int("missing", len(missing)))
	return false
}

// HandleSectionContinue gates a "continue" navigation. A nil event is
// allowed.
func (f *Form) HandleSectionContinue(ev *dom.Event) bool {
	if f.CanProceed() {
		return true
	}
	if ev != nil {
		ev.PreventDefault()
	}
	return false
}

// HandleSectionComplete gates "mark complete". The navigation itself is
// always cancelled; on success a completion alert is shown and OnComplete
// runs. It reports whether the gate passed.
func (f *Form) HandleSectionComplete(ev *dom.Event) bool {
	if ev != nil {
		ev.PreventDefault()
	}
	if !f.CanProceed() {
		return false
	}
	f.showAlert(ClassCompleteAlert, f.completeAlert())
	if f.onComplete != nil {
		f.onComplete()
	}
	return true
}

// contentRegion is where alerts go.
func (f *Form) contentRegion() *html.Node {
	if n := f.doc.ByID("main-content"); n != nil {
		return n
	}
	if n := f.doc.Query(dom.Tag("main")); n != nil {
		return n
	}
	return f.doc.Body()
}

func (f *Form) showAlert(class string, alert *html.Node) {
	for _, old := range f.doc.QueryAll(dom.WithClass(class)) {
		f.doc.Remove(old)
	}
	dom.Prepend(f.contentRegion(), alert)
}

func (f *Form) summaryAlert(missing int) *html.Node {
	wrap := dom.Element("div", "class", ClassValidateAlert, "data-missing", strconv.Itoa(missing))
	if tpl := f.doc.ByID(AlertTemplateID); tpl != nil {
		for _, c := range dom.Children(tpl) {
			wrap.AppendChild(dom.Clone(c))
		}
		return wrap
	}
	dom.SetAttr(wrap, "role", "alert")
	wrap.AppendChild(usaAlert("usa-alert--error", "There is a problem", f.messages.Summary))
	return wrap
}

func (f *Form) completeAlert() *html.Node {
	wrap := dom.Element("div", "class", ClassCompleteAlert, "role", "status")
	wrap.AppendChild(usaAlert("usa-alert--success", "Section complete", f.messages.Complete))
	return wrap
}

func usaAlert(variant, heading, text string) *html.Node {
	alert := dom.Element("div", "class", "usa-alert "+variant)
	body := dom.Element("div", "class", "usa-alert__body")
	h := dom.Element("h2", "class", "usa-alert__heading")
	dom.SetText(h, heading)
	p := dom.Element("p", "class", "usa-alert__text")
	dom.SetText(p, text)
	body.AppendChild(h)
	body.AppendChild(p)
	alert.AppendChild(body)
	return alert
}

// focusField focuses the field's first control and outlines it until the
// control next loses focus.
func (f *Form) focusField(fld *Field) {
	target := fld.el
	if len(fld.controls) > 0 {
		target = fld.controls[0]
	} else {
		dom.SetAttr(target, "tabindex", "-1")
	}
	dom.AddClass(target, ClassFocus)

	var cancel func()
	cancel = f.doc.Listen(target, dom.EventBlur, func(*dom.Event) {
		dom.RemoveClass(target, ClassFocus)
		cancel()
	})
	f.doc.Focus(target)
}
