package form

import (
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/dlovans/factform/pkg/dom"
	"github.com/dlovans/factform/pkg/factgraph"
	"github.com/dlovans/factform/pkg/factpath"
)

// Field binds one fact path to the controls inside an fg-set element.
type Field struct {
	form     *Form
	el       *html.Node
	rawPath  string
	path     factpath.Path
	pathOK   bool
	kind     InputKind
	optional bool
	controls []*html.Node

	err     string
	missing bool
	// tabbed holds the value committed by a forward Tab so the blur that
	// follows does not commit it again.
	tabbed  *string
	cancels []func()
}

func (f *Form) mountField(el *html.Node) *Field {
	fld := &Field{form: f, el: el, rawPath: dom.Attr(el, "path")}
	if p, err := factpath.Parse(fld.rawPath); err != nil {
		f.log.Warn("Field has an unusable path",
			zap.String("path", fld.rawPath),
			zap.Error(err))
	} else {
		fld.path, fld.pathOK = p, true
	}
	fld.kind = ParseInputKind(dom.Attr(el, "inputtype"))
	if v, ok := dom.LookupAttr(el, "optional"); ok && v != "false" {
		fld.optional = true
	}
	fld.controls = dom.FindAll(el, dom.IsControl)

	f.components[el] = fld
	fld.initialize()
	return fld
}

func (fld *Field) initialize() {
	f := fld.form
	controls := fld.controls
	if _, unknown := fld.kind.(Unknown); unknown {
		f.log.Warn("Unknown input type, field is inert",
			zap.String("path", fld.rawPath),
			zap.String("inputtype", fld.kind.Name()))
		controls = nil
	}

	for _, c := range controls {
		if fld.kind.commitOnChange() {
			fld.cancels = append(fld.cancels, f.doc.Listen(c, dom.EventChange, func(*dom.Event) { fld.OnChange() }))
		}
		if !fld.kind.commitOnBlur() {
			continue
		}
		fld.cancels = append(fld.cancels,
			f.doc.Listen(c, dom.EventBlur, func(*dom.Event) { fld.onBlur() }),
			f.doc.Listen(c, dom.EventKeyDown, func(ev *dom.Event) {
				if ev.Key == "Tab" && !ev.ShiftKey {
					fld.onTab()
				}
			}),
		)
	}
	fld.cancels = append(fld.cancels,
		f.bus.Subscribe(SignalUpdate, TierFields, fld.Render),
		f.bus.Subscribe(SignalClear, TierFields, fld.Clear),
	)

	f.log.Debug("Adding field",
		zap.String("path", fld.rawPath),
		zap.String("inputtype", fld.kind.Name()))
	fld.Render()
}

func (fld *Field) destroy() {
	for _, cancel := range fld.cancels {
		cancel()
	}
	fld.cancels = nil
	fld.form.log.Debug("Removing field", zap.String("path", fld.rawPath))
}

// Path returns the bound path. It is the zero path when the markup's path
// could not be parsed.
func (fld *Field) Path() factpath.Path { return fld.path }

// Kind returns the field's input kind.
func (fld *Field) Kind() InputKind { return fld.kind }

// Element returns the fg-set element.
func (fld *Field) Element() *html.Node { return fld.el }

// Controls returns the bound form controls in document order.
func (fld *Field) Controls() []*html.Node { return fld.controls }

// Optional reports whether the gate ignores this field.
func (fld *Field) Optional() bool { return fld.optional }

// Error returns the message of the last rejected write, if any.
func (fld *Field) Error() string { return fld.err }

func (fld *Field) concrete() bool { return fld.pathOK && !fld.path.IsAbstract() }

// IsComplete reports whether the store holds a complete value for the field.
func (fld *Field) IsComplete() bool {
	return fld.concrete() && fld.form.store.Get(fld.path).Complete
}

func (fld *Field) onTab() {
	fld.OnChange()
	v, _ := fld.kind.marshal(fld.controls)
	fld.tabbed = &v
}

func (fld *Field) onBlur() {
	if fld.tabbed != nil {
		prev := *fld.tabbed
		fld.tabbed = nil
		if v, _ := fld.kind.marshal(fld.controls); v == prev {
			return
		}
	}
	fld.OnChange()
}

// OnChange commits the controls' value to the store. An empty value deletes
// the fact; a rejected value is kept on the field as its error. The store
// is saved and an Update is published whether or not anything was written.
func (fld *Field) OnChange() {
	f := fld.form
	value, ok := fld.kind.marshal(fld.controls)
	switch {
	case !ok:
		f.log.Debug("No value to commit", zap.String("path", fld.rawPath))
	case !fld.concrete():
		f.log.Warn("Refusing to write an unresolved path", zap.String("path", fld.rawPath))
	case value == "":
		f.store.Delete(fld.path)
		fld.err = ""
		f.metrics.FactCommitted(fld.kind.Name())
	default:
		if err := f.store.Set(fld.path, value); err != nil {
			fld.err = userMessage(err)
			f.metrics.FactRejected(fld.kind.Name())
			f.log.Info("Value rejected",
				zap.String("path", fld.path.String()),
				zap.String("value", value),
				zap.Error(err))
		} else {
			fld.err = ""
			f.metrics.FactCommitted(fld.kind.Name())
		}
	}
	f.save()
	f.publish(SignalUpdate)
}

// Render redraws the error decoration and copies the store's value into
// the controls.
func (fld *Field) Render() {
	fld.ClearValidationError()
	if fld.missing && fld.IsComplete() {
		fld.missing = false
	}
	switch {
	case fld.err != "":
		fld.SetValidationError(fld.err)
	case fld.missing:
		fld.SetValidationError(fld.form.messages.Required)
	}

	if !fld.concrete() {
		return
	}
	fld.kind.unmarshal(fld.controls, fld.form.store.Get(fld.path))
}

// Clear empties the controls and drops any error without touching the store.
func (fld *Field) Clear() {
	fld.kind.clear(fld.controls)
	fld.err = ""
	fld.missing = false
	fld.tabbed = nil
	fld.ClearValidationError()
}

// DeleteWithoutBroadcast empties the controls and deletes the fact. No
// signal is published; it runs inside a visibility pass that is already
// answering one.
func (fld *Field) DeleteWithoutBroadcast() {
	fld.Clear()
	if !fld.concrete() {
		return
	}
	fld.form.store.Delete(fld.path)
	fld.form.save()
	fld.form.log.Debug("Deleted hidden fact", zap.String("path", fld.path.String()))
}

// userMessage turns a store error into text for the error decoration.
func userMessage(err error) string {
	var ve *factgraph.ValueError
	if errors.As(err, &ve) && ve.Reason != "" {
		r := ve.Reason
		return strings.ToUpper(r[:1]) + r[1:]
	}
	return err.Error()
}
