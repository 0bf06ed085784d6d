package form

import (
	"go.uber.org/zap"

	"github.com/dlovans/factform/pkg/dom"
	"github.com/dlovans/factform/pkg/factpath"
)

// ClassHidden marks an element hidden by its condition.
const ClassHidden = "hidden"

// EvaluateVisibility applies every condition once, in document order.
// An element whose condition stops holding is hidden and, if it is a field,
// its fact is deleted without publishing. An element whose condition starts
// holding is only revealed. Conditions reading facts that a later element
// changes in the same pass see the old value until the next signal.
func (f *Form) EvaluateVisibility() {
	for _, el := range f.doc.QueryAll(dom.WithAttr("condition", "operator")) {
		met := f.conditionMet(dom.Attr(el, "condition"), dom.Attr(el, "operator"))
		hidden := dom.HasClass(el, ClassHidden)

		switch {
		case !met && !hidden:
			dom.AddClass(el, ClassHidden)
			if fld, ok := f.components[el].(*Field); ok {
				fld.DeleteWithoutBroadcast()
			}
		case met && hidden:
			dom.RemoveClass(el, ClassHidden)
		}
	}
}

func (f *Form) conditionMet(rawPath, operator string) bool {
	p, err := factpath.Parse(rawPath)
	if err != nil {
		f.log.Warn("Condition has an unusable path", zap.String("condition", rawPath), zap.Error(err))
		return false
	}
	if p.IsAbstract() {
		return false
	}
	op, ok := f.operators.Lookup(operator)
	if !ok {
		f.log.Error("Unknown condition operator",
			zap.String("operator", operator),
			zap.String("condition", rawPath))
		return false
	}
	return op(f.store.Get(p))
}
