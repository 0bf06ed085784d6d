package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlovans/factform/pkg/dom"
)

func decoratedFields(h *harness) []string {
	var ids []string
	for _, fld := range h.form.Fields() {
		if dom.HasClass(fld.Element(), ClassGroupError) {
			ids = append(ids, dom.Attr(fld.Element(), "id"))
		}
	}
	return ids
}

func TestGateBlocksOnMissingVisibleRequiredFields(t *testing.T) {
	h := newHarness(t, basicPage)

	assert.False(t, h.form.CanProceed())
	assert.Equal(t, []string{"married", "status", "birth"}, decoratedFields(h), "hidden and optional fields are exempt")

	alerts := h.doc().QueryAll(dom.WithClass(ClassValidateAlert))
	require.Len(t, alerts, 1)
	assert.Equal(t, h.el("main-content"), alerts[0].Parent)
	assert.Equal(t, alerts[0], h.el("main-content").FirstChild)
	assert.Equal(t, "3", dom.Attr(alerts[0], "data-missing"))

	yes := h.el("married-yes")
	assert.Equal(t, yes, h.doc().ActiveElement())
	assert.True(t, dom.HasClass(yes, ClassFocus))

	assert.False(t, h.form.CanProceed())
	assert.Len(t, h.doc().QueryAll(dom.WithClass(ClassValidateAlert)), 1, "the summary is replaced, not stacked")

	h.doc().Check(h.el("married-no"))
	assert.False(t, dom.HasClass(yes, ClassFocus), "outline goes on blur")
	assert.Equal(t, []string{"status", "birth"}, decoratedFields(h), "answered fields drop the required error")

	h.doc().Choose(h.el("status-select"), "single")
	h.typeDate("birth-%s", "1990", "12", "31")

	assert.True(t, h.form.CanProceed())
	assert.Empty(t, decoratedFields(h))
	assert.Empty(t, h.doc().QueryAll(dom.WithClass(ClassErrorMessage)))
}

func TestGateIgnoresFieldsInsideHiddenContainers(t *testing.T) {
	page := `<main>
  <div class="hidden"><fg-set path="/name" inputtype="text"><input type="text"></fg-set></div>
  <fg-set path="/spouseName" inputtype="text" optional><input type="text"></fg-set>
</main>`
	h := newHarness(t, page)

	assert.True(t, h.form.CanProceed())
	assert.Empty(t, h.doc().QueryAll(dom.WithClass(ClassValidateAlert)))
}

func TestGateCountsPlaceholdersAsMissing(t *testing.T) {
	page := `<main><fg-set path="/dependents" inputtype="int" id="deps"><input type="text" id="deps-input"></fg-set></main>`
	h := newHarness(t, page)

	assert.False(t, h.form.CanProceed())
	h.typeAndLeave("deps-input", "0")
	assert.True(t, h.form.CanProceed())
}

func TestLeavingAPlaceholderUntouchedKeepsItIncomplete(t *testing.T) {
	page := `<main><fg-set path="/dependents" inputtype="int" id="deps"><input type="text" id="deps-input"></fg-set></main>`
	h := newHarness(t, page)
	input := h.el("deps-input")

	assert.Equal(t, "", dom.Value(input))
	assert.Equal(t, "0", dom.Attr(input, "placeholder"))

	h.doc().Focus(input)
	h.doc().Blur()
	assert.False(t, h.get("/dependents").Complete)
	assert.False(t, h.form.CanProceed())

	h.typeAndLeave("deps-input", "2")
	assert.Equal(t, "2", dom.Value(input))
	assert.False(t, dom.HasAttr(input, "placeholder"), "a complete value drops the placeholder")
}

func TestHandleSectionContinue(t *testing.T) {
	h := newHarness(t, basicPage)

	ev := dom.NewEvent(dom.EventClick)
	assert.False(t, h.form.HandleSectionContinue(ev))
	assert.True(t, ev.DefaultPrevented())
	assert.False(t, h.form.HandleSectionContinue(nil))
}

func TestHandleSectionComplete(t *testing.T) {
	page := `<main id="main-content"><fg-set path="/name" inputtype="text"><input type="text" id="name"></fg-set></main>`
	h := newHarness(t, page)

	ev := dom.NewEvent(dom.EventClick)
	assert.False(t, h.form.HandleSectionComplete(ev))
	assert.True(t, ev.DefaultPrevented())
	assert.Empty(t, h.doc().QueryAll(dom.WithClass(ClassCompleteAlert)))
	assert.Equal(t, 0, h.completed)

	h.typeAndLeave("name", "Ada")
	ev = dom.NewEvent(dom.EventClick)
	assert.True(t, h.form.HandleSectionComplete(ev))
	assert.True(t, ev.DefaultPrevented(), "completion never navigates")
	assert.True(t, h.form.HandleSectionComplete(nil))

	assert.Len(t, h.doc().QueryAll(dom.WithClass(ClassCompleteAlert)), 1)
	assert.Equal(t, 2, h.completed)
}

func TestSummaryUsesPageTemplate(t *testing.T) {
	page := `<body>
<template id="validate-alert-template"><div class="usa-alert usa-alert--error"><p>Fix the marked answers</p></div></template>
<main id="main-content"><fg-set path="/name" inputtype="text"><input type="text"></fg-set></main>
</body>`
	h := newHarness(t, page)

	require.False(t, h.form.CanProceed())
	alert := h.doc().Query(dom.WithClass(ClassValidateAlert))
	require.NotNil(t, alert)
	assert.Equal(t, "Fix the marked answers", dom.Text(alert))
}
