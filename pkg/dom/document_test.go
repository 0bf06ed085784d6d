package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const page = `<!DOCTYPE html><html><body>
<main id="main-content">
  <fieldset id="group">
    <input type="radio" name="married" value="true" id="yes">
    <input type="radio" name="married" value="false" id="no">
  </fieldset>
  <input id="name" type="text">
  <div class="hidden"><input id="secret" type="text"></div>
  <select id="status">
    <option value="">-</option>
    <option value="single">Single</option>
    <option>Other</option>
  </select>
  <template id="tpl"><input id="in-template"></template>
  <button id="go">Go</button>
</main>
</body></html>`

func mustParse(t *testing.T) *Document {
	t.Helper()
	d, err := ParseString(page)
	require.NoError(t, err)
	return d
}

func TestAttributesAndClasses(t *testing.T) {
	n := Element("div", "id", "x", "class", "a b")

	assert.Equal(t, "x", Attr(n, "id"))
	assert.True(t, HasClass(n, "b"))

	AddClass(n, "c")
	AddClass(n, "c")
	assert.Equal(t, "a b c", Attr(n, "class"))

	RemoveClass(n, "a")
	RemoveClass(n, "b")
	RemoveClass(n, "c")
	assert.False(t, HasAttr(n, "class"))

	AddToken(n, "aria-describedby", "err-1")
	AddToken(n, "aria-describedby", "err-1")
	assert.Equal(t, []string{"err-1"}, Tokens(n, "aria-describedby"))
}

func TestQueriesSkipTemplates(t *testing.T) {
	d := mustParse(t)

	assert.Nil(t, d.ByID("in-template"))
	require.NotNil(t, d.ByID("tpl"))
	assert.NotNil(t, FindFirst(d.ByID("tpl"), Tag("input")), "searching from the template itself still works")

	inputs := d.QueryAll(Tag("input"))
	ids := make([]string, 0, len(inputs))
	for _, in := range inputs {
		ids = append(ids, Attr(in, "id"))
	}
	assert.Equal(t, []string{"yes", "no", "name", "secret"}, ids)
}

func TestCloneIsDeepAndDetached(t *testing.T) {
	d := mustParse(t)
	group := d.ByID("group")

	c := Clone(group)
	assert.Nil(t, c.Parent)
	SetAttr(FindFirst(c, Tag("input")), "id", "changed")
	assert.Equal(t, "yes", Attr(d.ByID("yes"), "id"))
}

func TestSelectValues(t *testing.T) {
	d := mustParse(t)
	sel := d.ByID("status")

	assert.Equal(t, "", SelectedValue(sel), "first option by default")
	assert.True(t, SelectOption(sel, "Other"), "value falls back to option text")
	assert.Equal(t, "Other", Value(sel))
	assert.False(t, SelectOption(sel, "missing"))
	assert.Equal(t, "", Value(sel))
}

func TestCheckUnchecksSameNameRadios(t *testing.T) {
	d := mustParse(t)
	yes, no := d.ByID("yes"), d.ByID("no")

	var changes int
	d.Listen(d.ByID("group"), EventChange, func(*Event) { changes++ })

	d.Check(yes)
	d.Check(no)

	assert.False(t, Checked(yes))
	assert.True(t, Checked(no))
	assert.Equal(t, 2, changes, "change bubbles to the fieldset")
}

func TestListenerRemoval(t *testing.T) {
	d := mustParse(t)
	btn := d.ByID("go")

	var clicks int
	cancel := d.Listen(btn, EventClick, func(*Event) { clicks++ })
	d.Click(btn)
	cancel()
	d.Click(btn)
	assert.Equal(t, 1, clicks)

	d.Listen(btn, EventClick, func(*Event) { clicks++ })
	d.Remove(btn)
	d.Click(btn)
	assert.Equal(t, 1, clicks)
	assert.Nil(t, d.ByID("go"))
}

func TestPreventDefault(t *testing.T) {
	d := mustParse(t)
	btn := d.ByID("go")
	d.Listen(d.Body(), EventClick, func(e *Event) { e.PreventDefault() })
	assert.False(t, d.Click(btn))
}

func TestFocusAndTabOrder(t *testing.T) {
	d := mustParse(t)
	name := d.ByID("name")

	var blurred []string
	for _, n := range d.QueryAll(IsControl) {
		n := n
		d.Listen(n, EventBlur, func(*Event) { blurred = append(blurred, Attr(n, "id")) })
	}

	d.Focus(name)
	d.PressTab(false)
	assert.Equal(t, "status", Attr(d.ActiveElement(), "id"), "hidden inputs are skipped")
	d.PressTab(true)
	assert.Equal(t, name, d.ActiveElement())
	assert.Equal(t, []string{"name", "status"}, blurred)
}

func TestTabKeydownCanBePrevented(t *testing.T) {
	d := mustParse(t)
	name := d.ByID("name")
	d.Listen(name, EventKeyDown, func(e *Event) {
		if e.Key == "Tab" && !e.ShiftKey {
			e.PreventDefault()
		}
	})
	d.Focus(name)
	d.PressTab(false)
	assert.Equal(t, name, d.ActiveElement())
}

func TestHiddenAndText(t *testing.T) {
	d := mustParse(t)
	assert.True(t, Hidden(d.ByID("secret")))
	assert.False(t, Hidden(d.ByID("name")))

	n := Element("p")
	SetText(n, "hello")
	assert.Equal(t, "hello", Text(n))
	assert.Equal(t, html.TextNode, n.FirstChild.Type)
}
