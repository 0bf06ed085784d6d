package form

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/dlovans/factform/pkg/dom"
	"github.com/dlovans/factform/pkg/factgraph"
	"github.com/dlovans/factform/pkg/factpath"
)

const testDictionary = `
facts:
  - path: /isMarried
    type: boolean
  - path: /spouseName
    type: string
  - path: /singleReason
    type: string
  - path: /name
    type: string
  - path: /filingStatus
    type: enum
    options: [single, headOfHousehold]
  - path: /dependents
    type: int
    placeholder: "0"
  - path: /birthDate
    type: date
  - path: /jobs
    type: collection
  - path: /jobs/*/income
    type: dollar
  - path: /jobs/*/startDate
    type: date
  - path: /jobs/*/kids
    type: collection
  - path: /jobs/*/kids/*/age
    type: int
`

const basicPage = `<!DOCTYPE html><html><body>
<main id="main-content">
  <fg-set path="/isMarried" inputtype="boolean" id="married">
    <fieldset>
      <legend>Are you married?</legend>
      <input type="radio" name="married" value="true" id="married-yes">
      <input type="radio" name="married" value="false" id="married-no">
    </fieldset>
  </fg-set>
  <fg-set path="/spouseName" inputtype="text" condition="/isMarried" operator="isTrue" id="spouse">
    <input type="text" id="spouse-name">
  </fg-set>
  <fg-set path="/filingStatus" inputtype="select" id="status">
    <select id="status-select">
      <option value="">Choose</option>
      <option value="single">Single</option>
      <option value="headOfHousehold">Head of household</option>
    </select>
  </fg-set>
  <fg-set path="/dependents" inputtype="int" optional id="deps">
    <input type="text" id="deps-input">
  </fg-set>
  <fg-set path="/birthDate" inputtype="date" id="birth">
    <fieldset>
      <legend>Date of birth</legend>
      <input type="text" data-part="month" id="birth-month">
      <input type="text" data-part="day" id="birth-day">
      <input type="text" data-part="year" id="birth-year">
    </fieldset>
  </fg-set>
  <fg-show path="/spouseName" id="show-spouse"></fg-show>
  <fg-show path="/dependents" id="show-deps"></fg-show>
  <fg-reset><button type="button" id="reset">Start over</button></fg-reset>
</main>
</body></html>`

const jobsPage = `<!DOCTYPE html><html><body>
<main id="main-content">
  <fg-collection path="/jobs" itemlabel="Job">
    <fg-set path="/jobs/*/startDate" inputtype="date" id="start-*">
      <fieldset>
        <legend>Start date</legend>
        <label for="start-month-*">Month</label>
        <input type="text" data-part="month" id="start-month-*">
        <input type="text" data-part="day" id="start-day-*">
        <input type="text" data-part="year" id="start-year-*">
      </fieldset>
    </fg-set>
    <fg-set path="/jobs/*/income" inputtype="dollar" id="income-*">
      <input type="text" id="income-input-*">
    </fg-set>
  </fg-collection>
  <fg-show path="/jobs/*/income" id="all-incomes"></fg-show>
  <fg-reset><button type="button" id="reset">Start over</button></fg-reset>
</main>
</body></html>`

// countingBus records how often each signal is published.
type countingBus struct {
	*SignalBus
	published map[Signal]int
}

func newCountingBus() *countingBus {
	return &countingBus{SignalBus: NewSignalBus(), published: make(map[Signal]int)}
}

func (b *countingBus) Publish(s Signal) {
	b.published[s]++
	b.SignalBus.Publish(s)
}

type harness struct {
	t         *testing.T
	form      *Form
	dict      *factgraph.Dictionary
	bus       *countingBus
	saves     int
	completed int
}

type setupFunc func(t *testing.T, g *factgraph.Graph, o *Options)

// withFacts stores path/raw pairs before the page is mounted.
func withFacts(pairs ...string) setupFunc {
	return func(t *testing.T, g *factgraph.Graph, _ *Options) {
		for i := 0; i+1 < len(pairs); i += 2 {
			require.NoError(t, g.Set(factpath.MustParse(pairs[i]), pairs[i+1]))
		}
	}
}

func withItems(coll string, ids ...string) setupFunc {
	return func(t *testing.T, g *factgraph.Graph, _ *Options) {
		for _, id := range ids {
			require.NoError(t, g.AddToCollection(factpath.MustParse(coll), id))
		}
	}
}

func withOptions(fn func(*Options)) setupFunc {
	return func(_ *testing.T, _ *factgraph.Graph, o *Options) { fn(o) }
}

func newHarness(t *testing.T, page string, setup ...setupFunc) *harness {
	t.Helper()
	dict, err := factgraph.ParseDictionary([]byte(testDictionary))
	require.NoError(t, err)

	h := &harness{t: t, dict: dict, bus: newCountingBus()}
	persist := factgraph.WithPersister(factgraph.PersisterFunc(func(string) error {
		h.saves++
		return nil
	}))
	g := factgraph.New(dict, persist)

	next := 0
	opts := Options{
		Bus: h.bus,
		IDs: func() string {
			next++
			return fmt.Sprintf("id%d", next)
		},
		NewStore: func() Store { return factgraph.New(dict, persist) },
		LoadStore: func(s string) (Store, error) {
			return factgraph.Deserialize(dict, s, persist)
		},
		OnComplete: func() { h.completed++ },
	}
	for _, fn := range setup {
		fn(t, g, &opts)
	}

	doc, err := dom.ParseString(page)
	require.NoError(t, err)
	h.form = New(doc, g, opts)
	h.form.Mount()
	return h
}

func (h *harness) doc() *dom.Document { return h.form.Document() }

func (h *harness) el(id string) *html.Node {
	h.t.Helper()
	n := h.doc().ByID(id)
	require.NotNil(h.t, n, "element #%s", id)
	return n
}

func (h *harness) field(path string) *Field {
	h.t.Helper()
	fld := h.form.Field(path)
	require.NotNil(h.t, fld, "field %s", path)
	return fld
}

func (h *harness) get(path string) factgraph.Result {
	return h.form.Store().Get(factpath.MustParse(path))
}

func (h *harness) set(path, raw string) {
	h.t.Helper()
	require.NoError(h.t, h.form.Store().Set(factpath.MustParse(path), raw))
}

func (h *harness) updates() int { return h.bus.published[SignalUpdate] }

// typeAndLeave types into a control and moves focus away, which is when
// text inputs commit.
func (h *harness) typeAndLeave(id, text string) {
	h.t.Helper()
	h.doc().Type(h.el(id), text)
	h.doc().Blur()
}

// typeDate fills the three date parts. idFormat turns a part name into
// the control's id.
func (h *harness) typeDate(idFormat, year, month, day string) {
	h.t.Helper()
	h.doc().Type(h.el(fmt.Sprintf(idFormat, PartYear)), year)
	h.doc().Type(h.el(fmt.Sprintf(idFormat, PartMonth)), month)
	h.doc().Type(h.el(fmt.Sprintf(idFormat, PartDay)), day)
	h.doc().Blur()
}
