package playback

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/dlovans/factform/pkg/dom"
	"github.com/dlovans/factform/pkg/factpath"
	"github.com/dlovans/factform/pkg/form"
)

// ErrNoElement is returned when a step targets an id not in the page.
var ErrNoElement = errors.New("playback: no such element")

// Failure is one expectation that did not hold.
type Failure struct {
	Step    int    `json:"step"`
	Message string `json:"message"`
}

// Report summarizes a run.
type Report struct {
	Name     string    `json:"name"`
	Steps    int       `json:"steps"`
	Failures []Failure `json:"failures"`
}

// Passed reports whether every expectation held.
func (r *Report) Passed() bool { return len(r.Failures) == 0 }

// Player drives a mounted form.
type Player struct {
	form    *form.Form
	log     *zap.Logger
	proceed *bool
}

// New returns a player for f.
func New(f *form.Form, logger *zap.Logger) *Player {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Player{form: f, log: logger}
}

// Proceed returns the result of the latest continue or complete, or nil
// when neither has run.
func (p *Player) Proceed() *bool { return p.proceed }

// Run plays every step in order. Expectation mismatches are collected in
// the report; a step that cannot be performed stops the run with an error.
func (p *Player) Run(ctx context.Context, s *Script) (*Report, error) {
	report := &Report{Name: s.Name, Failures: make([]Failure, 0)}
	for i, st := range s.Steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		n := i + 1
		if err := p.perform(st); err != nil {
			return report, fmt.Errorf("step %d (%s): %w", n, st.Action, err)
		}
		report.Steps = n
		if st.Expect != nil {
			for _, msg := range p.check(st.Expect) {
				report.Failures = append(report.Failures, Failure{Step: n, Message: msg})
			}
		}
		p.log.Debug("Step played", zap.Int("step", n), zap.String("action", st.Action), zap.String("target", st.Target))
	}
	p.log.Info("Script played",
		zap.String("script", s.Name),
		zap.Int("steps", report.Steps),
		zap.Int("failures", len(report.Failures)))
	return report, nil
}

func (p *Player) perform(st Step) error {
	doc := p.form.Document()
	switch st.Action {
	case "":
		return nil
	case ActionType:
		el, err := p.element(st.Target)
		if err != nil {
			return err
		}
		doc.Type(el, st.Value)
	case ActionCheck:
		el, err := p.element(st.Target)
		if err != nil {
			return err
		}
		doc.Check(el)
	case ActionChoose:
		el, err := p.element(st.Target)
		if err != nil {
			return err
		}
		doc.Choose(el, st.Value)
	case ActionClick:
		el, err := p.element(st.Target)
		if err != nil {
			return err
		}
		doc.Click(el)
	case ActionBlur:
		doc.Blur()
	case ActionTab:
		doc.PressTab(false)
	case ActionShiftTab:
		doc.PressTab(true)
	case ActionContinue:
		ok := p.form.HandleSectionContinue(dom.NewEvent(dom.EventClick))
		p.proceed = &ok
	case ActionComplete:
		ok := p.form.HandleSectionComplete(dom.NewEvent(dom.EventClick))
		p.proceed = &ok
	case ActionReset:
		return p.form.Reset()
	case ActionLoad:
		return p.form.Load(st.Value)
	case ActionAdd:
		c := p.form.Collection(st.Path)
		if c == nil {
			return fmt.Errorf("no collection at %s", st.Path)
		}
		_, err := c.AddItem()
		return err
	case ActionRemove:
		c := p.form.Collection(st.Path)
		if c == nil {
			return fmt.Errorf("no collection at %s", st.Path)
		}
		items := c.Items()
		if st.Index < 0 || st.Index >= len(items) {
			return fmt.Errorf("collection %s has no item %d", st.Path, st.Index)
		}
		items[st.Index].Remove()
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}
	return nil
}

func (p *Player) element(id string) (*html.Node, error) {
	el := p.form.Document().ByID(id)
	if el == nil {
		return nil, fmt.Errorf("%w: #%s", ErrNoElement, id)
	}
	return el, nil
}

// check returns one message per expectation that does not hold, in a
// stable order.
func (p *Player) check(e *Expect) []string {
	var out []string
	store := p.form.Store()
	doc := p.form.Document()

	for _, path := range sortedKeys(e.Facts) {
		want := e.Facts[path]
		fp, err := factpath.Parse(path)
		if err != nil {
			out = append(out, fmt.Sprintf("fact %s: %v", path, err))
			continue
		}
		r := store.Get(fp)
		switch {
		case !r.HasValue:
			out = append(out, fmt.Sprintf("fact %s: want %q, has no value", path, want))
		case r.String() != want:
			out = append(out, fmt.Sprintf("fact %s: want %q, got %q", path, want, r.String()))
		}
	}
	for _, path := range e.Absent {
		if fp, err := factpath.Parse(path); err == nil && store.Get(fp).HasValue {
			out = append(out, fmt.Sprintf("fact %s: want no value, got %q", path, store.Get(fp).String()))
		}
	}
	for _, path := range e.Incomplete {
		if fp, err := factpath.Parse(path); err == nil {
			if r := store.Get(fp); !r.HasValue || r.Complete {
				out = append(out, fmt.Sprintf("fact %s: want a placeholder", path))
			}
		}
	}

	for _, id := range e.Hidden {
		if el := doc.ByID(id); el == nil || !dom.Hidden(el) {
			out = append(out, fmt.Sprintf("#%s: want hidden", id))
		}
	}
	for _, id := range e.Visible {
		if el := doc.ByID(id); el == nil || dom.Hidden(el) {
			out = append(out, fmt.Sprintf("#%s: want visible", id))
		}
	}
	for _, id := range sortedKeys(e.Text) {
		el := doc.ByID(id)
		if el == nil {
			out = append(out, fmt.Sprintf("#%s: not in the page", id))
			continue
		}
		if got := strings.TrimSpace(dom.Text(el)); got != e.Text[id] {
			out = append(out, fmt.Sprintf("#%s: want text %q, got %q", id, e.Text[id], got))
		}
	}
	for _, id := range sortedKeys(e.Values) {
		el := doc.ByID(id)
		if el == nil {
			out = append(out, fmt.Sprintf("#%s: not in the page", id))
			continue
		}
		if got := dom.Value(el); got != e.Values[id] {
			out = append(out, fmt.Sprintf("#%s: want value %q, got %q", id, e.Values[id], got))
		}
	}

	for _, path := range sortedKeys(e.Errors) {
		fld := p.form.Field(path)
		if fld == nil {
			out = append(out, fmt.Sprintf("field %s: not mounted", path))
			continue
		}
		if got := fld.Error(); got != e.Errors[path] {
			out = append(out, fmt.Sprintf("field %s: want error %q, got %q", path, e.Errors[path], got))
		}
	}
	for _, path := range sortedKeys(e.Items) {
		c := p.form.Collection(path)
		if c == nil {
			out = append(out, fmt.Sprintf("collection %s: not mounted", path))
			continue
		}
		if got := len(c.IDs()); got != e.Items[path] {
			out = append(out, fmt.Sprintf("collection %s: want %d items, got %d", path, e.Items[path], got))
		}
	}

	if e.Proceed != nil {
		switch {
		case p.proceed == nil:
			out = append(out, "proceed: no continue or complete has run")
		case *p.proceed != *e.Proceed:
			out = append(out, fmt.Sprintf("proceed: want %t, got %t", *e.Proceed, *p.proceed))
		}
	}

	if len(e.Query) > 0 {
		serialized, err := p.form.Serialize()
		if err != nil {
			return append(out, fmt.Sprintf("query: %v", err))
		}
		for _, q := range sortedKeys(e.Query) {
			if got := Query(serialized, q); got != e.Query[q] {
				out = append(out, fmt.Sprintf("query %s: want %q, got %q", q, e.Query[q], got))
			}
		}
	}
	return out
}

// Query evaluates a gjson path over a serialized graph. Fact paths contain
// slashes, which gjson reads literally, so "facts./isMarried" and
// "collections./jobs.#" work as written.
func Query(serialized, path string) string {
	return gjson.Get(serialized, path).String()
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
