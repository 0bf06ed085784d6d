// Package lint provides static analysis for form pages.
// It detects markup problems without mounting the page.
package lint

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"golang.org/x/net/html"

	"github.com/dlovans/factform/pkg/dom"
	"github.com/dlovans/factform/pkg/factgraph"
	"github.com/dlovans/factform/pkg/factpath"
	"github.com/dlovans/factform/pkg/form"
)

// Issue represents a problem found during static analysis.
type Issue struct {
	Severity string `json:"severity"` // "error", "warning"
	Path     string `json:"path,omitempty"`
	Rule     string `json:"rule,omitempty"`
	Message  string `json:"message"`
}

// Result contains all issues found by the linter, in document order.
type Result struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues"`
}

// Options tune a lint run.
type Options struct {
	// Dictionary, when set, is checked against every bound path.
	Dictionary *factgraph.Dictionary
	// Operators are known besides the built-in ones.
	Operators []string
}

// Rule names.
const (
	RuleMissingPath      = "missing-path"
	RuleBadPath          = "bad-path"
	RuleUnknownInputType = "unknown-inputtype"
	RuleConditionPair    = "condition-pair"
	RuleUnknownOperator  = "unknown-operator"
	RuleForwardReference = "forward-reference"
	RuleAbstractOutside  = "abstract-outside-collection"
	RuleOutsideItem      = "outside-item"
	RuleUnknownFact      = "unknown-fact"
	RuleTypeMismatch     = "type-mismatch"
	RuleDateParts        = "date-parts"
	RuleNoControls       = "no-controls"
	RuleDuplicateBinding = "duplicate-binding"
)

// expectedTypes maps input kinds onto the fact types they can write.
var expectedTypes = map[string][]factgraph.Type{
	"boolean":  {factgraph.TypeBoolean},
	"enum":     {factgraph.TypeEnum},
	"select":   {factgraph.TypeEnum, factgraph.TypeBoolean},
	"text":     {factgraph.TypeString},
	"int":      {factgraph.TypeInt},
	"dollar":   {factgraph.TypeDollar},
	"currency": {factgraph.TypeDollar},
	"date":     {factgraph.TypeDate},
}

// Run performs static analysis on a page without mounting it.
// Detects unusable paths, unknown input kinds and operators, conditions
// that read facts bound later in the page, and paths missing from the
// dictionary.
func Run(r io.Reader, opts Options) (*Result, error) {
	doc, err := dom.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	result := &Result{
		Valid:  true,
		Issues: make([]Issue, 0),
	}
	l := &linter{
		result:    result,
		opts:      opts,
		operators: append(form.NewOperators().Names(), opts.Operators...),
		bound:     make(map[string]bool),
	}

	// Collect every bound path first so conditions can be checked for
	// forward references.
	fields := doc.QueryAll(dom.Tag(form.TagField))
	later := make(map[string]bool)
	for _, el := range fields {
		if p, err := factpath.Parse(dom.Attr(el, "path")); err == nil {
			later[p.Abstract().String()] = true
		}
	}

	for _, el := range doc.QueryAll(func(n *html.Node) bool { return n.Type == html.ElementNode }) {
		switch el.Data {
		case form.TagField:
			l.checkField(el)
			if p, err := factpath.Parse(dom.Attr(el, "path")); err == nil {
				l.bound[p.Abstract().String()] = true
			}
		case form.TagCollection:
			l.checkCollection(el)
		case form.TagDisplay:
			l.checkDisplay(el)
		}
		l.checkCondition(el, later)
	}
	return result, nil
}

// RunString lints page markup held in a string.
func RunString(page string, opts Options) (*Result, error) {
	return Run(strings.NewReader(page), opts)
}

type linter struct {
	result    *Result
	opts      Options
	operators []string
	// bound holds the abstract paths of fields seen so far.
	bound map[string]bool
	seen  []string
}

func (l *linter) checkField(el *html.Node) {
	raw, ok := dom.LookupAttr(el, "path")
	if !ok || raw == "" {
		l.result.addError("", RuleMissingPath, "fg-set has no path")
		return
	}
	p, ok := l.parse(raw)
	if !ok {
		return
	}
	l.checkPlacement(el, p)

	if slices.Contains(l.seen, raw) {
		l.result.addWarning(raw, RuleDuplicateBinding, fmt.Sprintf("path '%s' is bound by more than one field", raw))
	}
	l.seen = append(l.seen, raw)

	kindName := dom.Attr(el, "inputtype")
	kind := form.ParseInputKind(kindName)
	if _, unknown := kind.(form.Unknown); unknown {
		l.result.addError(raw, RuleUnknownInputType, fmt.Sprintf("unknown inputtype '%s'", kindName))
		return
	}

	controls := dom.FindAll(el, dom.IsControl)
	if len(controls) == 0 {
		l.result.addWarning(raw, RuleNoControls, "field has no input, select or textarea")
	}
	if _, isDate := kind.(form.CompositeDate); isDate {
		for _, part := range []string{form.PartYear, form.PartMonth, form.PartDay} {
			if !slices.ContainsFunc(controls, func(c *html.Node) bool { return dom.Attr(c, "data-part") == part }) {
				l.result.addError(raw, RuleDateParts, fmt.Sprintf("date field has no data-part=\"%s\" control", part))
			}
		}
	}

	if def, ok := l.lookup(raw, p); ok {
		want := expectedTypes[strings.ToLower(kindName)]
		if len(want) > 0 && !slices.Contains(want, def.Type) {
			l.result.addWarning(raw, RuleTypeMismatch, fmt.Sprintf(
				"inputtype '%s' is bound to a %s fact", kindName, def.Type))
		}
	}
}

func (l *linter) checkCollection(el *html.Node) {
	raw := dom.Attr(el, "path")
	if raw == "" {
		l.result.addError("", RuleMissingPath, "fg-collection has no path")
		return
	}
	p, ok := l.parse(raw)
	if !ok {
		return
	}
	l.checkPlacement(el, p)
	if def, ok := l.lookup(raw, p); ok && def.Type != factgraph.TypeCollection {
		l.result.addError(raw, RuleTypeMismatch, fmt.Sprintf("fg-collection is bound to a %s fact", def.Type))
	}
}

// checkDisplay allows abstract paths anywhere: they list every item's value.
func (l *linter) checkDisplay(el *html.Node) {
	raw := dom.Attr(el, "path")
	if raw == "" {
		l.result.addError("", RuleMissingPath, "fg-show has no path")
		return
	}
	if p, ok := l.parse(raw); ok {
		l.lookup(raw, p)
	}
}

func (l *linter) checkCondition(el *html.Node, boundAnywhere map[string]bool) {
	cond, hasCond := dom.LookupAttr(el, "condition")
	op, hasOp := dom.LookupAttr(el, "operator")
	switch {
	case !hasCond && !hasOp:
		return
	case !hasCond || !hasOp:
		l.result.addWarning(cond, RuleConditionPair, "condition and operator must be used together; the element is never hidden")
		return
	}

	if !slices.Contains(l.operators, op) {
		l.result.addError(cond, RuleUnknownOperator, fmt.Sprintf("unknown operator '%s'", op))
	}
	p, ok := l.parse(cond)
	if !ok {
		return
	}
	key := p.Abstract().String()
	if !l.bound[key] && boundAnywhere[key] {
		l.result.addWarning(cond, RuleForwardReference, fmt.Sprintf(
			"condition reads '%s', which is bound later in the page; it is evaluated before that field changes", cond))
	}
	l.lookup(cond, p)
}

// checkPlacement requires abstract paths to live inside a collection, under
// that collection's item wildcard.
func (l *linter) checkPlacement(el *html.Node, p factpath.Path) {
	var coll *html.Node
	if el.Parent != nil {
		coll = dom.Closest(el.Parent, dom.Tag(form.TagCollection))
	}
	if coll == nil {
		if p.IsAbstract() {
			l.result.addError(p.String(), RuleAbstractOutside, "abstract path outside of a collection can never be written")
		}
		return
	}
	cp, err := factpath.Parse(dom.Attr(coll, "path"))
	if err != nil {
		return
	}
	if !p.HasPrefix(cp.Abstract().Child(factpath.Any())) {
		l.result.addWarning(p.String(), RuleOutsideItem, fmt.Sprintf(
			"path inside collection '%s' does not start with '%s/*'", cp, cp))
	}
}

func (l *linter) parse(raw string) (factpath.Path, bool) {
	p, err := factpath.Parse(raw)
	if err != nil {
		l.result.addError(raw, RuleBadPath, err.Error())
		return factpath.Path{}, false
	}
	return p, true
}

func (l *linter) lookup(raw string, p factpath.Path) (*factgraph.Definition, bool) {
	if l.opts.Dictionary == nil {
		return nil, false
	}
	def, ok := l.opts.Dictionary.Lookup(p)
	if !ok {
		l.result.addError(raw, RuleUnknownFact, fmt.Sprintf("'%s' is not in the fact dictionary", p.Abstract()))
	}
	return def, ok
}

func (r *Result) addError(path, rule, message string) {
	r.Valid = false
	r.Issues = append(r.Issues, Issue{
		Severity: "error",
		Path:     path,
		Rule:     rule,
		Message:  message,
	})
}

func (r *Result) addWarning(path, rule, message string) {
	r.Issues = append(r.Issues, Issue{
		Severity: "warning",
		Path:     path,
		Rule:     rule,
		Message:  message,
	})
}

// Errors returns only the error-level issues.
func (r *Result) Errors() []Issue {
	var out []Issue
	for _, is := range r.Issues {
		if is.Severity == "error" {
			out = append(out, is)
		}
	}
	return out
}
