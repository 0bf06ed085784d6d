package form

import (
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/dlovans/factform/pkg/factgraph"
)

// Built-in condition operators.
const (
	OpIsTrue  = "isTrue"
	OpIsFalse = "isFalse"
)

// OperatorFunc decides whether a fact satisfies a condition.
type OperatorFunc func(factgraph.Result) bool

// Operators is the registry of condition operators. The built-ins only hold
// for complete boolean facts; anything else must be registered.
type Operators struct {
	funcs map[string]OperatorFunc
}

// NewOperators returns a registry holding isTrue and isFalse.
func NewOperators() *Operators {
	o := &Operators{funcs: make(map[string]OperatorFunc)}
	o.Register(OpIsTrue, func(r factgraph.Result) bool {
		b, ok := r.Bool()
		return ok && r.Complete && b
	})
	o.Register(OpIsFalse, func(r factgraph.Result) bool {
		b, ok := r.Bool()
		return ok && r.Complete && !b
	})
	return o
}

// Register adds or replaces an operator.
func (o *Operators) Register(name string, fn OperatorFunc) {
	o.funcs[name] = fn
}

// exprEnv is what an expression operator sees.
type exprEnv struct {
	HasValue bool `expr:"hasValue"`
	Complete bool `expr:"complete"`
	Value    any  `expr:"value"`
}

// RegisterExpr compiles a boolean expr-lang expression over hasValue,
// complete and value and registers it as an operator. Dollar amounts are
// exposed as floats and dates as ISO strings.
func (o *Operators) RegisterExpr(name, source string) error {
	prog, err := expr.Compile(source, expr.Env(exprEnv{}), expr.AsBool())
	if err != nil {
		return fmt.Errorf("operator %s: %w", name, err)
	}
	o.Register(name, exprOperator(prog))
	return nil
}

func exprOperator(prog *vm.Program) OperatorFunc {
	return func(r factgraph.Result) bool {
		out, err := expr.Run(prog, exprEnv{
			HasValue: r.HasValue,
			Complete: r.Complete,
			Value:    exprValue(r.Value),
		})
		if err != nil {
			return false
		}
		b, _ := out.(bool)
		return b
	}
}

func exprValue(v any) any {
	switch x := v.(type) {
	case factgraph.Dollar:
		return x.InexactFloat64()
	case civil.Date:
		return x.String()
	default:
		return v
	}
}

// Lookup returns the operator registered under name.
func (o *Operators) Lookup(name string) (OperatorFunc, bool) {
	fn, ok := o.funcs[name]
	return fn, ok
}

// Names lists registered operators, sorted.
func (o *Operators) Names() []string {
	names := make([]string, 0, len(o.funcs))
	for n := range o.funcs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
