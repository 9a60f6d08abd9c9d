package derivrecon

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"
)

// Evaluator is a compiled, numerically callable form of a fully determined
// expression in one variable. It is safe for concurrent use.
type Evaluator struct {
	expr     Expr
	variable string
	source   string
	compiled *govaluate.EvaluableExpression
}

var evalFunctions = func() map[string]govaluate.ExpressionFunction {
	funcs := make(map[string]govaluate.ExpressionFunction, len(fnNames))
	for _, fn := range Functions() {
		fn := fn
		funcs[fn.String()] = func(args ...interface{}) (interface{}, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("%s takes one argument, got %d", fn, len(args))
			}
			v, ok := args[0].(float64)
			if !ok {
				return nil, fmt.Errorf("%s: argument is %T, not a number", fn, args[0])
			}
			return fn.Apply(v), nil
		}
	}
	return funcs
}()

// Compile turns e into an Evaluator over variable. Every free symbol of e
// other than variable is an error: constants must be resolved first.
func Compile(e Expr, variable string) (*Evaluator, error) {
	for name := range FreeSymbols(e) {
		if name != variable {
			return nil, fmt.Errorf("%w: %s still contains the symbol %s", ErrEvaluation, e, name)
		}
	}
	src := evaluableSource(e)
	compiled, err := govaluate.NewEvaluableExpressionWithFunctions(src, evalFunctions)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", src, err)
	}
	return &Evaluator{expr: e, variable: variable, source: src, compiled: compiled}, nil
}

func (ev *Evaluator) Expr() Expr       { return ev.expr }
func (ev *Evaluator) Source() string   { return ev.source }
func (ev *Evaluator) Variable() string { return ev.variable }

// At evaluates at x. Points outside the real domain, poles and overflow
// all come back as *EvaluationError.
func (ev *Evaluator) At(x float64) (float64, error) {
	return ev.at(map[string]interface{}{ev.variable: x}, x)
}

func (ev *Evaluator) at(params map[string]interface{}, x float64) (float64, error) {
	params[ev.variable] = x
	out, err := ev.compiled.Evaluate(params)
	if err != nil {
		return math.NaN(), &EvaluationError{Expr: ev.expr.String(), X: x, Reason: err.Error()}
	}
	v, ok := out.(float64)
	if !ok {
		return math.NaN(), &EvaluationError{Expr: ev.expr.String(), X: x, Reason: fmt.Sprintf("result is %T, not a number", out)}
	}
	switch {
	case math.IsNaN(v):
		return v, &EvaluationError{Expr: ev.expr.String(), X: x, Reason: "not a real number"}
	case math.IsInf(v, 0):
		return v, &EvaluationError{Expr: ev.expr.String(), X: x, Reason: "not finite"}
	}
	return v, nil
}

// Sample evaluates at every x. Failed points hold NaN and are reported
// together in a *SampleError; the other points are still filled in.
func (ev *Evaluator) Sample(xs []float64) ([]float64, error) {
	ys := make([]float64, len(xs))
	params := map[string]interface{}{}
	var serr *SampleError
	for i, x := range xs {
		y, err := ev.at(params, x)
		if err != nil {
			if serr == nil {
				serr = &SampleError{Expr: ev.expr.String()}
			}
			serr.Indices = append(serr.Indices, i)
			if ee, ok := err.(*EvaluationError); ok {
				serr.Points = append(serr.Points, ee)
			}
			y = math.NaN()
		}
		ys[i] = y
	}
	if serr != nil {
		return ys, serr
	}
	return ys, nil
}

// Linspace returns n evenly spaced points from xmin to xmax inclusive.
func Linspace(xmin, xmax float64, n int) ([]float64, error) {
	if n < 2 || !(xmin < xmax) || math.IsInf(xmin, 0) || math.IsInf(xmax, 0) {
		return nil, ErrInvalidRange
	}
	xs := make([]float64, n)
	step := (xmax - xmin) / float64(n-1)
	for i := range xs {
		xs[i] = xmin + float64(i)*step
	}
	xs[n-1] = xmax
	return xs, nil
}

// evaluableSource renders e in govaluate syntax. Every compound node is
// parenthesised and powers use **, since ^ is bitwise xor there.
func evaluableSource(e Expr) string {
	switch v := e.(type) {
	case *Num:
		s := strconv.FormatFloat(v.Float64(), 'f', -1, 64)
		if v.IsNegative() {
			return "(" + s + ")"
		}
		return s
	case *Sym:
		if v.value != nil {
			return evaluableSource(v.value)
		}
		return v.name
	case *Add:
		return "(" + joinSource(v.terms, " + ") + ")"
	case *Mul:
		return "(" + joinSource(v.factors, " * ") + ")"
	case *Pow:
		return "(" + evaluableSource(v.base) + " ** " + evaluableSource(v.exp) + ")"
	case *Func:
		return v.fn.String() + "(" + evaluableSource(v.arg) + ")"
	}
	panic(fmt.Sprintf("derivrecon: cannot render %T", e))
}

func joinSource(es []Expr, sep string) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = evaluableSource(e)
	}
	return strings.Join(parts, sep)
}
