package derivrecon

import (
	"encoding/json"
	"math/big"
	"sort"
)

// ============================================================
// Top-level convenience functions
// ============================================================

func Simplify(e Expr) Expr { return e.Simplify() }
func String(e Expr) string { return e.String() }
func LaTeX(e Expr) string  { return e.LaTeX() }

func Sub(expr Expr, varName string, value Expr) Expr {
	return expr.Sub(varName, value).Simplify()
}

func Diff(expr Expr, varName string) Expr {
	return expr.Diff(varName).Simplify()
}

func Diff2(expr Expr, varName string) Expr {
	return Diff(Diff(expr, varName), varName)
}

func DiffN(expr Expr, varName string, n int) Expr {
	result := expr
	for i := 0; i < n; i++ {
		result = Diff(result, varName)
	}
	return result
}

// SubstituteAll replaces every named symbol in values at once.
func SubstituteAll(expr Expr, values map[string]Expr) Expr {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	out := expr
	for _, name := range names {
		out = out.Sub(name, values[name])
	}
	return out.Simplify()
}

// ValueAt substitutes x for varName and folds the result to a number.
func ValueAt(expr Expr, varName string, x float64) (*Num, bool) {
	xn, ok := NFloat(x)
	if !ok {
		return nil, false
	}
	return Sub(expr, varName, xn).Eval()
}

func Expand(e Expr) Expr { return expandExpr(e).Simplify() }

func expandExpr(e Expr) Expr {
	switch v := e.(type) {
	case *Mul:
		acc := Expr(N(1))
		for _, f := range v.factors {
			acc = distribute(acc, expandExpr(f))
		}
		return acc
	case *Add:
		newTerms := make([]Expr, len(v.terms))
		for i, t := range v.terms {
			newTerms[i] = expandExpr(t)
		}
		return AddOf(newTerms...)
	case *Pow:
		if n, ok := v.exp.(*Num); ok && n.IsInteger() {
			exp := n.val.Num().Int64()
			if exp >= 0 && exp <= 10 {
				result := Expr(N(1))
				base := expandExpr(v.base)
				for i := int64(0); i < exp; i++ {
					result = distribute(result, base)
				}
				return result
			}
		}
		return PowOf(expandExpr(v.base), expandExpr(v.exp))
	case *Func:
		return funcOf(v.fn, expandExpr(v.arg)).Simplify()
	}
	return e
}

// distribute multiplies two expanded expressions term by term. MulOf alone
// would fold (x+1)*(x+1) back into (x+1)^2.
func distribute(a, b Expr) Expr {
	ta, tb := addends(a), addends(b)
	terms := make([]Expr, 0, len(ta)*len(tb))
	for _, x := range ta {
		for _, y := range tb {
			terms = append(terms, MulOf(x, y))
		}
	}
	return AddOf(terms...)
}

func addends(e Expr) []Expr {
	if a, ok := e.(*Add); ok {
		return a.terms
	}
	return []Expr{e}
}

// ============================================================
// Free Symbols
// ============================================================

func FreeSymbols(e Expr) map[string]struct{} {
	result := map[string]struct{}{}
	collectSymbols(e, result)
	return result
}

// SortedSymbols returns the free symbols of e in lexical order.
func SortedSymbols(e Expr) []string {
	set := FreeSymbols(e)
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func collectSymbols(e Expr, out map[string]struct{}) {
	switch v := e.(type) {
	case *Sym:
		if v.value == nil {
			out[v.name] = struct{}{}
		}
	case *Add:
		for _, t := range v.terms {
			collectSymbols(t, out)
		}
	case *Mul:
		for _, f := range v.factors {
			collectSymbols(f, out)
		}
	case *Pow:
		collectSymbols(v.base, out)
		collectSymbols(v.exp, out)
	case *Func:
		collectSymbols(v.arg, out)
	}
}

// foldConstants replaces each sub-expression free of varName by its numeric
// value where it has one, so that pi*x - 1 reads as a polynomial.
func foldConstants(e Expr, varName string) Expr {
	if !DependsOn(e, varName) {
		if n, ok := e.Eval(); ok {
			return n
		}
		return e
	}
	switch t := e.(type) {
	case *Add:
		terms := make([]Expr, len(t.terms))
		for i, term := range t.terms {
			terms[i] = foldConstants(term, varName)
		}
		return AddOf(terms...)
	case *Mul:
		fs := make([]Expr, len(t.factors))
		for i, f := range t.factors {
			fs[i] = foldConstants(f, varName)
		}
		return MulOf(fs...)
	case *Pow:
		return PowOf(foldConstants(t.base, varName), foldConstants(t.exp, varName))
	case *Func:
		return Apply(t.fn, foldConstants(t.arg, varName))
	}
	return e
}

// DependsOn reports whether varName occurs in e.
func DependsOn(e Expr, varName string) bool {
	switch v := e.(type) {
	case *Sym:
		return v.value == nil && v.name == varName
	case *Add:
		for _, t := range v.terms {
			if DependsOn(t, varName) {
				return true
			}
		}
	case *Mul:
		for _, f := range v.factors {
			if DependsOn(f, varName) {
				return true
			}
		}
	case *Pow:
		return DependsOn(v.base, varName) || DependsOn(v.exp, varName)
	case *Func:
		return DependsOn(v.arg, varName)
	}
	return false
}

// ============================================================
// Polynomial utilities
// ============================================================

// Polynomial returns the rational coefficients of e in varName, lowest
// degree first, with the leading coefficient nonzero. ok is false when e is
// not a polynomial with numeric coefficients.
func Polynomial(e Expr, varName string) (coeffs []*Num, ok bool) {
	byDegree, ok := laurentTerms(e, varName)
	if !ok {
		return nil, false
	}
	maxDeg := 0
	for deg := range byDegree {
		if deg < 0 {
			return nil, false
		}
		if deg > maxDeg {
			maxDeg = deg
		}
	}
	return denseCoeffs(byDegree, 0, maxDeg), true
}

// laurentTerms splits the expanded form of e into c*varName^k terms with
// integer k of either sign, keyed by k.
func laurentTerms(e Expr, varName string) (map[int]*Num, bool) {
	e = Expand(e)
	var terms []Expr
	if a, isAdd := e.(*Add); isAdd {
		terms = a.terms
	} else {
		terms = []Expr{e}
	}
	byDegree := map[int]*Num{}
	for _, t := range terms {
		c, deg, ok := monomial(t, varName)
		if !ok {
			return nil, false
		}
		if prev, seen := byDegree[deg]; seen {
			c = numAdd(prev, c)
		}
		byDegree[deg] = c
	}
	return byDegree, true
}

func denseCoeffs(byDegree map[int]*Num, lo, hi int) []*Num {
	coeffs := make([]*Num, hi-lo+1)
	for i := range coeffs {
		if c, seen := byDegree[lo+i]; seen {
			coeffs[i] = c
		} else {
			coeffs[i] = N(0)
		}
	}
	for len(coeffs) > 1 && coeffs[len(coeffs)-1].IsZero() {
		coeffs = coeffs[:len(coeffs)-1]
	}
	return coeffs
}

func monomial(t Expr, varName string) (*Num, int, bool) {
	if n, isNum := t.(*Num); isNum {
		return n, 0, true
	}
	coeff, rest := extractCoefficient(t)
	switch v := rest.(type) {
	case *Sym:
		if v.name == varName {
			return coeff, 1, true
		}
	case *Pow:
		if sym, ok := v.base.(*Sym); ok && sym.name == varName {
			if n, ok := v.exp.(*Num); ok && n.IsInteger() && n.val.Num().IsInt64() {
				return coeff, int(n.val.Num().Int64()), true
			}
		}
	}
	return nil, 0, false
}

func ratsOf(coeffs []*Num) []*big.Rat {
	out := make([]*big.Rat, len(coeffs))
	for i, c := range coeffs {
		out[i] = c.Rat()
	}
	return out
}

// ============================================================
// JSON
// ============================================================

// ToJSON renders the expression tree as JSON.
func ToJSON(e Expr) (string, error) {
	b, err := json.Marshal(e.toJSON())
	return string(b), err
}

// Tree returns the JSON-ready tree form of e.
func Tree(e Expr) map[string]interface{} { return e.toJSON() }
