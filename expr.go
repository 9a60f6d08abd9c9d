// Package derivrecon reconstructs a function from its first or second
// derivative and a set of boundary conditions.
//
// Design goals:
//   - Exact rational arithmetic (math/big.Rat)
//   - A closed expression tree: Num, Sym, Add, Mul, Pow, Func
//   - Deterministic simplification and stable output
//   - Typed failures for every stage of a reconstruction
//   - Embeddable in Go services, CLI tools, and agent backends
//
// The kernel (this file and kernel.go) builds and rewrites expressions. The
// reconstruction stages sit on top of it: Parse, IntegrateN,
// SolveConstraints, RealRoots and Compile, tied together by Reconstruct.
package derivrecon

import (
	"fmt"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// ============================================================
// Core Interface
// ============================================================

// Expr is an immutable expression over named symbols. The set of
// implementations is closed: *Num, *Sym, *Add, *Mul, *Pow and *Func.
type Expr interface {
	Simplify() Expr
	String() string
	LaTeX() string
	Sub(varName string, value Expr) Expr
	Diff(varName string) Expr
	Eval() (*Num, bool)
	Equal(other Expr) bool
	exprType() string
	toJSON() map[string]interface{}
}

// ============================================================
// Num — exact rational number
// ============================================================

type Num struct{ val *big.Rat }

func N(n int64) *Num { return &Num{val: new(big.Rat).SetInt64(n)} }
func F(p, q int64) *Num {
	if q == 0 {
		panic("derivrecon: denominator is zero")
	}
	return &Num{val: new(big.Rat).SetFrac(big.NewInt(p), big.NewInt(q))}
}

// NFloat converts f through its shortest decimal form, so 0.1 becomes 1/10
// rather than the nearest binary fraction. Non-finite values report false.
func NFloat(f float64) (*Num, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(f, 'g', -1, 64))
	if !ok {
		return nil, false
	}
	return &Num{val: r}, true
}

func mustNFloat(f float64) *Num {
	n, ok := NFloat(f)
	if !ok {
		panic(fmt.Sprintf("derivrecon: non-finite value %v", f))
	}
	return n
}

func (n *Num) Simplify() Expr        { return n }
func (n *Num) Sub(string, Expr) Expr { return n }
func (n *Num) Diff(string) Expr      { return N(0) }
func (n *Num) Eval() (*Num, bool)    { return n, true }
func (n *Num) Equal(other Expr) bool { o, ok := other.(*Num); return ok && n.val.Cmp(o.val) == 0 }
func (n *Num) exprType() string      { return "num" }
func (n *Num) Float64() float64      { f, _ := n.val.Float64(); return f }
func (n *Num) IsZero() bool          { return n.val.Sign() == 0 }
func (n *Num) IsOne() bool           { return n.val.Cmp(big.NewRat(1, 1)) == 0 }
func (n *Num) IsNegOne() bool        { return n.val.Cmp(big.NewRat(-1, 1)) == 0 }
func (n *Num) IsInteger() bool       { return n.val.IsInt() }
func (n *Num) Rat() *big.Rat         { return new(big.Rat).Set(n.val) }
func (n *Num) IsPositive() bool      { return n.val.Sign() > 0 }
func (n *Num) IsNegative() bool      { return n.val.Sign() < 0 }

// exactish reports whether the value reads well as a fraction. Values that
// came from floating-point evaluation carry huge denominators and print as
// decimals instead.
func (n *Num) exactish() bool { return n.val.IsInt() || n.val.Denom().BitLen() <= 32 }

func (n *Num) String() string {
	if n.val.IsInt() {
		return n.val.Num().String()
	}
	if n.exactish() {
		return n.val.RatString()
	}
	return strconv.FormatFloat(n.Float64(), 'g', 10, 64)
}

func (n *Num) LaTeX() string {
	if n.val.IsInt() {
		return n.val.Num().String()
	}
	if !n.exactish() {
		return strconv.FormatFloat(n.Float64(), 'g', 10, 64)
	}
	sign := ""
	v := new(big.Rat).Set(n.val)
	if v.Sign() < 0 {
		sign = "-"
		v.Neg(v)
	}
	return fmt.Sprintf("%s\\frac{%s}{%s}", sign, v.Num().String(), v.Denom().String())
}

func (n *Num) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "num", "value": n.val.RatString()}
}

func numAdd(a, b *Num) *Num { return &Num{val: new(big.Rat).Add(a.val, b.val)} }
func numSub(a, b *Num) *Num { return &Num{val: new(big.Rat).Sub(a.val, b.val)} }
func numMul(a, b *Num) *Num { return &Num{val: new(big.Rat).Mul(a.val, b.val)} }
func numNeg(a *Num) *Num    { return &Num{val: new(big.Rat).Neg(a.val)} }
func numRecip(a *Num) *Num {
	if a.IsZero() {
		panic("derivrecon: division by zero")
	}
	return &Num{val: new(big.Rat).Inv(a.val)}
}
func numDiv(a, b *Num) *Num { return numMul(a, numRecip(b)) }
func numAbs(a *Num) *Num {
	r := new(big.Rat).Set(a.val)
	if r.Sign() < 0 {
		r.Neg(r)
	}
	return &Num{val: r}
}

// numSqrt returns the exact square root of a non-negative rational whose
// numerator and denominator are both perfect squares.
func numSqrt(a *Num) (*Num, bool) {
	if a.IsNegative() {
		return nil, false
	}
	p, q := a.val.Num(), a.val.Denom()
	sp, sq := new(big.Int).Sqrt(p), new(big.Int).Sqrt(q)
	if new(big.Int).Mul(sp, sp).Cmp(p) != 0 || new(big.Int).Mul(sq, sq).Cmp(q) != 0 {
		return nil, false
	}
	return &Num{val: new(big.Rat).SetFrac(sp, sq)}, true
}

// ============================================================
// Sym — symbolic variable
// ============================================================

type Sym struct {
	name  string
	value *Num // set only for the named constants
}

// Pi and E are the named constants. They never depend on a variable and
// evaluate to their decimal values.
var (
	Pi = &Sym{name: "pi", value: mustNFloat(math.Pi)}
	E  = &Sym{name: "E", value: mustNFloat(math.E)}
)

func S(name string) *Sym      { return &Sym{name: name} }
func (s *Sym) Simplify() Expr { return s }
func (s *Sym) String() string { return s.name }
func (s *Sym) LaTeX() string {
	switch s {
	case Pi:
		return "\\pi"
	case E:
		return "e"
	}
	// C1 -> C_{1}
	if i := strings.IndexFunc(s.name, func(r rune) bool { return r >= '0' && r <= '9' }); i > 0 {
		return s.name[:i] + "_{" + s.name[i:] + "}"
	}
	return s.name
}
func (s *Sym) Eval() (*Num, bool) {
	if s.value != nil {
		return s.value, true
	}
	return nil, false
}
func (s *Sym) Equal(other Expr) bool {
	o, ok := other.(*Sym)
	return ok && s.name == o.name && (s.value == nil) == (o.value == nil)
}
func (s *Sym) exprType() string { return "sym" }
func (s *Sym) Name() string     { return s.name }

// IsConstant reports whether s is one of the named constants.
func (s *Sym) IsConstant() bool { return s.value != nil }
func (s *Sym) toJSON() map[string]interface{} {
	if s.value != nil {
		return map[string]interface{}{"type": "const", "name": s.name}
	}
	return map[string]interface{}{"type": "sym", "name": s.name}
}
func (s *Sym) Sub(varName string, value Expr) Expr {
	if s.value == nil && s.name == varName {
		return value
	}
	return s
}
func (s *Sym) Diff(varName string) Expr {
	if s.value == nil && s.name == varName {
		return N(1)
	}
	return N(0)
}

// ============================================================
// Add — sum of terms
// ============================================================

type Add struct{ terms []Expr }

func AddOf(terms ...Expr) Expr { return (&Add{terms: terms}).Simplify() }

// Simplify flattens nested sums, folds numeric terms into one trailing
// constant and merges terms that differ only by a numeric coefficient.
// Term order is the order of first appearance.
func (a *Add) Simplify() Expr {
	flat := make([]Expr, 0, len(a.terms))
	for _, t := range a.terms {
		s := t.Simplify()
		if inner, ok := s.(*Add); ok {
			flat = append(flat, inner.terms...)
		} else {
			flat = append(flat, s)
		}
	}
	constant := N(0)
	coeffs := map[string]*Num{}
	rests := map[string]Expr{}
	order := []string{}
	for _, t := range flat {
		if v, ok := t.(*Num); ok {
			constant = numAdd(constant, v)
			continue
		}
		c, rest := extractCoefficient(t)
		key := rest.String()
		if _, seen := coeffs[key]; !seen {
			order = append(order, key)
			coeffs[key] = N(0)
			rests[key] = rest
		}
		coeffs[key] = numAdd(coeffs[key], c)
	}
	result := make([]Expr, 0, len(order)+1)
	for _, key := range order {
		c := coeffs[key]
		switch {
		case c.IsZero():
		case c.IsOne():
			result = append(result, rests[key])
		default:
			result = append(result, MulOf(c, rests[key]))
		}
	}
	if !constant.IsZero() {
		result = append(result, constant)
	}
	switch len(result) {
	case 0:
		return N(0)
	case 1:
		return result[0]
	}
	return &Add{terms: result}
}

func (a *Add) String() string {
	if len(a.terms) == 0 {
		return "0"
	}
	var sb strings.Builder
	for i, t := range a.terms {
		switch {
		case i == 0:
			sb.WriteString(t.String())
		case isNegativeTerm(t):
			sb.WriteString(" - ")
			sb.WriteString(parenSum(negate(t), Expr.String, "(", ")"))
		default:
			sb.WriteString(" + ")
			sb.WriteString(t.String())
		}
	}
	return sb.String()
}

func (a *Add) LaTeX() string {
	var sb strings.Builder
	for i, t := range a.terms {
		switch {
		case i == 0:
			sb.WriteString(t.LaTeX())
		case isNegativeTerm(t):
			sb.WriteString(" - ")
			sb.WriteString(parenSum(negate(t), Expr.LaTeX, "\\left(", "\\right)"))
		default:
			sb.WriteString(" + ")
			sb.WriteString(t.LaTeX())
		}
	}
	return sb.String()
}

func (a *Add) Sub(varName string, value Expr) Expr {
	newTerms := make([]Expr, len(a.terms))
	for i, t := range a.terms {
		newTerms[i] = t.Sub(varName, value)
	}
	return AddOf(newTerms...)
}

func (a *Add) Diff(varName string) Expr {
	dTerms := make([]Expr, len(a.terms))
	for i, t := range a.terms {
		dTerms[i] = t.Diff(varName)
	}
	return AddOf(dTerms...)
}

func (a *Add) Eval() (*Num, bool) {
	acc := N(0)
	for _, t := range a.terms {
		v, ok := t.Eval()
		if !ok {
			return nil, false
		}
		acc = numAdd(acc, v)
	}
	return acc, true
}

func (a *Add) Equal(other Expr) bool {
	o, ok := other.(*Add)
	if !ok || len(a.terms) != len(o.terms) {
		return false
	}
	for i := range a.terms {
		if !a.terms[i].Equal(o.terms[i]) {
			return false
		}
	}
	return true
}

func (a *Add) exprType() string { return "add" }
func (a *Add) toJSON() map[string]interface{} {
	ts := make([]map[string]interface{}, len(a.terms))
	for i, t := range a.terms {
		ts[i] = t.toJSON()
	}
	return map[string]interface{}{"type": "add", "terms": ts}
}
func (a *Add) Terms() []Expr { return a.terms }

// ============================================================
// Mul — product of factors
// ============================================================

type Mul struct{ factors []Expr }

func MulOf(factors ...Expr) Expr { return (&Mul{factors: factors}).Simplify() }

// Simplify flattens nested products, folds numeric factors into a leading
// coefficient and merges factors sharing a base by adding exponents.
func (m *Mul) Simplify() Expr {
	flat := make([]Expr, 0, len(m.factors))
	for _, f := range m.factors {
		s := f.Simplify()
		if inner, ok := s.(*Mul); ok {
			flat = append(flat, inner.factors...)
		} else {
			flat = append(flat, s)
		}
	}
	coeff := N(1)
	bases := map[string]Expr{}
	exps := map[string]Expr{}
	order := []string{}
	for _, f := range flat {
		if v, ok := f.(*Num); ok {
			coeff = numMul(coeff, v)
			continue
		}
		base, exp := f, Expr(N(1))
		if p, ok := f.(*Pow); ok {
			base, exp = p.base, p.exp
		}
		key := base.String()
		if _, seen := exps[key]; !seen {
			order = append(order, key)
			bases[key] = base
			exps[key] = exp
			continue
		}
		exps[key] = AddOf(exps[key], exp)
	}
	if coeff.IsZero() {
		return N(0)
	}

	// Precompute sort keys to avoid repeated String() calls in comparator.
	type keyed struct {
		e   Expr
		key string
	}
	ks := make([]keyed, 0, len(order))
	for _, key := range order {
		pe := PowOf(bases[key], exps[key])
		if n, ok := pe.(*Num); ok {
			coeff = numMul(coeff, n)
			continue
		}
		ks = append(ks, keyed{e: pe, key: pe.String()})
	}
	if coeff.IsZero() {
		return N(0)
	}
	if len(ks) == 0 {
		return coeff
	}
	sort.SliceStable(ks, func(i, j int) bool { return ks[i].key < ks[j].key })
	others := make([]Expr, len(ks))
	for i := range ks {
		others[i] = ks[i].e
	}
	// c*(a + b) = c*a + c*b, so like terms can meet in the enclosing sum.
	if sum, ok := others[0].(*Add); ok && len(others) == 1 && !coeff.IsOne() {
		terms := make([]Expr, len(sum.terms))
		for i, t := range sum.terms {
			terms[i] = MulOf(coeff, t)
		}
		return AddOf(terms...)
	}
	if coeff.IsOne() {
		if len(others) == 1 {
			return others[0]
		}
		return &Mul{factors: others}
	}
	return &Mul{factors: append([]Expr{coeff}, others...)}
}

// split separates a product into its sign, numerator and denominator
// factors. Negative numeric exponents move to the denominator.
func (m *Mul) split() (negative bool, num, den []Expr) {
	for _, f := range m.factors {
		if c, ok := f.(*Num); ok {
			if c.IsNegative() {
				negative = !negative
				c = numAbs(c)
			}
			if !c.exactish() {
				num = append(num, c)
				continue
			}
			if p := c.val.Num(); p.Cmp(big.NewInt(1)) != 0 {
				num = append(num, &Num{val: new(big.Rat).SetInt(p)})
			}
			if q := c.val.Denom(); q.Cmp(big.NewInt(1)) != 0 {
				den = append(den, &Num{val: new(big.Rat).SetInt(q)})
			}
			continue
		}
		if p, ok := f.(*Pow); ok {
			if e, ok := p.exp.(*Num); ok && e.IsNegative() {
				den = append(den, PowOf(p.base, numNeg(e)))
				continue
			}
		}
		num = append(num, f)
	}
	return negative, num, den
}

func (m *Mul) String() string {
	if len(m.factors) == 0 {
		return "1"
	}
	negative, num, den := m.split()
	out := joinFactors(num, "*", func(e Expr) string { return e.String() }, "(", ")")
	if len(den) > 0 {
		d := joinFactors(den, "*", func(e Expr) string { return e.String() }, "(", ")")
		if len(den) > 1 || needsParens(den[0]) {
			d = "(" + d + ")"
		}
		out += "/" + d
	}
	if negative {
		return "-" + out
	}
	return out
}

func (m *Mul) LaTeX() string {
	negative, num, den := m.split()
	latex := func(e Expr) string { return e.LaTeX() }
	out := joinFactors(num, " ", latex, "\\left(", "\\right)")
	if len(den) > 0 {
		out = "\\frac{" + out + "}{" + joinFactors(den, " ", latex, "\\left(", "\\right)") + "}"
	}
	if negative {
		return "-" + out
	}
	return out
}

func joinFactors(fs []Expr, sep string, render func(Expr) string, open, close string) string {
	if len(fs) == 0 {
		return "1"
	}
	parts := make([]string, len(fs))
	for i, f := range fs {
		if _, isAdd := f.(*Add); isAdd {
			parts[i] = open + render(f) + close
		} else {
			parts[i] = render(f)
		}
	}
	return strings.Join(parts, sep)
}

func needsParens(e Expr) bool {
	switch v := e.(type) {
	case *Add, *Mul:
		return true
	case *Num:
		return v.IsNegative() || !v.IsInteger()
	case *Pow:
		if en, ok := v.exp.(*Num); ok && en.IsNegative() {
			return true
		}
	}
	return false
}

func (m *Mul) Sub(varName string, value Expr) Expr {
	newFactors := make([]Expr, len(m.factors))
	for i, f := range m.factors {
		newFactors[i] = f.Sub(varName, value)
	}
	return MulOf(newFactors...)
}

func (m *Mul) Diff(varName string) Expr {
	terms := make([]Expr, len(m.factors))
	for i, fi := range m.factors {
		dfi := fi.Diff(varName)
		others := make([]Expr, 0, len(m.factors)-1)
		for j, fj := range m.factors {
			if j != i {
				others = append(others, fj)
			}
		}
		terms[i] = MulOf(append([]Expr{dfi}, others...)...)
	}
	return AddOf(terms...)
}

func (m *Mul) Eval() (*Num, bool) {
	acc := N(1)
	for _, f := range m.factors {
		v, ok := f.Eval()
		if !ok {
			return nil, false
		}
		acc = numMul(acc, v)
	}
	return acc, true
}

func (m *Mul) Equal(other Expr) bool {
	o, ok := other.(*Mul)
	if !ok || len(m.factors) != len(o.factors) {
		return false
	}
	for i := range m.factors {
		if !m.factors[i].Equal(o.factors[i]) {
			return false
		}
	}
	return true
}

func (m *Mul) exprType() string { return "mul" }
func (m *Mul) toJSON() map[string]interface{} {
	fs := make([]map[string]interface{}, len(m.factors))
	for i, f := range m.factors {
		fs[i] = f.toJSON()
	}
	return map[string]interface{}{"type": "mul", "factors": fs}
}
func (m *Mul) Factors() []Expr { return m.factors }

// ============================================================
// Pow — base^exponent
// ============================================================

type Pow struct{ base, exp Expr }

func PowOf(base, exp Expr) Expr { return (&Pow{base: base, exp: exp}).Simplify() }

func (p *Pow) Simplify() Expr {
	base := p.base.Simplify()
	exp := p.exp.Simplify()

	en, expIsNum := exp.(*Num)
	if expIsNum && en.IsZero() {
		return N(1)
	}
	if expIsNum && en.IsOne() {
		return base
	}

	if base == Expr(E) {
		return ExpOf(exp)
	}

	if bn, ok := base.(*Num); ok {
		switch {
		case bn.IsZero():
			// 0^0 is indeterminate; 0^negative is division by zero.
			if expIsNum && (en.IsZero() || en.IsNegative()) {
				return &Pow{base: base, exp: exp}
			}
			return N(0)
		case bn.IsOne():
			return N(1)
		}
		if expIsNum && en.IsInteger() {
			e := en.val.Num().Int64()
			if e >= -20 && e <= 20 {
				posE := e
				if posE < 0 {
					posE = -posE
				}
				result := N(1)
				for i := int64(0); i < posE; i++ {
					result = numMul(result, bn)
				}
				if e < 0 {
					return numRecip(result)
				}
				return result
			}
		}
		if expIsNum && en.val.Cmp(big.NewRat(1, 2)) == 0 {
			if r, ok := numSqrt(bn); ok {
				return r
			}
		}
	}
	// (b^a)^n = b^(a*n) holds for integer n only.
	if inner, ok := base.(*Pow); ok && expIsNum && en.IsInteger() {
		return PowOf(inner.base, MulOf(inner.exp, exp))
	}
	return &Pow{base: base, exp: exp}
}

func (p *Pow) isSqrt() bool {
	en, ok := p.exp.(*Num)
	return ok && en.val.Cmp(big.NewRat(1, 2)) == 0
}

func (p *Pow) String() string {
	if en, ok := p.exp.(*Num); ok && en.IsNegative() {
		inv := PowOf(p.base, numNeg(en))
		s := inv.String()
		if needsParens(inv) {
			s = "(" + s + ")"
		}
		return "1/" + s
	}
	if p.isSqrt() {
		return "sqrt(" + p.base.String() + ")"
	}
	baseStr := p.base.String()
	if needsParens(p.base) || isPow(p.base) {
		baseStr = "(" + baseStr + ")"
	}
	expStr := p.exp.String()
	if en, ok := p.exp.(*Num); !(ok && en.IsInteger() && !en.IsNegative()) {
		if _, isSym := p.exp.(*Sym); !isSym {
			expStr = "(" + expStr + ")"
		}
	}
	return baseStr + "^" + expStr
}

func (p *Pow) LaTeX() string {
	if en, ok := p.exp.(*Num); ok && en.IsNegative() {
		return "\\frac{1}{" + PowOf(p.base, numNeg(en)).LaTeX() + "}"
	}
	if p.isSqrt() {
		return "\\sqrt{" + p.base.LaTeX() + "}"
	}
	baseStr := p.base.LaTeX()
	if needsParens(p.base) || isPow(p.base) {
		baseStr = "\\left(" + baseStr + "\\right)"
	}
	return baseStr + "^{" + p.exp.LaTeX() + "}"
}

func isPow(e Expr) bool { _, ok := e.(*Pow); return ok }

func (p *Pow) Sub(varName string, value Expr) Expr {
	return PowOf(p.base.Sub(varName, value), p.exp.Sub(varName, value))
}

func (p *Pow) Diff(varName string) Expr {
	du := p.base.Diff(varName)
	dv := p.exp.Diff(varName)
	if _, expIsNum := p.exp.(*Num); expIsNum {
		newExp := AddOf(p.exp, N(-1))
		return MulOf(p.exp, PowOf(p.base, newExp), du)
	}
	if _, baseIsNum := p.base.(*Num); baseIsNum {
		return MulOf(PowOf(p.base, p.exp), LnOf(p.base), dv)
	}
	logTerm := MulOf(dv, LnOf(p.base))
	divTerm := MulOf(p.exp, du, PowOf(p.base, N(-1)))
	return MulOf(PowOf(p.base, p.exp), AddOf(logTerm, divTerm))
}

func (p *Pow) Eval() (*Num, bool) {
	b, ok1 := p.base.Eval()
	e, ok2 := p.exp.Eval()
	if !ok1 || !ok2 {
		return nil, false
	}
	if e.IsInteger() && e.val.Num().IsInt64() {
		if k := e.val.Num().Int64(); k >= -64 && k <= 64 {
			if b.IsZero() && k < 0 {
				return nil, false
			}
			return PowOf(b, e).Eval()
		}
	}
	return NFloat(math.Pow(b.Float64(), e.Float64()))
}

func (p *Pow) Equal(other Expr) bool {
	o, ok := other.(*Pow)
	return ok && p.base.Equal(o.base) && p.exp.Equal(o.exp)
}

func (p *Pow) exprType() string { return "pow" }
func (p *Pow) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "pow", "base": p.base.toJSON(), "exp": p.exp.toJSON()}
}
func (p *Pow) Base() Expr    { return p.base }
func (p *Pow) ExpExpr() Expr { return p.exp }

// ============================================================
// Func — named function applications
// ============================================================

// Fn identifies one of the supported elementary functions.
type Fn uint8

const (
	FnSin Fn = iota + 1
	FnCos
	FnTan
	FnExp
	FnLn
	FnAbs
	FnAsin
	FnAcos
	FnAtan
	FnSinh
	FnCosh
	FnTanh
	FnSign
)

var fnNames = map[Fn]string{
	FnSin: "sin", FnCos: "cos", FnTan: "tan", FnExp: "exp", FnLn: "ln",
	FnAbs: "abs", FnAsin: "asin", FnAcos: "acos", FnAtan: "atan",
	FnSinh: "sinh", FnCosh: "cosh", FnTanh: "tanh", FnSign: "sign",
}

func (f Fn) String() string {
	if name, ok := fnNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Fn(%d)", uint8(f))
}

// Functions lists every supported function in declaration order.
func Functions() []Fn {
	out := make([]Fn, 0, len(fnNames))
	for f := FnSin; f <= FnSign; f++ {
		out = append(out, f)
	}
	return out
}

// LookupFn resolves a function name. "log" is accepted as the natural log.
func LookupFn(name string) (Fn, bool) {
	if name == "log" {
		return FnLn, true
	}
	for f, n := range fnNames {
		if n == name {
			return f, true
		}
	}
	return 0, false
}

// Apply evaluates the function on a float. Results outside the reals come
// back as NaN or ±Inf; callers decide what that means.
func (f Fn) Apply(v float64) float64 {
	switch f {
	case FnSin:
		return math.Sin(v)
	case FnCos:
		return math.Cos(v)
	case FnTan:
		return math.Tan(v)
	case FnExp:
		return math.Exp(v)
	case FnLn:
		return math.Log(v)
	case FnAbs:
		return math.Abs(v)
	case FnAsin:
		return math.Asin(v)
	case FnAcos:
		return math.Acos(v)
	case FnAtan:
		return math.Atan(v)
	case FnSinh:
		return math.Sinh(v)
	case FnCosh:
		return math.Cosh(v)
	case FnTanh:
		return math.Tanh(v)
	case FnSign:
		switch {
		case v > 0:
			return 1
		case v < 0:
			return -1
		}
		return 0
	}
	return math.NaN()
}

// exact folds the function at a rational argument when the value is itself
// rational, e.g. sin(0) or ln(1).
func (f Fn) exact(n *Num) (*Num, bool) {
	switch f {
	case FnAbs:
		return numAbs(n), true
	case FnSign:
		return N(int64(n.val.Sign())), true
	case FnSin, FnTan, FnAsin, FnAtan, FnSinh, FnTanh:
		if n.IsZero() {
			return N(0), true
		}
	case FnCos, FnCosh, FnExp:
		if n.IsZero() {
			return N(1), true
		}
	case FnLn, FnAcos:
		if n.IsOne() {
			return N(0), true
		}
	}
	return nil, false
}

type Func struct {
	fn  Fn
	arg Expr
}

func funcOf(fn Fn, arg Expr) *Func { return &Func{fn: fn, arg: arg} }

// Apply builds fn(arg) and simplifies it.
func Apply(fn Fn, arg Expr) Expr { return funcOf(fn, arg).Simplify() }

func SinOf(arg Expr) Expr  { return Apply(FnSin, arg) }
func CosOf(arg Expr) Expr  { return Apply(FnCos, arg) }
func TanOf(arg Expr) Expr  { return Apply(FnTan, arg) }
func ExpOf(arg Expr) Expr  { return Apply(FnExp, arg) }
func LnOf(arg Expr) Expr   { return Apply(FnLn, arg) }
func SqrtOf(arg Expr) Expr { return PowOf(arg, F(1, 2)) }
func AbsOf(arg Expr) Expr  { return Apply(FnAbs, arg) }
func AsinOf(arg Expr) Expr { return Apply(FnAsin, arg) }
func AcosOf(arg Expr) Expr { return Apply(FnAcos, arg) }
func AtanOf(arg Expr) Expr { return Apply(FnAtan, arg) }
func SinhOf(arg Expr) Expr { return Apply(FnSinh, arg) }
func CoshOf(arg Expr) Expr { return Apply(FnCosh, arg) }
func TanhOf(arg Expr) Expr { return Apply(FnTanh, arg) }
func SignOf(arg Expr) Expr { return Apply(FnSign, arg) }

func (f *Func) Simplify() Expr {
	arg := f.arg.Simplify()
	if n, ok := arg.(*Num); ok {
		if v, ok := f.fn.exact(n); ok {
			return v
		}
	}
	switch f.fn {
	case FnLn:
		if inner, ok := arg.(*Func); ok && inner.fn == FnExp {
			return inner.arg
		}
		if arg == Expr(E) {
			return N(1)
		}
	case FnExp:
		if inner, ok := arg.(*Func); ok && inner.fn == FnLn {
			return inner.arg
		}
	case FnAbs:
		if inner, ok := arg.(*Func); ok && inner.fn == FnAbs {
			return inner
		}
		if m, ok := arg.(*Mul); ok && len(m.factors) >= 2 {
			if coeff, ok2 := m.factors[0].(*Num); ok2 && coeff.IsNegative() {
				return MulOf(numAbs(coeff), AbsOf(MulOf(m.factors[1:]...)))
			}
		}
	}
	return &Func{fn: f.fn, arg: arg}
}

func (f *Func) String() string { return f.fn.String() + "(" + f.arg.String() + ")" }

func (f *Func) LaTeX() string {
	arg := f.arg.LaTeX()
	switch f.fn {
	case FnSin, FnCos, FnTan, FnExp, FnLn, FnSinh, FnCosh, FnTanh:
		return "\\" + f.fn.String() + "\\left(" + arg + "\\right)"
	case FnAsin:
		return "\\arcsin\\left(" + arg + "\\right)"
	case FnAcos:
		return "\\arccos\\left(" + arg + "\\right)"
	case FnAtan:
		return "\\arctan\\left(" + arg + "\\right)"
	case FnAbs:
		return "\\left|" + arg + "\\right|"
	}
	return "\\operatorname{" + f.fn.String() + "}\\left(" + arg + "\\right)"
}

func (f *Func) Sub(varName string, value Expr) Expr {
	return funcOf(f.fn, f.arg.Sub(varName, value)).Simplify()
}

func (f *Func) Diff(varName string) Expr {
	du := f.arg.Diff(varName)
	var outer Expr
	switch f.fn {
	case FnSin:
		outer = CosOf(f.arg)
	case FnCos:
		outer = MulOf(N(-1), SinOf(f.arg))
	case FnTan:
		outer = AddOf(N(1), PowOf(TanOf(f.arg), N(2)))
	case FnExp:
		outer = ExpOf(f.arg)
	case FnLn:
		outer = PowOf(f.arg, N(-1))
	case FnAbs:
		outer = SignOf(f.arg)
	case FnSign:
		// zero away from the origin of its argument
		return N(0)
	case FnAsin:
		outer = PowOf(AddOf(N(1), MulOf(N(-1), PowOf(f.arg, N(2)))), F(-1, 2))
	case FnAcos:
		outer = MulOf(N(-1), PowOf(AddOf(N(1), MulOf(N(-1), PowOf(f.arg, N(2)))), F(-1, 2)))
	case FnAtan:
		outer = PowOf(AddOf(N(1), PowOf(f.arg, N(2))), N(-1))
	case FnSinh:
		outer = CoshOf(f.arg)
	case FnCosh:
		outer = SinhOf(f.arg)
	case FnTanh:
		outer = AddOf(N(1), MulOf(N(-1), PowOf(TanhOf(f.arg), N(2))))
	default:
		panic("derivrecon: unknown function " + f.fn.String())
	}
	return MulOf(outer, du)
}

func (f *Func) Eval() (*Num, bool) {
	n, ok := f.arg.Eval()
	if !ok {
		return nil, false
	}
	if v, ok := f.fn.exact(n); ok {
		return v, true
	}
	return NFloat(f.fn.Apply(n.Float64()))
}

func (f *Func) Equal(other Expr) bool {
	o, ok := other.(*Func)
	return ok && f.fn == o.fn && f.arg.Equal(o.arg)
}

func (f *Func) exprType() string { return "func" }
func (f *Func) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "func", "name": f.fn.String(), "arg": f.arg.toJSON()}
}
func (f *Func) Fn() Fn    { return f.fn }
func (f *Func) Arg() Expr { return f.arg }

// ============================================================
// Equation
// ============================================================

type Equation struct{ LHS, RHS Expr }

func Eq(lhs, rhs Expr) *Equation { return &Equation{LHS: lhs, RHS: rhs} }
func (e *Equation) String() string {
	return e.LHS.String() + " = " + e.RHS.String()
}
func (e *Equation) LaTeX() string { return e.LHS.LaTeX() + " = " + e.RHS.LaTeX() }

// Residual returns LHS - RHS.
func (e *Equation) Residual() Expr {
	return AddOf(e.LHS, MulOf(N(-1), e.RHS))
}

// ============================================================
// helpers
// ============================================================

func isNumEqual(e Expr, v int64) bool {
	n, ok := e.(*Num)
	return ok && n.Equal(N(v))
}

func extractCoefficient(e Expr) (*Num, Expr) {
	if m, ok := e.(*Mul); ok && len(m.factors) >= 2 {
		if coeff, ok2 := m.factors[0].(*Num); ok2 {
			rest := m.factors[1:]
			if len(rest) == 1 {
				return coeff, rest[0]
			}
			return coeff, &Mul{factors: rest}
		}
	}
	return N(1), e
}

func isNegativeTerm(e Expr) bool {
	switch v := e.(type) {
	case *Num:
		return v.IsNegative()
	case *Mul:
		c, _ := extractCoefficient(v)
		return c.IsNegative()
	}
	return false
}

func negate(e Expr) Expr { return MulOf(N(-1), e) }

// parenSum renders e, bracketed when it is a sum so that a preceding minus
// sign applies to all of it.
func parenSum(e Expr, render func(Expr) string, open, close string) string {
	if _, ok := e.(*Add); ok {
		return open + render(e) + close
	}
	return render(e)
}
