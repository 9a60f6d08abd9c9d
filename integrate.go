package derivrecon

import (
	"fmt"
	"math/big"
)

const (
	// maxPartsSteps bounds repeated integration by parts, which terminates
	// after deg(P)+1 steps for a polynomial P.
	maxPartsSteps = 16
	// maxSubstDepth bounds nested u-substitutions.
	maxSubstDepth = 3
	// maxTrigPower bounds the reduction formulas for sin^n, cos^n and tan^n.
	maxTrigPower = 12
)

// ============================================================
// Integration (rule-based symbolic)
// ============================================================

// Integrate returns an antiderivative of expr with respect to varName,
// without an integration constant. When no rule applies the error is an
// *IntegrationError naming the offending sub-expression.
//
// Covered forms: constants, sums and constant multiples, polynomials,
// powers of a linear argument (including the ln|u| case), a^u for linear
// u, the elementary functions of a linear argument and ln|u|, rational
// functions whose denominator has degree one or two, 1/sqrt of a
// quadratic, integer powers of sin, cos and tan, products of two sines or
// cosines, exp times sin or cos, a polynomial times exp, sin, cos, sinh,
// cosh, ln or atan, and k*g'(x)*h(g(x)) by substitution. A product that
// matches none of these is expanded and tried again.
func Integrate(expr Expr, varName string) (Expr, error) {
	e := expr.Simplify()
	in := integrator{v: varName}
	result, err := in.run(e)
	if err == nil {
		return result, nil
	}
	if expanded := Expand(e); !expanded.Equal(e) {
		if r, err2 := in.run(expanded); err2 == nil {
			return r, nil
		}
	}
	logger().Debug("integration failed", "expr", e.String(), "var", varName, "err", err)
	return nil, err
}

// IntegrateN integrates g n times, adding a fresh constant from scope after
// each pass. The i-th element of the result is the i-th antiderivative.
func IntegrateN(g Expr, n int, scope *Scope) ([]Expr, error) {
	if n < 1 || n > 2 {
		return nil, &RequestError{Field: "order", Reason: fmt.Sprintf("integration count must be 1 or 2, got %d", n)}
	}
	out := make([]Expr, 0, n)
	cur := g
	for i := 0; i < n; i++ {
		anti, err := Integrate(cur, scope.Var())
		if err != nil {
			return nil, err
		}
		cur = AddOf(anti, scope.Fresh())
		out = append(out, cur)
	}
	return out, nil
}

type integrator struct {
	v     string
	depth int // nesting of u-substitutions
}

func (in integrator) run(e Expr) (Expr, error) {
	v := in.v
	if !DependsOn(e, v) {
		return MulOf(e, S(v)), nil
	}
	switch t := e.(type) {
	case *Sym:
		return MulOf(F(1, 2), PowOf(t, N(2))), nil
	case *Add:
		terms := make([]Expr, len(t.terms))
		for i, term := range t.terms {
			r, err := in.run(term)
			if err != nil {
				return nil, err
			}
			terms[i] = r
		}
		return AddOf(terms...), nil
	case *Mul:
		var consts, deps []Expr
		for _, f := range t.factors {
			if DependsOn(f, v) {
				deps = append(deps, f)
			} else {
				consts = append(consts, f)
			}
		}
		if len(consts) > 0 {
			r, err := in.run(MulOf(deps...))
			if err != nil {
				return nil, err
			}
			return MulOf(append(consts, r)...), nil
		}
		if r, ok := in.product(t); ok {
			return r, nil
		}
	case *Pow:
		if r, ok := in.power(t); ok {
			return r, nil
		}
	case *Func:
		if r, ok := in.function(t); ok {
			return r, nil
		}
	}
	if r, ok := in.substitute(e); ok {
		return r, nil
	}
	return nil, &IntegrationError{Expr: e, Var: v}
}

// linear reports u = a*v + b with a nonzero and independent of v.
func linear(u Expr, v string) (a, b Expr, ok bool) {
	a = Diff(u, v)
	if DependsOn(a, v) || isNumEqual(a, 0) {
		return nil, nil, false
	}
	return a, Sub(u, v, N(0)), true
}

// product handles a product with no constant factor.
func (in integrator) product(m *Mul) (Expr, bool) {
	if coeffs, ok := Polynomial(m, in.v); ok {
		return polyIntegral(ratsOf(coeffs), in.v), true
	}
	if r, ok := in.rational(m.factors); ok {
		return r, true
	}
	if len(m.factors) == 2 {
		f, g := m.factors[0], m.factors[1]
		if r, ok := in.pair(f, g); ok {
			return r, true
		}
		if r, ok := in.pair(g, f); ok {
			return r, true
		}
	}
	return nil, false
}

func (in integrator) pair(p, g Expr) (Expr, bool) {
	fg, ok := g.(*Func)
	if !ok {
		return nil, false
	}
	if fp, ok := p.(*Func); ok {
		if r, ok := in.trigProduct(fp, fg); ok {
			return r, true
		}
		if r, ok := in.expTrig(fp, fg); ok {
			return r, true
		}
	}
	if _, ok := Polynomial(p, in.v); !ok {
		return nil, false
	}
	switch fg.fn {
	case FnExp, FnSin, FnCos, FnSinh, FnCosh:
		return in.byParts(p, fg)
	case FnLn, FnAtan:
		return in.byPartsInverse(p, fg)
	}
	return nil, false
}

// byParts integrates P*g for polynomial P by the tabular method:
// sum over k of (-1)^k P^(k) G_(k+1), where G_j is the j-th antiderivative
// of g.
func (in integrator) byParts(poly Expr, g *Func) (Expr, bool) {
	if _, _, ok := linear(g.arg, in.v); !ok {
		return nil, false
	}
	terms := []Expr{}
	p, anti := poly, Expr(g)
	sign := int64(1)
	for i := 0; i < maxPartsSteps; i++ {
		if isNumEqual(p, 0) {
			return AddOf(terms...), true
		}
		next, err := in.run(anti)
		if err != nil {
			return nil, false
		}
		anti = next
		terms = append(terms, MulOf(N(sign), p, anti))
		p = Diff(p, in.v)
		sign = -sign
	}
	return nil, false
}

// byPartsInverse integrates P*f for f = ln or atan of a polynomial u:
// Q*f - ∫Q*f' with Q = ∫P. It succeeds when Q*f' is a rational function
// the rational rule covers.
func (in integrator) byPartsInverse(poly Expr, f *Func) (Expr, bool) {
	u := f.arg
	if abs, ok := u.(*Func); ok && f.fn == FnLn && abs.fn == FnAbs {
		u = abs.arg
	}
	if _, ok := Polynomial(u, in.v); !ok {
		return nil, false
	}
	df := Diff(f, in.v)
	if f.fn == FnLn {
		// d/dx ln|u| = u'/u away from the zeros of u
		df = MulOf(Diff(u, in.v), PowOf(u, N(-1)))
	}
	q, err := in.run(poly)
	if err != nil {
		return nil, false
	}
	rest, err := in.run(MulOf(q, df))
	if err != nil {
		return nil, false
	}
	return AddOf(MulOf(q, f), negate(rest)), true
}

func isSinCos(f *Func) bool { return f.fn == FnSin || f.fn == FnCos }

// trigProduct rewrites sin/cos products of linear arguments as sums:
//
//	sin A cos B = (sin(A+B) + sin(A-B))/2
//	sin A sin B = (cos(A-B) - cos(A+B))/2
//	cos A cos B = (cos(A-B) + cos(A+B))/2
func (in integrator) trigProduct(f, g *Func) (Expr, bool) {
	if !isSinCos(f) || !isSinCos(g) {
		return nil, false
	}
	if _, _, ok := linear(f.arg, in.v); !ok {
		return nil, false
	}
	if _, _, ok := linear(g.arg, in.v); !ok {
		return nil, false
	}
	if f.fn == FnCos && g.fn == FnSin {
		f, g = g, f
	}
	sum, diff := AddOf(f.arg, g.arg), AddOf(f.arg, negate(g.arg))
	var r Expr
	switch {
	case f.fn == FnSin && g.fn == FnCos:
		r = AddOf(SinOf(sum), SinOf(diff))
	case f.fn == FnSin:
		r = AddOf(CosOf(diff), negate(CosOf(sum)))
	default:
		r = AddOf(CosOf(diff), CosOf(sum))
	}
	res, err := in.run(MulOf(F(1, 2), r))
	return res, err == nil
}

// expTrig integrates exp(p)*sin(q) and exp(p)*cos(q) for linear p = a*x+..,
// q = c*x+..:
//
//	∫exp(p) sin(q) = exp(p) (a sin q - c cos q)/(a^2 + c^2)
//	∫exp(p) cos(q) = exp(p) (a cos q + c sin q)/(a^2 + c^2)
func (in integrator) expTrig(f, g *Func) (Expr, bool) {
	if g.fn == FnExp {
		f, g = g, f
	}
	if f.fn != FnExp || !isSinCos(g) {
		return nil, false
	}
	a, _, ok := linear(f.arg, in.v)
	if !ok {
		return nil, false
	}
	c, _, ok := linear(g.arg, in.v)
	if !ok {
		return nil, false
	}
	q := g.arg
	den := PowOf(AddOf(PowOf(a, N(2)), PowOf(c, N(2))), N(-1))
	var body Expr
	if g.fn == FnSin {
		body = AddOf(MulOf(a, SinOf(q)), negate(MulOf(c, CosOf(q))))
	} else {
		body = AddOf(MulOf(a, CosOf(q)), MulOf(c, SinOf(q)))
	}
	return MulOf(f, den, body), true
}

func (in integrator) power(p *Pow) (Expr, bool) {
	v := in.v
	if !DependsOn(p.exp, v) {
		n, isNum := p.exp.(*Num)
		if a, _, ok := linear(p.base, v); ok {
			if isNum && n.IsNegOne() {
				return MulOf(PowOf(a, N(-1)), LnOf(AbsOf(p.base))), true
			}
			n1 := AddOf(p.exp, N(1))
			return MulOf(PowOf(MulOf(a, n1), N(-1)), PowOf(p.base, n1)), true
		}
		if !isNum {
			return nil, false
		}
		if n.IsNegOne() {
			if r, ok := in.rational([]Expr{p}); ok {
				return r, true
			}
		}
		if n.val.Cmp(big.NewRat(-1, 2)) == 0 {
			if r, ok := in.inverseSqrt(p.base); ok {
				return r, true
			}
		}
		if f, ok := p.base.(*Func); ok && n.IsInteger() && n.val.Num().IsInt64() {
			return in.trigPower(f, n.val.Num().Int64())
		}
		return nil, false
	}
	if !DependsOn(p.base, v) {
		bn, ok := p.base.(*Num)
		if !ok || !bn.IsPositive() || bn.IsOne() {
			return nil, false
		}
		a, _, ok := linear(p.exp, v)
		if !ok {
			return nil, false
		}
		return MulOf(p, PowOf(MulOf(a, LnOf(p.base)), N(-1))), true
	}
	return nil, false
}

// trigPower integrates sin^k, cos^k and tan^k of a linear argument u = a*x+b
// with the reduction formulas
//
//	∫sin^k u = -sin^(k-1) u cos u/(k a) + (k-1)/k ∫sin^(k-2) u
//	∫cos^k u =  cos^(k-1) u sin u/(k a) + (k-1)/k ∫cos^(k-2) u
//	∫tan^k u =  tan^(k-1) u/((k-1) a) - ∫tan^(k-2) u
//
// and handles 1/sin, 1/cos, 1/sin^2 and 1/cos^2 directly.
func (in integrator) trigPower(f *Func, k int64) (Expr, bool) {
	a, _, ok := linear(f.arg, in.v)
	if !ok {
		return nil, false
	}
	u, inv := f.arg, PowOf(a, N(-1))
	switch {
	case k == -1 && f.fn == FnCos:
		// ln|(1 + sin u)/cos u|/a
		return MulOf(inv, LnOf(AbsOf(MulOf(AddOf(N(1), SinOf(u)), PowOf(CosOf(u), N(-1)))))), true
	case k == -1 && f.fn == FnSin:
		// ln|(1 - cos u)/sin u|/a
		return MulOf(inv, LnOf(AbsOf(MulOf(AddOf(N(1), negate(CosOf(u))), PowOf(SinOf(u), N(-1)))))), true
	case k == -2 && f.fn == FnCos:
		return MulOf(inv, TanOf(u)), true
	case k == -2 && f.fn == FnSin:
		return MulOf(N(-1), inv, CosOf(u), PowOf(SinOf(u), N(-1))), true
	case k < 2 || k > maxTrigPower:
		return nil, false
	}
	switch f.fn {
	case FnSin, FnCos, FnTan:
	default:
		return nil, false
	}
	rest, err := in.run(PowOf(f, N(k-2)))
	if err != nil {
		return nil, false
	}
	lower := PowOf(f, N(k-1))
	switch f.fn {
	case FnSin:
		return AddOf(MulOf(F(-1, k), inv, lower, CosOf(u)), MulOf(F(k-1, k), rest)), true
	case FnCos:
		return AddOf(MulOf(F(1, k), inv, lower, SinOf(u)), MulOf(F(k-1, k), rest)), true
	}
	return AddOf(MulOf(F(1, k-1), inv, lower), negate(rest)), true
}

// rational integrates P/Q for polynomials P and Q with deg Q in {1, 2}.
// After division P/Q = S + R/Q; S integrates as a polynomial and R/Q
// splits into a multiple of Q'/Q (a logarithm) plus k/Q, which gives an
// arctangent, a logarithm of a ratio or a reciprocal depending on the sign
// of the discriminant.
func (in integrator) rational(factors []Expr) (Expr, bool) {
	v := in.v
	var den []*big.Rat
	var denExpr Expr
	num := make([]Expr, 0, len(factors))
	for _, f := range factors {
		if p, ok := f.(*Pow); ok && denExpr == nil && isNumEqual(p.exp, -1) {
			if c, ok := Polynomial(p.base, v); ok && (len(c) == 2 || len(c) == 3) {
				den, denExpr = ratsOf(c), p.base
				continue
			}
		}
		num = append(num, f)
	}
	if denExpr == nil {
		return nil, false
	}
	nc, ok := Polynomial(MulOf(num...), v)
	if !ok {
		return nil, false
	}
	quo, rem := polyDivMod(ratsOf(nc), den)
	coef := func(i int) *big.Rat {
		if i < len(rem) {
			return rem[i]
		}
		return new(big.Rat)
	}
	rat := func(r *big.Rat) *Num { return &Num{val: r} }

	terms := []Expr{}
	if !isZeroRat(quo) {
		terms = append(terms, polyIntegral(quo, v))
	}
	if len(den) == 2 {
		// r0/(d1 x + d0)
		if r0 := coef(0); r0.Sign() != 0 {
			terms = append(terms, MulOf(rat(new(big.Rat).Quo(r0, den[1])), LnOf(AbsOf(denExpr))))
		}
		return AddOf(terms...), true
	}

	a, b, c := den[2], den[1], den[0]
	twoA := new(big.Rat).Mul(big.NewRat(2, 1), a)
	disc := new(big.Rat).Sub(new(big.Rat).Mul(b, b), new(big.Rat).Mul(big.NewRat(4, 1), new(big.Rat).Mul(a, c)))
	lnCoef := new(big.Rat).Quo(coef(1), twoA)
	k := new(big.Rat).Sub(coef(0), new(big.Rat).Mul(lnCoef, b))
	lin := AddOf(MulOf(rat(twoA), S(v)), rat(b))

	if lnCoef.Sign() != 0 {
		// Q keeps one sign when the discriminant is negative.
		logArg := AbsOf(denExpr)
		if disc.Sign() < 0 {
			logArg = MulOf(N(int64(a.Sign())), denExpr)
		}
		terms = append(terms, MulOf(rat(lnCoef), LnOf(logArg)))
	}
	if k.Sign() != 0 {
		switch disc.Sign() {
		case -1:
			// 2k/sqrt(-D) * atan((2a x + b)/sqrt(-D))
			s := PowOf(SqrtOf(rat(new(big.Rat).Neg(disc))), N(-1))
			terms = append(terms, MulOf(rat(k), N(2), s, AtanOf(MulOf(lin, s))))
		case 1:
			// k/sqrt(D) * ln|(2a x + b - sqrt(D))/(2a x + b + sqrt(D))|
			s := SqrtOf(rat(disc))
			ratio := MulOf(AddOf(lin, negate(s)), PowOf(AddOf(lin, s), N(-1)))
			terms = append(terms, MulOf(rat(k), PowOf(s, N(-1)), LnOf(AbsOf(ratio))))
		default:
			// -2k/(2a x + b)
			terms = append(terms, MulOf(rat(k), N(-2), PowOf(lin, N(-1))))
		}
	}
	return AddOf(terms...), true
}

// inverseSqrt integrates 1/sqrt(a x^2 + b x + c). With w = x + b/(2a) and
// m = c - b^2/(4a):
//
//	a > 0:          ln|sqrt(a) w + sqrt(Q)|/sqrt(a)
//	a < 0 < m:      asin(w sqrt(-a/m))/sqrt(-a)
func (in integrator) inverseSqrt(base Expr) (Expr, bool) {
	coeffs, ok := Polynomial(base, in.v)
	if !ok || len(coeffs) != 3 {
		return nil, false
	}
	a, b, c := coeffs[2], coeffs[1], coeffs[0]
	h := numDiv(b, numMul(N(2), a))
	m := numSub(c, numMul(a, numMul(h, h)))
	w := AddOf(S(in.v), h)
	if a.IsPositive() {
		sa := SqrtOf(a)
		return MulOf(PowOf(sa, N(-1)), LnOf(AbsOf(AddOf(MulOf(sa, w), SqrtOf(base))))), true
	}
	if !m.IsPositive() {
		return nil, false
	}
	return MulOf(PowOf(numNeg(a), F(-1, 2)), AsinOf(MulOf(w, PowOf(numDiv(numNeg(a), m), F(1, 2))))), true
}

func (in integrator) function(f *Func) (Expr, bool) {
	u := f.arg
	if abs, ok := u.(*Func); ok && f.fn == FnLn && abs.fn == FnAbs {
		// (w ln|w| - w)/a
		w := abs.arg
		a, _, ok := linear(w, in.v)
		if !ok {
			return in.byPartsInverse(N(1), f)
		}
		return MulOf(PowOf(a, N(-1)), AddOf(MulOf(w, f), negate(w))), true
	}
	a, _, ok := linear(u, in.v)
	if !ok {
		if f.fn == FnLn || f.fn == FnAtan {
			return in.byPartsInverse(N(1), f)
		}
		return nil, false
	}
	inv := PowOf(a, N(-1))
	switch f.fn {
	case FnSin:
		return MulOf(N(-1), inv, CosOf(u)), true
	case FnCos:
		return MulOf(inv, SinOf(u)), true
	case FnTan:
		return MulOf(N(-1), inv, LnOf(AbsOf(CosOf(u)))), true
	case FnExp:
		return MulOf(inv, ExpOf(u)), true
	case FnSinh:
		return MulOf(inv, CoshOf(u)), true
	case FnCosh:
		return MulOf(inv, SinhOf(u)), true
	case FnTanh:
		return MulOf(inv, LnOf(CoshOf(u))), true
	case FnLn:
		// (u ln u - u)/a
		return MulOf(inv, AddOf(MulOf(u, LnOf(u)), MulOf(N(-1), u))), true
	case FnAsin:
		// (u asin u + sqrt(1 - u^2))/a
		return MulOf(inv, AddOf(MulOf(u, AsinOf(u)), SqrtOf(AddOf(N(1), MulOf(N(-1), PowOf(u, N(2))))))), true
	case FnAcos:
		return MulOf(inv, AddOf(MulOf(u, AcosOf(u)), MulOf(N(-1), SqrtOf(AddOf(N(1), MulOf(N(-1), PowOf(u, N(2)))))))), true
	case FnAtan:
		// (u atan u - ln(1 + u^2)/2)/a
		return MulOf(inv, AddOf(MulOf(u, AtanOf(u)), MulOf(F(-1, 2), LnOf(AddOf(N(1), PowOf(u, N(2))))))), true
	case FnAbs:
		// u|u|/(2a)
		return MulOf(inv, F(1, 2), u, AbsOf(u)), true
	case FnSign:
		return MulOf(inv, AbsOf(u)), true
	}
	return nil, false
}

// substitute tries u = g(x) for each non-linear sub-expression g of e.
// When e/g' rewrites as h(u) with no x left, ∫e dx = H(g(x)) for H = ∫h.
func (in integrator) substitute(e Expr) (Expr, bool) {
	if in.depth >= maxSubstDepth {
		return nil, false
	}
	t := S(fmt.Sprintf("_u%d", in.depth+1))
	for _, u := range in.substitutions(e) {
		du := Diff(u, in.v)
		if isNumEqual(du, 0) {
			continue
		}
		h := replaceSub(MulOf(e, reciprocal(du)), u, t)
		if DependsOn(h, in.v) {
			continue
		}
		inner := integrator{v: t.name, depth: in.depth + 1}
		r, err := inner.run(h)
		if err != nil {
			continue
		}
		logger().Debug("integrated by substitution", "expr", e.String(), "u", u.String())
		return Sub(r, t.name, u), true
	}
	return nil, false
}

// substitutions lists the candidate inner functions of e, outermost first.
func (in integrator) substitutions(e Expr) []Expr {
	var out []Expr
	seen := map[string]struct{}{}
	add := func(u Expr) {
		if !DependsOn(u, in.v) || u.Equal(e) {
			return
		}
		if _, _, ok := linear(u, in.v); ok {
			return
		}
		key := u.String()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, u)
	}
	var walk func(Expr)
	walk = func(x Expr) {
		switch t := x.(type) {
		case *Add:
			for _, term := range t.terms {
				walk(term)
			}
		case *Mul:
			for _, f := range t.factors {
				walk(f)
			}
		case *Pow:
			add(t)
			add(t.base)
			add(t.exp)
			walk(t.base)
			walk(t.exp)
		case *Func:
			add(t)
			add(t.arg)
			walk(t.arg)
		}
	}
	walk(e)
	return out
}

// reciprocal returns 1/e with products inverted factor by factor, so that
// common factors cancel when multiplied back in.
func reciprocal(e Expr) Expr {
	switch t := e.(type) {
	case *Num:
		return numRecip(t)
	case *Mul:
		fs := make([]Expr, len(t.factors))
		for i, f := range t.factors {
			fs[i] = reciprocal(f)
		}
		return MulOf(fs...)
	}
	return PowOf(e, N(-1))
}

// replaceSub replaces every sub-expression of e equal to target.
func replaceSub(e, target, with Expr) Expr {
	if e.Equal(target) {
		return with
	}
	switch t := e.(type) {
	case *Add:
		terms := make([]Expr, len(t.terms))
		for i, term := range t.terms {
			terms[i] = replaceSub(term, target, with)
		}
		return AddOf(terms...)
	case *Mul:
		fs := make([]Expr, len(t.factors))
		for i, f := range t.factors {
			fs[i] = replaceSub(f, target, with)
		}
		return MulOf(fs...)
	case *Pow:
		return PowOf(replaceSub(t.base, target, with), replaceSub(t.exp, target, with))
	case *Func:
		return Apply(t.fn, replaceSub(t.arg, target, with))
	}
	return e
}

// polyIntegral integrates the polynomial with coefficients c (lowest degree
// first), highest degree term first.
func polyIntegral(c []*big.Rat, v string) Expr {
	terms := make([]Expr, 0, len(c))
	for i := len(c) - 1; i >= 0; i-- {
		if c[i].Sign() == 0 {
			continue
		}
		k := int64(i + 1)
		coef := &Num{val: new(big.Rat).Quo(c[i], big.NewRat(k, 1))}
		terms = append(terms, MulOf(coef, PowOf(S(v), N(k))))
	}
	return AddOf(terms...)
}
