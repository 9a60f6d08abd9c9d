package derivrecon

import (
	"math"
	"math/big"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/mat"
)

const (
	// rootTol is the largest |e(r)| accepted for a candidate root r of a
	// non-polynomial expression.
	rootTol = 1e-6
	// imagTol is the relative imaginary part below which an eigenvalue is
	// treated as real.
	imagTol = 1e-8
	// dedupTol merges roots closer than this, relative to their size.
	dedupTol = 1e-9
)

// RealRoots returns the distinct real zeros of e in varName in increasing
// order. Polynomials and Laurent polynomials are solved completely: exactly
// up to degree two, through the eigenvalues of the companion matrix above
// that. Products are solved factor by factor. For anything else (periodic
// functions, transcendental sums) the result is empty rather than an error.
func RealRoots(e Expr, varName string) []float64 {
	e = foldConstants(e.Simplify(), varName)
	cands, ok := rootCandidates(e, varName)
	if !ok {
		logger().Debug("no closed-form roots", "expr", e.String(), "var", varName)
		return []float64{}
	}
	_, isPoly := Polynomial(e, varName)
	out := make([]float64, 0, len(cands))
	for _, r := range cands {
		v, ok := ValueAt(e, varName, r)
		if !ok {
			continue
		}
		if !isPoly && math.Abs(v.Float64()) > rootTol {
			continue
		}
		out = append(out, r)
	}
	return dedupSorted(out)
}

// RootsIn keeps the roots inside [lo, hi].
func RootsIn(roots []float64, lo, hi float64) []float64 {
	out := make([]float64, 0, len(roots))
	for _, r := range roots {
		if r >= lo && r <= hi {
			out = append(out, r)
		}
	}
	return out
}

func rootCandidates(e Expr, v string) ([]float64, bool) {
	if !DependsOn(e, v) {
		return nil, true
	}
	if terms, ok := laurentTerms(e, v); ok {
		return laurentRoots(terms), true
	}
	switch t := e.(type) {
	case *Mul:
		var all []float64
		for _, f := range t.factors {
			rs, ok := rootCandidates(f, v)
			if !ok {
				return nil, false
			}
			all = append(all, rs...)
		}
		return all, true
	case *Pow:
		en, ok := t.exp.(*Num)
		if !ok {
			return nil, false
		}
		if en.IsNegative() {
			return nil, true
		}
		return rootCandidates(t.base, v)
	case *Func:
		switch t.fn {
		case FnExp, FnCosh:
			return nil, true
		case FnAbs, FnSign, FnSinh, FnTanh, FnAtan, FnAsin:
			return rootCandidates(t.arg, v)
		case FnLn, FnAcos:
			return rootCandidates(AddOf(t.arg, N(-1)), v)
		}
	}
	return nil, false
}

// laurentRoots solves sum c_k x^k = 0 for integer k. Negative powers are
// cleared by multiplying through; x = 0 is then excluded as a pole.
func laurentRoots(terms map[int]*Num) []float64 {
	lo, hi := 0, 0
	first := true
	for k, c := range terms {
		if c.IsZero() {
			continue
		}
		if first || k < lo {
			lo = k
		}
		if first || k > hi {
			hi = k
		}
		first = false
	}
	if first {
		// identically zero
		return nil
	}
	coeffs := denseCoeffs(terms, lo, hi)
	roots := polyRoots(ratsOf(coeffs))
	if lo > 0 {
		roots = append(roots, 0)
	}
	return roots
}

// polyRoots returns the real roots of p (lowest degree first) with x = 0
// factored out first and repeated roots collapsed.
func polyRoots(p []*big.Rat) []float64 {
	p = trimRat(p)
	var roots []float64
	k := 0
	for k < len(p)-1 && p[k].Sign() == 0 {
		k++
	}
	if k > 0 {
		roots = append(roots, 0)
		p = p[k:]
	}
	if len(p) > 2 {
		p, _ = polyDivMod(p, polyGCD(p, polyDeriv(p)))
	}
	switch len(p) - 1 {
	case 0:
		return roots
	case 1, 2:
		var res SolveResult
		if len(p) == 2 {
			res = SolveLinear(&Num{val: p[1]}, &Num{val: p[0]})
		} else {
			res = SolveQuadraticExact(&Num{val: p[2]}, &Num{val: p[1]}, &Num{val: p[0]})
		}
		for _, s := range res.Solutions {
			if n, ok := s.Eval(); ok {
				roots = append(roots, n.Float64())
			}
		}
		return roots
	}
	fs := make([]float64, len(p))
	for i, c := range p {
		fs[i], _ = c.Float64()
	}
	return append(roots, eigenRoots(fs)...)
}

// eigenRoots finds the real roots of a square-free polynomial as the real
// eigenvalues of its companion matrix, refined by Newton's method.
func eigenRoots(p []float64) []float64 {
	n := len(p) - 1
	lead := p[n]
	cm := mat.NewDense(n, n, nil)
	for i := 1; i < n; i++ {
		cm.Set(i, i-1, 1)
	}
	for i := 0; i < n; i++ {
		cm.Set(i, n-1, -p[i]/lead)
	}
	var eig mat.Eigen
	if ok := eig.Factorize(cm, mat.EigenNone); !ok {
		logger().Warn("eigenvalue factorization did not converge", "degree", n)
		return nil
	}
	var out []float64
	for _, z := range eig.Values(nil) {
		if math.Abs(imag(z)) > imagTol*math.Max(1, cmplx.Abs(z)) {
			continue
		}
		out = append(out, newton(p, real(z)))
	}
	return out
}

func newton(p []float64, x float64) float64 {
	for i := 0; i < 8; i++ {
		v, d := horner(p, x)
		if d == 0 || v == 0 {
			break
		}
		next := x - v/d
		if math.IsNaN(next) || math.IsInf(next, 0) {
			break
		}
		x = next
	}
	return x
}

// horner evaluates p and p' at x.
func horner(p []float64, x float64) (v, d float64) {
	for i := len(p) - 1; i >= 0; i-- {
		d = d*x + v
		v = v*x + p[i]
	}
	return v, d
}

func dedupSorted(xs []float64) []float64 {
	sort.Float64s(xs)
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if x == 0 {
			x = 0 // drop the sign of -0
		}
		if n := len(out); n > 0 && math.Abs(x-out[n-1]) <= dedupTol*math.Max(1, math.Abs(x)) {
			continue
		}
		out = append(out, x)
	}
	return out
}

// ============================================================
// Exact polynomial arithmetic over big.Rat, lowest degree first
// ============================================================

func trimRat(p []*big.Rat) []*big.Rat {
	for len(p) > 1 && p[len(p)-1].Sign() == 0 {
		p = p[:len(p)-1]
	}
	return p
}

func isZeroRat(p []*big.Rat) bool { return len(p) == 1 && p[0].Sign() == 0 }

func polyDeriv(p []*big.Rat) []*big.Rat {
	if len(p) <= 1 {
		return []*big.Rat{new(big.Rat)}
	}
	out := make([]*big.Rat, len(p)-1)
	for i := 1; i < len(p); i++ {
		out[i-1] = new(big.Rat).Mul(p[i], big.NewRat(int64(i), 1))
	}
	return trimRat(out)
}

func polyDivMod(a, b []*big.Rat) (q, r []*big.Rat) {
	r = make([]*big.Rat, len(a))
	for i, c := range a {
		r[i] = new(big.Rat).Set(c)
	}
	db := len(b) - 1
	lead := b[db]
	if len(r)-1 < db {
		return []*big.Rat{new(big.Rat)}, r
	}
	q = make([]*big.Rat, len(r)-db)
	for i := range q {
		q[i] = new(big.Rat)
	}
	for len(r)-1 >= db && !isZeroRat(r) {
		shift := len(r) - 1 - db
		c := new(big.Rat).Quo(r[len(r)-1], lead)
		q[shift] = c
		for i := 0; i <= db; i++ {
			r[shift+i] = new(big.Rat).Sub(r[shift+i], new(big.Rat).Mul(c, b[i]))
		}
		if len(r) == 1 {
			break
		}
		r = trimRat(r[:len(r)-1])
	}
	return trimRat(q), trimRat(r)
}

func polyGCD(a, b []*big.Rat) []*big.Rat {
	for !isZeroRat(b) {
		_, r := polyDivMod(a, b)
		a, b = b, r
	}
	lead := a[len(a)-1]
	out := make([]*big.Rat, len(a))
	for i, c := range a {
		out[i] = new(big.Rat).Quo(c, lead)
	}
	return out
}
