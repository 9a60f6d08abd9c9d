package derivrecon_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/njchilds90/derivrecon"
)

var x = derivrecon.S("x")

// ============================================================
// Num tests
// ============================================================

func TestNum_Integer(t *testing.T) {
	n := derivrecon.N(42)
	if n.String() != "42" {
		t.Errorf("want 42, got %s", n.String())
	}
}

func TestNum_Rational(t *testing.T) {
	n := derivrecon.F(1, 3)
	if n.String() != "1/3" {
		t.Errorf("want 1/3, got %s", n.String())
	}
}

func TestNum_LaTeX_Rational(t *testing.T) {
	n := derivrecon.F(-2, 5)
	if n.LaTeX() != `-\frac{2}{5}` {
		t.Errorf("want -\\frac{2}{5}, got %s", n.LaTeX())
	}
}

func TestNum_FloatIsShortestDecimal(t *testing.T) {
	n, ok := derivrecon.NFloat(0.1)
	if !ok || n.String() != "1/10" {
		t.Errorf("want 1/10, got %v (ok=%v)", n, ok)
	}
}

func TestNum_FloatNonFinite(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, ok := derivrecon.NFloat(f); ok {
			t.Errorf("NFloat(%v) should fail", f)
		}
	}
}

func TestNum_InexactPrintsDecimal(t *testing.T) {
	n, _ := derivrecon.NFloat(math.Pi)
	if n.String() != "3.141592654" {
		t.Errorf("want 3.141592654, got %s", n.String())
	}
}

// ============================================================
// Sym tests
// ============================================================

func TestSym_Sub(t *testing.T) {
	if got := derivrecon.Sub(x, "x", derivrecon.N(3)).String(); got != "3" {
		t.Errorf("want 3, got %s", got)
	}
	if got := derivrecon.Sub(x, "y", derivrecon.N(3)).String(); got != "x" {
		t.Errorf("want x, got %s", got)
	}
}

func TestSym_LaTeX_Subscript(t *testing.T) {
	if got := derivrecon.S("C1").LaTeX(); got != "C_{1}" {
		t.Errorf("want C_{1}, got %s", got)
	}
}

// ============================================================
// Add tests
// ============================================================

func TestAdd_Simple(t *testing.T) {
	expr := derivrecon.AddOf(x, derivrecon.N(3))
	if expr.String() != "x + 3" {
		t.Errorf("want 'x + 3', got %s", expr)
	}
}

func TestAdd_CollapseToZero(t *testing.T) {
	expr := derivrecon.AddOf(derivrecon.N(1), derivrecon.N(-1))
	if expr.String() != "0" {
		t.Errorf("want 0, got %s", expr)
	}
}

func TestAdd_LikeTerms(t *testing.T) {
	expr := derivrecon.AddOf(x, x)
	if expr.String() != "2*x" {
		t.Errorf("want '2*x', got %s", expr)
	}
	cancel := derivrecon.AddOf(derivrecon.MulOf(derivrecon.N(3), x), derivrecon.MulOf(derivrecon.N(-3), x))
	if cancel.String() != "0" {
		t.Errorf("want 0, got %s", cancel)
	}
}

func TestAdd_Subtraction(t *testing.T) {
	expr := derivrecon.AddOf(derivrecon.PowOf(x, derivrecon.N(2)), derivrecon.MulOf(derivrecon.N(-2), x), derivrecon.N(1))
	if expr.String() != "x^2 - 2*x + 1" {
		t.Errorf("want 'x^2 - 2*x + 1', got %s", expr)
	}
}

// ============================================================
// Mul tests
// ============================================================

func TestMul_Simple(t *testing.T) {
	expr := derivrecon.MulOf(derivrecon.N(3), x)
	if expr.String() != "3*x" {
		t.Errorf("want 3*x, got %s", expr)
	}
}

func TestMul_ZeroAnnihilates(t *testing.T) {
	expr := derivrecon.MulOf(derivrecon.N(0), x, derivrecon.SinOf(x))
	if expr.String() != "0" {
		t.Errorf("want 0, got %s", expr)
	}
}

func TestMul_CombinesPowers(t *testing.T) {
	if got := derivrecon.MulOf(x, x).String(); got != "x^2" {
		t.Errorf("want x^2, got %s", got)
	}
	if got := derivrecon.MulOf(x, derivrecon.PowOf(x, derivrecon.N(-1))).String(); got != "1" {
		t.Errorf("want 1, got %s", got)
	}
}

func TestMul_Fraction(t *testing.T) {
	half := derivrecon.MulOf(derivrecon.F(1, 2), derivrecon.PowOf(x, derivrecon.N(2)))
	if half.String() != "x^2/2" {
		t.Errorf("want x^2/2, got %s", half)
	}
	if half.LaTeX() != `\frac{x^{2}}{2}` {
		t.Errorf("want \\frac{x^{2}}{2}, got %s", half.LaTeX())
	}
	neg := derivrecon.MulOf(derivrecon.N(-1), derivrecon.CosOf(x))
	if neg.String() != "-cos(x)" {
		t.Errorf("want -cos(x), got %s", neg)
	}
}

func TestMul_DistributesCoefficient(t *testing.T) {
	expr := derivrecon.MulOf(derivrecon.N(2), derivrecon.AddOf(x, derivrecon.N(1)))
	if expr.String() != "2*x + 2" {
		t.Errorf("want '2*x + 2', got %s", expr)
	}
	merged := derivrecon.AddOf(expr, derivrecon.MulOf(derivrecon.N(-2), x))
	if merged.String() != "2" {
		t.Errorf("want 2, got %s", merged)
	}
}

func TestAdd_SubtractedSum(t *testing.T) {
	sq := derivrecon.PowOf(x, derivrecon.N(2))
	expr := derivrecon.AddOf(x, derivrecon.MulOf(derivrecon.N(-1), derivrecon.AddOf(sq, derivrecon.N(1))))
	if expr.String() != "x - x^2 - 1" {
		t.Errorf("want 'x - x^2 - 1', got %s", expr)
	}
	if expr.LaTeX() != "x - x^{2} - 1" {
		t.Errorf("want 'x - x^{2} - 1', got %s", expr.LaTeX())
	}
	v, ok := derivrecon.ValueAt(expr, "x", 2)
	if !ok || v.Float64() != -3 {
		t.Errorf("want -3 at x=2, got %v", v)
	}
}

// ============================================================
// Pow tests
// ============================================================

func TestPow_NumericFold(t *testing.T) {
	if got := derivrecon.PowOf(derivrecon.N(2), derivrecon.N(10)).String(); got != "1024" {
		t.Errorf("want 1024, got %s", got)
	}
	if got := derivrecon.PowOf(derivrecon.N(4), derivrecon.F(1, 2)).String(); got != "2" {
		t.Errorf("want 2, got %s", got)
	}
}

func TestPow_Printing(t *testing.T) {
	cases := map[string]derivrecon.Expr{
		"sqrt(x)":     derivrecon.SqrtOf(x),
		"1/x":         derivrecon.PowOf(x, derivrecon.N(-1)),
		"(x + 1)^2":   derivrecon.PowOf(derivrecon.AddOf(x, derivrecon.N(1)), derivrecon.N(2)),
		"x^6":         derivrecon.PowOf(derivrecon.PowOf(x, derivrecon.N(2)), derivrecon.N(3)),
		"x^(3/2)":     derivrecon.PowOf(x, derivrecon.F(3, 2)),
		"1/(x + 1)^2": derivrecon.PowOf(derivrecon.AddOf(x, derivrecon.N(1)), derivrecon.N(-2)),
	}
	for want, e := range cases {
		if e.String() != want {
			t.Errorf("want %s, got %s", want, e)
		}
	}
}

// ============================================================
// Func tests
// ============================================================

func TestFunc_ExactValues(t *testing.T) {
	cases := map[string]derivrecon.Expr{
		"0": derivrecon.SinOf(derivrecon.N(0)),
		"1": derivrecon.CosOf(derivrecon.N(0)),
		"x": derivrecon.LnOf(derivrecon.ExpOf(x)),
		"3": derivrecon.AbsOf(derivrecon.N(-3)),
	}
	for want, e := range cases {
		if e.String() != want {
			t.Errorf("want %s, got %s", want, e)
		}
	}
}

func TestFunc_AbsPullsSign(t *testing.T) {
	e := derivrecon.AbsOf(derivrecon.MulOf(derivrecon.N(-2), x))
	if e.String() != "2*abs(x)" {
		t.Errorf("want 2*abs(x), got %s", e)
	}
}

func TestFunc_EvalOutsideDomain(t *testing.T) {
	if _, ok := derivrecon.LnOf(derivrecon.N(0)).Eval(); ok {
		t.Error("ln(0) should not evaluate")
	}
	if _, ok := derivrecon.LnOf(derivrecon.N(-1)).Eval(); ok {
		t.Error("ln(-1) should not evaluate")
	}
}

func TestLookupFn(t *testing.T) {
	fn, ok := derivrecon.LookupFn("log")
	if !ok || fn != derivrecon.FnLn {
		t.Errorf("log should resolve to ln, got %v %v", fn, ok)
	}
	if _, ok := derivrecon.LookupFn("gamma"); ok {
		t.Error("gamma is not supported")
	}
	if len(derivrecon.Functions()) != 13 {
		t.Errorf("want 13 functions, got %d", len(derivrecon.Functions()))
	}
}

// ============================================================
// Diff tests
// ============================================================

func TestDiff_Rules(t *testing.T) {
	cases := []struct {
		in   derivrecon.Expr
		want string
	}{
		{derivrecon.PowOf(x, derivrecon.N(3)), "3*x^2"},
		{derivrecon.SinOf(x), "cos(x)"},
		{derivrecon.CosOf(x), "-sin(x)"},
		{derivrecon.LnOf(x), "1/x"},
		{derivrecon.ExpOf(derivrecon.MulOf(derivrecon.N(2), x)), "2*exp(2*x)"},
		{derivrecon.AbsOf(x), "sign(x)"},
		{derivrecon.N(5), "0"},
	}
	for _, c := range cases {
		if got := derivrecon.Diff(c.in, "x").String(); got != c.want {
			t.Errorf("d/dx %s: want %s, got %s", c.in, c.want, got)
		}
	}
}

func TestDiff2_Cubic(t *testing.T) {
	d2 := derivrecon.Diff2(derivrecon.PowOf(x, derivrecon.N(3)), "x")
	if d2.String() != "6*x" {
		t.Errorf("want 6*x, got %s", d2)
	}
}

// ============================================================
// Expand / polynomial tests
// ============================================================

func TestExpand_Square(t *testing.T) {
	e := derivrecon.Expand(derivrecon.PowOf(derivrecon.AddOf(x, derivrecon.N(1)), derivrecon.N(2)))
	if e.String() != "x^2 + 2*x + 1" {
		t.Errorf("want x^2 + 2*x + 1, got %s", e)
	}
}

func TestPolynomial(t *testing.T) {
	e := derivrecon.MulOf(derivrecon.AddOf(x, derivrecon.N(-1)), derivrecon.AddOf(x, derivrecon.N(2)))
	coeffs, ok := derivrecon.Polynomial(e, "x")
	if !ok {
		t.Fatal("(x-1)(x+2) is a polynomial")
	}
	want := []string{"-2", "1", "1"}
	if len(coeffs) != len(want) {
		t.Fatalf("want %d coefficients, got %d", len(want), len(coeffs))
	}
	for i, c := range coeffs {
		if c.String() != want[i] {
			t.Errorf("coefficient %d: want %s, got %s", i, want[i], c)
		}
	}
	if _, ok := derivrecon.Polynomial(derivrecon.SinOf(x), "x"); ok {
		t.Error("sin(x) is not a polynomial")
	}
	if _, ok := derivrecon.Polynomial(derivrecon.PowOf(x, derivrecon.N(-1)), "x"); ok {
		t.Error("1/x is not a polynomial")
	}
}

func TestFreeSymbols(t *testing.T) {
	e := derivrecon.AddOf(derivrecon.MulOf(derivrecon.S("C1"), x), derivrecon.S("C2"))
	got := derivrecon.SortedSymbols(e)
	if len(got) != 3 || got[0] != "C1" || got[1] != "C2" || got[2] != "x" {
		t.Errorf("want [C1 C2 x], got %v", got)
	}
	if !derivrecon.DependsOn(e, "C2") || derivrecon.DependsOn(e, "y") {
		t.Error("DependsOn disagrees with FreeSymbols")
	}
}

// ============================================================
// Solver / matrix tests
// ============================================================

func TestSolveLinear(t *testing.T) {
	res := derivrecon.SolveLinear(derivrecon.N(2), derivrecon.N(-4))
	if len(res.Solutions) != 1 || res.Solutions[0].String() != "2" {
		t.Errorf("want [2], got %v (%s)", res.Solutions, res.Error)
	}
	if res := derivrecon.SolveLinear(derivrecon.N(0), derivrecon.N(1)); res.Error == "" {
		t.Error("0x + 1 = 0 should be inconsistent")
	}
}

func TestSolveQuadraticExact(t *testing.T) {
	res := derivrecon.SolveQuadraticExact(derivrecon.N(1), derivrecon.N(0), derivrecon.F(-1, 4))
	if !res.ExactForm || len(res.Solutions) != 2 {
		t.Fatalf("want two exact roots, got %+v", res)
	}
	if res.Solutions[0].String() != "1/2" || res.Solutions[1].String() != "-1/2" {
		t.Errorf("want 1/2, -1/2, got %s, %s", res.Solutions[0], res.Solutions[1])
	}
	if res := derivrecon.SolveQuadraticExact(derivrecon.N(1), derivrecon.N(0), derivrecon.N(1)); res.Error == "" {
		t.Error("x^2 + 1 = 0 has no real roots")
	}
}

func TestMatrix_Inverse(t *testing.T) {
	m := derivrecon.NewMatrix(2, 2)
	m.Set(0, 0, derivrecon.N(2))
	m.Set(0, 1, derivrecon.N(1))
	m.Set(1, 0, derivrecon.N(1))
	m.Set(1, 1, derivrecon.N(1))
	inv, err := m.Inverse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "[[1, -1], [-1, 2]]"
	if inv.String() != want {
		t.Errorf("want %s, got %s", want, inv)
	}
	prod := m.MatMul(inv)
	if prod.String() != "[[1, 0], [0, 1]]" {
		t.Errorf("m * inv(m) should be identity, got %s", prod)
	}
}

func TestMatrix_Singular(t *testing.T) {
	m := derivrecon.NewMatrix(2, 2)
	m.Set(0, 0, derivrecon.N(1))
	m.Set(0, 1, derivrecon.N(2))
	m.Set(1, 0, derivrecon.N(2))
	m.Set(1, 1, derivrecon.N(4))
	if _, err := m.Inverse(); err == nil {
		t.Error("singular matrix should not invert")
	}
}

// ============================================================
// JSON tests
// ============================================================

func TestToJSON(t *testing.T) {
	s, err := derivrecon.ToJSON(derivrecon.AddOf(x, derivrecon.N(1)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if m["type"] != "add" {
		t.Errorf("want type add, got %v", m["type"])
	}
}
