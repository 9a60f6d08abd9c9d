package derivrecon_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/derivrecon"
)

func ptr(v float64) *float64 { return &v }

func TestReconstruct_FirstOrder(t *testing.T) {
	res, err := derivrecon.Reconstruct(derivrecon.Request{Derivative: "2*x", Mode: derivrecon.FirstOrder})
	require.NoError(t, err)
	assert.Equal(t, "x", res.Var)
	assert.Equal(t, "x^2", res.F.String())
	assert.Equal(t, "2*x", res.FPrime.String())
	assert.Equal(t, "2", res.FSecond.String())
	assert.Equal(t, "x^2 + C1", res.General.String())
	assert.Equal(t, []float64{0}, res.Critical)
	assert.Empty(t, res.Inflection)
	assert.Equal(t, "Reconstructed f(x) = x^2", res.Summary())
}

func TestReconstruct_SecondOrder(t *testing.T) {
	res, err := derivrecon.Reconstruct(derivrecon.Request{
		Derivative: "6*x", Mode: derivrecon.SecondOrder, V0: ptr(0),
	})
	require.NoError(t, err)
	assert.Equal(t, "x^3", res.F.String())
	assert.Equal(t, "3*x^2", res.FPrime.String())
	assert.Equal(t, "6*x", res.FSecond.String())
	assert.Equal(t, []float64{0}, res.Critical)
	assert.Equal(t, []float64{0}, res.Inflection)
	assert.Len(t, res.Constants, 2)
}

func TestReconstruct_ShiftedCondition(t *testing.T) {
	res, err := derivrecon.Reconstruct(derivrecon.Request{
		Derivative: "2*x", Mode: derivrecon.FirstOrder, X0: 1, Y0: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "x^2 + 2", res.F.String())
	assert.Equal(t, "2", res.Constants["C1"].String())
}

func TestReconstruct_Trig(t *testing.T) {
	res, err := derivrecon.Reconstruct(derivrecon.Request{
		Derivative: "cos(x)", Mode: derivrecon.SecondOrder, V0: ptr(0),
	})
	require.NoError(t, err)
	for _, x := range []float64{-2, 0, 0.5, 3} {
		y, err := res.Eval(derivrecon.WhichF, x)
		require.NoError(t, err)
		assert.InDelta(t, 1-math.Cos(x), y, 1e-12)
	}
	assert.Empty(t, res.Critical)
	assert.Empty(t, res.Inflection)
}

func TestReconstruct_OtherVariable(t *testing.T) {
	res, err := derivrecon.Reconstruct(derivrecon.Request{
		Derivative: "3*t^2", Mode: derivrecon.FirstOrder, X0: 1, Y0: 1, Var: "t",
	})
	require.NoError(t, err)
	assert.Equal(t, "t^3", res.F.String())
	assert.Equal(t, "Reconstructed f(t) = t^3", res.Summary())
}

func TestReconstruct_SatisfiesConditions(t *testing.T) {
	cases := []derivrecon.Request{
		{Derivative: "x^2 - 4", Mode: derivrecon.FirstOrder, X0: 2, Y0: -1},
		{Derivative: "exp(x) + 1/x", Mode: derivrecon.FirstOrder, X0: 1, Y0: 2.5},
		{Derivative: "sin(x)", Mode: derivrecon.SecondOrder, X0: 0.5, Y0: 1, V0: ptr(-2)},
		{Derivative: "12*x^2 - 6", Mode: derivrecon.SecondOrder, X0: -1, Y0: 0.75, V0: ptr(3)},
		{Derivative: "x*exp(x)", Mode: derivrecon.FirstOrder, X0: 0, Y0: 0},
	}
	for _, req := range cases {
		t.Run(req.Derivative, func(t *testing.T) {
			res, err := derivrecon.Reconstruct(req)
			require.NoError(t, err)

			y, err := res.Eval(derivrecon.WhichF, req.X0)
			require.NoError(t, err)
			assert.InDelta(t, req.Y0, y, 1e-9)
			if req.V0 != nil {
				v, err := res.Eval(derivrecon.WhichFPrime, req.X0)
				require.NoError(t, err)
				assert.InDelta(t, *req.V0, v, 1e-9)
			}

			// f, f' and f'' are consistent with one another.
			for _, x := range []float64{0.75, 1.5, 2.5} {
				dF, ok := derivrecon.ValueAt(derivrecon.Diff(res.F, "x"), "x", x)
				require.True(t, ok)
				fp, err := res.Eval(derivrecon.WhichFPrime, x)
				require.NoError(t, err)
				assert.InDelta(t, fp, dF.Float64(), 1e-9)

				dFP, ok := derivrecon.ValueAt(derivrecon.Diff(res.FPrime, "x"), "x", x)
				require.True(t, ok)
				fpp, err := res.Eval(derivrecon.WhichFSecond, x)
				require.NoError(t, err)
				assert.InDelta(t, fpp, dFP.Float64(), 1e-9)
			}

			for name := range derivrecon.FreeSymbols(res.F) {
				assert.Equal(t, "x", name)
			}
			for _, r := range res.Critical {
				v, err := res.Eval(derivrecon.WhichFPrime, r)
				require.NoError(t, err)
				assert.InDelta(t, 0, v, 1e-6)
			}
			for _, r := range res.Inflection {
				v, err := res.Eval(derivrecon.WhichFSecond, r)
				require.NoError(t, err)
				assert.InDelta(t, 0, v, 1e-6)
			}
		})
	}
}

func TestReconstruct_Errors(t *testing.T) {
	cases := []struct {
		name string
		req  derivrecon.Request
		kind derivrecon.ErrorKind
		is   error
	}{
		{"parse", derivrecon.Request{Derivative: "2*x +* ", Mode: derivrecon.FirstOrder}, derivrecon.KindParse, derivrecon.ErrParse},
		{"empty", derivrecon.Request{Derivative: "", Mode: derivrecon.FirstOrder}, derivrecon.KindParse, derivrecon.ErrParse},
		{"no closed form", derivrecon.Request{Derivative: "exp(x^2)", Mode: derivrecon.FirstOrder}, derivrecon.KindIntegration, derivrecon.ErrIntegration},
		{"pole at x0", derivrecon.Request{Derivative: "1/x", Mode: derivrecon.FirstOrder}, derivrecon.KindUnsolvable, derivrecon.ErrUnsolvable},
		{"missing v0", derivrecon.Request{Derivative: "6*x", Mode: derivrecon.SecondOrder}, derivrecon.KindInvalidInput, derivrecon.ErrInvalidInput},
		{"no mode", derivrecon.Request{Derivative: "6*x"}, derivrecon.KindInvalidInput, derivrecon.ErrInvalidInput},
		{"nan x0", derivrecon.Request{Derivative: "6*x", Mode: derivrecon.FirstOrder, X0: math.NaN()}, derivrecon.KindInvalidInput, derivrecon.ErrInvalidInput},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			res, err := derivrecon.Reconstruct(c.req)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, c.kind, derivrecon.KindOf(err))
			assert.True(t, errors.Is(err, c.is))
		})
	}
}

func TestReconstruct_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := derivrecon.ReconstructContext(ctx, derivrecon.Request{Derivative: "2*x", Mode: derivrecon.FirstOrder})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReconstruct_Deterministic(t *testing.T) {
	req := derivrecon.Request{Derivative: "x^3 - 3*x + sin(x)", Mode: derivrecon.SecondOrder, X0: 1, Y0: 2, V0: ptr(-1)}
	a, err := derivrecon.Reconstruct(req)
	require.NoError(t, err)
	b, err := derivrecon.Reconstruct(req)
	require.NoError(t, err)
	ja, err := json.Marshal(a.View())
	require.NoError(t, err)
	jb, err := json.Marshal(b.View())
	require.NoError(t, err)
	assert.JSONEq(t, string(ja), string(jb))
}

func TestResult_Sample(t *testing.T) {
	res, err := derivrecon.Reconstruct(derivrecon.Request{Derivative: "2*x", Mode: derivrecon.FirstOrder})
	require.NoError(t, err)
	s, err := res.Sample(-2, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, []float64{-2, -1, 0, 1, 2}, s.X)
	assert.Equal(t, []float64{4, 1, 0, 1, 4}, s.F)
	assert.Equal(t, []float64{-4, -2, 0, 2, 4}, s.FPrime)
	assert.Equal(t, []float64{2, 2, 2, 2, 2}, s.FSecond)
	assert.Zero(t, s.InvalidCount())

	_, err = res.Sample(1, -1, 5)
	assert.ErrorIs(t, err, derivrecon.ErrInvalidRange)
}

func TestResult_SampleAcrossPole(t *testing.T) {
	res, err := derivrecon.Reconstruct(derivrecon.Request{Derivative: "1/x", Mode: derivrecon.FirstOrder, X0: 1})
	require.NoError(t, err)
	assert.Equal(t, "ln(abs(x))", res.F.String())
	s, err := res.Sample(-1, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, s.InvalidF)
	assert.Equal(t, []int{1}, s.InvalidFPrime)
	assert.Equal(t, []int{1}, s.InvalidFSecond)
	assert.Equal(t, 3, s.InvalidCount())
	assert.True(t, math.IsNaN(s.F[1]))
	assert.InDelta(t, 0, s.F[0], 1e-15)
}

func TestResult_Connectors(t *testing.T) {
	res, err := derivrecon.Reconstruct(derivrecon.Request{
		Derivative: "6*x", Mode: derivrecon.SecondOrder, Y0: 1, V0: ptr(-3),
	})
	require.NoError(t, err)
	// f = x^3 - 3x + 1: critical at ±1, inflection at 0.
	assert.Equal(t, "x^3 - 3*x + 1", res.F.String())
	require.Len(t, res.Critical, 2)
	assert.InDelta(t, -1, res.Critical[0], 1e-12)
	assert.InDelta(t, 1, res.Critical[1], 1e-12)

	cs := res.Connectors(-2, 0.5)
	require.Len(t, cs, 2)
	assert.Equal(t, "critical", cs[0].Kind)
	assert.InDelta(t, 3, cs[0].F, 1e-12)
	assert.InDelta(t, 0, cs[0].Deriv, 1e-12)
	assert.Equal(t, "inflection", cs[1].Kind)
	assert.InDelta(t, 1, cs[1].F, 1e-12)

	assert.Equal(t, []float64{1}, res.CriticalIn(0, 5))
	assert.Empty(t, res.InflectionIn(1, 5))
}

func TestResult_View(t *testing.T) {
	res, err := derivrecon.Reconstruct(derivrecon.Request{Derivative: "2*x", Mode: derivrecon.FirstOrder})
	require.NoError(t, err)
	v := res.View()
	assert.Equal(t, "first", v.Mode)
	assert.Equal(t, "x^2", v.F)
	assert.Equal(t, "x^{2}", v.LaTeX.F)
	assert.Equal(t, map[string]string{"C1": "0"}, v.Constants)
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]derivrecon.Mode{
		"first": derivrecon.FirstOrder, "1": derivrecon.FirstOrder, "First derivative": derivrecon.FirstOrder,
		"second": derivrecon.SecondOrder, "2": derivrecon.SecondOrder, " Second ": derivrecon.SecondOrder,
	} {
		m, err := derivrecon.ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, m)
	}
	_, err := derivrecon.ParseMode("third")
	assert.ErrorIs(t, err, derivrecon.ErrInvalidInput)

	var m derivrecon.Mode
	require.NoError(t, json.Unmarshal([]byte(`"second"`), &m))
	assert.Equal(t, derivrecon.SecondOrder, m)
	b, err := json.Marshal(derivrecon.FirstOrder)
	require.NoError(t, err)
	assert.Equal(t, `"first"`, string(b))
}

func TestReconstruct_SimplifiesConstants(t *testing.T) {
	res, err := derivrecon.Reconstruct(derivrecon.Request{
		Derivative: "exp(-x)", Mode: derivrecon.SecondOrder, X0: 1, Y0: 2, V0: ptr(0),
	})
	require.NoError(t, err)
	assert.Equal(t, "exp(-1)", res.Constants["C1"].String())
	assert.Equal(t, "-2*exp(-1) + 2", res.Constants["C2"].String())
	assert.Equal(t, "exp(-x) + exp(-1)*x - 2*exp(-1) + 2", res.F.String())
}

// The printed forms of f, f' and f'' must denote the functions that were
// computed: reparsing the text gives the same values.
func TestReconstruct_TextReparsesToSameFunction(t *testing.T) {
	cases := []derivrecon.Request{
		{Derivative: "exp(-x)", Mode: derivrecon.SecondOrder, X0: 1, Y0: 2, V0: ptr(0)},
		{Derivative: "cos(x)", Mode: derivrecon.FirstOrder, X0: 2, Y0: -1},
		{Derivative: "1/x", Mode: derivrecon.SecondOrder, X0: 1, Y0: 0, V0: ptr(0)},
		{Derivative: "x*exp(x^2)", Mode: derivrecon.FirstOrder, X0: 0.5, Y0: 1},
		{Derivative: "sin(x)^2", Mode: derivrecon.SecondOrder, X0: 1, Y0: 1, V0: ptr(-1)},
		{Derivative: "1/(x^2 - 1)", Mode: derivrecon.FirstOrder, X0: 2, Y0: 0.5},
		{Derivative: "exp(x)*sin(x)", Mode: derivrecon.SecondOrder, X0: -1, Y0: 0.5, V0: ptr(2)},
		{Derivative: "1/sqrt(1 - x^2)", Mode: derivrecon.FirstOrder, X0: 0.1, Y0: 3},
		{Derivative: "x - 3*sin(2*x)", Mode: derivrecon.SecondOrder, X0: -2, Y0: -1.5, V0: ptr(4)},
	}
	for _, req := range cases {
		t.Run(req.Mode.String()+" "+req.Derivative, func(t *testing.T) {
			res, err := derivrecon.Reconstruct(req)
			require.NoError(t, err)
			for _, c := range []struct {
				which derivrecon.Which
				expr  derivrecon.Expr
			}{
				{derivrecon.WhichF, res.F},
				{derivrecon.WhichFPrime, res.FPrime},
				{derivrecon.WhichFSecond, res.FSecond},
			} {
				text := c.expr.String()
				again, err := derivrecon.ParseIn(text, "x")
				require.NoError(t, err, "reparsing %s = %s", c.which, text)
				for _, x := range []float64{req.X0, req.X0 + 0.25, req.X0 + 0.5} {
					want, err := res.Eval(c.which, x)
					require.NoError(t, err)
					got, ok := derivrecon.ValueAt(again, "x", x)
					require.True(t, ok, "%s = %s at %v", c.which, text, x)
					assert.InDelta(t, want, got.Float64(), 1e-6*math.Max(1, math.Abs(want)), "%s = %s at %v", c.which, text, x)
				}
			}
		})
	}
}
