package derivrecon_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/derivrecon"
)

func TestParse_Grammar(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2*x", "2*x"},
		{"x^2", "x^2"},
		{"x**3", "x^3"},
		{"-x + 1", "-x + 1"},
		{"+x", "x"},
		{"1/x", "1/x"},
		{"x/2", "x/2"},
		{"sqrt(x)", "sqrt(x)"},
		{"log(x)", "ln(x)"},
		{"abs(x - 1)", "abs(x - 1)"},
		{"sin(2*x) + cos(x)", "sin(2*x) + cos(x)"},
		{"(x + 1)*(x + 1)", "(x + 1)^2"},
		{"exp(0)", "1"},
		{"0.5*x", "x/2"},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			e, err := derivrecon.ParseIn(c.in, "x")
			require.NoError(t, err)
			assert.Equal(t, c.want, e.String())
		})
	}
}

func TestParse_Constants(t *testing.T) {
	e, err := derivrecon.ParseIn("2*pi", "x")
	require.NoError(t, err)
	n, ok := e.Eval()
	require.True(t, ok)
	assert.InDelta(t, 6.283185307, n.Float64(), 1e-9)
}

func TestParse_NamedConstants(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"E^x", "exp(x)"},
		{"e^(2*x)", "exp(2*x)"},
		{"ln(E)", "1"},
		{"2*pi", "2*pi"},
		{"x - pi", "x - pi"},
	}
	for _, c := range cases {
		e, err := derivrecon.ParseIn(c.in, "x")
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, e.String(), c.in)
	}

	e, err := derivrecon.ParseIn("2*pi", "x")
	require.NoError(t, err)
	assert.Equal(t, `2 \pi`, e.LaTeX())
	assert.Empty(t, derivrecon.FreeSymbols(e))
}

func TestParse_ConstantsEvaluate(t *testing.T) {
	e, err := derivrecon.ParseIn("x - pi", "x")
	require.NoError(t, err)
	roots := derivrecon.RealRoots(e, "x")
	require.Len(t, roots, 1)
	assert.InDelta(t, math.Pi, roots[0], 1e-9)

	g, err := derivrecon.ParseIn("pi*x + E", "x")
	require.NoError(t, err)
	ev, err := derivrecon.Compile(g, "x")
	require.NoError(t, err)
	v, err := ev.At(2)
	require.NoError(t, err)
	assert.InDelta(t, 2*math.Pi+math.E, v, 1e-9)
}

func TestParse_OtherVariable(t *testing.T) {
	e, err := derivrecon.ParseIn("3*t^2", "t")
	require.NoError(t, err)
	assert.Equal(t, "3*t^2", e.String())

	_, err = derivrecon.ParseIn("3*t^2", "x")
	assert.True(t, errors.Is(err, derivrecon.ErrParse))
}

func TestParse_Errors(t *testing.T) {
	for _, in := range []string{
		"2*x +* ",
		"",
		"   ",
		"x +",
		"foo(x)",
		"sin(x, 2)",
		"y*x",
		"1/0",
		"x % 2",
		"x == 1",
		`"text"`,
	} {
		t.Run(in, func(t *testing.T) {
			_, err := derivrecon.ParseIn(in, "x")
			require.Error(t, err)
			var pe *derivrecon.ParseError
			require.True(t, errors.As(err, &pe), "want *ParseError, got %T", err)
			assert.Equal(t, in, pe.Input)
			assert.Equal(t, derivrecon.KindParse, derivrecon.KindOf(err))
		})
	}
}

func TestParse_ReservesInputSymbols(t *testing.T) {
	scope := derivrecon.NewScope("x")
	_, err := derivrecon.Parse("x^2", scope)
	require.NoError(t, err)
	assert.Equal(t, "C1", scope.Fresh().Name())
	assert.Equal(t, "C2", scope.Fresh().Name())
}

func TestParse_RoundTripsOwnOutput(t *testing.T) {
	for _, in := range []string{"x^2/2 - 3*x + 1", "-cos(2*x)/2", "1/(x + 1)^2", "x*exp(x) - exp(x)"} {
		e, err := derivrecon.ParseIn(in, "x")
		require.NoError(t, err)
		again, err := derivrecon.ParseIn(e.String(), "x")
		require.NoError(t, err, "reparsing %q", e.String())
		assert.Equal(t, e.String(), again.String())
	}
}
