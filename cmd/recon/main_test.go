package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/derivrecon"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd(&out, &errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestReconstruct_Text(t *testing.T) {
	out, err := run(t, "reconstruct", "2*x", "--x0", "1", "--y0", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "function successfully reconstructed")
	assert.Contains(t, out, "f(x)   = x^2 + 2")
	assert.Contains(t, out, "f'(x)  = 2*x")
	assert.Contains(t, out, "constants:  C1 = 2")
	assert.Contains(t, out, "critical:   0")
	assert.Contains(t, out, "inflection: none")
	// plain text when not writing to a terminal
	assert.NotContains(t, out, "\x1b[")
}

func TestReconstruct_JSON(t *testing.T) {
	out, err := run(t, "reconstruct", "6*x", "--mode", "second", "--v0", "0", "-n", "3", "--xmin", "-1", "--xmax", "1", "-o", "json")
	require.NoError(t, err)
	var got struct {
		Result  derivrecon.View `json:"result"`
		Samples struct {
			X []float64     `json:"x"`
			F []interface{} `json:"f"`
		} `json:"samples"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "x^3", got.Result.F)
	assert.Equal(t, []float64{0}, got.Result.Inflection)
	assert.Equal(t, []float64{-1, 0, 1}, got.Samples.X)
	assert.Equal(t, []interface{}{-1.0, 0.0, 1.0}, got.Samples.F)
}

func TestReconstruct_CSV(t *testing.T) {
	out, err := run(t, "reconstruct", "1/x", "--x0", "1", "-n", "3", "--xmin", "-1", "--xmax", "1", "-o", "csv")
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"x", "f", "f_prime", "f_second"}, rows[0])
	assert.Equal(t, []string{"0", "", "", ""}, rows[2])
	assert.Equal(t, "1", rows[3][0])
	assert.Equal(t, "0", rows[3][1])
}

func TestReconstruct_Errors(t *testing.T) {
	_, err := run(t, "reconstruct", "2*x +* ")
	assert.True(t, errors.Is(err, derivrecon.ErrParse))

	_, err = run(t, "reconstruct", "exp(x^2)")
	assert.True(t, errors.Is(err, derivrecon.ErrIntegration))

	_, err = run(t, "reconstruct", "6*x", "--mode", "second")
	assert.True(t, errors.Is(err, derivrecon.ErrInvalidInput))

	_, err = run(t, "reconstruct", "2*x", "--mode", "third")
	assert.True(t, errors.Is(err, derivrecon.ErrInvalidInput))

	_, err = run(t, "reconstruct")
	assert.Error(t, err)
}

func TestIntegrate(t *testing.T) {
	out, err := run(t, "integrate", "6*x", "--twice")
	require.NoError(t, err)
	assert.Contains(t, out, "F(x)  = 3*x^2 + C1")
	assert.Contains(t, out, "FF(x) = x^3 + C1*x + C2")

	_, err = run(t, "integrate", "exp(x^2)")
	assert.True(t, errors.Is(err, derivrecon.ErrIntegration))
}

func TestDiff(t *testing.T) {
	out, err := run(t, "diff", "x^3", "--order", "2")
	require.NoError(t, err)
	assert.Equal(t, "6*x\n", out)

	out, err = run(t, "diff", "t^2", "--var", "t")
	require.NoError(t, err)
	assert.Equal(t, "2*t\n", out)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "recon dev\n", out)
}

func TestPrinter_Failure(t *testing.T) {
	var buf bytes.Buffer
	newPrinter(&buf).failure(&derivrecon.ParseError{Input: "x +", Reason: "unexpected end"})
	assert.True(t, strings.HasPrefix(buf.String(), "✗ parse_error: "))
}
