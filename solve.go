package derivrecon

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ============================================================
// Solvers
// ============================================================

type SolveResult struct {
	Solutions []Expr
	ExactForm bool
	Error     string
}

// SolveLinear solves a*x + b = 0.
func SolveLinear(a, b Expr) SolveResult {
	an, aok := a.Eval()
	bn, bok := b.Eval()
	if aok && bok {
		if an.IsZero() {
			if bn.IsZero() {
				return SolveResult{Error: "identity (0 = 0): infinite solutions"}
			}
			return SolveResult{Error: "no solution (inconsistent)"}
		}
		return SolveResult{Solutions: []Expr{numMul(numNeg(bn), numRecip(an))}, ExactForm: true}
	}
	return SolveResult{Solutions: []Expr{MulOf(N(-1), b, PowOf(a, N(-1)))}, ExactForm: false}
}

// SolveQuadraticExact solves a*x^2 + b*x + c = 0 for numeric coefficients.
// Rational roots stay exact; the rest come back as decimals. Complex roots
// are reported through Error with no Solutions.
func SolveQuadraticExact(a, b, c Expr) SolveResult {
	an, aok := a.Eval()
	bn, bok := b.Eval()
	cn, cok := c.Eval()
	if !aok || !bok || !cok {
		return SolveResult{Error: "SolveQuadraticExact requires numeric coefficients"}
	}
	if an.IsZero() {
		return SolveLinear(b, c)
	}
	disc := numSub(numMul(bn, bn), numMul(N(4), numMul(an, cn)))
	twoA := numMul(N(2), an)
	if disc.IsNegative() {
		df := disc.Float64()
		af := an.Float64()
		return SolveResult{Error: fmt.Sprintf("complex roots: %g ± %gi", -bn.Float64()/(2*af), math.Sqrt(-df)/(2*af))}
	}
	if disc.IsZero() {
		return SolveResult{Solutions: []Expr{numDiv(numNeg(bn), twoA)}, ExactForm: true}
	}
	if sq, ok := numSqrt(disc); ok {
		x1 := numDiv(numAdd(numNeg(bn), sq), twoA)
		x2 := numDiv(numSub(numNeg(bn), sq), twoA)
		return SolveResult{Solutions: []Expr{x1, x2}, ExactForm: true}
	}
	bf, af := bn.Float64(), an.Float64()
	sq := math.Sqrt(disc.Float64())
	return SolveResult{Solutions: []Expr{mustNFloat((-bf + sq) / (2 * af)), mustNFloat((-bf - sq) / (2 * af))}, ExactForm: false}
}

// ============================================================
// Matrix — symbolic matrix
// ============================================================

var errSingular = errors.New("matrix is singular")

type Matrix struct {
	rows, cols int
	data       [][]Expr
}

func NewMatrix(rows, cols int) *Matrix {
	data := make([][]Expr, rows)
	for i := range data {
		data[i] = make([]Expr, cols)
		for j := range data[i] {
			data[i][j] = N(0)
		}
	}
	return &Matrix{rows: rows, cols: cols, data: data}
}

func (m *Matrix) checkBounds(row, col int) {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		panic(fmt.Sprintf("derivrecon: matrix index out of range [%d,%d] for %dx%d", row, col, m.rows, m.cols))
	}
}

func (m *Matrix) Get(row, col int) Expr {
	m.checkBounds(row, col)
	return m.data[row][col]
}
func (m *Matrix) Set(row, col int, val Expr) {
	m.checkBounds(row, col)
	m.data[row][col] = val
}
func (m *Matrix) Rows() int { return m.rows }
func (m *Matrix) Cols() int { return m.cols }

func (m *Matrix) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i := 0; i < m.rows; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("[")
		for j := 0; j < m.cols; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(m.data[i][j].String())
		}
		sb.WriteString("]")
	}
	sb.WriteString("]")
	return sb.String()
}

func (m *Matrix) MatMul(other *Matrix) *Matrix {
	if m.cols != other.rows {
		panic("derivrecon: matrix dimension mismatch in MatMul")
	}
	result := NewMatrix(m.rows, other.cols)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < other.cols; j++ {
			terms := make([]Expr, m.cols)
			for k := 0; k < m.cols; k++ {
				terms[k] = MulOf(m.data[i][k], other.data[k][j])
			}
			result.data[i][j] = AddOf(terms...)
		}
	}
	return result
}

func (m *Matrix) Scale(scalar Expr) *Matrix {
	result := NewMatrix(m.rows, m.cols)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			result.data[i][j] = MulOf(scalar, m.data[i][j])
		}
	}
	return result
}

func (m *Matrix) Transpose() *Matrix {
	result := NewMatrix(m.cols, m.rows)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			result.data[j][i] = m.data[i][j]
		}
	}
	return result
}

func (m *Matrix) Det() Expr {
	if m.rows != m.cols {
		panic("derivrecon: Det requires a square matrix")
	}
	return matDet(m.data, m.rows)
}

func matDet(data [][]Expr, n int) Expr {
	switch n {
	case 0:
		return N(1)
	case 1:
		return data[0][0].Simplify()
	case 2:
		return AddOf(
			MulOf(data[0][0], data[1][1]),
			MulOf(N(-1), data[0][1], data[1][0]),
		)
	}
	terms := make([]Expr, n)
	for j := 0; j < n; j++ {
		sign := N(1)
		if j%2 == 1 {
			sign = N(-1)
		}
		terms[j] = MulOf(sign, data[0][j], matDet(makeMinor(data, n, 0, j), n-1))
	}
	return AddOf(terms...)
}

func makeMinor(data [][]Expr, n, skipRow, skipCol int) [][]Expr {
	minor := make([][]Expr, n-1)
	mi := 0
	for i := 0; i < n; i++ {
		if i == skipRow {
			continue
		}
		minor[mi] = make([]Expr, 0, n-1)
		for j := 0; j < n; j++ {
			if j != skipCol {
				minor[mi] = append(minor[mi], data[i][j])
			}
		}
		mi++
	}
	return minor
}

// Inverse returns the adjugate over the determinant. A determinant that
// folds to zero reports errSingular.
func (m *Matrix) Inverse() (*Matrix, error) {
	if m.rows != m.cols {
		return nil, fmt.Errorf("derivrecon: Inverse requires a square matrix, got %dx%d", m.rows, m.cols)
	}
	det := m.Det()
	if dn, ok := det.Eval(); ok && dn.IsZero() {
		return nil, errSingular
	}
	n := m.rows
	if n == 1 {
		inv := NewMatrix(1, 1)
		inv.data[0][0] = PowOf(det, N(-1))
		return inv, nil
	}
	cof := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sign := N(1)
			if (i+j)%2 == 1 {
				sign = N(-1)
			}
			cof.data[i][j] = MulOf(sign, matDet(makeMinor(m.data, n, i, j), n-1))
		}
	}
	return cof.Transpose().Scale(PowOf(det, N(-1))), nil
}
