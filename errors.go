package derivrecon

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the stable machine-readable name of a failure class.
type ErrorKind string

const (
	KindParse        ErrorKind = "parse_error"
	KindIntegration  ErrorKind = "integration_error"
	KindUnsolvable   ErrorKind = "unsolvable_constraint"
	KindEvaluation   ErrorKind = "evaluation_error"
	KindInvalidInput ErrorKind = "invalid_request"
)

// Sentinels for errors.Is. Every typed error below matches exactly one.
var (
	ErrParse        = errors.New("parse error")
	ErrIntegration  = errors.New("no closed-form antiderivative")
	ErrUnsolvable   = errors.New("unsolvable constraint")
	ErrEvaluation   = errors.New("evaluation error")
	ErrInvalidInput = errors.New("invalid request")
	ErrInvalidRange = fmt.Errorf("%w: range needs xmin < xmax and at least 2 points", ErrInvalidInput)
)

// ParseError reports input that is not a well-formed expression over the
// supported grammar.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s (input %q)", e.Reason, e.Input)
}
func (e *ParseError) Is(target error) bool { return target == ErrParse }
func (e *ParseError) Kind() ErrorKind      { return KindParse }

// IntegrationError names the sub-expression the rule set could not integrate.
type IntegrationError struct {
	Expr Expr
	Var  string
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("no closed-form antiderivative for %s with respect to %s", e.Expr, e.Var)
}
func (e *IntegrationError) Is(target error) bool { return target == ErrIntegration }
func (e *IntegrationError) Kind() ErrorKind      { return KindIntegration }

// UnsolvableConstraintError reports boundary conditions that do not pin the
// integration constants to exactly one value each.
type UnsolvableConstraintError struct {
	Reason string
}

func (e *UnsolvableConstraintError) Error() string {
	return "unsolvable constraint: " + e.Reason
}
func (e *UnsolvableConstraintError) Is(target error) bool { return target == ErrUnsolvable }
func (e *UnsolvableConstraintError) Kind() ErrorKind      { return KindUnsolvable }

func unsolvable(format string, args ...interface{}) error {
	return &UnsolvableConstraintError{Reason: fmt.Sprintf(format, args...)}
}

// EvaluationError reports a point where a compiled expression has no real,
// finite value.
type EvaluationError struct {
	Expr   string
	X      float64
	Reason string
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("cannot evaluate %s at %g: %s", e.Expr, e.X, e.Reason)
}
func (e *EvaluationError) Is(target error) bool { return target == ErrEvaluation }
func (e *EvaluationError) Kind() ErrorKind      { return KindEvaluation }

// SampleError collects the points of a sampling run that failed. The
// sample itself is still returned, with NaN at each failed index.
type SampleError struct {
	Expr    string
	Indices []int
	Points  []*EvaluationError
}

func (e *SampleError) Error() string {
	if len(e.Points) == 1 {
		return e.Points[0].Error()
	}
	xs := make([]string, 0, 3)
	for i, p := range e.Points {
		if i == 3 {
			xs = append(xs, "...")
			break
		}
		xs = append(xs, fmt.Sprintf("%g", p.X))
	}
	return fmt.Sprintf("cannot evaluate %s at %d points (x = %s)", e.Expr, len(e.Points), strings.Join(xs, ", "))
}
func (e *SampleError) Is(target error) bool { return target == ErrEvaluation }
func (e *SampleError) Kind() ErrorKind      { return KindEvaluation }

// RequestError reports a malformed reconstruction request.
type RequestError struct {
	Field  string
	Reason string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}
func (e *RequestError) Is(target error) bool { return target == ErrInvalidInput }
func (e *RequestError) Kind() ErrorKind      { return KindInvalidInput }

// KindOf returns the kind of the first typed error in err's chain, or ""
// when there is none.
func KindOf(err error) ErrorKind {
	var k interface{ Kind() ErrorKind }
	if errors.As(err, &k) {
		return k.Kind()
	}
	if errors.Is(err, ErrInvalidInput) {
		return KindInvalidInput
	}
	return ""
}
