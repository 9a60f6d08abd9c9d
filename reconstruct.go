package derivrecon

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/njchilds90/derivrecon")

// Mode says which derivative the caller supplied.
type Mode int

const (
	// FirstOrder: the input is f′; one condition f(x0) = y0.
	FirstOrder Mode = iota + 1
	// SecondOrder: the input is f″; conditions f(x0) = y0 and f′(x0) = v0.
	SecondOrder
)

func (m Mode) String() string {
	switch m {
	case FirstOrder:
		return "first"
	case SecondOrder:
		return "second"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Integrations is the number of antiderivatives the mode needs.
func (m Mode) Integrations() int { return int(m) }

// ParseMode accepts "first"/"second", "1"/"2" and the display labels
// "First derivative"/"Second derivative".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "first", "1", "first derivative", "f'":
		return FirstOrder, nil
	case "second", "2", "second derivative", "f''":
		return SecondOrder, nil
	}
	return 0, &RequestError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", s)}
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Request is one reconstruction problem.
type Request struct {
	// Derivative is the supplied f′ or f″ as text.
	Derivative string
	Mode       Mode
	X0, Y0     float64
	// V0 is f′(x0); required in SecondOrder, ignored in FirstOrder.
	V0 *float64
	// Var names the independent variable; DefaultVariable when empty.
	Var string
}

func (r Request) validate() error {
	if r.Mode != FirstOrder && r.Mode != SecondOrder {
		return &RequestError{Field: "mode", Reason: fmt.Sprintf("unknown mode %d", int(r.Mode))}
	}
	if r.Mode == SecondOrder && r.V0 == nil {
		return &RequestError{Field: "v0", Reason: "second-order mode needs f'(x0)"}
	}
	for _, f := range []struct {
		name string
		v    float64
	}{{"x0", r.X0}, {"y0", r.Y0}} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &RequestError{Field: f.name, Reason: "must be finite"}
		}
	}
	if r.V0 != nil && (math.IsNaN(*r.V0) || math.IsInf(*r.V0, 0)) {
		return &RequestError{Field: "v0", Reason: "must be finite"}
	}
	return nil
}

// Result is a fully determined reconstruction. F, FPrime and FSecond carry
// no integration constants.
type Result struct {
	Mode    Mode
	Var     string
	Input   Expr
	F       Expr
	FPrime  Expr
	FSecond Expr
	// General is f before the constants were resolved.
	General   Expr
	Constants map[string]Expr

	// Critical holds the real zeros of FPrime, Inflection those of FSecond,
	// both ascending. Neither is restricted to a display window.
	Critical   []float64
	Inflection []float64

	f, fp, fpp *Evaluator
}

// Reconstruct runs the pipeline parse → integrate → solve constants →
// locate roots → compile. It returns a complete Result or exactly one of
// the typed errors in errors.go.
func Reconstruct(req Request) (*Result, error) {
	return ReconstructContext(context.Background(), req)
}

// ReconstructContext is Reconstruct with a context for cancellation and
// tracing. Each stage runs in its own span.
func ReconstructContext(ctx context.Context, req Request) (*Result, error) {
	ctx, span := tracer.Start(ctx, "derivrecon.Reconstruct", trace.WithAttributes(
		attribute.String("derivrecon.mode", req.Mode.String()),
		attribute.Int("derivrecon.input_len", len(req.Derivative)),
	))
	defer span.End()
	start := time.Now()

	res, err := reconstruct(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(KindOf(err)))
		logger().Debug("reconstruction failed", "mode", req.Mode.String(), "input", req.Derivative, "kind", KindOf(err), "err", err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("derivrecon.critical", len(res.Critical)),
		attribute.Int("derivrecon.inflection", len(res.Inflection)),
	)
	logger().Debug("reconstructed", "mode", req.Mode.String(), "f", res.F.String(), "elapsed", time.Since(start))
	return res, nil
}

func reconstruct(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	scope := NewScope(req.Var)
	v := scope.Var()

	g, err := stage(ctx, "parse", func() (Expr, error) { return Parse(req.Derivative, scope) })
	if err != nil {
		return nil, err
	}

	antis, err := stage(ctx, "integrate", func() ([]Expr, error) {
		return IntegrateN(g, req.Mode.Integrations(), scope)
	})
	if err != nil {
		return nil, err
	}

	res := &Result{Mode: req.Mode, Var: v, Input: g}
	conds := []Condition{{X: req.X0, Value: req.Y0, Order: 0}}
	var f, fp, fpp Expr
	switch req.Mode {
	case FirstOrder:
		f, fp, fpp = antis[0], g, Diff(g, v)
	case SecondOrder:
		f, fp, fpp = antis[1], antis[0], g
		conds = append(conds, Condition{X: req.X0, Value: *req.V0, Order: 1})
	}
	res.General = f

	values, err := stage(ctx, "solve", func() (map[string]Expr, error) {
		return SolveConstraints([]Expr{f, fp}, conds, scope.Constants(), v)
	})
	if err != nil {
		return nil, err
	}
	res.Constants = values
	res.F = SubstituteAll(f, values)
	res.FPrime = SubstituteAll(fp, values)
	res.FSecond = fpp

	for _, e := range []Expr{res.F, res.FPrime, res.FSecond} {
		for name := range FreeSymbols(e) {
			if name != v {
				return nil, unsolvable("%s remains free in %s", name, e)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, rspan := tracer.Start(ctx, "derivrecon.roots")
	res.Critical = RealRoots(res.FPrime, v)
	res.Inflection = RealRoots(res.FSecond, v)
	rspan.End()

	for _, c := range []struct {
		dst **Evaluator
		e   Expr
	}{{&res.f, res.F}, {&res.fp, res.FPrime}, {&res.fpp, res.FSecond}} {
		ev, err := Compile(c.e, v)
		if err != nil {
			return nil, err
		}
		*c.dst = ev
	}
	return res, nil
}

func stage[T any](ctx context.Context, name string, fn func() (T, error)) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	_, span := tracer.Start(ctx, "derivrecon."+name)
	defer span.End()
	e, err := fn()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(KindOf(err)))
	}
	return e, err
}

// Which selects one of the three reconstructed functions.
type Which int

const (
	WhichF Which = iota
	WhichFPrime
	WhichFSecond
)

func (w Which) String() string {
	switch w {
	case WhichF:
		return "f"
	case WhichFPrime:
		return "f'"
	case WhichFSecond:
		return "f''"
	}
	return fmt.Sprintf("Which(%d)", int(w))
}

// Evaluator returns the compiled form of f, f′ or f″.
func (r *Result) Evaluator(w Which) *Evaluator {
	switch w {
	case WhichFPrime:
		return r.fp
	case WhichFSecond:
		return r.fpp
	}
	return r.f
}

// Eval evaluates f, f′ or f″ at x.
func (r *Result) Eval(w Which, x float64) (float64, error) {
	return r.Evaluator(w).At(x)
}

// Series is an aligned sampling of f, f′ and f″. Points where a function
// has no real value hold NaN and are listed in the matching Invalid slice.
type Series struct {
	X              []float64 `json:"x"`
	F              []float64 `json:"f"`
	FPrime         []float64 `json:"f_prime"`
	FSecond        []float64 `json:"f_second"`
	InvalidF       []int     `json:"invalid_f,omitempty"`
	InvalidFPrime  []int     `json:"invalid_f_prime,omitempty"`
	InvalidFSecond []int     `json:"invalid_f_second,omitempty"`
}

// InvalidCount is the number of failed evaluations across all three.
func (s *Series) InvalidCount() int {
	return len(s.InvalidF) + len(s.InvalidFPrime) + len(s.InvalidFSecond)
}

// Sample evaluates all three functions at n evenly spaced points of
// [xmin, xmax]. Only a bad range is an error; failed points are recorded in
// the Series.
func (r *Result) Sample(xmin, xmax float64, n int) (*Series, error) {
	xs, err := Linspace(xmin, xmax, n)
	if err != nil {
		return nil, err
	}
	s := &Series{X: xs}
	s.F, s.InvalidF = sampleInto(r.f, xs)
	s.FPrime, s.InvalidFPrime = sampleInto(r.fp, xs)
	s.FSecond, s.InvalidFSecond = sampleInto(r.fpp, xs)
	if k := s.InvalidCount(); k > 0 {
		logger().Debug("sampled with invalid points", "f", r.F.String(), "invalid", k)
	}
	return s, nil
}

func sampleInto(ev *Evaluator, xs []float64) ([]float64, []int) {
	ys, err := ev.Sample(xs)
	if se, ok := err.(*SampleError); ok {
		return ys, se.Indices
	}
	return ys, nil
}

// CriticalIn returns the critical points inside [xmin, xmax].
func (r *Result) CriticalIn(xmin, xmax float64) []float64 { return RootsIn(r.Critical, xmin, xmax) }

// InflectionIn returns the inflection points inside [xmin, xmax].
func (r *Result) InflectionIn(xmin, xmax float64) []float64 {
	return RootsIn(r.Inflection, xmin, xmax)
}

// Connector marks a critical or inflection point for plotting: the point on
// f and the matching point on the derivative whose zero it is.
type Connector struct {
	Kind  string  `json:"kind"`
	X     float64 `json:"x"`
	F     float64 `json:"f"`
	Deriv float64 `json:"deriv"`
}

// Connectors lists the critical points (against f′) and inflection points
// (against f″) inside [xmin, xmax]. Points where f is undefined are skipped.
func (r *Result) Connectors(xmin, xmax float64) []Connector {
	var out []Connector
	add := func(kind string, xs []float64, d *Evaluator) {
		for _, x := range xs {
			fy, err := r.f.At(x)
			if err != nil {
				continue
			}
			dy, err := d.At(x)
			if err != nil {
				continue
			}
			out = append(out, Connector{Kind: kind, X: x, F: fy, Deriv: dy})
		}
	}
	add("critical", r.CriticalIn(xmin, xmax), r.fp)
	add("inflection", r.InflectionIn(xmin, xmax), r.fpp)
	return out
}

// Summary is the one-line success message shown after a reconstruction.
func (r *Result) Summary() string {
	return fmt.Sprintf("Reconstructed f(%s) = %s", r.Var, r.F)
}
