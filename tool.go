package derivrecon

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
)

// ============================================================
// Tool interface
// ============================================================

// ToolRequest is a single named operation with loosely typed parameters,
// as sent by agent backends. Expressions are passed as text.
type ToolRequest struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params"`
}

type ToolResponse struct {
	Result interface{} `json:"result,omitempty"`
	LaTeX  string      `json:"latex,omitempty"`
	String string      `json:"string,omitempty"`
	Error  string      `json:"error,omitempty"`
	Kind   ErrorKind   `json:"kind,omitempty"`
}

func HandleToolCall(req ToolRequest) ToolResponse {
	return HandleToolCallContext(context.Background(), req)
}

// HandleToolCallContext dispatches req. Failures come back in the response,
// never as a Go error; Kind carries the error class when there is one.
func HandleToolCallContext(ctx context.Context, req ToolRequest) ToolResponse {
	fail := func(err error) ToolResponse {
		return ToolResponse{Error: err.Error(), Kind: KindOf(err)}
	}
	getString := func(key string) (string, error) {
		v, ok := req.Params[key]
		if !ok {
			return "", &RequestError{Field: key, Reason: "missing"}
		}
		s, ok := v.(string)
		if !ok {
			return "", &RequestError{Field: key, Reason: "must be a string"}
		}
		return s, nil
	}
	optString := func(key, def string) string {
		if s, err := getString(key); err == nil && s != "" {
			return s
		}
		return def
	}
	getFloat := func(key string) (float64, error) {
		v, ok := req.Params[key]
		if !ok {
			return 0, &RequestError{Field: key, Reason: "missing"}
		}
		f, ok := v.(float64)
		if !ok {
			return 0, &RequestError{Field: key, Reason: "must be a number"}
		}
		return f, nil
	}
	getFloats := func(key string) ([]float64, error) {
		v, ok := req.Params[key]
		if !ok {
			return nil, &RequestError{Field: key, Reason: "missing"}
		}
		raw, ok := v.([]interface{})
		if !ok {
			return nil, &RequestError{Field: key, Reason: "must be an array"}
		}
		out := make([]float64, len(raw))
		for i, r := range raw {
			f, ok := r.(float64)
			if !ok {
				return nil, &RequestError{Field: fmt.Sprintf("%s[%d]", key, i), Reason: "must be a number"}
			}
			out[i] = f
		}
		return out, nil
	}
	getExpr := func(key string) (Expr, *Scope, error) {
		s, err := getString(key)
		if err != nil {
			return nil, nil, err
		}
		scope := NewScope(optString("var", DefaultVariable))
		e, err := Parse(s, scope)
		return e, scope, err
	}
	respond := func(e Expr) ToolResponse {
		return ToolResponse{Result: e.toJSON(), LaTeX: e.LaTeX(), String: e.String()}
	}

	switch req.Tool {
	case "parse", "simplify":
		e, _, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		return respond(e)

	case "expand":
		e, _, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		return respond(Expand(e))

	case "diff":
		e, scope, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		return respond(Diff(e, scope.Var()))

	case "diff2":
		e, scope, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		return respond(Diff2(e, scope.Var()))

	case "integrate":
		e, scope, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		r, err := Integrate(e, scope.Var())
		if err != nil {
			return fail(err)
		}
		return respond(r)

	case "antiderivatives":
		e, scope, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		n := 1
		if f, err := getFloat("n"); err == nil {
			n = int(f)
		}
		antis, err := IntegrateN(e, n, scope)
		if err != nil {
			return fail(err)
		}
		strs := make([]string, len(antis))
		for i, a := range antis {
			strs[i] = a.String()
		}
		return ToolResponse{Result: strs, String: fmt.Sprintf("%v", strs)}

	case "free_symbols":
		e, _, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		syms := SortedSymbols(e)
		return ToolResponse{Result: syms, String: fmt.Sprintf("%v", syms)}

	case "roots":
		e, scope, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		roots := RealRoots(e, scope.Var())
		return ToolResponse{Result: roots, String: fmt.Sprintf("%v", roots)}

	case "evaluate":
		e, scope, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		xs, err := getFloats("xs")
		if err != nil {
			return fail(err)
		}
		ev, err := Compile(e, scope.Var())
		if err != nil {
			return fail(err)
		}
		ys, err := ev.Sample(xs)
		out := ToolResponse{Result: map[string]interface{}{"x": xs, "y": nullable(ys)}, String: ev.Source()}
		if err != nil {
			out.Error, out.Kind = err.Error(), KindOf(err)
		}
		return out

	case "reconstruct":
		text, err := getString("derivative")
		if err != nil {
			return fail(err)
		}
		mode, err := ParseMode(optString("mode", "first"))
		if err != nil {
			return fail(err)
		}
		r := Request{Derivative: text, Mode: mode, Var: optString("var", DefaultVariable)}
		if r.X0, err = getFloat("x0"); err != nil {
			return fail(err)
		}
		if r.Y0, err = getFloat("y0"); err != nil {
			return fail(err)
		}
		if v0, err := getFloat("v0"); err == nil {
			r.V0 = &v0
		}
		res, err := ReconstructContext(ctx, r)
		if err != nil {
			return fail(err)
		}
		return ToolResponse{Result: res.View(), LaTeX: res.F.LaTeX(), String: res.Summary()}

	case "to_latex":
		e, _, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		return ToolResponse{Result: e.LaTeX(), LaTeX: e.LaTeX(), String: e.String()}

	case "mcp_spec":
		return ToolResponse{Result: MCPToolSpec(), String: "MCP tool specification"}
	}

	return fail(&RequestError{Field: "tool", Reason: fmt.Sprintf("unknown tool %q", req.Tool)})
}

// nullable replaces NaN with nil so the slice survives JSON encoding.
func nullable(ys []float64) []interface{} {
	out := make([]interface{}, len(ys))
	for i, y := range ys {
		if !math.IsNaN(y) {
			out[i] = y
		}
	}
	return out
}

// ============================================================
// MCP spec
// ============================================================

func MCPToolSpec() string {
	expr := map[string]string{"expr": "string", "var": "string"}
	tools := []map[string]interface{}{
		ts("parse", "Parse an expression in one variable", []string{"expr"}, expr),
		ts("simplify", "Parse and simplify an expression", []string{"expr"}, expr),
		ts("expand", "Algebraically expand an expression", []string{"expr"}, expr),
		ts("diff", "First derivative d/dvar", []string{"expr"}, expr),
		ts("diff2", "Second derivative d²/dvar²", []string{"expr"}, expr),
		ts("integrate", "Antiderivative without a constant (rule-based)", []string{"expr"}, expr),
		ts("antiderivatives", "Integrate n times (1 or 2) adding constants C1, C2", []string{"expr"}, map[string]string{"expr": "string", "var": "string", "n": "integer"}),
		ts("free_symbols", "Return free symbol names", []string{"expr"}, expr),
		ts("roots", "Real roots of expr = 0, ascending", []string{"expr"}, expr),
		ts("evaluate", "Evaluate at each of xs; undefined points are null", []string{"expr", "xs"}, map[string]string{"expr": "string", "var": "string", "xs": "array"}),
		ts("to_latex", "Convert to LaTeX", []string{"expr"}, expr),
		ts("reconstruct", "Reconstruct f from f' (mode first: x0, y0) or f'' (mode second: x0, y0, v0)",
			[]string{"derivative", "x0", "y0"},
			map[string]string{"derivative": "string", "mode": "string", "x0": "number", "y0": "number", "v0": "number", "var": "string"}),
		ts("mcp_spec", "Return this tool schema", []string{}, map[string]string{}),
	}
	spec := map[string]interface{}{"tools": tools}
	b, _ := json.MarshalIndent(spec, "", "  ")
	return string(b)
}

func ts(name, description string, required []string, props map[string]string) map[string]interface{} {
	properties := map[string]interface{}{}
	for k, typ := range props {
		properties[k] = map[string]interface{}{"type": typ}
	}
	return map[string]interface{}{
		"name":        name,
		"description": description,
		"inputSchema": map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}
