package server

import (
	"math"

	"github.com/njchilds90/derivrecon"
)

// reconstructRequest is the body of POST /v1/reconstruct. The window and
// sample count fall back to the recon config when omitted.
type reconstructRequest struct {
	Derivative string   `json:"derivative" binding:"required"`
	Mode       string   `json:"mode" binding:"omitempty,oneof=first second 1 2"`
	X0         *float64 `json:"x0" binding:"required"`
	Y0         *float64 `json:"y0" binding:"required"`
	V0         *float64 `json:"v0"`
	Var        string   `json:"var" binding:"omitempty,alphanum"`
	XMin       *float64 `json:"xmin"`
	XMax       *float64 `json:"xmax"`
	Samples    int      `json:"samples" binding:"omitempty,min=2"`
}

type batchRequest struct {
	Items []reconstructRequest `json:"items" binding:"required,min=1,dive"`
}

type exprView struct {
	Text  string                 `json:"text"`
	LaTeX string                 `json:"latex"`
	Tree  map[string]interface{} `json:"tree"`
}

func viewOf(e derivrecon.Expr) exprView {
	return exprView{Text: e.String(), LaTeX: e.LaTeX(), Tree: derivrecon.Tree(e)}
}

type window struct {
	XMin float64 `json:"xmin"`
	XMax float64 `json:"xmax"`
}

type pointsView struct {
	All      []float64 `json:"all"`
	InWindow []float64 `json:"in_window"`
}

// samplesView is a Series with NaN replaced by null.
type samplesView struct {
	X       []float64        `json:"x"`
	F       []interface{}    `json:"f"`
	FPrime  []interface{}    `json:"f_prime"`
	FSecond []interface{}    `json:"f_second"`
	Invalid map[string][]int `json:"invalid"`
}

type reconstructResponse struct {
	RequestID  string                 `json:"request_id,omitempty"`
	Message    string                 `json:"message"`
	Mode       string                 `json:"mode"`
	Var        string                 `json:"var"`
	Input      string                 `json:"input"`
	General    string                 `json:"general"`
	F          exprView               `json:"f"`
	FPrime     exprView               `json:"f_prime"`
	FSecond    exprView               `json:"f_second"`
	Constants  map[string]string      `json:"constants"`
	Critical   pointsView             `json:"critical"`
	Inflection pointsView             `json:"inflection"`
	Connectors []derivrecon.Connector `json:"connectors"`
	Window     window                 `json:"window"`
	Samples    samplesView            `json:"samples"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	RequestID string `json:"request_id,omitempty"`
}

type batchItem struct {
	Index  int                  `json:"index"`
	Status int                  `json:"status"`
	Result *reconstructResponse `json:"result,omitempty"`
	Error  *errorResponse       `json:"error,omitempty"`
}

type batchResponse struct {
	RequestID string      `json:"request_id,omitempty"`
	Items     []batchItem `json:"items"`
	Failed    int         `json:"failed"`
}

func nullable(ys []float64) []interface{} {
	out := make([]interface{}, len(ys))
	for i, y := range ys {
		if !math.IsNaN(y) {
			out[i] = y
		}
	}
	return out
}

func responseOf(res *derivrecon.Result, s *derivrecon.Series, w window) *reconstructResponse {
	consts := make(map[string]string, len(res.Constants))
	for name, v := range res.Constants {
		consts[name] = v.String()
	}
	connectors := res.Connectors(w.XMin, w.XMax)
	if connectors == nil {
		connectors = []derivrecon.Connector{}
	}
	return &reconstructResponse{
		Message:    successMessage,
		Mode:       res.Mode.String(),
		Var:        res.Var,
		Input:      res.Input.String(),
		General:    res.General.String(),
		F:          viewOf(res.F),
		FPrime:     viewOf(res.FPrime),
		FSecond:    viewOf(res.FSecond),
		Constants:  consts,
		Critical:   pointsView{All: res.Critical, InWindow: res.CriticalIn(w.XMin, w.XMax)},
		Inflection: pointsView{All: res.Inflection, InWindow: res.InflectionIn(w.XMin, w.XMax)},
		Connectors: connectors,
		Window:     w,
		Samples: samplesView{
			X:       s.X,
			F:       nullable(s.F),
			FPrime:  nullable(s.FPrime),
			FSecond: nullable(s.FSecond),
			Invalid: map[string][]int{
				"f":        nonNil(s.InvalidF),
				"f_prime":  nonNil(s.InvalidFPrime),
				"f_second": nonNil(s.InvalidFSecond),
			},
		},
	}
}

func nonNil(xs []int) []int {
	if xs == nil {
		return []int{}
	}
	return xs
}
