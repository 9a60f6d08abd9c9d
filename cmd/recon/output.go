package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/njchilds90/derivrecon"
)

var (
	colorAccent  = lipgloss.Color("#20B9B4")
	colorSuccess = lipgloss.Color("#2CD7C7")
	colorError   = lipgloss.Color("#E74C3C")
	colorMuted   = lipgloss.Color("#5C7A84")
)

// printer writes results as plain text, or styled text when the output is a
// terminal.
type printer struct {
	w      io.Writer
	styled bool

	label, value, ok, bad, muted lipgloss.Style
}

func newPrinter(w io.Writer) *printer {
	p := &printer{w: w, styled: isTerminal(w)}
	if p.styled {
		p.label = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
		p.ok = lipgloss.NewStyle().Foreground(colorSuccess)
		p.bad = lipgloss.NewStyle().Bold(true).Foreground(colorError)
		p.muted = lipgloss.NewStyle().Foreground(colorMuted)
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func (p *printer) render(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}

func (p *printer) line(label, value string) {
	fmt.Fprintf(p.w, "%s %s\n", p.render(p.label, label), p.render(p.value, value))
}

func (p *printer) success(msg string) {
	fmt.Fprintf(p.w, "%s %s\n", p.render(p.ok, "✓"), msg)
}

func (p *printer) failure(err error) {
	kind := string(derivrecon.KindOf(err))
	if kind == "" {
		kind = "error"
	}
	fmt.Fprintf(p.w, "%s %s: %v\n", p.render(p.bad, "✗"), kind, err)
}

func (p *printer) result(res *derivrecon.Result, xmin, xmax float64) {
	v := res.Var
	p.success("function successfully reconstructed")
	p.line(fmt.Sprintf("f(%s)   =", v), res.F.String())
	p.line(fmt.Sprintf("f'(%s)  =", v), res.FPrime.String())
	p.line(fmt.Sprintf("f''(%s) =", v), res.FSecond.String())
	if len(res.Constants) > 0 {
		names := make([]string, 0, len(res.Constants))
		for c := range res.Constants {
			names = append(names, c)
		}
		sort.Strings(names)
		for i, c := range names {
			names[i] = c + " = " + res.Constants[c].String()
		}
		p.line("constants: ", strings.Join(names, ", "))
	}
	p.line("critical:  ", p.points(res.CriticalIn(xmin, xmax)))
	p.line("inflection:", p.points(res.InflectionIn(xmin, xmax)))
	fmt.Fprintln(p.w, p.render(p.muted, fmt.Sprintf("(points shown for %g <= %s <= %g)", xmin, v, xmax)))
}

func (p *printer) points(xs []float64) string {
	if len(xs) == 0 {
		return "none"
	}
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.FormatFloat(x, 'g', 10, 64)
	}
	return strings.Join(parts, ", ")
}

type jsonOutput struct {
	Result  derivrecon.View        `json:"result"`
	Samples map[string]interface{} `json:"samples"`
}

func writeJSON(w io.Writer, res *derivrecon.Result, s *derivrecon.Series) error {
	out := jsonOutput{
		Result: res.View(),
		Samples: map[string]interface{}{
			"x":        s.X,
			"f":        nullable(s.F),
			"f_prime":  nullable(s.FPrime),
			"f_second": nullable(s.FSecond),
		},
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// writeCSV writes one row per sample; points with no real value are empty.
func writeCSV(w io.Writer, s *derivrecon.Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"x", "f", "f_prime", "f_second"}); err != nil {
		return err
	}
	cell := func(y float64) string {
		if math.IsNaN(y) {
			return ""
		}
		return strconv.FormatFloat(y, 'g', -1, 64)
	}
	for i, x := range s.X {
		row := []string{cell(x), cell(s.F[i]), cell(s.FPrime[i]), cell(s.FSecond[i])}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
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
