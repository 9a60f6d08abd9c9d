package derivrecon

// View is the JSON form of a Result, shared by the tool interface, the HTTP
// API and the CLI.
type View struct {
	Mode       string            `json:"mode"`
	Var        string            `json:"var"`
	Input      string            `json:"input"`
	F          string            `json:"f"`
	FPrime     string            `json:"f_prime"`
	FSecond    string            `json:"f_second"`
	General    string            `json:"general"`
	LaTeX      LaTeXView         `json:"latex"`
	Constants  map[string]string `json:"constants"`
	Critical   []float64         `json:"critical"`
	Inflection []float64         `json:"inflection"`
	Summary    string            `json:"summary"`
}

type LaTeXView struct {
	F       string `json:"f"`
	FPrime  string `json:"f_prime"`
	FSecond string `json:"f_second"`
}

func (r *Result) View() View {
	consts := make(map[string]string, len(r.Constants))
	for name, v := range r.Constants {
		consts[name] = v.String()
	}
	return View{
		Mode:    r.Mode.String(),
		Var:     r.Var,
		Input:   r.Input.String(),
		F:       r.F.String(),
		FPrime:  r.FPrime.String(),
		FSecond: r.FSecond.String(),
		General: r.General.String(),
		LaTeX: LaTeXView{
			F:       r.F.LaTeX(),
			FPrime:  r.FPrime.LaTeX(),
			FSecond: r.FSecond.LaTeX(),
		},
		Constants:  consts,
		Critical:   r.Critical,
		Inflection: r.Inflection,
		Summary:    r.Summary(),
	}
}
