package derivrecon

import "strconv"

// Scope holds the symbols of one reconstruction: the independent variable
// and the integration constants introduced so far. Constants are named
// C1, C2, ... skipping any name already used by the input.
//
// A Scope is not safe for concurrent use; each request gets its own.
type Scope struct {
	variable  string
	next      int
	taken     map[string]struct{}
	constants []*Sym
}

func NewScope(variable string) *Scope {
	if variable == "" {
		variable = DefaultVariable
	}
	return &Scope{variable: variable, next: 1, taken: map[string]struct{}{variable: {}}}
}

// DefaultVariable is the independent variable when none is given.
const DefaultVariable = "x"

func (s *Scope) Var() string { return s.variable }

// Reserve marks every free symbol of e as taken.
func (s *Scope) Reserve(e Expr) {
	for name := range FreeSymbols(e) {
		s.taken[name] = struct{}{}
	}
}

// Fresh returns a new integration constant.
func (s *Scope) Fresh() *Sym {
	for {
		name := "C" + strconv.Itoa(s.next)
		s.next++
		if _, used := s.taken[name]; used {
			continue
		}
		s.taken[name] = struct{}{}
		c := S(name)
		s.constants = append(s.constants, c)
		return c
	}
}

// Constants returns the constants introduced so far, oldest first.
func (s *Scope) Constants() []*Sym {
	out := make([]*Sym, len(s.constants))
	copy(out, s.constants)
	return out
}

// IsConstant reports whether name is a constant introduced by this scope.
func (s *Scope) IsConstant(name string) bool {
	for _, c := range s.constants {
		if c.name == name {
			return true
		}
	}
	return false
}
