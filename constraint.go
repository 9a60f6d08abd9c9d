package derivrecon

import "errors"

// Condition pins the Order-th derivative of the unknown function to Value
// at X. Order 0 is the function itself.
type Condition struct {
	X     float64
	Value float64
	Order int
}

// SolveConstraints finds the unique values of constants that satisfy every
// condition. exprs[k] is the k-th derivative of the candidate function,
// expressed in varName and the constants.
//
// Each condition contributes one equation, which must be linear in the
// constants with numeric coefficients. The system is solved exactly. When
// the equations do not determine each constant uniquely the error is an
// *UnsolvableConstraintError; the same holds when a condition lands where
// the expression is undefined, such as ln|x| at x = 0.
func SolveConstraints(exprs []Expr, conds []Condition, constants []*Sym, varName string) (map[string]Expr, error) {
	n := len(constants)
	if len(conds) != n {
		return nil, unsolvable("%d conditions for %d integration constants", len(conds), n)
	}
	if n == 0 {
		return map[string]Expr{}, nil
	}
	zero := make(map[string]Expr, n)
	for _, c := range constants {
		zero[c.name] = N(0)
	}

	A := NewMatrix(n, n)
	B := NewMatrix(n, 1)
	for i, cond := range conds {
		if cond.Order < 0 || cond.Order >= len(exprs) {
			return nil, unsolvable("no derivative of order %d to constrain", cond.Order)
		}
		x0, ok := NFloat(cond.X)
		if !ok {
			return nil, unsolvable("condition point %v is not finite", cond.X)
		}
		target, ok := NFloat(cond.Value)
		if !ok {
			return nil, unsolvable("condition value %v is not finite", cond.Value)
		}
		at := Sub(exprs[cond.Order], varName, x0)
		residual := Eq(at, target).Residual()

		for j, c := range constants {
			coef := Diff(residual, c.name)
			cn, ok := coef.Eval()
			if !ok {
				return nil, unsolvable("condition %d is not linear in %s", i+1, c.name)
			}
			A.Set(i, j, cn)
		}
		rest := SubstituteAll(residual, zero)
		if _, ok := rest.Eval(); !ok {
			return nil, unsolvable("%s is undefined at %s = %g", exprs[cond.Order], varName, cond.X)
		}
		B.Set(i, 0, MulOf(N(-1), rest))
	}

	inv, err := A.Inverse()
	if errors.Is(err, errSingular) {
		return nil, unsolvable("conditions do not determine the constants uniquely")
	}
	if err != nil {
		return nil, err
	}
	sol := inv.MatMul(B)
	values := make(map[string]Expr, n)
	for j, c := range constants {
		v := sol.Get(j, 0).Simplify()
		if _, ok := v.Eval(); !ok {
			return nil, unsolvable("%s has no finite value", c.name)
		}
		values[c.name] = v
	}
	logger().Debug("solved constraints", "constants", len(values), "conditions", len(conds))
	return values, nil
}
