package derivrecon

import (
	"errors"
	"fmt"
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/file"
	"github.com/expr-lang/expr/parser"
)

// Parse reads a single-variable expression in infix notation. The grammar
// is the usual one: + - * / with ^ or ** for powers, unary signs, numeric
// literals, parentheses, the constants pi and E, sqrt and the functions
// listed by Functions. E^u reads as exp(u). The only identifier allowed
// besides those is the scope's variable.
func Parse(input string, scope *Scope) (Expr, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &ParseError{Input: input, Reason: "empty expression"}
	}
	tree, err := parser.Parse(input)
	if err != nil {
		reason := err.Error()
		var fe *file.Error
		if errors.As(err, &fe) {
			reason = fe.Message
		}
		return nil, &ParseError{Input: input, Reason: reason}
	}
	b := &builder{input: input, variable: scope.Var()}
	e, err := b.build(tree.Node)
	if err != nil {
		return nil, err
	}
	scope.Reserve(e)
	logger().Debug("parsed expression", "input", input, "expr", e.String())
	return e, nil
}

// ParseIn parses input with a throwaway scope over variable.
func ParseIn(input, variable string) (Expr, error) {
	return Parse(input, NewScope(variable))
}

type builder struct {
	input    string
	variable string
}

func (b *builder) fail(format string, args ...interface{}) error {
	return &ParseError{Input: b.input, Reason: fmt.Sprintf(format, args...)}
}

func (b *builder) build(node ast.Node) (Expr, error) {
	switch n := node.(type) {
	case *ast.IntegerNode:
		return N(int64(n.Value)), nil
	case *ast.FloatNode:
		v, ok := NFloat(n.Value)
		if !ok {
			return nil, b.fail("number out of range")
		}
		return v, nil
	case *ast.IdentifierNode:
		return b.identifier(n.Value)
	case *ast.UnaryNode:
		arg, err := b.build(n.Node)
		if err != nil {
			return nil, err
		}
		switch n.Operator {
		case "-":
			return MulOf(N(-1), arg), nil
		case "+":
			return arg, nil
		}
		return nil, b.fail("unsupported operator %q", n.Operator)
	case *ast.BinaryNode:
		return b.binary(n)
	case *ast.CallNode:
		callee, ok := n.Callee.(*ast.IdentifierNode)
		if !ok {
			return nil, b.fail("unsupported call")
		}
		return b.call(callee.Value, n.Arguments)
	case *ast.BuiltinNode:
		return b.call(n.Name, n.Arguments)
	}
	kind := strings.TrimSuffix(strings.TrimPrefix(fmt.Sprintf("%T", node), "*ast."), "Node")
	return nil, b.fail("unsupported syntax (%s)", strings.ToLower(kind))
}

func (b *builder) identifier(name string) (Expr, error) {
	switch {
	case name == b.variable:
		return S(name), nil
	case name == "pi":
		return Pi, nil
	case name == "E" || name == "e":
		return E, nil
	}
	return nil, b.fail("unknown symbol %q (the variable is %q)", name, b.variable)
}

func (b *builder) binary(n *ast.BinaryNode) (Expr, error) {
	left, err := b.build(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := b.build(n.Right)
	if err != nil {
		return nil, err
	}
	switch n.Operator {
	case "+":
		return AddOf(left, right), nil
	case "-":
		return AddOf(left, MulOf(N(-1), right)), nil
	case "*":
		return MulOf(left, right), nil
	case "/":
		if isNumEqual(right, 0) {
			return nil, b.fail("division by zero")
		}
		return MulOf(left, PowOf(right, N(-1))), nil
	case "^", "**":
		if isNumEqual(left, 0) {
			if en, ok := right.(*Num); ok && !en.IsPositive() {
				return nil, b.fail("zero raised to a non-positive power")
			}
		}
		return PowOf(left, right), nil
	}
	return nil, b.fail("unsupported operator %q", n.Operator)
}

func (b *builder) call(name string, args []ast.Node) (Expr, error) {
	if len(args) != 1 {
		return nil, b.fail("%s takes exactly one argument, got %d", name, len(args))
	}
	arg, err := b.build(args[0])
	if err != nil {
		return nil, err
	}
	if name == "sqrt" {
		return SqrtOf(arg), nil
	}
	fn, ok := LookupFn(name)
	if !ok {
		return nil, b.fail("unknown function %q", name)
	}
	return Apply(fn, arg), nil
}
