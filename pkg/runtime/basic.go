package runtime

import (
	"strconv"

	"github.com/lemonberrylabs/manifestc/pkg/ast"
	"github.com/lemonberrylabs/manifestc/pkg/types"
)

// evaluateBasic evaluates literal, name, variable, type, array, and hash
// primaries.
func (e *Evaluator) evaluateBasic(expr ast.PrimaryExpr) (types.Value, error) {
	switch n := expr.(type) {
	case *ast.Undef:
		return types.Undef, nil
	case *ast.Default:
		return types.Default, nil
	case *ast.Boolean:
		return types.NewBoolean(n.Value), nil
	case *ast.Integer:
		return types.NewInteger(n.Value), nil
	case *ast.Float:
		return types.NewFloat(n.Value), nil
	case *ast.String:
		s, err := e.Interpolate(n.Position, n.Data)
		if err != nil {
			return types.Undef, err
		}
		return types.NewString(s), nil
	case *ast.Regex:
		v, err := types.CompileRegexp(n.Pattern)
		if err != nil {
			return types.Undef, e.errorf(n.Position, "%s", err)
		}
		return v, nil
	case *ast.Variable:
		return e.evaluateVariable(n)
	case *ast.Name:
		// Bare names evaluate as strings
		return types.NewString(n.Value), nil
	case *ast.BareWord:
		return types.NewString(n.Value), nil
	case *ast.TypeName:
		return types.NewType(types.TypeByName(n.Name)), nil
	case *ast.Array:
		return e.evaluateArray(n)
	case *ast.Hash:
		return e.evaluateHash(n)
	}
	return types.Undef, e.errorf(expr.Pos(), "unsupported expression")
}

// evaluateVariable resolves a variable reference, yielding a variable
// indirection value so assignment can see the name. Qualified lookups may
// declare the named class on demand.
func (e *Evaluator) evaluateVariable(n *ast.Variable) (types.Value, error) {
	name := n.Name
	if name == "" {
		return types.Undef, e.errorf(n.Position, "variable name cannot be empty")
	}

	if name[0] >= '0' && name[0] <= '9' {
		index, err := strconv.Atoi(name)
		if err != nil {
			return types.Undef, e.errorf(n.Position, "'%s' is not a valid match variable name", name)
		}
		if value, ok := e.ctx.LookupMatch(index); ok {
			return types.NewVariable(name, &value), nil
		}
		return types.NewVariable(name, nil), nil
	}

	variable, missingScope := e.ctx.Lookup(name)
	if variable == nil && missingScope != "" && e.ctx.Catalog() != nil {
		// The class scope doesn't exist yet: declare the class on demand
		// if it has a definition and hasn't been declared
		if e.ctx.Catalog().FindClass(missingScope) != nil &&
			e.ctx.Catalog().Find(types.NewResourceType("class", missingScope)) == nil {
			if _, err := e.declareClass(types.NewResourceType("class", missingScope), n.Position, nil); err != nil {
				return types.Undef, err
			}
			variable, _ = e.ctx.Lookup(name)
		} else if e.ctx.Catalog().FindClass(missingScope) == nil {
			e.warn(n.Position, "could not look up variable $"+name+" because class '"+missingScope+"' is not defined")
		}
	}
	if variable == nil {
		return types.NewVariable(name, nil), nil
	}
	return types.NewVariable(name, variable.Value), nil
}

func (e *Evaluator) evaluateArray(n *ast.Array) (types.Value, error) {
	var elements []types.Value
	for i := range n.Elements {
		result, err := e.Evaluate(&n.Elements[i], false)
		if err != nil {
			return types.Undef, err
		}
		if unfolded := e.Unfold(&n.Elements[i], result); unfolded != nil {
			elements = append(elements, unfolded...)
			continue
		}
		elements = append(elements, result)
	}
	return types.NewArray(elements), nil
}

func (e *Evaluator) evaluateHash(n *ast.Hash) (types.Value, error) {
	h := types.NewHashValue()
	for i := range n.Pairs {
		key, err := e.Evaluate(&n.Pairs[i].Key, false)
		if err != nil {
			return types.Undef, err
		}
		value, err := e.Evaluate(&n.Pairs[i].Value, false)
		if err != nil {
			return types.Undef, err
		}
		h.Set(key.Deref(), value)
	}
	return types.NewHash(h), nil
}

// evaluateUnary applies -, *, and ! operators.
func (e *Evaluator) evaluateUnary(n *ast.UnaryExpr) (types.Value, error) {
	operand, err := e.EvaluatePrimary(n.Operand)
	if err != nil {
		return types.Undef, err
	}
	d := operand.Deref()
	switch n.Op {
	case ast.UnaryNegate:
		switch d.Kind() {
		case types.KindInteger:
			return types.NewInteger(-d.Int()), nil
		case types.KindFloat:
			return types.NewFloat(-d.Float()), nil
		}
		return types.Undef, e.errorf(n.OpPos, "expected %s for unary negation but found %s", types.NumericType{}, types.TypeOf(operand))
	case ast.UnarySplat:
		// A splat outside an expansion context passes the operand through
		return operand, nil
	default: // UnaryNot
		return types.NewBoolean(!operand.IsTruthy()), nil
	}
}
