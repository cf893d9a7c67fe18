package runtime

import (
	"github.com/lemonberrylabs/manifestc/pkg/ast"
	"github.com/lemonberrylabs/manifestc/pkg/lexer"
	"github.com/lemonberrylabs/manifestc/pkg/types"
)

// evaluatePostfix applies postfix operations left-to-right.
func (e *Evaluator) evaluatePostfix(n *ast.PostfixExpr) (types.Value, error) {
	result, err := e.EvaluatePrimary(n.Primary)
	if err != nil {
		return types.Undef, err
	}
	for _, op := range n.Ops {
		switch o := op.(type) {
		case *ast.SelectorOp:
			result, err = e.evaluateSelector(result, o)
		case *ast.AccessOp:
			result, err = e.evaluateAccess(result, o)
		case *ast.MethodCallOp:
			result, err = e.evaluateMethodCall(result, o)
		}
		if err != nil {
			return types.Undef, err
		}
	}
	return result, nil
}

// evaluateSelector applies "value ? { case => result, ... }". The first
// matching case wins; default is the catch-all. A selector with no
// matching case is an error.
func (e *Evaluator) evaluateSelector(value types.Value, op *ast.SelectorOp) (types.Value, error) {
	e.ctx.PushMatchScope()
	defer e.ctx.PopMatchScope()

	defaultIndex := -1
	for i := range op.Cases {
		c := &op.Cases[i]
		selector, err := e.Evaluate(&c.Selector, false)
		if err != nil {
			return types.Undef, err
		}
		if selector.IsDefault() {
			defaultIndex = i
			continue
		}
		if unfolded := e.Unfold(&c.Selector, selector); unfolded != nil {
			for _, element := range unfolded {
				if e.isMatch(value, element) {
					return e.Evaluate(&c.Result, false)
				}
			}
			continue
		}
		if e.isMatch(value, selector) {
			return e.Evaluate(&c.Result, false)
		}
	}
	if defaultIndex < 0 {
		return types.Undef, e.errorf(op.Position, "no matching selector case for value '%s'", value)
	}
	return e.Evaluate(&op.Cases[defaultIndex].Result, false)
}

// evaluateMethodCall dispatches "receiver.name(args) { ... }" as the
// function call "name(receiver, args) { ... }".
func (e *Evaluator) evaluateMethodCall(receiver types.Value, op *ast.MethodCallOp) (types.Value, error) {
	args := []types.Value{receiver}
	positions := []lexer.Position{op.NamePos}
	for i := range op.Args {
		value, err := e.Evaluate(&op.Args[i], false)
		if err != nil {
			return types.Undef, err
		}
		if unfolded := e.Unfold(&op.Args[i], value); unfolded != nil {
			for _, element := range unfolded {
				args = append(args, element)
				positions = append(positions, op.Args[i].Pos())
			}
			continue
		}
		args = append(args, value)
		positions = append(positions, op.Args[i].Pos())
	}
	return e.dispatch(op.Name, op.NamePos, args, positions, op.Lambda)
}
