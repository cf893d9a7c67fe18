package runtime

import (
	"github.com/lemonberrylabs/manifestc/pkg/ast"
	"github.com/lemonberrylabs/manifestc/pkg/lexer"
	"github.com/lemonberrylabs/manifestc/pkg/types"
)

// evaluateCase matches a value against case propositions; matching follows
// selector semantics and bodies run in a child scope.
func (e *Evaluator) evaluateCase(n *ast.CaseExpr) (types.Value, error) {
	e.ctx.PushMatchScope()
	defer e.ctx.PopMatchScope()

	value, err := e.Evaluate(&n.Expression, false)
	if err != nil {
		return types.Undef, err
	}

	defaultIndex := -1
	for i := range n.Propositions {
		prop := &n.Propositions[i]
		for j := range prop.Options {
			option, err := e.Evaluate(&prop.Options[j], false)
			if err != nil {
				return types.Undef, err
			}
			if option.IsDefault() {
				defaultIndex = i
				continue
			}
			if unfolded := e.Unfold(&prop.Options[j], option); unfolded != nil {
				for _, element := range unfolded {
					if e.isMatch(value, element) {
						return e.evaluateChildBlock(prop.Body)
					}
				}
				continue
			}
			if e.isMatch(value, option) {
				return e.evaluateChildBlock(prop.Body)
			}
		}
	}
	if defaultIndex >= 0 {
		return e.evaluateChildBlock(n.Propositions[defaultIndex].Body)
	}
	return types.Undef, nil
}

// evaluateIf evaluates if/elsif/else arms in order; bodies run in a child
// scope and the expression's value is the taken arm's value.
func (e *Evaluator) evaluateIf(n *ast.IfExpr) (types.Value, error) {
	e.ctx.PushMatchScope()
	defer e.ctx.PopMatchScope()

	cond, err := e.Evaluate(&n.Conditional, false)
	if err != nil {
		return types.Undef, err
	}
	if cond.IsTruthy() {
		return e.evaluateChildBlock(n.Body)
	}
	for i := range n.Elsifs {
		cond, err := e.Evaluate(&n.Elsifs[i].Conditional, false)
		if err != nil {
			return types.Undef, err
		}
		if cond.IsTruthy() {
			return e.evaluateChildBlock(n.Elsifs[i].Body)
		}
	}
	if n.HasElse {
		return e.evaluateChildBlock(n.Else)
	}
	return types.Undef, nil
}

// evaluateUnless is the negated form of if without elsif arms.
func (e *Evaluator) evaluateUnless(n *ast.UnlessExpr) (types.Value, error) {
	e.ctx.PushMatchScope()
	defer e.ctx.PopMatchScope()

	cond, err := e.Evaluate(&n.Conditional, false)
	if err != nil {
		return types.Undef, err
	}
	if !cond.IsTruthy() {
		return e.evaluateChildBlock(n.Body)
	}
	if n.HasElse {
		return e.evaluateChildBlock(n.Else)
	}
	return types.Undef, nil
}

// evaluateChildBlock runs a block body in a fresh child scope.
func (e *Evaluator) evaluateChildBlock(body []ast.Expression) (types.Value, error) {
	e.ctx.PushScope(nil)
	defer e.ctx.PopScope()
	return e.EvaluateBlock(body)
}

// evaluateFunctionCall evaluates arguments (expanding splats) and
// dispatches the named builtin.
func (e *Evaluator) evaluateFunctionCall(n *ast.FunctionCallExpr) (types.Value, error) {
	var args []types.Value
	var positions []lexer.Position
	for i := range n.Args {
		value, err := e.Evaluate(&n.Args[i], false)
		if err != nil {
			return types.Undef, err
		}
		if unfolded := e.Unfold(&n.Args[i], value); unfolded != nil {
			for _, element := range unfolded {
				args = append(args, element)
				positions = append(positions, n.Args[i].Pos())
			}
			continue
		}
		args = append(args, value)
		positions = append(positions, n.Args[i].Pos())
	}
	return e.dispatch(n.Name, n.Position, args, positions, n.Lambda)
}
