package runtime

import (
	"github.com/lemonberrylabs/manifestc/pkg/ast"
	"github.com/lemonberrylabs/manifestc/pkg/lexer"
	"github.com/lemonberrylabs/manifestc/pkg/logging"
	"github.com/lemonberrylabs/manifestc/pkg/types"
)

// Evaluator walks a syntax tree against an evaluation context.
type Evaluator struct {
	ctx    *Context
	path   string
	source string
}

// NewEvaluator creates an evaluator for a manifest's source text.
func NewEvaluator(ctx *Context, path, source string) *Evaluator {
	return &Evaluator{ctx: ctx, path: path, source: source}
}

// Context returns the evaluation context.
func (e *Evaluator) Context() *Context { return e.ctx }

// Path returns the manifest path under evaluation.
func (e *Evaluator) Path() string { return e.path }

func (e *Evaluator) errorf(pos lexer.Position, format string, args ...any) *types.EvaluationError {
	return types.NewEvaluationError(e.path, pos, lexer.LineText(e.source, pos), format, args...)
}

func (e *Evaluator) warn(pos lexer.Position, message string) {
	e.ctx.Logger().Log(logging.Record{
		Level:   logging.Warning,
		Path:    e.path,
		Pos:     pos,
		Snippet: lexer.LineText(e.source, pos),
		Message: message,
	})
}

// EvaluateTree evaluates every top-level expression; top-level expressions
// must be productive.
func (e *Evaluator) EvaluateTree(tree *ast.SyntaxTree) error {
	for i := range tree.Expressions {
		if _, err := e.Evaluate(&tree.Expressions[i], true); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate evaluates one expression, applying operator precedence to its
// flat binary entries by precedence climbing.
func (e *Evaluator) Evaluate(expr *ast.Expression, productive bool) (types.Value, error) {
	if productive && !isProductive(expr) {
		return types.Undef, e.errorf(expr.Pos(), "unproductive expressions may only appear last in a block")
	}

	left, err := e.EvaluatePrimary(expr.Primary)
	if err != nil {
		return types.Undef, err
	}
	idx := 0
	left, err = e.climb(left, expr.Primary.Pos(), 0, expr.Binary, &idx)
	if err != nil {
		return types.Undef, err
	}
	return left, nil
}

// precedence returns the binding strength of a binary operator, tight
// operators high. Relationship arrows are loosest so they can cross
// ordinary operator boundaries.
func precedence(op ast.BinaryOp) int {
	switch op {
	case ast.OpMultiply, ast.OpDivide, ast.OpModulo:
		return 10
	case ast.OpPlus, ast.OpMinus:
		return 9
	case ast.OpLeftShift, ast.OpRightShift:
		return 8
	case ast.OpEquals, ast.OpNotEquals, ast.OpMatch, ast.OpNotMatch:
		return 7
	case ast.OpLessThan, ast.OpLessEquals, ast.OpGreaterThan, ast.OpGreaterEquals:
		return 6
	case ast.OpIn:
		return 5
	case ast.OpAnd:
		return 4
	case ast.OpOr:
		return 3
	case ast.OpAssign:
		return 2
	default: // relationship arrows
		return 1
	}
}

func rightAssociative(op ast.BinaryOp) bool {
	return op == ast.OpAssign
}

// climb implements precedence climbing over the flat binary entries.
func (e *Evaluator) climb(left types.Value, leftPos lexer.Position, minPrecedence int, entries []ast.BinaryEntry, idx *int) (types.Value, error) {
	for *idx < len(entries) {
		entry := &entries[*idx]
		prec := precedence(entry.Op)
		if prec < minPrecedence {
			break
		}
		*idx++

		// Short-circuit logical operators before evaluating the right side
		if entry.Op == ast.OpAnd && !left.IsTruthy() {
			e.skipOperands(entries, idx, prec)
			left = types.NewBoolean(false)
			continue
		}
		if entry.Op == ast.OpOr && left.IsTruthy() {
			e.skipOperands(entries, idx, prec)
			left = types.NewBoolean(true)
			continue
		}

		right, err := e.EvaluatePrimary(entry.Operand)
		if err != nil {
			return types.Undef, err
		}
		next := prec
		if !rightAssociative(entry.Op) {
			next++
		}
		right, err = e.climb(right, entry.Operand.Pos(), next, entries, idx)
		if err != nil {
			return types.Undef, err
		}
		left, err = e.binaryOp(left, leftPos, entry.Op, entry.OpPos, right, entry.Operand.Pos())
		if err != nil {
			return types.Undef, err
		}
	}
	return left, nil
}

// skipOperands consumes the entries a short-circuited operand would have
// claimed: everything binding tighter than the short-circuiting operator.
func (e *Evaluator) skipOperands(entries []ast.BinaryEntry, idx *int, prec int) {
	for *idx < len(entries) && precedence(entries[*idx].Op) > prec {
		*idx++
	}
}

// EvaluatePrimary dispatches on the primary expression variant.
func (e *Evaluator) EvaluatePrimary(expr ast.PrimaryExpr) (types.Value, error) {
	switch n := expr.(type) {
	case *ast.Expression:
		return e.Evaluate(n, false)
	case *ast.UnaryExpr:
		return e.evaluateUnary(n)
	case *ast.PostfixExpr:
		return e.evaluatePostfix(n)
	case *ast.CaseExpr:
		return e.evaluateCase(n)
	case *ast.IfExpr:
		return e.evaluateIf(n)
	case *ast.UnlessExpr:
		return e.evaluateUnless(n)
	case *ast.FunctionCallExpr:
		return e.evaluateFunctionCall(n)
	case *ast.ResourceExpr:
		return e.evaluateResource(n)
	case *ast.ResourceDefaultsExpr:
		return e.evaluateResourceDefaults(n)
	case *ast.ResourceOverrideExpr:
		return e.evaluateResourceOverride(n)
	case *ast.ClassDefExpr:
		// Handled by the definition scanner; evaluates to a class reference
		return types.NewType(types.ClassType{Title: e.ctx.CurrentScope().Qualify(n.Name)}), nil
	case *ast.DefinedTypeExpr:
		// Handled by the definition scanner; evaluates to a type reference
		return types.NewType(types.NewResourceType(e.ctx.CurrentScope().Qualify(n.Name), "")), nil
	case *ast.NodeDefExpr:
		// Handled by the definition scanner
		return types.Undef, nil
	case *ast.CollectionExpr:
		return e.evaluateCollection(n)
	default:
		return e.evaluateBasic(expr)
	}
}

// EvaluateBlock evaluates a block body; every expression but the last must
// be productive, and the last expression's value is the block's value.
func (e *Evaluator) EvaluateBlock(body []ast.Expression) (types.Value, error) {
	result := types.Undef
	for i := range body {
		var err error
		result, err = e.Evaluate(&body[i], i < len(body)-1)
		if err != nil {
			return types.Undef, err
		}
	}
	return result, nil
}

// Unfold detects a splat of an array and returns the elements to expand,
// or nil when the expression is not an unfolding splat.
func (e *Evaluator) Unfold(expr *ast.Expression, evaluated types.Value) []types.Value {
	if len(expr.Binary) != 0 {
		return nil
	}
	return e.unfoldPrimary(expr.Primary, evaluated)
}

func (e *Evaluator) unfoldPrimary(expr ast.PrimaryExpr, evaluated types.Value) []types.Value {
	if unary, ok := expr.(*ast.UnaryExpr); ok && unary.Op == ast.UnarySplat {
		if evaluated.Deref().Kind() == types.KindArray {
			return evaluated.Mutate().Array()
		}
		return nil
	}
	if nested, ok := expr.(*ast.Expression); ok {
		return e.Unfold(nested, evaluated)
	}
	return nil
}

// isMatch applies case/selector matching: regexes match strings (binding
// capture groups), types test instances, everything else compares equal.
func (e *Evaluator) isMatch(actual types.Value, expected types.Value) bool {
	d := expected.Deref()
	switch d.Kind() {
	case types.KindRegexp:
		a := actual.Deref()
		if a.Kind() != types.KindString {
			return false
		}
		matches := d.Regexp().FindStringSubmatch(a.Str())
		if matches == nil {
			return false
		}
		e.ctx.SetMatches(matches)
		return true
	case types.KindType:
		return d.Type().IsInstance(actual)
	}
	return actual.Equals(expected)
}

// isProductive reports whether an expression has an effect of its own.
// Unproductive expressions may only appear last in a block.
func isProductive(expr *ast.Expression) bool {
	if isProductivePrimary(expr.Primary) {
		return true
	}
	for i := range expr.Binary {
		switch expr.Binary[i].Op {
		case ast.OpAssign, ast.OpInEdge, ast.OpInEdgeSub, ast.OpOutEdge, ast.OpOutEdgeSub:
			return true
		}
	}
	return false
}

func isProductivePrimary(expr ast.PrimaryExpr) bool {
	switch n := expr.(type) {
	case *ast.Expression:
		return isProductive(n)
	case *ast.UnaryExpr:
		return isProductivePrimary(n.Operand)
	case *ast.ResourceExpr, *ast.ResourceDefaultsExpr, *ast.ResourceOverrideExpr,
		*ast.ClassDefExpr, *ast.DefinedTypeExpr, *ast.NodeDefExpr, *ast.CollectionExpr,
		*ast.CaseExpr, *ast.IfExpr, *ast.UnlessExpr, *ast.FunctionCallExpr:
		return true
	case *ast.PostfixExpr:
		if isProductivePrimary(n.Primary) {
			return true
		}
		for _, op := range n.Ops {
			if _, ok := op.(*ast.MethodCallOp); ok {
				return true
			}
		}
	}
	return false
}
