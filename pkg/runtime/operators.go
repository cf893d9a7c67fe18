package runtime

import (
	"math"
	"strings"

	"github.com/lemonberrylabs/manifestc/pkg/ast"
	"github.com/lemonberrylabs/manifestc/pkg/catalog"
	"github.com/lemonberrylabs/manifestc/pkg/lexer"
	"github.com/lemonberrylabs/manifestc/pkg/types"
)

// binaryOp dispatches a binary operator over evaluated operands.
func (e *Evaluator) binaryOp(left types.Value, leftPos lexer.Position, op ast.BinaryOp, opPos lexer.Position, right types.Value, rightPos lexer.Position) (types.Value, error) {
	switch op {
	case ast.OpAssign:
		return e.assign(left, leftPos, right)
	case ast.OpPlus:
		return e.plus(left, leftPos, right, rightPos)
	case ast.OpMinus:
		return e.arith(left, leftPos, right, rightPos, "subtraction",
			func(a, b int64) int64 { return a - b },
			func(a, b float64) float64 { return a - b })
	case ast.OpMultiply:
		return e.arith(left, leftPos, right, rightPos, "multiplication",
			func(a, b int64) int64 { return a * b },
			func(a, b float64) float64 { return a * b })
	case ast.OpDivide:
		return e.divide(left, leftPos, right, rightPos)
	case ast.OpModulo:
		return e.modulo(left, leftPos, right, rightPos)
	case ast.OpLeftShift:
		return e.leftShift(left, leftPos, right, rightPos)
	case ast.OpRightShift:
		return e.rightShift(left, leftPos, right, rightPos)
	case ast.OpEquals:
		return types.NewBoolean(left.Equals(right)), nil
	case ast.OpNotEquals:
		return types.NewBoolean(!left.Equals(right)), nil
	case ast.OpMatch:
		matched, err := e.match(left, leftPos, right, rightPos)
		if err != nil {
			return types.Undef, err
		}
		return types.NewBoolean(matched), nil
	case ast.OpNotMatch:
		matched, err := e.match(left, leftPos, right, rightPos)
		if err != nil {
			return types.Undef, err
		}
		return types.NewBoolean(!matched), nil
	case ast.OpLessThan:
		return e.compare(left, leftPos, right, rightPos, func(c int) bool { return c < 0 })
	case ast.OpLessEquals:
		return e.compare(left, leftPos, right, rightPos, func(c int) bool { return c <= 0 })
	case ast.OpGreaterThan:
		return e.compare(left, leftPos, right, rightPos, func(c int) bool { return c > 0 })
	case ast.OpGreaterEquals:
		return e.compare(left, leftPos, right, rightPos, func(c int) bool { return c >= 0 })
	case ast.OpIn:
		return e.in(left, right)
	case ast.OpAnd:
		// Short-circuiting happens in the climb; reaching here means both
		// sides were evaluated
		return types.NewBoolean(left.IsTruthy() && right.IsTruthy()), nil
	case ast.OpOr:
		return types.NewBoolean(left.IsTruthy() || right.IsTruthy()), nil
	case ast.OpInEdge:
		return e.relationship(left, leftPos, right, rightPos, catalog.RelationBefore)
	case ast.OpInEdgeSub:
		return e.relationship(left, leftPos, right, rightPos, catalog.RelationNotify)
	case ast.OpOutEdge:
		return e.relationship(left, leftPos, right, rightPos, catalog.RelationRequire)
	case ast.OpOutEdgeSub:
		return e.relationship(left, leftPos, right, rightPos, catalog.RelationSubscribe)
	}
	return types.Undef, e.errorf(opPos, "unsupported binary operator '%s'", op)
}

// assign binds a variable in the current scope. Variables are write-once;
// assigning to a bound variable, a match variable, or a qualified name is
// an error.
func (e *Evaluator) assign(left types.Value, leftPos lexer.Position, right types.Value) (types.Value, error) {
	variable := left.AsVariable()
	if variable == nil {
		return types.Undef, e.errorf(leftPos, "cannot assign to %s: assignment can only be performed on variables", types.TypeOf(left))
	}
	if variable.Name[0] >= '0' && variable.Name[0] <= '9' {
		return types.Undef, e.errorf(leftPos, "cannot assign to $%s: the name is reserved as a match variable", variable.Name)
	}
	if strings.Contains(variable.Name, ":") {
		return types.Undef, e.errorf(leftPos, "cannot assign to $%s: assignment can only be performed on variables local to the current scope", variable.Name)
	}

	// Write-once is lexical: a binding visible from any enclosing scope
	// blocks the assignment
	if existing := e.ctx.CurrentScope().Get(variable.Name); existing != nil {
		if existing.Path != "" {
			return types.Undef, e.errorf(leftPos, "cannot assign to $%s: variable was previously assigned at %s:%d", variable.Name, existing.Path, existing.Line)
		}
		return types.Undef, e.errorf(leftPos, "cannot assign to $%s: a fact or node parameter exists with the same name", variable.Name)
	}

	// Share the value when the right side is itself a variable
	var value *types.Value
	if rv := right.AsVariable(); rv != nil && rv.Value != nil {
		value = rv.Value
	} else {
		owned := right.Mutate()
		value = &owned
	}

	previous := e.ctx.CurrentScope().Set(variable.Name, value, e.path, leftPos.Line)
	if previous != nil {
		if previous.Path != "" {
			return types.Undef, e.errorf(leftPos, "cannot assign to $%s: variable was previously assigned at %s:%d", variable.Name, previous.Path, previous.Line)
		}
		return types.Undef, e.errorf(leftPos, "cannot assign to $%s: a fact or node parameter exists with the same name", variable.Name)
	}
	variable.Value = value
	return left, nil
}

type numericOperands struct {
	isInt      bool
	leftInt    int64
	rightInt   int64
	leftFloat  float64
	rightFloat float64
}

// numericPair promotes mixed integer/float operands; a nil result means a
// non-numeric operand.
func numericPair(left, right types.Value) *numericOperands {
	a := left.Deref()
	b := right.Deref()
	aInt := a.Kind() == types.KindInteger
	bInt := b.Kind() == types.KindInteger
	aNum := aInt || a.Kind() == types.KindFloat
	bNum := bInt || b.Kind() == types.KindFloat
	if !aNum || !bNum {
		return nil
	}
	if aInt && bInt {
		return &numericOperands{isInt: true, leftInt: a.Int(), rightInt: b.Int()}
	}
	toF := func(v types.Value) float64 {
		if v.Deref().Kind() == types.KindInteger {
			return float64(v.Int())
		}
		return v.Float()
	}
	return &numericOperands{leftFloat: toF(a), rightFloat: toF(b)}
}

func (e *Evaluator) arith(left types.Value, leftPos lexer.Position, right types.Value, rightPos lexer.Position, what string, intOp func(int64, int64) int64, floatOp func(float64, float64) float64) (types.Value, error) {
	n := numericPair(left, right)
	if n == nil {
		pos, bad := leftPos, left
		if numericPair(left, left) != nil {
			pos, bad = rightPos, right
		}
		return types.Undef, e.errorf(pos, "expected %s for arithmetic %s but found %s", types.NumericType{}, what, types.TypeOf(bad))
	}
	if n.isInt {
		return types.NewInteger(intOp(n.leftInt, n.rightInt)), nil
	}
	return types.NewFloat(floatOp(n.leftFloat, n.rightFloat)), nil
}

// plus adds numbers, concatenates arrays, and merges hashes (right wins).
func (e *Evaluator) plus(left types.Value, leftPos lexer.Position, right types.Value, rightPos lexer.Position) (types.Value, error) {
	a := left.Deref()
	b := right.Deref()
	if a.Kind() == types.KindArray && b.Kind() == types.KindArray {
		combined := make([]types.Value, 0, len(a.Array())+len(b.Array()))
		combined = append(combined, a.Array()...)
		combined = append(combined, b.Array()...)
		return types.NewArray(combined), nil
	}
	if a.Kind() == types.KindHash && b.Kind() == types.KindHash {
		return types.NewHash(a.Hash().Merge(b.Hash())), nil
	}
	return e.arith(left, leftPos, right, rightPos, "addition",
		func(x, y int64) int64 { return x + y },
		func(x, y float64) float64 { return x + y })
}

func (e *Evaluator) divide(left types.Value, leftPos lexer.Position, right types.Value, rightPos lexer.Position) (types.Value, error) {
	n := numericPair(left, right)
	if n == nil {
		pos, bad := leftPos, left
		if numericPair(left, left) != nil {
			pos, bad = rightPos, right
		}
		return types.Undef, e.errorf(pos, "expected %s for arithmetic division but found %s", types.NumericType{}, types.TypeOf(bad))
	}
	if n.isInt {
		if n.rightInt == 0 {
			return types.Undef, e.errorf(rightPos, "cannot divide by zero")
		}
		if n.leftInt == math.MinInt64 && n.rightInt == -1 {
			return types.Undef, e.errorf(leftPos, "division of %d by %d results in an arithmetic overflow", n.leftInt, n.rightInt)
		}
		return types.NewInteger(n.leftInt / n.rightInt), nil
	}
	if n.rightFloat == 0 {
		return types.Undef, e.errorf(rightPos, "cannot divide by zero")
	}
	return types.NewFloat(n.leftFloat / n.rightFloat), nil
}

func (e *Evaluator) modulo(left types.Value, leftPos lexer.Position, right types.Value, rightPos lexer.Position) (types.Value, error) {
	a := left.Deref()
	b := right.Deref()
	if a.Kind() != types.KindInteger {
		return types.Undef, e.errorf(leftPos, "expected %s for modulo but found %s", types.NewIntegerType(), types.TypeOf(left))
	}
	if b.Kind() != types.KindInteger {
		return types.Undef, e.errorf(rightPos, "expected %s for modulo but found %s", types.NewIntegerType(), types.TypeOf(right))
	}
	if b.Int() == 0 {
		return types.Undef, e.errorf(rightPos, "cannot divide by zero")
	}
	return types.NewInteger(a.Int() % b.Int()), nil
}

// leftShift shifts integers (a negative count reverses direction, and a
// negative operand keeps its sign bit) and appends to arrays.
func (e *Evaluator) leftShift(left types.Value, leftPos lexer.Position, right types.Value, rightPos lexer.Position) (types.Value, error) {
	a := left.Mutate()
	if a.Deref().Kind() == types.KindArray {
		appended := append(a.Array(), right.Mutate())
		return types.NewArray(appended), nil
	}
	if a.Deref().Kind() != types.KindInteger {
		return types.Undef, e.errorf(leftPos, "expected %s for bitwise left shift but found %s", types.NewIntegerType(), types.TypeOf(left))
	}
	b := right.Deref()
	if b.Kind() != types.KindInteger {
		return types.Undef, e.errorf(rightPos, "expected %s for bitwise left shift but found %s", types.NewIntegerType(), types.TypeOf(right))
	}
	return types.NewInteger(shiftLeft(a.Int(), b.Int())), nil
}

func (e *Evaluator) rightShift(left types.Value, leftPos lexer.Position, right types.Value, rightPos lexer.Position) (types.Value, error) {
	a := left.Deref()
	if a.Kind() != types.KindInteger {
		return types.Undef, e.errorf(leftPos, "expected %s for bitwise right shift but found %s", types.NewIntegerType(), types.TypeOf(left))
	}
	b := right.Deref()
	if b.Kind() != types.KindInteger {
		return types.Undef, e.errorf(rightPos, "expected %s for bitwise right shift but found %s", types.NewIntegerType(), types.TypeOf(right))
	}
	return types.NewInteger(shiftLeft(a.Int(), -b.Int())), nil
}

func shiftLeft(value, count int64) int64 {
	negValue := value < 0
	if negValue {
		value = -value
	}
	var result int64
	if count < 0 {
		if -count >= 64 {
			result = 0
		} else {
			result = value >> uint(-count)
		}
	} else {
		if count >= 64 {
			result = 0
		} else {
			result = value << uint(count)
		}
	}
	if negValue {
		return -result
	}
	return result
}

// match applies =~: the left side must be a string; the right side is a
// regexp or a string pattern. Capture groups bind to $0..$n on success.
func (e *Evaluator) match(left types.Value, leftPos lexer.Position, right types.Value, rightPos lexer.Position) (bool, error) {
	a := left.Deref()
	if a.Kind() != types.KindString {
		return false, e.errorf(leftPos, "expected %s for match but found %s", types.NewStringType(), types.TypeOf(left))
	}
	b := right.Deref()
	var compiled types.Value
	switch b.Kind() {
	case types.KindRegexp:
		compiled = b
	case types.KindString:
		var err error
		compiled, err = types.CompileRegexp(b.Str())
		if err != nil {
			return false, e.errorf(rightPos, "%s", err)
		}
	default:
		return false, e.errorf(rightPos, "expected %s or %s for match but found %s", types.NewStringType(), types.RegexpType{}, types.TypeOf(right))
	}
	matches := compiled.Regexp().FindStringSubmatch(a.Str())
	if matches == nil {
		return false, nil
	}
	e.ctx.SetMatches(matches)
	return true, nil
}

// compare orders numbers, strings (case-insensitively), and types (by
// specialization).
func (e *Evaluator) compare(left types.Value, leftPos lexer.Position, right types.Value, rightPos lexer.Position, test func(int) bool) (types.Value, error) {
	a := left.Deref()
	b := right.Deref()

	if n := numericPair(left, right); n != nil {
		var cmp int
		if n.isInt {
			switch {
			case n.leftInt < n.rightInt:
				cmp = -1
			case n.leftInt > n.rightInt:
				cmp = 1
			}
		} else {
			switch {
			case n.leftFloat < n.rightFloat:
				cmp = -1
			case n.leftFloat > n.rightFloat:
				cmp = 1
			}
		}
		return types.NewBoolean(test(cmp)), nil
	}

	if a.Kind() == types.KindString && b.Kind() == types.KindString {
		cmp := strings.Compare(strings.ToLower(a.Str()), strings.ToLower(b.Str()))
		return types.NewBoolean(test(cmp)), nil
	}

	if a.Kind() == types.KindType && b.Kind() == types.KindType {
		at := a.Type()
		bt := b.Type()
		equal := at.String() == bt.String()
		leftNarrower := bt.IsSpecialization(at)
		rightNarrower := at.IsSpecialization(bt)
		var cmp int
		switch {
		case equal:
			cmp = 0
		case leftNarrower:
			cmp = -1
		case rightNarrower:
			cmp = 1
		default:
			return types.Undef, e.errorf(leftPos, "types %s and %s are not comparable", at, bt)
		}
		return types.NewBoolean(test(cmp)), nil
	}

	return types.Undef, e.errorf(leftPos, "expected %s, %s, or %s for comparison but found %s", types.NumericType{}, types.NewStringType(), types.TypeType{}, types.TypeOf(left))
}

// in tests membership: substring for strings, regex search for a regex
// left, element membership for arrays, key presence for hashes, and
// subtype for types.
func (e *Evaluator) in(left, right types.Value) (types.Value, error) {
	a := left.Deref()
	b := right.Deref()
	switch b.Kind() {
	case types.KindString:
		switch a.Kind() {
		case types.KindString:
			return types.NewBoolean(strings.Contains(strings.ToLower(b.Str()), strings.ToLower(a.Str()))), nil
		case types.KindRegexp:
			matches := a.Regexp().FindStringSubmatch(b.Str())
			if matches == nil {
				return types.NewBoolean(false), nil
			}
			e.ctx.SetMatches(matches)
			return types.NewBoolean(true), nil
		}
		return types.NewBoolean(false), nil
	case types.KindArray:
		for _, element := range b.Array() {
			switch a.Kind() {
			case types.KindType:
				if a.Type().IsInstance(element) {
					return types.NewBoolean(true), nil
				}
			case types.KindRegexp:
				if element.Deref().Kind() == types.KindString && a.Regexp().MatchString(element.Str()) {
					return types.NewBoolean(true), nil
				}
			default:
				if a.Equals(element) {
					return types.NewBoolean(true), nil
				}
			}
		}
		return types.NewBoolean(false), nil
	case types.KindHash:
		found := false
		b.Hash().Each(func(k, _ types.Value) bool {
			if a.Kind() == types.KindType {
				if a.Type().IsInstance(k) {
					found = true
					return false
				}
			} else if a.Equals(k) {
				found = true
				return false
			}
			return true
		})
		return types.NewBoolean(found), nil
	case types.KindType:
		if a.Kind() == types.KindType {
			return types.NewBoolean(b.Type().IsSpecialization(a.Type())), nil
		}
		return types.NewBoolean(b.Type().IsInstance(a)), nil
	}
	return types.NewBoolean(false), nil
}

// relationship applies the ->, ~>, <-, and <~ operators by appending to
// the appropriate relationship metaparameter of the source resources. The
// result is the right-hand reference list so chains associate.
func (e *Evaluator) relationship(left types.Value, leftPos lexer.Position, right types.Value, rightPos lexer.Position, relation catalog.Relationship) (types.Value, error) {
	cat := e.ctx.Catalog()
	if cat == nil {
		return types.Undef, e.errorf(leftPos, "relationship expressions are not supported")
	}

	targets, err := catalog.ResourceRefsFromValue(right)
	if err != nil {
		return types.Undef, e.errorf(rightPos, "cannot create relationship: %s", err)
	}
	targetRefs := make([]types.Value, 0, len(targets))
	for _, ref := range targets {
		if cat.Find(ref) == nil {
			return types.Undef, e.errorf(rightPos, "cannot create relationship: resource %s does not exist in the catalog", ref)
		}
		targetRefs = append(targetRefs, types.NewType(ref))
	}

	sources, err := catalog.ResourceRefsFromValue(left)
	if err != nil {
		return types.Undef, e.errorf(leftPos, "cannot create relationship: %s", err)
	}
	for _, ref := range sources {
		source := cat.Find(ref)
		if source == nil {
			return types.Undef, e.errorf(leftPos, "cannot create relationship: resource %s does not exist in the catalog", ref)
		}
		source.Attributes.Append(relation.String(), types.NewArray(targetRefs), true)
	}
	return types.NewArray(targetRefs), nil
}
