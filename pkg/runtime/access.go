package runtime

import (
	"github.com/lemonberrylabs/manifestc/pkg/ast"
	"github.com/lemonberrylabs/manifestc/pkg/lexer"
	"github.com/lemonberrylabs/manifestc/pkg/types"
)

// evaluateAccess applies "[args]" to a value: indexing for strings,
// arrays, and hashes; parameterization for types.
func (e *Evaluator) evaluateAccess(value types.Value, op *ast.AccessOp) (types.Value, error) {
	var args []types.Value
	var positions []lexer.Position
	for i := range op.Args {
		arg, err := e.Evaluate(&op.Args[i], false)
		if err != nil {
			return types.Undef, err
		}
		if unfolded := e.Unfold(&op.Args[i], arg); unfolded != nil {
			for _, element := range unfolded {
				args = append(args, element)
				positions = append(positions, op.Args[i].Pos())
			}
			continue
		}
		args = append(args, arg)
		positions = append(positions, op.Args[i].Pos())
	}

	d := value.Deref()
	switch d.Kind() {
	case types.KindArray:
		return e.accessArray(d.Array(), op, args, positions)
	case types.KindHash:
		return e.accessHash(d.Hash(), args)
	case types.KindString:
		return e.accessString(d.Str(), op, args, positions)
	case types.KindType:
		return e.accessType(d.Type(), op, args, positions)
	}
	return types.Undef, e.errorf(op.Position, "%s values cannot be accessed with []", types.TypeOf(value))
}

func (e *Evaluator) accessArray(elements []types.Value, op *ast.AccessOp, args []types.Value, positions []lexer.Position) (types.Value, error) {
	index, err := e.wantInteger(args[0], positions[0])
	if err != nil {
		return types.Undef, err
	}
	if index < 0 {
		index += int64(len(elements))
	}
	if len(args) == 1 {
		if index < 0 || index >= int64(len(elements)) {
			return types.Undef, nil
		}
		return elements[index], nil
	}
	count, err := e.wantInteger(args[1], positions[1])
	if err != nil {
		return types.Undef, err
	}
	if index < 0 {
		index = 0
	}
	if index > int64(len(elements)) {
		index = int64(len(elements))
	}
	end := index + count
	if count < 0 || end > int64(len(elements)) {
		end = int64(len(elements))
	}
	slice := make([]types.Value, end-index)
	copy(slice, elements[index:end])
	return types.NewArray(slice), nil
}

func (e *Evaluator) accessHash(h *types.Hash, args []types.Value) (types.Value, error) {
	if len(args) == 1 {
		if v, ok := h.Get(args[0].Deref()); ok {
			return v, nil
		}
		return types.Undef, nil
	}
	var values []types.Value
	for _, key := range args {
		if v, ok := h.Get(key.Deref()); ok {
			values = append(values, v)
		}
	}
	return types.NewArray(values), nil
}

func (e *Evaluator) accessString(s string, op *ast.AccessOp, args []types.Value, positions []lexer.Position) (types.Value, error) {
	index, err := e.wantInteger(args[0], positions[0])
	if err != nil {
		return types.Undef, err
	}
	if index < 0 {
		index += int64(len(s))
	}
	count := int64(1)
	if len(args) > 1 {
		count, err = e.wantInteger(args[1], positions[1])
		if err != nil {
			return types.Undef, err
		}
	}
	if index < 0 || index >= int64(len(s)) {
		return types.NewString(""), nil
	}
	end := index + count
	if count < 0 || end > int64(len(s)) {
		end = int64(len(s))
	}
	return types.NewString(s[index:end]), nil
}

// accessType parameterizes a type object, e.g. Integer[1, 10] or
// File['/etc/motd'].
func (e *Evaluator) accessType(t types.Type, op *ast.AccessOp, args []types.Value, positions []lexer.Position) (types.Value, error) {
	switch base := t.(type) {
	case types.IntegerType:
		from, err := e.rangeBound(args[0], positions[0], types.MinInteger)
		if err != nil {
			return types.Undef, err
		}
		to := int64(types.MaxInteger)
		if len(args) > 1 {
			to, err = e.rangeBound(args[1], positions[1], types.MaxInteger)
			if err != nil {
				return types.Undef, err
			}
		}
		return types.NewType(types.IntegerType{From: from, To: to}), nil

	case types.FloatType:
		from, err := e.floatBound(args[0], positions[0], base.From)
		if err != nil {
			return types.Undef, err
		}
		to := base.To
		if len(args) > 1 {
			to, err = e.floatBound(args[1], positions[1], base.To)
			if err != nil {
				return types.Undef, err
			}
		}
		return types.NewType(types.FloatType{From: from, To: to}), nil

	case types.StringType:
		min, err := e.rangeBound(args[0], positions[0], 0)
		if err != nil {
			return types.Undef, err
		}
		max := int64(types.MaxInteger)
		if len(args) > 1 {
			max, err = e.rangeBound(args[1], positions[1], types.MaxInteger)
			if err != nil {
				return types.Undef, err
			}
		}
		return types.NewType(types.StringType{MinLen: min, MaxLen: max}), nil

	case types.EnumType:
		var values []string
		for i, arg := range args {
			s, err := e.wantString(arg, positions[i])
			if err != nil {
				return types.Undef, err
			}
			values = append(values, s)
		}
		return types.NewType(types.EnumType{Values: values}), nil

	case types.PatternType:
		var patterns []string
		for i, arg := range args {
			d := arg.Deref()
			switch d.Kind() {
			case types.KindString:
				patterns = append(patterns, d.Str())
			case types.KindRegexp:
				patterns = append(patterns, d.Str())
			default:
				return types.Undef, e.errorf(positions[i], "expected %s or %s for Pattern parameter but found %s", types.NewStringType(), types.RegexpType{}, types.TypeOf(arg))
			}
		}
		pattern, err := types.NewPatternType(patterns)
		if err != nil {
			return types.Undef, e.errorf(op.Position, "%s", err)
		}
		return types.NewType(pattern), nil

	case types.RegexpType:
		d := args[0].Deref()
		if d.Kind() != types.KindString && d.Kind() != types.KindRegexp {
			return types.Undef, e.errorf(positions[0], "expected %s or %s for Regexp parameter but found %s", types.NewStringType(), types.RegexpType{}, types.TypeOf(args[0]))
		}
		return types.NewType(types.RegexpType{Pattern: d.Str()}), nil

	case types.ArrayType:
		elem, err := e.wantType(args[0], positions[0])
		if err != nil {
			return types.Undef, err
		}
		result := types.ArrayType{Element: elem, Min: 0, Max: types.MaxInteger}
		if len(args) > 1 {
			if result.Min, err = e.rangeBound(args[1], positions[1], 0); err != nil {
				return types.Undef, err
			}
		}
		if len(args) > 2 {
			if result.Max, err = e.rangeBound(args[2], positions[2], types.MaxInteger); err != nil {
				return types.Undef, err
			}
		}
		return types.NewType(result), nil

	case types.HashType:
		if len(args) < 2 {
			return types.Undef, e.errorf(op.Position, "expected 2 or more parameters for %s", "Hash")
		}
		key, err := e.wantType(args[0], positions[0])
		if err != nil {
			return types.Undef, err
		}
		value, err := e.wantType(args[1], positions[1])
		if err != nil {
			return types.Undef, err
		}
		result := types.HashType{Key: key, Value: value, Min: 0, Max: types.MaxInteger}
		if len(args) > 2 {
			if result.Min, err = e.rangeBound(args[2], positions[2], 0); err != nil {
				return types.Undef, err
			}
		}
		if len(args) > 3 {
			if result.Max, err = e.rangeBound(args[3], positions[3], types.MaxInteger); err != nil {
				return types.Undef, err
			}
		}
		return types.NewType(result), nil

	case types.TupleType:
		var elements []types.Type
		for i, arg := range args {
			elem, err := e.wantType(arg, positions[i])
			if err != nil {
				return types.Undef, err
			}
			elements = append(elements, elem)
		}
		return types.NewType(types.NewTupleType(elements)), nil

	case types.StructType:
		d := args[0].Deref()
		if d.Kind() != types.KindHash {
			return types.Undef, e.errorf(positions[0], "expected %s for Struct parameter but found %s", types.NewHashType(), types.TypeOf(args[0]))
		}
		var fields []types.StructField
		var fieldErr error
		d.Hash().Each(func(k, v types.Value) bool {
			if k.Deref().Kind() != types.KindString {
				fieldErr = e.errorf(positions[0], "expected %s for Struct member name but found %s", types.NewStringType(), types.TypeOf(k))
				return false
			}
			ft, err := e.wantType(v, positions[0])
			if err != nil {
				fieldErr = err
				return false
			}
			fields = append(fields, types.StructField{Key: k.Str(), Type: ft})
			return true
		})
		if fieldErr != nil {
			return types.Undef, fieldErr
		}
		return types.NewType(types.StructType{Fields: fields}), nil

	case types.VariantType:
		var branches []types.Type
		for i, arg := range args {
			branch, err := e.wantType(arg, positions[i])
			if err != nil {
				return types.Undef, err
			}
			branches = append(branches, branch)
		}
		return types.NewType(types.VariantType{Types: branches}), nil

	case types.OptionalType:
		elem, err := e.wantType(args[0], positions[0])
		if err != nil {
			return types.Undef, err
		}
		return types.NewType(types.OptionalType{Element: elem}), nil

	case types.TypeType:
		elem, err := e.wantType(args[0], positions[0])
		if err != nil {
			return types.Undef, err
		}
		return types.NewType(types.TypeType{Element: elem}), nil

	case types.CallableType:
		var params []types.Type
		for i, arg := range args {
			param, err := e.wantType(arg, positions[i])
			if err != nil {
				return types.Undef, err
			}
			params = append(params, param)
		}
		return types.NewType(types.CallableType{Parameters: params}), nil

	case types.RuntimeType:
		runtimeName, err := e.wantString(args[0], positions[0])
		if err != nil {
			return types.Undef, err
		}
		typeName := ""
		if len(args) > 1 {
			typeName, err = e.wantString(args[1], positions[1])
			if err != nil {
				return types.Undef, err
			}
		}
		return types.NewType(types.RuntimeType{Runtime: runtimeName, TypeName: typeName}), nil

	case types.ClassType:
		var refs []types.Value
		for i, arg := range args {
			name, err := e.wantString(arg, positions[i])
			if err != nil {
				return types.Undef, err
			}
			refs = append(refs, types.NewType(types.ClassType{Title: name}))
		}
		if len(refs) == 1 {
			return refs[0], nil
		}
		return types.NewArray(refs), nil

	case types.ResourceType:
		if base.TypeName == "" {
			// Resource[Type] or Resource[Type, title...]
			name, err := e.wantResourceTypeName(args[0], positions[0])
			if err != nil {
				return types.Undef, err
			}
			if len(args) == 1 {
				return types.NewType(types.NewResourceType(name, "")), nil
			}
			return e.resourceRefs(name, args[1:], positions[1:])
		}
		if base.Title != "" {
			return types.Undef, e.errorf(op.Position, "%s cannot be parameterized further", base)
		}
		return e.resourceRefs(base.TypeName, args, positions)
	}
	return types.Undef, e.errorf(op.Position, "type %s cannot be parameterized", t.Name())
}

func (e *Evaluator) resourceRefs(typeName string, args []types.Value, positions []lexer.Position) (types.Value, error) {
	var refs []types.Value
	for i, arg := range args {
		title, err := e.wantString(arg, positions[i])
		if err != nil {
			return types.Undef, err
		}
		refs = append(refs, types.NewType(types.NewResourceType(typeName, title)))
	}
	if len(refs) == 1 {
		return refs[0], nil
	}
	return types.NewArray(refs), nil
}

func (e *Evaluator) wantInteger(v types.Value, pos lexer.Position) (int64, error) {
	d := v.Deref()
	if d.Kind() != types.KindInteger {
		return 0, e.errorf(pos, "expected %s but found %s", types.NewIntegerType(), types.TypeOf(v))
	}
	return d.Int(), nil
}

func (e *Evaluator) wantString(v types.Value, pos lexer.Position) (string, error) {
	d := v.Deref()
	if d.Kind() != types.KindString {
		return "", e.errorf(pos, "expected %s but found %s", types.NewStringType(), types.TypeOf(v))
	}
	return d.Str(), nil
}

func (e *Evaluator) wantType(v types.Value, pos lexer.Position) (types.Type, error) {
	d := v.Deref()
	if d.Kind() != types.KindType {
		return nil, e.errorf(pos, "expected %s but found %s", types.TypeType{}, types.TypeOf(v))
	}
	return d.Type(), nil
}

// wantResourceTypeName accepts a string or an unqualified resource type.
func (e *Evaluator) wantResourceTypeName(v types.Value, pos lexer.Position) (string, error) {
	d := v.Deref()
	switch d.Kind() {
	case types.KindString:
		return d.Str(), nil
	case types.KindType:
		if rt, ok := d.Type().(types.ResourceType); ok && rt.TypeName != "" {
			return rt.TypeName, nil
		}
	}
	return "", e.errorf(pos, "expected %s or %s for resource type but found %s", types.NewStringType(), types.ResourceType{}, types.TypeOf(v))
}

// rangeBound converts an access argument to an integer bound; the default
// keyword selects the given fallback.
func (e *Evaluator) rangeBound(v types.Value, pos lexer.Position, fallback int64) (int64, error) {
	d := v.Deref()
	if d.Kind() == types.KindDefault {
		return fallback, nil
	}
	return e.wantInteger(v, pos)
}

func (e *Evaluator) floatBound(v types.Value, pos lexer.Position, fallback float64) (float64, error) {
	d := v.Deref()
	switch d.Kind() {
	case types.KindDefault:
		return fallback, nil
	case types.KindInteger:
		return float64(d.Int()), nil
	case types.KindFloat:
		return d.Float(), nil
	}
	return 0, e.errorf(pos, "expected %s but found %s", types.NewFloatType(), types.TypeOf(v))
}
