package runtime

import (
	"github.com/lemonberrylabs/manifestc/pkg/types"
)

func init() {
	RegisterBuiltin("each", builtinEach)
	RegisterBuiltin("filter", builtinFilter)
	RegisterBuiltin("map", builtinMap)
	RegisterBuiltin("reduce", builtinReduce)
}

// checkIteration validates the common shape of iteration builtins: one
// enumerable argument and a lambda with one or two parameters.
func checkIteration(c *CallContext) error {
	args := c.Arguments()
	if len(args) != 1 {
		pos := c.Position()
		if len(args) > 1 {
			pos = c.Position(1)
		}
		return c.Errorf(pos, "expected 1 argument to '%s' function but %d were given", c.Name(), len(args))
	}
	if !c.LambdaGiven() {
		return c.Errorf(c.Position(), "expected a lambda to '%s' function but one was not given", c.Name())
	}
	count := c.LambdaParameterCount()
	if count == 0 || count > 2 {
		return c.Errorf(c.LambdaPosition(), "expected 1 or 2 lambda parameters but %d were given", count)
	}
	return nil
}

// enumerate yields each (index/key, value) pair of an enumerable value:
// strings yield characters, integers count from zero, integer-range types
// enumerate their range, arrays yield elements, hashes yield entries.
func enumerate(c *CallContext, v types.Value, fn func(args []types.Value) error) error {
	single := c.LambdaParameterCount() == 1
	d := v.Deref()
	switch d.Kind() {
	case types.KindString:
		for i, ch := range []byte(d.Str()) {
			args := []types.Value{types.NewInteger(int64(i)), types.NewString(string(ch))}
			if single {
				args = args[1:]
			}
			if err := fn(args); err != nil {
				return err
			}
		}
		return nil
	case types.KindInteger:
		if d.Int() <= 0 {
			return nil
		}
		return enumerateRange(types.IntegerType{From: 0, To: d.Int() - 1}, single, fn)
	case types.KindArray:
		for i, element := range d.Array() {
			args := []types.Value{types.NewInteger(int64(i)), element}
			if single {
				args = args[1:]
			}
			if err := fn(args); err != nil {
				return err
			}
		}
		return nil
	case types.KindHash:
		var failure error
		d.Hash().Each(func(key, value types.Value) bool {
			var args []types.Value
			if single {
				args = []types.Value{types.NewArray([]types.Value{key, value})}
			} else {
				args = []types.Value{key, value}
			}
			if err := fn(args); err != nil {
				failure = err
				return false
			}
			return true
		})
		return failure
	case types.KindType:
		if rangeType, ok := d.Type().(types.IntegerType); ok {
			if !rangeType.Enumerable() {
				return c.Errorf(c.Position(0), "%s is not enumerable", rangeType)
			}
			return enumerateRange(rangeType, single, fn)
		}
	}
	return c.Errorf(c.Position(0), "expected enumerable type for first argument but found %s", types.TypeOf(v))
}

func enumerateRange(rangeType types.IntegerType, single bool, fn func(args []types.Value) error) error {
	var failure error
	rangeType.Each(func(index, value int64) bool {
		args := []types.Value{types.NewInteger(index), types.NewInteger(value)}
		if single {
			args = args[1:]
		}
		if err := fn(args); err != nil {
			failure = err
			return false
		}
		return true
	})
	return failure
}

// builtinEach invokes the lambda for each element and returns the
// original collection.
func builtinEach(c *CallContext) (types.Value, error) {
	if err := checkIteration(c); err != nil {
		return types.Undef, err
	}
	argument := c.Arguments()[0]
	err := enumerate(c, argument, func(args []types.Value) error {
		_, err := c.Yield(args)
		return err
	})
	if err != nil {
		return types.Undef, err
	}
	return argument, nil
}

// builtinFilter returns the elements for which the lambda is truthy.
func builtinFilter(c *CallContext) (types.Value, error) {
	if err := checkIteration(c); err != nil {
		return types.Undef, err
	}
	argument := c.Arguments()[0].Mutate()

	if argument.Deref().Kind() == types.KindHash {
		result := types.NewHashValue()
		err := enumerate(c, argument, func(args []types.Value) error {
			keep, err := c.Yield(args)
			if err != nil {
				return err
			}
			if keep.IsTruthy() {
				key, value := hashEntry(args)
				result.Set(key, value)
			}
			return nil
		})
		if err != nil {
			return types.Undef, err
		}
		return types.NewHash(result), nil
	}

	var result []types.Value
	err := enumerate(c, argument, func(args []types.Value) error {
		keep, err := c.Yield(args)
		if err != nil {
			return err
		}
		if keep.IsTruthy() {
			result = append(result, args[len(args)-1])
		}
		return nil
	})
	if err != nil {
		return types.Undef, err
	}
	return types.NewArray(result), nil
}

// hashEntry recovers the key and value from lambda arguments, which are
// either (key, value) or a single [key, value] pair.
func hashEntry(args []types.Value) (types.Value, types.Value) {
	if len(args) == 2 {
		return args[0], args[1]
	}
	pair := args[0].Array()
	return pair[0], pair[1]
}

// builtinMap returns the lambda's results for each element.
func builtinMap(c *CallContext) (types.Value, error) {
	if err := checkIteration(c); err != nil {
		return types.Undef, err
	}
	var result []types.Value
	err := enumerate(c, c.Arguments()[0], func(args []types.Value) error {
		mapped, err := c.Yield(args)
		if err != nil {
			return err
		}
		result = append(result, mapped)
		return nil
	})
	if err != nil {
		return types.Undef, err
	}
	return types.NewArray(result), nil
}

// builtinReduce folds the collection with a two-parameter lambda; an
// optional second argument seeds the accumulator.
func builtinReduce(c *CallContext) (types.Value, error) {
	args := c.Arguments()
	if len(args) == 0 || len(args) > 2 {
		return types.Undef, c.Errorf(c.Position(), "expected 1 or 2 arguments to '%s' function but %d were given", c.Name(), len(args))
	}
	if !c.LambdaGiven() {
		return types.Undef, c.Errorf(c.Position(), "expected a lambda to '%s' function but one was not given", c.Name())
	}
	if c.LambdaParameterCount() != 2 {
		return types.Undef, c.Errorf(c.LambdaPosition(), "expected 2 lambda parameters but %d were given", c.LambdaParameterCount())
	}

	var memo types.Value
	seeded := len(args) == 2
	if seeded {
		memo = args[1]
	}

	d := args[0].Deref()
	var elements []types.Value
	switch d.Kind() {
	case types.KindArray:
		elements = d.Array()
	case types.KindHash:
		d.Hash().Each(func(key, value types.Value) bool {
			elements = append(elements, types.NewArray([]types.Value{key, value}))
			return true
		})
	default:
		return types.Undef, c.Errorf(c.Position(0), "expected %s or %s for first argument but found %s", types.NewArrayType(), types.NewHashType(), types.TypeOf(args[0]))
	}

	for i, element := range elements {
		if i == 0 && !seeded {
			memo = element
			continue
		}
		var err error
		memo, err = c.Yield([]types.Value{memo, element})
		if err != nil {
			return types.Undef, err
		}
	}
	if memo.Kind() == types.KindUndef && len(elements) == 0 && !seeded {
		return types.Undef, nil
	}
	return memo, nil
}
