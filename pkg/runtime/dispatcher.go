package runtime

import (
	"sort"
	"strings"

	"github.com/lemonberrylabs/manifestc/pkg/ast"
	"github.com/lemonberrylabs/manifestc/pkg/lexer"
	"github.com/lemonberrylabs/manifestc/pkg/types"
)

// CallContext carries one builtin invocation: the evaluated arguments with
// their source positions and the optional lambda.
type CallContext struct {
	evaluator *Evaluator
	name      string
	pos       lexer.Position
	args      []types.Value
	argPos    []lexer.Position
	lambda    *ast.Lambda
}

// Evaluator returns the calling evaluator.
func (c *CallContext) Evaluator() *Evaluator { return c.evaluator }

// Name returns the called function's name.
func (c *CallContext) Name() string { return c.name }

// Arguments returns the evaluated arguments.
func (c *CallContext) Arguments() []types.Value { return c.args }

// Position returns the call position, or an argument's position when an
// index is given.
func (c *CallContext) Position(index ...int) lexer.Position {
	if len(index) > 0 && index[0] >= 0 && index[0] < len(c.argPos) {
		return c.argPos[index[0]]
	}
	return c.pos
}

// Errorf creates a positioned evaluation error for the call.
func (c *CallContext) Errorf(pos lexer.Position, format string, args ...any) error {
	return c.evaluator.errorf(pos, format, args...)
}

// LambdaGiven reports whether the call supplied a lambda.
func (c *CallContext) LambdaGiven() bool { return c.lambda != nil }

// LambdaParameterCount returns the lambda's parameter count.
func (c *CallContext) LambdaParameterCount() int {
	if c.lambda == nil {
		return 0
	}
	return len(c.lambda.Parameters)
}

// LambdaPosition returns the lambda's source position.
func (c *CallContext) LambdaPosition() lexer.Position {
	if c.lambda == nil {
		return c.pos
	}
	return c.lambda.Position
}

// Yield invokes the lambda with positional arguments in a fresh scope.
func (c *CallContext) Yield(args []types.Value) (types.Value, error) {
	if c.lambda == nil {
		return types.Undef, c.evaluator.errorf(c.pos, "expected a lambda to '%s' function but one was not given", c.name)
	}
	return c.evaluator.executeLambda(c.lambda, args)
}

// BuiltinFunc is one builtin implementation.
type BuiltinFunc func(c *CallContext) (types.Value, error)

var builtins = map[string]BuiltinFunc{}

// RegisterBuiltin installs a builtin; init functions in builtin files call
// this.
func RegisterBuiltin(name string, fn BuiltinFunc) {
	builtins[name] = fn
}

// BuiltinNames returns the registered builtin names, sorted.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// dispatch looks up and invokes a builtin by name.
func (e *Evaluator) dispatch(name string, pos lexer.Position, args []types.Value, argPos []lexer.Position, lambda *ast.Lambda) (types.Value, error) {
	fn, ok := builtins[strings.ToLower(name)]
	if !ok {
		return types.Undef, e.errorf(pos, "unknown function '%s'", name)
	}
	return fn(&CallContext{
		evaluator: e,
		name:      name,
		pos:       pos,
		args:      args,
		argPos:    argPos,
		lambda:    lambda,
	})
}

// executeLambda binds the lambda's parameters in a fresh local scope and
// evaluates the body.
func (e *Evaluator) executeLambda(lambda *ast.Lambda, args []types.Value) (types.Value, error) {
	e.ctx.PushScope(nil)
	defer e.ctx.PopScope()
	if err := e.bindParameters(lambda.Parameters, args, lambda.Position); err != nil {
		return types.Undef, err
	}
	return e.EvaluateBlock(lambda.Body)
}

// bindParameters assigns positional arguments to parameters in the current
// scope, evaluating defaults for missing arguments and validating declared
// types. A captures-rest parameter collects the remaining arguments.
func (e *Evaluator) bindParameters(parameters []ast.Parameter, args []types.Value, pos lexer.Position) error {
	scope := e.ctx.CurrentScope()
	hasOptional := false
	for i := range parameters {
		parameter := &parameters[i]
		var value types.Value

		if parameter.Captures {
			if i != len(parameters)-1 {
				return e.errorf(parameter.Position, "parameter $%s \"captures rest\" but is not the last parameter", parameter.Name)
			}
			var captured []types.Value
			if i < len(args) {
				for _, arg := range args[i:] {
					captured = append(captured, arg.Mutate())
				}
			} else if parameter.Default != nil {
				d, err := e.Evaluate(parameter.Default, false)
				if err != nil {
					return err
				}
				captured = append(captured, d)
			}
			value = types.NewArray(captured)
		} else {
			if hasOptional && parameter.Default == nil {
				return e.errorf(parameter.Position, "parameter $%s is required but appears after optional parameters", parameter.Name)
			}
			hasOptional = hasOptional || parameter.Default != nil

			if i < len(args) {
				value = args[i].Mutate()
			} else {
				if parameter.Default == nil {
					return e.errorf(parameter.Position, "parameter $%s is required but no value was given", parameter.Name)
				}
				var err error
				value, err = e.Evaluate(parameter.Default, false)
				if err != nil {
					return err
				}
			}
		}

		if err := e.validateParameterType(parameter, value); err != nil {
			return err
		}

		owned := value
		if previous := scope.Set(parameter.Name, &owned, e.path, parameter.Position.Line); previous != nil {
			return e.errorf(parameter.Position, "parameter $%s already exists in the parameter list", parameter.Name)
		}
	}
	if len(args) > len(parameters) && (len(parameters) == 0 || !parameters[len(parameters)-1].Captures) {
		return e.errorf(pos, "expected at most %d arguments but %d were given", len(parameters), len(args))
	}
	return nil
}

// validateParameterType checks a bound value against the parameter's
// declared type expression.
func (e *Evaluator) validateParameterType(parameter *ast.Parameter, value types.Value) error {
	if parameter.Type == nil {
		return nil
	}
	result, err := e.EvaluatePrimary(parameter.Type)
	if err != nil {
		return err
	}
	d := result.Deref()
	if d.Kind() != types.KindType {
		return e.errorf(parameter.Type.Pos(), "expected %s for parameter type but found %s", types.TypeType{}, types.TypeOf(result))
	}
	if !d.Type().IsInstance(value) {
		return e.errorf(parameter.Position, "parameter $%s has expected type %s but was given %s", parameter.Name, d.Type(), types.TypeOf(value))
	}
	return nil
}
