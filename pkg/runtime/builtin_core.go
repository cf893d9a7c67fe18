package runtime

import (
	"strings"

	"github.com/lemonberrylabs/manifestc/pkg/catalog"
	"github.com/lemonberrylabs/manifestc/pkg/types"
)

func init() {
	RegisterBuiltin("fail", builtinFail)
	RegisterBuiltin("assert_type", builtinAssertType)
	RegisterBuiltin("with", builtinWith)
	RegisterBuiltin("include", builtinInclude)
	RegisterBuiltin("require", builtinInclude)
	RegisterBuiltin("contain", builtinInclude)
	RegisterBuiltin("split", builtinSplit)
	RegisterBuiltin("shellquote", builtinShellquote)
	RegisterBuiltin("defined", builtinDefined)
	RegisterBuiltin("realize", builtinRealize)
	RegisterBuiltin("tag", builtinTag)
}

// builtinFail aborts evaluation with its arguments as the diagnostic.
func builtinFail(c *CallContext) (types.Value, error) {
	parts := make([]string, len(c.Arguments()))
	for i, arg := range c.Arguments() {
		parts[i] = arg.String()
	}
	return types.Undef, c.Errorf(c.Position(), "%s", strings.Join(parts, " "))
}

// builtinAssertType returns the value when it matches the type; otherwise
// the lambda is called with the actual type, or an error is raised.
func builtinAssertType(c *CallContext) (types.Value, error) {
	args := c.Arguments()
	if len(args) != 2 {
		return types.Undef, c.Errorf(c.Position(), "expected 2 arguments to '%s' function but %d were given", c.Name(), len(args))
	}
	d := args[0].Deref()
	if d.Kind() != types.KindType {
		return types.Undef, c.Errorf(c.Position(0), "expected %s for first argument but found %s", types.TypeType{}, types.TypeOf(args[0]))
	}
	expected := d.Type()
	if expected.IsInstance(args[1]) {
		return args[1], nil
	}
	if !c.LambdaGiven() {
		return types.Undef, c.Errorf(c.Position(1), "type assertion failure: expected %s but found %s", expected, types.TypeOf(args[1]))
	}
	return c.Yield([]types.Value{types.NewType(types.TypeOf(args[1]))})
}

// builtinWith invokes the lambda with the call's arguments.
func builtinWith(c *CallContext) (types.Value, error) {
	if !c.LambdaGiven() {
		return types.Undef, c.Errorf(c.Position(), "expected a lambda to '%s' function but one was not given", c.Name())
	}
	return c.Yield(c.Arguments())
}

// builtinInclude declares each named class; declaring an already-declared
// class is a no-op.
func builtinInclude(c *CallContext) (types.Value, error) {
	e := c.Evaluator()
	if len(c.Arguments()) == 0 {
		return types.Undef, c.Errorf(c.Position(), "expected at least one argument to '%s' function", c.Name())
	}
	if e.Context().Catalog() == nil {
		return types.Undef, c.Errorf(c.Position(), "cannot call '%s' function: catalog functions are not supported", c.Name())
	}
	for i, arg := range c.Arguments() {
		if err := includeValue(c, i, arg); err != nil {
			return types.Undef, err
		}
	}
	return types.Undef, nil
}

func includeValue(c *CallContext, index int, v types.Value) error {
	e := c.Evaluator()
	d := v.Deref()
	switch d.Kind() {
	case types.KindString:
		return includeClass(c, index, d.Str())
	case types.KindArray:
		for _, element := range d.Array() {
			if err := includeValue(c, index, element); err != nil {
				return err
			}
		}
		return nil
	case types.KindType:
		switch t := d.Type().(type) {
		case types.ClassType:
			return includeClass(c, index, t.Title)
		case types.ResourceType:
			if t.IsClass() {
				return includeClass(c, index, t.Title)
			}
		}
	}
	return e.errorf(c.Position(index), "expected %s, %s, or %s for argument but found %s",
		types.NewStringType(), types.ClassType{}, types.NewArrayType(), types.TypeOf(v))
}

func includeClass(c *CallContext, index int, name string) error {
	e := c.Evaluator()
	ref := types.NewResourceType("class", name)
	if !ref.FullyQualified() {
		return e.errorf(c.Position(index), "cannot include a class with an unspecified title")
	}
	if e.Context().Catalog().Find(ref) != nil {
		return nil
	}
	_, err := e.declareClass(ref, c.Position(index), nil)
	return err
}

// builtinSplit splits a string by a string, regex value, or Regexp type.
// An empty pattern splits character-wise.
func builtinSplit(c *CallContext) (types.Value, error) {
	args := c.Arguments()
	if len(args) != 2 {
		return types.Undef, c.Errorf(c.Position(), "expected 2 arguments to '%s' function but %d were given", c.Name(), len(args))
	}
	subject := args[0].Deref()
	if subject.Kind() != types.KindString {
		return types.Undef, c.Errorf(c.Position(0), "expected %s for first argument but found %s", types.NewStringType(), types.TypeOf(args[0]))
	}

	pattern := args[1].Deref()
	switch pattern.Kind() {
	case types.KindString:
		if pattern.Str() == "" {
			return splitChars(subject.Str()), nil
		}
		var parts []types.Value
		for _, part := range strings.Split(subject.Str(), pattern.Str()) {
			if part == "" {
				continue
			}
			parts = append(parts, types.NewString(part))
		}
		return types.NewArray(parts), nil
	case types.KindRegexp:
		if pattern.Str() == "" {
			return splitChars(subject.Str()), nil
		}
		var parts []types.Value
		for _, part := range pattern.Regexp().Split(subject.Str(), -1) {
			parts = append(parts, types.NewString(part))
		}
		return types.NewArray(parts), nil
	case types.KindType:
		rt, ok := pattern.Type().(types.RegexpType)
		if !ok {
			return types.Undef, c.Errorf(c.Position(1), "expected %s or %s for second argument but found %s", types.NewStringType(), types.RegexpType{}, pattern.Type())
		}
		if rt.Pattern == "" {
			return splitChars(subject.Str()), nil
		}
		compiled, err := types.CompileRegexp(rt.Pattern)
		if err != nil {
			return types.Undef, c.Errorf(c.Position(1), "%s", err)
		}
		var parts []types.Value
		for _, part := range compiled.Regexp().Split(subject.Str(), -1) {
			parts = append(parts, types.NewString(part))
		}
		return types.NewArray(parts), nil
	}
	return types.Undef, c.Errorf(c.Position(1), "expected %s or %s for second argument but found %s", types.NewStringType(), types.RegexpType{}, types.TypeOf(args[1]))
}

func splitChars(s string) types.Value {
	parts := make([]types.Value, 0, len(s))
	for _, ch := range s {
		parts = append(parts, types.NewString(string(ch)))
	}
	return types.NewArray(parts)
}

const shellSafe = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789@%_+=:,./-"
const shellDangerous = "!\"`$\\"

// builtinShellquote quotes each argument for a Bourne shell and joins them
// with spaces. Array arguments are flattened into the word list.
func builtinShellquote(c *CallContext) (types.Value, error) {
	var words []string
	var collect func(index int, v types.Value) error
	collect = func(index int, v types.Value) error {
		d := v.Deref()
		switch d.Kind() {
		case types.KindArray:
			for _, element := range d.Array() {
				if err := collect(index, element); err != nil {
					return err
				}
			}
			return nil
		case types.KindString:
			words = append(words, shellQuoteWord(d.Str()))
			return nil
		}
		return c.Errorf(c.Position(index), "expected %s for argument but found %s", types.NewStringType(), types.TypeOf(v))
	}
	for i, arg := range c.Arguments() {
		if err := collect(i, arg); err != nil {
			return types.Undef, err
		}
	}
	return types.NewString(strings.Join(words, " ")), nil
}

func shellQuoteWord(word string) string {
	if word != "" && strings.Trim(word, shellSafe) == "" {
		return word
	}
	if !strings.ContainsAny(word, shellDangerous) {
		return "\"" + word + "\""
	}
	if !strings.Contains(word, "'") {
		return "'" + word + "'"
	}
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(word); i++ {
		if strings.IndexByte(shellDangerous, word[i]) >= 0 {
			sb.WriteByte('\\')
		}
		sb.WriteByte(word[i])
	}
	sb.WriteByte('"')
	return sb.String()
}

// builtinDefined reports whether a class, defined type, resource, or
// variable is known.
func builtinDefined(c *CallContext) (types.Value, error) {
	e := c.Evaluator()
	if len(c.Arguments()) == 0 {
		return types.Undef, c.Errorf(c.Position(), "expected at least one argument to '%s' function", c.Name())
	}
	cat := e.Context().Catalog()
	for i, arg := range c.Arguments() {
		d := arg.Deref()
		found := false
		switch d.Kind() {
		case types.KindString:
			name := d.Str()
			if strings.HasPrefix(name, "$") {
				variable, _ := e.Context().Lookup(strings.TrimPrefix(name, "$"))
				found = variable != nil
			} else if cat != nil {
				found = len(cat.FindClass(name)) > 0 || cat.FindDefinedType(name) != nil
			}
		case types.KindType:
			switch t := d.Type().(type) {
			case types.ClassType:
				found = cat != nil && len(cat.FindClass(t.Title)) > 0
			case types.ResourceType:
				if t.FullyQualified() {
					found = cat != nil && cat.Find(t) != nil
				} else if cat != nil {
					found = cat.FindDefinedType(t.TypeName) != nil
				}
			}
		default:
			return types.Undef, c.Errorf(c.Position(i), "expected %s or %s for argument but found %s", types.NewStringType(), types.TypeType{}, types.TypeOf(arg))
		}
		if !found {
			return types.NewBoolean(false), nil
		}
	}
	return types.NewBoolean(true), nil
}

// builtinRealize marks virtual resources as real by reference.
func builtinRealize(c *CallContext) (types.Value, error) {
	e := c.Evaluator()
	cat := e.Context().Catalog()
	if cat == nil {
		return types.Undef, c.Errorf(c.Position(), "cannot call '%s' function: catalog functions are not supported", c.Name())
	}
	if len(c.Arguments()) == 0 {
		return types.Undef, c.Errorf(c.Position(), "expected at least one argument to '%s' function", c.Name())
	}
	var refs []types.Value
	for i, arg := range c.Arguments() {
		targets, err := refsFromArgument(c, i, arg)
		if err != nil {
			return types.Undef, err
		}
		refs = append(refs, targets...)
	}
	return types.NewArray(refs), nil
}

func refsFromArgument(c *CallContext, index int, v types.Value) ([]types.Value, error) {
	e := c.Evaluator()
	cat := e.Context().Catalog()
	d := v.Deref()
	if d.Kind() == types.KindArray {
		var out []types.Value
		for _, element := range d.Array() {
			sub, err := refsFromArgument(c, index, element)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil
	}
	if d.Kind() == types.KindType {
		if rt, ok := d.Type().(types.ResourceType); ok && rt.FullyQualified() {
			resource := cat.Find(rt)
			if resource == nil {
				return nil, c.Errorf(c.Position(index), "cannot realize resource %s: the resource does not exist in the catalog", rt)
			}
			switch resource.Status {
			case catalog.StatusVirtual:
				resource.Status = catalog.StatusRealizedFromVirtual
			case catalog.StatusExported:
				resource.Status = catalog.StatusRealizedFromExported
			}
			return []types.Value{types.NewType(rt)}, nil
		}
	}
	return nil, c.Errorf(c.Position(index), "expected qualified %s for argument but found %s", types.ResourceType{}, types.TypeOf(v))
}

// builtinTag adds tags to the resource whose body is being evaluated.
func builtinTag(c *CallContext) (types.Value, error) {
	e := c.Evaluator()
	resource := e.Context().CurrentScope().Resource()
	for scope := e.Context().CurrentScope(); resource == nil && scope != nil; scope = scope.Parent() {
		resource = scope.Resource()
	}
	if resource == nil {
		return types.Undef, c.Errorf(c.Position(), "cannot call '%s' function: no resource is being evaluated", c.Name())
	}
	for i, arg := range c.Arguments() {
		d := arg.Deref()
		if d.Kind() != types.KindString {
			return types.Undef, c.Errorf(c.Position(i), "expected %s for argument but found %s", types.NewStringType(), types.TypeOf(arg))
		}
		resource.AddTag(d.Str())
	}
	return types.Undef, nil
}
