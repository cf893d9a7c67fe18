// Package types implements the manifest language's runtime values and type
// lattice. Values are a tagged union; they are shared-immutable once
// constructed, and operations that need an owned copy go through Mutate.
package types

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Kind identifies the variant of a Value.
type Kind int

const (
	KindUndef Kind = iota
	KindDefault
	KindInteger
	KindFloat
	KindBoolean
	KindString
	KindRegexp
	KindArray
	KindHash
	KindType
	KindVariable
)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case KindUndef:
		return "undef"
	case KindDefault:
		return "default"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBoolean:
		return "boolean"
	case KindString:
		return "string"
	case KindRegexp:
		return "regexp"
	case KindArray:
		return "array"
	case KindHash:
		return "hash"
	case KindType:
		return "type"
	case KindVariable:
		return "variable"
	}
	return "unknown"
}

// Variable is an indirect handle from a variable name to its shared,
// immutable value.
type Variable struct {
	Name  string
	Value *Value
}

// Value is a manifest runtime value. Resource references are Type values
// holding a fully-qualified ResourceType.
type Value struct {
	kind     Kind
	boolVal  bool
	intVal   int64
	floatVal float64
	strVal   string // string value, or regexp pattern
	regexVal *regexp.Regexp
	arrayVal []Value
	hashVal  *Hash
	typeVal  Type
	varVal   *Variable
}

// Undef is the undef value.
var Undef = Value{kind: KindUndef}

// Default is the default value.
var Default = Value{kind: KindDefault}

// NewInteger creates an integer value.
func NewInteger(v int64) Value { return Value{kind: KindInteger, intVal: v} }

// NewFloat creates a float value.
func NewFloat(v float64) Value { return Value{kind: KindFloat, floatVal: v} }

// NewBoolean creates a boolean value.
func NewBoolean(v bool) Value { return Value{kind: KindBoolean, boolVal: v} }

// NewString creates a string value.
func NewString(v string) Value { return Value{kind: KindString, strVal: v} }

// NewRegexp creates a regexp value from an already-compiled pattern.
func NewRegexp(pattern string, re *regexp.Regexp) Value {
	return Value{kind: KindRegexp, strVal: pattern, regexVal: re}
}

// CompileRegexp compiles a pattern into a regexp value.
func CompileRegexp(pattern string) (Value, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Undef, fmt.Errorf("invalid regular expression: %w", err)
	}
	return NewRegexp(pattern, re), nil
}

// NewArray creates an array value.
func NewArray(elements []Value) Value { return Value{kind: KindArray, arrayVal: elements} }

// NewHash creates a hash value.
func NewHash(h *Hash) Value {
	if h == nil {
		h = NewHashValue()
	}
	return Value{kind: KindHash, hashVal: h}
}

// NewType creates a type value.
func NewType(t Type) Value { return Value{kind: KindType, typeVal: t} }

// NewVariable creates a variable indirection value.
func NewVariable(name string, value *Value) Value {
	return Value{kind: KindVariable, varVal: &Variable{Name: name, Value: value}}
}

// Kind returns the value's kind without dereferencing variables.
func (v Value) Kind() Kind { return v.kind }

// Deref follows variable indirections to the underlying value.
func (v Value) Deref() Value {
	for v.kind == KindVariable {
		if v.varVal.Value == nil {
			return Undef
		}
		v = *v.varVal.Value
	}
	return v
}

// AsVariable returns the variable handle, or nil.
func (v Value) AsVariable() *Variable {
	if v.kind != KindVariable {
		return nil
	}
	return v.varVal
}

// IsUndef reports whether the dereferenced value is undef.
func (v Value) IsUndef() bool { return v.Deref().kind == KindUndef }

// IsDefault reports whether the dereferenced value is the default literal.
func (v Value) IsDefault() bool { return v.Deref().kind == KindDefault }

// Bool returns the boolean payload.
func (v Value) Bool() bool { return v.Deref().boolVal }

// Int returns the integer payload.
func (v Value) Int() int64 { return v.Deref().intVal }

// Float returns the float payload.
func (v Value) Float() float64 { return v.Deref().floatVal }

// Str returns the string payload (or regexp pattern).
func (v Value) Str() string { return v.Deref().strVal }

// Regexp returns the compiled regexp payload, or nil.
func (v Value) Regexp() *regexp.Regexp { return v.Deref().regexVal }

// Array returns the array payload; callers must not mutate it.
func (v Value) Array() []Value { return v.Deref().arrayVal }

// Hash returns the hash payload; callers must not mutate it.
func (v Value) Hash() *Hash { return v.Deref().hashVal }

// Type returns the type payload, or nil.
func (v Value) Type() Type { return v.Deref().typeVal }

// IsTruthy implements the language's truthiness: undef and false are
// false, everything else (including 0, "", [] and {}) is true.
func (v Value) IsTruthy() bool {
	d := v.Deref()
	switch d.kind {
	case KindUndef:
		return false
	case KindBoolean:
		return d.boolVal
	}
	return true
}

// Mutate returns an owned copy of the value suitable for in-place changes.
// Values reached through a variable are deep-cloned so the variable's view
// never changes; other values are returned as-is (the caller owns them).
func (v Value) Mutate() Value {
	if v.kind == KindVariable {
		return v.Deref().Clone()
	}
	return v
}

// Clone creates a deep copy of the value.
func (v Value) Clone() Value {
	d := v.Deref()
	switch d.kind {
	case KindArray:
		elements := make([]Value, len(d.arrayVal))
		for i, e := range d.arrayVal {
			elements[i] = e.Clone()
		}
		return NewArray(elements)
	case KindHash:
		return NewHash(d.hashVal.Clone())
	}
	return d
}

// Equals tests deep equality. String comparison is ASCII
// case-insensitive; integers and floats compare numerically.
func (v Value) Equals(other Value) bool {
	a := v.Deref()
	b := other.Deref()

	if (a.kind == KindInteger || a.kind == KindFloat) && (b.kind == KindInteger || b.kind == KindFloat) {
		return a.numeric() == b.numeric()
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindUndef, KindDefault:
		return true
	case KindBoolean:
		return a.boolVal == b.boolVal
	case KindString:
		return strings.EqualFold(a.strVal, b.strVal)
	case KindRegexp:
		return a.strVal == b.strVal
	case KindArray:
		if len(a.arrayVal) != len(b.arrayVal) {
			return false
		}
		for i := range a.arrayVal {
			if !a.arrayVal[i].Equals(b.arrayVal[i]) {
				return false
			}
		}
		return true
	case KindHash:
		return a.hashVal.Equals(b.hashVal)
	case KindType:
		return a.typeVal.String() == b.typeVal.String()
	}
	return false
}

func (v Value) numeric() float64 {
	if v.kind == KindInteger {
		return float64(v.intVal)
	}
	return v.floatVal
}

// String renders the value the way interpolation does. Unset variables
// render as the empty string.
func (v Value) String() string {
	d := v.Deref()
	switch d.kind {
	case KindUndef:
		return ""
	case KindDefault:
		return "default"
	case KindBoolean:
		if d.boolVal {
			return "true"
		}
		return "false"
	case KindInteger:
		return fmt.Sprintf("%d", d.intVal)
	case KindFloat:
		if d.floatVal == math.Trunc(d.floatVal) && !math.IsInf(d.floatVal, 0) {
			return fmt.Sprintf("%.1f", d.floatVal)
		}
		return fmt.Sprintf("%g", d.floatVal)
	case KindString:
		return d.strVal
	case KindRegexp:
		return "/" + d.strVal + "/"
	case KindArray:
		parts := make([]string, len(d.arrayVal))
		for i, e := range d.arrayVal {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindHash:
		return d.hashVal.String()
	case KindType:
		return d.typeVal.String()
	}
	return ""
}

// Key returns a canonical key string used to identify the value as a hash
// key. Distinct kinds never collide.
func (v Value) Key() string {
	d := v.Deref()
	switch d.kind {
	case KindString:
		return "s:" + strings.ToLower(d.strVal)
	case KindInteger:
		return fmt.Sprintf("i:%d", d.intVal)
	case KindFloat:
		return fmt.Sprintf("f:%g", d.floatVal)
	case KindBoolean:
		return fmt.Sprintf("b:%t", d.boolVal)
	case KindUndef:
		return "u:"
	case KindDefault:
		return "d:"
	default:
		return "x:" + d.String()
	}
}

// ToGo converts the value to plain Go data for serialization at the
// boundary (JSON/YAML catalog output).
func (v Value) ToGo() any {
	d := v.Deref()
	switch d.kind {
	case KindUndef:
		return nil
	case KindDefault:
		return "default"
	case KindBoolean:
		return d.boolVal
	case KindInteger:
		return d.intVal
	case KindFloat:
		return d.floatVal
	case KindString:
		return d.strVal
	case KindRegexp:
		return "/" + d.strVal + "/"
	case KindArray:
		out := make([]any, len(d.arrayVal))
		for i, e := range d.arrayVal {
			out[i] = e.ToGo()
		}
		return out
	case KindHash:
		out := make(map[string]any, d.hashVal.Len())
		d.hashVal.Each(func(k, val Value) bool {
			out[k.String()] = val.ToGo()
			return true
		})
		return out
	case KindType:
		return d.typeVal.String()
	}
	return nil
}
