package types

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Type is a runtime type object. IsInstance tests value membership;
// IsSpecialization reports whether other describes a narrower set of
// values than the receiver (or the same set).
type Type interface {
	Name() string
	IsInstance(v Value) bool
	IsSpecialization(other Type) bool
	String() string
}

// Unbounded sentinels for range-parameterized types.
const (
	MinInteger = math.MinInt64
	MaxInteger = math.MaxInt64
)

// AnyType matches every value.
type AnyType struct{}

func (AnyType) Name() string                     { return "Any" }
func (AnyType) String() string                   { return "Any" }
func (AnyType) IsInstance(Value) bool            { return true }
func (AnyType) IsSpecialization(other Type) bool { return true }

// UndefType matches only undef.
type UndefType struct{}

func (UndefType) Name() string   { return "Undef" }
func (UndefType) String() string { return "Undef" }
func (UndefType) IsInstance(v Value) bool {
	return v.IsUndef()
}
func (UndefType) IsSpecialization(other Type) bool {
	_, ok := other.(UndefType)
	return ok
}

// DefaultType matches only the default literal.
type DefaultType struct{}

func (DefaultType) Name() string   { return "Default" }
func (DefaultType) String() string { return "Default" }
func (DefaultType) IsInstance(v Value) bool {
	return v.IsDefault()
}
func (DefaultType) IsSpecialization(other Type) bool {
	_, ok := other.(DefaultType)
	return ok
}

// BooleanType matches booleans.
type BooleanType struct{}

func (BooleanType) Name() string   { return "Boolean" }
func (BooleanType) String() string { return "Boolean" }
func (BooleanType) IsInstance(v Value) bool {
	return v.Deref().Kind() == KindBoolean
}
func (BooleanType) IsSpecialization(other Type) bool {
	_, ok := other.(BooleanType)
	return ok
}

// IntegerType matches integers within an inclusive range. An unbounded
// range uses the MinInteger/MaxInteger sentinels.
type IntegerType struct {
	From int64
	To   int64
}

// NewIntegerType creates the unbounded Integer type.
func NewIntegerType() IntegerType { return IntegerType{From: MinInteger, To: MaxInteger} }

func (t IntegerType) Name() string { return "Integer" }

func (t IntegerType) String() string {
	if t.From == MinInteger && t.To == MaxInteger {
		return "Integer"
	}
	from := "default"
	if t.From != MinInteger {
		from = fmt.Sprintf("%d", t.From)
	}
	to := "default"
	if t.To != MaxInteger {
		to = fmt.Sprintf("%d", t.To)
	}
	return fmt.Sprintf("Integer[%s, %s]", from, to)
}

func (t IntegerType) IsInstance(v Value) bool {
	d := v.Deref()
	return d.Kind() == KindInteger && d.Int() >= t.From && d.Int() <= t.To
}

// IsSpecialization: Integer[a,b] specializes Integer[c,d] iff c <= a <= b <= d.
func (t IntegerType) IsSpecialization(other Type) bool {
	o, ok := other.(IntegerType)
	return ok && t.From <= o.From && o.From <= o.To && o.To <= t.To
}

// Enumerable reports whether the range can be iterated.
func (t IntegerType) Enumerable() bool {
	return t.From != MinInteger && t.To != MaxInteger && t.From <= t.To
}

// Each iterates the range, yielding (index, value) pairs.
func (t IntegerType) Each(fn func(index, value int64) bool) {
	for i, v := int64(0), t.From; v <= t.To; i, v = i+1, v+1 {
		if !fn(i, v) {
			return
		}
		if v == math.MaxInt64 {
			return
		}
	}
}

// FloatType matches floats within an inclusive range.
type FloatType struct {
	From float64
	To   float64
}

// NewFloatType creates the unbounded Float type.
func NewFloatType() FloatType { return FloatType{From: math.Inf(-1), To: math.Inf(1)} }

func (t FloatType) Name() string { return "Float" }

func (t FloatType) String() string {
	if math.IsInf(t.From, -1) && math.IsInf(t.To, 1) {
		return "Float"
	}
	return fmt.Sprintf("Float[%g, %g]", t.From, t.To)
}

func (t FloatType) IsInstance(v Value) bool {
	d := v.Deref()
	return d.Kind() == KindFloat && d.Float() >= t.From && d.Float() <= t.To
}

func (t FloatType) IsSpecialization(other Type) bool {
	o, ok := other.(FloatType)
	return ok && t.From <= o.From && o.From <= o.To && o.To <= t.To
}

// NumericType matches integers and floats.
type NumericType struct{}

func (NumericType) Name() string   { return "Numeric" }
func (NumericType) String() string { return "Numeric" }
func (NumericType) IsInstance(v Value) bool {
	k := v.Deref().Kind()
	return k == KindInteger || k == KindFloat
}
func (NumericType) IsSpecialization(other Type) bool {
	switch other.(type) {
	case NumericType, IntegerType, FloatType:
		return true
	}
	return false
}

// StringType matches strings whose byte length is within an inclusive
// range. Byte length (not code points) is used deliberately for
// compatibility.
type StringType struct {
	MinLen int64
	MaxLen int64
}

// NewStringType creates the unbounded String type.
func NewStringType() StringType { return StringType{MinLen: 0, MaxLen: MaxInteger} }

func (t StringType) Name() string { return "String" }

func (t StringType) String() string {
	if t.MinLen == 0 && t.MaxLen == MaxInteger {
		return "String"
	}
	if t.MaxLen == MaxInteger {
		return fmt.Sprintf("String[%d]", t.MinLen)
	}
	return fmt.Sprintf("String[%d, %d]", t.MinLen, t.MaxLen)
}

func (t StringType) IsInstance(v Value) bool {
	d := v.Deref()
	if d.Kind() != KindString {
		return false
	}
	n := int64(len(d.Str()))
	return n >= t.MinLen && n <= t.MaxLen
}

func (t StringType) IsSpecialization(other Type) bool {
	switch o := other.(type) {
	case StringType:
		return t.MinLen <= o.MinLen && o.MinLen <= o.MaxLen && o.MaxLen <= t.MaxLen
	case EnumType, PatternType:
		return true
	}
	return false
}

// EnumType matches strings from a fixed set, case-insensitively on ASCII.
// With no values it matches any string.
type EnumType struct {
	Values []string
}

func (t EnumType) Name() string { return "Enum" }

func (t EnumType) String() string {
	if len(t.Values) == 0 {
		return "Enum"
	}
	quoted := make([]string, len(t.Values))
	for i, v := range t.Values {
		quoted[i] = fmt.Sprintf("'%s'", v)
	}
	return "Enum[" + strings.Join(quoted, ", ") + "]"
}

func (t EnumType) IsInstance(v Value) bool {
	d := v.Deref()
	if d.Kind() != KindString {
		return false
	}
	if len(t.Values) == 0 {
		return true
	}
	for _, s := range t.Values {
		if strings.EqualFold(s, d.Str()) {
			return true
		}
	}
	return false
}

func (t EnumType) IsSpecialization(other Type) bool {
	o, ok := other.(EnumType)
	if !ok {
		return false
	}
	if len(t.Values) == 0 {
		return true
	}
	for _, ov := range o.Values {
		found := false
		for _, tv := range t.Values {
			if strings.EqualFold(tv, ov) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return len(o.Values) > 0
}

// RegexpType matches regexp values; when parameterized, only a regexp with
// the same pattern.
type RegexpType struct {
	Pattern string
}

func (t RegexpType) Name() string { return "Regexp" }

func (t RegexpType) String() string {
	if t.Pattern == "" {
		return "Regexp"
	}
	return fmt.Sprintf("Regexp[/%s/]", t.Pattern)
}

func (t RegexpType) IsInstance(v Value) bool {
	d := v.Deref()
	if d.Kind() != KindRegexp {
		return false
	}
	return t.Pattern == "" || t.Pattern == d.Str()
}

func (t RegexpType) IsSpecialization(other Type) bool {
	o, ok := other.(RegexpType)
	if !ok {
		return false
	}
	return t.Pattern == "" || t.Pattern == o.Pattern
}

// PatternType matches strings matching any of its regular expressions.
// With no patterns it matches any string.
type PatternType struct {
	Patterns []string
	compiled []*regexp.Regexp
}

// NewPatternType compiles the given patterns.
func NewPatternType(patterns []string) (PatternType, error) {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return PatternType{}, fmt.Errorf("invalid regular expression: %w", err)
		}
		compiled[i] = re
	}
	return PatternType{Patterns: patterns, compiled: compiled}, nil
}

func (t PatternType) Name() string { return "Pattern" }

func (t PatternType) String() string {
	if len(t.Patterns) == 0 {
		return "Pattern"
	}
	parts := make([]string, len(t.Patterns))
	for i, p := range t.Patterns {
		parts[i] = "/" + p + "/"
	}
	return "Pattern[" + strings.Join(parts, ", ") + "]"
}

func (t PatternType) IsInstance(v Value) bool {
	d := v.Deref()
	if d.Kind() != KindString {
		return false
	}
	if len(t.compiled) == 0 {
		return true
	}
	for _, re := range t.compiled {
		if re.MatchString(d.Str()) {
			return true
		}
	}
	return false
}

func (t PatternType) IsSpecialization(other Type) bool {
	o, ok := other.(PatternType)
	if !ok {
		return false
	}
	return len(t.Patterns) == 0 || len(o.Patterns) > 0
}

// ScalarType matches numerics, strings, booleans, and regexps.
type ScalarType struct{}

func (ScalarType) Name() string   { return "Scalar" }
func (ScalarType) String() string { return "Scalar" }
func (ScalarType) IsInstance(v Value) bool {
	switch v.Deref().Kind() {
	case KindInteger, KindFloat, KindString, KindBoolean, KindRegexp:
		return true
	}
	return false
}
func (ScalarType) IsSpecialization(other Type) bool {
	switch other.(type) {
	case ScalarType, NumericType, IntegerType, FloatType, StringType,
		BooleanType, RegexpType, EnumType, PatternType:
		return true
	}
	return false
}

// DataType matches Variant[Scalar, Undef, Array[Data], Hash[Scalar, Data]].
type DataType struct{}

func (DataType) Name() string   { return "Data" }
func (DataType) String() string { return "Data" }
func (DataType) IsInstance(v Value) bool {
	d := v.Deref()
	switch d.Kind() {
	case KindUndef:
		return true
	case KindInteger, KindFloat, KindString, KindBoolean, KindRegexp:
		return true
	case KindArray:
		for _, e := range d.Array() {
			if !(DataType{}).IsInstance(e) {
				return false
			}
		}
		return true
	case KindHash:
		ok := true
		d.Hash().Each(func(k, val Value) bool {
			if !(ScalarType{}).IsInstance(k) || !(DataType{}).IsInstance(val) {
				ok = false
				return false
			}
			return true
		})
		return ok
	}
	return false
}
func (DataType) IsSpecialization(other Type) bool {
	switch other.(type) {
	case DataType, UndefType:
		return true
	case ArrayType, HashType, TupleType:
		return true
	}
	return (ScalarType{}).IsSpecialization(other)
}

// CollectionType matches arrays and hashes with a size range.
type CollectionType struct {
	Min int64
	Max int64
}

// NewCollectionType creates the unbounded Collection type.
func NewCollectionType() CollectionType { return CollectionType{Min: 0, Max: MaxInteger} }

func (t CollectionType) Name() string { return "Collection" }

func (t CollectionType) String() string {
	if t.Min == 0 && t.Max == MaxInteger {
		return "Collection"
	}
	return fmt.Sprintf("Collection[%d, %d]", t.Min, t.Max)
}

func (t CollectionType) IsInstance(v Value) bool {
	d := v.Deref()
	var n int64
	switch d.Kind() {
	case KindArray:
		n = int64(len(d.Array()))
	case KindHash:
		n = int64(d.Hash().Len())
	default:
		return false
	}
	return n >= t.Min && n <= t.Max
}

func (t CollectionType) IsSpecialization(other Type) bool {
	switch other.(type) {
	case CollectionType, ArrayType, HashType, TupleType:
		return true
	}
	return false
}

// ArrayType matches arrays whose elements are instances of the element
// type and whose length is within a range.
type ArrayType struct {
	Element Type
	Min     int64
	Max     int64
}

// NewArrayType creates Array[Data].
func NewArrayType() ArrayType { return ArrayType{Element: DataType{}, Min: 0, Max: MaxInteger} }

func (t ArrayType) Name() string { return "Array" }

func (t ArrayType) String() string {
	elem := t.element()
	if _, ok := elem.(DataType); ok && t.Min == 0 && t.Max == MaxInteger {
		return "Array"
	}
	if t.Min == 0 && t.Max == MaxInteger {
		return fmt.Sprintf("Array[%s]", elem)
	}
	return fmt.Sprintf("Array[%s, %d, %d]", elem, t.Min, t.Max)
}

func (t ArrayType) element() Type {
	if t.Element == nil {
		return DataType{}
	}
	return t.Element
}

func (t ArrayType) IsInstance(v Value) bool {
	d := v.Deref()
	if d.Kind() != KindArray {
		return false
	}
	n := int64(len(d.Array()))
	if n < t.Min || n > t.Max {
		return false
	}
	elem := t.element()
	for _, e := range d.Array() {
		if !elem.IsInstance(e) {
			return false
		}
	}
	return true
}

func (t ArrayType) IsSpecialization(other Type) bool {
	switch o := other.(type) {
	case ArrayType:
		return t.Min <= o.Min && o.Max <= t.Max && t.element().IsSpecialization(o.element())
	case TupleType:
		for _, ot := range o.Types {
			if !t.element().IsSpecialization(ot) {
				return false
			}
		}
		return true
	}
	return false
}

// HashType matches hashes whose keys and values are instances of the key
// and value types.
type HashType struct {
	Key   Type
	Value Type
	Min   int64
	Max   int64
}

// NewHashType creates Hash[Scalar, Data].
func NewHashType() HashType {
	return HashType{Key: ScalarType{}, Value: DataType{}, Min: 0, Max: MaxInteger}
}

func (t HashType) Name() string { return "Hash" }

func (t HashType) key() Type {
	if t.Key == nil {
		return ScalarType{}
	}
	return t.Key
}

func (t HashType) value() Type {
	if t.Value == nil {
		return DataType{}
	}
	return t.Value
}

func (t HashType) String() string {
	_, sk := t.key().(ScalarType)
	_, dv := t.value().(DataType)
	if sk && dv && t.Min == 0 && t.Max == MaxInteger {
		return "Hash"
	}
	if t.Min == 0 && t.Max == MaxInteger {
		return fmt.Sprintf("Hash[%s, %s]", t.key(), t.value())
	}
	return fmt.Sprintf("Hash[%s, %s, %d, %d]", t.key(), t.value(), t.Min, t.Max)
}

func (t HashType) IsInstance(v Value) bool {
	d := v.Deref()
	if d.Kind() != KindHash {
		return false
	}
	n := int64(d.Hash().Len())
	if n < t.Min || n > t.Max {
		return false
	}
	ok := true
	d.Hash().Each(func(k, val Value) bool {
		if !t.key().IsInstance(k) || !t.value().IsInstance(val) {
			ok = false
			return false
		}
		return true
	})
	return ok
}

func (t HashType) IsSpecialization(other Type) bool {
	o, ok := other.(HashType)
	if !ok {
		return false
	}
	return t.Min <= o.Min && o.Max <= t.Max &&
		t.key().IsSpecialization(o.key()) && t.value().IsSpecialization(o.value())
}

// TupleType matches arrays whose elements match positionally.
type TupleType struct {
	Types []Type
	Min   int64
	Max   int64
}

// NewTupleType creates a tuple requiring exactly the given element types.
func NewTupleType(types []Type) TupleType {
	n := int64(len(types))
	return TupleType{Types: types, Min: n, Max: n}
}

func (t TupleType) Name() string { return "Tuple" }

func (t TupleType) String() string {
	parts := make([]string, len(t.Types))
	for i, e := range t.Types {
		parts[i] = e.String()
	}
	return "Tuple[" + strings.Join(parts, ", ") + "]"
}

func (t TupleType) IsInstance(v Value) bool {
	d := v.Deref()
	if d.Kind() != KindArray {
		return false
	}
	elems := d.Array()
	n := int64(len(elems))
	if n < t.Min || n > t.Max {
		return false
	}
	for i, e := range elems {
		var et Type
		if i < len(t.Types) {
			et = t.Types[i]
		} else if len(t.Types) > 0 {
			et = t.Types[len(t.Types)-1]
		} else {
			et = DataType{}
		}
		if !et.IsInstance(e) {
			return false
		}
	}
	return true
}

func (t TupleType) IsSpecialization(other Type) bool {
	o, ok := other.(TupleType)
	if !ok || len(o.Types) != len(t.Types) {
		return false
	}
	for i := range t.Types {
		if !t.Types[i].IsSpecialization(o.Types[i]) {
			return false
		}
	}
	return true
}

// StructField is one member of a Struct type.
type StructField struct {
	Key  string
	Type Type
}

// StructType matches hashes with specific string keys and per-key value
// types. A key whose type is Optional may be absent.
type StructType struct {
	Fields []StructField
}

func (t StructType) Name() string { return "Struct" }

func (t StructType) String() string {
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		parts[i] = fmt.Sprintf("'%s' => %s", f.Key, f.Type)
	}
	return "Struct[{" + strings.Join(parts, ", ") + "}]"
}

func (t StructType) IsInstance(v Value) bool {
	d := v.Deref()
	if d.Kind() != KindHash {
		return false
	}
	h := d.Hash()
	seen := 0
	for _, f := range t.Fields {
		val, ok := h.Get(NewString(f.Key))
		if !ok {
			if _, optional := f.Type.(OptionalType); optional {
				continue
			}
			return false
		}
		seen++
		if !f.Type.IsInstance(val) {
			return false
		}
	}
	return h.Len() == seen
}

func (t StructType) IsSpecialization(other Type) bool {
	o, ok := other.(StructType)
	if !ok || len(o.Fields) != len(t.Fields) {
		return false
	}
	for i := range t.Fields {
		if t.Fields[i].Key != o.Fields[i].Key || !t.Fields[i].Type.IsSpecialization(o.Fields[i].Type) {
			return false
		}
	}
	return true
}

// VariantType matches a value matching any branch.
type VariantType struct {
	Types []Type
}

func (t VariantType) Name() string { return "Variant" }

func (t VariantType) String() string {
	if len(t.Types) == 0 {
		return "Variant"
	}
	parts := make([]string, len(t.Types))
	for i, e := range t.Types {
		parts[i] = e.String()
	}
	return "Variant[" + strings.Join(parts, ", ") + "]"
}

func (t VariantType) IsInstance(v Value) bool {
	for _, b := range t.Types {
		if b.IsInstance(v) {
			return true
		}
	}
	return false
}

func (t VariantType) IsSpecialization(other Type) bool {
	for _, b := range t.Types {
		if b.IsSpecialization(other) {
			return true
		}
	}
	return false
}

// OptionalType matches undef or an instance of its element type. With no
// element type it behaves as Optional[Any].
type OptionalType struct {
	Element Type
}

func (t OptionalType) Name() string { return "Optional" }

func (t OptionalType) element() Type {
	if t.Element == nil {
		return AnyType{}
	}
	return t.Element
}

func (t OptionalType) String() string {
	if t.Element == nil {
		return "Optional"
	}
	return fmt.Sprintf("Optional[%s]", t.Element)
}

func (t OptionalType) IsInstance(v Value) bool {
	return v.IsUndef() || t.element().IsInstance(v)
}

func (t OptionalType) IsSpecialization(other Type) bool {
	if _, ok := other.(UndefType); ok {
		return true
	}
	if o, ok := other.(OptionalType); ok {
		return t.element().IsSpecialization(o.element())
	}
	return t.element().IsSpecialization(other)
}

// TypeType matches type values; when parameterized, only types that
// specialize the element type.
type TypeType struct {
	Element Type
}

func (t TypeType) Name() string { return "Type" }

func (t TypeType) String() string {
	if t.Element == nil {
		return "Type"
	}
	return fmt.Sprintf("Type[%s]", t.Element)
}

func (t TypeType) IsInstance(v Value) bool {
	d := v.Deref()
	if d.Kind() != KindType {
		return false
	}
	if t.Element == nil {
		return true
	}
	return t.Element.IsSpecialization(d.Type())
}

func (t TypeType) IsSpecialization(other Type) bool {
	o, ok := other.(TypeType)
	if !ok {
		return false
	}
	if t.Element == nil {
		return true
	}
	if o.Element == nil {
		return false
	}
	return t.Element.IsSpecialization(o.Element)
}

// CallableType describes an invocable signature. The language has no
// first-class callable values, so nothing is an instance.
type CallableType struct {
	Parameters []Type
}

func (t CallableType) Name() string { return "Callable" }

func (t CallableType) String() string {
	if len(t.Parameters) == 0 {
		return "Callable"
	}
	parts := make([]string, len(t.Parameters))
	for i, e := range t.Parameters {
		parts[i] = e.String()
	}
	return "Callable[" + strings.Join(parts, ", ") + "]"
}

func (t CallableType) IsInstance(Value) bool { return false }

func (t CallableType) IsSpecialization(other Type) bool {
	_, ok := other.(CallableType)
	return ok
}

// RuntimeType names a type of the host runtime.
type RuntimeType struct {
	Runtime  string
	TypeName string
}

func (t RuntimeType) Name() string { return "Runtime" }

func (t RuntimeType) String() string {
	if t.Runtime == "" {
		return "Runtime"
	}
	if t.TypeName == "" {
		return fmt.Sprintf("Runtime['%s']", t.Runtime)
	}
	return fmt.Sprintf("Runtime['%s', '%s']", t.Runtime, t.TypeName)
}

func (t RuntimeType) IsInstance(Value) bool { return false }

func (t RuntimeType) IsSpecialization(other Type) bool {
	o, ok := other.(RuntimeType)
	if !ok {
		return false
	}
	if t.Runtime == "" {
		return true
	}
	return t.Runtime == o.Runtime && (t.TypeName == "" || t.TypeName == o.TypeName)
}

// ResourceType references a resource type, optionally qualified with a
// title. Type names canonicalize to lowercase with each :: segment
// capitalized for display.
type ResourceType struct {
	TypeName string // lowercase
	Title    string
}

// NewResourceType canonicalizes the type name.
func NewResourceType(typeName, title string) ResourceType {
	return ResourceType{TypeName: strings.ToLower(typeName), Title: title}
}

func (t ResourceType) Name() string { return "Resource" }

// IsClass reports whether the reference is to a class resource.
func (t ResourceType) IsClass() bool { return t.TypeName == "class" }

// FullyQualified reports whether both type name and title are present.
func (t ResourceType) FullyQualified() bool { return t.TypeName != "" && t.Title != "" }

// DisplayName renders the canonical capitalized type name.
func (t ResourceType) DisplayName() string {
	if t.TypeName == "" {
		return "Resource"
	}
	segments := strings.Split(t.TypeName, "::")
	for i, s := range segments {
		if s != "" {
			segments[i] = strings.ToUpper(s[:1]) + s[1:]
		}
	}
	return strings.Join(segments, "::")
}

func (t ResourceType) String() string {
	if t.TypeName == "" {
		return "Resource"
	}
	if t.Title == "" {
		return t.DisplayName()
	}
	return fmt.Sprintf("%s['%s']", t.DisplayName(), t.Title)
}

func (t ResourceType) IsInstance(v Value) bool {
	d := v.Deref()
	if d.Kind() != KindType {
		return false
	}
	o, ok := d.Type().(ResourceType)
	if !ok {
		return false
	}
	if t.TypeName == "" {
		return true
	}
	if t.TypeName != o.TypeName {
		return false
	}
	return t.Title == "" || strings.EqualFold(t.Title, o.Title)
}

func (t ResourceType) IsSpecialization(other Type) bool {
	o, ok := other.(ResourceType)
	if !ok {
		return false
	}
	if t.TypeName == "" {
		return true
	}
	if t.TypeName != o.TypeName {
		return false
	}
	return t.Title == "" || strings.EqualFold(t.Title, o.Title)
}

// ClassType references a class, optionally qualified with a name.
type ClassType struct {
	Title string
}

func (t ClassType) Name() string { return "Class" }

func (t ClassType) String() string {
	if t.Title == "" {
		return "Class"
	}
	return fmt.Sprintf("Class['%s']", t.Title)
}

func (t ClassType) IsInstance(v Value) bool {
	d := v.Deref()
	if d.Kind() != KindType {
		return false
	}
	switch o := d.Type().(type) {
	case ClassType:
		return t.Title == "" || strings.EqualFold(t.Title, o.Title)
	case ResourceType:
		return o.IsClass() && (t.Title == "" || strings.EqualFold(t.Title, o.Title))
	}
	return false
}

func (t ClassType) IsSpecialization(other Type) bool {
	switch o := other.(type) {
	case ClassType:
		return t.Title == "" || strings.EqualFold(t.Title, o.Title)
	case ResourceType:
		return o.IsClass() && (t.Title == "" || strings.EqualFold(t.Title, o.Title))
	}
	return false
}

// CatalogEntryType matches any resource or class reference.
type CatalogEntryType struct{}

func (CatalogEntryType) Name() string   { return "CatalogEntry" }
func (CatalogEntryType) String() string { return "CatalogEntry" }
func (CatalogEntryType) IsInstance(v Value) bool {
	d := v.Deref()
	if d.Kind() != KindType {
		return false
	}
	switch d.Type().(type) {
	case ResourceType, ClassType:
		return true
	}
	return false
}
func (CatalogEntryType) IsSpecialization(other Type) bool {
	switch other.(type) {
	case CatalogEntryType, ResourceType, ClassType:
		return true
	}
	return false
}

// TypeOf returns the unparameterized type describing a value, used in
// diagnostics and as the argument to assert_type's lambda.
func TypeOf(v Value) Type {
	d := v.Deref()
	switch d.Kind() {
	case KindUndef:
		return UndefType{}
	case KindDefault:
		return DefaultType{}
	case KindInteger:
		return NewIntegerType()
	case KindFloat:
		return NewFloatType()
	case KindBoolean:
		return BooleanType{}
	case KindString:
		return NewStringType()
	case KindRegexp:
		return RegexpType{}
	case KindArray:
		return NewArrayType()
	case KindHash:
		return NewHashType()
	case KindType:
		return TypeType{Element: d.Type()}
	}
	return AnyType{}
}

// TypeByName resolves an unparameterized type reference by name. Unknown
// names resolve to a Resource type of that name.
func TypeByName(name string) Type {
	switch name {
	case "Any":
		return AnyType{}
	case "Undef":
		return UndefType{}
	case "Default":
		return DefaultType{}
	case "Boolean":
		return BooleanType{}
	case "Integer":
		return NewIntegerType()
	case "Float":
		return NewFloatType()
	case "Numeric":
		return NumericType{}
	case "String":
		return NewStringType()
	case "Enum":
		return EnumType{}
	case "Regexp":
		return RegexpType{}
	case "Pattern":
		return PatternType{}
	case "Scalar":
		return ScalarType{}
	case "Data":
		return DataType{}
	case "Collection":
		return NewCollectionType()
	case "Array":
		return NewArrayType()
	case "Hash":
		return NewHashType()
	case "Tuple":
		return TupleType{Min: 0, Max: MaxInteger}
	case "Struct":
		return StructType{}
	case "Variant":
		return VariantType{}
	case "Optional":
		return OptionalType{}
	case "Type":
		return TypeType{}
	case "Callable":
		return CallableType{}
	case "Runtime":
		return RuntimeType{}
	case "CatalogEntry":
		return CatalogEntryType{}
	case "Class":
		return ClassType{}
	case "Resource":
		return ResourceType{}
	default:
		return NewResourceType(name, "")
	}
}
