package types

import (
	"testing"
)

func TestIntegerRange(t *testing.T) {
	tests := []struct {
		typ   IntegerType
		value Value
		want  bool
	}{
		{NewIntegerType(), NewInteger(0), true},
		{NewIntegerType(), NewFloat(1.0), false},
		{IntegerType{From: 1, To: 10}, NewInteger(1), true},
		{IntegerType{From: 1, To: 10}, NewInteger(10), true},
		{IntegerType{From: 1, To: 10}, NewInteger(0), false},
		{IntegerType{From: 1, To: 10}, NewInteger(11), false},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String()+"/"+tt.value.String(), func(t *testing.T) {
			if got := tt.typ.IsInstance(tt.value); got != tt.want {
				t.Errorf("got %t, want %t", got, tt.want)
			}
		})
	}
}

// Integer[a,b] specializes Integer[c,d] iff c <= a <= b <= d.
func TestIntegerSpecialization(t *testing.T) {
	outer := IntegerType{From: 0, To: 100}
	inner := IntegerType{From: 10, To: 20}
	if !outer.IsSpecialization(inner) {
		t.Error("Integer[10,20] should specialize Integer[0,100]")
	}
	if inner.IsSpecialization(outer) {
		t.Error("Integer[0,100] should not specialize Integer[10,20]")
	}
	if !outer.IsSpecialization(outer) {
		t.Error("a range should specialize itself")
	}
}

// String length checks use byte length.
func TestStringLengthIsBytes(t *testing.T) {
	typ := StringType{MinLen: 0, MaxLen: 3}
	if typ.IsInstance(NewString("héllo")) {
		t.Error("multibyte string should be measured in bytes")
	}
	two := StringType{MinLen: 2, MaxLen: 2}
	if !two.IsInstance(NewString("é")) {
		t.Error("é is two bytes and should match String[2, 2]")
	}
}

func TestEnumCaseInsensitive(t *testing.T) {
	typ := EnumType{Values: []string{"present", "absent"}}
	for _, s := range []string{"present", "Present", "PRESENT", "absent"} {
		if !typ.IsInstance(NewString(s)) {
			t.Errorf("%q should match", s)
		}
	}
	if typ.IsInstance(NewString("latest")) {
		t.Error("'latest' should not match")
	}
	if typ.IsInstance(NewInteger(1)) {
		t.Error("integers never match Enum")
	}
}

func TestOptional(t *testing.T) {
	typ := OptionalType{Element: NewIntegerType()}
	if !typ.IsInstance(Undef) {
		t.Error("Optional matches undef")
	}
	if !typ.IsInstance(NewInteger(1)) {
		t.Error("Optional[Integer] matches integers")
	}
	if typ.IsInstance(NewString("x")) {
		t.Error("Optional[Integer] should not match strings")
	}
}

func TestVariant(t *testing.T) {
	typ := VariantType{Types: []Type{NewIntegerType(), BooleanType{}}}
	if !typ.IsInstance(NewInteger(1)) || !typ.IsInstance(NewBoolean(false)) {
		t.Error("variant should match any branch")
	}
	if typ.IsInstance(NewString("x")) {
		t.Error("variant should not match unlisted kinds")
	}
	if (VariantType{}).IsInstance(NewInteger(1)) {
		t.Error("empty variant matches nothing")
	}
}

func TestDataAndScalar(t *testing.T) {
	h := NewHashValue()
	h.Set(NewString("key"), NewArray([]Value{NewInteger(1), NewString("two")}))
	values := []Value{
		NewInteger(1), NewFloat(1.5), NewString("s"), NewBoolean(true),
		Undef, NewArray([]Value{NewInteger(1)}), NewHash(h),
	}
	for _, v := range values {
		if !(DataType{}).IsInstance(v) {
			t.Errorf("%s should be Data", v.Kind())
		}
	}
	scalar := []Value{NewInteger(1), NewFloat(1.5), NewString("s"), NewBoolean(true)}
	for _, v := range scalar {
		if !(ScalarType{}).IsInstance(v) {
			t.Errorf("%s should be Scalar", v.Kind())
		}
	}
	if (ScalarType{}).IsInstance(Undef) {
		t.Error("undef is not Scalar")
	}
}

func TestArrayAndHashTypes(t *testing.T) {
	arr := ArrayType{Element: NewIntegerType(), Min: 1, Max: 3}
	if !arr.IsInstance(NewArray([]Value{NewInteger(1), NewInteger(2)})) {
		t.Error("expected instance")
	}
	if arr.IsInstance(NewArray(nil)) {
		t.Error("size below minimum")
	}
	if arr.IsInstance(NewArray([]Value{NewString("x")})) {
		t.Error("element type mismatch")
	}

	h := NewHashValue()
	h.Set(NewString("a"), NewInteger(1))
	hash := HashType{Key: NewStringType(), Value: NewIntegerType(), Max: MaxInteger}
	if !hash.IsInstance(NewHash(h)) {
		t.Error("expected hash instance")
	}
}

func TestTupleAndStruct(t *testing.T) {
	tuple := NewTupleType([]Type{NewIntegerType(), NewStringType()})
	if !tuple.IsInstance(NewArray([]Value{NewInteger(1), NewString("a")})) {
		t.Error("expected tuple instance")
	}
	if tuple.IsInstance(NewArray([]Value{NewString("a"), NewInteger(1)})) {
		t.Error("tuple is positional")
	}

	structType := StructType{Fields: []StructField{
		{Key: "mode", Type: NewStringType()},
		{Key: "count", Type: OptionalType{Element: NewIntegerType()}},
	}}
	h := NewHashValue()
	h.Set(NewString("mode"), NewString("0644"))
	if !structType.IsInstance(NewHash(h)) {
		t.Error("optional member may be absent")
	}
	h.Set(NewString("extra"), NewInteger(1))
	if structType.IsInstance(NewHash(h)) {
		t.Error("unknown members are rejected")
	}
}

func TestResourceAndClassTypes(t *testing.T) {
	file := NewResourceType("file", "/tmp/a")
	if file.String() != "File['/tmp/a']" {
		t.Errorf("got %s", file.String())
	}
	nested := NewResourceType("foo::bar", "x")
	if nested.DisplayName() != "Foo::Bar" {
		t.Errorf("got %s", nested.DisplayName())
	}
	anyFile := NewResourceType("file", "")
	if !anyFile.IsInstance(NewType(file)) {
		t.Error("File matches File['/tmp/a']")
	}
	if !(ResourceType{}).IsInstance(NewType(file)) {
		t.Error("Resource matches any resource reference")
	}
	if anyFile.IsInstance(NewType(NewResourceType("user", "bob"))) {
		t.Error("File should not match User references")
	}

	class := ClassType{Title: "web"}
	if !class.IsInstance(NewType(NewResourceType("class", "web"))) {
		t.Error("Class['web'] matches Class[web] references")
	}
	if !(CatalogEntryType{}).IsInstance(NewType(file)) {
		t.Error("CatalogEntry matches resource references")
	}
}

func TestTypeType(t *testing.T) {
	typ := TypeType{Element: NumericType{}}
	if !typ.IsInstance(NewType(NewIntegerType())) {
		t.Error("Type[Numeric] matches Integer")
	}
	if typ.IsInstance(NewType(NewStringType())) {
		t.Error("Type[Numeric] should not match String")
	}
	if !(TypeType{}).IsInstance(NewType(BooleanType{})) {
		t.Error("unparameterized Type matches any type value")
	}
}

// For every value each type matches, its supertypes match too.
func TestLatticeUpwardClosure(t *testing.T) {
	h := NewHashValue()
	h.Set(NewString("k"), NewInteger(1))
	samples := []Value{
		Undef, Default, NewInteger(5), NewFloat(2.5), NewBoolean(true),
		NewString("text"), NewArray([]Value{NewInteger(1)}), NewHash(h),
	}
	supertypes := map[string][]Type{
		"Integer": {NumericType{}, ScalarType{}, DataType{}, AnyType{}},
		"Float":   {NumericType{}, ScalarType{}, DataType{}, AnyType{}},
		"String":  {ScalarType{}, DataType{}, AnyType{}},
		"Boolean": {ScalarType{}, DataType{}, AnyType{}},
		"Array":   {DataType{}, CollectionType{Max: MaxInteger}, AnyType{}},
		"Hash":    {DataType{}, CollectionType{Max: MaxInteger}, AnyType{}},
		"Undef":   {DataType{}, AnyType{}},
	}
	bases := map[string]Type{
		"Integer": NewIntegerType(),
		"Float":   NewFloatType(),
		"String":  NewStringType(),
		"Boolean": BooleanType{},
		"Array":   NewArrayType(),
		"Hash":    NewHashType(),
		"Undef":   UndefType{},
	}
	for name, base := range bases {
		for _, v := range samples {
			if !base.IsInstance(v) {
				continue
			}
			for _, super := range supertypes[name] {
				if !super.IsInstance(v) {
					t.Errorf("%s instance %s not matched by supertype %s", name, v.Kind(), super)
				}
			}
		}
	}
}

func TestTypeByName(t *testing.T) {
	if _, ok := TypeByName("Integer").(IntegerType); !ok {
		t.Error("Integer should resolve to IntegerType")
	}
	// Unknown uppercase names denote resource types
	rt, ok := TypeByName("File").(ResourceType)
	if !ok || rt.TypeName != "file" {
		t.Errorf("File should resolve to a resource type, got %#v", TypeByName("File"))
	}
}

func TestIntegerEnumeration(t *testing.T) {
	r := IntegerType{From: 3, To: 6}
	if !r.Enumerable() {
		t.Fatal("bounded range should be enumerable")
	}
	var values []int64
	r.Each(func(index, value int64) bool {
		values = append(values, value)
		return true
	})
	want := []int64{3, 4, 5, 6}
	if len(values) != len(want) {
		t.Fatalf("got %v, want %v", values, want)
	}
	for i := range want {
		if values[i] != want[i] {
			t.Errorf("got %v, want %v", values, want)
		}
	}
	if NewIntegerType().Enumerable() {
		t.Error("unbounded range is not enumerable")
	}
}
