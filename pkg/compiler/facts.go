package compiler

import (
	"fmt"
	"os"
	"sort"

	"github.com/lemonberrylabs/manifestc/pkg/types"
	"gopkg.in/yaml.v3"
)

// Facts is a fact provider over an in-memory table. Facts are visible as
// top-scope variables.
type Facts struct {
	names  []string
	values map[string]types.Value
}

// NewFacts creates an empty fact table.
func NewFacts() *Facts {
	return &Facts{values: make(map[string]types.Value)}
}

// LoadFacts reads a YAML fact file into a fact provider. The document
// must be a mapping of fact names to values.
func LoadFacts(path string) (*Facts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading facts: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing facts %s: %w", path, err)
	}
	facts := NewFacts()
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		facts.Set(name, ValueFromYAML(raw[name]))
	}
	return facts, nil
}

// Set adds a fact.
func (f *Facts) Set(name string, value types.Value) {
	if _, exists := f.values[name]; !exists {
		f.names = append(f.names, name)
	}
	f.values[name] = value
}

// Get implements runtime.FactProvider.
func (f *Facts) Get(name string) (types.Value, bool) {
	v, ok := f.values[name]
	return v, ok
}

// Each implements runtime.FactProvider.
func (f *Facts) Each(fn func(name string, value types.Value) bool) {
	for _, name := range f.names {
		if !fn(name, f.values[name]) {
			return
		}
	}
}

// ValueFromYAML converts decoded YAML data into a runtime value.
func ValueFromYAML(v any) types.Value {
	switch value := v.(type) {
	case nil:
		return types.Undef
	case bool:
		return types.NewBoolean(value)
	case int:
		return types.NewInteger(int64(value))
	case int64:
		return types.NewInteger(value)
	case uint64:
		return types.NewInteger(int64(value))
	case float64:
		return types.NewFloat(value)
	case string:
		return types.NewString(value)
	case []any:
		elements := make([]types.Value, len(value))
		for i, element := range value {
			elements[i] = ValueFromYAML(element)
		}
		return types.NewArray(elements)
	case map[string]any:
		h := types.NewHashValue()
		names := make([]string, 0, len(value))
		for name := range value {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			h.Set(types.NewString(name), ValueFromYAML(value[name]))
		}
		return types.NewHash(h)
	case map[any]any:
		h := types.NewHashValue()
		for k, val := range value {
			h.Set(ValueFromYAML(k), ValueFromYAML(val))
		}
		return types.NewHash(h)
	default:
		return types.NewString(fmt.Sprintf("%v", value))
	}
}
