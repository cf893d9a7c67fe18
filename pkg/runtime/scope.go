// Package runtime implements the evaluation half of the compiler: lexical
// scopes, the evaluation context, the definition scanner, the expression
// evaluator with its operators and builtins, and the string interpolator.
package runtime

import (
	"strings"

	"github.com/lemonberrylabs/manifestc/pkg/catalog"
	"github.com/lemonberrylabs/manifestc/pkg/types"
)

// FactProvider supplies externally-provided variables visible in the top
// scope.
type FactProvider interface {
	Get(name string) (types.Value, bool)
	Each(fn func(name string, value types.Value) bool)
}

// AssignedVariable is a variable binding with its assignment site.
type AssignedVariable struct {
	Value *types.Value
	Path  string
	Line  int
}

// Scope is a lexical environment for variable bindings. Variables are
// write-once: Set never replaces an existing binding. The top scope is
// backed by a fact provider.
type Scope struct {
	parent    *Scope
	facts     FactProvider
	resource  *catalog.Resource
	names     []string
	variables map[string]*AssignedVariable
}

// NewScope creates a child scope.
func NewScope(parent *Scope, resource *catalog.Resource) *Scope {
	return &Scope{
		parent:    parent,
		resource:  resource,
		variables: make(map[string]*AssignedVariable),
	}
}

// NewTopScope creates a top scope backed by a fact provider (which may be
// nil).
func NewTopScope(facts FactProvider, resource *catalog.Resource) *Scope {
	return &Scope{
		facts:     facts,
		resource:  resource,
		variables: make(map[string]*AssignedVariable),
	}
}

// Parent returns the parent scope, or nil for the top scope.
func (s *Scope) Parent() *Scope { return s.parent }

// Resource returns the resource whose body this scope evaluates, or nil.
func (s *Scope) Resource() *catalog.Resource { return s.resource }

// Qualify resolves a relative name against the scope's class. The main
// class does not qualify names.
func (s *Scope) Qualify(name string) string {
	if strings.HasPrefix(name, "::") {
		return name[2:]
	}
	if s.resource == nil || !s.resource.Type.IsClass() || s.resource.Type.Title == "main" {
		return name
	}
	return s.resource.Type.Title + "::" + name
}

// Set binds a variable. If a binding (or a fact of the same name) already
// exists, it is returned and no assignment happens; nil means success.
func (s *Scope) Set(name string, value *types.Value, path string, line int) *AssignedVariable {
	if existing, ok := s.variables[name]; ok {
		return existing
	}
	if s.facts != nil {
		if existing := s.Get(name); existing != nil {
			return existing
		}
	}
	s.names = append(s.names, name)
	s.variables[name] = &AssignedVariable{Value: value, Path: path, Line: line}
	return nil
}

// Get resolves a variable, walking the scope chain and finally the fact
// provider. Returns nil if unset.
func (s *Scope) Get(name string) *AssignedVariable {
	if v, ok := s.variables[name]; ok {
		return v
	}
	if s.parent != nil {
		return s.parent.Get(name)
	}
	if s.facts == nil {
		return nil
	}
	value, ok := s.facts.Get(name)
	if !ok {
		return nil
	}
	// Materialize the fact so repeated lookups share one value
	v := &AssignedVariable{Value: &value}
	s.names = append(s.names, name)
	s.variables[name] = v
	return v
}

// Encloses reports whether s is other or one of other's ancestors.
func (s *Scope) Encloses(other *Scope) bool {
	for cur := other; cur != nil; cur = cur.parent {
		if cur == s {
			return true
		}
	}
	return false
}

// EachLocal iterates this scope's own bindings in assignment order.
func (s *Scope) EachLocal(fn func(name string, v *AssignedVariable) bool) {
	for _, name := range s.names {
		if !fn(name, s.variables[name]) {
			return
		}
	}
}

// MapFacts is a FactProvider over a plain map, used by tests.
type MapFacts map[string]types.Value

// Get implements FactProvider.
func (m MapFacts) Get(name string) (types.Value, bool) {
	v, ok := m[name]
	return v, ok
}

// Each implements FactProvider.
func (m MapFacts) Each(fn func(name string, value types.Value) bool) {
	for k, v := range m {
		if !fn(k, v) {
			return
		}
	}
}
