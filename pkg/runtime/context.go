package runtime

import (
	"strings"

	"github.com/lemonberrylabs/manifestc/pkg/catalog"
	"github.com/lemonberrylabs/manifestc/pkg/logging"
	"github.com/lemonberrylabs/manifestc/pkg/types"
)

// Context is the evaluation state shared by every evaluator of one node
// compilation: the catalog, the scope stack, named class scopes, and the
// regex match stack.
type Context struct {
	catalog *catalog.Catalog
	logger  logging.Logger

	scopes     map[string]*Scope
	scopeStack []*Scope
	nodeScope  *Scope
	matchStack []*[]types.Value
	sources    map[string]string
}

// NewContext creates an evaluation context with a fact-backed top scope.
func NewContext(facts FactProvider, cat *catalog.Catalog, logger logging.Logger) *Context {
	var main *catalog.Resource
	if cat != nil {
		main = cat.Find(types.NewResourceType("class", "main"))
	}
	top := NewTopScope(facts, main)
	ctx := &Context{
		catalog: cat,
		logger:  logger,
		scopes:  map[string]*Scope{"": top},
		sources: make(map[string]string),
	}
	ctx.scopeStack = append(ctx.scopeStack, top)
	ctx.matchStack = append(ctx.matchStack, nil)
	return ctx
}

// Catalog returns the catalog under construction, or nil.
func (c *Context) Catalog() *catalog.Catalog { return c.catalog }

// Logger returns the diagnostic sink.
func (c *Context) Logger() logging.Logger {
	if c.logger == nil {
		return &logging.SlogLogger{}
	}
	return c.logger
}

// CurrentScope returns the scope on top of the stack.
func (c *Context) CurrentScope() *Scope { return c.scopeStack[len(c.scopeStack)-1] }

// TopScope returns the root scope.
func (c *Context) TopScope() *Scope { return c.scopeStack[0] }

// NodeScope returns the node scope, or nil outside node evaluation.
func (c *Context) NodeScope() *Scope { return c.nodeScope }

// NodeOrTop returns the node scope if set, else the top scope.
func (c *Context) NodeOrTop() *Scope {
	if c.nodeScope != nil {
		return c.nodeScope
	}
	return c.TopScope()
}

// PushScope enters a local scope (creating one from the current scope when
// nil is given) along with a fresh match scope.
func (c *Context) PushScope(scope *Scope) {
	if scope == nil {
		scope = NewScope(c.CurrentScope(), nil)
	}
	c.scopeStack = append(c.scopeStack, scope)
	c.PushMatchScope()
}

// PopScope leaves the current local scope.
func (c *Context) PopScope() {
	c.PopMatchScope()
	c.scopeStack = c.scopeStack[:len(c.scopeStack)-1]
}

// PushNodeScope enters the node scope for the remainder of evaluation.
func (c *Context) PushNodeScope(resource *catalog.Resource) {
	c.nodeScope = NewScope(c.TopScope(), resource)
	c.scopeStack = append(c.scopeStack, c.nodeScope)
}

// PopNodeScope leaves the node scope.
func (c *Context) PopNodeScope() {
	c.scopeStack = c.scopeStack[:len(c.scopeStack)-1]
	c.nodeScope = nil
}

// AddNamedScope registers a class scope under its class name.
func (c *Context) AddNamedScope(name string, scope *Scope) {
	c.scopes[strings.ToLower(name)] = scope
}

// FindScope returns the named class scope, or nil.
func (c *Context) FindScope(name string) *Scope {
	return c.scopes[strings.ToLower(name)]
}

// PushMatchScope enters a regex match scope: $0..$n resolve against the
// nearest set of matches at or below the current frame.
func (c *Context) PushMatchScope() {
	c.matchStack = append(c.matchStack, nil)
}

// PopMatchScope leaves the current match scope.
func (c *Context) PopMatchScope() {
	c.matchStack = c.matchStack[:len(c.matchStack)-1]
}

// SetMatches stores the capture groups of a successful match in the
// current match scope.
func (c *Context) SetMatches(groups []string) {
	values := make([]types.Value, len(groups))
	for i, g := range groups {
		values[i] = types.NewString(g)
	}
	c.matchStack[len(c.matchStack)-1] = &values
}

// LookupMatch resolves $0..$n against the match scope stack.
func (c *Context) LookupMatch(index int) (types.Value, bool) {
	for i := len(c.matchStack) - 1; i >= 0; i-- {
		if matches := c.matchStack[i]; matches != nil {
			if index < 0 || index >= len(*matches) {
				return types.Undef, false
			}
			return (*matches)[index], true
		}
	}
	return types.Undef, false
}

// RegisterSource records a manifest's source text so evaluators created
// for stored definitions can render diagnostics with snippets.
func (c *Context) RegisterSource(path, source string) {
	c.sources[path] = source
}

// EvaluatorFor creates an evaluator for a registered manifest path.
func (c *Context) EvaluatorFor(path string) *Evaluator {
	return NewEvaluator(c, path, c.sources[path])
}

// Lookup resolves a possibly-qualified variable name. Qualified lookups
// resolve against named class scopes; global "::name" lookups use the top
// scope. Returns nil if the variable (or its scope) is unknown.
func (c *Context) Lookup(name string) (*AssignedVariable, string) {
	idx := strings.LastIndex(name, "::")
	if idx < 0 {
		v := c.CurrentScope().Get(name)
		return v, ""
	}

	global := strings.HasPrefix(name, "::")
	ns := name[:idx]
	if global {
		ns = strings.TrimPrefix(ns, "::")
	}
	variable := name[idx+2:]

	if ns == "" {
		return c.TopScope().Get(variable), ""
	}
	scope := c.FindScope(ns)
	if scope == nil {
		return nil, ns
	}
	return scope.Get(variable), ""
}
