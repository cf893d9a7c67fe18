// Package catalog holds the output of a node compilation: the ordered
// resource table, class/defined-type/node definitions, and the
// relationship graph. The catalog owns all resources; other components
// refer to them through it.
package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lemonberrylabs/manifestc/pkg/ast"
	"github.com/lemonberrylabs/manifestc/pkg/lexer"
	"github.com/lemonberrylabs/manifestc/pkg/types"
)

// Status tracks a resource's realization state.
type Status int

const (
	StatusReal Status = iota
	StatusVirtual
	StatusExported
	StatusRealizedFromVirtual
	StatusRealizedFromExported
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusReal:
		return "real"
	case StatusVirtual:
		return "virtual"
	case StatusExported:
		return "exported"
	case StatusRealizedFromVirtual:
		return "realized-from-virtual"
	case StatusRealizedFromExported:
		return "realized-from-exported"
	}
	return "unknown"
}

// Realized reports whether the resource participates in the final catalog.
func (s Status) Realized() bool {
	return s == StatusReal || s == StatusRealizedFromVirtual || s == StatusRealizedFromExported
}

// metaparameters are attribute names recognized for every resource type.
var metaparameters = map[string]bool{
	"after":     true,
	"alias":     true,
	"audit":     true,
	"before":    true,
	"ensure":    true,
	"loglevel":  true,
	"noop":      true,
	"notify":    true,
	"require":   true,
	"schedule":  true,
	"stage":     true,
	"subscribe": true,
	"tag":       true,
}

// IsMetaparameter reports whether the attribute name is a metaparameter.
func IsMetaparameter(name string) bool {
	return metaparameters[name]
}

// Attributes is an insertion-ordered attribute collection with an optional
// parent used for default resource bodies.
type Attributes struct {
	parent *Attributes
	names  []string
	values map[string]types.Value
}

// NewAttributes creates an attribute collection inheriting from parent
// (which may be nil).
func NewAttributes(parent *Attributes) *Attributes {
	return &Attributes{parent: parent, values: make(map[string]types.Value)}
}

// Get returns the attribute value. Undef values count as unset.
func (a *Attributes) Get(name string) (types.Value, bool) {
	return a.get(name, true)
}

// GetLocal returns the attribute value without consulting the parent.
func (a *Attributes) GetLocal(name string) (types.Value, bool) {
	return a.get(name, false)
}

func (a *Attributes) get(name string, checkParent bool) (types.Value, bool) {
	if v, ok := a.values[name]; ok {
		if v.IsUndef() {
			return types.Undef, false
		}
		return v, true
	}
	if checkParent && a.parent != nil {
		return a.parent.get(name, true)
	}
	return types.Undef, false
}

// Set assigns an attribute value.
func (a *Attributes) Set(name string, value types.Value) {
	if _, exists := a.values[name]; !exists {
		a.names = append(a.names, name)
	}
	a.values[name] = value
}

// Append appends value (flattened to an array) to an array-valued
// attribute. Returns false if the existing value is not an array.
func (a *Attributes) Append(name string, value types.Value, skipDuplicates bool) bool {
	newElements := toArray(value)

	existing, ok := a.Get(name)
	if !ok {
		a.Set(name, types.NewArray(newElements))
		return true
	}
	if existing.Deref().Kind() != types.KindArray {
		return false
	}

	// Copy the existing array: it may be shared with a parent collection
	// or a variable
	combined := make([]types.Value, 0, len(existing.Array())+len(newElements))
	combined = append(combined, existing.Array()...)
	for _, e := range newElements {
		if skipDuplicates && containsValue(combined, e) {
			continue
		}
		combined = append(combined, e)
	}
	a.Set(name, types.NewArray(combined))
	return true
}

// Each iterates set attributes, own entries first, then unshadowed parent
// entries. Undef entries are skipped.
func (a *Attributes) Each(fn func(name string, value types.Value) bool) {
	for _, name := range a.names {
		v := a.values[name]
		if v.IsUndef() {
			continue
		}
		if !fn(name, v) {
			return
		}
	}
	if a.parent != nil {
		a.parent.Each(func(name string, value types.Value) bool {
			if _, shadowed := a.values[name]; shadowed {
				return true
			}
			return fn(name, value)
		})
	}
}

func toArray(v types.Value) []types.Value {
	d := v.Deref()
	if d.Kind() == types.KindArray {
		out := make([]types.Value, len(d.Array()))
		copy(out, d.Array())
		return out
	}
	return []types.Value{d}
}

func containsValue(list []types.Value, v types.Value) bool {
	for _, e := range list {
		if e.Equals(v) {
			return true
		}
	}
	return false
}

// Resource is one declared resource.
type Resource struct {
	Type       types.ResourceType
	Status     Status
	Path       string
	Line       int
	Attributes *Attributes
	Tags       []string
	// Container is the resource (class, defined type, or node) whose body
	// declared this resource.
	Container *Resource
	// DefinerScope is the runtime scope in which the resource was
	// declared, used for the override permission check. Stored opaquely to
	// keep the catalog free of runtime dependencies.
	DefinerScope any
}

// Ref returns the fully-qualified reference for the resource.
func (r *Resource) Ref() types.ResourceType { return r.Type }

// String renders the resource reference.
func (r *Resource) String() string { return r.Type.String() }

// AddTag records a tag once.
func (r *Resource) AddTag(tag string) {
	for _, t := range r.Tags {
		if t == tag {
			return
		}
	}
	r.Tags = append(r.Tags, tag)
}

// ClassDefinition is a registered class body. A class may be defined in
// several bodies but declared (evaluated) at most once.
type ClassDefinition struct {
	Name       string // fully qualified, lowercase
	Parent     string
	ParentPos  lexer.Position
	Parameters []ast.Parameter
	Body       []ast.Expression
	Path       string
	Line       int
	Evaluated  bool
}

// DefinedTypeDefinition is a registered defined type.
type DefinedTypeDefinition struct {
	Name       string
	Parameters []ast.Parameter
	Body       []ast.Expression
	Path       string
	Line       int
}

// NodeDefinition is a registered node block.
type NodeDefinition struct {
	Names []ast.Hostname
	Body  []ast.Expression
	Path  string
	Line  int
}

// Relationship names the metaparameter an edge came from.
type Relationship int

const (
	RelationBefore Relationship = iota
	RelationNotify
	RelationRequire
	RelationSubscribe
	RelationAfter
)

// String returns the metaparameter name.
func (r Relationship) String() string {
	switch r {
	case RelationBefore:
		return "before"
	case RelationNotify:
		return "notify"
	case RelationRequire:
		return "require"
	case RelationSubscribe:
		return "subscribe"
	case RelationAfter:
		return "after"
	}
	return "unknown"
}

// Edge is a direction-normalized relationship: Source must be applied
// before Target.
type Edge struct {
	Source *Resource
	Target *Resource
	Kind   Relationship
}

// Catalog is the compilation output.
type Catalog struct {
	resources map[string]map[string]*Resource
	order     []*Resource

	classes      map[string][]*ClassDefinition
	definedTypes map[string]*DefinedTypeDefinition

	nodes       []*NodeDefinition
	namedNodes  map[string]int
	regexNodes  []regexNode
	defaultNode int // index+1; 0 means unset

	edges []Edge

	// Defaults are tracked per evaluation scope by the runtime; the
	// catalog records them per scope handle.
	defaults map[any]map[string][]ast.Attribute
}

type regexNode struct {
	pattern *regexp.Regexp
	source  string
	index   int
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{
		resources:    make(map[string]map[string]*Resource),
		classes:      make(map[string][]*ClassDefinition),
		definedTypes: make(map[string]*DefinedTypeDefinition),
		namedNodes:   make(map[string]int),
		defaults:     make(map[any]map[string][]ast.Attribute),
	}
}

// NormalizeTitle trims and canonicalizes a title for keying.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// Find returns the resource for a fully-qualified reference, or nil.
func (c *Catalog) Find(ref types.ResourceType) *Resource {
	if !ref.FullyQualified() {
		return nil
	}
	byTitle, ok := c.resources[ref.TypeName]
	if !ok {
		return nil
	}
	return byTitle[NormalizeTitle(ref.Title)]
}

// Add declares a resource. Declaring a (type, title) pair twice is an
// error that reports the previous declaration site.
func (c *Catalog) Add(ref types.ResourceType, path string, line int, attributes *Attributes, status Status) (*Resource, error) {
	if !ref.FullyQualified() {
		return nil, fmt.Errorf("resource name is not fully qualified")
	}
	if attributes == nil {
		attributes = NewAttributes(nil)
	}

	byTitle, ok := c.resources[ref.TypeName]
	if !ok {
		byTitle = make(map[string]*Resource)
		c.resources[ref.TypeName] = byTitle
	}
	key := NormalizeTitle(ref.Title)
	if existing, ok := byTitle[key]; ok {
		return nil, fmt.Errorf("resource %s was previously declared at %s:%d", existing, existing.Path, existing.Line)
	}

	resource := &Resource{
		Type:       ref,
		Status:     status,
		Path:       path,
		Line:       line,
		Attributes: attributes,
	}
	byTitle[key] = resource
	c.order = append(c.order, resource)
	return resource, nil
}

// Each iterates realized resources in declaration order.
func (c *Catalog) Each(fn func(r *Resource) bool) {
	for _, r := range c.order {
		if !r.Status.Realized() {
			continue
		}
		if !fn(r) {
			return
		}
	}
}

// EachDeclared iterates all resources, realized or not, in declaration
// order.
func (c *Catalog) EachDeclared(fn func(r *Resource) bool) {
	for _, r := range c.order {
		if !fn(r) {
			return
		}
	}
}

// Size returns the number of realized resources.
func (c *Catalog) Size() int {
	n := 0
	c.Each(func(*Resource) bool { n++; return true })
	return n
}

// DefineClass registers a class body.
func (c *Catalog) DefineClass(def *ClassDefinition) {
	c.classes[def.Name] = append(c.classes[def.Name], def)
}

// FindClass returns the definitions for a class name, or nil.
func (c *Catalog) FindClass(name string) []*ClassDefinition {
	return c.classes[strings.ToLower(name)]
}

// DefineType registers a defined type; a second definition is an error.
func (c *Catalog) DefineType(def *DefinedTypeDefinition) error {
	if existing, ok := c.definedTypes[def.Name]; ok {
		return fmt.Errorf("defined type '%s' was previously defined at %s:%d", existing.Name, existing.Path, existing.Line)
	}
	c.definedTypes[def.Name] = def
	return nil
}

// FindDefinedType returns the defined type for a name, or nil.
func (c *Catalog) FindDefinedType(name string) *DefinedTypeDefinition {
	return c.definedTypes[strings.ToLower(name)]
}

// DefineNode registers a node block; duplicate names, patterns, or default
// blocks are errors.
func (c *Catalog) DefineNode(def *NodeDefinition) error {
	c.nodes = append(c.nodes, def)
	index := len(c.nodes) - 1

	for _, name := range def.Names {
		switch {
		case name.Default:
			if c.defaultNode != 0 {
				previous := c.nodes[c.defaultNode-1]
				return fmt.Errorf("a default node was previously defined at %s:%d", previous.Path, previous.Line)
			}
			c.defaultNode = index + 1
		case name.Regex:
			for _, existing := range c.regexNodes {
				if existing.source == name.Value {
					previous := c.nodes[existing.index]
					return fmt.Errorf("node /%s/ was previously defined at %s:%d", name.Value, previous.Path, previous.Line)
				}
			}
			re, err := regexp.Compile(name.Value)
			if err != nil {
				return fmt.Errorf("invalid regular expression: %w", err)
			}
			c.regexNodes = append(c.regexNodes, regexNode{pattern: re, source: name.Value, index: index})
		default:
			lowered := strings.ToLower(name.Value)
			if existing, ok := c.namedNodes[lowered]; ok {
				previous := c.nodes[existing]
				return fmt.Errorf("node '%s' was previously defined at %s:%d", name.Value, previous.Path, previous.Line)
			}
			c.namedNodes[lowered] = index
		}
	}
	return nil
}

// HasNodes reports whether any node blocks were defined.
func (c *Catalog) HasNodes() bool { return len(c.nodes) > 0 }

// MatchNode selects the node definition for a node name: exact names win,
// then regex patterns, then the default block. The returned display name
// is what the Node resource is titled with.
func (c *Catalog) MatchNode(nodeName string) (*NodeDefinition, string, error) {
	lowered := strings.ToLower(nodeName)
	if index, ok := c.namedNodes[lowered]; ok {
		return c.nodes[index], lowered, nil
	}
	for _, rn := range c.regexNodes {
		if rn.pattern.MatchString(nodeName) {
			return c.nodes[rn.index], "/" + rn.source + "/", nil
		}
	}
	if c.defaultNode != 0 {
		return c.nodes[c.defaultNode-1], "default", nil
	}
	return nil, "", fmt.Errorf("could not find a default node or a node matching '%s'", nodeName)
}

// SetDefaults records resource defaults for a scope handle.
func (c *Catalog) SetDefaults(scope any, typeName string, attributes []ast.Attribute) {
	byType, ok := c.defaults[scope]
	if !ok {
		byType = make(map[string][]ast.Attribute)
		c.defaults[scope] = byType
	}
	byType[typeName] = append(byType[typeName], attributes...)
}

// DefaultsFor returns the recorded defaults for a scope handle and type.
func (c *Catalog) DefaultsFor(scope any, typeName string) []ast.Attribute {
	if byType, ok := c.defaults[scope]; ok {
		return byType[typeName]
	}
	return nil
}

// Edges returns the relationship edges in insertion order.
func (c *Catalog) Edges() []Edge { return c.edges }

// addEdge inserts a direction-normalized edge, skipping duplicates.
func (c *Catalog) addEdge(source, target *Resource, kind Relationship) {
	for _, e := range c.edges {
		if e.Source == source && e.Target == target {
			return
		}
	}
	c.edges = append(c.edges, Edge{Source: source, Target: target, Kind: kind})
}

// Finalize converts relationship metaparameters into edges, validates
// every edge target, and rejects dependency cycles.
func (c *Catalog) Finalize() error {
	order := []struct {
		name string
		kind Relationship
	}{
		{"before", RelationBefore},
		{"notify", RelationNotify},
		{"require", RelationRequire},
		{"subscribe", RelationSubscribe},
		{"after", RelationAfter},
	}
	var failure error
	c.Each(func(source *Resource) bool {
		for _, rel := range order {
			value, ok := source.Attributes.Get(rel.name)
			if !ok {
				continue
			}
			refs, err := ResourceRefsFromValue(value)
			if err != nil {
				failure = fmt.Errorf("resource %s (declared at %s:%d) cannot form a '%s' relationship: %w", source, source.Path, source.Line, rel.name, err)
				return false
			}
			for _, ref := range refs {
				target := c.Find(ref)
				if target == nil {
					failure = fmt.Errorf("resource %s (declared at %s:%d) cannot form a '%s' relationship with resource %s: the resource does not exist in the catalog", source, source.Path, source.Line, rel.name, ref)
					return false
				}
				if target == source {
					failure = fmt.Errorf("resource %s (declared at %s:%d) cannot form a '%s' relationship with itself", source, source.Path, source.Line, rel.name)
					return false
				}
				// require, subscribe, and after point backwards
				if rel.kind == RelationRequire || rel.kind == RelationSubscribe || rel.kind == RelationAfter {
					c.addEdge(target, source, rel.kind)
				} else {
					c.addEdge(source, target, rel.kind)
				}
			}
		}
		return true
	})
	if failure != nil {
		return failure
	}
	return c.detectCycles()
}

// detectCycles rejects dependency cycles, rendering the cycle path.
func (c *Catalog) detectCycles() error {
	adjacent := make(map[*Resource][]*Resource)
	for _, e := range c.edges {
		adjacent[e.Source] = append(adjacent[e.Source], e.Target)
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[*Resource]int)
	var stack []*Resource
	var cycle []*Resource

	var visit func(r *Resource) bool
	visit = func(r *Resource) bool {
		state[r] = visiting
		stack = append(stack, r)
		for _, next := range adjacent[r] {
			switch state[next] {
			case visiting:
				start := 0
				for i, s := range stack {
					if s == next {
						start = i
						break
					}
				}
				cycle = append([]*Resource{}, stack[start:]...)
				return false
			case unvisited:
				if !visit(next) {
					return false
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[r] = done
		return true
	}

	for _, r := range c.order {
		if state[r] == unvisited {
			if !visit(r) {
				parts := make([]string, 0, len(cycle)+1)
				for _, s := range cycle {
					parts = append(parts, fmt.Sprintf("%s declared at %s:%d", s, s.Path, s.Line))
				}
				parts = append(parts, cycle[0].String())
				return fmt.Errorf("found a resource dependency cycle: %s", strings.Join(parts, " => "))
			}
		}
	}
	return nil
}

// ResourceRefsFromValue converts a value into fully-qualified resource
// references: a resource or class type, a class name string, or an array
// of those.
func ResourceRefsFromValue(v types.Value) ([]types.ResourceType, error) {
	d := v.Deref()
	switch d.Kind() {
	case types.KindType:
		switch t := d.Type().(type) {
		case types.ResourceType:
			if !t.FullyQualified() {
				return nil, fmt.Errorf("expected a fully-qualified resource reference but found %s", t)
			}
			return []types.ResourceType{t}, nil
		case types.ClassType:
			if t.Title == "" {
				return nil, fmt.Errorf("expected a fully-qualified class reference")
			}
			return []types.ResourceType{types.NewResourceType("class", t.Title)}, nil
		}
		return nil, fmt.Errorf("expected a resource reference but found %s", d.Type())
	case types.KindString:
		return []types.ResourceType{types.NewResourceType("class", d.Str())}, nil
	case types.KindArray:
		var refs []types.ResourceType
		for _, e := range d.Array() {
			sub, err := ResourceRefsFromValue(e)
			if err != nil {
				return nil, err
			}
			refs = append(refs, sub...)
		}
		return refs, nil
	}
	return nil, fmt.Errorf("expected a resource reference but found %s", d.Kind())
}
