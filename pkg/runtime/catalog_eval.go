package runtime

import (
	"strings"

	"github.com/lemonberrylabs/manifestc/pkg/ast"
	"github.com/lemonberrylabs/manifestc/pkg/catalog"
	"github.com/lemonberrylabs/manifestc/pkg/lexer"
	"github.com/lemonberrylabs/manifestc/pkg/types"
)

// evaluateResource declares the resources of a resource expression and
// returns the array of their references.
func (e *Evaluator) evaluateResource(n *ast.ResourceExpr) (types.Value, error) {
	cat := e.ctx.Catalog()
	if cat == nil {
		return types.Undef, e.errorf(n.Position, "catalog expressions are not supported")
	}

	typeName, isClass, err := e.resourceTypeName(n.Type)
	if err != nil {
		return types.Undef, err
	}
	if isClass && n.Status != ast.StatusRealized {
		return types.Undef, e.errorf(n.Position, "classes cannot be virtual or exported")
	}
	isDefinedType := !isClass && cat.FindDefinedType(typeName) != nil

	status := catalog.StatusReal
	switch n.Status {
	case ast.StatusVirtualized:
		status = catalog.StatusVirtual
	case ast.StatusExported:
		status = catalog.StatusExported
	}

	// A body titled with the default literal supplies attribute defaults
	// for its siblings
	defaultBody, err := e.findDefaultBody(n)
	if err != nil {
		return types.Undef, err
	}
	var defaults *catalog.Attributes
	if defaultBody != nil {
		defaults, err = e.evaluateBodyAttributes(typeName, defaultBody, nil)
		if err != nil {
			return types.Undef, err
		}
	}

	var refs []types.Value
	for i := range n.Bodies {
		body := &n.Bodies[i]
		if body == defaultBody {
			continue
		}
		title, err := e.Evaluate(&body.Title, false)
		if err != nil {
			return types.Undef, err
		}

		attributes, err := e.evaluateBodyAttributes(typeName, body, defaults)
		if err != nil {
			return types.Undef, err
		}
		if attributes == nil {
			attributes = catalog.NewAttributes(defaults)
		}
		e.applyScopeDefaults(typeName, attributes)

		titles, err := e.resourceTitles(title, body.Position)
		if err != nil {
			return types.Undef, err
		}
		for _, resourceTitle := range titles {
			ref := types.NewResourceType(typeName, resourceTitle)
			switch {
			case isClass:
				if _, err := e.declareClass(types.NewResourceType("class", resourceTitle), body.Position, attributes); err != nil {
					return types.Undef, err
				}
			case isDefinedType:
				if _, err := e.declareDefinedType(ref, body.Position, attributes); err != nil {
					return types.Undef, err
				}
			default:
				resource, err := cat.Add(ref, e.path, body.Position.Line, attributes, status)
				if err != nil {
					return types.Undef, e.errorf(body.Position, "%s", err)
				}
				resource.DefinerScope = e.ctx.CurrentScope()
				if container := e.ctx.CurrentScope().Resource(); container != nil {
					resource.Container = container
				}
				resource.AddTag(typeName)
			}
			refs = append(refs, types.NewType(ref))
		}
	}
	return types.NewArray(refs), nil
}

// resourceTypeName resolves a resource expression's type: a name string, the
// class keyword, or an unqualified resource type.
func (e *Evaluator) resourceTypeName(typeExpr ast.PrimaryExpr) (string, bool, error) {
	value, err := e.EvaluatePrimary(typeExpr)
	if err != nil {
		return "", false, err
	}
	d := value.Deref()
	switch d.Kind() {
	case types.KindString:
		name := strings.ToLower(d.Str())
		return name, name == "class", nil
	case types.KindType:
		if rt, ok := d.Type().(types.ResourceType); ok && rt.Title == "" && rt.TypeName != "" {
			return rt.TypeName, rt.IsClass(), nil
		}
	}
	return "", false, e.errorf(typeExpr.Pos(), "expected %s or qualified %s for resource type but found %s", types.NewStringType(), types.ResourceType{}, types.TypeOf(value))
}

// resourceTitles flattens a title expression into the list of titles; a
// title may be a string or an array of strings.
func (e *Evaluator) resourceTitles(title types.Value, pos lexer.Position) ([]string, error) {
	d := title.Deref()
	switch d.Kind() {
	case types.KindString:
		if d.Str() == "" {
			return nil, e.errorf(pos, "resource title cannot be empty")
		}
		return []string{d.Str()}, nil
	case types.KindArray:
		var titles []string
		for _, element := range d.Array() {
			sub, err := e.resourceTitles(element, pos)
			if err != nil {
				return nil, err
			}
			titles = append(titles, sub...)
		}
		return titles, nil
	}
	return nil, e.errorf(pos, "expected %s or %s for resource title", types.NewStringType(), types.ArrayType{Element: types.NewStringType()})
}

// findDefaultBody returns the body titled default, rejecting more than one.
func (e *Evaluator) findDefaultBody(n *ast.ResourceExpr) (*ast.ResourceBody, error) {
	var defaultBody *ast.ResourceBody
	for i := range n.Bodies {
		body := &n.Bodies[i]
		if !isDefaultTitle(&body.Title) {
			continue
		}
		if defaultBody != nil {
			return nil, e.errorf(body.Position, "only one default body is supported in a resource expression")
		}
		defaultBody = body
	}
	return defaultBody, nil
}

func isDefaultTitle(expr *ast.Expression) bool {
	if len(expr.Binary) != 0 {
		return false
	}
	switch n := expr.Primary.(type) {
	case *ast.Default:
		return true
	case *ast.Expression:
		return isDefaultTitle(n)
	}
	return false
}

// evaluateBodyAttributes evaluates a body's attributes. Assignment sets
// the attribute; append (+>) extends the nearest default (a default body
// entry or a per-scope resource default) for array-valued metaparameters.
// Duplicate names are rejected.
func (e *Evaluator) evaluateBodyAttributes(typeName string, body *ast.ResourceBody, parent *catalog.Attributes) (*catalog.Attributes, error) {
	if len(body.Attributes) == 0 {
		return nil, nil
	}
	attributes := catalog.NewAttributes(parent)
	for i := range body.Attributes {
		attribute := &body.Attributes[i]
		if _, exists := attributes.GetLocal(attribute.Name); exists {
			return nil, e.errorf(attribute.NamePos, "attribute '%s' already exists in this resource body", attribute.Name)
		}
		value, err := e.evaluateAttributeValue(attribute)
		if err != nil {
			return nil, err
		}
		if attribute.Op == ast.AttributeAppend {
			base, ok := e.defaultAttributeValue(typeName, attribute.Name, attributes)
			combined := make([]types.Value, 0)
			if ok {
				if base.Deref().Kind() != types.KindArray {
					return nil, e.errorf(attribute.NamePos, "attribute '%s' cannot be appended to: the default value is not an array", attribute.Name)
				}
				combined = append(combined, base.Array()...)
			}
			if value.Deref().Kind() == types.KindArray {
				combined = append(combined, value.Array()...)
			} else {
				combined = append(combined, value.Deref())
			}
			value = types.NewArray(combined)
		}
		attributes.Set(attribute.Name, value)
	}
	return attributes, nil
}

// defaultAttributeValue resolves the value an append operation extends: a
// default-body entry, or the nearest per-scope resource default.
func (e *Evaluator) defaultAttributeValue(typeName, name string, attributes *catalog.Attributes) (types.Value, bool) {
	if v, ok := attributes.Get(name); ok {
		return v, true
	}
	cat := e.ctx.Catalog()
	for scope := e.ctx.CurrentScope(); scope != nil; scope = scope.Parent() {
		for _, attribute := range cat.DefaultsFor(scope, typeName) {
			if attribute.Name != name {
				continue
			}
			value, err := e.evaluateAttributeValue(&attribute)
			if err != nil {
				continue
			}
			return value, true
		}
	}
	return types.Undef, false
}

// Metaparameter value types; relationship parameters accept resource
// references or class name strings, and single values convert to arrays.
var (
	metaStringArray  = types.ArrayType{Element: types.NewStringType(), Max: types.MaxInteger}
	metaRelationship = types.ArrayType{
		Element: types.VariantType{Types: []types.Type{types.NewStringType(), types.CatalogEntryType{}}},
		Max:     types.MaxInteger,
	}
	metaLogLevel = types.EnumType{Values: []string{
		"debug", "info", "notice", "warning", "err", "alert", "emerg", "crit", "verbose",
	}}
	metaAudit = types.VariantType{Types: []types.Type{types.NewStringType(), metaStringArray}}
)

// evaluateAttributeValue evaluates an attribute value and validates
// metaparameters.
func (e *Evaluator) evaluateAttributeValue(attribute *ast.Attribute) (types.Value, error) {
	value, err := e.Evaluate(&attribute.Value, false)
	if err != nil {
		return types.Undef, err
	}

	var expected types.Type
	toArray := false
	switch attribute.Name {
	case "alias", "tag":
		expected = metaStringArray
		toArray = true
	case "before", "after", "notify", "require", "subscribe":
		expected = metaRelationship
		toArray = true
	case "audit":
		expected = metaAudit
	case "loglevel":
		expected = metaLogLevel
	case "noop":
		expected = types.BooleanType{}
	case "schedule", "stage":
		expected = types.NewStringType()
	default:
		return value, nil
	}

	if toArray && value.Deref().Kind() != types.KindArray {
		value = types.NewArray([]types.Value{value.Deref()})
	}
	if !expected.IsInstance(value) {
		return types.Undef, e.errorf(attribute.Value.Pos(), "expected %s for attribute '%s' but found %s", expected, attribute.Name, types.TypeOf(value))
	}
	return value, nil
}

// applyScopeDefaults fills unset attributes from resource defaults,
// searching from the current scope outward; the nearest scope wins.
func (e *Evaluator) applyScopeDefaults(typeName string, attributes *catalog.Attributes) {
	cat := e.ctx.Catalog()
	for scope := e.ctx.CurrentScope(); scope != nil; scope = scope.Parent() {
		for _, attribute := range cat.DefaultsFor(scope, typeName) {
			if _, set := attributes.Get(attribute.Name); set {
				continue
			}
			value, err := e.evaluateAttributeValue(&attribute)
			if err != nil {
				continue
			}
			attributes.Set(attribute.Name, value)
		}
	}
}

// evaluateResourceDefaults records per-scope attribute defaults for a
// resource type.
func (e *Evaluator) evaluateResourceDefaults(n *ast.ResourceDefaultsExpr) (types.Value, error) {
	cat := e.ctx.Catalog()
	if cat == nil {
		return types.Undef, e.errorf(n.Position, "catalog expressions are not supported")
	}
	for i := range n.Attributes {
		if n.Attributes[i].Op != ast.AttributeAssign {
			return types.Undef, e.errorf(n.Attributes[i].NamePos, "illegal attribute operation '%s': only '=>' is supported in a resource defaults expression", n.Attributes[i].Op)
		}
	}
	cat.SetDefaults(e.ctx.CurrentScope(), strings.ToLower(n.TypeName), n.Attributes)
	return types.NewType(types.NewResourceType(n.TypeName, "")), nil
}

// evaluateResourceOverride updates attributes of already-declared
// resources. Replacing an existing attribute is only permitted when the
// current scope encloses the scope that declared the resource.
func (e *Evaluator) evaluateResourceOverride(n *ast.ResourceOverrideExpr) (types.Value, error) {
	cat := e.ctx.Catalog()
	if cat == nil {
		return types.Undef, e.errorf(n.Position, "catalog expressions are not supported")
	}

	reference, err := e.EvaluatePrimary(n.Reference)
	if err != nil {
		return types.Undef, err
	}
	refs, err := catalog.ResourceRefsFromValue(reference)
	if err != nil {
		return types.Undef, e.errorf(n.Reference.Pos(), "expected qualified %s but found %s", types.ResourceType{}, types.TypeOf(reference))
	}

	var resources []*catalog.Resource
	for _, ref := range refs {
		if ref.IsClass() {
			return types.Undef, e.errorf(n.Reference.Pos(), "cannot override attributes of a class resource")
		}
		resource := cat.Find(ref)
		if resource == nil {
			return types.Undef, e.errorf(n.Reference.Pos(), "resource %s does not exist in the catalog", ref)
		}
		resources = append(resources, resource)
	}

	for i := range n.Attributes {
		attribute := &n.Attributes[i]
		value, err := e.evaluateAttributeValue(attribute)
		if err != nil {
			return types.Undef, err
		}
		for _, resource := range resources {
			override := e.mayOverride(resource)
			_, exists := resource.Attributes.Get(attribute.Name)
			if attribute.Op == ast.AttributeAssign {
				if exists && !override {
					if value.IsUndef() {
						return types.Undef, e.errorf(attribute.NamePos, "cannot remove attribute '%s' from resource %s", attribute.Name, resource)
					}
					return types.Undef, e.errorf(attribute.NamePos, "attribute '%s' has already been set for resource %s", attribute.Name, resource)
				}
				resource.Attributes.Set(attribute.Name, value)
			} else {
				if exists && !override {
					return types.Undef, e.errorf(attribute.NamePos, "attribute '%s' has already been set for resource %s and cannot be appended to", attribute.Name, resource)
				}
				if !resource.Attributes.Append(attribute.Name, value, false) {
					return types.Undef, e.errorf(attribute.NamePos, "attribute '%s' is not an array", attribute.Name)
				}
			}
		}
	}
	return reference, nil
}

// mayOverride reports whether the current scope may replace attributes of
// the resource: it must strictly enclose the declaring scope.
func (e *Evaluator) mayOverride(resource *catalog.Resource) bool {
	definer, ok := resource.DefinerScope.(*Scope)
	if !ok || definer == nil {
		return false
	}
	current := e.ctx.CurrentScope()
	return current != definer && current.Encloses(definer)
}

// evaluateCollection realizes virtual (<| |>) or exported (<<| |>>)
// resources matching the query and returns their references.
func (e *Evaluator) evaluateCollection(n *ast.CollectionExpr) (types.Value, error) {
	cat := e.ctx.Catalog()
	if cat == nil {
		return types.Undef, e.errorf(n.Position, "catalog expressions are not supported")
	}
	typeName := strings.ToLower(n.TypeName)
	if typeName == "class" {
		return types.Undef, e.errorf(n.Position, "classes cannot be collected")
	}

	var refs []types.Value
	var failure error
	cat.EachDeclared(func(resource *catalog.Resource) bool {
		if resource.Type.TypeName != typeName {
			return true
		}
		matches, err := e.matchQuery(n, resource)
		if err != nil {
			failure = err
			return false
		}
		if !matches {
			return true
		}
		switch {
		case n.Kind == ast.CollectAll && resource.Status == catalog.StatusVirtual:
			resource.Status = catalog.StatusRealizedFromVirtual
		case n.Kind == ast.CollectExported && resource.Status == catalog.StatusExported:
			resource.Status = catalog.StatusRealizedFromExported
		case resource.Status.Realized() && n.Kind == ast.CollectAll:
			// Already realized resources still appear in the result
		default:
			return true
		}
		refs = append(refs, types.NewType(resource.Type))
		return true
	})
	if failure != nil {
		return types.Undef, failure
	}
	return types.NewArray(refs), nil
}

// matchQuery evaluates a collection query against a resource. Queries
// combine attribute comparisons with and/or, left to right.
func (e *Evaluator) matchQuery(n *ast.CollectionExpr, resource *catalog.Resource) (bool, error) {
	if n.First == nil {
		return true, nil
	}
	result, err := e.matchAttrQuery(n.First, resource)
	if err != nil {
		return false, err
	}
	for i := range n.Rest {
		next, err := e.matchAttrQuery(&n.Rest[i].Query, resource)
		if err != nil {
			return false, err
		}
		if n.Rest[i].Op == ast.QueryAnd {
			result = result && next
		} else {
			result = result || next
		}
	}
	return result, nil
}

func (e *Evaluator) matchAttrQuery(q *ast.AttrQuery, resource *catalog.Resource) (bool, error) {
	expected, err := e.EvaluatePrimary(q.Value)
	if err != nil {
		return false, err
	}
	var actual types.Value
	if q.Name == "title" || q.Name == "name" {
		actual = types.NewString(resource.Type.Title)
	} else {
		value, ok := resource.Attributes.Get(q.Name)
		if !ok {
			value = types.Undef
		}
		actual = value
	}
	equal := actual.Equals(expected)
	if q.Op == ast.QueryNotEquals {
		return !equal, nil
	}
	return equal, nil
}

// declareClass declares a class: the first declaration evaluates every
// definition body in a new class scope; repeated declarations with
// identical attributes are no-ops, and with different attributes are
// errors.
func (e *Evaluator) declareClass(ref types.ResourceType, pos lexer.Position, attributes *catalog.Attributes) (*catalog.Resource, error) {
	cat := e.ctx.Catalog()
	if !ref.IsClass() {
		return nil, e.errorf(pos, "expected a class resource")
	}
	if !ref.FullyQualified() {
		return nil, e.errorf(pos, "class name is not fully qualified")
	}
	name := catalog.NormalizeTitle(ref.Title)
	ref = types.NewResourceType("class", name)

	if existing := cat.Find(ref); existing != nil {
		// A declaration without attributes (include) is idempotent; with
		// attributes, they must match the first declaration
		if attributes == nil || attributesEqual(existing.Attributes, attributes) {
			return existing, nil
		}
		return nil, e.errorf(pos, "class '%s' was previously declared at %s:%d with different parameters", name, existing.Path, existing.Line)
	}

	definitions := cat.FindClass(name)
	if len(definitions) == 0 {
		return nil, e.errorf(pos, "cannot declare class '%s' because it has not been defined", name)
	}

	resource, err := cat.Add(ref, e.path, pos.Line, attributes, catalog.StatusReal)
	if err != nil {
		return nil, e.errorf(pos, "%s", err)
	}
	resource.DefinerScope = e.ctx.CurrentScope()
	resource.AddTag("class")
	resource.AddTag(name)

	for _, definition := range definitions {
		if err := e.evaluateClassDefinition(definition, resource, pos); err != nil {
			return nil, err
		}
	}
	return resource, nil
}

func attributesEqual(a, b *catalog.Attributes) bool {
	collect := func(attrs *catalog.Attributes) map[string]types.Value {
		out := make(map[string]types.Value)
		if attrs != nil {
			attrs.Each(func(name string, value types.Value) bool {
				out[name] = value
				return true
			})
		}
		return out
	}
	am := collect(a)
	bm := collect(b)
	if len(am) != len(bm) {
		return false
	}
	for name, value := range am {
		other, ok := bm[name]
		if !ok || !value.Equals(other) {
			return false
		}
	}
	return true
}

// evaluateClassDefinition evaluates one class body in the class's scope.
func (e *Evaluator) evaluateClassDefinition(definition *catalog.ClassDefinition, resource *catalog.Resource, pos lexer.Position) error {
	if definition.Evaluated {
		return nil
	}
	definition.Evaluated = true

	parentScope, err := e.classParentScope(definition, pos)
	if err != nil {
		return err
	}

	scope := NewScope(parentScope, resource)
	e.ctx.AddNamedScope(definition.Name, scope)

	evaluator := e.ctx.EvaluatorFor(definition.Path)
	e.ctx.PushScope(scope)
	defer e.ctx.PopScope()

	if err := evaluator.bindResourceParameters(definition.Parameters, resource, true); err != nil {
		return err
	}
	_, err = evaluator.EvaluateBlock(definition.Body)
	if err != nil {
		return wrapClassError(e, pos, definition.Name, err)
	}
	return nil
}

func wrapClassError(e *Evaluator, pos lexer.Position, name string, err error) error {
	if ee, ok := err.(*types.EvaluationError); ok && ee.Path != "" {
		// Keep the inner position; it is more precise
		return err
	}
	return e.errorf(pos, "failed to evaluate class '%s': %s", name, err)
}

// classParentScope resolves (declaring on demand) the parent class scope,
// or the node/top scope when the class has no parent.
func (e *Evaluator) classParentScope(definition *catalog.ClassDefinition, pos lexer.Position) (*Scope, error) {
	if definition.Parent == "" {
		return e.ctx.NodeOrTop(), nil
	}
	parentRef := types.NewResourceType("class", definition.Parent)
	if e.ctx.Catalog().Find(parentRef) == nil {
		if _, err := e.declareClass(parentRef, definition.ParentPos, nil); err != nil {
			return nil, err
		}
	}
	scope := e.ctx.FindScope(definition.Parent)
	if scope == nil {
		return nil, e.errorf(pos, "could not resolve scope of parent class '%s'", definition.Parent)
	}
	return scope, nil
}

// declareDefinedType declares one instance of a defined type, evaluating
// the body once per title with $title and $name bound.
func (e *Evaluator) declareDefinedType(ref types.ResourceType, pos lexer.Position, attributes *catalog.Attributes) (*catalog.Resource, error) {
	cat := e.ctx.Catalog()
	if !ref.FullyQualified() {
		return nil, e.errorf(pos, "defined type name is not fully qualified")
	}
	definition := cat.FindDefinedType(ref.TypeName)
	if definition == nil {
		return nil, e.errorf(pos, "cannot declare defined type %s because it has not been defined", ref)
	}
	resource, err := cat.Add(ref, e.path, pos.Line, attributes, catalog.StatusReal)
	if err != nil {
		return nil, e.errorf(pos, "%s", err)
	}
	resource.DefinerScope = e.ctx.CurrentScope()
	resource.AddTag(ref.TypeName)

	scope := NewScope(e.ctx.NodeOrTop(), resource)
	evaluator := e.ctx.EvaluatorFor(definition.Path)
	e.ctx.PushScope(scope)
	defer e.ctx.PopScope()

	if err := evaluator.bindResourceParameters(definition.Parameters, resource, false); err != nil {
		return nil, err
	}
	if _, err := evaluator.EvaluateBlock(definition.Body); err != nil {
		return nil, err
	}
	return resource, nil
}

// bindResourceParameters binds class or defined-type parameters from the
// resource's attributes into the current scope. Parameter defaults
// evaluate left to right in the class's own scope, so later defaults see
// earlier parameters. Attributes that are neither parameters nor
// metaparameters are rejected.
func (e *Evaluator) bindResourceParameters(parameters []ast.Parameter, resource *catalog.Resource, isClass bool) error {
	scope := e.ctx.CurrentScope()
	attributes := resource.Attributes

	known := make(map[string]*ast.Parameter, len(parameters))
	for i := range parameters {
		known[parameters[i].Name] = &parameters[i]
	}

	for i := range parameters {
		parameter := &parameters[i]
		value, supplied := attributes.Get(parameter.Name)
		if !supplied {
			if parameter.Default == nil {
				return e.errorf(parameter.Position, "parameter $%s is required but no value was given", parameter.Name)
			}
			var err error
			value, err = e.Evaluate(parameter.Default, false)
			if err != nil {
				return err
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

	title := types.NewString(resource.Type.Title)
	name := title

	var bindErr error
	attributes.Each(func(attrName string, value types.Value) bool {
		if attrName == "name" {
			name = value
			return true
		}
		if _, isParameter := known[attrName]; !isParameter {
			if !catalog.IsMetaparameter(attrName) {
				if isClass {
					bindErr = e.errorf(lexer.Position{Line: resource.Line, Column: 1}, "'%s' is not a valid parameter for class '%s'", attrName, resource.Type.Title)
				} else {
					bindErr = e.errorf(lexer.Position{Line: resource.Line, Column: 1}, "'%s' is not a valid parameter for defined type '%s'", attrName, resource.Type.DisplayName())
				}
				return false
			}
			owned := value
			scope.Set(attrName, &owned, resource.Path, resource.Line)
		}
		return true
	})
	if bindErr != nil {
		return bindErr
	}

	scope.Set("title", &title, e.path, resource.Line)
	scope.Set("name", &name, e.path, resource.Line)
	return nil
}

// EvaluateNode selects and evaluates the node definition for a node name,
// entering the node scope for the duration of the body.
func (e *Evaluator) EvaluateNode(nodeName string) error {
	cat := e.ctx.Catalog()
	if !cat.HasNodes() {
		return nil
	}
	definition, displayName, err := cat.MatchNode(nodeName)
	if err != nil {
		return e.errorf(lexer.Position{Line: 1, Column: 1}, "%s", err)
	}

	resource, err := cat.Add(types.NewResourceType("node", displayName), definition.Path, definition.Line, nil, catalog.StatusReal)
	if err != nil {
		return e.errorf(lexer.Position{Line: definition.Line, Column: 1}, "%s", err)
	}

	e.ctx.PushNodeScope(resource)
	defer e.ctx.PopNodeScope()

	evaluator := e.ctx.EvaluatorFor(definition.Path)
	_, err = evaluator.EvaluateBlock(definition.Body)
	return err
}
