package runtime

import (
	"strings"

	"github.com/lemonberrylabs/manifestc/pkg/ast"
	"github.com/lemonberrylabs/manifestc/pkg/catalog"
	"github.com/lemonberrylabs/manifestc/pkg/lexer"
	"github.com/lemonberrylabs/manifestc/pkg/types"
)

// DefinitionScanner walks a syntax tree before evaluation and registers
// class, defined type, and node definitions into the catalog. Classes can
// be declared before they are defined, so scanning must complete first.
type DefinitionScanner struct {
	catalog *catalog.Catalog
	path    string
	source  string

	// scopes tracks nesting for name qualification: an empty entry means
	// definitions are not allowed in the enclosing construct.
	scopes []scannerScope
}

type scannerScope struct {
	name    string
	canHold bool // definitions may appear at this nesting level
}

// NewDefinitionScanner creates a scanner for one manifest.
func NewDefinitionScanner(cat *catalog.Catalog, path, source string) *DefinitionScanner {
	return &DefinitionScanner{
		catalog: cat,
		path:    path,
		source:  source,
		scopes:  []scannerScope{{canHold: true}},
	}
}

func (s *DefinitionScanner) errorf(pos lexer.Position, format string, args ...any) *types.EvaluationError {
	return types.NewEvaluationError(s.path, pos, lexer.LineText(s.source, pos), format, args...)
}

// Scan registers every definition in the tree.
func (s *DefinitionScanner) Scan(tree *ast.SyntaxTree) error {
	for i := range tree.Expressions {
		if err := s.expression(&tree.Expressions[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *DefinitionScanner) push(name string, canHold bool) {
	s.scopes = append(s.scopes, scannerScope{name: name, canHold: canHold})
}

func (s *DefinitionScanner) pop() {
	s.scopes = s.scopes[:len(s.scopes)-1]
}

func (s *DefinitionScanner) canDefine() bool {
	return s.scopes[len(s.scopes)-1].canHold
}

// qualify prefixes a name with the enclosing class names.
func (s *DefinitionScanner) qualify(name string) string {
	var parts []string
	for _, scope := range s.scopes[1:] {
		if scope.name != "" {
			parts = append(parts, scope.name)
		}
	}
	parts = append(parts, name)
	return strings.ToLower(strings.Join(parts, "::"))
}

func (s *DefinitionScanner) expression(expr *ast.Expression) error {
	if err := s.primary(expr.Primary); err != nil {
		return err
	}
	for i := range expr.Binary {
		if err := s.primary(expr.Binary[i].Operand); err != nil {
			return err
		}
	}
	return nil
}

func (s *DefinitionScanner) block(body []ast.Expression) error {
	for i := range body {
		if err := s.expression(&body[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *DefinitionScanner) parameters(params []ast.Parameter) error {
	for i := range params {
		if params[i].Type != nil {
			if err := s.primary(params[i].Type); err != nil {
				return err
			}
		}
		if params[i].Default != nil {
			if err := s.expression(params[i].Default); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *DefinitionScanner) lambda(l *ast.Lambda) error {
	if l == nil {
		return nil
	}
	if err := s.parameters(l.Parameters); err != nil {
		return err
	}
	return s.block(l.Body)
}

func (s *DefinitionScanner) primary(expr ast.PrimaryExpr) error {
	switch n := expr.(type) {
	case *ast.Expression:
		s.push("", false)
		defer s.pop()
		return s.expression(n)
	case *ast.UnaryExpr:
		return s.primary(n.Operand)
	case *ast.PostfixExpr:
		if err := s.primary(n.Primary); err != nil {
			return err
		}
		for _, op := range n.Ops {
			switch o := op.(type) {
			case *ast.SelectorOp:
				for i := range o.Cases {
					if err := s.expression(&o.Cases[i].Selector); err != nil {
						return err
					}
					if err := s.expression(&o.Cases[i].Result); err != nil {
						return err
					}
				}
			case *ast.AccessOp:
				for i := range o.Args {
					if err := s.expression(&o.Args[i]); err != nil {
						return err
					}
				}
			case *ast.MethodCallOp:
				for i := range o.Args {
					if err := s.expression(&o.Args[i]); err != nil {
						return err
					}
				}
				if err := s.lambda(o.Lambda); err != nil {
					return err
				}
			}
		}
		return nil
	case *ast.Array:
		s.push("", false)
		defer s.pop()
		for i := range n.Elements {
			if err := s.expression(&n.Elements[i]); err != nil {
				return err
			}
		}
		return nil
	case *ast.Hash:
		s.push("", false)
		defer s.pop()
		for i := range n.Pairs {
			if err := s.expression(&n.Pairs[i].Key); err != nil {
				return err
			}
			if err := s.expression(&n.Pairs[i].Value); err != nil {
				return err
			}
		}
		return nil
	case *ast.CaseExpr:
		s.push("", false)
		defer s.pop()
		if err := s.expression(&n.Expression); err != nil {
			return err
		}
		for i := range n.Propositions {
			for j := range n.Propositions[i].Options {
				if err := s.expression(&n.Propositions[i].Options[j]); err != nil {
					return err
				}
			}
			if err := s.block(n.Propositions[i].Body); err != nil {
				return err
			}
		}
		return nil
	case *ast.IfExpr:
		s.push("", false)
		defer s.pop()
		if err := s.expression(&n.Conditional); err != nil {
			return err
		}
		if err := s.block(n.Body); err != nil {
			return err
		}
		for i := range n.Elsifs {
			if err := s.expression(&n.Elsifs[i].Conditional); err != nil {
				return err
			}
			if err := s.block(n.Elsifs[i].Body); err != nil {
				return err
			}
		}
		return s.block(n.Else)
	case *ast.UnlessExpr:
		s.push("", false)
		defer s.pop()
		if err := s.expression(&n.Conditional); err != nil {
			return err
		}
		if err := s.block(n.Body); err != nil {
			return err
		}
		return s.block(n.Else)
	case *ast.FunctionCallExpr:
		s.push("", false)
		defer s.pop()
		for i := range n.Args {
			if err := s.expression(&n.Args[i]); err != nil {
				return err
			}
		}
		return s.lambda(n.Lambda)
	case *ast.ResourceExpr:
		s.push("", false)
		defer s.pop()
		for i := range n.Bodies {
			if err := s.expression(&n.Bodies[i].Title); err != nil {
				return err
			}
			for j := range n.Bodies[i].Attributes {
				if err := s.expression(&n.Bodies[i].Attributes[j].Value); err != nil {
					return err
				}
			}
		}
		return nil
	case *ast.ResourceDefaultsExpr:
		s.push("", false)
		defer s.pop()
		for i := range n.Attributes {
			if err := s.expression(&n.Attributes[i].Value); err != nil {
				return err
			}
		}
		return nil
	case *ast.ResourceOverrideExpr:
		s.push("", false)
		defer s.pop()
		if err := s.primary(n.Reference); err != nil {
			return err
		}
		for i := range n.Attributes {
			if err := s.expression(&n.Attributes[i].Value); err != nil {
				return err
			}
		}
		return nil
	case *ast.CollectionExpr:
		return nil
	case *ast.ClassDefExpr:
		return s.classDefinition(n)
	case *ast.DefinedTypeExpr:
		return s.definedType(n)
	case *ast.NodeDefExpr:
		return s.nodeDefinition(n)
	}
	return nil
}

func (s *DefinitionScanner) classDefinition(n *ast.ClassDefExpr) error {
	name, err := s.validateName(true, n.Name, n.NamePos)
	if err != nil {
		return err
	}

	// A class's parent is fixed at first definition; later definitions
	// must agree
	if n.Parent != "" {
		for _, existing := range s.catalog.FindClass(name) {
			if existing.Parent == "" {
				continue
			}
			if strings.EqualFold(existing.Parent, n.Parent) {
				continue
			}
			return s.errorf(n.ParentPos, "class '%s' cannot inherit from '%s' because the class already inherits from '%s' at %s:%d", name, n.Parent, existing.Parent, existing.Path, existing.Line)
		}
	}

	if err := s.validateParameters(true, n.Parameters); err != nil {
		return err
	}

	s.catalog.DefineClass(&catalog.ClassDefinition{
		Name:       name,
		Parent:     strings.ToLower(n.Parent),
		ParentPos:  n.ParentPos,
		Parameters: n.Parameters,
		Body:       n.Body,
		Path:       s.path,
		Line:       n.Position.Line,
	})

	s.push("", false)
	err = s.parameters(n.Parameters)
	s.pop()
	if err != nil {
		return err
	}

	s.push(strings.ToLower(n.Name), true)
	defer s.pop()
	return s.block(n.Body)
}

func (s *DefinitionScanner) definedType(n *ast.DefinedTypeExpr) error {
	name, err := s.validateName(false, n.Name, n.NamePos)
	if err != nil {
		return err
	}
	if err := s.validateParameters(false, n.Parameters); err != nil {
		return err
	}
	if err := s.catalog.DefineType(&catalog.DefinedTypeDefinition{
		Name:       name,
		Parameters: n.Parameters,
		Body:       n.Body,
		Path:       s.path,
		Line:       n.Position.Line,
	}); err != nil {
		return s.errorf(n.NamePos, "%s", err)
	}

	s.push("", false)
	defer s.pop()
	if err := s.parameters(n.Parameters); err != nil {
		return err
	}
	return s.block(n.Body)
}

func (s *DefinitionScanner) nodeDefinition(n *ast.NodeDefExpr) error {
	if !s.canDefine() {
		return s.errorf(n.Position, "node definitions can only be defined at top-level or inside a class")
	}
	if err := s.catalog.DefineNode(&catalog.NodeDefinition{
		Names: n.Hostnames,
		Body:  n.Body,
		Path:  s.path,
		Line:  n.Position.Line,
	}); err != nil {
		return s.errorf(n.Position, "%s", err)
	}

	s.push("", false)
	defer s.pop()
	return s.block(n.Body)
}

// validateName checks and qualifies a class or defined type name.
func (s *DefinitionScanner) validateName(isClass bool, name string, pos lexer.Position) (string, error) {
	kind := "defined type"
	plural := "defined types"
	if isClass {
		kind = "class"
		plural = "classes"
	}
	if !s.canDefine() {
		return "", s.errorf(pos, "%s can only be defined at top-level or inside a class", plural)
	}
	if name == "" {
		return "", s.errorf(pos, "a %s cannot have an empty name", kind)
	}
	if strings.HasPrefix(name, "::") {
		return "", s.errorf(pos, "'%s' is not a valid %s name", name, kind)
	}

	qualified := s.qualify(name)
	if qualified == "main" || qualified == "settings" {
		return "", s.errorf(pos, "'%s' is the name of a built-in class and cannot be used", qualified)
	}

	// Classes and defined types share a namespace
	if isClass {
		if existing := s.catalog.FindDefinedType(qualified); existing != nil {
			return "", s.errorf(pos, "'%s' was previously defined as a defined type at %s:%d", qualified, existing.Path, existing.Line)
		}
	} else {
		if definitions := s.catalog.FindClass(qualified); len(definitions) > 0 {
			first := definitions[0]
			return "", s.errorf(pos, "'%s' was previously defined as a class at %s:%d", qualified, first.Path, first.Line)
		}
	}
	return qualified, nil
}

// validateParameters rejects reserved, metaparameter, and captures-rest
// parameters for classes and defined types.
func (s *DefinitionScanner) validateParameters(isClass bool, parameters []ast.Parameter) error {
	kind := "defined type"
	if isClass {
		kind = "class"
	}
	for i := range parameters {
		parameter := &parameters[i]
		if parameter.Name == "title" || parameter.Name == "name" {
			return s.errorf(parameter.Position, "parameter $%s is reserved and cannot be used", parameter.Name)
		}
		if parameter.Captures {
			return s.errorf(parameter.Position, "%s parameter $%s cannot \"captures rest\"", kind, parameter.Name)
		}
		if catalog.IsMetaparameter(parameter.Name) {
			return s.errorf(parameter.Position, "parameter $%s is reserved for resource metaparameter '%s'", parameter.Name, parameter.Name)
		}
	}
	return nil
}
