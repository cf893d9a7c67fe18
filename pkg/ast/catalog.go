package ast

import "github.com/lemonberrylabs/manifestc/pkg/lexer"

// ResourceStatus distinguishes real, virtual (@), and exported (@@)
// resource expressions.
type ResourceStatus int

const (
	StatusRealized ResourceStatus = iota
	StatusVirtualized
	StatusExported
)

// AttributeOp is the operator of an attribute expression.
type AttributeOp int

const (
	AttributeAssign AttributeOp = iota // =>
	AttributeAppend                    // +>
)

// String returns the operator's source text.
func (op AttributeOp) String() string {
	if op == AttributeAppend {
		return "+>"
	}
	return "=>"
}

// Attribute is one name => value entry of a resource body, defaults
// expression, or override expression.
type Attribute struct {
	Name    string
	NamePos lexer.Position
	Op      AttributeOp
	Value   Expression
}

// ResourceBody is one title: attributes group of a resource expression.
type ResourceBody struct {
	Position   lexer.Position
	Title      Expression
	Attributes []Attribute
}

// ResourceExpr declares one or more resources of a type.
type ResourceExpr struct {
	Position lexer.Position
	Status   ResourceStatus
	Type     PrimaryExpr // Name, class keyword as Name, or type expression
	Bodies   []ResourceBody
}

func (e *ResourceExpr) Pos() lexer.Position { return e.Position }
func (e *ResourceExpr) primaryExpr()        {}

// ResourceDefaultsExpr sets per-scope attribute defaults for a resource
// type: Type { attr => value }.
type ResourceDefaultsExpr struct {
	Position   lexer.Position
	TypeName   string
	Attributes []Attribute
}

func (e *ResourceDefaultsExpr) Pos() lexer.Position { return e.Position }
func (e *ResourceDefaultsExpr) primaryExpr()        {}

// ResourceOverrideExpr updates attributes of already-declared resources:
// Ref[title] { attr => value }.
type ResourceOverrideExpr struct {
	Position   lexer.Position
	Reference  PrimaryExpr
	Attributes []Attribute
}

func (e *ResourceOverrideExpr) Pos() lexer.Position { return e.Position }
func (e *ResourceOverrideExpr) primaryExpr()        {}

// ClassDefExpr defines a class.
type ClassDefExpr struct {
	Position   lexer.Position
	Name       string
	NamePos    lexer.Position
	Parameters []Parameter
	Parent     string
	ParentPos  lexer.Position
	Body       []Expression
}

func (e *ClassDefExpr) Pos() lexer.Position { return e.Position }
func (e *ClassDefExpr) primaryExpr()        {}

// DefinedTypeExpr defines a defined type.
type DefinedTypeExpr struct {
	Position   lexer.Position
	Name       string
	NamePos    lexer.Position
	Parameters []Parameter
	Body       []Expression
}

func (e *DefinedTypeExpr) Pos() lexer.Position { return e.Position }
func (e *DefinedTypeExpr) primaryExpr()        {}

// Hostname is one name of a node definition: a dotted name, a quoted
// string, a regex, or default.
type Hostname struct {
	Position lexer.Position
	Value    string
	Regex    bool
	Default  bool
}

// NodeDefExpr defines a node block.
type NodeDefExpr struct {
	Position  lexer.Position
	Hostnames []Hostname
	Body      []Expression
}

func (e *NodeDefExpr) Pos() lexer.Position { return e.Position }
func (e *NodeDefExpr) primaryExpr()        {}

// CollectionKind distinguishes <| |> from <<| |>>.
type CollectionKind int

const (
	CollectAll      CollectionKind = iota // realizes virtual resources
	CollectExported                       // realizes exported resources
)

// QueryOp is an attribute query operator.
type QueryOp int

const (
	QueryEquals QueryOp = iota
	QueryNotEquals
)

// String returns the operator's source text.
func (op QueryOp) String() string {
	if op == QueryNotEquals {
		return "!="
	}
	return "=="
}

// AttrQuery compares an attribute against a value.
type AttrQuery struct {
	Position lexer.Position
	Name     string
	Op       QueryOp
	Value    PrimaryExpr
}

// QueryBinaryOp joins attribute queries.
type QueryBinaryOp int

const (
	QueryAnd QueryBinaryOp = iota
	QueryOr
)

// QueryEntry is one (and/or, query) pair of a collection query.
type QueryEntry struct {
	Op    QueryBinaryOp
	Query AttrQuery
}

// CollectionExpr realizes virtual or exported resources matching a query:
// Type <| query |> or Type <<| query |>>.
type CollectionExpr struct {
	Position lexer.Position
	Kind     CollectionKind
	TypeName string
	First    *AttrQuery
	Rest     []QueryEntry
}

func (e *CollectionExpr) Pos() lexer.Position { return e.Position }
func (e *CollectionExpr) primaryExpr()        {}
