package ast

import "github.com/lemonberrylabs/manifestc/pkg/lexer"

// CaseProposition is one options: { body } arm of a case expression.
type CaseProposition struct {
	Options []Expression
	Body    []Expression
}

// CaseExpr is a case expression.
type CaseExpr struct {
	Position     lexer.Position
	Expression   Expression
	Propositions []CaseProposition
}

func (e *CaseExpr) Pos() lexer.Position { return e.Position }
func (e *CaseExpr) primaryExpr()        {}

// Elsif is one elsif arm of an if expression.
type Elsif struct {
	Position    lexer.Position
	Conditional Expression
	Body        []Expression
}

// IfExpr is an if/elsif/else expression.
type IfExpr struct {
	Position    lexer.Position
	Conditional Expression
	Body        []Expression
	Elsifs      []Elsif
	Else        []Expression
	HasElse     bool
}

func (e *IfExpr) Pos() lexer.Position { return e.Position }
func (e *IfExpr) primaryExpr()        {}

// UnlessExpr is an unless/else expression.
type UnlessExpr struct {
	Position    lexer.Position
	Conditional Expression
	Body        []Expression
	Else        []Expression
	HasElse     bool
}

func (e *UnlessExpr) Pos() lexer.Position { return e.Position }
func (e *UnlessExpr) primaryExpr()        {}

// FunctionCallExpr calls a named function, optionally with a lambda. Both
// the parenthesized form and the statement-call form (notice "x") parse to
// this node.
type FunctionCallExpr struct {
	Position lexer.Position
	Name     string
	Args     []Expression
	Lambda   *Lambda
}

func (e *FunctionCallExpr) Pos() lexer.Position { return e.Position }
func (e *FunctionCallExpr) primaryExpr()        {}
