package ast

import (
	"fmt"
	"strings"
)

// Print renders a syntax tree back to manifest source. The output is
// canonical rather than byte-identical: whitespace and comments are not
// preserved, and heredocs render as double-quoted strings. Re-parsing the
// output yields a structurally equal tree, except that heredocs come back
// as double-quoted strings and floats are printed with %g, so a float with
// no fractional part (1.0, 1e3) comes back as an integer.
func Print(tree *SyntaxTree) string {
	var p printer
	for i := range tree.Expressions {
		if i > 0 {
			p.sb.WriteByte('\n')
		}
		p.expression(&tree.Expressions[i])
	}
	p.sb.WriteByte('\n')
	return p.sb.String()
}

// PrintExpression renders a single expression.
func PrintExpression(expr *Expression) string {
	var p printer
	p.expression(expr)
	return p.sb.String()
}

type printer struct {
	sb strings.Builder
}

func (p *printer) expression(e *Expression) {
	p.primary(e.Primary)
	for i := range e.Binary {
		fmt.Fprintf(&p.sb, " %s ", e.Binary[i].Op)
		p.primary(e.Binary[i].Operand)
	}
}

func (p *printer) primary(e PrimaryExpr) {
	switch n := e.(type) {
	case *Expression:
		p.sb.WriteByte('(')
		p.expression(n)
		p.sb.WriteByte(')')
	case *UnaryExpr:
		p.sb.WriteString(n.Op.String())
		p.primary(n.Operand)
	case *Undef:
		p.sb.WriteString("undef")
	case *Default:
		p.sb.WriteString("default")
	case *Boolean:
		fmt.Fprintf(&p.sb, "%t", n.Value)
	case *Integer:
		fmt.Fprintf(&p.sb, "%d", n.Value)
	case *Float:
		fmt.Fprintf(&p.sb, "%g", n.Value)
	case *String:
		p.stringLit(n)
	case *Regex:
		fmt.Fprintf(&p.sb, "/%s/", n.Pattern)
	case *Variable:
		fmt.Fprintf(&p.sb, "$%s", n.Name)
	case *Name:
		p.sb.WriteString(n.Value)
	case *BareWord:
		p.sb.WriteString(n.Value)
	case *TypeName:
		p.sb.WriteString(n.Name)
	case *Array:
		p.sb.WriteByte('[')
		for i := range n.Elements {
			if i > 0 {
				p.sb.WriteString(", ")
			}
			p.expression(&n.Elements[i])
		}
		p.sb.WriteByte(']')
	case *Hash:
		p.sb.WriteByte('{')
		for i := range n.Pairs {
			if i > 0 {
				p.sb.WriteString(", ")
			}
			p.expression(&n.Pairs[i].Key)
			p.sb.WriteString(" => ")
			p.expression(&n.Pairs[i].Value)
		}
		p.sb.WriteByte('}')
	case *PostfixExpr:
		p.primary(n.Primary)
		for _, op := range n.Ops {
			p.postfix(op)
		}
	case *ResourceExpr:
		p.resource(n)
	case *ResourceDefaultsExpr:
		p.sb.WriteString(n.TypeName)
		p.sb.WriteString(" { ")
		p.attributes(n.Attributes)
		p.sb.WriteString(" }")
	case *ResourceOverrideExpr:
		p.primary(n.Reference)
		p.sb.WriteString(" { ")
		p.attributes(n.Attributes)
		p.sb.WriteString(" }")
	case *ClassDefExpr:
		p.sb.WriteString("class ")
		p.sb.WriteString(n.Name)
		p.parameters(n.Parameters)
		if n.Parent != "" {
			p.sb.WriteString(" inherits ")
			p.sb.WriteString(n.Parent)
		}
		p.block(n.Body)
	case *DefinedTypeExpr:
		p.sb.WriteString("define ")
		p.sb.WriteString(n.Name)
		p.parameters(n.Parameters)
		p.block(n.Body)
	case *NodeDefExpr:
		p.sb.WriteString("node ")
		for i, h := range n.Hostnames {
			if i > 0 {
				p.sb.WriteString(", ")
			}
			switch {
			case h.Default:
				p.sb.WriteString("default")
			case h.Regex:
				fmt.Fprintf(&p.sb, "/%s/", h.Value)
			default:
				fmt.Fprintf(&p.sb, "%q", h.Value)
			}
		}
		p.block(n.Body)
	case *CollectionExpr:
		p.sb.WriteString(n.TypeName)
		if n.Kind == CollectExported {
			p.sb.WriteString(" <<| ")
		} else {
			p.sb.WriteString(" <| ")
		}
		if n.First != nil {
			p.query(n.First)
			for i := range n.Rest {
				if n.Rest[i].Op == QueryAnd {
					p.sb.WriteString(" and ")
				} else {
					p.sb.WriteString(" or ")
				}
				p.query(&n.Rest[i].Query)
			}
		}
		if n.Kind == CollectExported {
			p.sb.WriteString(" |>>")
		} else {
			p.sb.WriteString(" |>")
		}
	case *CaseExpr:
		p.sb.WriteString("case ")
		p.expression(&n.Expression)
		p.sb.WriteString(" {\n")
		for i := range n.Propositions {
			prop := &n.Propositions[i]
			for j := range prop.Options {
				if j > 0 {
					p.sb.WriteString(", ")
				}
				p.expression(&prop.Options[j])
			}
			p.sb.WriteString(":")
			p.block(prop.Body)
			p.sb.WriteByte('\n')
		}
		p.sb.WriteString("}")
	case *IfExpr:
		p.sb.WriteString("if ")
		p.expression(&n.Conditional)
		p.block(n.Body)
		for i := range n.Elsifs {
			p.sb.WriteString(" elsif ")
			p.expression(&n.Elsifs[i].Conditional)
			p.block(n.Elsifs[i].Body)
		}
		if n.HasElse {
			p.sb.WriteString(" else")
			p.block(n.Else)
		}
	case *UnlessExpr:
		p.sb.WriteString("unless ")
		p.expression(&n.Conditional)
		p.block(n.Body)
		if n.HasElse {
			p.sb.WriteString(" else")
			p.block(n.Else)
		}
	case *FunctionCallExpr:
		p.sb.WriteString(n.Name)
		p.sb.WriteByte('(')
		for i := range n.Args {
			if i > 0 {
				p.sb.WriteString(", ")
			}
			p.expression(&n.Args[i])
		}
		p.sb.WriteByte(')')
		if n.Lambda != nil {
			p.lambda(n.Lambda)
		}
	default:
		fmt.Fprintf(&p.sb, "<unknown %T>", e)
	}
}

func (p *printer) stringLit(n *String) {
	quote := n.Data.Quote
	if quote == 0 {
		quote = '"'
	}
	p.sb.WriteByte(quote)
	p.sb.WriteString(n.Data.Text)
	p.sb.WriteByte(quote)
}

func (p *printer) postfix(op PostfixOp) {
	switch n := op.(type) {
	case *SelectorOp:
		p.sb.WriteString(" ? {\n")
		for i := range n.Cases {
			p.expression(&n.Cases[i].Selector)
			p.sb.WriteString(" => ")
			p.expression(&n.Cases[i].Result)
			p.sb.WriteString(",\n")
		}
		p.sb.WriteString("}")
	case *AccessOp:
		p.sb.WriteByte('[')
		for i := range n.Args {
			if i > 0 {
				p.sb.WriteString(", ")
			}
			p.expression(&n.Args[i])
		}
		p.sb.WriteByte(']')
	case *MethodCallOp:
		p.sb.WriteByte('.')
		p.sb.WriteString(n.Name)
		p.sb.WriteByte('(')
		for i := range n.Args {
			if i > 0 {
				p.sb.WriteString(", ")
			}
			p.expression(&n.Args[i])
		}
		p.sb.WriteByte(')')
		if n.Lambda != nil {
			p.lambda(n.Lambda)
		}
	}
}

func (p *printer) resource(n *ResourceExpr) {
	switch n.Status {
	case StatusVirtualized:
		p.sb.WriteString("@")
	case StatusExported:
		p.sb.WriteString("@@")
	}
	p.primary(n.Type)
	p.sb.WriteString(" {\n")
	for i := range n.Bodies {
		body := &n.Bodies[i]
		p.expression(&body.Title)
		p.sb.WriteString(": ")
		p.attributes(body.Attributes)
		if i < len(n.Bodies)-1 {
			p.sb.WriteString(";")
		}
		p.sb.WriteByte('\n')
	}
	p.sb.WriteString("}")
}

func (p *printer) attributes(attrs []Attribute) {
	for i := range attrs {
		if i > 0 {
			p.sb.WriteString(", ")
		}
		fmt.Fprintf(&p.sb, "%s %s ", attrs[i].Name, attrs[i].Op)
		p.expression(&attrs[i].Value)
	}
}

func (p *printer) parameters(params []Parameter) {
	if len(params) == 0 {
		return
	}
	p.sb.WriteByte('(')
	p.paramList(params)
	p.sb.WriteByte(')')
}

func (p *printer) paramList(params []Parameter) {
	for i := range params {
		if i > 0 {
			p.sb.WriteString(", ")
		}
		if params[i].Type != nil {
			p.primary(params[i].Type)
			p.sb.WriteByte(' ')
		}
		if params[i].Captures {
			p.sb.WriteByte('*')
		}
		fmt.Fprintf(&p.sb, "$%s", params[i].Name)
		if params[i].Default != nil {
			p.sb.WriteString(" = ")
			p.expression(params[i].Default)
		}
	}
}

func (p *printer) lambda(l *Lambda) {
	p.sb.WriteString(" |")
	p.paramList(l.Parameters)
	p.sb.WriteString("|")
	p.block(l.Body)
}

func (p *printer) block(body []Expression) {
	p.sb.WriteString(" {\n")
	for i := range body {
		p.expression(&body[i])
		p.sb.WriteByte('\n')
	}
	p.sb.WriteString("}")
}

func (p *printer) query(q *AttrQuery) {
	fmt.Fprintf(&p.sb, "%s %s ", q.Name, q.Op)
	p.primary(q.Value)
}
