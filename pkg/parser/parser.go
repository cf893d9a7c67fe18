// Package parser converts a token stream into the manifest AST. It is a
// recursive descent parser; binary operator sequences are emitted flat and
// precedence is resolved later by the evaluator.
package parser

import (
	"fmt"

	"github.com/lemonberrylabs/manifestc/pkg/ast"
	"github.com/lemonberrylabs/manifestc/pkg/lexer"
)

// Error reports a syntax error with its source position.
type Error struct {
	Message string
	Pos     lexer.Position
	Line    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

// statementCalls are function names that may be called without parentheses
// at statement level, e.g. "notice 'hello'".
var statementCalls = map[string]bool{
	"include": true,
	"require": true,
	"contain": true,
	"realize": true,
	"tag":     true,
	"fail":    true,
	"debug":   true,
	"info":    true,
	"notice":  true,
	"warning": true,
	"err":     true,
	"alert":   true,
	"emerg":   true,
	"crit":    true,
}

// Parser consumes a token slice.
type Parser struct {
	tokens []lexer.Token
	pos    int
	path   string
	source string
}

// Parse lexes and parses a complete manifest.
func Parse(path, source string) (*ast.SyntaxTree, error) {
	lx := lexer.New(path, source)
	tokens, err := lx.Tokenize()
	if err != nil {
		return nil, err
	}
	p := &Parser{tokens: tokens, path: path, source: source}
	exprs, err := p.parseStatements(lexer.TokenEOF)
	if err != nil {
		return nil, err
	}
	if p.current().Type != lexer.TokenEOF {
		return nil, p.unexpected("expression")
	}
	return &ast.SyntaxTree{Path: path, Expressions: exprs, End: p.current().Pos}, nil
}

// ParseInterpolation parses "{ statements }" for a ${...} interpolation
// segment. Parsing stops at the matching closing brace; the returned tree's
// End position locates it in the input.
func ParseInterpolation(path, source string) (*ast.SyntaxTree, error) {
	lx := lexer.New(path, source)
	tokens, err := lx.Tokenize()
	if err != nil {
		return nil, err
	}
	p := &Parser{tokens: tokens, path: path, source: source}
	if _, err := p.expect(lexer.TokenLBrace); err != nil {
		return nil, err
	}
	exprs, err := p.parseStatements(lexer.TokenRBrace)
	if err != nil {
		return nil, err
	}
	end, err := p.expect(lexer.TokenRBrace)
	if err != nil {
		return nil, err
	}
	return &ast.SyntaxTree{Path: path, Expressions: exprs, End: end.Pos}, nil
}

func (p *Parser) errorf(pos lexer.Position, format string, args ...any) *Error {
	return &Error{
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
		Line:    lexer.LineText(p.source, pos),
	}
}

func (p *Parser) unexpected(expected string) *Error {
	tok := p.current()
	return p.errorf(tok.Pos, "expected %s but found %s", expected, tok.Type)
}

func (p *Parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Type: lexer.TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peek() lexer.Token {
	if p.pos+1 >= len(p.tokens) {
		return lexer.Token{Type: lexer.TokenEOF}
	}
	return p.tokens[p.pos+1]
}

func (p *Parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(tt lexer.TokenType) (lexer.Token, error) {
	tok := p.current()
	if tok.Type != tt {
		return tok, p.errorf(tok.Pos, "expected %s but found %s", tt, tok.Type)
	}
	p.advance()
	return tok, nil
}

func (p *Parser) accept(tt lexer.TokenType) bool {
	if p.current().Type == tt {
		p.advance()
		return true
	}
	return false
}

// parseStatements parses statements until the given terminator (not
// consumed). Statements may be separated by optional semicolons.
func (p *Parser) parseStatements(until lexer.TokenType) ([]ast.Expression, error) {
	var exprs []ast.Expression
	for {
		for p.accept(lexer.TokenSemicolon) {
		}
		if p.current().Type == until || p.current().Type == lexer.TokenEOF {
			return exprs, nil
		}
		expr, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, *expr)
	}
}

// parseStatement parses one statement: a catalog expression, a
// statement-level function call, or an ordinary expression, followed by any
// flat binary entries.
func (p *Parser) parseStatement() (*ast.Expression, error) {
	primary, err := p.parseStatementPrimary()
	if err != nil {
		return nil, err
	}
	binary, err := p.parseBinaryEntries(true)
	if err != nil {
		return nil, err
	}
	return &ast.Expression{Primary: primary, Binary: binary}, nil
}

// parseBinaryEntries collects the flat (operator, operand) pairs following
// a primary.
func (p *Parser) parseBinaryEntries(statement bool) ([]ast.BinaryEntry, error) {
	var entries []ast.BinaryEntry
	for {
		op, ok := binaryOpFor(p.current().Type)
		if !ok {
			return entries, nil
		}
		opPos := p.advance().Pos
		var operand ast.PrimaryExpr
		var err error
		if statement {
			operand, err = p.parseStatementPrimary()
		} else {
			operand, err = p.parsePrimary()
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, ast.BinaryEntry{Op: op, OpPos: opPos, Operand: operand})
	}
}

func binaryOpFor(tt lexer.TokenType) (ast.BinaryOp, bool) {
	switch tt {
	case lexer.TokenStar:
		return ast.OpMultiply, true
	case lexer.TokenSlash:
		return ast.OpDivide, true
	case lexer.TokenPercent:
		return ast.OpModulo, true
	case lexer.TokenPlus:
		return ast.OpPlus, true
	case lexer.TokenMinus:
		return ast.OpMinus, true
	case lexer.TokenLeftShift:
		return ast.OpLeftShift, true
	case lexer.TokenRightShift:
		return ast.OpRightShift, true
	case lexer.TokenEq:
		return ast.OpEquals, true
	case lexer.TokenNeq:
		return ast.OpNotEquals, true
	case lexer.TokenMatch:
		return ast.OpMatch, true
	case lexer.TokenNotMatch:
		return ast.OpNotMatch, true
	case lexer.TokenLt:
		return ast.OpLessThan, true
	case lexer.TokenLte:
		return ast.OpLessEquals, true
	case lexer.TokenGt:
		return ast.OpGreaterThan, true
	case lexer.TokenGte:
		return ast.OpGreaterEquals, true
	case lexer.TokenIn:
		return ast.OpIn, true
	case lexer.TokenAnd:
		return ast.OpAnd, true
	case lexer.TokenOr:
		return ast.OpOr, true
	case lexer.TokenAssign:
		return ast.OpAssign, true
	case lexer.TokenInEdge:
		return ast.OpInEdge, true
	case lexer.TokenInEdgeSub:
		return ast.OpInEdgeSub, true
	case lexer.TokenOutEdge:
		return ast.OpOutEdge, true
	case lexer.TokenOutEdgeSub:
		return ast.OpOutEdgeSub, true
	}
	return 0, false
}

// parseStatementPrimary parses a primary expression in statement position,
// where resource expressions, definitions, and statement calls are allowed.
func (p *Parser) parseStatementPrimary() (ast.PrimaryExpr, error) {
	tok := p.current()
	switch tok.Type {
	case lexer.TokenAt, lexer.TokenAtAt:
		return p.parseResourceExpr()
	case lexer.TokenClass:
		if p.peek().Type == lexer.TokenLBrace {
			return p.parseResourceExpr()
		}
		return p.parseClassDefinition()
	case lexer.TokenDefine:
		return p.parseDefinedType()
	case lexer.TokenNode:
		return p.parseNodeDefinition()
	case lexer.TokenName:
		if p.peek().Type == lexer.TokenLBrace {
			return p.parseResourceExpr()
		}
		if statementCalls[tok.Text] && p.peek().Type != lexer.TokenLParen && p.canBeginExpression(p.peek()) {
			return p.parseStatementCall()
		}
	case lexer.TokenTypeName:
		if p.peek().Type == lexer.TokenLBrace {
			return p.parseResourceDefaults()
		}
		if prim, ok, err := p.tryResourceOverride(); err != nil {
			return nil, err
		} else if ok {
			return prim, nil
		}
	case lexer.TokenVariable:
		if prim, ok, err := p.tryResourceOverride(); err != nil {
			return nil, err
		} else if ok {
			return prim, nil
		}
	}
	return p.parsePrimary()
}

// canBeginExpression reports whether a token can start an expression
// argument of a statement call.
func (p *Parser) canBeginExpression(tok lexer.Token) bool {
	switch tok.Type {
	case lexer.TokenInteger, lexer.TokenFloat, lexer.TokenString, lexer.TokenRegex,
		lexer.TokenVariable, lexer.TokenName, lexer.TokenBareWord, lexer.TokenTypeName,
		lexer.TokenTrue, lexer.TokenFalse, lexer.TokenUndef, lexer.TokenDefault,
		lexer.TokenArrayStart, lexer.TokenMinus, lexer.TokenBang:
		return true
	}
	return false
}

// parseStatementCall parses "name expr, expr ... [lambda]" without parens.
func (p *Parser) parseStatementCall() (ast.PrimaryExpr, error) {
	name := p.advance()
	args, err := p.parseExpressionList()
	if err != nil {
		return nil, err
	}
	var lambda *ast.Lambda
	if p.current().Type == lexer.TokenPipe {
		lambda, err = p.parseLambda()
		if err != nil {
			return nil, err
		}
	}
	return &ast.FunctionCallExpr{Position: name.Pos, Name: name.Text, Args: args, Lambda: lambda}, nil
}

// tryResourceOverride checks for "TypeOrVariable[access]... {" and parses a
// resource override expression if it matches. Collection expressions
// (Type <| |>) do not match here; the primary parser handles them.
func (p *Parser) tryResourceOverride() (ast.PrimaryExpr, bool, error) {
	// Scan ahead over the reference: (type|variable) followed by one or
	// more bracketed access groups, then '{'
	i := p.pos + 1
	depth := 0
	sawAccess := false
	for i < len(p.tokens) {
		tt := p.tokens[i].Type
		if depth == 0 {
			if tt == lexer.TokenLBracket {
				depth++
				sawAccess = true
				i++
				continue
			}
			break
		}
		switch tt {
		case lexer.TokenLBracket, lexer.TokenArrayStart:
			depth++
		case lexer.TokenRBracket:
			depth--
		case lexer.TokenEOF:
			return nil, false, nil
		}
		i++
	}
	// A bare variable followed by '{' is also an override reference
	bareVariable := !sawAccess && p.current().Type == lexer.TokenVariable &&
		p.peek().Type == lexer.TokenLBrace
	if !bareVariable && (!sawAccess || i >= len(p.tokens) || p.tokens[i].Type != lexer.TokenLBrace) {
		return nil, false, nil
	}

	ref, err := p.parsePrimary()
	if err != nil {
		return nil, false, err
	}
	pos := p.current().Pos
	if _, err := p.expect(lexer.TokenLBrace); err != nil {
		return nil, false, err
	}
	attrs, err := p.parseAttributes(lexer.TokenRBrace)
	if err != nil {
		return nil, false, err
	}
	if _, err := p.expect(lexer.TokenRBrace); err != nil {
		return nil, false, err
	}
	return &ast.ResourceOverrideExpr{Position: pos, Reference: ref, Attributes: attrs}, true, nil
}

// parseResourceExpr parses [@|@@] type { body; body }.
func (p *Parser) parseResourceExpr() (ast.PrimaryExpr, error) {
	pos := p.current().Pos
	status := ast.StatusRealized
	switch p.current().Type {
	case lexer.TokenAt:
		status = ast.StatusVirtualized
		p.advance()
	case lexer.TokenAtAt:
		status = ast.StatusExported
		p.advance()
	}

	var typ ast.PrimaryExpr
	tok := p.current()
	switch tok.Type {
	case lexer.TokenName:
		p.advance()
		typ = &ast.Name{Position: tok.Pos, Value: tok.Text}
	case lexer.TokenClass:
		p.advance()
		typ = &ast.Name{Position: tok.Pos, Value: "class"}
	case lexer.TokenTypeName:
		t, err := p.parseTypeExpression()
		if err != nil {
			return nil, err
		}
		typ = t
	default:
		return nil, p.unexpected("resource type")
	}

	if _, err := p.expect(lexer.TokenLBrace); err != nil {
		return nil, err
	}

	var bodies []ast.ResourceBody
	for {
		body, err := p.parseResourceBody()
		if err != nil {
			return nil, err
		}
		bodies = append(bodies, *body)
		if !p.accept(lexer.TokenSemicolon) {
			break
		}
		if p.current().Type == lexer.TokenRBrace {
			break
		}
	}
	if _, err := p.expect(lexer.TokenRBrace); err != nil {
		return nil, err
	}
	return &ast.ResourceExpr{Position: pos, Status: status, Type: typ, Bodies: bodies}, nil
}

func (p *Parser) parseResourceBody() (*ast.ResourceBody, error) {
	pos := p.current().Pos
	title, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenColon); err != nil {
		return nil, err
	}
	attrs, err := p.parseAttributes(lexer.TokenRBrace, lexer.TokenSemicolon)
	if err != nil {
		return nil, err
	}
	return &ast.ResourceBody{Position: pos, Title: *title, Attributes: attrs}, nil
}

// parseAttributes parses "name => expr" pairs separated by commas, stopping
// before any of the given terminators.
func (p *Parser) parseAttributes(until ...lexer.TokenType) ([]ast.Attribute, error) {
	var attrs []ast.Attribute
	stop := func() bool {
		tt := p.current().Type
		for _, u := range until {
			if tt == u {
				return true
			}
		}
		return tt == lexer.TokenEOF
	}
	for !stop() {
		if len(attrs) > 0 {
			if !p.accept(lexer.TokenComma) {
				return nil, p.unexpected("',' or '}'")
			}
			if stop() {
				break
			}
		}
		name := p.current()
		if !isAttributeName(name.Type) {
			return nil, p.unexpected("attribute name")
		}
		p.advance()

		var op ast.AttributeOp
		switch p.current().Type {
		case lexer.TokenFatArrow:
			op = ast.AttributeAssign
		case lexer.TokenPlusArrow:
			op = ast.AttributeAppend
		default:
			return nil, p.unexpected("'=>' or '+>'")
		}
		p.advance()

		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, ast.Attribute{Name: name.Text, NamePos: name.Pos, Op: op, Value: *value})
	}
	return attrs, nil
}

// isAttributeName accepts names, bare words, and keywords as attribute
// names so reserved words like "in" remain usable.
func isAttributeName(tt lexer.TokenType) bool {
	switch tt {
	case lexer.TokenName, lexer.TokenBareWord,
		lexer.TokenAnd, lexer.TokenOr, lexer.TokenIn, lexer.TokenCase,
		lexer.TokenIf, lexer.TokenElsif, lexer.TokenElse, lexer.TokenUnless,
		lexer.TokenClass, lexer.TokenDefine, lexer.TokenNode, lexer.TokenInherits,
		lexer.TokenUndef, lexer.TokenDefault, lexer.TokenTrue, lexer.TokenFalse:
		return true
	}
	return false
}

// parseResourceDefaults parses "Type { attr => value }".
func (p *Parser) parseResourceDefaults() (ast.PrimaryExpr, error) {
	tok, err := p.expect(lexer.TokenTypeName)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenLBrace); err != nil {
		return nil, err
	}
	attrs, err := p.parseAttributes(lexer.TokenRBrace)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenRBrace); err != nil {
		return nil, err
	}
	return &ast.ResourceDefaultsExpr{Position: tok.Pos, TypeName: tok.Text, Attributes: attrs}, nil
}

// parseClassDefinition parses
// "class name [(params)] [inherits parent] { body }".
func (p *Parser) parseClassDefinition() (ast.PrimaryExpr, error) {
	pos := p.advance().Pos // class
	name, err := p.expect(lexer.TokenName)
	if err != nil {
		return nil, p.unexpected("class name")
	}
	params, err := p.parseOptionalParameters()
	if err != nil {
		return nil, err
	}
	parent := ""
	var parentPos lexer.Position
	if p.accept(lexer.TokenInherits) {
		ptok, err := p.expect(lexer.TokenName)
		if err != nil {
			return nil, p.unexpected("parent class name")
		}
		parent = ptok.Text
		parentPos = ptok.Pos
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.ClassDefExpr{
		Position:   pos,
		Name:       name.Text,
		NamePos:    name.Pos,
		Parameters: params,
		Parent:     parent,
		ParentPos:  parentPos,
		Body:       body,
	}, nil
}

// parseDefinedType parses "define name [(params)] { body }".
func (p *Parser) parseDefinedType() (ast.PrimaryExpr, error) {
	pos := p.advance().Pos // define
	name, err := p.expect(lexer.TokenName)
	if err != nil {
		return nil, p.unexpected("defined type name")
	}
	params, err := p.parseOptionalParameters()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.DefinedTypeExpr{
		Position:   pos,
		Name:       name.Text,
		NamePos:    name.Pos,
		Parameters: params,
		Body:       body,
	}, nil
}

// parseNodeDefinition parses "node hostname, ... { body }".
func (p *Parser) parseNodeDefinition() (ast.PrimaryExpr, error) {
	pos := p.advance().Pos // node
	var names []ast.Hostname
	for {
		hn, err := p.parseHostname()
		if err != nil {
			return nil, err
		}
		names = append(names, *hn)
		if !p.accept(lexer.TokenComma) {
			break
		}
		if p.current().Type == lexer.TokenLBrace {
			break
		}
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.NodeDefExpr{Position: pos, Hostnames: names, Body: body}, nil
}

func (p *Parser) parseHostname() (*ast.Hostname, error) {
	tok := p.current()
	switch tok.Type {
	case lexer.TokenString:
		p.advance()
		return &ast.Hostname{Position: tok.Pos, Value: tok.String.Text}, nil
	case lexer.TokenDefault:
		p.advance()
		return &ast.Hostname{Position: tok.Pos, Default: true}, nil
	case lexer.TokenRegex:
		p.advance()
		return &ast.Hostname{Position: tok.Pos, Value: tok.Text, Regex: true}, nil
	case lexer.TokenName, lexer.TokenBareWord, lexer.TokenInteger:
		value := ""
		for {
			part := p.current()
			switch part.Type {
			case lexer.TokenName, lexer.TokenBareWord, lexer.TokenInteger:
				value += part.Text
				p.advance()
			default:
				return nil, p.unexpected("hostname part")
			}
			if !p.accept(lexer.TokenDot) {
				break
			}
			value += "."
		}
		return &ast.Hostname{Position: tok.Pos, Value: value}, nil
	}
	return nil, p.unexpected("hostname")
}

// parseOptionalParameters parses "( param, ... )" if present.
func (p *Parser) parseOptionalParameters() ([]ast.Parameter, error) {
	if !p.accept(lexer.TokenLParen) {
		return nil, nil
	}
	var params []ast.Parameter
	for p.current().Type != lexer.TokenRParen {
		if len(params) > 0 {
			if !p.accept(lexer.TokenComma) {
				return nil, p.unexpected("',' or ')'")
			}
			if p.current().Type == lexer.TokenRParen {
				break
			}
		}
		param, err := p.parseParameter()
		if err != nil {
			return nil, err
		}
		params = append(params, *param)
	}
	if _, err := p.expect(lexer.TokenRParen); err != nil {
		return nil, err
	}
	return params, nil
}

// parseParameter parses "[Type] [*]$name [= default]".
func (p *Parser) parseParameter() (*ast.Parameter, error) {
	pos := p.current().Pos
	var typ ast.PrimaryExpr
	if p.current().Type == lexer.TokenTypeName {
		t, err := p.parseTypeExpression()
		if err != nil {
			return nil, err
		}
		typ = t
	}
	captures := false
	if p.current().Type == lexer.TokenStar {
		captures = true
		p.advance()
	}
	v, err := p.expect(lexer.TokenVariable)
	if err != nil {
		return nil, p.unexpected("parameter variable")
	}
	param := &ast.Parameter{Position: pos, Type: typ, Captures: captures, Name: v.Text}
	if p.accept(lexer.TokenAssign) {
		def, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		param.Default = def
	}
	return param, nil
}

// parseTypeExpression parses a type name with optional access groups, e.g.
// Integer[1, 10] or File.
func (p *Parser) parseTypeExpression() (ast.PrimaryExpr, error) {
	tok, err := p.expect(lexer.TokenTypeName)
	if err != nil {
		return nil, err
	}
	var prim ast.PrimaryExpr = &ast.TypeName{Position: tok.Pos, Name: tok.Text}
	var ops []ast.PostfixOp
	for p.current().Type == lexer.TokenLBracket {
		op, err := p.parseAccessOp()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if len(ops) == 0 {
		return prim, nil
	}
	return &ast.PostfixExpr{Primary: prim, Ops: ops}, nil
}

// parseBlock parses "{ statements }".
func (p *Parser) parseBlock() ([]ast.Expression, error) {
	if _, err := p.expect(lexer.TokenLBrace); err != nil {
		return nil, err
	}
	body, err := p.parseStatements(lexer.TokenRBrace)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenRBrace); err != nil {
		return nil, err
	}
	return body, nil
}

// parseExpression parses a primary with its flat binary entries.
func (p *Parser) parseExpression() (*ast.Expression, error) {
	primary, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	binary, err := p.parseBinaryEntries(false)
	if err != nil {
		return nil, err
	}
	return &ast.Expression{Primary: primary, Binary: binary}, nil
}

// parseExpressionList parses "expr, expr, ..." with an optional trailing
// comma.
func (p *Parser) parseExpressionList() ([]ast.Expression, error) {
	var exprs []ast.Expression
	for {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, *expr)
		if !p.accept(lexer.TokenComma) {
			return exprs, nil
		}
		if !p.canBeginExpression(p.current()) && p.current().Type != lexer.TokenLParen &&
			p.current().Type != lexer.TokenLBrace {
			return exprs, nil
		}
	}
}

// parsePrimary parses a primary expression and any postfix operations.
func (p *Parser) parsePrimary() (ast.PrimaryExpr, error) {
	prim, err := p.parsePrimaryBase()
	if err != nil {
		return nil, err
	}
	var ops []ast.PostfixOp
	for {
		switch p.current().Type {
		case lexer.TokenQuestion:
			op, err := p.parseSelectorOp()
			if err != nil {
				return nil, err
			}
			ops = append(ops, op)
		case lexer.TokenLBracket:
			op, err := p.parseAccessOp()
			if err != nil {
				return nil, err
			}
			ops = append(ops, op)
		case lexer.TokenDot:
			op, err := p.parseMethodCallOp()
			if err != nil {
				return nil, err
			}
			ops = append(ops, op)
		default:
			if len(ops) == 0 {
				return prim, nil
			}
			return &ast.PostfixExpr{Primary: prim, Ops: ops}, nil
		}
	}
}

func (p *Parser) parsePrimaryBase() (ast.PrimaryExpr, error) {
	tok := p.current()
	switch tok.Type {
	case lexer.TokenMinus:
		p.advance()
		operand, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: ast.UnaryNegate, OpPos: tok.Pos, Operand: operand}, nil
	case lexer.TokenStar:
		p.advance()
		operand, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: ast.UnarySplat, OpPos: tok.Pos, Operand: operand}, nil
	case lexer.TokenBang:
		p.advance()
		operand, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: ast.UnaryNot, OpPos: tok.Pos, Operand: operand}, nil
	case lexer.TokenUndef:
		p.advance()
		return &ast.Undef{Position: tok.Pos}, nil
	case lexer.TokenDefault:
		p.advance()
		return &ast.Default{Position: tok.Pos}, nil
	case lexer.TokenTrue:
		p.advance()
		return &ast.Boolean{Position: tok.Pos, Value: true}, nil
	case lexer.TokenFalse:
		p.advance()
		return &ast.Boolean{Position: tok.Pos, Value: false}, nil
	case lexer.TokenInteger:
		p.advance()
		return &ast.Integer{Position: tok.Pos, Value: tok.IntVal}, nil
	case lexer.TokenFloat:
		p.advance()
		return &ast.Float{Position: tok.Pos, Value: tok.FloatVal}, nil
	case lexer.TokenString:
		p.advance()
		return &ast.String{Position: tok.Pos, Data: tok.String}, nil
	case lexer.TokenRegex:
		p.advance()
		return &ast.Regex{Position: tok.Pos, Pattern: tok.Text}, nil
	case lexer.TokenVariable:
		p.advance()
		return &ast.Variable{Position: tok.Pos, Name: tok.Text}, nil
	case lexer.TokenCase:
		return p.parseCase()
	case lexer.TokenIf:
		return p.parseIf()
	case lexer.TokenUnless:
		return p.parseUnless()
	case lexer.TokenName:
		p.advance()
		if p.current().Type == lexer.TokenLParen {
			return p.parseFunctionCall(tok)
		}
		return &ast.Name{Position: tok.Pos, Value: tok.Text}, nil
	case lexer.TokenBareWord:
		p.advance()
		return &ast.BareWord{Position: tok.Pos, Value: tok.Text}, nil
	case lexer.TokenTypeName:
		if p.peek().Type == lexer.TokenLCollect || p.peek().Type == lexer.TokenLExpCollect {
			return p.parseCollection()
		}
		p.advance()
		return &ast.TypeName{Position: tok.Pos, Name: tok.Text}, nil
	case lexer.TokenArrayStart:
		return p.parseArray()
	case lexer.TokenLBrace:
		return p.parseHash()
	case lexer.TokenLParen:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenRParen); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return nil, p.unexpected("expression")
}

func (p *Parser) parseArray() (ast.PrimaryExpr, error) {
	pos := p.advance().Pos // [
	var elems []ast.Expression
	for p.current().Type != lexer.TokenRBracket {
		if len(elems) > 0 {
			if !p.accept(lexer.TokenComma) {
				return nil, p.unexpected("',' or ']'")
			}
			if p.current().Type == lexer.TokenRBracket {
				break
			}
		}
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		elems = append(elems, *expr)
	}
	if _, err := p.expect(lexer.TokenRBracket); err != nil {
		return nil, err
	}
	return &ast.Array{Position: pos, Elements: elems}, nil
}

func (p *Parser) parseHash() (ast.PrimaryExpr, error) {
	pos := p.advance().Pos // {
	var pairs []ast.HashPair
	for p.current().Type != lexer.TokenRBrace {
		if len(pairs) > 0 {
			if !p.accept(lexer.TokenComma) {
				return nil, p.unexpected("',' or '}'")
			}
			if p.current().Type == lexer.TokenRBrace {
				break
			}
		}
		key, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenFatArrow); err != nil {
			return nil, err
		}
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, ast.HashPair{Key: *key, Value: *value})
	}
	if _, err := p.expect(lexer.TokenRBrace); err != nil {
		return nil, err
	}
	return &ast.Hash{Position: pos, Pairs: pairs}, nil
}

func (p *Parser) parseCase() (ast.PrimaryExpr, error) {
	pos := p.advance().Pos // case
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenLBrace); err != nil {
		return nil, err
	}
	var props []ast.CaseProposition
	for p.current().Type != lexer.TokenRBrace {
		var options []ast.Expression
		for {
			opt, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			options = append(options, *opt)
			if !p.accept(lexer.TokenComma) {
				break
			}
		}
		if _, err := p.expect(lexer.TokenColon); err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		props = append(props, ast.CaseProposition{Options: options, Body: body})
	}
	if _, err := p.expect(lexer.TokenRBrace); err != nil {
		return nil, err
	}
	if len(props) == 0 {
		return nil, p.errorf(pos, "expected at least one case proposition")
	}
	return &ast.CaseExpr{Position: pos, Expression: *expr, Propositions: props}, nil
}

func (p *Parser) parseIf() (ast.PrimaryExpr, error) {
	pos := p.advance().Pos // if
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	result := &ast.IfExpr{Position: pos, Conditional: *cond, Body: body}
	for p.current().Type == lexer.TokenElsif {
		epos := p.advance().Pos
		econd, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		ebody, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		result.Elsifs = append(result.Elsifs, ast.Elsif{Position: epos, Conditional: *econd, Body: ebody})
	}
	if p.accept(lexer.TokenElse) {
		ebody, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		result.Else = ebody
		result.HasElse = true
	}
	return result, nil
}

func (p *Parser) parseUnless() (ast.PrimaryExpr, error) {
	pos := p.advance().Pos // unless
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	result := &ast.UnlessExpr{Position: pos, Conditional: *cond, Body: body}
	if p.accept(lexer.TokenElse) {
		ebody, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		result.Else = ebody
		result.HasElse = true
	}
	return result, nil
}

// parseFunctionCall parses "(args) [lambda]" after a name token.
func (p *Parser) parseFunctionCall(name lexer.Token) (ast.PrimaryExpr, error) {
	p.advance() // (
	var args []ast.Expression
	for p.current().Type != lexer.TokenRParen {
		if len(args) > 0 {
			if !p.accept(lexer.TokenComma) {
				return nil, p.unexpected("',' or ')'")
			}
			if p.current().Type == lexer.TokenRParen {
				break
			}
		}
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, *arg)
	}
	if _, err := p.expect(lexer.TokenRParen); err != nil {
		return nil, err
	}
	var lambda *ast.Lambda
	if p.current().Type == lexer.TokenPipe {
		l, err := p.parseLambda()
		if err != nil {
			return nil, err
		}
		lambda = l
	}
	return &ast.FunctionCallExpr{Position: name.Pos, Name: name.Text, Args: args, Lambda: lambda}, nil
}

// parseLambda parses "|params| { body }".
func (p *Parser) parseLambda() (*ast.Lambda, error) {
	pos, err := p.expect(lexer.TokenPipe)
	if err != nil {
		return nil, err
	}
	var params []ast.Parameter
	for p.current().Type != lexer.TokenPipe {
		if len(params) > 0 {
			if !p.accept(lexer.TokenComma) {
				return nil, p.unexpected("',' or '|'")
			}
			if p.current().Type == lexer.TokenPipe {
				break
			}
		}
		param, err := p.parseParameter()
		if err != nil {
			return nil, err
		}
		params = append(params, *param)
	}
	if _, err := p.expect(lexer.TokenPipe); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.Lambda{Position: pos.Pos, Parameters: params, Body: body}, nil
}

func (p *Parser) parseSelectorOp() (ast.PostfixOp, error) {
	pos := p.advance().Pos // ?
	if _, err := p.expect(lexer.TokenLBrace); err != nil {
		return nil, err
	}
	var cases []ast.SelectorCase
	for p.current().Type != lexer.TokenRBrace {
		if len(cases) > 0 {
			if !p.accept(lexer.TokenComma) {
				return nil, p.unexpected("',' or '}'")
			}
			if p.current().Type == lexer.TokenRBrace {
				break
			}
		}
		sel, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenFatArrow); err != nil {
			return nil, err
		}
		res, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		cases = append(cases, ast.SelectorCase{Selector: *sel, Result: *res})
	}
	if _, err := p.expect(lexer.TokenRBrace); err != nil {
		return nil, err
	}
	if len(cases) == 0 {
		return nil, p.errorf(pos, "expected at least one selector case")
	}
	return &ast.SelectorOp{Position: pos, Cases: cases}, nil
}

func (p *Parser) parseAccessOp() (*ast.AccessOp, error) {
	pos := p.advance().Pos // [
	var args []ast.Expression
	for p.current().Type != lexer.TokenRBracket {
		if len(args) > 0 {
			if !p.accept(lexer.TokenComma) {
				return nil, p.unexpected("',' or ']'")
			}
			if p.current().Type == lexer.TokenRBracket {
				break
			}
		}
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, *arg)
	}
	if _, err := p.expect(lexer.TokenRBracket); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, p.errorf(pos, "expected at least one access argument")
	}
	return &ast.AccessOp{Position: pos, Args: args}, nil
}

func (p *Parser) parseMethodCallOp() (ast.PostfixOp, error) {
	pos := p.advance().Pos // .
	name, err := p.expect(lexer.TokenName)
	if err != nil {
		return nil, p.unexpected("method name")
	}
	var args []ast.Expression
	if p.accept(lexer.TokenLParen) {
		for p.current().Type != lexer.TokenRParen {
			if len(args) > 0 {
				if !p.accept(lexer.TokenComma) {
					return nil, p.unexpected("',' or ')'")
				}
				if p.current().Type == lexer.TokenRParen {
					break
				}
			}
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, *arg)
		}
		if _, err := p.expect(lexer.TokenRParen); err != nil {
			return nil, err
		}
	}
	var lambda *ast.Lambda
	if p.current().Type == lexer.TokenPipe {
		l, err := p.parseLambda()
		if err != nil {
			return nil, err
		}
		lambda = l
	}
	return &ast.MethodCallOp{Position: pos, Name: name.Text, NamePos: name.Pos, Args: args, Lambda: lambda}, nil
}

// parseCollection parses "Type <| query |>" or "Type <<| query |>>".
func (p *Parser) parseCollection() (ast.PrimaryExpr, error) {
	typ := p.advance() // type name
	kind := ast.CollectAll
	var closer lexer.TokenType
	switch p.current().Type {
	case lexer.TokenLCollect:
		closer = lexer.TokenRCollect
	case lexer.TokenLExpCollect:
		kind = ast.CollectExported
		closer = lexer.TokenRExpCollect
	default:
		return nil, p.unexpected("'<|' or '<<|'")
	}
	p.advance()

	expr := &ast.CollectionExpr{Position: typ.Pos, Kind: kind, TypeName: typ.Text}
	if p.current().Type != closer {
		first, err := p.parseAttrQuery()
		if err != nil {
			return nil, err
		}
		expr.First = first
		for {
			var op ast.QueryBinaryOp
			switch p.current().Type {
			case lexer.TokenAnd:
				op = ast.QueryAnd
			case lexer.TokenOr:
				op = ast.QueryOr
			default:
				goto done
			}
			p.advance()
			q, err := p.parseAttrQuery()
			if err != nil {
				return nil, err
			}
			expr.Rest = append(expr.Rest, ast.QueryEntry{Op: op, Query: *q})
		}
	}
done:
	if _, err := p.expect(closer); err != nil {
		return nil, err
	}
	return expr, nil
}

func (p *Parser) parseAttrQuery() (*ast.AttrQuery, error) {
	name, err := p.expect(lexer.TokenName)
	if err != nil {
		return nil, p.unexpected("attribute name")
	}
	var op ast.QueryOp
	switch p.current().Type {
	case lexer.TokenEq:
		op = ast.QueryEquals
	case lexer.TokenNeq:
		op = ast.QueryNotEquals
	default:
		return nil, p.unexpected("'==' or '!='")
	}
	p.advance()

	tok := p.current()
	var value ast.PrimaryExpr
	switch tok.Type {
	case lexer.TokenVariable:
		p.advance()
		value = &ast.Variable{Position: tok.Pos, Name: tok.Text}
	case lexer.TokenString:
		p.advance()
		value = &ast.String{Position: tok.Pos, Data: tok.String}
	case lexer.TokenTrue, lexer.TokenFalse:
		p.advance()
		value = &ast.Boolean{Position: tok.Pos, Value: tok.Type == lexer.TokenTrue}
	case lexer.TokenInteger:
		p.advance()
		value = &ast.Integer{Position: tok.Pos, Value: tok.IntVal}
	case lexer.TokenFloat:
		p.advance()
		value = &ast.Float{Position: tok.Pos, Value: tok.FloatVal}
	case lexer.TokenName:
		p.advance()
		value = &ast.Name{Position: tok.Pos, Value: tok.Text}
	default:
		return nil, p.unexpected("query value")
	}
	return &ast.AttrQuery{Position: name.Pos, Name: name.Text, Op: op, Value: value}, nil
}
