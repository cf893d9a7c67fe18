package runtime

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/lemonberrylabs/manifestc/pkg/ast"
	"github.com/lemonberrylabs/manifestc/pkg/lexer"
	"github.com/lemonberrylabs/manifestc/pkg/parser"
	"github.com/lemonberrylabs/manifestc/pkg/types"
)

// Interpolate resolves escape sequences and, for interpolated strings and
// heredocs, expands $name and ${expression} segments. ${...} bodies are
// parsed with the shared parser and evaluated in the current scope.
func (e *Evaluator) Interpolate(pos lexer.Position, data lexer.StringData) (string, error) {
	text := data.Text
	var sb strings.Builder
	sb.Grow(len(text))

	margin := data.Margin
	currentMargin := margin
	i := 0
	for i < len(text) {
		// Strip heredoc margin at the start of each line
		for currentMargin > 0 && i < len(text) {
			if text[i] == ' ' {
				currentMargin--
				i++
			} else if text[i] == '\t' {
				if currentMargin > lexer.TabWidth {
					currentMargin -= lexer.TabWidth
				} else {
					currentMargin = 0
				}
				i++
			} else {
				break
			}
		}
		if i >= len(text) {
			break
		}
		currentMargin = 0

		ch := text[i]
		if ch == '\\' && data.Escapes != "" && i+1 < len(text) {
			next := i + 1
			if text[next] == '\r' && next+1 < len(text) {
				next++
			}
			if strings.IndexByte(data.Escapes, text[next]) >= 0 {
				consumed := true
				switch text[next] {
				case 'r':
					sb.WriteByte('\r')
				case 'n':
					sb.WriteByte('\n')
				case 't':
					sb.WriteByte('\t')
				case 's':
					sb.WriteByte(' ')
				case 'u':
					advance, ok := e.unicodeEscape(pos, text[next+1:], &sb)
					if !ok {
						consumed = false
					} else {
						next += advance
					}
				case '\n':
					// Escaped line break: continue the line, restart margin
					currentMargin = margin
				case '$':
					sb.WriteByte('$')
				default:
					sb.WriteByte(text[next])
				}
				if consumed {
					i = next + 1
					continue
				}
			} else if data.Quote != '\'' {
				e.warn(pos, "invalid escape sequence '\\"+string(text[next])+"'")
			}
		} else if ch == '\n' {
			currentMargin = margin
			sb.WriteByte('\n')
			i++
			continue
		} else if data.Interpolated && ch == '$' && i+1 < len(text) && !isSpaceByte(text[i+1]) {
			if text[i+1] == '{' {
				consumed, err := e.interpolateExpression(pos, text[i+1:], &sb)
				if err != nil {
					return "", err
				}
				i += 1 + consumed
				continue
			}
			if consumed := e.interpolateVariable(pos, text[i+1:], &sb); consumed > 0 {
				i += 1 + consumed
				continue
			}
		}

		sb.WriteByte(ch)
		i++
	}

	result := sb.String()
	if data.RemoveBreak {
		result = strings.TrimSuffix(result, "\n")
		result = strings.TrimSuffix(result, "\r")
	}
	return result, nil
}

func isSpaceByte(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n'
}

// interpolateVariable expands a bare $name or $n reference, returning how
// many bytes of the name were consumed (0 if none).
func (e *Evaluator) interpolateVariable(pos lexer.Position, rest string, sb *strings.Builder) int {
	n := 0
	if rest != "" && rest[0] >= '0' && rest[0] <= '9' {
		for n < len(rest) && rest[n] >= '0' && rest[n] <= '9' {
			n++
		}
	} else {
		for n < len(rest) {
			ch := rest[n]
			if isWordByte(ch) {
				n++
			} else if ch == ':' && n+1 < len(rest) && rest[n+1] == ':' {
				n += 2
			} else {
				break
			}
		}
	}
	if n == 0 {
		return 0
	}
	name := strings.TrimSuffix(rest[:n], "::")
	if len(name) < n {
		n = len(name)
	}
	value, err := e.evaluateVariable(&ast.Variable{Position: pos, Name: name})
	if err != nil {
		return 0
	}
	sb.WriteString(value.String())
	return n
}

func isWordByte(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_'
}

// interpolateExpression parses and evaluates a ${...} segment beginning at
// the opening brace, returning the number of bytes consumed including the
// closing brace. The balanced segment is extracted first so text following
// the closing brace never reaches the sub-parser.
func (e *Evaluator) interpolateExpression(pos lexer.Position, rest string, sb *strings.Builder) (int, error) {
	end := matchingBrace(rest)
	if end < 0 {
		return 0, e.errorf(pos, "unmatched '${' in interpolated string")
	}
	tree, err := parser.ParseInterpolation(e.path, rest[:end])
	if err != nil {
		return 0, e.errorf(pos, "error in interpolated expression: %s", errMessage(err))
	}

	result := types.Undef
	for i := range tree.Expressions {
		expr := &tree.Expressions[i]
		if i == 0 {
			expr = transformInterpolationExpr(expr)
		}
		result, err = e.Evaluate(expr, false)
		if err != nil {
			return 0, err
		}
	}
	sb.WriteString(result.String())
	return end, nil
}

// matchingBrace finds the index just past the brace matching s[0], skipping
// quoted strings. Returns -1 if unbalanced.
func matchingBrace(s string) int {
	depth := 0
	inString := false
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			if ch == '\\' && i+1 < len(s) {
				i++
				continue
			}
			if ch == quote {
				inString = false
			}
			continue
		}
		switch ch {
		case '\'', '"':
			inString = true
			quote = ch
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

func errMessage(err error) string {
	switch n := err.(type) {
	case *parser.Error:
		return n.Message
	case *lexer.Error:
		return n.Message
	}
	return err.Error()
}

// transformInterpolationExpr rewrites the leading construct of a ${...}
// segment to its variable form: ${name} reads $name, ${1} reads the match
// variable, and ${x[0]} or ${x.f} treats x as a variable.
func transformInterpolationExpr(expr *ast.Expression) *ast.Expression {
	switch n := expr.Primary.(type) {
	case *ast.Name:
		return &ast.Expression{
			Primary: &ast.Variable{Position: n.Position, Name: n.Value},
			Binary:  expr.Binary,
		}
	case *ast.BareWord:
		return &ast.Expression{
			Primary: &ast.Variable{Position: n.Position, Name: n.Value},
			Binary:  expr.Binary,
		}
	case *ast.Integer:
		return &ast.Expression{
			Primary: &ast.Variable{Position: n.Position, Name: strconv.FormatInt(n.Value, 10)},
			Binary:  expr.Binary,
		}
	case *ast.PostfixExpr:
		if len(n.Ops) == 0 {
			return expr
		}
		switch n.Ops[0].(type) {
		case *ast.AccessOp, *ast.MethodCallOp:
		default:
			return expr
		}
		var variable *ast.Variable
		switch p := n.Primary.(type) {
		case *ast.Name:
			variable = &ast.Variable{Position: p.Position, Name: p.Value}
		case *ast.BareWord:
			variable = &ast.Variable{Position: p.Position, Name: p.Value}
		}
		if variable == nil {
			return expr
		}
		return &ast.Expression{
			Primary: &ast.PostfixExpr{Primary: variable, Ops: n.Ops},
			Binary:  expr.Binary,
		}
	}
	return expr
}

// unicodeEscape writes a \uXXXX or \u{X...} escape, returning the number
// of bytes consumed after the 'u' and whether the sequence was valid.
// Invalid sequences produce a warning and are emitted literally.
func (e *Evaluator) unicodeEscape(pos lexer.Position, rest string, sb *strings.Builder) (int, bool) {
	variableLength := false
	i := 0
	if i < len(rest) && rest[i] == '{' {
		variableLength = true
		i++
	}
	start := i
	for i < len(rest) {
		ch := rest[i]
		if variableLength && ch == '}' {
			break
		}
		if !isHexByte(ch) {
			if !variableLength && i-start == 4 {
				break
			}
			if !variableLength {
				e.warn(pos, "unicode escape sequence contains non-hexadecimal character")
				return 0, false
			}
			e.warn(pos, "unicode escape sequence contains non-hexadecimal character")
			return 0, false
		}
		i++
		if !variableLength && i-start == 4 {
			break
		}
	}
	digits := rest[start:i]
	if variableLength {
		if i >= len(rest) || rest[i] != '}' {
			e.warn(pos, "a closing '}' was not found for unicode escape sequence")
			return 0, false
		}
		if len(digits) == 0 || len(digits) > 6 {
			e.warn(pos, "expected at least 1 and at most 6 hexadecimal digits for unicode escape sequence")
			return 0, false
		}
		i++
	} else if len(digits) != 4 {
		e.warn(pos, "expected 4 hexadecimal digits for unicode escape sequence")
		return 0, false
	}

	code, err := strconv.ParseUint(digits, 16, 32)
	if err != nil || !utf8.ValidRune(rune(code)) {
		e.warn(pos, "invalid unicode code point")
		return 0, false
	}
	sb.WriteRune(rune(code))
	return i, true
}

func isHexByte(ch byte) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
