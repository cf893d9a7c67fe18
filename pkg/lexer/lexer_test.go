package lexer

import (
	"testing"
)

func tokenize(t *testing.T, input string) []Token {
	t.Helper()
	tokens, err := New("test.mf", input).Tokenize()
	if err != nil {
		t.Fatalf("unexpected lexer error: %v", err)
	}
	return tokens
}

func kinds(tokens []Token) []TokenType {
	out := make([]TokenType, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, tok.Type)
	}
	return out
}

func TestOperators(t *testing.T) {
	tests := []struct {
		input string
		want  TokenType
	}{
		{"=>", TokenFatArrow},
		{"+>", TokenPlusArrow},
		{"==", TokenEq},
		{"!=", TokenNeq},
		{"=~", TokenMatch},
		{"!~", TokenNotMatch},
		{"<=", TokenLte},
		{">=", TokenGte},
		{"<<", TokenLeftShift},
		{">>", TokenRightShift},
		{"->", TokenInEdge},
		{"~>", TokenInEdgeSub},
		{"<-", TokenOutEdge},
		{"<~", TokenOutEdgeSub},
		{"<|", TokenLCollect},
		{"|>", TokenRCollect},
		{"<<|", TokenLExpCollect},
		{"|>>", TokenRExpCollect},
		{"@@", TokenAtAt},
		{"@", TokenAt},
		{"?", TokenQuestion},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens := tokenize(t, tt.input)
			if len(tokens) != 2 {
				t.Fatalf("expected 2 tokens, got %d", len(tokens))
			}
			if tokens[0].Type != tt.want {
				t.Errorf("got %s, want %s", tokens[0].Type, tt.want)
			}
		})
	}
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		input   string
		isFloat bool
		intVal  int64
		fltVal  float64
	}{
		{"42", false, 42, 0},
		{"0", false, 0, 0},
		{"0x1f", false, 31, 0},
		{"0X10", false, 16, 0},
		{"0755", false, 493, 0},
		{"3.14", true, 0, 3.14},
		{"1e3", true, 0, 1000},
		{"2.5e-1", true, 0, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens := tokenize(t, tt.input)
			tok := tokens[0]
			if tt.isFloat {
				if tok.Type != TokenFloat {
					t.Fatalf("expected float, got %s", tok.Type)
				}
				if tok.FloatVal != tt.fltVal {
					t.Errorf("got %g, want %g", tok.FloatVal, tt.fltVal)
				}
				return
			}
			if tok.Type != TokenInteger {
				t.Fatalf("expected integer, got %s", tok.Type)
			}
			if tok.IntVal != tt.intVal {
				t.Errorf("got %d, want %d", tok.IntVal, tt.intVal)
			}
		})
	}
}

func TestInvalidNumber(t *testing.T) {
	_, err := New("test.mf", "0x").Tokenize()
	if err == nil {
		t.Fatal("expected an error for invalid hex literal")
	}
}

func TestWords(t *testing.T) {
	tests := []struct {
		input string
		want  TokenType
	}{
		{"file", TokenName},
		{"foo::bar", TokenName},
		{"::foo::bar", TokenName},
		{"Integer", TokenTypeName},
		{"Foo::Bar", TokenTypeName},
		{"_private", TokenBareWord},
		{"true", TokenTrue},
		{"undef", TokenUndef},
		{"default", TokenDefault},
		{"inherits", TokenInherits},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens := tokenize(t, tt.input)
			if tokens[0].Type != tt.want {
				t.Errorf("got %s, want %s", tokens[0].Type, tt.want)
			}
			if tokens[0].Text != tt.input {
				t.Errorf("got text %q, want %q", tokens[0].Text, tt.input)
			}
		})
	}
}

func TestVariables(t *testing.T) {
	tests := []struct {
		input string
		name  string
	}{
		{"$x", "x"},
		{"$foo_bar", "foo_bar"},
		{"$::foo::bar", "::foo::bar"},
		{"$foo::bar::baz", "foo::bar::baz"},
		{"$0", "0"},
		{"$12", "12"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens := tokenize(t, tt.input)
			if tokens[0].Type != TokenVariable {
				t.Fatalf("expected variable, got %s", tokens[0].Type)
			}
			if tokens[0].Text != tt.name {
				t.Errorf("got %q, want %q", tokens[0].Text, tt.name)
			}
		})
	}
}

func TestStrings(t *testing.T) {
	tokens := tokenize(t, `'single' "double $x"`)
	if tokens[0].Type != TokenString || tokens[0].String.Interpolated {
		t.Errorf("single-quoted string should not be interpolated")
	}
	if tokens[0].String.Text != "single" {
		t.Errorf("got %q, want %q", tokens[0].String.Text, "single")
	}
	if tokens[1].Type != TokenString || !tokens[1].String.Interpolated {
		t.Errorf("double-quoted string should be interpolated")
	}
	if tokens[1].String.Text != "double $x" {
		t.Errorf("got %q, want %q", tokens[1].String.Text, "double $x")
	}
}

func TestUnterminatedString(t *testing.T) {
	_, err := New("test.mf", `'never ends`).Tokenize()
	if err == nil {
		t.Fatal("expected an error for unterminated string")
	}
	lexErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if lexErr.Pos.Line != 1 {
		t.Errorf("got line %d, want 1", lexErr.Pos.Line)
	}
}

func TestRegexDisambiguation(t *testing.T) {
	// After an operator a slash starts a regex
	tokens := tokenize(t, `$x =~ /foo.*/`)
	if tokens[2].Type != TokenRegex {
		t.Fatalf("expected regex, got %s", tokens[2].Type)
	}
	if tokens[2].Text != "foo.*" {
		t.Errorf("got %q, want %q", tokens[2].Text, "foo.*")
	}

	// After a value a slash is division
	tokens = tokenize(t, `$x / 2`)
	if tokens[1].Type != TokenSlash {
		t.Errorf("expected division, got %s", tokens[1].Type)
	}

	tokens = tokenize(t, `(10 / 5) / 2`)
	want := []TokenType{
		TokenLParen, TokenInteger, TokenSlash, TokenInteger, TokenRParen,
		TokenSlash, TokenInteger, TokenEOF,
	}
	got := kinds(tokens)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestArrayStartDisambiguation(t *testing.T) {
	// After a name or variable, '[' is an index
	tokens := tokenize(t, `$x[0]`)
	if tokens[1].Type != TokenLBracket {
		t.Errorf("expected index bracket, got %s", tokens[1].Type)
	}
	tokens = tokenize(t, `File['/a']`)
	if tokens[1].Type != TokenLBracket {
		t.Errorf("expected index bracket, got %s", tokens[1].Type)
	}

	// At a value position, '[' starts an array literal
	tokens = tokenize(t, `$x = [1, 2]`)
	if tokens[2].Type != TokenArrayStart {
		t.Errorf("expected array start, got %s", tokens[2].Type)
	}
	tokens = tokenize(t, `[1]`)
	if tokens[0].Type != TokenArrayStart {
		t.Errorf("expected array start, got %s", tokens[0].Type)
	}
}

func TestComments(t *testing.T) {
	tokens := tokenize(t, "1 # line comment\n/* block\ncomment */ 2")
	want := []TokenType{TokenInteger, TokenInteger, TokenEOF}
	got := kinds(tokens)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestPositions(t *testing.T) {
	tokens := tokenize(t, "$a =\n  $b")
	if tokens[0].Pos.Line != 1 || tokens[0].Pos.Column != 1 {
		t.Errorf("token 0: got %s", tokens[0].Pos)
	}
	if tokens[2].Pos.Line != 2 || tokens[2].Pos.Column != 3 {
		t.Errorf("token 2: got %s, want 2:3", tokens[2].Pos)
	}
}

func TestHeredoc(t *testing.T) {
	input := "$x = @(END)\nline one\nline two\nEND\n$y = 2\n"
	tokens := tokenize(t, input)
	if tokens[2].Type != TokenString {
		t.Fatalf("expected string, got %s", tokens[2].Type)
	}
	data := tokens[2].String
	if data.Text != "line one\nline two\n" {
		t.Errorf("got %q", data.Text)
	}
	if data.Interpolated {
		t.Error("unquoted heredoc tag should not interpolate")
	}
	// Lexing resumes after the terminator line
	if tokens[3].Type != TokenVariable || tokens[3].Text != "y" {
		t.Errorf("expected $y after heredoc, got %s %q", tokens[3].Type, tokens[3].Text)
	}
}

func TestHeredocInterpolatedWithMarginAndTrim(t *testing.T) {
	input := "@(\"EOT\")\n    content $x\n    last\n    |- EOT\n"
	tokens := tokenize(t, input)
	data := tokens[0].String
	if !data.Interpolated {
		t.Error("quoted heredoc tag should interpolate")
	}
	if data.Margin != 4 {
		t.Errorf("got margin %d, want 4", data.Margin)
	}
	if !data.RemoveBreak {
		t.Error("expected trim flag from '-'")
	}
}

func TestHeredocEscapeFlags(t *testing.T) {
	input := "@(END/tn)\nraw\nEND\n"
	tokens := tokenize(t, input)
	if tokens[0].String.Escapes == "" {
		t.Error("expected escape flags to be enabled")
	}
}

func TestHeredocUnterminated(t *testing.T) {
	_, err := New("test.mf", "@(END)\nno terminator here").Tokenize()
	if err == nil {
		t.Fatal("expected an error for missing heredoc terminator")
	}
}

func TestUnterminatedRegex(t *testing.T) {
	_, err := New("test.mf", "$x =~ /abc\n").Tokenize()
	if err == nil {
		t.Fatal("expected an error for unterminated regex")
	}
}
