package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/lemonberrylabs/manifestc/pkg/ast"
	"github.com/lemonberrylabs/manifestc/pkg/lexer"
)

func parse(t *testing.T, source string) *ast.SyntaxTree {
	t.Helper()
	tree, err := Parse("test.mf", source)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return tree
}

func TestFlatBinaryForm(t *testing.T) {
	tree := parse(t, "$x = 1 + 2 * 3")
	if len(tree.Expressions) != 1 {
		t.Fatalf("expected 1 expression, got %d", len(tree.Expressions))
	}
	expr := tree.Expressions[0]
	if _, ok := expr.Primary.(*ast.Variable); !ok {
		t.Fatalf("expected variable primary, got %T", expr.Primary)
	}
	// The parser keeps the infix sequence flat; precedence is applied later
	wantOps := []ast.BinaryOp{ast.OpAssign, ast.OpPlus, ast.OpMultiply}
	if len(expr.Binary) != len(wantOps) {
		t.Fatalf("expected %d binary entries, got %d", len(wantOps), len(expr.Binary))
	}
	for i, want := range wantOps {
		if expr.Binary[i].Op != want {
			t.Errorf("entry %d: got %s, want %s", i, expr.Binary[i].Op, want)
		}
	}
}

func TestResourceExpression(t *testing.T) {
	tree := parse(t, "file { '/tmp/a': ensure => present, mode => '0644' }")
	res, ok := tree.Expressions[0].Primary.(*ast.ResourceExpr)
	if !ok {
		t.Fatalf("expected resource expression, got %T", tree.Expressions[0].Primary)
	}
	if res.Status != ast.StatusRealized {
		t.Errorf("got status %d, want realized", res.Status)
	}
	name, ok := res.Type.(*ast.Name)
	if !ok || name.Value != "file" {
		t.Fatalf("expected type name 'file', got %#v", res.Type)
	}
	if len(res.Bodies) != 1 {
		t.Fatalf("expected 1 body, got %d", len(res.Bodies))
	}
	body := res.Bodies[0]
	if len(body.Attributes) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(body.Attributes))
	}
	if body.Attributes[0].Name != "ensure" || body.Attributes[1].Name != "mode" {
		t.Errorf("attribute order not preserved: %q, %q", body.Attributes[0].Name, body.Attributes[1].Name)
	}
}

func TestVirtualAndExportedResources(t *testing.T) {
	tree := parse(t, "@user { 'alice': }\n@@host { 'db': }")
	first := tree.Expressions[0].Primary.(*ast.ResourceExpr)
	if first.Status != ast.StatusVirtualized {
		t.Errorf("expected virtualized status")
	}
	second := tree.Expressions[1].Primary.(*ast.ResourceExpr)
	if second.Status != ast.StatusExported {
		t.Errorf("expected exported status")
	}
}

func TestMultipleBodies(t *testing.T) {
	tree := parse(t, "file { '/a': ensure => present; '/b': ensure => absent }")
	res := tree.Expressions[0].Primary.(*ast.ResourceExpr)
	if len(res.Bodies) != 2 {
		t.Fatalf("expected 2 bodies, got %d", len(res.Bodies))
	}
}

func TestClassDefinition(t *testing.T) {
	tree := parse(t, "class web($port = 80, String $host = 'localhost') inherits base { notice $port }")
	def, ok := tree.Expressions[0].Primary.(*ast.ClassDefExpr)
	if !ok {
		t.Fatalf("expected class definition, got %T", tree.Expressions[0].Primary)
	}
	if def.Name != "web" || def.Parent != "base" {
		t.Errorf("got name %q parent %q", def.Name, def.Parent)
	}
	if len(def.Parameters) != 2 {
		t.Fatalf("expected 2 parameters, got %d", len(def.Parameters))
	}
	if def.Parameters[0].Name != "port" || def.Parameters[0].Default == nil {
		t.Errorf("parameter 0 incorrect: %+v", def.Parameters[0])
	}
	if def.Parameters[1].Type == nil {
		t.Errorf("parameter 1 should have a type expression")
	}
	if len(def.Body) != 1 {
		t.Fatalf("expected 1 body expression, got %d", len(def.Body))
	}
}

func TestDefinedType(t *testing.T) {
	tree := parse(t, "define motd::entry($content) { file { \"/etc/motd.d/$title\": } }")
	def, ok := tree.Expressions[0].Primary.(*ast.DefinedTypeExpr)
	if !ok {
		t.Fatalf("expected defined type, got %T", tree.Expressions[0].Primary)
	}
	if def.Name != "motd::entry" {
		t.Errorf("got %q", def.Name)
	}
}

func TestNodeDefinition(t *testing.T) {
	tree := parse(t, "node 'web01.example.com', /^db\\d+$/, default { include base }")
	def, ok := tree.Expressions[0].Primary.(*ast.NodeDefExpr)
	if !ok {
		t.Fatalf("expected node definition, got %T", tree.Expressions[0].Primary)
	}
	if len(def.Hostnames) != 3 {
		t.Fatalf("expected 3 hostnames, got %d", len(def.Hostnames))
	}
	if def.Hostnames[0].Value != "web01.example.com" {
		t.Errorf("got %q", def.Hostnames[0].Value)
	}
	if !def.Hostnames[1].Regex {
		t.Error("expected regex hostname")
	}
	if !def.Hostnames[2].Default {
		t.Error("expected default hostname")
	}
}

func TestStatementCall(t *testing.T) {
	tree := parse(t, "include base, web")
	call, ok := tree.Expressions[0].Primary.(*ast.FunctionCallExpr)
	if !ok {
		t.Fatalf("expected function call, got %T", tree.Expressions[0].Primary)
	}
	if call.Name != "include" || len(call.Args) != 2 {
		t.Errorf("got %q with %d args", call.Name, len(call.Args))
	}
}

func TestFunctionCallWithLambda(t *testing.T) {
	tree := parse(t, "each([1, 2]) |$index, $value| { notice $value }")
	call := tree.Expressions[0].Primary.(*ast.FunctionCallExpr)
	if call.Lambda == nil {
		t.Fatal("expected a lambda")
	}
	if len(call.Lambda.Parameters) != 2 {
		t.Errorf("expected 2 lambda parameters, got %d", len(call.Lambda.Parameters))
	}
}

func TestMethodCall(t *testing.T) {
	tree := parse(t, "$list.filter |$x| { $x > 1 }")
	postfix, ok := tree.Expressions[0].Primary.(*ast.PostfixExpr)
	if !ok {
		t.Fatalf("expected postfix expression, got %T", tree.Expressions[0].Primary)
	}
	method, ok := postfix.Ops[0].(*ast.MethodCallOp)
	if !ok {
		t.Fatalf("expected method call, got %T", postfix.Ops[0])
	}
	if method.Name != "filter" || method.Lambda == nil {
		t.Errorf("got %q, lambda=%v", method.Name, method.Lambda != nil)
	}
}

func TestSelector(t *testing.T) {
	tree := parse(t, "$x = $os ? { 'linux' => 1, default => 0 }")
	expr := tree.Expressions[0]
	postfix, ok := expr.Binary[0].Operand.(*ast.PostfixExpr)
	if !ok {
		t.Fatalf("expected postfix operand, got %T", expr.Binary[0].Operand)
	}
	selector, ok := postfix.Ops[0].(*ast.SelectorOp)
	if !ok {
		t.Fatalf("expected selector, got %T", postfix.Ops[0])
	}
	if len(selector.Cases) != 2 {
		t.Errorf("expected 2 cases, got %d", len(selector.Cases))
	}
}

func TestCaseExpression(t *testing.T) {
	tree := parse(t, "case $os { 'linux', 'bsd': { notice 'unix' } default: { notice 'other' } }")
	caseExpr, ok := tree.Expressions[0].Primary.(*ast.CaseExpr)
	if !ok {
		t.Fatalf("expected case, got %T", tree.Expressions[0].Primary)
	}
	if len(caseExpr.Propositions) != 2 {
		t.Fatalf("expected 2 propositions, got %d", len(caseExpr.Propositions))
	}
	if len(caseExpr.Propositions[0].Options) != 2 {
		t.Errorf("expected 2 options, got %d", len(caseExpr.Propositions[0].Options))
	}
}

func TestCollectionExpression(t *testing.T) {
	tree := parse(t, "User <| uid == 1000 and group != 'wheel' |>")
	collect, ok := tree.Expressions[0].Primary.(*ast.CollectionExpr)
	if !ok {
		t.Fatalf("expected collection, got %T", tree.Expressions[0].Primary)
	}
	if collect.Kind != ast.CollectAll || collect.TypeName != "User" {
		t.Errorf("got kind %d type %q", collect.Kind, collect.TypeName)
	}
	if collect.First == nil || collect.First.Name != "uid" {
		t.Fatalf("first query incorrect: %+v", collect.First)
	}
	if len(collect.Rest) != 1 || collect.Rest[0].Op != ast.QueryAnd {
		t.Errorf("rest queries incorrect: %+v", collect.Rest)
	}
}

func TestExportedCollection(t *testing.T) {
	tree := parse(t, "Host <<| |>>")
	collect := tree.Expressions[0].Primary.(*ast.CollectionExpr)
	if collect.Kind != ast.CollectExported {
		t.Errorf("expected exported collection")
	}
	if collect.First != nil {
		t.Errorf("expected empty query")
	}
}

func TestResourceDefaults(t *testing.T) {
	tree := parse(t, "File { mode => '0644' }")
	defaults, ok := tree.Expressions[0].Primary.(*ast.ResourceDefaultsExpr)
	if !ok {
		t.Fatalf("expected resource defaults, got %T", tree.Expressions[0].Primary)
	}
	if defaults.TypeName != "File" {
		t.Errorf("got %q", defaults.TypeName)
	}
}

func TestResourceOverride(t *testing.T) {
	tree := parse(t, "File['/tmp/a'] { mode => '0600', owner +> 'root' }")
	override, ok := tree.Expressions[0].Primary.(*ast.ResourceOverrideExpr)
	if !ok {
		t.Fatalf("expected resource override, got %T", tree.Expressions[0].Primary)
	}
	if len(override.Attributes) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(override.Attributes))
	}
	if override.Attributes[1].Op != ast.AttributeAppend {
		t.Errorf("expected append operator")
	}
}

func TestRelationshipChain(t *testing.T) {
	tree := parse(t, "file { '/a': } -> file { '/b': }")
	expr := tree.Expressions[0]
	if len(expr.Binary) != 1 || expr.Binary[0].Op != ast.OpInEdge {
		t.Fatalf("expected one -> entry, got %+v", expr.Binary)
	}
	if _, ok := expr.Binary[0].Operand.(*ast.ResourceExpr); !ok {
		t.Errorf("expected resource operand, got %T", expr.Binary[0].Operand)
	}
}

func TestTypeAccess(t *testing.T) {
	tree := parse(t, "$x = Integer[1, 10]")
	postfix, ok := tree.Expressions[0].Binary[0].Operand.(*ast.PostfixExpr)
	if !ok {
		t.Fatalf("expected postfix, got %T", tree.Expressions[0].Binary[0].Operand)
	}
	access, ok := postfix.Ops[0].(*ast.AccessOp)
	if !ok || len(access.Args) != 2 {
		t.Fatalf("expected access with 2 args")
	}
}

func TestErrors(t *testing.T) {
	tests := []string{
		"file { '/a' ensure => present }", // missing colon
		"class { }",                       // missing title
		"$x = ",                           // missing value
		"if $x { 1 ",                      // unterminated block
		"case $x { }",                     // no propositions
	}
	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			if _, err := Parse("test.mf", input); err == nil {
				t.Errorf("expected a parse error")
			}
		})
	}
}

// Pretty-printing a tree and re-parsing it produces a structurally equal
// tree (positions aside).
func TestPrintRoundTrip(t *testing.T) {
	sources := []string{
		"$x = 1 + 2 * 3",
		"file { '/tmp/a': ensure => present, mode => '0644' }",
		"@user { 'alice': uid => 1000 }",
		"class web($port = 80) { notice $port }",
		"define motd::entry($content) { notice $content }",
		"node 'a.example.com', default { include base }",
		"User <| uid == 1000 |>",
		"$y = $os ? { 'linux' => 1, default => 0 }",
		"if $x > 1 { notice 'big' } else { notice 'small' }",
		"case $x { 1, 2: { notice 'low' } default: { notice 'high' } }",
		"each([1, 2, 3]) |$i, $v| { notice $v }",
		"$h = {'a' => 1, 'b' => [1, 2]}",
		"File['/a'] { mode => '0600' }",
		"file { '/a': } -> file { '/b': }",
		"$t = Integer[1, 10]",
		"unless $x { notice 'no' }",
	}
	ignorePositions := cmpopts.IgnoreTypes(lexer.Position{})
	for _, source := range sources {
		t.Run(source, func(t *testing.T) {
			first := parse(t, source)
			printed := ast.Print(first)
			second, err := Parse("printed.mf", printed)
			if err != nil {
				t.Fatalf("re-parse of %q failed: %v", printed, err)
			}
			second.Path = first.Path
			if diff := cmp.Diff(first.Expressions, second.Expressions, ignorePositions); diff != "" {
				t.Errorf("round trip mismatch for %q:\nprinted: %s\n%s", source, printed, diff)
			}
		})
	}
}
