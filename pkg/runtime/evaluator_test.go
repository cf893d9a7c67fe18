package runtime_test

import (
	"strings"
	"testing"

	"github.com/lemonberrylabs/manifestc/pkg/catalog"
	"github.com/lemonberrylabs/manifestc/pkg/compiler"
	"github.com/lemonberrylabs/manifestc/pkg/logging"
	"github.com/lemonberrylabs/manifestc/pkg/runtime"
	"github.com/lemonberrylabs/manifestc/pkg/types"
	"github.com/stretchr/testify/require"
)

// compile runs a single manifest through the full pipeline with a capture
// logger.
func compile(t *testing.T, source string, facts runtime.FactProvider) (*catalog.Catalog, *logging.Capture) {
	t.Helper()
	capture := &logging.Capture{}
	cat, err := compiler.CompileSource("test.mf", source, "test.node", facts, capture)
	require.NoError(t, err, "compilation failed")
	return cat, capture
}

// compileError expects the compilation to fail and returns the error.
func compileError(t *testing.T, source string) error {
	t.Helper()
	_, err := compiler.CompileSource("test.mf", source, "test.node", nil, &logging.Capture{})
	require.Error(t, err, "expected a compilation error")
	return err
}

func findResource(cat *catalog.Catalog, typeName, title string) *catalog.Resource {
	return cat.Find(types.NewResourceType(typeName, title))
}

func TestArithmeticAndNotice(t *testing.T) {
	cat, capture := compile(t, "$x = 1 + 2 * 3 notice $x", nil)

	notices := capture.MessagesAt(logging.Notice)
	require.Equal(t, []string{"7"}, notices)

	// Only the implicit main class is in the catalog
	count := 0
	cat.Each(func(r *catalog.Resource) bool {
		if !r.Type.IsClass() {
			count++
		}
		return true
	})
	require.Zero(t, count)
	require.Empty(t, capture.MessagesAt(logging.Error))
}

func TestOperatorEvaluation(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2", "3"},
		{"10 - 2 * 3", "4"},
		{"(10 - 2) * 3", "24"},
		{"7 % 3", "1"},
		{"10 / 4", "2"},
		{"10.0 / 4", "2.5"},
		{"1 + 2.5", "3.5"},
		{"2 << 3", "16"},
		{"16 >> 2", "4"},
		{"-2 << 1", "-4"},
		{"[1, 2] << 3", "[1, 2, 3]"},
		{"[1] + [2, 3]", "[1, 2, 3]"},
		{"1 == 1.0", "true"},
		{"'ABC' == 'abc'", "true"},
		{"'a' < 'B'", "true"},
		{"3 >= 3", "true"},
		{"1 != 2", "true"},
		{"true and false", "false"},
		{"false or true", "true"},
		{"!false", "true"},
		{"!''", "false"},
		{"'ell' in 'hello'", "true"},
		{"'ELL' in 'hello'", "true"},
		{"2 in [1, 2, 3]", "true"},
		{"'k' in {'k' => 1}", "true"},
		{"4 in [1, 2, 3]", "false"},
		{"Integer in [1, 'a']", "true"},
		{"'x' =~ /x/", "true"},
		{"'x' !~ /y/", "true"},
		{"5 ? { Integer => 'int', default => 'other' }", "int"},
		{"'b' ? { /a/ => 'no', /b/ => 'yes', default => 'none' }", "yes"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, capture := compile(t, "notice("+tt.input+")", nil)
			require.Equal(t, []string{tt.want}, capture.MessagesAt(logging.Notice))
		})
	}
}

func TestResourceDeclaration(t *testing.T) {
	cat, _ := compile(t, "file { '/tmp/a': ensure => present, mode => '0644' }", nil)

	resource := findResource(cat, "file", "/tmp/a")
	require.NotNil(t, resource)
	require.Equal(t, catalog.StatusReal, resource.Status)

	ensure, ok := resource.Attributes.Get("ensure")
	require.True(t, ok)
	require.Equal(t, "present", ensure.Str())
	mode, ok := resource.Attributes.Get("mode")
	require.True(t, ok)
	require.Equal(t, "0644", mode.Str())
}

func TestDuplicateResourceFails(t *testing.T) {
	err := compileError(t, "file { '/a': }\nfile { '/a': }")
	ee, ok := err.(*types.EvaluationError)
	require.True(t, ok, "expected an evaluation error, got %T", err)
	require.Contains(t, ee.Message, "previously declared")
	require.Equal(t, 2, ee.Pos.Line)
}

func TestVirtualAndCollection(t *testing.T) {
	cat, _ := compile(t, "@user { 'alice': uid => 1000 }\nUser <| uid == 1000 |>", nil)

	resource := findResource(cat, "user", "alice")
	require.NotNil(t, resource)
	require.Equal(t, catalog.StatusRealizedFromVirtual, resource.Status)
}

func TestVirtualWithoutCollectionStaysOut(t *testing.T) {
	cat, _ := compile(t, "@user { 'alice': uid => 1000 }\nUser <| uid == 2000 |>", nil)

	resource := findResource(cat, "user", "alice")
	require.NotNil(t, resource)
	require.Equal(t, catalog.StatusVirtual, resource.Status)

	seen := false
	cat.Each(func(r *catalog.Resource) bool {
		if r.Type.TypeName == "user" {
			seen = true
		}
		return true
	})
	require.False(t, seen, "unrealized virtual resources stay out of iteration")
}

func TestExportedCollection(t *testing.T) {
	cat, _ := compile(t, "@@host { 'db': ip => '10.0.0.1' }\nHost <<| |>>", nil)
	resource := findResource(cat, "host", "db")
	require.Equal(t, catalog.StatusRealizedFromExported, resource.Status)
}

func TestRealizeFunction(t *testing.T) {
	cat, _ := compile(t, "@user { 'bob': }\nrealize(User['bob'])", nil)
	require.Equal(t, catalog.StatusRealizedFromVirtual, findResource(cat, "user", "bob").Status)
}

func TestClassWithParameters(t *testing.T) {
	cat, _ := compile(t, `
class web($port = 80) {
  notify { "port-$port": }
}
include web
`, nil)

	require.NotNil(t, findResource(cat, "notify", "port-80"))
	require.NotNil(t, findResource(cat, "class", "web"))
}

func TestClassDeclarationWithAttributes(t *testing.T) {
	cat, _ := compile(t, `
class web($port) {
  notify { "port-$port": }
}
class { 'web': port => 8080 }
`, nil)
	require.NotNil(t, findResource(cat, "notify", "port-8080"))
}

func TestIncludeIsIdempotent(t *testing.T) {
	source := `
class base { notify { 'hello': } }
include base
include base
`
	cat, _ := compile(t, source, nil)
	count := 0
	cat.Each(func(r *catalog.Resource) bool {
		if r.Type.TypeName == "notify" {
			count++
		}
		return true
	})
	require.Equal(t, 1, count)
}

func TestClassRedeclarationWithDifferentParameters(t *testing.T) {
	err := compileError(t, `
class web($port = 80) { }
class { 'web': port => 80 }
class { 'web': port => 90 }
`)
	require.Contains(t, err.Error(), "previously declared")
}

func TestClassParameterDefaultsSeeEarlierParameters(t *testing.T) {
	_, capture := compile(t, `
class app($base = '/srv', $home = "$base/app") {
  notice $home
}
include app
`, nil)
	require.Equal(t, []string{"/srv/app"}, capture.MessagesAt(logging.Notice))
}

func TestClassRequiredParameter(t *testing.T) {
	err := compileError(t, "class web($port) { }\ninclude web")
	require.Contains(t, err.Error(), "required")
}

func TestClassInvalidParameter(t *testing.T) {
	err := compileError(t, "class web { }\nclass { 'web': bogus => 1 }")
	require.Contains(t, err.Error(), "not a valid parameter")
}

func TestClassInheritance(t *testing.T) {
	_, capture := compile(t, `
class base { $root = '/srv' }
class app inherits base { notice $root }
include app
`, nil)
	require.Equal(t, []string{"/srv"}, capture.MessagesAt(logging.Notice))
}

func TestQualifiedVariableAccess(t *testing.T) {
	_, capture := compile(t, `
class config { $timeout = 30 }
include config
notice $config::timeout
`, nil)
	require.Equal(t, []string{"30"}, capture.MessagesAt(logging.Notice))
}

func TestQualifiedVariableDeclaresClassOnDemand(t *testing.T) {
	cat, capture := compile(t, `
class config { $timeout = 30 }
notice $config::timeout
`, nil)
	require.Equal(t, []string{"30"}, capture.MessagesAt(logging.Notice))
	require.NotNil(t, findResource(cat, "class", "config"))
}

func TestDefinedType(t *testing.T) {
	cat, _ := compile(t, `
define motd::entry($content = 'empty') {
  notify { "motd-$title-$content": }
}
motd::entry { 'one': content => 'hello' }
motd::entry { 'two': }
`, nil)
	require.NotNil(t, findResource(cat, "notify", "motd-one-hello"))
	require.NotNil(t, findResource(cat, "notify", "motd-two-empty"))
	require.NotNil(t, findResource(cat, "motd::entry", "one"))
}

func TestAssertTypeLambdaFallback(t *testing.T) {
	_, capture := compile(t, `
$x = assert_type(Integer, 'hi') |$actual| { 0 }
notice $x
`, nil)
	require.Equal(t, []string{"0"}, capture.MessagesAt(logging.Notice))
}

func TestAssertTypePasses(t *testing.T) {
	_, capture := compile(t, "notice(assert_type(String, 'ok'))", nil)
	require.Equal(t, []string{"ok"}, capture.MessagesAt(logging.Notice))
}

func TestAssertTypeFailsWithoutLambda(t *testing.T) {
	err := compileError(t, "$x = assert_type(Integer, 'hi')")
	require.Contains(t, err.Error(), "type assertion failure")
}

func TestVariableWriteOnce(t *testing.T) {
	err := compileError(t, "$x = 1\n$x = 2")
	ee := err.(*types.EvaluationError)
	require.Contains(t, ee.Message, "previously assigned at test.mf:1")
	require.Equal(t, 2, ee.Pos.Line)
}

func TestFactConflictOnAssignment(t *testing.T) {
	facts := runtime.MapFacts{"role": types.NewString("web")}
	capture := &logging.Capture{}
	_, err := compiler.CompileSource("test.mf", "$role = 'db'", "n", facts, capture)
	require.Error(t, err)
	require.Contains(t, err.Error(), "a fact or node parameter exists")
}

func TestFactsVisibleInTopScope(t *testing.T) {
	facts := runtime.MapFacts{
		"hostname": types.NewString("web01"),
		"cpus":     types.NewInteger(8),
	}
	capture := &logging.Capture{}
	_, err := compiler.CompileSource("test.mf", `notice "$hostname has $cpus cpus"`, "n", facts, capture)
	require.NoError(t, err)
	require.Equal(t, []string{"web01 has 8 cpus"}, capture.MessagesAt(logging.Notice))
}

func TestChildScopeReadsParent(t *testing.T) {
	_, capture := compile(t, `
$outer = 'seen'
if true {
  notice $outer
  $inner = 'scoped'
}
`, nil)
	require.Equal(t, []string{"seen"}, capture.MessagesAt(logging.Notice))
}

func TestMatchVariables(t *testing.T) {
	_, capture := compile(t, `
if 'release-1.2' =~ /release-(\d+)\.(\d+)/ {
  notice "$1.$2"
}
`, nil)
	require.Equal(t, []string{"1.2"}, capture.MessagesAt(logging.Notice))
}

func TestCaseMatchBindsCaptures(t *testing.T) {
	_, capture := compile(t, `
case 'db-42' {
  /^db-(\d+)$/: { notice $1 }
  default: { notice 'none' }
}
`, nil)
	require.Equal(t, []string{"42"}, capture.MessagesAt(logging.Notice))
}

func TestUnlessExpression(t *testing.T) {
	_, capture := compile(t, "unless false { notice 'ran' }", nil)
	require.Equal(t, []string{"ran"}, capture.MessagesAt(logging.Notice))
}

func TestEachAndFilter(t *testing.T) {
	_, capture := compile(t, `
[1, 2, 3].each |$v| { notice $v }
$big = [1, 2, 3, 4].filter |$v| { $v > 2 }
notice $big
`, nil)
	require.Equal(t, []string{"1", "2", "3", "[3, 4]"}, capture.MessagesAt(logging.Notice))
}

func TestEachWithIndex(t *testing.T) {
	_, capture := compile(t, "each(['a', 'b']) |$i, $v| { notice \"$i=$v\" }", nil)
	require.Equal(t, []string{"0=a", "1=b"}, capture.MessagesAt(logging.Notice))
}

func TestEachOverHashAndRange(t *testing.T) {
	_, capture := compile(t, `
{'a' => 1, 'b' => 2}.each |$k, $v| { notice "$k$v" }
Integer[1, 3].each |$v| { notice $v }
each(3) |$v| { notice $v }
`, nil)
	require.Equal(t, []string{"a1", "b2", "1", "2", "3", "0", "1", "2"}, capture.MessagesAt(logging.Notice))
}

func TestSplit(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"notice(split('a,b,c', ','))", "[a, b, c]"},
		{"notice(split('a1b2c', /\\d/))", "[a, b, c]"},
		{"notice(split('abc', ''))", "[a, b, c]"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, capture := compile(t, tt.input, nil)
			require.Equal(t, []string{tt.want}, capture.MessagesAt(logging.Notice))
		})
	}
}

func TestWith(t *testing.T) {
	_, capture := compile(t, "notice(with(1, 2) |$a, $b| { $a + $b })", nil)
	require.Equal(t, []string{"3"}, capture.MessagesAt(logging.Notice))
}

func TestShellquote(t *testing.T) {
	_, capture := compile(t, `notice(shellquote('plain', 'with space', ['a', 'b c']))`, nil)
	require.Equal(t, []string{`plain "with space" a "b c"`}, capture.MessagesAt(logging.Notice))
}

func TestFailAborts(t *testing.T) {
	err := compileError(t, "fail 'boom'\nnotice 'unreached'")
	require.Contains(t, err.Error(), "boom")
}

func TestSplatExpandsArguments(t *testing.T) {
	_, capture := compile(t, `
$args = [1, 2]
notice(with(*$args) |$a, $b| { $a + $b })
`, nil)
	require.Equal(t, []string{"3"}, capture.MessagesAt(logging.Notice))
}

func TestSplatInArrayLiteral(t *testing.T) {
	_, capture := compile(t, "$inner = [2, 3] notice([1, *$inner])", nil)
	require.Equal(t, []string{"[1, 2, 3]"}, capture.MessagesAt(logging.Notice))
}

func TestInterpolation(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`$n = 3 notice "n is $n"`, "n is 3"},
		{`$n = 3 notice "n+1 is ${n + 1}"`, "n+1 is 4"},
		{`$l = [1, 2] notice "first: ${l[0]}"`, "first: 1"},
		{`notice "unset: [$missing]"`, "unset: []"},
		{`notice "escaped \$literal"`, "escaped $literal"},
		{`$h = {'k' => 'v'} notice "${h['k']}"`, "v"},
		{`$x = 1 notice "${x} it's fine"`, "1 it's fine"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			_, capture := compile(t, tt.input, nil)
			require.Equal(t, []string{tt.want}, capture.MessagesAt(logging.Notice))
		})
	}
}

func TestHeredocEvaluation(t *testing.T) {
	source := "$who = 'world'\n$text = @(\"EOT\")\n  hello $who\n  | EOT\nnotice $text\n"
	_, capture := compile(t, source, nil)
	require.Equal(t, []string{"hello world\n"}, capture.MessagesAt(logging.Notice))
}

func TestResourceDefaultsApply(t *testing.T) {
	cat, _ := compile(t, `
File { mode => '0644' }
file { '/a': }
file { '/b': mode => '0600' }
`, nil)
	a, _ := findResource(cat, "file", "/a").Attributes.Get("mode")
	require.Equal(t, "0644", a.Str())
	b, _ := findResource(cat, "file", "/b").Attributes.Get("mode")
	require.Equal(t, "0600", b.Str())
}

func TestResourceDefaultBody(t *testing.T) {
	cat, _ := compile(t, `
file {
  default: mode => '0600', ensure => present;
  '/x': ;
  '/y': mode => '0644'
}
`, nil)
	x, _ := findResource(cat, "file", "/x").Attributes.Get("mode")
	require.Equal(t, "0600", x.Str())
	y, _ := findResource(cat, "file", "/y").Attributes.Get("mode")
	require.Equal(t, "0644", y.Str())
	ensure, _ := findResource(cat, "file", "/y").Attributes.Get("ensure")
	require.Equal(t, "present", ensure.Str())
}

func TestAppendToDefaultInBody(t *testing.T) {
	cat, _ := compile(t, `
File { tag => ['base'] }
file { '/a': tag +> 'extra' }
`, nil)
	tag, ok := findResource(cat, "file", "/a").Attributes.Get("tag")
	require.True(t, ok)
	elements := tag.Array()
	require.Len(t, elements, 2)
	require.Equal(t, "base", elements[0].Str())
	require.Equal(t, "extra", elements[1].Str())
}

func TestMultipleTitles(t *testing.T) {
	cat, _ := compile(t, "file { ['/a', '/b']: ensure => present }", nil)
	require.NotNil(t, findResource(cat, "file", "/a"))
	require.NotNil(t, findResource(cat, "file", "/b"))
}

func TestRelationshipMetaparameters(t *testing.T) {
	cat, _ := compile(t, `
file { '/a': before => File['/b'] }
file { '/b': }
service { 'apache': subscribe => File['/b'] }
`, nil)
	edges := cat.Edges()
	require.Len(t, edges, 2)
	require.Equal(t, "File['/a']", edges[0].Source.String())
	require.Equal(t, "File['/b']", edges[0].Target.String())
	// subscribe points backwards
	require.Equal(t, "File['/b']", edges[1].Source.String())
	require.Equal(t, "Service['apache']", edges[1].Target.String())
}

func TestRelationshipArrows(t *testing.T) {
	cat, _ := compile(t, `
file { '/a': }
file { '/b': }
File['/a'] -> File['/b']
`, nil)
	edges := cat.Edges()
	require.Len(t, edges, 1)
	require.Equal(t, "File['/a']", edges[0].Source.String())
	require.Equal(t, "File['/b']", edges[0].Target.String())
}

func TestRelationshipToMissingResource(t *testing.T) {
	err := compileError(t, "file { '/a': before => File['/nope'] }")
	require.Contains(t, err.Error(), "does not exist in the catalog")
}

func TestDependencyCycle(t *testing.T) {
	err := compileError(t, `
file { '/a': before => File['/b'] }
file { '/b': before => File['/a'] }
`)
	require.Contains(t, err.Error(), "dependency cycle")
}

func TestMetaparameterValidation(t *testing.T) {
	err := compileError(t, "file { '/a': noop => 'yes' }")
	require.Contains(t, err.Error(), "expected Boolean")

	cat, _ := compile(t, "file { '/a': tag => 'web' }", nil)
	tag, ok := findResource(cat, "file", "/a").Attributes.Get("tag")
	require.True(t, ok)
	require.Equal(t, types.KindArray, tag.Deref().Kind(), "single tag converts to an array")
}

func TestResourceOverride(t *testing.T) {
	cat, _ := compile(t, `
class base {
  file { '/a': mode => '0644' }
}
include base
File['/a'] { owner => 'root' }
`, nil)
	owner, ok := findResource(cat, "file", "/a").Attributes.Get("owner")
	require.True(t, ok)
	require.Equal(t, "root", owner.Str())
}

func TestResourceOverrideOfSetAttributeFromSameScopeFails(t *testing.T) {
	err := compileError(t, `
file { '/a': mode => '0644' }
File['/a'] { mode => '0600' }
`)
	require.Contains(t, err.Error(), "already been set")
}

func TestOverrideFromEnclosingScopeReplaces(t *testing.T) {
	cat, _ := compile(t, `
class base {
  file { '/a': mode => '0644' }
}
include base
File['/a'] { mode => '0600' }
`, nil)
	mode, _ := findResource(cat, "file", "/a").Attributes.Get("mode")
	require.Equal(t, "0600", mode.Str())
}

func TestNodeDefinitionEvaluation(t *testing.T) {
	cat, _ := compile(t, `
node 'test.node' { notify { 'from-node': } }
node default { notify { 'from-default': } }
`, nil)
	require.NotNil(t, findResource(cat, "notify", "from-node"))
	require.Nil(t, findResource(cat, "notify", "from-default"))
	require.NotNil(t, findResource(cat, "node", "test.node"))
}

func TestUnproductiveExpression(t *testing.T) {
	err := compileError(t, "1 + 1\nnotice 'after'")
	require.Contains(t, err.Error(), "unproductive")
}

func TestSelectorNoMatchFails(t *testing.T) {
	err := compileError(t, "$x = 5 ? { 6 => 'a' }")
	require.Contains(t, err.Error(), "no matching selector case")
}

func TestDivisionByZero(t *testing.T) {
	err := compileError(t, "$x = 1 / 0")
	require.Contains(t, err.Error(), "divide by zero")
}

func TestIntegerOverflowOnDivision(t *testing.T) {
	err := compileError(t, "$x = (-9223372036854775807 - 1) / -1")
	require.Contains(t, err.Error(), "overflow")
}

func TestCrossKindComparisonFails(t *testing.T) {
	err := compileError(t, "$x = 1 < 'two'")
	require.Contains(t, err.Error(), "comparison")
}

func TestTypeComparison(t *testing.T) {
	_, capture := compile(t, "notice(Integer[1, 5] <= Integer)", nil)
	require.Equal(t, []string{"true"}, capture.MessagesAt(logging.Notice))
}

func TestScannerValidations(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"class main { }", "built-in class"},
		{"class web($title) { }", "reserved"},
		{"class web(*$rest) { }", "captures rest"},
		{"class web($before) { }", "metaparameter"},
		{"class web { }\ndefine web { }", "previously defined as a class"},
		{"define web { }\nclass web { }", "previously defined as a defined type"},
		{"class a inherits b { }\nclass a inherits c { }", "already inherits"},
		{"node default { }\nnode default { }", "default node was previously defined"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			err := compileError(t, tt.source)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNestedClassQualification(t *testing.T) {
	cat, _ := compile(t, `
class outer {
  class inner { $x = 1 }
}
include outer::inner
`, nil)
	require.NotNil(t, findResource(cat, "class", "outer::inner"))
}

func TestUndeclaredClassFails(t *testing.T) {
	err := compileError(t, "include missing")
	require.Contains(t, err.Error(), "has not been defined")
}

func TestCatalogOrderPreservation(t *testing.T) {
	cat, _ := compile(t, `
file { '/1': }
user { 'u': }
file { '/2': }
`, nil)
	var order []string
	cat.Each(func(r *catalog.Resource) bool {
		if !r.Type.IsClass() {
			order = append(order, r.Type.Title)
		}
		return true
	})
	require.Equal(t, []string{"/1", "u", "/2"}, order)
}

func TestDefinedFunction(t *testing.T) {
	_, capture := compile(t, `
class web { }
notice(defined('web'))
notice(defined('nope'))
`, nil)
	require.Equal(t, []string{"true", "false"}, capture.MessagesAt(logging.Notice))
}

func TestLoggingLevels(t *testing.T) {
	_, capture := compile(t, `
debug 'd'
info 'i'
warning 'w'
err 'e'
`, nil)
	require.Equal(t, []string{"d"}, capture.MessagesAt(logging.Debug))
	require.Equal(t, []string{"i"}, capture.MessagesAt(logging.Info))
	require.Equal(t, []string{"w"}, capture.MessagesAt(logging.Warning))
	require.Equal(t, []string{"e"}, capture.MessagesAt(logging.Error))
}

func TestDiagnosticCarriesSnippet(t *testing.T) {
	err := compileError(t, "$x = 1\n$x = 2")
	ee := err.(*types.EvaluationError)
	require.True(t, strings.Contains(ee.Line, "$x = 2"), "snippet should contain the offending line, got %q", ee.Line)
}

func TestSessionPersistsState(t *testing.T) {
	session := runtime.NewSession(nil, &logging.Capture{})
	_, err := session.Evaluate("$x = 21")
	require.NoError(t, err)
	value, err := session.Evaluate("$x * 2")
	require.NoError(t, err)
	require.Equal(t, "42", value.String())
}
