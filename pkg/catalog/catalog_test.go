package catalog

import (
	"strings"
	"testing"

	"github.com/lemonberrylabs/manifestc/pkg/ast"
	"github.com/lemonberrylabs/manifestc/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestAddAndFind(t *testing.T) {
	cat := New()
	ref := types.NewResourceType("file", "/tmp/a")
	resource, err := cat.Add(ref, "site.mf", 3, nil, StatusReal)
	require.NoError(t, err)
	require.Equal(t, "File['/tmp/a']", resource.String())

	found := cat.Find(ref)
	require.Same(t, resource, found)

	// Lookup is case-insensitive on the title
	require.NotNil(t, cat.Find(types.NewResourceType("file", "/TMP/A")))
	require.Nil(t, cat.Find(types.NewResourceType("file", "/tmp/b")))
}

func TestDuplicateResource(t *testing.T) {
	cat := New()
	ref := types.NewResourceType("file", "/a")
	_, err := cat.Add(ref, "site.mf", 1, nil, StatusReal)
	require.NoError(t, err)

	_, err = cat.Add(ref, "site.mf", 2, nil, StatusReal)
	require.Error(t, err)
	require.Contains(t, err.Error(), "previously declared at site.mf:1")
}

func TestTitleNormalization(t *testing.T) {
	cat := New()
	_, err := cat.Add(types.NewResourceType("user", "  Alice "), "m.mf", 1, nil, StatusReal)
	require.NoError(t, err)
	_, err = cat.Add(types.NewResourceType("user", "alice"), "m.mf", 2, nil, StatusReal)
	require.Error(t, err)
}

func TestIterationOrderAndVirtualFiltering(t *testing.T) {
	cat := New()
	titles := []string{"/c", "/a", "/b"}
	for i, title := range titles {
		_, err := cat.Add(types.NewResourceType("file", title), "m.mf", i+1, nil, StatusReal)
		require.NoError(t, err)
	}
	virtual, err := cat.Add(types.NewResourceType("user", "ghost"), "m.mf", 4, nil, StatusVirtual)
	require.NoError(t, err)

	var seen []string
	cat.Each(func(r *Resource) bool {
		seen = append(seen, r.Type.Title)
		return true
	})
	require.Equal(t, titles, seen, "iteration must follow declaration order")

	virtual.Status = StatusRealizedFromVirtual
	seen = nil
	cat.Each(func(r *Resource) bool {
		seen = append(seen, r.Type.Title)
		return true
	})
	require.Equal(t, append(titles, "ghost"), seen)
}

func TestAttributes(t *testing.T) {
	parent := NewAttributes(nil)
	parent.Set("mode", types.NewString("0644"))

	attrs := NewAttributes(parent)
	attrs.Set("ensure", types.NewString("present"))

	v, ok := attrs.Get("mode")
	require.True(t, ok, "parent attributes are visible")
	require.Equal(t, "0644", v.Str())

	_, ok = attrs.GetLocal("mode")
	require.False(t, ok)

	// Undef means unset
	attrs.Set("mode", types.Undef)
	_, ok = attrs.Get("mode")
	require.False(t, ok)
}

func TestAttributeAppend(t *testing.T) {
	attrs := NewAttributes(nil)
	ok := attrs.Append("before", types.NewString("one"), true)
	require.True(t, ok)
	ok = attrs.Append("before", types.NewArray([]types.Value{types.NewString("two"), types.NewString("one")}), true)
	require.True(t, ok)

	v, _ := attrs.Get("before")
	require.Equal(t, 2, len(v.Array()), "duplicates are skipped")

	attrs.Set("noop", types.NewBoolean(true))
	require.False(t, attrs.Append("noop", types.NewString("x"), false))
}

func TestNodeDefinitions(t *testing.T) {
	cat := New()
	require.NoError(t, cat.DefineNode(&NodeDefinition{
		Names: []ast.Hostname{{Value: "Web01.Example.com"}},
		Path:  "site.mf", Line: 1,
	}))
	require.NoError(t, cat.DefineNode(&NodeDefinition{
		Names: []ast.Hostname{{Value: `^db\d+$`, Regex: true}},
		Path:  "site.mf", Line: 5,
	}))
	require.NoError(t, cat.DefineNode(&NodeDefinition{
		Names: []ast.Hostname{{Default: true}},
		Path:  "site.mf", Line: 9,
	}))

	// Exact names match case-insensitively
	def, name, err := cat.MatchNode("web01.example.com")
	require.NoError(t, err)
	require.Equal(t, 1, def.Line)
	require.Equal(t, "web01.example.com", name)

	// Then regex patterns
	def, name, err = cat.MatchNode("db42")
	require.NoError(t, err)
	require.Equal(t, 5, def.Line)
	require.True(t, strings.HasPrefix(name, "/"))

	// Then the default block
	def, name, err = cat.MatchNode("unknown")
	require.NoError(t, err)
	require.Equal(t, 9, def.Line)
	require.Equal(t, "default", name)

	// Duplicate default and duplicate names are rejected
	require.Error(t, cat.DefineNode(&NodeDefinition{Names: []ast.Hostname{{Default: true}}}))
	require.Error(t, cat.DefineNode(&NodeDefinition{Names: []ast.Hostname{{Value: "web01.example.com"}}}))
	require.Error(t, cat.DefineNode(&NodeDefinition{Names: []ast.Hostname{{Value: `^db\d+$`, Regex: true}}}))
}

func TestFinalizeEdges(t *testing.T) {
	cat := New()
	a, err := cat.Add(types.NewResourceType("file", "/a"), "m.mf", 1, nil, StatusReal)
	require.NoError(t, err)
	b, err := cat.Add(types.NewResourceType("file", "/b"), "m.mf", 2, nil, StatusReal)
	require.NoError(t, err)
	c, err := cat.Add(types.NewResourceType("file", "/c"), "m.mf", 3, nil, StatusReal)
	require.NoError(t, err)

	a.Attributes.Set("before", types.NewArray([]types.Value{
		types.NewType(types.NewResourceType("file", "/b")),
	}))
	c.Attributes.Set("require", types.NewArray([]types.Value{
		types.NewType(types.NewResourceType("file", "/b")),
	}))

	require.NoError(t, cat.Finalize())
	edges := cat.Edges()
	require.Len(t, edges, 2)

	// before: a -> b; require is reversed: b -> c
	require.Same(t, a, edges[0].Source)
	require.Same(t, b, edges[0].Target)
	require.Same(t, b, edges[1].Source)
	require.Same(t, c, edges[1].Target)
}

func TestFinalizeMissingTarget(t *testing.T) {
	cat := New()
	a, err := cat.Add(types.NewResourceType("file", "/a"), "m.mf", 1, nil, StatusReal)
	require.NoError(t, err)
	a.Attributes.Set("notify", types.NewArray([]types.Value{
		types.NewType(types.NewResourceType("service", "apache")),
	}))
	err = cat.Finalize()
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist in the catalog")
}

func TestFinalizeCycleDetection(t *testing.T) {
	cat := New()
	a, _ := cat.Add(types.NewResourceType("file", "/a"), "m.mf", 1, nil, StatusReal)
	b, _ := cat.Add(types.NewResourceType("file", "/b"), "m.mf", 2, nil, StatusReal)

	a.Attributes.Set("before", types.NewArray([]types.Value{
		types.NewType(types.NewResourceType("file", "/b")),
	}))
	b.Attributes.Set("before", types.NewArray([]types.Value{
		types.NewType(types.NewResourceType("file", "/a")),
	}))

	err := cat.Finalize()
	require.Error(t, err)
	require.Contains(t, err.Error(), "dependency cycle")
}

func TestClassRegistry(t *testing.T) {
	cat := New()
	cat.DefineClass(&ClassDefinition{Name: "web", Path: "m.mf", Line: 1})
	cat.DefineClass(&ClassDefinition{Name: "web", Path: "m.mf", Line: 10})
	require.Len(t, cat.FindClass("web"), 2)
	require.Len(t, cat.FindClass("Web"), 2)
	require.Nil(t, cat.FindClass("db"))
}

func TestDefinedTypeRegistry(t *testing.T) {
	cat := New()
	require.NoError(t, cat.DefineType(&DefinedTypeDefinition{Name: "motd::entry", Path: "m.mf", Line: 1}))
	err := cat.DefineType(&DefinedTypeDefinition{Name: "motd::entry", Path: "m.mf", Line: 5})
	require.Error(t, err)
	require.Contains(t, err.Error(), "previously defined at m.mf:1")
	require.NotNil(t, cat.FindDefinedType("motd::entry"))
}
