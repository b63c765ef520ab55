package tree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sample() Node {
	return Node{
		"about": map[string]any{"p1": "first", "p2": "second"},
		"services": map[string]any{
			"items": []any{
				map[string]any{"id": "s_1", "title": "Droit civil"},
			},
		},
	}
}

func TestSetReturnsNewTree(t *testing.T) {
	root := sample()
	out, ok := Set(root, SplitPath("services.items.0.title"), "Droit pénal")
	require.True(t, ok)
	require.Equal(t, "Droit pénal", String(out, SplitPath("services.items.0.title")))
	require.Equal(t, "Droit civil", String(root, SplitPath("services.items.0.title")))
}

func TestSetMissingPathIsNoop(t *testing.T) {
	root := sample()
	before := Clone(root)

	for _, path := range []string{
		"about.p9.missing",
		"services.items.3.title",
		"services.items.x.title",
		"about.p1.deeper",
		"contact.form.name",
	} {
		out, ok := Set(root, SplitPath(path), "X")
		require.False(t, ok, path)
		require.Equal(t, before, any(out), path)
	}
	require.Equal(t, before, any(root))
}

func TestSetAddsLeafKey(t *testing.T) {
	out, ok := Set(sample(), SplitPath("about.p3"), "third")
	require.True(t, ok)
	require.Equal(t, "third", String(out, []string{"about", "p3"}))
}

func TestEnsureCreatesObjects(t *testing.T) {
	out, ok := Ensure(Node{}, []string{"content", "fr", "services"})
	require.True(t, ok)
	v, found := Get(out, []string{"content", "fr", "services"})
	require.True(t, found)
	require.Equal(t, map[string]any{}, v)

	_, ok = Ensure(sample(), []string{"about", "p1", "x"})
	require.False(t, ok)
}

func TestMergeOverlaysRecursively(t *testing.T) {
	base := Node{"contact": map[string]any{"email": "a@x", "address": "Rabat"}, "settings": map[string]any{"themeColor": "gold"}}
	overlay := Node{"contact": map[string]any{"email": "b@x"}, "testimonials": []any{"t"}}

	out := Merge(base, overlay)
	require.Equal(t, "b@x", String(out, []string{"contact", "email"}))
	require.Equal(t, "Rabat", String(out, []string{"contact", "address"}))
	require.Equal(t, "gold", String(out, []string{"settings", "themeColor"}))
	require.Equal(t, "a@x", String(base, []string{"contact", "email"}))
}

func TestFromValueRoundTrip(t *testing.T) {
	type doc struct {
		Name  string   `json:"name"`
		Items []string `json:"items"`
	}
	n, err := FromValue(doc{Name: "x", Items: []string{"a"}})
	require.NoError(t, err)
	require.Equal(t, "x", n["name"])

	var back doc
	require.NoError(t, ToValue(n, &back))
	require.Equal(t, doc{Name: "x", Items: []string{"a"}}, back)
}
