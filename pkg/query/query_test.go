package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuchsia-dev/compograph/pkg/fpm"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  *Query
	}{
		{input: "all()", want: &Query{Verb: "all"}},
		{input: "  sort( ) ", want: &Query{Verb: "sort"}},
		{input: "deps(appmgr)", want: &Query{Verb: "deps", Args: []string{"appmgr"}}},
		{input: "path(appmgr, tcp)", want: &Query{Verb: "path", Args: []string{"appmgr", "tcp"}}},
		{input: "info( fonts )", want: &Query{Verb: "info", Args: []string{"fonts"}}},
	}
	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			got, err := Parse(test.input)
			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}

	syntaxErrors := []string{
		"",
		"deps",
		"deps(appmgr",
		"deps appmgr)",
		"explode(appmgr)",
		"deps()",
		"deps(a,b)",
		"path(a)",
		"deps(,)",
	}
	for _, input := range syntaxErrors {
		t.Run(fmt.Sprintf("syntax error %q", input), func(t *testing.T) {
			_, err := Parse(input)
			assert.ErrorIs(t, err, ErrSyntax)
		})
	}
}

func TestQueryString(t *testing.T) {
	q, err := Parse("path(a, b)")
	require.NoError(t, err)
	assert.Equal(t, "path(a,b)", q.String())
}

// testSource is appmgr -> {sysmgr, netstack}, sysmgr -> netstack,
// netstack -> tcp, fonts standalone.
type testSource struct{}

var testPackages = map[string][]string{
	"appmgr":   {"sysmgr", "netstack"},
	"sysmgr":   {"netstack"},
	"netstack": {"tcp"},
	"tcp":      nil,
	"fonts":    nil,
}

func (testSource) Index(_ context.Context) ([]fpm.Package, error) {
	index := make([]fpm.Package, 0, len(testPackages))
	for _, name := range []string{"appmgr", "sysmgr", "netstack", "tcp", "fonts"} {
		index = append(index, fpm.Package{Name: name, Version: "1.0.0"})
	}
	return index, nil
}

func (testSource) Get(_ context.Context, name string) (*fpm.Package, error) {
	deps, ok := testPackages[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, fpm.ErrNotFound)
	}
	return &fpm.Package{Name: name, Version: "1.0.0", Deps: deps}, nil
}

func testHandler(t *testing.T) *Handler {
	t.Helper()
	h := NewHandler(testSource{})
	require.NoError(t, h.Rebuild(context.Background()))
	return h
}

func TestEval(t *testing.T) {
	h := testHandler(t)
	ctx := context.Background()

	t.Run("all", func(t *testing.T) {
		result, err := h.Eval(ctx, "all()")
		require.NoError(t, err)
		assert.Equal(t, []string{"appmgr", "fonts", "netstack", "sysmgr", "tcp"}, result.Names)
	})

	t.Run("deps is transitive", func(t *testing.T) {
		result, err := h.Eval(ctx, "deps(appmgr)")
		require.NoError(t, err)
		assert.Equal(t, []string{"netstack", "sysmgr", "tcp"}, result.Names)
	})

	t.Run("rdeps is transitive", func(t *testing.T) {
		result, err := h.Eval(ctx, "rdeps(tcp)")
		require.NoError(t, err)
		assert.Equal(t, []string{"appmgr", "netstack", "sysmgr"}, result.Names)
	})

	t.Run("path", func(t *testing.T) {
		result, err := h.Eval(ctx, "path(appmgr, tcp)")
		require.NoError(t, err)
		assert.Equal(t, []string{"appmgr", "netstack", "tcp"}, result.Names)
	})

	t.Run("path with no route is empty", func(t *testing.T) {
		result, err := h.Eval(ctx, "path(fonts, tcp)")
		require.NoError(t, err)
		assert.Empty(t, result.Names)
	})

	t.Run("sort", func(t *testing.T) {
		result, err := h.Eval(ctx, "sort()")
		require.NoError(t, err)
		require.Len(t, result.Names, 5)
		position := make(map[string]int)
		for i, name := range result.Names {
			position[name] = i
		}
		assert.Less(t, position["appmgr"], position["netstack"])
		assert.Less(t, position["netstack"], position["tcp"])
	})

	t.Run("roots and leaves", func(t *testing.T) {
		result, err := h.Eval(ctx, "roots()")
		require.NoError(t, err)
		assert.Equal(t, []string{"appmgr", "fonts"}, result.Names)

		result, err = h.Eval(ctx, "leaves()")
		require.NoError(t, err)
		assert.Equal(t, []string{"fonts", "tcp"}, result.Names)
	})

	t.Run("info", func(t *testing.T) {
		result, err := h.Eval(ctx, "info(sysmgr)")
		require.NoError(t, err)
		require.NotNil(t, result.Package)
		assert.Equal(t, "sysmgr", result.Package.Name)
		assert.Equal(t, []string{"netstack"}, result.Package.Deps)
	})

	t.Run("unknown component", func(t *testing.T) {
		for _, q := range []string{"deps(ghost)", "rdeps(ghost)", "info(ghost)", "path(ghost, tcp)"} {
			_, err := h.Eval(ctx, q)
			assert.ErrorIs(t, err, ErrNotFound, q)
		}
	})

	t.Run("syntax error", func(t *testing.T) {
		_, err := h.Eval(ctx, "deps[appmgr]")
		assert.ErrorIs(t, err, ErrSyntax)
	})
}

func TestEvalBeforeRebuild(t *testing.T) {
	h := NewHandler(testSource{})
	_, err := h.Eval(context.Background(), "all()")
	require.Error(t, err)
}
