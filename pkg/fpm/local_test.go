package fpm

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDir(t *testing.T) {
	t.Run("basic", func(t *testing.T) {
		fsys := fstest.MapFS{
			"sysmgr.json":   {Data: []byte(`{"name":"sysmgr","version":"1.0.0","deps":["netstack"]}`)},
			"netstack.json": {Data: []byte(`{"name":"netstack","version":"2.0.0"}`)},
			"README.md":     {Data: []byte("not a manifest")},
		}

		d, err := LoadDir(context.Background(), fsys)
		require.NoError(t, err)

		index, err := d.Index(context.Background())
		require.NoError(t, err)
		require.Len(t, index, 2)
		// sorted by name
		assert.Equal(t, "netstack", index[0].Name)
		assert.Equal(t, "sysmgr", index[1].Name)

		pkg, err := d.Get(context.Background(), "sysmgr")
		require.NoError(t, err)
		assert.Equal(t, []string{"netstack"}, pkg.Deps)

		_, err = d.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate package name", func(t *testing.T) {
		fsys := fstest.MapFS{
			"a.json": {Data: []byte(`{"name":"sysmgr","version":"1.0.0"}`)},
			"b.json": {Data: []byte(`{"name":"sysmgr","version":"1.0.1"}`)},
		}

		_, err := LoadDir(context.Background(), fsys)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate manifest")
	})

	t.Run("malformed manifest", func(t *testing.T) {
		fsys := fstest.MapFS{
			"bad.json": {Data: []byte(`{`)},
		}

		_, err := LoadDir(context.Background(), fsys)
		require.Error(t, err)
	})

	t.Run("manifest without a name", func(t *testing.T) {
		fsys := fstest.MapFS{
			"anon.json": {Data: []byte(`{"version":"1.0.0"}`)},
		}

		_, err := LoadDir(context.Background(), fsys)
		require.Error(t, err)
	})
}
