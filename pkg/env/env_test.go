package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func TestRootDir(t *testing.T) {
	t.Run("unset", func(t *testing.T) {
		t.Setenv(RootDirEnv, "")
		_, err := RootDir()
		require.Error(t, err)
		assert.Contains(t, err.Error(), RootDirEnv)
	})

	t.Run("nonexistent", func(t *testing.T) {
		t.Setenv(RootDirEnv, filepath.Join(t.TempDir(), "nope"))
		_, err := RootDir()
		require.Error(t, err)
	})

	t.Run("not a directory", func(t *testing.T) {
		f := filepath.Join(t.TempDir(), "file")
		writeFile(t, f, "x")
		t.Setenv(RootDirEnv, f)
		_, err := RootDir()
		require.Error(t, err)
	})

	t.Run("resolves to absolute path", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv(RootDirEnv, dir)
		got, err := RootDir()
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(got))
		assert.Equal(t, dir, got)
	})
}

func TestPackagesDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(RootDirEnv, dir)
	got, err := PackagesDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "packages"), got)
}

func TestLogger(t *testing.T) {
	require.NotNil(t, Logger("query"))
}
