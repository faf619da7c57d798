package env

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/chainguard-dev/clog"
)

// RootDirEnv is the environment variable naming the checkout root. The
// default packages directory for local graph builds lives underneath it.
const RootDirEnv = "FUCHSIA_DIR"

// RootDir resolves RootDirEnv to an absolute path and verifies that the
// directory exists.
func RootDir() (string, error) {
	dir := os.Getenv(RootDirEnv)
	if dir == "" {
		return "", fmt.Errorf("%s is not set", RootDirEnv)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", RootDirEnv, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%s points at %q: %w", RootDirEnv, dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s points at %q, which is not a directory", RootDirEnv, dir)
	}

	return abs, nil
}

// PackagesDir returns the default directory of package manifests under the
// checkout root.
func PackagesDir() (string, error) {
	root, err := RootDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "packages"), nil
}

// Logger returns a named component logger. Every record it emits carries a
// "component" attribute so logs from the server's layers can be told apart.
func Logger(name string) *clog.Logger {
	return clog.New(slog.Default().Handler()).With("component", name)
}
