package fpm

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strings"

	"github.com/chainguard-dev/clog"

	"github.com/fuchsia-dev/compograph/pkg/versions"
)

// Dir is a PackageManager backed by a directory of JSON package manifests,
// one file per package, in the same shape the API serves. It covers working
// from a local checkout without a running package manager.
type Dir struct {
	packages map[string]*Package
	names    []string
}

// LoadDir reads every .json manifest at the top level of the given
// filesystem.
//
// The input is any fs.FS implementation. Given a directory path, call it
// like this:
//
//	fpm.LoadDir(ctx, os.DirFS("path/to/packages"))
func LoadDir(ctx context.Context, fsys fs.FS) (*Dir, error) {
	log := clog.FromContext(ctx)

	d := &Dir{packages: make(map[string]*Package)}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() && path != "." {
			return fs.SkipDir
		}

		if !entry.Type().IsRegular() || !strings.HasSuffix(path, ".json") {
			return nil
		}

		f, err := fsys.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		body, err := io.ReadAll(f)
		if err != nil {
			return fmt.Errorf("reading manifest %q: %w", path, err)
		}

		pkg, err := decodePackage(body)
		if err != nil {
			return fmt.Errorf("parsing manifest %q: %w", path, err)
		}

		if _, exists := d.packages[pkg.Name]; exists {
			return fmt.Errorf("duplicate manifest for package %q in %q", pkg.Name, path)
		}
		if err := versions.Validate(pkg.Version); err != nil {
			log.Warn("manifest has an unusable version", "path", path, "package", pkg.Name, "version", pkg.Version)
		}

		d.packages[pkg.Name] = pkg
		d.names = append(d.names, pkg.Name)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(d.names)
	return d, nil
}

// Index implements PackageManager.
func (d *Dir) Index(_ context.Context) ([]Package, error) {
	index := make([]Package, 0, len(d.names))
	for _, name := range d.names {
		index = append(index, *d.packages[name])
	}
	return index, nil
}

// Get implements PackageManager.
func (d *Dir) Get(_ context.Context, name string) (*Package, error) {
	pkg, ok := d.packages[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return pkg, nil
}
