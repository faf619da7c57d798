// Package fpm binds to the package manager's JSON API and exposes it as a
// PackageManager that the graph and query layers consume.
package fpm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	whttp "github.com/fuchsia-dev/compograph/pkg/http"
	"github.com/fuchsia-dev/compograph/pkg/versions"
)

const (
	indexPath   = "api/v1/packages"
	packagePath = "api/v1/packages/%s"

	defaultCacheTTL = 5 * time.Minute
	defaultFanOut   = 8
)

var (
	// ErrUnavailable indicates the package manager could not be reached or
	// answered with a server error.
	ErrUnavailable = errors.New("package manager unavailable")

	// ErrNotFound indicates the package manager has no package by that name.
	ErrNotFound = errors.New("package not found")
)

// Package is one component as the package manager describes it.
type Package struct {
	Name    string            `json:"name"`
	Version string            `json:"version"`
	Merkle  string            `json:"merkle,omitempty"`
	Deps    []string          `json:"deps,omitempty"`
	Meta    map[string]string `json:"meta,omitempty"`

	// Placeholder marks a package another package depends on but that the
	// package manager doesn't know about.
	Placeholder bool `json:"placeholder,omitempty"`
}

func (p Package) String() string {
	return fmt.Sprintf("%s-%s", p.Name, p.Version)
}

// normalize sorts and dedupes the dependency list and drops self-edges.
func (p *Package) normalize() {
	deps := lo.Uniq(p.Deps)
	deps = lo.Filter(deps, func(d string, _ int) bool { return d != "" && d != p.Name })
	sort.Strings(deps)
	p.Deps = deps
}

// PackageManager is the read side of the package manager's API: the package
// index plus per-package metadata.
type PackageManager interface {
	// Index lists every package the package manager knows about. Entries
	// carry name and version but not necessarily deps.
	Index(ctx context.Context) ([]Package, error)

	// Get returns the full metadata for one package, including deps.
	Get(ctx context.Context, name string) (*Package, error)
}

// Client talks to the package manager's JSON API over HTTP.
type Client struct {
	baseURL string
	client  *whttp.RLHTTPClient
	cache   *cache.Cache
	fanOut  int
}

// Option adjusts a Client.
type Option func(*Client)

// WithHTTPClient replaces the default retrying rate-limited client.
func WithHTTPClient(c *whttp.RLHTTPClient) Option {
	return func(cl *Client) { cl.client = c }
}

// WithCacheTTL sets how long package metadata is memoized.
func WithCacheTTL(ttl time.Duration) Option {
	return func(cl *Client) { cl.cache = cache.New(ttl, 2*ttl) }
}

// WithFanOut bounds how many metadata fetches All runs concurrently.
func WithFanOut(n int) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.fanOut = n
		}
	}
}

// NewClient returns a Client bound to the package manager at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  whttp.NewRetryingClient(rate.NewLimiter(rate.Every(100*time.Millisecond), 10)),
		cache:   cache.New(defaultCacheTTL, 2*defaultCacheTTL),
		fanOut:  defaultFanOut,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Index implements PackageManager.
func (c *Client) Index(ctx context.Context) ([]Package, error) {
	body, err := c.get(ctx, indexPath)
	if err != nil {
		return nil, err
	}

	var index struct {
		Packages []Package `json:"packages"`
	}
	if err := json.Unmarshal(body, &index); err != nil {
		return nil, fmt.Errorf("decoding package index: %w", err)
	}

	for i := range index.Packages {
		index.Packages[i].normalize()
	}
	return index.Packages, nil
}

// Get implements PackageManager. Results are memoized for the cache TTL.
func (c *Client) Get(ctx context.Context, name string) (*Package, error) {
	if cached, found := c.cache.Get(name); found {
		pkg := cached.(Package)
		return &pkg, nil
	}

	body, err := c.get(ctx, fmt.Sprintf(packagePath, url.PathEscape(name)))
	if err != nil {
		return nil, err
	}

	pkg, err := decodePackage(body)
	if err != nil {
		return nil, fmt.Errorf("decoding package %q: %w", name, err)
	}

	c.cache.SetDefault(name, *pkg)
	return pkg, nil
}

// All fetches the index and then every package's metadata, fanning out over a
// bounded number of concurrent requests.
func (c *Client) All(ctx context.Context) ([]Package, error) {
	index, err := c.Index(ctx)
	if err != nil {
		return nil, err
	}

	packages := make([]Package, len(index))
	errg, ctx := errgroup.WithContext(ctx)
	errg.SetLimit(c.fanOut)

	for i := range index {
		errg.Go(func() error {
			pkg, err := c.Get(ctx, index[i].Name)
			if err != nil {
				return err
			}
			packages[i] = *pkg
			return nil
		})
	}
	if err := errg.Wait(); err != nil {
		return nil, err
	}
	return packages, nil
}

// LatestVersion returns the highest version of name present in the index.
func (c *Client) LatestVersion(ctx context.Context, name string) (string, error) {
	index, err := c.Index(ctx)
	if err != nil {
		return "", err
	}

	var vs []string
	for _, pkg := range index {
		if pkg.Name == name {
			vs = append(vs, pkg.Version)
		}
	}
	if len(vs) == 0 {
		return "", fmt.Errorf("%q: %w", name, ErrNotFound)
	}

	if latest := versions.Latest(vs); latest != "" {
		return latest, nil
	}
	// nothing parsed as a version; fall back to the first index entry
	return vs[0], nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	targetURL := fmt.Sprintf("%s/%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating GET request %s: %w", targetURL, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w: %w", targetURL, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("GET %s: %w", targetURL, ErrNotFound)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("GET %s (%d): %w", targetURL, resp.StatusCode, ErrUnavailable)
	default:
		return nil, fmt.Errorf("GET %s: unexpected status %d", targetURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", targetURL, err)
	}
	return body, nil
}

// decodePackage decodes a package metadata document. The fixed fields decode
// strictly; the free-form meta object is extracted tolerantly so unexpected
// value types coming back from the package manager don't fail the fetch.
func decodePackage(body []byte) (*Package, error) {
	var pkg Package
	var raw struct {
		Name    string   `json:"name"`
		Version string   `json:"version"`
		Merkle  string   `json:"merkle"`
		Deps    []string `json:"deps"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	if raw.Name == "" {
		return nil, errors.New("package document has no name")
	}

	pkg.Name = raw.Name
	pkg.Version = raw.Version
	pkg.Merkle = raw.Merkle
	pkg.Deps = raw.Deps

	if meta := gjson.GetBytes(body, "meta"); meta.IsObject() {
		pkg.Meta = make(map[string]string)
		meta.ForEach(func(key, value gjson.Result) bool {
			pkg.Meta[key.String()] = value.String()
			return true
		})
	}

	pkg.normalize()
	return &pkg, nil
}
