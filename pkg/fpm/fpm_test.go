package fpm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	whttp "github.com/fuchsia-dev/compograph/pkg/http"
)

func testServer(t *testing.T, packages map[string]string, index string, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/packages", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, index)
	})
	mux.HandleFunc("GET /api/v1/packages/{name}", func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		doc, ok := packages[r.PathValue("name")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, doc)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientIndex(t *testing.T) {
	srv := testServer(t, nil, `{"packages":[
		{"name":"sysmgr","version":"1.0.0"},
		{"name":"netstack","version":"2.1.0-r3"}
	]}`, nil)

	c := NewClient(srv.URL)
	index, err := c.Index(context.Background())
	require.NoError(t, err)
	require.Len(t, index, 2)
	assert.Equal(t, "sysmgr", index[0].Name)
	assert.Equal(t, "2.1.0-r3", index[1].Version)
}

func TestClientGet(t *testing.T) {
	docs := map[string]string{
		"sysmgr": `{
			"name": "sysmgr",
			"version": "1.0.0",
			"merkle": "abc123",
			"deps": ["netstack", "netstack", "sysmgr", ""],
			"meta": {"owner": "platform", "shards": 3}
		}`,
	}

	t.Run("decodes and normalizes", func(t *testing.T) {
		srv := testServer(t, docs, `{"packages":[]}`, nil)
		c := NewClient(srv.URL)

		pkg, err := c.Get(context.Background(), "sysmgr")
		require.NoError(t, err)
		assert.Equal(t, "sysmgr", pkg.Name)
		assert.Equal(t, "abc123", pkg.Merkle)
		// deduped, self-edge and empty entries dropped
		assert.Equal(t, []string{"netstack"}, pkg.Deps)
		// meta values coerced to strings, whatever their JSON type
		assert.Equal(t, map[string]string{"owner": "platform", "shards": "3"}, pkg.Meta)
	})

	t.Run("memoizes", func(t *testing.T) {
		var hits atomic.Int64
		srv := testServer(t, docs, `{"packages":[]}`, &hits)
		c := NewClient(srv.URL, WithCacheTTL(time.Minute))

		for range 3 {
			_, err := c.Get(context.Background(), "sysmgr")
			require.NoError(t, err)
		}
		assert.Equal(t, int64(1), hits.Load())
	})

	t.Run("unknown package", func(t *testing.T) {
		srv := testServer(t, docs, `{"packages":[]}`, nil)
		c := NewClient(srv.URL)

		_, err := c.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestClientUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	// non-retrying client so the test doesn't sit in backoff
	c := NewClient(srv.URL, WithHTTPClient(whttp.NewClient(rate.NewLimiter(rate.Inf, 1))))
	_, err := c.Index(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClientAll(t *testing.T) {
	docs := map[string]string{
		"a": `{"name":"a","version":"1.0.0","deps":["b"]}`,
		"b": `{"name":"b","version":"1.0.0"}`,
		"c": `{"name":"c","version":"1.0.0","deps":["a","b"]}`,
	}
	srv := testServer(t, docs, `{"packages":[
		{"name":"a","version":"1.0.0"},
		{"name":"b","version":"1.0.0"},
		{"name":"c","version":"1.0.0"}
	]}`, nil)

	c := NewClient(srv.URL, WithFanOut(2))
	packages, err := c.All(context.Background())
	require.NoError(t, err)
	require.Len(t, packages, 3)
	// order follows the index
	assert.Equal(t, "a", packages[0].Name)
	assert.Equal(t, []string{"a", "b"}, packages[2].Deps)
}

func TestClientLatestVersion(t *testing.T) {
	srv := testServer(t, nil, `{"packages":[
		{"name":"sysmgr","version":"1.0.0-r2"},
		{"name":"sysmgr","version":"1.0.0-r10"},
		{"name":"netstack","version":"2.0.0"}
	]}`, nil)

	c := NewClient(srv.URL)

	latest, err := c.LatestVersion(context.Background(), "sysmgr")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0-r10", latest)

	_, err = c.LatestVersion(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
