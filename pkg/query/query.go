// Package query implements the small query language served over the
// component graph, coordinating between the package manager and the graph.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/chainguard-dev/clog"

	"github.com/fuchsia-dev/compograph/pkg/fpm"
	"github.com/fuchsia-dev/compograph/pkg/graph"
)

var (
	// ErrSyntax indicates the query doesn't parse or uses an unknown verb.
	ErrSyntax = errors.New("invalid query")

	// ErrNotFound indicates the query names a component the graph doesn't
	// have.
	ErrNotFound = errors.New("unknown component")
)

// arity of every verb the language knows.
var verbs = map[string]int{
	"all":    0,
	"sort":   0,
	"roots":  0,
	"leaves": 0,
	"deps":   1,
	"rdeps":  1,
	"info":   1,
	"path":   2,
}

// Query is one parsed query expression.
type Query struct {
	Verb string
	Args []string
}

func (q Query) String() string {
	return fmt.Sprintf("%s(%s)", q.Verb, strings.Join(q.Args, ","))
}

// Parse parses an expression of the form verb(arg, ...).
func Parse(input string) (*Query, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return nil, fmt.Errorf("%w: empty query", ErrSyntax)
	}

	open := strings.IndexByte(s, '(')
	if open < 0 {
		return nil, fmt.Errorf("%w: missing '(' in %q", ErrSyntax, input)
	}
	if !strings.HasSuffix(s, ")") {
		return nil, fmt.Errorf("%w: missing closing ')' in %q", ErrSyntax, input)
	}

	verb := strings.TrimSpace(s[:open])
	arity, ok := verbs[verb]
	if !ok {
		return nil, fmt.Errorf("%w: unknown verb %q", ErrSyntax, verb)
	}

	var args []string
	if inner := strings.TrimSpace(s[open+1 : len(s)-1]); inner != "" {
		for _, arg := range strings.Split(inner, ",") {
			arg = strings.TrimSpace(arg)
			if arg == "" {
				return nil, fmt.Errorf("%w: empty argument in %q", ErrSyntax, input)
			}
			args = append(args, arg)
		}
	}
	if len(args) != arity {
		return nil, fmt.Errorf("%w: %s takes %d argument(s), got %d", ErrSyntax, verb, arity, len(args))
	}

	return &Query{Verb: verb, Args: args}, nil
}

// Result is the JSON-serializable answer to a query.
type Result struct {
	Verb    string       `json:"verb"`
	Args    []string     `json:"args,omitempty"`
	Names   []string     `json:"names,omitempty"`
	Package *fpm.Package `json:"package,omitempty"`
}

// Handler evaluates queries against the current component graph. The graph
// is swapped atomically on Rebuild, so evaluations never observe a
// half-built graph.
type Handler struct {
	src fpm.PackageManager

	mu sync.RWMutex
	g  *graph.Graph
}

// NewHandler returns a Handler that builds its graph from src.
func NewHandler(src fpm.PackageManager) *Handler {
	return &Handler{src: src}
}

// Rebuild assembles a fresh graph from the package manager and swaps it in.
func (h *Handler) Rebuild(ctx context.Context) error {
	g, err := graph.Build(ctx, h.src)
	if err != nil {
		return err
	}

	order, size, err := g.Stats()
	if err == nil {
		clog.FromContext(ctx).Info("component graph rebuilt", "components", order, "dependencies", size)
	}

	h.mu.Lock()
	h.g = g
	h.mu.Unlock()
	return nil
}

// Graph returns the current graph, or nil before the first Rebuild.
func (h *Handler) Graph() *graph.Graph {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.g
}

// Eval parses and evaluates one query.
func (h *Handler) Eval(ctx context.Context, input string) (*Result, error) {
	q, err := Parse(input)
	if err != nil {
		return nil, err
	}
	return h.EvalQuery(ctx, q)
}

// EvalQuery evaluates an already-parsed query.
func (h *Handler) EvalQuery(_ context.Context, q *Query) (*Result, error) {
	g := h.Graph()
	if g == nil {
		return nil, errors.New("component graph not built yet")
	}

	result := &Result{Verb: q.Verb, Args: q.Args}

	switch q.Verb {
	case "all":
		result.Names = g.Nodes()

	case "sort":
		sorted, err := g.Sorted()
		if err != nil {
			return nil, fmt.Errorf("topological sort: %w", err)
		}
		result.Names = sorted

	case "roots":
		roots, err := g.Roots()
		if err != nil {
			return nil, err
		}
		result.Names = roots

	case "leaves":
		leaves, err := g.Leaves()
		if err != nil {
			return nil, err
		}
		result.Names = leaves

	case "deps", "rdeps":
		name := q.Args[0]
		if g.Package(name) == nil {
			return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
		}

		var sub *graph.Graph
		var err error
		if q.Verb == "deps" {
			sub, err = g.SubgraphWithRoots([]string{name})
		} else {
			sub, err = g.SubgraphWithLeaves([]string{name})
		}
		if err != nil {
			return nil, err
		}

		// the closure includes the component itself; report only the others
		for _, node := range sub.Nodes() {
			if node != name {
				result.Names = append(result.Names, node)
			}
		}

	case "info":
		pkg := g.Package(q.Args[0])
		if pkg == nil {
			return nil, fmt.Errorf("%q: %w", q.Args[0], ErrNotFound)
		}
		result.Package = pkg

	case "path":
		path, err := g.Path(q.Args[0], q.Args[1])
		if err != nil {
			if errors.Is(err, graph.ErrNotFound) {
				return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
			}
			return nil, err
		}
		result.Names = path

	default:
		// Parse only admits known verbs
		return nil, fmt.Errorf("%w: unknown verb %q", ErrSyntax, q.Verb)
	}

	return result, nil
}
