// Package graph assembles and queries the component graph: one vertex per
// package the package manager knows about, one edge per declared dependency.
package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/chainguard-dev/clog"
	"github.com/dominikbraun/graph"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/fuchsia-dev/compograph/pkg/fpm"
)

// UnresolvedVersion is the version recorded for placeholder vertices, i.e.
// dependencies the package manager has no package for.
const UnresolvedVersion = "unresolved"

// ErrNotFound indicates a named component has no vertex in the graph.
var ErrNotFound = errors.New("not found in graph")

const buildFanOut = 8

// A Graph is an interdependent set of components discovered through a
// package manager.
type Graph struct {
	Graph    graph.Graph[string, fpm.Package]
	packages map[string]fpm.Package
	names    []string
}

func packageHash(p fpm.Package) string {
	return p.Name
}

func newGraph() graph.Graph[string, fpm.Package] {
	return graph.New(packageHash, graph.Directed(), graph.Acyclic(), graph.PreventCycles())
}

// Build assembles a Graph from everything src knows about. Dependencies on
// unknown packages become placeholder vertices rather than failing the
// build, and a dependency that would introduce a cycle is skipped with a
// warning, since the component graph must stay a DAG.
func Build(ctx context.Context, src fpm.PackageManager) (*Graph, error) {
	log := clog.FromContext(ctx)

	index, err := src.Index(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching package index: %w", err)
	}

	// the index carries names; fetch full metadata for each
	packages := make([]fpm.Package, len(index))
	errg, gctx := errgroup.WithContext(ctx)
	errg.SetLimit(buildFanOut)
	for i := range index {
		errg.Go(func() error {
			pkg, err := src.Get(gctx, index[i].Name)
			if err != nil {
				return fmt.Errorf("fetching package %q: %w", index[i].Name, err)
			}
			packages[i] = *pkg
			return nil
		})
	}
	if err := errg.Wait(); err != nil {
		return nil, err
	}

	g := &Graph{
		Graph:    newGraph(),
		packages: make(map[string]fpm.Package, len(packages)),
	}

	for _, pkg := range packages {
		if err := g.addVertex(pkg); err != nil {
			return nil, err
		}
	}

	for _, pkg := range packages {
		for _, dep := range pkg.Deps {
			if _, known := g.packages[dep]; !known {
				placeholder := fpm.Package{
					Name:        dep,
					Version:     UnresolvedVersion,
					Placeholder: true,
				}
				if err := g.addVertex(placeholder); err != nil {
					return nil, err
				}
			}

			// unit weights keep ShortestPath hop-minimal
			err := g.Graph.AddEdge(pkg.Name, dep, graph.EdgeWeight(1))
			switch {
			case err == nil, errors.Is(err, graph.ErrEdgeAlreadyExists):
			case errors.Is(err, graph.ErrEdgeCreatesCycle):
				log.Warn("dependency would introduce a cycle, skipping edge", "package", pkg.Name, "dependency", dep)
			default:
				return nil, fmt.Errorf("adding edge %s -> %s: %w", pkg.Name, dep, err)
			}
		}
	}

	sort.Strings(g.names)
	return g, nil
}

func (g *Graph) addVertex(pkg fpm.Package) error {
	if err := g.Graph.AddVertex(pkg); err != nil {
		if errors.Is(err, graph.ErrVertexAlreadyExists) {
			return nil
		}
		return fmt.Errorf("adding vertex %q: %w", pkg.Name, err)
	}
	g.packages[pkg.Name] = pkg
	g.names = append(g.names, pkg.Name)
	return nil
}

// Package returns the package record for the component with the given name,
// if the component is present in the Graph. If it's not, Package returns nil.
func (g *Graph) Package(name string) *fpm.Package {
	if pkg, ok := g.packages[name]; ok {
		return &pkg
	}
	return nil
}

// Nodes returns the names of all components in the Graph, sorted
// alphabetically.
func (g *Graph) Nodes() []string {
	nodes := make([]string, len(g.names))
	copy(nodes, g.names)
	return nodes
}

// Sorted returns all component names in topological order: components
// earlier in the list depend on components later in the list.
func (g *Graph) Sorted() ([]string, error) {
	return graph.TopologicalSort(g.Graph)
}

// Stats reports the number of vertices and edges.
func (g *Graph) Stats() (order, size int, err error) {
	if order, err = g.Graph.Order(); err != nil {
		return 0, 0, err
	}
	if size, err = g.Graph.Size(); err != nil {
		return 0, 0, err
	}
	return order, size, nil
}

// DependenciesOf returns the names of the component's direct dependencies,
// sorted alphabetically. Unknown components yield nil.
func (g *Graph) DependenciesOf(node string) []string {
	adjacencyMap, err := g.Graph.AdjacencyMap()
	if err != nil {
		return nil
	}
	edges, ok := adjacencyMap[node]
	if !ok {
		return nil
	}

	names := lo.Keys(edges)
	sort.Strings(names)
	return names
}

// DependentsOf returns the names of the components that directly depend on
// the given component, sorted alphabetically.
func (g *Graph) DependentsOf(node string) []string {
	predecessorMap, err := g.Graph.PredecessorMap()
	if err != nil {
		return nil
	}
	edges, ok := predecessorMap[node]
	if !ok {
		return nil
	}

	names := lo.Keys(edges)
	sort.Strings(names)
	return names
}

// SubgraphWithRoots returns a new Graph that's a subgraph of g containing
// the given roots and, transitively, everything they depend on.
func (g *Graph) SubgraphWithRoots(roots []string) (*Graph, error) {
	adjacencyMap, err := g.Graph.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	return g.subgraph(roots, adjacencyMap, false)
}

// SubgraphWithLeaves returns a new Graph that's a subgraph of g containing
// the given leaves and, transitively, everything that depends on them.
func (g *Graph) SubgraphWithLeaves(leaves []string) (*Graph, error) {
	predecessorMap, err := g.Graph.PredecessorMap()
	if err != nil {
		return nil, err
	}
	return g.subgraph(leaves, predecessorMap, true)
}

// subgraph walks edgeMap from the given start vertices. When invert is set
// the walk follows predecessors, so edges are recorded neighbor -> node; the
// subgraph always keeps the original edge direction.
func (g *Graph) subgraph(start []string, edgeMap map[string]map[string]graph.Edge[string], invert bool) (*Graph, error) {
	sub := &Graph{
		Graph:    newGraph(),
		packages: make(map[string]fpm.Package),
	}

	seen := make(map[string]bool)

	var walk func(name string) error
	walk = func(name string) error {
		if seen[name] {
			return nil
		}
		seen[name] = true

		pkg := g.Package(name)
		if pkg == nil {
			return fmt.Errorf("component %q: %w", name, ErrNotFound)
		}
		if err := sub.addVertex(*pkg); err != nil {
			return err
		}

		for neighbor := range edgeMap[name] {
			if err := walk(neighbor); err != nil {
				return err
			}

			from, to := name, neighbor
			if invert {
				from, to = neighbor, name
			}
			if err := sub.Graph.AddEdge(from, to, graph.EdgeWeight(1)); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
				return fmt.Errorf("adding edge %s -> %s: %w", from, to, err)
			}
		}
		return nil
	}

	for _, name := range start {
		if err := walk(name); err != nil {
			return nil, err
		}
	}

	sort.Strings(sub.names)
	return sub, nil
}

// Path returns the shortest dependency path between two components, both
// endpoints included. It returns nil (and no error) when the target isn't
// reachable from the source.
func (g *Graph) Path(from, to string) ([]string, error) {
	if g.Package(from) == nil {
		return nil, fmt.Errorf("component %q: %w", from, ErrNotFound)
	}
	if g.Package(to) == nil {
		return nil, fmt.Errorf("component %q: %w", to, ErrNotFound)
	}

	path, err := graph.ShortestPath(g.Graph, from, to)
	if err != nil {
		if errors.Is(err, graph.ErrTargetNotReachable) {
			return nil, nil
		}
		return nil, err
	}
	return path, nil
}

// Roots returns the components nothing depends on, sorted alphabetically.
func (g *Graph) Roots() ([]string, error) {
	predecessorMap, err := g.Graph.PredecessorMap()
	if err != nil {
		return nil, err
	}

	var roots []string
	for _, name := range g.names {
		if len(predecessorMap[name]) == 0 {
			roots = append(roots, name)
		}
	}
	return roots, nil
}

// Leaves returns the components with no dependencies, sorted alphabetically.
func (g *Graph) Leaves() ([]string, error) {
	adjacencyMap, err := g.Graph.AdjacencyMap()
	if err != nil {
		return nil, err
	}

	var leaves []string
	for _, name := range g.names {
		if len(adjacencyMap[name]) == 0 {
			leaves = append(leaves, name)
		}
	}
	return leaves, nil
}
