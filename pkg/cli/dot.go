package cli

import (
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
	"github.com/tmc/dot"

	"github.com/fuchsia-dev/compograph/pkg/graph"
	"github.com/fuchsia-dev/compograph/pkg/query"
)

func cmdDot() *cobra.Command {
	p := &sourceParams{}
	var showDependents bool

	cmd := &cobra.Command{
		Use:   "dot [components...]",
		Short: "Generate graphviz .dot output",
		Long: `
Generate .dot output and pipe it to dot to generate an SVG

  compograph dot | dot -Tsvg > graph.svg

Generate .dot output and pipe it to dot to generate a PNG

  compograph dot | dot -Tpng > graph.png
`,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := clog.NewLogger(newLogger(p.verbosity))
			ctx := clog.WithLogger(cmd.Context(), logger)

			src, err := p.resolve(ctx)
			if err != nil {
				return err
			}

			queries := query.NewHandler(src)
			if err := queries.Rebuild(ctx); err != nil {
				return err
			}
			g := queries.Graph()

			if len(args) == 0 {
				if showDependents {
					logger.Warn("the 'show dependents' option has no effect without specifying one or more component names")
				}
			} else {
				// ensure all requested components exist in the graph
				for _, arg := range args {
					if g.Package(arg) == nil {
						return fmt.Errorf("component %q not found in graph", arg)
					}
				}

				var subgraph *graph.Graph
				if showDependents {
					subgraph, err = g.SubgraphWithLeaves(args)
				} else {
					subgraph, err = g.SubgraphWithRoots(args)
				}
				if err != nil {
					return err
				}
				g = subgraph
			}

			order, size, err := g.Stats()
			if err == nil {
				logger.Info("rendering graph", "nodes", order, "edges", size)
			}

			return viz(g)
		},
	}

	cmd.Flags().BoolVarP(&showDependents, "show-dependents", "D", false, "show components that depend on these components, instead of these components' dependencies")
	p.addFlagsTo(cmd)
	return cmd
}

func viz(g *graph.Graph) error {
	out := dot.NewGraph("components")
	out.SetType(dot.DIGRAPH)

	for _, node := range g.Nodes() {
		n := dot.NewNode(node)
		out.AddNode(n)

		for _, dependency := range g.DependenciesOf(node) {
			d := dot.NewNode(dependency)
			out.AddNode(d)
			out.AddEdge(dot.NewEdge(n, d))
		}
	}

	fmt.Println(out.String())
	return nil
}
