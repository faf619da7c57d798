package cli

import (
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/fuchsia-dev/compograph/pkg/query"
)

func cmdLs() *cobra.Command {
	p := &sourceParams{}
	var withVersions bool

	cmd := &cobra.Command{
		Use:           "ls [components...]",
		Short:         "List components in the graph",
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

			names := g.Nodes()
			if len(args) > 0 {
				// restrict output to the requested components and their deps
				sub, err := g.SubgraphWithRoots(args)
				if err != nil {
					return err
				}
				names = sub.Nodes()
			}

			lines := lo.Map(names, func(name string, _ int) string {
				if !withVersions {
					return name
				}
				pkg := g.Package(name)
				if pkg == nil {
					return name
				}
				return fmt.Sprintf("%s %s", name, pkg.Version)
			})

			fmt.Println(strings.Join(lines, "\n"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&withVersions, "versions", false, "include each component's version")
	p.addFlagsTo(cmd)
	return cmd
}
