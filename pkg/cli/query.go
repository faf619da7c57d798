package cli

import (
	"encoding/json"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/fuchsia-dev/compograph/pkg/query"
)

func cmdQuery() *cobra.Command {
	p := &sourceParams{}

	cmd := &cobra.Command{
		Use:   "query <expression>",
		Short: "Evaluate one query against the component graph",
		Long: `
Build the component graph and evaluate a single query against it, printing
the result as JSON.

The query language:

  all()           every component
  deps(n)         everything n depends on, transitively
  rdeps(n)        everything that depends on n, transitively
  path(a,b)       shortest dependency path from a to b
  sort()          components in topological order
  roots()         components nothing depends on
  leaves()        components with no dependencies
  info(n)         the full package record for n
`,
		Example:       `  compograph query 'deps(netstack)' --fpm-url http://localhost:8083`,
		Args:          cobra.ExactArgs(1),
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

			result, err := queries.Eval(ctx, args[0])
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	p.addFlagsTo(cmd)
	return cmd
}
