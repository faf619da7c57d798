package cli

import (
	"encoding/json"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
)

func cmdIndex() *cobra.Command {
	p := &sourceParams{}
	var full bool

	cmd := &cobra.Command{
		Use:           "index",
		Short:         "Dump the package index as JSON",
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := clog.NewLogger(newLogger(p.verbosity))
			ctx := clog.WithLogger(cmd.Context(), logger)

			src, err := p.resolve(ctx)
			if err != nil {
				return err
			}

			packages, err := src.Index(ctx)
			if err != nil {
				return err
			}

			if full {
				for i := range packages {
					pkg, err := src.Get(ctx, packages[i].Name)
					if err != nil {
						return err
					}
					packages[i] = *pkg
				}
			}

			out, err := json.MarshalIndent(packages, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "fetch full metadata for every package, not just the index entries")
	p.addFlagsTo(cmd)
	return cmd
}
