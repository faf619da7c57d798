package cli

import (
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/fuchsia-dev/compograph/pkg/api"
	"github.com/fuchsia-dev/compograph/pkg/query"
)

const defaultListenAddr = ":8080"

func cmdServe() *cobra.Command {
	p := &sourceParams{}
	var listen string

	cmd := &cobra.Command{
		Use:           "serve",
		Short:         "Serve the component graph over a JSON API",
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := clog.NewLogger(newLogger(p.verbosity))
			ctx := clog.WithLogger(cmd.Context(), logger)

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			src, err := p.resolve(ctx)
			if err != nil {
				return err
			}

			queries := query.NewHandler(src)
			if err := queries.Rebuild(ctx); err != nil {
				return err
			}

			addr, err := p.listenAddr(listen, defaultListenAddr)
			if err != nil {
				return err
			}

			return api.NewHandler(queries).Serve(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "address to serve the API on (default "+defaultListenAddr+")")
	p.addFlagsTo(cmd)
	return cmd
}
