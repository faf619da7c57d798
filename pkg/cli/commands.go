package cli

import (
	"github.com/spf13/cobra"
	"sigs.k8s.io/release-utils/version"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "compograph",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "A component graph server for package manager data",
	}

	cmd.AddCommand(
		cmdServe(),
		cmdQuery(),
		cmdLs(),
		cmdDot(),
		cmdIndex(),
		version.Version(),
	)

	return cmd
}
