package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

const modulePath = "github.com/mesh-intelligence/processflow"

// Version is the release version. Builds override it with
// -ldflags "-X github.com/mesh-intelligence/processflow/internal/cli.Version=...".
var Version = "0.1.0"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the processflow version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "processflow v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
