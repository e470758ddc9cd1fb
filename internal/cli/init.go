package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/processflow/internal/paths"
)

func newInitCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize processflow storage",
		Long:  "Create the configuration file and the data directory, then create the store schema and default settings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := s.openStore()
			if err != nil {
				return err
			}
			cfg := store.Config()
			if err := store.Close(); err != nil {
				return sysError("close store: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config:   %s\n", paths.ConfigFile(s.configDir))
			fmt.Fprintf(out, "database: %s\n", cfg.DatabasePath())
			fmt.Fprintf(out, "media:    %s\n", cfg.MediaDir())
			return nil
		},
	}
}
