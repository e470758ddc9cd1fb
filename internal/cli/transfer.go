package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/processflow/pkg/types"
)

func newExportCmd(s *session) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the whole store as JSON or SQL",
		Long:  "Export every table. Without --out the document is written to stdout.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := types.ParseFormat(format)
			if err != nil {
				return err
			}
			store, err := s.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if out != "" {
				if err := store.ExportToFile(f, out); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "exported %s to %s\n", f, out)
				return nil
			}
			blob, err := store.Export(f)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(blob)
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", string(types.FormatJSON), "export format: json or sql")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	return cmd
}

func newImportCmd(s *session) *cobra.Command {
	var file, mode string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a JSON export",
		Long: `Import a JSON export. merge upserts every record and keeps rows the document
does not mention; replace empties the store first. A failed import changes nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := types.ParseImportMode(mode)
			if err != nil {
				return err
			}
			store, err := s.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.ImportFromFile(file, m); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s (%s)\n", file, m)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "export document to import")
	cmd.Flags().StringVar(&mode, "mode", string(types.ImportMerge), "import mode: merge or replace")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
