package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/processflow/internal/ipc"
)

func newCallCmd(s *session) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "call <channel> [payload]",
		Short: "Invoke one IPC channel and print its envelope",
		Long: `Invoke one IPC channel against the local store and print the result envelope
as JSON. The payload is a JSON document; "-" reads it from stdin.`,
		Example: `  processflow call process:create '{"title":"Planning"}'
  processflow call note:search '{"query":"plan"}'
  echo '{"id":"..."}' | processflow call process:get -`,
		Args: func(cmd *cobra.Command, args []string) error {
			if list {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.RangeArgs(1, 2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := s.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			svc := ipc.NewService(store, ipc.WithLogger(s.log.Logger))

			out := cmd.OutOrStdout()
			if list {
				for _, name := range svc.Channels() {
					fmt.Fprintln(out, name)
				}
				return nil
			}

			var payload json.RawMessage
			if len(args) == 2 {
				payload = json.RawMessage(args[1])
				if args[1] == "-" {
					if payload, err = io.ReadAll(cmd.InOrStdin()); err != nil {
						return sysError("read payload: %w", err)
					}
				}
			}

			env := svc.Call(args[0], payload)
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(env); err != nil {
				return sysError("write result: %w", err)
			}
			if !env.Success {
				return errors.New(env.Error)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "list channel names instead of calling one")
	return cmd
}
