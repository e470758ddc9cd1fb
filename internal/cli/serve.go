package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/processflow/internal/ipc"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(s *session) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the IPC channels over loopback HTTP",
		Long:  "Serve every IPC channel at POST /ipc/<channel> until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := s.config.ListenAddr
			if listen != "" {
				addr = listen
			}

			store, err := s.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			log := s.log.Logger
			app := ipc.NewServer(ipc.NewService(store, ipc.WithLogger(log)), log)

			ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- app.Listen(addr) }()
			log.Info().Str("addr", addr).Str("data_dir", store.Config().DataDir).Msg("serving")

			select {
			case err := <-errCh:
				return sysError("listen on %s: %w", addr, err)
			case <-ctx.Done():
			}

			log.Info().Msg("shutting down")
			if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
				return sysError("shutdown: %w", err)
			}
			<-errCh
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default: listen_addr from config)")
	return cmd
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
