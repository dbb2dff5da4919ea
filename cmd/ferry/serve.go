package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bamsammich/ferry/internal/fileservice"
	"github.com/bamsammich/ferry/internal/fileservice/proto"
)

func newServeCmd(g *globals) *cobra.Command {
	var (
		listenAddr string
		root       string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a device agent serving a local directory",
		Long: `Run a device agent that serves a directory over the ferry device protocol.
Clients reach it as dev://host[:port]/path, where path is resolved inside
--root and cannot escape it.

Defaults for --listen and --root come from the [device] table of the
config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("listen") && g.cfg.Device.Address != nil {
				listenAddr = *g.cfg.Device.Address
			}
			if !cmd.Flags().Changed("root") && g.cfg.Device.Root != nil {
				root = *g.cfg.Device.Root
			}

			info, err := os.Stat(root)
			if err != nil {
				return fmt.Errorf("root directory %q: %w", root, err)
			}
			if !info.IsDir() {
				return fmt.Errorf("root %q is not a directory", root)
			}

			local := fileservice.NewLocalService()
			defer local.CloseAll()

			srv, err := proto.Listen(proto.ServerConfig{
				Service:    fileservice.NewRooted(local, root),
				Logger:     slog.Default(),
				ListenAddr: listenAddr,
				Compress:   g.compress,
			})
			if err != nil {
				return err
			}
			slog.Info("device agent listening", "addr", srv.Addr().String(), "root", root)

			ctx, stop := signalContext()
			defer stop()
			return srv.Serve(ctx)
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", fmt.Sprintf(":%d", proto.DefaultPort), "listen address (host:port)")
	cmd.Flags().StringVar(&root, "root", "/", "root directory to serve")
	return cmd
}
