package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/techspeque/specstudio/internal/rpc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the streaming process commands to a GUI frontend",
	Long: `Start a websocket server that exposes spawn_streaming_process,
send_process_input, cancel_streaming_processes, list_streaming_processes
and check_dependencies, and broadcasts every stream event on the
rpc:stream:data channel.

The listen address and accepted origins come from server.addr and
server.allowed_origins. Stopping the server cancels every run.`,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.close()

	addr := a.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	handler := rpc.NewHandler(rpc.SupervisorService{Supervisor: a.supervisor}, a.checker(), a.logger)
	server := rpc.NewServer(handler, a.logger, a.cfg.Server.AllowedOrigins)
	a.bus.SubscribeStream(server.Emit)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(cmd.OutOrStdout(), labelStyle.Render(symbolRun+" listening")+" "+mutedStyle.Render("ws://"+addr))
	if err := server.ListenAndServe(ctx, addr); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
