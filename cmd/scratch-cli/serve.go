package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KidsLabDe/ScratchBackendCLI/internal/server"
	"github.com/KidsLabDe/ScratchBackendCLI/pkg/logger"
	"github.com/KidsLabDe/ScratchBackendCLI/pkg/ui"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Receive a session from the browser companion script",
	Long: `Run a local endpoint that the browser script in web/ posts a
session to after you log in on the Scratch website.

Only the derived token and session cookie arrive here; the password
stays in the browser. Received sessions are stored exactly like ones
from 'scratch-cli login'.`,
	Example: `  scratch-cli serve
  scratch-cli serve --addr 127.0.0.1:8080`,
	Run: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	srv := server.New(sessionManager(), cfg, logger.GetLogger())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ui.PrintInfo("Listening on", cfg.Server.Addr)
	ui.Printf("Press Ctrl+C to stop.\n")

	if err := srv.ListenAndServe(ctx); err != nil && err != context.Canceled {
		ui.PrintError("Server error", err.Error())
	}
}
