package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/whatchicken/slack-dm-scraper/internal"
	"github.com/whatchicken/slack-dm-scraper/internal/control"
)

var (
	serveAddr  string
	serveToken string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Control collection runs over a websocket",
	Long: `Attach to the Slack tab and wait for commands on ws://<addr>/ws.

Clients send {"action":"startScraping"}, {"action":"stopScraping"} or
{"action":"status"} and receive {"type":"ack","status":...} replies. Run
progress is broadcast to every client as {"type":"event",...} messages.

When a token is configured, clients must connect with ?token=<token>.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := internal.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr = serveAddr
		}
		if cmd.Flags().Changed("token") {
			cfg.Server.Token = serveToken
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer a.Close()

		srv := control.NewServer(a.controller, cfg.Server.Token)
		go srv.Run(ctx)

		httpServer := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- httpServer.ListenAndServe()
		}()
		internal.PrintInfo(fmt.Sprintf("Listening on ws://%s/ws", cfg.Server.Addr))
		if cfg.Server.Token == "" {
			internal.PrintWarning("No server token configured; any local client can start runs")
		}

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("control server: %w", err)
			}
		case <-ctx.Done():
		}

		if a.controller.Stop() == internal.StatusStopped {
			internal.LogInfo("waiting for the active run to export")
			reportResult(a.controller.Wait())
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8787", "Listen address")
	serveCmd.Flags().StringVar(&serveToken, "token", "", "Shared token clients must pass as ?token=")
}
