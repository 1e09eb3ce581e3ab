package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tachyon/constellation/internal/constellation"
	"tachyon/constellation/internal/financing"
	"tachyon/constellation/internal/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the constellation over HTTP for a browser view",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		addr := serveAddr
		if addr == "" {
			addr = appCfg.ListenAddr
		}

		srv := httpapi.New(a.store, a.flow, httpapi.Options{
			Profile: func() financing.Profile { return a.profile },
			OnChange: func(nodes []constellation.Node) error {
				return a.db.SaveNodes(nodes)
			},
			Log: slog.Default(),
		})
		hs := &http.Server{
			Addr:              addr,
			Handler:           srv.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() { errCh <- hs.ListenAndServe() }()
		fmt.Printf("Serving %d nodes on http://%s\n", a.store.Len(), addr)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigCh:
			slog.Info("shutting down", "signal", sig.String())
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return hs.Shutdown(ctx)
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, 127.0.0.1:8088)")
	rootCmd.AddCommand(serveCmd)
}
