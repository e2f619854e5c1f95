package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP generation server",
	Long: `Start the HTTP server exposing synchronous, streaming, and
asynchronous generation endpoints plus file downloads and stats.

Examples:
  genflow serve                # Listen on the configured address
  genflow serve --addr :9090  # Override the listen address`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine()
	if err != nil {
		return err
	}
	defer eng.shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go eng.pool.Run(ctx, eng.cfg.WarmPool.GlobalInterval)

	addr := eng.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := &http.Server{
		Addr:    addr,
		Handler: eng.server().Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	color.Green("genflow listening on %s", addr)
	log.Printf("[serve] models: simple=%s standard=%s complex=%s",
		eng.cfg.Models.Simple, eng.cfg.Models.Standard, eng.cfg.Models.Complex)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	color.Yellow("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
