package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/plx30080-ctrl/LeadGen/internal/api"
	"github.com/plx30080-ctrl/LeadGen/internal/taskq"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long:  "Serves route planning, batch ingestion, and stats endpoints for the dashboard UI.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		resolver := newIngestResolver(st)
		geoResolver := newGeoResolver(st)
		planner := newPlanner(st, geoResolver)

		queue := taskq.New(cfg.Ingest.Workers, cfg.Ingest.QueueBuffer)
		defer queue.Shutdown()

		server := api.NewServer(st, resolver, planner, queue,
			api.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		)

		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		srv := &http.Server{
			Addr:              addr,
			Handler:           server.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("serve: listening", zap.String("addr", addr))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return eris.Wrap(err, "serve: listen")
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return eris.Wrap(err, "serve: shutdown")
		}
		zap.L().Info("serve: stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
