package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/reviewbox/internal/handlers"
	"github.com/lehigh-university-libraries/reviewbox/internal/storage"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the annotation service",
		Long: `Starts the ReviewBox annotation service on the specified port.

The service stores images and Pascal VOC annotations on disk, lists and
filters collections, accepts intake images into the catalog, imports zip
archives and builds VOC exports.`,
		Example: `  # Start server on default port 8000
  reviewbox serve

  # Serve projects from a data root on a custom port
  RB_DATA_ROOT=./projects reviewbox serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if port != "" {
				cfg.Port = port
			}
			lib, err := storage.Open(cfg.StorageOptions())
			if err != nil {
				return err
			}
			_, active, _ := lib.Projects()
			layout := lib.Layout()
			slog.Info("Library opened", "project", active, "images", layout.ImageDir, "raw", layout.RawDir, "annotations", layout.AnnotationDir)

			handler := handlers.New(lib, cfg.PageSize)

			addr := ":" + cfg.Port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("ReviewBox service available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (default from config, 8000)")

	return cmd
}
