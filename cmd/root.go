package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/reviewbox/internal/client"
	"github.com/lehigh-university-libraries/reviewbox/internal/config"
	"github.com/spf13/cobra"
)

// rootOptions carries the loaded configuration to subcommands.
type rootOptions struct {
	configPath string
	logLevel   string
	serverURL  string
	cfg        *config.Config
}

func (o *rootOptions) client() *client.Client {
	return client.New(o.cfg.ServerURL)
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "reviewbox",
		Short: "Image dataset curation and bounding-box annotation tool",
		Long: `ReviewBox curates image datasets for object detection.

It serves a file-backed annotation service, walks images one at a time to draw
and review labeled bounding boxes, browses collections with bulk accept and
delete, and exports the catalog as a Pascal VOC archive.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.LogLevel = opts.logLevel
			}
			if opts.serverURL != "" {
				cfg.ServerURL = opts.serverURL
			}
			level, err := config.ParseLevel(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("--log-level: %w", err)
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("RB_CONFIG"), "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.serverURL, "server", "", "Annotation service URL (default from RB_SERVER_URL)")

	// Add subcommands
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newReviewCmd(opts))
	cmd.AddCommand(newBrowseCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	cmd.AddCommand(newRenderCmd(opts))
	cmd.AddCommand(newImportCmd(opts))
	cmd.AddCommand(newProjectCmd(opts))

	return cmd
}
