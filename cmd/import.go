package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/reviewbox/internal/models"
	"github.com/spf13/cobra"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Upload zip archives into the catalog or the intake collection",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "voc ZIP",
		Short: "Import images with their VOC annotations into the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.client()
			return uploadZip(cmd, args[0], c.ImportVOC)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "images ZIP",
		Short: "Import unlabeled images into the intake collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.client()
			return uploadZip(cmd, args[0], c.ImportImages)
		},
	})

	return cmd
}

type uploadFunc func(ctx context.Context, name string, r io.Reader) (models.ImportResponse, error)

func uploadZip(cmd *cobra.Command, path string, upload uploadFunc) error {
	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return fmt.Errorf("%s is not a .zip file", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	res, err := upload(cmd.Context(), filepath.Base(path), f)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	msg := res.Message
	if msg == "" {
		msg = fmt.Sprintf("Imported %d files.", res.Imported)
	}
	fmt.Fprintln(out, msg)
	for _, name := range res.FailedFiles {
		fmt.Fprintf(out, "  failed: %s\n", name)
	}
	return nil
}
