package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lehigh-university-libraries/reviewbox/internal/geometry"
	"github.com/lehigh-university-libraries/reviewbox/internal/models"
	"github.com/lehigh-university-libraries/reviewbox/internal/render"
	"github.com/spf13/cobra"
)

func newRenderCmd(opts *rootOptions) *cobra.Command {
	var (
		raw    bool
		outDir string
		size   int
		fit    string
	)

	cmd := &cobra.Command{
		Use:   "render IMAGE...",
		Short: "Render images with their boxes drawn as PNG previews",
		Example: `  # Render two catalog images at native size
  reviewbox render a.jpg b.jpg

  # Render an intake image onto a 448px surface
  reviewbox render --raw --size 448 c.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if fit == "" {
				fit = opts.cfg.Review.Fit
			}
			policy, err := geometry.ParsePolicy(fit)
			if err != nil {
				return err
			}
			if size < 0 {
				return fmt.Errorf("--size must not be negative")
			}
			coll := models.Catalog
			if raw {
				coll = models.Raw
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			c := opts.client()
			surface := geometry.Size{W: float64(size), H: float64(size)}
			for _, name := range args {
				ann, err := c.Annotation(ctx, coll, name)
				if err != nil {
					return err
				}
				data, err := c.ImageBytes(ctx, coll, name)
				if err != nil {
					return err
				}
				img, err := render.Decode(data)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				out, err := render.Annotated(img, ann, policy, surface)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				dest := filepath.Join(outDir, strings.TrimSuffix(name, filepath.Ext(name))+".png")
				if err := imaging.Save(out, dest); err != nil {
					return fmt.Errorf("failed to save %s: %w", dest, err)
				}
				slog.Info("rendered", "image", name, "boxes", len(ann.Boxes), "path", dest)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Render intake images instead of catalog images")
	cmd.Flags().StringVarP(&outDir, "out", "o", "renders", "Directory receiving the PNG files")
	cmd.Flags().IntVar(&size, "size", 0, "Square surface size in pixels (0 renders at native size)")
	cmd.Flags().StringVar(&fit, "fit", "", "Fit policy: letterbox or stretch (default from config)")

	return cmd
}
