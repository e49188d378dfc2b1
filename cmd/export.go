package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lehigh-university-libraries/reviewbox/internal/export"
	"github.com/lehigh-university-libraries/reviewbox/internal/models"
	"github.com/spf13/cobra"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		classes  []string
		remaps   []string
		nullMode string
		all      bool
		outDir   string
		listOnly bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the catalog as a Pascal VOC zip archive",
		Long: `Asks the annotation service to build a VOC archive, downloads it and
prints a summary read from the archive's parquet manifest.

Remap rules rename classes before selection: --remap "cat,kitten=feline".`,
		Example: `  # Export every annotated image
  reviewbox export

  # Export two classes, merging kitten into cat, with null images
  reviewbox export --class cat --class dog --remap "kitten=cat" --null include`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c := opts.client()

			if listOnly {
				available, err := c.ExportOptions(ctx)
				if err != nil {
					return err
				}
				for _, l := range available {
					fmt.Fprintln(cmd.OutOrStdout(), l)
				}
				return nil
			}

			req := models.ExportRequest{Classes: classes, NullHandling: nullMode}
			for _, r := range remaps {
				rule, err := parseRemap(r)
				if err != nil {
					return err
				}
				req.Remap = append(req.Remap, rule)
			}
			if all {
				annotatedOnly := false
				req.AnnotatedOnly = &annotatedOnly
			}
			if _, err := export.ParseRules(req); err != nil {
				return err
			}

			res, err := c.Export(ctx, req)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			dest := filepath.Join(outDir, res.ZipName)
			f, err := os.Create(dest)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", dest, err)
			}
			if err := c.Download(ctx, res.ZipURL, f); err != nil {
				f.Close()
				os.Remove(dest)
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", dest, err)
			}
			slog.Info("export downloaded", "path", dest, "images", res.Count)

			rows, err := export.ReadManifest(dest)
			if err != nil {
				return err
			}
			printSummary(cmd, dest, export.Summarize(rows))
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&classes, "class", nil, "Class to export (repeatable, default all)")
	cmd.Flags().StringArrayVar(&remaps, "remap", nil, `Remap rule "from1,from2=to" (repeatable)`)
	cmd.Flags().StringVar(&nullMode, "null", models.NullSkip, "Null-tagged images: skip or include")
	cmd.Flags().BoolVar(&all, "all", false, "Include images without annotations")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory receiving the archive")
	cmd.Flags().BoolVar(&listOnly, "list-classes", false, "List the classes available for export and exit")

	return cmd
}

// parseRemap parses "a,b=c" into a rule renaming a and b to c.
func parseRemap(s string) (models.RemapRule, error) {
	from, to, ok := strings.Cut(s, "=")
	to = strings.TrimSpace(to)
	if !ok || to == "" {
		return models.RemapRule{}, fmt.Errorf("invalid remap %q: expected from1,from2=to", s)
	}
	var rule models.RemapRule
	for _, f := range strings.Split(from, ",") {
		if f = strings.TrimSpace(f); f != "" {
			rule.From = append(rule.From, f)
		}
	}
	if len(rule.From) == 0 {
		return models.RemapRule{}, fmt.Errorf("invalid remap %q: no source classes", s)
	}
	rule.To = to
	return rule, nil
}

func printSummary(cmd *cobra.Command, path string, s export.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s: %d images, %d null\n", path, s.Images, s.Nulls)
	labels := make([]string, 0, len(s.Labels))
	for l := range s.Labels {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	for _, l := range labels {
		fmt.Fprintf(out, "  %-20s %d\n", l, s.Labels[l])
	}
}
