package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/reviewbox/internal/annotations"
	"github.com/lehigh-university-libraries/reviewbox/internal/browse"
	"github.com/lehigh-university-libraries/reviewbox/internal/models"
	"github.com/spf13/cobra"
)

const browseHelp = `Commands:
  next | prev           change page           page-size N   set page size
  class [NAME]          filter by class (__unannotated__, __null__, empty for all)
  filter [TEXT]         filter the page by name
  click I               toggle image I        shift I       range toggle to I
  all                   select all / clear
  delete                delete the selection
  accept [LABEL]        accept the selection into the catalog (intake only)
  list | help | quit
`

func newBrowseCmd(opts *rootOptions) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Page through a collection and bulk delete or accept images",
		Example: `  # Browse the catalog
  reviewbox browse

  # Browse the intake collection and accept a selection
  reviewbox browse --raw`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c := opts.client()
			term := newTerminal(cmd.InOrStdin(), cmd.OutOrStdout())

			coll := models.Catalog
			var src browse.Source = browse.CatalogSource{Lister: c}
			if raw {
				coll = models.Raw
				src = browse.RawSource{Lister: c}
			}
			grid := browse.New(coll, opts.cfg.PageSize, browse.Deps{
				Source:    src,
				Service:   c,
				Boxes:     annotations.New(c.Annotations(coll), annotations.WithConcurrency(opts.cfg.BulkConcurrency)),
				Confirmer: term,
				Notifier:  term,
			})
			if err := grid.Load(ctx); err != nil {
				return err
			}
			return runBrowse(ctx, grid, term)
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Browse the intake collection instead of the catalog")

	return cmd
}

func runBrowse(ctx context.Context, grid *browse.Grid, term *terminal) error {
	printGrid(grid, term)
	for {
		if ctx.Err() != nil {
			return nil
		}
		verb, args, ok := term.ReadCommand("browse> ")
		if !ok {
			return nil
		}
		if verb == "" {
			continue
		}
		done, err := browseCommand(ctx, grid, term, verb, args)
		switch {
		case errors.Is(err, browse.ErrDeclined), errors.Is(err, browse.ErrNoSelection):
		case err != nil:
			term.Notify(err.Error())
		}
		if done {
			return nil
		}
		printGrid(grid, term)
	}
}

func browseCommand(ctx context.Context, grid *browse.Grid, term *terminal, verb string, args []string) (bool, error) {
	switch strings.ToLower(verb) {
	case "quit", "q", "exit":
		return true, nil
	case "help", "?":
		term.Printf("%s", browseHelp)
	case "list", "ls":
	case "next", "n":
		return false, grid.NextPage(ctx)
	case "prev", "p":
		return false, grid.PrevPage(ctx)
	case "page-size":
		n, err := intArg(args)
		if err != nil {
			return false, err
		}
		return false, grid.SetPageSize(ctx, n)
	case "class":
		return false, grid.SetClass(ctx, strings.Join(args, " "))
	case "filter":
		grid.SetFilter(strings.Join(args, " "))
	case "click":
		i, err := intArg(args)
		if err != nil {
			return false, err
		}
		return false, grid.Click(i)
	case "shift":
		i, err := intArg(args)
		if err != nil {
			return false, err
		}
		return false, grid.ShiftClick(i)
	case "all":
		grid.ToggleAll()
	case "delete", "del":
		res, err := grid.DeleteSelected(ctx)
		if err == nil {
			term.Printf("Deleted %d images.\n", len(res.Done))
		}
		return false, err
	case "accept":
		res, err := grid.AcceptSelected(ctx, strings.Join(args, " "))
		if err == nil {
			term.Printf("Accepted %d images.\n", len(res.Done))
		}
		return false, err
	default:
		term.Notify(fmt.Sprintf("unknown command %q (type help)", verb))
	}
	return false, nil
}

func intArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected one number")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", args[0], err)
	}
	return n, nil
}

func printGrid(grid *browse.Grid, term *terminal) {
	page, pages, total := grid.Page()
	visible := grid.Visible()
	term.Printf("Page %d/%d  (%d images, %d selected)\n", page, pages, total, len(grid.Selected()))
	for i, name := range visible {
		mark := " "
		if grid.IsSelected(name) {
			mark = "x"
		}
		boxes := grid.BoxesFor(name)
		term.Printf("  [%s] %3d  #%-5d %s  %s\n", mark, i, grid.Ordinal(i), name, boxSummary(boxes))
	}
}

func boxSummary(boxes []models.Box) string {
	switch models.KindOf(boxes) {
	case models.KindEmpty:
		return "-"
	case models.KindNull:
		return "null"
	}
	counts := map[string]int{}
	var order []string
	for _, b := range boxes {
		if b.IsNull() {
			continue
		}
		if counts[b.Label] == 0 {
			order = append(order, b.Label)
		}
		counts[b.Label]++
	}
	parts := make([]string, 0, len(order))
	for _, l := range order {
		parts = append(parts, fmt.Sprintf("%s:%d", l, counts[l]))
	}
	return strings.Join(parts, " ")
}
