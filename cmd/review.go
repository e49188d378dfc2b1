package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/reviewbox/internal/annotations"
	"github.com/lehigh-university-libraries/reviewbox/internal/client"
	"github.com/lehigh-university-libraries/reviewbox/internal/geometry"
	"github.com/lehigh-university-libraries/reviewbox/internal/models"
	"github.com/lehigh-university-libraries/reviewbox/internal/render"
	"github.com/lehigh-university-libraries/reviewbox/internal/review"
	"github.com/spf13/cobra"
)

const reviewHelp = `Commands:
  skip | <space>        next image          back | left     previous image
  accept | enter        accept (save in annotate)
  delete                delete current image
  n | null              tag as null
  1..9                  select class by hotkey
  label NAME            select class          add NAME      add a class
  box X1 Y1 X2 Y2       drag a box in surface pixels
  select I | esc        select box I / clear selection
  bs | backspace        delete selected box (annotate)
  save                  save boxes (annotate)
  reload                refetch the current annotation, dropping unsaved edits
  status | help | quit
`

func newReviewCmd(opts *rootOptions) *cobra.Command {
	var (
		flowName string
		outDir   string
		class    string
	)

	cmd := &cobra.Command{
		Use:   "review [image...]",
		Short: "Walk images one at a time to draw and review boxes",
		Long: `Starts an interactive review session.

Flows:
  review    walk the catalog; a drawn box is appended and the next image shown
  classify  walk the given intake images; a drawn box accepts the image
  raw       classify over the whole intake collection
  annotate  edit the given catalog image with an explicit save

The previous, current and next surfaces are written as PNG files to --out.`,
		Example: `  # Review the catalog, resuming where the last session stopped
  reviewbox review

  # Classify two intake images
  reviewbox review --flow classify a.jpg b.jpg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flow, err := review.ParseFlow(flowName)
			if err != nil {
				return err
			}
			rc, err := opts.cfg.ReviewConfig(flow)
			if err != nil {
				return err
			}
			c := opts.client()

			images, err := reviewImages(ctx, c, flow, class, args, opts.cfg.MaxImages)
			if err != nil {
				return err
			}

			st, closeState, err := openState(opts.cfg)
			if err != nil {
				return err
			}
			defer closeState()

			renderer, err := render.NewPNGRenderer(outDir, c, rc.Surface, rc.Neighbor)
			if err != nil {
				return err
			}
			term := newTerminal(cmd.InOrStdin(), cmd.OutOrStdout())
			ctrl := review.New(rc, review.Deps{
				Service:   c,
				Store:     annotations.New(c.Annotations(rc.Collection), annotations.WithConcurrency(opts.cfg.BulkConcurrency)),
				Classes:   c,
				State:     st,
				Renderer:  renderer,
				Confirmer: term,
				Notifier:  term,
			})
			if err := ctrl.Start(ctx, images); err != nil {
				return err
			}
			term.Printf("Surfaces are written to %s. Type help for commands.\n", outDir)
			return runReview(ctx, ctrl, term)
		},
	}

	cmd.Flags().StringVar(&flowName, "flow", string(review.FlowReview), "Flow: review, classify, raw, annotate")
	cmd.Flags().StringVarP(&outDir, "out", "o", "review-surfaces", "Directory receiving the rendered surfaces")
	cmd.Flags().StringVar(&class, "class", "", "Only review catalog images with this class (__unannotated__, __null__ or a label)")

	return cmd
}

func reviewImages(ctx context.Context, c *client.Client, flow review.Flow, class string, args []string, limit int) ([]string, error) {
	switch flow {
	case review.FlowReview:
		page, err := c.Images(ctx, 1, limit, class)
		if err != nil {
			return nil, err
		}
		return page.Images, nil
	case review.FlowRaw:
		return c.RawImages(ctx)
	case review.FlowAnnotate:
		if len(args) != 1 {
			return nil, fmt.Errorf("annotate takes exactly one image")
		}
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%s needs at least one image", flow)
	}
	return args, nil
}

func runReview(ctx context.Context, ctrl *review.Controller, term *terminal) error {
	printReviewStatus(ctrl, term)
	for {
		if ctx.Err() != nil {
			return nil
		}
		verb, args, ok := term.ReadCommand("review> ")
		if !ok {
			return nil
		}
		if verb == "" {
			continue
		}
		done, err := reviewCommand(ctx, ctrl, term, verb, args)
		switch {
		case errors.Is(err, review.ErrBusy), errors.Is(err, review.ErrDeclined), errors.Is(err, review.ErrNotLoaded):
		case err != nil:
			term.Notify(err.Error())
		}
		if done {
			return nil
		}
		printReviewStatus(ctrl, term)
	}
}

var reviewKeys = map[string]string{
	"skip": review.KeySkip, " ": review.KeySkip, "next": review.KeySkip,
	"back": review.KeyBack, "left": review.KeyBack, "prev": review.KeyBack,
	"accept": review.KeyAccept, "enter": review.KeyAccept,
	"delete": review.KeyDelete, "del": review.KeyDelete,
	"null": "n", "n": "n",
	"bs": review.KeyBackspace, "backspace": review.KeyBackspace,
	"esc": review.KeyEscape,
}

func reviewCommand(ctx context.Context, ctrl *review.Controller, term *terminal, verb string, args []string) (bool, error) {
	switch strings.ToLower(verb) {
	case "quit", "q", "exit":
		return true, nil
	case "help", "?":
		term.Printf("%s", reviewHelp)
		return false, nil
	case "status":
		return false, nil
	case "label":
		return false, ctrl.SelectLabel(ctx, strings.Join(args, " "))
	case "add":
		added, err := ctrl.AddClass(ctx, strings.Join(args, " "))
		if err == nil && !added {
			term.Notify("class already exists")
		}
		return false, err
	case "save":
		return false, ctrl.Save(ctx)
	case "reload":
		return false, ctrl.Reload(ctx)
	case "select":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: select INDEX")
		}
		i, err := strconv.Atoi(args[0])
		if err != nil {
			return false, err
		}
		return false, ctrl.SelectBox(ctx, i)
	case "box":
		return false, dragBox(ctx, ctrl, args)
	}

	key := verb
	if k, ok := reviewKeys[strings.ToLower(verb)]; ok {
		key = k
	}
	bound, err := ctrl.HandleKey(ctx, key)
	if !bound && err == nil {
		term.Notify(fmt.Sprintf("unknown command %q (type help)", verb))
	}
	return false, err
}

// dragBox replays a pointer drag from (x1,y1) to (x2,y2) on the current
// surface.
func dragBox(ctx context.Context, ctrl *review.Controller, args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("usage: box X1 Y1 X2 Y2")
	}
	var v [4]float64
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return fmt.Errorf("invalid coordinate %q: %w", a, err)
		}
		v[i] = f
	}
	p := ctrl.Pointer()
	if p == nil {
		return fmt.Errorf("no image is showing")
	}
	if err := p.Down(ctx, geometry.Point{X: v[0], Y: v[1]}); err != nil {
		return err
	}
	if err := p.Move(ctx, geometry.Point{X: v[2], Y: v[3]}); err != nil {
		return err
	}
	return p.Up(ctx)
}

func printReviewStatus(ctrl *review.Controller, term *terminal) {
	st, idx := ctrl.State()
	images := ctrl.Images()
	switch st {
	case review.Empty:
		term.Printf("No images to review.\n")
		return
	case review.Idle:
		return
	}
	name, _ := ctrl.Current()
	label := ctrl.Label()
	if label == "" {
		label = "(none)"
	}
	boxes := ctrl.Boxes()
	kind := models.KindOf(boxes)
	term.Printf("[%d/%d] %s  label: %s  %s: %d\n", idx+1, len(images), name, label, kind, len(boxes))
	for i, b := range boxes {
		if !b.IsNull() {
			term.Printf("  %d. %s\n", i, b)
		}
	}
	if classes := ctrl.Classes(); len(classes) > 0 {
		var hot []string
		for i, c := range classes[:min(9, len(classes))] {
			hot = append(hot, fmt.Sprintf("%d=%s", i+1, c))
		}
		term.Printf("  classes: %s\n", strings.Join(hot, " "))
	}
}
