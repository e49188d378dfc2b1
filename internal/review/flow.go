package review

import (
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/reviewbox/internal/editor"
	"github.com/lehigh-university-libraries/reviewbox/internal/geometry"
	"github.com/lehigh-university-libraries/reviewbox/internal/models"
)

// Flow names a preset review workflow.
type Flow string

const (
	// FlowReview walks the catalog; a drawn box is appended and the cursor
	// advances.
	FlowReview Flow = "review"
	// FlowClassify walks a subset of the intake; a drawn box is saved and the
	// image accepted into the catalog.
	FlowClassify Flow = "classify"
	// FlowRaw is FlowClassify over the whole intake.
	FlowRaw Flow = "raw"
	// FlowAnnotate edits freely with an explicit save.
	FlowAnnotate Flow = "annotate"
)

// BoxAction is what happens after a box is drawn.
type BoxAction int

const (
	// BoxKeep leaves the box in the editor until an explicit save.
	BoxKeep BoxAction = iota
	// BoxAppendSkip appends the box to the stored list and skips ahead.
	BoxAppendSkip
	// BoxAccept saves the boxes and accepts the image.
	BoxAccept
)

// Config controls one review controller.
type Config struct {
	Flow       Flow
	View       string // cursor persistence key
	Collection models.Collection
	Fit        geometry.Policy

	RequireLabel bool
	MinExtent    float64
	OnBox        BoxAction
	// RelabelActive makes selecting a class relabel the active box.
	RelabelActive bool

	AllowNull   bool
	ConfirmNull bool

	Surface  geometry.Size
	Neighbor geometry.Size
}

// DefaultSurface and DefaultNeighbor size the current and neighboring
// surfaces.
var (
	DefaultSurface  = geometry.Size{W: 672, H: 672}
	DefaultNeighbor = geometry.Size{W: 224, H: 224}
)

// Preset returns the configuration of a named flow.
func Preset(flow Flow) (Config, error) {
	cfg := Config{
		Flow:      flow,
		View:      string(flow),
		Fit:       geometry.Letterbox,
		MinExtent: editor.DefaultMinExtent,
		Surface:   DefaultSurface,
		Neighbor:  DefaultNeighbor,
	}
	switch flow {
	case FlowReview:
		cfg.Collection = models.Catalog
		cfg.OnBox = BoxAppendSkip
		cfg.AllowNull = true
	case FlowClassify, FlowRaw:
		cfg.Collection = models.Raw
		cfg.RequireLabel = true
		cfg.OnBox = BoxAccept
	case FlowAnnotate:
		cfg.Collection = models.Catalog
		cfg.OnBox = BoxKeep
		cfg.RelabelActive = true
		cfg.AllowNull = true
		cfg.ConfirmNull = true
	default:
		return Config{}, fmt.Errorf("unknown flow: %q (supported: review, classify, raw, annotate)", flow)
	}
	return cfg, nil
}

// ParseFlow parses a flow name.
func ParseFlow(s string) (Flow, error) {
	f := Flow(strings.ToLower(strings.TrimSpace(s)))
	if _, err := Preset(f); err != nil {
		return "", err
	}
	return f, nil
}
