package review

import (
	"context"

	"github.com/lehigh-university-libraries/reviewbox/internal/editor"
	"github.com/lehigh-university-libraries/reviewbox/internal/models"
)

// State is the controller's position in its state machine.
type State int

const (
	Idle State = iota
	Showing
	Empty
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Showing:
		return "showing"
	case Empty:
		return "empty"
	default:
		return "unknown"
	}
}

// Surface identifies one of the three review surfaces.
type Surface int

const (
	Previous Surface = iota
	Current
	Next
)

func (s Surface) String() string {
	switch s {
	case Previous:
		return "previous"
	case Current:
		return "current"
	case Next:
		return "next"
	default:
		return "unknown"
	}
}

// Frame is what a renderer draws on one surface. Blank frames stand in for
// a neighbor outside the list.
type Frame struct {
	Surface    Surface
	Index      int
	Image      string
	Collection models.Collection
	Annotation models.Annotation
	Scene      editor.Scene
	Blank      bool
	Err        error
}

// Renderer draws frames. Render is called concurrently for different
// surfaces.
type Renderer interface {
	Render(ctx context.Context, f Frame) error
}

// Confirmer asks the user to approve an irreversible action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// Notifier shows a user-visible message.
type Notifier interface {
	Notify(msg string)
}

// Service performs collection-level mutations.
type Service interface {
	Accept(ctx context.Context, files []string, label string) (models.BulkResult, error)
	Delete(ctx context.Context, coll models.Collection, files []string) (models.BulkResult, error)
}

// ClassService reads and replaces the class list.
type ClassService interface {
	Classes(ctx context.Context) ([]string, error)
	SaveClasses(ctx context.Context, classes []string) error
}

// AnnotationStore is the cache the controller reads and writes through.
type AnnotationStore interface {
	Get(ctx context.Context, image string) (models.Annotation, error)
	Save(ctx context.Context, image string, boxes []models.Box) (models.Annotation, error)
	Append(ctx context.Context, image string, boxes ...models.Box) (models.Annotation, error)
	TagNull(ctx context.Context, image string) (models.Annotation, error)
	Invalidate(image string)
}
