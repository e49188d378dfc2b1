package client

import (
	"context"

	"github.com/lehigh-university-libraries/reviewbox/internal/annotations"
	"github.com/lehigh-university-libraries/reviewbox/internal/models"
)

// AnnotationBackend binds the annotation endpoints of one collection.
type AnnotationBackend struct {
	c    *Client
	coll models.Collection
}

// Annotations returns the annotation backend for coll.
func (c *Client) Annotations(coll models.Collection) *AnnotationBackend {
	return &AnnotationBackend{c: c, coll: coll}
}

func (b *AnnotationBackend) Fetch(ctx context.Context, image string) (models.Annotation, error) {
	return b.c.Annotation(ctx, b.coll, image)
}

func (b *AnnotationBackend) Save(ctx context.Context, image string, boxes []models.Box) error {
	return b.c.SaveAnnotation(ctx, b.coll, image, boxes)
}

// FetchBulk uses the batched endpoint, which only serves the catalog.
func (b *AnnotationBackend) FetchBulk(ctx context.Context, images []string) (map[string][]models.Box, error) {
	if b.coll != models.Catalog {
		return nil, annotations.ErrBulkUnsupported
	}
	return b.c.BulkAnnotations(ctx, images)
}
