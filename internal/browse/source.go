package browse

import (
	"context"

	"github.com/lehigh-university-libraries/reviewbox/internal/models"
)

// CatalogLister is the paginated catalog listing.
type CatalogLister interface {
	Images(ctx context.Context, page, pageSize int, class string) (models.ImagePage, error)
}

// RawLister lists the whole intake collection.
type RawLister interface {
	RawImages(ctx context.Context) ([]string, error)
}

// CatalogSource pages through the catalog on the service side.
type CatalogSource struct {
	Lister CatalogLister
}

func (s CatalogSource) List(ctx context.Context, page, pageSize int, class string) (models.ImagePage, error) {
	p, err := s.Lister.Images(ctx, page, pageSize, class)
	if err != nil {
		return models.ImagePage{}, err
	}
	p.Page, p.PageSize = page, pageSize
	return p, nil
}

// RawSource fetches the intake listing and pages it locally. The class
// filter does not apply to the intake.
type RawSource struct {
	Lister RawLister
}

func (s RawSource) List(ctx context.Context, page, pageSize int, _ string) (models.ImagePage, error) {
	all, err := s.Lister.RawImages(ctx)
	if err != nil {
		return models.ImagePage{}, err
	}
	return Paginate(all, page, pageSize), nil
}

// Paginate slices one 1-based page out of images.
func Paginate(images []string, page, pageSize int) models.ImagePage {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	start := min(len(images), (page-1)*pageSize)
	end := min(len(images), start+pageSize)
	return models.ImagePage{
		Images:   append([]string{}, images[start:end]...),
		Total:    len(images),
		Page:     page,
		PageSize: pageSize,
	}
}
