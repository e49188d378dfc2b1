package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/reviewbox/internal/models"
)

type fileEntry struct {
	name    string
	modTime time.Time
}

// List returns the images of a collection, newest first then by lowercase
// name, capped at the library's maximum and filtered by class.
func (l *Library) List(coll models.Collection, class string) ([]string, error) {
	imageDir, annDir := l.dirsFor(coll)
	entries, err := os.ReadDir(imageDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", imageDir, err)
	}

	files := make([]fileEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsImage(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileEntry{name: e.Name(), modTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool {
		if !files[i].modTime.Equal(files[j].modTime) {
			return files[i].modTime.After(files[j].modTime)
		}
		return strings.ToLower(files[i].name) < strings.ToLower(files[j].name)
	})
	if len(files) > l.maxImages {
		files = files[:l.maxImages]
	}

	out := make([]string, 0, len(files))
	for _, f := range files {
		if class != models.FilterAll && !matchesClass(annDir, f.name, class) {
			continue
		}
		out = append(out, f.name)
	}
	return out, nil
}

// Page returns one 1-based page of List.
func (l *Library) Page(coll models.Collection, page, pageSize int, class string) (models.ImagePage, error) {
	all, err := l.List(coll, class)
	if err != nil {
		return models.ImagePage{}, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = len(all)
	}
	start := min(len(all), (page-1)*pageSize)
	end := min(len(all), start+pageSize)
	return models.ImagePage{
		Images:   append([]string{}, all[start:end]...),
		Total:    len(all),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func matchesClass(annDir, image, class string) bool {
	doc, err := ReadVOC(filepath.Join(annDir, XMLName(image)))
	if err != nil {
		return class == models.FilterUnannotated
	}
	boxes := doc.Boxes()
	switch class {
	case models.FilterUnannotated:
		return len(boxes) == 0
	case models.FilterNull:
		return models.KindOf(boxes) == models.KindNull
	}
	for _, b := range boxes {
		if b.Label == class {
			return true
		}
	}
	return false
}

// LabelsInUse returns every non-null label found in the catalog's
// annotations.
func (l *Library) LabelsInUse() ([]string, error) {
	images, err := l.List(models.Catalog, models.FilterAll)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, boxes := range l.BulkBoxes(models.Catalog, images) {
		for _, b := range boxes {
			if b.IsNull() || seen[b.Label] {
				continue
			}
			seen[b.Label] = true
			out = append(out, b.Label)
		}
	}
	sort.Strings(out)
	return out, nil
}
