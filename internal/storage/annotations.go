package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lehigh-university-libraries/reviewbox/internal/models"
)

// ReadAnnotation returns the stored boxes of image together with its native
// size. A missing annotation file is an empty list. A corrupt file returns
// the record with an error.
func (l *Library) ReadAnnotation(coll models.Collection, image string) (models.Annotation, error) {
	if err := ValidateName(image); err != nil {
		return models.Annotation{}, err
	}
	imageDir, annDir := l.dirsFor(coll)
	w, h := ImageSize(filepath.Join(imageDir, image))
	ann := models.Annotation{Boxes: []models.Box{}, W: w, H: h}

	doc, err := ReadVOC(filepath.Join(annDir, XMLName(image)))
	if os.IsNotExist(err) {
		return ann, nil
	}
	if err != nil {
		return ann, err
	}
	ann.Boxes = doc.Boxes()
	return ann, nil
}

// WriteAnnotation overwrites the stored boxes of an existing image.
func (l *Library) WriteAnnotation(coll models.Collection, image string, boxes []models.Box) error {
	path, err := l.ImagePath(coll, image)
	if err != nil {
		return err
	}
	imageDir, annDir := l.dirsFor(coll)
	w, h := ImageSize(path)
	data, err := NewVOC(imageDir, image, w, h, boxes).Marshal()
	if err != nil {
		return err
	}
	if err := writeFileAtomic(filepath.Join(annDir, XMLName(image)), data); err != nil {
		return fmt.Errorf("failed to write annotation for %s: %w", image, err)
	}
	return nil
}

// BulkBoxes reads the boxes of many images. Unreadable or invalid entries
// are skipped.
func (l *Library) BulkBoxes(coll models.Collection, images []string) map[string][]models.Box {
	out := make(map[string][]models.Box, len(images))
	_, annDir := l.dirsFor(coll)
	for _, name := range images {
		if ValidateName(name) != nil {
			continue
		}
		doc, err := ReadVOC(filepath.Join(annDir, XMLName(name)))
		if err != nil {
			out[name] = []models.Box{}
			continue
		}
		out[name] = doc.Boxes()
	}
	return out
}
