package storage

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lehigh-university-libraries/reviewbox/internal/models"
)

// Delete removes images and their annotations. Each file succeeds or fails
// on its own.
func (l *Library) Delete(coll models.Collection, files []string) models.BulkResult {
	imageDir, annDir := l.dirsFor(coll)
	res := models.BulkResult{Done: []string{}, Failed: []models.FileError{}}
	for _, f := range files {
		if err := ValidateName(f); err != nil {
			res.Failed = append(res.Failed, models.FileError{File: f, Error: "invalid name"})
			continue
		}
		if err := removeIfExists(filepath.Join(imageDir, f)); err != nil {
			res.Failed = append(res.Failed, models.FileError{File: f, Error: err.Error()})
			continue
		}
		if err := removeIfExists(filepath.Join(annDir, XMLName(f))); err != nil {
			res.Failed = append(res.Failed, models.FileError{File: f, Error: err.Error()})
			continue
		}
		res.Done = append(res.Done, f)
	}
	slog.Info("deleted images", "collection", string(coll), "deleted", len(res.Done), "failed", len(res.Failed))
	return res
}

// Accept moves intake images into the catalog together with their
// annotations. When label is set, unlabeled boxes take it.
func (l *Library) Accept(files []string, label string) models.BulkResult {
	res := models.BulkResult{Done: []string{}, Failed: []models.FileError{}}
	for _, f := range files {
		if err := l.acceptOne(f, label); err != nil {
			slog.Warn("accept failed", "image", f, "err", err)
			res.Failed = append(res.Failed, models.FileError{File: f, Error: err.Error()})
			continue
		}
		res.Done = append(res.Done, f)
	}
	slog.Info("accepted images", "accepted", len(res.Done), "failed", len(res.Failed), "label", label)
	return res
}

func (l *Library) acceptOne(name, label string) error {
	src, err := l.ImagePath(models.Raw, name)
	if err != nil {
		return err
	}
	catalogDir, catalogAnnDir := l.dirsFor(models.Catalog)
	_, rawAnnDir := l.dirsFor(models.Raw)
	dst := filepath.Join(catalogDir, name)
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("%s %w in catalog", name, ErrExists)
	}

	ann, err := l.ReadAnnotation(models.Raw, name)
	if err != nil {
		return err
	}
	boxes := ann.Boxes
	if label != "" {
		for i := range boxes {
			if boxes[i].Label == "" || boxes[i].Label == "object" {
				boxes[i].Label = label
			}
		}
	}

	if err := moveFile(src, dst); err != nil {
		return fmt.Errorf("failed to move %s: %w", name, err)
	}
	if len(boxes) > 0 {
		data, err := NewVOC(catalogDir, name, ann.W, ann.H, boxes).Marshal()
		if err != nil {
			return err
		}
		if err := writeFileAtomic(filepath.Join(catalogAnnDir, XMLName(name)), data); err != nil {
			return fmt.Errorf("failed to write annotation for %s: %w", name, err)
		}
	}
	return removeIfExists(filepath.Join(rawAnnDir, XMLName(name)))
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// moveFile renames src to dst, copying when they are on different devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
