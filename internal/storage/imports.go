package storage

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/reviewbox/internal/models"
)

// MaxImportSize bounds an uploaded archive.
const MaxImportSize = 1 << 30

// ImportResult summarizes a zip import.
type ImportResult struct {
	Images      int
	Annotations int
	Failed      []string
}

// ImportVOC unpacks images into the catalog and .xml files into its
// annotation directory. Existing files are overwritten.
func (l *Library) ImportVOC(data []byte) (ImportResult, error) {
	return l.importZip(data, models.Catalog, true)
}

// ImportImages unpacks images into the intake collection.
func (l *Library) ImportImages(data []byte) (ImportResult, error) {
	return l.importZip(data, models.Raw, false)
}

func (l *Library) importZip(data []byte, coll models.Collection, withXML bool) (ImportResult, error) {
	var res ImportResult
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return res, fmt.Errorf("invalid or corrupted zip file: %w", err)
	}
	imageDir, annDir := l.dirsFor(coll)

	// Entries are extracted into a staging directory first so a failed
	// write never leaves a partial file in the collection.
	staging := filepath.Join(filepath.Dir(imageDir), ".import-"+uuid.NewString())
	if err := os.MkdirAll(staging, 0755); err != nil {
		return res, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.Contains(f.Name, "__MACOSX") {
			continue
		}
		base := path.Base(strings.ReplaceAll(f.Name, `\`, "/"))
		if base == "" || base == "." || strings.HasPrefix(base, ".") {
			continue
		}

		var target string
		switch {
		case IsImage(base):
			if ValidateName(base) != nil {
				res.Failed = append(res.Failed, f.Name)
				continue
			}
			target = filepath.Join(imageDir, base)
		case withXML && strings.EqualFold(filepath.Ext(base), ".xml"):
			target = filepath.Join(annDir, base)
		default:
			continue
		}

		if err := extract(f, filepath.Join(staging, base), target); err != nil {
			slog.Warn("import entry failed", "entry", f.Name, "err", err)
			res.Failed = append(res.Failed, f.Name)
			continue
		}
		if IsImage(base) {
			res.Images++
		} else {
			res.Annotations++
		}
	}
	slog.Info("imported archive", "collection", string(coll), "images", res.Images, "annotations", res.Annotations, "failed", len(res.Failed))
	return res, nil
}

func extract(f *zip.File, stagePath, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(stagePath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, io.LimitReader(rc, MaxImportSize)); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return moveFile(stagePath, target)
}
