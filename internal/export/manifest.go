package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/parquet-go/parquet-go"
)

// ReadManifest returns the manifest rows of an export archive.
func ReadManifest(zipPath string) ([]ManifestRow, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != ManifestName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest: %w", err)
		}
		return readRows(data)
	}
	return nil, fmt.Errorf("%s not found in %s", ManifestName, zipPath)
}

func readRows(data []byte) ([]ManifestRow, error) {
	pf, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}
	slog.Debug("manifest opened", "num_rows", pf.NumRows())

	reader := parquet.NewGenericReader[ManifestRow](pf)
	defer reader.Close()

	var out []ManifestRow
	rows := make([]ManifestRow, 128)
	for {
		n, err := reader.Read(rows)
		out = append(out, rows[:n]...)
		if err != nil {
			break
		}
	}
	return out, nil
}

// Summary counts objects per label and null-tagged images.
type Summary struct {
	Images int
	Nulls  int
	Labels map[string]int
}

// Summarize aggregates manifest rows.
func Summarize(rows []ManifestRow) Summary {
	s := Summary{Labels: map[string]int{}}
	images := map[string]bool{}
	for _, r := range rows {
		images[r.Image] = true
		if r.Null {
			s.Nulls++
			continue
		}
		s.Labels[r.Label]++
	}
	s.Images = len(images)
	return s
}
