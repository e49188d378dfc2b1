// Package export packages the catalog as a Pascal VOC zip archive with a
// parquet manifest of every exported object.
package export

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/reviewbox/internal/models"
	"github.com/lehigh-university-libraries/reviewbox/internal/storage"
	"github.com/parquet-go/parquet-go"
)

const (
	ManifestName = "manifest.parquet"
	imagesDir    = "JPEGImages"
	annDir       = "Annotations"
	trainList    = "ImageSets/Main/train.txt"
	classesList  = "classes.txt"
)

// Source is the part of the image library an export reads.
type Source interface {
	List(coll models.Collection, class string) ([]string, error)
	ReadAnnotation(coll models.Collection, image string) (models.Annotation, error)
	ImagePath(coll models.Collection, name string) (string, error)
}

// ManifestRow is one exported object. Null-tagged images contribute a single
// row with Null set and no label.
type ManifestRow struct {
	Image  string `parquet:"image"`
	Label  string `parquet:"label"`
	XMin   int32  `parquet:"xmin"`
	YMin   int32  `parquet:"ymin"`
	XMax   int32  `parquet:"xmax"`
	YMax   int32  `parquet:"ymax"`
	Width  int32  `parquet:"width"`
	Height int32  `parquet:"height"`
	Null   bool   `parquet:"null"`
}

// Result describes a written archive.
type Result struct {
	Name    string
	Path    string
	Count   int
	Objects int
}

// Exporter writes archives into dir.
type Exporter struct {
	src Source
	dir string
	now func() time.Time
}

func New(src Source, dir string) *Exporter {
	return &Exporter{src: src, dir: dir, now: time.Now}
}

// Rules is a parsed export request.
type Rules struct {
	remap         map[string]string
	selected      map[string]bool
	order         []string
	includeNull   bool
	annotatedOnly bool
}

// ParseRules validates req. An empty class list selects every class.
func ParseRules(req models.ExportRequest) (Rules, error) {
	r := Rules{remap: map[string]string{}, annotatedOnly: true}
	if req.AnnotatedOnly != nil {
		r.annotatedOnly = *req.AnnotatedOnly
	}
	switch req.NullHandling {
	case "", models.NullSkip:
	case models.NullInclude:
		r.includeNull = true
	default:
		return Rules{}, fmt.Errorf("unknown null_handling %q (supported: skip, include)", req.NullHandling)
	}
	for _, rule := range req.Remap {
		to := strings.TrimSpace(rule.To)
		if to == "" {
			continue
		}
		for _, from := range rule.From {
			if from = strings.TrimSpace(from); from != "" {
				r.remap[from] = to
			}
		}
	}
	for _, c := range req.Classes {
		c = strings.TrimSpace(c)
		if c == "" || c == models.NullLabel {
			continue
		}
		if r.selected == nil {
			r.selected = map[string]bool{}
		}
		if !r.selected[c] {
			r.selected[c] = true
			r.order = append(r.order, c)
		}
	}
	return r, nil
}

// Apply returns the objects to export for one annotation and whether the
// image is exported at all. Remapping happens before class selection.
func (r Rules) Apply(ann models.Annotation) ([]models.Box, bool) {
	switch ann.Kind() {
	case models.KindNull:
		return []models.Box{}, r.includeNull
	case models.KindEmpty:
		return []models.Box{}, !r.annotatedOnly
	}
	out := make([]models.Box, 0, len(ann.Boxes))
	for _, b := range ann.Boxes {
		if to, ok := r.remap[b.Label]; ok {
			b.Label = to
		}
		if r.selected != nil && !r.selected[b.Label] {
			continue
		}
		out = append(out, b)
	}
	return out, len(out) > 0
}

type entry struct {
	name  string
	path  string
	ann   models.Annotation
	boxes []models.Box
}

// Export writes a VOC archive of the catalog and returns where it landed.
func (e *Exporter) Export(ctx context.Context, req models.ExportRequest) (Result, error) {
	rules, err := ParseRules(req)
	if err != nil {
		return Result{}, err
	}
	images, err := e.src.List(models.Catalog, models.FilterAll)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list catalog: %w", err)
	}

	var entries []entry
	for _, name := range images {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		ann, err := e.src.ReadAnnotation(models.Catalog, name)
		if err != nil {
			slog.Warn("skipping unreadable annotation", "image", name, "err", err)
			continue
		}
		boxes, ok := rules.Apply(ann)
		if !ok {
			continue
		}
		path, err := e.src.ImagePath(models.Catalog, name)
		if err != nil {
			slog.Warn("skipping missing image", "image", name, "err", err)
			continue
		}
		entries = append(entries, entry{name: name, path: path, ann: ann, boxes: boxes})
	}

	stamp := e.now().UTC().Format("20060102_150405")
	name := fmt.Sprintf("VOC_%s_%s.zip", stamp, uuid.NewString()[:8])
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return Result{}, fmt.Errorf("failed to create exports directory: %w", err)
	}
	final := filepath.Join(e.dir, name)
	tmp := final + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create archive: %w", err)
	}

	objects, werr := writeArchive(ctx, f, entries, rules)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(tmp)
		return Result{}, werr
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return Result{}, fmt.Errorf("failed to finalize archive: %w", err)
	}

	slog.Info("exported dataset", "zip", name, "images", len(entries), "objects", objects)
	return Result{Name: name, Path: final, Count: len(entries), Objects: objects}, nil
}

func writeArchive(ctx context.Context, w io.Writer, entries []entry, rules Rules) (int, error) {
	zw := zip.NewWriter(w)
	var rows []ManifestRow
	var train strings.Builder
	seen := map[string]bool{}

	for _, en := range entries {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := copyInto(zw, imagesDir+"/"+en.name, en.path); err != nil {
			return 0, fmt.Errorf("failed to add %s: %w", en.name, err)
		}
		doc := storage.NewVOC(imagesDir, en.name, en.ann.W, en.ann.H, en.boxes)
		data, err := doc.Marshal()
		if err != nil {
			return 0, err
		}
		if err := writeEntry(zw, annDir+"/"+storage.XMLName(en.name), data); err != nil {
			return 0, err
		}
		train.WriteString(strings.TrimSuffix(en.name, filepath.Ext(en.name)) + "\n")

		if en.ann.Kind() == models.KindNull {
			rows = append(rows, ManifestRow{Image: en.name, Width: int32(en.ann.W), Height: int32(en.ann.H), Null: true})
			continue
		}
		for _, o := range doc.Objects {
			seen[o.Name] = true
			rows = append(rows, ManifestRow{
				Image: en.name, Label: o.Name,
				XMin: int32(o.BndBox.XMin), YMin: int32(o.BndBox.YMin),
				XMax: int32(o.BndBox.XMax), YMax: int32(o.BndBox.YMax),
				Width: int32(en.ann.W), Height: int32(en.ann.H),
			})
		}
	}

	if err := writeEntry(zw, trainList, []byte(train.String())); err != nil {
		return 0, err
	}
	if err := writeEntry(zw, classesList, []byte(classNames(rules, seen))); err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	pw := parquet.NewGenericWriter[ManifestRow](&buf)
	if _, err := pw.Write(rows); err != nil {
		return 0, fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := pw.Close(); err != nil {
		return 0, fmt.Errorf("failed to close manifest: %w", err)
	}
	if err := writeEntry(zw, ManifestName, buf.Bytes()); err != nil {
		return 0, err
	}

	objects := 0
	for _, r := range rows {
		if !r.Null {
			objects++
		}
	}
	return objects, zw.Close()
}

// classNames lists the selected classes in request order, or every class
// written when no selection was made.
func classNames(rules Rules, seen map[string]bool) string {
	names := rules.order
	if names == nil {
		for n := range seen {
			names = append(names, n)
		}
		sort.Strings(names)
	}
	if len(names) == 0 {
		return ""
	}
	return strings.Join(names, "\n") + "\n"
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func copyInto(zw *zip.Writer, name, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}
