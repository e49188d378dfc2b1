package storage

import (
	"encoding/xml"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/reviewbox/internal/models"
)

// FallbackSize is reported for images whose header cannot be decoded.
const FallbackSize = 224

// VOC is a Pascal VOC annotation document.
type VOC struct {
	XMLName   xml.Name    `xml:"annotation"`
	Folder    string      `xml:"folder"`
	Filename  string      `xml:"filename"`
	Path      string      `xml:"path"`
	Source    VOCSource   `xml:"source"`
	Size      VOCSize     `xml:"size"`
	Segmented int         `xml:"segmented"`
	Objects   []VOCObject `xml:"object"`
}

type VOCSource struct {
	Database string `xml:"database"`
}

type VOCSize struct {
	Width  int `xml:"width"`
	Height int `xml:"height"`
	Depth  int `xml:"depth"`
}

type VOCObject struct {
	Name      string     `xml:"name"`
	Pose      string     `xml:"pose"`
	Truncated int        `xml:"truncated"`
	Difficult int        `xml:"difficult"`
	BndBox    *VOCBndBox `xml:"bndbox"`
}

type VOCBndBox struct {
	XMin int `xml:"xmin"`
	YMin int `xml:"ymin"`
	XMax int `xml:"xmax"`
	YMax int `xml:"ymax"`
}

// ImageSize reads the dimensions from the image header, falling back to
// FallbackSize on any error.
func ImageSize(path string) (int, int) {
	f, err := os.Open(path)
	if err != nil {
		return FallbackSize, FallbackSize
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return FallbackSize, FallbackSize
	}
	return cfg.Width, cfg.Height
}

// XMLName returns the annotation file name of an image.
func XMLName(image string) string {
	return strings.TrimSuffix(image, filepath.Ext(image)) + ".xml"
}

// NewVOC builds the document for boxes on an image of size w x h.
// Coordinates are clamped into the image and ordered; an unlabeled box is
// written as "object".
func NewVOC(dir, image string, w, h int, boxes []models.Box) VOC {
	doc := VOC{
		Folder:   filepath.Base(dir),
		Filename: image,
		Path:     filepath.Join(dir, image),
		Source:   VOCSource{Database: "Unknown"},
		Size:     VOCSize{Width: w, Height: h, Depth: 3},
	}
	for _, b := range models.Normalize(boxes) {
		x1, y1 := clamp(b.X1, 0, w-1), clamp(b.Y1, 0, h-1)
		x2, y2 := clamp(b.X2, 0, w-1), clamp(b.Y2, 0, h-1)
		label := b.Label
		if label == "" {
			label = "object"
		}
		doc.Objects = append(doc.Objects, VOCObject{
			Name: label,
			Pose: "Unspecified",
			BndBox: &VOCBndBox{
				XMin: min(x1, x2), YMin: min(y1, y2),
				XMax: max(x1, x2), YMax: max(y1, y2),
			},
		})
	}
	return doc
}

// Boxes returns the objects of the document as boxes.
func (v VOC) Boxes() []models.Box {
	boxes := make([]models.Box, 0, len(v.Objects))
	for _, o := range v.Objects {
		if o.BndBox == nil {
			continue
		}
		name := o.Name
		if name == "" {
			name = "object"
		}
		boxes = append(boxes, models.Box{
			X1: o.BndBox.XMin, Y1: o.BndBox.YMin,
			X2: o.BndBox.XMax, Y2: o.BndBox.YMax,
			Label: name,
		})
	}
	return boxes
}

// Marshal encodes the document with an XML header.
func (v VOC) Marshal() ([]byte, error) {
	data, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode VOC: %w", err)
	}
	return append([]byte(xml.Header), data...), nil
}

// ReadVOC parses the annotation file at path.
func ReadVOC(path string) (VOC, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return VOC{}, err
	}
	var v VOC
	if err := xml.Unmarshal(data, &v); err != nil {
		return VOC{}, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return v, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
