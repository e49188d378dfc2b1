package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/lehigh-university-libraries/reviewbox/internal/editor"
	"github.com/lehigh-university-libraries/reviewbox/internal/geometry"
	"github.com/lehigh-university-libraries/reviewbox/internal/models"
	"github.com/lehigh-university-libraries/reviewbox/internal/review"
)

// cacheSize bounds the decoded images kept between frames.
const cacheSize = 16

// ImageSource fetches encoded image bytes.
type ImageSource interface {
	ImageBytes(ctx context.Context, coll models.Collection, image string) ([]byte, error)
}

// PNGRenderer writes each review surface to <Dir>/<surface>.png.
type PNGRenderer struct {
	Dir      string
	Images   ImageSource
	Surface  geometry.Size
	Neighbor geometry.Size

	mu    sync.Mutex
	cache map[string]image.Image
	order []string
}

func NewPNGRenderer(dir string, images ImageSource, surface, neighbor geometry.Size) (*PNGRenderer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create render directory: %w", err)
	}
	return &PNGRenderer{
		Dir:      dir,
		Images:   images,
		Surface:  surface,
		Neighbor: neighbor,
		cache:    make(map[string]image.Image),
	}, nil
}

// Path returns the file a surface is written to.
func (p *PNGRenderer) Path(s review.Surface) string {
	return filepath.Join(p.Dir, s.String()+".png")
}

// Render draws one frame. Blank frames clear the surface.
func (p *PNGRenderer) Render(ctx context.Context, f review.Frame) error {
	sc := f.Scene
	var img image.Image
	if f.Blank {
		size := p.Neighbor
		if f.Surface == review.Current {
			size = p.Surface
		}
		sc = editor.Scene{Display: size}
	} else {
		var err error
		img, err = p.load(ctx, f.Collection, f.Image)
		if err != nil {
			slog.Warn("failed to load image", "image", f.Image, "err", err)
		}
	}

	out := Draw(sc, img)
	if err := p.write(out, f.Surface); err != nil {
		return fmt.Errorf("failed to write %s surface: %w", f.Surface, err)
	}
	slog.Debug("rendered surface", "surface", f.Surface.String(), "image", f.Image, "shapes", len(sc.Shapes))
	return nil
}

// write encodes to a temporary file and renames it over the surface, so
// concurrent renders of one surface never leave a torn file.
func (p *PNGRenderer) write(img image.Image, s review.Surface) error {
	tmp, err := os.CreateTemp(p.Dir, "."+s.String()+"-*.png")
	if err != nil {
		return err
	}
	if err := imaging.Encode(tmp, img, imaging.PNG); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), p.Path(s)); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

func (p *PNGRenderer) load(ctx context.Context, coll models.Collection, name string) (image.Image, error) {
	key := string(coll) + "/" + name
	p.mu.Lock()
	if img, ok := p.cache[key]; ok {
		p.mu.Unlock()
		return img, nil
	}
	p.mu.Unlock()

	data, err := p.Images.ImageBytes(ctx, coll, name)
	if err != nil {
		return nil, err
	}
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.cache[key]; !ok {
		p.order = append(p.order, key)
		if len(p.order) > cacheSize {
			delete(p.cache, p.order[0])
			p.order = p.order[1:]
		}
	}
	p.cache[key] = img
	return img, nil
}

// Decode decodes image bytes, applying EXIF orientation.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Annotated draws img with its boxes on a surface of the given size.
func Annotated(img image.Image, ann models.Annotation, policy geometry.Policy, size geometry.Size) (*image.NRGBA, error) {
	native := geometry.Size{W: float64(ann.W), H: float64(ann.H)}
	if img != nil && (native.W <= 0 || native.H <= 0) {
		b := img.Bounds()
		native = geometry.Size{W: float64(b.Dx()), H: float64(b.Dy())}
	}
	if size.W <= 0 || size.H <= 0 {
		size = native
	}
	m, err := geometry.NewMapper(policy, size, native)
	if err != nil {
		return nil, err
	}
	return Draw(editor.BuildScene(m, ann.Boxes, -1), img), nil
}
