// Package storage is the file-backed image library: catalog and intake
// collections, Pascal VOC annotations, the class list and projects.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/lehigh-university-libraries/reviewbox/internal/models"
)

// DefaultProject is the project used when none has been created.
const DefaultProject = "default"

// DefaultMaxImages caps every listing.
const DefaultMaxImages = 2500

var (
	ErrInvalidName    = errors.New("invalid image name")
	ErrInvalidProject = errors.New("project name must be alphanumeric with no spaces")
	ErrNotFound       = errors.New("image not found")
	ErrExists         = errors.New("already exists")
	ErrNoProjects     = errors.New("projects require a data root")
)

var projectName = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// allowedExts are the accepted image extensions, compared lowercased.
var allowedExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// Layout is where one project keeps its files.
type Layout struct {
	ImageDir         string
	AnnotationDir    string
	RawDir           string
	RawAnnotationDir string
	ExportsDir       string
}

// ProjectLayout returns the layout of a project directory.
func ProjectLayout(dir string) Layout {
	return Layout{
		ImageDir:         filepath.Join(dir, "images"),
		AnnotationDir:    filepath.Join(dir, "annotations"),
		RawDir:           filepath.Join(dir, "raw"),
		RawAnnotationDir: filepath.Join(dir, "raw", "annotations"),
		ExportsDir:       filepath.Join(dir, "exports"),
	}
}

func (l Layout) dirs() []string {
	return []string{l.ImageDir, l.AnnotationDir, l.RawDir, l.RawAnnotationDir, l.ExportsDir}
}

// Options configures a Library.
type Options struct {
	// DataRoot holds one subdirectory per project. When empty the library
	// serves a single project from Fixed.
	DataRoot  string
	Fixed     Layout
	MaxImages int
}

// Library serves the collections of the active project.
type Library struct {
	root      string
	maxImages int

	mu     sync.RWMutex
	active string
	layout Layout
}

// Open prepares the directories of the active project.
func Open(opts Options) (*Library, error) {
	l := &Library{root: opts.DataRoot, maxImages: opts.MaxImages, active: DefaultProject}
	if l.maxImages <= 0 {
		l.maxImages = DefaultMaxImages
	}
	if l.root == "" {
		l.layout = opts.Fixed
	} else {
		if err := os.MkdirAll(l.root, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data root: %w", err)
		}
		if p, err := l.readActive(); err == nil && projectName.MatchString(p) {
			l.active = p
		}
		l.layout = ProjectLayout(filepath.Join(l.root, l.active))
	}
	if l.layout.RawAnnotationDir == "" && l.layout.RawDir != "" {
		l.layout.RawAnnotationDir = filepath.Join(l.layout.RawDir, "annotations")
	}
	if err := ensureDirs(l.layout); err != nil {
		return nil, err
	}
	return l, nil
}

func ensureDirs(layout Layout) error {
	for _, d := range layout.dirs() {
		if d == "" {
			continue
		}
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", d, err)
		}
	}
	return nil
}

// Layout returns the active project's layout.
func (l *Library) Layout() Layout {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.layout
}

// ValidateName rejects identifiers with path separators or unsupported
// extensions.
func ValidateName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if !allowedExts[strings.ToLower(filepath.Ext(name))] {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// IsImage reports whether name has an accepted image extension.
func IsImage(name string) bool {
	return allowedExts[strings.ToLower(filepath.Ext(name))]
}

func (l *Library) dirsFor(coll models.Collection) (imageDir, annDir string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if coll == models.Raw {
		return l.layout.RawDir, l.layout.RawAnnotationDir
	}
	return l.layout.ImageDir, l.layout.AnnotationDir
}

// ImagePath returns the path of an existing image.
func (l *Library) ImagePath(coll models.Collection, name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	dir, _ := l.dirsFor(coll)
	p := filepath.Join(dir, name)
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", err
	}
	return p, nil
}

// ExportsDir returns the directory holding export archives.
func (l *Library) ExportsDir() string {
	return l.Layout().ExportsDir
}

// Projects lists project names and the active one.
func (l *Library) Projects() ([]string, string, error) {
	l.mu.RLock()
	active := l.active
	l.mu.RUnlock()
	if l.root == "" {
		return []string{DefaultProject}, active, nil
	}

	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read data root: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && projectName.MatchString(e.Name()) {
			out = append(out, e.Name())
		}
	}
	if !slices.Contains(out, active) {
		out = append(out, active)
	}
	sort.Strings(out)
	return out, active, nil
}

// SwitchProject makes an existing project active.
func (l *Library) SwitchProject(name string) error {
	if !projectName.MatchString(name) {
		return ErrInvalidProject
	}
	if l.root == "" {
		if name == DefaultProject {
			return nil
		}
		return ErrNoProjects
	}
	dir := filepath.Join(l.root, name)
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return fmt.Errorf("project %s: %w", name, os.ErrNotExist)
	}
	return l.activate(name)
}

// CreateProject creates and activates a project. When moveFrom names a
// project, its content is moved into the new one.
func (l *Library) CreateProject(name, moveFrom string) error {
	if !projectName.MatchString(name) {
		return ErrInvalidProject
	}
	if l.root == "" {
		return ErrNoProjects
	}
	dir := filepath.Join(l.root, name)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("project %s: %w", name, ErrExists)
	}

	if moveFrom != "" {
		if !projectName.MatchString(moveFrom) {
			return ErrInvalidProject
		}
		if err := os.Rename(filepath.Join(l.root, moveFrom), dir); err != nil {
			return fmt.Errorf("failed to move project %s: %w", moveFrom, err)
		}
	}
	if err := ensureDirs(ProjectLayout(dir)); err != nil {
		return err
	}
	return l.activate(name)
}

func (l *Library) activate(name string) error {
	layout := ProjectLayout(filepath.Join(l.root, name))
	if err := ensureDirs(layout); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(l.root, ".active"), []byte(name+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to record active project: %w", err)
	}
	l.mu.Lock()
	l.active = name
	l.layout = layout
	l.mu.Unlock()
	return nil
}

func (l *Library) readActive() (string, error) {
	data, err := os.ReadFile(filepath.Join(l.root, ".active"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
