// Package config loads settings from an optional YAML file and RB_*
// environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/reviewbox/internal/geometry"
	"github.com/lehigh-university-libraries/reviewbox/internal/review"
	"github.com/lehigh-university-libraries/reviewbox/internal/storage"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	ImageDir      string `yaml:"image_dir"`
	RawDir        string `yaml:"raw_dir"`
	AnnotationDir string `yaml:"annotation_dir"`
	ExportsDir    string `yaml:"exports_dir"`
	DataRoot      string `yaml:"data_root"`

	PageSize  int    `yaml:"page_size"`
	MaxImages int    `yaml:"max_images"`
	Port      string `yaml:"port"`
	ServerURL string `yaml:"server_url"`

	StateFile       string `yaml:"state_file"`
	RedisAddr       string `yaml:"redis_addr"`
	BulkConcurrency int    `yaml:"bulk_concurrency"`
	LogLevel        string `yaml:"log_level"`

	Review ReviewConfig `yaml:"review"`
}

// ReviewConfig overrides the flow presets. Unset booleans keep the preset.
type ReviewConfig struct {
	Fit          string `yaml:"fit"`
	RequireLabel *bool  `yaml:"require_label"`
	ConfirmNull  *bool  `yaml:"confirm_null"`
	AllowNull    *bool  `yaml:"allow_null"`
	MinBoxExtent int    `yaml:"min_box_extent"`
	SurfaceSize  int    `yaml:"surface_size"`
	NeighborSize int    `yaml:"neighbor_size"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		ImageDir:        "./images",
		RawDir:          "./raw",
		AnnotationDir:   "./annotations",
		ExportsDir:      "./exports",
		PageSize:        200,
		MaxImages:       storage.DefaultMaxImages,
		Port:            "8000",
		ServerURL:       "http://localhost:8000",
		StateFile:       ".reviewbox-state.yaml",
		BulkConcurrency: 8,
		LogLevel:        "info",
		Review: ReviewConfig{
			Fit:          "letterbox",
			MinBoxExtent: 5,
			SurfaceSize:  int(review.DefaultSurface.W),
			NeighborSize: int(review.DefaultNeighbor.W),
		},
	}
}

// Load reads defaults, then path (when set), then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from RB_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	// PORT comes before RB_PORT so the prefixed name wins.
	strs := []struct {
		key string
		dst *string
	}{
		{"RB_IMAGE_DIR", &c.ImageDir},
		{"RB_RAW_DIR", &c.RawDir},
		{"RB_ANNOTATION_DIR", &c.AnnotationDir},
		{"RB_EXPORTS_DIR", &c.ExportsDir},
		{"RB_DATA_ROOT", &c.DataRoot},
		{"PORT", &c.Port},
		{"RB_PORT", &c.Port},
		{"RB_SERVER_URL", &c.ServerURL},
		{"RB_STATE_FILE", &c.StateFile},
		{"RB_REDIS_ADDR", &c.RedisAddr},
		{"RB_LOG_LEVEL", &c.LogLevel},
		{"RB_FIT", &c.Review.Fit},
	}
	for _, e := range strs {
		if v, ok := lookup(e.key); ok && v != "" {
			*e.dst = v
		}
	}

	ints := map[string]*int{
		"RB_PAGE_SIZE":        &c.PageSize,
		"RB_MAX_IMAGES":       &c.MaxImages,
		"RB_BULK_CONCURRENCY": &c.BulkConcurrency,
		"RB_MIN_BOX_EXTENT":   &c.Review.MinBoxExtent,
		"RB_SURFACE_SIZE":     &c.Review.SurfaceSize,
		"RB_NEIGHBOR_SIZE":    &c.Review.NeighborSize,
	}
	for k, p := range ints {
		v, ok := lookup(k)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", k, err)
		}
		*p = n
	}

	bools := map[string]**bool{
		"RB_REQUIRE_LABEL": &c.Review.RequireLabel,
		"RB_CONFIRM_NULL":  &c.Review.ConfirmNull,
		"RB_ALLOW_NULL":    &c.Review.AllowNull,
	}
	for k, p := range bools {
		v, ok := lookup(k)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s must be a boolean: %w", k, err)
		}
		*p = &b
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.PageSize < 1 {
		return fmt.Errorf("page_size must be positive")
	}
	if c.MaxImages < 1 {
		return fmt.Errorf("max_images must be positive")
	}
	if c.BulkConcurrency < 1 {
		return fmt.Errorf("bulk_concurrency must be positive")
	}
	if p, err := strconv.Atoi(c.Port); err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %q", c.Port)
	}
	if _, err := geometry.ParsePolicy(c.Review.Fit); err != nil {
		return fmt.Errorf("review.fit: %w", err)
	}
	if c.Review.MinBoxExtent < 1 {
		return fmt.Errorf("review.min_box_extent must be positive")
	}
	if c.Review.SurfaceSize < 16 || c.Review.NeighborSize < 16 {
		return fmt.Errorf("review surface sizes must be at least 16 pixels")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.DataRoot == "" && (c.ImageDir == "" || c.AnnotationDir == "") {
		return fmt.Errorf("image_dir and annotation_dir are required without data_root")
	}
	return nil
}

// ParseLevel parses debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		return 0, fmt.Errorf("invalid log level %q (supported: debug, info, warn, error)", s)
	}
	return l, nil
}

// StorageOptions returns the library options for the configured layout.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		DataRoot: c.DataRoot,
		Fixed: storage.Layout{
			ImageDir:      c.ImageDir,
			AnnotationDir: c.AnnotationDir,
			RawDir:        c.RawDir,
			ExportsDir:    c.ExportsDir,
		},
		MaxImages: c.MaxImages,
	}
}

// ReviewConfig returns the preset of flow with the configured overrides.
func (c *Config) ReviewConfig(flow review.Flow) (review.Config, error) {
	rc, err := review.Preset(flow)
	if err != nil {
		return review.Config{}, err
	}
	if rc.Fit, err = geometry.ParsePolicy(c.Review.Fit); err != nil {
		return review.Config{}, err
	}
	if c.Review.RequireLabel != nil {
		rc.RequireLabel = *c.Review.RequireLabel
	}
	if c.Review.ConfirmNull != nil {
		rc.ConfirmNull = *c.Review.ConfirmNull
	}
	if c.Review.AllowNull != nil {
		rc.AllowNull = *c.Review.AllowNull
	}
	rc.MinExtent = float64(c.Review.MinBoxExtent)
	rc.Surface = geometry.Size{W: float64(c.Review.SurfaceSize), H: float64(c.Review.SurfaceSize)}
	rc.Neighbor = geometry.Size{W: float64(c.Review.NeighborSize), H: float64(c.Review.NeighborSize)}
	return rc, nil
}
