// Package config provides configuration loading for the intake pipeline.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spherical/case-intake/internal/pdf"
)

// envPrefix namespaces every environment override.
const envPrefix = "CASE_INTAKE_"

// Config holds all configuration for the intake pipeline.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Render     RenderConfig     `yaml:"render"`
	Enhance    EnhanceConfig    `yaml:"enhance"`
	Deskew     DeskewConfig     `yaml:"deskew"`
	Filters    FilterConfig     `yaml:"filters"`
	Attachment AttachmentConfig `yaml:"attachment"`
	Merge      MergeConfig      `yaml:"merge"`
	Workers    WorkerConfig     `yaml:"workers"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// RenderConfig holds the render scale used by each rasterizing operation.
type RenderConfig struct {
	EnhanceScale   float64 `yaml:"enhance_scale"`
	CropScale      float64 `yaml:"crop_scale"`
	FilterScale    float64 `yaml:"filter_scale"`
	HighlightScale float64 `yaml:"highlight_scale"`
	PreviewScale   float64 `yaml:"preview_scale"`
}

// EnhanceConfig holds the image enhancement stage constants.
type EnhanceConfig struct {
	DenoiseStrength    float32 `yaml:"denoise_strength"`
	DenoiseTemplate    int     `yaml:"denoise_template"`
	DenoiseSearch      int     `yaml:"denoise_search"`
	CLAHEClip          float64 `yaml:"clahe_clip"`
	CLAHETile          int     `yaml:"clahe_tile"`
	DilateKernel       int     `yaml:"dilate_kernel"`
	MedianKernel       int     `yaml:"median_kernel"`
	ThresholdBlock     int     `yaml:"threshold_block"`
	ThresholdC         float32 `yaml:"threshold_c"`
	CloseKernel        int     `yaml:"close_kernel"`
	UpscaleFactor      float64 `yaml:"upscale_factor"`
	SmoothKernel       int     `yaml:"smooth_kernel"`
	// DeskewAfterEnhance straightens standalone photos after enhancement.
	// Page enhancement in an editor session always deskews.
	DeskewAfterEnhance bool `yaml:"deskew_after_enhance"`
}

// DeskewConfig holds line detection parameters for skew estimation.
type DeskewConfig struct {
	CannyLow       float32 `yaml:"canny_low"`
	CannyHigh      float32 `yaml:"canny_high"`
	HoughThreshold int     `yaml:"hough_threshold"`
	MinAngle       float64 `yaml:"min_angle"`
}

// FilterConfig holds the single-stage filter parameters.
type FilterConfig struct {
	ContrastClip    float64 `yaml:"contrast_clip"`
	ContrastTile    int     `yaml:"contrast_tile"`
	BrightnessDelta float64 `yaml:"brightness_delta"`
}

// AttachmentConfig holds proof image styling.
type AttachmentConfig struct {
	BorderWidth  int    `yaml:"border_width"`
	OutlineWidth int    `yaml:"outline_width"`
	Color        string `yaml:"color"` // #rrggbb
}

// MergeConfig holds intake merge settings.
type MergeConfig struct {
	JPEGQuality     int    `yaml:"jpeg_quality"`
	TempDir         string `yaml:"temp_dir"`
	OutputDir       string `yaml:"output_dir"`
	StrictFilenames bool   `yaml:"strict_filenames"`
	CoverPage       bool   `yaml:"cover_page"`
}

// WorkerConfig holds parallelism limits.
type WorkerConfig struct {
	MaxConcurrency int `yaml:"max_concurrency"` // 0 = number of CPU cores
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with the production defaults.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Render: RenderConfig{
			EnhanceScale:   3,
			CropScale:      2,
			FilterScale:    3,
			HighlightScale: 3,
			PreviewScale:   2,
		},
		Enhance: EnhanceConfig{
			DenoiseStrength:    10,
			DenoiseTemplate:    7,
			DenoiseSearch:      21,
			CLAHEClip:          2.0,
			CLAHETile:          8,
			DilateKernel:       7,
			MedianKernel:       21,
			ThresholdBlock:     11,
			ThresholdC:         2,
			CloseKernel:        2,
			UpscaleFactor:      2,
			SmoothKernel:       3,
			DeskewAfterEnhance: true,
		},
		Deskew: DeskewConfig{
			CannyLow:       50,
			CannyHigh:      150,
			HoughThreshold: 200,
			MinAngle:       0.5,
		},
		Filters: FilterConfig{
			ContrastClip:    3.0,
			ContrastTile:    8,
			BrightnessDelta: 30,
		},
		Attachment: AttachmentConfig{
			BorderWidth:  5,
			OutlineWidth: 5,
			Color:        "#ff0000",
		},
		Merge: MergeConfig{
			JPEGQuality: 90,
			TempDir:     os.TempDir(),
			OutputDir:   os.TempDir(),
		},
		Workers: WorkerConfig{
			MaxConcurrency: 0,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	scales := map[string]float64{
		"enhance_scale":   c.Render.EnhanceScale,
		"crop_scale":      c.Render.CropScale,
		"filter_scale":    c.Render.FilterScale,
		"highlight_scale": c.Render.HighlightScale,
		"preview_scale":   c.Render.PreviewScale,
	}
	for name, s := range scales {
		if s <= 0 {
			return fmt.Errorf("render.%s must be positive, got %v", name, s)
		}
	}

	odd := map[string]int{
		"denoise_template": c.Enhance.DenoiseTemplate,
		"denoise_search":   c.Enhance.DenoiseSearch,
		"median_kernel":    c.Enhance.MedianKernel,
		"threshold_block":  c.Enhance.ThresholdBlock,
		"smooth_kernel":    c.Enhance.SmoothKernel,
	}
	for name, k := range odd {
		if k < 3 || k%2 == 0 {
			return fmt.Errorf("enhance.%s must be an odd number >= 3, got %d", name, k)
		}
	}

	if c.Enhance.UpscaleFactor < 1 {
		return fmt.Errorf("enhance.upscale_factor must be >= 1, got %v", c.Enhance.UpscaleFactor)
	}

	if c.Enhance.CLAHETile < 1 || c.Filters.ContrastTile < 1 {
		return fmt.Errorf("clahe tile size must be positive")
	}

	if err := pdf.NewValidator().ValidateQuality(c.Merge.JPEGQuality); err != nil {
		return fmt.Errorf("merge.jpeg_quality: %w", err)
	}

	if _, err := ParseColor(c.Attachment.Color); err != nil {
		return fmt.Errorf("attachment.color: %w", err)
	}

	if c.Attachment.BorderWidth < 0 || c.Attachment.OutlineWidth < 1 {
		return fmt.Errorf("attachment widths out of range")
	}

	if c.Workers.MaxConcurrency < 0 {
		return fmt.Errorf("workers.max_concurrency must be >= 0")
	}

	return nil
}

// Concurrency returns the effective worker limit, never above the CPU count.
func (c *Config) Concurrency() int {
	n := runtime.NumCPU()
	if c.Workers.MaxConcurrency > 0 && c.Workers.MaxConcurrency < n {
		return c.Workers.MaxConcurrency
	}
	return n
}

// ParseColor parses a #rrggbb hex color.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	if v := os.Getenv(envPrefix + "LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	if v := os.Getenv(envPrefix + "TEMP_DIR"); v != "" {
		cfg.Merge.TempDir = v
	}

	if v := os.Getenv(envPrefix + "OUTPUT_DIR"); v != "" {
		cfg.Merge.OutputDir = v
	}

	if v := os.Getenv(envPrefix + "JPEG_QUALITY"); v != "" {
		if q, err := strconv.Atoi(v); err == nil {
			cfg.Merge.JPEGQuality = q
		}
	}

	if v := os.Getenv(envPrefix + "STRICT_FILENAMES"); v != "" {
		cfg.Merge.StrictFilenames = v == "true" || v == "1"
	}

	if v := os.Getenv(envPrefix + "COVER_PAGE"); v != "" {
		cfg.Merge.CoverPage = v == "true" || v == "1"
	}

	if v := os.Getenv(envPrefix + "UPSCALE_FACTOR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Enhance.UpscaleFactor = f
		}
	}

	if v := os.Getenv(envPrefix + "MAX_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workers.MaxConcurrency = n
		}
	}
}

// ResolveRelativePath resolves targetPath against the directory of the file
// it was read from.
func ResolveRelativePath(configPath, targetPath string) string {
	if filepath.IsAbs(targetPath) || configPath == "" {
		return targetPath
	}
	return filepath.Join(filepath.Dir(configPath), targetPath)
}
