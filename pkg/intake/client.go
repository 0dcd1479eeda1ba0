// Package intake is the public entry point for the case intake pipeline:
// merging uploads into one PDF, editing pages, enhancing photos and
// producing proof images.
package intake

import (
	"context"
	"image"
	"os"

	"github.com/joho/godotenv"

	"github.com/spherical/case-intake/internal/attachment"
	"github.com/spherical/case-intake/internal/batch"
	"github.com/spherical/case-intake/internal/config"
	"github.com/spherical/case-intake/internal/coords"
	"github.com/spherical/case-intake/internal/domain"
	"github.com/spherical/case-intake/internal/editor"
	"github.com/spherical/case-intake/internal/enhance"
	"github.com/spherical/case-intake/internal/geometry"
	"github.com/spherical/case-intake/internal/merge"
	"github.com/spherical/case-intake/internal/observability"
	"github.com/spherical/case-intake/internal/pdf"
	"github.com/spherical/case-intake/internal/raster"
)

// Re-export domain types for the public API
type (
	Config            = config.Config
	UploadedFile      = domain.UploadedFile
	Error             = domain.DomainError
	ErrorType         = domain.ErrorType
	EnhancementResult = domain.EnhancementResult
	LogEntry          = domain.ModificationLogEntry
	AnnotationKind    = domain.AnnotationKind
	FilterKind        = domain.FilterKind
	Rect              = coords.Rect
	Scale             = coords.Scale
)

// Re-export processing types
type (
	MergeOptions = merge.Options
	MergeResult  = merge.Result
	Cover        = merge.Cover
	PageSource   = merge.PageSource
	Session      = editor.Session
	Annotation   = editor.Annotation
	Extractor    = attachment.Extractor
)

// Annotation and filter kinds
const (
	AnnotationHighlight = domain.AnnotationHighlight
	AnnotationTextNote  = domain.AnnotationTextNote
	AnnotationRectangle = domain.AnnotationRectangle
	AnnotationArrow     = domain.AnnotationArrow

	FilterGrayscale  = domain.FilterGrayscale
	FilterContrast   = domain.FilterContrast
	FilterBrightness = domain.FilterBrightness
	FilterSharpen    = domain.FilterSharpen
)

// Sentinel errors, for use with errors.Is.
var (
	ErrEmptyInput         = domain.ErrEmptyInput
	ErrIndexOutOfRange    = domain.ErrIndexOutOfRange
	ErrInvalidPermutation = domain.ErrInvalidPermutation
	ErrSessionClosed      = domain.ErrSessionClosed
	ErrSessionBusy        = domain.ErrSessionBusy
	ErrMissingFilename    = domain.ErrMissingFilename
)

// CoverSource marks the cover page in MergeResult.Pages.
const CoverSource = merge.CoverSource

// ConfigEnv names the environment variable holding an optional YAML config
// path.
const ConfigEnv = "CASE_INTAKE_CONFIG"

// Case is one set of uploads merged into one document by MergeBatch.
type Case struct {
	Files   []UploadedFile
	Options MergeOptions
}

// CaseResult is the outcome of one Case.
type CaseResult struct {
	Result *MergeResult
	Err    error
}

// ImageResult is the outcome of one image passed to EnhanceImages.
type ImageResult struct {
	Result *EnhancementResult
	Err    error
}

// Client is the main entry point for the intake library
type Client struct {
	cfg         *config.Config
	logger      *observability.Logger
	merger      *merge.Service
	registry    *editor.Registry
	pipeline    *enhance.Pipeline
	attachments *attachment.Extractor
	workers     *batch.Processor
}

// NewClient creates a client from the environment. A .env file in the
// working directory is loaded first when present.
func NewClient() (*Client, error) {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	cfg, err := config.Load(os.Getenv(ConfigEnv))
	if err != nil {
		return nil, domain.InputError("load configuration", err)
	}
	return NewClientWithConfig(cfg)
}

// NewClientWithConfig creates a client with an explicit configuration. A nil
// cfg uses the defaults.
func NewClientWithConfig(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, domain.InputError("invalid configuration", err)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "case-intake",
	})

	attachments, err := attachment.NewExtractor(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:         cfg,
		logger:      logger,
		merger:      merge.NewService(cfg.Merge, logger),
		registry:    editor.NewRegistry(cfg, logger),
		pipeline:    enhance.New(cfg.Enhance),
		attachments: attachments,
		workers:     batch.NewProcessor(cfg.Concurrency(), logger),
	}, nil
}

// Config returns the client's configuration.
func (c *Client) Config() *Config {
	return c.cfg
}

// Merge converts files, in order, into one PDF.
func (c *Client) Merge(ctx context.Context, files []UploadedFile, opts MergeOptions) (*MergeResult, error) {
	return c.merger.Merge(ctx, files, opts)
}

// MergeBatch merges independent cases in parallel. Every case gets its own
// outcome; one failing case does not affect the others.
func (c *Client) MergeBatch(ctx context.Context, cases []Case) []CaseResult {
	results := batch.Each(ctx, c.workers, cases, func(ctx context.Context, cs Case) (*MergeResult, error) {
		return c.merger.Merge(ctx, cs.Files, cs.Options)
	})

	out := make([]CaseResult, len(results))
	for i, r := range results {
		out[i] = CaseResult{Result: r.Value, Err: r.Err}
	}
	return out
}

// OpenEditor starts an exclusive editing session on the PDF at path.
func (c *Client) OpenEditor(path string) (*Session, error) {
	return c.registry.Open(path)
}

// EnhanceImage runs an encoded photo through the enhancement pipeline and,
// when configured, straightens it.
func (c *Client) EnhanceImage(data []byte) (*EnhancementResult, error) {
	src, err := raster.Decode(data)
	if err != nil {
		return nil, domain.ProcessingError("decode image", err)
	}
	defer src.Close()

	out := c.pipeline.EnhanceMat(src)
	var angle float64
	if c.cfg.Enhance.DeskewAfterEnhance {
		straight, a := geometry.Deskew(out, c.cfg.Deskew)
		out.Close()
		out, angle = straight, a
	}
	defer out.Close()

	img, err := raster.ToImage(out)
	if err != nil {
		return nil, domain.ProcessingError("convert enhanced image", err)
	}
	return &EnhancementResult{Raster: img, DeskewAngle: angle}, nil
}

// EnhanceImages enhances photos in parallel, at most Config.Concurrency()
// at a time. Results are in input order.
func (c *Client) EnhanceImages(ctx context.Context, images [][]byte) []ImageResult {
	results := batch.Each(ctx, c.workers, images, func(_ context.Context, data []byte) (*EnhancementResult, error) {
		return c.EnhanceImage(data)
	})

	out := make([]ImageResult, len(results))
	for i, r := range results {
		out[i] = ImageResult{Result: r.Value, Err: r.Err}
	}
	return out
}

// Attachments returns the proof image extractor.
func (c *Client) Attachments() *Extractor {
	return c.attachments
}

// PreviewPages renders every page of a serialized PDF at preview scale.
// Pages render in parallel; the first failure aborts the rest.
func (c *Client) PreviewPages(ctx context.Context, data []byte) ([]image.Image, error) {
	doc, err := pdf.Load(data)
	if err != nil {
		return nil, err
	}
	pages := make([]int, doc.PageCount())
	for i := range pages {
		pages[i] = i
	}
	return batch.Map(ctx, c.workers, pages, func(_ context.Context, page int) (image.Image, error) {
		return c.attachments.PagePreview(data, page)
	})
}

// Close discards every editing session left open.
func (c *Client) Close() error {
	c.registry.CloseAll()
	return nil
}
