// Package attachment produces the proof images sent alongside case
// correspondence: a bordered close-up of one region, or a whole-page preview
// with areas outlined.
package attachment

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/spherical/case-intake/internal/config"
	"github.com/spherical/case-intake/internal/coords"
	"github.com/spherical/case-intake/internal/domain"
	"github.com/spherical/case-intake/internal/observability"
	"github.com/spherical/case-intake/internal/pdf"
	"github.com/spherical/case-intake/internal/raster"
)

// Extractor renders proof images from a serialized PDF.
type Extractor struct {
	cfg      config.AttachmentConfig
	render   config.RenderConfig
	color    color.RGBA
	renderer *pdf.Renderer
	logger   *observability.Logger
}

// NewExtractor creates an extractor. A nil cfg uses the defaults.
func NewExtractor(cfg *config.Config, logger *observability.Logger) (*Extractor, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	c, err := config.ParseColor(cfg.Attachment.Color)
	if err != nil {
		return nil, domain.InputError("invalid attachment color", err)
	}
	return &Extractor{
		cfg:      cfg.Attachment,
		render:   cfg.Render,
		color:    c,
		renderer: pdf.NewRenderer(),
		logger:   observability.OrNop(logger).WithOperation("attachment"),
	}, nil
}

// HighlightImage renders region, given in page space, at the highlight
// scale and frames the whole output with a solid border. Only the region is
// rasterized.
func (e *Extractor) HighlightImage(data []byte, page int, region coords.Rect) (image.Image, error) {
	scale := coords.Scale(e.render.HighlightScale)

	doc, err := pdf.Load(data)
	if err != nil {
		return nil, err
	}
	vp, err := doc.Viewport(page)
	if err != nil {
		return nil, err
	}
	clip := region.Intersect(vp.Crop)
	if clip.Empty() {
		return nil, domain.InputError(fmt.Sprintf("region %v is outside the visible page", region), nil).WithPage(page)
	}

	// go-fitz has no clipped render, so the crop box of a scratch copy is
	// narrowed to the region instead.
	if err := doc.SetCropBox(page, clip); err != nil {
		return nil, err
	}
	clipped, err := doc.Bytes()
	if err != nil {
		return nil, err
	}

	out, err := e.renderMat(clipped, page, scale)
	if err != nil {
		return nil, err
	}
	defer out.Close()

	raster.DrawBorder(&out, e.cfg.BorderWidth, e.color)

	e.logger.Debug().Int("page", page).Str("region", region.String()).Int("width", out.Cols()).Int("height", out.Rows()).Msg("highlight image created")
	return toImage(out, page)
}

// PagePreview renders the whole visible page at the preview scale with each
// page-space area outlined.
func (e *Extractor) PagePreview(data []byte, page int, areas ...coords.Rect) (image.Image, error) {
	scale := coords.Scale(e.render.PreviewScale)

	vp, err := viewport(data, page)
	if err != nil {
		return nil, err
	}

	m, err := e.renderMat(data, page, scale)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	for _, a := range areas {
		r := vp.RectFromPage(a).Pixels(scale)
		raster.DrawOutline(&m, r, e.cfg.OutlineWidth, e.color)
	}

	e.logger.Debug().Int("page", page).Int("areas", len(areas)).Msg("page preview created")
	return toImage(m, page)
}

func (e *Extractor) renderMat(data []byte, page int, scale coords.Scale) (gocv.Mat, error) {
	img, err := e.renderer.Render(data, page, scale)
	if err != nil {
		return gocv.NewMat(), err
	}
	m, err := raster.FromImage(img)
	if err != nil {
		return gocv.NewMat(), domain.ProcessingError("convert rendered page", err).WithPage(page)
	}
	return m, nil
}

func viewport(data []byte, page int) (coords.Viewport, error) {
	doc, err := pdf.Load(data)
	if err != nil {
		return coords.Viewport{}, err
	}
	return doc.Viewport(page)
}

func toImage(m gocv.Mat, page int) (image.Image, error) {
	img, err := raster.ToImage(m)
	if err != nil {
		return nil, domain.ProcessingError("convert proof image", err).WithPage(page)
	}
	return img, nil
}

// SavePNG writes img to path as PNG.
func SavePNG(img image.Image, path string) error {
	if err := pdf.NewValidator().ValidateOutputPath(path); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return domain.ResourceError("create image file", err).WithFile(path)
	}
	name := f.Name()

	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(name)
		return domain.ProcessingError("encode png", err).WithFile(path)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return domain.ResourceError("write image file", err).WithFile(path)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return domain.ResourceError("move image file into place", err).WithFile(path)
	}
	return nil
}
