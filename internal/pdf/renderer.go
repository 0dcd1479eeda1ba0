package pdf

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"

	"github.com/spherical/case-intake/internal/coords"
	"github.com/spherical/case-intake/internal/domain"
)

// Renderer rasterizes PDF pages using MuPDF. Rendered rasters cover the
// visible area of the page (crop and rotation applied) at the requested
// scale.
type Renderer struct{}

// NewRenderer creates a new renderer instance
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render rasterizes one page of a serialized PDF.
func (r *Renderer) Render(data []byte, page int, scale coords.Scale) (image.Image, error) {
	if err := NewValidator().ValidateScale(scale); err != nil {
		return nil, err
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, domain.ProcessingError("Failed to open PDF for rendering", err)
	}
	defer doc.Close()

	if page < 0 || page >= doc.NumPage() {
		return nil, domain.IndexError(page, doc.NumPage())
	}

	img, err := doc.ImageDPI(page, scale.DPI())
	if err != nil {
		return nil, domain.ProcessingError(fmt.Sprintf("Failed to render page at %.1fx", float64(scale)), err).WithPage(page)
	}
	return img, nil
}

// PageCount returns the number of pages MuPDF sees in data.
func (r *Renderer) PageCount(data []byte) (int, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return 0, domain.ProcessingError("Failed to open PDF for rendering", err)
	}
	defer doc.Close()
	return doc.NumPage(), nil
}
