package pdf

import (
	"bytes"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/spherical/case-intake/internal/domain"
)

// AppendImagePage appends one page holding an encoded JPEG or PNG image at
// one point per pixel.
func (d *Document) AppendImagePage(encoded []byte) error {
	img, w, h, err := model.CreateImageResource(d.ctx.XRefTable, bytes.NewReader(encoded), false, false)
	if err != nil {
		return domain.ProcessingError("embed image", err)
	}
	if w <= 0 || h <= 0 {
		return domain.ProcessingError("embed image", errEmptyImage)
	}

	resources := types.Dict(map[string]types.Object{
		"XObject": types.Dict(map[string]types.Object{"Im0": *img}),
	})
	return d.appendPage(float64(w), float64(h), resources, imageContent(float64(w), float64(h)))
}
