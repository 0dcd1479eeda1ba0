package pdf

import (
	"fmt"
	"image/color"
	"math"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/spherical/case-intake/internal/coords"
	"github.com/spherical/case-intake/internal/domain"
)

// noteSize is the side of a text-note icon, in points.
const noteSize = 20.0

// annotationFlagPrint makes annotations appear in printed output.
const annotationFlagPrint = 4

// Annotation is a marker placed on a page. Rect is in page space. For arrows
// the line runs from (X, Y) to (X+W, Y+H), so W and H may be negative; for
// text notes only (X, Y) is used.
type Annotation struct {
	Kind  domain.AnnotationKind
	Rect  coords.Rect
	Text  string
	Color color.RGBA
}

// AddAnnotation appends an annotation to a page. Content and crop are left
// untouched.
func (d *Document) AddAnnotation(page int, a Annotation) error {
	if !a.Kind.Valid() {
		return domain.InputError(fmt.Sprintf("unsupported annotation kind %q", a.Kind), domain.ErrUnknownKind).WithPage(page)
	}
	dict, inh, err := d.pageDict(page)
	if err != nil {
		return err
	}
	mb, err := d.mediaBox(page, dict, inh)
	if err != nil {
		return err
	}

	annot := annotationDict(a, mb)
	ref, err := d.ctx.IndRefForNewObject(annot)
	if err != nil {
		return domain.ProcessingError("add annotation", err).WithPage(page)
	}

	var annots types.Array
	if o, found := dict.Find("Annots"); found && o != nil {
		if annots, err = d.ctx.DereferenceArray(o); err != nil {
			return domain.ProcessingError("read annotations", err).WithPage(page)
		}
	}
	dict.Update("Annots", append(annots, *ref))
	return nil
}

// Annotations returns the subtype of every annotation on a page, in order.
func (d *Document) Annotations(page int) ([]string, error) {
	dict, _, err := d.pageDict(page)
	if err != nil {
		return nil, err
	}
	o, found := dict.Find("Annots")
	if !found || o == nil {
		return nil, nil
	}
	arr, err := d.ctx.DereferenceArray(o)
	if err != nil {
		return nil, domain.ProcessingError("read annotations", err).WithPage(page)
	}

	out := make([]string, 0, len(arr))
	for _, e := range arr {
		ad, err := d.ctx.DereferenceDict(e)
		if err != nil || ad == nil {
			continue
		}
		if st := ad.NameEntry("Subtype"); st != nil {
			out = append(out, *st)
		}
	}
	return out, nil
}

func annotationDict(a Annotation, mb coords.Box) types.Dict {
	c := a.Color
	if c == (color.RGBA{}) {
		c = domain.DefaultAnnotationColor
	}

	d := types.Dict(map[string]types.Object{
		"Type": types.Name("Annot"),
		"F":    types.Integer(annotationFlagPrint),
		"C":    types.NewNumberArray(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255),
	})
	if a.Text != "" {
		d.Insert("Contents", types.NewHexLiteral(textString(a.Text)))
	}

	border := types.Dict(map[string]types.Object{
		"W": types.Integer(2),
		"S": types.Name("S"),
	})

	switch a.Kind {
	case domain.AnnotationHighlight:
		b := normalized(a.Rect).UserSpace(mb)
		d.Insert("Subtype", types.Name("Highlight"))
		d.Insert("Rect", types.NewNumberArray(b.LLX, b.LLY, b.URX, b.URY))
		d.Insert("QuadPoints", types.NewNumberArray(
			b.LLX, b.URY, b.URX, b.URY, b.LLX, b.LLY, b.URX, b.LLY))

	case domain.AnnotationTextNote:
		b := coords.R(a.Rect.X, a.Rect.Y, noteSize, noteSize).UserSpace(mb)
		d.Insert("Subtype", types.Name("Text"))
		d.Insert("Rect", types.NewNumberArray(b.LLX, b.LLY, b.URX, b.URY))
		d.Insert("Name", types.Name("Comment"))
		d.Insert("Open", types.Boolean(false))

	case domain.AnnotationRectangle:
		b := normalized(a.Rect).UserSpace(mb)
		d.Insert("Subtype", types.Name("Square"))
		d.Insert("Rect", types.NewNumberArray(b.LLX, b.LLY, b.URX, b.URY))
		d.Insert("BS", border)

	case domain.AnnotationArrow:
		x1, y1 := coords.Point{X: a.Rect.X, Y: a.Rect.Y}.UserSpace(mb)
		x2, y2 := coords.Point{X: a.Rect.MaxX(), Y: a.Rect.MaxY()}.UserSpace(mb)
		// Pad the bounding box so the arrow head is not clipped.
		const pad = 6.0
		d.Insert("Subtype", types.Name("Line"))
		d.Insert("Rect", types.NewNumberArray(
			math.Min(x1, x2)-pad, math.Min(y1, y2)-pad, math.Max(x1, x2)+pad, math.Max(y1, y2)+pad))
		d.Insert("L", types.NewNumberArray(x1, y1, x2, y2))
		d.Insert("LE", types.Array{types.Name("None"), types.Name("ClosedArrow")})
		d.Insert("BS", border)
	}
	return d
}

// textString encodes s as a UTF-16BE PDF text string with byte order mark.
func textString(s string) []byte {
	out := []byte{0xFE, 0xFF}
	for _, u := range utf16.Encode([]rune(s)) {
		out = append(out, byte(u>>8), byte(u))
	}
	return out
}

// normalized flips negative extents so W and H are positive.
func normalized(r coords.Rect) coords.Rect {
	if r.W < 0 {
		r.X, r.W = r.X+r.W, -r.W
	}
	if r.H < 0 {
		r.Y, r.H = r.Y+r.H, -r.H
	}
	return r
}
