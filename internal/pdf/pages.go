package pdf

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/spherical/case-intake/internal/coords"
	"github.com/spherical/case-intake/internal/domain"
)

// pageDict returns the dictionary of a page together with the attributes it
// inherits from the page tree.
func (d *Document) pageDict(page int) (types.Dict, *model.InheritedPageAttrs, error) {
	if err := d.checkPage(page); err != nil {
		return nil, nil, err
	}
	dict, _, inh, err := d.ctx.PageDict(page+1, false)
	if err != nil {
		return nil, nil, domain.ProcessingError("read page", err).WithPage(page)
	}
	if dict == nil {
		return nil, nil, domain.ProcessingError("read page", fmt.Errorf("page dictionary missing")).WithPage(page)
	}
	return dict, inh, nil
}

// MediaBox returns the page's MediaBox in user space.
func (d *Document) MediaBox(page int) (coords.Box, error) {
	dict, inh, err := d.pageDict(page)
	if err != nil {
		return coords.Box{}, err
	}
	return d.mediaBox(page, dict, inh)
}

func (d *Document) mediaBox(page int, dict types.Dict, inh *model.InheritedPageAttrs) (coords.Box, error) {
	box, err := d.boxEntry(dict, "MediaBox")
	if err != nil {
		return coords.Box{}, domain.ProcessingError("read MediaBox", err).WithPage(page)
	}
	if box != nil {
		return *box, nil
	}
	if inh != nil && inh.MediaBox != nil {
		return fromRectangle(inh.MediaBox), nil
	}
	return coords.Box{URX: Letter.Width, URY: Letter.Height}, nil
}

// Viewport returns the page-space crop region and display rotation of a page.
func (d *Document) Viewport(page int) (coords.Viewport, error) {
	dict, inh, err := d.pageDict(page)
	if err != nil {
		return coords.Viewport{}, err
	}
	mb, err := d.mediaBox(page, dict, inh)
	if err != nil {
		return coords.Viewport{}, err
	}

	crop := mb
	box, err := d.boxEntry(dict, "CropBox")
	if err != nil {
		return coords.Viewport{}, domain.ProcessingError("read CropBox", err).WithPage(page)
	}
	switch {
	case box != nil:
		crop = *box
	case inh != nil && inh.CropBox != nil:
		crop = fromRectangle(inh.CropBox)
	}

	full := coords.R(0, 0, mb.Width(), mb.Height())
	r := crop.Rect(mb).Intersect(full)
	if r.Empty() {
		r = full
	}

	rot, err := d.rotation(dict, inh)
	if err != nil {
		return coords.Viewport{}, domain.ProcessingError("read Rotate", err).WithPage(page)
	}
	return coords.Viewport{Crop: r, Rotation: rot}, nil
}

// Rotation returns the display rotation of a page in degrees clockwise.
func (d *Document) Rotation(page int) (int, error) {
	dict, inh, err := d.pageDict(page)
	if err != nil {
		return 0, err
	}
	rot, err := d.rotation(dict, inh)
	if err != nil {
		return 0, domain.ProcessingError("read Rotate", err).WithPage(page)
	}
	return rot, nil
}

func (d *Document) rotation(dict types.Dict, inh *model.InheritedPageAttrs) (int, error) {
	deg := 0
	if o, found := dict.Find("Rotate"); found && o != nil {
		v, err := d.number(o)
		if err != nil {
			return 0, err
		}
		deg = int(v)
	} else if inh != nil {
		deg = inh.Rotate
	}
	return coords.NormalizeRotation(deg)
}

// SetRotation sets the absolute display rotation of a page. deg must be a
// multiple of 90.
func (d *Document) SetRotation(page, deg int) error {
	norm, err := coords.NormalizeRotation(deg)
	if err != nil {
		return domain.InputError("invalid rotation", err).WithPage(page)
	}
	dict, _, err := d.pageDict(page)
	if err != nil {
		return err
	}
	dict.Update("Rotate", types.Integer(norm))
	return nil
}

// SetCropBox sets the visible region of a page to a page-space rectangle,
// clipped to the MediaBox.
func (d *Document) SetCropBox(page int, r coords.Rect) error {
	dict, inh, err := d.pageDict(page)
	if err != nil {
		return err
	}
	mb, err := d.mediaBox(page, dict, inh)
	if err != nil {
		return err
	}

	clipped := r.Intersect(coords.R(0, 0, mb.Width(), mb.Height()))
	if clipped.Empty() {
		return domain.InputError(fmt.Sprintf("crop rectangle %v does not overlap the page", r), nil).WithPage(page)
	}

	box := clipped.UserSpace(mb)
	dict.Update("CropBox", types.NewNumberArray(box.LLX, box.LLY, box.URX, box.URY))
	return nil
}

// ReplaceContent swaps the page for a single raster that fills its current
// visible area. The page loses its crop, rotation and annotations, which are
// already part of the rendered raster.
func (d *Document) ReplaceContent(page int, encoded []byte) error {
	vp, err := d.Viewport(page)
	if err != nil {
		return err
	}
	dict, _, err := d.pageDict(page)
	if err != nil {
		return err
	}

	img, _, _, err := model.CreateImageResource(d.ctx.XRefTable, bytes.NewReader(encoded), false, false)
	if err != nil {
		return domain.ProcessingError("embed raster", err).WithPage(page)
	}

	w, h := vp.Size()
	contents, err := d.newStream(imageContent(w, h))
	if err != nil {
		return domain.ProcessingError("write page content", err).WithPage(page)
	}

	for _, k := range []string{"CropBox", "BleedBox", "TrimBox", "ArtBox", "Annots", "Group"} {
		dict.Delete(k)
	}
	dict.Update("MediaBox", types.NewNumberArray(0, 0, w, h))
	dict.Update("Rotate", types.Integer(0))
	dict.Update("Resources", types.Dict(map[string]types.Object{
		"XObject": types.Dict(map[string]types.Object{"Im0": *img}),
	}))
	dict.Update("Contents", *contents)
	return nil
}

// appendPage adds a page at the end of the top-level page tree.
func (d *Document) appendPage(w, h float64, resources types.Dict, content []byte) error {
	pages, pagesRef, err := d.pagesDict()
	if err != nil {
		return err
	}

	contents, err := d.newStream(content)
	if err != nil {
		return domain.ProcessingError("write page content", err)
	}

	page := types.Dict(map[string]types.Object{
		"Type":      types.Name("Page"),
		"Parent":    *pagesRef,
		"MediaBox":  types.NewNumberArray(0, 0, w, h),
		"Resources": resources,
		"Contents":  *contents,
	})
	pageRef, err := d.ctx.IndRefForNewObject(page)
	if err != nil {
		return domain.ProcessingError("add page", err)
	}

	var kids types.Array
	if o, found := pages.Find("Kids"); found && o != nil {
		if kids, err = d.ctx.DereferenceArray(o); err != nil {
			return domain.ProcessingError("read page tree", err)
		}
	}
	count := 0
	if c := pages.IntEntry("Count"); c != nil {
		count = *c
	}

	pages.Update("Kids", append(kids, *pageRef))
	pages.Update("Count", types.Integer(count+1))
	d.ctx.PageCount++
	return nil
}

func (d *Document) newStream(content []byte) (*types.IndirectRef, error) {
	sd, err := d.ctx.NewStreamDictForBuf(content)
	if err != nil {
		return nil, err
	}
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return d.ctx.IndRefForNewObject(*sd)
}

func (d *Document) boxEntry(dict types.Dict, key string) (*coords.Box, error) {
	o, found := dict.Find(key)
	if !found || o == nil {
		return nil, nil
	}
	arr, err := d.ctx.DereferenceArray(o)
	if err != nil {
		return nil, err
	}
	if len(arr) != 4 {
		return nil, fmt.Errorf("%s has %d entries", key, len(arr))
	}
	var v [4]float64
	for i, e := range arr {
		if v[i], err = d.number(e); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
	}
	return &coords.Box{
		LLX: math.Min(v[0], v[2]),
		LLY: math.Min(v[1], v[3]),
		URX: math.Max(v[0], v[2]),
		URY: math.Max(v[1], v[3]),
	}, nil
}

func (d *Document) number(o types.Object) (float64, error) {
	o, err := d.ctx.Dereference(o)
	if err != nil {
		return 0, err
	}
	switch v := o.(type) {
	case types.Integer:
		return float64(v), nil
	case types.Float:
		return float64(v), nil
	}
	return 0, fmt.Errorf("expected number, got %T", o)
}

func fromRectangle(r *types.Rectangle) coords.Box {
	return coords.Box{
		LLX: math.Min(r.LL.X, r.UR.X),
		LLY: math.Min(r.LL.Y, r.UR.Y),
		URX: math.Max(r.LL.X, r.UR.X),
		URY: math.Max(r.LL.Y, r.UR.Y),
	}
}

// imageContent draws /Im0 scaled to w x h points.
func imageContent(w, h float64) []byte {
	return []byte(fmt.Sprintf("q %s 0 0 %s 0 0 cm /Im0 Do Q", num(w), num(h)))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
