// Package coords holds the coordinate spaces shared by every rasterizing
// operation.
//
// Page space is measured in PDF points with a top-left origin relative to the
// page's MediaBox, and ignores the page's display rotation. Visible space is
// what a viewer shows: the crop region after rotation, also with a top-left
// origin. Pixel space is visible space multiplied by a render Scale.
package coords

import (
	"fmt"
	"image"
	"math"
)

// PointsPerInch is the PDF user unit.
const PointsPerInch = 72.0

// Scale is the number of raster pixels per PDF point.
type Scale float64

// DPI returns the render resolution equivalent to s.
func (s Scale) DPI() float64 {
	return PointsPerInch * float64(s)
}

// Valid reports whether s can be used for rendering.
func (s Scale) Valid() bool {
	return s > 0 && !math.IsInf(float64(s), 0) && !math.IsNaN(float64(s))
}

// Point is a position in page or visible space.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle with a top-left origin.
type Rect struct {
	X, Y, W, H float64
}

// R builds a Rect from its corner and size.
func R(x, y, w, h float64) Rect {
	return Rect{X: x, Y: y, W: w, H: h}
}

// String implements fmt.Stringer.
func (r Rect) String() string {
	return fmt.Sprintf("(%.2f,%.2f %.2fx%.2f)", r.X, r.Y, r.W, r.H)
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// MaxX returns the right edge.
func (r Rect) MaxX() float64 { return r.X + r.W }

// MaxY returns the bottom edge.
func (r Rect) MaxY() float64 { return r.Y + r.H }

// Scale multiplies every component by s.
func (r Rect) Scale(s Scale) Rect {
	f := float64(s)
	return Rect{X: r.X * f, Y: r.Y * f, W: r.W * f, H: r.H * f}
}

// Intersect returns the overlap of r and o, or the zero Rect.
func (r Rect) Intersect(o Rect) Rect {
	x0 := math.Max(r.X, o.X)
	y0 := math.Max(r.Y, o.Y)
	x1 := math.Min(r.MaxX(), o.MaxX())
	y1 := math.Min(r.MaxY(), o.MaxY())
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Contains reports whether o lies entirely inside r, with tolerance eps.
func (r Rect) Contains(o Rect, eps float64) bool {
	return o.X >= r.X-eps && o.Y >= r.Y-eps &&
		o.MaxX() <= r.MaxX()+eps && o.MaxY() <= r.MaxY()+eps
}

// Pixels converts r to the pixel rectangle covering it at scale s.
func (r Rect) Pixels(s Scale) image.Rectangle {
	f := float64(s)
	return image.Rect(
		int(math.Floor(r.X*f)),
		int(math.Floor(r.Y*f)),
		int(math.Ceil(r.MaxX()*f)),
		int(math.Ceil(r.MaxY()*f)),
	)
}

// PixelRect is a rectangle measured on a raster rendered at Scale.
type PixelRect struct {
	Rect  image.Rectangle
	Scale Scale
}

// Visible divides the pixel rectangle by its render scale.
func (p PixelRect) Visible() Rect {
	f := float64(p.Scale)
	return Rect{
		X: float64(p.Rect.Min.X) / f,
		Y: float64(p.Rect.Min.Y) / f,
		W: float64(p.Rect.Dx()) / f,
		H: float64(p.Rect.Dy()) / f,
	}
}

// ToPage converts a pixel rectangle measured on a render of vp into page
// space. This is the only path from pixels to stored page state.
func (p PixelRect) ToPage(vp Viewport) Rect {
	return vp.RectToPage(p.Visible())
}

// NormalizeRotation folds a multiple of 90 degrees into [0, 360).
func NormalizeRotation(deg int) (int, error) {
	if deg%90 != 0 {
		return 0, fmt.Errorf("rotation %d is not a multiple of 90", deg)
	}
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg, nil
}

// Viewport is the visible window onto a page: a page-space crop region
// displayed with a clockwise rotation.
type Viewport struct {
	Crop     Rect
	Rotation int
}

// Size returns the visible width and height in points.
func (v Viewport) Size() (w, h float64) {
	if v.Rotation == 90 || v.Rotation == 270 {
		return v.Crop.H, v.Crop.W
	}
	return v.Crop.W, v.Crop.H
}

// ToPage maps a visible-space point to page space.
func (v Viewport) ToPage(p Point) Point {
	W, H := v.Crop.W, v.Crop.H
	var x, y float64
	switch v.Rotation {
	case 90:
		x, y = p.Y, H-p.X
	case 180:
		x, y = W-p.X, H-p.Y
	case 270:
		x, y = W-p.Y, p.X
	default:
		x, y = p.X, p.Y
	}
	return Point{X: x + v.Crop.X, Y: y + v.Crop.Y}
}

// FromPage maps a page-space point to visible space.
func (v Viewport) FromPage(p Point) Point {
	W, H := v.Crop.W, v.Crop.H
	x, y := p.X-v.Crop.X, p.Y-v.Crop.Y
	switch v.Rotation {
	case 90:
		return Point{X: H - y, Y: x}
	case 180:
		return Point{X: W - x, Y: H - y}
	case 270:
		return Point{X: y, Y: W - x}
	}
	return Point{X: x, Y: y}
}

// RectToPage maps a visible-space rectangle to page space.
func (v Viewport) RectToPage(r Rect) Rect {
	return bounds(v.ToPage(Point{r.X, r.Y}), v.ToPage(Point{r.MaxX(), r.MaxY()}))
}

// RectFromPage maps a page-space rectangle to visible space.
func (v Viewport) RectFromPage(r Rect) Rect {
	return bounds(v.FromPage(Point{r.X, r.Y}), v.FromPage(Point{r.MaxX(), r.MaxY()}))
}

func bounds(a, b Point) Rect {
	x0, x1 := math.Min(a.X, b.X), math.Max(a.X, b.X)
	y0, y1 := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Box is a rectangle in PDF user space (bottom-left origin), as stored in
// MediaBox and CropBox entries.
type Box struct {
	LLX, LLY, URX, URY float64
}

// Width returns the box width.
func (b Box) Width() float64 { return b.URX - b.LLX }

// Height returns the box height.
func (b Box) Height() float64 { return b.URY - b.LLY }

// Rect returns the page-space rectangle of b relative to mediaBox.
func (b Box) Rect(mediaBox Box) Rect {
	return Rect{
		X: b.LLX - mediaBox.LLX,
		Y: mediaBox.URY - b.URY,
		W: b.Width(),
		H: b.Height(),
	}
}

// UserSpace converts a page-space rectangle to PDF user space.
func (r Rect) UserSpace(mediaBox Box) Box {
	llx := mediaBox.LLX + r.X
	ury := mediaBox.URY - r.Y
	return Box{LLX: llx, LLY: ury - r.H, URX: llx + r.W, URY: ury}
}

// UserSpace converts a page-space point to PDF user space.
func (p Point) UserSpace(mediaBox Box) (x, y float64) {
	return mediaBox.LLX + p.X, mediaBox.URY - p.Y
}
