// Package raster converts between Go images and OpenCV matrices and holds
// the drawing helpers used for proof images.
//
// Every function returns a newly allocated Mat; callers own it and must
// Close it.
package raster

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// FromImage converts img to a 3-channel BGR Mat.
func FromImage(img image.Image) (gocv.Mat, error) {
	if img == nil || img.Bounds().Empty() {
		return gocv.NewMat(), fmt.Errorf("empty image")
	}
	m, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("convert image to mat: %w", err)
	}
	return m, nil
}

// ToImage converts m back to a Go image. Single-channel mats become
// *image.Gray, 3-channel mats become *image.RGBA.
func ToImage(m gocv.Mat) (image.Image, error) {
	if m.Empty() {
		return nil, fmt.Errorf("empty mat")
	}
	img, err := m.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert mat to image: %w", err)
	}
	return img, nil
}

// EncodePNG encodes m losslessly.
func EncodePNG(m gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.PNGFileExt, m)
	if err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	defer buf.Close()

	// GetBytes aliases native memory, copy before Close.
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// Decode decodes an encoded image into a 3-channel BGR Mat.
func Decode(data []byte) (gocv.Mat, error) {
	m, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("decode image: %w", err)
	}
	if m.Empty() {
		m.Close()
		return gocv.NewMat(), fmt.Errorf("decode image: unrecognised data")
	}
	return m, nil
}

// Gray returns a single-channel copy of m.
func Gray(m gocv.Mat) gocv.Mat {
	out := gocv.NewMat()
	switch m.Channels() {
	case 1:
		m.CopyTo(&out)
	case 4:
		gocv.CvtColor(m, &out, gocv.ColorBGRAToGray)
	default:
		gocv.CvtColor(m, &out, gocv.ColorBGRToGray)
	}
	return out
}

// BGR returns a 3-channel copy of m.
func BGR(m gocv.Mat) gocv.Mat {
	out := gocv.NewMat()
	switch m.Channels() {
	case 1:
		gocv.CvtColor(m, &out, gocv.ColorGrayToBGR)
	case 4:
		gocv.CvtColor(m, &out, gocv.ColorBGRAToBGR)
	default:
		m.CopyTo(&out)
	}
	return out
}

// Bounds returns the full pixel rectangle of m.
func Bounds(m gocv.Mat) image.Rectangle {
	return image.Rect(0, 0, m.Cols(), m.Rows())
}

// Crop returns a copy of the part of m inside r, clamped to m's bounds.
func Crop(m gocv.Mat, r image.Rectangle) (gocv.Mat, error) {
	r = r.Intersect(Bounds(m))
	if r.Empty() {
		return gocv.NewMat(), fmt.Errorf("crop region %v outside %dx%d raster", r, m.Cols(), m.Rows())
	}
	region := m.Region(r)
	defer region.Close()
	return region.Clone(), nil
}

// DrawBorder paints a solid frame of the given width along the inside edge
// of m.
func DrawBorder(m *gocv.Mat, width int, c color.RGBA) {
	if width <= 0 {
		return
	}
	w, h := m.Cols(), m.Rows()
	strips := []image.Rectangle{
		image.Rect(0, 0, w, width),
		image.Rect(0, h-width, w, h),
		image.Rect(0, 0, width, h),
		image.Rect(w-width, 0, w, h),
	}
	for _, s := range strips {
		gocv.Rectangle(m, s.Intersect(Bounds(*m)), c, -1)
	}
}

// DrawOutline strokes r on m with the given line width.
func DrawOutline(m *gocv.Mat, r image.Rectangle, width int, c color.RGBA) {
	if width < 1 {
		width = 1
	}
	gocv.Rectangle(m, r, c, width)
}
