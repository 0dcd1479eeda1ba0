package geometry

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/spherical/case-intake/internal/raster"
)

// ContentBounds returns the union of the bounding boxes of every external
// contour found after Otsu inverse binarization. ok is false when the raster
// has no content.
func ContentBounds(src gocv.Mat) (image.Rectangle, bool) {
	gray := raster.Gray(src)
	defer gray.Close()

	bin := gocv.NewMat()
	defer bin.Close()
	gocv.Threshold(gray, &bin, 0, 255, gocv.ThresholdBinaryInv|gocv.ThresholdOtsu)

	contours := gocv.FindContours(bin, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var box image.Rectangle
	found := false
	for i := 0; i < contours.Size(); i++ {
		r := gocv.BoundingRect(contours.At(i))
		if !found {
			box, found = r, true
			continue
		}
		box = box.Union(r)
	}
	return box, found
}

// SmartCrop finds the content of src, grows the box by margin pixels on
// every side clamped to the raster, and returns the cropped copy with its
// box. Without content it returns an unchanged copy, the full bounds and
// ok == false.
func SmartCrop(src gocv.Mat, margin int) (gocv.Mat, image.Rectangle, bool) {
	full := raster.Bounds(src)

	box, ok := ContentBounds(src)
	if !ok {
		return src.Clone(), full, false
	}

	box = box.Inset(-margin).Intersect(full)
	if box.Empty() {
		return src.Clone(), full, false
	}

	out, err := raster.Crop(src, box)
	if err != nil {
		return src.Clone(), full, false
	}
	return out, box, true
}
