// Package geometry corrects page geometry on rasters: skew from detected
// text lines, and tight cropping around content.
package geometry

import (
	"image"
	"image/color"
	"math"
	"sort"

	"gocv.io/x/gocv"

	"github.com/spherical/case-intake/internal/config"
	"github.com/spherical/case-intake/internal/raster"
)

// EstimateSkew returns the median line angle in degrees, folded into
// [-45, 45], and the number of lines it was measured from. Positive means
// the content leans clockwise.
func EstimateSkew(src gocv.Mat, cfg config.DeskewConfig) (float64, int) {
	gray := raster.Gray(src)
	defer gray.Close()

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, cfg.CannyLow, cfg.CannyHigh)

	lines := gocv.NewMat()
	defer lines.Close()
	gocv.HoughLines(edges, &lines, 1, math.Pi/180, cfg.HoughThreshold)

	n := lines.Rows()
	if n == 0 {
		return 0, 0
	}

	angles := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		v := lines.GetVecfAt(i, 0)
		theta := float64(v[1]) * 180 / math.Pi
		angles = append(angles, foldAngle(theta-90))
	}
	return median(angles), n
}

// Deskew rotates src so the dominant lines become axis aligned. It returns a
// new Mat and the correction applied in degrees counter-clockwise; when the
// skew is below cfg.MinAngle the returned Mat is an unchanged copy and the
// angle is 0.
func Deskew(src gocv.Mat, cfg config.DeskewConfig) (gocv.Mat, float64) {
	angle, n := EstimateSkew(src, cfg)
	if n == 0 || math.Abs(angle) < cfg.MinAngle {
		return src.Clone(), 0
	}
	return Rotate(src, angle), angle
}

// Rotate turns src by angle degrees counter-clockwise about its center,
// keeping the original size and replicating edge pixels into the corners.
func Rotate(src gocv.Mat, angle float64) gocv.Mat {
	w, h := src.Cols(), src.Rows()
	m := gocv.GetRotationMatrix2D(image.Pt(w/2, h/2), angle, 1.0)
	defer m.Close()

	dst := gocv.NewMat()
	gocv.WarpAffineWithParams(src, &dst, m, image.Pt(w, h),
		gocv.InterpolationCubic, gocv.BorderReplicate, color.RGBA{})
	return dst
}

// foldAngle maps a line angle onto [-45, 45] so vertical and horizontal
// strokes vote for the same skew.
func foldAngle(a float64) float64 {
	for a > 45 {
		a -= 90
	}
	for a < -45 {
		a += 90
	}
	return a
}

func median(v []float64) float64 {
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
