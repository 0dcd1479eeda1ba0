package enhance

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/spherical/case-intake/internal/config"
	"github.com/spherical/case-intake/internal/domain"
	"github.com/spherical/case-intake/internal/raster"
)

// Filter returns the single-stage color transform for kind. The result keeps
// three channels so it can be written back into a color page.
func Filter(kind domain.FilterKind, cfg config.FilterConfig) (Stage, error) {
	switch kind {
	case domain.FilterGrayscale:
		return Stage{Name: string(kind), Apply: grayscaleBGR}, nil
	case domain.FilterContrast:
		return Stage{Name: string(kind), Apply: labContrast(cfg.ContrastClip, cfg.ContrastTile)}, nil
	case domain.FilterBrightness:
		return Stage{Name: string(kind), Apply: brighten(cfg.BrightnessDelta)}, nil
	case domain.FilterSharpen:
		return Stage{Name: string(kind), Apply: sharpenColor}, nil
	}
	return Stage{}, domain.InputError(fmt.Sprintf("unsupported filter %q", kind), domain.ErrUnknownKind)
}

func grayscaleBGR(src gocv.Mat) gocv.Mat {
	g := raster.Gray(src)
	defer g.Close()
	return raster.BGR(g)
}

// labContrast equalizes the lightness channel only so hues are preserved.
func labContrast(clip float64, tile int) func(gocv.Mat) gocv.Mat {
	return func(src gocv.Mat) gocv.Mat {
		bgr := raster.BGR(src)
		defer bgr.Close()

		lab := gocv.NewMat()
		defer lab.Close()
		gocv.CvtColor(bgr, &lab, gocv.ColorBGRToLab)

		channels := gocv.Split(lab)
		defer closeAll(channels)

		c := gocv.NewCLAHEWithParams(clip, image.Pt(tile, tile))
		defer c.Close()

		l := gocv.NewMat()
		c.Apply(channels[0], &l)
		channels[0].Close()
		channels[0] = l

		merged := gocv.NewMat()
		defer merged.Close()
		gocv.Merge(channels, &merged)

		dst := gocv.NewMat()
		gocv.CvtColor(merged, &dst, gocv.ColorLabToBGR)
		return dst
	}
}

// brighten adds delta to the HSV value channel, saturating at 255.
func brighten(delta float64) func(gocv.Mat) gocv.Mat {
	return func(src gocv.Mat) gocv.Mat {
		bgr := raster.BGR(src)
		defer bgr.Close()

		hsv := gocv.NewMat()
		defer hsv.Close()
		gocv.CvtColor(bgr, &hsv, gocv.ColorBGRToHSV)

		channels := gocv.Split(hsv)
		defer closeAll(channels)

		add := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(delta, 0, 0, 0), hsv.Rows(), hsv.Cols(), gocv.MatTypeCV8U)
		defer add.Close()

		v := gocv.NewMat()
		gocv.Add(channels[2], add, &v)
		channels[2].Close()
		channels[2] = v

		merged := gocv.NewMat()
		defer merged.Close()
		gocv.Merge(channels, &merged)

		dst := gocv.NewMat()
		gocv.CvtColor(merged, &dst, gocv.ColorHSVToBGR)
		return dst
	}
}

func sharpenColor(src gocv.Mat) gocv.Mat {
	bgr := raster.BGR(src)
	defer bgr.Close()
	return sharpen(bgr)
}

func closeAll(ms []gocv.Mat) {
	for _, m := range ms {
		m.Close()
	}
}
