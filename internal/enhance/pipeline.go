// Package enhance implements the deterministic image quality pipeline used to
// make poor document photos legible.
package enhance

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/spherical/case-intake/internal/config"
	"github.com/spherical/case-intake/internal/raster"
)

// Stage is one pure transform. Apply never modifies src and always returns a
// new Mat owned by the caller.
type Stage struct {
	Name  string
	Apply func(src gocv.Mat) gocv.Mat
}

// Stage names, in pipeline order.
const (
	StageGrayscale = "grayscale"
	StageDenoise   = "denoise"
	StageCLAHE     = "clahe"
	StageSharpen   = "sharpen"
	StageFlatten   = "flatten_illumination"
	StageThreshold = "adaptive_threshold"
	StageClose     = "close"
	StageUpscale   = "upscale"
	StageSmooth    = "smooth"
)

// Pipeline runs a fixed ordered list of stages.
type Pipeline struct {
	stages []Stage
}

// New builds the enhancement pipeline from configuration.
func New(cfg config.EnhanceConfig) *Pipeline {
	return &Pipeline{stages: []Stage{
		{Name: StageGrayscale, Apply: raster.Gray},
		{Name: StageDenoise, Apply: denoise(cfg.DenoiseStrength, cfg.DenoiseTemplate, cfg.DenoiseSearch)},
		{Name: StageCLAHE, Apply: clahe(cfg.CLAHEClip, cfg.CLAHETile)},
		{Name: StageSharpen, Apply: sharpen},
		{Name: StageFlatten, Apply: flatten(cfg.DilateKernel, cfg.MedianKernel)},
		{Name: StageThreshold, Apply: threshold(cfg.ThresholdBlock, cfg.ThresholdC)},
		{Name: StageClose, Apply: closing(cfg.CloseKernel)},
		{Name: StageUpscale, Apply: upscale(cfg.UpscaleFactor)},
		{Name: StageSmooth, Apply: smooth(cfg.SmoothKernel)},
	}}
}

// Default returns the pipeline with production constants.
func Default() *Pipeline {
	return New(config.DefaultConfig().Enhance)
}

// Stages returns a copy of the ordered stage list.
func (p *Pipeline) Stages() []Stage {
	out := make([]Stage, len(p.stages))
	copy(out, p.stages)
	return out
}

// EnhanceMat runs every stage over src and returns a new single-channel Mat.
func (p *Pipeline) EnhanceMat(src gocv.Mat) gocv.Mat {
	return Run(src, p.stages...)
}

// Enhance runs the pipeline over a Go image.
func (p *Pipeline) Enhance(img image.Image) (image.Image, error) {
	src, err := raster.FromImage(img)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	out := p.EnhanceMat(src)
	defer out.Close()

	res, err := raster.ToImage(out)
	if err != nil {
		return nil, fmt.Errorf("enhance: %w", err)
	}
	return res, nil
}

// Run applies stages in order, releasing every intermediate.
func Run(src gocv.Mat, stages ...Stage) gocv.Mat {
	cur := src.Clone()
	for _, s := range stages {
		next := s.Apply(cur)
		cur.Close()
		cur = next
	}
	return cur
}

func denoise(h float32, template, search int) func(gocv.Mat) gocv.Mat {
	return func(src gocv.Mat) gocv.Mat {
		dst := gocv.NewMat()
		gocv.FastNlMeansDenoisingWithParams(src, &dst, h, template, search)
		return dst
	}
}

func clahe(clip float64, tile int) func(gocv.Mat) gocv.Mat {
	return func(src gocv.Mat) gocv.Mat {
		c := gocv.NewCLAHEWithParams(clip, image.Pt(tile, tile))
		defer c.Close()

		dst := gocv.NewMat()
		c.Apply(src, &dst)
		return dst
	}
}

// sharpenKernel is the 3x3 kernel with center 9 and neighbours -1.
func sharpenKernel() gocv.Mat {
	k := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV32F)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			k.SetFloatAt(r, c, -1)
		}
	}
	k.SetFloatAt(1, 1, 9)
	return k
}

func sharpen(src gocv.Mat) gocv.Mat {
	k := sharpenKernel()
	defer k.Close()

	dst := gocv.NewMat()
	gocv.Filter2D(src, &dst, -1, k, image.Pt(-1, -1), 0, gocv.BorderDefault)
	return dst
}

// flatten removes uneven lighting: estimate the background with a dilation
// followed by a large median, take the inverted difference, rescale to the
// full range.
func flatten(dilateK, medianK int) func(gocv.Mat) gocv.Mat {
	return func(src gocv.Mat) gocv.Mat {
		kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(dilateK, dilateK))
		defer kernel.Close()

		dilated := gocv.NewMat()
		defer dilated.Close()
		gocv.Dilate(src, &dilated, kernel)

		bg := gocv.NewMat()
		defer bg.Close()
		gocv.MedianBlur(dilated, &bg, medianK)

		diff := gocv.NewMat()
		defer diff.Close()
		gocv.AbsDiff(src, bg, &diff)

		inv := gocv.NewMat()
		defer inv.Close()
		gocv.BitwiseNot(diff, &inv)

		dst := gocv.NewMat()
		gocv.Normalize(inv, &dst, 0, 255, gocv.NormMinMax)
		return dst
	}
}

func threshold(block int, c float32) func(gocv.Mat) gocv.Mat {
	return func(src gocv.Mat) gocv.Mat {
		dst := gocv.NewMat()
		gocv.AdaptiveThreshold(src, &dst, 255, gocv.AdaptiveThresholdMean, gocv.ThresholdBinary, block, c)
		return dst
	}
}

func closing(size int) func(gocv.Mat) gocv.Mat {
	return func(src gocv.Mat) gocv.Mat {
		kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(size, size))
		defer kernel.Close()

		dst := gocv.NewMat()
		gocv.MorphologyEx(src, &dst, gocv.MorphClose, kernel)
		return dst
	}
}

func upscale(factor float64) func(gocv.Mat) gocv.Mat {
	return func(src gocv.Mat) gocv.Mat {
		dst := gocv.NewMat()
		if factor == 1 {
			src.CopyTo(&dst)
			return dst
		}
		gocv.Resize(src, &dst, image.Point{}, factor, factor, gocv.InterpolationCubic)
		return dst
	}
}

func smooth(k int) func(gocv.Mat) gocv.Mat {
	return func(src gocv.Mat) gocv.Mat {
		dst := gocv.NewMat()
		gocv.GaussianBlur(src, &dst, image.Pt(k, k), 0, 0, gocv.BorderDefault)
		return dst
	}
}
