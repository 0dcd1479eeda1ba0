package enhance

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/spherical/case-intake/internal/config"
	"github.com/spherical/case-intake/internal/domain"
)

// documentPhoto draws dark "text" bars over an unevenly lit background.
func documentPhoto(w, h int) gocv.Mat {
	m := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(150 + (x*80)/w)
			m.SetUCharAt3(y, x, 0, v)
			m.SetUCharAt3(y, x, 1, v)
			m.SetUCharAt3(y, x, 2, v)
		}
	}
	for row := 10; row+4 < h; row += 14 {
		gocv.Rectangle(&m, image.Rect(8, row, w-8, row+4), color.RGBA{R: 30, G: 30, B: 30, A: 255}, -1)
	}
	return m
}

func TestPipeline_StageOrder(t *testing.T) {
	var names []string
	for _, s := range Default().Stages() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{
		StageGrayscale, StageDenoise, StageCLAHE, StageSharpen, StageFlatten,
		StageThreshold, StageClose, StageUpscale, StageSmooth,
	}, names)
}

func TestPipeline_Deterministic(t *testing.T) {
	src := documentPhoto(96, 64)
	defer src.Close()

	p := Default()
	a := p.EnhanceMat(src)
	defer a.Close()
	b := p.EnhanceMat(src)
	defer b.Close()

	assert.Equal(t, a.ToBytes(), b.ToBytes())
}

func TestPipeline_DoesNotModifyInput(t *testing.T) {
	src := documentPhoto(64, 48)
	defer src.Close()
	before := src.ToBytes()

	out := Default().EnhanceMat(src)
	defer out.Close()

	assert.Equal(t, before, src.ToBytes())
}

func TestPipeline_OutputSizeFollowsUpscale(t *testing.T) {
	src := documentPhoto(64, 48)
	defer src.Close()

	out := Default().EnhanceMat(src)
	defer out.Close()
	assert.Equal(t, 128, out.Cols())
	assert.Equal(t, 96, out.Rows())
	assert.Equal(t, 1, out.Channels())

	cfg := config.DefaultConfig().Enhance
	cfg.UpscaleFactor = 1
	same := New(cfg).EnhanceMat(src)
	defer same.Close()
	assert.Equal(t, 64, same.Cols())
}

func TestThresholdStage_Binarizes(t *testing.T) {
	src := documentPhoto(64, 48)
	defer src.Close()

	stages := Default().Stages()
	// Everything up to and including the adaptive threshold.
	out := Run(src, stages[:6]...)
	defer out.Close()

	for _, v := range out.ToBytes() {
		if v != 0 && v != 255 {
			t.Fatalf("unexpected non-binary value %d", v)
		}
	}
}

func TestEnhance_GoImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for i := range img.Pix {
		img.Pix[i] = 220
	}

	out, err := Default().Enhance(img)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 80, 60), out.Bounds())
	_, isGray := out.(*image.Gray)
	assert.True(t, isGray)
}

func TestFilter_Kinds(t *testing.T) {
	src := documentPhoto(32, 32)
	defer src.Close()

	cfg := config.DefaultConfig().Filters
	for _, kind := range []domain.FilterKind{
		domain.FilterGrayscale, domain.FilterContrast, domain.FilterBrightness, domain.FilterSharpen,
	} {
		t.Run(string(kind), func(t *testing.T) {
			stage, err := Filter(kind, cfg)
			require.NoError(t, err)

			out := stage.Apply(src)
			defer out.Close()
			assert.Equal(t, 3, out.Channels())
			assert.Equal(t, src.Cols(), out.Cols())
			assert.Equal(t, src.Rows(), out.Rows())
		})
	}
}

func TestFilter_Brightness_Saturates(t *testing.T) {
	src := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(250, 250, 250, 0), 4, 4, gocv.MatTypeCV8UC3)
	defer src.Close()

	stage, err := Filter(domain.FilterBrightness, config.DefaultConfig().Filters)
	require.NoError(t, err)

	out := stage.Apply(src)
	defer out.Close()
	for _, v := range out.ToBytes() {
		assert.Equal(t, uint8(255), v)
	}
}

func TestFilter_Unknown(t *testing.T) {
	_, err := Filter("sepia", config.DefaultConfig().Filters)
	require.Error(t, err)
	assert.True(t, domain.IsInput(err))
	assert.ErrorIs(t, err, domain.ErrUnknownKind)
}
