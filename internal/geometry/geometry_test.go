package geometry

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/spherical/case-intake/internal/config"
)

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.RGBA{A: 255}
)

func blank(w, h int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), h, w, gocv.MatTypeCV8UC3)
}

// ruled draws long parallel lines tilted clockwise by deg degrees.
func ruled(w, h int, deg float64) gocv.Mat {
	m := blank(w, h)
	dy := int(math.Round(math.Tan(deg*math.Pi/180) * float64(w-100)))
	for y := 60; y < h-60-dy; y += 40 {
		gocv.Line(&m, image.Pt(50, y), image.Pt(w-50, y+dy), black, 3)
	}
	return m
}

func TestDeskew_BlankIsNoop(t *testing.T) {
	src := blank(200, 150)
	defer src.Close()

	out, angle := Deskew(src, config.DefaultConfig().Deskew)
	defer out.Close()

	assert.Zero(t, angle)
	assert.Equal(t, src.ToBytes(), out.ToBytes())
}

func TestDeskew_StraightLinesAreNoop(t *testing.T) {
	src := ruled(600, 400, 0)
	defer src.Close()

	out, angle := Deskew(src, config.DefaultConfig().Deskew)
	defer out.Close()

	assert.Zero(t, angle)
	assert.Equal(t, src.ToBytes(), out.ToBytes())
}

func TestDeskew_CorrectsTilt(t *testing.T) {
	cfg := config.DefaultConfig().Deskew
	src := ruled(700, 500, 5)
	defer src.Close()

	skew, n := EstimateSkew(src, cfg)
	require.Positive(t, n)
	assert.InDelta(t, 5, skew, 1)

	out, angle := Deskew(src, cfg)
	defer out.Close()
	assert.InDelta(t, 5, angle, 1)
	assert.Equal(t, src.Cols(), out.Cols())
	assert.Equal(t, src.Rows(), out.Rows())

	residual, _ := EstimateSkew(out, cfg)
	assert.InDelta(t, 0, residual, 1)
}

func TestFoldAngle(t *testing.T) {
	assert.Equal(t, 0.0, foldAngle(-90))
	assert.Equal(t, 3.0, foldAngle(3))
	assert.Equal(t, -2.0, foldAngle(88))
	assert.Equal(t, 45.0, foldAngle(45))
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 2.0, median([]float64{3, 1, 2}))
	assert.Equal(t, 1.5, median([]float64{1, 2, 0, 3}))
}

func TestSmartCrop_NoContent(t *testing.T) {
	src := blank(120, 80)
	defer src.Close()

	out, box, ok := SmartCrop(src, 10)
	defer out.Close()

	assert.False(t, ok)
	assert.Equal(t, image.Rect(0, 0, 120, 80), box)
	assert.Equal(t, src.ToBytes(), out.ToBytes())
}

func TestSmartCrop_ContainsContent(t *testing.T) {
	src := blank(300, 200)
	defer src.Close()
	content := image.Rect(80, 50, 180, 120)
	gocv.Rectangle(&src, content, black, -1)

	out, box, ok := SmartCrop(src, 10)
	defer out.Close()

	require.True(t, ok)
	assert.True(t, content.In(box), "box %v must contain %v", box, content)
	assert.Equal(t, box.Dx(), out.Cols())
	assert.Equal(t, box.Dy(), out.Rows())
	assert.InDelta(t, content.Min.X-10, box.Min.X, 1)
	assert.InDelta(t, content.Max.Y+10, box.Max.Y, 1)
}

func TestSmartCrop_UnionOfContours(t *testing.T) {
	src := blank(300, 200)
	defer src.Close()
	gocv.Rectangle(&src, image.Rect(20, 20, 40, 40), black, -1)
	gocv.Rectangle(&src, image.Rect(200, 150, 230, 170), black, -1)

	out, box, ok := SmartCrop(src, 0)
	defer out.Close()

	require.True(t, ok)
	assert.True(t, image.Rect(20, 20, 40, 40).In(box))
	assert.True(t, image.Rect(200, 150, 230, 170).In(box))
}

func TestSmartCrop_MarginMonotonic(t *testing.T) {
	src := blank(300, 200)
	defer src.Close()
	gocv.Rectangle(&src, image.Rect(120, 80, 160, 110), black, -1)

	var prev image.Rectangle
	for i, margin := range []int{0, 5, 20, 500} {
		out, box, ok := SmartCrop(src, margin)
		out.Close()
		require.True(t, ok)
		if i > 0 {
			assert.True(t, prev.In(box), "margin %d shrank the box", margin)
		}
		assert.True(t, box.In(image.Rect(0, 0, 300, 200)))
		prev = box
	}
	assert.Equal(t, image.Rect(0, 0, 300, 200), prev)
}

func TestRotate_KeepsSize(t *testing.T) {
	src := blank(64, 32)
	defer src.Close()
	gocv.Rectangle(&src, image.Rect(10, 10, 20, 20), white, 1)

	out := Rotate(src, 30)
	defer out.Close()
	assert.Equal(t, 64, out.Cols())
	assert.Equal(t, 32, out.Rows())
}
