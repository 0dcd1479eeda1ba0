package pdf

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/case-intake/internal/coords"
	"github.com/spherical/case-intake/internal/domain"
)

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// build creates a document, lets fn add pages, and returns its bytes.
func build(t *testing.T, fn func(d *Document)) []byte {
	t.Helper()
	d, err := NewDocument()
	require.NoError(t, err)
	fn(d)
	data, err := d.Bytes()
	require.NoError(t, err)
	return data
}

func reload(t *testing.T, d *Document) *Document {
	t.Helper()
	data, err := d.Bytes()
	require.NoError(t, err)
	out, err := Load(data)
	require.NoError(t, err)
	return out
}

// twoPages is an image page of 200x100 followed by a Letter text page.
func twoPages(t *testing.T) []byte {
	return build(t, func(d *Document) {
		require.NoError(t, d.AppendImagePage(encodeJPEG(t, 200, 100)))
		require.NoError(t, d.AppendTextPage(TextPage{Title: "notes.docx", Lines: []string{"Open the original separately."}}))
	})
}

func TestDocument_AppendPages(t *testing.T) {
	d, err := Load(twoPages(t))
	require.NoError(t, err)
	assert.Equal(t, 2, d.PageCount())

	mb, err := d.MediaBox(0)
	require.NoError(t, err)
	assert.Equal(t, 200.0, mb.Width())
	assert.Equal(t, 100.0, mb.Height())

	mb, err = d.MediaBox(1)
	require.NoError(t, err)
	assert.Equal(t, 612.0, mb.Width())
	assert.Equal(t, 792.0, mb.Height())
}

func TestLoad_RejectsGarbage(t *testing.T) {
	_, err := Load([]byte("definitely not a pdf"))
	require.Error(t, err)
	assert.True(t, domain.IsProcessing(err))

	_, err = Load(nil)
	assert.True(t, domain.IsProcessing(err))
}

func TestDocument_PageIndexOutOfRange(t *testing.T) {
	d, err := Load(twoPages(t))
	require.NoError(t, err)

	for _, page := range []int{-1, 2, 10} {
		_, err := d.Viewport(page)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)
		assert.True(t, domain.IsInput(err))
	}
}

func TestDocument_SetRotation(t *testing.T) {
	d, err := Load(twoPages(t))
	require.NoError(t, err)

	require.NoError(t, d.SetRotation(1, -90))
	d = reload(t, d)

	vp, err := d.Viewport(1)
	require.NoError(t, err)
	assert.Equal(t, 270, vp.Rotation)
	w, h := vp.Size()
	assert.Equal(t, 792.0, w)
	assert.Equal(t, 612.0, h)

	err = d.SetRotation(1, 45)
	require.Error(t, err)
	assert.True(t, domain.IsInput(err))
}

func TestDocument_SetCropBox(t *testing.T) {
	d, err := Load(twoPages(t))
	require.NoError(t, err)

	require.NoError(t, d.SetCropBox(1, coords.R(50, 100, 200, 300)))
	d = reload(t, d)

	vp, err := d.Viewport(1)
	require.NoError(t, err)
	assert.InDelta(t, 50, vp.Crop.X, 1e-6)
	assert.InDelta(t, 100, vp.Crop.Y, 1e-6)
	assert.InDelta(t, 200, vp.Crop.W, 1e-6)
	assert.InDelta(t, 300, vp.Crop.H, 1e-6)

	// Content is untouched.
	mb, err := d.MediaBox(1)
	require.NoError(t, err)
	assert.Equal(t, 612.0, mb.Width())

	err = d.SetCropBox(1, coords.R(1000, 1000, 10, 10))
	assert.True(t, domain.IsInput(err))
}

func TestDocument_Collect(t *testing.T) {
	d, err := Load(twoPages(t))
	require.NoError(t, err)

	swapped, err := d.Collect([]int{1, 0})
	require.NoError(t, err)
	assert.Equal(t, 2, swapped.PageCount())

	mb, err := swapped.MediaBox(0)
	require.NoError(t, err)
	assert.Equal(t, 612.0, mb.Width())
	mb, err = swapped.MediaBox(1)
	require.NoError(t, err)
	assert.Equal(t, 200.0, mb.Width())
}

func TestDocument_Remove(t *testing.T) {
	d, err := Load(twoPages(t))
	require.NoError(t, err)

	out, err := d.Remove(0)
	require.NoError(t, err)
	assert.Equal(t, 1, out.PageCount())

	mb, err := out.MediaBox(0)
	require.NoError(t, err)
	assert.Equal(t, 612.0, mb.Width())

	_, err = out.Remove(0)
	assert.True(t, domain.IsInput(err))
}

func TestDocument_AddAnnotation(t *testing.T) {
	d, err := Load(twoPages(t))
	require.NoError(t, err)

	red := color.RGBA{R: 255, A: 255}
	require.NoError(t, d.AddAnnotation(1, Annotation{Kind: domain.AnnotationHighlight, Rect: coords.R(50, 50, 100, 20), Color: red}))
	require.NoError(t, d.AddAnnotation(1, Annotation{Kind: domain.AnnotationTextNote, Rect: coords.R(60, 80, 0, 0), Text: "Check the date"}))
	require.NoError(t, d.AddAnnotation(1, Annotation{Kind: domain.AnnotationRectangle, Rect: coords.R(10, 10, 80, 40)}))
	require.NoError(t, d.AddAnnotation(1, Annotation{Kind: domain.AnnotationArrow, Rect: coords.R(300, 300, -100, 50)}))

	err = d.AddAnnotation(1, Annotation{Kind: "stamp"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownKind)

	vpBefore, err := d.Viewport(1)
	require.NoError(t, err)

	d = reload(t, d)
	kinds, err := d.Annotations(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Highlight", "Text", "Square", "Line"}, kinds)

	vpAfter, err := d.Viewport(1)
	require.NoError(t, err)
	assert.Equal(t, vpBefore, vpAfter)

	none, err := d.Annotations(0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDocument_ReplaceContent(t *testing.T) {
	d, err := Load(twoPages(t))
	require.NoError(t, err)

	require.NoError(t, d.SetCropBox(1, coords.R(0, 0, 300, 400)))
	require.NoError(t, d.SetRotation(1, 90))
	require.NoError(t, d.AddAnnotation(1, Annotation{Kind: domain.AnnotationRectangle, Rect: coords.R(10, 10, 80, 40)}))
	d = reload(t, d)

	require.NoError(t, d.ReplaceContent(1, encodePNG(t, 1200, 900)))
	d = reload(t, d)

	vp, err := d.Viewport(1)
	require.NoError(t, err)
	assert.Equal(t, 0, vp.Rotation)
	assert.Equal(t, coords.R(0, 0, 400, 300), vp.Crop)

	kinds, err := d.Annotations(1)
	require.NoError(t, err)
	assert.Empty(t, kinds)
}

func TestRenderer_Render(t *testing.T) {
	data := twoPages(t)
	r := NewRenderer()

	img, err := r.Render(data, 0, 2)
	require.NoError(t, err)
	assert.InDelta(t, 400, img.Bounds().Dx(), 1)
	assert.InDelta(t, 200, img.Bounds().Dy(), 1)

	_, err = r.Render(data, 5, 1)
	assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)

	_, err = r.Render(data, 0, 0)
	assert.True(t, domain.IsInput(err))

	n, err := r.PageCount(data)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRenderer_RendersVisibleArea(t *testing.T) {
	d, err := Load(twoPages(t))
	require.NoError(t, err)
	require.NoError(t, d.SetCropBox(1, coords.R(0, 0, 300, 200)))
	require.NoError(t, d.SetRotation(1, 90))
	data, err := d.Bytes()
	require.NoError(t, err)

	img, err := NewRenderer().Render(data, 1, 1)
	require.NoError(t, err)
	assert.InDelta(t, 200, img.Bounds().Dx(), 1)
	assert.InDelta(t, 300, img.Bounds().Dy(), 1)
}

func TestMergeFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.pdf")
	b := filepath.Join(dir, "b.pdf")
	require.NoError(t, os.WriteFile(a, twoPages(t), 0o644))
	require.NoError(t, os.WriteFile(b, build(t, func(d *Document) {
		require.NoError(t, d.AppendTextPage(TextPage{Title: "b"}))
	}), 0o644))

	out := filepath.Join(dir, "out.pdf")
	require.NoError(t, MergeFiles([]string{a, b}, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	d, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, 3, d.PageCount())

	single := filepath.Join(dir, "single.pdf")
	require.NoError(t, MergeFiles([]string{b}, single))
	got, err := os.ReadFile(single)
	require.NoError(t, err)
	want, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	assert.ErrorIs(t, MergeFiles(nil, out), domain.ErrEmptyInput)
}

func TestEscapeText(t *testing.T) {
	assert.Equal(t, `a\(b\)c\\`, escapeText(`a(b)c\`))
	assert.Equal(t, "caf\xe9", escapeText("café"))
	assert.Equal(t, "?", escapeText("漢"))
}

func TestWrap(t *testing.T) {
	assert.Equal(t, []string{"one two", "three"}, wrap("one two three", 8))
	assert.Equal(t, []string{"abcd", "ef"}, wrap("abcdef", 4))
	assert.Equal(t, []string{""}, wrap("   ", 10))
}

func TestValidator(t *testing.T) {
	v := NewValidator()
	dir := t.TempDir()

	assert.True(t, domain.IsInput(v.ValidatePDFPath("")))
	assert.True(t, domain.IsInput(v.ValidatePDFPath(filepath.Join(dir, "missing.pdf"))))
	assert.True(t, domain.IsInput(v.ValidatePDFPath(dir)))

	txt := filepath.Join(dir, "x.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o644))
	assert.True(t, domain.IsInput(v.ValidatePDFPath(txt)))

	assert.NoError(t, v.ValidateOutputPath(filepath.Join(dir, "out.pdf")))
	assert.Error(t, v.ValidateOutputPath(filepath.Join(dir, "nope", "out.pdf")))
	assert.Error(t, v.ValidateQuality(0))
}
