package merge

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/case-intake/internal/config"
	"github.com/spherical/case-intake/internal/domain"
	"github.com/spherical/case-intake/internal/pdf"
)

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 180
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func pdfBytes(t *testing.T, pages int) []byte {
	t.Helper()
	d, err := pdf.NewDocument()
	require.NoError(t, err)
	for i := 0; i < pages; i++ {
		require.NoError(t, d.AppendTextPage(pdf.TextPage{Title: "page"}))
	}
	data, err := d.Bytes()
	require.NoError(t, err)
	return data
}

func newTestService(t *testing.T) (*Service, string, string) {
	t.Helper()
	tmp := t.TempDir()
	out := t.TempDir()
	cfg := config.DefaultConfig().Merge
	cfg.TempDir = tmp
	cfg.OutputDir = out
	return NewService(cfg, nil), tmp, out
}

func pageCount(t *testing.T, path string) int {
	t.Helper()
	d, err := pdf.LoadFile(path)
	require.NoError(t, err)
	return d.PageCount()
}

func TestMerge_MixedUploads(t *testing.T) {
	s, tmp, out := newTestService(t)

	files := []domain.UploadedFile{
		{Filename: "a.jpg", Data: jpegBytes(t, 120, 80)},
		{Filename: "b.pdf", Data: pdfBytes(t, 2)},
		{Filename: "c.xyz", Data: []byte("opaque")},
	}
	res, err := s.Merge(context.Background(), files, Options{})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(out, "case-"+res.ID+".pdf"), res.Path)
	assert.Equal(t, []string{"a.jpg", "b.pdf", "c.xyz"}, res.Filenames)
	assert.Equal(t, 4, res.PageCount)
	assert.Equal(t, 4, pageCount(t, res.Path))
	assert.Equal(t, []PageSource{
		{SourceIndex: 0, SourcePage: 0},
		{SourceIndex: 1, SourcePage: 0},
		{SourceIndex: 1, SourcePage: 1},
		{SourceIndex: 2, SourcePage: 0},
	}, res.Pages)

	// Image page keeps the image's aspect ratio.
	d, err := pdf.LoadFile(res.Path)
	require.NoError(t, err)
	mb, err := d.MediaBox(0)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, mb.Width()/mb.Height(), 0.01)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp scope must be removed")
}

func TestMerge_PreservesOrder(t *testing.T) {
	s, _, _ := newTestService(t)

	files := []domain.UploadedFile{
		{Filename: "z.docx", Data: []byte("word")},
		{Filename: "m.pdf", Data: pdfBytes(t, 3)},
		{Filename: "a.png", Data: func() []byte {
			var buf bytes.Buffer
			require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 10, 10))))
			return buf.Bytes()
		}()},
	}
	res, err := s.Merge(context.Background(), files, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"z.docx", "m.pdf", "a.png"}, res.Filenames)
	assert.Equal(t, 5, res.PageCount)
	assert.Equal(t, 0, res.Pages[0].SourceIndex)
	assert.Equal(t, 2, res.Pages[4].SourceIndex)
}

func TestMerge_EmptyInput(t *testing.T) {
	s, _, _ := newTestService(t)

	_, err := s.Merge(context.Background(), nil, Options{})
	require.Error(t, err)
	assert.True(t, domain.IsInput(err))
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
}

func TestMerge_SkipsNamelessAndEmpty(t *testing.T) {
	s, _, _ := newTestService(t)

	files := []domain.UploadedFile{
		{Filename: "", Data: jpegBytes(t, 10, 10)},
		{Filename: "empty.pdf", Data: nil},
		{Filename: "keep.pdf", Data: pdfBytes(t, 1)},
	}
	res, err := s.Merge(context.Background(), files, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.pdf"}, res.Filenames)
	assert.Equal(t, 1, res.PageCount)
}

func TestMerge_OnlySkippedFiles(t *testing.T) {
	s, _, _ := newTestService(t)

	files := []domain.UploadedFile{
		{Filename: "", Data: []byte("x")},
		{Filename: "empty.jpg"},
	}
	_, err := s.Merge(context.Background(), files, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
}

func TestMerge_StrictFilenames(t *testing.T) {
	s, _, out := newTestService(t)

	files := []domain.UploadedFile{
		{Filename: "ok.pdf", Data: pdfBytes(t, 1)},
		{Filename: "", Data: []byte("x")},
	}
	_, err := s.Merge(context.Background(), files, Options{StrictFilenames: true})
	require.Error(t, err)
	assert.True(t, domain.IsInput(err))
	assert.ErrorIs(t, err, domain.ErrMissingFilename)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Nameless but empty is still skipped.
	files[1].Data = nil
	_, err = s.Merge(context.Background(), files, Options{StrictFilenames: true})
	assert.NoError(t, err)
}

func TestMerge_CorruptImageLeavesNothing(t *testing.T) {
	s, tmp, out := newTestService(t)

	target := filepath.Join(out, "case.pdf")
	files := []domain.UploadedFile{
		{Filename: "ok.pdf", Data: pdfBytes(t, 1)},
		{Filename: "broken.jpg", Data: []byte("not a jpeg")},
	}
	_, err := s.Merge(context.Background(), files, Options{OutputPath: target})
	require.Error(t, err)
	assert.True(t, domain.IsProcessing(err))

	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "broken.jpg", de.Filename)

	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr))

	for _, dir := range []string{tmp, out} {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries, dir)
	}
}

func TestMerge_CorruptPDF(t *testing.T) {
	s, _, _ := newTestService(t)

	files := []domain.UploadedFile{{Filename: "bad.pdf", Data: []byte("%PDF-1.7 junk")}}
	_, err := s.Merge(context.Background(), files, Options{})
	require.Error(t, err)

	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "bad.pdf", de.Filename)
}

func TestMerge_SinglePDFIsCopied(t *testing.T) {
	s, _, out := newTestService(t)

	data := pdfBytes(t, 1)
	target := filepath.Join(out, "single.pdf")
	res, err := s.Merge(context.Background(), []domain.UploadedFile{{Filename: "one.pdf", Data: data}}, Options{OutputPath: target})
	require.NoError(t, err)

	got, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestMerge_CoverPage(t *testing.T) {
	s, _, _ := newTestService(t)

	files := []domain.UploadedFile{
		{Filename: "a.pdf", Data: pdfBytes(t, 1)},
		{Filename: "b.jpg", Data: jpegBytes(t, 20, 20)},
	}
	cover := &Cover{CaseID: "C-42", Kind: "complaint", Received: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)}
	res, err := s.Merge(context.Background(), files, Options{Cover: cover})
	require.NoError(t, err)

	assert.Equal(t, 3, res.PageCount)
	assert.Equal(t, 3, pageCount(t, res.Path))
	assert.Equal(t, CoverSource, res.Pages[0].SourceIndex)
	assert.Equal(t, 0, res.Pages[1].SourceIndex)
}

func TestMerge_OnFileCallback(t *testing.T) {
	s, _, _ := newTestService(t)

	files := []domain.UploadedFile{
		{Filename: "a.pdf", Data: pdfBytes(t, 1)},
		{Filename: "", Data: nil},
		{Filename: "c.txt", Data: []byte("hello")},
	}
	var seen []string
	_, err := s.Merge(context.Background(), files, Options{
		OnFile: func(index, total int, filename string) {
			assert.Equal(t, 3, total)
			seen = append(seen, filename)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf", "c.txt"}, seen)
}

func TestMerge_Cancelled(t *testing.T) {
	s, _, _ := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Merge(ctx, []domain.UploadedFile{{Filename: "a.pdf", Data: pdfBytes(t, 1)}}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, domain.IsProcessing(err))
}

func TestCoverPage_Truncates(t *testing.T) {
	names := make([]string, 11)
	for i := range names {
		names[i] = "f.pdf"
	}
	p := coverPage(Cover{CaseID: "X"}, names)
	assert.Equal(t, "CASE SUMMARY", p.Title)
	assert.Equal(t, "... and 3 more files", p.Lines[len(p.Lines)-1])
	assert.Equal(t, "8. f.pdf", p.Lines[len(p.Lines)-2])
}

func TestPlaceholderPage(t *testing.T) {
	p := placeholderPage(domain.UploadedFile{Filename: "brief.docx"})
	assert.Equal(t, "Word document included", p.Title)

	p = placeholderPage(domain.UploadedFile{Filename: "data.xyz"})
	assert.Equal(t, "Attached file", p.Title)
	assert.Contains(t, p.Lines, "Type: .xyz")

	p = placeholderPage(domain.UploadedFile{Filename: "README"})
	assert.Contains(t, p.Lines, "Type: (none)")
}

func TestNormalizeImage_FlattensAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	data, bounds, err := normalizeImage(buf.Bytes(), 90)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 4), bounds)

	out, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	r, g, b, _ := out.At(3, 3).RGBA()
	assert.Greater(t, r>>8, uint32(240))
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))
}
