// Package editor implements page-level editing sessions over a merged case
// document.
//
// A Session owns the committed bytes of one document. Every operation loads
// a fresh copy, applies one mutation, and commits the result only when the
// whole operation succeeded, so a failed call leaves the document untouched.
package editor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/spherical/case-intake/internal/config"
	"github.com/spherical/case-intake/internal/coords"
	"github.com/spherical/case-intake/internal/domain"
	"github.com/spherical/case-intake/internal/enhance"
	"github.com/spherical/case-intake/internal/geometry"
	"github.com/spherical/case-intake/internal/observability"
	"github.com/spherical/case-intake/internal/pdf"
	"github.com/spherical/case-intake/internal/raster"
)

// Annotation is a marker added with Session.Annotate.
type Annotation = pdf.Annotation

// DefaultCropMargin is the margin, in render pixels, used by CropAuto when
// none is given.
const DefaultCropMargin = 10

// Session is an exclusive editing session on one document.
type Session struct {
	mu sync.Mutex

	id     string
	path   string
	data   []byte
	pages  int
	log    []domain.ModificationLogEntry
	closed bool

	cfg      *config.Config
	renderer *pdf.Renderer
	pipeline *enhance.Pipeline
	logger   *observability.Logger

	// release is called once when the session closes.
	release func()
}

// Open starts a session on the PDF at path.
func Open(path string, cfg *config.Config, logger *observability.Logger) (*Session, error) {
	if err := pdf.NewValidator().ValidatePDFPath(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.ResourceError("read document", err).WithFile(path)
	}
	s, err := newSession(data, cfg, logger)
	if err != nil {
		var de *domain.DomainError
		if errors.As(err, &de) {
			return nil, de.WithFile(path)
		}
		return nil, err
	}
	s.path = path
	s.logger.Info().Str("path", path).Int("pages", s.pages).Msg("session opened")
	return s, nil
}

// OpenBytes starts a session on an in-memory document. Save requires an
// explicit target.
func OpenBytes(data []byte, cfg *config.Config, logger *observability.Logger) (*Session, error) {
	s, err := newSession(data, cfg, logger)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("pages", s.pages).Msg("session opened")
	return s, nil
}

func newSession(data []byte, cfg *config.Config, logger *observability.Logger) (*Session, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	doc, err := pdf.Load(data)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	return &Session{
		id:       id,
		data:     append([]byte(nil), data...),
		pages:    doc.PageCount(),
		cfg:      cfg,
		renderer: pdf.NewRenderer(),
		pipeline: enhance.New(cfg.Enhance),
		logger:   observability.OrNop(logger).WithSession(id),
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Path returns the file the session was opened from, or "".
func (s *Session) Path() string { return s.path }

// PageCount returns the current number of pages.
func (s *Session) PageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages
}

// Bytes returns a copy of the committed document.
func (s *Session) Bytes() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, closedError()
	}
	return append([]byte(nil), s.data...), nil
}

// Rotate sets the absolute display rotation of a page. angle must be a
// multiple of 90. Only page metadata changes.
func (s *Session) Rotate(page, angle int) error {
	return s.apply(domain.OpRotate, page, map[string]interface{}{"angle": angle}, func(d *pdf.Document) (*pdf.Document, error) {
		return d, d.SetRotation(page, angle)
	})
}

// Enhance re-renders a page through the enhancement pipeline, straightens
// it, and replaces the page content with the result. It returns the deskew
// correction that was applied.
func (s *Session) Enhance(page int) (float64, error) {
	var angle float64
	err := s.apply(domain.OpEnhance, page, nil, func(d *pdf.Document) (*pdf.Document, error) {
		src, err := s.render(page, s.cfg.Render.EnhanceScale)
		if err != nil {
			return nil, err
		}
		defer src.Close()

		enhanced := s.pipeline.EnhanceMat(src)
		out, a := geometry.Deskew(enhanced, s.cfg.Deskew)
		enhanced.Close()
		defer out.Close()
		angle = a

		return d, s.replace(d, page, out)
	}, func(params map[string]interface{}) {
		params["angle"] = angle
	})
	return angle, err
}

// CropCustom sets the visible region of a page to rect, in page space.
func (s *Session) CropCustom(page int, rect coords.Rect) error {
	return s.apply(domain.OpCropCustom, page, map[string]interface{}{"rect": rect}, func(d *pdf.Document) (*pdf.Document, error) {
		if rect.Empty() {
			return nil, domain.InputError(fmt.Sprintf("crop rectangle %v is empty", rect), nil).WithPage(page)
		}
		return d, d.SetCropBox(page, rect)
	})
}

// CropAuto trims a page to its content plus margin render pixels. A page
// without detectable content is left as it is.
func (s *Session) CropAuto(page, margin int) (coords.Rect, error) {
	var stored coords.Rect
	err := s.apply(domain.OpCropAuto, page, map[string]interface{}{"margin": margin}, func(d *pdf.Document) (*pdf.Document, error) {
		scale := coords.Scale(s.cfg.Render.CropScale)
		src, err := s.render(page, float64(scale))
		if err != nil {
			return nil, err
		}
		defer src.Close()

		vp, err := d.Viewport(page)
		if err != nil {
			return nil, err
		}

		cropped, box, ok := geometry.SmartCrop(src, margin)
		cropped.Close()
		if !ok {
			stored = vp.Crop
			return d, nil
		}

		stored = coords.PixelRect{Rect: box, Scale: scale}.ToPage(vp)
		return d, d.SetCropBox(page, stored)
	}, func(params map[string]interface{}) {
		params["rect"] = stored
	})
	return stored, err
}

// Reorder rearranges pages so that new page i is old page order[i]. order
// must be a permutation of every current page index.
func (s *Session) Reorder(order []int) error {
	params := map[string]interface{}{"order": append([]int(nil), order...)}
	return s.apply(domain.OpReorder, domain.NoPage, params, func(d *pdf.Document) (*pdf.Document, error) {
		if err := checkPermutation(order, d.PageCount()); err != nil {
			return nil, err
		}
		return d.Collect(order)
	})
}

// Delete removes a page. Later pages shift down by one.
func (s *Session) Delete(page int) error {
	return s.apply(domain.OpDelete, page, nil, func(d *pdf.Document) (*pdf.Document, error) {
		return d.Remove(page)
	})
}

// Annotate adds a marker to a page without changing its content or crop.
func (s *Session) Annotate(page int, a Annotation) error {
	params := map[string]interface{}{"kind": a.Kind, "rect": a.Rect}
	if a.Text != "" {
		params["text"] = a.Text
	}
	return s.apply(domain.OpAnnotate, page, params, func(d *pdf.Document) (*pdf.Document, error) {
		return d, d.AddAnnotation(page, a)
	})
}

// ApplyFilter re-renders a page through a single filter and replaces the
// page content with the result.
func (s *Session) ApplyFilter(page int, kind domain.FilterKind) error {
	return s.apply(domain.OpApplyFilter, page, map[string]interface{}{"filter": kind}, func(d *pdf.Document) (*pdf.Document, error) {
		stage, err := enhance.Filter(kind, s.cfg.Filters)
		if err != nil {
			return nil, err
		}
		src, err := s.render(page, s.cfg.Render.FilterScale)
		if err != nil {
			return nil, err
		}
		defer src.Close()

		out := enhance.Run(src, stage)
		defer out.Close()

		return d, s.replace(d, page, out)
	})
}

// Save compacts the document, writes it to target (the original path when
// empty) and closes the session.
func (s *Session) Save(target string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", closedError()
	}
	if target == "" {
		target = s.path
	}
	if target == "" {
		return "", domain.InputError("no save target for an in-memory session", nil)
	}
	if err := pdf.NewValidator().ValidateOutputPath(target); err != nil {
		return "", err
	}

	doc, err := pdf.Load(s.data)
	if err != nil {
		return "", err
	}
	if err := doc.Optimize(); err != nil {
		return "", err
	}
	data, err := doc.Bytes()
	if err != nil {
		return "", err
	}
	if err := writeFile(target, data); err != nil {
		return "", err
	}

	s.logger.Info().Str("path", target).Int("pages", s.pages).Int("modifications", len(s.log)).Msg("session saved")
	s.close()
	return target, nil
}

// Close ends the session without saving. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.logger.Debug().Msg("session discarded")
		s.close()
	}
}

// Closed reports whether the session has been saved or closed.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Log returns a copy of the modification log.
func (s *Session) Log() []domain.ModificationLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ModificationLogEntry, len(s.log))
	copy(out, s.log)
	return out
}

// Modifications renders the modification log as operator-facing lines.
func (s *Session) Modifications() []string {
	entries := s.Log()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.String()
	}
	return out
}

// apply runs fn on a fresh copy of the committed document and commits the
// result. finish, if given, adds parameters known only after fn ran.
func (s *Session) apply(op domain.Operation, page int, params map[string]interface{}, fn func(*pdf.Document) (*pdf.Document, error), finish ...func(map[string]interface{})) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return closedError()
	}
	if page != domain.NoPage && (page < 0 || page >= s.pages) {
		return domain.IndexError(page, s.pages)
	}

	start := time.Now()
	doc, err := pdf.Load(s.data)
	if err != nil {
		return err
	}
	out, err := fn(doc)
	if err != nil {
		s.logger.Debug().Str("operation", string(op)).Int("page", page).Err(err).Msg("operation rejected")
		return err
	}
	data, err := out.Bytes()
	if err != nil {
		return err
	}

	s.data = data
	s.pages = out.PageCount()

	if params == nil {
		params = map[string]interface{}{}
	}
	for _, f := range finish {
		f(params)
	}
	s.log = append(s.log, domain.ModificationLogEntry{
		Seq:       len(s.log) + 1,
		Operation: op,
		Page:      page,
		Params:    params,
		At:        time.Now(),
	})

	s.logger.Debug().
		Str("operation", string(op)).
		Int("page", page).
		Int("pages", s.pages).
		Dur("duration", time.Since(start)).
		Msg("operation applied")
	return nil
}

// render rasterizes the visible area of a committed page as a BGR Mat.
func (s *Session) render(page int, scale float64) (gocv.Mat, error) {
	img, err := s.renderer.Render(s.data, page, coords.Scale(scale))
	if err != nil {
		return gocv.NewMat(), err
	}
	m, err := raster.FromImage(img)
	if err != nil {
		return gocv.NewMat(), domain.ProcessingError("convert rendered page", err).WithPage(page)
	}
	return m, nil
}

// replace embeds m as the new content of page, filling its visible area.
func (s *Session) replace(d *pdf.Document, page int, m gocv.Mat) error {
	encoded, err := raster.EncodePNG(m)
	if err != nil {
		return domain.ProcessingError("encode page raster", err).WithPage(page)
	}
	return d.ReplaceContent(page, encoded)
}

func (s *Session) close() {
	s.closed = true
	s.data = nil
	if s.release != nil {
		s.release()
		s.release = nil
	}
}

func closedError() error {
	return domain.InputError("session is closed", domain.ErrSessionClosed)
}

// checkPermutation reports whether order lists every index in [0, n) once.
func checkPermutation(order []int, n int) error {
	if len(order) != n {
		return domain.InputError(fmt.Sprintf("order has %d entries, document has %d pages", len(order), n), domain.ErrInvalidPermutation)
	}
	seen := make([]bool, n)
	for _, p := range order {
		if p < 0 || p >= n || seen[p] {
			return domain.InputError(fmt.Sprintf("order %v is not a permutation of 0..%d", order, n-1), domain.ErrInvalidPermutation)
		}
		seen[p] = true
	}
	return nil
}

// writeFile replaces path with data through a sibling temp file.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return domain.ResourceError("create temp file", err).WithFile(path)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return domain.ResourceError("write document", err).WithFile(path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return domain.ResourceError("write document", err).WithFile(path)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return domain.ResourceError("replace document", err).WithFile(path)
	}
	return nil
}
