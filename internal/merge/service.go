// Package merge assembles uploaded files into one ordered PDF per case.
package merge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/spherical/case-intake/internal/config"
	"github.com/spherical/case-intake/internal/domain"
	"github.com/spherical/case-intake/internal/observability"
	"github.com/spherical/case-intake/internal/pdf"
	"github.com/spherical/case-intake/internal/tempfs"
)

// CoverSource marks the cover page in Result.Pages.
const CoverSource = -1

// Options tune a single merge.
type Options struct {
	// OutputPath is the merged file; empty means <output_dir>/case-<id>.pdf.
	OutputPath string
	// StrictFilenames rejects non-empty files without a name instead of
	// skipping them.
	StrictFilenames bool
	// Cover prepends a summary page when set.
	Cover *Cover
	// OnFile is called before each processed file.
	OnFile func(index, total int, filename string)
}

// PageSource traces one output page back to its upload.
type PageSource struct {
	// SourceIndex indexes Result.Filenames, or is CoverSource.
	SourceIndex int
	// SourcePage is the page within the uploaded PDF, 0 otherwise.
	SourcePage int
}

// Result describes a merged document.
type Result struct {
	ID        string
	Path      string
	Filenames []string
	PageCount int
	Pages     []PageSource
}

// Service merges uploads into PDFs.
type Service struct {
	cfg    config.MergeConfig
	logger *observability.Logger
}

// NewService creates a new merge service
func NewService(cfg config.MergeConfig, logger *observability.Logger) *Service {
	return &Service{
		cfg:    cfg,
		logger: observability.OrNop(logger).WithOperation("merge"),
	}
}

// part is one converted upload written into the temp scope.
type part struct {
	path  string
	pages int
}

// Merge converts every usable file, in order, and writes one PDF. It is all
// or nothing: on failure no output file exists and all temporary files are
// gone.
func (s *Service) Merge(ctx context.Context, files []domain.UploadedFile, opts Options) (*Result, error) {
	if len(files) == 0 {
		return nil, domain.InputError("no files to merge", domain.ErrEmptyInput)
	}

	id := uuid.NewString()
	log := s.logger.WithContext(ctx).WithDocument(id)
	start := time.Now()
	log.Info().Int("files", len(files)).Msg("merge started")

	scope, err := tempfs.New(s.cfg.TempDir, "case-intake-merge-*")
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := scope.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("temp cleanup failed")
		}
	}()

	strict := opts.StrictFilenames || s.cfg.StrictFilenames
	res := &Result{ID: id}
	var parts []part

	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, domain.ProcessingError("merge cancelled", err)
		}

		if f.Filename == "" {
			if strict && len(f.Data) > 0 {
				return nil, domain.InputError(fmt.Sprintf("file %d has content but no filename", i), domain.ErrMissingFilename)
			}
			log.Debug().Int("index", i).Msg("skipping file without filename")
			continue
		}
		if len(f.Data) == 0 {
			log.Debug().Str("filename", f.Filename).Msg("skipping empty file")
			continue
		}

		if opts.OnFile != nil {
			opts.OnFile(i, len(files), f.Filename)
		}

		data, pages, err := s.convert(f)
		if err != nil {
			return nil, err
		}
		path, err := scope.WriteFile(fmt.Sprintf("part-%04d.pdf", len(parts)), data)
		if err != nil {
			return nil, err
		}

		src := len(res.Filenames)
		res.Filenames = append(res.Filenames, f.Filename)
		for p := 0; p < pages; p++ {
			res.Pages = append(res.Pages, PageSource{SourceIndex: src, SourcePage: p})
		}
		parts = append(parts, part{path: path, pages: pages})

		log.Debug().Str("filename", f.Filename).Str("kind", string(f.Kind())).Int("pages", pages).Msg("file converted")
	}

	if len(parts) == 0 {
		return nil, domain.InputError("no usable files to merge", domain.ErrEmptyInput)
	}

	if opts.Cover != nil || s.cfg.CoverPage {
		cover := Cover{CaseID: id}
		if opts.Cover != nil {
			cover = *opts.Cover
		}
		data, err := textPart(coverPage(cover, res.Filenames))
		if err != nil {
			return nil, err
		}
		path, err := scope.WriteFile("cover.pdf", data)
		if err != nil {
			return nil, err
		}
		parts = append([]part{{path: path, pages: 1}}, parts...)
		res.Pages = append([]PageSource{{SourceIndex: CoverSource}}, res.Pages...)
	}

	out := opts.OutputPath
	if out == "" {
		out = filepath.Join(s.cfg.OutputDir, "case-"+id+".pdf")
	}
	if err := s.write(parts, out); err != nil {
		return nil, err
	}

	res.Path = out
	res.PageCount = len(res.Pages)
	log.Info().
		Str("output", out).
		Int("pages", res.PageCount).
		Strs("filenames", res.Filenames).
		Dur("duration", time.Since(start)).
		Msg("merge complete")
	return res, nil
}

// convert turns one upload into a standalone PDF.
func (s *Service) convert(f domain.UploadedFile) ([]byte, int, error) {
	switch f.Kind() {
	case domain.KindPDF:
		doc, err := pdf.Load(f.Data)
		if err != nil {
			return nil, 0, withFile(err, f.Filename)
		}
		// Pages are appended verbatim.
		return f.Data, doc.PageCount(), nil

	case domain.KindImage:
		encoded, _, err := normalizeImage(f.Data, s.cfg.JPEGQuality)
		if err != nil {
			return nil, 0, domain.ProcessingError("failed to convert image", err).WithFile(f.Filename)
		}
		doc, err := pdf.NewDocument()
		if err != nil {
			return nil, 0, withFile(err, f.Filename)
		}
		if err := doc.AppendImagePage(encoded); err != nil {
			return nil, 0, withFile(err, f.Filename)
		}
		data, err := doc.Bytes()
		if err != nil {
			return nil, 0, withFile(err, f.Filename)
		}
		return data, 1, nil
	}

	data, err := textPart(placeholderPage(f))
	if err != nil {
		return nil, 0, withFile(err, f.Filename)
	}
	return data, 1, nil
}

// write merges parts into a sibling temp file and renames it into place so a
// failed merge never leaves a partial output.
func (s *Service) write(parts []part, out string) error {
	if err := pdf.NewValidator().ValidateOutputPath(out); err != nil {
		return err
	}

	paths := make([]string, len(parts))
	for i, p := range parts {
		paths[i] = p.path
	}

	tmp := filepath.Join(filepath.Dir(out), "."+uuid.NewString()+".partial.pdf")
	if err := pdf.MergeFiles(paths, tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, out); err != nil {
		os.Remove(tmp)
		return domain.ResourceError("failed to move merged document into place", err).WithFile(out)
	}
	return nil
}

func textPart(p pdf.TextPage) ([]byte, error) {
	doc, err := pdf.NewDocument()
	if err != nil {
		return nil, err
	}
	if err := doc.AppendTextPage(p); err != nil {
		return nil, err
	}
	return doc.Bytes()
}

func withFile(err error, name string) error {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return de.WithFile(name)
	}
	return domain.ProcessingError("failed to convert file", err).WithFile(name)
}
