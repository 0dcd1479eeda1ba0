// Package pdf wraps the PDF object model (pdfcpu) and the page rasterizer
// (go-fitz) behind the small set of page operations the pipeline needs.
//
// Page indices are 0-based throughout this package.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/spherical/case-intake/internal/domain"
)

var errEmptyImage = errors.New("image has no pixels")

// Letter is the size of synthetic pages, in points.
var Letter = types.Dim{Width: 612, Height: 792}

// Config returns the pdfcpu configuration used for every operation.
func Config() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Document is an in-memory PDF.
type Document struct {
	ctx *model.Context
}

// NewDocument creates an empty document.
func NewDocument() (*Document, error) {
	ctx, err := pdfcpu.CreateContextWithXRefTable(Config(), &Letter)
	if err != nil {
		return nil, domain.ProcessingError("create document", err)
	}
	d := &Document{ctx: ctx}
	if _, _, err := d.pagesDict(); err != nil {
		return nil, err
	}
	return d, nil
}

// Load parses and validates a PDF.
func Load(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, domain.ProcessingError("open document", fmt.Errorf("empty data"))
	}
	ctx, err := api.ReadContext(bytes.NewReader(data), Config())
	if err != nil {
		return nil, domain.ProcessingError("open document", err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, domain.ProcessingError("validate document", err)
	}
	return &Document{ctx: ctx}, nil
}

// LoadFile reads and parses the PDF at path.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.ProcessingError("read document", err).WithFile(path)
	}
	d, err := Load(data)
	if err != nil {
		var de *domain.DomainError
		if errors.As(err, &de) {
			return nil, de.WithFile(path)
		}
		return nil, err
	}
	return d, nil
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return d.ctx.PageCount
}

// Bytes serializes the document. Serializing updates writer state inside the
// context, so a Document is written once and editing continues on a fresh
// Load of the result.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := api.WriteContext(d.ctx, &buf); err != nil {
		return nil, domain.ProcessingError("write document", err)
	}
	return buf.Bytes(), nil
}

// Optimize drops unused and duplicate objects.
func (d *Document) Optimize() error {
	if err := api.OptimizeContext(d.ctx); err != nil {
		return domain.ProcessingError("optimize document", err)
	}
	return nil
}

// Collect returns a new document made of the given pages in the given order.
func (d *Document) Collect(order []int) (*Document, error) {
	sel := make([]string, len(order))
	for i, p := range order {
		if err := d.checkPage(p); err != nil {
			return nil, err
		}
		sel[i] = strconv.Itoa(p + 1)
	}
	return d.transform("collect pages", func(in *bytes.Reader, out *bytes.Buffer) error {
		return api.Collect(in, out, sel, Config())
	})
}

// Remove returns a new document without the given page.
func (d *Document) Remove(page int) (*Document, error) {
	if err := d.checkPage(page); err != nil {
		return nil, err
	}
	if d.PageCount() == 1 {
		return nil, domain.InputError("cannot remove the only page", nil).WithPage(page)
	}
	sel := []string{strconv.Itoa(page + 1)}
	return d.transform("remove page", func(in *bytes.Reader, out *bytes.Buffer) error {
		return api.RemovePages(in, out, sel, Config())
	})
}

func (d *Document) transform(op string, fn func(*bytes.Reader, *bytes.Buffer) error) (*Document, error) {
	data, err := d.Bytes()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := fn(bytes.NewReader(data), &out); err != nil {
		return nil, domain.ProcessingError(op, err)
	}
	return Load(out.Bytes())
}

func (d *Document) checkPage(page int) error {
	if page < 0 || page >= d.PageCount() {
		return domain.IndexError(page, d.PageCount())
	}
	return nil
}

// pagesDict returns the root of the page tree, creating it when the catalog
// has none.
func (d *Document) pagesDict() (types.Dict, *types.IndirectRef, error) {
	root, err := d.ctx.Catalog()
	if err != nil {
		return nil, nil, domain.ProcessingError("read catalog", err)
	}
	if ir := root.IndirectRefEntry("Pages"); ir != nil {
		pages, err := d.ctx.DereferenceDict(*ir)
		if err != nil {
			return nil, nil, domain.ProcessingError("read page tree", err)
		}
		return pages, ir, nil
	}

	pages := types.Dict(map[string]types.Object{
		"Type":  types.Name("Pages"),
		"Count": types.Integer(0),
		"Kids":  types.Array{},
	})
	ir, err := d.ctx.IndRefForNewObject(pages)
	if err != nil {
		return nil, nil, domain.ProcessingError("create page tree", err)
	}
	root.Insert("Pages", *ir)
	return pages, ir, nil
}
