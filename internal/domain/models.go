package domain

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"strings"
	"time"
)

// FileKind is the inferred kind of an uploaded file.
type FileKind string

const (
	KindPDF         FileKind = "pdf"
	KindImage       FileKind = "image"
	KindOffice      FileKind = "office"
	KindUnsupported FileKind = "unsupported"
)

// Extensions recognised as raster images.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".tif", ".webp"}

// Extensions recognised as office documents.
var OfficeExtensions = []string{".doc", ".docx"}

// UploadedFile is one raw upload. It only lives for the duration of a merge.
type UploadedFile struct {
	Filename string
	Data     []byte
}

// Ext returns the lower-cased extension of the original filename.
func (f UploadedFile) Ext() string {
	return strings.ToLower(filepath.Ext(f.Filename))
}

// Kind infers the file kind from the filename extension.
func (f UploadedFile) Kind() FileKind {
	return ClassifyExt(f.Ext())
}

// ClassifyExt maps a filename extension, in any case, to a FileKind.
func ClassifyExt(ext string) FileKind {
	ext = strings.ToLower(ext)
	if ext == ".pdf" {
		return KindPDF
	}
	for _, e := range ImageExtensions {
		if ext == e {
			return KindImage
		}
	}
	for _, e := range OfficeExtensions {
		if ext == e {
			return KindOffice
		}
	}
	return KindUnsupported
}

// Operation names an editor operation in the modification log.
type Operation string

const (
	OpRotate      Operation = "rotate"
	OpEnhance     Operation = "enhance"
	OpCropCustom  Operation = "crop_custom"
	OpCropAuto    Operation = "crop_auto"
	OpReorder     Operation = "reorder"
	OpDelete      Operation = "delete"
	OpAnnotate    Operation = "annotate"
	OpApplyFilter Operation = "apply_filter"
)

// ModificationLogEntry is one append-only audit record. The log describes
// history; it is never consulted to rebuild document state.
type ModificationLogEntry struct {
	Seq       int                    `json:"seq"`
	Operation Operation              `json:"operation"`
	Page      int                    `json:"page"`
	Params    map[string]interface{} `json:"params,omitempty"`
	At        time.Time              `json:"at"`
}

// String renders the entry the way it is shown to operators.
func (e ModificationLogEntry) String() string {
	switch e.Operation {
	case OpRotate:
		return fmt.Sprintf("Rotated page %d by %v°", e.Page, e.Params["angle"])
	case OpEnhance:
		return fmt.Sprintf("Enhanced quality of page %d", e.Page)
	case OpCropCustom:
		return fmt.Sprintf("Custom crop on page %d %v", e.Page, e.Params["rect"])
	case OpCropAuto:
		return fmt.Sprintf("Auto-cropped page %d", e.Page)
	case OpReorder:
		return fmt.Sprintf("Reordered pages %v", e.Params["order"])
	case OpDelete:
		return fmt.Sprintf("Deleted page %d", e.Page)
	case OpAnnotate:
		return fmt.Sprintf("Added %v annotation on page %d", e.Params["kind"], e.Page)
	case OpApplyFilter:
		return fmt.Sprintf("Applied %v filter to page %d", e.Params["filter"], e.Page)
	}
	return fmt.Sprintf("%s on page %d", e.Operation, e.Page)
}

// AnnotationKind is the kind of marker added by Annotate.
type AnnotationKind string

const (
	AnnotationHighlight AnnotationKind = "highlight"
	AnnotationTextNote  AnnotationKind = "text-note"
	AnnotationRectangle AnnotationKind = "rectangle"
	AnnotationArrow     AnnotationKind = "arrow"
)

// Valid reports whether k is a supported annotation kind.
func (k AnnotationKind) Valid() bool {
	switch k {
	case AnnotationHighlight, AnnotationTextNote, AnnotationRectangle, AnnotationArrow:
		return true
	}
	return false
}

// FilterKind is a single-stage image filter applied by ApplyFilter.
type FilterKind string

const (
	FilterGrayscale  FilterKind = "grayscale"
	FilterContrast   FilterKind = "contrast"
	FilterBrightness FilterKind = "brightness"
	FilterSharpen    FilterKind = "sharpen"
)

// Valid reports whether k is a supported filter.
func (k FilterKind) Valid() bool {
	switch k {
	case FilterGrayscale, FilterContrast, FilterBrightness, FilterSharpen:
		return true
	}
	return false
}

// DefaultAnnotationColor is used when an annotation has no explicit color.
var DefaultAnnotationColor = color.RGBA{R: 255, A: 255}

// EnhancementResult is a processed raster plus the deskew correction that was
// actually applied, in degrees counter-clockwise (0 if skipped).
type EnhancementResult struct {
	Raster      image.Image
	DeskewAngle float64
}
